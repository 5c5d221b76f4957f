package quality

import (
	"github.com/notargets/tetsmooth/metric"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
	"math"
	"testing"
)

const fdStep = 1e-7

var (
	rightTet   = [4]r3.Vec{{}, {X: 1}, {Y: 1}, {Z: 1}}
	regularTet = [4]r3.Vec{
		{},
		{X: 1},
		{X: 0.5, Y: math.Sqrt(3) / 2},
		{X: 0.5, Y: math.Sqrt(3) / 6, Z: math.Sqrt(2.0 / 3.0)},
	}
	skewTet = [4]r3.Vec{
		{X: 0.1, Y: -0.2, Z: 0.05},
		{X: 1.3, Y: 0.1},
		{X: 0.2, Y: 0.9, Z: -0.1},
		{X: 0.4, Y: 0.3, Z: 1.7},
	}
)

// fdGradient is the central difference gradient of f with respect to p.
func fdGradient(p r3.Vec, f func(r3.Vec) float64) r3.Vec {
	var g r3.Vec
	for k, d := range axes {
		h := r3.Scale(fdStep, d)
		setComponent(&g, k, (f(r3.Add(p, h))-f(r3.Sub(p, h)))/(2*fdStep))
	}
	return g
}

func assertVecInDelta(t *testing.T, want, got r3.Vec, delta float64, msg string) {
	t.Helper()
	assert.InDelta(t, want.X, got.X, delta, msg+" x")
	assert.InDelta(t, want.Y, got.Y, delta, msg+" y")
	assert.InDelta(t, want.Z, got.Z, delta, msg+" z")
}

func TestCellMeasures(t *testing.T) {
	p := rightTet
	assert.InDelta(t, 1.0/6.0, CellVolume(p[0], p[1], p[2], p[3]), 1e-15)
	assert.InDelta(t, 0.8399473666, CellMeanRatio(p[0], p[1], p[2], p[3]), 1e-9)
	assert.InDelta(t, math.Sqrt(3)-1, CellAspectRatio(p[0], p[1], p[2], p[3]), 1e-12)

	r := regularTet
	assert.InDelta(t, 1, CellMeanRatio(r[0], r[1], r[2], r[3]), 1e-12)
	assert.InDelta(t, 1, CellAspectRatio(r[0], r[1], r[2], r[3]), 1e-12)

	t.Run("Inverted", func(t *testing.T) {
		assert.Less(t, CellVolume(p[0], p[2], p[1], p[3]), 0.0)
		assert.InDelta(t, -0.8399473666, CellMeanRatio(p[0], p[2], p[1], p[3]), 1e-9)
		assert.InDelta(t, 1-math.Sqrt(3), CellAspectRatio(p[0], p[2], p[1], p[3]), 1e-12)
	})

	t.Run("Flat", func(t *testing.T) {
		flat := r3.Vec{X: 0.3, Y: 0.3}
		assert.Equal(t, 0.0, CellMeanRatio(p[0], p[1], p[2], flat))
		q, g := CellMeanRatioDerivative(p[0], p[1], p[2], flat)
		assert.Equal(t, 0.0, q)
		assert.Equal(t, r3.Vec{}, g)
		assert.Equal(t, 0.0, CellAspectRatio(p[0], p[1], p[2], flat))
	})
}

func TestFaceMeasures(t *testing.T) {
	a, b, c := r3.Vec{}, r3.Vec{X: 1}, r3.Vec{Y: 1}
	assert.InDelta(t, 0.5, FaceArea(a, b, c), 1e-15)
	assert.InDelta(t, 2*(math.Sqrt2-1), FaceAspectRatio(a, b, c), 1e-12)
	assert.InDelta(t, math.Sqrt(3)/2, FaceMeanRatio(a, b, c), 1e-12)
	assert.InDelta(t, 1, FaceMeanRatio(regularTet[0], regularTet[1], regularTet[2]), 1e-12)
	assert.Equal(t, r3.Vec{Z: 1}, FaceNormal(a, b, c))
	assert.Equal(t, r3.Vec{}, FaceNormal(a, b, b))

	assert.Equal(t, 0.5, FaceAreaUV([2]float64{}, [2]float64{1, 0}, [2]float64{0, 1}))
	assert.Equal(t, -0.5, FaceAreaUV([2]float64{}, [2]float64{0, 1}, [2]float64{1, 0}))
}

func TestDerivatives(t *testing.T) {
	j, err := metric.Jacobian(metric.Tensor{4, 1, 0.5, 3, 0.2, 2})
	require.NoError(t, err)

	for name, p := range map[string][4]r3.Vec{"Right": rightTet, "Regular": regularTet, "Skew": skewTet} {
		t.Run(name, func(t *testing.T) {
			cell := map[string]func(p0, p1, p2, p3 r3.Vec) (float64, r3.Vec){
				"Volume":          CellVolumeDerivative,
				"MeanRatio":       CellMeanRatioDerivative,
				"AspectRatio":     CellAspectRatioDerivative,
				"MetricMeanRatio": func(p0, p1, p2, p3 r3.Vec) (float64, r3.Vec) { return CellMetricMeanRatioDerivative(j, p0, p1, p2, p3) },
			}
			for measure, df := range cell {
				for k := 0; k < 4; k++ {
					q := RotateCell(p, k)
					v, g := df(q[0], q[1], q[2], q[3])
					want := fdGradient(q[0], func(x r3.Vec) float64 {
						v, _ := df(x, q[1], q[2], q[3])
						return v
					})
					ref, _ := df(p[0], p[1], p[2], p[3])
					assert.InDelta(t, ref, v, 1e-12, "%s rotation %d keeps the value", measure, k)
					assertVecInDelta(t, want, g, 1e-6, measure)
				}
			}

			face := map[string]func(p0, p1, p2 r3.Vec) (float64, r3.Vec){
				"Area":            FaceAreaDerivative,
				"MeanRatio":       FaceMeanRatioDerivative,
				"MetricMeanRatio": func(p0, p1, p2 r3.Vec) (float64, r3.Vec) { return FaceMetricMeanRatioDerivative(j, p0, p1, p2) },
			}
			tri := [3]r3.Vec{p[0], p[1], p[2]}
			for measure, df := range face {
				for k := 0; k < 3; k++ {
					q := RotateFace(tri, k)
					_, g := df(q[0], q[1], q[2])
					want := fdGradient(q[0], func(x r3.Vec) float64 {
						v, _ := df(x, q[1], q[2])
						return v
					})
					assertVecInDelta(t, want, g, 1e-6, measure)
				}
			}
		})
	}

	t.Run("FaceAreaUV", func(t *testing.T) {
		uv := [3][2]float64{{0.2, 0.1}, {1.1, 0.3}, {0.4, 0.9}}
		for k := 0; k < 3; k++ {
			q := RotateFace(uv, k)
			area, g := FaceAreaUVDerivative(q[0], q[1], q[2])
			assert.InDelta(t, FaceAreaUV(uv[0], uv[1], uv[2]), area, 1e-15)
			for d := 0; d < 2; d++ {
				hi, lo := q[0], q[0]
				hi[d] += fdStep
				lo[d] -= fdStep
				fd := (FaceAreaUV(hi, q[1], q[2]) - FaceAreaUV(lo, q[1], q[2])) / (2 * fdStep)
				assert.InDelta(t, fd, g[d], 1e-6)
			}
		}
	})
}

func TestMetricMeasures(t *testing.T) {
	p := rightTet
	id := metric.IdentityMat3()
	assert.InDelta(t, CellMeanRatio(p[0], p[1], p[2], p[3]),
		CellMetricMeanRatio(id, p[0], p[1], p[2], p[3]), 1e-15)

	t.Run("Conformity", func(t *testing.T) {
		r := regularTet
		c, err := CellMetricConformity(r[0], r[1], r[2], r[3], metric.Identity())
		require.NoError(t, err)
		assert.InDelta(t, 1, c, 1e-12)

		var big [4]r3.Vec
		for i := range r {
			big[i] = r3.Scale(2, r[i])
		}
		c, err = CellMetricConformity(big[0], big[1], big[2], big[3], metric.Identity())
		require.NoError(t, err)
		assert.InDelta(t, 6/12.75, c, 1e-12, "doubled cell is too large")

		c, err = CellMetricConformity(big[0], big[1], big[2], big[3], metric.Isotropic(2))
		require.NoError(t, err)
		assert.InDelta(t, 1, c, 1e-12, "matches a metric of spacing 2")

		c, err = CellMetricConformity(r[0], r[2], r[1], r[3], metric.Identity())
		require.NoError(t, err)
		assert.Less(t, c, 0.0)

		_, err = CellMetricConformity(r[0], r[1], r[2], r[3], metric.Tensor{1, 2, 0, 1, 0, -1})
		assert.ErrorIs(t, err, metric.ErrNotPositiveDefinite)
	})
}

func TestRotate(t *testing.T) {
	p := skewTet
	v := CellVolume(p[0], p[1], p[2], p[3])
	for k := 0; k < 4; k++ {
		q := RotateCell(p, k)
		assert.Equal(t, p[k], q[0])
		assert.InDelta(t, v, CellVolume(q[0], q[1], q[2], q[3]), 1e-14, "rotation %d", k)
	}
	ids := [3]int{4, 5, 6}
	assert.Equal(t, [3]int{5, 6, 4}, RotateFace(ids, 1))
	assert.Equal(t, [3]int{6, 4, 5}, RotateFace(ids, 2))
}
