package metric_test

import (
	"github.com/notargets/tetsmooth/mesh"
	"github.com/notargets/tetsmooth/mesh/meshtest"
	"github.com/notargets/tetsmooth/metric"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"
	"math"
	"math/rand/v2"
	"testing"
)

// rotated returns R diag(vals) Rᵀ for a random rotation R built from a unit
// quaternion.
func rotated(rng *rand.Rand, vals [3]float64) metric.Tensor {
	var q [4]float64
	n := 0.0
	for n < 1e-3 {
		n = 0
		for i := range q {
			q[i] = rng.NormFloat64()
			n += q[i] * q[i]
		}
	}
	n = math.Sqrt(n)
	w, x, y, z := q[0]/n, q[1]/n, q[2]/n, q[3]/n
	r := [3]r3.Vec{
		{X: 1 - 2*(y*y+z*z), Y: 2 * (x*y + w*z), Z: 2 * (x*z - w*y)},
		{X: 2 * (x*y - w*z), Y: 1 - 2*(x*x+z*z), Z: 2 * (y*z + w*x)},
		{X: 2 * (x*z + w*y), Y: 2 * (y*z - w*x), Z: 1 - 2*(x*x+y*y)},
	}
	return metric.FromEigen(metric.Eigen{Values: vals, Vectors: r})
}

func eigenCases() map[string]metric.Tensor {
	third := 2.0 / 3.0
	return map[string]metric.Tensor{
		"Diagonal":         {1, 0, 0, 4, 0, 9},
		"General":          {4, 1, 0.5, 3, 0.2, 2},
		"RepeatedDiagonal": {2, 0, 0, 2, 0, 5},
		// I + 2 n nᵀ with n along (1,1,1): eigenvalues 3, 1, 1
		"RepeatedRotated": {1 + third, third, third, 1 + third, third, 1 + third},
		"Anisotropic":     {1e4, 0, 0, 1, 0, 1e-4},
		"Indefinite":      {1, 2, 0, 1, 0, -1},
	}
}

func TestEigenDecompose(t *testing.T) {
	for name, tens := range eigenCases() {
		t.Run(name, func(t *testing.T) {
			e, err := metric.EigenDecompose(tens)
			require.NoError(t, err)

			var es mat.EigenSym
			require.True(t, es.Factorize(tens.Dense(), true))
			want := es.Values(nil) // ascending
			scale := math.Max(math.Abs(want[0]), math.Abs(want[2]))
			for i := 0; i < 3; i++ {
				assert.InDelta(t, want[2-i], e.Values[i], 1e-10*scale, "eigenvalue %d", i)
			}

			for i := 0; i < 3; i++ {
				assert.InDelta(t, 1, r3.Norm(e.Vectors[i]), 1e-10)
				for j := i + 1; j < 3; j++ {
					assert.InDelta(t, 0, r3.Dot(e.Vectors[i], e.Vectors[j]), 1e-10)
				}
			}
			handed := r3.Dot(r3.Cross(e.Vectors[0], e.Vectors[1]), e.Vectors[2])
			assert.InDelta(t, 1, handed, 1e-10, "right handed")

			back := metric.FromEigen(e)
			for i := range tens {
				assert.InDelta(t, tens[i], back[i], 1e-14*scale)
			}
		})
	}

	t.Run("RandomRotations", func(t *testing.T) {
		rng := rand.New(rand.NewPCG(7, 11))
		for _, vals := range [][3]float64{
			{5, 2, 0.5},
			{1, 1, 1},
			{2, 2, 1},
			{3, 1, 1},
			{1, 1, 1e-3},
			{2, 1 + 1e-7, 1},
			{1000, 1000, 1},
		} {
			worst, worstJ := 0.0, 0.0
			for n := 0; n < 500; n++ {
				tens := rotated(rng, vals)
				e, err := metric.EigenDecompose(tens)
				require.NoError(t, err)
				back := metric.FromEigen(e)
				for i := range tens {
					worst = math.Max(worst, math.Abs(tens[i]-back[i]))
				}

				j, err := metric.Jacobian(tens)
				require.NoError(t, err)
				var jj mat.Dense
				jj.Mul(j.Dense(), j.Dense())
				m := tens.Mat()
				for r := 0; r < 3; r++ {
					for c := 0; c < 3; c++ {
						worstJ = math.Max(worstJ, math.Abs(m[r][c]-jj.At(r, c)))
					}
				}
			}
			assert.LessOrEqual(t, worst, 1e-14*vals[0], "eigenvalues %v", vals)
			assert.LessOrEqual(t, worstJ, 1e-12*vals[0], "jacobian of %v", vals)
		}
	})

	t.Run("Zero", func(t *testing.T) {
		e, err := metric.EigenDecompose(metric.Tensor{})
		require.NoError(t, err)
		assert.Equal(t, [3]float64{}, e.Values)
	})
	t.Run("NonFinite", func(t *testing.T) {
		_, err := metric.EigenDecompose(metric.Tensor{math.NaN(), 0, 0, 1, 0, 1})
		assert.Error(t, err)
	})
}

func TestEigenVector(t *testing.T) {
	v, err := metric.EigenVector(metric.Tensor{1, 0, 0, 4, 0, 9}, 4)
	require.NoError(t, err)
	assert.InDelta(t, 1, math.Abs(v.Y), 1e-12)

	_, err = metric.EigenVector(metric.Tensor{2, 0, 0, 2, 0, 5}, 2)
	assert.ErrorIs(t, err, metric.ErrDegenerate)
}

func TestJacobian(t *testing.T) {
	j, err := metric.Jacobian(metric.Tensor{1, 0, 0, 4, 0, 9})
	require.NoError(t, err)
	want := metric.Mat3{{1, 0, 0}, {0, 2, 0}, {0, 0, 3}}
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			assert.InDelta(t, want[r][c], j[r][c], 1e-12)
		}
	}

	tens := metric.Tensor{4, 1, 0.5, 3, 0.2, 2}
	j, err = metric.Jacobian(tens)
	require.NoError(t, err)
	var jj mat.Dense
	jj.Mul(j.Dense(), j.Dense())
	m := tens.Mat()
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			assert.InDelta(t, m[r][c], jj.At(r, c), 1e-10)
		}
	}
	v := r3.Vec{X: 0.3, Y: -1, Z: 2}
	assert.InDelta(t, tens.Length(v), r3.Norm(j.MulVec(v)), 1e-10)

	_, err = metric.Jacobian(metric.Tensor{1, 2, 0, 1, 0, -1})
	assert.ErrorIs(t, err, metric.ErrNotPositiveDefinite)
}

func TestField(t *testing.T) {
	m := meshtest.RightTet()
	f := metric.NewField(m)

	got, err := f.Map(2)
	require.NoError(t, err)
	assert.Equal(t, metric.Identity(), got)
	_, err = f.Map(7)
	assert.ErrorIs(t, err, mesh.ErrNotFound)

	t.Run("Spacing", func(t *testing.T) {
		require.NoError(t, f.SetMap(0, metric.Isotropic(0.5)))
		h, err := f.Spacing(0)
		require.NoError(t, err)
		assert.InDelta(t, 0.5, h, 1e-12)

		// J is 2I at node 0 and I at node 1
		r, err := f.EdgeRatio(0, 1)
		require.NoError(t, err)
		assert.InDelta(t, 1.5, r, 1e-12)

		require.NoError(t, f.ScaleSpacing(0, 4))
		h, _ = f.Spacing(0)
		assert.InDelta(t, 2, h, 1e-12)
		assert.ErrorIs(t, f.ScaleSpacing(0, 0), metric.ErrNotPositiveDefinite)
	})

	t.Run("EdgeLengths", func(t *testing.T) {
		l, err := f.AverageEdgeLength(0)
		require.NoError(t, err)
		assert.InDelta(t, 1, l, 1e-12)
		l, err = f.AverageEdgeLength(1)
		require.NoError(t, err)
		assert.InDelta(t, (1+2*math.Sqrt2)/3, l, 1e-12)
	})

	t.Run("RatioEdges", func(t *testing.T) {
		require.NoError(t, f.ResetSpacing())
		n, r, err := f.LargestRatioEdge(1)
		require.NoError(t, err)
		assert.Equal(t, 2, n, "ties keep the first neighbor")
		assert.InDelta(t, math.Sqrt2/((1+2*math.Sqrt2)/3), r, 1e-9)
		n, _, err = f.SmallestRatioEdge(1)
		require.NoError(t, err)
		assert.Equal(t, 0, n)
	})

	t.Run("CopyAndAverage", func(t *testing.T) {
		require.NoError(t, f.SetMap(0, metric.Isotropic(0.5)))
		require.NoError(t, f.SetMap(1, metric.Identity()))
		require.NoError(t, f.CopySpacing(0, 3))
		got, _ := f.Map(3)
		assert.Equal(t, metric.Isotropic(0.5), got)

		require.NoError(t, f.SetMapMatrixToAverageOfNodes(2, 0, 1))
		got, _ = f.Map(2)
		assert.InDelta(t, 2.5, got[0], 1e-12)
		assert.InDelta(t, 0, got[1], 1e-12)

		cm, err := f.CellMap([4]int{0, 1, 2, 3})
		require.NoError(t, err)
		assert.InDelta(t, (4+1+2.5+4)/4.0, cm[3], 1e-12)
	})

	t.Run("Remap", func(t *testing.T) {
		require.NoError(t, f.SetMap(3, metric.Isotropic(0.25)))
		f.Remap([]int{-1, 0, 1, 2})
		got, err := f.Map(2)
		require.NoError(t, err)
		assert.Equal(t, metric.Isotropic(0.25), got)
	})
}
