package quality_test

import (
	"github.com/notargets/tetsmooth/mesh"
	"github.com/notargets/tetsmooth/mesh/meshtest"
	"github.com/notargets/tetsmooth/metric"
	"github.com/notargets/tetsmooth/quality"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
	"strings"
	"testing"
)

// nodeFD differentiates measure(node) by moving node along each axis.
func nodeFD(t *testing.T, m *mesh.Mesh, node int, measure func(int) (float64, error)) r3.Vec {
	t.Helper()
	const h = 1e-7
	p0, err := m.Node(node)
	require.NoError(t, err)
	eval := func(p r3.Vec) float64 {
		require.NoError(t, m.SetNode(node, p))
		q, err := measure(node)
		require.NoError(t, err)
		return q
	}
	var g r3.Vec
	g.X = (eval(r3.Add(p0, r3.Vec{X: h})) - eval(r3.Sub(p0, r3.Vec{X: h}))) / (2 * h)
	g.Y = (eval(r3.Add(p0, r3.Vec{Y: h})) - eval(r3.Sub(p0, r3.Vec{Y: h}))) / (2 * h)
	g.Z = (eval(r3.Add(p0, r3.Vec{Z: h})) - eval(r3.Sub(p0, r3.Vec{Z: h}))) / (2 * h)
	require.NoError(t, m.SetNode(node, p0))
	return g
}

func TestAssessorAR(t *testing.T) {
	tests := []struct {
		name  string
		xpert float64
		minAR float64
		tol   float64
	}{
		{"Regular", 0, 1, 1e-4},
		{"Shifted", -0.2, 0.9797, 1e-3},
		{"Stretched", -4, 0.2518, 1e-3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := quality.NewAssessor(meshtest.IsoTet(tt.xpert, 0, false), nil)
			ar, err := a.MinAR()
			require.NoError(t, err)
			assert.InDelta(t, tt.minAR, ar, tt.tol)
			nodeAR, err := a.NodeAR(0)
			require.NoError(t, err)
			assert.Equal(t, ar, nodeAR)
		})
	}

	a := quality.NewAssessor(meshtest.IsoTet(-4, 0, false), nil)
	mr, err := a.MinFaceMR()
	require.NoError(t, err)
	assert.InDelta(t, 0.3191, mr, 1e-3)
}

func TestAssessorDerivatives(t *testing.T) {
	m := meshtest.GemGrid(6, 0.13, 3, 0.8)
	f := metric.NewField(m)
	require.NoError(t, f.SetMap(8, metric.Isotropic(0.7)))
	require.NoError(t, f.SetMap(0, metric.Tensor{1, 0, 0, 1.3, 0, 1}))
	require.NoError(t, f.SetMap(2, metric.Tensor{2, 0.3, 0, 1, 0.1, 1.5}))
	a := quality.NewAssessor(m, f)

	t.Run("NodeAR", func(t *testing.T) {
		center := 8
		_, g, err := a.NodeARDerivative(center)
		require.NoError(t, err)
		want := nodeFD(t, m, center, a.NodeAR)
		assert.InDelta(t, want.X, g.X, 1e-6)
		assert.InDelta(t, want.Y, g.Y, 1e-6)
		assert.InDelta(t, want.Z, g.Z, 1e-6)
	})

	t.Run("NodeFaceMR", func(t *testing.T) {
		ring := 3
		_, g, err := a.NodeFaceMRDerivative(ring)
		require.NoError(t, err)
		want := nodeFD(t, m, ring, a.NodeFaceMR)
		assert.InDelta(t, want.X, g.X, 1e-6)
		assert.InDelta(t, want.Y, g.Y, 1e-6)
		assert.InDelta(t, want.Z, g.Z, 1e-6)
	})
}

func TestAssessorVolume(t *testing.T) {
	a := quality.NewAssessor(meshtest.GemGrid(4, 0, -1, 1), nil)
	assert.InDelta(t, 4.0/3.0, a.TotalVolume(), 1e-12)
	avg, err := a.AverageVolume()
	require.NoError(t, err)
	assert.InDelta(t, 1.0/6.0, avg, 1e-12)
	v, err := a.NodeMinVolume(6)
	require.NoError(t, err)
	assert.InDelta(t, 1.0/6.0, v, 1e-12)

	tangled := quality.NewAssessor(meshtest.IsoTet4(-1), nil)
	v, err = tangled.MinVolume()
	require.NoError(t, err)
	assert.Less(t, v, 0.0)
}

func TestAssessorUV(t *testing.T) {
	a := quality.NewAssessor(meshtest.ThreeSurfaceTriangles(1, 1), nil)
	area, err := a.MinFaceAreaUV(3)
	require.NoError(t, err)
	assert.InDelta(t, -0.5, area, 1e-12)
	area, err = a.MinCellFaceAreaUV([4]int{0, 1, 2, 3})
	require.NoError(t, err)
	assert.InDelta(t, -0.5, area, 1e-12)

	plain := quality.NewAssessor(meshtest.RightTet(), nil)
	_, err = plain.MinCellFaceAreaUV([4]int{0, 1, 2, 3})
	assert.ErrorIs(t, err, quality.ErrNoElements)
}

func TestAssessorNoElements(t *testing.T) {
	_, err := quality.NewAssessor(mesh.New(), nil).MinAR()
	assert.ErrorIs(t, err, quality.ErrNoElements)
	_, err = quality.NewAssessor(mesh.New(), nil).AverageVolume()
	assert.ErrorIs(t, err, quality.ErrNoElements)

	_, err = quality.NewAssessor(meshtest.RightTet(), nil).NodeFaceMR(0)
	assert.ErrorIs(t, err, quality.ErrNoElements)
	_, err = quality.NewAssessor(meshtest.RightTet(), nil).MinFaceMR()
	assert.ErrorIs(t, err, quality.ErrNoElements)

	m := meshtest.ThreeSurfaceTriangles(0.3, 0.3)
	require.NoError(t, m.RemoveCell(0))
	a := quality.NewAssessor(m, nil)
	_, err = a.NodeAR(3)
	assert.ErrorIs(t, err, quality.ErrNoElements)
	_, err = a.NodeMinVolume(3)
	assert.ErrorIs(t, err, quality.ErrNoElements)
	assert.False(t, a.RightHandedBoundary(), "faces without a cell")
}

func TestRightHanded(t *testing.T) {
	a := quality.NewAssessor(meshtest.IsoTet4(1), nil)
	assert.True(t, a.RightHandedBoundary())

	m := meshtest.RightTet()
	_, err := m.AddFace(mesh.Face{Nodes: [3]int{0, 1, 2}})
	require.NoError(t, err)
	ok, err := quality.NewAssessor(m, nil).RightHandedFace(0)
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = m.AddFace(mesh.Face{Nodes: [3]int{0, 1, 3}})
	require.NoError(t, err)
	ok, err = quality.NewAssessor(m, nil).RightHandedFace(1)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.False(t, quality.NewAssessor(m, nil).RightHandedBoundary())
}

func TestReport(t *testing.T) {
	m := meshtest.IsoTet(0, 0, false)
	require.NoError(t, m.Freeze(3))
	r, err := quality.NewAssessor(m, nil).Report()
	require.NoError(t, err)

	assert.Equal(t, 4, r.Nodes)
	assert.Equal(t, 1, r.Cells)
	assert.Equal(t, 1, r.Faces)
	assert.Equal(t, 1, r.Frozen)
	assert.True(t, r.HasBoundary)
	assert.True(t, r.RightHanded)
	assert.Equal(t, 0.0, r.StdDevAR)
	assert.Equal(t, 1, r.ARHistogram[10])
	assert.Equal(t, 0, r.Inverted)
	assert.Equal(t, r.MinVolume, r.MaxVolume)
	assert.True(t, strings.Contains(r.String(), "=== Mesh Quality Summary ==="))

	t.Run("Stretched", func(t *testing.T) {
		r, err := quality.NewAssessor(meshtest.IsoTet(-4, 0, false), nil).Report()
		require.NoError(t, err)
		assert.Equal(t, 1, r.ARHistogram[3])
		assert.Contains(t, r.String(), "(0.2, 0.3]: 1")
	})

	t.Run("Tangled", func(t *testing.T) {
		r, err := quality.NewAssessor(meshtest.IsoTet4(-1), nil).Report()
		require.NoError(t, err)
		assert.Greater(t, r.Inverted, 0)
		assert.Equal(t, r.Inverted, r.ARHistogram[0])
		assert.False(t, r.RightHanded)
	})

	t.Run("Empty", func(t *testing.T) {
		r, err := quality.NewAssessor(mesh.New(), nil).Report()
		require.NoError(t, err)
		assert.Equal(t, quality.Report{}, r)
		assert.NotContains(t, r.String(), "Volume")
	})
}
