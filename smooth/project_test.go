package smooth_test

import (
	"fmt"
	"github.com/notargets/tetsmooth/mesh/meshtest"
	"github.com/notargets/tetsmooth/smooth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
	"testing"
)

func TestSafeProjectNode(t *testing.T) {
	for _, edge := range []bool{false, true} {
		name := "Surface"
		if edge {
			name = "Curve"
		}
		t.Run(name, func(t *testing.T) {
			t.Run("BackedOff", func(t *testing.T) {
				o := newOptimizer(t, meshtest.UnprojectableTet(edge), meshtest.Model())
				assert.ErrorIs(t, o.SafeProjectNode(0, 0.5), smooth.ErrBackedOff)
				p, _ := o.Mesh.Node(0)
				assert.InDelta(t, -0.25, p.Z, 1e-15)
				lo, err := o.Assess.MinVolume()
				require.NoError(t, err)
				assert.Greater(t, lo, 0.0)
			})

			for _, ratio := range []float64{0, 1} {
				t.Run(fmt.Sprintf("Exhausted%g", ratio), func(t *testing.T) {
					o := newOptimizer(t, meshtest.UnprojectableTet(edge), meshtest.Model())
					before, _ := o.Mesh.SaveNode(0)
					assert.ErrorIs(t, o.SafeProjectNode(0, ratio), smooth.ErrRetryExhausted)
					after, _ := o.Mesh.SaveNode(0)
					assert.Equal(t, before, after)
					lo, err := o.Assess.MinVolume()
					require.NoError(t, err)
					assert.Greater(t, lo, 0.0)
				})
			}
		})
	}

	t.Run("Projected", func(t *testing.T) {
		o := newOptimizer(t, meshtest.ProjectionTet(), meshtest.Model())
		require.NoError(t, o.SafeProjectNode(3, 0.5))
		p, _ := o.Mesh.Node(3)
		assert.Equal(t, r3.Vec{Y: 1}, p)
		require.NoError(t, o.SafeProjectNode(4, 0.5), "interior nodes are left alone")
	})

	t.Run("FullRatio", func(t *testing.T) {
		o := newOptimizer(t, meshtest.ProjectionTet(), meshtest.Model())
		require.NoError(t, o.SafeProjectNode(3, 1))
		p, _ := o.Mesh.Node(3)
		assert.Equal(t, r3.Vec{Y: 1}, p)
		lo, err := o.Assess.MinVolume()
		require.NoError(t, err)
		assert.Greater(t, lo, 0.0)
	})

	t.Run("ZeroRatio", func(t *testing.T) {
		o := newOptimizer(t, meshtest.ProjectionTet(), meshtest.Model())
		lo, err := o.Assess.MinVolume()
		require.NoError(t, err)
		before, _ := o.Mesh.SaveNode(3)
		assert.ErrorIs(t, o.SafeProjectNode(3, 0), smooth.ErrRetryExhausted)
		after, _ := o.Mesh.SaveNode(3)
		assert.Equal(t, before, after, "a valid projection is still not taken")
		p, _ := o.Mesh.Node(3)
		assert.Equal(t, r3.Vec{Y: 1, Z: 0.1}, p)
		after2, err := o.Assess.MinVolume()
		require.NoError(t, err)
		assert.Equal(t, lo, after2)
	})

	t.Run("Refused", func(t *testing.T) {
		m := meshtest.ProjectionTet()
		require.NoError(t, m.Freeze(3))
		o := newOptimizer(t, m, meshtest.Model())
		assert.ErrorIs(t, o.SafeProjectNode(3, 0.5), smooth.ErrFrozen)

		bare := newOptimizer(t, meshtest.ProjectionTet(), nil)
		assert.ErrorIs(t, bare.SafeProjectNode(1, 0.5), smooth.ErrNoGeometry)
	})
}

func TestProject(t *testing.T) {
	o := newOptimizer(t, meshtest.ProjectionTet(), meshtest.Model())
	require.NoError(t, o.Project())
	for node, want := range map[int]r3.Vec{1: {}, 2: {X: 1}, 3: {Y: 1}, 4: {Z: 1}} {
		p, _ := o.Mesh.Node(node)
		assert.Equal(t, want, p, "node %d", node)
	}

	bad := newOptimizer(t, meshtest.UnprojectableTet(false), meshtest.Model())
	err := bad.Project()
	assert.ErrorIs(t, err, smooth.ErrRetryExhausted)
	assert.Contains(t, err.Error(), "1 of 4 nodes failed")
}

func TestFreezeGoodNodes(t *testing.T) {
	o := newOptimizer(t, meshtest.IsoTet(0, 0, false), meshtest.Model())
	n, err := o.FreezeGoodNodes(1.1, 0.5, 2)
	require.NoError(t, err)
	assert.Equal(t, 0, n, "nothing beats a perfect cell")

	n, err = o.FreezeGoodNodes(0.9, 0.5, 2)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	for _, node := range o.Mesh.NodeIDs() {
		assert.True(t, o.Mesh.Frozen(node))
	}

	stretched := newOptimizer(t, meshtest.IsoTet(-4, 0, false), meshtest.Model())
	n, err = stretched.FreezeGoodNodes(0.9, 0.5, 2)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}
