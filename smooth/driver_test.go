package smooth_test

import (
	"context"
	"github.com/notargets/tetsmooth/mesh/meshtest"
	"github.com/notargets/tetsmooth/smooth"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"testing"
)

func TestSmooth(t *testing.T) {
	log, hook := test.NewNullLogger()
	log.SetLevel(logrus.DebugLevel)
	o, err := smooth.New(meshtest.IsoTet(-4, 0, false), nil, meshtest.Model(), smooth.DefaultConfig(), log)
	require.NoError(t, err)
	assert.InDelta(t, 0.2518, minAR(t, o), 1e-3)

	o.Mesh.FreezeAll()
	moved, err := o.Smooth()
	require.NoError(t, err)
	assert.Equal(t, 0, moved)
	assert.InDelta(t, 0.2518, minAR(t, o), 1e-3)

	o.Mesh.ThawAll()
	moved, err = o.Smooth()
	require.NoError(t, err)
	assert.Greater(t, moved, 0)
	assert.InDelta(t, 1, minAR(t, o), 1e-3)
	mr, err := o.Assess.MinFaceMR()
	require.NoError(t, err)
	assert.InDelta(t, 1, mr, 1e-3)

	last := hook.LastEntry()
	require.NotNil(t, last)
	assert.Equal(t, logrus.InfoLevel, last.Level)
	assert.Equal(t, "smooth", last.Data["op"])
	assert.Equal(t, moved, last.Data["moved"])
}

func TestSmoothStrategies(t *testing.T) {
	tests := []struct {
		strategy string
		atLeast  float64
	}{
		{smooth.StrategyGradient, 0.61},
		{smooth.StrategyLaplacian, 0.85},
		{smooth.StrategySmartLaplacian, 0.85},
		{smooth.StrategyIdeal, 0.61},
		{smooth.StrategySimplex, 0.61},
	}
	for _, tt := range tests {
		t.Run(tt.strategy, func(t *testing.T) {
			cfg := smooth.DefaultConfig()
			cfg.Strategy = tt.strategy
			o, err := smooth.New(meshtest.GemGrid(6, 0.2, -1, 1), nil, nil, cfg, nil)
			require.NoError(t, err)
			moved, err := o.Smooth()
			require.NoError(t, err)
			assert.Equal(t, 1, moved, "only the center is interior")
			assert.Greater(t, minAR(t, o), tt.atLeast)
		})
	}

	t.Run(smooth.StrategyVolume, func(t *testing.T) {
		cfg := smooth.DefaultConfig()
		cfg.Strategy = smooth.StrategyVolume
		o, err := smooth.New(meshtest.GemGrid(4, 5, 0, -0.5), nil, nil, cfg, nil)
		require.NoError(t, err)
		_, avg := volumes(t, o)
		moved, err := o.Smooth()
		require.NoError(t, err)
		assert.Equal(t, 1, moved)
		lo, _ := volumes(t, o)
		assert.InDelta(t, avg, lo, 1e-4)
	})
}

func TestSmoothConcurrent(t *testing.T) {
	for _, partition := range []string{smooth.PartitionBlock, smooth.PartitionRoundRobin, smooth.PartitionMorton} {
		for _, size := range []int{256, 3} {
			cfg := smooth.DefaultConfig()
			cfg.Strategy = smooth.StrategySmartLaplacian
			cfg.PartitionStrategy = partition
			cfg.PartitionSize = size
			cfg.Workers = 2
			o, err := smooth.New(meshtest.GemGrid(6, 0.2, -1, 1), nil, nil, cfg, nil)
			require.NoError(t, err)

			moved, err := o.SmoothConcurrent(context.Background())
			require.NoError(t, err, "%s/%d", partition, size)
			assert.Equal(t, 1, moved, "%s/%d", partition, size)
			assert.InDelta(t, 0.8585, minAR(t, o), 1e-3, "%s/%d", partition, size)
		}
	}

	t.Run("MatchesSerial", func(t *testing.T) {
		cfg := smooth.DefaultConfig()
		cfg.PartitionSize = 4
		serial, err := smooth.New(meshtest.IsoTet(-4, 0, false), nil, meshtest.Model(), cfg, nil)
		require.NoError(t, err)
		parallel, err := smooth.New(meshtest.IsoTet(-4, 0, false), nil, meshtest.Model(), cfg, nil)
		require.NoError(t, err)

		n1, err := serial.Smooth()
		require.NoError(t, err)
		n2, err := parallel.SmoothConcurrent(context.Background())
		require.NoError(t, err)
		assert.Equal(t, n1, n2)
		assert.InDelta(t, minAR(t, serial), minAR(t, parallel), 1e-12)
	})

	t.Run("Cancelled", func(t *testing.T) {
		o := newOptimizer(t, meshtest.GemGrid(6, 0.2, -1, 1), nil)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := o.SmoothConcurrent(ctx)
		assert.ErrorIs(t, err, context.Canceled)
		p, _ := o.Mesh.Node(8)
		assert.Equal(t, 0.2, p.X, "nothing moved")
	})
}

func TestSmoothNodeIdeal(t *testing.T) {
	o := newOptimizer(t, meshtest.GemGrid(6, 0.2, -1, 1), nil)
	before := minAR(t, o)
	require.NoError(t, o.SmoothNodeIdeal(8))
	assert.Greater(t, minAR(t, o), before)
	assert.ErrorIs(t, o.SmoothNodeIdeal(0), smooth.ErrNotMovable)
}

func TestSmoothNodeSimplex(t *testing.T) {
	o := newOptimizer(t, meshtest.GemGrid(6, 0.2, -1, 1), nil)
	before := minAR(t, o)
	require.NoError(t, o.SmoothNodeSimplex(8))
	assert.Greater(t, minAR(t, o), before)

	tet := newOptimizer(t, meshtest.IsoTet(0, 1, false), nil)
	require.NoError(t, tet.SmoothNodeSimplex(3))
	assert.InDelta(t, 1, minAR(t, tet), 1e-2)
}
