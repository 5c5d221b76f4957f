package smooth

import (
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"strings"
	"testing"
)

func TestLoadConfig(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())

	cfg, err := LoadConfig(strings.NewReader(`
strategy = "volume"
workers = 2
partition_strategy = "morton"
initial_step = 0.05
`))
	require.NoError(t, err)
	assert.Equal(t, StrategyVolume, cfg.Strategy)
	assert.Equal(t, 2, cfg.Workers)
	assert.Equal(t, PartitionMorton, cfg.PartitionStrategy)
	assert.Equal(t, 0.05, cfg.InitialStep)
	assert.Equal(t, DefaultConfig().MaxIterations, cfg.MaxIterations, "unset keys keep defaults")

	cfg, err = LoadConfig(strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)

	tests := []struct {
		name string
		toml string
	}{
		{"Syntax", `strategy = `},
		{"Strategy", `strategy = "magic"`},
		{"Partition", `partition_strategy = "metis"`},
		{"Iterations", `max_iterations = 0`},
		{"Tolerance", `tolerance = -1.0`},
		{"Step", `initial_step = 0.0`},
		{"Workers", `workers = 0`},
		{"MinQuality", `min_quality = 0.0`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(strings.NewReader(tt.toml))
			assert.Error(t, err)
		})
	}
}

func TestLineSearch(t *testing.T) {
	o := &Optimizer{Config: DefaultConfig()}
	peak := func(x float64) float64 { return -(x - 3) * (x - 3) }

	alpha, f := o.lineSearch(peak, peak(0), 0.1)
	assert.InDelta(t, 3, alpha, 1e-6)
	assert.InDelta(t, 0, f, 1e-10)

	alpha, _ = o.lineSearch(peak, peak(0), 100)
	assert.InDelta(t, 3, alpha, 1e-6, "overshooting steps are halved")

	alpha, f = o.lineSearch(func(x float64) float64 { return -x }, 0, 1)
	assert.Equal(t, 0.0, alpha)
	assert.Equal(t, 0.0, f)
}

func TestEqualizingStep(t *testing.T) {
	// two rows of x+y and x-y, both to reach 1
	step, err := equalizingStep([]float64{0, 0}, [][]float64{{1, 1}, {1, -1}}, 1)
	require.NoError(t, err)
	assert.InDelta(t, 1, step[0], 1e-12)
	assert.InDelta(t, 0, step[1], 1e-12)

	// overdetermined and inconsistent: least squares
	step, err = equalizingStep([]float64{0, 2}, [][]float64{{1}, {1}}, 2)
	require.NoError(t, err)
	assert.InDelta(t, 1, step[0], 1e-12)
}
