package smooth

import (
	"fmt"
	"github.com/BurntSushi/toml"
	"io"
)

// Strategy names accepted by Config.Strategy.
const (
	StrategyGradient       = "gradient"
	StrategyLaplacian      = "laplacian"
	StrategySmartLaplacian = "smart-laplacian"
	StrategyVolume         = "volume"
	StrategyIdeal          = "ideal"
	StrategySimplex        = "simplex"
)

// Partition strategies accepted by Config.PartitionStrategy.
const (
	PartitionBlock      = "block"
	PartitionRoundRobin = "round-robin"
	PartitionMorton     = "morton"
)

// Config controls the optimizer. Zero values are not meaningful; start from
// DefaultConfig.
type Config struct {
	// Strategy is the per-node operation applied by Smooth.
	Strategy string `toml:"strategy"`

	// MaxIterations bounds gradient steps per node in SmoothNode.
	MaxIterations int `toml:"max_iterations"`
	// Tolerance is the smallest quality gain worth another gradient step.
	Tolerance float64 `toml:"tolerance"`
	// BackoffRetries bounds halving and ratio back-off loops.
	BackoffRetries int `toml:"backoff_retries"`
	// InitialStep is the first line search step as a fraction of the
	// node's average edge length.
	InitialStep float64 `toml:"initial_step"`
	// LineSearchIterations is the number of golden-section reductions.
	LineSearchIterations int `toml:"line_search_iterations"`
	// ExpandLimit bounds step doubling while bracketing.
	ExpandLimit int `toml:"expand_limit"`
	// MinQuality floors cell quality when weighting ideal locations.
	MinQuality float64 `toml:"min_quality"`
	// SimplexEvaluations bounds objective evaluations in SmoothNodeSimplex.
	SimplexEvaluations int `toml:"simplex_evaluations"`

	// Workers limits concurrently smoothed partitions.
	Workers int `toml:"workers"`
	// PartitionSize is the target number of cells per partition.
	PartitionSize     int    `toml:"partition_size"`
	PartitionStrategy string `toml:"partition_strategy"`
}

// DefaultConfig returns the settings used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		Strategy:             StrategyGradient,
		MaxIterations:        20,
		Tolerance:            1e-10,
		BackoffRetries:       8,
		InitialStep:          0.1,
		LineSearchIterations: 40,
		ExpandLimit:          20,
		MinQuality:           1e-3,
		SimplexEvaluations:   400,
		Workers:              4,
		PartitionSize:        256,
		PartitionStrategy:    PartitionBlock,
	}
}

// LoadConfig decodes TOML from r over DefaultConfig and validates it.
func LoadConfig(r io.Reader) (Config, error) {
	cfg := DefaultConfig()
	if _, err := toml.NewDecoder(r).Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks ranges and names.
func (c Config) Validate() error {
	switch c.Strategy {
	case StrategyGradient, StrategyLaplacian, StrategySmartLaplacian,
		StrategyVolume, StrategyIdeal, StrategySimplex:
	default:
		return fmt.Errorf("unknown strategy %q", c.Strategy)
	}
	switch c.PartitionStrategy {
	case PartitionBlock, PartitionRoundRobin, PartitionMorton:
	default:
		return fmt.Errorf("unknown partition strategy %q", c.PartitionStrategy)
	}
	if c.MaxIterations < 1 {
		return fmt.Errorf("max_iterations must be positive, got %d", c.MaxIterations)
	}
	if c.Tolerance < 0 {
		return fmt.Errorf("tolerance must be non-negative, got %g", c.Tolerance)
	}
	if c.BackoffRetries < 1 {
		return fmt.Errorf("backoff_retries must be positive, got %d", c.BackoffRetries)
	}
	if c.InitialStep <= 0 {
		return fmt.Errorf("initial_step must be positive, got %g", c.InitialStep)
	}
	if c.LineSearchIterations < 1 || c.ExpandLimit < 1 {
		return fmt.Errorf("line search limits must be positive, got %d and %d",
			c.LineSearchIterations, c.ExpandLimit)
	}
	if c.MinQuality <= 0 {
		return fmt.Errorf("min_quality must be positive, got %g", c.MinQuality)
	}
	if c.SimplexEvaluations < 1 {
		return fmt.Errorf("simplex_evaluations must be positive, got %d", c.SimplexEvaluations)
	}
	if c.Workers < 1 || c.PartitionSize < 1 {
		return fmt.Errorf("workers and partition_size must be positive, got %d and %d",
			c.Workers, c.PartitionSize)
	}
	return nil
}
