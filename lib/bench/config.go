// Package bench drives synthetic acquire/release workloads against a
// resource pool so its adaptive scaling can be observed under a
// controlled load profile.
package bench

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/go-i2p/respool/lib/pool"
)

// Default configuration values
const (
	DefaultWorkers         = 8
	DefaultDuration        = 30 * time.Second
	DefaultHoldTime        = 10 * time.Millisecond
	DefaultSampleInterval  = time.Second
	DefaultInitialCapacity = 4
	DefaultScaleInterval   = 5 * time.Second
	DefaultMetricsListen   = "127.0.0.1:9190"
)

// Config holds all configuration for a bench run.
type Config struct {
	Load    LoadConfig    `toml:"load"`
	Pool    PoolConfig    `toml:"pool"`
	Metrics MetricsConfig `toml:"metrics"`
}

// LoadConfig describes the synthetic workload.
type LoadConfig struct {
	// Workers is the number of concurrent borrowers
	Workers int `toml:"workers"`
	// Duration is how long the run lasts
	Duration time.Duration `toml:"duration"`
	// Rate caps total acquires per second across all workers (0 = unpaced)
	Rate float64 `toml:"rate"`
	// HoldTime is how long each worker keeps a borrowed resource
	HoldTime time.Duration `toml:"hold_time"`
	// SampleInterval is how often pool statistics are sampled
	SampleInterval time.Duration `toml:"sample_interval"`
}

// PoolConfig mirrors the pool parameters in TOML form.
type PoolConfig struct {
	// InitialCapacity is the eager fill and the scale-in floor
	InitialCapacity int `toml:"initial_capacity"`
	// MaxCapacity is the growth ceiling (0 = 4x initial)
	MaxCapacity int `toml:"max_capacity"`
	// Step is the resources added or removed per scaling action
	Step int `toml:"step"`
	// ScaleInterval is how often the scaling policy runs
	ScaleInterval time.Duration `toml:"scale_interval"`
	// MinIdle is the idle floor that triggers scale-out
	MinIdle int `toml:"min_idle"`
	// PolicyWindow selects a multi-tick observation window when > 1
	PolicyWindow int `toml:"policy_window"`
	// TrackLoans enables loan bookkeeping
	TrackLoans bool `toml:"track_loans"`
}

// MetricsConfig contains the metrics endpoint settings.
type MetricsConfig struct {
	// Enabled controls whether the metrics HTTP endpoint is started
	Enabled bool `toml:"enabled"`
	// Listen is the address to bind the metrics server to
	Listen string `toml:"listen"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Load: LoadConfig{
			Workers:        DefaultWorkers,
			Duration:       DefaultDuration,
			HoldTime:       DefaultHoldTime,
			SampleInterval: DefaultSampleInterval,
		},
		Pool: PoolConfig{
			InitialCapacity: DefaultInitialCapacity,
			ScaleInterval:   DefaultScaleInterval,
			MinIdle:         1,
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Listen:  DefaultMetricsListen,
		},
	}
}

// LoadFile reads configuration from a TOML file.
// If the file doesn't exist, it returns the default configuration.
func LoadFile(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Load.Workers < 1 {
		return errors.New("load.workers must be at least 1")
	}
	if c.Load.Duration <= 0 {
		return errors.New("load.duration must be positive")
	}
	if c.Load.Rate < 0 {
		return errors.New("load.rate must not be negative")
	}
	if c.Load.HoldTime < 0 {
		return errors.New("load.hold_time must not be negative")
	}
	if c.Pool.InitialCapacity < 1 {
		return errors.New("pool.initial_capacity must be at least 1")
	}
	if c.Pool.MaxCapacity != 0 && c.Pool.MaxCapacity < c.Pool.InitialCapacity {
		return errors.New("pool.max_capacity must not be below pool.initial_capacity")
	}
	if c.Metrics.Enabled && c.Metrics.Listen == "" {
		return errors.New("metrics.listen is required when metrics.enabled")
	}
	return nil
}

// PoolSettings converts the TOML pool section to a pool.Config.
func (c *Config) PoolSettings() pool.Config {
	cfg := pool.Config{
		InitialCapacity: c.Pool.InitialCapacity,
		MaxCapacity:     c.Pool.MaxCapacity,
		Step:            c.Pool.Step,
		ScaleInterval:   c.Pool.ScaleInterval,
		MinIdle:         c.Pool.MinIdle,
		TrackLoans:      c.Pool.TrackLoans,
	}
	if c.Pool.PolicyWindow > 1 {
		cfg.Policy = &pool.WindowPolicy{Window: c.Pool.PolicyWindow}
	}
	return cfg
}
