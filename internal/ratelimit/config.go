package ratelimit

import "time"

// Config holds commit pacing and retry configuration. A zero CommitsPerSec
// disables pacing and a zero MaxRetries disables retries.
type Config struct {
	CommitsPerSec     float64       `mapstructure:"commits_per_second"`
	Burst             int           `mapstructure:"burst"`
	MaxRetries        int           `mapstructure:"max_retries"`
	InitialBackoff    time.Duration `mapstructure:"initial_backoff"`
	MaxBackoff        time.Duration `mapstructure:"max_backoff"`
	BackoffMultiplier float64       `mapstructure:"backoff_multiplier"`
}

// DefaultConfig returns the retry defaults; pacing stays off.
func DefaultConfig() Config {
	return Config{
		Burst:             5,
		InitialBackoff:    200 * time.Millisecond,
		MaxBackoff:        5 * time.Second,
		BackoffMultiplier: 2.0,
	}
}

func applyDefaults(cfg Config) Config {
	def := DefaultConfig()
	if cfg.Burst <= 0 {
		cfg.Burst = def.Burst
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = def.InitialBackoff
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = def.MaxBackoff
	}
	if cfg.BackoffMultiplier <= 0 {
		cfg.BackoffMultiplier = def.BackoffMultiplier
	}
	return cfg
}
