// Package ratelimit paces batch commits against the store and spaces out
// retries of failed batches.
package ratelimit

import (
	"context"
	"time"
)

// Limiter gates each batch transaction.
type Limiter interface {
	// Wait blocks until the next commit may start or ctx is done.
	Wait(ctx context.Context) error
	// RetryAfter returns the pause before retry number attempt (1-based).
	RetryAfter(attempt int) time.Duration
	// MaxRetries is how many times a failed batch is retried.
	MaxRetries() int
}

// NewLimiter returns a token bucket when a commit rate is configured and an
// unpaced limiter otherwise. Retry settings apply to both.
func NewLimiter(cfg Config) Limiter {
	cfg = applyDefaults(cfg)
	if cfg.CommitsPerSec <= 0 {
		return Unlimited{cfg: cfg}
	}
	return NewTokenBucket(cfg)
}

// Unlimited never blocks.
type Unlimited struct {
	cfg Config
}

func (u Unlimited) Wait(ctx context.Context) error { return ctx.Err() }

func (u Unlimited) RetryAfter(attempt int) time.Duration { return CalculateBackoff(attempt, u.cfg) }

func (u Unlimited) MaxRetries() int { return u.cfg.MaxRetries }
