package ratelimit

import (
	"context"
	"math"
	"math/rand"
	"time"
)

// CalculateBackoff computes exponential backoff with +/-25% jitter, capped
// at MaxBackoff.
func CalculateBackoff(attempt int, cfg Config) time.Duration {
	if attempt <= 0 {
		return 0
	}

	base := float64(cfg.InitialBackoff) * math.Pow(cfg.BackoffMultiplier, float64(attempt-1))
	if base > float64(cfg.MaxBackoff) {
		base = float64(cfg.MaxBackoff)
	}

	jitter := base * 0.25 * (2*rand.Float64() - 1)
	backoff := base + jitter

	if backoff < 0 {
		backoff = 0
	}
	if backoff > float64(cfg.MaxBackoff) {
		backoff = float64(cfg.MaxBackoff)
	}

	return time.Duration(backoff)
}

// Sleep pauses for d unless ctx ends first.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
