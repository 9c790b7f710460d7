package ratelimit

import (
	"context"
	"sync"
	"time"
)

// TokenBucket paces commits to CommitsPerSec with bursts of up to Burst.
type TokenBucket struct {
	rate       float64
	burst      int
	tokens     float64
	lastUpdate time.Time
	mu         sync.Mutex
	config     Config
}

// NewTokenBucket creates a full bucket.
func NewTokenBucket(cfg Config) *TokenBucket {
	cfg = applyDefaults(cfg)

	return &TokenBucket{
		rate:       cfg.CommitsPerSec,
		burst:      cfg.Burst,
		tokens:     float64(cfg.Burst),
		lastUpdate: time.Now(),
		config:     cfg,
	}
}

// Wait blocks until a token is available or ctx is canceled.
func (tb *TokenBucket) Wait(ctx context.Context) error {
	for {
		wait := tb.take()
		if wait == 0 {
			return nil
		}
		if err := Sleep(ctx, wait); err != nil {
			return err
		}
	}
}

// Allow takes a token if one is available immediately.
func (tb *TokenBucket) Allow() bool {
	return tb.take() == 0
}

// RetryAfter returns the exponential backoff for attempt.
func (tb *TokenBucket) RetryAfter(attempt int) time.Duration {
	return CalculateBackoff(attempt, tb.config)
}

// MaxRetries returns the configured retry count.
func (tb *TokenBucket) MaxRetries() int {
	return tb.config.MaxRetries
}

// take consumes a token and returns 0, or returns how long until one is due.
func (tb *TokenBucket) take() time.Duration {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.refill()
	if tb.tokens >= 1.0 {
		tb.tokens--
		return 0
	}
	deficit := 1.0 - tb.tokens
	return time.Duration(deficit/tb.rate*float64(time.Second)) + time.Nanosecond
}

// refill adds tokens based on elapsed time (call with lock held).
func (tb *TokenBucket) refill() {
	now := time.Now()
	elapsed := now.Sub(tb.lastUpdate)
	if elapsed <= 0 {
		return
	}

	tb.tokens += elapsed.Seconds() * tb.rate
	if tb.tokens > float64(tb.burst) {
		tb.tokens = float64(tb.burst)
	}
	tb.lastUpdate = now
}
