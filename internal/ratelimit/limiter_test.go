package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenBucketAllowAndRefill(t *testing.T) {
	tb := NewTokenBucket(Config{CommitsPerSec: 5, Burst: 5})

	for i := 0; i < 5; i++ {
		require.True(t, tb.Allow(), "token %d", i)
	}
	assert.False(t, tb.Allow(), "bucket should be empty after the burst")

	time.Sleep(250 * time.Millisecond)
	assert.True(t, tb.Allow(), "a token should refill")
}

func TestTokenBucketWaitRespectsContext(t *testing.T) {
	tb := NewTokenBucket(Config{CommitsPerSec: 1, Burst: 1})
	require.True(t, tb.Allow())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	assert.ErrorIs(t, tb.Wait(ctx), context.DeadlineExceeded)
}

func TestNewLimiterWithoutRateIsUnpaced(t *testing.T) {
	l := NewLimiter(Config{MaxRetries: 2})
	require.IsType(t, Unlimited{}, l)
	assert.Equal(t, 2, l.MaxRetries())

	for i := 0; i < 100; i++ {
		require.NoError(t, l.Wait(context.Background()))
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, l.Wait(ctx), context.Canceled)
}

func TestNewLimiterWithRate(t *testing.T) {
	l := NewLimiter(Config{CommitsPerSec: 10})
	tb, ok := l.(*TokenBucket)
	require.True(t, ok)
	assert.Equal(t, DefaultConfig().Burst, tb.burst)
	assert.Zero(t, l.MaxRetries())
}

func TestCalculateBackoffBounds(t *testing.T) {
	cfg := Config{InitialBackoff: time.Second, MaxBackoff: 10 * time.Second, BackoffMultiplier: 2, MaxRetries: 5}

	assert.Zero(t, CalculateBackoff(0, cfg))
	for attempt := 1; attempt <= 5; attempt++ {
		d := CalculateBackoff(attempt, cfg)
		assert.Positive(t, d)
		assert.LessOrEqual(t, d, cfg.MaxBackoff)
	}
	capped := CalculateBackoff(20, cfg)
	assert.LessOrEqual(t, capped, cfg.MaxBackoff)
	assert.GreaterOrEqual(t, capped, cfg.MaxBackoff*3/4)
}

func TestSleepHonoursCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	assert.ErrorIs(t, Sleep(ctx, time.Minute), context.Canceled)
	assert.Less(t, time.Since(start), time.Second)
	assert.NoError(t, Sleep(context.Background(), 0))
}
