// Package upsert makes the store match extracted candidates through a
// sequence of bounded, idempotent transactions.
package upsert

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"
	"go.uber.org/zap"

	"github.com/loyd0/LoydFam-sub000/internal/metrics"
	"github.com/loyd0/LoydFam-sub000/internal/ratelimit"
)

const (
	DefaultBatchSize = 100
	DefaultTxTimeout = 30 * time.Second
)

// ErrBatchFailed is matched by every *BatchError.
var ErrBatchFailed = errors.New("batch failed")

// BatchError reports the chunk whose transaction failed. Chunks before it
// stay committed.
type BatchError struct {
	Entity string
	Batch  int
	Offset int
	Size   int
	Err    error
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("%s batch %d (items %d-%d): %v", e.Entity, e.Batch, e.Offset, e.Offset+e.Size-1, e.Err)
}

func (e *BatchError) Unwrap() error { return e.Err }

func (e *BatchError) Is(target error) bool { return target == ErrBatchFailed }

// Options configures batching. BatchSize counts items per transaction; an
// item may write several statements (an event and its person link).
type Options struct {
	BatchSize int
	TxTimeout time.Duration
	// Limiter paces commits and retries failed chunks. Nil means unpaced
	// and no retries.
	Limiter ratelimit.Limiter
	Logger  *zap.Logger
}

func (o *Options) applyDefaults() {
	if o.BatchSize <= 0 {
		o.BatchSize = DefaultBatchSize
	}
	if o.TxTimeout <= 0 {
		o.TxTimeout = DefaultTxTimeout
	}
	if o.Limiter == nil {
		o.Limiter = ratelimit.NewLimiter(ratelimit.Config{})
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
}

// BatchFunc writes items [lo, hi) inside tx. The returned apply func, if
// any, runs only after the transaction commits.
type BatchFunc func(ctx context.Context, tx bun.Tx, lo, hi int) (apply func(), err error)

// Batcher runs chunked writes as a sequence of bounded transactions.
type Batcher struct {
	db      *bun.DB
	size    int
	timeout time.Duration
	limiter ratelimit.Limiter
	log     *zap.Logger
}

// NewBatcher creates a batcher over db.
func NewBatcher(db *bun.DB, opts Options) *Batcher {
	opts.applyDefaults()
	return &Batcher{
		db:      db,
		size:    opts.BatchSize,
		timeout: opts.TxTimeout,
		limiter: opts.Limiter,
		log:     opts.Logger,
	}
}

// Size returns the maximum number of items per transaction.
func (b *Batcher) Size() int { return b.size }

// Batches returns how many transactions n items need.
func (b *Batcher) Batches(n int) int {
	if n <= 0 {
		return 0
	}
	return (n + b.size - 1) / b.size
}

// Run executes fn once per chunk of n items and returns the number of
// committed transactions. It stops at the first failing chunk.
func (b *Batcher) Run(ctx context.Context, entity string, n int, fn BatchFunc) (int, error) {
	committed := 0
	for lo := 0; lo < n; lo += b.size {
		hi := lo + b.size
		if hi > n {
			hi = n
		}
		batch := committed + 1

		start := time.Now()
		apply, err := b.runWithRetry(ctx, entity, batch, lo, hi, fn)
		metrics.BatchDuration.WithLabelValues(entity).Observe(time.Since(start).Seconds())
		if err != nil {
			metrics.BatchesTotal.WithLabelValues(entity, "error").Inc()
			b.log.Error("batch failed",
				zap.String("entity", entity),
				zap.Int("batch", batch),
				zap.Int("offset", lo),
				zap.Int("size", hi-lo),
				zap.Error(err))
			return committed, &BatchError{Entity: entity, Batch: batch, Offset: lo, Size: hi - lo, Err: err}
		}
		if apply != nil {
			apply()
		}
		committed++
		metrics.BatchesTotal.WithLabelValues(entity, "committed").Inc()
		b.log.Debug("batch committed",
			zap.String("entity", entity),
			zap.Int("batch", batch),
			zap.Int("size", hi-lo),
			zap.Duration("duration", time.Since(start)))
	}
	return committed, nil
}

// runWithRetry paces the chunk through the limiter and retries a rolled-back
// transaction up to the limiter's retry budget. Context errors are final.
func (b *Batcher) runWithRetry(ctx context.Context, entity string, batch, lo, hi int, fn BatchFunc) (func(), error) {
	for attempt := 0; ; attempt++ {
		if err := b.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		apply, err := b.runOne(ctx, lo, hi, fn)
		if err == nil || ctx.Err() != nil || attempt >= b.limiter.MaxRetries() {
			return apply, err
		}

		wait := b.limiter.RetryAfter(attempt + 1)
		metrics.BatchesTotal.WithLabelValues(entity, "retried").Inc()
		b.log.Warn("batch rolled back, retrying",
			zap.String("entity", entity),
			zap.Int("batch", batch),
			zap.Int("attempt", attempt+1),
			zap.Duration("backoff", wait),
			zap.Error(err))
		if err := ratelimit.Sleep(ctx, wait); err != nil {
			return nil, err
		}
	}
}

func (b *Batcher) runOne(ctx context.Context, lo, hi int, fn BatchFunc) (func(), error) {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	var apply func()
	err := b.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var err error
		apply, err = fn(ctx, tx, lo, hi)
		return err
	})
	return apply, err
}

// isolate runs fn inside a savepoint so a failing item rolls back alone.
func isolate(ctx context.Context, tx bun.Tx, fn func(ctx context.Context, tx bun.Tx) error) error {
	return tx.RunInTx(ctx, nil, fn)
}
