package retry

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// FinalError wraps the last error after all retry attempts are exhausted.
type FinalError struct {
	Op       string
	Attempts int
	Err      error
}

func (e *FinalError) Error() string {
	return fmt.Sprintf("%s failed after %d attempts: %v", e.Op, e.Attempts, e.Err)
}

func (e *FinalError) Unwrap() error { return e.Err }

// Retrier executes fallible operations with exponential backoff:
// BaseDelay, then 2*BaseDelay, doubling between attempts.
type Retrier struct {
	MaxAttempts int
	BaseDelay   time.Duration

	logger *zap.Logger
	sleep  func(ctx context.Context, d time.Duration) error
}

// Option configures a Retrier.
type Option func(*Retrier)

// WithSleep replaces the backoff wait. Tests use it to observe delays
// without sleeping.
func WithSleep(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(r *Retrier) { r.sleep = fn }
}

// New returns a Retrier with the given attempt limit and base delay.
func New(maxAttempts int, baseDelay time.Duration, logger *zap.Logger, opts ...Option) *Retrier {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Retrier{
		MaxAttempts: maxAttempts,
		BaseDelay:   baseDelay,
		logger:      logger,
		sleep:       sleepContext,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Do runs op until it succeeds or MaxAttempts consecutive failures
// occur, waiting BaseDelay * 2^(attempt-1) between attempts. The last
// error is surfaced as a *FinalError. A canceled context aborts the
// backoff wait.
func (r *Retrier) Do(ctx context.Context, op string, fn func() error) error {
	var lastErr error
	for attempt := 1; attempt <= r.MaxAttempts; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if attempt == r.MaxAttempts {
			break
		}
		delay := r.BaseDelay << (attempt - 1)
		r.logger.Warn("Operation failed, retrying",
			zap.String("op", op),
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
			zap.Error(lastErr),
		)
		if err := r.sleep(ctx, delay); err != nil {
			return &FinalError{Op: op, Attempts: attempt, Err: err}
		}
	}
	return &FinalError{Op: op, Attempts: r.MaxAttempts, Err: lastErr}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
