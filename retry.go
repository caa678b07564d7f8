package querysync

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"
)

// RetryConfig holds the configuration for fetch retries.
type RetryConfig struct {
	// MaxAttempts is the maximum number of attempts, including the first.
	MaxAttempts int

	InitialBackoff    time.Duration
	MaxBackoff        time.Duration
	BackoffMultiplier float64

	// Retryable decides whether err is worth another attempt. nil retries
	// everything except cancellation.
	Retryable func(err error) bool
}

// DefaultRetryConfig returns the default retry configuration.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:       3,
		InitialBackoff:    200 * time.Millisecond,
		MaxBackoff:        5 * time.Second,
		BackoffMultiplier: 2.0,
	}
}

// WithRetry wraps fetcher with exponential backoff and ±20% jitter.
// Cancellation is never retried. When attempts run out the error is a
// *FetchError wrapping ErrRetryExhausted and the last cause.
func WithRetry(fetcher Fetcher, cfg RetryConfig) Fetcher {
	def := DefaultRetryConfig()
	cfg.MaxAttempts = coalesce[int](cfg.MaxAttempts, def.MaxAttempts)
	cfg.InitialBackoff = coalesce[time.Duration](cfg.InitialBackoff, def.InitialBackoff)
	cfg.MaxBackoff = coalesce[time.Duration](cfg.MaxBackoff, def.MaxBackoff)
	cfg.BackoffMultiplier = coalesce[float64](cfg.BackoffMultiplier, def.BackoffMultiplier)

	return func(ctx context.Context, qc QueryContext) (any, error) {
		var lastErr error
		backoff := cfg.InitialBackoff

		for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
			v, err := fetcher(ctx, qc)
			if err == nil {
				return v, nil
			}
			lastErr = err

			if IsCanceled(err) || (cfg.Retryable != nil && !cfg.Retryable(err)) {
				return nil, err
			}
			if attempt >= cfg.MaxAttempts {
				break
			}

			jitter := time.Duration(float64(backoff) * (0.8 + rand.Float64()*0.4))
			t := time.NewTimer(jitter)
			select {
			case <-ctx.Done():
				t.Stop()
				return nil, fmt.Errorf("%w: %w", ErrCanceled, ctx.Err())
			case <-t.C:
			}

			backoff = time.Duration(float64(backoff) * cfg.BackoffMultiplier)
			if backoff > cfg.MaxBackoff {
				backoff = cfg.MaxBackoff
			}
		}

		return nil, &FetchError{
			Key:      qc.Key.String(),
			Attempts: cfg.MaxAttempts,
			Cause:    errors.Join(ErrRetryExhausted, lastErr),
		}
	}
}
