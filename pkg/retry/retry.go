// Package retry provides bounded retry loops with fixed or exponential backoff.
package retry

import (
	"context"
	"log/slog"
	"math"
	"math/rand"
	"time"

	"github.com/mohamedlandolsi/greenhouse-management-system/pkg/apperrors"
)

// Config defines retry behavior.
type Config struct {
	MaxRetries     int           // Maximum number of retry attempts (0 = no retries)
	InitialBackoff time.Duration // Initial backoff duration
	MaxBackoff     time.Duration // Maximum backoff duration
	BackoffFactor  float64       // Multiplier for exponential backoff (1.0 = fixed delay)
	Jitter         bool          // Add ±25% jitter to each delay

	// Retryable classifies errors. Defaults to apperrors.IsRetryable.
	Retryable func(error) bool
}

// DefaultConfig returns an exponential policy for short-lived infrastructure calls.
func DefaultConfig() Config {
	return Config{
		MaxRetries:     3,
		InitialBackoff: 100 * time.Millisecond,
		MaxBackoff:     5 * time.Second,
		BackoffFactor:  2.0,
		Jitter:         true,
	}
}

// Fixed returns a fixed-delay policy: maxRetries further attempts, each after delay.
func Fixed(maxRetries int, delay time.Duration) Config {
	return Config{
		MaxRetries:     maxRetries,
		InitialBackoff: delay,
		MaxBackoff:     delay,
		BackoffFactor:  1.0,
	}
}

// Outcome describes how a retry loop ended.
type Outcome struct {
	Attempts  int
	Exhausted bool // every allowed attempt failed with a retryable error
	Err       error
}

func (c Config) isRetryable(err error) bool {
	if c.Retryable != nil {
		return c.Retryable(err)
	}
	return apperrors.IsRetryable(err)
}

// Do executes fn until it succeeds, fails with a non-retryable error,
// runs out of attempts, or ctx is cancelled.
func Do(ctx context.Context, cfg Config, operation string, fn func(ctx context.Context) error) Outcome {
	var lastErr error

	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		err := fn(ctx)
		if err == nil {
			if attempt > 0 {
				slog.Info("Operation succeeded after retry",
					"operation", operation,
					"attempt", attempt+1,
				)
			}
			return Outcome{Attempts: attempt + 1}
		}

		lastErr = err

		if !cfg.isRetryable(err) {
			slog.Debug("Error is not retryable, failing immediately",
				"operation", operation,
				"error", err,
			)
			return Outcome{Attempts: attempt + 1, Err: err}
		}

		if attempt >= cfg.MaxRetries {
			slog.Warn("Max retries exceeded",
				"operation", operation,
				"attempts", attempt+1,
				"error", err,
			)
			return Outcome{Attempts: attempt + 1, Exhausted: true, Err: err}
		}

		backoff := calculateBackoff(cfg, attempt)

		slog.Warn("Operation failed, retrying",
			"operation", operation,
			"attempt", attempt+1,
			"max_attempts", cfg.MaxRetries+1,
			"backoff", backoff,
			"error", err,
		)

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return Outcome{Attempts: attempt + 1, Err: ctx.Err()}
		case <-timer.C:
		}
	}

	return Outcome{Attempts: cfg.MaxRetries + 1, Exhausted: true, Err: lastErr}
}

// WithRetry is Do for callers that only need the final error.
func WithRetry(ctx context.Context, cfg Config, operation string, fn func() error) error {
	return Do(ctx, cfg, operation, func(context.Context) error { return fn() }).Err
}

func calculateBackoff(cfg Config, attempt int) time.Duration {
	factor := cfg.BackoffFactor
	if factor <= 0 {
		factor = 1.0
	}
	backoff := float64(cfg.InitialBackoff) * math.Pow(factor, float64(attempt))

	if cfg.MaxBackoff > 0 && backoff > float64(cfg.MaxBackoff) {
		backoff = float64(cfg.MaxBackoff)
	}

	if cfg.Jitter {
		backoff += backoff * 0.25 * (rand.Float64()*2 - 1)
	}

	return time.Duration(backoff)
}
