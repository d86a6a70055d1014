// ABOUTME: Retry policy with exponential backoff and jitter for provider calls
// ABOUTME: Do runs an operation until it succeeds, fails permanently or exhausts the policy
package util

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"
)

// DefaultMaxDelay caps a single backoff wait
const DefaultMaxDelay = 30 * time.Second

// Policy describes how an operation is retried
type Policy struct {
	// MaxRetries is the number of attempts after the first one
	MaxRetries int
	// BaseDelay is doubled each attempt
	BaseDelay time.Duration
	// MaxDelay caps the backoff; zero means DefaultMaxDelay
	MaxDelay time.Duration
	// Retryable reports whether an error is worth another attempt; nil retries everything
	Retryable func(error) bool
}

// Backoff returns the wait before the given attempt: 2^attempt * BaseDelay,
// capped at MaxDelay, with jitter of up to 25% either way
func (p Policy) Backoff(attempt int) time.Duration {
	if attempt <= 0 || p.BaseDelay <= 0 {
		return 0
	}
	if attempt > 30 {
		attempt = 30
	}
	maxDelay := p.MaxDelay
	if maxDelay <= 0 {
		maxDelay = DefaultMaxDelay
	}

	backoff := p.BaseDelay * time.Duration(1<<uint(attempt))
	if backoff > maxDelay || backoff <= 0 {
		backoff = maxDelay
	}
	if half := int64(backoff) / 2; half > 0 {
		backoff += time.Duration(rand.Int64N(half)) - backoff/4
	}
	return backoff
}

// Do calls fn until it succeeds, returns a non-retryable error, or the policy
// runs out of attempts. Exhaustion wraps the last error with the attempt count.
func Do[T any](ctx context.Context, p Policy, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	var lastErr error

	for attempt := 0; attempt <= p.MaxRetries; attempt++ {
		if attempt > 0 {
			if err := SleepContext(ctx, p.Backoff(attempt)); err != nil {
				return zero, err
			}
		}

		out, err := fn(ctx)
		if err == nil {
			return out, nil
		}
		lastErr = err
		if ctx.Err() != nil || (p.Retryable != nil && !p.Retryable(err)) {
			return zero, err
		}
	}

	return zero, fmt.Errorf("after %d attempts: %w", p.MaxRetries+1, lastErr)
}

// SleepContext waits for d or until ctx is done, returning ctx.Err() in the latter case
func SleepContext(ctx context.Context, d time.Duration) error {
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
