// Package retry runs an operation under a bounded attempt budget with a backoff between attempts.
package retry

import (
	"context"
	"errors"
	"time"
)

type Policy struct {
	MaxAttempts int
	// Backoff returns the delay after the given failed attempt, counting from 1.
	Backoff func(attempt int) time.Duration
	// OnRetry, if set, observes every failed attempt that will be retried.
	OnRetry func(attempt int, err error)
}

// Default is three attempts with delays of 2s and 4s.
func Default() Policy {
	return Policy{MaxAttempts: 3, Backoff: Exponential(2 * time.Second)}
}

// Exponential doubles base on every attempt: base, 2*base, 4*base...
func Exponential(base time.Duration) func(int) time.Duration {
	return func(attempt int) time.Duration {
		if attempt < 1 {
			attempt = 1
		}
		return base << (attempt - 1)
	}
}

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying. Do returns the wrapped error unchanged.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// Do calls op until it succeeds, returns a permanent error, the attempts run out or ctx is done.
// The error of the last attempt is returned.
func Do[T any](ctx context.Context, p Policy, op func(ctx context.Context) (T, error)) (T, error) {
	var zero T

	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr != nil {
				return zero, lastErr
			}
			return zero, err
		}

		res, err := op(ctx)
		if err == nil {
			return res, nil
		}

		var perm *permanentError
		if errors.As(err, &perm) {
			return zero, perm.err
		}
		lastErr = err

		if attempt == attempts {
			break
		}
		if p.OnRetry != nil {
			p.OnRetry(attempt, err)
		}

		var delay time.Duration
		if p.Backoff != nil {
			delay = p.Backoff(attempt)
		}
		if delay <= 0 {
			continue
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, lastErr
		case <-timer.C:
		}
	}

	return zero, lastErr
}
