package retry

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Unbounded is the MaxRetries value for policies that never give up.
const Unbounded = -1

// Backoff returns the delay to wait before the given attempt.
// Attempts are zero-based: attempt 0 is the first call.
type Backoff func(attempt int) time.Duration

// Policy describes how often and how patiently an operation is retried.
type Policy struct {
	// MaxRetries is the number of additional attempts after the first one.
	// Unbounded (any negative value) retries until the context is cancelled.
	MaxRetries int

	// Backoff computes the delay before each attempt. A nil Backoff means no delay.
	Backoff Backoff
}

// Delay returns the delay before the given attempt.
func (p Policy) Delay(attempt int) time.Duration {
	if p.Backoff == nil || attempt <= 0 {
		return 0
	}
	return p.Backoff(attempt)
}

// Exhausted reports whether no attempt remains after the given one.
func (p Policy) Exhausted(attempt int) bool {
	return p.MaxRetries >= 0 && attempt >= p.MaxRetries
}

// Fixed waits the same delay before every retry.
func Fixed(d time.Duration) Backoff {
	return func(int) time.Duration {
		return d
	}
}

// Linear waits step × attempt, so the first call runs immediately and
// each subsequent round waits a little longer.
func Linear(step time.Duration) Backoff {
	return func(attempt int) time.Duration {
		return time.Duration(attempt) * step
	}
}

// Immediate retries up to maxRetries times without waiting.
func Immediate(maxRetries int) Policy {
	return Policy{MaxRetries: maxRetries}
}

// Do executes operation under the policy until it succeeds, returns a
// Fatal error, exhausts the policy, or the context is cancelled.
//
// On exhaustion the last error is returned unchanged so callers can
// classify it. Fatal errors are unwrapped before being returned.
func Do(ctx context.Context, p Policy, operation func(attempt int) error) error {
	var lastErr error
	for attempt := 0; ; attempt++ {
		if err := Sleep(ctx, p.Delay(attempt)); err != nil {
			if lastErr != nil {
				return fmt.Errorf("context cancelled after %d attempts: %w", attempt, errors.Join(err, lastErr))
			}
			return err
		}

		err := operation(attempt)
		if err == nil {
			return nil
		}
		lastErr = err

		var fatalErr *FatalError
		if errors.As(err, &fatalErr) {
			return fatalErr.Err
		}

		if p.Exhausted(attempt) {
			return lastErr
		}
	}
}

// Sleep waits for d or until the context is cancelled.
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

// FatalError wraps an error to mark it as fatal (non-retryable).
type FatalError struct {
	Err error
}

func (e *FatalError) Error() string {
	return e.Err.Error()
}

func (e *FatalError) Unwrap() error {
	return e.Err
}

// Fatal marks an error as fatal (non-retryable).
// Operations that encounter fatal errors will not be retried.
func Fatal(err error) error {
	if err == nil {
		return nil
	}
	return &FatalError{Err: err}
}

// IsFatal checks if an error is fatal (non-retryable).
func IsFatal(err error) bool {
	var fatalErr *FatalError
	return errors.As(err, &fatalErr)
}
