// Package retry runs operations with bounded attempts and exponential backoff.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"
)

// Policy describes how many attempts an operation gets and how long to wait
// between them. Delays double from BaseDelay and are capped at MaxDelay when
// MaxDelay is positive, or at the largest Duration otherwise.
type Policy struct {
	Attempts  int
	BaseDelay time.Duration
	MaxDelay  time.Duration
	// Sleep overrides the wait between attempts (tests).
	Sleep func(ctx context.Context, d time.Duration) error
	// OnRetry observes each failed attempt that will be retried.
	OnRetry func(attempt int, delay time.Duration, err error)
	// Delay overrides the backoff for a specific error, e.g. a server-supplied
	// Retry-After. The returned delay is still capped at MaxDelay.
	Delay func(attempt int, err error) (time.Duration, bool)
}

type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying. Do returns the unwrapped error.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err was marked with Permanent.
func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}

// Do runs op until it succeeds, returns a permanent error, the context ends or
// the attempts are exhausted.
func Do(ctx context.Context, policy Policy, op func(ctx context.Context, attempt int) error) error {
	attempts := policy.Attempts
	if attempts <= 0 {
		attempts = 1
	}
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		err := op(ctx, attempt)
		if err == nil {
			return nil
		}
		var p *permanentError
		if errors.As(err, &p) {
			return p.err
		}
		lastErr = err
		if attempt == attempts {
			break
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		delay := policy.Backoff(attempt)
		if policy.Delay != nil {
			if d, ok := policy.Delay(attempt, err); ok {
				delay = policy.cap(d)
			}
		}
		if policy.OnRetry != nil {
			policy.OnRetry(attempt, delay, err)
		}
		if err := policy.sleep(ctx, delay); err != nil {
			return err
		}
	}
	if attempts == 1 {
		return lastErr
	}
	return fmt.Errorf("failed after %d attempts: %w", attempts, lastErr)
}

// Backoff returns the delay to wait after the given 1-based attempt.
func (p Policy) Backoff(attempt int) time.Duration {
	if p.BaseDelay <= 0 {
		return 0
	}
	if attempt <= 0 {
		attempt = 1
	}
	delay := p.BaseDelay
	for i := 1; i < attempt; i++ {
		if p.MaxDelay > 0 && delay > p.MaxDelay/2 {
			return p.MaxDelay
		}
		if delay > math.MaxInt64/2 {
			return math.MaxInt64
		}
		delay *= 2
	}
	if p.MaxDelay > 0 && delay > p.MaxDelay {
		return p.MaxDelay
	}
	return delay
}

func (p Policy) cap(d time.Duration) time.Duration {
	if d < 0 {
		return 0
	}
	if p.MaxDelay > 0 && d > p.MaxDelay {
		return p.MaxDelay
	}
	return d
}

func (p Policy) sleep(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	if p.Sleep != nil {
		return p.Sleep(ctx, delay)
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// NoSleep is a Sleep implementation that returns immediately.
func NoSleep(ctx context.Context, _ time.Duration) error {
	return ctx.Err()
}

// Seconds converts fractional seconds from configuration into a duration.
func Seconds(value float64) time.Duration {
	if value <= 0 {
		return 0
	}
	return time.Duration(value * float64(time.Second))
}
