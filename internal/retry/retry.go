// Package retry runs an operation again with exponential backoff until it
// succeeds, fails permanently or runs out of attempts.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"
)

// Config configures Do.
type Config struct {
	// Attempts is the total number of tries, including the first.
	// Values below 1 mean a single try.
	Attempts int

	// Backoff is the wait before the second try.
	Backoff time.Duration

	// MaxBackoff caps the wait between tries. Zero means no cap.
	MaxBackoff time.Duration

	// Factor multiplies the wait after each failed try.
	Factor float64

	// Jitter randomizes each wait by up to this fraction (0.0-1.0).
	Jitter float64

	// Retryable reports whether err is worth another try. Nil retries
	// every error except context cancellation and Permanent errors.
	Retryable func(error) bool
}

// Default retries three times starting at 100ms.
var Default = Config{
	Attempts:   3,
	Backoff:    100 * time.Millisecond,
	MaxBackoff: 2 * time.Second,
	Factor:     2.0,
	Jitter:     0.1,
}

// Never makes Do a single call.
var Never = Config{Attempts: 1}

// permanentError marks an error that must not be retried.
type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent wraps err so Do returns it without retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err was wrapped with Permanent.
func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}

// ExhaustedError is returned when every attempt failed.
type ExhaustedError struct {
	Attempts int
	Err      error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("gave up after %d attempts: %v", e.Attempts, e.Err)
}

func (e *ExhaustedError) Unwrap() error { return e.Err }

func defaultRetryable(err error) bool {
	if IsPermanent(err) {
		return false
	}
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}

// Do calls fn until it returns nil. It returns the number of calls made and
// the last error. A non-retryable error is returned as is; running out of
// attempts returns an *ExhaustedError. Cancelling ctx stops the wait
// between tries.
func Do(ctx context.Context, cfg Config, fn func(context.Context) error) (int, error) {
	attempts := max(cfg.Attempts, 1)
	retryable := cfg.Retryable
	if retryable == nil {
		retryable = defaultRetryable
	}

	wait := cfg.Backoff
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return attempt - 1, err
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			return attempt, nil
		}
		if !retryable(lastErr) {
			return attempt, lastErr
		}
		if attempt == attempts {
			break
		}

		timer := time.NewTimer(jittered(wait, cfg.Jitter))
		select {
		case <-ctx.Done():
			timer.Stop()
			return attempt, ctx.Err()
		case <-timer.C:
		}

		if cfg.Factor > 0 {
			wait = time.Duration(float64(wait) * cfg.Factor)
		}
		if cfg.MaxBackoff > 0 && wait > cfg.MaxBackoff {
			wait = cfg.MaxBackoff
		}
	}
	if attempts == 1 {
		return 1, lastErr
	}
	return attempts, &ExhaustedError{Attempts: attempts, Err: lastErr}
}

func jittered(base time.Duration, jitter float64) time.Duration {
	if jitter <= 0 || base <= 0 {
		return base
	}
	// base +/- base*jitter
	delta := float64(base) * jitter * (rand.Float64()*2 - 1)
	return time.Duration(float64(base) + delta)
}
