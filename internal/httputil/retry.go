// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package httputil provides HTTP helpers shared across components: a bounded
// retry loop and the classification of transient failures.
package httputil

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net"
	"net/http"
	"time"
)

// DefaultRetryDelay is the fixed delay between attempts when a Policy does
// not set one. Tests override this to avoid real sleeps.
var DefaultRetryDelay = 10 * time.Second

const defaultMaxAttempts = 3

// Policy bounds a retry loop.
type Policy struct {
	// MaxAttempts is the total number of tries, including the first.
	// Zero means the default (3).
	MaxAttempts int

	// Delay is the wait before the second attempt. Zero means DefaultRetryDelay.
	Delay time.Duration

	// Multiplier scales the delay after each failed attempt. Values <= 1
	// keep the delay fixed.
	Multiplier float64

	// OnRetry, when set, is called before each wait with the attempt that
	// just failed (1-based) and its error.
	OnRetry func(attempt int, err error)
}

func (p Policy) attempts() int {
	if p.MaxAttempts <= 0 {
		return defaultMaxAttempts
	}
	return p.MaxAttempts
}

func (p Policy) delay(failed int) time.Duration {
	base := p.Delay
	if base <= 0 {
		base = DefaultRetryDelay
	}
	if p.Multiplier <= 1 {
		return base
	}
	return time.Duration(float64(base) * math.Pow(p.Multiplier, float64(failed-1)))
}

// TransientError marks a failure that is safe to retry.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string { return "transient: " + e.Err.Error() }

// Unwrap returns the wrapped cause.
func (e *TransientError) Unwrap() error { return e.Err }

// Transient wraps err so that IsTransient reports true for it.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &TransientError{Err: err}
}

// IsTransient reports whether err is worth retrying: anything wrapped with
// Transient, and network errors.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var te *TransientError
	if errors.As(err, &te) {
		return true
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var ne net.Error
	return errors.As(err, &ne)
}

// IsTransientStatus reports whether an HTTP status code signals a
// temporary condition (429 and 5xx).
func IsTransientStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= 500
}

// ExhaustedError is returned when every attempt failed with a transient error.
type ExhaustedError struct {
	Attempts int
	Err      error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("giving up after %d attempts: %v", e.Attempts, e.Err)
}

// Unwrap returns the last attempt's error.
func (e *ExhaustedError) Unwrap() error { return e.Err }

// Retry calls fn until it succeeds, returns a non-transient error, or the
// policy's attempts are used up. Between attempts it waits the policy delay
// (fixed unless Multiplier > 1). If the context is cancelled during a wait
// the function returns ctx.Err(). After exhausting attempts it returns an
// *ExhaustedError wrapping the last error.
func Retry(ctx context.Context, p Policy, fn func(ctx context.Context) error) error {
	limit := p.attempts()
	for attempt := 1; ; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if !IsTransient(err) {
			return err
		}
		if attempt >= limit {
			return &ExhaustedError{Attempts: attempt, Err: err}
		}

		if p.OnRetry != nil {
			p.OnRetry(attempt, err)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(p.delay(attempt)):
		}
	}
}
