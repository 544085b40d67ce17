// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package httputil provides the HTTP plumbing shared by download strategies:
// a FetchContext carrying client settings, a retry helper and file streaming.
package httputil

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// RetryBaseDelay is the first backoff interval of DefaultPolicy. Tests
// override this to avoid real sleeps.
var RetryBaseDelay = 2 * time.Second

const defaultMaxAttempts = 3

// Policy bounds a retry loop.
type Policy struct {
	// MaxAttempts is the total number of tries, including the first (default 3).
	MaxAttempts int

	// BaseDelay is the first backoff interval; each further wait doubles it.
	BaseDelay time.Duration

	// MaxDelay caps a single wait (default 30 * BaseDelay).
	MaxDelay time.Duration

	// Retryable decides whether an error is worth another try
	// (default IsTransient).
	Retryable func(error) bool
}

// DefaultPolicy returns three attempts starting at RetryBaseDelay.
func DefaultPolicy() Policy {
	return Policy{MaxAttempts: defaultMaxAttempts, BaseDelay: RetryBaseDelay}
}

func (p Policy) withDefaults() Policy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = defaultMaxAttempts
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = RetryBaseDelay
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = 30 * p.BaseDelay
	}
	if p.Retryable == nil {
		p.Retryable = IsTransient
	}
	return p
}

// Retry calls fn until it succeeds, returns a non-retryable error, the
// attempts are exhausted or ctx is done. It returns the number of calls
// made and the last error.
func Retry(ctx context.Context, p Policy, fn func(context.Context) error) (int, error) {
	p = p.withDefaults()

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = p.BaseDelay
	eb.MaxInterval = p.MaxDelay
	eb.Multiplier = 2
	eb.RandomizationFactor = 0.2
	eb.MaxElapsedTime = 0

	b := backoff.WithContext(backoff.WithMaxRetries(eb, uint64(p.MaxAttempts-1)), ctx)

	tries := 0
	var last error
	err := backoff.Retry(func() error {
		tries++
		last = fn(ctx)
		if last == nil {
			return nil
		}
		if !p.Retryable(last) {
			return backoff.Permanent(last)
		}
		return last
	}, b)
	if err != nil && last != nil && !errors.Is(err, last) {
		// Context ended during a wait; keep the cause visible.
		return tries, fmt.Errorf("%w (last error: %v)", err, last)
	}
	return tries, err
}

// StatusError is a non-2xx HTTP response.
type StatusError struct {
	Code int
	URL  string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d from %s", e.Code, e.URL)
}

// Transient reports whether the status is worth retrying.
func (e *StatusError) Transient() bool {
	return e.Code == http.StatusTooManyRequests || e.Code >= 500
}

// IsTransient reports whether err is a temporary network condition:
// timeouts, connection failures, truncated bodies, 5xx and 429 responses.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Transient()
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.EPIPE) {
		return true
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return true
	}
	var de *net.DNSError
	if errors.As(err, &de) {
		return de.IsTemporary || de.IsTimeout
	}
	var oe *net.OpError
	return errors.As(err, &oe)
}
