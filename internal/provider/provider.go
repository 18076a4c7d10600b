package provider

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"
)

// Error is a failure returned by an external provider (embedding, rerank,
// or LLM completion). Retryable marks transient classes: timeouts,
// rate limits, and provider-side 5xx. Auth failures and exhausted quotas
// are never retryable.
type Error struct {
	Provider   string
	StatusCode int
	Retryable  bool
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s provider: status %d: %v", e.Provider, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s provider: %v", e.Provider, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Classify wraps err as a provider Error, deciding retryability from the
// HTTP status code (0 when unknown) and the error text.
func Classify(name string, statusCode int, err error) *Error {
	return &Error{
		Provider:   name,
		StatusCode: statusCode,
		Retryable:  isTransient(statusCode, err),
		Err:        err,
	}
}

func isTransient(statusCode int, err error) bool {
	switch statusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return false
	case http.StatusTooManyRequests:
		// A rate limit is worth retrying unless the quota itself is spent.
		return !isQuotaExhausted(err)
	}
	if statusCode >= 500 {
		return true
	}
	if statusCode >= 400 {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "timeout") || strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "connection refused") || strings.Contains(msg, "eof")
}

func isQuotaExhausted(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "quota") || strings.Contains(msg, "insufficient") ||
		strings.Contains(msg, "resource_exhausted")
}

// DefaultMaxAttempts bounds retries for transient provider failures.
const DefaultMaxAttempts = 3

// Retry runs fn up to maxAttempts times, backing off exponentially from
// baseDelay between attempts. Only errors marked Retryable are retried;
// everything else, including context cancellation, returns immediately.
func Retry(ctx context.Context, maxAttempts int, baseDelay time.Duration, fn func() error) error {
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var err error
	delay := baseDelay
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err = fn()
		if err == nil {
			return nil
		}

		var provErr *Error
		if !errors.As(err, &provErr) || !provErr.Retryable || attempt == maxAttempts {
			return err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
	return err
}
