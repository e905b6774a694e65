// Package retry runs operations against flaky remote services.
package retry

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// ErrExhausted is returned once every attempt has failed transiently.
var ErrExhausted = errors.New("retries exhausted")

// Policy defaults.
const (
	DefaultAttempts     = 6
	DefaultInitialDelay = 1 * time.Second
	DefaultMaxDelay     = 60 * time.Second
	backoffFactor       = 2.0
)

// Policy bounds how transient failures are retried.
type Policy struct {
	Attempts     int           // Total calls, including the first
	InitialDelay time.Duration // Wait before the second call
	MaxDelay     time.Duration // Ceiling for any single wait
}

// Default returns six attempts starting at one second, doubling, without jitter.
func Default() Policy {
	return Policy{
		Attempts:     DefaultAttempts,
		InitialDelay: DefaultInitialDelay,
		MaxDelay:     DefaultMaxDelay,
	}
}

// BackOff returns the wait schedule for the policy.
func (p Policy) BackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.InitialDelay
	if b.InitialInterval <= 0 {
		b.InitialInterval = DefaultInitialDelay
	}
	b.RandomizationFactor = 0
	b.Multiplier = backoffFactor
	b.MaxInterval = p.MaxDelay
	if b.MaxInterval < b.InitialInterval {
		b.MaxInterval = b.InitialInterval
	}
	return b
}

// Do runs op under the policy. Errors the classifier rejects are returned
// immediately; transient exhaustion is wrapped in ErrExhausted. A nil
// classifier means IsTransient.
func Do[T any](ctx context.Context, p Policy, retryable func(error) bool, op func() (T, error), notify func(err error, wait time.Duration)) (T, error) {
	if retryable == nil {
		retryable = IsTransient
	}
	attempts := p.Attempts
	if attempts <= 0 {
		attempts = 1
	}
	wrapped := func() (T, error) {
		v, err := op()
		if err != nil && !retryable(err) {
			return v, backoff.Permanent(err)
		}
		return v, err
	}
	opts := []backoff.RetryOption{
		backoff.WithBackOff(p.BackOff()),
		backoff.WithMaxTries(uint(attempts)),
		backoff.WithMaxElapsedTime(0),
	}
	if notify != nil {
		opts = append(opts, backoff.WithNotify(notify))
	}
	v, err := backoff.Retry(ctx, wrapped, opts...)
	if err != nil && retryable(err) {
		return v, fmt.Errorf("%w after %d attempts: %w", ErrExhausted, attempts, err)
	}
	return v, err
}

// IsTransient reports whether err looks like a rate limit or a transient
// server failure. Context cancellation is never transient.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return isRateLimitError(err) || isServerError(err)
}

func isRateLimitError(err error) bool {
	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "rate limit") ||
		strings.Contains(errStr, "too many requests") ||
		strings.Contains(errStr, "429") ||
		strings.Contains(errStr, "resource_exhausted") ||
		strings.Contains(errStr, "overloaded")
}

func isServerError(err error) bool {
	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "500") ||
		strings.Contains(errStr, "502") ||
		strings.Contains(errStr, "503") ||
		strings.Contains(errStr, "504") ||
		strings.Contains(errStr, "internal server error") ||
		strings.Contains(errStr, "bad gateway") ||
		strings.Contains(errStr, "service unavailable") ||
		strings.Contains(errStr, "temporarily unavailable") ||
		strings.Contains(errStr, "connection reset")
}
