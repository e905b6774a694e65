package provider

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/vinayprograms/agentkit/llm"
	"github.com/vinayprograms/agentkit/logging"
	"github.com/vinayprograms/court/internal/retry"
	"google.golang.org/genai"
)

// ErrServiceUnavailable is returned once every retry attempt has failed transiently.
var ErrServiceUnavailable = errors.New("reasoning service unavailable")

// IsRetryable reports whether a reasoning service error is worth another attempt.
func IsRetryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code == 429 || apiErr.Code >= 500
	}
	return retry.IsTransient(err)
}

// Retrying wraps a provider so each Chat call is retried under a policy.
type Retrying struct {
	inner  llm.Provider
	name   string
	policy retry.Policy
	logger *logging.Logger
}

// NewRetrying wraps inner with the given retry policy. name identifies the
// service in retry logs.
func NewRetrying(inner llm.Provider, name string, policy retry.Policy) *Retrying {
	return &Retrying{
		inner:  inner,
		name:   name,
		policy: policy,
		logger: logging.New().WithComponent("provider"),
	}
}

// Name returns the name the provider was wrapped under.
func (r *Retrying) Name() string { return r.name }

// Chat calls the wrapped provider until it succeeds, fails permanently, or
// the attempts run out.
func (r *Retrying) Chat(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	attempt := 0
	resp, err := retry.Do(ctx, r.policy, IsRetryable, func() (*llm.ChatResponse, error) {
		attempt++
		return r.inner.Chat(ctx, req)
	}, func(err error, wait time.Duration) {
		r.logger.Warn("llm call failed, retrying", map[string]interface{}{
			"provider": r.name,
			"attempt":  attempt,
			"wait":     wait.String(),
			"error":    err.Error(),
		})
	})
	if errors.Is(err, retry.ErrExhausted) {
		return nil, fmt.Errorf("%w: %w", ErrServiceUnavailable, err)
	}
	return resp, err
}

// ChatStream retries like Chat and delivers the final content once.
func (r *Retrying) ChatStream(ctx context.Context, req llm.ChatRequest, callback func(string)) (*llm.ChatResponse, error) {
	resp, err := r.Chat(ctx, req)
	if err != nil {
		return nil, err
	}
	if callback != nil && resp.Content != "" {
		callback(resp.Content)
	}
	return resp, nil
}
