// Package provider builds the reasoning services a trial runs against.
package provider

import (
	"context"
	"fmt"
	"time"

	"github.com/vinayprograms/agentkit/llm"
	"github.com/vinayprograms/agentkit/logging"
	"github.com/vinayprograms/court/internal/retry"
)

// Config selects and configures one reasoning service.
type Config struct {
	Provider     string // google, anthropic, openai, groq, mistral, openai-compat
	Model        string
	APIKey       string
	MaxTokens    int
	BaseURL      string
	Thinking     string
	Attempts     int           // Total calls per request, including the first
	InitialDelay time.Duration // Wait before the first retry
	MaxDelay     time.Duration
}

// Policy returns the retry policy described by the config.
func (c Config) Policy() retry.Policy {
	p := retry.Default()
	if c.Attempts > 0 {
		p.Attempts = c.Attempts
	}
	if c.InitialDelay > 0 {
		p.InitialDelay = c.InitialDelay
	}
	if c.MaxDelay > 0 {
		p.MaxDelay = c.MaxDelay
	}
	return p
}

// ResolveName returns the configured provider, inferring it from the model
// when unset.
func (c Config) ResolveName() string {
	if c.Provider != "" {
		return c.Provider
	}
	return llm.InferProviderFromModel(c.Model)
}

// New creates a provider. Google models go through the in-repo Gemini adapter
// so temperature is honored; everything else is an agentkit provider, which
// carries its own retry loop and ignores temperature.
func New(ctx context.Context, cfg Config, temperature *float32) (llm.Provider, error) {
	name := cfg.ResolveName()
	if cfg.Model == "" {
		return nil, fmt.Errorf("LLM model not configured")
	}

	switch name {
	case "google", "gemini":
		opts := []GeminiOption{WithMaxTokens(cfg.MaxTokens)}
		if temperature != nil {
			opts = append(opts, WithTemperature(*temperature))
		}
		g, err := NewGemini(ctx, cfg.APIKey, cfg.Model, opts...)
		if err != nil {
			return nil, fmt.Errorf("creating LLM provider: %w", err)
		}
		return NewRetrying(g, g.Name(), cfg.Policy()), nil
	}

	if temperature != nil {
		logging.New().WithComponent("provider").Warn("temperature not supported by provider, using its default", map[string]interface{}{
			"provider":    name,
			"temperature": *temperature,
		})
	}
	p, err := llm.NewProvider(llm.ProviderConfig{
		Provider:  name,
		Model:     cfg.Model,
		APIKey:    cfg.APIKey,
		MaxTokens: cfg.MaxTokens,
		BaseURL:   cfg.BaseURL,
		Thinking:  llm.ThinkingConfig{Level: llm.ThinkingLevel(cfg.Thinking)},
		RetryConfig: retryConfig(cfg.Policy()),
	})
	if err != nil {
		return nil, fmt.Errorf("creating LLM provider: %w", err)
	}
	return p, nil
}

// retryConfig maps a retry policy onto agentkit's provider retry settings.
func retryConfig(p retry.Policy) llm.RetryConfig {
	return llm.RetryConfig{
		MaxRetries:  p.Attempts - 1,
		InitBackoff: p.InitialDelay,
		MaxBackoff:  p.MaxDelay,
	}
}
