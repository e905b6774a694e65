// Utility functions shared by trial agents.
package trial

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/vinayprograms/agentkit/llm"
	"github.com/vinayprograms/agentkit/logging"
)

// truncateForLog truncates a string for logging purposes.
func truncateForLog(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

// caller issues one system+user exchange and reports it to the observer.
type caller struct {
	provider llm.Provider
	logger   *logging.Logger
	observer Observer
}

func (c *caller) chat(ctx context.Context, agent string, iteration int, system, user string) (*llm.ChatResponse, error) {
	start := time.Now()
	resp, err := c.provider.Chat(ctx, llm.ChatRequest{
		Messages: []llm.Message{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
	})
	duration := time.Since(start)

	e := Event{
		Kind:      EventLLMCall,
		Iteration: iteration,
		Agent:     agent,
		Prompt:    user,
		Duration:  duration,
		Err:       err,
	}
	if err != nil {
		c.logger.Error("llm call failed", map[string]interface{}{
			"agent":     agent,
			"iteration": iteration,
			"error":     err.Error(),
		})
		notify(c.observer, e)
		return nil, fmt.Errorf("%s: reasoning service: %w", agent, err)
	}

	e.Response = resp.Content
	e.Model = resp.Model
	e.TokensIn = resp.InputTokens
	e.TokensOut = resp.OutputTokens
	notify(c.observer, e)

	c.logger.Debug("llm call complete", map[string]interface{}{
		"agent":       agent,
		"iteration":   iteration,
		"duration_ms": duration.Milliseconds(),
		"tokens_in":   resp.InputTokens,
		"tokens_out":  resp.OutputTokens,
	})
	return resp, nil
}

// cleanOutput strips a surrounding Markdown code fence some models add.
func cleanOutput(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		if nl := strings.Index(s, "\n"); nl != -1 {
			s = s[nl+1:]
		}
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	return strings.TrimSpace(s)
}
