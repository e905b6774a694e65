// Package events forwards trial run events to external sinks.
package events

import (
	"sync"
	"time"

	"github.com/vinayprograms/court/internal/trial"
)

// Message is the wire form of a run event.
type Message struct {
	RunID      string    `json:"run_id"`
	Kind       string    `json:"kind"`
	Time       time.Time `json:"time"`
	Iteration  int       `json:"iteration,omitempty"`
	Agent      string    `json:"agent,omitempty"`
	Detail     string    `json:"detail,omitempty"`
	Model      string    `json:"model,omitempty"`
	TokensIn   int       `json:"tokens_in,omitempty"`
	TokensOut  int       `json:"tokens_out,omitempty"`
	Words      int       `json:"words,omitempty"`
	DurationMs int64     `json:"duration_ms,omitempty"`
	Error      string    `json:"error,omitempty"`
}

// runTracker stamps events with the run they belong to. Only run_start and
// run_end carry the ID, so it is remembered in between.
type runTracker struct {
	mu  sync.Mutex
	run string
}

func (t *runTracker) stamp(e trial.Event) string {
	t.mu.Lock()
	defer t.mu.Unlock()
	if e.RunID != "" {
		t.run = e.RunID
	}
	return t.run
}

// NewMessage converts an event. Prompts and responses are left out; they
// belong in the transcript, not on the bus.
func NewMessage(runID string, e trial.Event) Message {
	m := Message{
		RunID:      runID,
		Kind:       string(e.Kind),
		Time:       e.Time,
		Iteration:  e.Iteration,
		Agent:      e.Agent,
		Detail:     e.Detail,
		Model:      e.Model,
		TokensIn:   e.TokensIn,
		TokensOut:  e.TokensOut,
		Words:      e.Words,
		DurationMs: e.Duration.Milliseconds(),
	}
	if e.Kind == trial.EventVerdict && e.Response != "" {
		m.Detail = e.Detail + ": " + e.Response
	}
	if e.Err != nil {
		m.Error = e.Err.Error()
	}
	return m
}

// Fields flattens a message for structured loggers and exporters.
func (m Message) Fields() map[string]interface{} {
	f := map[string]interface{}{
		"run_id": m.RunID,
	}
	if m.Iteration > 0 {
		f["iteration"] = m.Iteration
	}
	if m.Agent != "" {
		f["agent"] = m.Agent
	}
	if m.Detail != "" {
		f["detail"] = m.Detail
	}
	if m.Model != "" {
		f["model"] = m.Model
		f["tokens_in"] = m.TokensIn
		f["tokens_out"] = m.TokensOut
	}
	if m.Words > 0 {
		f["words"] = m.Words
	}
	if m.DurationMs > 0 {
		f["duration_ms"] = m.DurationMs
	}
	if m.Error != "" {
		f["error"] = m.Error
	}
	return f
}
