package trial

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/vinayprograms/agentkit/llm"
	"github.com/vinayprograms/court/internal/lookup"
)

// words returns n distinct words built from seed.
func words(seed string, n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = fmt.Sprintf("%s%d", seed, i+1)
	}
	return strings.Join(parts, " ")
}

// verdictDoc returns a document that passes CheckDocument at 350 words.
func verdictDoc(topic string) string {
	var sb strings.Builder
	sb.WriteString("# The Trial of " + topic + "\n\n")
	for i, name := range Sections {
		if i > 0 {
			sb.WriteString("\n---\n\n")
		}
		sb.WriteString("## " + name + "\n\n")
		sb.WriteString("### Key Points\n\n")
		sb.WriteString("- **" + topic + "** point one\n")
		sb.WriteString("- point two\n\n")
		sb.WriteString(words("term", 80) + "\n")
	}
	return sb.String()
}

// scriptedProvider answers by agent, identified from the system prompt.
// Replies are chosen per call so a test can script each iteration.
type scriptedProvider struct {
	mu      sync.Mutex
	reply   map[string]func(call int) (string, error)
	calls   map[string]int
	prompts map[string][]string
}

func newScriptedProvider() *scriptedProvider {
	return &scriptedProvider{
		reply:   make(map[string]func(int) (string, error)),
		calls:   make(map[string]int),
		prompts: make(map[string][]string),
	}
}

// on scripts agent's replies. call is 1-based.
func (p *scriptedProvider) on(agent string, fn func(call int) (string, error)) *scriptedProvider {
	p.reply[agent] = fn
	return p
}

func (p *scriptedProvider) always(agent, content string) *scriptedProvider {
	return p.on(agent, func(int) (string, error) { return content, nil })
}

func agentOf(system string) string {
	switch {
	case strings.Contains(system, "You are the advocate"):
		return "advocate"
	case strings.Contains(system, "You are the critic"):
		return "critic"
	case strings.Contains(system, "You are the evaluator"):
		return "evaluator"
	case strings.Contains(system, "presiding over"):
		return "synthesizer"
	}
	return "unknown"
}

func (p *scriptedProvider) Chat(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	agent := agentOf(req.Messages[0].Content)

	p.mu.Lock()
	p.calls[agent]++
	call := p.calls[agent]
	p.prompts[agent] = append(p.prompts[agent], req.Messages[len(req.Messages)-1].Content)
	fn := p.reply[agent]
	p.mu.Unlock()

	if fn == nil {
		return nil, fmt.Errorf("no script for %s", agent)
	}
	content, err := fn(call)
	if err != nil {
		return nil, err
	}
	return &llm.ChatResponse{Content: content, Model: "scripted"}, nil
}

func (p *scriptedProvider) Name() string { return "scripted" }

func (p *scriptedProvider) count(agent string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls[agent]
}

// prompt returns the user prompt of agent's nth call (1-based).
func (p *scriptedProvider) prompt(agent string, n int) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if n < 1 || n > len(p.prompts[agent]) {
		return ""
	}
	return p.prompts[agent][n-1]
}

// recordingSearcher returns a fixed page per query and records queries.
type recordingSearcher struct {
	mu      sync.Mutex
	queries []string
}

func (s *recordingSearcher) Search(ctx context.Context, query string) (string, error) {
	s.mu.Lock()
	s.queries = append(s.queries, query)
	s.mu.Unlock()
	return "Page: " + query + "\nSummary: Facts about " + query + ".", nil
}

func (s *recordingSearcher) seen() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.queries...)
}

var _ lookup.Searcher = (*recordingSearcher)(nil)

// eventLog collects observed events.
type eventLog struct {
	mu     sync.Mutex
	events []Event
}

func (l *eventLog) Observe(e Event) {
	l.mu.Lock()
	l.events = append(l.events, e)
	l.mu.Unlock()
}

func (l *eventLog) kinds() []EventKind {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]EventKind, len(l.events))
	for i, e := range l.events {
		out[i] = e.Kind
	}
	return out
}

func (l *eventLog) count(kind EventKind) int {
	n := 0
	for _, k := range l.kinds() {
		if k == kind {
			n++
		}
	}
	return n
}
