package trial

import (
	"time"
)

// EventKind names a point in a trial run.
type EventKind string

// Event kinds, in the order a run produces them.
const (
	EventRunStart       EventKind = "run_start"
	EventIterationStart EventKind = "iteration_start"
	EventWorkerStart    EventKind = "worker_start"
	EventLookup         EventKind = "lookup"
	EventLLMCall        EventKind = "llm_call"
	EventEvidence       EventKind = "evidence"
	EventWorkerEnd      EventKind = "worker_end"
	EventVerdict        EventKind = "verdict"
	EventIterationEnd   EventKind = "iteration_end"
	EventLoopEnd        EventKind = "loop_end"
	EventSynthesisStart EventKind = "synthesis_start"
	EventDraftRejected  EventKind = "draft_rejected"
	EventPersisted      EventKind = "persisted"
	EventRunEnd         EventKind = "run_end"
)

// Event describes one step of a run. Only the fields relevant to Kind are set.
type Event struct {
	Kind      EventKind
	Time      time.Time
	RunID     string // set on run_start and run_end
	Iteration int    // 1-based; 0 outside the loop
	Agent     string // advocate, critic, evaluator, synthesizer
	Detail    string

	// LLM calls
	Prompt    string
	Response  string
	Model     string
	TokensIn  int
	TokensOut int

	Words    int
	Duration time.Duration
	Err      error
}

// Observer receives run events. Workers run concurrently, so implementations
// must be safe for concurrent use.
type Observer interface {
	Observe(Event)
}

// Observers fans an event out to several observers in order.
type Observers []Observer

// Observe delivers e to every non-nil observer.
func (obs Observers) Observe(e Event) {
	for _, o := range obs {
		if o != nil {
			o.Observe(e)
		}
	}
}

func notify(o Observer, e Event) {
	if o == nil {
		return
	}
	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	o.Observe(e)
}
