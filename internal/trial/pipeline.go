// Package trial runs a historical trial: advocate and critic gather evidence
// in parallel, an evaluator gates the evidence in a bounded loop, and a
// synthesizer writes the verdict once the loop ends.
package trial

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/vinayprograms/agentkit/llm"
	"github.com/vinayprograms/agentkit/logging"
	"github.com/vinayprograms/court/internal/artifact"
	"github.com/vinayprograms/court/internal/config"
	"github.com/vinayprograms/court/internal/lookup"
	"github.com/vinayprograms/court/internal/state"
)

// ErrNoTopic is returned when a hearing is requested without a topic.
var ErrNoTopic = errors.New("topic is required")

// Status is the final status of a hearing.
type Status string

const (
	StatusComplete Status = "complete"
	StatusFailed   Status = "failed"
)

// Pipeline sequences the loop and the synthesizer. It never branches on how
// the loop ended.
type Pipeline struct {
	loop  *Loop
	synth *Synthesizer
}

// NewPipeline creates a pipeline.
func NewPipeline(loop *Loop, synth *Synthesizer) *Pipeline {
	return &Pipeline{loop: loop, synth: synth}
}

// Run drives the loop to a terminal state, then synthesizes exactly once.
// A loop error aborts the run before synthesis.
func (p *Pipeline) Run(ctx context.Context, store *state.Store, runID string) (Outcome, *Report, error) {
	outcome, err := p.loop.Run(ctx, store)
	if err != nil {
		return outcome, nil, err
	}
	rep, err := p.synth.Synthesize(ctx, store, outcome, runID)
	if err != nil {
		return outcome, nil, err
	}
	return outcome, rep, nil
}

// Result is what a hearing produced.
type Result struct {
	RunID    string
	Topic    string
	Status   Status
	Outcome  Outcome
	Report   *Report
	Evidence map[string]string // Final state snapshot
	Duration time.Duration
	Error    string
}

// Options wires a Court. Judge and Writer fall back to Worker when nil.
type Options struct {
	Worker llm.Provider // Advocate and critic
	Judge  llm.Provider // Qualitative evaluation
	Writer llm.Provider // Synthesis; should be deterministic

	Searcher  lookup.Searcher
	Artifacts *artifact.Store
	Observer  Observer

	Trial       config.TrialConfig
	FrontMatter bool
}

// Court is the entry agent. Each Hear call is an independent run with its
// own state store.
type Court struct {
	pipeline *Pipeline
	observer Observer
	logger   *logging.Logger
}

// New builds the advocate and critic fan-out, the evaluator gate, the
// bounded loop and the synthesizer from opts.
func New(opts Options) (*Court, error) {
	if opts.Worker == nil {
		return nil, errors.New("worker provider is required")
	}
	if opts.Searcher == nil {
		return nil, errors.New("searcher is required")
	}
	if opts.Artifacts == nil {
		return nil, errors.New("artifact store is required")
	}
	if opts.Judge == nil {
		opts.Judge = opts.Worker
	}
	if opts.Writer == nil {
		opts.Writer = opts.Worker
	}
	tc := withDefaults(opts.Trial)

	advocate := NewWorker(AdvocateRole(), opts.Worker, opts.Searcher, tc.MinEvidenceWords)
	critic := NewWorker(CriticRole(), opts.Worker, opts.Searcher, tc.MinEvidenceWords)
	evaluator := NewEvaluator(NewJudge(opts.Judge), tc.MinEvidenceWords)
	synth := NewSynthesizer(opts.Writer, opts.Artifacts, SynthesizerConfig{
		MinWords:    tc.MinVerdictWords,
		Attempts:    tc.SynthesisAttempts,
		FrontMatter: opts.FrontMatter,
	})

	loop, err := NewLoop(NewGroup(advocate, critic), evaluator, tc.MaxIterations)
	if err != nil {
		return nil, err
	}

	if opts.Observer != nil {
		advocate.SetObserver(opts.Observer)
		critic.SetObserver(opts.Observer)
		evaluator.SetObserver(opts.Observer)
		synth.SetObserver(opts.Observer)
		loop.SetObserver(opts.Observer)
	}

	return &Court{
		pipeline: NewPipeline(loop, synth),
		observer: opts.Observer,
		logger:   logging.New().WithComponent("court"),
	}, nil
}

// withDefaults fills unset trial settings. A negative iteration limit is
// left for NewLoop to reject.
func withDefaults(tc config.TrialConfig) config.TrialConfig {
	if tc.MaxIterations == 0 {
		tc.MaxIterations = DefaultMaxIterations
	}
	if tc.MinEvidenceWords <= 0 {
		tc.MinEvidenceWords = DefaultMinEvidenceWords
	}
	if tc.MinVerdictWords <= 0 {
		tc.MinVerdictWords = DefaultMinVerdictWords
	}
	if tc.SynthesisAttempts <= 0 {
		tc.SynthesisAttempts = DefaultSynthesisAttempts
	}
	return tc
}

// Hear seeds a fresh store with topic and runs the pipeline. The returned
// result is non-nil even on failure so callers can record what happened.
func (c *Court) Hear(ctx context.Context, topic string) (*Result, error) {
	topic = strings.TrimSpace(topic)
	res := &Result{RunID: uuid.New().String(), Topic: topic, Status: StatusFailed}
	if topic == "" {
		res.Error = ErrNoTopic.Error()
		return res, ErrNoTopic
	}

	ctx, span := startRunSpan(ctx, topic)
	start := time.Now()
	c.logger.ExecutionStart(topic)
	notify(c.observer, Event{Kind: EventRunStart, RunID: res.RunID, Detail: topic})

	store := state.New()
	err := store.Scope("entry", state.Topic).Set(state.Topic, topic)
	if err == nil {
		res.Outcome, res.Report, err = c.pipeline.Run(ctx, store, res.RunID)
	}

	res.Duration = time.Since(start)
	res.Evidence = store.Snapshot()
	var location string
	if res.Report != nil {
		location = res.Report.Location
	}
	if err != nil {
		err = fmt.Errorf("hearing %q: %w", topic, err)
		res.Error = err.Error()
		c.logger.Error("hearing failed", map[string]interface{}{
			"topic": topic,
			"error": err.Error(),
		})
	} else {
		res.Status = StatusComplete
	}

	endRunSpan(span, res.Outcome, location, err)
	c.logger.ExecutionComplete(topic, res.Duration, string(res.Status))
	notify(c.observer, Event{
		Kind:      EventRunEnd,
		RunID:     res.RunID,
		Iteration: res.Outcome.Iterations,
		Detail:    string(res.Status),
		Response:  location,
		Duration:  res.Duration,
		Err:       err,
	})
	return res, err
}
