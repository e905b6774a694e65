package trial

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/vinayprograms/agentkit/llm"
	"github.com/vinayprograms/agentkit/logging"
	"github.com/vinayprograms/court/internal/lookup"
	"github.com/vinayprograms/court/internal/state"
)

// ErrEmptyEvidence is returned when the reasoning service produces no paragraph.
var ErrEmptyEvidence = errors.New("reasoning service returned empty evidence")

// Worker gathers evidence for one side and appends it to that side's field.
type Worker struct {
	role     Role
	searcher lookup.Searcher
	minWords int
	caller
}

// NewWorker creates a worker for role.
func NewWorker(role Role, provider llm.Provider, searcher lookup.Searcher, minWords int) *Worker {
	return &Worker{
		role:     role,
		searcher: searcher,
		minWords: minWords,
		caller: caller{
			provider: provider,
			logger:   logging.New().WithComponent(role.Name),
		},
	}
}

// SetObserver sets the observer for run events.
func (w *Worker) SetObserver(o Observer) { w.observer = o }

// Run reads the brief, runs the role's lookups, asks for one paragraph and
// appends it to the worker's field.
func (w *Worker) Run(ctx context.Context, store *state.Store, iteration int) (err error) {
	ctx, span := startAgentSpan(ctx, w.role.Name, iteration)
	start := time.Now()
	var paragraph string
	defer func() {
		endAgentSpan(span, paragraph, err)
		notify(w.observer, Event{
			Kind:      EventWorkerEnd,
			Iteration: iteration,
			Agent:     w.role.Name,
			Words:     WordCount(paragraph),
			Duration:  time.Since(start),
			Err:       err,
		})
	}()

	brief, err := ReadBrief(store, w.role.Field)
	if err != nil {
		return fmt.Errorf("%s: %w", w.role.Name, err)
	}
	notify(w.observer, Event{Kind: EventWorkerStart, Iteration: iteration, Agent: w.role.Name, Detail: brief.Feedback})

	b := newContextBuilder(brief.Topic)
	for _, q := range w.role.QueriesFor(brief.Topic, brief.HasFeedback()) {
		text, err := w.searcher.Search(ctx, q)
		if err != nil {
			return fmt.Errorf("%s: lookup %q: %w", w.role.Name, q, err)
		}
		notify(w.observer, Event{Kind: EventLookup, Iteration: iteration, Agent: w.role.Name, Detail: q, Words: WordCount(text)})
		b.addReference(q, text)
	}
	b.add("evaluator-feedback", brief.Feedback)
	b.add("your-prior-evidence", brief.Prior)
	b.setTask(w.task(brief))

	resp, err := w.chat(ctx, w.role.Name, iteration, w.systemPrompt(), b.build())
	if err != nil {
		return err
	}
	paragraph = cleanOutput(resp.Content)
	if paragraph == "" {
		return fmt.Errorf("%s: %w", w.role.Name, ErrEmptyEvidence)
	}

	scope := store.Scope(w.role.Name, w.role.Field)
	if err := scope.Append(w.role.Field, paragraph); err != nil {
		return fmt.Errorf("%s: %w", w.role.Name, err)
	}
	notify(w.observer, Event{Kind: EventEvidence, Iteration: iteration, Agent: w.role.Name, Detail: paragraph, Words: WordCount(paragraph)})

	w.logger.Info("evidence appended", map[string]interface{}{
		"field":     string(w.role.Field),
		"iteration": iteration,
		"words":     WordCount(paragraph),
	})
	return nil
}

func (w *Worker) systemPrompt() string {
	return fmt.Sprintf(workerSystemPrompt, w.role.Name, w.role.Stance, w.role.Exclude)
}

func (w *Worker) task(brief Brief) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Write ONE formal paragraph of at least %d words about %s.\n", w.minWords, brief.Topic))
	sb.WriteString("Base it only on the material in <references>.\n")
	sb.WriteString(fmt.Sprintf("Do not mention %s.\n", w.role.Exclude))
	if brief.HasFeedback() {
		sb.WriteString("The previous round was rejected; address <evaluator-feedback> by going deeper than before.\n")
	}
	if brief.Prior != "" {
		sb.WriteString("Add new facts and analysis; do not repeat <your-prior-evidence>.\n")
	}
	sb.WriteString("Reply with the paragraph only.")
	return sb.String()
}

const workerSystemPrompt = `You are the %s in a historical trial.

Your stance is %s.

You never include %s.

You write in a formal, precise register, cite concrete facts from the references you are given, and never invent events.`
