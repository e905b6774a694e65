package session

import (
	"sync"

	"github.com/vinayprograms/agentkit/logging"
	"github.com/vinayprograms/court/internal/trial"
)

// Recorder turns trial events into a transcript. It starts a session on
// run_start and saves at iteration boundaries and at the end of the run.
type Recorder struct {
	store  Store
	logger *logging.Logger

	mu   sync.Mutex
	sess *Session
	err  error
}

// NewRecorder creates a recorder writing to store.
func NewRecorder(store Store) *Recorder {
	return &Recorder{
		store:  store,
		logger: logging.New().WithComponent("session"),
	}
}

// Observe implements trial.Observer.
func (r *Recorder) Observe(e trial.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e.Kind == trial.EventRunStart {
		r.sess = New(e.RunID, e.Detail)
		if !e.Time.IsZero() {
			r.sess.CreatedAt = e.Time
		}
	}
	if r.sess == nil {
		return
	}
	r.sess.AddEvent(Convert(e))

	switch e.Kind {
	case trial.EventLoopEnd:
		r.sess.Outcome = e.Detail
		r.sess.Iterations = e.Iteration
		r.save()
	case trial.EventIterationEnd, trial.EventPersisted:
		r.save()
	case trial.EventRunEnd:
		r.sess.Status = e.Detail
		r.sess.Report = e.Response
		if e.Err != nil {
			r.sess.Error = e.Err.Error()
		}
		r.save()
	}
}

// Complete records the final state of a hearing and saves the transcript.
func (r *Recorder) Complete(res *trial.Result) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sess == nil {
		if res.RunID == "" {
			return r.err
		}
		r.sess = New(res.RunID, res.Topic)
	}
	r.sess.Status = string(res.Status)
	r.sess.Outcome = string(res.Outcome.State)
	r.sess.Iterations = res.Outcome.Iterations
	r.sess.Error = res.Error
	if res.Report != nil {
		r.sess.Report = res.Report.Location
	}
	for k, v := range res.Evidence {
		r.sess.State[k] = v
	}
	r.save()
	return r.err
}

// Session returns the session being recorded, or nil before run_start.
func (r *Recorder) Session() *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sess
}

// Err returns the last save error.
func (r *Recorder) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

// save must be called with mu held.
func (r *Recorder) save() {
	if err := r.store.Save(r.sess); err != nil {
		r.err = err
		r.logger.Warn("failed to save transcript", map[string]interface{}{
			"session": r.sess.ID,
			"error":   err.Error(),
		})
	}
}

// Convert maps a trial event to a transcript event.
func Convert(e trial.Event) Event {
	out := Event{
		Type:       string(e.Kind),
		Timestamp:  e.Time,
		Iteration:  e.Iteration,
		Agent:      e.Agent,
		Content:    e.Detail,
		DurationMs: e.Duration.Milliseconds(),
	}
	if e.Err != nil {
		out.Error = e.Err.Error()
	}

	switch e.Kind {
	case trial.EventLLMCall:
		out.Content = ""
		out.Meta = &EventMeta{
			Model:     e.Model,
			LatencyMs: e.Duration.Milliseconds(),
			TokensIn:  e.TokensIn,
			TokensOut: e.TokensOut,
			Prompt:    e.Prompt,
			Response:  e.Response,
		}
	case trial.EventVerdict:
		out.Content = e.Response
		out.Meta = &EventMeta{Verdict: e.Detail}
	case trial.EventRunEnd:
		out.Content = e.Response
		out.Meta = &EventMeta{Verdict: e.Detail}
	case trial.EventLookup, trial.EventEvidence, trial.EventWorkerEnd, trial.EventDraftRejected, trial.EventPersisted:
		if e.Words > 0 {
			out.Meta = &EventMeta{Words: e.Words}
		}
	}
	return out
}
