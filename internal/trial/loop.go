package trial

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/vinayprograms/agentkit/logging"
	"github.com/vinayprograms/court/internal/state"
)

// Defaults applied by New to unset trial settings.
const (
	DefaultMaxIterations     = 5
	DefaultMinEvidenceWords  = 120
	DefaultMinVerdictWords   = 350
	DefaultSynthesisAttempts = 2
)

// ErrInvalidLimit is returned for a non-positive iteration limit.
var ErrInvalidLimit = errors.New("max iterations must be > 0")

// State is the loop's position in its state machine.
type State string

const (
	Running   State = "running"
	Accepted  State = "accepted"
	Exhausted State = "exhausted"
)

// Outcome is how the loop ended. Iterations counts completed fan-outs.
type Outcome struct {
	State      State
	Iterations int
}

// Stage is the work repeated each iteration. Group satisfies it.
type Stage interface {
	Run(ctx context.Context, store *state.Store, iteration int) error
}

// Gate decides after each stage whether the loop stops. Evaluator satisfies it.
type Gate interface {
	Evaluate(ctx context.Context, store *state.Store, iteration int) (Verdict, error)
}

// Loop repeats {stage, gate} until the gate accepts or the limit is reached.
type Loop struct {
	stage    Stage
	gate     Gate
	max      int
	logger   *logging.Logger
	observer Observer
}

// NewLoop creates a bounded loop.
func NewLoop(stage Stage, gate Gate, maxIterations int) (*Loop, error) {
	if maxIterations <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidLimit, maxIterations)
	}
	return &Loop{
		stage:  stage,
		gate:   gate,
		max:    maxIterations,
		logger: logging.New().WithComponent("loop"),
	}, nil
}

// SetObserver sets the observer for run events.
func (l *Loop) SetObserver(o Observer) { l.observer = o }

// Run drives the loop to Accepted or Exhausted. A stage or gate error aborts
// the loop; the returned outcome then reports the iterations reached so far
// in the Running state.
func (l *Loop) Run(ctx context.Context, store *state.Store) (Outcome, error) {
	out := Outcome{State: Running}

	for out.State == Running {
		iteration := out.Iterations + 1
		v, err := l.iterate(ctx, store, iteration)
		if err != nil {
			return out, fmt.Errorf("iteration %d: %w", iteration, err)
		}
		out.Iterations = iteration

		switch {
		case v.Decision == Accept:
			out.State = Accepted
		case iteration >= l.max:
			out.State = Exhausted
		}
	}

	fields := map[string]interface{}{
		"state":      string(out.State),
		"iterations": out.Iterations,
		"max":        l.max,
	}
	if out.State == Exhausted {
		l.logger.Warn("iteration limit reached without acceptance", fields)
	} else {
		l.logger.Info("evidence accepted", fields)
	}
	notify(l.observer, Event{Kind: EventLoopEnd, Iteration: out.Iterations, Detail: string(out.State)})
	return out, nil
}

func (l *Loop) iterate(ctx context.Context, store *state.Store, iteration int) (v Verdict, err error) {
	ctx, span := startIterationSpan(ctx, iteration)
	start := time.Now()
	defer func() {
		endIterationSpan(span, v.Decision, err)
		notify(l.observer, Event{
			Kind:      EventIterationEnd,
			Iteration: iteration,
			Detail:    v.Decision.String(),
			Duration:  time.Since(start),
			Err:       err,
		})
	}()

	notify(l.observer, Event{Kind: EventIterationStart, Iteration: iteration})
	l.logger.Debug("iteration", map[string]interface{}{
		"iteration": iteration,
		"max":       l.max,
	})

	if err := ctx.Err(); err != nil {
		return Verdict{}, err
	}
	if err := l.stage.Run(ctx, store, iteration); err != nil {
		return Verdict{}, err
	}
	return l.gate.Evaluate(ctx, store, iteration)
}
