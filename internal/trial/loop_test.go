package trial

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/vinayprograms/court/internal/state"
)

type countingStage struct {
	runs int
	err  error
}

func (s *countingStage) Run(ctx context.Context, store *state.Store, iteration int) error {
	s.runs++
	return s.err
}

// scriptedGate accepts on iteration acceptOn; zero means never.
type scriptedGate struct {
	acceptOn int
	calls    int
}

func (g *scriptedGate) Evaluate(ctx context.Context, store *state.Store, iteration int) (Verdict, error) {
	g.calls++
	if g.acceptOn > 0 && iteration == g.acceptOn {
		return Verdict{Decision: Accept}, nil
	}
	return Verdict{Decision: Continue, Feedback: "more"}, nil
}

func TestLoop_AlwaysRejectExhausts(t *testing.T) {
	stage := &countingStage{}
	gate := &scriptedGate{}
	loop, err := NewLoop(stage, gate, 5)
	if err != nil {
		t.Fatal(err)
	}

	out, err := loop.Run(context.Background(), state.New())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if out.State != Exhausted {
		t.Errorf("state = %s, want exhausted", out.State)
	}
	if stage.runs != 5 || out.Iterations != 5 {
		t.Errorf("fan-outs = %d, iterations = %d, want 5 and 5", stage.runs, out.Iterations)
	}
	if gate.calls != 5 {
		t.Errorf("gate verdicts = %d, want one per iteration", gate.calls)
	}
}

func TestLoop_AcceptOnThirdIteration(t *testing.T) {
	stage := &countingStage{}
	gate := &scriptedGate{acceptOn: 3}
	loop, _ := NewLoop(stage, gate, 5)

	out, err := loop.Run(context.Background(), state.New())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if out.State != Accepted {
		t.Errorf("state = %s, want accepted", out.State)
	}
	if stage.runs != 3 || out.Iterations != 3 {
		t.Errorf("fan-outs = %d, iterations = %d, want 3 and 3", stage.runs, out.Iterations)
	}
}

func TestLoop_AcceptOnLastIterationIsAccepted(t *testing.T) {
	loop, _ := NewLoop(&countingStage{}, &scriptedGate{acceptOn: 5}, 5)
	out, err := loop.Run(context.Background(), state.New())
	if err != nil {
		t.Fatal(err)
	}
	if out.State != Accepted {
		t.Errorf("state = %s, want accepted", out.State)
	}
}

func TestLoop_StageErrorAborts(t *testing.T) {
	boom := errors.New("boom")
	stage := &countingStage{err: boom}
	gate := &scriptedGate{}
	loop, _ := NewLoop(stage, gate, 5)

	out, err := loop.Run(context.Background(), state.New())
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}
	if stage.runs != 1 || gate.calls != 0 {
		t.Errorf("runs = %d, gate calls = %d; expected abort after first stage", stage.runs, gate.calls)
	}
	if out.State != Running {
		t.Errorf("state = %s, want running for an aborted loop", out.State)
	}
}

func TestLoop_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	stage := &countingStage{}
	loop, _ := NewLoop(stage, &scriptedGate{}, 5)

	if _, err := loop.Run(ctx, state.New()); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if stage.runs != 0 {
		t.Errorf("stage ran %d times after cancel", stage.runs)
	}
}

func TestNewLoop_RejectsNonPositiveLimit(t *testing.T) {
	for _, n := range []int{0, -1} {
		if _, err := NewLoop(&countingStage{}, &scriptedGate{}, n); !errors.Is(err, ErrInvalidLimit) {
			t.Errorf("NewLoop(%d) err = %v", n, err)
		}
	}
}

type funcMember func(ctx context.Context, store *state.Store, iteration int) error

func (f funcMember) Run(ctx context.Context, store *state.Store, iteration int) error {
	return f(ctx, store, iteration)
}

func TestGroup_WaitsForEveryMember(t *testing.T) {
	var finished atomic.Int32
	fail := errors.New("advocate failed")

	g := NewGroup(
		funcMember(func(context.Context, *state.Store, int) error {
			return fail
		}),
		funcMember(func(ctx context.Context, _ *state.Store, _ int) error {
			time.Sleep(20 * time.Millisecond)
			if ctx.Err() != nil {
				return ctx.Err()
			}
			finished.Add(1)
			return nil
		}),
	)

	err := g.Run(context.Background(), state.New(), 1)
	if !errors.Is(err, fail) {
		t.Fatalf("err = %v, want member failure", err)
	}
	if finished.Load() != 1 {
		t.Error("slow member was cut short or not awaited")
	}
}

func TestGroup_RunsMembersConcurrently(t *testing.T) {
	var wg sync.WaitGroup
	wg.Add(2)
	barrier := func(context.Context, *state.Store, int) error {
		wg.Done()
		done := make(chan struct{})
		go func() { wg.Wait(); close(done) }()
		select {
		case <-done:
			return nil
		case <-time.After(2 * time.Second):
			return errors.New("members did not overlap")
		}
	}

	g := NewGroup(funcMember(barrier), funcMember(barrier))
	if err := g.Run(context.Background(), state.New(), 1); err != nil {
		t.Fatal(err)
	}
}
