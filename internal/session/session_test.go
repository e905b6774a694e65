package session

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/vinayprograms/court/internal/trial"
)

func TestSession_New(t *testing.T) {
	sess := New("run-1", "Example Reformer")
	if sess.Status != StatusRunning {
		t.Errorf("expected status running, got %s", sess.Status)
	}
	if sess.CurrentSeqID() != 0 {
		t.Errorf("expected no events, got seq %d", sess.CurrentSeqID())
	}
}

func TestSession_SequenceIDs(t *testing.T) {
	sess := New("run-1", "X")
	for i := 0; i < 5; i++ {
		sess.AddEvent(Event{Type: EventLookup, Content: "q"})
	}
	for i, e := range sess.Events {
		if e.SeqID != uint64(i+1) {
			t.Errorf("event %d: seq %d", i, e.SeqID)
		}
		if e.Timestamp.IsZero() {
			t.Errorf("event %d: timestamp not set", i)
		}
	}
	if sess.CurrentSeqID() != 5 {
		t.Errorf("CurrentSeqID = %d", sess.CurrentSeqID())
	}
}

func TestFileStore_RoundTrip(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("create store error: %v", err)
	}

	sess := New("run-rt", "Example Reformer")
	sess.AddEvent(Event{Type: EventRunStart, Content: "Example Reformer"})
	sess.AddEvent(Event{Type: EventEvidence, Iteration: 1, Agent: "advocate", Content: "paragraph", Meta: &EventMeta{Words: 130}})
	sess.AddEvent(Event{Type: EventWorkerEnd, Iteration: 1, Agent: "critic", Error: "service down"})
	sess.Status = StatusFailed
	sess.Error = "hearing failed"
	sess.Outcome = "exhausted"
	sess.Iterations = 5
	sess.State["positive_evidence"] = "paragraph"

	if err := store.Save(sess); err != nil {
		t.Fatalf("save error: %v", err)
	}

	loaded, err := store.Load("run-rt")
	if err != nil {
		t.Fatalf("load error: %v", err)
	}
	if loaded.ID != sess.ID || loaded.Topic != sess.Topic {
		t.Errorf("header mismatch: %s %q", loaded.ID, loaded.Topic)
	}
	if loaded.Status != StatusFailed || loaded.Error != "hearing failed" {
		t.Errorf("footer mismatch: %s %q", loaded.Status, loaded.Error)
	}
	if loaded.Outcome != "exhausted" || loaded.Iterations != 5 {
		t.Errorf("outcome mismatch: %s %d", loaded.Outcome, loaded.Iterations)
	}
	if loaded.State["positive_evidence"] != "paragraph" {
		t.Error("state not restored")
	}
	if len(loaded.Events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(loaded.Events))
	}
	if loaded.Events[1].Meta == nil || loaded.Events[1].Meta.Words != 130 {
		t.Error("event meta not restored")
	}
	// Event errors must survive alongside the footer's run error.
	if loaded.Events[2].Error != "service down" {
		t.Errorf("event error = %q", loaded.Events[2].Error)
	}
	if loaded.CurrentSeqID() != 3 {
		t.Errorf("sequence counter not restored: %d", loaded.CurrentSeqID())
	}
}

func TestFileStore_SaveLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	store, _ := NewFileStore(dir)
	sess := New("run-tmp", "X")

	for i := 0; i < 3; i++ {
		sess.AddEvent(Event{Type: EventLookup})
		if err := store.Save(sess); err != nil {
			t.Fatal(err)
		}
	}
	files, _ := os.ReadDir(dir)
	if len(files) != 1 || filepath.Ext(files[0].Name()) != ".jsonl" {
		t.Errorf("unexpected files %v", files)
	}
}

func TestFileStore_LoadNotFound(t *testing.T) {
	store, _ := NewFileStore(t.TempDir())
	if _, err := store.Load("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestFileStore_ListNewestFirst(t *testing.T) {
	dir := t.TempDir()
	store, _ := NewFileStore(dir)
	for _, id := range []string{"a", "b", "c"} {
		if err := store.Save(New(id, id)); err != nil {
			t.Fatal(err)
		}
	}
	old := time.Now().Add(-time.Hour)
	os.Chtimes(store.Path("a"), old, old)
	os.Chtimes(store.Path("c"), old.Add(-time.Hour), old.Add(-time.Hour))
	os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644)

	ids, err := store.List()
	if err != nil {
		t.Fatal(err)
	}
	if strings.Join(ids, ",") != "b,a,c" {
		t.Errorf("List = %v", ids)
	}
}

func TestRead_LargeLine(t *testing.T) {
	large := strings.Repeat("x", 2*1024*1024)
	store, _ := NewFileStore(t.TempDir())
	sess := New("large", "X")
	sess.AddEvent(Event{Type: EventLLMCall, Meta: &EventMeta{Prompt: large}})
	if err := store.Save(sess); err != nil {
		t.Fatal(err)
	}

	loaded, err := store.Load("large")
	if err != nil {
		t.Fatalf("load error (should handle large lines): %v", err)
	}
	if len(loaded.Events[0].Meta.Prompt) != len(large) {
		t.Errorf("prompt size mismatch: %d", len(loaded.Events[0].Meta.Prompt))
	}
}

func TestRead_MalformedLine(t *testing.T) {
	if _, err := Read(strings.NewReader(`{"_type":"header","id":"x"}` + "\n{not json}\n")); err == nil {
		t.Error("expected parse error")
	}
}

func TestRecorder_RecordsRun(t *testing.T) {
	store, _ := NewFileStore(t.TempDir())
	rec := NewRecorder(store)

	events := []trial.Event{
		{Kind: trial.EventRunStart, RunID: "run-42", Detail: "Example Reformer"},
		{Kind: trial.EventIterationStart, Iteration: 1},
		{Kind: trial.EventLLMCall, Iteration: 1, Agent: "advocate", Prompt: "p", Response: "r", Model: "m", TokensIn: 10, TokensOut: 20, Duration: 1500 * time.Millisecond},
		{Kind: trial.EventEvidence, Iteration: 1, Agent: "advocate", Detail: "paragraph", Words: 130},
		{Kind: trial.EventVerdict, Iteration: 1, Agent: "evaluator", Detail: "continue", Response: "positive evidence is thin"},
		{Kind: trial.EventIterationEnd, Iteration: 1, Detail: "continue"},
	}
	for _, e := range events {
		rec.Observe(e)
	}

	mid, err := store.Load("run-42")
	if err != nil {
		t.Fatalf("transcript not saved at iteration end: %v", err)
	}
	if mid.Status != StatusRunning || len(mid.Events) != len(events) {
		t.Errorf("mid-run transcript: status %s, %d events", mid.Status, len(mid.Events))
	}

	rec.Observe(trial.Event{Kind: trial.EventLoopEnd, Iteration: 1, Detail: "exhausted"})
	rec.Observe(trial.Event{Kind: trial.EventRunEnd, RunID: "run-42", Detail: "failed", Err: errors.New("boom")})

	loaded, err := store.Load("run-42")
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Topic != "Example Reformer" || loaded.Status != "failed" || loaded.Error != "boom" {
		t.Errorf("unexpected footer: %+v", loaded)
	}
	if loaded.Outcome != "exhausted" {
		t.Errorf("outcome = %q", loaded.Outcome)
	}

	llm := loaded.Events[2]
	if llm.Meta == nil || llm.Meta.TokensOut != 20 || llm.Meta.LatencyMs != 1500 || llm.Meta.Prompt != "p" {
		t.Errorf("llm meta not recorded: %+v", llm.Meta)
	}
	verdict := loaded.Events[4]
	if verdict.Content != "positive evidence is thin" || verdict.Meta.Verdict != "continue" {
		t.Errorf("verdict not recorded: %+v", verdict)
	}
}

func TestRecorder_IgnoresEventsBeforeStart(t *testing.T) {
	store, _ := NewFileStore(t.TempDir())
	rec := NewRecorder(store)
	rec.Observe(trial.Event{Kind: trial.EventLookup})
	if rec.Session() != nil {
		t.Error("session created without run_start")
	}
}

func TestRecorder_Complete(t *testing.T) {
	store, _ := NewFileStore(t.TempDir())
	rec := NewRecorder(store)
	rec.Observe(trial.Event{Kind: trial.EventRunStart, RunID: "run-7", Detail: "X"})

	err := rec.Complete(&trial.Result{
		RunID:    "run-7",
		Topic:    "X",
		Status:   trial.StatusComplete,
		Outcome:  trial.Outcome{State: trial.Accepted, Iterations: 2},
		Report:   &trial.Report{Location: "/tmp/X.md"},
		Evidence: map[string]string{"topic": "X", "negative_evidence": "n"},
	})
	if err != nil {
		t.Fatal(err)
	}
	loaded, _ := store.Load("run-7")
	if loaded.Status != StatusComplete || loaded.Outcome != "accepted" || loaded.Iterations != 2 {
		t.Errorf("unexpected session %+v", loaded)
	}
	if loaded.Report != "/tmp/X.md" || loaded.State["negative_evidence"] != "n" {
		t.Errorf("report or state missing: %q %v", loaded.Report, loaded.State)
	}
}

func TestRecorder_SaveErrorSurfaces(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "file")
	os.WriteFile(blocker, []byte("x"), 0644)
	rec := NewRecorder(&FileStore{dir: filepath.Join(blocker, "sessions")})

	rec.Observe(trial.Event{Kind: trial.EventRunStart, RunID: "r", Detail: "X"})
	rec.Observe(trial.Event{Kind: trial.EventRunEnd, RunID: "r", Detail: "complete"})
	if rec.Err() == nil {
		t.Error("expected save error")
	}
}
