package trial

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/vinayprograms/agentkit/llm"
	"github.com/vinayprograms/court/internal/state"
)

func TestWordCount(t *testing.T) {
	tests := []struct {
		text string
		want int
	}{
		{"", 0},
		{"   \n\t ", 0},
		{"one two three", 3},
		{"  spaced\n\tout  ", 2},
		{"word - word", 2},
		{"don't stop", 2},
		{"in 1923 it", 3},
		{"end. Start, again!", 3},
		{"— … !!", 0},
		{"Napoléon Bonaparte", 2},
	}
	for _, tt := range tests {
		if got := WordCount(tt.text); got != tt.want {
			t.Errorf("WordCount(%q) = %d, want %d", tt.text, got, tt.want)
		}
	}
}

func TestCheckWordCounts(t *testing.T) {
	tests := []struct {
		name     string
		pos, neg int
		want     []state.Field
	}{
		{"both sufficient", 120, 130, nil},
		{"positive one short", 119, 120, []state.Field{state.PositiveEvidence}},
		{"negative short", 200, 80, []state.Field{state.NegativeEvidence}},
		{"both short", 80, 0, []state.Field{state.PositiveEvidence, state.NegativeEvidence}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CheckWordCounts(words("p", tt.pos), words("n", tt.neg), 120)
			if len(got) != len(tt.want) {
				t.Fatalf("got %d deficiencies, want %d: %v", len(got), len(tt.want), got)
			}
			for i, d := range got {
				if d.Field != tt.want[i] {
					t.Errorf("deficiency %d field = %s, want %s", i, d.Field, tt.want[i])
				}
				if d.Min != 120 {
					t.Errorf("deficiency %d min = %d", i, d.Min)
				}
			}
		})
	}
}

func TestDeficiency_StringNamesSide(t *testing.T) {
	d := Deficiency{Field: state.PositiveEvidence, Words: 80, Min: 120}
	s := d.String()
	if !strings.Contains(s, "positive evidence") || !strings.Contains(s, "80") {
		t.Errorf("unexpected message %q", s)
	}
}

func TestParseJudgement(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		decision Decision
		feedback string
		ok       bool
	}{
		{"accept", "ACCEPT", Accept, "", true},
		{"accept lowercase with reason", "accept - both sides are thorough", Accept, "", true},
		{"bold accept", "**ACCEPT**", Accept, "", true},
		{"reject with critique", "REJECT: negative evidence repeats prior content", Continue, "negative evidence repeats prior content", true},
		{"reject multiline", "REJECT: positive side is thin\nAdd economic reforms.", Continue, "positive side is thin\nAdd economic reforms.", true},
		{"preamble then reject", "After review:\nREJECT: more depth", Continue, "more depth", true},
		{"bare reject", "REJECT", Continue, unparseableFeedback, true},
		{"garbage", "I think it is fine", Continue, unparseableFeedback, false},
		{"empty", "", Continue, unparseableFeedback, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, ok := ParseJudgement(tt.content)
			if ok != tt.ok {
				t.Errorf("ok = %v, want %v", ok, tt.ok)
			}
			if v.Decision != tt.decision {
				t.Errorf("decision = %s, want %s", v.Decision, tt.decision)
			}
			if v.Feedback != tt.feedback {
				t.Errorf("feedback = %q, want %q", v.Feedback, tt.feedback)
			}
		})
	}
}

func seededStore(t *testing.T, topic, positive, negative string) *state.Store {
	t.Helper()
	store := state.New()
	if err := store.Scope("test", state.Topic).Set(state.Topic, topic); err != nil {
		t.Fatal(err)
	}
	if positive != "" {
		if err := store.Scope("test", state.PositiveEvidence).Append(state.PositiveEvidence, positive); err != nil {
			t.Fatal(err)
		}
	}
	if negative != "" {
		if err := store.Scope("test", state.NegativeEvidence).Append(state.NegativeEvidence, negative); err != nil {
			t.Fatal(err)
		}
	}
	return store
}

func TestEvaluator_ShortEvidenceSkipsJudge(t *testing.T) {
	provider := newScriptedProvider().always("evaluator", "ACCEPT")
	eval := NewEvaluator(NewJudge(provider), 120)
	store := seededStore(t, "Example Reformer", words("p", 80), words("n", 125))

	v, err := eval.Evaluate(context.Background(), store, 1)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if v.Decision != Continue {
		t.Fatalf("decision = %s, want continue", v.Decision)
	}
	if provider.count("evaluator") != 0 {
		t.Errorf("judge consulted %d times for short evidence", provider.count("evaluator"))
	}
	fb := store.Value(state.EvaluatorFeedback)
	if !strings.Contains(fb, "positive evidence") {
		t.Errorf("feedback %q does not name the positive side", fb)
	}
	if strings.Contains(fb, "negative evidence") {
		t.Errorf("feedback %q names the sufficient negative side", fb)
	}
}

func TestEvaluator_AcceptWritesNothing(t *testing.T) {
	provider := llm.NewMockProvider()
	provider.SetResponse("ACCEPT")
	eval := NewEvaluator(NewJudge(provider), 120)
	store := seededStore(t, "Example Reformer", words("p", 130), words("n", 125))
	before := store.Snapshot()

	v, err := eval.Evaluate(context.Background(), store, 1)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if v.Decision != Accept {
		t.Fatalf("decision = %s, want accept", v.Decision)
	}
	after := store.Snapshot()
	if len(after) != len(before) {
		t.Fatalf("state changed on accept: %v -> %v", before, after)
	}
	for k, want := range before {
		if after[k] != want {
			t.Errorf("field %s changed on accept", k)
		}
	}
	if _, ok := store.Get(state.EvaluatorFeedback); ok {
		t.Error("feedback written on accept")
	}
}

func TestEvaluator_JudgeRejectionOverwritesFeedback(t *testing.T) {
	provider := newScriptedProvider().on("evaluator", func(call int) (string, error) {
		if call == 1 {
			return "REJECT: negative evidence repeats prior content", nil
		}
		return "REJECT: positive evidence lacks dates", nil
	})
	eval := NewEvaluator(NewJudge(provider), 120)
	store := seededStore(t, "Example Reformer", words("p", 130), words("n", 125))

	if _, err := eval.Evaluate(context.Background(), store, 1); err != nil {
		t.Fatal(err)
	}
	if got := store.Value(state.EvaluatorFeedback); got != "negative evidence repeats prior content" {
		t.Errorf("feedback = %q", got)
	}
	if _, err := eval.Evaluate(context.Background(), store, 2); err != nil {
		t.Fatal(err)
	}
	if got := store.Value(state.EvaluatorFeedback); got != "positive evidence lacks dates" {
		t.Errorf("feedback not overwritten: %q", got)
	}
}

func TestEvaluator_JudgeFailureIsFatal(t *testing.T) {
	provider := llm.NewMockProvider()
	provider.SetError(errors.New("service down"))
	eval := NewEvaluator(NewJudge(provider), 120)
	store := seededStore(t, "Example Reformer", words("p", 130), words("n", 125))

	if _, err := eval.Evaluate(context.Background(), store, 1); err == nil {
		t.Fatal("expected error")
	}
	if _, ok := store.Get(state.EvaluatorFeedback); ok {
		t.Error("feedback written despite failure")
	}
}

func TestEvaluator_UnparseableReplyRejects(t *testing.T) {
	provider := llm.NewMockProvider()
	provider.SetResponse("Looks reasonable to me.")
	eval := NewEvaluator(NewJudge(provider), 120)
	store := seededStore(t, "Example Reformer", words("p", 130), words("n", 125))

	v, err := eval.Evaluate(context.Background(), store, 1)
	if err != nil {
		t.Fatal(err)
	}
	if v.Decision != Continue {
		t.Errorf("decision = %s, want continue", v.Decision)
	}
	if store.Value(state.EvaluatorFeedback) == "" {
		t.Error("expected generic feedback")
	}
}
