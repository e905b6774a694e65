package trial

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/vinayprograms/agentkit/llm"
	"github.com/vinayprograms/agentkit/logging"
	"github.com/vinayprograms/court/internal/state"
)

// Decision is the gate's verdict for one iteration.
type Decision int

const (
	// Continue rejects the evidence; the loop runs another fan-out.
	Continue Decision = iota
	// Accept ends the loop.
	Accept
)

func (d Decision) String() string {
	switch d {
	case Accept:
		return "accept"
	case Continue:
		return "continue"
	default:
		return fmt.Sprintf("decision(%d)", int(d))
	}
}

// Verdict is what the gate returns. Feedback is set only for Continue.
type Verdict struct {
	Decision Decision
	Feedback string
}

// WordCount counts whitespace-separated tokens that contain at least one
// letter or digit. Stray punctuation such as a lone dash is not a word.
func WordCount(text string) int {
	n := 0
	for _, tok := range strings.Fields(text) {
		for _, r := range tok {
			if unicode.IsLetter(r) || unicode.IsDigit(r) {
				n++
				break
			}
		}
	}
	return n
}

// Deficiency is an accumulator that failed the exact length check.
type Deficiency struct {
	Field state.Field
	Words int
	Min   int
}

// Side names the evidence side, e.g. "positive evidence".
func (d Deficiency) Side() string {
	switch d.Field {
	case state.PositiveEvidence:
		return "positive evidence"
	case state.NegativeEvidence:
		return "negative evidence"
	default:
		return strings.ReplaceAll(string(d.Field), "_", " ")
	}
}

func (d Deficiency) String() string {
	return fmt.Sprintf("%s is under the word threshold: %d of %d words", d.Side(), d.Words, d.Min)
}

// CheckWordCounts is the exact half of the acceptance predicate. It returns
// one deficiency per side with fewer than minWords words, positive side first.
func CheckWordCounts(positive, negative string, minWords int) []Deficiency {
	var out []Deficiency
	if n := WordCount(positive); n < minWords {
		out = append(out, Deficiency{Field: state.PositiveEvidence, Words: n, Min: minWords})
	}
	if n := WordCount(negative); n < minWords {
		out = append(out, Deficiency{Field: state.NegativeEvidence, Words: n, Min: minWords})
	}
	return out
}

// Judge is the qualitative half of the acceptance predicate.
type Judge struct {
	caller
}

// NewJudge creates a judge backed by provider.
func NewJudge(provider llm.Provider) *Judge {
	return &Judge{caller: caller{
		provider: provider,
		logger:   logging.New().WithComponent("judge"),
	}}
}

// Assess asks whether both sides are detailed, non-redundant and analytical.
func (j *Judge) Assess(ctx context.Context, iteration int, topic, positive, negative string) (Verdict, error) {
	b := newContextBuilder(topic).
		add("positive-evidence", positive).
		add("negative-evidence", negative).
		setTask(judgeTask)

	resp, err := j.chat(ctx, "evaluator", iteration, judgeSystemPrompt, b.build())
	if err != nil {
		return Verdict{}, err
	}
	v, ok := ParseJudgement(resp.Content)
	if !ok {
		j.logger.Warn("unparseable judgement, treating as rejection", map[string]interface{}{
			"iteration": iteration,
			"response":  truncateForLog(resp.Content, 200),
		})
	}
	return v, nil
}

const unparseableFeedback = "The evaluation was inconclusive. Both sides should add concrete, non-repetitive detail and deeper analysis."

// ParseJudgement reads a reply of the form "ACCEPT" or "REJECT: <critique>".
// Continuation lines after REJECT belong to the critique. The second result
// is false when neither keyword leads a line; the verdict is then a rejection.
func ParseJudgement(content string) (Verdict, bool) {
	lines := strings.Split(strings.TrimSpace(content), "\n")
	for i, line := range lines {
		trimmed := strings.TrimLeft(strings.TrimSpace(line), "*#> ")
		upper := strings.ToUpper(trimmed)

		if strings.HasPrefix(upper, "ACCEPT") {
			return Verdict{Decision: Accept}, true
		}
		if strings.HasPrefix(upper, "REJECT") {
			critique := strings.TrimSpace(trimmed[len("REJECT"):])
			critique = strings.TrimSpace(strings.TrimLeft(critique, ":-*"))
			if rest := strings.TrimSpace(strings.Join(lines[i+1:], "\n")); rest != "" {
				if critique != "" {
					critique += "\n"
				}
				critique += rest
			}
			if critique == "" {
				critique = unparseableFeedback
			}
			return Verdict{Decision: Continue, Feedback: critique}, true
		}
	}
	return Verdict{Decision: Continue, Feedback: unparseableFeedback}, false
}

// Evaluator is the gate run after each fan-out.
type Evaluator struct {
	judge    *Judge
	minWords int
	logger   *logging.Logger
	observer Observer
}

// NewEvaluator creates a gate that requires minWords per side before the judge
// is consulted.
func NewEvaluator(judge *Judge, minWords int) *Evaluator {
	return &Evaluator{
		judge:    judge,
		minWords: minWords,
		logger:   logging.New().WithComponent("evaluator"),
	}
}

// SetObserver sets the observer for run events.
func (e *Evaluator) SetObserver(o Observer) {
	e.observer = o
	e.judge.observer = o
}

// Evaluate applies the acceptance predicate to the current evidence. On
// rejection it overwrites evaluator_feedback; on acceptance it writes nothing.
func (e *Evaluator) Evaluate(ctx context.Context, store *state.Store, iteration int) (v Verdict, err error) {
	ctx, span := startAgentSpan(ctx, "evaluator", iteration)
	start := time.Now()
	defer func() {
		endAgentSpan(span, v.Feedback, err)
	}()

	topic := store.Value(state.Topic)
	positive := store.Value(state.PositiveEvidence)
	negative := store.Value(state.NegativeEvidence)

	e.logger.PhaseStart("EVALUATE", topic, fmt.Sprintf("iteration %d", iteration))

	if short := CheckWordCounts(positive, negative, e.minWords); len(short) > 0 {
		lines := make([]string, 0, len(short))
		for _, d := range short {
			lines = append(lines, d.String()+".")
		}
		v = Verdict{Decision: Continue, Feedback: strings.Join(lines, "\n")}
	} else {
		v, err = e.judge.Assess(ctx, iteration, topic, positive, negative)
		if err != nil {
			return Verdict{}, fmt.Errorf("evaluator: %w", err)
		}
	}

	if v.Decision == Continue {
		scope := store.Scope("evaluator", state.EvaluatorFeedback)
		if err := scope.Set(state.EvaluatorFeedback, v.Feedback); err != nil {
			return Verdict{}, fmt.Errorf("evaluator: %w", err)
		}
	}

	e.logger.PhaseComplete("EVALUATE", topic, fmt.Sprintf("iteration %d", iteration), time.Since(start), v.Decision.String())
	notify(e.observer, Event{
		Kind:      EventVerdict,
		Iteration: iteration,
		Agent:     "evaluator",
		Detail:    v.Decision.String(),
		Response:  v.Feedback,
		Duration:  time.Since(start),
	})
	return v, nil
}

const judgeSystemPrompt = `You are the evaluator in a historical trial. You judge whether the evidence gathered so far is good enough to reach a verdict.

Both sides must be detailed, specific and analytical, and neither may repeat itself.`

const judgeTask = `Assess <positive-evidence> and <negative-evidence>.

Reply with exactly one of:
ACCEPT
REJECT: <critique naming which side is deficient and how, e.g. "negative evidence repeats prior content">`
