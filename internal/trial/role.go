package trial

import (
	"strings"

	"github.com/vinayprograms/court/internal/state"
)

// Role parameterizes a Worker. Advocate and critic differ only in their role.
type Role struct {
	Name    string      // Agent name used in logs and events
	Field   state.Field // Accumulator the worker appends to
	Stance  string      // Framing the paragraph must take
	Exclude string      // Content the paragraph must not contain
	Queries []string    // Lookup templates; {topic} is replaced
	Deeper  []string    // Extra templates used once feedback exists
}

// AdvocateRole gathers achievements and legacy.
func AdvocateRole() Role {
	return Role{
		Name:    "advocate",
		Field:   state.PositiveEvidence,
		Stance:  "supportive: present the subject's achievements, accomplishments, reforms and lasting positive legacy",
		Exclude: "any controversy, criticism, failure or negative assessment",
		Queries: []string{
			"{topic} achievements",
			"{topic} accomplishments",
			"{topic} reforms",
			"{topic} legacy",
		},
		Deeper: []string{
			"{topic} historical significance",
			"{topic} influence",
		},
	}
}

// CriticRole gathers controversies and failures.
func CriticRole() Role {
	return Role{
		Name:    "critic",
		Field:   state.NegativeEvidence,
		Stance:  "critical: present the subject's controversies, failures, criticism and human rights concerns",
		Exclude: "any praise, achievement or favourable assessment",
		Queries: []string{
			"{topic} controversy",
			"{topic} criticism",
			"{topic} failures",
			"{topic} human rights issues",
		},
		Deeper: []string{
			"{topic} opposition",
			"{topic} consequences",
		},
	}
}

// QueriesFor expands the role's templates for a topic. When refine is set
// the deeper templates are added after the base ones.
func (r Role) QueriesFor(topic string, refine bool) []string {
	templates := r.Queries
	if refine {
		templates = append(append([]string(nil), r.Queries...), r.Deeper...)
	}
	out := make([]string, 0, len(templates))
	for _, t := range templates {
		out = append(out, strings.ReplaceAll(t, "{topic}", topic))
	}
	return out
}

// Brief is the typed input a worker reads from state at the start of each run.
type Brief struct {
	Topic    string
	Feedback string // Evaluator critique from the previous iteration, if any
	Prior    string // What this worker has already contributed
}

// HasFeedback reports whether the previous iteration was rejected.
func (b Brief) HasFeedback() bool {
	return strings.TrimSpace(b.Feedback) != ""
}

// ReadBrief reads the worker's inputs from the store.
func ReadBrief(store *state.Store, own state.Field) (Brief, error) {
	topic := strings.TrimSpace(store.Value(state.Topic))
	if topic == "" {
		return Brief{}, ErrNoTopic
	}
	return Brief{
		Topic:    topic,
		Feedback: store.Value(state.EvaluatorFeedback),
		Prior:    store.Value(own),
	}, nil
}
