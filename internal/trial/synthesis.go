package trial

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/vinayprograms/agentkit/llm"
	"github.com/vinayprograms/agentkit/logging"
	"github.com/vinayprograms/court/internal/artifact"
	"github.com/vinayprograms/court/internal/state"
)

// Sections are the required H2 headings of a verdict, in order.
var Sections = []string{
	"Introduction",
	"Positive Analysis",
	"Negative Analysis",
	"Critical Comparison",
	"Neutral Historical Verdict",
}

// ErrEmptyReport is returned when no attempt produced any document text.
var ErrEmptyReport = errors.New("reasoning service returned an empty verdict")

var (
	listItem  = regexp.MustCompile(`(?m)^\s*(?:[-*+]|\d+[.)])\s+\S`)
	boldSpan  = regexp.MustCompile(`\*\*[^*\n]+\*\*|__[^_\n]+__`)
	separator = regexp.MustCompile(`(?m)^\s*(?:-{3,}|\*{3,}|_{3,})\s*$`)
)

// CheckDocument validates a verdict's structure and length. It returns one
// problem per unmet convention; an empty result means the document conforms.
func CheckDocument(doc string, minWords int) []string {
	var problems []string

	headings := headingsAt(doc, "## ")
	next := 0
	for _, want := range Sections {
		from, found := next, false
		for next < len(headings) {
			h := headings[next]
			next++
			if strings.Contains(strings.ToLower(h), strings.ToLower(want)) {
				found = true
				break
			}
		}
		if !found {
			problems = append(problems, fmt.Sprintf("missing section %q (sections must appear in order)", want))
			next = from
		}
	}

	if len(headingsAt(doc, "### ")) == 0 {
		problems = append(problems, "no H3 subsections")
	}
	if !listItem.MatchString(doc) {
		problems = append(problems, "no bulleted or numbered list")
	}
	if !boldSpan.MatchString(doc) {
		problems = append(problems, "no bold key terms")
	}
	if !separator.MatchString(doc) {
		problems = append(problems, "no section separators (---)")
	}
	if n := WordCount(doc); n < minWords {
		problems = append(problems, fmt.Sprintf("document has %d words, need at least %d", n, minWords))
	}
	return problems
}

func headingsAt(doc, prefix string) []string {
	var out []string
	for _, line := range strings.Split(doc, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, prefix) {
			out = append(out, strings.TrimSpace(strings.TrimPrefix(line, prefix)))
		}
	}
	return out
}

// Report is the synthesized verdict and where it was written.
type Report struct {
	Document string   // Markdown body without front matter
	Location string   // Absolute path of the persisted file
	Problems []string // Conventions the persisted draft still misses
	Attempts int
	Model    string
}

// SynthesizerConfig tunes the synthesis stage.
type SynthesizerConfig struct {
	MinWords    int  // Minimum verdict length
	Attempts    int  // Total drafts allowed, including the first
	FrontMatter bool // Prefix the persisted file with YAML metadata
}

// Synthesizer writes the verdict once the loop has ended.
type Synthesizer struct {
	artifacts *artifact.Store
	cfg       SynthesizerConfig
	caller
}

// NewSynthesizer creates a synthesizer. The provider should be configured for
// deterministic output.
func NewSynthesizer(provider llm.Provider, artifacts *artifact.Store, cfg SynthesizerConfig) *Synthesizer {
	if cfg.Attempts <= 0 {
		cfg.Attempts = 1
	}
	return &Synthesizer{
		artifacts: artifacts,
		cfg:       cfg,
		caller: caller{
			provider: provider,
			logger:   logging.New().WithComponent("synthesizer"),
		},
	}
}

// SetObserver sets the observer for run events.
func (s *Synthesizer) SetObserver(o Observer) { s.observer = o }

// Synthesize drafts the verdict from whatever evidence exists, re-prompting
// with the list of problems while drafts fail CheckDocument, then persists
// the last draft under a name derived from the topic.
func (s *Synthesizer) Synthesize(ctx context.Context, store *state.Store, outcome Outcome, runID string) (rep *Report, err error) {
	ctx, span := startAgentSpan(ctx, "synthesizer", 0)
	start := time.Now()
	defer func() {
		var doc string
		if rep != nil {
			doc = rep.Document
		}
		endAgentSpan(span, doc, err)
	}()

	topic := store.Value(state.Topic)
	positive := store.Value(state.PositiveEvidence)
	negative := store.Value(state.NegativeEvidence)

	s.logger.PhaseStart("SYNTHESIZE", topic, string(outcome.State))
	notify(s.observer, Event{Kind: EventSynthesisStart, Agent: "synthesizer", Detail: string(outcome.State)})

	rep = &Report{}
	var draft string
	for attempt := 1; attempt <= s.cfg.Attempts; attempt++ {
		b := newContextBuilder(topic).
			add("loop-outcome", fmt.Sprintf("%s after %d iteration(s)", outcome.State, outcome.Iterations)).
			add("positive-evidence", positive).
			add("negative-evidence", negative)
		if attempt > 1 {
			b.add("previous-draft", draft).
				add("format-problems", "- "+strings.Join(rep.Problems, "\n- "))
		}
		b.setTask(s.task(attempt > 1))

		resp, err := s.chat(ctx, "synthesizer", 0, synthesisSystemPrompt, b.build())
		if err != nil {
			return nil, err
		}
		if doc := cleanOutput(resp.Content); doc != "" {
			draft = doc
		}
		rep.Attempts = attempt
		rep.Model = resp.Model
		rep.Problems = CheckDocument(draft, s.cfg.MinWords)
		if draft == "" {
			rep.Problems = []string{"document is empty"}
		}
		if len(rep.Problems) == 0 {
			break
		}

		s.logger.Warn("draft does not conform", map[string]interface{}{
			"attempt":  attempt,
			"problems": strings.Join(rep.Problems, "; "),
		})
		notify(s.observer, Event{
			Kind:   EventDraftRejected,
			Agent:  "synthesizer",
			Detail: strings.Join(rep.Problems, "; "),
			Words:  WordCount(draft),
		})
	}
	if draft == "" {
		return nil, fmt.Errorf("synthesizer: %w", ErrEmptyReport)
	}
	rep.Document = draft

	content := draft
	if s.cfg.FrontMatter {
		content, err = artifact.WithFrontMatter(artifact.Meta{
			Topic:      topic,
			Outcome:    string(outcome.State),
			Iterations: outcome.Iterations,
			Model:      rep.Model,
			RunID:      runID,
			Problems:   rep.Problems,
			Generated:  time.Now().UTC(),
		}, draft)
		if err != nil {
			return nil, fmt.Errorf("synthesizer: %w", err)
		}
	}

	rep.Location, err = s.artifacts.Persist(artifact.FileName(topic), content)
	if err != nil {
		return nil, fmt.Errorf("synthesizer: %w", err)
	}

	notify(s.observer, Event{
		Kind:     EventPersisted,
		Agent:    "synthesizer",
		Detail:   rep.Location,
		Words:    WordCount(draft),
		Duration: time.Since(start),
	})
	s.logger.PhaseComplete("SYNTHESIZE", topic, string(outcome.State), time.Since(start), rep.Location)
	return rep, nil
}

func (s *Synthesizer) task(revise bool) string {
	var sb strings.Builder
	if revise {
		sb.WriteString("Your <previous-draft> does not meet the requirements listed in <format-problems>. Rewrite it in full so that it does.\n\n")
	}
	sb.WriteString(fmt.Sprintf("Write a verdict document of at least %d words in Markdown with these H2 sections, in this order:\n", s.cfg.MinWords))
	for i, name := range Sections {
		sb.WriteString(fmt.Sprintf("%d. ## %s\n", i+1, name))
	}
	sb.WriteString(`
Conventions:
- an H1 title naming the topic
- H3 subsections inside the analysis sections
- bulleted or numbered lists for analytical points
- **bold** for key terms, names and dates
- a line containing only --- between sections

Use only the evidence given. Reply with the document only.`)
	return sb.String()
}

const synthesisSystemPrompt = `You are the judge presiding over a historical trial. You weigh the evidence presented by the advocate and the critic and deliver a balanced, neutral verdict.

You write in a formal register, attribute claims to the evidence, and keep praise and criticism in proportion to what the evidence supports.`
