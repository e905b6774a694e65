package replay

import (
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/muesli/reflow/wordwrap"
	"github.com/vinayprograms/court/internal/session"
)

// contentPrefix aligns wrapped content under the event column.
const contentPrefix = "      │              │   "

// Replayer formats a transcript as a timeline.
type Replayer struct {
	output         io.Writer
	verbosity      int // 0=normal, 1=evidence text (-v), 2=full prompts (-vv)
	maxContentSize int // Bytes kept per content field (0 = unlimited)
	width          int // Wrap width for content blocks
}

// ReplayerOption configures a Replayer.
type ReplayerOption func(*Replayer)

// WithMaxContentSize limits content field size on very large transcripts.
func WithMaxContentSize(size int) ReplayerOption {
	return func(r *Replayer) {
		r.maxContentSize = size
	}
}

// WithWidth sets the wrap width for content blocks.
func WithWidth(width int) ReplayerOption {
	return func(r *Replayer) {
		r.width = width
	}
}

// New creates a Replayer.
func New(output io.Writer, verbosity int, opts ...ReplayerOption) *Replayer {
	r := &Replayer{
		output:         output,
		verbosity:      verbosity,
		maxContentSize: 50 * 1024,
		width:          100,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ReplayFile loads and replays a transcript file.
func (r *Replayer) ReplayFile(path string) error {
	sess, err := r.load(path)
	if err != nil {
		return err
	}
	return r.Replay(sess)
}

// Render returns the replay of path as a string.
func (r *Replayer) Render(path string) (string, error) {
	sess, err := r.load(path)
	if err != nil {
		return "", err
	}
	var buf strings.Builder
	out := r.output
	r.output = &buf
	err = r.Replay(sess)
	r.output = out
	return buf.String(), err
}

// ReplayFileInteractive renders the transcript into a scrollable pager.
func (r *Replayer) ReplayFileInteractive(path string) error {
	content, err := r.Render(path)
	if err != nil {
		return err
	}
	return newPager(fmt.Sprintf("Hearing: %s", sessionID(path))).run(content)
}

// ReplayFileLive pages the transcript and re-renders it whenever the file
// changes, so a hearing can be followed while it runs.
func (r *Replayer) ReplayFileLive(path string) error {
	return newPager(fmt.Sprintf("Hearing: %s (LIVE)", sessionID(path))).runLive(path, func() (string, error) {
		return r.Render(path)
	})
}

func (r *Replayer) load(path string) (*session.Session, error) {
	sess, err := session.LoadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read transcript: %w", err)
	}
	if r.maxContentSize > 0 {
		for i := range sess.Events {
			sess.Events[i].Content = r.clip(sess.Events[i].Content)
			if m := sess.Events[i].Meta; m != nil {
				m.Prompt = r.clip(m.Prompt)
				m.Response = r.clip(m.Response)
			}
		}
	}
	return sess, nil
}

func (r *Replayer) clip(s string) string {
	if len(s) <= r.maxContentSize {
		return s
	}
	return s[:r.maxContentSize] + fmt.Sprintf("\n... [truncated, %d bytes total]", len(s))
}

// Replay writes the header, timeline and summary of sess.
func (r *Replayer) Replay(sess *session.Session) error {
	r.printHeader(sess)
	r.printTimeline(sess)
	r.printSummary(sess)
	return nil
}

func (r *Replayer) printHeader(sess *session.Session) {
	fmt.Fprintln(r.output)
	fmt.Fprintf(r.output, "%s %s\n", titleStyle.Render("HEARING"), valueStyle.Render(sess.ID))
	fmt.Fprintln(r.output, divider)
	fmt.Fprintf(r.output, "%s %s\n", labelStyle.Render("Topic:   "), valueStyle.Render(sess.Topic))
	fmt.Fprintf(r.output, "%s %s\n", labelStyle.Render("Status:  "), statusStyle(sess.Status).Render(sess.Status))
	fmt.Fprintf(r.output, "%s %s\n", labelStyle.Render("Created: "), valueStyle.Render(sess.CreatedAt.Format(time.RFC3339)))
	if sess.Outcome != "" {
		fmt.Fprintf(r.output, "%s %s\n", labelStyle.Render("Outcome: "),
			statusStyle(sess.Outcome).Render(fmt.Sprintf("%s after %d iteration(s)", sess.Outcome, sess.Iterations)))
	}
	if sess.Report != "" {
		fmt.Fprintf(r.output, "%s %s\n", labelStyle.Render("Report:  "), valueStyle.Render(sess.Report))
	}
	fmt.Fprintln(r.output)
}

func (r *Replayer) printTimeline(sess *session.Session) {
	fmt.Fprintf(r.output, "%s %s\n", titleStyle.Render("TIMELINE"), dimStyle.Render(fmt.Sprintf("(%d events)", len(sess.Events))))
	fmt.Fprintln(r.output, divider)
	for i := range sess.Events {
		r.formatEvent(&sess.Events[i])
	}
}

func (r *Replayer) printSummary(sess *session.Session) {
	fmt.Fprintln(r.output)
	fmt.Fprintln(r.output, divider)

	switch sess.Status {
	case session.StatusComplete:
		fmt.Fprintln(r.output, successStyle.Render("COMPLETED"))
	case session.StatusFailed:
		fmt.Fprintf(r.output, "%s %s\n", errorStyle.Render("FAILED:"), valueStyle.Render(sess.Error))
	default:
		fmt.Fprintln(r.output, warnStyle.Render("RUNNING"))
	}

	if r.verbosity >= 1 && len(sess.State) > 0 {
		fmt.Fprintln(r.output)
		fmt.Fprintln(r.output, titleStyle.Render("FINAL STATE"))
		keys := make([]string, 0, len(sess.State))
		for k := range sess.State {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(r.output, "%s\n", labelStyle.Render(k+":"))
			r.printContent(sess.State[k])
		}
	}

	PrintStats(r.output, ComputeStats(sess))
}

// printContent wraps content to the replay width under the event column.
func (r *Replayer) printContent(content string) {
	width := r.width - len([]rune(contentPrefix))
	if width < 20 {
		width = 20
	}
	for _, line := range strings.Split(wordwrap.String(content, width), "\n") {
		fmt.Fprintf(r.output, "%s%s\n", contentPrefix, line)
	}
}

func (r *Replayer) printError(err string) {
	fmt.Fprintf(r.output, "%s%s\n", contentPrefix, errorStyle.Render(err))
}

func sessionID(path string) string {
	return strings.TrimSuffix(filepath.Base(path), ".jsonl")
}
