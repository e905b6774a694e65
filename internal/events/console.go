package events

import (
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/vinayprograms/court/internal/trial"
)

var (
	consoleDim  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	consoleBold = lipgloss.NewStyle().Bold(true)
	consoleOK   = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	consoleBad  = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	consoleWarn = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
)

// Console prints a one-line progress note for the milestones of a run.
type Console struct {
	mu  sync.Mutex
	out io.Writer
}

// NewConsole writes progress to out.
func NewConsole(out io.Writer) *Console {
	return &Console{out: out}
}

// Observe prints e if it is a milestone.
func (c *Console) Observe(e trial.Event) {
	line := c.format(e)
	if line == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(c.out, line)
}

func (c *Console) format(e trial.Event) string {
	switch e.Kind {
	case trial.EventRunStart:
		return consoleBold.Render("⚖ Hearing: ") + e.Detail
	case trial.EventIterationStart:
		return consoleBold.Render(fmt.Sprintf("── Iteration %d", e.Iteration))
	case trial.EventEvidence:
		return fmt.Sprintf("   %s %s", e.Agent, consoleDim.Render(fmt.Sprintf("added %d words", e.Words)))
	case trial.EventWorkerEnd:
		if e.Err != nil {
			return fmt.Sprintf("   %s %s", e.Agent, consoleBad.Render("failed: "+e.Err.Error()))
		}
	case trial.EventVerdict:
		if e.Detail == trial.Accept.String() {
			return "   evaluator " + consoleOK.Render("accepted the evidence")
		}
		return "   evaluator " + consoleWarn.Render("requested more: ") + consoleDim.Render(e.Response)
	case trial.EventLoopEnd:
		return consoleDim.Render(fmt.Sprintf("── Loop %s after %d iteration(s)", e.Detail, e.Iteration))
	case trial.EventDraftRejected:
		return "   synthesizer " + consoleWarn.Render("redrafting: ") + consoleDim.Render(e.Detail)
	case trial.EventPersisted:
		return "   synthesizer " + consoleOK.Render("verdict written to ") + e.Detail
	case trial.EventRunEnd:
		if e.Err != nil {
			return consoleBad.Render("✗ Hearing failed: ") + e.Err.Error()
		}
		return consoleOK.Render("✓ Hearing complete") + consoleDim.Render(fmt.Sprintf(" (%s)", e.Duration.Round(1e6)))
	}
	return ""
}
