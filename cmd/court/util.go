package main

import (
	"os"
	"strconv"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/vinayprograms/court/internal/artifact"
)

var (
	labelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	errorStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
)

// isTerminal checks if the given file is a terminal.
func isTerminal(f *os.File) bool {
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return (fi.Mode() & os.ModeCharDevice) != 0
}

// terminalWidth reads $COLUMNS, defaulting to 100.
func terminalWidth() int {
	if n, err := strconv.Atoi(os.Getenv("COLUMNS")); err == nil && n > 20 {
		return n
	}
	return 100
}

func statusText(status string) string {
	switch status {
	case "complete", "accepted":
		return successStyle.Render(status)
	case "failed":
		return errorStyle.Render(status)
	default:
		return warnStyle.Render(status)
	}
}

// renderVerdict formats a verdict document for the terminal. Front matter is
// dropped; the file keeps it.
func renderVerdict(doc string, width int) (string, error) {
	if _, body, err := artifact.SplitFrontMatter(doc); err == nil {
		doc = body
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return "", err
	}
	return r.Render(doc)
}
