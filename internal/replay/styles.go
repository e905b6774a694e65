// Package replay renders hearing transcripts for review.
package replay

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Each agent has its own color so interleaved fan-out events stay readable.
var (
	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("8")) // Gray - metadata

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("8"))

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("15"))

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15"))

	iterationStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("12")) // Blue

	advocateStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("10")) // Green

	criticStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("9")) // Red

	evaluatorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("11")) // Yellow

	synthesizerStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("13")) // Magenta

	lookupStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("14")) // Cyan

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("10"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("9"))

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("11"))

	seqStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("8")).
			Width(5).
			Align(lipgloss.Right)

	timeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("8"))

	divider = lipgloss.NewStyle().
		Foreground(lipgloss.Color("8")).
		Render(strings.Repeat("━", 60))
)

func agentStyle(agent string) lipgloss.Style {
	switch agent {
	case "advocate":
		return advocateStyle
	case "critic":
		return criticStyle
	case "evaluator":
		return evaluatorStyle
	case "synthesizer":
		return synthesizerStyle
	default:
		return valueStyle
	}
}

func statusStyle(status string) lipgloss.Style {
	switch status {
	case "complete", "accepted", "accept":
		return successStyle
	case "failed":
		return errorStyle
	default:
		return warnStyle
	}
}
