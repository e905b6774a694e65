package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/vinayprograms/court/internal/trial"
)

const topicQuestion = "Which historical figure or event should stand trial?"

// errCancelled is returned when the user leaves the prompt without answering.
var errCancelled = errors.New("cancelled")

// promptTopic asks for the topic once: an input field on a terminal, one
// line of in otherwise.
func promptTopic(in *os.File, out io.Writer) (string, error) {
	if isTerminal(in) {
		return askInteractive()
	}
	fmt.Fprintln(out, topicQuestion)
	return readTopic(in)
}

// readTopic reads the first line of r.
func readTopic(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("reading topic: %w", err)
	}
	topic := strings.TrimSpace(line)
	if topic == "" {
		return "", trial.ErrNoTopic
	}
	return topic, nil
}

type topicModel struct {
	input     textinput.Model
	done      bool
	cancelled bool
}

func newTopicModel() topicModel {
	ti := textinput.New()
	ti.Placeholder = "e.g. Napoleon Bonaparte"
	ti.CharLimit = 200
	ti.Width = 50
	ti.Focus()
	return topicModel{input: ti}
}

func (m topicModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m topicModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.Type {
		case tea.KeyEnter:
			if strings.TrimSpace(m.input.Value()) == "" {
				return m, nil
			}
			m.done = true
			return m, tea.Quit
		case tea.KeyCtrlC, tea.KeyEsc:
			m.cancelled = true
			return m, tea.Quit
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m topicModel) View() string {
	if m.done || m.cancelled {
		return ""
	}
	return labelStyle.Render("⚖  ") + topicQuestion + "\n\n" + m.input.View() + "\n\n" +
		dimStyle.Render("enter: begin the hearing • esc: cancel") + "\n"
}

func (m topicModel) topic() string {
	return strings.TrimSpace(m.input.Value())
}

func askInteractive() (string, error) {
	final, err := tea.NewProgram(newTopicModel()).Run()
	if err != nil {
		return "", err
	}
	m := final.(topicModel)
	if m.cancelled {
		return "", errCancelled
	}
	return m.topic(), nil
}
