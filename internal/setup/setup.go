// Package setup provides the interactive wizard that writes court.toml.
package setup

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/vinayprograms/agentkit/credentials"
	"github.com/vinayprograms/court/internal/config"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("99")).
			MarginBottom(1)

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("170")).
			Bold(true)

	normalStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

// Step is a wizard screen.
type Step int

const (
	StepWelcome Step = iota
	StepProvider
	StepModel
	StepAPIKey
	StepReportsDir
	StepIterations
	StepConfirm
	StepComplete
)

type providerOption struct {
	name  string
	label string
	model string // suggested default
}

var providers = []providerOption{
	{"google", "Google Gemini", "gemini-2.5-flash"},
	{"anthropic", "Anthropic Claude", "claude-sonnet-4-5"},
	{"openai", "OpenAI", "gpt-4o"},
	{"groq", "Groq", "llama-3.3-70b-versatile"},
	{"mistral", "Mistral", "mistral-large-latest"},
}

// Answers collects what the wizard asked for.
type Answers struct {
	Provider      string
	Model         string
	APIKey        string
	ReportsDir    string
	MaxIterations int
}

// Config returns the configuration the answers describe, on top of defaults.
func (a Answers) Config() *config.Config {
	cfg := config.New()
	cfg.LLM.Provider = a.Provider
	cfg.LLM.Model = a.Model
	cfg.LLM.APIKeyEnv = config.DefaultAPIKeyEnv(a.Provider)
	if a.ReportsDir != "" {
		cfg.Storage.ReportsDir = a.ReportsDir
	}
	if a.MaxIterations > 0 {
		cfg.Trial.MaxIterations = a.MaxIterations
	}
	return cfg
}

// Encode renders cfg as TOML.
func Encode(cfg *config.Config) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString("# court configuration, written by `court setup`\n\n")
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return nil, fmt.Errorf("encoding config: %w", err)
	}
	return buf.Bytes(), nil
}

// Model is the bubbletea model for the wizard.
type Model struct {
	step    Step
	cursor  int
	input   textinput.Model
	answers Answers
	path    string // court.toml destination
	written []string
	err     error

	// saveKey stores the API key; replaced in tests.
	saveKey func(provider, key string) (string, error)
}

// New creates a wizard that writes to path.
func New(path string) Model {
	defaults := config.New()
	ti := textinput.New()
	ti.CharLimit = 256
	ti.Width = 50
	ti.Focus()

	return Model{
		step:    StepWelcome,
		input:   ti,
		path:    path,
		answers: Answers{ReportsDir: defaults.Storage.ReportsDir, MaxIterations: defaults.Trial.MaxIterations},
		saveKey: saveCredential,
	}
}

func saveCredential(provider, key string) (string, error) {
	creds, _, _ := credentials.Load()
	if creds == nil {
		creds = &credentials.Credentials{}
	}
	creds.SetAPIKey(provider, key)
	if err := creds.Save(); err != nil {
		return "", err
	}
	return credentials.DefaultPath(), nil
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

func (m Model) textStep() bool {
	switch m.step {
	case StepModel, StepAPIKey, StepReportsDir, StepIterations:
		return true
	}
	return false
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	if m.textStep() {
		switch key.String() {
		case "ctrl+c":
			return m, tea.Quit
		case "enter":
			return m.advance()
		case "esc":
			return m.back(), nil
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}

	switch key.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "q":
		if m.step == StepWelcome || m.step == StepComplete {
			return m, tea.Quit
		}
		return m.back(), nil
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.step == StepProvider && m.cursor < len(providers)-1 {
			m.cursor++
		}
	case "enter":
		if m.step == StepComplete {
			return m, tea.Quit
		}
		return m.advance()
	}
	return m, nil
}

// advance validates the current screen and moves to the next one.
func (m Model) advance() (tea.Model, tea.Cmd) {
	value := strings.TrimSpace(m.input.Value())
	m.err = nil

	switch m.step {
	case StepWelcome:
		m.step = StepProvider
	case StepProvider:
		p := providers[m.cursor]
		m.answers.Provider = p.name
		m.prompt(StepModel, p.model, textinput.EchoNormal)
	case StepModel:
		if value == "" {
			m.err = fmt.Errorf("model is required")
			return m, nil
		}
		m.answers.Model = value
		m.prompt(StepAPIKey, "", textinput.EchoPassword)
	case StepAPIKey:
		m.answers.APIKey = value
		m.prompt(StepReportsDir, m.answers.ReportsDir, textinput.EchoNormal)
	case StepReportsDir:
		if value != "" {
			m.answers.ReportsDir = value
		}
		m.prompt(StepIterations, strconv.Itoa(m.answers.MaxIterations), textinput.EchoNormal)
	case StepIterations:
		n, err := strconv.Atoi(value)
		if err != nil || n <= 0 {
			m.err = fmt.Errorf("iterations must be a positive number")
			return m, nil
		}
		m.answers.MaxIterations = n
		m.step = StepConfirm
	case StepConfirm:
		m.written, m.err = m.write()
		m.step = StepComplete
	}
	return m, nil
}

func (m *Model) prompt(step Step, value string, mode textinput.EchoMode) {
	m.step = step
	m.input.SetValue(value)
	m.input.EchoMode = mode
	m.input.CursorEnd()
}

func (m Model) back() Model {
	switch m.step {
	case StepProvider:
		m.step = StepWelcome
	case StepModel:
		m.step = StepProvider
	case StepAPIKey:
		m.prompt(StepModel, m.answers.Model, textinput.EchoNormal)
	case StepReportsDir:
		m.prompt(StepAPIKey, m.answers.APIKey, textinput.EchoPassword)
	case StepIterations:
		m.prompt(StepReportsDir, m.answers.ReportsDir, textinput.EchoNormal)
	case StepConfirm:
		m.prompt(StepIterations, strconv.Itoa(m.answers.MaxIterations), textinput.EchoNormal)
	}
	return m
}

// write saves court.toml and, when one was entered, the API key.
func (m Model) write() ([]string, error) {
	data, err := Encode(m.answers.Config())
	if err != nil {
		return nil, err
	}
	if dir := filepath.Dir(m.path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(m.path, data, 0644); err != nil {
		return nil, fmt.Errorf("writing %s: %w", m.path, err)
	}
	files := []string{m.path}

	if m.answers.APIKey != "" {
		path, err := m.saveKey(m.answers.Provider, m.answers.APIKey)
		if err != nil {
			return files, fmt.Errorf("saving credentials: %w", err)
		}
		files = append(files, path)
	}
	return files, nil
}

// View implements tea.Model.
func (m Model) View() string {
	var s strings.Builder
	s.WriteString(titleStyle.Render("⚖  court setup"))
	s.WriteString("\n")

	switch m.step {
	case StepWelcome:
		s.WriteString(normalStyle.Render("This wizard writes " + m.path + " for historical trials.\n\n"))
		s.WriteString(dimStyle.Render("enter: start • q: quit"))
	case StepProvider:
		s.WriteString("Which reasoning service should argue the case?\n\n")
		for i, p := range providers {
			line := fmt.Sprintf("  %s", p.label)
			if i == m.cursor {
				line = selectedStyle.Render("▸ " + p.label)
			}
			s.WriteString(line + "\n")
		}
		s.WriteString("\n" + dimStyle.Render("↑/↓: choose • enter: select • q: back"))
	case StepModel:
		m.viewInput(&s, "Model name:", "")
	case StepAPIKey:
		m.viewInput(&s, "API key (leave empty to use "+config.DefaultAPIKeyEnv(m.answers.Provider)+"):",
			"Stored in the credentials file, not in court.toml")
	case StepReportsDir:
		m.viewInput(&s, "Directory for verdict documents:", "")
	case StepIterations:
		m.viewInput(&s, "Maximum evidence-gathering iterations:", "")
	case StepConfirm:
		s.WriteString("Ready to write:\n\n")
		fmt.Fprintf(&s, "  provider        %s\n", m.answers.Provider)
		fmt.Fprintf(&s, "  model           %s\n", m.answers.Model)
		fmt.Fprintf(&s, "  reports         %s\n", m.answers.ReportsDir)
		fmt.Fprintf(&s, "  max iterations  %d\n", m.answers.MaxIterations)
		if m.answers.APIKey != "" {
			s.WriteString("  api key         ********\n")
		}
		s.WriteString("\n" + dimStyle.Render("enter: write • q: back"))
	case StepComplete:
		if m.err != nil {
			s.WriteString(errorStyle.Render("✗ " + m.err.Error()))
		} else {
			s.WriteString(successStyle.Render("✓ Setup complete"))
		}
		s.WriteString("\n\n")
		for _, f := range m.written {
			s.WriteString("  " + f + "\n")
		}
		s.WriteString("\n" + dimStyle.Render("enter: exit"))
	}
	if m.err != nil && m.step != StepComplete {
		s.WriteString("\n" + errorStyle.Render(m.err.Error()))
	}
	return s.String() + "\n"
}

func (m Model) viewInput(s *strings.Builder, question, hint string) {
	s.WriteString(question + "\n\n")
	s.WriteString(m.input.View() + "\n")
	if hint != "" {
		s.WriteString(dimStyle.Render(hint) + "\n")
	}
	s.WriteString("\n" + dimStyle.Render("enter: next • esc: back"))
}

// Run starts the wizard.
func Run(path string) error {
	final, err := tea.NewProgram(New(path)).Run()
	if err != nil {
		return err
	}
	if m, ok := final.(Model); ok && m.err != nil {
		return m.err
	}
	return nil
}
