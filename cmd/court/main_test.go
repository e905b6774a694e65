package main

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alecthomas/kong"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/vinayprograms/court/internal/config"
	"github.com/vinayprograms/court/internal/trial"
)

func parse(t *testing.T, args ...string) (*CLI, *kong.Context) {
	t.Helper()
	var cli CLI
	parser, err := kong.New(&cli, kongVars())
	if err != nil {
		t.Fatal(err)
	}
	ctx, err := parser.Parse(args)
	if err != nil {
		t.Fatal(err)
	}
	return &cli, ctx
}

func TestHearCmd_Topic(t *testing.T) {
	cli, ctx := parse(t, "hear", "Example Reformer", "--no-render")
	if !strings.HasPrefix(ctx.Command(), "hear") {
		t.Errorf("command = %q", ctx.Command())
	}
	if cli.Hear.Topic != "Example Reformer" || !cli.Hear.NoRender {
		t.Errorf("unexpected hear flags %+v", cli.Hear)
	}
}

func TestHearCmd_TopicOptional(t *testing.T) {
	cli, _ := parse(t, "hear", "-c", "other.toml", "--reports", "out")
	if cli.Hear.Topic != "" || cli.Hear.Config != "other.toml" || cli.Hear.Reports != "out" {
		t.Errorf("unexpected hear flags %+v", cli.Hear)
	}
}

func TestReplayCmd_Flags(t *testing.T) {
	cli, _ := parse(t, "replay", "-vv", "--follow", "run-1")
	if cli.Replay.Session != "run-1" || cli.Replay.Verbose != 2 || !cli.Replay.Follow {
		t.Errorf("unexpected replay flags %+v", cli.Replay)
	}
}

func TestSetupCmd_Default(t *testing.T) {
	cli, _ := parse(t, "setup")
	if cli.Setup.Output != "court.toml" {
		t.Errorf("output = %q", cli.Setup.Output)
	}
}

func TestReadTopic(t *testing.T) {
	tests := []struct {
		input string
		want  string
		err   error
	}{
		{"Example Reformer\n", "Example Reformer", nil},
		{"  padded  \nsecond line\n", "padded", nil},
		{"no newline", "no newline", nil},
		{"\n", "", trial.ErrNoTopic},
		{"", "", trial.ErrNoTopic},
	}
	for _, tt := range tests {
		got, err := readTopic(strings.NewReader(tt.input))
		if !errors.Is(err, tt.err) && !(err == nil && tt.err == nil) {
			t.Errorf("readTopic(%q) err = %v, want %v", tt.input, err, tt.err)
		}
		if got != tt.want {
			t.Errorf("readTopic(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestTopicModel(t *testing.T) {
	m := newTopicModel()

	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if next.(topicModel).done {
		t.Error("empty topic accepted")
	}

	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("Example Reformer")})
	next, _ = next.Update(tea.KeyMsg{Type: tea.KeyEnter})
	got := next.(topicModel)
	if !got.done || got.topic() != "Example Reformer" {
		t.Errorf("done %v topic %q", got.done, got.topic())
	}

	next, _ = newTopicModel().Update(tea.KeyMsg{Type: tea.KeyEsc})
	if !next.(topicModel).cancelled {
		t.Error("esc should cancel")
	}
}

func TestLoadConfig_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "court.toml")
	os.WriteFile(path, []byte("[trial]\nmax_iterations = 2\n"), 0644)

	cfg, err := loadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Trial.MaxIterations != 2 || cfg.Trial.MinEvidenceWords != config.New().Trial.MinEvidenceWords {
		t.Errorf("trial = %+v", cfg.Trial)
	}
}

func TestLoadConfig_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "court.toml")
	os.WriteFile(path, []byte("[trial]\nmax_iterations = 0\n"), 0644)
	if _, err := loadConfig(path); err == nil {
		t.Error("expected validation error")
	}
}

func TestLoadConfig_EnvOverride(t *testing.T) {
	t.Setenv("MODEL", "gemini-2.5-pro")
	path := filepath.Join(t.TempDir(), "court.toml")
	os.WriteFile(path, []byte("[llm]\nmodel = \"other\"\n"), 0644)

	cfg, err := loadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.LLM.Model != "gemini-2.5-pro" {
		t.Errorf("model = %q", cfg.LLM.Model)
	}
}

func TestResolveTranscript(t *testing.T) {
	if got, _ := resolveTranscript("some/run.jsonl", ""); got != "some/run.jsonl" {
		t.Errorf("path passthrough = %q", got)
	}

	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "court.toml")
	os.WriteFile(cfgPath, []byte("[storage]\npath = \""+dir+"\"\n"), 0644)
	got, err := resolveTranscript("abc", cfgPath)
	if err != nil {
		t.Fatal(err)
	}
	if want := filepath.Join(dir, "sessions", "abc.jsonl"); got != want {
		t.Errorf("resolved %q, want %q", got, want)
	}
}

func TestProviderConfig(t *testing.T) {
	t.Setenv("GOOGLE_API_KEY", "from-env")
	globalCreds = nil

	l := config.New().LLM
	l.MaxRetries = 2
	l.RetryBackoff = "30s"
	pc, err := providerConfig(l)
	if err != nil {
		t.Fatal(err)
	}
	if pc.Attempts != 3 || pc.MaxDelay.String() != "30s" {
		t.Errorf("retry settings %+v", pc)
	}
	if pc.APIKey != "from-env" {
		t.Errorf("api key = %q", pc.APIKey)
	}

	l.RetryBackoff = "soon"
	if _, err := providerConfig(l); err == nil {
		t.Error("expected error for bad backoff")
	}
}

func TestRenderVerdict_DropsFrontMatter(t *testing.T) {
	doc := "---\ntopic: X\n---\n# Verdict on X\n\nBody text.\n"
	out, err := renderVerdict(doc, 80)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(out, "topic: X") {
		t.Error("front matter rendered")
	}
	if !strings.Contains(out, "Body") {
		t.Errorf("body missing:\n%s", out)
	}
}
