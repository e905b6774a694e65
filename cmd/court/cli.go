// Package main defines the CLI structure using kong.
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/vinayprograms/court/internal/config"
	"github.com/vinayprograms/court/internal/replay"
	"github.com/vinayprograms/court/internal/session"
	"github.com/vinayprograms/court/internal/setup"
)

// CLI defines the command-line interface.
type CLI struct {
	Hear    HearCmd    `cmd:"" help:"Hold a trial and write the verdict"`
	Replay  ReplayCmd  `cmd:"" help:"Replay a hearing transcript"`
	List    ListCmd    `cmd:"" help:"List recorded hearings, newest first"`
	Setup   SetupCmd   `cmd:"" help:"Interactive setup wizard"`
	Version VersionCmd `cmd:"" help:"Show version information"`
}

// HearCmd runs one trial.
type HearCmd struct {
	Topic    string `arg:"" optional:"" help:"Person or event to put on trial (prompted for when omitted)"`
	Config   string `short:"c" help:"Config file path (default: ./court.toml)"`
	Reports  string `help:"Directory for verdict documents (overrides config)"`
	NoRender bool   `help:"Do not print the verdict after writing it"`
	Quiet    bool   `short:"q" help:"Suppress progress output"`
}

// ReplayCmd replays a transcript.
type ReplayCmd struct {
	Session string `arg:"" help:"Run ID or transcript path"`
	Config  string `short:"c" help:"Config file path (default: ./court.toml)"`
	Verbose int    `short:"v" type:"counter" help:"Verbosity level (-v, -vv)"`
	NoPager bool   `help:"Disable pager for output"`
	Follow  bool   `short:"f" help:"Keep the pager open and refresh as the hearing progresses"`
}

// ListCmd lists recorded transcripts.
type ListCmd struct {
	Config string `short:"c" help:"Config file path (default: ./court.toml)"`
}

// SetupCmd writes a config file interactively.
type SetupCmd struct {
	Output string `short:"o" default:"court.toml" help:"Where to write the config"`
}

// VersionCmd shows version information.
type VersionCmd struct{}

// kongVars returns variables for kong (version info).
func kongVars() kong.Vars {
	return kong.Vars{
		"version": version,
	}
}

// Run executes the hear command.
func (c *HearCmd) Run() error {
	cfg, err := loadConfig(c.Config)
	if err != nil {
		return err
	}
	if c.Reports != "" {
		cfg.Storage.ReportsDir = c.Reports
	}

	topic := c.Topic
	if topic == "" {
		topic, err = promptTopic(os.Stdin, os.Stderr)
		if err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt := newRuntime(cfg)
	rt.quiet = c.Quiet
	defer rt.close()
	if err := rt.setup(ctx); err != nil {
		return err
	}

	res, err := rt.hear(ctx, topic)
	if res != nil && res.Report != nil && !c.NoRender {
		if out, rerr := renderVerdict(res.Report.Document, terminalWidth()); rerr == nil {
			fmt.Println(out)
		}
	}
	if res != nil {
		rt.printSummary(res)
	}
	return err
}

// Run executes the replay command.
func (c *ReplayCmd) Run() error {
	path, err := resolveTranscript(c.Session, c.Config)
	if err != nil {
		return err
	}
	r := replay.New(os.Stdout, c.Verbose, replay.WithWidth(terminalWidth()))
	switch {
	case c.Follow:
		return r.ReplayFileLive(path)
	case !c.NoPager && isTerminal(os.Stdout):
		return r.ReplayFileInteractive(path)
	default:
		return r.ReplayFile(path)
	}
}

// Run executes the list command.
func (c *ListCmd) Run() error {
	cfg, err := loadConfig(c.Config)
	if err != nil {
		return err
	}
	store, err := session.NewFileStore(sessionDir(cfg))
	if err != nil {
		return err
	}
	ids, err := store.List()
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		fmt.Println(dimStyle.Render("no hearings recorded in " + store.Dir()))
		return nil
	}
	for _, id := range ids {
		sess, err := store.Load(id)
		if err != nil {
			fmt.Printf("%s  %s\n", id, errorStyle.Render("unreadable: "+err.Error()))
			continue
		}
		fmt.Printf("%s  %s  %-9s %s\n",
			dimStyle.Render(sess.CreatedAt.Local().Format("2006-01-02 15:04")),
			id,
			statusText(sess.Status),
			sess.Topic)
	}
	return nil
}

// Run executes the setup wizard.
func (c *SetupCmd) Run() error {
	return setup.Run(c.Output)
}

// Run prints version information.
func (c *VersionCmd) Run() error {
	fmt.Printf("court version %s (commit: %s, built: %s)\n", version, commit, buildTime)
	return nil
}

// loadConfig reads path, or ./court.toml when present, then applies the
// environment and validates.
func loadConfig(path string) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	switch {
	case path != "":
		cfg, err = config.LoadFile(path)
	default:
		cfg, err = config.LoadDefault()
		if err != nil && errors.Is(err, fs.ErrNotExist) {
			cfg, err = config.New(), nil
		}
	}
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// resolveTranscript accepts either a transcript path or a run ID.
func resolveTranscript(ref, configPath string) (string, error) {
	if filepath.Ext(ref) == ".jsonl" {
		return ref, nil
	}
	if _, err := os.Stat(ref); err == nil {
		return ref, nil
	}
	cfg, err := loadConfig(configPath)
	if err != nil {
		return "", err
	}
	return filepath.Join(sessionDir(cfg), ref+".jsonl"), nil
}

func sessionDir(cfg *config.Config) string {
	return filepath.Join(config.ExpandPath(cfg.Storage.Path), "sessions")
}
