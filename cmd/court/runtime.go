// Package main provides runtime wiring for a hearing.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/vinayprograms/agentkit/llm"
	"github.com/vinayprograms/agentkit/logging"
	"github.com/vinayprograms/court/internal/artifact"
	"github.com/vinayprograms/court/internal/config"
	"github.com/vinayprograms/court/internal/events"
	"github.com/vinayprograms/court/internal/lookup"
	"github.com/vinayprograms/court/internal/provider"
	"github.com/vinayprograms/court/internal/retry"
	"github.com/vinayprograms/court/internal/session"
	"github.com/vinayprograms/court/internal/trial"
)

// runtime holds the components of one hearing.
type runtime struct {
	cfg    *config.Config
	quiet  bool
	logger *logging.Logger

	// Components
	worker    llm.Provider
	judge     llm.Provider
	writer    llm.Provider
	searcher  lookup.Searcher
	artifacts *artifact.Store
	sessions  *session.FileStore
	recorder  *session.Recorder
	observers trial.Observers
	court     *trial.Court

	// Cleanup
	closers []func()
}

func newRuntime(cfg *config.Config) *runtime {
	return &runtime{
		cfg:    cfg,
		logger: logging.New().WithComponent("court"),
	}
}

func (rt *runtime) addCloser(fn func()) {
	rt.closers = append(rt.closers, fn)
}

// close runs closers in reverse order.
func (rt *runtime) close() {
	for i := len(rt.closers) - 1; i >= 0; i-- {
		rt.closers[i]()
	}
}

// setup initializes all runtime components.
func (rt *runtime) setup(ctx context.Context) error {
	if err := rt.createProviders(ctx); err != nil {
		return err
	}
	rt.createSearcher()
	rt.artifacts = artifact.NewStore(config.ExpandPath(rt.cfg.Storage.ReportsDir))
	if err := rt.setupSession(); err != nil {
		return err
	}
	if err := rt.setupObservers(); err != nil {
		return err
	}

	court, err := trial.New(trial.Options{
		Worker:      rt.worker,
		Judge:       rt.judge,
		Writer:      rt.writer,
		Searcher:    rt.searcher,
		Artifacts:   rt.artifacts,
		Observer:    rt.observers,
		Trial:       rt.cfg.Trial,
		FrontMatter: rt.cfg.Storage.FrontMatter,
	})
	if err != nil {
		return fmt.Errorf("building court: %w", err)
	}
	rt.court = court
	return nil
}

// providerConfig translates LLM settings into a provider config.
func providerConfig(l config.LLMConfig) (provider.Config, error) {
	delay, err := l.InitialDelay()
	if err != nil {
		return provider.Config{}, err
	}
	var maxDelay time.Duration
	if l.RetryBackoff != "" {
		if maxDelay, err = time.ParseDuration(l.RetryBackoff); err != nil {
			return provider.Config{}, fmt.Errorf("invalid llm.retry_backoff %q: %w", l.RetryBackoff, err)
		}
	}
	pc := provider.Config{
		Provider:     l.Provider,
		Model:        l.Model,
		MaxTokens:    l.MaxTokens,
		BaseURL:      l.BaseURL,
		Thinking:     l.Thinking,
		Attempts:     l.Attempts(),
		InitialDelay: delay,
		MaxDelay:     maxDelay,
	}
	pc.APIKey = apiKey(pc.ResolveName(), l)
	return pc, nil
}

// apiKey prefers credentials.toml, then the configured environment variable.
func apiKey(name string, l config.LLMConfig) string {
	if globalCreds != nil {
		if key := globalCreds.GetAPIKey(name); key != "" {
			return key
		}
	}
	return l.APIKeyFromEnv()
}

// createProviders builds the worker, judge and writer. The writer runs at
// temperature 0 so the verdict is reproducible.
func (rt *runtime) createProviders(ctx context.Context) error {
	workerCfg, err := providerConfig(rt.cfg.LLM)
	if err != nil {
		return err
	}
	if rt.worker, err = provider.New(ctx, workerCfg, nil); err != nil {
		return err
	}

	zero := float32(0)
	if rt.writer, err = provider.New(ctx, workerCfg, &zero); err != nil {
		return err
	}

	if rt.cfg.Judge.Model == "" {
		rt.judge = rt.worker
		return nil
	}
	judgeCfg, err := providerConfig(rt.cfg.JudgeLLM())
	if err != nil {
		return err
	}
	if rt.judge, err = provider.New(ctx, judgeCfg, nil); err != nil {
		return fmt.Errorf("judge: %w", err)
	}
	return nil
}

func (rt *runtime) createSearcher() {
	lc := rt.cfg.Lookup
	policy := retry.Default()
	policy.Attempts = rt.cfg.LLM.Attempts()
	rt.searcher = lookup.NewWikipedia(lookup.WikipediaConfig{
		Endpoint:  lc.Endpoint,
		Results:   lc.Results,
		MaxChars:  lc.MaxChars,
		UserAgent: lc.UserAgent,
		Timeout:   time.Duration(lc.Timeout) * time.Second,
		Retry:     policy,
	})
}

// setupSession creates the transcript store and recorder.
func (rt *runtime) setupSession() error {
	store, err := session.NewFileStore(sessionDir(rt.cfg))
	if err != nil {
		return fmt.Errorf("creating session store: %w", err)
	}
	rt.sessions = store
	rt.recorder = session.NewRecorder(store)
	return nil
}

// setupObservers fans run events out to the transcript, console, telemetry
// and, when configured, NATS.
func (rt *runtime) setupObservers() error {
	rt.observers = trial.Observers{rt.recorder}
	if !rt.quiet {
		rt.observers = append(rt.observers, events.NewConsole(os.Stderr))
	}

	tc := rt.cfg.Telemetry
	tel, closeTel, err := events.NewTelemetry(tc.Enabled, tc.Protocol, tc.Endpoint)
	if err != nil {
		return fmt.Errorf("creating telemetry exporter: %w", err)
	}
	rt.addCloser(closeTel)
	rt.observers = append(rt.observers, tel)

	if ec := rt.cfg.Events; ec.NATSURL != "" {
		pub, err := events.Connect(ec.NATSURL, ec.Subject)
		if err != nil {
			// Publishing is best effort; the hearing runs without it.
			rt.logger.Warn("event publishing disabled", map[string]interface{}{"error": err.Error()})
		} else {
			rt.addCloser(func() { pub.Close() })
			rt.observers = append(rt.observers, pub)
		}
	}
	return nil
}

// hear runs the trial and finalizes the transcript.
func (rt *runtime) hear(ctx context.Context, topic string) (*trial.Result, error) {
	res, err := rt.court.Hear(ctx, topic)
	if res != nil && rt.recorder.Session() != nil {
		if cerr := rt.recorder.Complete(res); cerr != nil {
			rt.logger.Warn("transcript not saved", map[string]interface{}{"error": cerr.Error()})
		}
	}
	return res, err
}

// printSummary writes where the verdict and transcript went.
func (rt *runtime) printSummary(res *trial.Result) {
	w := os.Stderr
	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s %s\n", labelStyle.Render("Outcome:   "),
		statusText(string(res.Outcome.State))+fmt.Sprintf(" after %d iteration(s)", res.Outcome.Iterations))
	if res.Report != nil && res.Report.Location != "" {
		fmt.Fprintf(w, "%s %s\n", labelStyle.Render("Verdict:   "), res.Report.Location)
		if len(res.Report.Problems) > 0 {
			fmt.Fprintf(w, "%s %s\n", labelStyle.Render("           "),
				warnStyle.Render(fmt.Sprintf("%d format problem(s) remain", len(res.Report.Problems))))
		}
	}
	if res.RunID != "" && rt.sessions != nil {
		fmt.Fprintf(w, "%s %s\n", labelStyle.Render("Transcript:"), rt.sessions.Path(res.RunID))
		fmt.Fprintf(w, "%s %s\n", labelStyle.Render("           "), dimStyle.Render("court replay "+res.RunID))
	}
}
