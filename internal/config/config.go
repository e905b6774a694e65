// Package config provides configuration loading and management.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"
)

// Config represents the court configuration.
type Config struct {
	LLM       LLMConfig       `toml:"llm"`
	Judge     LLMConfig       `toml:"judge"` // Optional separate model for the gate evaluator
	Trial     TrialConfig     `toml:"trial"`
	Lookup    LookupConfig    `toml:"lookup"`
	Storage   StorageConfig   `toml:"storage"`
	Telemetry TelemetryConfig `toml:"telemetry"`
	Events    EventsConfig    `toml:"events"`
}

// LLMConfig contains reasoning service settings.
type LLMConfig struct {
	Provider          string `toml:"provider"`
	Model             string `toml:"model"`
	APIKeyEnv         string `toml:"api_key_env"`
	MaxTokens         int    `toml:"max_tokens"`
	BaseURL           string `toml:"base_url"`            // Custom API endpoint (OpenRouter, LiteLLM, Ollama, LMStudio)
	Thinking          string `toml:"thinking"`            // Thinking level: auto|off|low|medium|high
	MaxRetries        int    `toml:"max_retries"`         // Retries after the first attempt (default 5, i.e. 6 attempts)
	RetryInitialDelay string `toml:"retry_initial_delay"` // Delay before the first retry (default "1s")
	RetryBackoff      string `toml:"retry_backoff"`       // Max backoff duration
}

// TrialConfig contains orchestration settings.
type TrialConfig struct {
	MaxIterations     int `toml:"max_iterations"`
	MinEvidenceWords  int `toml:"min_evidence_words"`
	MinVerdictWords   int `toml:"min_verdict_words"`
	SynthesisAttempts int `toml:"synthesis_attempts"`
}

// LookupConfig contains fact-lookup tool settings.
type LookupConfig struct {
	Endpoint  string `toml:"endpoint"`   // MediaWiki API endpoint
	Results   int    `toml:"results"`    // Pages per query
	MaxChars  int    `toml:"max_chars"`  // Cap on the text returned per query
	Timeout   int    `toml:"timeout"`    // Seconds per HTTP request
	UserAgent string `toml:"user_agent"` // Wikipedia requires an identifying agent
}

// StorageConfig contains persistence settings.
type StorageConfig struct {
	Path        string `toml:"path"`         // Base directory for transcripts
	ReportsDir  string `toml:"reports_dir"`  // Where verdict documents are written
	FrontMatter bool   `toml:"front_matter"` // Prefix reports with YAML metadata
}

// TelemetryConfig contains telemetry settings.
type TelemetryConfig struct {
	Enabled  bool   `toml:"enabled"`
	Endpoint string `toml:"endpoint"` // OTLP endpoint (e.g., localhost:4317)
	Protocol string `toml:"protocol"` // grpc (default) or http
}

// EventsConfig enables publishing run events to NATS.
type EventsConfig struct {
	NATSURL string `toml:"nats_url"`
	Subject string `toml:"subject"`
}

// Overrides are the environment variables the CLI honors.
type Overrides struct {
	Model             string `env:"MODEL"`
	Provider          string `env:"COURT_PROVIDER"`
	MaxRetries        *int   `env:"COURT_MAX_RETRIES"`
	RetryInitialDelay string `env:"COURT_RETRY_DELAY"`
	ReportsDir        string `env:"COURT_REPORTS_DIR"`
}

// New creates a new config with defaults.
func New() *Config {
	return &Config{
		LLM: LLMConfig{
			Provider:          "google",
			Model:             "gemini-2.5-flash",
			MaxTokens:         4096,
			MaxRetries:        5,
			RetryInitialDelay: "1s",
		},
		Trial: TrialConfig{
			MaxIterations:     5,
			MinEvidenceWords:  120,
			MinVerdictWords:   350,
			SynthesisAttempts: 2,
		},
		Lookup: LookupConfig{
			Endpoint:  "https://en.wikipedia.org/w/api.php",
			Results:   3,
			MaxChars:  4000,
			Timeout:   30,
			UserAgent: "court/0 (historical trial simulator)",
		},
		Storage: StorageConfig{
			Path:        "~/.local/court",
			ReportsDir:  "court_reports",
			FrontMatter: true,
		},
		Telemetry: TelemetryConfig{
			Protocol: "noop",
		},
		Events: EventsConfig{
			Subject: "court.events",
		},
	}
}

// Default returns a default configuration.
func Default() *Config {
	return New()
}

// LoadFile loads configuration from a TOML file.
func LoadFile(path string) (*Config, error) {
	cfg := New()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

// LoadDefault loads configuration from court.toml in the current directory.
func LoadDefault() (*Config, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get current directory: %w", err)
	}

	return LoadFile(filepath.Join(cwd, "court.toml"))
}

// ApplyEnv applies environment overrides on top of file settings.
func (c *Config) ApplyEnv() error {
	var o Overrides
	if err := env.Parse(&o); err != nil {
		return fmt.Errorf("parsing environment: %w", err)
	}
	c.applyOverrides(o)
	return nil
}

func (c *Config) applyOverrides(o Overrides) {
	if o.Model != "" {
		c.LLM.Model = o.Model
	}
	if o.Provider != "" {
		c.LLM.Provider = o.Provider
	}
	if o.MaxRetries != nil {
		c.LLM.MaxRetries = *o.MaxRetries
	}
	if o.RetryInitialDelay != "" {
		c.LLM.RetryInitialDelay = o.RetryInitialDelay
	}
	if o.ReportsDir != "" {
		c.Storage.ReportsDir = o.ReportsDir
	}
}

// Validate reports settings the run cannot start with.
func (c *Config) Validate() error {
	if c.Trial.MaxIterations <= 0 {
		return fmt.Errorf("trial.max_iterations must be > 0")
	}
	if c.Trial.MinEvidenceWords <= 0 {
		return fmt.Errorf("trial.min_evidence_words must be > 0")
	}
	if c.Trial.MinVerdictWords <= 0 {
		return fmt.Errorf("trial.min_verdict_words must be > 0")
	}
	if c.Trial.SynthesisAttempts <= 0 {
		return fmt.Errorf("trial.synthesis_attempts must be > 0")
	}
	if c.LLM.MaxRetries < 0 {
		return fmt.Errorf("llm.max_retries must be >= 0")
	}
	if _, err := c.LLM.InitialDelay(); err != nil {
		return err
	}
	return nil
}

// InitialDelay parses the retry initial delay, defaulting to one second.
func (l LLMConfig) InitialDelay() (time.Duration, error) {
	if l.RetryInitialDelay == "" {
		return time.Second, nil
	}
	d, err := time.ParseDuration(l.RetryInitialDelay)
	if err != nil {
		return 0, fmt.Errorf("invalid llm.retry_initial_delay %q: %w", l.RetryInitialDelay, err)
	}
	return d, nil
}

// Attempts returns the total number of calls the retry policy may make.
func (l LLMConfig) Attempts() int {
	return l.MaxRetries + 1
}

// DefaultAPIKeyEnv returns the default environment variable name for a provider.
func DefaultAPIKeyEnv(provider string) string {
	switch provider {
	case "anthropic":
		return "ANTHROPIC_API_KEY"
	case "openai":
		return "OPENAI_API_KEY"
	case "google":
		return "GOOGLE_API_KEY"
	case "mistral":
		return "MISTRAL_API_KEY"
	case "groq":
		return "GROQ_API_KEY"
	default:
		return ""
	}
}

// APIKeyFromEnv returns the API key from the configured environment variable.
// If api_key_env is not set, uses the default env var for the provider.
func (l LLMConfig) APIKeyFromEnv() string {
	envVar := l.APIKeyEnv
	if envVar == "" {
		envVar = DefaultAPIKeyEnv(l.Provider)
	}
	if envVar == "" {
		return ""
	}
	return os.Getenv(envVar)
}

// JudgeLLM returns the evaluator's LLM settings, falling back to the default
// model for anything left unset.
func (c *Config) JudgeLLM() LLMConfig {
	if c.Judge.Model == "" {
		return c.LLM
	}
	result := c.Judge
	if result.Provider == "" {
		result.Provider = c.LLM.Provider
	}
	if result.APIKeyEnv == "" {
		result.APIKeyEnv = c.LLM.APIKeyEnv
	}
	if result.MaxTokens == 0 {
		result.MaxTokens = c.LLM.MaxTokens
	}
	if result.RetryInitialDelay == "" {
		result.RetryInitialDelay = c.LLM.RetryInitialDelay
	}
	if result.MaxRetries == 0 {
		result.MaxRetries = c.LLM.MaxRetries
	}
	return result
}

// ExpandPath resolves a leading ~ to the user's home directory.
func ExpandPath(p string) string {
	if len(p) > 0 && p[0] == '~' {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, p[1:])
	}
	return p
}
