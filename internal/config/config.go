// Package config loads and validates parsewright configuration. Settings
// come from parsewright.yaml, with environment variables overriding file
// values for secrets and paths.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all parsewright configuration.
type Config struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	// LLM provider for generation and repair
	LLM LLMConfig `yaml:"llm"`

	// Repair loop bounds
	Loop LoopConfig `yaml:"loop"`

	// Candidate execution sandbox
	Runner RunnerConfig `yaml:"runner"`

	// Comparison and feedback behavior
	Validation ValidationConfig `yaml:"validation"`

	// Filesystem layout
	Paths PathsConfig `yaml:"paths"`

	// Category file logging
	Logging LoggingConfig `yaml:"logging"`
}

// LLMConfig configures the code generation provider.
type LLMConfig struct {
	Provider string `yaml:"provider"` // gemini, openai
	APIKey   string `yaml:"api_key"`
	Model    string `yaml:"model"`
	BaseURL  string `yaml:"base_url"`
	Timeout  string `yaml:"timeout"`
}

// LoopConfig bounds the generate/validate/repair loop.
type LoopConfig struct {
	MaxAttempts int    `yaml:"max_attempts"`
	TaskTimeout string `yaml:"task_timeout"` // wall clock for a whole run
	RetryDelay  string `yaml:"retry_delay"`  // pause between attempts
}

// RunnerConfig configures candidate execution.
type RunnerConfig struct {
	Timeout string `yaml:"timeout"` // per-execution wall clock
}

// ValidationConfig configures the comparator's feedback hints.
type ValidationConfig struct {
	// ExclusiveColumns names a column pair where each row carries a value
	// in exactly one of the two. Used for repair hints only; comparison
	// itself treats every column the same.
	ExclusiveColumns []string `yaml:"exclusive_columns"`
}

// PathsConfig configures the filesystem layout.
type PathsConfig struct {
	DataDir      string `yaml:"data_dir"`      // data/<target>/<target>_sample.pdf etc.
	ParserDir    string `yaml:"parser_dir"`    // generated parsers
	DatabasePath string `yaml:"database_path"` // run history SQLite file
	LogDir       string `yaml:"log_dir"`
}

// LoggingConfig configures category file logging.
type LoggingConfig struct {
	Enabled bool   `yaml:"enabled"`
	Level   string `yaml:"level"`
	Format  string `yaml:"format"` // text or json
}

// ValidProviders lists the supported LLM providers.
var ValidProviders = []string{"gemini", "openai"}

// DefaultConfig returns the baseline configuration.
func DefaultConfig() *Config {
	return &Config{
		Name:    "parsewright",
		Version: "0.1.0",
		LLM: LLMConfig{
			Provider: "gemini",
			Model:    "gemini-2.5-pro",
			Timeout:  "10m",
		},
		Loop: LoopConfig{
			MaxAttempts: 3,
			TaskTimeout: "180s",
			RetryDelay:  "2s",
		},
		Runner: RunnerConfig{
			Timeout: "30s",
		},
		Validation: ValidationConfig{
			ExclusiveColumns: []string{"Debit Amt", "Credit Amt"},
		},
		Paths: PathsConfig{
			DataDir:      "data",
			ParserDir:    "parsers",
			DatabasePath: filepath.Join(".parsewright", "history.db"),
			LogDir:       filepath.Join(".parsewright", "logs"),
		},
		Logging: LoggingConfig{
			Enabled: false,
			Level:   "info",
			Format:  "text",
		},
	}
}

// Load reads configuration from a YAML file, merging it over defaults and
// then applying environment overrides. A missing file is not an error; the
// defaults plus environment are used.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// applyEnvOverrides lets the environment win over file values. API keys in
// particular should not live in the config file.
func (c *Config) applyEnvOverrides() {
	switch c.LLM.Provider {
	case "openai":
		if key := os.Getenv("OPENAI_API_KEY"); key != "" {
			c.LLM.APIKey = key
		}
	default:
		if key := os.Getenv("GEMINI_API_KEY"); key != "" {
			c.LLM.APIKey = key
		}
	}

	if db := os.Getenv("PARSEWRIGHT_DB"); db != "" {
		c.Paths.DatabasePath = db
	}
	if dir := os.Getenv("PARSEWRIGHT_DATA_DIR"); dir != "" {
		c.Paths.DataDir = dir
	}
}

// Validate checks that the configuration is usable for a run.
func (c *Config) Validate() error {
	valid := false
	for _, p := range ValidProviders {
		if c.LLM.Provider == p {
			valid = true
			break
		}
	}
	if !valid {
		return fmt.Errorf("unknown LLM provider %q (valid: %v)", c.LLM.Provider, ValidProviders)
	}

	if c.LLM.APIKey == "" {
		env := "GEMINI_API_KEY"
		if c.LLM.Provider == "openai" {
			env = "OPENAI_API_KEY"
		}
		return fmt.Errorf("missing API key for provider %s (set %s or llm.api_key)", c.LLM.Provider, env)
	}

	if c.Loop.MaxAttempts < 1 {
		return fmt.Errorf("loop.max_attempts must be at least 1, got %d", c.Loop.MaxAttempts)
	}

	if n := len(c.Validation.ExclusiveColumns); n != 0 && n != 2 {
		return fmt.Errorf("validation.exclusive_columns must name exactly 2 columns or be empty, got %d", n)
	}

	for name, value := range map[string]string{
		"llm.timeout":       c.LLM.Timeout,
		"loop.task_timeout": c.Loop.TaskTimeout,
		"loop.retry_delay":  c.Loop.RetryDelay,
		"runner.timeout":    c.Runner.Timeout,
	} {
		if value == "" {
			continue
		}
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("invalid duration for %s: %q", name, value)
		}
	}
	return nil
}

// GetLLMTimeout parses the provider timeout, falling back to 10 minutes.
func (c *Config) GetLLMTimeout() time.Duration {
	return parseDuration(c.LLM.Timeout, 10*time.Minute)
}

// GetTaskTimeout parses the whole-run timeout, falling back to 3 minutes.
func (c *Config) GetTaskTimeout() time.Duration {
	return parseDuration(c.Loop.TaskTimeout, 3*time.Minute)
}

// GetRetryDelay parses the inter-attempt delay, falling back to 2 seconds.
func (c *Config) GetRetryDelay() time.Duration {
	return parseDuration(c.Loop.RetryDelay, 2*time.Second)
}

// GetRunnerTimeout parses the per-execution timeout, falling back to 30
// seconds.
func (c *Config) GetRunnerTimeout() time.Duration {
	return parseDuration(c.Runner.Timeout, 30*time.Second)
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}

// Save writes the configuration to a YAML file, creating parent
// directories as needed.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}
