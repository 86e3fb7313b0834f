// Package config loads taskmesh configuration from a YAML file with
// TASKMESH_* environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ProviderConfig selects and tunes the inference provider.
type ProviderConfig struct {
	// Name is one of openai, anthropic, gemini.
	Name string `yaml:"name"`
	// Model is the provider model id; empty selects the adapter default.
	Model string `yaml:"model,omitempty"`
	// APIKeyEnv names the environment variable holding the key. The key
	// itself is never read from or written to YAML.
	APIKeyEnv  string        `yaml:"api_key_env,omitempty"`
	APIKey     string        `yaml:"-"`
	BaseURL    string        `yaml:"base_url,omitempty"`
	Timeout    time.Duration `yaml:"timeout,omitempty"`
	MaxRetries int           `yaml:"max_retries,omitempty"`
}

// StoreConfig selects the task and conversation store.
type StoreConfig struct {
	// Driver is memory or sqlite.
	Driver string `yaml:"driver"`
	// DSN is the sqlite database path.
	DSN string `yaml:"dsn,omitempty"`
}

// ConversationConfig tunes context assembly.
type ConversationConfig struct {
	HistoryWindow int `yaml:"history_window"`
}

// ExecutorConfig tunes operation execution.
type ExecutorConfig struct {
	MaxParallel int `yaml:"max_parallel"`
}

// ComposerConfig tunes the final reply.
type ComposerConfig struct {
	Temperature   float64 `yaml:"temperature"`
	FallbackReply string  `yaml:"fallback_reply,omitempty"`
}

// FormatConfig tunes the structured formatter.
type FormatConfig struct {
	// Strategy is mapping or model.
	Strategy string `yaml:"strategy"`
	Strict   bool   `yaml:"strict"`
}

// LogConfig tunes logging.
type LogConfig struct {
	// Backend is slog or zap.
	Backend string `yaml:"backend"`
	Level   string `yaml:"level"`
	// Format is text or json.
	Format string `yaml:"format"`
}

// Config is the complete configuration.
type Config struct {
	Provider     ProviderConfig     `yaml:"provider"`
	Store        StoreConfig        `yaml:"store"`
	Conversation ConversationConfig `yaml:"conversation"`
	Executor     ExecutorConfig     `yaml:"executor"`
	Composer     ComposerConfig     `yaml:"composer"`
	Format       FormatConfig       `yaml:"format"`
	Log          LogConfig          `yaml:"log"`
}

// Default returns the built-in defaults.
func Default() *Config {
	return &Config{
		Provider: ProviderConfig{
			Name:       "openai",
			Timeout:    60 * time.Second,
			MaxRetries: 3,
		},
		Store:        StoreConfig{Driver: "memory"},
		Conversation: ConversationConfig{HistoryWindow: 30},
		Executor:     ExecutorConfig{MaxParallel: 4},
		Composer:     ComposerConfig{Temperature: 0.7, FallbackReply: "Action completed."},
		Format:       FormatConfig{Strategy: "mapping"},
		Log:          LogConfig{Backend: "slog", Level: "info", Format: "text"},
	}
}

var (
	providers  = []string{"openai", "anthropic", "gemini"}
	drivers    = []string{"memory", "sqlite"}
	strategies = []string{"mapping", "model"}
	backends   = []string{"slog", "zap"}
	formats    = []string{"text", "json"}
)

var defaultKeyEnv = map[string]string{
	"openai":    "OPENAI_API_KEY",
	"anthropic": "ANTHROPIC_API_KEY",
	"gemini":    "GEMINI_API_KEY",
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	var errs []error
	check := func(field, v string, allowed []string) {
		for _, a := range allowed {
			if v == a {
				return
			}
		}
		errs = append(errs, fmt.Errorf("%s: %q is not one of %s", field, v, strings.Join(allowed, ", ")))
	}
	check("provider.name", c.Provider.Name, providers)
	check("store.driver", c.Store.Driver, drivers)
	check("format.strategy", c.Format.Strategy, strategies)
	check("log.backend", c.Log.Backend, backends)
	check("log.format", c.Log.Format, formats)

	if c.Store.Driver == "sqlite" && c.Store.DSN == "" {
		errs = append(errs, errors.New("store.dsn is required for sqlite"))
	}
	if c.Conversation.HistoryWindow < 1 {
		errs = append(errs, errors.New("conversation.history_window must be positive"))
	}
	if c.Executor.MaxParallel < 0 {
		errs = append(errs, errors.New("executor.max_parallel must be non-negative"))
	}
	if c.Composer.Temperature < 0 || c.Composer.Temperature > 2 {
		errs = append(errs, errors.New("composer.temperature must be between 0 and 2"))
	}
	if c.Provider.MaxRetries < 1 {
		errs = append(errs, errors.New("provider.max_retries must be at least 1"))
	}
	if c.Provider.Timeout <= 0 {
		errs = append(errs, errors.New("provider.timeout must be positive"))
	}
	return errors.Join(errs...)
}

// DefaultPath returns ~/.taskmesh/config.yaml.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".taskmesh", "config.yaml")
}

// Load reads path (when non-empty and present) over the defaults, applies
// environment overrides, resolves the API key and validates the result.
func Load(path string) (*Config, error) {
	return load(path, os.LookupEnv)
}

func load(path string, lookup func(string) (string, bool)) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parsing config: %w", err)
			}
		case errors.Is(err, os.ErrNotExist) && path == DefaultPath():
		default:
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	if err := applyEnv(cfg, lookup); err != nil {
		return nil, err
	}
	if cfg.Provider.APIKeyEnv == "" {
		cfg.Provider.APIKeyEnv = defaultKeyEnv[cfg.Provider.Name]
	}
	if cfg.Provider.APIKey == "" && cfg.Provider.APIKeyEnv != "" {
		cfg.Provider.APIKey, _ = lookup(cfg.Provider.APIKeyEnv)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

// envOverrides maps TASKMESH_* variables to setters.
var envOverrides = map[string]func(c *Config, v string) error{
	"TASKMESH_PROVIDER":       func(c *Config, v string) error { c.Provider.Name = v; return nil },
	"TASKMESH_MODEL":          func(c *Config, v string) error { c.Provider.Model = v; return nil },
	"TASKMESH_API_KEY":        func(c *Config, v string) error { c.Provider.APIKey = v; return nil },
	"TASKMESH_BASE_URL":       func(c *Config, v string) error { c.Provider.BaseURL = v; return nil },
	"TASKMESH_TIMEOUT":        func(c *Config, v string) error { return setDuration(&c.Provider.Timeout, v) },
	"TASKMESH_MAX_RETRIES":    func(c *Config, v string) error { return setInt(&c.Provider.MaxRetries, v) },
	"TASKMESH_STORE":          func(c *Config, v string) error { c.Store.Driver = v; return nil },
	"TASKMESH_DSN":            func(c *Config, v string) error { c.Store.DSN = v; return nil },
	"TASKMESH_HISTORY_WINDOW": func(c *Config, v string) error { return setInt(&c.Conversation.HistoryWindow, v) },
	"TASKMESH_MAX_PARALLEL":   func(c *Config, v string) error { return setInt(&c.Executor.MaxParallel, v) },
	"TASKMESH_FORMAT":         func(c *Config, v string) error { c.Format.Strategy = v; return nil },
	"TASKMESH_STRICT":         func(c *Config, v string) error { return setBool(&c.Format.Strict, v) },
	"TASKMESH_LOG_BACKEND":    func(c *Config, v string) error { c.Log.Backend = v; return nil },
	"TASKMESH_LOG_LEVEL":      func(c *Config, v string) error { c.Log.Level = v; return nil },
	"TASKMESH_LOG_FORMAT":     func(c *Config, v string) error { c.Log.Format = v; return nil },
}

func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	for key, set := range envOverrides {
		v, ok := lookup(key)
		if !ok || v == "" {
			continue
		}
		if err := set(cfg, v); err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
	}
	return nil
}

func setInt(dst *int, v string) error {
	n, err := strconv.Atoi(v)
	if err != nil {
		return err
	}
	*dst = n
	return nil
}

func setBool(dst *bool, v string) error {
	b, err := strconv.ParseBool(v)
	if err != nil {
		return err
	}
	*dst = b
	return nil
}

func setDuration(dst *time.Duration, v string) error {
	d, err := time.ParseDuration(v)
	if err != nil {
		return err
	}
	*dst = d
	return nil
}
