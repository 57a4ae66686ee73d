// Package config holds craftfolio configuration: a YAML file with
// environment variable overrides layered on top.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all craftfolio configuration.
type Config struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	Provider     ProviderConfig     `yaml:"provider"`
	Orchestrator OrchestratorConfig `yaml:"orchestrator"`
	Storage      StorageConfig      `yaml:"storage"`
	Vocab        VocabConfig        `yaml:"vocab"`
	Logging      LoggingConfig      `yaml:"logging"`
}

// ProviderConfig configures the generation provider.
type ProviderConfig struct {
	// Enabled false forces the deterministic path for every turn.
	Enabled bool   `yaml:"enabled"`
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`
	Timeout string `yaml:"timeout"`

	// MinRequestInterval throttles consecutive provider calls.
	MinRequestInterval string `yaml:"min_request_interval"`
}

// OrchestratorConfig configures turn dispatch.
type OrchestratorConfig struct {
	// MaxParallelSubagents caps one turn's concurrent subagent calls.
	MaxParallelSubagents int `yaml:"max_parallel_subagents"`

	// SubagentTimeout bounds a single subagent invocation including its
	// retry.
	SubagentTimeout string `yaml:"subagent_timeout"`
}

// StorageConfig configures persistence.
type StorageConfig struct {
	DatabasePath string `yaml:"database_path"`
}

// VocabConfig configures the trade vocabulary.
type VocabConfig struct {
	// Path to a vocabulary YAML file. Empty means built-in defaults.
	Path string `yaml:"path"`

	// ProfilePath points at the business profile YAML file.
	ProfilePath string `yaml:"profile_path"`

	// Watch hot-reloads the vocabulary file on change.
	Watch bool `yaml:"watch"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Debug bool `yaml:"debug"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Name:    "craftfolio",
		Version: "0.3.0",

		Provider: ProviderConfig{
			Enabled:            true,
			Model:              "gemini-2.5-flash",
			Timeout:            "45s",
			MinRequestInterval: "100ms",
		},
		Orchestrator: OrchestratorConfig{
			MaxParallelSubagents: 2,
			SubagentTimeout:      "45s",
		},
		Storage: StorageConfig{
			DatabasePath: "data/craftfolio.db",
		},
		Vocab: VocabConfig{
			Watch: false,
		},
		Logging: LoggingConfig{
			Debug: false,
		},
	}
}

// Load reads configuration from a YAML file, falling back to defaults when
// the file does not exist, then applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// Save writes the configuration to a YAML file.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

func (c *Config) applyEnvOverrides() {
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		c.Provider.APIKey = key
	}
	if key := os.Getenv("CRAFTFOLIO_API_KEY"); key != "" {
		c.Provider.APIKey = key
	}
	if model := os.Getenv("CRAFTFOLIO_MODEL"); model != "" {
		c.Provider.Model = model
	}
	if v := os.Getenv("CRAFTFOLIO_PROVIDER_DISABLED"); v != "" {
		if disabled, err := strconv.ParseBool(v); err == nil && disabled {
			c.Provider.Enabled = false
		}
	}
	if path := os.Getenv("CRAFTFOLIO_DB"); path != "" {
		c.Storage.DatabasePath = path
	}
	if path := os.Getenv("CRAFTFOLIO_VOCAB"); path != "" {
		c.Vocab.Path = path
	}
	if path := os.Getenv("CRAFTFOLIO_PROFILE"); path != "" {
		c.Vocab.ProfilePath = path
	}
	if v := os.Getenv("CRAFTFOLIO_DEBUG"); v != "" {
		if debug, err := strconv.ParseBool(v); err == nil {
			c.Logging.Debug = debug
		}
	}
}

// ProviderTimeout parses the provider timeout with a safe default.
func (c *Config) ProviderTimeout() time.Duration {
	return parseDuration(c.Provider.Timeout, 45*time.Second)
}

// MinRequestInterval parses the provider throttle interval.
func (c *Config) MinRequestInterval() time.Duration {
	return parseDuration(c.Provider.MinRequestInterval, 100*time.Millisecond)
}

// SubagentTimeout parses the per-subagent timeout.
func (c *Config) SubagentTimeout() time.Duration {
	return parseDuration(c.Orchestrator.SubagentTimeout, 45*time.Second)
}

// Validate checks the configuration for values that would break dispatch.
func (c *Config) Validate() error {
	if c.Orchestrator.MaxParallelSubagents < 1 {
		return fmt.Errorf("max_parallel_subagents must be at least 1, got %d", c.Orchestrator.MaxParallelSubagents)
	}
	if c.Storage.DatabasePath == "" {
		return fmt.Errorf("storage.database_path must not be empty")
	}
	if c.Provider.Enabled && c.Provider.Model == "" {
		return fmt.Errorf("provider.model must be set when the provider is enabled")
	}
	return nil
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
