package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Provider.Model != "gemini-2.5-flash" {
		t.Errorf("model = %q", cfg.Provider.Model)
	}
	if cfg.Orchestrator.MaxParallelSubagents != 2 {
		t.Errorf("max parallel = %d", cfg.Orchestrator.MaxParallelSubagents)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults invalid: %v", err)
	}
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "craftfolio.yaml")
	content := `provider:
  enabled: true
  model: gemini-2.5-pro
  timeout: 90s
orchestrator:
  max_parallel_subagents: 4
storage:
  database_path: /tmp/test.db
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Provider.Model != "gemini-2.5-pro" {
		t.Errorf("model = %q", cfg.Provider.Model)
	}
	if cfg.ProviderTimeout() != 90*time.Second {
		t.Errorf("timeout = %v", cfg.ProviderTimeout())
	}
	if cfg.Orchestrator.MaxParallelSubagents != 4 {
		t.Errorf("max parallel = %d", cfg.Orchestrator.MaxParallelSubagents)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "key-from-env")
	t.Setenv("CRAFTFOLIO_MODEL", "gemini-2.0-flash")
	t.Setenv("CRAFTFOLIO_DB", "/tmp/env.db")
	t.Setenv("CRAFTFOLIO_DEBUG", "true")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Provider.APIKey != "key-from-env" {
		t.Errorf("api key = %q", cfg.Provider.APIKey)
	}
	if cfg.Provider.Model != "gemini-2.0-flash" {
		t.Errorf("model = %q", cfg.Provider.Model)
	}
	if cfg.Storage.DatabasePath != "/tmp/env.db" {
		t.Errorf("db path = %q", cfg.Storage.DatabasePath)
	}
	if !cfg.Logging.Debug {
		t.Error("debug override ignored")
	}
}

func TestDurations_BadValuesFallBack(t *testing.T) {
	cfg := Default()
	cfg.Provider.Timeout = "not-a-duration"
	cfg.Provider.MinRequestInterval = "-5ms"
	cfg.Orchestrator.SubagentTimeout = ""

	if cfg.ProviderTimeout() != 45*time.Second {
		t.Errorf("timeout fallback = %v", cfg.ProviderTimeout())
	}
	if cfg.MinRequestInterval() != 100*time.Millisecond {
		t.Errorf("interval fallback = %v", cfg.MinRequestInterval())
	}
	if cfg.SubagentTimeout() != 45*time.Second {
		t.Errorf("subagent timeout fallback = %v", cfg.SubagentTimeout())
	}
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Orchestrator.MaxParallelSubagents = 0
	if err := cfg.Validate(); err == nil {
		t.Error("zero parallelism accepted")
	}

	cfg = Default()
	cfg.Storage.DatabasePath = ""
	if err := cfg.Validate(); err == nil {
		t.Error("empty db path accepted")
	}

	cfg = Default()
	cfg.Provider.Enabled = true
	cfg.Provider.Model = ""
	if err := cfg.Validate(); err == nil {
		t.Error("enabled provider without model accepted")
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "craftfolio.yaml")
	cfg := Default()
	cfg.Provider.Model = "gemini-2.5-pro"

	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Provider.Model != "gemini-2.5-pro" {
		t.Errorf("round trip lost model: %q", loaded.Provider.Model)
	}
}
