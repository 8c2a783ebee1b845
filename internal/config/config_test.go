// ABOUTME: Tests for configuration loading and parsing
// ABOUTME: Covers YAML loading, env var expansion, duration parsing, and validation

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/strandlabs/strand/internal/convctx"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing config file: %v", err)
	}
	return path
}

func TestLoad_ValidConfig(t *testing.T) {
	path := writeConfig(t, `
database:
  path: "./test.db"

context:
  strategy: "hybrid"
  max_messages: 40
  cache_size: 64
  cache_ttl: "10m"
  evict_after: "2h"

tools:
  timeout: "15s"
  max_history: 500
  rules_file: "./rules.toml"

generation:
  max_tokens: 1024
  temperature: 0.3
  max_retries: 5
  retry_interval: "100ms"
  breaker_trips: 3
  breaker_timeout: "1m"

logging:
  level: "debug"
  format: "json"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Database.Path != "./test.db" {
		t.Errorf("Database.Path = %q, want %q", cfg.Database.Path, "./test.db")
	}
	if cfg.Context.Strategy != convctx.StrategyHybrid {
		t.Errorf("Context.Strategy = %q, want %q", cfg.Context.Strategy, convctx.StrategyHybrid)
	}
	if cfg.Context.MaxMessages != 40 {
		t.Errorf("Context.MaxMessages = %d, want 40", cfg.Context.MaxMessages)
	}
	if cfg.Context.CacheTTL != 10*time.Minute {
		t.Errorf("Context.CacheTTL = %v, want 10m", cfg.Context.CacheTTL)
	}
	if cfg.Context.EvictAfter != 2*time.Hour {
		t.Errorf("Context.EvictAfter = %v, want 2h", cfg.Context.EvictAfter)
	}
	if cfg.Tools.Timeout != 15*time.Second {
		t.Errorf("Tools.Timeout = %v, want 15s", cfg.Tools.Timeout)
	}
	if cfg.Tools.RulesFile != "./rules.toml" {
		t.Errorf("Tools.RulesFile = %q, want ./rules.toml", cfg.Tools.RulesFile)
	}
	if cfg.Generation.MaxTokens != 1024 {
		t.Errorf("Generation.MaxTokens = %d, want 1024", cfg.Generation.MaxTokens)
	}
	if cfg.Generation.Temperature != 0.3 {
		t.Errorf("Generation.Temperature = %g, want 0.3", cfg.Generation.Temperature)
	}
	if cfg.Generation.RetryInterval != 100*time.Millisecond {
		t.Errorf("Generation.RetryInterval = %v, want 100ms", cfg.Generation.RetryInterval)
	}
	if cfg.Generation.BreakerTimeout != time.Minute {
		t.Errorf("Generation.BreakerTimeout = %v, want 1m", cfg.Generation.BreakerTimeout)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "json" {
		t.Errorf("Logging = %+v, want debug/json", cfg.Logging)
	}
}

func TestLoad_DefaultsFillGaps(t *testing.T) {
	path := writeConfig(t, `
database:
  path: "./only-db.db"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	want := Default()
	if cfg.Context.Strategy != want.Context.Strategy {
		t.Errorf("Context.Strategy = %q, want default %q", cfg.Context.Strategy, want.Context.Strategy)
	}
	if cfg.Context.MaxMessages != want.Context.MaxMessages {
		t.Errorf("Context.MaxMessages = %d, want default %d", cfg.Context.MaxMessages, want.Context.MaxMessages)
	}
	if cfg.Tools.Timeout != want.Tools.Timeout {
		t.Errorf("Tools.Timeout = %v, want default %v", cfg.Tools.Timeout, want.Tools.Timeout)
	}
	if cfg.Generation.MaxTokens != want.Generation.MaxTokens {
		t.Errorf("Generation.MaxTokens = %d, want default %d", cfg.Generation.MaxTokens, want.Generation.MaxTokens)
	}
}

func TestLoad_EnvVarExpansion(t *testing.T) {
	t.Setenv("STRAND_TEST_DB", "/tmp/expanded.db")

	path := writeConfig(t, `
database:
  path: "${STRAND_TEST_DB}"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Database.Path != "/tmp/expanded.db" {
		t.Errorf("Database.Path = %q, want expanded env var", cfg.Database.Path)
	}
}

func TestLoad_UnsetEnvVarBecomesEmpty(t *testing.T) {
	path := writeConfig(t, `
database:
  path: "${STRAND_DEFINITELY_UNSET_VAR}"
`)

	_, err := Load(path)
	if err == nil {
		t.Fatal("Load() succeeded, want validation error for empty database.path")
	}
	if !strings.Contains(err.Error(), "database.path") {
		t.Errorf("error = %v, want mention of database.path", err)
	}
}

func TestLoad_InvalidDuration(t *testing.T) {
	path := writeConfig(t, `
database:
  path: "./test.db"
tools:
  timeout: "not-a-duration"
`)

	_, err := Load(path)
	if err == nil {
		t.Fatal("Load() succeeded, want duration parse error")
	}
	if !strings.Contains(err.Error(), "tools.timeout") {
		t.Errorf("error = %v, want mention of tools.timeout", err)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Fatal("Load() succeeded for a missing file")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "defaults are valid",
			mutate: func(c *Config) {},
		},
		{
			name:    "unknown strategy",
			mutate:  func(c *Config) { c.Context.Strategy = "forgetful" },
			wantErr: "context.strategy",
		},
		{
			name:    "non-positive max messages",
			mutate:  func(c *Config) { c.Context.MaxMessages = 0 },
			wantErr: "context.max_messages",
		},
		{
			name:    "non-positive max tokens",
			mutate:  func(c *Config) { c.Generation.MaxTokens = -1 },
			wantErr: "generation.max_tokens",
		},
		{
			name:    "temperature out of range",
			mutate:  func(c *Config) { c.Generation.Temperature = 3.5 },
			wantErr: "generation.temperature",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() succeeded, want error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %v, want mention of %q", err, tt.wantErr)
			}
		})
	}
}
