// ABOUTME: Configuration loading and parsing for strand
// ABOUTME: Supports YAML files with environment variable expansion and duration parsing

package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/strandlabs/strand/internal/convctx"
	"github.com/strandlabs/strand/internal/orchestrator"
	"github.com/strandlabs/strand/internal/tool"
)

// Config represents the complete strand configuration
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Context    ContextConfig    `yaml:"context"`
	Tools      ToolsConfig      `yaml:"tools"`
	Generation GenerationConfig `yaml:"generation"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// ServerConfig holds the serve command's listen address
type ServerConfig struct {
	HTTPAddr string `yaml:"http_addr"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// ContextConfig tunes the conversation context manager
type ContextConfig struct {
	Strategy    string `yaml:"strategy"` // sliding_window, summarize, or hybrid
	MaxMessages int    `yaml:"max_messages"`
	CacheSize   int    `yaml:"cache_size"`

	CacheTTL   time.Duration `yaml:"-"`
	EvictAfter time.Duration `yaml:"-"`

	// Raw string values for YAML unmarshaling
	CacheTTLRaw   string `yaml:"cache_ttl"`
	EvictAfterRaw string `yaml:"evict_after"`
}

// ToolsConfig tunes the tool registry and intent routing
type ToolsConfig struct {
	MaxHistory int    `yaml:"max_history"`
	RulesFile  string `yaml:"rules_file"` // optional TOML routing rules, built-ins if empty

	Timeout       time.Duration `yaml:"-"`
	HistoryMaxAge time.Duration `yaml:"-"` // execution records older than this are GC'd

	TimeoutRaw       string `yaml:"timeout"`
	HistoryMaxAgeRaw string `yaml:"history_max_age"`
}

// GenerationConfig tunes the text generator and its decorators
type GenerationConfig struct {
	Endpoint     string  `yaml:"endpoint"` // completion API base URL, required by chat/serve
	Model        string  `yaml:"model"`
	APIKey       string  `yaml:"api_key"`
	MaxTokens    int     `yaml:"max_tokens"`
	Temperature  float64 `yaml:"temperature"`
	SystemPrompt string  `yaml:"system_prompt"`
	MaxRetries   int     `yaml:"max_retries"`
	BreakerTrips int     `yaml:"breaker_trips"` // consecutive failures before the breaker opens

	RetryInterval  time.Duration `yaml:"-"`
	BreakerTimeout time.Duration `yaml:"-"`

	RetryIntervalRaw  string `yaml:"retry_interval"`
	BreakerTimeoutRaw string `yaml:"breaker_timeout"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns a configuration that runs without a config file.
func Default() *Config {
	return &Config{
		Server:   ServerConfig{HTTPAddr: "127.0.0.1:8080"},
		Database: DatabaseConfig{Path: "strand.db"},
		Context: ContextConfig{
			Strategy:    convctx.StrategySlidingWindow,
			MaxMessages: convctx.DefaultMaxMessages,
			CacheSize:   convctx.DefaultCacheSize,
			CacheTTL:    convctx.DefaultCacheTTL,
			EvictAfter:  time.Hour,
		},
		Tools: ToolsConfig{
			Timeout:       tool.DefaultTimeout,
			MaxHistory:    1000,
			HistoryMaxAge: 24 * time.Hour,
		},
		Generation: GenerationConfig{
			MaxTokens:      orchestrator.DefaultMaxTokens,
			Temperature:    orchestrator.DefaultTemperature,
			MaxRetries:     3,
			RetryInterval:  200 * time.Millisecond,
			BreakerTrips:   5,
			BreakerTimeout: 30 * time.Second,
		},
		Logging: LoggingConfig{Level: "info", Format: "text"},
	}
}

// Load reads a configuration file from the given path and returns a parsed Config.
// Environment variables in the format ${VAR_NAME} are expanded.
// Duration strings are parsed into time.Duration values.
// Fields absent from the file keep their Default() values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables in the raw YAML content
	expandedData := expandEnvVars(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expandedData), cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	// Parse duration fields
	if err := parseDurations(cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	// Validate required fields
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	// Match ${VAR_NAME} pattern
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		// Extract variable name from ${VAR_NAME}
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

// Validate checks that all required configuration fields are present and valid.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}

	switch c.Context.Strategy {
	case convctx.StrategySlidingWindow, convctx.StrategySummarize, convctx.StrategyHybrid:
	default:
		return fmt.Errorf("context.strategy %q is not one of sliding_window, summarize, hybrid", c.Context.Strategy)
	}
	if c.Context.MaxMessages <= 0 {
		return fmt.Errorf("context.max_messages must be positive")
	}

	if c.Generation.MaxTokens <= 0 {
		return fmt.Errorf("generation.max_tokens must be positive")
	}
	if c.Generation.Temperature < 0 || c.Generation.Temperature > 2 {
		return fmt.Errorf("generation.temperature %g is out of range [0, 2]", c.Generation.Temperature)
	}

	return nil
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	fields := []struct {
		raw  string
		name string
		dst  *time.Duration
	}{
		{cfg.Context.CacheTTLRaw, "context.cache_ttl", &cfg.Context.CacheTTL},
		{cfg.Context.EvictAfterRaw, "context.evict_after", &cfg.Context.EvictAfter},
		{cfg.Tools.TimeoutRaw, "tools.timeout", &cfg.Tools.Timeout},
		{cfg.Tools.HistoryMaxAgeRaw, "tools.history_max_age", &cfg.Tools.HistoryMaxAge},
		{cfg.Generation.RetryIntervalRaw, "generation.retry_interval", &cfg.Generation.RetryInterval},
		{cfg.Generation.BreakerTimeoutRaw, "generation.breaker_timeout", &cfg.Generation.BreakerTimeout},
	}

	for _, f := range fields {
		if f.raw == "" {
			continue
		}
		d, err := time.ParseDuration(f.raw)
		if err != nil {
			return fmt.Errorf("parsing %s %q: %w", f.name, f.raw, err)
		}
		*f.dst = d
	}

	return nil
}
