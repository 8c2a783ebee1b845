// ABOUTME: Entry point for the strand conversational agent
// ABOUTME: Dispatches serve, chat, and stats subcommands over shared wiring

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/fatih/color"

	"github.com/strandlabs/strand/internal/builtins"
	"github.com/strandlabs/strand/internal/config"
	"github.com/strandlabs/strand/internal/convctx"
	"github.com/strandlabs/strand/internal/intent"
	"github.com/strandlabs/strand/internal/orchestrator"
	"github.com/strandlabs/strand/internal/store"
	"github.com/strandlabs/strand/internal/textgen"
	"github.com/strandlabs/strand/internal/tool"
)

// Version is set by goreleaser at build time.
var version = "dev"

const banner = `
      _                       _
  ___| |_ _ __ __ _ _ __   __| |
 / __| __| '__/ _' | '_ \ / _' |
 \__ \ |_| | | (_| | | | | (_| |
 |___/\__|_|  \__,_|_| |_|\__,_|
`

// getConfigPath returns the path to the strand config file.
// Priority: STRAND_CONFIG env var > XDG_CONFIG_HOME/strand/config.yaml > ~/.config/strand/config.yaml
func getConfigPath() string {
	if envPath := os.Getenv("STRAND_CONFIG"); envPath != "" {
		return envPath
	}

	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "config.yaml" // fallback
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	return filepath.Join(configDir, "strand", "config.yaml")
}

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: strand <command>")
		fmt.Println()
		fmt.Println("Commands:")
		fmt.Println("  serve   Start the HTTP API server")
		fmt.Println("  chat    Chat interactively from the terminal")
		fmt.Println("  stats   Show stored conversations and registered tools")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var err error
	switch os.Args[1] {
	case "serve":
		err = runServe(ctx)
	case "chat":
		err = runChat(ctx)
	case "stats":
		err = runStats(ctx)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig loads the config file, falling back to defaults when it is absent.
func loadConfig() (*config.Config, string, error) {
	path := getConfigPath()
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return config.Default(), "(defaults)", nil
		}
		return nil, "", fmt.Errorf("checking config file: %w", err)
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", fmt.Errorf("loading config: %w", err)
	}
	return cfg, path, nil
}

// app bundles the wired collaborators behind each subcommand.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    *store.SQLiteStore
	registry *tool.Registry
	contexts *convctx.Manager
	orch     *orchestrator.Orchestrator
}

// buildApp wires the store, tools, router, context manager, generator, and
// orchestrator from config.
func buildApp(cfg *config.Config, logger *slog.Logger) (*app, error) {
	if cfg.Generation.Endpoint == "" {
		return nil, fmt.Errorf("generation.endpoint is required (a completions API URL)")
	}

	st, err := store.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}

	registry := tool.NewRegistry(tool.RegistryConfig{
		Logger:     logger,
		Timeout:    cfg.Tools.Timeout,
		MaxHistory: cfg.Tools.MaxHistory,
	})
	// Web search needs an external Searcher backend, so only the
	// self-contained tools register here.
	for _, t := range []tool.Tool{
		builtins.NewMusicControl(builtins.NewMemoryPlayer()),
		builtins.NewNotes(st),
	} {
		if err := registry.Register(t); err != nil {
			st.Close()
			return nil, fmt.Errorf("registering tool: %w", err)
		}
	}

	var rules []*intent.Rule
	if cfg.Tools.RulesFile != "" {
		rules, err = intent.LoadRules(cfg.Tools.RulesFile)
		if err != nil {
			st.Close()
			return nil, fmt.Errorf("loading routing rules: %w", err)
		}
	}
	router := intent.NewRouter(intent.RouterConfig{
		Rules:  rules,
		Tools:  registry,
		Logger: logger,
	})

	contexts, err := convctx.NewManager(convctx.ManagerConfig{
		Source:      st,
		Strategy:    cfg.Context.Strategy,
		MaxMessages: cfg.Context.MaxMessages,
		CacheSize:   cfg.Context.CacheSize,
		CacheTTL:    cfg.Context.CacheTTL,
		Logger:      logger,
	})
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("creating context manager: %w", err)
	}

	var generator textgen.Generator = textgen.NewHTTPGenerator(textgen.HTTPConfig{
		Endpoint: cfg.Generation.Endpoint,
		Model:    cfg.Generation.Model,
		APIKey:   cfg.Generation.APIKey,
		Logger:   logger,
	})
	generator = textgen.NewRetryGenerator(generator, textgen.RetryConfig{
		MaxRetries:      uint64(cfg.Generation.MaxRetries),
		InitialInterval: cfg.Generation.RetryInterval,
		Logger:          logger,
	})
	generator = textgen.NewBreakerGenerator(generator, textgen.BreakerConfig{
		Timeout: cfg.Generation.BreakerTimeout,
		Logger:  logger,
	})

	orch := orchestrator.New(orchestrator.Config{
		Store:        st,
		Contexts:     contexts,
		Router:       router,
		Registry:     registry,
		Generator:    generator,
		SystemPrompt: cfg.Generation.SystemPrompt,
		MaxTokens:    cfg.Generation.MaxTokens,
		Temperature:  cfg.Generation.Temperature,
		Logger:       logger,
	})

	return &app{
		cfg:      cfg,
		logger:   logger,
		store:    st,
		registry: registry,
		contexts: contexts,
		orch:     orch,
	}, nil
}

func (a *app) Close() error {
	return a.store.Close()
}

// maintenanceLoop periodically evicts idle conversation contexts and drops
// aged execution records. Runs until the context is cancelled.
func (a *app) maintenanceLoop(ctx context.Context) {
	evictAfter := a.cfg.Context.EvictAfter
	if evictAfter <= 0 {
		return
	}
	interval := evictAfter
	if interval > 10*time.Minute {
		interval = 10 * time.Minute
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.contexts.Evict(evictAfter)
			if removed := a.registry.CleanupExecutions(a.cfg.Tools.HistoryMaxAge); removed > 0 {
				a.logger.Debug("dropped aged execution records", "count", removed)
			}
		}
	}
}

func setupLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	}
	return slog.New(&colorHandler{level: level})
}

// colorHandler provides colorized log output with thread-safe writes.
type colorHandler struct {
	mu     sync.Mutex
	level  slog.Level
	attrs  []slog.Attr
	groups []string
}

func (h *colorHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *colorHandler) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	var buf strings.Builder

	buf.WriteString(color.HiBlackString(r.Time.Format("15:04:05") + " "))

	switch r.Level {
	case slog.LevelDebug:
		buf.WriteString(color.MagentaString("DBG "))
	case slog.LevelInfo:
		buf.WriteString(color.CyanString("INF "))
	case slog.LevelWarn:
		buf.WriteString(color.YellowString("WRN "))
	case slog.LevelError:
		buf.WriteString(color.New(color.FgRed, color.Bold).Sprint("ERR "))
	default:
		buf.WriteString("??? ")
	}

	// The component attr becomes a prefix so log lines group visually by
	// subsystem (orchestrator, context_manager, tool_registry, ...).
	var rest []slog.Attr
	for _, a := range h.attrs {
		if a.Key == "component" {
			buf.WriteString(color.New(color.FgBlue).Sprintf("%-16s", a.Value.String()))
			continue
		}
		rest = append(rest, a)
	}

	buf.WriteString(r.Message)

	for _, a := range rest {
		buf.WriteString(color.HiBlackString(" " + a.Key + "="))
		buf.WriteString(a.Value.String())
	}

	r.Attrs(func(a slog.Attr) bool {
		buf.WriteString(color.HiBlackString(" " + a.Key + "="))
		buf.WriteString(a.Value.String())
		return true
	})

	buf.WriteString("\n")
	fmt.Print(buf.String())
	return nil
}

func (h *colorHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	newAttrs := make([]slog.Attr, len(h.attrs), len(h.attrs)+len(attrs))
	copy(newAttrs, h.attrs)
	newAttrs = append(newAttrs, attrs...)
	return &colorHandler{
		level:  h.level,
		attrs:  newAttrs,
		groups: h.groups,
	}
}

func (h *colorHandler) WithGroup(name string) slog.Handler {
	newGroups := make([]string, len(h.groups), len(h.groups)+1)
	copy(newGroups, h.groups)
	newGroups = append(newGroups, name)
	return &colorHandler{
		level:  h.level,
		attrs:  h.attrs,
		groups: newGroups,
	}
}
