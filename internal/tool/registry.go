// ABOUTME: Thread-safe registry for tools: registration, execution, and usage statistics.
// ABOUTME: Structural problems are registry errors; tool runtime failures become failed Results.

package tool

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrToolNotFound indicates the requested tool is not registered.
var ErrToolNotFound = errors.New("tool not found")

// ErrToolDisabled indicates the tool is registered but disabled.
var ErrToolDisabled = errors.New("tool disabled")

// ErrInvalidParameters indicates required parameters from the schema are missing.
var ErrInvalidParameters = errors.New("invalid parameters")

// ErrToolAlreadyRegistered indicates a tool with the same name is already registered.
var ErrToolAlreadyRegistered = errors.New("tool already registered")

// ErrInvalidTool indicates the tool failed the structural check at registration.
var ErrInvalidTool = errors.New("invalid tool")

// DefaultTimeout is the default per-execution timeout.
const DefaultTimeout = 30 * time.Second

// entry pairs a registered tool with its mutable enabled flag.
type entry struct {
	tool    Tool
	enabled bool
}

// Registry maintains registered tools, their usage statistics, and a bounded
// execution history. Safe for concurrent use from arbitrary goroutines.
type Registry struct {
	mu        sync.RWMutex
	tools     map[string]*entry
	stats     map[string]*usageRecorder
	providers []InfoProvider

	executions *executionLog
	timeout    time.Duration
	logger     *slog.Logger
	now        func() time.Time
}

// RegistryConfig contains configuration options for the Registry.
type RegistryConfig struct {
	Logger        *slog.Logger
	Timeout       time.Duration // per-execution timeout, DefaultTimeout if zero
	MaxHistory    int           // bounded execution history size
	InfoProviders []InfoProvider
}

// NewRegistry creates a new Registry instance.
func NewRegistry(cfg RegistryConfig) *Registry {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	return &Registry{
		tools:      make(map[string]*entry),
		stats:      make(map[string]*usageRecorder),
		providers:  cfg.InfoProviders,
		executions: newExecutionLog(cfg.MaxHistory),
		timeout:    timeout,
		logger:     logger.With("component", "tool_registry"),
		now:        time.Now,
	}
}

// Register validates and stores a tool, initializing zeroed usage stats.
// Returns ErrToolAlreadyRegistered or ErrInvalidTool on structural problems.
func (r *Registry) Register(t Tool) error {
	if err := validateTool(t); err != nil {
		return err
	}
	name := t.Name()

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[name]; exists {
		return fmt.Errorf("%w: %s", ErrToolAlreadyRegistered, name)
	}

	r.tools[name] = &entry{tool: t, enabled: true}
	r.stats[name] = newUsageRecorder(name)

	r.logger.Info("tool registered",
		"tool_name", name,
		"category", t.Category(),
		"total_tools", len(r.tools),
	)
	return nil
}

// Unregister removes a tool and its stats. Idempotent: returns false if absent.
func (r *Registry) Unregister(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[name]; !exists {
		return false
	}
	delete(r.tools, name)
	delete(r.stats, name)

	r.logger.Info("tool unregistered", "tool_name", name, "total_tools", len(r.tools))
	return true
}

// SetEnabled toggles a tool's enabled flag. The flag is the only mutable
// part of a registration.
func (r *Registry) SetEnabled(name string, enabled bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, exists := r.tools[name]
	if !exists {
		return fmt.Errorf("%w: %s", ErrToolNotFound, name)
	}
	e.enabled = enabled
	return nil
}

// IsEnabled reports whether the named tool is registered and enabled.
func (r *Registry) IsEnabled(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, exists := r.tools[name]
	return exists && e.enabled
}

// EnabledNames returns the names of all enabled tools, sorted.
func (r *Registry) EnabledNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.tools))
	for name, e := range r.tools {
		if e.enabled {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// Execute runs a registered tool with the given parameters.
//
// Structural problems (not found, disabled, missing required parameters) are
// returned as errors and leave stats untouched. Once an invocation starts, an
// Execution record is created and stats are updated regardless of outcome;
// tool runtime failures (including timeouts and panics) come back as a failed
// Result, never as an error.
func (r *Registry) Execute(ctx context.Context, name string, params map[string]any) (Result, error) {
	r.mu.RLock()
	e, exists := r.tools[name]
	var recorder *usageRecorder
	if exists {
		recorder = r.stats[name]
	}
	r.mu.RUnlock()

	if !exists {
		return Result{}, fmt.Errorf("%w: %s", ErrToolNotFound, name)
	}
	if !e.enabled {
		return Result{}, fmt.Errorf("%w: %s", ErrToolDisabled, name)
	}
	if missing := missingRequired(e.tool.Parameters(), params); len(missing) > 0 {
		return Result{}, fmt.Errorf("%w: missing %s for tool %s",
			ErrInvalidParameters, strings.Join(missing, ", "), name)
	}

	// The record stays local through its pending -> running transitions and
	// only enters the shared log once terminal, so History readers never
	// observe a record mid-mutation.
	exec := &Execution{
		ID:         uuid.New().String(),
		ToolName:   name,
		Parameters: params,
		Status:     ExecutionPending,
	}

	started := r.now()
	exec.StartedAt = started
	exec.Status = ExecutionRunning

	result := r.runWithTimeout(ctx, e.tool, params)

	completed := r.now()
	exec.CompletedAt = completed
	exec.Result = &result
	if result.Success {
		exec.Status = ExecutionCompleted
	} else {
		exec.Status = ExecutionFailed
		exec.Error = result.Error
	}
	r.executions.add(exec)

	recorder.record(completed.Sub(started), result.Success, completed)

	r.logger.Debug("tool executed",
		"tool_name", name,
		"execution_id", exec.ID,
		"status", exec.Status,
		"elapsed", completed.Sub(started),
	)
	return result, nil
}

// runWithTimeout executes the tool under the registry's per-execution timeout.
// A timed-out or panicking tool yields a failed Result without blocking the turn.
func (r *Registry) runWithTimeout(ctx context.Context, t Tool, params map[string]any) Result {
	if !t.IsAvailable() {
		return Result{Success: false, Error: fmt.Sprintf("tool %s is not available", t.Name())}
	}

	execCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	resultCh := make(chan Result, 1)
	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				resultCh <- Result{Success: false, Error: fmt.Sprintf("tool panicked: %v", rec)}
			}
		}()
		resultCh <- t.Execute(execCtx, params)
	}()

	select {
	case result := <-resultCh:
		return result
	case <-execCtx.Done():
		r.logger.Warn("tool execution timed out or cancelled",
			"tool_name", t.Name(),
			"timeout", r.timeout,
			"error", execCtx.Err(),
		)
		return Result{Success: false, Error: fmt.Sprintf("execution aborted: %v", execCtx.Err())}
	}
}

// ListAvailable merges locally registered tools with externally-sourced tool
// metadata from the configured providers, filtering by category if non-empty.
// Local registrations win on name collisions.
func (r *Registry) ListAvailable(ctx context.Context, category string) []Info {
	r.mu.RLock()
	infos := make(map[string]Info, len(r.tools))
	for name, e := range r.tools {
		infos[name] = Info{
			Name:        name,
			Description: e.tool.Description(),
			Category:    e.tool.Category(),
			Enabled:     e.enabled,
			Parameters:  e.tool.Parameters(),
		}
	}
	providers := r.providers
	r.mu.RUnlock()

	for _, provider := range providers {
		external, err := provider.Tools(ctx)
		if err != nil {
			r.logger.Warn("tool provider failed", "error", err)
			continue
		}
		for _, info := range external {
			if _, taken := infos[info.Name]; taken {
				continue
			}
			infos[info.Name] = info
		}
	}

	result := make([]Info, 0, len(infos))
	for _, info := range infos {
		if category != "" && info.Category != category {
			continue
		}
		result = append(result, info)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result
}

// Search returns tools whose name or description contains the query,
// optionally filtered by category.
func (r *Registry) Search(ctx context.Context, query, category string) []Info {
	query = strings.ToLower(query)
	var matches []Info
	for _, info := range r.ListAvailable(ctx, category) {
		if strings.Contains(strings.ToLower(info.Name), query) ||
			strings.Contains(strings.ToLower(info.Description), query) {
			matches = append(matches, info)
		}
	}
	return matches
}

// ToolStats returns a snapshot of one tool's usage stats.
func (r *Registry) ToolStats(name string) (UsageStats, bool) {
	r.mu.RLock()
	recorder, ok := r.stats[name]
	r.mu.RUnlock()
	if !ok {
		return UsageStats{}, false
	}
	return recorder.snapshot(), true
}

// Stats aggregates usage across all registered tools.
// OverallSuccessRate is 0 when nothing has executed yet.
func (r *Registry) Stats() AggregateStats {
	r.mu.RLock()
	recorders := make(map[string]*usageRecorder, len(r.stats))
	for name, recorder := range r.stats {
		recorders[name] = recorder
	}
	r.mu.RUnlock()

	agg := AggregateStats{PerTool: make(map[string]UsageStats, len(recorders))}
	for name, recorder := range recorders {
		snap := recorder.snapshot()
		agg.PerTool[name] = snap
		agg.TotalExecutions += snap.TotalExecutions
		agg.SuccessfulExecutions += snap.SuccessfulExecutions
		agg.FailedExecutions += snap.FailedExecutions
	}
	if agg.TotalExecutions > 0 {
		agg.OverallSuccessRate = float64(agg.SuccessfulExecutions) / float64(agg.TotalExecutions)
	}
	return agg
}

// History returns up to limit execution records, newest first.
func (r *Registry) History(limit int) []*Execution {
	return r.executions.recent(limit)
}

// CleanupExecutions drops execution records older than maxAge,
// returning the number removed.
func (r *Registry) CleanupExecutions(maxAge time.Duration) int {
	removed := r.executions.cleanup(maxAge, r.now())
	if removed > 0 {
		r.logger.Info("cleaned up old tool executions", "removed", removed)
	}
	return removed
}

// ToolHealth describes one tool's availability in a health report.
type ToolHealth struct {
	Available bool
	Category  string
}

// HealthReport is the rollup of per-tool availability.
type HealthReport struct {
	Status         string // "healthy", "degraded", "unhealthy"
	TotalTools     int
	AvailableTools int
	Tools          map[string]ToolHealth
}

// Health checks availability across all registered tools.
func (r *Registry) Health() HealthReport {
	r.mu.RLock()
	tools := make(map[string]Tool, len(r.tools))
	for name, e := range r.tools {
		tools[name] = e.tool
	}
	r.mu.RUnlock()

	report := HealthReport{
		Status:     "healthy",
		TotalTools: len(tools),
		Tools:      make(map[string]ToolHealth, len(tools)),
	}
	for name, t := range tools {
		available := t.IsAvailable()
		report.Tools[name] = ToolHealth{Available: available, Category: t.Category()}
		if available {
			report.AvailableTools++
		}
	}
	if report.AvailableTools < report.TotalTools {
		if report.AvailableTools > 0 {
			report.Status = "degraded"
		} else {
			report.Status = "unhealthy"
		}
	}
	return report
}

// validateTool is the structural check applied at registration time.
func validateTool(t Tool) error {
	if t == nil {
		return fmt.Errorf("%w: nil tool", ErrInvalidTool)
	}
	if strings.TrimSpace(t.Name()) == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidTool)
	}
	if strings.TrimSpace(t.Description()) == "" {
		return fmt.Errorf("%w: tool %s has no description", ErrInvalidTool, t.Name())
	}
	if strings.TrimSpace(t.Category()) == "" {
		return fmt.Errorf("%w: tool %s has no category", ErrInvalidTool, t.Name())
	}
	for _, p := range t.Parameters() {
		if strings.TrimSpace(p.Name) == "" || strings.TrimSpace(p.Type) == "" {
			return fmt.Errorf("%w: tool %s has a parameter without name or type", ErrInvalidTool, t.Name())
		}
	}
	return nil
}

// missingRequired returns the names of schema-required parameters absent from params.
func missingRequired(schema []Parameter, params map[string]any) []string {
	var missing []string
	for _, p := range schema {
		if !p.Required {
			continue
		}
		if _, ok := params[p.Name]; !ok {
			missing = append(missing, p.Name)
		}
	}
	return missing
}
