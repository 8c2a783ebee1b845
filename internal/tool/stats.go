// ABOUTME: Per-tool usage statistics with running counters and timing aggregates.
// ABOUTME: Recorders keep their own locks so stat updates never serialize executions.

package tool

import (
	"sync"
	"time"
)

// UsageStats is a snapshot of a tool's running usage counters.
// Invariant: SuccessfulExecutions + FailedExecutions == TotalExecutions.
type UsageStats struct {
	ToolName             string
	TotalExecutions      int64
	SuccessfulExecutions int64
	FailedExecutions     int64
	TotalExecutionTime   time.Duration
	AverageExecutionTime time.Duration
	MinExecutionTime     time.Duration // zero until first execution
	MaxExecutionTime     time.Duration
	FirstUsed            time.Time
	LastUsed             time.Time
	DailyUsage           map[string]int // "2006-01-02" -> count
}

// SuccessRate returns the fraction of successful executions, 0 if none ran.
func (s UsageStats) SuccessRate() float64 {
	if s.TotalExecutions == 0 {
		return 0
	}
	return float64(s.SuccessfulExecutions) / float64(s.TotalExecutions)
}

// AggregateStats rolls up usage across all registered tools.
type AggregateStats struct {
	TotalExecutions      int64
	SuccessfulExecutions int64
	FailedExecutions     int64
	OverallSuccessRate   float64
	PerTool              map[string]UsageStats
}

// usageRecorder wraps UsageStats with its own lock. The registry's map lock
// protects recorder lookup only; updates happen under the per-entry lock.
type usageRecorder struct {
	mu    sync.Mutex
	stats UsageStats
}

func newUsageRecorder(toolName string) *usageRecorder {
	return &usageRecorder{
		stats: UsageStats{
			ToolName:   toolName,
			DailyUsage: make(map[string]int),
		},
	}
}

// record updates all counters for one execution.
func (u *usageRecorder) record(elapsed time.Duration, success bool, now time.Time) {
	u.mu.Lock()
	defer u.mu.Unlock()

	s := &u.stats
	s.TotalExecutions++
	if success {
		s.SuccessfulExecutions++
	} else {
		s.FailedExecutions++
	}

	s.TotalExecutionTime += elapsed
	s.AverageExecutionTime = s.TotalExecutionTime / time.Duration(s.TotalExecutions)
	if s.TotalExecutions == 1 || elapsed < s.MinExecutionTime {
		s.MinExecutionTime = elapsed
	}
	if elapsed > s.MaxExecutionTime {
		s.MaxExecutionTime = elapsed
	}

	if s.FirstUsed.IsZero() {
		s.FirstUsed = now
	}
	s.LastUsed = now
	s.DailyUsage[now.Format("2006-01-02")]++
}

// snapshot returns a copy safe to hand to callers.
func (u *usageRecorder) snapshot() UsageStats {
	u.mu.Lock()
	defer u.mu.Unlock()

	s := u.stats
	s.DailyUsage = make(map[string]int, len(u.stats.DailyUsage))
	for day, count := range u.stats.DailyUsage {
		s.DailyUsage[day] = count
	}
	return s
}
