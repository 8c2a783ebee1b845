// ABOUTME: Execution records for tool invocations, kept in a bounded history.
// ABOUTME: Records transition pending -> running -> completed|failed and are GC'd by age.

package tool

import (
	"sync"
	"time"
)

// Execution status constants
const (
	ExecutionPending   = "pending"
	ExecutionRunning   = "running"
	ExecutionCompleted = "completed"
	ExecutionFailed    = "failed"
)

// Execution is the record of a single tool invocation.
// Terminal once status reaches completed or failed.
type Execution struct {
	ID          string
	ToolName    string
	Parameters  map[string]any
	Status      string
	StartedAt   time.Time
	CompletedAt time.Time
	Result      *Result
	Error       string
}

// executionLog is a bounded, thread-safe history of terminal execution
// records in completion order. Records are immutable once added.
type executionLog struct {
	mu      sync.Mutex
	records []*Execution
	max     int
}

func newExecutionLog(max int) *executionLog {
	if max <= 0 {
		max = 1000
	}
	return &executionLog{max: max}
}

// add appends a record, evicting the oldest when at capacity.
func (l *executionLog) add(exec *Execution) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.records) >= l.max {
		// Drop oldest; copy to avoid retaining the evicted record's backing array slot
		copy(l.records, l.records[1:])
		l.records = l.records[:len(l.records)-1]
	}
	l.records = append(l.records, exec)
}

// recent returns up to limit records, newest first.
func (l *executionLog) recent(limit int) []*Execution {
	l.mu.Lock()
	defer l.mu.Unlock()

	if limit <= 0 || limit > len(l.records) {
		limit = len(l.records)
	}
	out := make([]*Execution, 0, limit)
	for i := len(l.records) - 1; i >= len(l.records)-limit; i-- {
		out = append(out, l.records[i])
	}
	return out
}

// cleanup removes records started before the cutoff, returning the count removed.
func (l *executionLog) cleanup(maxAge time.Duration, now time.Time) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := now.Add(-maxAge)
	kept := l.records[:0]
	removed := 0
	for _, rec := range l.records {
		if rec.StartedAt.Before(cutoff) {
			removed++
			continue
		}
		kept = append(kept, rec)
	}
	// Clear trailing slots so evicted records can be collected
	for i := len(kept); i < len(l.records); i++ {
		l.records[i] = nil
	}
	l.records = kept
	return removed
}

func (l *executionLog) len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.records)
}
