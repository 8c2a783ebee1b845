// ABOUTME: Per-orchestrator performance counters and the keyed conversation mutex.
// ABOUTME: Stats update from arbitrary goroutines; the invariant total = ok + failed holds.

package orchestrator

import (
	"sync"
	"time"
)

// Stats is a snapshot of the orchestrator's performance counters.
type Stats struct {
	TotalRequests      int64
	SuccessfulRequests int64
	FailedRequests     int64
	AverageLatency     time.Duration
	ToolUsage          map[string]int64
	ActiveContexts     int
	AvailableTools     int
}

// perfStats accumulates request counters under its own lock.
type perfStats struct {
	mu           sync.Mutex
	total        int64
	successful   int64
	failed       int64
	totalLatency time.Duration
	toolUsage    map[string]int64
}

func newPerfStats() *perfStats {
	return &perfStats{toolUsage: make(map[string]int64)}
}

func (p *perfStats) record(elapsed time.Duration, success bool, toolsUsed []string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.total++
	if success {
		p.successful++
	} else {
		p.failed++
	}
	p.totalLatency += elapsed
	for _, name := range toolsUsed {
		p.toolUsage[name]++
	}
}

func (p *perfStats) snapshot() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()

	s := Stats{
		TotalRequests:      p.total,
		SuccessfulRequests: p.successful,
		FailedRequests:     p.failed,
		ToolUsage:          make(map[string]int64, len(p.toolUsage)),
	}
	if p.total > 0 {
		s.AverageLatency = p.totalLatency / time.Duration(p.total)
	}
	for name, count := range p.toolUsage {
		s.ToolUsage[name] = count
	}
	return s
}

// Stats returns a performance snapshot including live collaborator gauges.
func (o *Orchestrator) Stats() Stats {
	s := o.stats.snapshot()
	s.ActiveContexts = o.contexts.ActiveContexts()
	s.AvailableTools = len(o.registry.EnabledNames())
	return s
}

// keyedMutex serializes turns per conversation. Entries are reference
// counted and removed once the last holder releases, so the map stays
// bounded by in-flight conversations.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*lockEntry)}
}

// lock acquires the mutex for key and returns its release func.
func (k *keyedMutex) lock(key string) func() {
	k.mu.Lock()
	entry, ok := k.locks[key]
	if !ok {
		entry = &lockEntry{}
		k.locks[key] = entry
	}
	entry.refs++
	k.mu.Unlock()

	entry.mu.Lock()
	return func() {
		entry.mu.Unlock()

		k.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
