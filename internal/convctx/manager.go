// ABOUTME: Caching manager for conversation contexts backed by the store.
// ABOUTME: Working sets live in an expirable LRU and are trimmed by strategy.

package convctx

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/strandlabs/strand/internal/store"
)

// ErrUnknownStrategy indicates an unrecognized context optimization strategy.
var ErrUnknownStrategy = errors.New("unknown context strategy")

// Defaults applied when ManagerConfig fields are zero.
const (
	DefaultMaxMessages = 20
	DefaultCacheSize   = 256
	DefaultCacheTTL    = 30 * time.Minute
)

// MessageSource loads recent conversation history. The store satisfies this.
type MessageSource interface {
	GetRecentMessages(ctx context.Context, conversationID string, limit int) ([]*store.Message, error)
}

// Manager maintains per-conversation working sets of recent messages. Cache
// misses load from the source; working sets are trimmed by the configured
// strategy when they outgrow the limit. Safe for concurrent use.
type Manager struct {
	source      MessageSource
	strategy    string
	maxMessages int
	logger      *slog.Logger
	now         func() time.Time

	// mu guards cache admission only; each entry has its own lock.
	mu    sync.Mutex
	cache *expirable.LRU[string, *lockedEntry]
}

type lockedEntry struct {
	mu sync.Mutex
	entry
}

// ManagerConfig contains configuration options for the Manager.
type ManagerConfig struct {
	Source      MessageSource
	Strategy    string // defaults to StrategySlidingWindow
	MaxMessages int
	CacheSize   int
	CacheTTL    time.Duration
	Logger      *slog.Logger
}

// NewManager creates a Manager. Returns ErrUnknownStrategy for strategies
// other than sliding_window, summarize, or hybrid.
func NewManager(cfg ManagerConfig) (*Manager, error) {
	strategy := cfg.Strategy
	if strategy == "" {
		strategy = StrategySlidingWindow
	}
	switch strategy {
	case StrategySlidingWindow, StrategySummarize, StrategyHybrid:
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownStrategy, strategy)
	}

	maxMessages := cfg.MaxMessages
	if maxMessages <= 0 {
		maxMessages = DefaultMaxMessages
	}
	cacheSize := cfg.CacheSize
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	cacheTTL := cfg.CacheTTL
	if cacheTTL <= 0 {
		cacheTTL = DefaultCacheTTL
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Manager{
		source:      cfg.Source,
		strategy:    strategy,
		maxMessages: maxMessages,
		logger:      logger.With("component", "context_manager"),
		now:         time.Now,
		cache:       expirable.NewLRU[string, *lockedEntry](cacheSize, nil, cacheTTL),
	}, nil
}

// GetContext returns the conversation's working set, loading the most recent
// messages from the source on a cache miss. The returned snapshot is the
// caller's to keep; later appends do not mutate it.
func (m *Manager) GetContext(ctx context.Context, conversationID string) (Context, error) {
	e, ok := m.cache.Get(conversationID)
	if !ok {
		loaded, err := m.source.GetRecentMessages(ctx, conversationID, m.maxMessages)
		if err != nil {
			return Context{}, fmt.Errorf("failed to load context for conversation %s: %w", conversationID, err)
		}
		messages := make([]store.Message, len(loaded))
		for i, msg := range loaded {
			messages[i] = *msg
		}

		lastActive := m.now()
		if len(messages) > 0 {
			lastActive = messages[len(messages)-1].Timestamp
		}

		m.mu.Lock()
		if existing, raced := m.cache.Get(conversationID); raced {
			e = existing
		} else {
			e = &lockedEntry{entry: entry{
				conversationID: conversationID,
				messages:       messages,
				lastActive:     lastActive,
			}}
			m.cache.Add(conversationID, e)
			m.logger.Debug("context loaded",
				"conversation_id", conversationID,
				"message_count", len(messages),
			)
		}
		m.mu.Unlock()
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshot(), nil
}

// AppendMessage adds a message to the cached working set, trimming by
// strategy when the set outgrows the limit. A conversation that is not
// cached is left alone; its next GetContext loads fresh from the source.
func (m *Manager) AppendMessage(conversationID string, msg store.Message) {
	e, ok := m.cache.Get(conversationID)
	if !ok {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.messages = append(e.messages, msg)
	if !msg.Timestamp.IsZero() {
		e.lastActive = msg.Timestamp
	} else {
		e.lastActive = m.now()
	}
	if len(e.messages) > m.maxMessages {
		e.messages = applyStrategy(m.strategy, e.messages, m.maxMessages)
	}
}

// Optimize trims the cached working set by the configured strategy.
// No-op for uncached conversations and sets within the limit.
func (m *Manager) Optimize(conversationID string) {
	e, ok := m.cache.Get(conversationID)
	if !ok {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	before := len(e.messages)
	e.messages = applyStrategy(m.strategy, e.messages, m.maxMessages)
	if len(e.messages) != before {
		m.logger.Debug("context optimized",
			"conversation_id", conversationID,
			"strategy", m.strategy,
			"before", before,
			"after", len(e.messages),
		)
	}
}

// Evict removes cached contexts idle longer than maxIdle, judged by the most
// recent message timestamp. Durable storage is untouched. Returns the number
// of contexts evicted.
func (m *Manager) Evict(maxIdle time.Duration) int {
	cutoff := m.now().Add(-maxIdle)
	evicted := 0
	for _, conversationID := range m.cache.Keys() {
		e, ok := m.cache.Peek(conversationID)
		if !ok {
			continue
		}
		e.mu.Lock()
		idle := e.lastActive.Before(cutoff)
		e.mu.Unlock()
		if idle {
			m.cache.Remove(conversationID)
			evicted++
		}
	}
	if evicted > 0 {
		m.logger.Info("evicted idle contexts", "count", evicted, "max_idle", maxIdle)
	}
	return evicted
}

// ActiveContexts returns the number of cached working sets.
func (m *Manager) ActiveContexts() int {
	return m.cache.Len()
}

// snapshot copies the entry into a caller-owned Context. Lock held by caller.
func (e *lockedEntry) snapshot() Context {
	messages := make([]store.Message, len(e.messages))
	copy(messages, e.messages)
	return Context{
		ConversationID: e.conversationID,
		Messages:       messages,
		LastActive:     e.lastActive,
	}
}
