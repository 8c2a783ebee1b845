// ABOUTME: Mock Store implementation for testing
// ABOUTME: Allows tests to run without SQLite

package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MockStore is an in-memory Store implementation for testing.
type MockStore struct {
	mu            sync.RWMutex
	conversations map[string]*Conversation // keyed by conversation ID
	messages      map[string][]*Message    // keyed by conversation ID, append order
	notes         map[string]*Note         // keyed by note key

	// FailAppend, when set, makes AppendMessage return this error.
	FailAppend error
}

// NewMockStore creates a new MockStore.
func NewMockStore() *MockStore {
	return &MockStore{
		conversations: make(map[string]*Conversation),
		messages:      make(map[string][]*Message),
		notes:         make(map[string]*Note),
	}
}

// CreateConversation stores a new conversation.
func (m *MockStore) CreateConversation(ctx context.Context, conv *Conversation) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.conversations[conv.ID]; exists {
		return ErrDuplicateConversation
	}

	// Make a copy to avoid external modification
	c := *conv
	if c.Status == "" {
		c.Status = StatusActive
	}
	m.conversations[c.ID] = &c
	return nil
}

// GetConversation retrieves a conversation by ID.
func (m *MockStore) GetConversation(ctx context.Context, id string) (*Conversation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	conv, ok := m.conversations[id]
	if !ok {
		return nil, ErrNotFound
	}
	c := *conv
	return &c, nil
}

// UpdateConversation replaces a stored conversation.
func (m *MockStore) UpdateConversation(ctx context.Context, conv *Conversation) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.conversations[conv.ID]; !ok {
		return ErrNotFound
	}
	c := *conv
	m.conversations[c.ID] = &c
	return nil
}

// ListConversations returns non-deleted conversations ordered by updated_at descending.
func (m *MockStore) ListConversations(ctx context.Context, limit int) ([]*ConversationSummary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if limit <= 0 {
		limit = 50
	}

	var summaries []*ConversationSummary
	for _, conv := range m.conversations {
		if conv.Status == StatusDeleted {
			continue
		}
		cs := &ConversationSummary{Conversation: *conv}
		if msgs := m.messages[conv.ID]; len(msgs) > 0 {
			cs.Preview = msgs[len(msgs)-1].Content
			if len(cs.Preview) > 100 {
				cs.Preview = cs.Preview[:100] + "..."
			}
		}
		summaries = append(summaries, cs)
	}
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].UpdatedAt.After(summaries[j].UpdatedAt)
	})
	if len(summaries) > limit {
		summaries = summaries[:limit]
	}
	return summaries, nil
}

// AppendMessage stores a message in arrival order.
func (m *MockStore) AppendMessage(ctx context.Context, msg *Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailAppend != nil {
		return m.FailAppend
	}

	msgCopy := *msg
	m.messages[msg.ConversationID] = append(m.messages[msg.ConversationID], &msgCopy)
	return nil
}

// GetRecentMessages returns the most recent `limit` messages in timestamp order.
func (m *MockStore) GetRecentMessages(ctx context.Context, conversationID string, limit int) ([]*Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if limit <= 0 {
		limit = 20
	}

	msgs := m.messages[conversationID]
	if len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}

	result := make([]*Message, len(msgs))
	for i, msg := range msgs {
		msgCopy := *msg
		result[i] = &msgCopy
	}
	return result, nil
}

// MessageCount returns the number of stored messages for a conversation.
func (m *MockStore) MessageCount(conversationID string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.messages[conversationID])
}

// LastMessage returns the most recently appended message, or nil.
func (m *MockStore) LastMessage(conversationID string) *Message {
	m.mu.RLock()
	defer m.mu.RUnlock()

	msgs := m.messages[conversationID]
	if len(msgs) == 0 {
		return nil
	}
	msgCopy := *msgs[len(msgs)-1]
	return &msgCopy
}

// SetNote upserts a note by key.
func (m *MockStore) SetNote(ctx context.Context, note *Note) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	n := *note
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	if existing, ok := m.notes[n.Key]; ok {
		n.ID = existing.ID
		n.CreatedAt = existing.CreatedAt
	} else if n.CreatedAt.IsZero() {
		n.CreatedAt = now
	}
	n.UpdatedAt = now
	m.notes[n.Key] = &n
	return nil
}

// GetNote retrieves a note by key.
func (m *MockStore) GetNote(ctx context.Context, key string) (*Note, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	note, ok := m.notes[key]
	if !ok {
		return nil, ErrNotFound
	}
	n := *note
	return &n, nil
}

// ListNoteKeys returns all note keys in lexical order.
func (m *MockStore) ListNoteKeys(ctx context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	keys := make([]string, 0, len(m.notes))
	for key := range m.notes {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys, nil
}

// DeleteNote removes a note by key.
func (m *MockStore) DeleteNote(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.notes[key]; !ok {
		return ErrNotFound
	}
	delete(m.notes, key)
	return nil
}

// Close is a no-op for the mock store.
func (m *MockStore) Close() error {
	return nil
}

var _ Store = (*MockStore)(nil)
