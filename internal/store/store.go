// ABOUTME: Store interface and data types for strand persistence
// ABOUTME: Defines Conversation, Message structs and the Store interface for database operations

package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested entity does not exist
var ErrNotFound = errors.New("not found")

// ErrDuplicateConversation is returned when trying to create a conversation that already exists
var ErrDuplicateConversation = errors.New("conversation already exists")

// Conversation status constants
const (
	StatusActive   = "active"
	StatusArchived = "archived"
	StatusDeleted  = "deleted"
)

// Message role constants
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// Conversation represents a conversation and its turn bookkeeping.
// The orchestrator bumps UpdatedAt and MessageCount on every turn.
type Conversation struct {
	ID           string
	Title        string
	Status       string // "active", "archived", "deleted"
	CreatedAt    time.Time
	UpdatedAt    time.Time
	MessageCount int
}

// Message represents a single message within a conversation.
// Messages are immutable once created.
type Message struct {
	ID             string
	ConversationID string
	Role           string // "system", "user", "assistant", "tool"
	Content        string
	Timestamp      time.Time
	ToolsUsed      []string
	ProcessingTime time.Duration // zero if not recorded
	Partial        bool          // true when a cancelled stream cut generation short
}

// ConversationSummary is a conversation row plus a preview of its latest message.
type ConversationSummary struct {
	Conversation
	Preview string
}

// Note is a key-value record owned by the notes tool.
type Note struct {
	ID        string
	Key       string
	Value     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Store defines the interface for conversation and message persistence
type Store interface {
	// Conversations
	CreateConversation(ctx context.Context, conv *Conversation) error
	GetConversation(ctx context.Context, id string) (*Conversation, error)
	UpdateConversation(ctx context.Context, conv *Conversation) error
	ListConversations(ctx context.Context, limit int) ([]*ConversationSummary, error)

	// Messages
	AppendMessage(ctx context.Context, msg *Message) error
	GetRecentMessages(ctx context.Context, conversationID string, limit int) ([]*Message, error)

	// Notes (key-value storage for the notes tool)
	SetNote(ctx context.Context, note *Note) error
	GetNote(ctx context.Context, key string) (*Note, error)
	ListNoteKeys(ctx context.Context) ([]string, error)
	DeleteNote(ctx context.Context, key string) error

	Close() error
}
