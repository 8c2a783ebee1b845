// ABOUTME: SQLite implementation of the Store interface using modernc.org/sqlite
// ABOUTME: Provides conversation/message persistence with automatic schema creation

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements the Store interface using SQLite
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore creates a new SQLite store at the given path.
// The schema is automatically created if it doesn't exist.
// Parent directories are created if needed.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	logger := slog.Default().With("component", "store")

	// Ensure parent directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Enable WAL mode for better concurrent performance
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &SQLiteStore{
		db:     db,
		logger: logger,
	}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	logger.Info("SQLite store initialized", "path", path)
	return s, nil
}

// createSchema creates the database tables if they don't exist
func (s *SQLiteStore) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS conversations (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'active',
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL,
			message_count INTEGER NOT NULL DEFAULT 0
		);

		CREATE TABLE IF NOT EXISTS messages (
			id TEXT PRIMARY KEY,
			conversation_id TEXT NOT NULL,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			timestamp DATETIME NOT NULL,
			tools_used TEXT,
			processing_time_ms INTEGER NOT NULL DEFAULT 0,
			partial INTEGER NOT NULL DEFAULT 0,
			FOREIGN KEY (conversation_id) REFERENCES conversations(id)
		);

		CREATE INDEX IF NOT EXISTS idx_messages_conversation_timestamp
			ON messages(conversation_id, timestamp);

		CREATE TABLE IF NOT EXISTS notes (
			id TEXT PRIMARY KEY,
			key TEXT NOT NULL UNIQUE,
			value TEXT NOT NULL,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		);
	`

	_, err := s.db.Exec(schema)
	return err
}

// CreateConversation inserts a new conversation row.
// Returns ErrDuplicateConversation if the ID is already taken.
func (s *SQLiteStore) CreateConversation(ctx context.Context, conv *Conversation) error {
	if conv.Status == "" {
		conv.Status = StatusActive
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO conversations (id, title, status, created_at, updated_at, message_count)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		conv.ID, conv.Title, conv.Status, conv.CreatedAt, conv.UpdatedAt, conv.MessageCount,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateConversation
		}
		return fmt.Errorf("inserting conversation: %w", err)
	}
	return nil
}

// GetConversation retrieves a conversation by ID.
func (s *SQLiteStore) GetConversation(ctx context.Context, id string) (*Conversation, error) {
	conv := &Conversation{}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, title, status, created_at, updated_at, message_count
		 FROM conversations WHERE id = ?`, id,
	).Scan(&conv.ID, &conv.Title, &conv.Status, &conv.CreatedAt, &conv.UpdatedAt, &conv.MessageCount)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying conversation: %w", err)
	}
	return conv, nil
}

// UpdateConversation updates title, status, updated_at and message_count.
func (s *SQLiteStore) UpdateConversation(ctx context.Context, conv *Conversation) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE conversations SET title = ?, status = ?, updated_at = ?, message_count = ?
		 WHERE id = ?`,
		conv.Title, conv.Status, conv.UpdatedAt, conv.MessageCount, conv.ID,
	)
	if err != nil {
		return fmt.Errorf("updating conversation: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking update result: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListConversations returns conversations ordered by most recent activity,
// each with a preview of its latest message. Deleted conversations are skipped.
func (s *SQLiteStore) ListConversations(ctx context.Context, limit int) ([]*ConversationSummary, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT c.id, c.title, c.status, c.created_at, c.updated_at, c.message_count,
		        COALESCE((SELECT m.content FROM messages m
		                  WHERE m.conversation_id = c.id
		                  ORDER BY m.timestamp DESC LIMIT 1), '')
		 FROM conversations c
		 WHERE c.status != 'deleted'
		 ORDER BY c.updated_at DESC
		 LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("listing conversations: %w", err)
	}
	defer rows.Close()

	var summaries []*ConversationSummary
	for rows.Next() {
		cs := &ConversationSummary{}
		if err := rows.Scan(&cs.ID, &cs.Title, &cs.Status, &cs.CreatedAt, &cs.UpdatedAt,
			&cs.MessageCount, &cs.Preview); err != nil {
			return nil, fmt.Errorf("scanning conversation: %w", err)
		}
		if len(cs.Preview) > 100 {
			cs.Preview = cs.Preview[:100] + "..."
		}
		summaries = append(summaries, cs)
	}
	return summaries, rows.Err()
}

// AppendMessage inserts a message row. Tools-used is stored as a JSON array.
func (s *SQLiteStore) AppendMessage(ctx context.Context, msg *Message) error {
	var toolsJSON []byte
	if len(msg.ToolsUsed) > 0 {
		var err error
		toolsJSON, err = json.Marshal(msg.ToolsUsed)
		if err != nil {
			return fmt.Errorf("encoding tools used: %w", err)
		}
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO messages (id, conversation_id, role, content, timestamp, tools_used, processing_time_ms, partial)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		msg.ID, msg.ConversationID, msg.Role, msg.Content, msg.Timestamp,
		nullableString(toolsJSON), msg.ProcessingTime.Milliseconds(), msg.Partial,
	)
	if err != nil {
		return fmt.Errorf("inserting message: %w", err)
	}
	return nil
}

// GetRecentMessages returns the most recent `limit` messages for a conversation,
// ordered by timestamp ascending (oldest of the window first).
func (s *SQLiteStore) GetRecentMessages(ctx context.Context, conversationID string, limit int) ([]*Message, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, conversation_id, role, content, timestamp, tools_used, processing_time_ms, partial
		 FROM (SELECT * FROM messages
		       WHERE conversation_id = ?
		       ORDER BY timestamp DESC LIMIT ?)
		 ORDER BY timestamp ASC`, conversationID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying messages: %w", err)
	}
	defer rows.Close()

	var messages []*Message
	for rows.Next() {
		msg := &Message{}
		var toolsJSON sql.NullString
		var procMillis int64
		if err := rows.Scan(&msg.ID, &msg.ConversationID, &msg.Role, &msg.Content,
			&msg.Timestamp, &toolsJSON, &procMillis, &msg.Partial); err != nil {
			return nil, fmt.Errorf("scanning message: %w", err)
		}
		if toolsJSON.Valid && toolsJSON.String != "" {
			if err := json.Unmarshal([]byte(toolsJSON.String), &msg.ToolsUsed); err != nil {
				return nil, fmt.Errorf("decoding tools used: %w", err)
			}
		}
		msg.ProcessingTime = time.Duration(procMillis) * time.Millisecond
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

// SetNote upserts a note by key.
func (s *SQLiteStore) SetNote(ctx context.Context, note *Note) error {
	if note.ID == "" {
		note.ID = uuid.New().String()
	}
	now := time.Now()
	if note.CreatedAt.IsZero() {
		note.CreatedAt = now
	}
	note.UpdatedAt = now

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO notes (id, key, value, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		note.ID, note.Key, note.Value, note.CreatedAt, note.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upserting note: %w", err)
	}
	return nil
}

// GetNote retrieves a note by key.
func (s *SQLiteStore) GetNote(ctx context.Context, key string) (*Note, error) {
	note := &Note{}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, key, value, created_at, updated_at FROM notes WHERE key = ?`, key,
	).Scan(&note.ID, &note.Key, &note.Value, &note.CreatedAt, &note.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying note: %w", err)
	}
	return note, nil
}

// ListNoteKeys returns all note keys in lexical order.
func (s *SQLiteStore) ListNoteKeys(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key FROM notes ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("listing note keys: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("scanning note key: %w", err)
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

// DeleteNote removes a note by key. Returns ErrNotFound if absent.
func (s *SQLiteStore) DeleteNote(ctx context.Context, key string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM notes WHERE key = ?`, key)
	if err != nil {
		return fmt.Errorf("deleting note: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking delete result: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// isUniqueViolation reports whether err is a SQLite UNIQUE constraint failure.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	// modernc.org/sqlite reports constraint violations in the error text
	return strings.Contains(err.Error(), "constraint failed")
}

func nullableString(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}
