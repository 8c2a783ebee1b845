// ABOUTME: Tests for SQLite store implementation
// ABOUTME: Covers conversation CRUD, message persistence, ordering/limiting, and notes storage

package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// newTestStore creates a SQLite store backed by a temp file.
func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	store, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	return store
}

func TestNewSQLiteStore(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	store, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	defer store.Close()

	// Verify the database file was created
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("database file was not created")
	}
}

func TestNewSQLiteStore_CreatesDirectory(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "subdir", "nested", "test.db")

	store, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	defer store.Close()

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("database file was not created in nested directory")
	}
}

func TestCreateAndGetConversation(t *testing.T) {
	store := newTestStore(t)
	defer store.Close()

	ctx := context.Background()
	conv := &Conversation{
		ID:        "conv-123",
		Title:     "Benchmark chat",
		Status:    StatusActive,
		CreatedAt: time.Now().UTC().Truncate(time.Second),
		UpdatedAt: time.Now().UTC().Truncate(time.Second),
	}

	if err := store.CreateConversation(ctx, conv); err != nil {
		t.Fatalf("CreateConversation failed: %v", err)
	}

	got, err := store.GetConversation(ctx, "conv-123")
	if err != nil {
		t.Fatalf("GetConversation failed: %v", err)
	}

	if got.ID != conv.ID {
		t.Errorf("expected ID %q, got %q", conv.ID, got.ID)
	}
	if got.Title != conv.Title {
		t.Errorf("expected title %q, got %q", conv.Title, got.Title)
	}
	if got.Status != StatusActive {
		t.Errorf("expected status %q, got %q", StatusActive, got.Status)
	}
	if got.MessageCount != 0 {
		t.Errorf("expected message count 0, got %d", got.MessageCount)
	}
}

func TestCreateConversation_Duplicate(t *testing.T) {
	store := newTestStore(t)
	defer store.Close()

	ctx := context.Background()
	conv := &Conversation{
		ID:        "conv-dup",
		Title:     "first",
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	if err := store.CreateConversation(ctx, conv); err != nil {
		t.Fatalf("first create failed: %v", err)
	}
	if err := store.CreateConversation(ctx, conv); err != ErrDuplicateConversation {
		t.Errorf("expected ErrDuplicateConversation, got %v", err)
	}
}

func TestGetConversation_NotFound(t *testing.T) {
	store := newTestStore(t)
	defer store.Close()

	_, err := store.GetConversation(context.Background(), "nope")
	if err != ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdateConversation(t *testing.T) {
	store := newTestStore(t)
	defer store.Close()

	ctx := context.Background()
	conv := &Conversation{
		ID:        "conv-upd",
		Title:     "before",
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	if err := store.CreateConversation(ctx, conv); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	conv.Title = "after"
	conv.Status = StatusArchived
	conv.MessageCount = 7
	if err := store.UpdateConversation(ctx, conv); err != nil {
		t.Fatalf("update failed: %v", err)
	}

	got, err := store.GetConversation(ctx, "conv-upd")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got.Title != "after" || got.Status != StatusArchived || got.MessageCount != 7 {
		t.Errorf("update not persisted: %+v", got)
	}

	missing := &Conversation{ID: "absent"}
	if err := store.UpdateConversation(ctx, missing); err != ErrNotFound {
		t.Errorf("expected ErrNotFound for absent conversation, got %v", err)
	}
}

func TestAppendAndGetRecentMessages(t *testing.T) {
	store := newTestStore(t)
	defer store.Close()

	ctx := context.Background()
	conv := &Conversation{ID: "conv-msgs", Title: "msgs", CreatedAt: time.Now(), UpdatedAt: time.Now()}
	if err := store.CreateConversation(ctx, conv); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	base := time.Now().UTC().Truncate(time.Second)
	for i := 0; i < 5; i++ {
		msg := &Message{
			ID:             fmt.Sprintf("msg-%d", i),
			ConversationID: "conv-msgs",
			Role:           RoleUser,
			Content:        fmt.Sprintf("message %d", i),
			Timestamp:      base.Add(time.Duration(i) * time.Second),
		}
		if err := store.AppendMessage(ctx, msg); err != nil {
			t.Fatalf("AppendMessage failed: %v", err)
		}
	}

	t.Run("returns all when under limit", func(t *testing.T) {
		msgs, err := store.GetRecentMessages(ctx, "conv-msgs", 10)
		if err != nil {
			t.Fatalf("GetRecentMessages failed: %v", err)
		}
		if len(msgs) != 5 {
			t.Fatalf("expected 5 messages, got %d", len(msgs))
		}
		// Messages come back oldest first
		if msgs[0].ID != "msg-0" || msgs[4].ID != "msg-4" {
			t.Errorf("wrong order: first=%s last=%s", msgs[0].ID, msgs[4].ID)
		}
	})

	t.Run("limits to most recent", func(t *testing.T) {
		msgs, err := store.GetRecentMessages(ctx, "conv-msgs", 3)
		if err != nil {
			t.Fatalf("GetRecentMessages failed: %v", err)
		}
		if len(msgs) != 3 {
			t.Fatalf("expected 3 messages, got %d", len(msgs))
		}
		if msgs[0].ID != "msg-2" || msgs[2].ID != "msg-4" {
			t.Errorf("expected window msg-2..msg-4, got %s..%s", msgs[0].ID, msgs[2].ID)
		}
	})

	t.Run("empty conversation yields no messages", func(t *testing.T) {
		msgs, err := store.GetRecentMessages(ctx, "conv-empty", 10)
		if err != nil {
			t.Fatalf("GetRecentMessages failed: %v", err)
		}
		if len(msgs) != 0 {
			t.Errorf("expected no messages, got %d", len(msgs))
		}
	})
}

func TestMessageToolsAndTiming(t *testing.T) {
	store := newTestStore(t)
	defer store.Close()

	ctx := context.Background()
	conv := &Conversation{ID: "conv-tools", Title: "tools", CreatedAt: time.Now(), UpdatedAt: time.Now()}
	if err := store.CreateConversation(ctx, conv); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	msg := &Message{
		ID:             "msg-tools",
		ConversationID: "conv-tools",
		Role:           RoleAssistant,
		Content:        "results attached",
		Timestamp:      time.Now().UTC().Truncate(time.Second),
		ToolsUsed:      []string{"web_search", "music_control"},
		ProcessingTime: 1500 * time.Millisecond,
		Partial:        true,
	}
	if err := store.AppendMessage(ctx, msg); err != nil {
		t.Fatalf("AppendMessage failed: %v", err)
	}

	msgs, err := store.GetRecentMessages(ctx, "conv-tools", 1)
	if err != nil {
		t.Fatalf("GetRecentMessages failed: %v", err)
	}
	if len(msgs) != 1 {
		t.Fatalf("expected 1 message, got %d", len(msgs))
	}
	got := msgs[0]
	if len(got.ToolsUsed) != 2 || got.ToolsUsed[0] != "web_search" {
		t.Errorf("tools not round-tripped: %v", got.ToolsUsed)
	}
	if got.ProcessingTime != 1500*time.Millisecond {
		t.Errorf("expected 1.5s processing time, got %v", got.ProcessingTime)
	}
	if !got.Partial {
		t.Error("partial flag not round-tripped")
	}
}

func TestListConversations(t *testing.T) {
	store := newTestStore(t)
	defer store.Close()

	ctx := context.Background()
	base := time.Now().UTC().Truncate(time.Second)

	for i, status := range []string{StatusActive, StatusActive, StatusDeleted} {
		conv := &Conversation{
			ID:        fmt.Sprintf("conv-%d", i),
			Title:     fmt.Sprintf("chat %d", i),
			Status:    status,
			CreatedAt: base,
			UpdatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		if err := store.CreateConversation(ctx, conv); err != nil {
			t.Fatalf("create failed: %v", err)
		}
	}

	msg := &Message{
		ID:             "preview-msg",
		ConversationID: "conv-1",
		Role:           RoleUser,
		Content:        "hello there",
		Timestamp:      base,
	}
	if err := store.AppendMessage(ctx, msg); err != nil {
		t.Fatalf("AppendMessage failed: %v", err)
	}

	summaries, err := store.ListConversations(ctx, 10)
	if err != nil {
		t.Fatalf("ListConversations failed: %v", err)
	}
	if len(summaries) != 2 {
		t.Fatalf("expected 2 conversations (deleted excluded), got %d", len(summaries))
	}
	// Most recently updated first
	if summaries[0].ID != "conv-1" {
		t.Errorf("expected conv-1 first, got %s", summaries[0].ID)
	}
	if summaries[0].Preview != "hello there" {
		t.Errorf("expected preview %q, got %q", "hello there", summaries[0].Preview)
	}
}

func TestNotes(t *testing.T) {
	store := newTestStore(t)
	defer store.Close()

	ctx := context.Background()

	t.Run("set and get", func(t *testing.T) {
		if err := store.SetNote(ctx, &Note{Key: "alpha", Value: "1"}); err != nil {
			t.Fatalf("SetNote failed: %v", err)
		}
		note, err := store.GetNote(ctx, "alpha")
		if err != nil {
			t.Fatalf("GetNote failed: %v", err)
		}
		if note.Value != "1" {
			t.Errorf("expected value %q, got %q", "1", note.Value)
		}
	})

	t.Run("upsert overwrites", func(t *testing.T) {
		if err := store.SetNote(ctx, &Note{Key: "alpha", Value: "2"}); err != nil {
			t.Fatalf("SetNote failed: %v", err)
		}
		note, err := store.GetNote(ctx, "alpha")
		if err != nil {
			t.Fatalf("GetNote failed: %v", err)
		}
		if note.Value != "2" {
			t.Errorf("expected value %q, got %q", "2", note.Value)
		}
	})

	t.Run("list keys sorted", func(t *testing.T) {
		if err := store.SetNote(ctx, &Note{Key: "beta", Value: "3"}); err != nil {
			t.Fatalf("SetNote failed: %v", err)
		}
		keys, err := store.ListNoteKeys(ctx)
		if err != nil {
			t.Fatalf("ListNoteKeys failed: %v", err)
		}
		if len(keys) != 2 || keys[0] != "alpha" || keys[1] != "beta" {
			t.Errorf("unexpected keys: %v", keys)
		}
	})

	t.Run("delete", func(t *testing.T) {
		if err := store.DeleteNote(ctx, "alpha"); err != nil {
			t.Fatalf("DeleteNote failed: %v", err)
		}
		if _, err := store.GetNote(ctx, "alpha"); err != ErrNotFound {
			t.Errorf("expected ErrNotFound after delete, got %v", err)
		}
		if err := store.DeleteNote(ctx, "alpha"); err != ErrNotFound {
			t.Errorf("expected ErrNotFound on double delete, got %v", err)
		}
	})
}
