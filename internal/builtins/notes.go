// ABOUTME: Notes tool providing durable key-value storage through the store.
// ABOUTME: Actions: set, get, list, delete.

package builtins

import (
	"context"
	"errors"

	"github.com/strandlabs/strand/internal/store"
	"github.com/strandlabs/strand/internal/tool"
)

// NoteStore is the slice of the store the notes tool needs.
type NoteStore interface {
	SetNote(ctx context.Context, note *store.Note) error
	GetNote(ctx context.Context, key string) (*store.Note, error)
	ListNoteKeys(ctx context.Context) ([]string, error)
	DeleteNote(ctx context.Context, key string) error
}

// Notes exposes durable key-value storage as a tool.
type Notes struct {
	store NoteStore
}

// NewNotes creates the notes tool over the given store.
func NewNotes(s NoteStore) *Notes {
	return &Notes{store: s}
}

func (n *Notes) Name() string        { return "notes" }
func (n *Notes) Description() string { return "Store and retrieve persistent notes" }
func (n *Notes) Category() string    { return tool.CategoryProductivity }
func (n *Notes) IsAvailable() bool   { return n.store != nil }

func (n *Notes) Parameters() []tool.Parameter {
	return []tool.Parameter{
		{
			Name:        "action",
			Type:        "string",
			Description: "Note operation to perform",
			Required:    true,
			Enum:        []string{"set", "get", "list", "delete"},
		},
		{
			Name:        "key",
			Type:        "string",
			Description: "Note key (required for set, get, delete)",
		},
		{
			Name:        "value",
			Type:        "string",
			Description: "Note content (required for set)",
		},
	}
}

func (n *Notes) Execute(ctx context.Context, params map[string]any) tool.Result {
	action, ok := stringParam(params, "action")
	if !ok {
		return failure("notes requires an action")
	}

	switch action {
	case "set":
		key, _ := stringParam(params, "key")
		value, _ := stringParam(params, "value")
		if key == "" || value == "" {
			return failure("notes set requires key and value")
		}
		if err := n.store.SetNote(ctx, &store.Note{Key: key, Value: value}); err != nil {
			return failure("failed to save note: %v", err)
		}
		return tool.Result{Success: true, Data: map[string]any{"key": key, "status": "saved"}}

	case "get":
		key, _ := stringParam(params, "key")
		if key == "" {
			return failure("notes get requires a key")
		}
		note, err := n.store.GetNote(ctx, key)
		if errors.Is(err, store.ErrNotFound) {
			return failure("no note with key %q", key)
		}
		if err != nil {
			return failure("failed to read note: %v", err)
		}
		return tool.Result{Success: true, Data: map[string]any{"key": note.Key, "value": note.Value}}

	case "list":
		keys, err := n.store.ListNoteKeys(ctx)
		if err != nil {
			return failure("failed to list notes: %v", err)
		}
		return tool.Result{Success: true, Data: map[string]any{"keys": keys, "count": len(keys)}}

	case "delete":
		key, _ := stringParam(params, "key")
		if key == "" {
			return failure("notes delete requires a key")
		}
		if err := n.store.DeleteNote(ctx, key); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return failure("no note with key %q", key)
			}
			return failure("failed to delete note: %v", err)
		}
		return tool.Result{Success: true, Data: map[string]any{"key": key, "status": "deleted"}}

	default:
		return failure("unknown notes action: %s", action)
	}
}
