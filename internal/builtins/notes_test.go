// ABOUTME: Tests for the notes tool over the mock store.
// ABOUTME: Covers the set/get/list/delete cycle and missing-key handling.

package builtins

import (
	"context"
	"testing"

	"github.com/strandlabs/strand/internal/store"
)

func TestNotes(t *testing.T) {
	ctx := context.Background()

	t.Run("set get cycle", func(t *testing.T) {
		notes := NewNotes(store.NewMockStore())

		result := notes.Execute(ctx, map[string]any{"action": "set", "key": "grocery", "value": "milk, eggs"})
		if !result.Success {
			t.Fatalf("set failed: %s", result.Error)
		}

		result = notes.Execute(ctx, map[string]any{"action": "get", "key": "grocery"})
		if !result.Success {
			t.Fatalf("get failed: %s", result.Error)
		}
		if result.Data["value"] != "milk, eggs" {
			t.Errorf("unexpected value: %v", result.Data["value"])
		}
	})

	t.Run("list returns keys", func(t *testing.T) {
		notes := NewNotes(store.NewMockStore())
		for _, key := range []string{"b", "a"} {
			if result := notes.Execute(ctx, map[string]any{"action": "set", "key": key, "value": "v"}); !result.Success {
				t.Fatalf("set %s failed: %s", key, result.Error)
			}
		}

		result := notes.Execute(ctx, map[string]any{"action": "list"})
		if !result.Success {
			t.Fatalf("list failed: %s", result.Error)
		}
		if result.Data["count"] != 2 {
			t.Errorf("unexpected count: %v", result.Data["count"])
		}
	})

	t.Run("delete then get fails", func(t *testing.T) {
		notes := NewNotes(store.NewMockStore())
		notes.Execute(ctx, map[string]any{"action": "set", "key": "tmp", "value": "v"})

		if result := notes.Execute(ctx, map[string]any{"action": "delete", "key": "tmp"}); !result.Success {
			t.Fatalf("delete failed: %s", result.Error)
		}
		if result := notes.Execute(ctx, map[string]any{"action": "get", "key": "tmp"}); result.Success {
			t.Error("expected get to fail after delete")
		}
	})

	t.Run("missing key for get", func(t *testing.T) {
		notes := NewNotes(store.NewMockStore())
		if result := notes.Execute(ctx, map[string]any{"action": "get", "key": "absent"}); result.Success {
			t.Error("expected failure for absent key")
		}
	})

	t.Run("set requires key and value", func(t *testing.T) {
		notes := NewNotes(store.NewMockStore())
		if result := notes.Execute(ctx, map[string]any{"action": "set", "key": "only-key"}); result.Success {
			t.Error("expected failure without value")
		}
	})

	t.Run("unknown action", func(t *testing.T) {
		notes := NewNotes(store.NewMockStore())
		if result := notes.Execute(ctx, map[string]any{"action": "archive"}); result.Success {
			t.Error("expected failure for unknown action")
		}
	})
}
