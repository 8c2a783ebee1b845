// ABOUTME: Tests for the web search tool over a fake Searcher backend.
// ABOUTME: Covers option plumbing, error degradation, and parameter coercion.

package builtins

import (
	"context"
	"fmt"
	"testing"
)

// fakeSearcher records the last call and returns canned hits.
type fakeSearcher struct {
	lastQuery string
	lastOpts  SearchOptions
	hits      []SearchResult
	err       error
}

func (f *fakeSearcher) Search(ctx context.Context, query string, opts SearchOptions) ([]SearchResult, error) {
	f.lastQuery = query
	f.lastOpts = opts
	return f.hits, f.err
}

func TestWebSearch(t *testing.T) {
	ctx := context.Background()

	t.Run("passes options through", func(t *testing.T) {
		searcher := &fakeSearcher{hits: []SearchResult{
			{Title: "Go spec", URL: "https://go.dev/ref/spec", Snippet: "The Go Programming Language Specification"},
		}}
		ws := NewWebSearch(searcher)

		result := ws.Execute(ctx, map[string]any{
			"query":       "go language spec",
			"num_results": 3,
			"search_type": "news",
			"freshness":   "week",
		})
		if !result.Success {
			t.Fatalf("search failed: %s", result.Error)
		}
		if searcher.lastQuery != "go language spec" {
			t.Errorf("unexpected query: %q", searcher.lastQuery)
		}
		if searcher.lastOpts.NumResults != 3 || searcher.lastOpts.SearchType != "news" || searcher.lastOpts.Freshness != "week" {
			t.Errorf("options not plumbed: %+v", searcher.lastOpts)
		}
		if result.Data["count"] != 1 {
			t.Errorf("unexpected count: %v", result.Data["count"])
		}
	})

	t.Run("defaults apply", func(t *testing.T) {
		searcher := &fakeSearcher{}
		ws := NewWebSearch(searcher)

		result := ws.Execute(ctx, map[string]any{"query": "anything"})
		if !result.Success {
			t.Fatalf("search failed: %s", result.Error)
		}
		if searcher.lastOpts.NumResults != 5 || searcher.lastOpts.SearchType != "web" {
			t.Errorf("defaults not applied: %+v", searcher.lastOpts)
		}
	})

	t.Run("json numbers coerce", func(t *testing.T) {
		searcher := &fakeSearcher{}
		ws := NewWebSearch(searcher)

		result := ws.Execute(ctx, map[string]any{"query": "q", "num_results": float64(7)})
		if !result.Success {
			t.Fatalf("search failed: %s", result.Error)
		}
		if searcher.lastOpts.NumResults != 7 {
			t.Errorf("float64 num_results not coerced: %d", searcher.lastOpts.NumResults)
		}
	})

	t.Run("missing query fails", func(t *testing.T) {
		ws := NewWebSearch(&fakeSearcher{})
		if result := ws.Execute(ctx, map[string]any{}); result.Success {
			t.Error("expected failure without query")
		}
	})

	t.Run("backend error degrades to failed result", func(t *testing.T) {
		ws := NewWebSearch(&fakeSearcher{err: fmt.Errorf("rate limited")})

		result := ws.Execute(ctx, map[string]any{"query": "q"})
		if result.Success {
			t.Error("expected failure from backend error")
		}
		if result.Error == "" {
			t.Error("expected error detail in result")
		}
	})

	t.Run("availability tracks backend", func(t *testing.T) {
		if NewWebSearch(nil).IsAvailable() {
			t.Error("nil searcher should be unavailable")
		}
	})
}
