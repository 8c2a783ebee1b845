// ABOUTME: Web search tool binding over an injectable Searcher backend.
// ABOUTME: Seeds come from intent routing; network internals live in the backend.

package builtins

import (
	"context"

	"github.com/strandlabs/strand/internal/tool"
)

// SearchOptions tune one search call.
type SearchOptions struct {
	NumResults int
	SearchType string // "web" or "news"
	Freshness  string // e.g. "week" for news searches
}

// SearchResult is one hit returned by a Searcher.
type SearchResult struct {
	Title   string
	URL     string
	Snippet string
}

// Searcher is the search backend the web_search tool queries.
type Searcher interface {
	Search(ctx context.Context, query string, opts SearchOptions) ([]SearchResult, error)
}

// WebSearch exposes a Searcher as a tool.
type WebSearch struct {
	searcher Searcher
}

// NewWebSearch creates the web_search tool over the given backend.
func NewWebSearch(searcher Searcher) *WebSearch {
	return &WebSearch{searcher: searcher}
}

func (w *WebSearch) Name() string        { return "web_search" }
func (w *WebSearch) Description() string { return "Search the web for current information" }
func (w *WebSearch) Category() string    { return tool.CategorySearch }
func (w *WebSearch) IsAvailable() bool   { return w.searcher != nil }

func (w *WebSearch) Parameters() []tool.Parameter {
	return []tool.Parameter{
		{
			Name:        "query",
			Type:        "string",
			Description: "Search query text",
			Required:    true,
		},
		{
			Name:        "num_results",
			Type:        "integer",
			Description: "Maximum number of results",
			Default:     5,
		},
		{
			Name:        "search_type",
			Type:        "string",
			Description: "Kind of search to run",
			Default:     "web",
			Enum:        []string{"web", "news"},
		},
		{
			Name:        "freshness",
			Type:        "string",
			Description: "Recency window for news searches",
		},
	}
}

func (w *WebSearch) Execute(ctx context.Context, params map[string]any) tool.Result {
	query, ok := stringParam(params, "query")
	if !ok || query == "" {
		return failure("web_search requires a query")
	}

	opts := SearchOptions{
		NumResults: intParam(params, "num_results", 5),
		SearchType: "web",
	}
	if searchType, ok := stringParam(params, "search_type"); ok {
		opts.SearchType = searchType
	}
	if freshness, ok := stringParam(params, "freshness"); ok {
		opts.Freshness = freshness
	}

	results, err := w.searcher.Search(ctx, query, opts)
	if err != nil {
		return failure("search failed: %v", err)
	}

	hits := make([]map[string]any, len(results))
	for i, r := range results {
		hits[i] = map[string]any{
			"title":   r.Title,
			"url":     r.URL,
			"snippet": r.Snippet,
		}
	}
	return tool.Result{Success: true, Data: map[string]any{
		"query":       query,
		"search_type": opts.SearchType,
		"results":     hits,
		"count":       len(hits),
	}}
}
