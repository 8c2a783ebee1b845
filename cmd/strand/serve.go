// ABOUTME: HTTP API server exposing chat, stats, and conversation listing
// ABOUTME: JSON request/response with SSE streaming on demand

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/fatih/color"

	"github.com/strandlabs/strand/internal/orchestrator"
)

func runServe(ctx context.Context) error {
	cfg, configPath, err := loadConfig()
	if err != nil {
		return err
	}

	cyan := color.New(color.FgCyan)
	gray := color.New(color.FgHiBlack)
	green := color.New(color.FgGreen)
	cyan.Print(banner)
	gray.Printf("    version: %s\n\n", version)
	green.Print("    ▶ ")
	fmt.Printf("Config: %s\n", configPath)
	green.Print("    ▶ ")
	fmt.Printf("HTTP:   %s\n", cfg.Server.HTTPAddr)
	fmt.Println()

	logger := setupLogger(cfg.Logging)
	a, err := buildApp(cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	logger.Info("starting strand",
		"config", configPath,
		"http_addr", cfg.Server.HTTPAddr,
	)

	go a.maintenanceLoop(ctx)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /chat", a.handleChat)
	mux.HandleFunc("GET /stats", a.handleStats)
	mux.HandleFunc("GET /conversations", a.handleConversations)
	mux.HandleFunc("GET /tools", a.handleTools)
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	srv := &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

type chatRequest struct {
	Input          string  `json:"input"`
	ConversationID string  `json:"conversation_id,omitempty"`
	Temperature    float64 `json:"temperature,omitempty"`
	MaxTokens      int     `json:"max_tokens,omitempty"`
	Stream         bool    `json:"stream,omitempty"`
}

type chatResponse struct {
	Content        string   `json:"content"`
	ConversationID string   `json:"conversation_id"`
	Success        bool     `json:"success"`
	Error          string   `json:"error,omitempty"`
	ToolsUsed      []string `json:"tools_used,omitempty"`
	ProcessingMs   int64    `json:"processing_ms"`
	Partial        bool     `json:"partial,omitempty"`
	Final          bool     `json:"final,omitempty"`
}

func toChatResponse(resp *orchestrator.Response) chatResponse {
	return chatResponse{
		Content:        resp.Content,
		ConversationID: resp.ConversationID,
		Success:        resp.Success,
		Error:          resp.Error,
		ToolsUsed:      resp.ToolsUsed,
		ProcessingMs:   resp.ProcessingTime.Milliseconds(),
		Partial:        resp.IsPartial,
		Final:          resp.IsFinal,
	}
}

func (a *app) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return
	}

	oreq := orchestrator.Request{
		UserInput:      req.Input,
		ConversationID: req.ConversationID,
		Temperature:    req.Temperature,
		MaxTokens:      req.MaxTokens,
	}

	if req.Stream {
		a.streamChat(w, r, oreq)
		return
	}

	resp, err := a.orch.Handle(r.Context(), oreq)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	status := http.StatusOK
	if !resp.Success {
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, toChatResponse(resp))
}

// streamChat relays orchestrator chunks as server-sent events.
func (a *app) streamChat(w http.ResponseWriter, r *http.Request, req orchestrator.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "streaming unsupported"})
		return
	}

	stream, err := a.orch.HandleStream(r.Context(), req)
	if err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)

	for resp := range stream {
		payload, err := json.Marshal(toChatResponse(resp))
		if err != nil {
			a.logger.Error("failed to encode stream event", "error", err)
			return
		}
		fmt.Fprintf(w, "data: %s\n\n", payload)
		flusher.Flush()
	}
	fmt.Fprint(w, "data: [DONE]\n\n")
	flusher.Flush()
}

func (a *app) handleStats(w http.ResponseWriter, r *http.Request) {
	stats := a.orch.Stats()
	registry := a.registry.Stats()
	writeJSON(w, http.StatusOK, map[string]any{
		"requests": map[string]any{
			"total":              stats.TotalRequests,
			"successful":         stats.SuccessfulRequests,
			"failed":             stats.FailedRequests,
			"average_latency_ms": stats.AverageLatency.Milliseconds(),
		},
		"tool_usage":      stats.ToolUsage,
		"active_contexts": stats.ActiveContexts,
		"available_tools": stats.AvailableTools,
		"tools":           registry,
	})
}

func (a *app) handleConversations(w http.ResponseWriter, r *http.Request) {
	summaries, err := a.store.ListConversations(r.Context(), 50)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	type item struct {
		ID           string `json:"id"`
		Title        string `json:"title"`
		Status       string `json:"status"`
		MessageCount int    `json:"message_count"`
		Preview      string `json:"preview"`
		UpdatedAt    string `json:"updated_at"`
	}
	items := make([]item, 0, len(summaries))
	for _, s := range summaries {
		items = append(items, item{
			ID:           s.ID,
			Title:        s.Title,
			Status:       s.Status,
			MessageCount: s.MessageCount,
			Preview:      s.Preview,
			UpdatedAt:    s.UpdatedAt.Format(time.RFC3339),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"conversations": items})
}

func (a *app) handleTools(w http.ResponseWriter, r *http.Request) {
	infos := a.registry.ListAvailable(r.Context(), "")
	writeJSON(w, http.StatusOK, map[string]any{"tools": infos})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
