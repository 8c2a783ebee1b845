// ABOUTME: HTTP Generator speaking the OpenAI-compatible completions protocol.
// ABOUTME: Supports synchronous completion and SSE token streaming.

package textgen

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// HTTPGenerator sends prompts to an OpenAI-compatible completions endpoint.
// Any local or hosted server speaking that protocol works.
type HTTPGenerator struct {
	client   *http.Client
	endpoint string
	model    string
	apiKey   string
	logger   *slog.Logger
}

// HTTPConfig configures an HTTPGenerator.
type HTTPConfig struct {
	Endpoint string // completions URL, e.g. http://localhost:8000/v1/completions
	Model    string
	APIKey   string // optional bearer token
	Client   *http.Client
	Logger   *slog.Logger
}

// NewHTTPGenerator creates a Generator backed by a completions API.
func NewHTTPGenerator(cfg HTTPConfig) *HTTPGenerator {
	client := cfg.Client
	if client == nil {
		client = &http.Client{Timeout: 2 * time.Minute}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &HTTPGenerator{
		client:   client,
		endpoint: cfg.Endpoint,
		model:    cfg.Model,
		apiKey:   cfg.APIKey,
		logger:   logger.With("component", "textgen.http"),
	}
}

type completionRequest struct {
	Model       string   `json:"model,omitempty"`
	Prompt      string   `json:"prompt"`
	MaxTokens   int      `json:"max_tokens,omitempty"`
	Temperature float64  `json:"temperature,omitempty"`
	Stop        []string `json:"stop,omitempty"`
	Stream      bool     `json:"stream,omitempty"`
}

type completionResponse struct {
	Choices []struct {
		Text string `json:"text"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Generate requests a full completion.
func (g *HTTPGenerator) Generate(ctx context.Context, prompt string, opts Options) (string, error) {
	resp, err := g.post(ctx, prompt, opts, false)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: reading response: %v", ErrGenerationFailed, err)
	}

	var parsed completionResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("%w: decoding response: %v", ErrGenerationFailed, err)
	}
	if parsed.Error != nil {
		return "", fmt.Errorf("%w: %s", ErrGenerationFailed, parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("%w: response carried no choices", ErrGenerationFailed)
	}
	return parsed.Choices[0].Text, nil
}

// GenerateStream requests a streamed completion and relays SSE tokens.
func (g *HTTPGenerator) GenerateStream(ctx context.Context, prompt string, opts Options) (<-chan Chunk, error) {
	resp, err := g.post(ctx, prompt, opts, true)
	if err != nil {
		return nil, err
	}

	ch := make(chan Chunk, 16)
	go func() {
		defer close(ch)
		defer resp.Body.Close()

		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			line := scanner.Text()
			data, found := strings.CutPrefix(line, "data: ")
			if !found || data == "[DONE]" {
				continue
			}

			var parsed completionResponse
			if err := json.Unmarshal([]byte(data), &parsed); err != nil {
				g.emit(ctx, ch, Chunk{Err: fmt.Errorf("%w: decoding stream event: %v", ErrGenerationFailed, err)})
				return
			}
			if len(parsed.Choices) == 0 {
				continue
			}
			if !g.emit(ctx, ch, Chunk{Content: parsed.Choices[0].Text}) {
				return
			}
		}
		if err := scanner.Err(); err != nil && ctx.Err() == nil {
			g.emit(ctx, ch, Chunk{Err: fmt.Errorf("%w: reading stream: %v", ErrGenerationFailed, err)})
		}
	}()
	return ch, nil
}

// post sends the completion request and checks the HTTP status.
func (g *HTTPGenerator) post(ctx context.Context, prompt string, opts Options, stream bool) (*http.Response, error) {
	payload, err := json.Marshal(completionRequest{
		Model:       g.model,
		Prompt:      prompt,
		MaxTokens:   opts.MaxTokens,
		Temperature: opts.Temperature,
		Stop:        opts.StopSequences,
		Stream:      stream,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: encoding request: %v", ErrGenerationFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("%w: building request: %v", ErrGenerationFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if g.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+g.apiKey)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		resp.Body.Close()
		g.logger.Warn("completion request rejected",
			"status", resp.StatusCode,
			"endpoint", g.endpoint,
		)
		return nil, fmt.Errorf("%w: endpoint returned %d: %s", ErrGenerationFailed, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return resp, nil
}

// emit sends a chunk unless the consumer is gone.
func (g *HTTPGenerator) emit(ctx context.Context, ch chan<- Chunk, chunk Chunk) bool {
	select {
	case ch <- chunk:
		return true
	case <-ctx.Done():
		return false
	}
}
