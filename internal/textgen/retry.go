// ABOUTME: Retry decorator for Generators using exponential backoff.
// ABOUTME: Retries whole Generate calls and stream establishment, never mid-stream.

package textgen

import (
	"context"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// RetryGenerator wraps a Generator with exponential-backoff retries.
// Streaming retries apply only to opening the stream; once chunks are
// flowing a failure is the caller's to observe.
type RetryGenerator struct {
	inner           Generator
	maxRetries      uint64
	initialInterval time.Duration
	logger          *slog.Logger
}

// RetryConfig contains configuration options for the RetryGenerator.
type RetryConfig struct {
	MaxRetries      uint64        // 0 means 3
	InitialInterval time.Duration // 0 means 200ms
	Logger          *slog.Logger
}

// NewRetryGenerator wraps inner with retry behavior.
func NewRetryGenerator(inner Generator, cfg RetryConfig) *RetryGenerator {
	maxRetries := cfg.MaxRetries
	if maxRetries == 0 {
		maxRetries = 3
	}
	initialInterval := cfg.InitialInterval
	if initialInterval == 0 {
		initialInterval = 200 * time.Millisecond
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &RetryGenerator{
		inner:           inner,
		maxRetries:      maxRetries,
		initialInterval: initialInterval,
		logger:          logger.With("component", "textgen_retry"),
	}
}

func (r *RetryGenerator) policy(ctx context.Context) backoff.BackOffContext {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.initialInterval
	return backoff.WithContext(backoff.WithMaxRetries(b, r.maxRetries), ctx)
}

// Generate retries the inner call until it succeeds or retries are exhausted.
func (r *RetryGenerator) Generate(ctx context.Context, prompt string, opts Options) (string, error) {
	var content string
	attempt := 0
	operation := func() error {
		attempt++
		out, err := r.inner.Generate(ctx, prompt, opts)
		if err != nil {
			r.logger.Warn("generation attempt failed", "attempt", attempt, "error", err)
			return err
		}
		content = out
		return nil
	}

	if err := backoff.Retry(operation, r.policy(ctx)); err != nil {
		return "", err
	}
	return content, nil
}

// GenerateStream retries opening the stream, then hands it through untouched.
func (r *RetryGenerator) GenerateStream(ctx context.Context, prompt string, opts Options) (<-chan Chunk, error) {
	var stream <-chan Chunk
	attempt := 0
	operation := func() error {
		attempt++
		out, err := r.inner.GenerateStream(ctx, prompt, opts)
		if err != nil {
			r.logger.Warn("stream open attempt failed", "attempt", attempt, "error", err)
			return err
		}
		stream = out
		return nil
	}

	if err := backoff.Retry(operation, r.policy(ctx)); err != nil {
		return nil, err
	}
	return stream, nil
}
