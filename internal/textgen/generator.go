// ABOUTME: Text generation contract: sync and streaming generation with options.
// ABOUTME: Resilience decorators (retry, breaker) wrap any Generator.

package textgen

import (
	"context"
	"errors"
)

// ErrGenerationFailed indicates the backend could not produce text.
var ErrGenerationFailed = errors.New("generation failed")

// Options tune a single generation call.
type Options struct {
	MaxTokens     int
	Temperature   float64
	StopSequences []string
}

// Chunk is one streamed piece of generated text. A non-nil Err terminates
// the stream; the channel closes after the last chunk either way.
type Chunk struct {
	Content string
	Err     error
}

// Generator produces text from an assembled prompt. GenerateStream returns
// a receive-only channel that honors context cancellation and closes when
// generation completes or fails.
type Generator interface {
	Generate(ctx context.Context, prompt string, opts Options) (string, error)
	GenerateStream(ctx context.Context, prompt string, opts Options) (<-chan Chunk, error)
}
