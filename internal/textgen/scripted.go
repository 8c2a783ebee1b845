// ABOUTME: Scripted Generator for tests and local development.
// ABOUTME: Plays back canned responses, optionally failing a leading run of calls.

package textgen

import (
	"context"
	"fmt"
	"sync"
)

// ScriptedGenerator replays canned responses in order, repeating the last
// one when the script runs out. FailFirst calls fail before the script
// starts playing, which exercises retry and breaker decorators.
type ScriptedGenerator struct {
	mu        sync.Mutex
	responses []string
	failFirst int
	chunkSize int
	calls     int
	prompts   []string
}

// NewScriptedGenerator creates a generator that plays back responses.
func NewScriptedGenerator(responses ...string) *ScriptedGenerator {
	return &ScriptedGenerator{responses: responses, chunkSize: 8}
}

// FailFirst makes the next n calls fail before the script resumes.
func (s *ScriptedGenerator) FailFirst(n int) *ScriptedGenerator {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failFirst = n
	return s
}

// ChunkSize sets the streaming chunk size in runes.
func (s *ScriptedGenerator) ChunkSize(n int) *ScriptedGenerator {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n > 0 {
		s.chunkSize = n
	}
	return s
}

// Calls returns how many generation calls were made.
func (s *ScriptedGenerator) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// Prompts returns the prompts seen so far, in call order.
func (s *ScriptedGenerator) Prompts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.prompts))
	copy(out, s.prompts)
	return out
}

// next records the call and returns the scripted response or a scripted failure.
func (s *ScriptedGenerator) next(prompt string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls++
	s.prompts = append(s.prompts, prompt)

	if s.failFirst > 0 {
		s.failFirst--
		return "", fmt.Errorf("%w: scripted failure", ErrGenerationFailed)
	}
	if len(s.responses) == 0 {
		return "", fmt.Errorf("%w: script is empty", ErrGenerationFailed)
	}

	idx := s.calls - 1
	if idx >= len(s.responses) {
		idx = len(s.responses) - 1
	}
	return s.responses[idx], nil
}

// Generate returns the next scripted response.
func (s *ScriptedGenerator) Generate(ctx context.Context, prompt string, opts Options) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return s.next(prompt)
}

// GenerateStream plays the next scripted response in fixed-size rune chunks.
func (s *ScriptedGenerator) GenerateStream(ctx context.Context, prompt string, opts Options) (<-chan Chunk, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	content, err := s.next(prompt)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	size := s.chunkSize
	s.mu.Unlock()

	ch := make(chan Chunk, 16)
	go func() {
		defer close(ch)
		runes := []rune(content)
		for start := 0; start < len(runes); start += size {
			end := start + size
			if end > len(runes) {
				end = len(runes)
			}
			select {
			case ch <- Chunk{Content: string(runes[start:end])}:
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch, nil
}
