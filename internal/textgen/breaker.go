// ABOUTME: Circuit breaker decorator for Generators.
// ABOUTME: Sheds load fast when the generation backend is persistently failing.

package textgen

import (
	"context"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"
)

// BreakerGenerator wraps a Generator with a circuit breaker. When the
// backend fails repeatedly the breaker opens and calls fail immediately
// with gobreaker.ErrOpenState instead of piling onto a dead backend.
type BreakerGenerator struct {
	inner   Generator
	breaker *gobreaker.CircuitBreaker
}

// BreakerConfig contains configuration options for the BreakerGenerator.
type BreakerConfig struct {
	Name        string        // breaker name in logs, "textgen" if empty
	MaxRequests uint32        // probes allowed half-open, 1 if zero
	Interval    time.Duration // closed-state count reset cadence
	Timeout     time.Duration // open -> half-open delay, 30s if zero
	ReadyToTrip func(counts gobreaker.Counts) bool
	Logger      *slog.Logger
}

// NewBreakerGenerator wraps inner with circuit breaker protection.
func NewBreakerGenerator(inner Generator, cfg BreakerConfig) *BreakerGenerator {
	name := cfg.Name
	if name == "" {
		name = "textgen"
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	readyToTrip := cfg.ReadyToTrip
	if readyToTrip == nil {
		readyToTrip = func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "textgen_breaker")

	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     timeout,
		ReadyToTrip: readyToTrip,
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
	}

	return &BreakerGenerator{
		inner:   inner,
		breaker: gobreaker.NewCircuitBreaker(settings),
	}
}

// Generate runs the inner call under the breaker.
func (b *BreakerGenerator) Generate(ctx context.Context, prompt string, opts Options) (string, error) {
	out, err := b.breaker.Execute(func() (any, error) {
		return b.inner.Generate(ctx, prompt, opts)
	})
	if err != nil {
		return "", err
	}
	return out.(string), nil
}

// GenerateStream guards stream establishment with the breaker. Mid-stream
// failures do not count against it; only failed opens do.
func (b *BreakerGenerator) GenerateStream(ctx context.Context, prompt string, opts Options) (<-chan Chunk, error) {
	out, err := b.breaker.Execute(func() (any, error) {
		return b.inner.GenerateStream(ctx, prompt, opts)
	})
	if err != nil {
		return nil, err
	}
	return out.(<-chan Chunk), nil
}

// State exposes the breaker state for health reporting.
func (b *BreakerGenerator) State() gobreaker.State {
	return b.breaker.State()
}
