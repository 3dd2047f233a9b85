package reasoning

import (
	"context"
	"time"

	"github.com/sony/gobreaker"

	"github.com/lamina-mem/lamina/pkg/errors"
	"github.com/lamina-mem/lamina/pkg/log"
)

// BreakerConfig holds the configuration for the circuit-breaker wrapper.
type BreakerConfig struct {
	// MaxFailures is the number of consecutive failures required to trip
	// the circuit. Default: 3
	MaxFailures uint32

	// Timeout is the duration the circuit stays open before transitioning
	// to half-open. Default: 30 seconds
	Timeout time.Duration
}

// BreakerEngine wraps a reasoning.Engine with a circuit breaker so that a
// failing provider stops receiving traffic instead of slowing every
// pipeline that depends on it.
//
// When closed, requests pass through normally. After MaxFailures
// consecutive failures the circuit opens and requests fail fast with
// errors.ErrProvider. After Timeout, a test request is let through.
type BreakerEngine struct {
	inner   Engine
	breaker *gobreaker.CircuitBreaker
}

// NewBreakerEngine wraps the given engine with a circuit breaker.
func NewBreakerEngine(inner Engine, config BreakerConfig) *BreakerEngine {
	if config.MaxFailures == 0 {
		config.MaxFailures = 3
	}
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}

	settings := gobreaker.Settings{
		Name:    "reasoning",
		Timeout: config.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= config.MaxFailures
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			log.Warn("Reasoning circuit breaker state change",
				"from", from.String(),
				"to", to.String(),
			)
		},
	}

	return &BreakerEngine{
		inner:   inner,
		breaker: gobreaker.NewCircuitBreaker(settings),
	}
}

// ProcessMessages implements the reasoning.Engine interface.
func (b *BreakerEngine) ProcessMessages(ctx context.Context, messages []Message, opts ...Option) (string, error) {
	result, err := b.breaker.Execute(func() (interface{}, error) {
		return b.inner.ProcessMessages(ctx, messages, opts...)
	})
	if err != nil {
		return "", classifyBreakerErr(err)
	}
	return result.(string), nil
}

// Process implements the reasoning.Engine interface.
func (b *BreakerEngine) Process(ctx context.Context, prompt string, opts ...Option) (string, error) {
	result, err := b.breaker.Execute(func() (interface{}, error) {
		return b.inner.Process(ctx, prompt, opts...)
	})
	if err != nil {
		return "", classifyBreakerErr(err)
	}
	return result.(string), nil
}

// GenerateEmbeddings implements the reasoning.Engine interface.
func (b *BreakerEngine) GenerateEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	result, err := b.breaker.Execute(func() (interface{}, error) {
		return b.inner.GenerateEmbeddings(ctx, texts)
	})
	if err != nil {
		return nil, classifyBreakerErr(err)
	}
	return result.([][]float32), nil
}

// classifyBreakerErr maps the breaker's own rejections into the provider
// error class; errors from the wrapped engine pass through unchanged.
func classifyBreakerErr(err error) error {
	if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
		return errors.Classify(errors.ErrProvider, err, "provider circuit open")
	}
	return err
}
