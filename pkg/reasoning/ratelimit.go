package reasoning

import (
	"context"

	"golang.org/x/time/rate"

	"github.com/lamina-mem/lamina/pkg/errors"
)

// RateLimitedEngine wraps a reasoning.Engine with a token-bucket limiter so
// provider quota is respected across all pipelines sharing the engine.
// Calls block until a token is available or the context is done.
type RateLimitedEngine struct {
	inner   Engine
	limiter *rate.Limiter
}

// NewRateLimitedEngine wraps the given engine, allowing requestsPerSecond
// sustained calls with a burst of one.
func NewRateLimitedEngine(inner Engine, requestsPerSecond float64) *RateLimitedEngine {
	return &RateLimitedEngine{
		inner:   inner,
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), 1),
	}
}

func (r *RateLimitedEngine) wait(ctx context.Context) error {
	if err := r.limiter.Wait(ctx); err != nil {
		return errors.Classify(errors.ErrProvider, err, "rate limiter wait aborted")
	}
	return nil
}

// ProcessMessages implements the reasoning.Engine interface.
func (r *RateLimitedEngine) ProcessMessages(ctx context.Context, messages []Message, opts ...Option) (string, error) {
	if err := r.wait(ctx); err != nil {
		return "", err
	}
	return r.inner.ProcessMessages(ctx, messages, opts...)
}

// Process implements the reasoning.Engine interface.
func (r *RateLimitedEngine) Process(ctx context.Context, prompt string, opts ...Option) (string, error) {
	if err := r.wait(ctx); err != nil {
		return "", err
	}
	return r.inner.Process(ctx, prompt, opts...)
}

// GenerateEmbeddings implements the reasoning.Engine interface.
func (r *RateLimitedEngine) GenerateEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	if err := r.wait(ctx); err != nil {
		return nil, err
	}
	return r.inner.GenerateEmbeddings(ctx, texts)
}
