package reasoning_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lamina-mem/lamina/pkg/errors"
	"github.com/lamina-mem/lamina/pkg/reasoning"
	"github.com/lamina-mem/lamina/pkg/reasoning/adapters/mock"
)

func TestBreakerEngine_PassesThroughWhenHealthy(t *testing.T) {
	inner := mock.NewMockEngine(mock.WithDefaultResponse("ok"))
	engine := reasoning.NewBreakerEngine(inner, reasoning.BreakerConfig{})

	response, err := engine.Process(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, "ok", response)

	embeddings, err := engine.GenerateEmbeddings(context.Background(), []string{"hello"})
	require.NoError(t, err)
	require.Len(t, embeddings, 1)
}

func TestBreakerEngine_OpensAfterConsecutiveFailures(t *testing.T) {
	inner := mock.NewMockEngine(mock.WithShouldError(true))
	engine := reasoning.NewBreakerEngine(inner, reasoning.BreakerConfig{
		MaxFailures: 3,
		Timeout:     time.Minute,
	})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := engine.Process(ctx, "hello")
		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.ErrProvider))
	}

	// The circuit is now open: the inner engine no longer sees traffic.
	before := len(inner.CallHistory())
	_, err := engine.Process(ctx, "hello")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrProvider))
	assert.Equal(t, before, len(inner.CallHistory()))
}

func TestBreakerEngine_RecoversAfterTimeout(t *testing.T) {
	inner := mock.NewMockEngine(mock.WithShouldError(true))
	engine := reasoning.NewBreakerEngine(inner, reasoning.BreakerConfig{
		MaxFailures: 1,
		Timeout:     20 * time.Millisecond,
	})
	ctx := context.Background()

	_, err := engine.Process(ctx, "hello")
	require.Error(t, err)

	inner.SetShouldError(false)
	time.Sleep(30 * time.Millisecond)

	response, err := engine.Process(ctx, "hello")
	require.NoError(t, err)
	assert.Equal(t, "This is a mock response", response)
}

func TestRateLimitedEngine_DelegatesToInner(t *testing.T) {
	inner := mock.NewMockEngine(mock.WithDefaultResponse("ok"))
	engine := reasoning.NewRateLimitedEngine(inner, 100)

	response, err := engine.Process(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, "ok", response)
}

func TestRateLimitedEngine_HonorsCancelledContext(t *testing.T) {
	inner := mock.NewMockEngine()
	engine := reasoning.NewRateLimitedEngine(inner, 0.001)

	// Burn the single burst token so the next call has to wait.
	_, err := engine.Process(context.Background(), "first")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = engine.Process(ctx, "second")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrProvider))
}
