package mock

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lamina-mem/lamina/pkg/index"
)

func TestMockIndex_QueryOrdersBySimilarity(t *testing.T) {
	idx := NewMockIndex()
	ctx := context.Background()

	require.NoError(t, idx.Insert(ctx, "exact", []float32{1, 0}, index.Attributes{UserID: "u1"}))
	require.NoError(t, idx.Insert(ctx, "close", []float32{0.9, 0.1}, index.Attributes{UserID: "u1"}))
	require.NoError(t, idx.Insert(ctx, "orthogonal", []float32{0, 1}, index.Attributes{UserID: "u1"}))

	matches, err := idx.Query(ctx, []float32{1, 0}, 10, 0.0, index.Filters{})
	require.NoError(t, err)
	require.Len(t, matches, 3)
	assert.Equal(t, "exact", matches[0].ID)
	assert.InDelta(t, 1.0, matches[0].Score, 1e-6)
	assert.Equal(t, "close", matches[1].ID)
	assert.Equal(t, "orthogonal", matches[2].ID)
}

func TestMockIndex_ThresholdExcludesDistantVectors(t *testing.T) {
	idx := NewMockIndex()
	ctx := context.Background()

	require.NoError(t, idx.Insert(ctx, "near", []float32{1, 0}, index.Attributes{}))
	require.NoError(t, idx.Insert(ctx, "far", []float32{0, 1}, index.Attributes{}))

	matches, err := idx.Query(ctx, []float32{1, 0}, 10, 0.5, index.Filters{})
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "near", matches[0].ID)
}

func TestMockIndex_Filters(t *testing.T) {
	idx := NewMockIndex()
	ctx := context.Background()

	require.NoError(t, idx.Insert(ctx, "mine", []float32{1, 0}, index.Attributes{UserID: "u1", MemoryType: "semantic"}))
	require.NoError(t, idx.Insert(ctx, "theirs", []float32{1, 0}, index.Attributes{UserID: "u2", MemoryType: "semantic"}))
	require.NoError(t, idx.Insert(ctx, "episode", []float32{1, 0}, index.Attributes{UserID: "u1", MemoryType: "episodic"}))

	matches, err := idx.Query(ctx, []float32{1, 0}, 10, 0.0, index.Filters{UserID: "u1", MemoryType: "semantic"})
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "mine", matches[0].ID)
}

func TestMockIndex_LimitCapsResults(t *testing.T) {
	idx := NewMockIndex()
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c", "d"} {
		require.NoError(t, idx.Insert(ctx, id, []float32{1, 0}, index.Attributes{}))
	}

	matches, err := idx.Query(ctx, []float32{1, 0}, 2, 0.0, index.Filters{})
	require.NoError(t, err)
	assert.Len(t, matches, 2)
}

func TestMockIndex_InsertReplacesVector(t *testing.T) {
	idx := NewMockIndex()
	ctx := context.Background()

	require.NoError(t, idx.Insert(ctx, "a", []float32{0, 1}, index.Attributes{}))
	require.NoError(t, idx.Insert(ctx, "a", []float32{1, 0}, index.Attributes{}))
	assert.Equal(t, 1, idx.Len())

	matches, err := idx.Query(ctx, []float32{1, 0}, 1, 0.9, index.Filters{})
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "a", matches[0].ID)
}
