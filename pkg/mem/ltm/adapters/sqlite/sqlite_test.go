package sqlite

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lamina-mem/lamina/pkg/errors"
	"github.com/lamina-mem/lamina/pkg/mem/ltm"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	store, err := NewSQLiteStoreWithDB(db)
	require.NoError(t, err)
	return store
}

func TestSQLiteStore_InsertAndGet(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	record := ltm.MemoryRecord{
		UserID:          "user-1",
		Content:         "Prefers dark roast coffee",
		MemoryType:      ltm.MemoryTypeSemantic,
		ImportanceScore: 0.8,
		Metadata:        map[string]interface{}{"source": "conversation"},
		Tags:            []string{"coffee", "preference"},
		Embedding:       []float32{0.1, 0.2, 0.3},
	}

	id, err := store.Insert(ctx, record)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	got, err := store.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "user-1", got.UserID)
	assert.Equal(t, record.Content, got.Content)
	assert.Equal(t, ltm.MemoryTypeSemantic, got.MemoryType)
	assert.Equal(t, 0.8, got.ImportanceScore)
	assert.Equal(t, record.Metadata, got.Metadata)
	assert.Equal(t, record.Tags, got.Tags)
	assert.Equal(t, record.Embedding, got.Embedding)
	assert.False(t, got.CreatedAt.IsZero())
	assert.Nil(t, got.LastAccessedAt)
}

func TestSQLiteStore_GetMissing(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Get(context.Background(), "no-such-record")
	assert.ErrorIs(t, err, errors.ErrNotFound)
}

func TestSQLiteStore_UpdateEmbedding(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	id, err := store.Insert(ctx, ltm.MemoryRecord{
		UserID:     "user-1",
		Content:    "pending embedding",
		MemoryType: ltm.MemoryTypeEpisodic,
	})
	require.NoError(t, err)

	require.NoError(t, store.UpdateEmbedding(ctx, id, []float32{0.5, 0.5}))

	got, err := store.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, []float32{0.5, 0.5}, got.Embedding)

	err = store.UpdateEmbedding(ctx, "no-such-record", []float32{1})
	assert.ErrorIs(t, err, errors.ErrNotFound)
}

func TestSQLiteStore_TouchAccess(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	id, err := store.Insert(ctx, ltm.MemoryRecord{
		UserID:     "user-1",
		Content:    "touched record",
		MemoryType: ltm.MemoryTypeSemantic,
	})
	require.NoError(t, err)

	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, store.TouchAccess(ctx, id, at))
	require.NoError(t, store.TouchAccess(ctx, id, at.Add(time.Minute)))

	got, err := store.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 2, got.AccessCount)
	require.NotNil(t, got.LastAccessedAt)
	assert.True(t, got.LastAccessedAt.Equal(at.Add(time.Minute)))

	err = store.TouchAccess(ctx, "no-such-record", at)
	assert.ErrorIs(t, err, errors.ErrNotFound)
}

func TestSQLiteStore_ListEmbedded(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	withVec, err := store.Insert(ctx, ltm.MemoryRecord{
		UserID:     "user-1",
		Content:    "embedded",
		MemoryType: ltm.MemoryTypeSemantic,
		Embedding:  []float32{0.1},
	})
	require.NoError(t, err)

	_, err = store.Insert(ctx, ltm.MemoryRecord{
		UserID:     "user-1",
		Content:    "not embedded",
		MemoryType: ltm.MemoryTypeSemantic,
	})
	require.NoError(t, err)

	_, err = store.Insert(ctx, ltm.MemoryRecord{
		UserID:     "user-2",
		Content:    "other user",
		MemoryType: ltm.MemoryTypeSemantic,
		Embedding:  []float32{0.2},
	})
	require.NoError(t, err)

	records, err := store.ListEmbedded(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, withVec, records[0].ID)
}
