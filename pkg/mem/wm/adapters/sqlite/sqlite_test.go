package sqlite

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lamina-mem/lamina/pkg/mem/wm"
	"github.com/lamina-mem/lamina/pkg/session"
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

func ttl(seconds int) *int {
	return &seconds
}

func TestSQLiteStore_UpdateAndGet(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	sessionID := session.ID("session-1")

	state, err := store.Update(ctx, sessionID, wm.Patch{
		ContextData:     map[string]interface{}{"topic": "travel"},
		ShortTermMemory: map[string]interface{}{"destination": "Lisbon"},
	})
	require.NoError(t, err)
	assert.Equal(t, "travel", state.ContextData["topic"])

	got, found, err := store.Get(ctx, sessionID)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "Lisbon", got.ShortTermMemory["destination"])
	assert.Nil(t, got.ExpiresAt)
}

func TestSQLiteStore_MergeKeepsExistingKeys(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	sessionID := session.ID("session-1")

	_, err := store.Update(ctx, sessionID, wm.Patch{
		ShortTermMemory: map[string]interface{}{"a": "1"},
	})
	require.NoError(t, err)

	state, err := store.Update(ctx, sessionID, wm.Patch{
		ShortTermMemory: map[string]interface{}{"b": "2"},
	})
	require.NoError(t, err)
	assert.Equal(t, "1", state.ShortTermMemory["a"])
	assert.Equal(t, "2", state.ShortTermMemory["b"])
}

func TestSQLiteStore_ExpiryDeactivatesOnRead(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	sessionID := session.ID("session-1")

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return base }

	_, err := store.Update(ctx, sessionID, wm.Patch{
		ShortTermMemory: map[string]interface{}{"k": "v"},
		TTLSeconds:      ttl(60),
	})
	require.NoError(t, err)

	store.now = func() time.Time { return base.Add(59 * time.Second) }
	_, found, err := store.Get(ctx, sessionID)
	require.NoError(t, err)
	assert.True(t, found)

	store.now = func() time.Time { return base.Add(61 * time.Second) }
	_, found, err = store.Get(ctx, sessionID)
	require.NoError(t, err)
	assert.False(t, found)

	// The expired entry stays deactivated even if the clock rolls back.
	store.now = func() time.Time { return base }
	_, found, err = store.Get(ctx, sessionID)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestSQLiteStore_UpdateResurrectsExpiredEntry(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	sessionID := session.ID("session-1")

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return base }

	_, err := store.Update(ctx, sessionID, wm.Patch{
		ShortTermMemory: map[string]interface{}{"k": "v"},
		TTLSeconds:      ttl(30),
	})
	require.NoError(t, err)

	store.now = func() time.Time { return base.Add(time.Minute) }
	state, err := store.Update(ctx, sessionID, wm.Patch{
		ShortTermMemory: map[string]interface{}{"k2": "v2"},
		TTLSeconds:      ttl(30),
	})
	require.NoError(t, err)
	assert.Equal(t, "v", state.ShortTermMemory["k"])
	assert.Equal(t, "v2", state.ShortTermMemory["k2"])

	_, found, err := store.Get(ctx, sessionID)
	require.NoError(t, err)
	assert.True(t, found)
}

func TestSQLiteStore_UpdateResurrectsClearedEntry(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	sessionID := session.ID("session-1")

	_, err := store.Update(ctx, sessionID, wm.Patch{
		ShortTermMemory: map[string]interface{}{"old": "kept"},
	})
	require.NoError(t, err)

	require.NoError(t, store.Clear(ctx, sessionID))

	// The write merges into the cleared row instead of inserting a fresh
	// one, so the earlier facts survive the clear.
	state, err := store.Update(ctx, sessionID, wm.Patch{
		ShortTermMemory: map[string]interface{}{"new": "added"},
	})
	require.NoError(t, err)
	assert.Equal(t, "kept", state.ShortTermMemory["old"])
	assert.Equal(t, "added", state.ShortTermMemory["new"])

	got, found, err := store.Get(ctx, sessionID)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "kept", got.ShortTermMemory["old"])
}

func TestSQLiteStore_UpdateResurrectsLazilyDeactivatedEntry(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	sessionID := session.ID("session-1")

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return base }

	_, err := store.Update(ctx, sessionID, wm.Patch{
		ShortTermMemory: map[string]interface{}{"old": "kept"},
		TTLSeconds:      ttl(10),
	})
	require.NoError(t, err)

	// A read past the deadline flips the row inactive.
	store.now = func() time.Time { return base.Add(time.Minute) }
	_, found, err := store.Get(ctx, sessionID)
	require.NoError(t, err)
	require.False(t, found)

	state, err := store.Update(ctx, sessionID, wm.Patch{
		ShortTermMemory: map[string]interface{}{"new": "added"},
		TTLSeconds:      ttl(60),
	})
	require.NoError(t, err)
	assert.Equal(t, "kept", state.ShortTermMemory["old"])
	assert.Equal(t, "added", state.ShortTermMemory["new"])
}

func TestSQLiteStore_Clear(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	sessionID := session.ID("session-1")

	_, err := store.Update(ctx, sessionID, wm.Patch{
		ShortTermMemory: map[string]interface{}{"k": "v"},
	})
	require.NoError(t, err)

	require.NoError(t, store.Clear(ctx, sessionID))

	_, found, err := store.Get(ctx, sessionID)
	require.NoError(t, err)
	assert.False(t, found)

	// Clearing an absent session is a no-op.
	require.NoError(t, store.Clear(ctx, session.ID("never-seen")))
}

func TestSQLiteStore_ActiveEntriesSkipsExpired(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return base }

	_, err := store.Update(ctx, session.ID("live"), wm.Patch{
		ShortTermMemory: map[string]interface{}{"k": "v"},
	})
	require.NoError(t, err)

	_, err = store.Update(ctx, session.ID("dying"), wm.Patch{
		ShortTermMemory: map[string]interface{}{"k": "v"},
		TTLSeconds:      ttl(10),
	})
	require.NoError(t, err)

	store.now = func() time.Time { return base.Add(time.Minute) }
	entries, err := store.ActiveEntries(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, session.ID("live"), entries[0].SessionID)
}
