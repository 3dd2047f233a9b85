package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lamina-mem/lamina/pkg/errors"
	"github.com/lamina-mem/lamina/pkg/mem/ltm"
	"github.com/lamina-mem/lamina/pkg/mem/wm"
	"github.com/lamina-mem/lamina/pkg/session"
)

func TestConsolidate_PromotesSalientFacts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.wm.Update(ctx, "session-1", wm.Patch{
		ContextData: map[string]interface{}{"user_id": "user-1", "topic": "planning"},
		ShortTermMemory: map[string]interface{}{
			"decision":  "go with plan A",
			"note_misc": "xyz",
		},
	})
	require.NoError(t, err)

	report, err := f.engine.Consolidate(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 1, report.EntriesScanned)
	assert.Equal(t, 1, report.EntriesProcessed)
	assert.Equal(t, 1, report.Promoted)

	// The entry is deactivated even though only one fact qualified.
	entries, err := f.wm.ActiveEntries(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries)

	// The promoted record carries the fixed score, provenance metadata,
	// and the episodic type.
	results := f.engine.Search(ctx, SearchRequest{Query: "go with plan A", UserID: "user-1"})
	require.Len(t, results, 1)
	record := results[0]
	assert.Equal(t, ltm.MemoryTypeEpisodic, record.MemoryType)
	assert.Equal(t, 0.7, record.ImportanceScore)
	assert.Equal(t, "working_memory", record.Metadata["source"])
	assert.Equal(t, "session-1", record.Metadata["session_id"])
	assert.Contains(t, record.Content, "Key Information: decision - go with plan A")
	assert.Contains(t, record.Content, "Context:")
}

func TestConsolidate_DeactivatesEntryWithNothingSalient(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.wm.Update(ctx, "session-1", wm.Patch{
		ShortTermMemory: map[string]interface{}{"misc": "xyz"},
	})
	require.NoError(t, err)

	report, err := f.engine.Consolidate(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, 1, report.EntriesProcessed)
	assert.Equal(t, 0, report.Promoted)

	entries, err := f.wm.ActiveEntries(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestConsolidate_SalienceMatchesValuesToo(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// The key carries no salience term but the value does.
	_, err := f.wm.Update(ctx, "session-1", wm.Patch{
		ShortTermMemory: map[string]interface{}{
			"color": "blue is their preference",
		},
	})
	require.NoError(t, err)

	report, err := f.engine.Consolidate(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, 1, report.Promoted)
}

func TestConsolidate_OwnerFilterSkipsOtherUsers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.wm.Update(ctx, "session-1", wm.Patch{
		ContextData:     map[string]interface{}{"user_id": "user-2"},
		ShortTermMemory: map[string]interface{}{"goal": "learn go"},
	})
	require.NoError(t, err)

	report, err := f.engine.Consolidate(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 1, report.EntriesScanned)
	assert.Equal(t, 0, report.EntriesProcessed)
	assert.Equal(t, 0, report.Promoted)

	// Skipped entries stay active for their own user's sweep.
	entries, err := f.wm.ActiveEntries(ctx)
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	report, err = f.engine.Consolidate(ctx, "user-2")
	require.NoError(t, err)
	assert.Equal(t, 1, report.Promoted)
}

func TestConsolidate_StorageFailureDoesNotAbortSweep(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for _, sid := range []string{"s1", "s2"} {
		_, err := f.wm.Update(ctx, session.ID(sid), wm.Patch{
			ShortTermMemory: map[string]interface{}{"goal": "something"},
		})
		require.NoError(t, err)
	}

	f.ltm.InsertErr = errors.Wrap(errors.ErrStorage, "disk full")
	report, err := f.engine.Consolidate(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, 2, report.EntriesProcessed)
	assert.Equal(t, 0, report.Promoted)

	// Both entries were still deactivated.
	entries, err := f.wm.ActiveEntries(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
