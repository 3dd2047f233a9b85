package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lamina-mem/lamina/pkg/convo"
	"github.com/lamina-mem/lamina/pkg/errors"
	"github.com/lamina-mem/lamina/pkg/mem/ltm"
)

func seedConversation(t *testing.T, f *fixture, conversationID string) {
	t.Helper()
	ctx := context.Background()

	turns := []convo.Message{
		{ConversationID: conversationID, Role: "user", Content: "I always fly with ANA when I can"},
		{ConversationID: conversationID, Role: "assistant", Content: "Noted, ANA is your preferred airline"},
	}
	for _, message := range turns {
		_, err := f.history.Append(ctx, message)
		require.NoError(t, err)
	}
}

func TestExtractFromConversation_PromotesCandidates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	seedConversation(t, f, "conv-1")

	f.reasoning.AddCannedResponse("ANA", `{
		"memories": [
			{"content": "Prefers flying with ANA", "importance": 0.8, "tags": ["travel"], "type": "semantic"},
			{"content": "Asked about airlines today"}
		]
	}`)

	records, err := f.engine.ExtractFromConversation(ctx, "conv-1", "user-1")
	require.NoError(t, err)
	require.Len(t, records, 2)

	first := records[0]
	assert.Equal(t, "Prefers flying with ANA", first.Content)
	assert.Equal(t, 0.8, first.ImportanceScore)
	assert.Equal(t, []string{"travel"}, first.Tags)
	assert.Equal(t, ltm.MemoryTypeSemantic, first.MemoryType)
	assert.Equal(t, "conversation", first.Metadata["source"])
	assert.Equal(t, "conv-1", first.Metadata["conversation_id"])

	// Omitted fields fall back to their defaults.
	second := records[1]
	assert.Equal(t, 0.5, second.ImportanceScore)
	assert.Equal(t, ltm.MemoryTypeSemantic, second.MemoryType)
	assert.Empty(t, second.Tags)
}

func TestExtractFromConversation_HandlesCodeFencedJSON(t *testing.T) {
	f := newFixture(t)
	seedConversation(t, f, "conv-1")

	f.reasoning.AddCannedResponse("ANA", "```json\n{\"memories\": [{\"content\": \"Prefers ANA\"}]}\n```")

	records, err := f.engine.ExtractFromConversation(context.Background(), "conv-1", "user-1")
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestExtractFromConversation_EmptyConversationIsNoop(t *testing.T) {
	f := newFixture(t)

	records, err := f.engine.ExtractFromConversation(context.Background(), "missing", "user-1")
	require.NoError(t, err)
	assert.Nil(t, records)
	assert.Empty(t, f.reasoning.CallHistory())
}

func TestExtractFromConversation_ParseFailureAbandonsCall(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	seedConversation(t, f, "conv-1")

	f.reasoning.AddCannedResponse("ANA", "I could not find any memories, sorry!")

	records, err := f.engine.ExtractFromConversation(ctx, "conv-1", "user-1")
	require.NoError(t, err)
	assert.Empty(t, records)

	// Nothing was promoted.
	results := f.engine.Search(ctx, SearchRequest{Query: "ANA", UserID: "user-1"})
	assert.Empty(t, results)
}

func TestExtractFromConversation_ProviderFailureSurfaces(t *testing.T) {
	f := newFixture(t)
	seedConversation(t, f, "conv-1")
	f.reasoning.SetShouldError(true)

	_, err := f.engine.ExtractFromConversation(context.Background(), "conv-1", "user-1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrProvider))
}

func TestExtractFromConversation_HistoryFailureSurfaces(t *testing.T) {
	f := newFixture(t)
	f.history.MessagesErr = errors.Wrap(errors.ErrStorage, "table missing")

	_, err := f.engine.ExtractFromConversation(context.Background(), "conv-1", "user-1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrStorage))
}

func TestExtractFromConversation_TranscriptContainsRoles(t *testing.T) {
	f := newFixture(t)
	seedConversation(t, f, "conv-1")

	_, err := f.engine.ExtractFromConversation(context.Background(), "conv-1", "user-1")
	require.NoError(t, err)

	history := f.reasoning.CallHistory()
	require.Len(t, history, 1)
	assert.Equal(t, "ProcessMessages", history[0].Method)
}
