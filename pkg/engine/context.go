package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/lamina-mem/lamina/pkg/log"
	"github.com/lamina-mem/lamina/pkg/mem/ltm"
	"github.com/lamina-mem/lamina/pkg/mem/wm"
	"github.com/lamina-mem/lamina/pkg/session"
)

// RelevantContext retrieves the memories most relevant to a query and
// renders them as a context block for a downstream conversation prompt.
// Each surfaced memory has its access recorded.
//
// Like Search, this is best-effort: failures yield an empty context, never
// an error.
func (e *Engine) RelevantContext(ctx context.Context, query, userID string) (string, []ltm.MemoryRecord) {
	records := e.Search(ctx, SearchRequest{
		Query:     query,
		Limit:     e.contextLimit,
		Threshold: e.contextThreshold,
		UserID:    userID,
	})
	if len(records) == 0 {
		return "", nil
	}

	lines := make([]string, 0, len(records)+1)
	lines = append(lines, "Relevant memories:")
	for _, record := range records {
		lines = append(lines, fmt.Sprintf("- [%s] %s (importance %.2f)",
			record.MemoryType, record.Content, record.ImportanceScore))

		if err := e.RecordAccess(ctx, record.ID); err != nil {
			log.WarnContext(ctx, "Failed to record memory access",
				"record_id", record.ID,
				"error", err,
			)
		}
	}

	return strings.Join(lines, "\n"), records
}

// Context is the retrieval bundle handed to a conversation turn: the
// memories relevant to the query plus the session's live working memory.
type Context struct {
	// RelevantMemories are the matching records, best-similarity first
	RelevantMemories []ltm.MemoryRecord

	// WorkingMemory is the session's live state; nil when no entry exists
	WorkingMemory *wm.State

	// SessionID scopes the bundle
	SessionID session.ID

	// Timestamp records when the bundle was assembled
	Timestamp time.Time
}

// AssembleContext gathers everything a conversation turn should see:
// relevant memories for the query and the session's working memory. Both
// halves are best-effort; a failure on either leaves that half empty.
func (e *Engine) AssembleContext(ctx context.Context, query string, sessionID session.ID, userID string) Context {
	ctx = log.ScopedContext(ctx, session.NewScope(sessionID, userID))

	_, records := e.RelevantContext(ctx, query, userID)

	bundle := Context{
		RelevantMemories: records,
		SessionID:        sessionID,
		Timestamp:        e.now(),
	}

	state, found, err := e.wm.Get(ctx, sessionID)
	if err != nil {
		log.WarnContext(ctx, "Failed to read working memory for context bundle",
			"session_id", sessionID,
			"error", err,
		)
	} else if found {
		bundle.WorkingMemory = &state
	}

	return bundle
}

// GetWorkingMemory returns the live working-memory state for a session.
// The second return is false when no live entry exists.
func (e *Engine) GetWorkingMemory(ctx context.Context, sessionID session.ID) (wm.State, bool, error) {
	return e.wm.Get(log.ScopedContext(ctx, session.Scope{SessionID: sessionID}), sessionID)
}

// UpdateWorkingMemory creates or merges the session's working memory and
// returns the resulting state.
func (e *Engine) UpdateWorkingMemory(ctx context.Context, sessionID session.ID, patch wm.Patch) (wm.State, error) {
	return e.wm.Update(log.ScopedContext(ctx, session.Scope{SessionID: sessionID}), sessionID, patch)
}

// ClearWorkingMemory deactivates the session's working memory.
func (e *Engine) ClearWorkingMemory(ctx context.Context, sessionID session.ID) error {
	return e.wm.Clear(log.ScopedContext(ctx, session.Scope{SessionID: sessionID}), sessionID)
}
