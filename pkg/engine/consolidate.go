package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/lamina-mem/lamina/pkg/log"
	"github.com/lamina-mem/lamina/pkg/mem/ltm"
	"github.com/lamina-mem/lamina/pkg/mem/wm"
	"github.com/lamina-mem/lamina/pkg/session"
)

// salienceTerms mark short-term facts worth keeping. A candidate is
// promoted when its key or value contains any of these as a
// case-insensitive substring.
var salienceTerms = []string{
	"preference", "important", "remember", "key", "decision",
	"goal", "objective", "plan", "strategy", "personal",
}

// promotedImportance is the fixed score for consolidated memories.
const promotedImportance = 0.7

// ConsolidationReport summarizes one consolidation sweep.
type ConsolidationReport struct {
	// EntriesScanned is how many active working-memory entries were seen
	EntriesScanned int

	// EntriesProcessed is how many entries were swept and deactivated
	EntriesProcessed int

	// Promoted is how many memory records were created
	Promoted int
}

// Consolidate sweeps all active working-memory entries and promotes salient
// short-term facts into long-term memory as episodic records. Every
// processed entry is deactivated afterwards, whether or not anything was
// promoted.
//
// When ownerUserID is non-empty, entries whose context carries a different
// user_id are skipped and left untouched. Failures for one entry are logged
// and the sweep continues; the sweep is intended to run as a scheduled job,
// single-threaded per owner scope.
func (e *Engine) Consolidate(ctx context.Context, ownerUserID string) (ConsolidationReport, error) {
	entries, err := e.wm.ActiveEntries(ctx)
	if err != nil {
		return ConsolidationReport{}, err
	}

	report := ConsolidationReport{EntriesScanned: len(entries)}

	for _, entry := range entries {
		if ownerUserID != "" && entryUserID(entry) != "" && entryUserID(entry) != ownerUserID {
			continue
		}

		entryCtx := log.ScopedContext(ctx, session.NewScope(entry.SessionID, entryUserID(entry)))

		report.Promoted += e.consolidateEntry(entryCtx, entry, ownerUserID)
		report.EntriesProcessed++

		if err := e.wm.Deactivate(entryCtx, entry.ID); err != nil {
			log.ErrorContext(entryCtx, "Failed to deactivate consolidated entry",
				"entry_id", entry.ID,
				"error", err,
			)
		}
	}

	log.InfoContext(ctx, "Consolidation sweep complete",
		"scanned", report.EntriesScanned,
		"processed", report.EntriesProcessed,
		"promoted", report.Promoted,
	)

	return report, nil
}

// consolidateEntry promotes the entry's salient short-term facts and
// returns how many records were created.
func (e *Engine) consolidateEntry(ctx context.Context, entry wm.Entry, ownerUserID string) int {
	userID := entryUserID(entry)
	if userID == "" {
		userID = ownerUserID
	}

	promoted := 0
	for key, value := range entry.ShortTermMemory {
		if !salient(key, value) {
			continue
		}

		importance := promotedImportance
		_, err := e.CreateMemory(ctx, CreateMemoryRequest{
			Content:    fmt.Sprintf("Context: %v\nKey Information: %s - %v", entry.ContextData, key, value),
			MemoryType: ltm.MemoryTypeEpisodic,
			Importance: &importance,
			UserID:     userID,
			Metadata: map[string]interface{}{
				"source":     "working_memory",
				"session_id": string(entry.SessionID),
			},
		})
		if err != nil {
			log.ErrorContext(ctx, "Failed to promote working memory fact",
				"entry_id", entry.ID,
				"fact_key", key,
				"error", err,
			)
			continue
		}
		promoted++
	}

	return promoted
}

// salient reports whether a key/value pair carries one of the retention
// terms.
func salient(key string, value interface{}) bool {
	haystack := strings.ToLower(key + " " + fmt.Sprintf("%v", value))
	for _, term := range salienceTerms {
		if strings.Contains(haystack, term) {
			return true
		}
	}
	return false
}

// entryUserID reads the owning user from the entry's context, when present.
func entryUserID(entry wm.Entry) string {
	if raw, ok := entry.ContextData["user_id"]; ok {
		if userID, ok := raw.(string); ok {
			return userID
		}
	}
	return ""
}
