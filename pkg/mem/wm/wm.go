package wm

import (
	"context"
	"time"

	"github.com/lamina-mem/lamina/pkg/session"
)

// Entry represents a single working-memory row as persisted by an adapter.
type Entry struct {
	// ID is a unique identifier for the entry
	ID string

	// SessionID is the conversation session this entry belongs to
	SessionID session.ID

	// ContextData is arbitrary structured conversational context
	ContextData map[string]interface{}

	// ShortTermMemory holds candidate facts not yet promoted to long-term memory
	ShortTermMemory map[string]interface{}

	// CreatedAt is when this entry was first created
	CreatedAt time.Time

	// ExpiresAt is the expiry deadline, nil for no expiry
	ExpiresAt *time.Time

	// Active is false once the entry has been cleared, expired, or consolidated
	Active bool
}

// State is the live view of a session's working memory returned by reads
// and updates.
type State struct {
	// ContextData is arbitrary structured conversational context
	ContextData map[string]interface{}

	// ShortTermMemory holds candidate facts not yet promoted
	ShortTermMemory map[string]interface{}

	// ExpiresAt is the expiry deadline, nil for no expiry
	ExpiresAt *time.Time
}

// Patch carries a partial update for a session's working memory. Nil maps
// leave the corresponding state untouched; a nil TTLSeconds keeps the
// current expiry deadline.
type Patch struct {
	// ContextData keys to merge into the entry's context
	ContextData map[string]interface{}

	// ShortTermMemory keys to merge into the entry's candidate facts
	ShortTermMemory map[string]interface{}

	// TTLSeconds, when set, recomputes the expiry deadline relative to now
	TTLSeconds *int
}

// Store is the interface that all working-memory adapters must implement.
//
// Adapters wrap persistence failures in errors.ErrStorage. Expiry is lazy:
// Get discovers expired entries, deactivates them in storage, and reports
// them as absent.
type Store interface {
	// Get returns the active entry's state for the session. The second
	// return is false when no live entry exists.
	Get(ctx context.Context, sessionID session.ID) (State, bool, error)

	// Update creates or merges the session's entry and returns the
	// resulting state. An update merges into and reactivates the
	// session's most recent entry even when it was cleared or expired;
	// writes resurrect sessions.
	Update(ctx context.Context, sessionID session.ID, patch Patch) (State, error)

	// Clear deactivates the session's entry. Calling it for a session
	// without an entry is a no-op.
	Clear(ctx context.Context, sessionID session.ID) error

	// ActiveEntries returns all active, unexpired entries in creation
	// order, for the consolidation sweep.
	ActiveEntries(ctx context.Context) ([]Entry, error)

	// Deactivate marks a single entry inactive by its ID.
	Deactivate(ctx context.Context, entryID string) error
}

// Expired reports whether the entry's deadline has passed. All read paths
// and the consolidation sweep share this one predicate.
func Expired(entry Entry, now time.Time) bool {
	return entry.ExpiresAt != nil && entry.ExpiresAt.Before(now)
}

// Apply merges a patch into an entry in place: patch keys overwrite existing
// keys of the same name, keys absent from the patch are preserved, the
// deadline is recomputed only when the patch carries a TTL, and the entry is
// reactivated.
func Apply(entry *Entry, patch Patch, now time.Time) {
	if entry.ContextData == nil {
		entry.ContextData = make(map[string]interface{})
	}
	if entry.ShortTermMemory == nil {
		entry.ShortTermMemory = make(map[string]interface{})
	}

	for key, value := range patch.ContextData {
		entry.ContextData[key] = value
	}
	for key, value := range patch.ShortTermMemory {
		entry.ShortTermMemory[key] = value
	}

	if patch.TTLSeconds != nil {
		deadline := now.Add(time.Duration(*patch.TTLSeconds) * time.Second)
		entry.ExpiresAt = &deadline
	}

	entry.Active = true
}

// StateOf projects an entry onto the read view.
func StateOf(entry Entry) State {
	return State{
		ContextData:     entry.ContextData,
		ShortTermMemory: entry.ShortTermMemory,
		ExpiresAt:       entry.ExpiresAt,
	}
}
