package mock

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lamina-mem/lamina/pkg/log"
	"github.com/lamina-mem/lamina/pkg/mem/wm"
	"github.com/lamina-mem/lamina/pkg/session"
)

// MockStore is an in-memory implementation of the wm.Store interface
// used for testing and development.
type MockStore struct {
	// Entries indexed by entry ID
	entries map[string]*wm.Entry

	// Now is the clock used for expiry checks, overridable in tests
	Now func() time.Time

	// Mutex for safe concurrent access
	mutex sync.Mutex
}

// NewMockStore creates a new instance of the MockStore.
func NewMockStore() *MockStore {
	store := &MockStore{
		entries: make(map[string]*wm.Entry),
		Now:     time.Now,
	}

	log.Debug("Initialized working memory mock store adapter")
	return store
}

// activeEntry returns the live entry for a session, deactivating it first
// when the expiry deadline has passed.
func (m *MockStore) activeEntry(sessionID session.ID, now time.Time) *wm.Entry {
	for _, entry := range m.entries {
		if entry.SessionID != sessionID || !entry.Active {
			continue
		}
		if wm.Expired(*entry, now) {
			entry.Active = false
			continue
		}
		return entry
	}
	return nil
}

// Get implements the wm.Store interface.
func (m *MockStore) Get(ctx context.Context, sessionID session.ID) (wm.State, bool, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	entry := m.activeEntry(sessionID, m.Now())
	if entry == nil {
		return wm.State{}, false, nil
	}

	return wm.StateOf(*entry), true, nil
}

// Update implements the wm.Store interface.
func (m *MockStore) Update(ctx context.Context, sessionID session.ID, patch wm.Patch) (wm.State, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	now := m.Now()

	// Updates resurrect even a cleared or expired entry, so look past the
	// active flag and take the session's most recent row.
	var entry *wm.Entry
	for _, candidate := range m.entries {
		if candidate.SessionID != sessionID {
			continue
		}
		if entry == nil || candidate.CreatedAt.After(entry.CreatedAt) {
			entry = candidate
		}
	}

	if entry == nil {
		entry = &wm.Entry{
			ID:        uuid.New().String(),
			SessionID: sessionID,
			CreatedAt: now,
		}
		m.entries[entry.ID] = entry
		log.DebugContext(ctx, "Created working memory entry",
			"entry_id", entry.ID,
			"session_id", sessionID,
		)
	}

	wm.Apply(entry, patch, now)

	return wm.StateOf(*entry), nil
}

// Clear implements the wm.Store interface.
func (m *MockStore) Clear(ctx context.Context, sessionID session.ID) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	for _, entry := range m.entries {
		if entry.SessionID == sessionID {
			entry.Active = false
		}
	}

	return nil
}

// ActiveEntries implements the wm.Store interface.
func (m *MockStore) ActiveEntries(ctx context.Context) ([]wm.Entry, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	now := m.Now()

	results := make([]wm.Entry, 0)
	for _, entry := range m.entries {
		if !entry.Active {
			continue
		}
		if wm.Expired(*entry, now) {
			entry.Active = false
			continue
		}
		results = append(results, *entry)
	}

	// Map iteration order is random, so restore creation order for the sweep.
	sort.Slice(results, func(a, b int) bool {
		return results[a].CreatedAt.Before(results[b].CreatedAt)
	})

	return results, nil
}

// Deactivate implements the wm.Store interface.
func (m *MockStore) Deactivate(ctx context.Context, entryID string) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if entry, exists := m.entries[entryID]; exists {
		entry.Active = false
	}

	return nil
}
