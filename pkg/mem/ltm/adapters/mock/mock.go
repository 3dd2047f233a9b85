package mock

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lamina-mem/lamina/pkg/errors"
	"github.com/lamina-mem/lamina/pkg/log"
	"github.com/lamina-mem/lamina/pkg/mem/ltm"
)

// MockStore is an in-memory implementation of the ltm.Store interface
// used for testing and development.
type MockStore struct {
	// Map of records indexed by record ID
	records map[string]ltm.MemoryRecord

	// InsertErr, when set, is returned by Insert to simulate storage failures
	InsertErr error

	// Mutex for safe concurrent access
	mutex sync.RWMutex
}

// NewMockStore creates a new instance of the MockStore.
func NewMockStore() *MockStore {
	store := &MockStore{
		records: make(map[string]ltm.MemoryRecord),
	}

	log.Debug("Initialized LTM mock store adapter")
	return store
}

// Insert implements the ltm.Store interface.
func (m *MockStore) Insert(ctx context.Context, record ltm.MemoryRecord) (string, error) {
	if m.InsertErr != nil {
		return "", m.InsertErr
	}

	// Generate a unique ID if not provided
	if record.ID == "" {
		record.ID = uuid.New().String()
		log.DebugContext(ctx, "Generated new record ID", "record_id", record.ID)
	}

	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now()
	}

	// Initialize metadata if nil
	if record.Metadata == nil {
		record.Metadata = make(map[string]interface{})
	}

	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.records[record.ID] = record

	log.DebugContext(ctx, "Stored memory record in mock store",
		"record_id", record.ID,
		"user_id", record.UserID,
		"memory_type", record.MemoryType,
		"content_length", len(record.Content),
	)

	return record.ID, nil
}

// Get implements the ltm.Store interface.
func (m *MockStore) Get(ctx context.Context, id string) (ltm.MemoryRecord, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	record, exists := m.records[id]
	if !exists {
		return ltm.MemoryRecord{}, errors.Wrap(errors.ErrNotFound, "record %s", id)
	}

	return record, nil
}

// UpdateEmbedding implements the ltm.Store interface.
func (m *MockStore) UpdateEmbedding(ctx context.Context, id string, embedding []float32) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	record, exists := m.records[id]
	if !exists {
		return errors.Wrap(errors.ErrNotFound, "record %s", id)
	}

	record.Embedding = embedding
	m.records[id] = record

	return nil
}

// TouchAccess implements the ltm.Store interface.
func (m *MockStore) TouchAccess(ctx context.Context, id string, at time.Time) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	record, exists := m.records[id]
	if !exists {
		return errors.Wrap(errors.ErrNotFound, "record %s", id)
	}

	record.AccessCount++
	record.LastAccessedAt = &at
	m.records[id] = record

	return nil
}

// ListEmbedded implements the ltm.Store interface.
func (m *MockStore) ListEmbedded(ctx context.Context, userID string) ([]ltm.MemoryRecord, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	results := make([]ltm.MemoryRecord, 0)
	for _, record := range m.records {
		if record.UserID != userID || len(record.Embedding) == 0 {
			continue
		}
		results = append(results, record)
	}

	log.DebugContext(ctx, "Listed embedded records",
		"user_id", userID,
		"result_count", len(results),
	)

	return results, nil
}
