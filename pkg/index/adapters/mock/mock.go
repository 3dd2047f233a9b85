package mock

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/lamina-mem/lamina/pkg/index"
	"github.com/lamina-mem/lamina/pkg/log"
)

type vectorEntry struct {
	vector []float32
	attrs  index.Attributes
}

// MockIndex is an in-memory implementation of the index.Index interface
// backed by exact cosine similarity, used for testing and development.
type MockIndex struct {
	// Vectors indexed by record ID
	vectors map[string]vectorEntry

	// InsertErr, when set, is returned by Insert to simulate index failures
	InsertErr error

	// QueryErr, when set, is returned by Query to simulate index failures
	QueryErr error

	// Mutex for safe concurrent access
	mutex sync.RWMutex
}

// NewMockIndex creates a new instance of the MockIndex.
func NewMockIndex() *MockIndex {
	idx := &MockIndex{
		vectors: make(map[string]vectorEntry),
	}

	log.Debug("Initialized mock vector index adapter")
	return idx
}

// Insert implements the index.Index interface.
func (m *MockIndex) Insert(ctx context.Context, id string, vector []float32, attrs index.Attributes) error {
	if m.InsertErr != nil {
		return m.InsertErr
	}

	m.mutex.Lock()
	defer m.mutex.Unlock()

	stored := make([]float32, len(vector))
	copy(stored, vector)
	m.vectors[id] = vectorEntry{vector: stored, attrs: attrs}

	return nil
}

// Query implements the index.Index interface.
func (m *MockIndex) Query(ctx context.Context, vector []float32, limit int, threshold float64, filters index.Filters) ([]index.Match, error) {
	if m.QueryErr != nil {
		return nil, m.QueryErr
	}

	m.mutex.RLock()
	defer m.mutex.RUnlock()

	matches := make([]index.Match, 0)
	for id, entry := range m.vectors {
		if filters.UserID != "" && entry.attrs.UserID != filters.UserID {
			continue
		}
		if filters.MemoryType != "" && entry.attrs.MemoryType != filters.MemoryType {
			continue
		}

		score := cosineSimilarity(vector, entry.vector)
		if score < threshold {
			continue
		}
		matches = append(matches, index.Match{ID: id, Score: score})
	}

	sort.Slice(matches, func(a, b int) bool {
		return matches[a].Score > matches[b].Score
	})

	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}

	return matches, nil
}

// Len returns the number of stored vectors.
func (m *MockIndex) Len() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.vectors)
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
