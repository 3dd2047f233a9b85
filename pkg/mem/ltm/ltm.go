package ltm

import (
	"context"
	"time"
)

// MemoryType classifies how a memory was formed and how long it should matter.
type MemoryType string

const (
	// MemoryTypeEpisodic marks memories tied to a specific event or exchange.
	MemoryTypeEpisodic MemoryType = "episodic"

	// MemoryTypeSemantic marks distilled facts and preferences.
	MemoryTypeSemantic MemoryType = "semantic"

	// MemoryTypeWorking marks memories promoted out of working memory.
	MemoryTypeWorking MemoryType = "working"
)

// MemoryRecord represents a single memory entry in long-term memory.
type MemoryRecord struct {
	// ID is a unique identifier for the record
	ID string

	// UserID is the user that owns this memory
	UserID string

	// Content is the actual memory content (text)
	Content string

	// MemoryType classifies the record (episodic, semantic, working)
	MemoryType MemoryType

	// ImportanceScore in [0.0, 1.0] ranks the record for retrieval and retention
	ImportanceScore float64

	// AccessCount is the number of times this record has been surfaced
	AccessCount int

	// LastAccessedAt is when this record was last surfaced, nil if never
	LastAccessedAt *time.Time

	// Metadata is additional structured data about this memory
	Metadata map[string]interface{}

	// Tags are extracted keywords used for lightweight filtering
	Tags []string

	// Embedding is the vector representation for semantic search
	// (empty until an embedding provider has processed the record)
	Embedding []float32

	// CreatedAt is when this memory was initially stored
	CreatedAt time.Time
}

// Store is the interface that all long-term memory store adapters must implement.
//
// Adapters wrap persistence failures in errors.ErrStorage and report missing
// records with errors.ErrNotFound.
type Store interface {
	// Insert persists a memory record and returns its ID.
	Insert(ctx context.Context, record MemoryRecord) (string, error)

	// Get fetches a single record by ID.
	Get(ctx context.Context, id string) (MemoryRecord, error)

	// UpdateEmbedding attaches an embedding vector to an existing record.
	UpdateEmbedding(ctx context.Context, id string, embedding []float32) error

	// TouchAccess increments the access count and stamps the access time.
	TouchAccess(ctx context.Context, id string, at time.Time) error

	// ListEmbedded returns all records for a user that carry an embedding,
	// used to rebuild the vector index.
	ListEmbedded(ctx context.Context, userID string) ([]MemoryRecord, error)
}
