package index

import (
	"context"
)

// Match is one nearest-neighbor result from the vector index.
type Match struct {
	// ID is the memory record ID the vector was inserted under
	ID string

	// Score is the similarity to the query vector, higher is closer
	Score float64
}

// Filters restricts a query to vectors inserted with matching attributes.
// Empty fields match everything.
type Filters struct {
	// UserID restricts results to one owner
	UserID string

	// MemoryType restricts results to one record type
	MemoryType string
}

// Attributes are stored alongside a vector at insert time so queries can
// filter on them.
type Attributes struct {
	// UserID is the owning user of the record
	UserID string

	// MemoryType is the record's type (episodic, semantic, working)
	MemoryType string

	// Content is the record text, kept for index backends that want a
	// document body alongside the vector
	Content string
}

// Index is the vector-similarity collaborator contract.
//
// Adapters wrap backend failures in errors.ErrIndex.
type Index interface {
	// Insert stores a vector under the given record ID, replacing any
	// previous vector for that ID.
	Insert(ctx context.Context, id string, vector []float32, attrs Attributes) error

	// Query returns up to limit nearest neighbors with similarity at or
	// above threshold, best first.
	Query(ctx context.Context, vector []float32, limit int, threshold float64, filters Filters) ([]Match, error)
}
