package chromem

import (
	"context"

	chromem "github.com/philippgille/chromem-go"

	"github.com/lamina-mem/lamina/pkg/errors"
	"github.com/lamina-mem/lamina/pkg/index"
	"github.com/lamina-mem/lamina/pkg/log"
)

// ChromemIndex implements the index.Index interface using chromem-go, a
// pure-Go embedded vector database. Vectors live in a single collection
// with user and type recorded as document metadata for query-time filtering.
type ChromemIndex struct {
	db         *chromem.DB
	collection *chromem.Collection
}

// Config contains the configuration for a chromem index.
type Config struct {
	// Collection is the collection name vectors are stored in
	Collection string

	// StoragePath, when set, persists the database to disk; empty means
	// in-memory only
	StoragePath string
}

// NewChromemIndex creates a new chromem-backed vector index.
func NewChromemIndex(config Config) (*ChromemIndex, error) {
	if config.Collection == "" {
		config.Collection = "memories"
	}

	var db *chromem.DB
	var err error
	if config.StoragePath != "" {
		db, err = chromem.NewPersistentDB(config.StoragePath, false)
		if err != nil {
			return nil, errors.Classify(errors.ErrIndex, err, "failed to open chromem database at %s", config.StoragePath)
		}
	} else {
		db = chromem.NewDB()
	}

	// Embeddings are always supplied by the caller, so no embedding
	// function is registered.
	collection, err := db.GetOrCreateCollection(config.Collection, nil, nil)
	if err != nil {
		return nil, errors.Classify(errors.ErrIndex, err, "failed to create collection %s", config.Collection)
	}

	log.Debug("Initialized chromem vector index adapter",
		"collection", config.Collection,
		"persistent", config.StoragePath != "",
	)

	return &ChromemIndex{db: db, collection: collection}, nil
}

// Insert implements the index.Index interface.
func (c *ChromemIndex) Insert(ctx context.Context, id string, vector []float32, attrs index.Attributes) error {
	doc := chromem.Document{
		ID:        id,
		Content:   attrs.Content,
		Embedding: vector,
		Metadata: map[string]string{
			"user_id":     attrs.UserID,
			"memory_type": attrs.MemoryType,
		},
	}

	if err := c.collection.AddDocument(ctx, doc); err != nil {
		return errors.Classify(errors.ErrIndex, err, "failed to add document %s", id)
	}

	return nil
}

// Query implements the index.Index interface.
func (c *ChromemIndex) Query(ctx context.Context, vector []float32, limit int, threshold float64, filters index.Filters) ([]index.Match, error) {
	count := c.collection.Count()
	if count == 0 {
		return []index.Match{}, nil
	}

	// chromem rejects result counts larger than the collection.
	if limit <= 0 || limit > count {
		limit = count
	}

	where := make(map[string]string)
	if filters.UserID != "" {
		where["user_id"] = filters.UserID
	}
	if filters.MemoryType != "" {
		where["memory_type"] = filters.MemoryType
	}

	// With a where filter the matching subset can be smaller than the
	// collection, and chromem rejects result counts larger than the
	// subset. Retry with smaller limits until the query goes through.
	var results []chromem.Result
	var err error
	for currentLimit := limit; currentLimit >= 1; currentLimit-- {
		results, err = c.collection.QueryEmbedding(ctx, vector, currentLimit, where, nil)
		if err == nil {
			break
		}
	}
	if err != nil {
		return nil, errors.Classify(errors.ErrIndex, err, "failed to query collection")
	}

	matches := make([]index.Match, 0, len(results))
	for _, result := range results {
		score := float64(result.Similarity)
		if score < threshold {
			continue
		}
		matches = append(matches, index.Match{ID: result.ID, Score: score})
	}

	return matches, nil
}
