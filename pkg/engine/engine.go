package engine

import (
	"context"
	"time"

	"github.com/lamina-mem/lamina/pkg/convo"
	"github.com/lamina-mem/lamina/pkg/errors"
	"github.com/lamina-mem/lamina/pkg/extract"
	"github.com/lamina-mem/lamina/pkg/index"
	"github.com/lamina-mem/lamina/pkg/log"
	"github.com/lamina-mem/lamina/pkg/mem/ltm"
	"github.com/lamina-mem/lamina/pkg/mem/wm"
	"github.com/lamina-mem/lamina/pkg/reasoning"
)

// Config bundles the collaborators and policy knobs for an Engine.
type Config struct {
	// LTM is the long-term memory store (required)
	LTM ltm.Store

	// WM is the working memory store (required)
	WM wm.Store

	// History is the conversation message store (required for
	// conversation extraction, optional otherwise)
	History convo.History

	// Index is the vector-similarity index (required)
	Index index.Index

	// Reasoning is the text-generation and embedding provider (required)
	Reasoning reasoning.Engine

	// ContextLimit caps how many memories RelevantContext assembles;
	// zero means the default of 5
	ContextLimit int

	// ContextThreshold is the minimum similarity for RelevantContext;
	// zero means the default of 0.6
	ContextThreshold float64
}

// Engine is the memory management and retrieval core. It owns the policy
// pipeline (extract, score, persist, index, retrieve, consolidate) and
// delegates storage, generation, and similarity to its collaborators.
type Engine struct {
	ltm       ltm.Store
	wm        wm.Store
	history   convo.History
	index     index.Index
	reasoning reasoning.Engine
	extractor *extract.Extractor

	contextLimit     int
	contextThreshold float64

	// now is the clock for access stamps, overridable in tests
	now func() time.Time
}

// NewEngine creates a memory engine from the given collaborators.
func NewEngine(config Config) (*Engine, error) {
	if config.LTM == nil {
		return nil, errors.Wrap(errors.ErrValidation, "long-term memory store is required")
	}
	if config.WM == nil {
		return nil, errors.Wrap(errors.ErrValidation, "working memory store is required")
	}
	if config.Index == nil {
		return nil, errors.Wrap(errors.ErrValidation, "vector index is required")
	}
	if config.Reasoning == nil {
		return nil, errors.Wrap(errors.ErrValidation, "reasoning engine is required")
	}

	if config.ContextLimit <= 0 {
		config.ContextLimit = 5
	}
	if config.ContextThreshold <= 0 {
		config.ContextThreshold = 0.6
	}

	return &Engine{
		ltm:              config.LTM,
		wm:               config.WM,
		history:          config.History,
		index:            config.Index,
		reasoning:        config.Reasoning,
		extractor:        extract.NewExtractor(),
		contextLimit:     config.ContextLimit,
		contextThreshold: config.ContextThreshold,
		now:              time.Now,
	}, nil
}

// CreateMemoryRequest carries the inputs for a direct memory creation.
type CreateMemoryRequest struct {
	// Content is the memory text (required, non-empty)
	Content string

	// MemoryType classifies the record; empty defaults to semantic
	MemoryType ltm.MemoryType

	// Importance, when set, overrides the extracted score
	Importance *float64

	// UserID is the owning user (optional)
	UserID string

	// Metadata is attached to the record as-is (optional)
	Metadata map[string]interface{}

	// Tags, when nil, default to the extracted keywords. An empty
	// non-nil slice suppresses keyword extraction for tags.
	Tags []string
}

// CreateMemory runs the full creation pipeline: extract keywords and
// importance, persist the record, then request an embedding and index
// insertion.
//
// A storage failure on the persistence write is fatal to the call. Provider
// or index failures afterwards are logged and swallowed: the record exists
// and is retrievable by ID, it just will not surface in similarity search
// until a reindex.
func (e *Engine) CreateMemory(ctx context.Context, req CreateMemoryRequest) (ltm.MemoryRecord, error) {
	if req.Content == "" {
		return ltm.MemoryRecord{}, errors.Wrap(errors.ErrValidation, "content cannot be empty")
	}

	memoryType := req.MemoryType
	if memoryType == "" {
		memoryType = ltm.MemoryTypeSemantic
	}
	switch memoryType {
	case ltm.MemoryTypeEpisodic, ltm.MemoryTypeSemantic, ltm.MemoryTypeWorking:
	default:
		return ltm.MemoryRecord{}, errors.Wrap(errors.ErrValidation, "unknown memory type %q", memoryType)
	}

	tags := req.Tags
	var importance float64
	if req.Tags == nil || req.Importance == nil {
		keywords, score := e.extractor.Extract(req.Content)
		if tags == nil {
			tags = keywords
		}
		importance = score
	}
	if req.Importance != nil {
		importance = *req.Importance
	}
	importance = extract.Clamp(importance)

	record := ltm.MemoryRecord{
		UserID:          req.UserID,
		Content:         req.Content,
		MemoryType:      memoryType,
		ImportanceScore: importance,
		Metadata:        req.Metadata,
		Tags:            tags,
		CreatedAt:       e.now(),
	}

	id, err := e.ltm.Insert(ctx, record)
	if err != nil {
		log.ErrorContext(ctx, "Failed to persist memory record", "error", err)
		return ltm.MemoryRecord{}, err
	}
	record.ID = id

	log.DebugContext(ctx, "Created memory record",
		"record_id", id,
		"memory_type", memoryType,
		"importance", importance,
		"tag_count", len(tags),
	)

	// Embedding and indexing are best-effort from here on.
	embeddings, err := e.reasoning.GenerateEmbeddings(ctx, []string{req.Content})
	if err != nil || len(embeddings) == 0 {
		log.WarnContext(ctx, "Embedding generation failed, record not indexed",
			"record_id", id,
			"error", err,
		)
		return record, nil
	}
	record.Embedding = embeddings[0]

	if err := e.ltm.UpdateEmbedding(ctx, id, record.Embedding); err != nil {
		log.WarnContext(ctx, "Failed to persist embedding", "record_id", id, "error", err)
	}

	err = e.index.Insert(ctx, id, record.Embedding, index.Attributes{
		UserID:     req.UserID,
		MemoryType: string(memoryType),
		Content:    req.Content,
	})
	if err != nil {
		log.WarnContext(ctx, "Index insertion failed, record not searchable yet",
			"record_id", id,
			"error", err,
		)
	}

	return record, nil
}

// SearchRequest carries the inputs for a similarity search.
type SearchRequest struct {
	// Query is the text whose neighbors are wanted
	Query string

	// MemoryType, when non-empty, restricts results to one record type
	MemoryType ltm.MemoryType

	// Limit caps the number of results; zero means 10
	Limit int

	// Threshold is the minimum similarity score
	Threshold float64

	// UserID, when non-empty, restricts results to one owner
	UserID string
}

// Search returns the memories most similar to the query, best first.
//
// Retrieval is best-effort context enrichment: every failure along the path
// (embedding, index, hydration) degrades to an empty or shorter result
// instead of an error, so the surrounding conversation flow never breaks.
func (e *Engine) Search(ctx context.Context, req SearchRequest) []ltm.MemoryRecord {
	if req.Query == "" {
		return []ltm.MemoryRecord{}
	}
	if req.Limit <= 0 {
		req.Limit = 10
	}

	embeddings, err := e.reasoning.GenerateEmbeddings(ctx, []string{req.Query})
	if err != nil || len(embeddings) == 0 {
		log.WarnContext(ctx, "Query embedding failed, returning no results", "error", err)
		return []ltm.MemoryRecord{}
	}

	matches, err := e.index.Query(ctx, embeddings[0], req.Limit, req.Threshold, index.Filters{
		UserID:     req.UserID,
		MemoryType: string(req.MemoryType),
	})
	if err != nil {
		log.WarnContext(ctx, "Index query failed, returning no results", "error", err)
		return []ltm.MemoryRecord{}
	}

	records := make([]ltm.MemoryRecord, 0, len(matches))
	for _, match := range matches {
		record, err := e.ltm.Get(ctx, match.ID)
		if err != nil {
			log.WarnContext(ctx, "Failed to hydrate search match",
				"record_id", match.ID,
				"error", err,
			)
			continue
		}
		records = append(records, record)
	}

	log.DebugContext(ctx, "Similarity search complete",
		"query_length", len(req.Query),
		"matches", len(matches),
		"hydrated", len(records),
	)

	return records
}

// RecordAccess increments the record's access count and stamps the access
// time. A missing ID is logged and ignored; storage failures are surfaced.
func (e *Engine) RecordAccess(ctx context.Context, id string) error {
	err := e.ltm.TouchAccess(ctx, id, e.now())
	if errors.Is(err, errors.ErrNotFound) {
		log.DebugContext(ctx, "Access recorded for unknown memory", "record_id", id)
		return nil
	}
	return err
}

// Reindex rebuilds the vector index from the embeddings already persisted
// for a user. Records that fail to insert are logged and skipped; the count
// of reindexed records is returned.
func (e *Engine) Reindex(ctx context.Context, userID string) (int, error) {
	records, err := e.ltm.ListEmbedded(ctx, userID)
	if err != nil {
		return 0, err
	}

	reindexed := 0
	for _, record := range records {
		err := e.index.Insert(ctx, record.ID, record.Embedding, index.Attributes{
			UserID:     record.UserID,
			MemoryType: string(record.MemoryType),
			Content:    record.Content,
		})
		if err != nil {
			log.WarnContext(ctx, "Failed to reindex record", "record_id", record.ID, "error", err)
			continue
		}
		reindexed++
	}

	log.InfoContext(ctx, "Reindex complete",
		"user_id", userID,
		"records", len(records),
		"reindexed", reindexed,
	)

	return reindexed, nil
}
