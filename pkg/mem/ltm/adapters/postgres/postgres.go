package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq" // registers the PostgreSQL driver

	"github.com/lamina-mem/lamina/pkg/errors"
	"github.com/lamina-mem/lamina/pkg/log"
	"github.com/lamina-mem/lamina/pkg/mem/ltm"
)

// PostgresStore implements the ltm.Store interface using PostgreSQL.
type PostgresStore struct {
	db *sqlx.DB
}

// NewPostgresStore creates a new PostgresStore with the given database connection.
func NewPostgresStore(db *sqlx.DB) *PostgresStore {
	store := &PostgresStore{
		db: db,
	}

	log.Debug("Initialized PostgreSQL LTM store adapter")
	return store
}

// Initialize creates the required tables if they don't exist.
func (p *PostgresStore) Initialize(ctx context.Context) error {
	log.DebugContext(ctx, "Initializing PostgreSQL memory tables")

	_, err := p.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS memory_records (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			content TEXT NOT NULL,
			memory_type TEXT NOT NULL,
			importance_score DOUBLE PRECISION NOT NULL,
			access_count INTEGER NOT NULL DEFAULT 0,
			last_accessed_at TIMESTAMP WITH TIME ZONE,
			metadata JSONB,
			tags TEXT[],
			embedding JSONB,
			created_at TIMESTAMP WITH TIME ZONE NOT NULL
		);
	`)
	if err != nil {
		log.ErrorContext(ctx, "Failed to create memory_records table", "error", err)
		return errors.Classify(errors.ErrStorage, err, "failed to create memory_records table")
	}

	_, err = p.db.ExecContext(ctx, `
		CREATE INDEX IF NOT EXISTS memory_records_user_id_idx ON memory_records (user_id);
	`)
	if err != nil {
		log.ErrorContext(ctx, "Failed to create user_id index", "error", err)
		return errors.Classify(errors.ErrStorage, err, "failed to create user_id index")
	}

	return nil
}

// Insert persists a memory record to the PostgreSQL database.
func (p *PostgresStore) Insert(ctx context.Context, record ltm.MemoryRecord) (string, error) {
	// Generate a unique ID if not provided
	if record.ID == "" {
		record.ID = uuid.New().String()
	}

	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}

	metadataJSON, err := json.Marshal(record.Metadata)
	if err != nil {
		return "", errors.Classify(errors.ErrStorage, err, "failed to marshal metadata")
	}
	embeddingJSON, err := json.Marshal(record.Embedding)
	if err != nil {
		return "", errors.Classify(errors.ErrStorage, err, "failed to marshal embedding")
	}

	_, err = p.db.ExecContext(ctx,
		`INSERT INTO memory_records (
			id, user_id, content, memory_type, importance_score, access_count,
			last_accessed_at, metadata, tags, embedding, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		record.ID, record.UserID, record.Content, string(record.MemoryType),
		record.ImportanceScore, record.AccessCount, record.LastAccessedAt,
		metadataJSON, pq.Array(record.Tags), embeddingJSON, record.CreatedAt,
	)
	if err != nil {
		return "", errors.Classify(errors.ErrStorage, err, "failed to store record")
	}

	return record.ID, nil
}

// Get fetches a single record by ID.
func (p *PostgresStore) Get(ctx context.Context, id string) (ltm.MemoryRecord, error) {
	row := p.db.QueryRowxContext(ctx,
		`SELECT id, user_id, content, memory_type, importance_score, access_count,
			last_accessed_at, metadata, tags, embedding, created_at
		FROM memory_records WHERE id = $1`,
		id,
	)

	record, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return ltm.MemoryRecord{}, errors.Wrap(errors.ErrNotFound, "record %s", id)
	}
	if err != nil {
		return ltm.MemoryRecord{}, errors.Classify(errors.ErrStorage, err, "failed to retrieve record %s", id)
	}

	return record, nil
}

// UpdateEmbedding attaches an embedding vector to an existing record.
func (p *PostgresStore) UpdateEmbedding(ctx context.Context, id string, embedding []float32) error {
	embeddingJSON, err := json.Marshal(embedding)
	if err != nil {
		return errors.Classify(errors.ErrStorage, err, "failed to marshal embedding")
	}

	result, err := p.db.ExecContext(ctx,
		`UPDATE memory_records SET embedding = $1 WHERE id = $2`,
		embeddingJSON, id,
	)
	if err != nil {
		return errors.Classify(errors.ErrStorage, err, "failed to update embedding for %s", id)
	}

	return checkAffected(result, id)
}

// TouchAccess increments the access count and stamps the access time.
func (p *PostgresStore) TouchAccess(ctx context.Context, id string, at time.Time) error {
	result, err := p.db.ExecContext(ctx,
		`UPDATE memory_records
		SET access_count = access_count + 1, last_accessed_at = $1
		WHERE id = $2`,
		at.UTC(), id,
	)
	if err != nil {
		return errors.Classify(errors.ErrStorage, err, "failed to touch record %s", id)
	}

	return checkAffected(result, id)
}

// ListEmbedded returns all records for a user that carry an embedding.
func (p *PostgresStore) ListEmbedded(ctx context.Context, userID string) ([]ltm.MemoryRecord, error) {
	rows, err := p.db.QueryxContext(ctx,
		`SELECT id, user_id, content, memory_type, importance_score, access_count,
			last_accessed_at, metadata, tags, embedding, created_at
		FROM memory_records
		WHERE user_id = $1 AND embedding IS NOT NULL AND embedding != 'null'::jsonb AND embedding != '[]'::jsonb
		ORDER BY created_at`,
		userID,
	)
	if err != nil {
		return nil, errors.Classify(errors.ErrStorage, err, "failed to list embedded records")
	}
	defer rows.Close()

	var records []ltm.MemoryRecord
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, errors.Classify(errors.ErrStorage, err, "failed to scan record")
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Classify(errors.ErrStorage, err, "error iterating over rows")
	}

	return records, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRecord(row scanner) (ltm.MemoryRecord, error) {
	var (
		record        ltm.MemoryRecord
		memoryType    string
		lastAccessed  sql.NullTime
		metadataJSON  []byte
		embeddingJSON []byte
		tags          pq.StringArray
	)

	err := row.Scan(
		&record.ID,
		&record.UserID,
		&record.Content,
		&memoryType,
		&record.ImportanceScore,
		&record.AccessCount,
		&lastAccessed,
		&metadataJSON,
		&tags,
		&embeddingJSON,
		&record.CreatedAt,
	)
	if err != nil {
		return ltm.MemoryRecord{}, err
	}

	record.MemoryType = ltm.MemoryType(memoryType)
	record.Tags = []string(tags)

	if lastAccessed.Valid {
		t := lastAccessed.Time
		record.LastAccessedAt = &t
	}

	if len(metadataJSON) > 0 {
		if err := json.Unmarshal(metadataJSON, &record.Metadata); err != nil {
			return ltm.MemoryRecord{}, err
		}
	}
	if len(embeddingJSON) > 0 {
		if err := json.Unmarshal(embeddingJSON, &record.Embedding); err != nil {
			return ltm.MemoryRecord{}, err
		}
	}

	return record, nil
}

func checkAffected(result sql.Result, id string) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errors.Classify(errors.ErrStorage, err, "failed to get rows affected")
	}
	if rowsAffected == 0 {
		return errors.Wrap(errors.ErrNotFound, "record %s", id)
	}
	return nil
}
