package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/lamina-mem/lamina/pkg/errors"
	"github.com/lamina-mem/lamina/pkg/log"
	"github.com/lamina-mem/lamina/pkg/mem/ltm"
)

const schema = `
CREATE TABLE IF NOT EXISTS memory_records (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	content TEXT NOT NULL,
	memory_type TEXT NOT NULL,
	importance_score REAL NOT NULL,
	access_count INTEGER NOT NULL DEFAULT 0,
	last_accessed_at TEXT,
	metadata TEXT,
	tags TEXT,
	embedding TEXT,
	created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_memory_records_user ON memory_records(user_id);
`

// SQLiteStore implements the ltm.Store interface using a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the SQLite database at path and ensures
// the memory schema exists.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, errors.Classify(errors.ErrStorage, err, "failed to open sqlite database %s", path)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, errors.Classify(errors.ErrStorage, err, "failed to initialize sqlite schema")
	}

	log.Debug("Initialized LTM sqlite store adapter", "path", path)
	return &SQLiteStore{db: db}, nil
}

// NewSQLiteStoreWithDB wraps an existing database connection, ensuring the
// memory schema exists. The caller keeps ownership of the connection.
func NewSQLiteStoreWithDB(db *sql.DB) (*SQLiteStore, error) {
	if _, err := db.Exec(schema); err != nil {
		return nil, errors.Classify(errors.ErrStorage, err, "failed to initialize sqlite schema")
	}
	return &SQLiteStore{db: db}, nil
}

// Close releases the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Insert persists a memory record to the SQLite database.
func (s *SQLiteStore) Insert(ctx context.Context, record ltm.MemoryRecord) (string, error) {
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
	tagsJSON, err := json.Marshal(record.Tags)
	if err != nil {
		return "", errors.Classify(errors.ErrStorage, err, "failed to marshal tags")
	}
	embeddingJSON, err := json.Marshal(record.Embedding)
	if err != nil {
		return "", errors.Classify(errors.ErrStorage, err, "failed to marshal embedding")
	}

	var lastAccessed sql.NullString
	if record.LastAccessedAt != nil {
		lastAccessed = sql.NullString{String: record.LastAccessedAt.UTC().Format(time.RFC3339Nano), Valid: true}
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO memory_records (
			id, user_id, content, memory_type, importance_score, access_count,
			last_accessed_at, metadata, tags, embedding, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.ID, record.UserID, record.Content, string(record.MemoryType),
		record.ImportanceScore, record.AccessCount, lastAccessed,
		metadataJSON, tagsJSON, embeddingJSON,
		record.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return "", errors.Classify(errors.ErrStorage, err, "failed to store record")
	}

	return record.ID, nil
}

// Get fetches a single record by ID from the SQLite database.
func (s *SQLiteStore) Get(ctx context.Context, id string) (ltm.MemoryRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, content, memory_type, importance_score, access_count,
			last_accessed_at, metadata, tags, embedding, created_at
		FROM memory_records WHERE id = ?`,
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
func (s *SQLiteStore) UpdateEmbedding(ctx context.Context, id string, embedding []float32) error {
	embeddingJSON, err := json.Marshal(embedding)
	if err != nil {
		return errors.Classify(errors.ErrStorage, err, "failed to marshal embedding")
	}

	result, err := s.db.ExecContext(ctx,
		`UPDATE memory_records SET embedding = ? WHERE id = ?`,
		embeddingJSON, id,
	)
	if err != nil {
		return errors.Classify(errors.ErrStorage, err, "failed to update embedding for %s", id)
	}

	return checkAffected(result, id)
}

// TouchAccess increments the access count and stamps the access time.
func (s *SQLiteStore) TouchAccess(ctx context.Context, id string, at time.Time) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE memory_records
		SET access_count = access_count + 1, last_accessed_at = ?
		WHERE id = ?`,
		at.UTC().Format(time.RFC3339Nano), id,
	)
	if err != nil {
		return errors.Classify(errors.ErrStorage, err, "failed to touch record %s", id)
	}

	return checkAffected(result, id)
}

// ListEmbedded returns all records for a user that carry an embedding.
func (s *SQLiteStore) ListEmbedded(ctx context.Context, userID string) ([]ltm.MemoryRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, content, memory_type, importance_score, access_count,
			last_accessed_at, metadata, tags, embedding, created_at
		FROM memory_records
		WHERE user_id = ? AND embedding IS NOT NULL AND embedding != 'null' AND embedding != '[]'
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

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRecord(row scanner) (ltm.MemoryRecord, error) {
	var (
		record        ltm.MemoryRecord
		memoryType    string
		lastAccessed  sql.NullString
		metadataJSON  []byte
		tagsJSON      []byte
		embeddingJSON []byte
		createdAt     string
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
		&tagsJSON,
		&embeddingJSON,
		&createdAt,
	)
	if err != nil {
		return ltm.MemoryRecord{}, err
	}

	record.MemoryType = ltm.MemoryType(memoryType)

	if lastAccessed.Valid {
		t, err := time.Parse(time.RFC3339Nano, lastAccessed.String)
		if err != nil {
			return ltm.MemoryRecord{}, err
		}
		record.LastAccessedAt = &t
	}

	record.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return ltm.MemoryRecord{}, err
	}

	if len(metadataJSON) > 0 {
		if err := json.Unmarshal(metadataJSON, &record.Metadata); err != nil {
			return ltm.MemoryRecord{}, err
		}
	}
	if len(tagsJSON) > 0 {
		if err := json.Unmarshal(tagsJSON, &record.Tags); err != nil {
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
