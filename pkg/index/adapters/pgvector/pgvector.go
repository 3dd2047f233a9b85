package pgvector

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lamina-mem/lamina/pkg/errors"
	"github.com/lamina-mem/lamina/pkg/index"
	"github.com/lamina-mem/lamina/pkg/log"
)

// PgvectorIndex implements the index.Index interface using PostgreSQL with
// the pgvector extension.
type PgvectorIndex struct {
	db        *pgxpool.Pool
	tableName string

	// Distance metric: cosine (default), euclidean, dot
	distanceMetric string
}

// Config contains the configuration for a pgvector index.
type Config struct {
	// ConnectionString is the PostgreSQL connection string
	ConnectionString string

	// TableName is the name of the table to use
	TableName string

	// Dimensions is the size of vector embeddings
	Dimensions int

	// DistanceMetric is the distance metric to use (cosine, euclidean, dot)
	DistanceMetric string
}

// NewPgvectorIndex creates a new index backed by PostgreSQL with pgvector.
func NewPgvectorIndex(ctx context.Context, config Config) (*PgvectorIndex, error) {
	if config.ConnectionString == "" {
		return nil, errors.Wrap(errors.ErrValidation, "connection string cannot be empty")
	}

	if config.TableName == "" {
		config.TableName = "memory_vectors"
	}

	if config.Dimensions <= 0 {
		config.Dimensions = 1536 // Default dimension size for OpenAI embeddings
	}

	if config.DistanceMetric == "" {
		config.DistanceMetric = "cosine"
	} else {
		config.DistanceMetric = strings.ToLower(config.DistanceMetric)
		if config.DistanceMetric != "cosine" && config.DistanceMetric != "euclidean" && config.DistanceMetric != "dot" {
			return nil, errors.Wrap(errors.ErrValidation, "unsupported distance metric: %s", config.DistanceMetric)
		}
	}

	db, err := pgxpool.New(ctx, config.ConnectionString)
	if err != nil {
		return nil, errors.Classify(errors.ErrIndex, err, "failed to connect to PostgreSQL")
	}

	if err := db.Ping(ctx); err != nil {
		db.Close()
		return nil, errors.Classify(errors.ErrIndex, err, "failed to ping PostgreSQL")
	}

	idx := &PgvectorIndex{
		db:             db,
		tableName:      config.TableName,
		distanceMetric: config.DistanceMetric,
	}

	if err := idx.initializeTable(ctx, config.Dimensions); err != nil {
		db.Close()
		return nil, err
	}

	log.Debug("Initialized pgvector index adapter",
		"table", config.TableName,
		"dimensions", config.Dimensions,
		"distance_metric", config.DistanceMetric,
	)

	return idx, nil
}

// Close releases the underlying connection pool.
func (p *PgvectorIndex) Close() {
	p.db.Close()
}

// initializeTable creates the extension, table, and index if they don't exist.
func (p *PgvectorIndex) initializeTable(ctx context.Context, dimensions int) error {
	var extensionExists bool
	err := p.db.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM pg_extension WHERE extname = 'vector')").Scan(&extensionExists)
	if err != nil {
		return errors.Classify(errors.ErrIndex, err, "failed to check for pgvector extension")
	}

	if !extensionExists {
		if _, err := p.db.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
			return errors.Classify(errors.ErrIndex, err, "failed to create pgvector extension")
		}
		log.Info("Created pgvector extension")
	}

	_, err = p.db.Exec(ctx, fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL DEFAULT '',
			memory_type TEXT NOT NULL DEFAULT '',
			content TEXT NOT NULL DEFAULT '',
			embedding VECTOR(%d) NOT NULL
		)
	`, p.tableName, dimensions))
	if err != nil {
		return errors.Classify(errors.ErrIndex, err, "failed to create table %s", p.tableName)
	}

	_, err = p.db.Exec(ctx, fmt.Sprintf(
		`CREATE INDEX IF NOT EXISTS %s_user_idx ON %s (user_id)`,
		p.tableName, p.tableName,
	))
	if err != nil {
		return errors.Classify(errors.ErrIndex, err, "failed to create user index on %s", p.tableName)
	}

	return nil
}

// Insert implements the index.Index interface. Re-inserting an existing ID
// replaces its vector and attributes.
func (p *PgvectorIndex) Insert(ctx context.Context, id string, vector []float32, attrs index.Attributes) error {
	_, err := p.db.Exec(ctx, fmt.Sprintf(`
		INSERT INTO %s (id, user_id, memory_type, content, embedding)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE
		SET user_id = $2, memory_type = $3, content = $4, embedding = $5
	`, p.tableName),
		id, attrs.UserID, attrs.MemoryType, attrs.Content, embedToString(vector),
	)
	if err != nil {
		return errors.Classify(errors.ErrIndex, err, "failed to insert vector %s", id)
	}

	return nil
}

// Query implements the index.Index interface.
func (p *PgvectorIndex) Query(ctx context.Context, vector []float32, limit int, threshold float64, filters index.Filters) ([]index.Match, error) {
	if limit <= 0 {
		limit = 10
	}

	// pgvector exposes distance operators; convert to a similarity where
	// higher is closer so thresholds compose the same across metrics.
	var similarityExpr string
	switch p.distanceMetric {
	case "euclidean":
		similarityExpr = "1 / (1 + (embedding <-> $1))"
	case "dot":
		similarityExpr = "-(embedding <#> $1)"
	default:
		similarityExpr = "1 - (embedding <=> $1)"
	}

	queryBuilder := strings.Builder{}
	queryBuilder.WriteString(fmt.Sprintf(
		`SELECT id, %s AS similarity FROM %s WHERE %s >= $2`,
		similarityExpr, p.tableName, similarityExpr,
	))

	params := []interface{}{embedToString(vector), threshold}

	if filters.UserID != "" {
		params = append(params, filters.UserID)
		queryBuilder.WriteString(fmt.Sprintf(` AND user_id = $%d`, len(params)))
	}
	if filters.MemoryType != "" {
		params = append(params, filters.MemoryType)
		queryBuilder.WriteString(fmt.Sprintf(` AND memory_type = $%d`, len(params)))
	}

	params = append(params, limit)
	queryBuilder.WriteString(fmt.Sprintf(` ORDER BY similarity DESC LIMIT $%d`, len(params)))

	rows, err := p.db.Query(ctx, queryBuilder.String(), params...)
	if err != nil {
		return nil, errors.Classify(errors.ErrIndex, err, "failed to query %s", p.tableName)
	}
	defer rows.Close()

	matches := make([]index.Match, 0, limit)
	for rows.Next() {
		var match index.Match
		if err := rows.Scan(&match.ID, &match.Score); err != nil {
			return nil, errors.Classify(errors.ErrIndex, err, "failed to scan match")
		}
		matches = append(matches, match)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Classify(errors.ErrIndex, err, "error iterating over rows")
	}

	return matches, nil
}

// embedToString converts a vector to pgvector's text representation.
func embedToString(embedding []float32) string {
	elements := make([]string, len(embedding))
	for i, v := range embedding {
		elements[i] = strconv.FormatFloat(float64(v), 'f', -1, 32)
	}
	return "[" + strings.Join(elements, ",") + "]"
}
