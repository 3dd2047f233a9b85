package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/lamina-mem/lamina/pkg/convo"
	"github.com/lamina-mem/lamina/pkg/errors"
	"github.com/lamina-mem/lamina/pkg/log"
)

const schema = `
CREATE TABLE IF NOT EXISTS conversation_messages (
	id TEXT PRIMARY KEY,
	conversation_id TEXT NOT NULL,
	role TEXT NOT NULL,
	content TEXT NOT NULL,
	created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_conversation_messages_convo ON conversation_messages(conversation_id, created_at);
`

// SQLiteHistory implements the convo.History interface using a SQLite database.
type SQLiteHistory struct {
	db *sql.DB
}

// NewSQLiteHistory opens (or creates) the SQLite database at path and
// ensures the conversation schema exists.
func NewSQLiteHistory(path string) (*SQLiteHistory, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, errors.Classify(errors.ErrStorage, err, "failed to open sqlite database %s", path)
	}

	history, err := NewSQLiteHistoryWithDB(db)
	if err != nil {
		db.Close()
		return nil, err
	}

	log.Debug("Initialized conversation sqlite history adapter", "path", path)
	return history, nil
}

// NewSQLiteHistoryWithDB wraps an existing database connection, ensuring the
// conversation schema exists. The caller keeps ownership of the connection.
func NewSQLiteHistoryWithDB(db *sql.DB) (*SQLiteHistory, error) {
	if _, err := db.Exec(schema); err != nil {
		return nil, errors.Classify(errors.ErrStorage, err, "failed to initialize sqlite schema")
	}
	return &SQLiteHistory{db: db}, nil
}

// Close releases the underlying database connection.
func (s *SQLiteHistory) Close() error {
	return s.db.Close()
}

// Append implements the convo.History interface.
func (s *SQLiteHistory) Append(ctx context.Context, message convo.Message) (string, error) {
	if message.ID == "" {
		message.ID = uuid.New().String()
	}
	if message.CreatedAt.IsZero() {
		message.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO conversation_messages (id, conversation_id, role, content, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		message.ID, message.ConversationID, message.Role, message.Content,
		message.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return "", errors.Classify(errors.ErrStorage, err, "failed to append message")
	}

	return message.ID, nil
}

// Messages implements the convo.History interface.
func (s *SQLiteHistory) Messages(ctx context.Context, conversationID string) ([]convo.Message, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, conversation_id, role, content, created_at
		FROM conversation_messages
		WHERE conversation_id = ?
		ORDER BY created_at`,
		conversationID,
	)
	if err != nil {
		return nil, errors.Classify(errors.ErrStorage, err, "failed to load conversation %s", conversationID)
	}
	defer rows.Close()

	messages := make([]convo.Message, 0)
	for rows.Next() {
		var message convo.Message
		var createdAt string

		err := rows.Scan(&message.ID, &message.ConversationID, &message.Role, &message.Content, &createdAt)
		if err != nil {
			return nil, errors.Classify(errors.ErrStorage, err, "failed to scan message")
		}

		message.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
		if err != nil {
			return nil, errors.Classify(errors.ErrStorage, err, "failed to parse message timestamp")
		}

		messages = append(messages, message)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Classify(errors.ErrStorage, err, "error iterating over rows")
	}

	return messages, nil
}
