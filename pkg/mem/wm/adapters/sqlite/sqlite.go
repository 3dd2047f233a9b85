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
	"github.com/lamina-mem/lamina/pkg/mem/wm"
	"github.com/lamina-mem/lamina/pkg/session"
)

const schema = `
CREATE TABLE IF NOT EXISTS working_memory (
	id TEXT PRIMARY KEY,
	session_id TEXT NOT NULL,
	context_data TEXT NOT NULL,
	short_term_memory TEXT NOT NULL,
	created_at TEXT NOT NULL,
	expires_at TEXT,
	active INTEGER NOT NULL DEFAULT 1
);
CREATE INDEX IF NOT EXISTS idx_working_memory_session ON working_memory(session_id, active);
`

// SQLiteStore implements the wm.Store interface using a SQLite database.
type SQLiteStore struct {
	db *sql.DB

	// now is the clock used for expiry checks, overridable in tests
	now func() time.Time
}

// NewSQLiteStore opens (or creates) the SQLite database at path and ensures
// the working-memory schema exists.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, errors.Classify(errors.ErrStorage, err, "failed to open sqlite database %s", path)
	}

	store, err := NewSQLiteStoreWithDB(db)
	if err != nil {
		db.Close()
		return nil, err
	}

	log.Debug("Initialized working memory sqlite store adapter", "path", path)
	return store, nil
}

// NewSQLiteStoreWithDB wraps an existing database connection, ensuring the
// working-memory schema exists. The caller keeps ownership of the connection.
func NewSQLiteStoreWithDB(db *sql.DB) (*SQLiteStore, error) {
	if _, err := db.Exec(schema); err != nil {
		return nil, errors.Classify(errors.ErrStorage, err, "failed to initialize sqlite schema")
	}
	return &SQLiteStore{db: db, now: time.Now}, nil
}

// Close releases the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Get implements the wm.Store interface. Expired entries are deactivated in
// storage as a side effect of the read that discovers them.
func (s *SQLiteStore) Get(ctx context.Context, sessionID session.ID) (wm.State, bool, error) {
	entry, found, err := s.activeEntry(ctx, sessionID)
	if err != nil {
		return wm.State{}, false, err
	}
	if !found {
		return wm.State{}, false, nil
	}

	if wm.Expired(entry, s.now()) {
		if err := s.Deactivate(ctx, entry.ID); err != nil {
			return wm.State{}, false, err
		}
		log.DebugContext(ctx, "Deactivated expired working memory entry",
			"entry_id", entry.ID,
			"session_id", sessionID,
		)
		return wm.State{}, false, nil
	}

	return wm.StateOf(entry), true, nil
}

// Update implements the wm.Store interface.
func (s *SQLiteStore) Update(ctx context.Context, sessionID session.ID, patch wm.Patch) (wm.State, error) {
	now := s.now()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return wm.State{}, errors.Classify(errors.ErrStorage, err, "failed to begin transaction")
	}
	defer tx.Rollback()

	entry, found, err := latestEntryTx(ctx, tx, sessionID)
	if err != nil {
		return wm.State{}, err
	}

	if !found {
		entry = wm.Entry{
			ID:        uuid.New().String(),
			SessionID: sessionID,
			CreatedAt: now,
		}
	}

	wm.Apply(&entry, patch, now)

	contextJSON, err := json.Marshal(entry.ContextData)
	if err != nil {
		return wm.State{}, errors.Classify(errors.ErrStorage, err, "failed to marshal context data")
	}
	stmJSON, err := json.Marshal(entry.ShortTermMemory)
	if err != nil {
		return wm.State{}, errors.Classify(errors.ErrStorage, err, "failed to marshal short-term memory")
	}

	var expires sql.NullString
	if entry.ExpiresAt != nil {
		expires = sql.NullString{String: entry.ExpiresAt.UTC().Format(time.RFC3339Nano), Valid: true}
	}

	if found {
		_, err = tx.ExecContext(ctx,
			`UPDATE working_memory
			SET context_data = ?, short_term_memory = ?, expires_at = ?, active = 1
			WHERE id = ?`,
			contextJSON, stmJSON, expires, entry.ID,
		)
	} else {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO working_memory (
				id, session_id, context_data, short_term_memory, created_at, expires_at, active
			) VALUES (?, ?, ?, ?, ?, ?, 1)`,
			entry.ID, string(sessionID), contextJSON, stmJSON,
			entry.CreatedAt.UTC().Format(time.RFC3339Nano), expires,
		)
	}
	if err != nil {
		return wm.State{}, errors.Classify(errors.ErrStorage, err, "failed to write working memory entry")
	}

	if err := tx.Commit(); err != nil {
		return wm.State{}, errors.Classify(errors.ErrStorage, err, "failed to commit working memory update")
	}

	return wm.StateOf(entry), nil
}

// Clear implements the wm.Store interface.
func (s *SQLiteStore) Clear(ctx context.Context, sessionID session.ID) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE working_memory SET active = 0 WHERE session_id = ?`,
		string(sessionID),
	)
	if err != nil {
		return errors.Classify(errors.ErrStorage, err, "failed to clear working memory for session %s", sessionID)
	}
	return nil
}

// ActiveEntries implements the wm.Store interface. Expired entries found
// during the scan are deactivated and omitted.
func (s *SQLiteStore) ActiveEntries(ctx context.Context) ([]wm.Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, session_id, context_data, short_term_memory, created_at, expires_at, active
		FROM working_memory WHERE active = 1 ORDER BY created_at`,
	)
	if err != nil {
		return nil, errors.Classify(errors.ErrStorage, err, "failed to scan working memory entries")
	}
	defer rows.Close()

	now := s.now()

	var live []wm.Entry
	var expired []string
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, errors.Classify(errors.ErrStorage, err, "failed to scan working memory entry")
		}
		if wm.Expired(entry, now) {
			expired = append(expired, entry.ID)
			continue
		}
		live = append(live, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Classify(errors.ErrStorage, err, "error iterating over rows")
	}

	for _, id := range expired {
		if err := s.Deactivate(ctx, id); err != nil {
			return nil, err
		}
	}

	return live, nil
}

// Deactivate implements the wm.Store interface.
func (s *SQLiteStore) Deactivate(ctx context.Context, entryID string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE working_memory SET active = 0 WHERE id = ?`,
		entryID,
	)
	if err != nil {
		return errors.Classify(errors.ErrStorage, err, "failed to deactivate entry %s", entryID)
	}
	return nil
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

func (s *SQLiteStore) activeEntry(ctx context.Context, sessionID session.ID) (wm.Entry, bool, error) {
	return queryEntry(ctx, s.db, sessionID,
		`SELECT id, session_id, context_data, short_term_memory, created_at, expires_at, active
		FROM working_memory
		WHERE session_id = ? AND active = 1
		ORDER BY created_at DESC LIMIT 1`,
	)
}

// latestEntryTx returns the session's most recent entry regardless of the
// active flag. Updates resurrect cleared or expired entries, so they merge
// into this row instead of starting a fresh one.
func latestEntryTx(ctx context.Context, q querier, sessionID session.ID) (wm.Entry, bool, error) {
	return queryEntry(ctx, q, sessionID,
		`SELECT id, session_id, context_data, short_term_memory, created_at, expires_at, active
		FROM working_memory
		WHERE session_id = ?
		ORDER BY created_at DESC LIMIT 1`,
	)
}

func queryEntry(ctx context.Context, q querier, sessionID session.ID, query string) (wm.Entry, bool, error) {
	row := q.QueryRowContext(ctx, query, string(sessionID))

	entry, err := scanEntry(row)
	if err == sql.ErrNoRows {
		return wm.Entry{}, false, nil
	}
	if err != nil {
		return wm.Entry{}, false, errors.Classify(errors.ErrStorage, err, "failed to load entry for session %s", sessionID)
	}

	return entry, true, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanEntry(row scanner) (wm.Entry, error) {
	var (
		entry       wm.Entry
		sessionID   string
		contextJSON []byte
		stmJSON     []byte
		createdAt   string
		expires     sql.NullString
		active      int
	)

	err := row.Scan(&entry.ID, &sessionID, &contextJSON, &stmJSON, &createdAt, &expires, &active)
	if err != nil {
		return wm.Entry{}, err
	}

	entry.SessionID = session.ID(sessionID)
	entry.Active = active != 0

	entry.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return wm.Entry{}, err
	}

	if expires.Valid {
		t, err := time.Parse(time.RFC3339Nano, expires.String)
		if err != nil {
			return wm.Entry{}, err
		}
		entry.ExpiresAt = &t
	}

	if err := json.Unmarshal(contextJSON, &entry.ContextData); err != nil {
		return wm.Entry{}, err
	}
	if err := json.Unmarshal(stmJSON, &entry.ShortTermMemory); err != nil {
		return wm.Entry{}, err
	}

	return entry, nil
}
