package boltdb

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"

	"github.com/lamina-mem/lamina/pkg/errors"
	"github.com/lamina-mem/lamina/pkg/log"
	"github.com/lamina-mem/lamina/pkg/mem/wm"
	"github.com/lamina-mem/lamina/pkg/session"
)

var entriesBucket = []byte("working_memory")

// BoltStore implements the wm.Store interface using a BoltDB database.
// Entries are stored as JSON keyed by entry ID inside a single bucket.
type BoltStore struct {
	db *bolt.DB

	// now is the clock used for expiry checks, overridable in tests
	now func() time.Time
}

// NewBoltStore creates a new BoltStore with the given database connection
// and ensures the working-memory bucket exists.
func NewBoltStore(db *bolt.DB) (*BoltStore, error) {
	err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(entriesBucket)
		return err
	})
	if err != nil {
		return nil, errors.Classify(errors.ErrStorage, err, "failed to create working memory bucket")
	}

	log.Debug("Initialized working memory BoltDB store adapter",
		"db_path", db.Path(),
		"read_only", db.IsReadOnly(),
	)

	return &BoltStore{db: db, now: time.Now}, nil
}

// Get implements the wm.Store interface. An expired entry is deactivated in
// the same transaction that discovers it.
func (b *BoltStore) Get(ctx context.Context, sessionID session.ID) (wm.State, bool, error) {
	var state wm.State
	var found bool

	err := b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(entriesBucket)

		entry, ok, err := findEntry(bucket, sessionID, true)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}

		if wm.Expired(entry, b.now()) {
			entry.Active = false
			log.DebugContext(ctx, "Deactivated expired working memory entry",
				"entry_id", entry.ID,
				"session_id", sessionID,
			)
			return putEntry(bucket, entry)
		}

		state = wm.StateOf(entry)
		found = true
		return nil
	})
	if err != nil {
		return wm.State{}, false, errors.Classify(errors.ErrStorage, err, "failed to read working memory for session %s", sessionID)
	}

	return state, found, nil
}

// Update implements the wm.Store interface.
func (b *BoltStore) Update(ctx context.Context, sessionID session.ID, patch wm.Patch) (wm.State, error) {
	now := b.now()

	var state wm.State
	err := b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(entriesBucket)

		entry, ok, err := findEntry(bucket, sessionID, false)
		if err != nil {
			return err
		}
		if !ok {
			entry = wm.Entry{
				ID:        uuid.New().String(),
				SessionID: sessionID,
				CreatedAt: now,
			}
			log.DebugContext(ctx, "Created working memory entry",
				"entry_id", entry.ID,
				"session_id", sessionID,
			)
		}

		wm.Apply(&entry, patch, now)
		state = wm.StateOf(entry)

		return putEntry(bucket, entry)
	})
	if err != nil {
		return wm.State{}, errors.Classify(errors.ErrStorage, err, "failed to update working memory for session %s", sessionID)
	}

	return state, nil
}

// Clear implements the wm.Store interface.
func (b *BoltStore) Clear(ctx context.Context, sessionID session.ID) error {
	err := b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(entriesBucket)

		var cleared []wm.Entry
		err := bucket.ForEach(func(k, v []byte) error {
			var entry wm.Entry
			if err := json.Unmarshal(v, &entry); err != nil {
				return err
			}
			if entry.SessionID != sessionID || !entry.Active {
				return nil
			}
			entry.Active = false
			cleared = append(cleared, entry)
			return nil
		})
		if err != nil {
			return err
		}

		for _, entry := range cleared {
			if err := putEntry(bucket, entry); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return errors.Classify(errors.ErrStorage, err, "failed to clear working memory for session %s", sessionID)
	}
	return nil
}

// ActiveEntries implements the wm.Store interface. Expired entries found
// during the scan are deactivated and omitted.
func (b *BoltStore) ActiveEntries(ctx context.Context) ([]wm.Entry, error) {
	now := b.now()

	var live []wm.Entry
	err := b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(entriesBucket)

		var expired []wm.Entry
		err := bucket.ForEach(func(k, v []byte) error {
			var entry wm.Entry
			if err := json.Unmarshal(v, &entry); err != nil {
				return err
			}
			if !entry.Active {
				return nil
			}
			if wm.Expired(entry, now) {
				entry.Active = false
				expired = append(expired, entry)
				return nil
			}
			live = append(live, entry)
			return nil
		})
		if err != nil {
			return err
		}

		// Writes are deferred until after the cursor scan completes.
		for _, entry := range expired {
			if err := putEntry(bucket, entry); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, errors.Classify(errors.ErrStorage, err, "failed to scan working memory entries")
	}

	sort.Slice(live, func(a, b int) bool {
		return live[a].CreatedAt.Before(live[b].CreatedAt)
	})

	return live, nil
}

// Deactivate implements the wm.Store interface.
func (b *BoltStore) Deactivate(ctx context.Context, entryID string) error {
	err := b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(entriesBucket)

		raw := bucket.Get([]byte(entryID))
		if raw == nil {
			return nil
		}

		var entry wm.Entry
		if err := json.Unmarshal(raw, &entry); err != nil {
			return err
		}
		entry.Active = false
		return putEntry(bucket, entry)
	})
	if err != nil {
		return errors.Classify(errors.ErrStorage, err, "failed to deactivate entry %s", entryID)
	}
	return nil
}

// findEntry scans the bucket for the session's most recent entry. With
// activeOnly set, inactive rows are ignored; updates pass false so they can
// resurrect cleared or expired entries.
func findEntry(bucket *bolt.Bucket, sessionID session.ID, activeOnly bool) (wm.Entry, bool, error) {
	var result wm.Entry
	var found bool

	err := bucket.ForEach(func(k, v []byte) error {
		var entry wm.Entry
		if err := json.Unmarshal(v, &entry); err != nil {
			return err
		}
		if entry.SessionID != sessionID {
			return nil
		}
		if activeOnly && !entry.Active {
			return nil
		}
		// Prefer the most recently created row when duplicates exist.
		if !found || entry.CreatedAt.After(result.CreatedAt) {
			result = entry
			found = true
		}
		return nil
	})
	if err != nil {
		return wm.Entry{}, false, err
	}

	return result, found, nil
}

func putEntry(bucket *bolt.Bucket, entry wm.Entry) error {
	raw, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	return bucket.Put([]byte(entry.ID), raw)
}
