// Package history persists every accepted article keyed by its normalised
// URL, so later runs can drop re-sighted articles while still advancing
// their last-seen timestamp. The store is the only shared mutable state in
// the pipeline; the WAL journal lets the deduplicator's batched reads run
// concurrently with the single writer.
package history

import (
	"database/sql"

	"github.com/nori0724/techdigest/dbopen"
)

// DefaultRetentionDays is how long entries are kept before Cleanup
// purges them (measured on first_seen_at).
const DefaultRetentionDays = 90

// Store wraps the history database.
type Store struct {
	DB *sql.DB
}

// Open opens (or creates) the history database at path and applies the
// schema. Parent directories are created as needed.
func Open(path string) (*Store, error) {
	db, err := dbopen.Open(path, dbopen.WithMkdirAll(), dbopen.WithSchema(Schema))
	if err != nil {
		return nil, err
	}
	return &Store{DB: db}, nil
}

// NewStore wraps an already-opened database. Used by tests with
// dbopen.OpenMemory.
func NewStore(db *sql.DB) *Store {
	return &Store{DB: db}
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.DB.Close()
}
