// Package store provides the local entity store for the CareerHelper client.
//
// The store is the only shared mutable resource of the sync core: it owns
// every Job, Experience and Application instance, enforces key uniqueness,
// and notifies observers after each committed mutation. All callers go
// through single-statement mutations so no partial write is ever observable.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/jackyxhb/CareerHelper/internal/errors"
)

// Store wraps the SQLite database with CareerHelper-specific configuration
// and the observer registry.
type Store struct {
	db  *sql.DB
	obs *observers
}

// Open opens the on-device entity store under dataDir.
// The database is opened with:
// - WAL mode for concurrent reads alongside the single writer
// - foreign key constraints enabled
func Open(dataDir string) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	return open(filepath.Join(dataDir, "careerhelper.db"), true)
}

// OpenMemory opens an in-memory store. Used by tests.
func OpenMemory() (*Store, error) {
	return open(":memory:", false)
}

func open(dsn string, wal bool) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite doesn't support multiple writers
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if wal {
		if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON;"); err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	if err := migrate(db); err != nil {
		return nil, errors.Wrap(errors.ErrMigration, "schema migration failed", err)
	}

	return &Store{db: db, obs: newObservers()}, nil
}

// Close closes the database connection and all observer channels.
func (s *Store) Close() error {
	s.obs.closeAll()
	return s.db.Close()
}

// PendingCount returns the number of locally originated records for the
// owner that the remote API has not yet confirmed. Zero means the outbox
// is empty.
func (s *Store) PendingCount(userID string) (int, error) {
	var experiences, applications int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM experiences WHERE user_id = ? AND pending_sync = 1`, userID,
	).Scan(&experiences)
	if err != nil {
		return 0, errors.Wrap(errors.ErrDatabase, "count pending experiences", err)
	}
	err = s.db.QueryRow(
		`SELECT COUNT(*) FROM applications WHERE user_id = ? AND pending_sync = 1`, userID,
	).Scan(&applications)
	if err != nil {
		return 0, errors.Wrap(errors.ErrDatabase, "count pending applications", err)
	}
	return experiences + applications, nil
}

// nullableTime converts a *time.Time into a driver value (RFC3339 or NULL).
func nullableTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339Nano)
}

// scanTime converts a scanned TEXT column back into a *time.Time.
func scanTime(ns sql.NullString) (*time.Time, error) {
	if !ns.Valid || ns.String == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339Nano, ns.String)
	if err != nil {
		return nil, fmt.Errorf("invalid timestamp %q: %w", ns.String, err)
	}
	return &t, nil
}

// nullableInt converts a *int into a driver value.
func nullableInt(v *int) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

// scanInt converts a scanned INTEGER column back into a *int.
func scanInt(ni sql.NullInt64) *int {
	if !ni.Valid {
		return nil
	}
	v := int(ni.Int64)
	return &v
}
