// Package store provides database schema management for the entity store.
package store

import (
	"database/sql"
	"fmt"
	"time"
)

// migration is a single versioned schema step. Statements run inside one
// transaction together with the schema_migrations bookkeeping row.
type migration struct {
	version     int
	description string
	statements  []string
}

var migrations = []migration{
	{
		version:     1,
		description: "entity tables for jobs, experiences and applications",
		statements: []string{
			`CREATE TABLE IF NOT EXISTS jobs (
				job_id      TEXT PRIMARY KEY,
				title       TEXT NOT NULL,
				company     TEXT NOT NULL,
				location    TEXT NOT NULL DEFAULT '',
				description TEXT NOT NULL DEFAULT '',
				salary      INTEGER,
				posted_at   TEXT NOT NULL DEFAULT ''
			);`,
			`CREATE TABLE IF NOT EXISTS experiences (
				experience_id  TEXT PRIMARY KEY,
				user_id        TEXT NOT NULL,
				title          TEXT NOT NULL,
				company        TEXT NOT NULL,
				start_date     TEXT NOT NULL DEFAULT '',
				end_date       TEXT NOT NULL DEFAULT '',
				description    TEXT NOT NULL DEFAULT '',
				pending_sync   INTEGER NOT NULL DEFAULT 0,
				last_synced_at TEXT
			);`,
			`CREATE INDEX IF NOT EXISTS idx_experiences_user
				ON experiences(user_id, pending_sync);`,
			`CREATE TABLE IF NOT EXISTS applications (
				application_id TEXT PRIMARY KEY,
				user_id        TEXT NOT NULL,
				job_id         TEXT NOT NULL DEFAULT '',
				status         TEXT NOT NULL,
				applied_at     TEXT NOT NULL DEFAULT '',
				notes          TEXT NOT NULL DEFAULT '',
				job_title      TEXT NOT NULL DEFAULT '',
				job_company    TEXT NOT NULL DEFAULT '',
				job_location   TEXT NOT NULL DEFAULT '',
				job_source     TEXT NOT NULL DEFAULT '',
				pending_sync   INTEGER NOT NULL DEFAULT 0,
				last_synced_at TEXT
			);`,
			`CREATE INDEX IF NOT EXISTS idx_applications_user
				ON applications(user_id, pending_sync);`,
			`CREATE INDEX IF NOT EXISTS idx_applications_job
				ON applications(job_id);`,
		},
	},
}

// migrate brings the schema up to the latest version.
func migrate(db *sql.DB) error {
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (
		version     INTEGER PRIMARY KEY CHECK(version > 0),
		applied_at  INTEGER NOT NULL,
		description TEXT NOT NULL
	);`); err != nil {
		return fmt.Errorf("failed to create schema_migrations: %w", err)
	}

	var current int
	if err := db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&current); err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}

	for _, m := range migrations {
		if m.version <= current {
			continue
		}
		tx, err := db.Begin()
		if err != nil {
			return err
		}
		for _, stmt := range m.statements {
			if _, err := tx.Exec(stmt); err != nil {
				tx.Rollback()
				return fmt.Errorf("migration %d failed: %w", m.version, err)
			}
		}
		if _, err := tx.Exec(
			"INSERT INTO schema_migrations (version, applied_at, description) VALUES (?, ?, ?)",
			m.version, time.Now().Unix(), m.description,
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d bookkeeping failed: %w", m.version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("migration %d commit failed: %w", m.version, err)
		}
	}
	return nil
}
