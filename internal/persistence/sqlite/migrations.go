package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// migrations run in order exactly once; applied versions are tracked in
// schema_migrations.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id            TEXT PRIMARY KEY,
		email         TEXT NOT NULL UNIQUE,
		display_name  TEXT NOT NULL,
		password_hash TEXT NOT NULL,
		created_at    TEXT NOT NULL,
		updated_at    TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS sessions (
		id         TEXT PRIMARY KEY,
		user_id    TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		token      TEXT NOT NULL UNIQUE,
		expires_at TEXT NOT NULL,
		created_at TEXT NOT NULL,
		revoked_at TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS events (
		id                  TEXT PRIMARY KEY,
		owner_id            TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		title               TEXT NOT NULL,
		event_date          TEXT NOT NULL,
		start_time          TEXT NOT NULL DEFAULT '',
		end_time            TEXT NOT NULL DEFAULT '',
		description         TEXT NOT NULL DEFAULT '',
		location            TEXT NOT NULL DEFAULT '',
		category            TEXT NOT NULL DEFAULT '',
		notification_offset INTEGER NOT NULL DEFAULT 10,
		frequency           TEXT NOT NULL DEFAULT 'none',
		repeat_interval     INTEGER NOT NULL DEFAULT 1 CHECK (repeat_interval >= 1),
		until_date          TEXT,
		occurrence_count    INTEGER,
		group_id            TEXT NOT NULL DEFAULT '',
		generated           INTEGER NOT NULL DEFAULT 0,
		exclusions          TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE INDEX IF NOT EXISTS idx_events_owner_date ON events(owner_id, event_date)`,
	`CREATE INDEX IF NOT EXISTS idx_events_group ON events(group_id)`,
	`CREATE INDEX IF NOT EXISTS idx_sessions_token ON sessions(token)`,
}

// Migrate applies pending schema migrations.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version    INTEGER PRIMARY KEY,
		applied_at TEXT NOT NULL
	)`); err != nil {
		return fmt.Errorf("sqlite: create schema_migrations: %w", err)
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		var current int
		if err := tx.QueryRow(`SELECT COALESCE(MAX(version), 0) FROM schema_migrations`).Scan(&current); err != nil {
			return fmt.Errorf("sqlite: read migration version: %w", err)
		}

		for i := current; i < len(migrations); i++ {
			if _, err := tx.Exec(migrations[i]); err != nil {
				return fmt.Errorf("sqlite: apply migration %d: %w", i+1, err)
			}
			if _, err := tx.Exec(
				`INSERT INTO schema_migrations (version, applied_at) VALUES (?, ?)`,
				i+1, time.Now().UTC().Format(time.RFC3339),
			); err != nil {
				return fmt.Errorf("sqlite: record migration %d: %w", i+1, err)
			}
		}
		return nil
	})
}
