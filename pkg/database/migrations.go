package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// schemaVersion is bumped whenever a statement is appended to a dialect below.
const schemaVersion = 1

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS quizzes (
		id TEXT PRIMARY KEY,
		quiz_name TEXT NOT NULL,
		platform TEXT NOT NULL DEFAULT '',
		topic TEXT NOT NULL DEFAULT '',
		notes TEXT NOT NULL DEFAULT '',
		trigger_at TIMESTAMPTZ NOT NULL,
		reminder_enabled BOOLEAN NOT NULL DEFAULT FALSE,
		completed BOOLEAN NOT NULL DEFAULT FALSE,
		email TEXT NOT NULL DEFAULT '',
		last_notified_at TIMESTAMPTZ NULL,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_quizzes_due ON quizzes (trigger_at) WHERE reminder_enabled AND NOT completed`,
	`CREATE TABLE IF NOT EXISTS events (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		organizer TEXT NOT NULL DEFAULT '',
		registration_link TEXT NOT NULL DEFAULT '',
		email TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS deadlines (
		event_id TEXT NOT NULL REFERENCES events(id) ON DELETE CASCADE,
		id TEXT NOT NULL,
		type TEXT NOT NULL,
		due_at TIMESTAMPTZ NOT NULL,
		reminder_enabled BOOLEAN NOT NULL DEFAULT FALSE,
		completed BOOLEAN NOT NULL DEFAULT FALSE,
		last_notified_at TIMESTAMPTZ NULL,
		notes TEXT NOT NULL DEFAULT '',
		position INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (event_id, id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_deadlines_due ON deadlines (due_at) WHERE reminder_enabled AND NOT completed`,
}

// SQLite keeps TIMESTAMP as the declared type so modernc.org/sqlite scans
// the columns back into time.Time.
var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS quizzes (
		id TEXT PRIMARY KEY,
		quiz_name TEXT NOT NULL,
		platform TEXT NOT NULL DEFAULT '',
		topic TEXT NOT NULL DEFAULT '',
		notes TEXT NOT NULL DEFAULT '',
		trigger_at TIMESTAMP NOT NULL,
		reminder_enabled BOOLEAN NOT NULL DEFAULT FALSE,
		completed BOOLEAN NOT NULL DEFAULT FALSE,
		email TEXT NOT NULL DEFAULT '',
		last_notified_at TIMESTAMP NULL,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_quizzes_due ON quizzes (trigger_at)`,
	`CREATE TABLE IF NOT EXISTS events (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		organizer TEXT NOT NULL DEFAULT '',
		registration_link TEXT NOT NULL DEFAULT '',
		email TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS deadlines (
		event_id TEXT NOT NULL REFERENCES events(id) ON DELETE CASCADE,
		id TEXT NOT NULL,
		type TEXT NOT NULL,
		due_at TIMESTAMP NOT NULL,
		reminder_enabled BOOLEAN NOT NULL DEFAULT FALSE,
		completed BOOLEAN NOT NULL DEFAULT FALSE,
		last_notified_at TIMESTAMP NULL,
		notes TEXT NOT NULL DEFAULT '',
		position INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (event_id, id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_deadlines_due ON deadlines (due_at)`,
}

// Migrate creates the reminder tables for the given driver. Statements are
// idempotent; the applied version is recorded in schema_version.
func Migrate(ctx context.Context, db *sqlx.DB, driver string) error {
	var statements []string
	switch driver {
	case "postgres":
		statements = postgresSchema
	case "sqlite":
		statements = sqliteSchema
	default:
		return fmt.Errorf("no schema for driver %q", driver)
	}

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin migration tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_version (version INTEGER NOT NULL)`); err != nil {
		return fmt.Errorf("create schema_version: %w", err)
	}

	var current int
	if err = tx.GetContext(ctx, &current, `SELECT COALESCE(MAX(version), 0) FROM schema_version`); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if current >= schemaVersion {
		return tx.Commit()
	}

	for i, stmt := range statements {
		if _, err = tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration statement %d: %w", i+1, err)
		}
	}

	if _, err = tx.ExecContext(ctx, `INSERT INTO schema_version (version) VALUES ($1)`, schemaVersion); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit migration tx: %w", err)
	}
	return nil
}
