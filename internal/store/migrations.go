package store

import (
	"context"
	"database/sql"
	"strings"
)

// schema contains the DDL for all GoDag tables.
// Each statement uses IF NOT EXISTS for idempotency.
// Timestamp columns are TEXT in RFC 3339 form, always UTC.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS dags (
		id          TEXT PRIMARY KEY,
		description TEXT NOT NULL DEFAULT '',
		schedule    TEXT NOT NULL DEFAULT '',
		start_date  TEXT,
		end_date    TEXT,
		tasks       TEXT NOT NULL,
		created_at  TEXT NOT NULL,
		updated_at  TEXT NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS dag_runs (
		id           TEXT PRIMARY KEY,
		dag_id       TEXT NOT NULL,
		logical_date TEXT,
		state        TEXT NOT NULL DEFAULT 'QUEUED',
		created_at   TEXT NOT NULL,
		started_at   TEXT,
		ended_at     TEXT
	)`,

	`CREATE TABLE IF NOT EXISTS task_instances (
		id         TEXT PRIMARY KEY,
		run_id     TEXT NOT NULL,
		dag_id     TEXT NOT NULL,
		task_id    TEXT NOT NULL,
		state      TEXT NOT NULL DEFAULT 'NONE',
		try_number INTEGER NOT NULL DEFAULT 0,
		max_tries  INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL,
		queued_at  TEXT,
		started_at TEXT,
		ended_at   TEXT
	)`,

	`CREATE INDEX IF NOT EXISTS idx_dag_runs_dag_id ON dag_runs(dag_id)`,
	`CREATE INDEX IF NOT EXISTS idx_dag_runs_state ON dag_runs(state)`,
	`CREATE INDEX IF NOT EXISTS idx_tis_run_id ON task_instances(run_id)`,
	`CREATE INDEX IF NOT EXISTS idx_tis_state ON task_instances(state)`,
	// Compound index for the scheduler's per-run sibling lookups.
	`CREATE INDEX IF NOT EXISTS idx_tis_run_task ON task_instances(run_id, task_id)`,
}

// migrate applies all schema statements.
func migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			// Include the first line of the statement for diagnosis.
			first := strings.SplitN(strings.TrimSpace(stmt), "\n", 2)[0]
			return &migrationError{stmt: first, err: err}
		}
	}
	return nil
}

type migrationError struct {
	stmt string
	err  error
}

func (e *migrationError) Error() string {
	return "migrate: " + e.stmt + ": " + e.err.Error()
}

func (e *migrationError) Unwrap() error {
	return e.err
}
