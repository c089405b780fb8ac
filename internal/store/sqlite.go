package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/me/godag/pkg/model"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath and returns a Store.
// Use ":memory:" for an in-memory database (useful in tests).
func NewSQLiteStore(dbPath string, logger *slog.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", dbPath, err)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma wal: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma fk: %w", err)
	}

	return &SQLiteStore{
		db:     db,
		logger: logger.With("component", "store"),
	}, nil
}

// DB exposes the underlying handle for components that issue their own
// queries (e.g. the transfer operator).
func (s *SQLiteStore) DB() *sql.DB {
	return s.db
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Migrate creates all required tables and indexes.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	s.logger.Debug("sql", "op", "migrate")
	return migrate(ctx, s.db)
}

// storeTime renders a timestamp for persistence: RFC 3339, UTC.
// Whatever zone the caller hands in, the column holds UTC.
func storeTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// storeTimePtr renders an optional timestamp, NULL when nil.
func storeTimePtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return storeTime(*t)
}

// scanTime parses a persisted timestamp back into a UTC instant.
func scanTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("scan timestamp %q: %w", s, err)
	}
	return t.UTC(), nil
}

// scanTimePtr parses an optional persisted timestamp.
func scanTimePtr(ns sql.NullString) (*time.Time, error) {
	if !ns.Valid || ns.String == "" {
		return nil, nil
	}
	t, err := scanTime(ns.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// --- Dag CRUD ---

func (s *SQLiteStore) CreateDag(ctx context.Context, dag *model.Dag) error {
	s.logger.Debug("sql", "op", "insert", "table", "dags", "id", dag.ID)

	tasksJSON, err := json.Marshal(dag.Tasks)
	if err != nil {
		return fmt.Errorf("marshal tasks: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO dags (id, description, schedule, start_date, end_date, tasks, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		dag.ID, dag.Description, dag.Schedule,
		storeTimePtr(dag.StartDate), storeTimePtr(dag.EndDate),
		string(tasksJSON), storeTime(dag.CreatedAt), storeTime(dag.UpdatedAt),
	)
	return err
}

func (s *SQLiteStore) GetDag(ctx context.Context, id string) (*model.Dag, error) {
	s.logger.Debug("sql", "op", "select", "table", "dags", "id", id)

	row := s.db.QueryRowContext(ctx,
		`SELECT id, description, schedule, start_date, end_date, tasks, created_at, updated_at
		 FROM dags WHERE id = ?`, id)
	dag, err := scanDag(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return dag, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDag(row rowScanner) (*model.Dag, error) {
	var dag model.Dag
	var tasksJSON, createdAt, updatedAt string
	var startDate, endDate sql.NullString

	err := row.Scan(&dag.ID, &dag.Description, &dag.Schedule,
		&startDate, &endDate, &tasksJSON, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(tasksJSON), &dag.Tasks); err != nil {
		return nil, fmt.Errorf("unmarshal tasks: %w", err)
	}
	if dag.StartDate, err = scanTimePtr(startDate); err != nil {
		return nil, err
	}
	if dag.EndDate, err = scanTimePtr(endDate); err != nil {
		return nil, err
	}
	if dag.CreatedAt, err = scanTime(createdAt); err != nil {
		return nil, err
	}
	if dag.UpdatedAt, err = scanTime(updatedAt); err != nil {
		return nil, err
	}
	return &dag, nil
}

func (s *SQLiteStore) ListDags(ctx context.Context, opts model.ListOptions) ([]*model.Dag, int, error) {
	s.logger.Debug("sql", "op", "list", "table", "dags")
	opts.Clamp()

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM dags`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, description, schedule, start_date, end_date, tasks, created_at, updated_at
		 FROM dags ORDER BY id LIMIT ? OFFSET ?`, opts.Limit, opts.Offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var dags []*model.Dag
	for rows.Next() {
		dag, err := scanDag(rows)
		if err != nil {
			return nil, 0, err
		}
		dags = append(dags, dag)
	}
	return dags, total, rows.Err()
}

func (s *SQLiteStore) UpdateDag(ctx context.Context, dag *model.Dag) error {
	s.logger.Debug("sql", "op", "update", "table", "dags", "id", dag.ID)

	tasksJSON, err := json.Marshal(dag.Tasks)
	if err != nil {
		return fmt.Errorf("marshal tasks: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`UPDATE dags SET description = ?, schedule = ?, start_date = ?, end_date = ?, tasks = ?, updated_at = ?
		 WHERE id = ?`,
		dag.Description, dag.Schedule,
		storeTimePtr(dag.StartDate), storeTimePtr(dag.EndDate),
		string(tasksJSON), storeTime(dag.UpdatedAt), dag.ID,
	)
	return err
}

func (s *SQLiteStore) DeleteDag(ctx context.Context, id string) error {
	s.logger.Debug("sql", "op", "delete", "table", "dags", "id", id)
	_, err := s.db.ExecContext(ctx, `DELETE FROM dags WHERE id = ?`, id)
	return err
}

// --- DagRun operations ---

func (s *SQLiteStore) CreateDagRun(ctx context.Context, run *model.DagRun) error {
	s.logger.Debug("sql", "op", "insert", "table", "dag_runs", "id", run.ID)

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO dag_runs (id, dag_id, logical_date, state, created_at, started_at, ended_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.DagID, storeTimePtr(run.LogicalDate), run.State,
		storeTime(run.CreatedAt), storeTimePtr(run.StartedAt), storeTimePtr(run.EndedAt),
	)
	return err
}

func scanDagRun(row rowScanner) (*model.DagRun, error) {
	var run model.DagRun
	var createdAt string
	var logicalDate, startedAt, endedAt sql.NullString

	err := row.Scan(&run.ID, &run.DagID, &logicalDate, &run.State,
		&createdAt, &startedAt, &endedAt)
	if err != nil {
		return nil, err
	}

	if run.LogicalDate, err = scanTimePtr(logicalDate); err != nil {
		return nil, err
	}
	if run.CreatedAt, err = scanTime(createdAt); err != nil {
		return nil, err
	}
	if run.StartedAt, err = scanTimePtr(startedAt); err != nil {
		return nil, err
	}
	if run.EndedAt, err = scanTimePtr(endedAt); err != nil {
		return nil, err
	}
	return &run, nil
}

func (s *SQLiteStore) GetDagRun(ctx context.Context, id string) (*model.DagRun, error) {
	s.logger.Debug("sql", "op", "select", "table", "dag_runs", "id", id)

	row := s.db.QueryRowContext(ctx,
		`SELECT id, dag_id, logical_date, state, created_at, started_at, ended_at
		 FROM dag_runs WHERE id = ?`, id)
	run, err := scanDagRun(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return run, err
}

func (s *SQLiteStore) ListDagRunsByDag(ctx context.Context, dagID string, opts model.ListOptions) ([]*model.DagRun, int, error) {
	s.logger.Debug("sql", "op", "list", "table", "dag_runs", "dag_id", dagID)
	opts.Clamp()

	var total int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM dag_runs WHERE dag_id = ?`, dagID).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, dag_id, logical_date, state, created_at, started_at, ended_at
		 FROM dag_runs WHERE dag_id = ? ORDER BY created_at DESC LIMIT ? OFFSET ?`,
		dagID, opts.Limit, opts.Offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var runs []*model.DagRun
	for rows.Next() {
		run, err := scanDagRun(rows)
		if err != nil {
			return nil, 0, err
		}
		runs = append(runs, run)
	}
	return runs, total, rows.Err()
}

// UpdateDagRun persists mutable run fields. The logical date is immutable
// once assigned and is intentionally absent from the SET list.
func (s *SQLiteStore) UpdateDagRun(ctx context.Context, run *model.DagRun) error {
	s.logger.Debug("sql", "op", "update", "table", "dag_runs", "id", run.ID)

	_, err := s.db.ExecContext(ctx,
		`UPDATE dag_runs SET state = ?, started_at = ?, ended_at = ? WHERE id = ?`,
		run.State, storeTimePtr(run.StartedAt), storeTimePtr(run.EndedAt), run.ID,
	)
	return err
}

// --- TaskInstance operations ---

func (s *SQLiteStore) CreateTaskInstance(ctx context.Context, ti *model.TaskInstance) error {
	s.logger.Debug("sql", "op", "insert", "table", "task_instances", "id", ti.ID)

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO task_instances (id, run_id, dag_id, task_id, state, try_number, max_tries, created_at, queued_at, started_at, ended_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ti.ID, ti.RunID, ti.DagID, ti.TaskID, ti.State, ti.TryNumber, ti.MaxTries,
		storeTime(ti.CreatedAt), storeTimePtr(ti.QueuedAt), storeTimePtr(ti.StartedAt), storeTimePtr(ti.EndedAt),
	)
	return err
}

func scanTaskInstance(row rowScanner) (*model.TaskInstance, error) {
	var ti model.TaskInstance
	var createdAt string
	var queuedAt, startedAt, endedAt sql.NullString

	err := row.Scan(&ti.ID, &ti.RunID, &ti.DagID, &ti.TaskID, &ti.State,
		&ti.TryNumber, &ti.MaxTries, &createdAt, &queuedAt, &startedAt, &endedAt)
	if err != nil {
		return nil, err
	}

	if ti.CreatedAt, err = scanTime(createdAt); err != nil {
		return nil, err
	}
	if ti.QueuedAt, err = scanTimePtr(queuedAt); err != nil {
		return nil, err
	}
	if ti.StartedAt, err = scanTimePtr(startedAt); err != nil {
		return nil, err
	}
	if ti.EndedAt, err = scanTimePtr(endedAt); err != nil {
		return nil, err
	}
	return &ti, nil
}

func (s *SQLiteStore) GetTaskInstance(ctx context.Context, id string) (*model.TaskInstance, error) {
	s.logger.Debug("sql", "op", "select", "table", "task_instances", "id", id)

	row := s.db.QueryRowContext(ctx,
		`SELECT id, run_id, dag_id, task_id, state, try_number, max_tries, created_at, queued_at, started_at, ended_at
		 FROM task_instances WHERE id = ?`, id)
	ti, err := scanTaskInstance(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return ti, err
}

func (s *SQLiteStore) ListTaskInstancesByRun(ctx context.Context, runID string) ([]*model.TaskInstance, error) {
	s.logger.Debug("sql", "op", "list", "table", "task_instances", "run_id", runID)

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, run_id, dag_id, task_id, state, try_number, max_tries, created_at, queued_at, started_at, ended_at
		 FROM task_instances WHERE run_id = ? ORDER BY task_id`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tis []*model.TaskInstance
	for rows.Next() {
		ti, err := scanTaskInstance(rows)
		if err != nil {
			return nil, err
		}
		tis = append(tis, ti)
	}
	return tis, rows.Err()
}

func (s *SQLiteStore) GetTaskInstancesByState(ctx context.Context, state model.TaskState) ([]*model.TaskInstance, error) {
	s.logger.Debug("sql", "op", "select_by_state", "table", "task_instances", "state", state)

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, run_id, dag_id, task_id, state, try_number, max_tries, created_at, queued_at, started_at, ended_at
		 FROM task_instances WHERE state = ? ORDER BY created_at`, state)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tis []*model.TaskInstance
	for rows.Next() {
		ti, err := scanTaskInstance(rows)
		if err != nil {
			return nil, err
		}
		tis = append(tis, ti)
	}
	return tis, rows.Err()
}

func (s *SQLiteStore) UpdateTaskInstance(ctx context.Context, ti *model.TaskInstance) error {
	s.logger.Debug("sql", "op", "update", "table", "task_instances", "id", ti.ID)

	_, err := s.db.ExecContext(ctx,
		`UPDATE task_instances SET state = ?, try_number = ?, queued_at = ?, started_at = ?, ended_at = ?
		 WHERE id = ?`,
		ti.State, ti.TryNumber,
		storeTimePtr(ti.QueuedAt), storeTimePtr(ti.StartedAt), storeTimePtr(ti.EndedAt), ti.ID,
	)
	return err
}
