package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lib/pq"
)

// PostgresStore implements Store using PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore opens a connection pool against dsn and applies
// migrations.
func NewPostgresStore(dsn string) (*PostgresStore, error) {
	conn, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &PostgresStore{db: conn}
	if err := store.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

func (s *PostgresStore) migrate() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS tasks (
			id TEXT PRIMARY KEY,
			type TEXT NOT NULL,
			duration_ms BIGINT NOT NULL,
			status TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS task_dependencies (
			task_id TEXT NOT NULL REFERENCES tasks(id) ON DELETE CASCADE,
			depends_on_task_id TEXT NOT NULL REFERENCES tasks(id) ON DELETE CASCADE,
			PRIMARY KEY (task_id, depends_on_task_id)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_status ON tasks(status);`,
	}

	for _, query := range queries {
		if _, err := s.db.Exec(query); err != nil {
			return err
		}
	}
	return nil
}

// Close closes the database connection pool.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// pgConstraintErr maps Postgres constraint violations onto the package
// sentinels using SQLSTATE codes.
func pgConstraintErr(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "23505": // unique_violation
			return fmt.Errorf("%w: %s", ErrTaskExists, pqErr.Message)
		case "23503": // foreign_key_violation
			return fmt.Errorf("%w: %s", ErrMissingDependency, pqErr.Message)
		}
	}
	return err
}

// InsertTask inserts the task row and its dependency edges in one
// transaction.
func (s *PostgresStore) InsertTask(ctx context.Context, id, taskType string, durationMS int64, deps []string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	_, err = tx.ExecContext(ctx,
		`INSERT INTO tasks (id, type, duration_ms, status, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		id, taskType, durationMS, StatusQueued, now, now)
	if err != nil {
		return pgConstraintErr(err)
	}

	for _, dep := range deps {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO task_dependencies (task_id, depends_on_task_id) VALUES ($1, $2)`,
			id, dep)
		if err != nil {
			return pgConstraintErr(err)
		}
	}

	return tx.Commit()
}

// GetTask returns the task row or ErrTaskNotFound.
func (s *PostgresStore) GetTask(ctx context.Context, id string) (*Task, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, type, duration_ms, status, created_at, updated_at FROM tasks WHERE id = $1`, id)

	var t Task
	err := row.Scan(&t.ID, &t.Type, &t.DurationMS, &t.Status, &t.CreatedAt, &t.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrTaskNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// ListTasks returns all task rows in insertion order.
func (s *PostgresStore) ListTasks(ctx context.Context) ([]Task, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, type, duration_ms, status, created_at, updated_at FROM tasks ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []Task
	for rows.Next() {
		var t Task
		if err := rows.Scan(&t.ID, &t.Type, &t.DurationMS, &t.Status, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// LoadDependencyGraph returns the adjacency list task -> [deps].
func (s *PostgresStore) LoadDependencyGraph(ctx context.Context) (map[string][]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT task_id, depends_on_task_id FROM task_dependencies`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	graph := make(map[string][]string)
	for rows.Next() {
		var taskID, depID string
		if err := rows.Scan(&taskID, &depID); err != nil {
			return nil, err
		}
		graph[taskID] = append(graph[taskID], depID)
	}
	return graph, rows.Err()
}

// FindRunnable returns QUEUED tasks with no incomplete dependency, oldest
// first.
func (s *PostgresStore) FindRunnable(ctx context.Context, limit int) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT t.id FROM tasks t
		WHERE t.status = $1
		AND NOT EXISTS (
			SELECT 1 FROM task_dependencies d
			JOIN tasks dep ON dep.id = d.depends_on_task_id
			WHERE d.task_id = t.id AND dep.status != $2
		)
		ORDER BY t.created_at, t.id
		LIMIT $3`,
		StatusQueued, StatusCompleted, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ClaimRunning performs the conditional QUEUED -> RUNNING update.
func (s *PostgresStore) ClaimRunning(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE tasks SET status = $1, updated_at = $2 WHERE id = $3 AND status = $4`,
		StatusRunning, time.Now().UTC(), id, StatusQueued)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// MarkCompleted sets the terminal COMPLETED status.
func (s *PostgresStore) MarkCompleted(ctx context.Context, id string) error {
	return s.markTerminal(ctx, id, StatusCompleted)
}

// MarkFailed sets the terminal FAILED status.
func (s *PostgresStore) MarkFailed(ctx context.Context, id string) error {
	return s.markTerminal(ctx, id, StatusFailed)
}

func (s *PostgresStore) markTerminal(ctx context.Context, id string, status TaskStatus) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE tasks SET status = $1, updated_at = $2 WHERE id = $3`,
		status, time.Now().UTC(), id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		slog.Warn("task not found when marking terminal status", "task_id", id, "status", status)
	}
	return nil
}

// ResetRunningToQueued rewrites stale RUNNING rows back to QUEUED.
func (s *PostgresStore) ResetRunningToQueued(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE tasks SET status = $1, updated_at = $2 WHERE status = $3`,
		StatusQueued, time.Now().UTC(), StatusRunning)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// HealthCheck verifies the database is reachable.
func (s *PostgresStore) HealthCheck(ctx context.Context) error {
	var one int
	return s.db.QueryRowContext(ctx, `SELECT 1`).Scan(&one)
}
