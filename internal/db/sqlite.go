package db

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// SQLiteStore implements Store using a single-file SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the database at path, enables WAL
// journaling and foreign keys, and applies migrations.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	// Pragmas go on the DSN so every pooled connection gets them. WAL keeps
	// readers from blocking the scheduler's writes; busy_timeout covers
	// writer contention between workers.
	dsn := fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &SQLiteStore{db: conn}
	if err := store.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) migrate() error {
	query := `
	CREATE TABLE IF NOT EXISTS tasks (
		id TEXT PRIMARY KEY,
		type TEXT NOT NULL,
		duration_ms INTEGER NOT NULL,
		status TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	);
	CREATE TABLE IF NOT EXISTS task_dependencies (
		task_id TEXT NOT NULL REFERENCES tasks(id) ON DELETE CASCADE,
		depends_on_task_id TEXT NOT NULL REFERENCES tasks(id) ON DELETE CASCADE,
		PRIMARY KEY (task_id, depends_on_task_id)
	);
	CREATE INDEX IF NOT EXISTS idx_tasks_status ON tasks(status);
	`
	_, err := s.db.Exec(query)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// InsertTask inserts the task row and its dependency edges in one
// transaction. A rollback leaves no rows behind.
func (s *SQLiteStore) InsertTask(ctx context.Context, id, taskType string, durationMS int64, deps []string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	_, err = tx.ExecContext(ctx,
		`INSERT INTO tasks (id, type, duration_ms, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		id, taskType, durationMS, StatusQueued, now, now)
	if err != nil {
		return sqliteConstraintErr(err)
	}

	for _, dep := range deps {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO task_dependencies (task_id, depends_on_task_id) VALUES (?, ?)`,
			id, dep)
		if err != nil {
			return sqliteConstraintErr(err)
		}
	}

	return tx.Commit()
}

// sqliteConstraintErr maps driver constraint failures onto the package
// sentinels. modernc.org/sqlite exposes constraint info in the message only.
func sqliteConstraintErr(err error) error {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "UNIQUE constraint failed"):
		return fmt.Errorf("%w: %s", ErrTaskExists, msg)
	case strings.Contains(msg, "FOREIGN KEY constraint failed"):
		return fmt.Errorf("%w: %s", ErrMissingDependency, msg)
	default:
		return err
	}
}

// GetTask returns the task row or ErrTaskNotFound.
func (s *SQLiteStore) GetTask(ctx context.Context, id string) (*Task, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, type, duration_ms, status, created_at, updated_at FROM tasks WHERE id = ?`, id)

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
func (s *SQLiteStore) ListTasks(ctx context.Context) ([]Task, error) {
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
func (s *SQLiteStore) LoadDependencyGraph(ctx context.Context) (map[string][]string, error) {
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
// first. Single query: the snapshot is internally consistent.
func (s *SQLiteStore) FindRunnable(ctx context.Context, limit int) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT t.id FROM tasks t
		WHERE t.status = ?
		AND NOT EXISTS (
			SELECT 1 FROM task_dependencies d
			JOIN tasks dep ON dep.id = d.depends_on_task_id
			WHERE d.task_id = t.id AND dep.status != ?
		)
		ORDER BY t.created_at, t.id
		LIMIT ?`,
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

// ClaimRunning performs the conditional QUEUED -> RUNNING update. The WHERE
// clause makes the row-level claim race-free: one winner, everyone else
// sees zero rows updated.
func (s *SQLiteStore) ClaimRunning(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE tasks SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
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
func (s *SQLiteStore) MarkCompleted(ctx context.Context, id string) error {
	return s.markTerminal(ctx, id, StatusCompleted)
}

// MarkFailed sets the terminal FAILED status.
func (s *SQLiteStore) MarkFailed(ctx context.Context, id string) error {
	return s.markTerminal(ctx, id, StatusFailed)
}

func (s *SQLiteStore) markTerminal(ctx context.Context, id string, status TaskStatus) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE tasks SET status = ?, updated_at = ? WHERE id = ?`,
		status, time.Now().UTC(), id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		// Row purged externally; not a hard error.
		slog.Warn("task not found when marking terminal status", "task_id", id, "status", status)
	}
	return nil
}

// ResetRunningToQueued rewrites stale RUNNING rows back to QUEUED.
func (s *SQLiteStore) ResetRunningToQueued(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE tasks SET status = ?, updated_at = ? WHERE status = ?`,
		StatusQueued, time.Now().UTC(), StatusRunning)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// HealthCheck verifies the database is reachable.
func (s *SQLiteStore) HealthCheck(ctx context.Context) error {
	var one int
	return s.db.QueryRowContext(ctx, `SELECT 1`).Scan(&one)
}
