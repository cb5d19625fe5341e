package db

import (
	"context"
	"errors"
	"time"
)

// TaskStatus is the lifecycle state of a task.
type TaskStatus string

const (
	StatusQueued    TaskStatus = "QUEUED"
	StatusRunning   TaskStatus = "RUNNING"
	StatusCompleted TaskStatus = "COMPLETED"
	StatusFailed    TaskStatus = "FAILED"
)

// Task is a persisted unit of work.
type Task struct {
	ID         string     `json:"id"`
	Type       string     `json:"type"`
	DurationMS int64      `json:"duration_ms"`
	Status     TaskStatus `json:"status"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// Sentinel errors surfaced by Store implementations. Callers match with
// errors.Is and translate to their own error kinds.
var (
	ErrTaskExists        = errors.New("task already exists")
	ErrTaskNotFound      = errors.New("task not found")
	ErrMissingDependency = errors.New("dependency task does not exist")
)

// Store is the durable view of tasks and their dependency edges. All
// cross-goroutine coordination (claiming, completion) goes through it;
// in-memory state held by callers is advisory only.
type Store interface {
	Close() error

	// InsertTask atomically inserts a task row with status QUEUED plus one
	// dependency edge per dep. On any failure nothing is persisted.
	InsertTask(ctx context.Context, id, taskType string, durationMS int64, deps []string) error

	GetTask(ctx context.Context, id string) (*Task, error)
	ListTasks(ctx context.Context) ([]Task, error)

	// LoadDependencyGraph returns the full adjacency list task -> [deps].
	LoadDependencyGraph(ctx context.Context) (map[string][]string, error)

	// FindRunnable returns up to limit ids of QUEUED tasks whose every
	// dependency is COMPLETED, computed as a single query so the view is
	// internally consistent.
	FindRunnable(ctx context.Context, limit int) ([]string, error)

	// ClaimRunning promotes id from QUEUED to RUNNING. Returns true exactly
	// when one row was updated; concurrent claimants observe one winner.
	ClaimRunning(ctx context.Context, id string) (bool, error)

	MarkCompleted(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id string) error

	// ResetRunningToQueued rewrites every RUNNING task back to QUEUED and
	// returns the number of rows touched. Called once at startup.
	ResetRunningToQueued(ctx context.Context) (int64, error)

	HealthCheck(ctx context.Context) error
}
