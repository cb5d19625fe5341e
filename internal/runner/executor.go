package runner

import (
	"context"
	"log/slog"
	"time"

	"taskd/internal/db"
	"taskd/internal/metrics"
)

// terminalWriteAttempts bounds retries of the terminal status write before
// deferring to restart recovery.
const terminalWriteAttempts = 3

// Body simulates a task's work. The production mapping of task type to a
// real handler lives outside the core; the default body sleeps for the
// task's declared duration.
type Body func(ctx context.Context, task *db.Task) error

// SleepBody is the default simulated workload.
func SleepBody(ctx context.Context, task *db.Task) error {
	time.Sleep(time.Duration(task.DurationMS) * time.Millisecond)
	return nil
}

// Executor runs one task body and reports the terminal status to the store.
type Executor struct {
	store   db.Store
	metrics *metrics.Metrics
	body    Body
}

// NewExecutor creates an executor writing outcomes to store. A nil body
// selects SleepBody.
func NewExecutor(store db.Store, m *metrics.Metrics, body Body) *Executor {
	if body == nil {
		body = SleepBody
	}
	return &Executor{store: store, metrics: m, body: body}
}

// Execute runs the task and writes COMPLETED or FAILED. The terminal write
// retries a few times; if it still fails the task stays RUNNING on disk
// until the next startup recovery, which is logged loudly.
func (e *Executor) Execute(ctx context.Context, task *db.Task) {
	slog.Info("task execution started", "task_id", task.ID, "duration_ms", task.DurationMS)

	if err := e.body(ctx, task); err != nil {
		slog.Error("task failed during execution", "task_id", task.ID, "error", err)
		e.writeTerminal(ctx, task.ID, db.StatusFailed)
		if e.metrics != nil {
			e.metrics.TasksFailed.Inc()
		}
		return
	}

	e.writeTerminal(ctx, task.ID, db.StatusCompleted)
	if e.metrics != nil {
		e.metrics.TasksCompleted.Inc()
	}
	slog.Info("task completed", "task_id", task.ID)
}

func (e *Executor) writeTerminal(ctx context.Context, id string, status db.TaskStatus) {
	var err error
	for attempt := 1; attempt <= terminalWriteAttempts; attempt++ {
		if status == db.StatusCompleted {
			err = e.store.MarkCompleted(ctx, id)
		} else {
			err = e.store.MarkFailed(ctx, id)
		}
		if err == nil {
			return
		}
		slog.Warn("terminal status write failed, retrying",
			"task_id", id, "status", status, "attempt", attempt, "error", err)
		time.Sleep(time.Duration(attempt) * 50 * time.Millisecond)
	}
	// The row stays RUNNING; only restart recovery will requeue it.
	slog.Error("giving up on terminal status write, task requires restart recovery",
		"task_id", id, "status", status, "error", err)
}
