// Package runner contains the scheduling and execution subsystem: the
// polling scheduler loop, the bounded worker pool, and startup recovery.
package runner

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"taskd/internal/db"
	"taskd/internal/metrics"
)

// Scheduler is the single long-running producer. Each iteration it budgets
// free worker slots, asks the store for runnable tasks, claims them, and
// hands them to the pool.
type Scheduler struct {
	store    db.Store
	pool     *Pool
	exec     *Executor
	metrics  *metrics.Metrics
	interval time.Duration
}

// NewScheduler wires the loop. interval is the poll period between
// iterations.
func NewScheduler(store db.Store, pool *Pool, exec *Executor, m *metrics.Metrics, interval time.Duration) *Scheduler {
	return &Scheduler{
		store:    store,
		pool:     pool,
		exec:     exec,
		metrics:  m,
		interval: interval,
	}
}

// Run polls until ctx is cancelled. Recoverable errors are logged and the
// loop restarts after the interval; it never exits on a store outage.
func (s *Scheduler) Run(ctx context.Context) {
	slog.Info("scheduler loop started", "max_workers", s.pool.Capacity(), "interval", s.interval)

	for {
		s.tick(ctx)

		select {
		case <-ctx.Done():
			slog.Info("scheduler loop stopping")
			return
		case <-time.After(s.interval):
		}
	}
}

// tick runs one scheduling iteration.
func (s *Scheduler) tick(ctx context.Context) {
	// Slots are capacity minus submitted-but-not-terminated work, tracked by
	// the pool itself rather than read off a queue depth.
	available := s.pool.Capacity() - s.pool.InFlight()
	if available <= 0 {
		slog.Debug("no available worker slots", "in_flight", s.pool.InFlight())
		return
	}

	runnable, err := s.store.FindRunnable(ctx, available)
	if err != nil {
		slog.Error("error finding runnable tasks", "error", err)
		return
	}
	if len(runnable) > 0 {
		slog.Debug("found runnable tasks", "count", len(runnable), "task_ids", runnable)
	}

	for _, id := range runnable {
		s.dispatch(ctx, id)
	}
}

func (s *Scheduler) dispatch(ctx context.Context, id string) {
	claimed, err := s.store.ClaimRunning(ctx, id)
	if err != nil {
		slog.Error("error claiming task", "task_id", id, "error", err)
		return
	}
	if !claimed {
		// Expected only as a safety net under single-scheduler deployments.
		if s.metrics != nil {
			s.metrics.SchedulerClaims.WithLabelValues("lost").Inc()
		}
		slog.Debug("task already claimed", "task_id", id)
		return
	}
	if s.metrics != nil {
		s.metrics.SchedulerClaims.WithLabelValues("won").Inc()
	}

	task, err := s.store.GetTask(ctx, id)
	if err != nil {
		if errors.Is(err, db.ErrTaskNotFound) {
			slog.Warn("task vanished after claim", "task_id", id)
		} else {
			slog.Error("error fetching claimed task", "task_id", id, "error", err)
		}
		return
	}

	// The worker gets a background context: an in-flight task must still be
	// able to write its terminal status while the process shuts down.
	err = s.pool.Submit(func() {
		if s.metrics != nil {
			s.metrics.TasksInFlight.Inc()
			defer s.metrics.TasksInFlight.Dec()
		}
		s.exec.Execute(context.Background(), task)
	})
	if err != nil {
		slog.Warn("pool rejected task, will be retried after restart", "task_id", id, "error", err)
		return
	}

	slog.Info("task submitted to worker pool", "task_id", id, "duration_ms", task.DurationMS)
}
