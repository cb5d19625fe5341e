// Package tasks is the write and read path for task submissions.
package tasks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"taskd/internal/dag"
	"taskd/internal/db"
)

// SubmitRequest is a task submission.
type SubmitRequest struct {
	ID           string   `json:"id"`
	Type         string   `json:"type"`
	DurationMS   int64    `json:"duration_ms"`
	Dependencies []string `json:"dependencies"`
}

// SubmitResult is returned on successful enrollment.
type SubmitResult struct {
	ID     string        `json:"id"`
	Status db.TaskStatus `json:"status"`
}

// Service validates submissions and enrolls them in the store.
type Service struct {
	store db.Store
}

// NewService creates a task service backed by store.
func NewService(store db.Store) *Service {
	return &Service{store: store}
}

// Submit validates and persists a new task. Checks run in order and the
// first failure wins: shape, uniqueness, dependency existence, acyclicity.
//
// The cycle check runs against a snapshot of the dependency graph overlaid
// with the proposed edges. A concurrent submission landing between snapshot
// and insert could in principle compose a cycle with this one; submissions
// are not serialized against that window. Strictly serial submission can
// never produce a cycle.
func (s *Service) Submit(ctx context.Context, req SubmitRequest) (*SubmitResult, error) {
	if req.ID == "" {
		return nil, &ValidationError{Detail: "id must be a non-empty string"}
	}
	if req.Type == "" {
		return nil, &ValidationError{Detail: "type must be a non-empty string"}
	}
	if req.DurationMS <= 0 {
		return nil, &ValidationError{Detail: "duration_ms must be greater than 0"}
	}

	slog.Info("creating task", "task_id", req.ID, "type", req.Type, "dependencies", req.Dependencies)

	if _, err := s.store.GetTask(ctx, req.ID); err == nil {
		slog.Warn("task creation failed: duplicate id", "task_id", req.ID)
		return nil, &AlreadyExistsError{ID: req.ID}
	} else if !errors.Is(err, db.ErrTaskNotFound) {
		return nil, fmt.Errorf("checking task existence: %w", err)
	}

	for _, depID := range req.Dependencies {
		if _, err := s.store.GetTask(ctx, depID); err != nil {
			if errors.Is(err, db.ErrTaskNotFound) {
				slog.Warn("task creation failed: missing dependency", "task_id", req.ID, "dependency", depID)
				return nil, &MissingDependencyError{ID: depID}
			}
			return nil, fmt.Errorf("checking dependency %q: %w", depID, err)
		}
	}

	graph, err := s.store.LoadDependencyGraph(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading dependency graph: %w", err)
	}
	graph[req.ID] = req.Dependencies

	if dag.HasCycle(graph) {
		slog.Warn("task creation failed: dependency cycle", "task_id", req.ID)
		return nil, &CycleError{TaskID: req.ID}
	}

	if err := s.store.InsertTask(ctx, req.ID, req.Type, req.DurationMS, req.Dependencies); err != nil {
		// A concurrent submission may have inserted the same id after the
		// uniqueness check above; surface that as a duplicate.
		if errors.Is(err, db.ErrTaskExists) {
			return nil, &AlreadyExistsError{ID: req.ID}
		}
		if errors.Is(err, db.ErrMissingDependency) {
			return nil, &MissingDependencyError{ID: req.ID}
		}
		return nil, fmt.Errorf("inserting task %q: %w", req.ID, err)
	}

	slog.Info("task created", "task_id", req.ID, "dependencies", len(req.Dependencies))
	return &SubmitResult{ID: req.ID, Status: db.StatusQueued}, nil
}

// Get returns a single task. Misses surface as db.ErrTaskNotFound.
func (s *Service) Get(ctx context.Context, id string) (*db.Task, error) {
	return s.store.GetTask(ctx, id)
}

// List returns all tasks.
func (s *Service) List(ctx context.Context) ([]db.Task, error) {
	return s.store.ListTasks(ctx)
}
