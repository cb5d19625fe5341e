package runner

import (
	"context"

	"taskd/internal/db"
)

// mockStore scripts store behavior for paths that are awkward to reach
// through a real database (claim losses, vanished rows, failing writes).
type mockStore struct {
	getTask       func(ctx context.Context, id string) (*db.Task, error)
	claimRunning  func(ctx context.Context, id string) (bool, error)
	markCompleted func(ctx context.Context, id string) error
	markFailed    func(ctx context.Context, id string) error
}

func (m *mockStore) Close() error { return nil }

func (m *mockStore) InsertTask(ctx context.Context, id, taskType string, durationMS int64, deps []string) error {
	return nil
}

func (m *mockStore) GetTask(ctx context.Context, id string) (*db.Task, error) {
	if m.getTask != nil {
		return m.getTask(ctx, id)
	}
	return nil, db.ErrTaskNotFound
}

func (m *mockStore) ListTasks(ctx context.Context) ([]db.Task, error) { return nil, nil }

func (m *mockStore) LoadDependencyGraph(ctx context.Context) (map[string][]string, error) {
	return map[string][]string{}, nil
}

func (m *mockStore) FindRunnable(ctx context.Context, limit int) ([]string, error) { return nil, nil }

func (m *mockStore) ClaimRunning(ctx context.Context, id string) (bool, error) {
	if m.claimRunning != nil {
		return m.claimRunning(ctx, id)
	}
	return true, nil
}

func (m *mockStore) MarkCompleted(ctx context.Context, id string) error {
	if m.markCompleted != nil {
		return m.markCompleted(ctx, id)
	}
	return nil
}

func (m *mockStore) MarkFailed(ctx context.Context, id string) error {
	if m.markFailed != nil {
		return m.markFailed(ctx, id)
	}
	return nil
}

func (m *mockStore) ResetRunningToQueued(ctx context.Context) (int64, error) { return 0, nil }

func (m *mockStore) HealthCheck(ctx context.Context) error { return nil }
