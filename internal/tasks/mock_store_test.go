package tasks

import (
	"context"

	"taskd/internal/db"
)

// mockStore lets individual tests script store behavior that is hard to
// reach through a real database, like the snapshot race on insert.
type mockStore struct {
	getTask    func(ctx context.Context, id string) (*db.Task, error)
	insertTask func(ctx context.Context, id, taskType string, durationMS int64, deps []string) error
	loadGraph  func(ctx context.Context) (map[string][]string, error)
}

func (m *mockStore) Close() error { return nil }

func (m *mockStore) InsertTask(ctx context.Context, id, taskType string, durationMS int64, deps []string) error {
	if m.insertTask != nil {
		return m.insertTask(ctx, id, taskType, durationMS, deps)
	}
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
	if m.loadGraph != nil {
		return m.loadGraph(ctx)
	}
	return map[string][]string{}, nil
}

func (m *mockStore) FindRunnable(ctx context.Context, limit int) ([]string, error) { return nil, nil }

func (m *mockStore) ClaimRunning(ctx context.Context, id string) (bool, error) { return false, nil }

func (m *mockStore) MarkCompleted(ctx context.Context, id string) error { return nil }

func (m *mockStore) MarkFailed(ctx context.Context, id string) error { return nil }

func (m *mockStore) ResetRunningToQueued(ctx context.Context) (int64, error) { return 0, nil }

func (m *mockStore) HealthCheck(ctx context.Context) error { return nil }
