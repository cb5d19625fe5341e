package runner

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskd/internal/db"
)

func newRunnerStore(t *testing.T) *db.SQLiteStore {
	t.Helper()
	store, err := db.NewSQLiteStore(filepath.Join(t.TempDir(), "tasks.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestExecutor_CompletesTask(t *testing.T) {
	store := newRunnerStore(t)
	ctx := context.Background()

	require.NoError(t, store.InsertTask(ctx, "A", "t", 5, nil))
	claimed, err := store.ClaimRunning(ctx, "A")
	require.NoError(t, err)
	require.True(t, claimed)

	task, err := store.GetTask(ctx, "A")
	require.NoError(t, err)

	exec := NewExecutor(store, nil, nil)
	exec.Execute(ctx, task)

	task, err = store.GetTask(ctx, "A")
	require.NoError(t, err)
	assert.Equal(t, db.StatusCompleted, task.Status)
}

func TestExecutor_FailedBodyMarksFailed(t *testing.T) {
	store := newRunnerStore(t)
	ctx := context.Background()

	require.NoError(t, store.InsertTask(ctx, "A", "t", 5, nil))
	_, err := store.ClaimRunning(ctx, "A")
	require.NoError(t, err)

	task, err := store.GetTask(ctx, "A")
	require.NoError(t, err)

	body := func(ctx context.Context, task *db.Task) error {
		return errors.New("simulated handler failure")
	}
	exec := NewExecutor(store, nil, body)
	exec.Execute(ctx, task)

	task, err = store.GetTask(ctx, "A")
	require.NoError(t, err)
	assert.Equal(t, db.StatusFailed, task.Status)
}

func TestExecutor_RetriesTerminalWrite(t *testing.T) {
	var attempts int
	store := &mockStore{
		markCompleted: func(ctx context.Context, id string) error {
			attempts++
			if attempts < 3 {
				return errors.New("transient store error")
			}
			return nil
		},
	}

	exec := NewExecutor(store, nil, nil)
	exec.Execute(context.Background(), &db.Task{ID: "A", Type: "t", DurationMS: 1, Status: db.StatusRunning})

	assert.Equal(t, 3, attempts, "write should be retried until it lands")
}

func TestExecutor_GivesUpAfterBoundedAttempts(t *testing.T) {
	var attempts int
	store := &mockStore{
		markCompleted: func(ctx context.Context, id string) error {
			attempts++
			return errors.New("store down")
		},
	}

	// Execute must return (logging the orphan) rather than spin forever;
	// recovery requeues the task at next startup.
	exec := NewExecutor(store, nil, nil)
	exec.Execute(context.Background(), &db.Task{ID: "A", Type: "t", DurationMS: 1, Status: db.StatusRunning})

	assert.Equal(t, terminalWriteAttempts, attempts)
}
