package runner

import (
	"context"
	"log/slog"

	"taskd/internal/db"
)

// Recover requeues tasks left RUNNING by a previous process. After it
// returns successfully, no task in the store has status RUNNING. It is
// idempotent; calling it twice is equivalent to calling it once.
func Recover(ctx context.Context, store db.Store) (int64, error) {
	count, err := store.ResetRunningToQueued(ctx)
	if err != nil {
		return 0, err
	}
	if count > 0 {
		slog.Info("reset tasks from RUNNING to QUEUED", "count", count)
	} else {
		slog.Debug("no tasks in RUNNING state to reset")
	}
	return count, nil
}
