package cleanup

import (
	"context"
	"os"
	"time"

	"github.com/italolelis/media_gateway/internal/job"
	"github.com/italolelis/media_gateway/internal/logctx"
)

// JobRegistry is the slice of the download manager the sweeper needs.
type JobRegistry interface {
	Finished() []job.Snapshot
	Forget(id string)
}

// SweepFinishedJobs removes downloaded files of jobs that finished more than
// keepDuration ago and drops those jobs from the registry. Files that are
// already gone are not an error; the job record still gets forgotten so the
// registry cannot grow without bound.
func SweepFinishedJobs(ctx context.Context, registry JobRegistry, keepDuration time.Duration) error {
	logger := logctx.LoggerFromContext(ctx)
	now := time.Now()

	for _, snap := range registry.Finished() {
		if now.Sub(snap.FinishedAt) <= keepDuration {
			continue
		}

		if snap.FilePath != "" {
			if err := os.Remove(snap.FilePath); err != nil && !os.IsNotExist(err) {
				logger.Error("failed to delete expired file", "file", snap.FilePath, "err", err)

				return err
			}

			logger.Info("deleted expired file", "file", snap.FilePath)
		}

		registry.Forget(snap.ID)
		logger.Info("forgot expired job", "job_id", snap.ID, "status", snap.Status)
	}

	return nil
}
