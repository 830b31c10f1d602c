package cleanup

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/italolelis/media_gateway/internal/job"
	"github.com/stretchr/testify/require"
)

type fakeRegistry struct {
	finished  []job.Snapshot
	forgotten []string
}

func (r *fakeRegistry) Finished() []job.Snapshot { return r.finished }
func (r *fakeRegistry) Forget(id string)         { r.forgotten = append(r.forgotten, id) }

func TestSweepFinishedJobs(t *testing.T) {
	dir := t.TempDir()

	expired := filepath.Join(dir, "old.mp4")
	require.NoError(t, os.WriteFile(expired, []byte("x"), 0644))

	fresh := filepath.Join(dir, "new.mp4")
	require.NoError(t, os.WriteFile(fresh, []byte("x"), 0644))

	registry := &fakeRegistry{finished: []job.Snapshot{
		{ID: "old", Status: job.StatusCompleted, FilePath: expired, FinishedAt: time.Now().Add(-2 * time.Hour)},
		{ID: "new", Status: job.StatusCompleted, FilePath: fresh, FinishedAt: time.Now()},
	}}

	require.NoError(t, SweepFinishedJobs(context.Background(), registry, time.Hour))

	require.NoFileExists(t, expired)
	require.FileExists(t, fresh)
	require.Equal(t, []string{"old"}, registry.forgotten)
}

func TestSweepFinishedJobsToleratesMissingFile(t *testing.T) {
	registry := &fakeRegistry{finished: []job.Snapshot{
		{ID: "gone", Status: job.StatusFailed, FilePath: "/nonexistent/file.mp4", FinishedAt: time.Now().Add(-2 * time.Hour)},
		{ID: "nofile", Status: job.StatusCancelled, FinishedAt: time.Now().Add(-2 * time.Hour)},
	}}

	require.NoError(t, SweepFinishedJobs(context.Background(), registry, time.Hour))
	require.ElementsMatch(t, []string{"gone", "nofile"}, registry.forgotten)
}
