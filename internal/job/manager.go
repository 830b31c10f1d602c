package job

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/italolelis/media_gateway/internal/extractor"
	"github.com/italolelis/media_gateway/internal/logctx"
	"github.com/italolelis/media_gateway/internal/retry"
	"github.com/italolelis/media_gateway/internal/telemetry"
	"golang.org/x/sync/semaphore"
)

const (
	dirPerm     = 0755
	eventBuffer = 32
)

// errCancelled aborts an in-flight transfer when the cancellation flag is
// observed at a progress callback.
var errCancelled = errors.New("download cancelled")

// Manager owns every download job for the lifetime of the process. Jobs are
// registered in a lock-guarded table, run on their own goroutine independent
// of the originating request, and are observed by polling Get. Terminal jobs
// stay in the table until the retention sweeper forgets them.
type Manager struct {
	engine      extractor.Engine
	policy      retry.Policy
	downloadDir string
	sem         *semaphore.Weighted
	telemetry   *telemetry.Telemetry

	mu   sync.Mutex
	jobs map[string]*Job

	OnJobFinished chan Snapshot
	OnJobFailed   chan Snapshot
}

// StartRequest describes a download to run.
type StartRequest struct {
	URL          string
	Cookies      string
	FormatID     string
	OutputDir    string
	MaxHeight    int
	PreferredExt string
	Codec        string
	Container    string
}

// NewManager creates a manager running at most maxParallel downloads at
// once. A policy without a Retryable predicate defaults to retrying
// rate-limit-class errors only.
func NewManager(engine extractor.Engine, policy retry.Policy, downloadDir string, maxParallel int, tel *telemetry.Telemetry) *Manager {
	if policy.Retryable == nil {
		policy.Retryable = extractor.IsRateLimited
	}

	if maxParallel < 1 {
		maxParallel = 1
	}

	return &Manager{
		engine:      engine,
		policy:      policy,
		downloadDir: downloadDir,
		sem:         semaphore.NewWeighted(int64(maxParallel)),
		telemetry:   tel,
		jobs:        make(map[string]*Job),

		OnJobFinished: make(chan Snapshot, eventBuffer),
		OnJobFailed:   make(chan Snapshot, eventBuffer),
	}
}

// Start registers a fresh job and launches its run. It returns the initial
// snapshot immediately; the download proceeds independently of the caller
// and of the originating request's cancellation.
func (m *Manager) Start(ctx context.Context, req StartRequest) Snapshot {
	j := &Job{
		ID:        uuid.NewString(),
		Status:    StatusQueued,
		CreatedAt: time.Now(),
	}

	m.mu.Lock()
	m.jobs[j.ID] = j
	snap := j.snapshot()
	m.mu.Unlock()

	go m.run(context.WithoutCancel(ctx), j.ID, req)

	return snap
}

// Get returns a snapshot of the job, or false when the ID is unknown.
func (m *Manager) Get(id string) (Snapshot, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	j, ok := m.jobs[id]
	if !ok {
		return Snapshot{}, false
	}

	return j.snapshot(), true
}

// Cancel flips the cancellation flag for the job. It returns false only when
// the ID is unknown; cancelling an already-cancelling or terminal job is a
// no-op that still reports true. Cancellation is cooperative: the run
// observes the flag at its next progress callback.
func (m *Manager) Cancel(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	j, ok := m.jobs[id]
	if !ok {
		return false
	}

	if j.Status.Terminal() {
		return true
	}

	j.cancel = true
	j.Status = StatusCancelling

	return true
}

// Finished returns snapshots of every terminal job, for the retention sweeper.
func (m *Manager) Finished() []Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	finished := make([]Snapshot, 0, len(m.jobs))

	for _, j := range m.jobs {
		if j.Status.Terminal() {
			finished = append(finished, j.snapshot())
		}
	}

	return finished
}

// Forget drops a terminal job from the table. Active jobs are never dropped.
func (m *Manager) Forget(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if j, ok := m.jobs[id]; ok && j.Status.Terminal() {
		delete(m.jobs, id)
	}
}

// run is the job's independent execution path. Every failure, cancellation
// included, lands on the job record; nothing propagates to a caller.
func (m *Manager) run(ctx context.Context, id string, req StartRequest) {
	logger := logctx.LoggerFromContext(ctx).With("job_id", id, "url", req.URL)
	start := time.Now()

	if m.telemetry != nil {
		m.telemetry.IncrementActiveDownloads()
		defer m.telemetry.DecrementActiveDownloads()
	}

	if err := m.sem.Acquire(ctx, 1); err != nil {
		m.finish(ctx, id, err)

		return
	}
	defer m.sem.Release(1)

	if m.cancelRequested(id) {
		m.finish(ctx, id, errCancelled)

		return
	}

	cookieFile, discard, err := extractor.StageCookies(ctx, req.Cookies)
	if err != nil {
		m.finish(ctx, id, err)

		return
	}
	defer discard()

	outputDir := req.OutputDir
	if outputDir == "" {
		outputDir = m.downloadDir
	}

	if err := os.MkdirAll(outputDir, dirPerm); err != nil {
		m.finish(ctx, id, err)

		return
	}

	opts := extractor.DownloadOptions{
		FormatSelector: buildFormatSelector(req),
		OutputTemplate: filepath.Join(outputDir, "%(title)s.%(ext)s"),
		CookieFile:     cookieFile,
		OnProgress: func(u extractor.ProgressUpdate) error {
			return m.observeProgress(id, u)
		},
	}

	policy := m.policy
	retryable := policy.Retryable
	policy.Retryable = func(err error) bool {
		return !errors.Is(err, errCancelled) && retryable(err)
	}
	policy.OnRetry = func(attempt int, err error) {
		m.markRetrying(id, err)
		logger.Warn("transient download failure, backing off", "attempt", attempt, "err", err)
	}

	logger.Info("download started", "selector", opts.FormatSelector)

	err = policy.Do(ctx, func(ctx context.Context) error {
		return m.engine.Download(ctx, req.URL, opts)
	})

	snap := m.finish(ctx, id, err)

	if m.telemetry != nil {
		m.telemetry.RecordDownload(string(snap.Status), time.Since(start))
	}

	switch snap.Status {
	case StatusCompleted:
		logger.Info("download completed",
			"filename", snap.Filename,
			"downloaded", humanize.Bytes(uint64(m.downloadedBytes(id))),
			"duration", time.Since(start).String(),
		)
	case StatusCancelled:
		logger.Info("download cancelled")
	default:
		logger.Error("download failed", "err", snap.Error)
	}
}

// observeProgress is the progress callback: it checks the cancellation flag
// first, then folds the update into the job record. Progress never moves
// backwards while the job is active.
func (m *Manager) observeProgress(id string, u extractor.ProgressUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	j, ok := m.jobs[id]
	if !ok {
		return nil
	}

	if j.cancel {
		return errCancelled
	}

	switch u.Phase {
	case extractor.PhaseDownloading:
		j.Status = StatusDownloading
		j.Downloaded = u.DownloadedBytes

		if u.TotalBytes > 0 {
			if p := float64(u.DownloadedBytes) / float64(u.TotalBytes) * 100; p > j.Progress {
				j.Progress = p
			}
		}
	case extractor.PhaseFinished:
		j.Status = StatusProcessing
		j.Progress = 100.0

		if u.Filename != "" {
			j.FilePath = u.Filename
			j.Filename = filepath.Base(u.Filename)
		}
	}

	return nil
}

func (m *Manager) markRetrying(id string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	j, ok := m.jobs[id]
	if !ok || j.cancel || j.Status.Terminal() {
		return
	}

	j.Status = StatusRetrying
	j.Error = err.Error()
}

func (m *Manager) cancelRequested(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	j, ok := m.jobs[id]

	return ok && j.cancel
}

func (m *Manager) downloadedBytes(id string) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	if j, ok := m.jobs[id]; ok {
		return j.Downloaded
	}

	return 0
}

// finish records the run's outcome on the job and emits the matching event.
func (m *Manager) finish(ctx context.Context, id string, err error) Snapshot {
	m.mu.Lock()

	j, ok := m.jobs[id]
	if !ok {
		m.mu.Unlock()

		return Snapshot{}
	}

	switch {
	case err == nil:
		j.Status = StatusCompleted
		j.Progress = 100.0
		j.Error = ""
	case errors.Is(err, errCancelled):
		j.Status = StatusCancelled
		j.Error = err.Error()
	default:
		j.Status = StatusFailed
		j.Error = err.Error()
	}

	j.FinishedAt = time.Now()
	snap := j.snapshot()
	m.mu.Unlock()

	// Event listeners are optional; never let a full channel stall the run.
	switch snap.Status {
	case StatusCompleted:
		select {
		case m.OnJobFinished <- snap:
		default:
		}
	case StatusFailed:
		select {
		case m.OnJobFailed <- snap:
		default:
		}
	}

	return snap
}
