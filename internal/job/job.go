package job

import "time"

// Status is the lifecycle state of a download job.
type Status string

const (
	StatusQueued      Status = "queued"
	StatusDownloading Status = "downloading"
	StatusProcessing  Status = "processing"
	StatusRetrying    Status = "retrying"
	StatusCompleted   Status = "completed"
	StatusFailed      Status = "failed"
	StatusCancelling  Status = "cancelling"
	StatusCancelled   Status = "cancelled"
)

// Terminal reports whether a job in this status will never change again.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}

	return false
}

// Job is the mutable record of one download. It lives in the Manager's table
// for the lifetime of the process; every read and write goes through the
// Manager's lock, callers only ever see snapshots.
type Job struct {
	ID         string
	Status     Status
	Progress   float64
	Downloaded int64
	Filename   string
	FilePath   string
	Error      string
	CreatedAt  time.Time
	FinishedAt time.Time

	cancel bool
}

// Snapshot is a point-in-time copy of a job, safe to hand to callers.
type Snapshot struct {
	ID       string  `json:"job_id"`
	Status   Status  `json:"status"`
	Progress float64 `json:"progress"`
	Filename string  `json:"filename,omitempty"`
	Error    string  `json:"error,omitempty"`

	FilePath   string    `json:"-"`
	FinishedAt time.Time `json:"-"`
}

func (j *Job) snapshot() Snapshot {
	return Snapshot{
		ID:         j.ID,
		Status:     j.Status,
		Progress:   j.Progress,
		Filename:   j.Filename,
		Error:      j.Error,
		FilePath:   j.FilePath,
		FinishedAt: j.FinishedAt,
	}
}
