package extractor

import (
	"context"

	"github.com/italolelis/media_gateway/internal/media"
)

// Progress phases reported by the engine during a download.
const (
	PhaseDownloading = "downloading"
	PhaseFinished    = "finished"
)

// ProgressUpdate is one observation of an in-flight download.
type ProgressUpdate struct {
	// Phase is PhaseDownloading while bytes move and PhaseFinished once the
	// transfer lands on disk.
	Phase string
	// DownloadedBytes is the cumulative byte count so far.
	DownloadedBytes int64
	// TotalBytes is the exact or estimated total, 0 when unknown.
	TotalBytes int64
	// Filename is the resulting file path, set on the finished phase.
	Filename string
}

// ProgressFunc receives download progress. Returning a non-nil error aborts
// the transfer; the engine stops and surfaces that error.
type ProgressFunc func(ProgressUpdate) error

// DownloadOptions parameterize one download operation.
type DownloadOptions struct {
	// FormatSelector is the selector expression the engine resolves against
	// the available encodings, e.g. an explicit format ID or "best".
	FormatSelector string
	// OutputTemplate is the engine's output path template.
	OutputTemplate string
	// CookieFile is an optional staged credential file.
	CookieFile string
	// OnProgress is invoked as the transfer advances.
	OnProgress ProgressFunc
}

// Engine is the external media-metadata extraction collaborator. Its
// site-specific parsing is a black box to this service; implementations must
// project their loosely-typed documents into media.Info before returning.
type Engine interface {
	ExtractMetadata(ctx context.Context, url, cookieFile string) (*media.Info, error)
	Download(ctx context.Context, url string, opts DownloadOptions) error
}
