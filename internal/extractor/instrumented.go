package extractor

import (
	"context"

	"github.com/italolelis/media_gateway/internal/media"
	"github.com/italolelis/media_gateway/internal/telemetry"
)

// Instrumented wraps an Engine with telemetry.
type Instrumented struct {
	engine    Engine
	telemetry *telemetry.Telemetry
}

// NewInstrumented creates a new instrumented engine.
func NewInstrumented(engine Engine, tel *telemetry.Telemetry) *Instrumented {
	return &Instrumented{engine: engine, telemetry: tel}
}

// ExtractMetadata extracts metadata with telemetry.
func (e *Instrumented) ExtractMetadata(ctx context.Context, url, cookieFile string) (*media.Info, error) {
	var result *media.Info

	var err error

	instrumentedErr := e.telemetry.InstrumentEngineOperation(ctx, "extract_metadata", func(ctx context.Context) error {
		result, err = e.engine.ExtractMetadata(ctx, url, cookieFile)

		return err
	})

	if instrumentedErr != nil {
		return nil, instrumentedErr
	}

	return result, nil
}

// Download runs a download with telemetry.
func (e *Instrumented) Download(ctx context.Context, url string, opts DownloadOptions) error {
	return e.telemetry.InstrumentEngineOperation(ctx, "download", func(ctx context.Context) error {
		return e.engine.Download(ctx, url, opts)
	})
}
