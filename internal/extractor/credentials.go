package extractor

import (
	"context"
	"fmt"
	"os"

	"github.com/italolelis/media_gateway/internal/logctx"
)

// StageCookies writes cookie material to a transient credential file and
// returns its path with a discard func. The discard is best-effort: a failed
// removal is logged, never raised, so secrets still don't outlive the call
// on the happy path. Empty cookie material stages nothing.
func StageCookies(ctx context.Context, cookies string) (string, func(), error) {
	if cookies == "" {
		return "", func() {}, nil
	}

	f, err := os.CreateTemp("", "cookies-*.txt")
	if err != nil {
		return "", nil, fmt.Errorf("failed to stage cookies: %w", err)
	}

	path := f.Name()

	if _, err := f.WriteString(cookies); err != nil {
		f.Close()
		os.Remove(path)

		return "", nil, fmt.Errorf("failed to write staged cookies: %w", err)
	}

	if err := f.Close(); err != nil {
		os.Remove(path)

		return "", nil, fmt.Errorf("failed to close staged cookies: %w", err)
	}

	discard := func() {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			logctx.LoggerFromContext(ctx).Warn("failed to discard staged cookies", "path", path, "err", err)
		}
	}

	return path, discard, nil
}
