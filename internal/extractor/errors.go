package extractor

import (
	"fmt"
	"strings"
)

// ExtractionError is the terminal failure surfaced once an extraction call
// has exhausted its retry budget, or failed in a way not worth retrying.
type ExtractionError struct {
	URL     string // The resource that was being extracted
	Message string // Upstream failure text, as reported by the engine
	Err     error  // Underlying error, if any
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extraction failed for %s: %s", e.URL, e.Message)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// rateLimitMarkers are the substrings that identify an upstream rate-limit
// rejection. Substring matching on error text is the only signal the engine
// exposes; the exact markers are policy, not contract.
var rateLimitMarkers = []string{"429", "too many requests"}

// IsRateLimited reports whether err looks like a transient upstream
// rate-limit rejection. Anything else is treated as terminal.
func IsRateLimited(err error) bool {
	if err == nil {
		return false
	}

	msg := strings.ToLower(err.Error())

	for _, marker := range rateLimitMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}

	return false
}
