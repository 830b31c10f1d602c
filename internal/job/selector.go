package job

import (
	"fmt"
	"strings"
)

// buildFormatSelector composes the selector expression the download engine
// resolves against the available encodings. An explicit format ID wins;
// otherwise the quality constraints are folded into one expression, and
// "best" is the fallback when nothing constrains the choice.
func buildFormatSelector(req StartRequest) string {
	if req.FormatID != "" {
		return req.FormatID
	}

	var parts []string

	if req.MaxHeight > 0 {
		parts = append(parts, fmt.Sprintf("[height<=%d]", req.MaxHeight))
	}

	if req.PreferredExt != "" {
		parts = append(parts, "ext="+req.PreferredExt)
	}

	if req.Codec != "" {
		parts = append(parts, "acodec="+req.Codec)
	}

	if req.Container != "" {
		parts = append(parts, "container="+req.Container)
	}

	if len(parts) == 0 {
		return "best"
	}

	return strings.Join(parts, "+")
}
