package ytdlp

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/italolelis/media_gateway/internal/extractor"
	"github.com/italolelis/media_gateway/internal/logctx"
	"github.com/italolelis/media_gateway/internal/media"
)

// progressPrefix tags the stdout lines our progress template emits, so they
// can't be confused with yt-dlp's own output.
const progressPrefix = "mgprog|"

// progressTemplate makes yt-dlp print machine-readable progress lines.
var progressTemplate = "download:" + progressPrefix +
	"%(progress.status)s|%(progress.downloaded_bytes)s|%(progress.total_bytes)s|%(progress.total_bytes_estimate)s|%(progress.filename)s"

// Client drives the yt-dlp binary. It implements extractor.Engine: metadata
// comes from a single-JSON dump, downloads stream progress lines back
// through the progress template.
type Client struct {
	binary string
}

// NewClient creates a yt-dlp engine using the given binary path, or "yt-dlp"
// from PATH when empty.
func NewClient(binary string) *Client {
	if binary == "" {
		binary = "yt-dlp"
	}

	return &Client{binary: binary}
}

// ExtractMetadata runs yt-dlp in dump-json mode and projects the document
// into the strict media.Info schema at this boundary.
func (c *Client) ExtractMetadata(ctx context.Context, url, cookieFile string) (*media.Info, error) {
	logger := logctx.LoggerFromContext(ctx)

	args := []string{"--dump-single-json", "--no-warnings", "--skip-download", "--no-check-certificates"}
	if cookieFile != "" {
		args = append(args, "--cookies", cookieFile)
	}

	args = append(args, url)

	cmd := exec.CommandContext(ctx, c.binary, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	logger.Debug("running extraction", "url", url)

	if err := cmd.Run(); err != nil {
		return nil, commandError("extract", err, &stderr)
	}

	var raw rawInfo
	if err := json.Unmarshal(stdout.Bytes(), &raw); err != nil {
		return nil, fmt.Errorf("failed to decode metadata document: %w", err)
	}

	return raw.toInfo(), nil
}

// Download runs yt-dlp with the given selector, forwarding progress-template
// lines to opts.OnProgress. A non-nil error from the callback kills the
// transfer and is returned as-is.
func (c *Client) Download(ctx context.Context, url string, opts extractor.DownloadOptions) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	args := []string{"--newline", "--no-warnings", "--no-playlist", "--no-check-certificates", "--progress-template", progressTemplate}

	if opts.FormatSelector != "" {
		args = append(args, "-f", opts.FormatSelector)
	}

	if opts.OutputTemplate != "" {
		args = append(args, "-o", opts.OutputTemplate)
	}

	if opts.CookieFile != "" {
		args = append(args, "--cookies", opts.CookieFile)
	}

	args = append(args, url)

	cmd := exec.CommandContext(runCtx, c.binary, args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("failed to open yt-dlp stdout: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start yt-dlp: %w", err)
	}

	var callbackErr error

	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		update, ok := parseProgressLine(scanner.Text())
		if !ok || opts.OnProgress == nil {
			continue
		}

		if err := opts.OnProgress(update); err != nil {
			callbackErr = err

			cancel() // kills the transfer

			break
		}
	}

	scanErr := scanner.Err()
	waitErr := cmd.Wait()

	if callbackErr != nil {
		return callbackErr
	}

	if waitErr != nil {
		return commandError("download", waitErr, &stderr)
	}

	if scanErr != nil {
		return fmt.Errorf("failed to read yt-dlp output: %w", scanErr)
	}

	return nil
}

// parseProgressLine decodes one progress-template line into an update.
func parseProgressLine(line string) (extractor.ProgressUpdate, bool) {
	if !strings.HasPrefix(line, progressPrefix) {
		return extractor.ProgressUpdate{}, false
	}

	parts := strings.SplitN(strings.TrimPrefix(line, progressPrefix), "|", 5)
	if len(parts) != 5 {
		return extractor.ProgressUpdate{}, false
	}

	update := extractor.ProgressUpdate{
		Phase:           parts[0],
		DownloadedBytes: parseBytes(parts[1]),
		TotalBytes:      parseBytes(parts[2]),
		Filename:        strings.TrimSpace(parts[4]),
	}

	// Fall back to the estimate when the exact total is unknown.
	if update.TotalBytes == 0 {
		update.TotalBytes = parseBytes(parts[3])
	}

	return update, true
}

// parseBytes tolerates the "NA"/"None" placeholders yt-dlp substitutes for
// unknown numeric fields.
func parseBytes(s string) int64 {
	s = strings.TrimSpace(s)
	if s == "" || s == "NA" || s == "None" {
		return 0
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}

	return int64(v)
}

// commandError keeps the last stderr line, which is where yt-dlp reports the
// actual failure, so rate-limit markers stay visible to the retry policy.
func commandError(op string, err error, stderr *bytes.Buffer) error {
	msg := strings.TrimSpace(stderr.String())
	if msg == "" {
		return fmt.Errorf("yt-dlp %s failed: %w", op, err)
	}

	lines := strings.Split(msg, "\n")
	last := strings.TrimSpace(lines[len(lines)-1])

	return fmt.Errorf("yt-dlp %s failed: %s: %w", op, last, err)
}
