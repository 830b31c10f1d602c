package ytdlp

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/italolelis/media_gateway/internal/extractor"
	"github.com/stretchr/testify/require"
)

// stubBinary writes an executable shell script standing in for yt-dlp.
func stubBinary(t *testing.T, script string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "fake-ytdlp")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+script), 0755))

	return path
}

func TestParseProgressLine(t *testing.T) {
	tests := []struct {
		name   string
		line   string
		want   extractor.ProgressUpdate
		wantOK bool
	}{
		{
			name: "downloading with exact total",
			line: "mgprog|downloading|1048576|4194304|NA|",
			want: extractor.ProgressUpdate{
				Phase:           extractor.PhaseDownloading,
				DownloadedBytes: 1048576,
				TotalBytes:      4194304,
			},
			wantOK: true,
		},
		{
			name: "downloading falls back to estimate",
			line: "mgprog|downloading|512|NA|2048.7|",
			want: extractor.ProgressUpdate{
				Phase:           extractor.PhaseDownloading,
				DownloadedBytes: 512,
				TotalBytes:      2048,
			},
			wantOK: true,
		},
		{
			name: "finished with filename",
			line: "mgprog|finished|4194304|4194304|NA|downloads/a video.mp4",
			want: extractor.ProgressUpdate{
				Phase:           extractor.PhaseFinished,
				DownloadedBytes: 4194304,
				TotalBytes:      4194304,
				Filename:        "downloads/a video.mp4",
			},
			wantOK: true,
		},
		{
			name: "unknown totals become zero",
			line: "mgprog|downloading|100|NA|None|",
			want: extractor.ProgressUpdate{
				Phase:           extractor.PhaseDownloading,
				DownloadedBytes: 100,
			},
			wantOK: true,
		},
		{
			name: "plain yt-dlp output is ignored",
			line: "[download] Destination: downloads/a video.mp4",
		},
		{
			name: "truncated progress line is ignored",
			line: "mgprog|downloading|100",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := parseProgressLine(tt.line)
			require.Equal(t, tt.wantOK, ok)

			if ok {
				require.Equal(t, tt.want, got)
			}
		})
	}
}

func TestRawInfoProjection(t *testing.T) {
	doc := `{
		"id": "abc123",
		"title": "a video",
		"duration": 212.5,
		"thumbnail": "https://i.example.com/abc123.jpg",
		"uploader": "someone",
		"view_count": 42000,
		"webpage_url": "https://example.com/watch?v=abc123",
		"availability": "public",
		"formats": [
			{"format_id": "140", "ext": "m4a", "protocol": "https", "acodec": "mp4a.40.2", "vcodec": "none", "abr": 129.5, "url": "https://cdn.example.com/140"},
			{"format_id": "22", "ext": "mp4", "protocol": "https", "acodec": "mp4a.40.2", "vcodec": "avc1", "height": 720, "tbr": 1200, "filesize": 1000},
			{"format_id": "hls", "ext": "mp4", "protocol": "m3u8_native", "acodec": "mp4a.40.2", "vcodec": "avc1", "height": null, "tbr": null}
		],
		"subtitles": {"en": [{"ext": "vtt", "url": "https://cdn.example.com/en.vtt"}]},
		"automatic_captions": {},
		"extractor": "youtube",
		"age_limit": 0
	}`

	var raw rawInfo
	require.NoError(t, json.Unmarshal([]byte(doc), &raw))

	info := raw.toInfo()

	require.Equal(t, "abc123", info.ID)
	require.Equal(t, "a video", info.Title)
	require.Equal(t, 212.5, info.Duration)
	require.Equal(t, int64(42000), info.ViewCount)
	require.Equal(t, "public", info.Availability)
	require.Len(t, info.Formats, 3)

	audio := info.Formats[0]
	require.Equal(t, "140", audio.ID)
	require.True(t, audio.IsAudioOnly())
	require.Equal(t, 129.5, audio.AudioBitrate)

	muxed := info.Formats[1]
	require.True(t, muxed.IsMuxed())
	require.Equal(t, 720, muxed.Height)
	require.Equal(t, int64(1000), muxed.Filesize)

	// null numerics project to zero values.
	hls := info.Formats[2]
	require.Equal(t, 0, hls.Height)
	require.True(t, hls.IsManifest())

	require.Len(t, info.Subtitles["en"], 1)
	require.Equal(t, "vtt", info.Subtitles["en"][0].Ext)
	require.Empty(t, info.Entries)
}

func TestRawInfoProjectsPlaylistEntries(t *testing.T) {
	doc := `{
		"id": "PL123",
		"title": "a playlist",
		"entries": [
			{"id": "v1", "title": "first", "duration": 10, "webpage_url": "https://example.com/watch?v=v1"},
			{"id": "v2", "title": "second"}
		]
	}`

	var raw rawInfo
	require.NoError(t, json.Unmarshal([]byte(doc), &raw))

	info := raw.toInfo()
	require.Len(t, info.Entries, 2)
	require.Equal(t, "v1", info.Entries[0].ID)
	require.Equal(t, float64(10), info.Entries[0].Duration)
	require.Equal(t, "second", info.Entries[1].Title)
}

func TestDownloadForwardsProgressLines(t *testing.T) {
	binary := stubBinary(t,
		"printf 'mgprog|downloading|50|100|NA|\\n'\n"+
			"printf 'mgprog|finished|100|100|NA|downloads/out.mp4\\n'\n")

	var updates []extractor.ProgressUpdate

	c := NewClient(binary)
	err := c.Download(context.Background(), "https://example.com/watch?v=abc", extractor.DownloadOptions{
		OnProgress: func(u extractor.ProgressUpdate) error {
			updates = append(updates, u)

			return nil
		},
	})
	require.NoError(t, err)

	require.Len(t, updates, 2)
	require.Equal(t, extractor.PhaseDownloading, updates[0].Phase)
	require.Equal(t, int64(50), updates[0].DownloadedBytes)
	require.Equal(t, extractor.PhaseFinished, updates[1].Phase)
	require.Equal(t, "downloads/out.mp4", updates[1].Filename)
}

func TestDownloadSurfacesOutputReadError(t *testing.T) {
	// One line just past the scanner's token ceiling, with a clean exit, so
	// the read failure is the only error in play.
	binary := stubBinary(t, "head -c 1048577 /dev/zero | tr '\\0' 'a'\nexit 0\n")

	c := NewClient(binary)
	err := c.Download(context.Background(), "https://example.com/watch?v=abc", extractor.DownloadOptions{})
	require.ErrorIs(t, err, bufio.ErrTooLong)
}

func TestNewClientDefaultsBinary(t *testing.T) {
	require.Equal(t, "yt-dlp", NewClient("").binary)
	require.Equal(t, "/opt/yt-dlp", NewClient("/opt/yt-dlp").binary)
}
