package media

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClassification(t *testing.T) {
	tests := []struct {
		name      string
		format    Format
		audioOnly bool
		videoOnly bool
		muxed     bool
		hasMedia  bool
	}{
		{
			name:      "audio only",
			format:    Format{AudioCodec: "opus", VideoCodec: CodecNone},
			audioOnly: true,
			hasMedia:  true,
		},
		{
			name:      "video only",
			format:    Format{AudioCodec: CodecNone, VideoCodec: "vp9"},
			videoOnly: true,
			hasMedia:  true,
		},
		{
			name:     "muxed",
			format:   Format{AudioCodec: "mp4a.40.2", VideoCodec: "avc1"},
			muxed:    true,
			hasMedia: true,
		},
		{
			name:   "no tracks at all",
			format: Format{AudioCodec: CodecNone, VideoCodec: CodecNone},
		},
		{
			name:   "storyboard with empty codecs",
			format: Format{Ext: "mhtml"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.audioOnly, tt.format.IsAudioOnly())
			require.Equal(t, tt.videoOnly, tt.format.IsVideoOnly())
			require.Equal(t, tt.muxed, tt.format.IsMuxed())
			require.Equal(t, tt.hasMedia, tt.format.HasMedia())
		})
	}
}

func TestIsManifest(t *testing.T) {
	tests := []struct {
		name     string
		format   Format
		manifest bool
	}{
		{name: "m3u8 protocol", format: Format{Protocol: "m3u8_native"}, manifest: true},
		{name: "hls protocol", format: Format{Protocol: "HLS"}, manifest: true},
		{name: "m3u8 extension", format: Format{Ext: "M3U8"}, manifest: true},
		{name: "m3u8 in url", format: Format{URL: "https://cdn.example.com/master.M3U8?sig=abc"}, manifest: true},
		{name: "direct https file", format: Format{Protocol: "https", Ext: "mp4", URL: "https://cdn.example.com/v.mp4"}},
		{name: "empty format", format: Format{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.manifest, tt.format.IsManifest())
		})
	}
}

func TestFilter(t *testing.T) {
	formats := []Format{
		{ID: "144", Height: 144, Ext: "mp4", AudioCodec: CodecNone, VideoCodec: "avc1"},
		{ID: "480", Height: 480, Ext: "webm", AudioCodec: CodecNone, VideoCodec: "vp9"},
		{ID: "720", Height: 720, Ext: "mp4", AudioCodec: "mp4a", VideoCodec: "avc1"},
		{ID: "audio", Ext: "m4a", AudioCodec: "mp4a", VideoCodec: CodecNone},
	}

	t.Run("max height keeps unknown heights and everything at or below", func(t *testing.T) {
		got := Filter(formats, FilterOptions{MaxHeight: 480})

		ids := make([]string, 0, len(got))
		for _, f := range got {
			ids = append(ids, f.ID)
		}

		require.Equal(t, []string{"144", "480", "audio"}, ids)
	})

	t.Run("preferred extension is case-insensitive", func(t *testing.T) {
		got := Filter(formats, FilterOptions{PreferredExt: "MP4"})
		require.Len(t, got, 2)
		require.Equal(t, "144", got[0].ID)
		require.Equal(t, "720", got[1].ID)
	})

	t.Run("single track only drops muxed", func(t *testing.T) {
		got := Filter(formats, FilterOptions{SingleTrackOnly: true})
		require.Len(t, got, 3)

		for _, f := range got {
			require.False(t, f.IsMuxed())
		}
	})

	t.Run("zero options keep everything", func(t *testing.T) {
		require.Equal(t, formats, Filter(formats, FilterOptions{}))
	})
}

func TestPickBestAudio(t *testing.T) {
	t.Run("direct file beats higher-bitrate manifest", func(t *testing.T) {
		formats := []Format{
			{ID: "hls", AudioCodec: "mp4a", VideoCodec: CodecNone, Protocol: "m3u8_native", AudioBitrate: 500},
			{ID: "direct", AudioCodec: "opus", VideoCodec: CodecNone, Protocol: "https", AudioBitrate: 200},
		}

		best, ok := PickBestAudio(formats)
		require.True(t, ok)
		require.Equal(t, "direct", best.ID)
	})

	t.Run("manifest-only set falls back to highest bitrate manifest", func(t *testing.T) {
		formats := []Format{
			{ID: "hls-low", AudioCodec: "mp4a", VideoCodec: CodecNone, Protocol: "m3u8", AudioBitrate: 96},
			{ID: "hls-high", AudioCodec: "mp4a", VideoCodec: CodecNone, Protocol: "m3u8", AudioBitrate: 256},
		}

		best, ok := PickBestAudio(formats)
		require.True(t, ok)
		require.Equal(t, "hls-high", best.ID)
	})

	t.Run("total bitrate breaks ties, missing values count as zero", func(t *testing.T) {
		formats := []Format{
			{ID: "a", AudioCodec: "opus", VideoCodec: CodecNone, AudioBitrate: 128},
			{ID: "b", AudioCodec: "opus", VideoCodec: CodecNone, AudioBitrate: 128, TotalBitrate: 130},
			{ID: "c", AudioCodec: "opus", VideoCodec: CodecNone},
		}

		best, ok := PickBestAudio(formats)
		require.True(t, ok)
		require.Equal(t, "b", best.ID)
	})

	t.Run("no audio candidates", func(t *testing.T) {
		formats := []Format{
			{ID: "v", AudioCodec: CodecNone, VideoCodec: "vp9"},
		}

		_, ok := PickBestAudio(formats)
		require.False(t, ok)
	})
}

func TestPickBestAV(t *testing.T) {
	t.Run("ranked by height then bitrate among direct files", func(t *testing.T) {
		formats := []Format{
			{ID: "360", AudioCodec: "mp4a", VideoCodec: "avc1", Height: 360, TotalBitrate: 700},
			{ID: "720-low", AudioCodec: "mp4a", VideoCodec: "avc1", Height: 720, TotalBitrate: 1500},
			{ID: "720-high", AudioCodec: "mp4a", VideoCodec: "avc1", Height: 720, TotalBitrate: 2500},
			{ID: "1080-hls", AudioCodec: "mp4a", VideoCodec: "avc1", Height: 1080, Protocol: "m3u8"},
			{ID: "audio", AudioCodec: "opus", VideoCodec: CodecNone, AudioBitrate: 160},
		}

		best, ok := PickBestAV(formats)
		require.True(t, ok)
		require.Equal(t, "720-high", best.ID)
	})

	t.Run("no muxed candidates", func(t *testing.T) {
		formats := []Format{
			{ID: "a", AudioCodec: "opus", VideoCodec: CodecNone},
			{ID: "v", AudioCodec: CodecNone, VideoCodec: "vp9"},
		}

		_, ok := PickBestAV(formats)
		require.False(t, ok)
	})
}

func TestFindByID(t *testing.T) {
	formats := []Format{{ID: "22"}, {ID: "140"}}

	f, ok := FindByID(formats, "140")
	require.True(t, ok)
	require.Equal(t, "140", f.ID)

	_, ok = FindByID(formats, "999")
	require.False(t, ok)

	_, ok = FindByID(formats, "")
	require.False(t, ok)

	_, ok = FindByID(nil, "22")
	require.False(t, ok)
}

func TestLibraryURL(t *testing.T) {
	for kind, want := range map[string]string{
		"liked":      "https://www.youtube.com/playlist?list=LL",
		"watchlater": "https://www.youtube.com/playlist?list=WL",
		"playlists":  "https://www.youtube.com/feed/playlists",
	} {
		got, err := LibraryURL(kind)
		require.NoError(t, err)
		require.Equal(t, want, got)
	}

	_, err := LibraryURL("history")
	require.True(t, errors.Is(err, ErrUnknownCollection))
}
