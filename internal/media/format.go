package media

import "strings"

// CodecNone is the sentinel the extractor reports for a missing track.
const CodecNone = "none"

// Format is one concrete encoding variant of a media resource. It is
// produced by the extractor and never mutated afterwards; the catalog
// functions in this package only filter, sort and copy.
type Format struct {
	ID             string  `json:"format_id"`
	Label          string  `json:"format,omitempty"`
	Ext            string  `json:"ext,omitempty"`
	Protocol       string  `json:"protocol,omitempty"`
	AudioCodec     string  `json:"acodec,omitempty"`
	VideoCodec     string  `json:"vcodec,omitempty"`
	Height         int     `json:"height,omitempty"`
	Width          int     `json:"width,omitempty"`
	FPS            float64 `json:"fps,omitempty"`
	TotalBitrate   float64 `json:"tbr,omitempty"`
	AudioBitrate   float64 `json:"abr,omitempty"`
	VideoBitrate   float64 `json:"vbr,omitempty"`
	Filesize       int64   `json:"filesize,omitempty"`
	FilesizeApprox int64   `json:"filesize_approx,omitempty"`
	URL            string  `json:"url,omitempty"`
}

func (f Format) hasAudio() bool {
	return f.AudioCodec != "" && f.AudioCodec != CodecNone
}

func (f Format) hasVideo() bool {
	return f.VideoCodec != "" && f.VideoCodec != CodecNone
}

// IsAudioOnly reports whether the format carries an audio track and no video track.
func (f Format) IsAudioOnly() bool {
	return f.hasAudio() && !f.hasVideo()
}

// IsVideoOnly reports whether the format carries a video track and no audio track.
func (f Format) IsVideoOnly() bool {
	return f.hasVideo() && !f.hasAudio()
}

// IsMuxed reports whether the format carries both tracks in one stream.
func (f Format) IsMuxed() bool {
	return f.hasAudio() && f.hasVideo()
}

// HasMedia reports whether the format carries at least one real track.
// Thumbnails and storyboards show up in format lists without either codec.
func (f Format) HasMedia() bool {
	return f.hasAudio() || f.hasVideo()
}

// IsManifest reports whether the format is delivered as a segmented
// streaming manifest (HLS style) rather than a direct file. The markers can
// appear in the protocol tag, the extension or the playable URL.
func (f Format) IsManifest() bool {
	protocol := strings.ToLower(f.Protocol)
	ext := strings.ToLower(f.Ext)
	url := strings.ToLower(f.URL)

	return strings.Contains(protocol, "m3u8") ||
		strings.Contains(protocol, "hls") ||
		ext == "m3u8" ||
		strings.Contains(url, "m3u8")
}
