package media

import "strings"

// FilterOptions constrains a format list. The zero value keeps everything.
type FilterOptions struct {
	// MaxHeight drops formats with a known height above the ceiling.
	// Formats without a height pass through.
	MaxHeight int
	// PreferredExt keeps only formats whose extension matches, case-insensitively.
	PreferredExt string
	// SingleTrackOnly additionally drops muxed formats.
	SingleTrackOnly bool
}

// Filter returns the formats satisfying every given constraint.
func Filter(formats []Format, opts FilterOptions) []Format {
	out := make([]Format, 0, len(formats))

	for _, f := range formats {
		if opts.MaxHeight > 0 && f.Height > opts.MaxHeight {
			continue
		}

		if opts.PreferredExt != "" && !strings.EqualFold(f.Ext, opts.PreferredExt) {
			continue
		}

		if opts.SingleTrackOnly && f.IsMuxed() {
			continue
		}

		out = append(out, f)
	}

	return out
}

// PickBestAudio selects the best audio-only format. Direct-file candidates
// are preferred over manifest-delivery ones; manifest streams are a fallback
// only when nothing else qualifies. Within the chosen set the maximum by
// (audio bitrate, total bitrate) wins, missing bitrates counting as 0.
func PickBestAudio(formats []Format) (Format, bool) {
	audio := make([]Format, 0, len(formats))

	for _, f := range formats {
		if f.IsAudioOnly() {
			audio = append(audio, f)
		}
	}

	if len(audio) == 0 {
		return Format{}, false
	}

	candidates := preferDirect(audio)

	best := candidates[0]
	for _, f := range candidates[1:] {
		if f.AudioBitrate > best.AudioBitrate ||
			(f.AudioBitrate == best.AudioBitrate && f.TotalBitrate > best.TotalBitrate) {
			best = f
		}
	}

	return best, true
}

// PickBestAV selects the best muxed format, with the same direct-file
// preference as PickBestAudio, ranked by (height, total bitrate).
func PickBestAV(formats []Format) (Format, bool) {
	muxed := make([]Format, 0, len(formats))

	for _, f := range formats {
		if f.IsMuxed() {
			muxed = append(muxed, f)
		}
	}

	if len(muxed) == 0 {
		return Format{}, false
	}

	candidates := preferDirect(muxed)

	best := candidates[0]
	for _, f := range candidates[1:] {
		if f.Height > best.Height ||
			(f.Height == best.Height && f.TotalBitrate > best.TotalBitrate) {
			best = f
		}
	}

	return best, true
}

// FindByID looks up a format by its identifier. An empty identifier or an
// empty list yields not-found rather than an error.
func FindByID(formats []Format, id string) (Format, bool) {
	if id == "" {
		return Format{}, false
	}

	for _, f := range formats {
		if f.ID == id {
			return f, true
		}
	}

	return Format{}, false
}

// preferDirect narrows to non-manifest formats when any exist.
func preferDirect(formats []Format) []Format {
	direct := make([]Format, 0, len(formats))

	for _, f := range formats {
		if !f.IsManifest() {
			direct = append(direct, f)
		}
	}

	if len(direct) == 0 {
		return formats
	}

	return direct
}
