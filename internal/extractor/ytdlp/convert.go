package ytdlp

import "github.com/italolelis/media_gateway/internal/media"

// rawInfo mirrors the subset of the yt-dlp JSON document this service
// consumes. Everything else in the dump is dropped here; the loosely-typed
// document never travels past this package.
type rawInfo struct {
	ID           string  `json:"id"`
	Title        string  `json:"title"`
	Duration     float64 `json:"duration"`
	Thumbnail    string  `json:"thumbnail"`
	Uploader     string  `json:"uploader"`
	ViewCount    int64   `json:"view_count"`
	WebpageURL   string  `json:"webpage_url"`
	Availability string  `json:"availability"`

	Formats           []rawFormat           `json:"formats"`
	Subtitles         map[string][]rawTrack `json:"subtitles"`
	AutomaticCaptions map[string][]rawTrack `json:"automatic_captions"`
	Entries           []rawEntry            `json:"entries"`
}

type rawFormat struct {
	FormatID       string  `json:"format_id"`
	Format         string  `json:"format"`
	Ext            string  `json:"ext"`
	Protocol       string  `json:"protocol"`
	ACodec         string  `json:"acodec"`
	VCodec         string  `json:"vcodec"`
	Height         float64 `json:"height"`
	Width          float64 `json:"width"`
	FPS            float64 `json:"fps"`
	TBR            float64 `json:"tbr"`
	ABR            float64 `json:"abr"`
	VBR            float64 `json:"vbr"`
	Filesize       int64   `json:"filesize"`
	FilesizeApprox int64   `json:"filesize_approx"`
	URL            string  `json:"url"`
}

type rawTrack struct {
	Ext  string `json:"ext"`
	URL  string `json:"url"`
	Name string `json:"name"`
}

type rawEntry struct {
	ID         string  `json:"id"`
	Title      string  `json:"title"`
	Duration   float64 `json:"duration"`
	Thumbnail  string  `json:"thumbnail"`
	WebpageURL string  `json:"webpage_url"`
}

func (ri *rawInfo) toInfo() *media.Info {
	info := &media.Info{
		ID:           ri.ID,
		Title:        ri.Title,
		Duration:     ri.Duration,
		Thumbnail:    ri.Thumbnail,
		Uploader:     ri.Uploader,
		ViewCount:    ri.ViewCount,
		WebpageURL:   ri.WebpageURL,
		Availability: ri.Availability,
	}

	info.Formats = make([]media.Format, 0, len(ri.Formats))
	for _, f := range ri.Formats {
		info.Formats = append(info.Formats, media.Format{
			ID:             f.FormatID,
			Label:          f.Format,
			Ext:            f.Ext,
			Protocol:       f.Protocol,
			AudioCodec:     f.ACodec,
			VideoCodec:     f.VCodec,
			Height:         int(f.Height),
			Width:          int(f.Width),
			FPS:            f.FPS,
			TotalBitrate:   f.TBR,
			AudioBitrate:   f.ABR,
			VideoBitrate:   f.VBR,
			Filesize:       f.Filesize,
			FilesizeApprox: f.FilesizeApprox,
			URL:            f.URL,
		})
	}

	info.Subtitles = convertTracks(ri.Subtitles)
	info.AutomaticCaptions = convertTracks(ri.AutomaticCaptions)

	if len(ri.Entries) > 0 {
		info.Entries = make([]media.Entry, 0, len(ri.Entries))
		for _, e := range ri.Entries {
			info.Entries = append(info.Entries, media.Entry{
				ID:         e.ID,
				Title:      e.Title,
				Duration:   e.Duration,
				Thumbnail:  e.Thumbnail,
				WebpageURL: e.WebpageURL,
			})
		}
	}

	return info
}

func convertTracks(raw map[string][]rawTrack) map[string][]media.SubtitleTrack {
	tracks := make(map[string][]media.SubtitleTrack, len(raw))

	for lang, list := range raw {
		converted := make([]media.SubtitleTrack, 0, len(list))
		for _, t := range list {
			converted = append(converted, media.SubtitleTrack{Ext: t.Ext, URL: t.URL, Name: t.Name})
		}

		tracks[lang] = converted
	}

	return tracks
}
