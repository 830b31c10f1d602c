package media

// Info is the strict internal projection of the metadata document returned
// by the extraction engine. It is produced fresh per extraction call and the
// loosely-typed upstream document never travels past the engine boundary.
type Info struct {
	ID           string  `json:"id"`
	Title        string  `json:"title"`
	Duration     float64 `json:"duration,omitempty"`
	Thumbnail    string  `json:"thumbnail,omitempty"`
	Uploader     string  `json:"uploader,omitempty"`
	ViewCount    int64   `json:"view_count,omitempty"`
	WebpageURL   string  `json:"webpage_url,omitempty"`
	Availability string  `json:"availability,omitempty"`

	Formats           []Format                   `json:"formats,omitempty"`
	Subtitles         map[string][]SubtitleTrack `json:"subtitles,omitempty"`
	AutomaticCaptions map[string][]SubtitleTrack `json:"automatic_captions,omitempty"`

	// Entries is populated for playlist and collection URLs.
	Entries []Entry `json:"entries,omitempty"`
}

// SubtitleTrack is one subtitle or automatic-caption rendition.
type SubtitleTrack struct {
	Ext  string `json:"ext,omitempty"`
	URL  string `json:"url,omitempty"`
	Name string `json:"name,omitempty"`
}

// Entry is the summary of one nested item of a playlist or collection.
type Entry struct {
	ID         string  `json:"id"`
	Title      string  `json:"title"`
	Duration   float64 `json:"duration,omitempty"`
	Thumbnail  string  `json:"thumbnail,omitempty"`
	WebpageURL string  `json:"webpage_url,omitempty"`
}
