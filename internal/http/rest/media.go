package rest

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/italolelis/media_gateway/internal/cache"
	"github.com/italolelis/media_gateway/internal/job"
	"github.com/italolelis/media_gateway/internal/logctx"
	"github.com/italolelis/media_gateway/internal/media"
	"github.com/italolelis/media_gateway/internal/ratelimit"
	"github.com/italolelis/media_gateway/internal/telemetry"
)

const serviceName = "media_gateway"

const clientIDHeader = "X-Client-ID"

// Extractor is the metadata lookup path the handler depends on.
type Extractor interface {
	Extract(ctx context.Context, url, cookies string) (*media.Info, error)
}

// MediaHandler serves the metadata, format negotiation and download job API.
type MediaHandler struct {
	apiKey    string
	extractor Extractor
	manager   *job.Manager
	cache     *cache.Cache
	limiter   *ratelimit.Limiter
	telemetry *telemetry.Telemetry

	startedAt time.Time
	requests  atomic.Int64
	errors    atomic.Int64
}

// NewMediaHandler creates the API handler. An empty apiKey disables bearer
// authentication entirely.
func NewMediaHandler(
	apiKey string,
	extractor Extractor,
	manager *job.Manager,
	c *cache.Cache,
	limiter *ratelimit.Limiter,
	t *telemetry.Telemetry,
) *MediaHandler {
	return &MediaHandler{
		apiKey:    apiKey,
		extractor: extractor,
		manager:   manager,
		cache:     c,
		limiter:   limiter,
		telemetry: t,
		startedAt: time.Now(),
	}
}

func (h *MediaHandler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(h.countRequests)

	// Health stays reachable for probes even when the caller is over the
	// admission limit or unauthenticated.
	r.Get("/health", h.handleHealth)

	r.Group(func(r chi.Router) {
		r.Use(h.rateLimitMiddleware)
		r.Use(h.bearerAuthMiddleware)

		r.Get("/", h.handleRoot)
		r.Post("/cache/clear", h.handleCacheClear)

		r.Post("/info", h.handleInfo)
		r.Post("/info/raw", h.handleInfoRaw)
		r.Get("/formats", h.handleFormatsGet)
		r.Post("/formats", h.handleFormats)
		r.Post("/stream", h.handleStream)
		r.Post("/playlist", h.handlePlaylist)
		r.Post("/library/{kind}", h.handleLibrary)

		r.Post("/download", h.handleDownloadStart)
		r.Get("/download/{id}", h.handleDownloadStatus)
		r.Post("/download/{id}/cancel", h.handleDownloadCancel)
		r.Get("/download/{id}/file", h.handleDownloadFile)
	})

	return r
}

type urlRequest struct {
	URL     string `json:"url"`
	Cookies string `json:"cookies,omitempty"`
}

type streamRequest struct {
	URL           string `json:"url"`
	Mode          string `json:"mode,omitempty"`
	Cookies       string `json:"cookies,omitempty"`
	FormatID      string `json:"format_id,omitempty"`
	AudioFormatID string `json:"audio_format_id,omitempty"`
	VideoFormatID string `json:"video_format_id,omitempty"`
	MaxHeight     int    `json:"max_height,omitempty"`
	PreferredExt  string `json:"preferred_ext,omitempty"`
}

type pageRequest struct {
	URL     string `json:"url,omitempty"`
	Cookies string `json:"cookies,omitempty"`
	Limit   int    `json:"limit,omitempty"`
	Offset  int    `json:"offset,omitempty"`
}

type downloadRequest struct {
	URL          string `json:"url"`
	Cookies      string `json:"cookies,omitempty"`
	FormatID     string `json:"format_id,omitempty"`
	OutputDir    string `json:"output_dir,omitempty"`
	MaxHeight    int    `json:"max_height,omitempty"`
	PreferredExt string `json:"preferred_ext,omitempty"`
	Codec        string `json:"codec,omitempty"`
	Container    string `json:"container,omitempty"`
}

type infoResponse struct {
	ID           string  `json:"id"`
	Title        string  `json:"title"`
	Duration     float64 `json:"duration,omitempty"`
	Thumbnail    string  `json:"thumbnail,omitempty"`
	Uploader     string  `json:"uploader,omitempty"`
	ViewCount    int64   `json:"view_count,omitempty"`
	WebpageURL   string  `json:"webpage_url,omitempty"`
	Availability string  `json:"availability,omitempty"`
}

// formatSummary is the trimmed encoding descriptor exposed on the wire.
type formatSummary struct {
	FormatID     string  `json:"format_id"`
	Label        string  `json:"format,omitempty"`
	Ext          string  `json:"ext,omitempty"`
	Protocol     string  `json:"protocol,omitempty"`
	AudioCodec   string  `json:"acodec,omitempty"`
	VideoCodec   string  `json:"vcodec,omitempty"`
	Height       int     `json:"height,omitempty"`
	TotalBitrate float64 `json:"tbr,omitempty"`
	AudioBitrate float64 `json:"abr,omitempty"`
	URL          string  `json:"url,omitempty"`
}

type formatsResponse struct {
	Formats           []formatSummary                  `json:"formats"`
	Subtitles         map[string][]media.SubtitleTrack `json:"subtitles"`
	AutomaticCaptions map[string][]media.SubtitleTrack `json:"automatic_captions"`
}

type streamResponse struct {
	AudioURL          *string                          `json:"audio_url"`
	VideoURL          *string                          `json:"video_url"`
	FormatID          *string                          `json:"format_id"`
	AudioFormatID     *string                          `json:"audio_format_id"`
	Subtitles         map[string][]media.SubtitleTrack `json:"subtitles"`
	AutomaticCaptions map[string][]media.SubtitleTrack `json:"automatic_captions"`
}

type pageResponse struct {
	ID      string        `json:"id,omitempty"`
	Title   string        `json:"title,omitempty"`
	Kind    string        `json:"kind,omitempty"`
	Total   int           `json:"total"`
	Offset  int           `json:"offset"`
	Limit   int           `json:"limit"`
	Entries []media.Entry `json:"entries"`
}

func (h *MediaHandler) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name": serviceName,
		"endpoints": []string{
			"GET  /health",
			"POST /info",
			"POST /formats",
			"POST /stream",
			"POST /playlist",
			"POST /download",
			"POST /cache/clear",
		},
	})
}

func (h *MediaHandler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":             "ok",
		"cache_size":         h.cache.Size(),
		"rate_limit_clients": h.limiter.ClientCount(),
		"api_key_required":   h.apiKey != "",
		"uptime":             time.Since(h.startedAt).Seconds(),
		"requests":           h.requests.Load(),
		"errors":             h.errors.Load(),
	})
}

func (h *MediaHandler) handleCacheClear(w http.ResponseWriter, r *http.Request) {
	h.cache.Clear()
	logctx.LoggerFromContext(r.Context()).Info("cache cleared")

	writeJSON(w, http.StatusOK, map[string]string{"status": "cache_cleared"})
}

func (h *MediaHandler) handleInfo(w http.ResponseWriter, r *http.Request) {
	var req urlRequest
	if !h.decode(w, r, &req) {
		return
	}

	key := cache.Key(req.URL, req.Cookies, "")
	if cached, ok := h.cache.Get(key); ok {
		h.recordCacheLookup(r, true, "info", req.URL)
		writeJSON(w, http.StatusOK, cached)

		return
	}

	h.recordCacheLookup(r, false, "info", req.URL)

	info, err := h.extractor.Extract(r.Context(), req.URL, req.Cookies)
	if err != nil {
		h.writeExtractionError(w, r, err)

		return
	}

	resp := infoResponse{
		ID:           info.ID,
		Title:        info.Title,
		Duration:     info.Duration,
		Thumbnail:    info.Thumbnail,
		Uploader:     info.Uploader,
		ViewCount:    info.ViewCount,
		WebpageURL:   info.WebpageURL,
		Availability: info.Availability,
	}

	h.cache.Set(key, resp)
	writeJSON(w, http.StatusOK, resp)
}

// handleInfoRaw returns the full metadata projection without caching. Useful
// for clients that need fields the condensed info response drops.
func (h *MediaHandler) handleInfoRaw(w http.ResponseWriter, r *http.Request) {
	var req urlRequest
	if !h.decode(w, r, &req) {
		return
	}

	info, err := h.extractor.Extract(r.Context(), req.URL, req.Cookies)
	if err != nil {
		h.writeExtractionError(w, r, err)

		return
	}

	writeJSON(w, http.StatusOK, info)
}

func (h *MediaHandler) handleFormatsGet(w http.ResponseWriter, r *http.Request) {
	url := r.URL.Query().Get("url")
	if url == "" {
		h.writeError(w, http.StatusBadRequest, "url is required")

		return
	}

	h.serveFormats(w, r, url, r.URL.Query().Get("cookies"))
}

func (h *MediaHandler) handleFormats(w http.ResponseWriter, r *http.Request) {
	var req urlRequest
	if !h.decode(w, r, &req) {
		return
	}

	h.serveFormats(w, r, req.URL, req.Cookies)
}

func (h *MediaHandler) serveFormats(w http.ResponseWriter, r *http.Request, url, cookies string) {
	key := cache.Key(url, cookies, "formats")
	if cached, ok := h.cache.Get(key); ok {
		h.recordCacheLookup(r, true, "formats", url)
		writeJSON(w, http.StatusOK, cached)

		return
	}

	h.recordCacheLookup(r, false, "formats", url)

	info, err := h.extractor.Extract(r.Context(), url, cookies)
	if err != nil {
		h.writeExtractionError(w, r, err)

		return
	}

	resp := formatsResponse{
		Formats:           summarizeFormats(info.Formats),
		Subtitles:         emptyIfNil(info.Subtitles),
		AutomaticCaptions: emptyIfNil(info.AutomaticCaptions),
	}

	h.cache.Set(key, resp)
	writeJSON(w, http.StatusOK, resp)
}

func (h *MediaHandler) handleStream(w http.ResponseWriter, r *http.Request) {
	var req streamRequest
	if !h.decode(w, r, &req) {
		return
	}

	if req.Mode == "" {
		req.Mode = "audio"
	}

	if req.Mode != "audio" && req.Mode != "av" {
		h.writeError(w, http.StatusBadRequest, "mode must be 'audio' or 'av'")

		return
	}

	info, err := h.extractor.Extract(r.Context(), req.URL, req.Cookies)
	if err != nil {
		h.writeExtractionError(w, r, err)

		return
	}

	formats := media.Filter(info.Formats, media.FilterOptions{
		MaxHeight:    req.MaxHeight,
		PreferredExt: req.PreferredExt,
	})

	resp := streamResponse{
		Subtitles:         emptyIfNil(info.Subtitles),
		AutomaticCaptions: emptyIfNil(info.AutomaticCaptions),
	}

	if req.FormatID != "" {
		chosen, ok := media.FindByID(formats, req.FormatID)
		if !ok {
			h.writeError(w, http.StatusNotFound, "format not found")

			return
		}

		resp.AudioURL = &chosen.URL
		resp.VideoURL = &chosen.URL
		resp.FormatID = &req.FormatID

		writeJSON(w, http.StatusOK, resp)

		return
	}

	audio, audioOK := media.FindByID(formats, req.AudioFormatID)
	if !audioOK {
		audio, audioOK = media.PickBestAudio(formats)
	}

	av, avOK := media.FindByID(formats, req.VideoFormatID)
	if !avOK {
		av, avOK = media.PickBestAV(formats)
	}

	if audioOK {
		resp.AudioURL = &audio.URL
		resp.AudioFormatID = &audio.ID
	}

	if avOK {
		resp.FormatID = &av.ID

		if req.Mode == "av" {
			resp.VideoURL = &av.URL
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *MediaHandler) handlePlaylist(w http.ResponseWriter, r *http.Request) {
	var req pageRequest
	if !h.decode(w, r, &req) {
		return
	}

	info, err := h.extractor.Extract(r.Context(), req.URL, req.Cookies)
	if err != nil {
		h.writeExtractionError(w, r, err)

		return
	}

	total, offset, limit, entries := paginate(info.Entries, req.Offset, req.Limit)

	writeJSON(w, http.StatusOK, pageResponse{
		ID:      info.ID,
		Title:   info.Title,
		Total:   total,
		Offset:  offset,
		Limit:   limit,
		Entries: entries,
	})
}

func (h *MediaHandler) handleLibrary(w http.ResponseWriter, r *http.Request) {
	kind := chi.URLParam(r, "kind")

	url, err := media.LibraryURL(kind)
	if err != nil {
		if errors.Is(err, media.ErrUnknownCollection) {
			h.writeError(w, http.StatusNotFound, "unknown library kind")

			return
		}

		h.writeError(w, http.StatusInternalServerError, err.Error())

		return
	}

	var req pageRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.writeError(w, http.StatusBadRequest, "invalid request body")

			return
		}
	}

	info, err := h.extractor.Extract(r.Context(), url, req.Cookies)
	if err != nil {
		h.writeExtractionError(w, r, err)

		return
	}

	total, offset, limit, entries := paginate(info.Entries, req.Offset, req.Limit)

	writeJSON(w, http.StatusOK, pageResponse{
		Kind:    kind,
		Total:   total,
		Offset:  offset,
		Limit:   limit,
		Entries: entries,
	})
}

func (h *MediaHandler) handleDownloadStart(w http.ResponseWriter, r *http.Request) {
	var req downloadRequest
	if !h.decode(w, r, &req) {
		return
	}

	snap := h.manager.Start(r.Context(), job.StartRequest{
		URL:          req.URL,
		Cookies:      req.Cookies,
		FormatID:     req.FormatID,
		OutputDir:    req.OutputDir,
		MaxHeight:    req.MaxHeight,
		PreferredExt: req.PreferredExt,
		Codec:        req.Codec,
		Container:    req.Container,
	})

	writeJSON(w, http.StatusOK, snap)
}

func (h *MediaHandler) handleDownloadStatus(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.manager.Get(chi.URLParam(r, "id"))
	if !ok {
		h.writeError(w, http.StatusNotFound, "Job not found")

		return
	}

	writeJSON(w, http.StatusOK, snap)
}

func (h *MediaHandler) handleDownloadCancel(w http.ResponseWriter, r *http.Request) {
	if !h.manager.Cancel(chi.URLParam(r, "id")) {
		h.writeError(w, http.StatusNotFound, "Job not found")

		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "cancelling"})
}

func (h *MediaHandler) handleDownloadFile(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.manager.Get(chi.URLParam(r, "id"))
	if !ok {
		h.writeError(w, http.StatusNotFound, "Job not found")

		return
	}

	if snap.Status != job.StatusCompleted || snap.FilePath == "" {
		h.writeError(w, http.StatusConflict, "Job not completed")

		return
	}

	http.ServeFile(w, r, snap.FilePath)
}

func (h *MediaHandler) rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clientID := r.Header.Get(clientIDHeader)
		if clientID == "" {
			clientID = ratelimit.DefaultClientID
		}

		allowed := h.limiter.Allow(clientID)
		if h.telemetry != nil {
			h.telemetry.RecordAdmission(allowed)
		}

		if !allowed {
			h.writeError(w, http.StatusTooManyRequests, "Rate limit exceeded")

			return
		}

		next.ServeHTTP(w, r)
	})
}

func (h *MediaHandler) bearerAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.apiKey == "" {
			next.ServeHTTP(w, r)

			return
		}

		if r.Header.Get("Authorization") != "Bearer "+h.apiKey {
			h.writeError(w, http.StatusUnauthorized, "Unauthorized")

			return
		}

		next.ServeHTTP(w, r)
	})
}

// countRequests feeds the request and error counters surfaced by /health.
func (h *MediaHandler) countRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.requests.Add(1)

		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r)

		if recorder.status >= http.StatusInternalServerError {
			h.errors.Add(1)
		}
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}

// decode reads the JSON request body and validates the URL field when the
// target carries one. It writes the failure response itself and reports
// whether the handler should proceed.
func (h *MediaHandler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")

		return false
	}

	url := ""

	switch req := dst.(type) {
	case *urlRequest:
		url = req.URL
	case *streamRequest:
		url = req.URL
	case *pageRequest:
		url = req.URL
	case *downloadRequest:
		url = req.URL
	}

	if url == "" {
		h.writeError(w, http.StatusBadRequest, "url is required")

		return false
	}

	return true
}

func (h *MediaHandler) writeExtractionError(w http.ResponseWriter, r *http.Request, err error) {
	logctx.LoggerFromContext(r.Context()).Error("extraction failed", "err", err)
	h.writeError(w, http.StatusBadGateway, err.Error())
}

func (h *MediaHandler) writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

func (h *MediaHandler) recordCacheLookup(r *http.Request, hit bool, variant, url string) {
	if h.telemetry != nil {
		h.telemetry.RecordCacheLookup(hit)
	}

	if hit {
		logctx.LoggerFromContext(r.Context()).Info("cache hit", "variant", variant, "url", url)
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(payload); err != nil {
		// Headers are already out; nothing left to do but log.
		slog.Error("failed to encode response", "err", err)
	}
}

func summarizeFormats(formats []media.Format) []formatSummary {
	out := make([]formatSummary, 0, len(formats))

	for _, f := range formats {
		out = append(out, formatSummary{
			FormatID:     f.ID,
			Label:        f.Label,
			Ext:          f.Ext,
			Protocol:     f.Protocol,
			AudioCodec:   f.AudioCodec,
			VideoCodec:   f.VideoCodec,
			Height:       f.Height,
			TotalBitrate: f.TotalBitrate,
			AudioBitrate: f.AudioBitrate,
			URL:          f.URL,
		})
	}

	return out
}

// paginate clamps offset and limit the permissive way: a non-positive limit
// means everything, a negative offset means the start, and an offset past the
// end yields an empty page.
func paginate(entries []media.Entry, offset, limit int) (total, off, lim int, page []media.Entry) {
	total = len(entries)

	if limit <= 0 {
		limit = total
	}

	if offset < 0 {
		offset = 0
	}

	start := offset
	if start > total {
		start = total
	}

	end := start + limit
	if end > total {
		end = total
	}

	page = entries[start:end]
	if page == nil {
		page = []media.Entry{}
	}

	return total, offset, limit, page
}

func emptyIfNil(m map[string][]media.SubtitleTrack) map[string][]media.SubtitleTrack {
	if m == nil {
		return map[string][]media.SubtitleTrack{}
	}

	return m
}
