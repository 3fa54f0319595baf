package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/iconidentify/streamcache/internal/domain"
	"github.com/iconidentify/streamcache/internal/service"
)

// DownloadHandler handles media download requests.
type DownloadHandler struct {
	mediaSvc *service.MediaService
	logger   *slog.Logger
}

// NewDownloadHandler creates a new download handler.
func NewDownloadHandler(mediaSvc *service.MediaService, logger *slog.Logger) *DownloadHandler {
	return &DownloadHandler{
		mediaSvc: mediaSvc,
		logger:   logger,
	}
}

// DownloadResponse is the verbose JSON response shape.
type DownloadResponse struct {
	Status    string `json:"status"`
	StreamURL string `json:"stream_url"`
	VideoID   string `json:"video_id"`
	Type      string `json:"type"`
	CacheHit  bool   `json:"cache_hit"`
	SizeBytes int64  `json:"size_bytes"`
}

// TerseResponse is the minimal shape preferred by script clients.
type TerseResponse struct {
	Link string `json:"link"`
}

// Download handles GET /download?url=...&type=audio|video
func (h *DownloadHandler) Download(w http.ResponseWriter, r *http.Request) {
	rawURL := r.URL.Query().Get("url")
	if rawURL == "" {
		writeError(w, http.StatusBadRequest, "missing url parameter")
		return
	}

	kind, err := domain.ParseKind(r.URL.Query().Get("type"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "type must be audio or video")
		return
	}

	result, err := h.mediaSvc.Download(r.Context(), rawURL, kind)
	if err != nil {
		h.writeDownloadError(w, err)
		return
	}

	streamURL := streamBaseURL(r) + "/stream/" + result.Filename

	if wantsTerse(r) {
		writeJSON(w, http.StatusOK, TerseResponse{Link: streamURL})
		return
	}

	writeJSON(w, http.StatusOK, DownloadResponse{
		Status:    "success",
		StreamURL: streamURL,
		VideoID:   result.Identifier,
		Type:      result.Kind.String(),
		CacheHit:  result.CacheHit,
		SizeBytes: result.SizeBytes,
	})
}

func (h *DownloadHandler) writeDownloadError(w http.ResponseWriter, err error) {
	var toolErr *domain.ToolError
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, "invalid url parameter")
	case errors.As(err, &toolErr):
		writeErrorDetail(w, http.StatusInternalServerError, "fetch failed", toolErr.Stderr)
	case errors.Is(err, domain.ErrFetchTimeout):
		writeErrorDetail(w, http.StatusInternalServerError, "fetch failed", "timed out")
	case errors.Is(err, domain.ErrOutputMissing):
		writeErrorDetail(w, http.StatusInternalServerError, "fetch failed", "no output produced")
	case errors.Is(err, domain.ErrCorruptFile):
		writeErrorDetail(w, http.StatusInternalServerError, "fetch failed", "downloaded file is corrupt")
	default:
		h.logger.Error("download failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to download media")
	}
}

// wantsTerse reports whether the client prefers the minimal {link}
// response shape. Script clients get the terse form, everything else the
// verbose one.
func wantsTerse(r *http.Request) bool {
	ua := r.Header.Get("User-Agent")
	if strings.HasPrefix(ua, "curl/") || strings.HasPrefix(ua, "Wget/") {
		return true
	}
	return r.Header.Get("Accept") == "text/plain"
}

// streamBaseURL reconstructs the externally visible base URL from the
// request, honoring a forwarding proxy's protocol header.
func streamBaseURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}
	return scheme + "://" + r.Host
}
