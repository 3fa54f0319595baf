package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/iconidentify/streamcache/internal/domain"
	"github.com/iconidentify/streamcache/internal/httprange"
)

// StreamHandler serves cached media files with byte-range support.
type StreamHandler struct {
	basePath    string
	minFileSize int64
	logger      *slog.Logger
}

// NewStreamHandler creates a new stream handler rooted at basePath.
func NewStreamHandler(basePath string, minFileSize int64, logger *slog.Logger) *StreamHandler {
	return &StreamHandler{
		basePath:    basePath,
		minFileSize: minFileSize,
		logger:      logger,
	}
}

// Stream handles GET /stream/*. The route is a wildcard so that a name
// containing a path separator still reaches safeFilename and gets a 400
// rather than falling through to the router's 404.
func (h *StreamHandler) Stream(w http.ResponseWriter, r *http.Request) {
	filename := chi.URLParam(r, "*")
	if err := safeFilename(filename); err != nil {
		writeError(w, http.StatusBadRequest, "invalid filename")
		return
	}

	path := filepath.Join(h.basePath, filename)
	if err := httprange.ServeFile(w, r, path, h.minFileSize); err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			writeError(w, http.StatusNotFound, "file not found")
		case errors.Is(err, domain.ErrCorruptFile):
			writeError(w, http.StatusInternalServerError, "file is corrupt")
		case errors.Is(err, httprange.ErrAborted):
			// Headers are already out; nothing useful to send.
			h.logger.Debug("stream aborted", "filename", filename, "error", err)
		default:
			h.logger.Error("stream failed", "filename", filename, "error", err)
			writeError(w, http.StatusInternalServerError, "failed to stream file")
		}
	}
}

// safeFilename rejects names that could escape the cache directory.
func safeFilename(name string) error {
	if name == "" {
		return domain.ErrUnsafeFilename
	}
	if strings.Contains(name, "..") || strings.ContainsAny(name, `/\`) {
		return domain.ErrUnsafeFilename
	}
	return nil
}
