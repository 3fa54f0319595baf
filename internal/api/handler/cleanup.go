package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/iconidentify/streamcache/internal/cache"
)

// CleanupHandler triggers an immediate cache sweep.
type CleanupHandler struct {
	cache  *cache.DiskCache
	logger *slog.Logger
}

// NewCleanupHandler creates a new cleanup handler.
func NewCleanupHandler(c *cache.DiskCache, logger *slog.Logger) *CleanupHandler {
	return &CleanupHandler{cache: c, logger: logger}
}

// Cleanup handles POST /cleanup
func (h *CleanupHandler) Cleanup(w http.ResponseWriter, r *http.Request) {
	result := h.cache.Sweep(time.Now())

	h.logger.Info("manual cleanup",
		"deleted", len(result.Deleted),
		"freed_bytes", result.FreedBytes,
	)

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":        "ok",
		"deleted_files": result.Deleted,
		"freed_bytes":   result.FreedBytes,
	})
}
