package handler

import (
	"net/http"
	"time"

	"github.com/iconidentify/streamcache/internal/cache"
)

var startTime = time.Now()

// HealthHandler reports service liveness and cache occupancy.
type HealthHandler struct {
	cache *cache.DiskCache
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(c *cache.DiskCache) *HealthHandler {
	return &HealthHandler{cache: c}
}

// Health handles GET /health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	files, totalBytes := h.cache.Stats()

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":         "healthy",
		"timestamp":      time.Now().UTC().Format(time.RFC3339),
		"uptime_seconds": int64(time.Since(startTime).Seconds()),
		"cache": map[string]interface{}{
			"files":       files,
			"total_bytes": totalBytes,
		},
	})
}
