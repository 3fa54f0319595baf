package handler

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/iconidentify/streamcache/internal/domain"
	"github.com/iconidentify/streamcache/internal/service"
)

// HistoryHandler exposes recent fetch records.
type HistoryHandler struct {
	mediaSvc *service.MediaService
	logger   *slog.Logger
}

// NewHistoryHandler creates a new history handler.
func NewHistoryHandler(mediaSvc *service.MediaService, logger *slog.Logger) *HistoryHandler {
	return &HistoryHandler{mediaSvc: mediaSvc, logger: logger}
}

// FetchRecordResponse is the JSON shape of one history entry.
type FetchRecordResponse struct {
	ID         string `json:"id"`
	Identifier string `json:"identifier"`
	Type       string `json:"type"`
	Status     string `json:"status"`
	CacheHit   bool   `json:"cache_hit"`
	Error      string `json:"error,omitempty"`
	DurationMS int64  `json:"duration_ms"`
	CreatedAt  string `json:"created_at"`
}

// History handles GET /api/v1/history?limit=N
func (h *HistoryHandler) History(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}
	if limit > 200 {
		limit = 200
	}

	records, err := h.mediaSvc.History(r.Context(), limit)
	if err != nil {
		h.logger.Error("list fetch history failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list history")
		return
	}

	resp := make([]FetchRecordResponse, 0, len(records))
	for _, rec := range records {
		resp = append(resp, toRecordResponse(rec))
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"records": resp,
		"count":   len(resp),
	})
}

func toRecordResponse(rec domain.FetchRecord) FetchRecordResponse {
	return FetchRecordResponse{
		ID:         rec.ID,
		Identifier: rec.Identifier,
		Type:       rec.Kind.String(),
		Status:     string(rec.Status),
		CacheHit:   rec.CacheHit,
		Error:      rec.Error,
		DurationMS: rec.DurationMS,
		CreatedAt:  rec.CreatedAt.UTC().Format(time.RFC3339),
	}
}
