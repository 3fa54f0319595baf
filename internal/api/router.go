package api

import (
	"log/slog"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/iconidentify/streamcache/internal/api/handler"
	mw "github.com/iconidentify/streamcache/internal/api/middleware"
)

// NewRouter creates the HTTP router with all routes configured.
func NewRouter(
	downloadHandler *handler.DownloadHandler,
	streamHandler *handler.StreamHandler,
	healthHandler *handler.HealthHandler,
	cleanupHandler *handler.CleanupHandler,
	historyHandler *handler.HistoryHandler,
	logger *slog.Logger,
) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(mw.PathGuard)         // Must precede CleanPath: ".." is rejected, not resolved
	r.Use(middleware.CleanPath) // Normalize paths (e.g., //health -> /health)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(mw.Logger(logger))
	r.Use(mw.Recovery)
	r.Use(middleware.Timeout(10 * time.Minute))

	// CORS for browser media players
	r.Use(mw.CORS)

	r.Get("/health", healthHandler.Health)

	// Media operations
	r.Get("/download", downloadHandler.Download)
	r.Get("/stream/*", streamHandler.Stream)
	r.Post("/cleanup", cleanupHandler.Cleanup)

	// API v1
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/history", historyHandler.History)
	})

	return r
}
