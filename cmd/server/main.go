package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/iconidentify/streamcache/internal/api"
	"github.com/iconidentify/streamcache/internal/api/handler"
	"github.com/iconidentify/streamcache/internal/cache"
	"github.com/iconidentify/streamcache/internal/config"
	"github.com/iconidentify/streamcache/internal/fetcher"
	"github.com/iconidentify/streamcache/internal/service"
	"github.com/iconidentify/streamcache/internal/store"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	// Parse flags
	configPath := flag.String("config", "", "Path to config file")
	showVersion := flag.Bool("version", false, "Show version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("streamcache %s (built %s)\n", Version, BuildTime)
		os.Exit(0)
	}

	// Setup logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	logger.Info("starting streamcache",
		"version", Version,
		"build_time", BuildTime,
	)

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Ensure storage directories exist
	if err := os.MkdirAll(cfg.Storage.BasePath, 0755); err != nil {
		logger.Error("failed to create cache directory", "error", err)
		os.Exit(1)
	}
	if err := os.MkdirAll(cfg.Storage.ScratchPath, 0755); err != nil {
		logger.Error("failed to create scratch directory", "error", err)
		os.Exit(1)
	}

	// Initialize dependencies
	ytdlp := fetcher.NewYtdlpFetcher(cfg.Fetch, cfg.Storage.ScratchPath, logger)
	diskCache := cache.New(cfg.Storage, ytdlp, logger)

	// Optional fetch history store
	var history *store.HistoryStore
	if cfg.History.Path != "" {
		history, err = store.Open(cfg.History.Path, logger)
		if err != nil {
			logger.Error("failed to open history store", "error", err)
			os.Exit(1)
		}
		defer history.Close()
	}

	// Initialize services
	var recorder service.HistoryRecorder
	var pruner cache.Pruner
	if history != nil {
		recorder = history
		pruner = history
	}
	mediaSvc := service.NewMediaService(diskCache, recorder, logger)

	// Initialize handlers
	downloadHandler := handler.NewDownloadHandler(mediaSvc, logger)
	streamHandler := handler.NewStreamHandler(cfg.Storage.BasePath, cfg.Storage.MinFileSize, logger)
	healthHandler := handler.NewHealthHandler(diskCache)
	cleanupHandler := handler.NewCleanupHandler(diskCache, logger)
	historyHandler := handler.NewHistoryHandler(mediaSvc, logger)

	// Setup router
	router := api.NewRouter(downloadHandler, streamHandler, healthHandler, cleanupHandler, historyHandler, logger)

	// Start background eviction sweeper
	sweeper := cache.NewSweeper(cfg.Storage.SweepInterval, diskCache, pruner, cfg.History.Retention, logger)
	sweeper.Start()

	// Setup HTTP server
	srv := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server in goroutine
	go func() {
		logger.Info("starting HTTP server", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Stop accepting new requests
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	// Stop the sweeper (let an in-flight sweep finish)
	if err := sweeper.Stop(25 * time.Second); err != nil {
		logger.Error("sweeper shutdown error", "error", err)
	}

	logger.Info("shutdown complete")
}
