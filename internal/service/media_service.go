package service

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/iconidentify/streamcache/internal/cache"
	"github.com/iconidentify/streamcache/internal/domain"
	"github.com/iconidentify/streamcache/internal/resolver"
)

// HistoryRecorder persists fetch outcomes. Implementations must tolerate
// concurrent calls.
type HistoryRecorder interface {
	Record(ctx context.Context, rec domain.FetchRecord) error
	List(ctx context.Context, limit int) ([]domain.FetchRecord, error)
}

// MediaService orchestrates the download workflow: normalize the
// identifier, resolve against the cache, record the outcome.
type MediaService struct {
	cache   *cache.DiskCache
	history HistoryRecorder // may be nil
	logger  *slog.Logger
}

// NewMediaService creates a media service. history may be nil to disable
// fetch bookkeeping.
func NewMediaService(c *cache.DiskCache, history HistoryRecorder, logger *slog.Logger) *MediaService {
	return &MediaService{
		cache:   c,
		history: history,
		logger:  logger,
	}
}

// MediaResult describes one resolved media file. The presentation layer
// maps it onto whichever response shape the client prefers.
type MediaResult struct {
	Identifier string
	Kind       domain.MediaKind
	Filename   string
	FilePath   string
	SizeBytes  int64
	CacheHit   bool
}

// Download resolves rawInput to a cached media file, fetching it when
// absent. The fetch outcome is recorded in the history store best-effort:
// a store failure never fails the request.
func (s *MediaService) Download(ctx context.Context, rawInput string, kind domain.MediaKind) (*MediaResult, error) {
	identifier, err := resolver.Resolve(rawInput)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	req := domain.MediaRequest{Identifier: identifier, Kind: kind}
	path, hit, err := s.cache.Resolve(ctx, req)
	s.record(ctx, identifier, kind, hit, err, time.Since(start))
	if err != nil {
		return nil, err
	}

	st, err := os.Stat(path)
	if err != nil {
		// Evicted between resolve and stat; transient, client retries.
		return nil, domain.ErrNotFound
	}

	return &MediaResult{
		Identifier: identifier,
		Kind:       kind,
		Filename:   filepath.Base(path),
		FilePath:   path,
		SizeBytes:  st.Size(),
		CacheHit:   hit,
	}, nil
}

// History returns recent fetch records, newest first.
func (s *MediaService) History(ctx context.Context, limit int) ([]domain.FetchRecord, error) {
	if s.history == nil {
		return []domain.FetchRecord{}, nil
	}
	return s.history.List(ctx, limit)
}

func (s *MediaService) record(ctx context.Context, identifier string, kind domain.MediaKind, hit bool, resolveErr error, elapsed time.Duration) {
	if s.history == nil {
		return
	}

	rec := domain.FetchRecord{
		ID:         "fetch_" + uuid.New().String()[:8],
		Identifier: identifier,
		Kind:       kind,
		Status:     domain.FetchCompleted,
		CacheHit:   hit,
		DurationMS: elapsed.Milliseconds(),
		CreatedAt:  time.Now(),
	}
	if resolveErr != nil {
		rec.Status = domain.FetchFailed
		rec.Error = domain.Truncate(resolveErr.Error(), domain.MaxStderrLen)
	}

	if err := s.history.Record(ctx, rec); err != nil {
		s.logger.Warn("record fetch history failed", "error", err, "identifier", identifier)
	}
}
