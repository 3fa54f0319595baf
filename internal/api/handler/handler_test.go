package handler

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/iconidentify/streamcache/internal/cache"
	"github.com/iconidentify/streamcache/internal/config"
	"github.com/iconidentify/streamcache/internal/domain"
	"github.com/iconidentify/streamcache/internal/service"
)

func silentLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeFetcher writes a file of the configured size into the scratch
// directory, or fails with err.
type fakeFetcher struct {
	scratch string
	size    int
	err     error
	calls   int
}

func (f *fakeFetcher) Fetch(ctx context.Context, req domain.MediaRequest) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	size := f.size
	if size == 0 {
		size = 20000
	}
	path := filepath.Join(f.scratch, req.Filename())
	if err := os.WriteFile(path, make([]byte, size), 0o644); err != nil {
		return "", err
	}
	return path, nil
}

type mockHistory struct {
	records []domain.FetchRecord
	listErr error
}

func (m *mockHistory) Record(ctx context.Context, rec domain.FetchRecord) error {
	m.records = append(m.records, rec)
	return nil
}

func (m *mockHistory) List(ctx context.Context, limit int) ([]domain.FetchRecord, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	if limit > len(m.records) {
		limit = len(m.records)
	}
	return m.records[:limit], nil
}

type testEnv struct {
	basePath string
	fetcher  *fakeFetcher
	history  *mockHistory
	cache    *cache.DiskCache
	svc      *service.MediaService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	base := t.TempDir()
	scratch := t.TempDir()
	cfg := config.StorageConfig{
		BasePath:    base,
		ScratchPath: scratch,
		MinFileSize: 1024,
		MaxFileAge:  24 * time.Hour,
	}

	f := &fakeFetcher{scratch: scratch}
	h := &mockHistory{}
	c := cache.New(cfg, f, silentLogger())
	svc := service.NewMediaService(c, h, silentLogger())

	return &testEnv{
		basePath: base,
		fetcher:  f,
		history:  h,
		cache:    c,
		svc:      svc,
	}
}
