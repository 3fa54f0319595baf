package cache

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/iconidentify/streamcache/internal/config"
	"github.com/iconidentify/streamcache/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func audioRequest() domain.MediaRequest {
	return domain.MediaRequest{Identifier: "abc123XYZ_q", Kind: domain.KindAudio}
}

// fakeFetcher writes a file into the scratch dir the way yt-dlp would.
type fakeFetcher struct {
	mu      sync.Mutex
	calls   int
	scratch string
	ext     string // extension the "tool" chooses
	size    int
	err     error
	delay   time.Duration
}

func (f *fakeFetcher) Fetch(ctx context.Context, req domain.MediaRequest) (string, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()

	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.err != nil {
		return "", f.err
	}

	ext := f.ext
	if ext == "" {
		ext = req.Kind.Ext()
	}
	path := filepath.Join(f.scratch, req.Identifier+"."+ext)
	if err := os.WriteFile(path, make([]byte, f.size), 0644); err != nil {
		return "", err
	}
	return path, nil
}

func (f *fakeFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func newTestCache(t *testing.T, f *fakeFetcher) (*DiskCache, config.StorageConfig) {
	t.Helper()
	cfg := config.StorageConfig{
		BasePath:    t.TempDir(),
		ScratchPath: t.TempDir(),
		MinFileSize: 100,
		MaxFileAge:  time.Hour,
	}
	f.scratch = cfg.ScratchPath
	if f.size == 0 {
		f.size = 200
	}
	return New(cfg, f, testLogger()), cfg
}

func TestResolve_MissThenHit(t *testing.T) {
	f := &fakeFetcher{}
	c, cfg := newTestCache(t, f)

	path, hit, err := c.Resolve(context.Background(), audioRequest())
	if err != nil {
		t.Fatalf("first Resolve failed: %v", err)
	}
	if hit {
		t.Error("first Resolve should be a miss")
	}
	if want := filepath.Join(cfg.BasePath, "abc123XYZ_q.mp3"); path != want {
		t.Errorf("path = %q, want %q", path, want)
	}

	_, hit, err = c.Resolve(context.Background(), audioRequest())
	if err != nil {
		t.Fatalf("second Resolve failed: %v", err)
	}
	if !hit {
		t.Error("second Resolve should be a hit")
	}
	if got := f.callCount(); got != 1 {
		t.Errorf("fetch count = %d, want 1", got)
	}
}

func TestResolve_RenamesForeignExtension(t *testing.T) {
	// The tool produced an m4a; the cache must move it into the
	// canonical mp3 name.
	f := &fakeFetcher{ext: "m4a"}
	c, cfg := newTestCache(t, f)

	path, _, err := c.Resolve(context.Background(), audioRequest())
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if want := filepath.Join(cfg.BasePath, "abc123XYZ_q.mp3"); path != want {
		t.Errorf("path = %q, want %q", path, want)
	}
	if _, err := os.Stat(filepath.Join(cfg.ScratchPath, "abc123XYZ_q.m4a")); !os.IsNotExist(err) {
		t.Error("scratch file should have been moved")
	}
}

func TestResolve_CorruptCachedFileRefetched(t *testing.T) {
	f := &fakeFetcher{}
	c, cfg := newTestCache(t, f)

	// A zero-byte cached file is implausible and must trigger a fetch.
	dest := filepath.Join(cfg.BasePath, "abc123XYZ_q.mp3")
	if err := os.WriteFile(dest, nil, 0644); err != nil {
		t.Fatalf("write corrupt file: %v", err)
	}

	_, hit, err := c.Resolve(context.Background(), audioRequest())
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if hit {
		t.Error("corrupt file must not count as a hit")
	}
	if got := f.callCount(); got != 1 {
		t.Errorf("fetch count = %d, want 1", got)
	}

	st, err := os.Stat(dest)
	if err != nil {
		t.Fatalf("stat refetched file: %v", err)
	}
	if st.Size() < 100 {
		t.Errorf("refetched file still too small: %d", st.Size())
	}
}

func TestResolve_FetchedFileTooSmall(t *testing.T) {
	f := &fakeFetcher{size: 10}
	c, _ := newTestCache(t, f)

	_, _, err := c.Resolve(context.Background(), audioRequest())
	if !errors.Is(err, domain.ErrCorruptFile) {
		t.Errorf("error = %v, want ErrCorruptFile", err)
	}
}

func TestResolve_FetchErrorPropagated(t *testing.T) {
	f := &fakeFetcher{err: domain.ErrFetchTimeout}
	c, _ := newTestCache(t, f)

	_, _, err := c.Resolve(context.Background(), audioRequest())
	if !errors.Is(err, domain.ErrFetchTimeout) {
		t.Errorf("error = %v, want ErrFetchTimeout", err)
	}
}

func TestResolve_ConcurrentRequestsShareOneFetch(t *testing.T) {
	f := &fakeFetcher{delay: 50 * time.Millisecond}
	c, _ := newTestCache(t, f)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, _, err := c.Resolve(context.Background(), audioRequest()); err != nil {
				t.Errorf("concurrent Resolve failed: %v", err)
			}
		}()
	}
	wg.Wait()

	if got := f.callCount(); got != 1 {
		t.Errorf("fetch count = %d, want 1 (coalesced)", got)
	}
}

func TestSweep_AgeBasedEviction(t *testing.T) {
	f := &fakeFetcher{}
	c, cfg := newTestCache(t, f)

	old := filepath.Join(cfg.BasePath, "old12345678.mp3")
	fresh := filepath.Join(cfg.BasePath, "new12345678.mp3")
	if err := os.WriteFile(old, make([]byte, 500), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(fresh, make([]byte, 300), 0644); err != nil {
		t.Fatal(err)
	}

	now := time.Now()
	if err := os.Chtimes(old, now.Add(-2*time.Hour), now.Add(-2*time.Hour)); err != nil {
		t.Fatal(err)
	}
	if err := os.Chtimes(fresh, now.Add(-30*time.Minute), now.Add(-30*time.Minute)); err != nil {
		t.Fatal(err)
	}

	result := c.Sweep(now)

	if len(result.Deleted) != 1 || result.Deleted[0] != "old12345678.mp3" {
		t.Errorf("deleted = %v, want [old12345678.mp3]", result.Deleted)
	}
	if result.FreedBytes != 500 {
		t.Errorf("freed bytes = %d, want 500", result.FreedBytes)
	}
	if _, err := os.Stat(old); !os.IsNotExist(err) {
		t.Error("old file should be deleted")
	}
	if _, err := os.Stat(fresh); err != nil {
		t.Error("fresh file should be retained")
	}
}

func TestSweep_ClearsScratchUnconditionally(t *testing.T) {
	f := &fakeFetcher{}
	c, cfg := newTestCache(t, f)

	scratchFile := filepath.Join(cfg.ScratchPath, "abc123XYZ_q.mp4.part")
	if err := os.WriteFile(scratchFile, make([]byte, 50), 0644); err != nil {
		t.Fatal(err)
	}

	c.Sweep(time.Now())

	if _, err := os.Stat(scratchFile); !os.IsNotExist(err) {
		t.Error("scratch file should be cleared regardless of age")
	}
}

func TestStats(t *testing.T) {
	f := &fakeFetcher{}
	c, cfg := newTestCache(t, f)

	if err := os.WriteFile(filepath.Join(cfg.BasePath, "a.mp3"), make([]byte, 100), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(cfg.BasePath, "b.mp4"), make([]byte, 250), 0644); err != nil {
		t.Fatal(err)
	}

	count, total := c.Stats()
	if count != 2 {
		t.Errorf("count = %d, want 2", count)
	}
	if total != 350 {
		t.Errorf("total = %d, want 350", total)
	}
}
