// Package cache maps (identifier, kind) pairs to files on disk and
// orchestrates cache-or-fetch resolution. The flat directory listing is
// the index; there is no manifest.
package cache

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/iconidentify/streamcache/internal/config"
	"github.com/iconidentify/streamcache/internal/domain"
	"github.com/iconidentify/streamcache/internal/fetcher"
)

// DiskCache resolves media requests against the local filesystem,
// delegating misses to the external fetcher. Concurrent cold requests
// for the same (identifier, kind) share a single fetch.
type DiskCache struct {
	cfg     config.StorageConfig
	fetcher fetcher.Fetcher
	logger  *slog.Logger
	flight  singleflight.Group
}

// New creates a disk cache backed by cfg.BasePath.
func New(cfg config.StorageConfig, f fetcher.Fetcher, logger *slog.Logger) *DiskCache {
	return &DiskCache{
		cfg:     cfg,
		fetcher: f,
		logger:  logger,
	}
}

// Path returns the canonical on-disk location for a request.
func (c *DiskCache) Path(req domain.MediaRequest) string {
	return filepath.Join(c.cfg.BasePath, req.Filename())
}

// Resolve returns the cached file path for the request, fetching it first
// when absent. The second return reports whether the call was served from
// cache. Files below MinFileSize are treated as corrupt and re-fetched.
func (c *DiskCache) Resolve(ctx context.Context, req domain.MediaRequest) (string, bool, error) {
	dest := c.Path(req)

	if st, err := os.Stat(dest); err == nil {
		if st.Size() >= c.cfg.MinFileSize {
			return dest, true, nil
		}
		c.logger.Warn("cached file below plausibility threshold, re-fetching",
			"path", dest,
			"size", st.Size(),
			"min_size", c.cfg.MinFileSize,
		)
		os.Remove(dest)
	}

	// Coalesce concurrent cold requests onto one fetch per entry. The
	// fetch runs on a detached context carrying only the tool timeout,
	// so a disconnecting client cannot cancel work other waiters share.
	key := req.Filename()
	v, err, shared := c.flight.Do(key, func() (interface{}, error) {
		return c.fetchInto(context.WithoutCancel(ctx), req, dest)
	})
	if err != nil {
		return "", false, err
	}
	if shared {
		c.logger.Debug("fetch coalesced with in-flight request", "key", key)
	}
	return v.(string), false, nil
}

func (c *DiskCache) fetchInto(ctx context.Context, req domain.MediaRequest, dest string) (string, error) {
	// A waiter queued behind a completed fetch re-checks before fetching again.
	if st, err := os.Stat(dest); err == nil && st.Size() >= c.cfg.MinFileSize {
		return dest, nil
	}

	got, err := c.fetcher.Fetch(ctx, req)
	if err != nil {
		return "", err
	}

	// The tool may have chosen a different extension; move into the
	// canonical name. Last writer wins on the shared path.
	if got != dest {
		if err := os.Rename(got, dest); err != nil {
			return "", fmt.Errorf("move into cache: %w", err)
		}
	}

	st, err := os.Stat(dest)
	if err != nil {
		return "", domain.ErrOutputMissing
	}
	if st.Size() < c.cfg.MinFileSize {
		os.Remove(dest)
		return "", domain.ErrCorruptFile
	}

	c.logger.Info("cached new entry",
		"identifier", req.Identifier,
		"kind", req.Kind,
		"path", dest,
		"size", st.Size(),
	)
	return dest, nil
}

// SweepResult reports what an eviction sweep removed.
type SweepResult struct {
	Deleted    []string
	FreedBytes int64
}

// Sweep deletes cache files older than MaxFileAge and clears the scratch
// directory unconditionally. Individual delete failures are logged and
// skipped; the sweep never aborts early.
func (c *DiskCache) Sweep(now time.Time) SweepResult {
	result := SweepResult{Deleted: []string{}}

	entries, err := os.ReadDir(c.cfg.BasePath)
	if err != nil {
		c.logger.Error("sweep: list cache dir", "error", err)
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if now.Sub(info.ModTime()) <= c.cfg.MaxFileAge {
			continue
		}
		path := filepath.Join(c.cfg.BasePath, entry.Name())
		if err := os.Remove(path); err != nil {
			c.logger.Warn("sweep: delete failed", "path", path, "error", err)
			continue
		}
		result.Deleted = append(result.Deleted, entry.Name())
		result.FreedBytes += info.Size()
	}

	// Scratch files are transient by definition; age does not matter.
	scratch, err := os.ReadDir(c.cfg.ScratchPath)
	if err != nil {
		c.logger.Error("sweep: list scratch dir", "error", err)
	}
	for _, entry := range scratch {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		path := filepath.Join(c.cfg.ScratchPath, entry.Name())
		if rmErr := os.Remove(path); rmErr != nil {
			c.logger.Warn("sweep: delete scratch failed", "path", path, "error", rmErr)
			continue
		}
		result.Deleted = append(result.Deleted, entry.Name())
		if err == nil {
			result.FreedBytes += info.Size()
		}
	}

	return result
}

// Stats returns the number of cached files and their total size.
// Totals are informational only; nothing enforces a storage ceiling.
func (c *DiskCache) Stats() (int, int64) {
	entries, err := os.ReadDir(c.cfg.BasePath)
	if err != nil {
		return 0, 0
	}

	var count int
	var total int64
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		count++
		total += info.Size()
	}
	return count, total
}
