// Package store persists fetch outcomes to SQLite so status survives
// restarts without any shared in-memory maps.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "modernc.org/sqlite"

	"github.com/iconidentify/streamcache/internal/domain"
)

// HistoryStore records fetch attempts in a SQLite database.
type HistoryStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open opens (creating if needed) the history database at path.
func Open(path string, logger *slog.Logger) (*HistoryStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS fetches (
			id TEXT PRIMARY KEY,
			identifier TEXT NOT NULL,
			kind TEXT NOT NULL,
			status TEXT NOT NULL,
			cache_hit INTEGER NOT NULL DEFAULT 0,
			error TEXT NOT NULL DEFAULT '',
			duration_ms INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_fetches_created ON fetches(created_at);
		CREATE INDEX IF NOT EXISTS idx_fetches_identifier ON fetches(identifier);
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create table: %w", err)
	}

	return &HistoryStore{db: db, logger: logger}, nil
}

// Close closes the underlying database.
func (s *HistoryStore) Close() error {
	return s.db.Close()
}

// Record inserts one fetch record.
func (s *HistoryStore) Record(ctx context.Context, rec domain.FetchRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO fetches (id, identifier, kind, status, cache_hit, error, duration_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID,
		rec.Identifier,
		string(rec.Kind),
		string(rec.Status),
		boolToInt(rec.CacheHit),
		rec.Error,
		rec.DurationMS,
		rec.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert fetch record: %w", err)
	}
	return nil
}

// List returns the most recent fetch records, newest first.
func (s *HistoryStore) List(ctx context.Context, limit int) ([]domain.FetchRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, identifier, kind, status, cache_hit, error, duration_ms, created_at
		FROM fetches
		ORDER BY created_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query fetches: %w", err)
	}
	defer rows.Close()

	var records []domain.FetchRecord
	for rows.Next() {
		var rec domain.FetchRecord
		var kind, status string
		var cacheHit int
		if err := rows.Scan(&rec.ID, &rec.Identifier, &kind, &status, &cacheHit, &rec.Error, &rec.DurationMS, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan fetch record: %w", err)
		}
		rec.Kind = domain.MediaKind(kind)
		rec.Status = domain.FetchStatus(status)
		rec.CacheHit = cacheHit != 0
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Prune deletes records created before the cutoff and reports how many.
func (s *HistoryStore) Prune(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM fetches WHERE created_at < ?`, before.UTC())
	if err != nil {
		return 0, fmt.Errorf("prune fetches: %w", err)
	}
	return res.RowsAffected()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
