package cache

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ErrShutdownTimeout is returned when the sweeper doesn't stop within timeout.
var ErrShutdownTimeout = errors.New("sweeper shutdown timed out")

// Pruner trims aged records from an auxiliary store during a sweep.
type Pruner interface {
	Prune(ctx context.Context, before time.Time) (int64, error)
}

// Sweeper runs periodic eviction sweeps with an explicit lifecycle.
// It holds no lock shared with the request path.
type Sweeper struct {
	interval  time.Duration
	cache     *DiskCache
	pruner    Pruner // optional
	retention time.Duration
	logger    *slog.Logger

	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

// NewSweeper creates a sweeper. pruner may be nil.
func NewSweeper(interval time.Duration, cache *DiskCache, pruner Pruner, retention time.Duration, logger *slog.Logger) *Sweeper {
	if interval <= 0 {
		interval = time.Hour
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Sweeper{
		interval:  interval,
		cache:     cache,
		pruner:    pruner,
		retention: retention,
		logger:    logger,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Start launches the background sweep loop.
func (s *Sweeper) Start() {
	s.logger.Info("starting sweeper", "interval", s.interval)

	s.wg.Add(1)
	go s.run()
}

// Stop gracefully stops the sweeper.
func (s *Sweeper) Stop(timeout time.Duration) error {
	s.logger.Info("stopping sweeper")
	s.cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("sweeper stopped gracefully")
		return nil
	case <-time.After(timeout):
		return ErrShutdownTimeout
	}
}

func (s *Sweeper) run() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			s.logger.Info("sweeper stopping")
			return
		case <-ticker.C:
			s.sweepOnce()
		}
	}
}

func (s *Sweeper) sweepOnce() {
	result := s.cache.Sweep(time.Now())
	if len(result.Deleted) > 0 {
		s.logger.Info("sweep complete",
			"deleted", len(result.Deleted),
			"freed_bytes", result.FreedBytes,
		)
	}

	if s.pruner != nil && s.retention > 0 {
		pruned, err := s.pruner.Prune(s.ctx, time.Now().Add(-s.retention))
		if err != nil {
			s.logger.Warn("history prune failed", "error", err)
		} else if pruned > 0 {
			s.logger.Info("history pruned", "rows", pruned)
		}
	}
}
