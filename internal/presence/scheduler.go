package presence

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/streamwatch/report-service/internal/notify"
	"github.com/streamwatch/report-service/internal/trends"
)

// Scheduler runs the two presence timers: a short rotation loop that emits
// the next presence string, and a long refresh loop that replaces the
// trending slice of the pool. The loops are independent goroutines; a
// stalled or failed refresh never delays rotation and vice versa.
type Scheduler struct {
	pool      *Pool
	fetcher   trends.Fetcher
	cache     *TrendingCache
	messenger notify.Messenger
	logger    *zap.Logger

	rotateEvery  time.Duration
	refreshEvery time.Duration
	stopCh       chan struct{}
}

// NewScheduler builds the scheduler. cache may be nil.
func NewScheduler(
	pool *Pool,
	fetcher trends.Fetcher,
	cache *TrendingCache,
	messenger notify.Messenger,
	logger *zap.Logger,
	rotateEvery time.Duration,
	refreshEvery time.Duration,
) *Scheduler {
	if rotateEvery <= 0 {
		rotateEvery = 5 * time.Minute
	}
	if refreshEvery <= 0 {
		refreshEvery = 6 * time.Hour
	}
	return &Scheduler{
		pool:         pool,
		fetcher:      fetcher,
		cache:        cache,
		messenger:    messenger,
		logger:       logger,
		rotateEvery:  rotateEvery,
		refreshEvery: refreshEvery,
		stopCh:       make(chan struct{}),
	}
}

// Start seeds the pool and launches both loops.
func (s *Scheduler) Start(ctx context.Context) {
	s.seedFromCache(ctx)

	// first refresh and first rotation happen immediately
	s.Refresh(ctx)
	s.Rotate(ctx)

	go s.rotateLoop(ctx)
	go s.refreshLoop(ctx)
}

// Stop stops both loops.
func (s *Scheduler) Stop() {
	close(s.stopCh)
}

func (s *Scheduler) rotateLoop(ctx context.Context) {
	ticker := time.NewTicker(s.rotateEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.Rotate(ctx)
		case <-s.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (s *Scheduler) refreshLoop(ctx context.Context) {
	ticker := time.NewTicker(s.refreshEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.Refresh(ctx)
		case <-s.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

// Rotate picks the next entry and pushes it as the visible presence.
// Delivery failures are logged and absorbed; rotation itself never stops.
func (s *Scheduler) Rotate(ctx context.Context) {
	entry := s.pool.Next()
	if err := s.messenger.SetPresence(ctx, entry.Text); err != nil {
		s.logger.Warn("presence update failed",
			zap.String("text", entry.Text),
			zap.Error(err))
		return
	}
	s.logger.Debug("presence rotated",
		zap.String("text", entry.Text),
		zap.String("source", string(entry.Source)))
}

// Refresh attempts one trending fetch. On success the pool's trending slice
// is replaced wholesale; on any failure the pool is left exactly as it was.
func (s *Scheduler) Refresh(ctx context.Context) {
	titles, err := s.fetcher.FetchTrending(ctx)
	if err != nil {
		// non-fatal: keep rotating over whatever the pool already holds
		s.logger.Debug("trending refresh skipped", zap.Error(err))
		return
	}

	fetchedAt := time.Now()
	s.pool.ReplaceTrending(titles, fetchedAt)
	s.logger.Info("trending titles refreshed", zap.Int("count", len(titles)))

	if s.cache != nil {
		if err := s.cache.Save(ctx, trends.FetchedBatch{Titles: titles, FetchedAt: fetchedAt}); err != nil {
			s.logger.Warn("failed to cache trending batch", zap.Error(err))
		}
	}
}

// seedFromCache restores the last trending batch after a restart, provided
// it is still inside the refresh window.
func (s *Scheduler) seedFromCache(ctx context.Context) {
	if s.cache == nil {
		return
	}
	batch, err := s.cache.Load(ctx)
	if err != nil {
		s.logger.Warn("failed to load cached trending batch", zap.Error(err))
		return
	}
	if batch == nil || len(batch.Titles) == 0 {
		return
	}
	if time.Since(batch.FetchedAt) > s.refreshEvery {
		return
	}
	s.pool.ReplaceTrending(batch.Titles, batch.FetchedAt)
	s.logger.Info("seeded trending titles from cache", zap.Int("count", len(batch.Titles)))
}
