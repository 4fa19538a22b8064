package worker

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/complaint-service/internal/gateway"
	"github.com/spec-kit/complaint-service/internal/persistence"
)

// ActivitySink receives fresh copies of the feed and counters; implemented by
// persistence.ActivityCache.
type ActivitySink interface {
	StoreFeed(ctx context.Context, feed persistence.CachedFeed) error
	StoreStats(ctx context.Context, stats persistence.CachedStats) error
}

// ActivityPoller periodically copies the store's activity feed and dashboard counters into
// the cache. It only reads from the store.
type ActivityPoller struct {
	source   gateway.ActivityStore
	sink     ActivitySink
	logger   *zap.Logger
	interval time.Duration
	limit    int
	now      func() time.Time
}

// NewActivityPoller builds a poller.
func NewActivityPoller(source gateway.ActivityStore, sink ActivitySink, logger *zap.Logger, interval time.Duration, limit int) *ActivityPoller {
	if logger == nil {
		logger = zap.NewNop()
	}
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &ActivityPoller{source: source, sink: sink, logger: logger, interval: interval, limit: limit, now: time.Now}
}

// Run refreshes once immediately and then on every tick until ctx is cancelled.
func (p *ActivityPoller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.logger.Info("activity poller started", zap.Duration("interval", p.interval))
	if err := p.Refresh(ctx); err != nil {
		p.logger.Warn("activity refresh failed", zap.Error(err))
	}

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("activity poller stopped")
			return
		case <-ticker.C:
			if err := p.Refresh(ctx); err != nil {
				p.logger.Warn("activity refresh failed", zap.Error(err))
			}
		}
	}
}

// Refresh performs one poll. A failure on one half does not stop the other.
func (p *ActivityPoller) Refresh(ctx context.Context) error {
	var errs []error

	entries, err := p.source.GetActivityFeed(ctx, p.limit)
	if err != nil {
		errs = append(errs, err)
	} else if err := p.sink.StoreFeed(ctx, persistence.CachedFeed{FetchedAt: p.now().UTC(), Entries: entries}); err != nil {
		errs = append(errs, err)
	}

	stats, err := p.source.GetDashboardStats(ctx)
	if err != nil {
		errs = append(errs, err)
	} else if err := p.sink.StoreStats(ctx, persistence.CachedStats{FetchedAt: p.now().UTC(), Stats: stats}); err != nil {
		errs = append(errs, err)
	}

	if len(errs) == 0 {
		p.logger.Debug("activity refreshed", zap.Int("entries", len(entries)))
	}
	return errors.Join(errs...)
}
