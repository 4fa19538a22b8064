package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/complaint-service/internal/authz"
	"github.com/spec-kit/complaint-service/internal/domain"
	"github.com/spec-kit/complaint-service/internal/gateway"
	"github.com/spec-kit/complaint-service/internal/persistence"
	"github.com/spec-kit/complaint-service/internal/policy"
)

// ActivityCacheReader is the read side of persistence.ActivityCache.
type ActivityCacheReader interface {
	Feed(ctx context.Context) (persistence.CachedFeed, bool, error)
	Stats(ctx context.Context) (persistence.CachedStats, bool, error)
}

// DashboardService serves the aggregate counters and the recent activity feed.
type DashboardService struct {
	store     gateway.ActivityStore
	cache     ActivityCacheReader
	authz     *authz.Engine
	logger    *zap.Logger
	feedLimit int
}

// DashboardDependencies encapsulates requirements for the dashboard service.
type DashboardDependencies struct {
	Store     gateway.ActivityStore
	Cache     ActivityCacheReader
	Authz     *authz.Engine
	Logger    *zap.Logger
	FeedLimit int
}

// NewDashboardService builds the service. Cache may be nil.
func NewDashboardService(deps DashboardDependencies) *DashboardService {
	svc := &DashboardService{
		store:     deps.Store,
		cache:     deps.Cache,
		authz:     deps.Authz,
		logger:    deps.Logger,
		feedLimit: deps.FeedLimit,
	}
	if svc.logger == nil {
		svc.logger = zap.NewNop()
	}
	if svc.feedLimit <= 0 {
		svc.feedLimit = 50
	}
	return svc
}

// Stats returns the store's counters, preferring the poller's cached copy.
func (s *DashboardService) Stats(ctx context.Context, p domain.Principal) (domain.DashboardStats, time.Time, error) {
	if err := s.authz.Authorize(p, policy.ResourceDashboard, policy.ActionRead, "").Err(); err != nil {
		return nil, time.Time{}, err
	}
	if s.cache != nil {
		cached, ok, err := s.cache.Stats(ctx)
		if err != nil {
			s.logger.Warn("dashboard cache read failed", zap.Error(err))
		} else if ok {
			return cached.Stats, cached.FetchedAt, nil
		}
	}
	stats, err := s.store.GetDashboardStats(ctx)
	if err != nil {
		return nil, time.Time{}, err
	}
	return stats, time.Now().UTC(), nil
}

// Activity returns up to limit recent entries. Entries tied to a complaint are kept only
// when the principal may read complaints.
func (s *DashboardService) Activity(ctx context.Context, p domain.Principal, limit int) ([]domain.ActivityEntry, error) {
	ev := s.authz.Decide(nil)
	if err := ev.Authorize(p, policy.ResourceDashboard, policy.ActionRead, "").Err(); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > s.feedLimit {
		limit = s.feedLimit
	}

	var entries []domain.ActivityEntry
	if s.cache != nil {
		cached, ok, err := s.cache.Feed(ctx)
		if err != nil {
			s.logger.Warn("activity cache read failed", zap.Error(err))
		} else if ok {
			entries = cached.Entries
		}
	}
	if entries == nil {
		fetched, err := s.store.GetActivityFeed(ctx, limit)
		if err != nil {
			return nil, err
		}
		entries = fetched
	}

	readsComplaints := ev.Can(p, policy.ResourceComplaints, policy.ActionRead)
	out := make([]domain.ActivityEntry, 0, len(entries))
	for _, entry := range entries {
		if entry.RelatedComplaintID != "" && !readsComplaints {
			continue
		}
		out = append(out, entry)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}
