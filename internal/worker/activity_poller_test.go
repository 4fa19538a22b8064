package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/complaint-service/internal/domain"
	"github.com/spec-kit/complaint-service/internal/persistence"
)

type stubActivity struct {
	entries  []domain.ActivityEntry
	stats    domain.DashboardStats
	feedErr  error
	statsErr error
	calls    chan struct{}
}

func (s *stubActivity) GetActivityFeed(context.Context, int) ([]domain.ActivityEntry, error) {
	if s.calls != nil {
		select {
		case s.calls <- struct{}{}:
		default:
		}
	}
	return s.entries, s.feedErr
}

func (s *stubActivity) GetDashboardStats(context.Context) (domain.DashboardStats, error) {
	return s.stats, s.statsErr
}

func newCache(t *testing.T) (*persistence.ActivityCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return persistence.NewActivityCache(persistence.NewRedisWithClient(client, "test"), time.Minute), mr
}

func TestActivityPoller_Refresh(t *testing.T) {
	cache, _ := newCache(t)
	source := &stubActivity{
		entries: []domain.ActivityEntry{{ID: "act-1", Action: "createComplaint", RelatedComplaintID: "CMP-1"}},
		stats:   domain.DashboardStats{"open": float64(3)},
	}
	poller := NewActivityPoller(source, cache, nil, time.Second, 20)
	ctx := context.Background()

	require.NoError(t, poller.Refresh(ctx))

	feed, ok, err := cache.Feed(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, feed.Entries, 1)
	assert.Equal(t, "CMP-1", feed.Entries[0].RelatedComplaintID)

	stats, ok, err := cache.Stats(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, float64(3), stats.Stats["open"])
}

func TestActivityPoller_PartialFailure(t *testing.T) {
	cache, _ := newCache(t)
	source := &stubActivity{feedErr: errors.New("store unreachable"), stats: domain.DashboardStats{"open": float64(1)}}
	poller := NewActivityPoller(source, cache, nil, time.Second, 20)
	ctx := context.Background()

	err := poller.Refresh(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store unreachable")

	_, ok, err := cache.Feed(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
	_, ok, err = cache.Stats(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestActivityPoller_RunStopsOnCancel(t *testing.T) {
	cache, _ := newCache(t)
	source := &stubActivity{calls: make(chan struct{}, 1)}
	poller := NewActivityPoller(source, cache, nil, 10*time.Millisecond, 5)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		poller.Run(ctx)
		close(done)
	}()

	select {
	case <-source.calls:
	case <-time.After(time.Second):
		t.Fatal("poller never refreshed")
	}
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("poller did not stop")
	}
}
