package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/spec-kit/complaint-service/internal/authz"
	"github.com/spec-kit/complaint-service/internal/canonical"
	"github.com/spec-kit/complaint-service/internal/domain"
	"github.com/spec-kit/complaint-service/internal/events"
	"github.com/spec-kit/complaint-service/internal/gateway"
	"github.com/spec-kit/complaint-service/internal/persistence"
	"github.com/spec-kit/complaint-service/internal/policy"
	apperrors "github.com/spec-kit/complaint-service/pkg/util"
)

var testNow = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return testNow }

func staff(id string, role domain.Role, region string) domain.Principal {
	return domain.Principal{ID: id, Role: role, Region: region, Active: true}
}

func newTestEngine() (*authz.Engine, *policy.Store) {
	store := policy.NewStore(nil)
	return authz.NewEngine(store, nil), store
}

func copyBag(in canonical.Bag) canonical.Bag {
	out := make(canonical.Bag, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func versionOf(rec canonical.Bag) int64 {
	switch v := rec["version"].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	default:
		return 0
	}
}

// recordingDispatcher keeps every published event.
type recordingDispatcher struct {
	mu     sync.Mutex
	events []events.Event
}

func (d *recordingDispatcher) Publish(_ context.Context, event events.Event) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, event)
	return nil
}

func (d *recordingDispatcher) Subscribe(events.EventType, events.EventHandler) {}

func (d *recordingDispatcher) types() []events.EventType {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]events.EventType, 0, len(d.events))
	for _, event := range d.events {
		out = append(out, event.Type)
	}
	return out
}

// fakeComplaintStore mimics the record store: it bumps a version on every write and
// rejects a stale expectedVersion the way the store reports it.
type fakeComplaintStore struct {
	mu       sync.Mutex
	records  map[string]canonical.Bag
	order    []string
	updates  []gateway.UpdateRequest
	created  []canonical.Bag
	failWith error
	assignID string
}

func newFakeComplaintStore(records ...canonical.Bag) *fakeComplaintStore {
	s := &fakeComplaintStore{records: map[string]canonical.Bag{}}
	for _, rec := range records {
		id := rec["id"].(string)
		s.records[id] = copyBag(rec)
		s.order = append(s.order, id)
	}
	return s
}

func (s *fakeComplaintStore) GetComplaints(_ context.Context, q gateway.ListQuery) (gateway.Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return gateway.Page{}, s.failWith
	}
	var items []canonical.Bag
	for _, id := range s.order {
		if want := q.Filters["id"]; want != "" && want != id {
			continue
		}
		items = append(items, copyBag(s.records[id]))
	}
	return gateway.Page{Items: items, Pagination: &domain.Pagination{Page: 1, Limit: 50, Total: len(items), TotalPages: 1}}, nil
}

func (s *fakeComplaintStore) CreateComplaint(_ context.Context, attrs canonical.Bag, _ domain.ActivityMeta) (canonical.Bag, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return nil, s.failWith
	}
	rec := copyBag(attrs)
	rec["version"] = int64(1)
	if s.assignID != "" {
		rec["id"] = s.assignID
	}
	id := rec["id"].(string)
	s.records[id] = rec
	s.order = append(s.order, id)
	s.created = append(s.created, copyBag(attrs))
	return copyBag(rec), nil
}

func (s *fakeComplaintStore) UpdateComplaint(_ context.Context, req gateway.UpdateRequest) (canonical.Bag, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updates = append(s.updates, req)
	if s.failWith != nil {
		return nil, s.failWith
	}
	rec, ok := s.records[req.ID]
	if !ok {
		return nil, apperrors.NewNotFound("complaint", map[string]any{"id": req.ID})
	}
	version := versionOf(rec)
	if req.ExpectedVersion > 0 && req.ExpectedVersion != version {
		return nil, apperrors.NewConflict("record store error: version mismatch", nil)
	}
	for k, v := range req.Updates {
		rec[k] = v
	}
	rec["version"] = version + 1
	return copyBag(rec), nil
}

func (s *fakeComplaintStore) record(id string) canonical.Bag {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyBag(s.records[id])
}

// fakeUserStore keeps accounts keyed by id.
type fakeUserStore struct {
	mu       sync.Mutex
	records  map[string]canonical.Bag
	order    []string
	deleted  []string
	failWith error
}

func newFakeUserStore(records ...canonical.Bag) *fakeUserStore {
	s := &fakeUserStore{records: map[string]canonical.Bag{}}
	for _, rec := range records {
		s.put(copyBag(rec))
	}
	return s
}

func (s *fakeUserStore) put(rec canonical.Bag) {
	id := rec["id"].(string)
	if _, exists := s.records[id]; !exists {
		s.order = append(s.order, id)
	}
	s.records[id] = rec
}

func (s *fakeUserStore) Login(_ context.Context, email string) (canonical.Bag, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return nil, s.failWith
	}
	for _, id := range s.order {
		if strings.EqualFold(fmt.Sprint(s.records[id]["email"]), email) {
			return copyBag(s.records[id]), nil
		}
	}
	return nil, apperrors.NewNotFound("user", nil)
}

func (s *fakeUserStore) GetUsers(_ context.Context, q gateway.ListQuery) (gateway.Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return gateway.Page{}, s.failWith
	}
	var items []canonical.Bag
	for _, id := range s.order {
		rec := s.records[id]
		if want := q.Filters["id"]; want != "" && want != id {
			continue
		}
		if want := q.Filters["email"]; want != "" && !strings.EqualFold(fmt.Sprint(rec["email"]), want) {
			continue
		}
		items = append(items, copyBag(rec))
	}
	return gateway.Page{Items: items}, nil
}

func (s *fakeUserStore) CreateUser(_ context.Context, attrs canonical.Bag, _ domain.ActivityMeta) (canonical.Bag, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return nil, s.failWith
	}
	rec := copyBag(attrs)
	rec["id"] = fmt.Sprintf("u-%d", len(s.order)+1)
	s.put(rec)
	return copyBag(rec), nil
}

func (s *fakeUserStore) UpdateUser(_ context.Context, req gateway.UpdateRequest) (canonical.Bag, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return nil, s.failWith
	}
	rec, ok := s.records[req.ID]
	if !ok {
		return nil, apperrors.NewNotFound("user", nil)
	}
	for k, v := range req.Updates {
		rec[k] = v
	}
	return copyBag(rec), nil
}

func (s *fakeUserStore) DeleteUser(_ context.Context, id string, _ domain.ActivityMeta) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return s.failWith
	}
	rec, ok := s.records[id]
	if !ok {
		return apperrors.NewNotFound("user", nil)
	}
	rec["active"] = false
	s.deleted = append(s.deleted, id)
	return nil
}

func (s *fakeUserStore) ResetUserPassword(_ context.Context, id, passwordHash string, _ domain.ActivityMeta) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return s.failWith
	}
	rec, ok := s.records[id]
	if !ok {
		return apperrors.NewNotFound("user", nil)
	}
	rec["passwordHash"] = passwordHash
	return nil
}

func (s *fakeUserStore) record(id string) canonical.Bag {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyBag(s.records[id])
}

// fakeCustomerStore keeps customers in insertion order.
type fakeCustomerStore struct {
	mu       sync.Mutex
	records  []canonical.Bag
	failWith error
}

func (s *fakeCustomerStore) GetCustomers(_ context.Context, _ gateway.ListQuery) (gateway.Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return gateway.Page{}, s.failWith
	}
	items := make([]canonical.Bag, 0, len(s.records))
	for _, rec := range s.records {
		items = append(items, copyBag(rec))
	}
	return gateway.Page{Items: items}, nil
}

func (s *fakeCustomerStore) CreateCustomer(_ context.Context, attrs canonical.Bag, _ domain.ActivityMeta) (canonical.Bag, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return nil, s.failWith
	}
	rec := copyBag(attrs)
	rec["id"] = fmt.Sprintf("c-%d", len(s.records)+1)
	s.records = append(s.records, rec)
	return copyBag(rec), nil
}

// fakeActivityStore serves a fixed feed and counters.
type fakeActivityStore struct {
	entries []domain.ActivityEntry
	stats   domain.DashboardStats
	calls   int
}

func (s *fakeActivityStore) GetActivityFeed(_ context.Context, limit int) ([]domain.ActivityEntry, error) {
	s.calls++
	if limit > 0 && limit < len(s.entries) {
		return s.entries[:limit], nil
	}
	return s.entries, nil
}

func (s *fakeActivityStore) GetDashboardStats(context.Context) (domain.DashboardStats, error) {
	s.calls++
	return s.stats, nil
}

// fakeActivityCache is an in-memory ActivityCacheReader.
type fakeActivityCache struct {
	feed  *persistence.CachedFeed
	stats *persistence.CachedStats
}

func (c *fakeActivityCache) Feed(context.Context) (persistence.CachedFeed, bool, error) {
	if c.feed == nil {
		return persistence.CachedFeed{}, false, nil
	}
	return *c.feed, true, nil
}

func (c *fakeActivityCache) Stats(context.Context) (persistence.CachedStats, bool, error) {
	if c.stats == nil {
		return persistence.CachedStats{}, false, nil
	}
	return *c.stats, true, nil
}

// memoryPolicyStore serves as both the repository and the cache in policy tests.
type memoryPolicyStore struct {
	mu       sync.Mutex
	snap     *policy.Snapshot
	loadErr  error
	saveErr  error
	saves    int
	missWith error
}

func (m *memoryPolicyStore) Latest(context.Context) (*policy.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	if m.snap == nil {
		return nil, m.missWith
	}
	return m.snap, nil
}

func (m *memoryPolicyStore) Load(ctx context.Context) (*policy.Snapshot, error) {
	return m.Latest(ctx)
}

func (m *memoryPolicyStore) Save(_ context.Context, snap *policy.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saves++
	m.snap = snap
	return nil
}

type countingQuality struct {
	mu     sync.Mutex
	counts map[string]int
}

func (c *countingQuality) RecordDataQuality(entity, code string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.counts == nil {
		c.counts = map[string]int{}
	}
	c.counts[entity+"/"+code]++
}
