package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/complaint-service/internal/authz"
	"github.com/spec-kit/complaint-service/internal/domain"
	"github.com/spec-kit/complaint-service/internal/events"
	"github.com/spec-kit/complaint-service/internal/policy"
	apperrors "github.com/spec-kit/complaint-service/pkg/util"
)

// PolicyPersister stores published snapshots; implemented by repository.PolicyRepository.
type PolicyPersister interface {
	Latest(ctx context.Context) (*policy.Snapshot, error)
	Save(ctx context.Context, snap *policy.Snapshot) error
}

// PolicyCacher keeps the current snapshot close at hand; implemented by
// persistence.PolicyCache.
type PolicyCacher interface {
	Load(ctx context.Context) (*policy.Snapshot, error)
	Save(ctx context.Context, snap *policy.Snapshot) error
}

// PolicyService publishes new versions of the role policy.
type PolicyService struct {
	mu         sync.Mutex
	store      *policy.Store
	repo       PolicyPersister
	cache      PolicyCacher
	authz      *authz.Engine
	dispatcher events.Dispatcher
	logger     *zap.Logger
	now        func() time.Time
}

// PolicyDependencies encapsulates requirements for the policy service. Repo and Cache may
// be nil, in which case edits live only in memory.
type PolicyDependencies struct {
	Store      *policy.Store
	Repo       PolicyPersister
	Cache      PolicyCacher
	Authz      *authz.Engine
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
	Clock      func() time.Time
}

// NewPolicyService builds the service.
func NewPolicyService(deps PolicyDependencies) *PolicyService {
	svc := &PolicyService{
		store:      deps.Store,
		repo:       deps.Repo,
		cache:      deps.Cache,
		authz:      deps.Authz,
		dispatcher: deps.Dispatcher,
		logger:     deps.Logger,
		now:        deps.Clock,
	}
	if svc.logger == nil {
		svc.logger = zap.NewNop()
	}
	if svc.now == nil {
		svc.now = time.Now
	}
	return svc
}

// Current returns the snapshot in effect to callers allowed to read settings.
func (s *PolicyService) Current(p domain.Principal) (*policy.Snapshot, error) {
	if err := s.authz.Authorize(p, policy.ResourceSettings, policy.ActionRead, "").Err(); err != nil {
		return nil, err
	}
	return s.store.Current(), nil
}

// UpdatePermissions publishes a new version with the entry for role and resource replaced.
// The snapshot is persisted before it becomes visible.
func (s *PolicyService) UpdatePermissions(ctx context.Context, p domain.Principal, role domain.Role, resource policy.Resource, perms policy.Permissions) (*policy.Snapshot, error) {
	if err := s.authz.Authorize(p, policy.ResourceSettings, policy.ActionUpdate, "").Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current := s.store.Current()
	next, err := current.WithPermissions(role, resource, perms, p.ID, s.now().UTC())
	if err != nil {
		return nil, apperrors.NewValidationError(err.Error(), map[string]any{
			"role":     string(role),
			"resource": string(resource),
		})
	}

	if s.repo != nil {
		if err := s.repo.Save(ctx, next); err != nil {
			return nil, apperrors.MapError(err)
		}
	}
	if s.cache != nil {
		if err := s.cache.Save(ctx, next); err != nil {
			s.logger.Warn("policy cache write failed", zap.Int64("version", next.Version()), zap.Error(err))
		}
	}
	if err := s.store.Replace(next); err != nil {
		if errors.Is(err, policy.ErrStaleVersion) {
			return nil, apperrors.NewConflict("policy changed concurrently", map[string]any{"version": next.Version()})
		}
		return nil, err
	}

	s.logger.Info("policy updated",
		zap.Int64("version", next.Version()),
		zap.String("role", string(role)),
		zap.String("resource", string(resource)),
		zap.String("principal_id", p.ID),
	)
	if s.dispatcher != nil {
		event := events.New(events.EventPolicyUpdated, string(resource), events.ActorOf(p), s.now(), events.PolicyUpdatedPayload{
			Version:  next.Version(),
			Role:     string(role),
			Resource: string(resource),
		})
		if err := s.dispatcher.Publish(ctx, event); err != nil {
			s.logger.Warn("event handler failed", zap.String("event", string(event.Type)), zap.Error(err))
		}
	}
	return next, nil
}

// LoadInitialPolicy picks the boot snapshot: the newest version held by Redis or Postgres,
// falling back to the built-in default. The cache is re-warmed when Postgres is ahead of it.
func LoadInitialPolicy(ctx context.Context, cache PolicyCacher, repo PolicyPersister, logger *zap.Logger) *policy.Snapshot {
	if logger == nil {
		logger = zap.NewNop()
	}
	var cached, stored *policy.Snapshot
	if cache != nil {
		snap, err := cache.Load(ctx)
		if err != nil {
			logger.Warn("cached policy unavailable", zap.Error(err))
		} else {
			cached = snap
		}
	}
	if repo != nil {
		snap, err := repo.Latest(ctx)
		switch {
		case errors.Is(err, pgx.ErrNoRows):
		case err != nil:
			logger.Warn("stored policy unavailable", zap.Error(err))
		default:
			stored = snap
		}
	}

	switch {
	case stored != nil && (cached == nil || stored.Version() > cached.Version()):
		logger.Info("policy loaded from database", zap.Int64("version", stored.Version()))
		if cache != nil {
			if err := cache.Save(ctx, stored); err != nil {
				logger.Warn("policy cache write failed", zap.Int64("version", stored.Version()), zap.Error(err))
			}
		}
		return stored
	case cached != nil:
		logger.Info("policy loaded from cache", zap.Int64("version", cached.Version()))
		return cached
	}
	logger.Info("using default policy")
	return policy.Default()
}
