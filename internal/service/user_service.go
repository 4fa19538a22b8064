package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/complaint-service/internal/auth"
	"github.com/spec-kit/complaint-service/internal/authz"
	"github.com/spec-kit/complaint-service/internal/canonical"
	"github.com/spec-kit/complaint-service/internal/domain"
	"github.com/spec-kit/complaint-service/internal/events"
	"github.com/spec-kit/complaint-service/internal/gateway"
	"github.com/spec-kit/complaint-service/internal/policy"
	apperrors "github.com/spec-kit/complaint-service/pkg/util"
)

// UserInput describes a new staff account.
type UserInput struct {
	Name          string
	Email         string
	Password      string
	Role          string
	Region        string
	ServiceCenter string
}

// UserPatch lists the account fields to change; nil fields stay as they are.
type UserPatch struct {
	Name          *string
	Role          *string
	Region        *string
	ServiceCenter *string
	Active        *bool
}

// UserQuery filters a user listing.
type UserQuery struct {
	Role   string
	Region string
	Page   int
	Limit  int
}

// UserPage is one page of visible accounts.
type UserPage struct {
	Items      []domain.User
	Pagination *domain.Pagination
}

// UserService manages staff accounts.
type UserService struct {
	store       gateway.UserStore
	authz       *authz.Engine
	dispatcher  events.Dispatcher
	quality     *DataQualityReporter
	logger      *zap.Logger
	now         func() time.Time
	bcryptCost  int
	minPassword int
}

// UserDependencies encapsulates requirements for the user service.
type UserDependencies struct {
	Store             gateway.UserStore
	Authz             *authz.Engine
	Dispatcher        events.Dispatcher
	Quality           *DataQualityReporter
	Logger            *zap.Logger
	Clock             func() time.Time
	BcryptCost        int
	MinPasswordLength int
}

// NewUserService builds the service.
func NewUserService(deps UserDependencies) *UserService {
	svc := &UserService{
		store:       deps.Store,
		authz:       deps.Authz,
		dispatcher:  deps.Dispatcher,
		quality:     deps.Quality,
		logger:      deps.Logger,
		now:         deps.Clock,
		bcryptCost:  deps.BcryptCost,
		minPassword: deps.MinPasswordLength,
	}
	if svc.logger == nil {
		svc.logger = zap.NewNop()
	}
	if svc.now == nil {
		svc.now = time.Now
	}
	if svc.minPassword <= 0 {
		svc.minPassword = 8
	}
	return svc
}

// FindByID loads the current state of an account without an authorization check. The
// authentication middleware calls it on every request.
func (s *UserService) FindByID(ctx context.Context, id string) (domain.User, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.User{}, apperrors.NewNotFound("user", nil)
	}
	user, found, err := s.findOne(ctx, "id", id, func(u domain.User) bool { return u.ID == id })
	if err != nil {
		return domain.User{}, err
	}
	if !found {
		return domain.User{}, apperrors.NewNotFound("user", map[string]any{"id": id})
	}
	return user, nil
}

// List returns the accounts p may see.
func (s *UserService) List(ctx context.Context, p domain.Principal, q UserQuery) (UserPage, error) {
	ev := s.authz.Decide(nil)
	if err := ev.Authorize(p, policy.ResourceUsers, policy.ActionRead, q.Region).Err(); err != nil {
		return UserPage{}, err
	}
	page, err := s.store.GetUsers(ctx, gateway.ListQuery{
		Page:    q.Page,
		Limit:   q.Limit,
		Filters: map[string]string{"role": q.Role, "region": domain.CanonicalRegion(q.Region)},
	})
	if err != nil {
		return UserPage{}, err
	}
	users := make([]domain.User, 0, len(page.Items))
	for _, raw := range page.Items {
		users = append(users, s.normalize(ctx, raw))
	}
	visible := authz.FilterByRegion(ev, p, users)
	return UserPage{Items: visible, Pagination: scopedPagination(page.Pagination, len(users), len(visible))}, nil
}

// Create registers a staff account. Email addresses are unique.
func (s *UserService) Create(ctx context.Context, p domain.Principal, input UserInput) (domain.User, error) {
	ev := s.authz.Decide(nil)
	if err := ev.Authorize(p, policy.ResourceUsers, policy.ActionCreate, "").Err(); err != nil {
		return domain.User{}, err
	}

	details := map[string]any{}
	name := strings.Join(strings.Fields(input.Name), " ")
	if name == "" {
		details["name"] = "required"
	}
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if !validEmail(email) {
		details["email"] = "invalid email address"
	}
	role, ok := canonical.ParseRole(input.Role)
	if !ok {
		details["role"] = "unknown role"
	}
	region, known := knownRegion(input.Region)
	if !known {
		details["region"] = "unknown region"
	}
	if err := auth.ValidatePassword(input.Password, s.minPassword); err != nil {
		details["password"] = err.Error()
	}
	if len(details) > 0 {
		return domain.User{}, apperrors.NewValidationError("invalid user", details)
	}

	if err := ev.AuthorizeInstance(p, policy.ResourceUsers, policy.ActionCreate, region).Err(); err != nil {
		return domain.User{}, err
	}

	_, exists, err := s.findOne(ctx, "email", email, func(u domain.User) bool { return u.Email == email })
	if err != nil {
		return domain.User{}, err
	}
	if exists {
		return domain.User{}, apperrors.NewConflict("email already registered", map[string]any{"email": email})
	}

	hash, err := auth.HashPassword(input.Password, s.bcryptCost)
	if err != nil {
		return domain.User{}, apperrors.NewInternalError(err)
	}

	now := s.now().UTC()
	user := domain.User{
		Name:          name,
		Email:         email,
		PasswordHash:  hash,
		Role:          role,
		Region:        region,
		ServiceCenter: strings.TrimSpace(input.ServiceCenter),
		Active:        true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	attrs := canonical.UserAttributes(user)
	raw, err := s.store.CreateUser(ctx, attrs, domain.ActivityMeta{ActorID: p.ID, ActorRole: p.Role})
	if err != nil {
		return domain.User{}, err
	}
	saved := s.normalize(ctx, overlay(attrs, raw))

	s.publish(ctx, p, saved.ID, "created")
	return saved, nil
}

// Get returns one account p may read.
func (s *UserService) Get(ctx context.Context, p domain.Principal, id string) (domain.User, error) {
	return s.loadScoped(ctx, s.authz.Decide(nil), p, id, policy.ActionRead)
}

// Update applies patch to the account id. Moving an account to another region needs
// access to both regions.
func (s *UserService) Update(ctx context.Context, p domain.Principal, id string, patch UserPatch) (domain.User, error) {
	ev := s.authz.Decide(nil)
	current, err := s.loadScoped(ctx, ev, p, id, policy.ActionUpdate)
	if err != nil {
		return domain.User{}, err
	}

	next := current
	updates := canonical.Bag{}
	details := map[string]any{}
	if patch.Name != nil {
		name := strings.Join(strings.Fields(*patch.Name), " ")
		if name == "" {
			details["name"] = "required"
		}
		next.Name = name
		updates["name"] = name
	}
	if patch.Role != nil {
		role, ok := canonical.ParseRole(*patch.Role)
		if !ok {
			details["role"] = "unknown role"
		}
		next.Role = role
		updates["role"] = string(role)
	}
	if patch.Region != nil {
		region, known := knownRegion(*patch.Region)
		if !known {
			details["region"] = "unknown region"
		}
		next.Region = region
		updates["region"] = region
	}
	if patch.ServiceCenter != nil {
		next.ServiceCenter = strings.TrimSpace(*patch.ServiceCenter)
		updates["serviceCenter"] = next.ServiceCenter
	}
	if patch.Active != nil {
		if !*patch.Active && current.ID == p.ID {
			details["active"] = "cannot deactivate your own account"
		}
		next.Active = *patch.Active
		updates["active"] = next.Active
	}
	if len(details) > 0 {
		return domain.User{}, apperrors.NewValidationError("invalid user update", details)
	}
	if len(updates) == 0 {
		return current, nil
	}
	if !domain.SameRegion(current.Region, next.Region) {
		if err := ev.AuthorizeInstance(p, policy.ResourceUsers, policy.ActionUpdate, next.Region).Err(); err != nil {
			return domain.User{}, err
		}
	}

	next.UpdatedAt = s.now().UTC()
	updates["updatedAt"] = canonical.UserAttributes(next)["updatedAt"]

	raw, err := s.store.UpdateUser(ctx, gateway.UpdateRequest{
		ID:       current.ID,
		Updates:  updates,
		Activity: domain.ActivityMeta{ActorID: p.ID, ActorRole: p.Role},
	})
	if err != nil {
		return domain.User{}, err
	}
	saved := s.normalize(ctx, overlay(canonical.UserAttributes(next), raw))

	s.publish(ctx, p, saved.ID, "updated")
	return saved, nil
}

// Deactivate switches the account off. It needs delete permission and the
// canDeleteRecords capability, and never applies to the caller's own account.
func (s *UserService) Deactivate(ctx context.Context, p domain.Principal, id string) error {
	ev := s.authz.Decide(nil)
	current, err := s.loadScoped(ctx, ev, p, id, policy.ActionDelete)
	if err != nil {
		return err
	}
	if !ev.Capabilities(p).Has(policy.CapDeleteRecords) {
		return apperrors.NewPermissionDenied("deactivating accounts requires the canDeleteRecords capability", map[string]any{
			"capability": string(policy.CapDeleteRecords),
		})
	}
	if current.ID == p.ID {
		return apperrors.NewValidationError("cannot deactivate your own account", map[string]any{"id": id})
	}

	if err := s.store.DeleteUser(ctx, current.ID, domain.ActivityMeta{ActorID: p.ID, ActorRole: p.Role}); err != nil {
		return err
	}
	s.logger.Info("user deactivated", zap.String("user_id", current.ID), zap.String("principal_id", p.ID))
	s.publish(ctx, p, current.ID, "deactivated")
	return nil
}

// ResetPassword stores a new password for the account id.
func (s *UserService) ResetPassword(ctx context.Context, p domain.Principal, id, password string) error {
	ev := s.authz.Decide(nil)
	current, err := s.loadScoped(ctx, ev, p, id, policy.ActionUpdate)
	if err != nil {
		return err
	}
	if err := auth.ValidatePassword(password, s.minPassword); err != nil {
		if errors.Is(err, auth.ErrPasswordTooShort) {
			return apperrors.NewValidationError("password too short", map[string]any{"minLength": s.minPassword})
		}
		return apperrors.NewValidationError(err.Error(), nil)
	}
	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	if err := s.store.ResetUserPassword(ctx, current.ID, hash, domain.ActivityMeta{ActorID: p.ID, ActorRole: p.Role}); err != nil {
		return err
	}
	s.publish(ctx, p, current.ID, "password_reset")
	return nil
}

func (s *UserService) loadScoped(ctx context.Context, ev *authz.Evaluator, p domain.Principal, id string, action policy.Action) (domain.User, error) {
	if err := ev.Authorize(p, policy.ResourceUsers, action, "").Err(); err != nil {
		return domain.User{}, err
	}
	current, err := s.FindByID(ctx, id)
	if err != nil {
		return domain.User{}, err
	}
	if err := ev.AuthorizeInstance(p, policy.ResourceUsers, action, current.Region).Err(); err != nil {
		return domain.User{}, err
	}
	return current, nil
}

func (s *UserService) findOne(ctx context.Context, field, value string, match func(domain.User) bool) (domain.User, bool, error) {
	page, err := s.store.GetUsers(ctx, gateway.ListQuery{Filters: map[string]string{field: value}})
	if err != nil {
		return domain.User{}, false, err
	}
	for _, raw := range page.Items {
		user := s.normalize(ctx, raw)
		if match(user) {
			return user, true, nil
		}
	}
	return domain.User{}, false, nil
}

// normalize canonicalises a user row and drops the password hash.
func (s *UserService) normalize(ctx context.Context, raw canonical.Bag) domain.User {
	result := canonical.NormalizeUser(raw)
	s.quality.Report(ctx, "user", result.Entity.ID, result.Issues)
	user := result.Entity
	user.PasswordHash = ""
	return user
}

func (s *UserService) publish(ctx context.Context, p domain.Principal, userID, change string) {
	if s.dispatcher == nil {
		return
	}
	event := events.New(events.EventUserChanged, userID, events.ActorOf(p), s.now(), events.UserChangedPayload{Change: change})
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("event handler failed", zap.String("event", string(event.Type)), zap.Error(err))
	}
}
