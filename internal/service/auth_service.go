package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/complaint-service/internal/auth"
	"github.com/spec-kit/complaint-service/internal/canonical"
	"github.com/spec-kit/complaint-service/internal/config"
	"github.com/spec-kit/complaint-service/internal/domain"
	"github.com/spec-kit/complaint-service/internal/gateway"
	apperrors "github.com/spec-kit/complaint-service/pkg/util"
)

// AuthService coordinates staff login.
type AuthService struct {
	store    gateway.UserStore
	tokenMgr *auth.TokenManager
	quality  *DataQualityReporter
	logger   *zap.Logger
}

// AuthDependencies encapsulates requirements for the auth service.
type AuthDependencies struct {
	Store   gateway.UserStore
	Quality *DataQualityReporter
	Logger  *zap.Logger
}

// NewAuthService builds the service.
func NewAuthService(cfg config.Config, deps AuthDependencies) *AuthService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		store:    deps.Store,
		tokenMgr: auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes),
		quality:  deps.Quality,
		logger:   logger,
	}
}

// Login verifies the password against the stored hash and issues an access token. Unknown
// accounts, wrong passwords and deactivated accounts all read as invalid credentials.
func (s *AuthService) Login(ctx context.Context, email, password string) (domain.User, string, time.Time, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return domain.User{}, "", time.Time{}, apperrors.NewValidationError("email and password are required", nil)
	}

	raw, err := s.store.Login(ctx, email)
	if err != nil {
		if apperrors.HasCode(err, apperrors.CodeNotFound) {
			return domain.User{}, "", time.Time{}, apperrors.NewUnauthorized("invalid credentials")
		}
		return domain.User{}, "", time.Time{}, err
	}

	result := canonical.NormalizeUser(raw)
	s.quality.Report(ctx, "user", result.Entity.ID, result.Issues)
	user := result.Entity

	if user.ID == "" || auth.ComparePassword(user.PasswordHash, password) != nil {
		s.logger.Info("login rejected", zap.String("email", email))
		return domain.User{}, "", time.Time{}, apperrors.NewUnauthorized("invalid credentials")
	}
	if !user.Active {
		s.logger.Info("login for inactive account", zap.String("user_id", user.ID))
		return domain.User{}, "", time.Time{}, apperrors.NewUnauthorized("invalid credentials")
	}

	token, exp, err := s.tokenMgr.GenerateToken(user)
	if err != nil {
		return domain.User{}, "", time.Time{}, apperrors.NewInternalError(err)
	}
	user.PasswordHash = ""
	return user, token, exp, nil
}

// TokenManager exposes token helper.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}
