package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/complaint-service/internal/auth"
	"github.com/spec-kit/complaint-service/internal/config"
	"github.com/spec-kit/complaint-service/internal/domain"
	apperrors "github.com/spec-kit/complaint-service/pkg/util"
)

func TestAuthLogin(t *testing.T) {
	hash, err := auth.HashPassword("correct horse battery", bcrypt.MinCost)
	require.NoError(t, err)

	active := userRecord("u-1", "foreman@utility.example", "foreman", "Amhara")
	active["passwordHash"] = hash
	inactive := userRecord("u-2", "gone@utility.example", "technician", "Amhara")
	inactive["passwordHash"] = hash
	inactive["active"] = "deactivated"

	store := newFakeUserStore(active, inactive)
	cfg := config.Config{Auth: config.AuthConfig{JWTSecret: "test-secret", AccessTokenTTLMinutes: 15}}
	svc := NewAuthService(cfg, AuthDependencies{Store: store})
	ctx := context.Background()

	user, token, exp, err := svc.Login(ctx, " Foreman@Utility.example ", "correct horse battery")
	require.NoError(t, err)
	assert.Equal(t, "u-1", user.ID)
	assert.Empty(t, user.PasswordHash)
	assert.False(t, exp.IsZero())

	claims, err := svc.TokenManager().ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, "u-1", claims.UserID)
	assert.Equal(t, domain.RoleForeman, claims.Role)
	assert.Equal(t, "Amhara", claims.Region)

	_, _, _, err = svc.Login(ctx, "foreman@utility.example", "wrong")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeUnauthorized))

	_, _, _, err = svc.Login(ctx, "gone@utility.example", "correct horse battery")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeUnauthorized))

	_, _, _, err = svc.Login(ctx, "nobody@utility.example", "correct horse battery")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeUnauthorized))

	_, _, _, err = svc.Login(ctx, "", "")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))

	store.failWith = apperrors.NewConnectivityError(errors.New("dial tcp: refused"))
	_, _, _, err = svc.Login(ctx, "foreman@utility.example", "correct horse battery")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeConnectivity))
}
