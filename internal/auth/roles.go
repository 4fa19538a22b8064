package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/complaint-service/internal/domain"
	"github.com/spec-kit/complaint-service/internal/policy"
	apperrors "github.com/spec-kit/complaint-service/pkg/util"
)

// Checker answers coarse CRUD questions; implemented by authz.Engine.
type Checker interface {
	Can(p domain.Principal, resource policy.Resource, action policy.Action) bool
}

// RequirePermission rejects callers whose role lacks action on resource. Region checks
// stay in the services, which know the instance being touched.
func RequirePermission(checker Checker, resource policy.Resource, action policy.Action) fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		if !checker.Can(principal, resource, action) {
			return apperrors.NewPermissionDenied("insufficient permissions", map[string]any{
				"resource": string(resource),
				"action":   string(action),
			})
		}
		return c.Next()
	}
}

// RequireAuthenticated ensures a principal was loaded.
func RequireAuthenticated() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, ok := PrincipalFromContext(c); !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		return c.Next()
	}
}
