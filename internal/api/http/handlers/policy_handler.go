package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/complaint-service/internal/api/dto"
	"github.com/spec-kit/complaint-service/internal/authz"
	"github.com/spec-kit/complaint-service/internal/canonical"
	"github.com/spec-kit/complaint-service/internal/domain"
	"github.com/spec-kit/complaint-service/internal/policy"
	"github.com/spec-kit/complaint-service/internal/service"
	apperrors "github.com/spec-kit/complaint-service/pkg/util"
)

// PolicyHandler reads and edits the permission matrix and answers access checks.
type PolicyHandler struct {
	svc    *service.PolicyService
	engine *authz.Engine
}

// NewPolicyHandler constructs handler.
func NewPolicyHandler(svc *service.PolicyService, engine *authz.Engine) *PolicyHandler {
	return &PolicyHandler{svc: svc, engine: engine}
}

// Current returns the policy in effect.
func (h *PolicyHandler) Current(c *fiber.Ctx) error {
	principal, err := principalFrom(c)
	if err != nil {
		return err
	}
	snapshot, err := h.svc.Current(principal)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": policyResponse(snapshot)})
}

// UpdatePermissions replaces one role/resource entry.
func (h *PolicyHandler) UpdatePermissions(c *fiber.Ctx) error {
	principal, err := principalFrom(c)
	if err != nil {
		return err
	}
	var req dto.UpdatePermissionsRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	role, ok := canonical.ParseRole(req.Role)
	if !ok {
		role = domain.Role(req.Role)
	}

	snapshot, err := h.svc.UpdatePermissions(c.UserContext(), principal, role, policy.Resource(req.Resource), req.Permissions)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": policyResponse(snapshot)})
}

// Check reports whether the caller may perform an action, without performing it.
func (h *PolicyHandler) Check(c *fiber.Ctx) error {
	principal, err := principalFrom(c)
	if err != nil {
		return err
	}
	var req dto.AuthzCheckRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	resource := policy.Resource(req.Resource)
	if !resource.Valid() {
		return apperrors.NewValidationError("unknown resource", map[string]any{"resource": req.Resource})
	}
	action, ok := policy.ParseAction(req.Action)
	if !ok {
		return apperrors.NewValidationError("unknown action", map[string]any{"action": req.Action})
	}

	ev := h.engine.Decide(nil)
	decision := ev.Authorize(principal, resource, action, domain.CanonicalRegion(req.Region))
	regions := ev.AccessibleRegions(principal)
	capabilities := ev.Capabilities(principal).List()
	if capabilities == nil {
		capabilities = []policy.Capability{}
	}
	regionList := regions.List()
	if regionList == nil {
		regionList = []string{}
	}

	return c.JSON(fiber.Map{"data": dto.AuthzCheckResponse{
		Allowed:       decision.Allowed,
		Reason:        decision.Reason,
		PolicyVersion: decision.PolicyVersion,
		Regions:       regionList,
		AllRegions:    regions.All(),
		Capabilities:  capabilities,
	}})
}

func policyResponse(s *policy.Snapshot) dto.PolicyResponse {
	return dto.PolicyResponse{
		Version:   s.Version(),
		UpdatedAt: s.UpdatedAt(),
		UpdatedBy: s.UpdatedBy(),
		Document:  s.Document(),
	}
}
