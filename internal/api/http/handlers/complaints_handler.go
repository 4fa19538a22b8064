package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/complaint-service/internal/api/dto"
	"github.com/spec-kit/complaint-service/internal/canonical"
	"github.com/spec-kit/complaint-service/internal/domain"
	"github.com/spec-kit/complaint-service/internal/service"
)

// ComplaintsHandler exposes complaint lifecycle endpoints to staff.
type ComplaintsHandler struct {
	svc *service.ComplaintService
}

// NewComplaintsHandler constructs handler.
func NewComplaintsHandler(svc *service.ComplaintService) *ComplaintsHandler {
	return &ComplaintsHandler{svc: svc}
}

// List returns the complaints visible to the caller.
func (h *ComplaintsHandler) List(c *fiber.Ctx) error {
	principal, err := principalFrom(c)
	if err != nil {
		return err
	}
	page, limit := paging(c)
	result, err := h.svc.List(c.UserContext(), principal, service.ComplaintQuery{
		Status:     c.Query("status"),
		Priority:   c.Query("priority"),
		Region:     c.Query("region"),
		AssignedTo: c.Query("assigned_to"),
		Page:       page,
		Limit:      limit,
	})
	if err != nil {
		return err
	}

	items := make([]dto.ComplaintResponse, 0, len(result.Items))
	for _, view := range result.Items {
		items = append(items, complaintResponse(view))
	}
	return c.JSON(fiber.Map{"data": items, "pagination": result.Pagination})
}

// Get returns one complaint.
func (h *ComplaintsHandler) Get(c *fiber.Ctx) error {
	principal, err := principalFrom(c)
	if err != nil {
		return err
	}
	view, err := h.svc.Get(c.UserContext(), principal, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": complaintResponse(view)})
}

// Create records a complaint entered by staff.
func (h *ComplaintsHandler) Create(c *fiber.Ctx) error {
	principal, err := principalFrom(c)
	if err != nil {
		return err
	}
	var req dto.CreateComplaintRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	view, err := h.svc.Create(c.UserContext(), principal, service.ComplaintInput{
		Customer: domain.CustomerRef{
			ID:            trimmed(req.Customer.ID),
			Name:          trimmed(req.Customer.Name),
			Email:         trimmed(req.Customer.Email),
			Phone:         trimmed(req.Customer.Phone),
			Address:       trimmed(req.Customer.Address),
			Region:        trimmed(req.Customer.Region),
			MeterNumber:   trimmed(req.Customer.MeterNumber),
			AccountNumber: trimmed(req.Customer.AccountNumber),
		},
		Title:               req.Title,
		Description:         req.Description,
		Category:            req.Category,
		Region:              req.Region,
		Priority:            req.Priority,
		AssignedTo:          req.AssignedTo,
		Note:                req.Note,
		Attachments:         req.Attachments,
		EstimatedResolution: req.EstimatedResolution,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": complaintResponse(view)})
}

// Transition moves a complaint to a new status.
func (h *ComplaintsHandler) Transition(c *fiber.Ctx) error {
	var req dto.TransitionRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	status, ok := canonical.ParseStatus(req.Status)
	if !ok {
		// the service reports the unknown status with the allowed set
		status = domain.ComplaintStatus(req.Status)
	}
	return h.mutate(c, func(p domain.Principal, current domain.Complaint) (domain.Complaint, error) {
		return h.svc.RequestTransition(c.UserContext(), p, current, status, service.TransitionContext{
			WorkClassification: req.WorkClassification,
			Notes:              req.Notes,
			ExpectedVersion:    req.ExpectedVersion,
		})
	})
}

// Assign hands a complaint to a staff member.
func (h *ComplaintsHandler) Assign(c *fiber.Ctx) error {
	var req dto.AssignRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	return h.mutate(c, func(p domain.Principal, current domain.Complaint) (domain.Complaint, error) {
		return h.svc.Assign(c.UserContext(), p, current, trimmed(req.AssigneeID))
	})
}

// Priority changes a complaint's urgency.
func (h *ComplaintsHandler) Priority(c *fiber.Ctx) error {
	var req dto.PriorityRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	priority, ok := canonical.ParsePriority(req.Priority)
	if !ok {
		priority = domain.Priority(req.Priority)
	}
	return h.mutate(c, func(p domain.Principal, current domain.Complaint) (domain.Complaint, error) {
		return h.svc.SetPriority(c.UserContext(), p, current, priority)
	})
}

func (h *ComplaintsHandler) mutate(c *fiber.Ctx, op func(domain.Principal, domain.Complaint) (domain.Complaint, error)) error {
	principal, err := principalFrom(c)
	if err != nil {
		return err
	}
	current, err := h.svc.Get(c.UserContext(), principal, c.Params("id"))
	if err != nil {
		return err
	}
	saved, err := op(principal, current.Complaint)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": complaintResponse(h.svc.View(saved, nil))})
}
