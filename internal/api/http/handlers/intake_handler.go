package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/complaint-service/internal/api/dto"
	"github.com/spec-kit/complaint-service/internal/service"
)

// IntakeHandler accepts complaints from the public.
type IntakeHandler struct {
	svc *service.IntakeService
}

// NewIntakeHandler constructs handler.
func NewIntakeHandler(svc *service.IntakeService) *IntakeHandler {
	return &IntakeHandler{svc: svc}
}

// Submit records a public complaint and returns its reference.
func (h *IntakeHandler) Submit(c *fiber.Ctx) error {
	var req dto.PublicComplaintRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	receipt, err := h.svc.Submit(c.UserContext(), service.IntakeInput{
		Name:          req.Name,
		Email:         req.Email,
		Phone:         req.Phone,
		Address:       req.Address,
		Region:        req.Region,
		MeterNumber:   req.MeterNumber,
		AccountNumber: req.AccountNumber,
		Title:         req.Title,
		Description:   req.Description,
		Category:      req.Category,
		Priority:      req.Priority,
	})
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"data": dto.PublicComplaintResponse{
			Reference: receipt.Reference,
			Status:    string(receipt.Complaint.Status),
			Region:    receipt.Complaint.Region,
			CreatedAt: receipt.Complaint.CreatedAt,
		},
	})
}
