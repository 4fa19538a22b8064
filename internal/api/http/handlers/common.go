package handlers

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/complaint-service/internal/api/dto"
	"github.com/spec-kit/complaint-service/internal/auth"
	"github.com/spec-kit/complaint-service/internal/domain"
	"github.com/spec-kit/complaint-service/internal/service"
	apperrors "github.com/spec-kit/complaint-service/pkg/util"
)

const maxPageSize = 200

func principalFrom(c *fiber.Ctx) (domain.Principal, error) {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return domain.Principal{}, apperrors.NewUnauthorized("authentication required")
	}
	return principal, nil
}

func parseBody(c *fiber.Ctx, dst any) error {
	if err := c.BodyParser(dst); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	return nil
}

func paging(c *fiber.Ctx) (int, int) {
	page := c.QueryInt("page", 1)
	if page < 1 {
		page = 1
	}
	limit := c.QueryInt("limit", 50)
	if limit < 1 {
		limit = 50
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	return page, limit
}

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	utc := t.UTC()
	return &utc
}

func complaintResponse(view service.ComplaintView) dto.ComplaintResponse {
	c := view.Complaint
	notes := c.Notes
	if notes == nil {
		notes = []string{}
	}
	attachments := c.Attachments
	if attachments == nil {
		attachments = []string{}
	}
	resp := dto.ComplaintResponse{
		ID:                 c.ID,
		Customer:           customerRefResponse(c.Customer),
		Title:              c.Title,
		Description:        c.Description,
		Category:           c.Category,
		Region:             c.Region,
		Priority:           c.Priority,
		Status:             c.Status,
		WorkClassification: c.WorkClassification,
		AssignedTo:         c.AssignedTo,
		AssignedBy:         c.AssignedBy,
		CreatedBy:          c.CreatedBy,
		UpdatedBy:          c.UpdatedBy,
		Notes:              notes,
		Attachments:        attachments,
		CreatedAt:          timePtr(c.CreatedAt),
		UpdatedAt:          timePtr(c.UpdatedAt),
		Overdue:            view.Overdue,
		Version:            c.Version,
		DataQuality:        view.Issues,
	}
	if c.ResolvedAt != nil {
		resp.ResolvedAt = timePtr(*c.ResolvedAt)
	}
	if c.EstimatedResolution != nil {
		resp.EstimatedResolution = timePtr(*c.EstimatedResolution)
	}
	return resp
}

func customerRefResponse(ref domain.CustomerRef) dto.CustomerResponse {
	return customerResponse(domain.Customer{
		ID:            ref.ID,
		Name:          ref.Name,
		Email:         ref.Email,
		Phone:         ref.Phone,
		Address:       ref.Address,
		Region:        ref.Region,
		MeterNumber:   ref.MeterNumber,
		AccountNumber: ref.AccountNumber,
	})
}

func customerResponse(c domain.Customer) dto.CustomerResponse {
	return dto.CustomerResponse{
		ID:            c.ID,
		Name:          c.Name,
		Email:         c.Email,
		Phone:         c.DisplayPhone(),
		Address:       c.Address,
		Region:        c.Region,
		MeterNumber:   c.MeterNumber,
		AccountNumber: c.AccountNumber,
		CreatedAt:     timePtr(c.CreatedAt),
	}
}

func userResponse(u domain.User) dto.UserResponse {
	return dto.UserResponse{
		ID:            u.ID,
		Name:          u.Name,
		Email:         u.Email,
		Role:          string(u.Role),
		Region:        u.Region,
		ServiceCenter: u.ServiceCenter,
		Active:        u.Active,
		CreatedAt:     timePtr(u.CreatedAt),
	}
}

func trimmed(s string) string { return strings.TrimSpace(s) }
