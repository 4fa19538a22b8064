package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/complaint-service/internal/api/dto"
	"github.com/spec-kit/complaint-service/internal/service"
)

// CustomersHandler lists and registers customers.
type CustomersHandler struct {
	svc *service.CustomerService
}

// NewCustomersHandler constructs handler.
func NewCustomersHandler(svc *service.CustomerService) *CustomersHandler {
	return &CustomersHandler{svc: svc}
}

// List returns visible customers.
func (h *CustomersHandler) List(c *fiber.Ctx) error {
	principal, err := principalFrom(c)
	if err != nil {
		return err
	}
	page, limit := paging(c)
	result, err := h.svc.List(c.UserContext(), principal, service.CustomerQuery{
		Region: c.Query("region"),
		Search: c.Query("search"),
		Page:   page,
		Limit:  limit,
	})
	if err != nil {
		return err
	}

	items := make([]dto.CustomerResponse, 0, len(result.Items))
	for _, customer := range result.Items {
		items = append(items, customerResponse(customer))
	}
	return c.JSON(fiber.Map{"data": items, "pagination": result.Pagination})
}

// Create registers a customer.
func (h *CustomersHandler) Create(c *fiber.Ctx) error {
	principal, err := principalFrom(c)
	if err != nil {
		return err
	}
	var req dto.CustomerPayload
	if err := parseBody(c, &req); err != nil {
		return err
	}

	customer, err := h.svc.Create(c.UserContext(), principal, service.CustomerInput{
		Name:          req.Name,
		Email:         req.Email,
		Phone:         req.Phone,
		Address:       req.Address,
		Region:        req.Region,
		MeterNumber:   req.MeterNumber,
		AccountNumber: req.AccountNumber,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": customerResponse(customer)})
}
