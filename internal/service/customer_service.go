package service

import (
	"context"
	"strings"
	"time"

	"github.com/spec-kit/complaint-service/internal/authz"
	"github.com/spec-kit/complaint-service/internal/canonical"
	"github.com/spec-kit/complaint-service/internal/domain"
	"github.com/spec-kit/complaint-service/internal/gateway"
	"github.com/spec-kit/complaint-service/internal/policy"
	apperrors "github.com/spec-kit/complaint-service/pkg/util"
)

// CustomerInput describes a customer registered by staff.
type CustomerInput struct {
	Name          string
	Email         string
	Phone         string
	Address       string
	Region        string
	MeterNumber   string
	AccountNumber string
}

// CustomerQuery filters a customer listing.
type CustomerQuery struct {
	Region string
	Search string
	Page   int
	Limit  int
}

// CustomerPage is one page of visible customers.
type CustomerPage struct {
	Items      []domain.Customer
	Pagination *domain.Pagination
}

// CustomerService reads and registers customers.
type CustomerService struct {
	store   gateway.CustomerStore
	authz   *authz.Engine
	quality *DataQualityReporter
	now     func() time.Time
}

// NewCustomerService builds the service. clock may be nil.
func NewCustomerService(store gateway.CustomerStore, engine *authz.Engine, quality *DataQualityReporter, clock func() time.Time) *CustomerService {
	if clock == nil {
		clock = time.Now
	}
	return &CustomerService{store: store, authz: engine, quality: quality, now: clock}
}

// List returns the customers p may see.
func (s *CustomerService) List(ctx context.Context, p domain.Principal, q CustomerQuery) (CustomerPage, error) {
	ev := s.authz.Decide(nil)
	if err := ev.Authorize(p, policy.ResourceCustomers, policy.ActionRead, q.Region).Err(); err != nil {
		return CustomerPage{}, err
	}
	page, err := s.store.GetCustomers(ctx, gateway.ListQuery{
		Page:    q.Page,
		Limit:   q.Limit,
		Filters: map[string]string{"region": domain.CanonicalRegion(q.Region), "search": strings.TrimSpace(q.Search)},
	})
	if err != nil {
		return CustomerPage{}, err
	}
	customers := make([]domain.Customer, 0, len(page.Items))
	for _, raw := range page.Items {
		result := canonical.NormalizeCustomer(raw)
		s.quality.Report(ctx, "customer", result.Entity.ID, result.Issues)
		customers = append(customers, result.Entity)
	}
	visible := authz.FilterByRegion(ev, p, customers)
	return CustomerPage{Items: visible, Pagination: scopedPagination(page.Pagination, len(customers), len(visible))}, nil
}

// Create registers a customer in a region p can reach.
func (s *CustomerService) Create(ctx context.Context, p domain.Principal, input CustomerInput) (domain.Customer, error) {
	ev := s.authz.Decide(nil)
	if err := ev.Authorize(p, policy.ResourceCustomers, policy.ActionCreate, "").Err(); err != nil {
		return domain.Customer{}, err
	}

	details := map[string]any{}
	name := strings.Join(strings.Fields(input.Name), " ")
	if name == "" {
		details["name"] = "required"
	}
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email != "" && !validEmail(email) {
		details["email"] = "invalid email address"
	}
	phone := compactPhone(input.Phone)
	if phone != "" && !phonePattern.MatchString(phone) {
		details["phone"] = "invalid phone number"
	}
	region, known := knownRegion(input.Region)
	if !known {
		details["region"] = "unknown region"
	}
	if len(details) > 0 {
		return domain.Customer{}, apperrors.NewValidationError("invalid customer", details)
	}
	if err := ev.AuthorizeInstance(p, policy.ResourceCustomers, policy.ActionCreate, region).Err(); err != nil {
		return domain.Customer{}, err
	}

	customer := domain.Customer{
		Name:          name,
		Email:         email,
		Phone:         phone,
		Address:       strings.TrimSpace(input.Address),
		Region:        region,
		MeterNumber:   strings.TrimSpace(input.MeterNumber),
		AccountNumber: strings.TrimSpace(input.AccountNumber),
		CreatedAt:     s.now().UTC(),
	}
	attrs := canonical.CustomerAttributes(customer)
	raw, err := s.store.CreateCustomer(ctx, attrs, domain.ActivityMeta{ActorID: p.ID, ActorRole: p.Role})
	if err != nil {
		return domain.Customer{}, err
	}
	result := canonical.NormalizeCustomer(overlay(attrs, raw))
	s.quality.Report(ctx, "customer", result.Entity.ID, result.Issues)
	return result.Entity, nil
}
