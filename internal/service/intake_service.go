package service

import (
	"context"
	"net/mail"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/complaint-service/internal/canonical"
	"github.com/spec-kit/complaint-service/internal/domain"
	"github.com/spec-kit/complaint-service/internal/events"
	"github.com/spec-kit/complaint-service/internal/gateway"
	"github.com/spec-kit/complaint-service/internal/ids"
	apperrors "github.com/spec-kit/complaint-service/pkg/util"
)

// PublicActorID is recorded as the actor of self-service submissions.
const PublicActorID = "public"

var phonePattern = regexp.MustCompile(`^\+?[0-9]{7,15}$`)

// IntakeInput is a complaint submitted by a customer without an account.
type IntakeInput struct {
	Name          string
	Email         string
	Phone         string
	Address       string
	Region        string
	MeterNumber   string
	AccountNumber string
	Title         string
	Description   string
	Category      string
	Priority      string
}

// IntakeReceipt is returned to the submitter.
type IntakeReceipt struct {
	Reference string
	Complaint domain.Complaint
}

// IntakeService records public complaint submissions.
type IntakeService struct {
	customers  gateway.CustomerStore
	complaints gateway.ComplaintStore
	quality    *DataQualityReporter
	dispatcher events.Dispatcher
	logger     *zap.Logger
	now        func() time.Time
}

// IntakeDependencies encapsulates requirements for the intake service.
type IntakeDependencies struct {
	Customers  gateway.CustomerStore
	Complaints gateway.ComplaintStore
	Quality    *DataQualityReporter
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
	Clock      func() time.Time
}

// NewIntakeService builds the service.
func NewIntakeService(deps IntakeDependencies) *IntakeService {
	svc := &IntakeService{
		customers:  deps.Customers,
		complaints: deps.Complaints,
		quality:    deps.Quality,
		dispatcher: deps.Dispatcher,
		logger:     deps.Logger,
		now:        deps.Clock,
	}
	if svc.logger == nil {
		svc.logger = zap.NewNop()
	}
	if svc.now == nil {
		svc.now = time.Now
	}
	return svc
}

// Submit validates the submission, registers the customer and opens the complaint.
func (s *IntakeService) Submit(ctx context.Context, input IntakeInput) (IntakeReceipt, error) {
	customer, complaint, err := s.validate(input)
	if err != nil {
		return IntakeReceipt{}, err
	}

	now := s.now().UTC()
	complaint.ID = ids.ComplaintReference(now)
	complaint.CreatedAt = now
	complaint.UpdatedAt = now
	complaint.CreatedBy = PublicActorID
	complaint.UpdatedBy = PublicActorID
	customer.CreatedAt = now
	meta := domain.ActivityMeta{ActorID: PublicActorID, RelatedComplaintID: complaint.ID}

	rawCustomer, err := s.customers.CreateCustomer(ctx, canonical.CustomerAttributes(customer), meta)
	if err != nil {
		s.logger.Warn("intake customer registration failed", zap.String("reference", complaint.ID), zap.Error(err))
		return IntakeReceipt{}, err
	}
	stored := canonical.NormalizeCustomer(overlay(canonical.CustomerAttributes(customer), rawCustomer))
	s.quality.Report(ctx, "customer", stored.Entity.ID, stored.Issues)
	complaint.Customer = stored.Entity.Ref()

	saved, err := createComplaint(ctx, s.complaints, s.quality, complaint, meta)
	if err != nil {
		s.logger.Warn("intake complaint creation failed",
			zap.String("reference", complaint.ID),
			zap.String("orphaned_customer_id", stored.Entity.ID),
			zap.Error(err),
		)
		return IntakeReceipt{}, withRegisteredCustomer(err, stored.Entity.ID, complaint.ID)
	}

	if s.dispatcher != nil {
		event := events.New(events.EventComplaintCreated, saved.ID, events.Actor{ID: PublicActorID}, now, events.ComplaintCreatedPayload{
			Region:   saved.Region,
			Category: saved.Category,
			Priority: saved.Priority,
			Title:    saved.Title,
			Public:   true,
		})
		if err := s.dispatcher.Publish(ctx, event); err != nil {
			s.logger.Warn("event handler failed", zap.String("event", string(event.Type)), zap.Error(err))
		}
	}

	reference := saved.ID
	if !ids.IsComplaintReference(reference) {
		s.logger.Warn("record store replaced the intake reference",
			zap.String("reference", complaint.ID),
			zap.String("record_id", saved.ID),
		)
		reference = complaint.ID
	}

	s.logger.Info("public complaint received", zap.String("reference", reference), zap.String("region", saved.Region))
	return IntakeReceipt{Reference: reference, Complaint: saved}, nil
}

// withRegisteredCustomer names the customer record that was already created so a retry
// can be reconciled against it.
func withRegisteredCustomer(err error, customerID, reference string) error {
	original := apperrors.ToDomainError(err)
	annotated := *original
	annotated.Details = make(map[string]any, len(original.Details)+2)
	for k, v := range original.Details {
		annotated.Details[k] = v
	}
	annotated.Details["customerId"] = customerID
	annotated.Details["reference"] = reference
	return &annotated
}

func (s *IntakeService) validate(input IntakeInput) (domain.Customer, domain.Complaint, error) {
	details := map[string]any{}

	name := strings.Join(strings.Fields(input.Name), " ")
	if name == "" {
		details["name"] = "required"
	}
	email := strings.ToLower(strings.TrimSpace(input.Email))
	phone := compactPhone(input.Phone)
	switch {
	case email == "" && phone == "":
		details["contact"] = "phone or email is required"
	default:
		if email != "" && !validEmail(email) {
			details["email"] = "invalid email address"
		}
		if phone != "" && !phonePattern.MatchString(phone) {
			details["phone"] = "invalid phone number"
		}
	}
	region, known := knownRegion(input.Region)
	if !known {
		details["region"] = "unknown region"
	}
	title := strings.TrimSpace(input.Title)
	if title == "" {
		details["title"] = "required"
	}
	description := strings.TrimSpace(input.Description)
	if description == "" {
		details["description"] = "required"
	}

	priority := domain.PriorityMedium
	if strings.TrimSpace(input.Priority) != "" {
		parsed, ok := canonical.ParsePriority(input.Priority)
		if !ok || parsed.Restricted() {
			details["priority"] = "must be low or medium"
		}
		priority = parsed
	}
	category := domain.CategoryOther
	if strings.TrimSpace(input.Category) != "" {
		parsed, ok := canonical.ParseCategory(input.Category)
		if !ok {
			details["category"] = "unknown category"
		}
		category = parsed
	}

	if len(details) > 0 {
		return domain.Customer{}, domain.Complaint{}, apperrors.NewValidationError("invalid submission", details)
	}

	customer := domain.Customer{
		Name:          name,
		Email:         email,
		Phone:         phone,
		Address:       strings.TrimSpace(input.Address),
		Region:        region,
		MeterNumber:   strings.TrimSpace(input.MeterNumber),
		AccountNumber: strings.TrimSpace(input.AccountNumber),
	}
	complaint := domain.Complaint{
		Customer:    customer.Ref(),
		Title:       title,
		Description: description,
		Category:    category,
		Region:      region,
		Priority:    priority,
		Status:      domain.StatusOpen,
	}
	return customer, complaint, nil
}

func compactPhone(raw string) string {
	return strings.NewReplacer(" ", "", "-", "", "(", "", ")", "").Replace(strings.TrimSpace(raw))
}

func validEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email
}

func knownRegion(raw string) (string, bool) {
	region := domain.CanonicalRegion(raw)
	for _, known := range domain.KnownRegions {
		if region == known {
			return region, true
		}
	}
	return region, false
}
