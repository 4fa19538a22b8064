package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/complaint-service/internal/authz"
	"github.com/spec-kit/complaint-service/internal/canonical"
	"github.com/spec-kit/complaint-service/internal/domain"
	"github.com/spec-kit/complaint-service/internal/events"
	"github.com/spec-kit/complaint-service/internal/gateway"
	"github.com/spec-kit/complaint-service/internal/ids"
	"github.com/spec-kit/complaint-service/internal/policy"
	apperrors "github.com/spec-kit/complaint-service/pkg/util"
)

// DefaultOverdueAfter is the age past which an unsettled complaint counts as overdue.
const DefaultOverdueAfter = 7 * 24 * time.Hour

// IsOverdue reports whether c has been open for more than seven days. It is derived on
// demand and never stored.
func IsOverdue(c domain.Complaint, now time.Time) bool {
	return IsOverdueAfter(c, now, DefaultOverdueAfter)
}

// IsOverdueAfter is IsOverdue with a configurable threshold.
func IsOverdueAfter(c domain.Complaint, now time.Time, threshold time.Duration) bool {
	if c.CreatedAt.IsZero() || c.Status.Settled() {
		return false
	}
	return now.Sub(c.CreatedAt) > threshold
}

// TransitionContext carries the optional inputs of a status change.
type TransitionContext struct {
	WorkClassification string
	Notes              string
	// ExpectedVersion overrides the version sent under strict concurrency; zero means the
	// version of the complaint passed in.
	ExpectedVersion int64
}

// ComplaintInput is a staff-entered complaint.
type ComplaintInput struct {
	Customer            domain.CustomerRef
	Title               string
	Description         string
	Category            string
	Region              string
	Priority            string
	AssignedTo          string
	Note                string
	Attachments         []string
	EstimatedResolution *time.Time
}

// ComplaintQuery filters a complaint listing.
type ComplaintQuery struct {
	Status     string
	Priority   string
	Region     string
	AssignedTo string
	Page       int
	Limit      int
}

// ComplaintView is a canonical complaint with its derived flags.
type ComplaintView struct {
	Complaint domain.Complaint
	Overdue   bool
	Issues    []canonical.Issue
}

// ComplaintPage is one page of visible complaints.
type ComplaintPage struct {
	Items      []ComplaintView
	Pagination *domain.Pagination
}

// ComplaintService is the complaint lifecycle engine.
type ComplaintService struct {
	store        gateway.ComplaintStore
	authz        *authz.Engine
	dispatcher   events.Dispatcher
	quality      *DataQualityReporter
	logger       *zap.Logger
	now          func() time.Time
	overdueAfter time.Duration
	strict       bool
}

// ComplaintDependencies encapsulates requirements for the complaint service.
type ComplaintDependencies struct {
	Store             gateway.ComplaintStore
	Authz             *authz.Engine
	Dispatcher        events.Dispatcher
	Quality           *DataQualityReporter
	Logger            *zap.Logger
	Clock             func() time.Time
	OverdueAfter      time.Duration
	StrictConcurrency bool
}

// NewComplaintService builds the service.
func NewComplaintService(deps ComplaintDependencies) *ComplaintService {
	svc := &ComplaintService{
		store:        deps.Store,
		authz:        deps.Authz,
		dispatcher:   deps.Dispatcher,
		quality:      deps.Quality,
		logger:       deps.Logger,
		now:          deps.Clock,
		overdueAfter: deps.OverdueAfter,
		strict:       deps.StrictConcurrency,
	}
	if svc.logger == nil {
		svc.logger = zap.NewNop()
	}
	if svc.now == nil {
		svc.now = time.Now
	}
	if svc.overdueAfter <= 0 {
		svc.overdueAfter = DefaultOverdueAfter
	}
	return svc
}

// View derives the read model of c at the current time.
func (s *ComplaintService) View(c domain.Complaint, issues []canonical.Issue) ComplaintView {
	return ComplaintView{Complaint: c, Overdue: IsOverdueAfter(c, s.now(), s.overdueAfter), Issues: issues}
}

// RequestTransition moves c to newStatus. On any failure the returned complaint is the
// untouched input.
func (s *ComplaintService) RequestTransition(ctx context.Context, p domain.Principal, c domain.Complaint, newStatus domain.ComplaintStatus, tc TransitionContext) (domain.Complaint, error) {
	if err := s.authz.AuthorizeInstance(p, policy.ResourceComplaints, policy.ActionUpdate, c.Region).Err(); err != nil {
		return c, err
	}
	if !newStatus.Valid() {
		return c, apperrors.NewValidationError("unknown complaint status", map[string]any{"status": string(newStatus)})
	}
	classification := strings.TrimSpace(tc.WorkClassification)
	if newStatus == domain.StatusResolved && classification == "" {
		return c, apperrors.NewValidationError("work classification is required to resolve a complaint", map[string]any{"field": "workClassification"})
	}

	now := s.now().UTC()
	next := c.Clone()
	next.Status = newStatus
	fields := []string{"status", "resolvedAt", "updatedAt", "updatedBy"}

	if newStatus == domain.StatusResolved {
		if c.Status != domain.StatusResolved || c.ResolvedAt == nil {
			resolvedAt := now
			next.ResolvedAt = &resolvedAt
		}
		next.WorkClassification = classification
		fields = append(fields, "workClassification")
	} else {
		next.ResolvedAt = nil
	}

	note := canonical.CleanNote(tc.Notes)
	if note != "" {
		next.Notes = append(next.Notes, note)
		fields = append(fields, "notes")
	}
	next.UpdatedAt = now
	next.UpdatedBy = p.ID

	saved, err := s.persist(ctx, p, c, next, fields, tc.ExpectedVersion)
	if err != nil {
		return c, err
	}

	s.publish(ctx, events.EventComplaintStatusChanged, saved.ID, p, events.ComplaintStatusChangedPayload{
		OldStatus:          c.Status,
		NewStatus:          saved.Status,
		WorkClassification: next.WorkClassification,
		Note:               note,
	})
	return saved, nil
}

// Assign sets the assignee of c. Taking a complaint away from another assignee also needs
// the canAssignComplaints capability.
func (s *ComplaintService) Assign(ctx context.Context, p domain.Principal, c domain.Complaint, assigneeID string) (domain.Complaint, error) {
	ev := s.authz.Decide(nil)
	if err := ev.AuthorizeInstance(p, policy.ResourceComplaints, policy.ActionUpdate, c.Region).Err(); err != nil {
		return c, err
	}
	assigneeID = strings.TrimSpace(assigneeID)
	if assigneeID == "" {
		return c, apperrors.NewValidationError("assignee is required", map[string]any{"field": "assignedTo"})
	}
	reassigning := c.AssignedTo != "" && c.AssignedTo != assigneeID
	if reassigning && !ev.Capabilities(p).Has(policy.CapAssignComplaints) {
		return c, apperrors.NewPermissionDenied("reassigning a complaint requires the canAssignComplaints capability", map[string]any{
			"capability": string(policy.CapAssignComplaints),
		})
	}

	now := s.now().UTC()
	next := c.Clone()
	next.AssignedTo = assigneeID
	next.AssignedBy = p.ID
	next.UpdatedAt = now
	next.UpdatedBy = p.ID

	saved, err := s.persist(ctx, p, c, next, []string{"assignedTo", "assignedBy", "updatedAt", "updatedBy"}, 0)
	if err != nil {
		return c, err
	}

	s.publish(ctx, events.EventComplaintAssigned, saved.ID, p, events.ComplaintAssignedPayload{
		PreviousAssignee: c.AssignedTo,
		Assignee:         saved.AssignedTo,
	})
	return saved, nil
}

// SetPriority changes the priority of c. High and critical need canSetHighPriority.
func (s *ComplaintService) SetPriority(ctx context.Context, p domain.Principal, c domain.Complaint, priority domain.Priority) (domain.Complaint, error) {
	ev := s.authz.Decide(nil)
	if err := ev.AuthorizeInstance(p, policy.ResourceComplaints, policy.ActionUpdate, c.Region).Err(); err != nil {
		return c, err
	}
	if !priority.Valid() {
		return c, apperrors.NewValidationError("unknown priority", map[string]any{"priority": string(priority)})
	}
	if err := requireHighPriority(ev, p, priority); err != nil {
		return c, err
	}

	now := s.now().UTC()
	next := c.Clone()
	next.Priority = priority
	next.UpdatedAt = now
	next.UpdatedBy = p.ID

	saved, err := s.persist(ctx, p, c, next, []string{"priority", "updatedAt", "updatedBy"}, 0)
	if err != nil {
		return c, err
	}

	s.publish(ctx, events.EventComplaintPriorityChanged, saved.ID, p, events.ComplaintPriorityChangedPayload{
		OldPriority: c.Priority,
		NewPriority: saved.Priority,
	})
	return saved, nil
}

// Create records a complaint entered by staff. New complaints always start open.
func (s *ComplaintService) Create(ctx context.Context, p domain.Principal, input ComplaintInput) (ComplaintView, error) {
	ev := s.authz.Decide(nil)
	if err := ev.Authorize(p, policy.ResourceComplaints, policy.ActionCreate, "").Err(); err != nil {
		return ComplaintView{}, err
	}

	region := domain.CanonicalRegion(input.Region)
	if region == "" {
		region = domain.CanonicalRegion(input.Customer.Region)
	}
	details := map[string]any{}
	if region == "" {
		details["region"] = "required"
	}
	if strings.TrimSpace(input.Title) == "" {
		details["title"] = "required"
	}
	if strings.TrimSpace(input.Description) == "" {
		details["description"] = "required"
	}
	if strings.TrimSpace(input.Customer.Name) == "" {
		details["customer.name"] = "required"
	}
	priority, ok := canonical.ParsePriority(input.Priority)
	if !ok && strings.TrimSpace(input.Priority) != "" {
		details["priority"] = "must be one of low, medium, high, critical"
	}
	category, ok := canonical.ParseCategory(input.Category)
	if !ok && strings.TrimSpace(input.Category) != "" {
		details["category"] = "unknown category"
	}
	if len(details) > 0 {
		return ComplaintView{}, apperrors.NewValidationError("invalid complaint", details)
	}

	if err := ev.AuthorizeInstance(p, policy.ResourceComplaints, policy.ActionCreate, region).Err(); err != nil {
		return ComplaintView{}, err
	}
	if err := requireHighPriority(ev, p, priority); err != nil {
		return ComplaintView{}, err
	}

	now := s.now().UTC()
	complaint := domain.Complaint{
		ID:                  ids.ComplaintReference(now),
		Customer:            input.Customer,
		Title:               strings.TrimSpace(input.Title),
		Description:         strings.TrimSpace(input.Description),
		Category:            category,
		Region:              region,
		Priority:            priority,
		Status:              domain.StatusOpen,
		CreatedAt:           now,
		UpdatedAt:           now,
		EstimatedResolution: input.EstimatedResolution,
		CreatedBy:           p.ID,
		UpdatedBy:           p.ID,
		Attachments:         input.Attachments,
	}
	complaint.Customer.Region = domain.CanonicalRegion(complaint.Customer.Region)
	complaint.Customer.Email = strings.ToLower(strings.TrimSpace(complaint.Customer.Email))
	if assignee := strings.TrimSpace(input.AssignedTo); assignee != "" {
		complaint.AssignedTo = assignee
		complaint.AssignedBy = p.ID
	}
	if note := canonical.CleanNote(input.Note); note != "" {
		complaint.Notes = []string{note}
	}

	saved, err := createComplaint(ctx, s.store, s.quality, complaint, metaFor(p, complaint.ID))
	if err != nil {
		s.logger.Warn("create complaint failed", zap.String("principal_id", p.ID), zap.Error(err))
		return ComplaintView{}, err
	}

	s.publish(ctx, events.EventComplaintCreated, saved.ID, p, events.ComplaintCreatedPayload{
		Region:   saved.Region,
		Category: saved.Category,
		Priority: saved.Priority,
		Title:    saved.Title,
	})
	return s.View(saved, nil), nil
}

// List returns the complaints p may see. Store results are region-filtered here rather
// than trusted.
func (s *ComplaintService) List(ctx context.Context, p domain.Principal, q ComplaintQuery) (ComplaintPage, error) {
	ev := s.authz.Decide(nil)
	if err := ev.Authorize(p, policy.ResourceComplaints, policy.ActionRead, q.Region).Err(); err != nil {
		return ComplaintPage{}, err
	}

	filters := map[string]string{
		"status":     q.Status,
		"priority":   q.Priority,
		"region":     domain.CanonicalRegion(q.Region),
		"assignedTo": q.AssignedTo,
	}
	if regions := ev.AccessibleRegions(p); !regions.All() && filters["region"] == "" {
		if list := regions.List(); len(list) == 1 {
			filters["region"] = list[0]
		}
	}

	page, err := s.store.GetComplaints(ctx, gateway.ListQuery{Page: q.Page, Limit: q.Limit, Filters: filters})
	if err != nil {
		return ComplaintPage{}, err
	}

	views := make([]ComplaintView, 0, len(page.Items))
	for _, raw := range page.Items {
		result := canonical.NormalizeComplaint(raw)
		s.quality.Report(ctx, "complaint", result.Entity.ID, result.Issues)
		views = append(views, s.View(result.Entity, result.Issues))
	}
	fetched := len(views)
	views = authz.FilterByRegion(ev, p, views)

	return ComplaintPage{Items: views, Pagination: scopedPagination(page.Pagination, fetched, len(views))}, nil
}

// GetRegion lets views be filtered by region.
func (v ComplaintView) GetRegion() string {
	return v.Complaint.Region
}

// Get loads one complaint by id.
func (s *ComplaintService) Get(ctx context.Context, p domain.Principal, id string) (ComplaintView, error) {
	ev := s.authz.Decide(nil)
	if err := ev.Authorize(p, policy.ResourceComplaints, policy.ActionRead, "").Err(); err != nil {
		return ComplaintView{}, err
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return ComplaintView{}, apperrors.NewValidationError("complaint id is required", nil)
	}

	page, err := s.store.GetComplaints(ctx, gateway.ListQuery{Filters: map[string]string{"id": id}})
	if err != nil {
		return ComplaintView{}, err
	}
	for _, raw := range page.Items {
		result := canonical.NormalizeComplaint(raw)
		if result.Entity.ID != id {
			continue
		}
		s.quality.Report(ctx, "complaint", id, result.Issues)
		if err := ev.AuthorizeInstance(p, policy.ResourceComplaints, policy.ActionRead, result.Entity.Region).Err(); err != nil {
			return ComplaintView{}, err
		}
		return s.View(result.Entity, result.Issues), nil
	}
	return ComplaintView{}, apperrors.NewNotFound("complaint", map[string]any{"id": id})
}

// persist sends the changed fields of next and returns the re-canonicalised store record.
// A positive expectedVersion is always checked by the store; strict mode falls back to the
// version prior was loaded at. On failure the prior complaint is returned unchanged.
func (s *ComplaintService) persist(ctx context.Context, p domain.Principal, prior, next domain.Complaint, fields []string, expectedVersion int64) (domain.Complaint, error) {
	attrs := canonical.ComplaintAttributes(next)
	updates := canonical.Bag{}
	for _, field := range fields {
		if val, ok := attrs[field]; ok {
			updates[field] = val
		} else {
			// absent optional timestamps are cleared explicitly
			updates[field] = ""
		}
	}

	req := gateway.UpdateRequest{ID: prior.ID, Updates: updates, ExpectedVersion: expectedVersion, Activity: metaFor(p, prior.ID)}
	if s.strict && req.ExpectedVersion <= 0 {
		req.ExpectedVersion = prior.Version
	}

	raw, err := s.store.UpdateComplaint(ctx, req)
	if err != nil {
		s.logger.Warn("complaint update failed",
			zap.String("complaint_id", prior.ID),
			zap.String("principal_id", p.ID),
			zap.Error(err),
		)
		return prior, err
	}

	result := canonical.NormalizeComplaint(overlay(attrs, raw))
	s.quality.Report(ctx, "complaint", prior.ID, result.Issues)
	return result.Entity, nil
}

func (s *ComplaintService) publish(ctx context.Context, eventType events.EventType, id string, p domain.Principal, payload interface{}) {
	if s.dispatcher == nil {
		return
	}
	if err := s.dispatcher.Publish(ctx, events.New(eventType, id, events.ActorOf(p), s.now(), payload)); err != nil {
		s.logger.Warn("event handler failed", zap.String("event", string(eventType)), zap.Error(err))
	}
}

func createComplaint(ctx context.Context, store gateway.ComplaintStore, quality *DataQualityReporter, c domain.Complaint, meta domain.ActivityMeta) (domain.Complaint, error) {
	attrs := canonical.ComplaintAttributes(c)
	raw, err := store.CreateComplaint(ctx, attrs, meta)
	if err != nil {
		return domain.Complaint{}, err
	}
	result := canonical.NormalizeComplaint(overlay(attrs, raw))
	quality.Report(ctx, "complaint", result.Entity.ID, result.Issues)
	return result.Entity, nil
}

func requireHighPriority(ev *authz.Evaluator, p domain.Principal, priority domain.Priority) error {
	if !priority.Restricted() || ev.Capabilities(p).Has(policy.CapSetHighPriority) {
		return nil
	}
	return apperrors.NewPermissionDenied("setting high or critical priority requires the canSetHighPriority capability", map[string]any{
		"capability": string(policy.CapSetHighPriority),
		"priority":   string(priority),
	})
}

// scopedPagination discounts rows the region filter dropped from this page. Rows hidden on
// other pages are not visible here, so total stays an upper bound.
func scopedPagination(pg *domain.Pagination, fetched, kept int) *domain.Pagination {
	if pg == nil || kept == fetched {
		return pg
	}
	adjusted := *pg
	adjusted.Total = max(pg.Total-(fetched-kept), kept)
	if adjusted.Limit > 0 {
		adjusted.TotalPages = (adjusted.Total + adjusted.Limit - 1) / adjusted.Limit
		adjusted.HasNext = adjusted.Page < adjusted.TotalPages
	}
	return &adjusted
}

// overlay lays the store's record over what was sent, so partial responses still yield a
// complete entity while store-maintained fields such as version win.
func overlay(sent, stored canonical.Bag) canonical.Bag {
	merged := make(canonical.Bag, len(sent)+len(stored))
	for k, v := range sent {
		merged[k] = v
	}
	for k, v := range stored {
		merged[k] = v
	}
	return merged
}

func metaFor(p domain.Principal, complaintID string) domain.ActivityMeta {
	return domain.ActivityMeta{ActorID: p.ID, ActorRole: p.Role, RelatedComplaintID: complaintID}
}
