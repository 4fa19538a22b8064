package domain

import "time"

// ComplaintStatus enumerates lifecycle states for complaints.
type ComplaintStatus string

const (
	StatusOpen       ComplaintStatus = "open"
	StatusInProgress ComplaintStatus = "in-progress"
	StatusResolved   ComplaintStatus = "resolved"
	StatusEscalated  ComplaintStatus = "escalated"
	StatusClosed     ComplaintStatus = "closed"
	StatusCancelled  ComplaintStatus = "cancelled"
)

// ComplaintStatuses lists every valid status in display order.
var ComplaintStatuses = []ComplaintStatus{
	StatusOpen, StatusInProgress, StatusResolved, StatusEscalated, StatusClosed, StatusCancelled,
}

// Valid reports whether s is a member of the closed status set.
func (s ComplaintStatus) Valid() bool {
	for _, candidate := range ComplaintStatuses {
		if s == candidate {
			return true
		}
	}
	return false
}

// Settled reports whether the status stops the overdue clock.
func (s ComplaintStatus) Settled() bool {
	return s == StatusResolved || s == StatusClosed || s == StatusCancelled
}

// Priority enumerates complaint urgency.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// Priorities lists every valid priority from least to most urgent.
var Priorities = []Priority{PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical}

// Valid reports whether p is a member of the closed priority set.
func (p Priority) Valid() bool {
	for _, candidate := range Priorities {
		if p == candidate {
			return true
		}
	}
	return false
}

// Restricted reports whether assigning p needs the high-priority capability.
func (p Priority) Restricted() bool {
	return p == PriorityHigh || p == PriorityCritical
}

// Category enumerates complaint categories.
type Category string

const (
	CategoryNoPower            Category = "no-power"
	CategoryPartialPower       Category = "partial-power"
	CategoryVoltageFluctuation Category = "voltage-fluctuation"
	CategoryMeterIssue         Category = "meter-issue"
	CategoryBilling            Category = "billing"
	CategoryLineDamage         Category = "line-damage"
	CategoryTransformerIssue   Category = "transformer-issue"
	CategoryNewConnection      Category = "new-connection"
	CategoryOther              Category = "other"
)

// Categories lists every valid category.
var Categories = []Category{
	CategoryNoPower, CategoryPartialPower, CategoryVoltageFluctuation, CategoryMeterIssue,
	CategoryBilling, CategoryLineDamage, CategoryTransformerIssue, CategoryNewConnection,
	CategoryOther,
}

// Valid reports whether c is a member of the closed category set.
func (c Category) Valid() bool {
	for _, candidate := range Categories {
		if c == candidate {
			return true
		}
	}
	return false
}

// CustomerRef is the customer snapshot embedded in a complaint record.
type CustomerRef struct {
	ID            string
	Name          string
	Email         string
	Phone         string
	Address       string
	Region        string
	MeterNumber   string
	AccountNumber string
}

// Complaint is the canonical complaint aggregate.
type Complaint struct {
	ID                  string
	Customer            CustomerRef
	Title               string
	Description         string
	Category            Category
	Region              string
	Priority            Priority
	Status              ComplaintStatus
	WorkClassification  string
	CreatedAt           time.Time
	UpdatedAt           time.Time
	ResolvedAt          *time.Time
	EstimatedResolution *time.Time
	AssignedTo          string
	AssignedBy          string
	CreatedBy           string
	UpdatedBy           string
	Notes               []string
	Attachments         []string
	Version             int64
}

// GetRegion implements region scoped filtering.
func (c Complaint) GetRegion() string {
	return c.Region
}

// Clone returns a deep copy so callers can mutate without aliasing slices or pointers.
func (c Complaint) Clone() Complaint {
	out := c
	out.Notes = append([]string(nil), c.Notes...)
	out.Attachments = append([]string(nil), c.Attachments...)
	if c.ResolvedAt != nil {
		t := *c.ResolvedAt
		out.ResolvedAt = &t
	}
	if c.EstimatedResolution != nil {
		t := *c.EstimatedResolution
		out.EstimatedResolution = &t
	}
	return out
}
