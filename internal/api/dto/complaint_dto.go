package dto

import (
	"time"

	"github.com/spec-kit/complaint-service/internal/canonical"
	"github.com/spec-kit/complaint-service/internal/domain"
)

// CustomerPayload describes a customer inside a request.
type CustomerPayload struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Email         string `json:"email"`
	Phone         string `json:"phone"`
	Address       string `json:"address"`
	Region        string `json:"region"`
	MeterNumber   string `json:"meter_number"`
	AccountNumber string `json:"account_number"`
}

// CreateComplaintRequest payload for staff-entered complaints.
type CreateComplaintRequest struct {
	Customer            CustomerPayload `json:"customer"`
	Title               string          `json:"title"`
	Description         string          `json:"description"`
	Category            string          `json:"category"`
	Region              string          `json:"region"`
	Priority            string          `json:"priority"`
	AssignedTo          string          `json:"assigned_to"`
	Note                string          `json:"note"`
	Attachments         []string        `json:"attachments"`
	EstimatedResolution *time.Time      `json:"estimated_resolution"`
}

// TransitionRequest payload for status changes.
type TransitionRequest struct {
	Status             string `json:"status"`
	WorkClassification string `json:"work_classification"`
	Notes              string `json:"notes"`
	ExpectedVersion    int64  `json:"expected_version"`
}

// AssignRequest payload.
type AssignRequest struct {
	AssigneeID string `json:"assignee_id"`
}

// PriorityRequest payload.
type PriorityRequest struct {
	Priority string `json:"priority"`
}

// CustomerResponse is the public shape of a customer. Phone is never empty; an unknown
// number reads "unknown".
type CustomerResponse struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	Email         string     `json:"email,omitempty"`
	Phone         string     `json:"phone"`
	Address       string     `json:"address,omitempty"`
	Region        string     `json:"region"`
	MeterNumber   string     `json:"meter_number,omitempty"`
	AccountNumber string     `json:"account_number,omitempty"`
	CreatedAt     *time.Time `json:"created_at,omitempty"`
}

// ComplaintResponse is the public shape of a complaint.
type ComplaintResponse struct {
	ID                  string                 `json:"id"`
	Customer            CustomerResponse       `json:"customer"`
	Title               string                 `json:"title"`
	Description         string                 `json:"description"`
	Category            domain.Category        `json:"category"`
	Region              string                 `json:"region"`
	Priority            domain.Priority        `json:"priority"`
	Status              domain.ComplaintStatus `json:"status"`
	WorkClassification  string                 `json:"work_classification,omitempty"`
	AssignedTo          string                 `json:"assigned_to,omitempty"`
	AssignedBy          string                 `json:"assigned_by,omitempty"`
	CreatedBy           string                 `json:"created_by,omitempty"`
	UpdatedBy           string                 `json:"updated_by,omitempty"`
	Notes               []string               `json:"notes"`
	Attachments         []string               `json:"attachments"`
	CreatedAt           *time.Time             `json:"created_at"`
	UpdatedAt           *time.Time             `json:"updated_at"`
	ResolvedAt          *time.Time             `json:"resolved_at"`
	EstimatedResolution *time.Time             `json:"estimated_resolution,omitempty"`
	Overdue             bool                   `json:"overdue"`
	Version             int64                  `json:"version"`
	DataQuality         []canonical.Issue      `json:"data_quality,omitempty"`
}
