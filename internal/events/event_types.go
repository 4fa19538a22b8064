package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/complaint-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventComplaintCreated         EventType = "complaint_created"
	EventComplaintStatusChanged   EventType = "complaint_status_changed"
	EventComplaintAssigned        EventType = "complaint_assigned"
	EventComplaintPriorityChanged EventType = "complaint_priority_changed"
	EventDataQualityDetected      EventType = "data_quality_detected"
	EventPolicyUpdated            EventType = "policy_updated"
	EventUserChanged              EventType = "user_changed"
)

// Actor encapsulates actor metadata for an event.
type Actor struct {
	ID   string      `json:"id,omitempty"`
	Role domain.Role `json:"role,omitempty"`
}

// ActorOf converts a principal into event actor metadata.
func ActorOf(p domain.Principal) Actor {
	return Actor{ID: p.ID, Role: p.Role}
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	SubjectID string      `json:"subject_id"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// New stamps an event with a fresh id and the given time.
func New(eventType EventType, subjectID string, actor Actor, at time.Time, payload interface{}) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		SubjectID: subjectID,
		Actor:     actor,
		Timestamp: at.UTC(),
		Payload:   payload,
	}
}

// ComplaintCreatedPayload payload.
type ComplaintCreatedPayload struct {
	Region   string          `json:"region"`
	Category domain.Category `json:"category"`
	Priority domain.Priority `json:"priority"`
	Title    string          `json:"title"`
	Public   bool            `json:"public"`
}

// ComplaintStatusChangedPayload payload.
type ComplaintStatusChangedPayload struct {
	OldStatus          domain.ComplaintStatus `json:"old_status"`
	NewStatus          domain.ComplaintStatus `json:"new_status"`
	WorkClassification string                 `json:"work_classification,omitempty"`
	Note               string                 `json:"note,omitempty"`
}

// ComplaintAssignedPayload payload.
type ComplaintAssignedPayload struct {
	PreviousAssignee string `json:"previous_assignee,omitempty"`
	Assignee         string `json:"assignee"`
}

// ComplaintPriorityChangedPayload payload.
type ComplaintPriorityChangedPayload struct {
	OldPriority domain.Priority `json:"old_priority"`
	NewPriority domain.Priority `json:"new_priority"`
}

// DataQualityPayload lists the issues found on one record.
type DataQualityPayload struct {
	Entity string             `json:"entity"`
	Issues []DataQualityIssue `json:"issues"`
}

// DataQualityIssue mirrors canonical.Issue without importing the normalizer.
type DataQualityIssue struct {
	Field string `json:"field"`
	Code  string `json:"code"`
}

// PolicyUpdatedPayload payload.
type PolicyUpdatedPayload struct {
	Version  int64  `json:"version"`
	Role     string `json:"role"`
	Resource string `json:"resource"`
}

// UserChangedPayload payload.
type UserChangedPayload struct {
	Change string `json:"change"`
}
