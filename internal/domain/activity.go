package domain

import "time"

// ActivityMeta is the actor metadata passed through to the store's activity log.
type ActivityMeta struct {
	ActorID            string
	ActorRole          Role
	RelatedComplaintID string
}

// ActivityEntry is one line of the store-side activity feed.
type ActivityEntry struct {
	ID                 string    `json:"id"`
	Action             string    `json:"action"`
	Description        string    `json:"description"`
	ActorID            string    `json:"actor_id"`
	RelatedComplaintID string    `json:"related_complaint_id,omitempty"`
	OccurredAt         time.Time `json:"occurred_at"`
}

// DashboardStats is the store's aggregate counters view.
type DashboardStats map[string]any

// Pagination mirrors the record store's pagination block.
type Pagination struct {
	Page       int  `json:"page"`
	Limit      int  `json:"limit"`
	Total      int  `json:"total"`
	TotalPages int  `json:"totalPages"`
	HasNext    bool `json:"hasNext"`
	HasPrev    bool `json:"hasPrev"`
}
