package dto

import (
	"time"

	"github.com/spec-kit/complaint-service/internal/policy"
)

// UpdatePermissionsRequest replaces one role/resource entry of the policy.
type UpdatePermissionsRequest struct {
	Role        string             `json:"role"`
	Resource    string             `json:"resource"`
	Permissions policy.Permissions `json:"permissions"`
}

// PolicyResponse describes the policy in effect.
type PolicyResponse struct {
	Version   int64           `json:"version"`
	UpdatedAt time.Time       `json:"updated_at"`
	UpdatedBy string          `json:"updated_by"`
	Document  policy.Document `json:"document"`
}

// AuthzCheckRequest asks whether the caller may act on a resource.
type AuthzCheckRequest struct {
	Resource string `json:"resource"`
	Action   string `json:"action"`
	Region   string `json:"region"`
}

// AuthzCheckResponse answers an AuthzCheckRequest.
type AuthzCheckResponse struct {
	Allowed       bool                `json:"allowed"`
	Reason        string              `json:"reason,omitempty"`
	PolicyVersion int64               `json:"policy_version"`
	Regions       []string            `json:"regions"`
	AllRegions    bool                `json:"all_regions"`
	Capabilities  []policy.Capability `json:"capabilities"`
}
