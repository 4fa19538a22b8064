// Package policy holds the role based access configuration as immutable, versioned snapshots.
package policy

import "strings"

// Resource names a protected area of the system.
type Resource string

const (
	ResourceComplaints Resource = "complaints"
	ResourceCustomers  Resource = "customers"
	ResourceUsers      Resource = "users"
	ResourceReports    Resource = "reports"
	ResourceSettings   Resource = "settings"
	ResourceDashboard  Resource = "dashboard"
)

// Resources lists every protected resource.
var Resources = []Resource{
	ResourceComplaints,
	ResourceCustomers,
	ResourceUsers,
	ResourceReports,
	ResourceSettings,
	ResourceDashboard,
}

// Valid reports whether r is a known resource.
func (r Resource) Valid() bool {
	for _, candidate := range Resources {
		if r == candidate {
			return true
		}
	}
	return false
}

// Action is one of the CRUD verbs.
type Action string

const (
	ActionCreate Action = "create"
	ActionRead   Action = "read"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// ParseAction folds raw into an Action and reports whether it is known.
func ParseAction(raw string) (Action, bool) {
	a := Action(strings.ToLower(strings.TrimSpace(raw)))
	switch a {
	case ActionCreate, ActionRead, ActionUpdate, ActionDelete:
		return a, true
	default:
		return a, false
	}
}

// Permissions is the CRUD grant for one role on one resource.
type Permissions struct {
	Create bool `json:"create"`
	Read   bool `json:"read"`
	Update bool `json:"update"`
	Delete bool `json:"delete"`
}

// Allows reports whether the grant covers action. Unknown actions are denied.
func (p Permissions) Allows(action Action) bool {
	switch action {
	case ActionCreate:
		return p.Create
	case ActionRead:
		return p.Read
	case ActionUpdate:
		return p.Update
	case ActionDelete:
		return p.Delete
	default:
		return false
	}
}

// Visibility scopes which regions a role may see.
type Visibility string

const (
	VisibilityAll Visibility = "all"
	VisibilityOwn Visibility = "own"
)

// Capability is a named privilege that is not tied to a CRUD verb.
type Capability string

const (
	CapSetHighPriority  Capability = "canSetHighPriority"
	CapDeleteRecords    Capability = "canDeleteRecords"
	CapAssignComplaints Capability = "canAssignComplaints"
	CapExportData       Capability = "canExportData"
	CapManagePolicy     Capability = "canManagePolicy"
)

// Capabilities lists every known capability.
var Capabilities = []Capability{
	CapSetHighPriority,
	CapDeleteRecords,
	CapAssignComplaints,
	CapExportData,
	CapManagePolicy,
}

// CapabilitySet is the resolved set of capabilities for one principal.
type CapabilitySet map[Capability]bool

// Has reports membership.
func (s CapabilitySet) Has(c Capability) bool {
	return s[c]
}

// List returns the members in declaration order.
func (s CapabilitySet) List() []Capability {
	out := make([]Capability, 0, len(s))
	for _, c := range Capabilities {
		if s[c] {
			out = append(out, c)
		}
	}
	return out
}

func crud(create, read, update, del bool) Permissions {
	return Permissions{Create: create, Read: read, Update: update, Delete: del}
}
