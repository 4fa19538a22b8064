package policy

import (
	"time"

	"github.com/spec-kit/complaint-service/internal/domain"
)

// Default returns version 1 of the built-in policy. Every role has an explicit entry for
// every resource; anything not granted here is denied.
func Default() *Snapshot {
	matrix := map[domain.Role]map[Resource]Permissions{
		domain.RoleAdmin: {
			ResourceComplaints: crud(true, true, true, true),
			ResourceCustomers:  crud(true, true, true, true),
			ResourceUsers:      crud(true, true, true, true),
			ResourceReports:    crud(true, true, true, true),
			ResourceSettings:   crud(true, true, true, true),
			ResourceDashboard:  crud(true, true, true, true),
		},
		domain.RoleManager: {
			ResourceComplaints: crud(true, true, true, false),
			ResourceCustomers:  crud(true, true, true, false),
			ResourceUsers:      crud(false, true, false, false),
			ResourceReports:    crud(false, true, false, false),
			ResourceSettings:   crud(false, true, false, false),
			ResourceDashboard:  crud(false, true, false, false),
		},
		domain.RoleForeman: {
			ResourceComplaints: crud(true, true, true, false),
			ResourceCustomers:  crud(false, true, false, false),
			ResourceUsers:      crud(false, false, false, false),
			ResourceReports:    crud(false, true, false, false),
			ResourceSettings:   crud(false, false, false, false),
			ResourceDashboard:  crud(false, true, false, false),
		},
		domain.RoleCallAttendant: {
			ResourceComplaints: crud(true, true, true, false),
			ResourceCustomers:  crud(true, true, true, false),
			ResourceUsers:      crud(false, false, false, false),
			ResourceReports:    crud(false, false, false, false),
			ResourceSettings:   crud(false, false, false, false),
			ResourceDashboard:  crud(false, true, false, false),
		},
		domain.RoleTechnician: {
			ResourceComplaints: crud(false, true, true, false),
			ResourceCustomers:  crud(false, true, false, false),
			ResourceUsers:      crud(false, false, false, false),
			ResourceReports:    crud(false, false, false, false),
			ResourceSettings:   crud(false, false, false, false),
			ResourceDashboard:  crud(false, false, false, false),
		},
	}

	visibility := map[domain.Role]Visibility{
		domain.RoleAdmin:         VisibilityAll,
		domain.RoleManager:       VisibilityOwn,
		domain.RoleForeman:       VisibilityOwn,
		domain.RoleCallAttendant: VisibilityAll,
		domain.RoleTechnician:    VisibilityOwn,
	}

	capabilities := map[domain.Role][]Capability{
		domain.RoleAdmin:         Capabilities,
		domain.RoleManager:       {CapSetHighPriority, CapAssignComplaints, CapExportData},
		domain.RoleForeman:       {CapSetHighPriority, CapAssignComplaints},
		domain.RoleCallAttendant: nil,
		domain.RoleTechnician:    nil,
	}

	return newSnapshot(1, matrix, visibility, capabilities, time.Time{}, "system")
}
