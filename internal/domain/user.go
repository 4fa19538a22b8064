package domain

import "time"

// Role enumerates staff roles.
type Role string

const (
	RoleAdmin         Role = "admin"
	RoleManager       Role = "manager"
	RoleForeman       Role = "foreman"
	RoleCallAttendant Role = "call-attendant"
	RoleTechnician    Role = "technician"
)

// Roles lists every valid role.
var Roles = []Role{RoleAdmin, RoleManager, RoleForeman, RoleCallAttendant, RoleTechnician}

// Valid reports whether r is a member of the closed role set.
func (r Role) Valid() bool {
	for _, candidate := range Roles {
		if r == candidate {
			return true
		}
	}
	return false
}

// User is the domain model for staff accounts.
type User struct {
	ID            string
	Name          string
	Email         string
	PasswordHash  string
	Role          Role
	Region        string
	ServiceCenter string
	Active        bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// GetRegion implements region scoped filtering.
func (u User) GetRegion() string {
	return u.Region
}

// Principal returns the authorization-time view of the user.
func (u User) Principal() Principal {
	return Principal{ID: u.ID, Role: u.Role, Region: u.Region, Active: u.Active}
}
