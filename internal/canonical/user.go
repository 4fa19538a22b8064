package canonical

import (
	"strings"

	"github.com/spec-kit/complaint-service/internal/domain"
)

var (
	userIDAliases        = []string{"ID", "id", "User ID", "userId", "user_id"}
	userNameAliases      = []string{"Name", "name", "Full Name", "fullName", "displayName", "Display Name"}
	userEmailAliases     = []string{"Email", "email", "Email Address"}
	userRoleAliases      = []string{"Role", "role"}
	userRegionAliases    = []string{"Region", "region"}
	serviceCenterAliases = []string{"Service Center", "serviceCenter", "service_center"}
	activeAliases        = []string{"Active", "active", "isActive", "Is Active", "Status", "status"}
	passwordHashAliases  = []string{"Password Hash", "passwordHash", "password_hash"}
)

// NormalizeUser canonicalises a user row. Unknown roles fall back to the least privileged
// staff role; a missing active flag means active, an unreadable one means inactive.
func NormalizeUser(raw Bag) Result[domain.User] {
	var issues issueList

	user := domain.User{
		ID:            raw.text(userIDAliases...),
		Name:          raw.text(userNameAliases...),
		Email:         strings.ToLower(raw.text(userEmailAliases...)),
		PasswordHash:  raw.text(passwordHashAliases...),
		Region:        domain.CanonicalRegion(raw.text(userRegionAliases...)),
		ServiceCenter: raw.text(serviceCenterAliases...),
		Active:        true,
	}

	rawRole := raw.text(userRoleAliases...)
	role, known := ParseRole(rawRole)
	if !known {
		issues.add("role", IssueUnknownRole, "unknown role "+strings.TrimSpace(rawRole))
	}
	user.Role = role

	if val, ok := raw.lookup(activeAliases...); ok {
		active, parsed := toBool(val)
		if !parsed {
			issues.add("active", IssueInvalidActiveFlag, "unreadable active flag "+toText(val))
		}
		user.Active = active && parsed
	}

	user.CreatedAt = timeField(raw, "created_at", &issues, createdAtAliases...)
	user.UpdatedAt = timeField(raw, "updated_at", &issues, updatedAtAliases...)

	return Result[domain.User]{Entity: user, Issues: issues}
}

// UserAttributes renders a user as a store payload. The password hash is only included
// when set.
func UserAttributes(u domain.User) Bag {
	bag := Bag{
		"id":            u.ID,
		"name":          u.Name,
		"email":         u.Email,
		"role":          string(u.Role),
		"region":        u.Region,
		"serviceCenter": u.ServiceCenter,
		"active":        u.Active,
	}
	if u.PasswordHash != "" {
		bag["passwordHash"] = u.PasswordHash
	}
	if ts := formatTime(u.CreatedAt); ts != "" {
		bag["createdAt"] = ts
	}
	if ts := formatTime(u.UpdatedAt); ts != "" {
		bag["updatedAt"] = ts
	}
	return bag
}
