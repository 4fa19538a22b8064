package canonical

import "github.com/spec-kit/complaint-service/internal/domain"

// Defaults applied when a raw enum value is missing or outside its closed set.
const (
	DefaultPriority = domain.PriorityMedium
	DefaultStatus   = domain.StatusOpen
	DefaultCategory = domain.CategoryOther
	DefaultRole     = domain.RoleTechnician
)

// ParsePriority reports the canonical priority for raw and whether raw was a member.
func ParsePriority(raw string) (domain.Priority, bool) {
	p := domain.Priority(foldEnum(raw))
	if !p.Valid() {
		return DefaultPriority, false
	}
	return p, true
}

// ParseStatus reports the canonical status for raw and whether raw was a member.
func ParseStatus(raw string) (domain.ComplaintStatus, bool) {
	s := domain.ComplaintStatus(foldEnum(raw))
	if !s.Valid() {
		return DefaultStatus, false
	}
	return s, true
}

// ParseCategory reports the canonical category for raw and whether raw was a member.
func ParseCategory(raw string) (domain.Category, bool) {
	c := domain.Category(foldEnum(raw))
	if !c.Valid() {
		return DefaultCategory, false
	}
	return c, true
}

// ParseRole reports the canonical role for raw and whether raw was a member.
func ParseRole(raw string) (domain.Role, bool) {
	r := domain.Role(foldEnum(raw))
	if !r.Valid() {
		return DefaultRole, false
	}
	return r, true
}
