package authz

import (
	"sort"
	"strings"

	"github.com/spec-kit/complaint-service/internal/domain"
)

// RegionSet is either every region or an explicit, possibly empty, list.
type RegionSet struct {
	all     bool
	regions map[string]string
}

// AllRegions returns the unrestricted set.
func AllRegions() RegionSet {
	return RegionSet{all: true}
}

// Regions builds an explicit set; blank names are ignored.
func Regions(names ...string) RegionSet {
	set := RegionSet{regions: map[string]string{}}
	for _, name := range names {
		canonical := domain.CanonicalRegion(name)
		if canonical == "" {
			continue
		}
		set.regions[strings.ToLower(canonical)] = canonical
	}
	return set
}

// All reports whether the set is unrestricted.
func (r RegionSet) All() bool { return r.all }

// Empty reports whether the set admits nothing.
func (r RegionSet) Empty() bool { return !r.all && len(r.regions) == 0 }

// Contains reports whether region is inside the set. A blank region is only inside the
// unrestricted set.
func (r RegionSet) Contains(region string) bool {
	if r.all {
		return true
	}
	_, ok := r.regions[strings.ToLower(domain.CanonicalRegion(region))]
	return ok
}

// List returns the explicit regions sorted; nil for the unrestricted set.
func (r RegionSet) List() []string {
	if r.all {
		return nil
	}
	out := make([]string, 0, len(r.regions))
	for _, name := range r.regions {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Regional is anything carrying a region.
type Regional interface {
	GetRegion() string
}

type regionResolver interface {
	AccessibleRegions(p domain.Principal) RegionSet
}

// FilterByRegion keeps the items whose region the principal may see. Results from the
// record store are passed through here rather than trusted.
func FilterByRegion[T Regional](scope regionResolver, p domain.Principal, items []T) []T {
	regions := scope.AccessibleRegions(p)
	if regions.All() {
		return items
	}
	out := make([]T, 0, len(items))
	for _, item := range items {
		if regions.Contains(item.GetRegion()) {
			out = append(out, item)
		}
	}
	return out
}
