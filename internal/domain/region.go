package domain

import "strings"

// KnownRegions holds the canonical spelling of administrative regions.
var KnownRegions = []string{
	"Addis Ababa",
	"Afar",
	"Amhara",
	"Benishangul-Gumuz",
	"Dire Dawa",
	"Gambela",
	"Harari",
	"Oromia",
	"Sidama",
	"Somali",
	"South West Ethiopia",
	"SNNPR",
	"Tigray",
}

// CanonicalRegion rewrites a known region to its canonical spelling and trims unknown ones.
func CanonicalRegion(raw string) string {
	trimmed := strings.Join(strings.Fields(raw), " ")
	for _, known := range KnownRegions {
		if strings.EqualFold(known, trimmed) {
			return known
		}
	}
	return trimmed
}

// SameRegion compares two regions ignoring case and surrounding whitespace.
func SameRegion(a, b string) bool {
	return strings.EqualFold(CanonicalRegion(a), CanonicalRegion(b))
}
