package location

import (
	"math"
	"sort"
	"time"
)

// MaxResults caps the number of locations returned by one search.
const MaxResults = 50

// ApplyFilters fills missing distances, keeps the locations matching every
// criterion, orders them by ascending distance with unknown distances last,
// drops repeated IDs after the first (closest) occurrence, and truncates to
// MaxResults. The input slice is not modified.
func ApplyFilters(locations []Location, criteria FilterCriteria) []Location {
	evaluatedAt := criteria.EvaluatedAt
	if evaluatedAt.IsZero() {
		evaluatedAt = time.Now()
	}
	maxMeters := criteria.RadiusKm * 1000

	filtered := make([]Location, 0, len(locations))
	for _, loc := range locations {
		// Store-supplied distances are trusted over recomputation.
		if loc.DistanceMeters == nil {
			loc = AttachDistance(loc, criteria.Latitude, criteria.Longitude)
		}
		if !matches(&loc, criteria, evaluatedAt, maxMeters) {
			continue
		}
		filtered = append(filtered, loc)
	}

	sort.SliceStable(filtered, func(i, j int) bool {
		return sortDistance(&filtered[i]) < sortDistance(&filtered[j])
	})

	filtered = dedupeByID(filtered)

	if len(filtered) > MaxResults {
		filtered = filtered[:MaxResults]
	}
	return filtered
}

// dedupeByID keeps the first location per ID. Locations without an ID are kept.
func dedupeByID(locations []Location) []Location {
	seen := make(map[string]struct{}, len(locations))
	out := locations[:0]
	for _, loc := range locations {
		if loc.ID != "" {
			if _, dup := seen[loc.ID]; dup {
				continue
			}
			seen[loc.ID] = struct{}{}
		}
		out = append(out, loc)
	}
	return out
}

func matches(loc *Location, c FilterCriteria, at time.Time, maxMeters float64) bool {
	if c.Category != nil && loc.Category != *c.Category {
		return false
	}
	if c.Accessible != nil && !triStateEquals(loc.Accessible, *c.Accessible) {
		return false
	}
	if c.Pets != nil && !triStateEquals(loc.PetsAllowed, *c.Pets) {
		return false
	}
	// An unspecified restriction passes every gender filter.
	if c.Gender != nil && loc.GenderRestriction != nil && *loc.GenderRestriction != *c.Gender {
		return false
	}
	if c.OpenNow && !IsOpenNow(loc.Hours, at) {
		return false
	}
	if d := loc.DistanceMeters; d != nil && finite(*d) && *d > maxMeters {
		return false
	}
	return true
}

// triStateEquals never matches an unknown flag.
func triStateEquals(flag *bool, want bool) bool {
	return flag != nil && *flag == want
}

func sortDistance(loc *Location) float64 {
	if loc.DistanceMeters == nil || math.IsNaN(*loc.DistanceMeters) {
		return math.Inf(1)
	}
	return *loc.DistanceMeters
}
