package location

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"
)

//go:embed fallback_locations.json
var fallbackJSON []byte

var loadFallback = sync.OnceValues(func() ([]Location, error) {
	return ParseFallback(fallbackJSON)
})

// ParseFallback decodes a JSON array of locations. Distances are always
// cleared so the pipeline recomputes them from raw coordinates.
func ParseFallback(data []byte) ([]Location, error) {
	var locations []Location
	if err := json.Unmarshal(data, &locations); err != nil {
		return nil, fmt.Errorf("decode fallback locations: %w", err)
	}
	for i := range locations {
		locations[i].DistanceMeters = nil
	}
	return locations, nil
}

// FallbackLocations returns a fresh copy of the bundled example dataset.
func FallbackLocations() []Location {
	locations, err := loadFallback()
	if err != nil {
		// The dataset is compiled in; a decode failure is a build defect.
		panic(err)
	}
	out := make([]Location, len(locations))
	copy(out, locations)
	return out
}
