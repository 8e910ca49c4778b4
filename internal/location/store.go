package location

import "context"

// Query is the parameter set of the store's radius search.
type Query struct {
	Latitude   float64
	Longitude  float64
	RadiusKm   float64
	Category   *Category
	OnlyOpen   bool
	Accessible *bool
	Pets       *bool
	Gender     *Gender
}

// QueryFromCriteria builds the store query for a search.
func QueryFromCriteria(c FilterCriteria) Query {
	return Query{
		Latitude:   c.Latitude,
		Longitude:  c.Longitude,
		RadiusKm:   c.RadiusKm,
		Category:   c.Category,
		OnlyOpen:   c.OpenNow,
		Accessible: c.Accessible,
		Pets:       c.Pets,
		Gender:     c.Gender,
	}
}

// Store performs the indexed radius search. Implementations are expected to
// annotate rows with distance_m and apply the predicates server side; the
// service re-applies them regardless.
type Store interface {
	// Name identifies the backend in logs and metrics.
	Name() string

	// NearbyLocations returns candidate rows within q.RadiusKm of the origin.
	NearbyLocations(ctx context.Context, q Query) ([]Row, error)
}

// Pinger is implemented by stores that can report connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}
