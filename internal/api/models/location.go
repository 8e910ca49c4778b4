package models

// Interval is an opening interval as ["HH:MM", "HH:MM"].
type Interval [2]string

// Location is one search result.
type Location struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Category string `json:"category"`

	Phone   string `json:"phone,omitempty"`
	Website string `json:"website,omitempty"`
	Address string `json:"address,omitempty"`
	Notes   string `json:"notes,omitempty"`
	Source  string `json:"source,omitempty"`

	// DistanceMeters is null when the location has no coordinates.
	DistanceMeters *float64 `json:"distance_m"`

	Capacity      *int `json:"capacity"`
	BedsAvailable *int `json:"beds_available"`

	Hours map[string][]Interval `json:"hours,omitempty"`

	Accessible        *bool   `json:"accessible"`
	PetsAllowed       *bool   `json:"pets_allowed"`
	GenderRestriction *string `json:"gender_restriction"`
	LGBTQFriendly     *bool   `json:"lgbtq_friendly"`

	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`

	UpdatedAt  *Timestamp `json:"updated_at,omitempty"`
	VerifiedAt *Timestamp `json:"verified_at,omitempty"`
}

// LocationsResponse is the body of a successful nearby search.
type LocationsResponse struct {
	Results []Location `json:"results"`
}
