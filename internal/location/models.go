// Package location provides nearby social-service location search: the store
// contract, coordinate normalization, open-hours evaluation and the
// filter-and-rank pipeline.
package location

import (
	"errors"
	"time"
)

// Service errors.
var (
	ErrInvalidOrigin    = errors.New("origin latitude and longitude are required")
	ErrStoreUnavailable = errors.New("location store not configured")
)

// Category is the kind of service offered at a location.
type Category string

const (
	CategoryShelter        Category = "shelter"
	CategoryWarmingCooling Category = "warming_cooling"
	CategoryFoodBank       Category = "food_bank"
	CategoryDropIn         Category = "drop_in"
	CategoryWashroom       Category = "washroom"
	CategoryHarmReduction  Category = "harm_reduction"
	CategoryOutreach       Category = "outreach"
	CategoryClinic         Category = "clinic"
	CategoryOther          Category = "other"
)

// Categories returns every known category in display order.
func Categories() []Category {
	return []Category{
		CategoryShelter,
		CategoryWarmingCooling,
		CategoryFoodBank,
		CategoryDropIn,
		CategoryWashroom,
		CategoryHarmReduction,
		CategoryOutreach,
		CategoryClinic,
		CategoryOther,
	}
}

// Gender is the population a location restricts service to.
// A nil *Gender on a Location means unspecified, which is not the same as GenderAll.
type Gender string

const (
	GenderWomen  Gender = "women"
	GenderMen    Gender = "men"
	GenderAll    Gender = "all"
	GenderYouth  Gender = "youth"
	GenderFamily Gender = "family"
)

// Genders returns every known gender restriction.
func Genders() []Gender {
	return []Gender{GenderWomen, GenderMen, GenderAll, GenderYouth, GenderFamily}
}

// Interval is a [start, end) pair of "HH:MM" clock times. An end earlier
// than start continues past midnight into the next day.
type Interval [2]string

// HoursSchedule maps a weekday key ("sun" through "sat") to that day's
// opening intervals. A missing or empty day means closed.
type HoursSchedule map[string][]Interval

// Location is a point-of-service record as read from the store.
type Location struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Category Category `json:"category"`

	Phone   string `json:"phone,omitempty"`
	Website string `json:"website,omitempty"`
	Address string `json:"address,omitempty"`
	Notes   string `json:"notes,omitempty"`
	Source  string `json:"source,omitempty"`

	// Capacity and BedsAvailable are independent; nil means unknown, 0 is a real value.
	Capacity      *int `json:"capacity"`
	BedsAvailable *int `json:"beds_available"`

	Hours HoursSchedule `json:"hours,omitempty"`

	// Tri-state eligibility flags: nil means unknown.
	Accessible        *bool   `json:"accessible"`
	PetsAllowed       *bool   `json:"pets_allowed"`
	GenderRestriction *Gender `json:"gender_restriction"`
	LGBTQFriendly     *bool   `json:"lgbtq_friendly"`

	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`

	UpdatedAt  *time.Time `json:"updated_at,omitempty"`
	VerifiedAt *time.Time `json:"verified_at,omitempty"`

	// DistanceMeters is request-scoped and never persisted. Nil until computed
	// or supplied by the store.
	DistanceMeters *float64 `json:"-"`
}

// HasCoordinates reports whether both latitude and longitude are known.
func (l *Location) HasCoordinates() bool {
	return l.Latitude != nil && l.Longitude != nil
}

// FilterCriteria describes one nearby search. Nil pointer fields are absent filters.
type FilterCriteria struct {
	Latitude  float64
	Longitude float64
	RadiusKm  float64

	Category   *Category
	OpenNow    bool
	Accessible *bool
	Pets       *bool
	Gender     *Gender

	// EvaluatedAt is the instant used for open-now checks.
	EvaluatedAt time.Time
}

// DefaultRadiusKm is used when a request carries no usable radius.
const DefaultRadiusKm = 5.0
