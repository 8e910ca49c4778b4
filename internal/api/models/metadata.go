package models

// Enums lists the values accepted by the category and gender filters.
type Enums struct {
	Categories         []string `json:"categories"`
	GenderRestrictions []string `json:"gender_restrictions"`
	MaxResults         int      `json:"max_results"`
	DefaultRadiusKm    float64  `json:"default_radius_km"`
}
