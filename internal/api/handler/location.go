package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/carefinder/carefinder/internal/api/models"
	"github.com/carefinder/carefinder/internal/api/response"
	"github.com/carefinder/carefinder/internal/location"
)

// LocationFinder is the search operation behind GET /locations.
type LocationFinder interface {
	FindNearby(ctx context.Context, criteria location.FilterCriteria) ([]location.Location, error)
}

// LocationHandler handles nearby location search.
type LocationHandler struct {
	finder LocationFinder
}

// NewLocationHandler creates a new LocationHandler.
func NewLocationHandler(finder LocationFinder) *LocationHandler {
	return &LocationHandler{finder: finder}
}

// FindNearby handles GET /locations - nearby search with optional filters.
func (h *LocationHandler) FindNearby(w http.ResponseWriter, r *http.Request) {
	criteria, fieldErrors := parseCriteria(r)
	if len(fieldErrors) > 0 {
		response.BadRequest(w, r, "lat and lng query parameters are required numbers", fieldErrors)
		return
	}

	results, err := h.finder.FindNearby(r.Context(), criteria)
	if errors.Is(err, location.ErrInvalidOrigin) {
		response.BadRequest(w, r, "lat must be within [-90, 90] and lng within [-180, 180]", []models.FieldError{
			{Field: "lat", Message: "out of range"},
			{Field: "lng", Message: "out of range"},
		})
		return
	}
	if err != nil {
		response.InternalError(w, r, "failed to search locations")
		return
	}

	resp := models.LocationsResponse{Results: make([]models.Location, 0, len(results))}
	for i := range results {
		resp.Results = append(resp.Results, toLocationDTO(&results[i]))
	}

	response.JSON(w, r, http.StatusOK, resp)
}

func parseCriteria(r *http.Request) (location.FilterCriteria, []models.FieldError) {
	q := r.URL.Query()
	var criteria location.FilterCriteria
	var fieldErrors []models.FieldError

	lat, err := parseFloat(q.Get("lat"))
	if err != nil {
		fieldErrors = append(fieldErrors, models.FieldError{Field: "lat", Message: "required, must be a number"})
	}
	lng, err := parseFloat(q.Get("lng"))
	if err != nil {
		fieldErrors = append(fieldErrors, models.FieldError{Field: "lng", Message: "required, must be a number"})
	}
	criteria.Latitude = lat
	criteria.Longitude = lng

	// The service substitutes the default for non-positive or non-finite radii.
	criteria.RadiusKm = location.DefaultRadiusKm
	if radius, err := parseFloat(q.Get("radius_km")); err == nil {
		criteria.RadiusKm = radius
	}

	if c := strings.TrimSpace(q.Get("category")); c != "" {
		category := location.Category(c)
		criteria.Category = &category
	}
	if g := strings.TrimSpace(q.Get("gender")); g != "" {
		gender := location.Gender(g)
		criteria.Gender = &gender
	}

	if openNow := parseBoolLike(q.Get("open_now")); openNow != nil {
		criteria.OpenNow = *openNow
	}
	criteria.Accessible = parseBoolLike(q.Get("accessible"))
	criteria.Pets = parseBoolLike(q.Get("pets"))

	return criteria, fieldErrors
}

func parseFloat(s string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(s), 64)
}

// parseBoolLike maps true/1/yes/y and false/0/no/n, case-insensitively.
// Anything else is nil.
func parseBoolLike(s string) *bool {
	var v bool
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "1", "yes", "y":
		v = true
	case "false", "0", "no", "n":
		v = false
	default:
		return nil
	}
	return &v
}

func toLocationDTO(l *location.Location) models.Location {
	dto := models.Location{
		ID:             l.ID,
		Name:           l.Name,
		Category:       string(l.Category),
		Phone:          l.Phone,
		Website:        l.Website,
		Address:        l.Address,
		Notes:          l.Notes,
		Source:         l.Source,
		DistanceMeters: l.DistanceMeters,
		Capacity:       l.Capacity,
		BedsAvailable:  l.BedsAvailable,
		Accessible:     l.Accessible,
		PetsAllowed:    l.PetsAllowed,
		LGBTQFriendly:  l.LGBTQFriendly,
		Latitude:       l.Latitude,
		Longitude:      l.Longitude,
	}

	if l.GenderRestriction != nil {
		g := string(*l.GenderRestriction)
		dto.GenderRestriction = &g
	}

	if len(l.Hours) > 0 {
		dto.Hours = make(map[string][]models.Interval, len(l.Hours))
		for day, intervals := range l.Hours {
			out := make([]models.Interval, len(intervals))
			for i, iv := range intervals {
				out[i] = models.Interval(iv)
			}
			dto.Hours[day] = out
		}
	}

	if l.UpdatedAt != nil {
		dto.UpdatedAt = models.NewTimestamp(*l.UpdatedAt)
	}
	if l.VerifiedAt != nil {
		dto.VerifiedAt = models.NewTimestamp(*l.VerifiedAt)
	}

	return dto
}
