package handler

import (
	"net/http"

	"github.com/carefinder/carefinder/internal/api/models"
	"github.com/carefinder/carefinder/internal/api/response"
	"github.com/carefinder/carefinder/internal/location"
)

// MetadataHandler handles metadata endpoints.
type MetadataHandler struct{}

// NewMetadataHandler creates a new MetadataHandler.
func NewMetadataHandler() *MetadataHandler {
	return &MetadataHandler{}
}

// GetEnums handles GET /v1/metadata/enums - get enum values used by the API.
func (h *MetadataHandler) GetEnums(w http.ResponseWriter, r *http.Request) {
	enums := models.Enums{
		MaxResults:      location.MaxResults,
		DefaultRadiusKm: location.DefaultRadiusKm,
	}
	for _, c := range location.Categories() {
		enums.Categories = append(enums.Categories, string(c))
	}
	for _, g := range location.Genders() {
		enums.GenderRestrictions = append(enums.GenderRestrictions, string(g))
	}

	response.JSON(w, r, http.StatusOK, enums)
}
