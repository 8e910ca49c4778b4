package handler_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carefinder/carefinder/internal/api/handler"
	"github.com/carefinder/carefinder/internal/location"
)

type finderFunc func(ctx context.Context, c location.FilterCriteria) ([]location.Location, error)

func (f finderFunc) FindNearby(ctx context.Context, c location.FilterCriteria) ([]location.Location, error) {
	return f(ctx, c)
}

func serve(t *testing.T, finder handler.LocationFinder, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, http.NoBody)
	w := httptest.NewRecorder()
	handler.NewLocationHandler(finder).FindNearby(w, req)
	return w
}

func TestLocationHandler_ParsesCriteria(t *testing.T) {
	var got location.FilterCriteria
	finder := finderFunc(func(_ context.Context, c location.FilterCriteria) ([]location.Location, error) {
		got = c
		return nil, nil
	})

	w := serve(t, finder, "/locations?lat=43.65&lng=-79.38&radius_km=2.5&category=clinic&open_now=1&accessible=No&pets=TRUE&gender=")
	require.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, 43.65, got.Latitude)
	assert.Equal(t, -79.38, got.Longitude)
	assert.Equal(t, 2.5, got.RadiusKm)
	require.NotNil(t, got.Category)
	assert.Equal(t, location.CategoryClinic, *got.Category)
	assert.True(t, got.OpenNow)
	require.NotNil(t, got.Accessible)
	assert.False(t, *got.Accessible)
	require.NotNil(t, got.Pets)
	assert.True(t, *got.Pets)
	assert.Nil(t, got.Gender, "empty gender is absent")
	assert.JSONEq(t, `{"results":[]}`, w.Body.String())
}

func TestLocationHandler_BoolLikeValues(t *testing.T) {
	tests := []struct {
		value string
		want  *bool
	}{
		{"true", boolPtr(true)},
		{"Yes", boolPtr(true)},
		{"y", boolPtr(true)},
		{"1", boolPtr(true)},
		{"FALSE", boolPtr(false)},
		{"no", boolPtr(false)},
		{"N", boolPtr(false)},
		{"0", boolPtr(false)},
		{"", nil},
		{"maybe", nil},
		{"2", nil},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			var got location.FilterCriteria
			finder := finderFunc(func(_ context.Context, c location.FilterCriteria) ([]location.Location, error) {
				got = c
				return nil, nil
			})

			w := serve(t, finder, "/locations?lat=0&lng=0&pets="+tt.value)
			require.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, tt.want, got.Pets)
		})
	}
}

func TestLocationHandler_UnparsableRadiusUsesDefault(t *testing.T) {
	var got location.FilterCriteria
	finder := finderFunc(func(_ context.Context, c location.FilterCriteria) ([]location.Location, error) {
		got = c
		return nil, nil
	})

	serve(t, finder, "/locations?lat=0&lng=0&radius_km=far")
	assert.Equal(t, location.DefaultRadiusKm, got.RadiusKm)
}

func TestLocationHandler_MissingCoordinates(t *testing.T) {
	called := false
	finder := finderFunc(func(context.Context, location.FilterCriteria) ([]location.Location, error) {
		called = true
		return nil, nil
	})

	w := serve(t, finder, "/locations")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.False(t, called)

	var body struct {
		Error  string `json:"error"`
		Errors []struct {
			Field string `json:"field"`
		} `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.NotEmpty(t, body.Error)
	require.Len(t, body.Errors, 2)
	assert.Equal(t, "lat", body.Errors[0].Field)
	assert.Equal(t, "lng", body.Errors[1].Field)
}

func TestLocationHandler_InvalidOrigin(t *testing.T) {
	finder := finderFunc(func(context.Context, location.FilterCriteria) ([]location.Location, error) {
		return nil, location.ErrInvalidOrigin
	})

	w := serve(t, finder, "/locations?lat=NaN&lng=0")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLocationHandler_UnexpectedError(t *testing.T) {
	finder := finderFunc(func(context.Context, location.FilterCriteria) ([]location.Location, error) {
		return nil, errors.New("boom")
	})

	w := serve(t, finder, "/locations?lat=0&lng=0")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestLocationHandler_ResultShape(t *testing.T) {
	verified := time.Date(2024, time.March, 1, 8, 30, 0, 0, time.UTC)
	women := location.GenderWomen
	zero := 0
	distance := 412.0
	lat, lng := 43.65, -79.38

	finder := finderFunc(func(context.Context, location.FilterCriteria) ([]location.Location, error) {
		return []location.Location{
			{
				ID:                "loc-1",
				Name:              "Night Shelter",
				Category:          location.CategoryShelter,
				BedsAvailable:     &zero,
				GenderRestriction: &women,
				Hours:             location.HoursSchedule{"fri": {{"22:00", "02:00"}}},
				Latitude:          &lat,
				Longitude:         &lng,
				VerifiedAt:        &verified,
				DistanceMeters:    &distance,
			},
			{ID: "loc-2", Name: "Outreach Van", Category: location.CategoryOutreach},
		}, nil
	})

	w := serve(t, finder, "/locations?lat=43.65&lng=-79.38")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Results []map[string]any `json:"results"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Results, 2)

	first := body.Results[0]
	assert.Equal(t, "loc-1", first["id"])
	assert.Equal(t, "shelter", first["category"])
	assert.Equal(t, 412.0, first["distance_m"])
	assert.Equal(t, 0.0, first["beds_available"], "zero beds is a value, not unknown")
	assert.Nil(t, first["capacity"])
	assert.Equal(t, "women", first["gender_restriction"])
	assert.Equal(t, "2024-03-01T08:30:00Z", first["verified_at"])
	assert.Equal(t, map[string]any{"fri": []any{[]any{"22:00", "02:00"}}}, first["hours"])

	second := body.Results[1]
	assert.Contains(t, second, "distance_m")
	assert.Nil(t, second["distance_m"])
	assert.Nil(t, second["gender_restriction"])
	assert.NotContains(t, second, "hours")
}

func boolPtr(b bool) *bool {
	return &b
}
