package location

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DecodeRow converts a raw store row into a Location. Unknown or mistyped
// fields are left unset rather than failing the row.
func DecodeRow(row Row) Location {
	coords := ExtractCoordinates(row)

	loc := Location{
		ID:                rowString(row, "id"),
		Name:              rowString(row, "name"),
		Category:          Category(rowString(row, "category")),
		Phone:             rowString(row, "phone"),
		Website:           rowString(row, "website"),
		Address:           rowString(row, "address"),
		Notes:             rowString(row, "notes"),
		Source:            rowString(row, "source"),
		Capacity:          rowInt(row, "capacity"),
		BedsAvailable:     rowInt(row, "beds_available"),
		Hours:             rowHours(row, "hours"),
		Accessible:        rowBool(row, "accessible"),
		PetsAllowed:       rowBool(row, "pets_allowed"),
		LGBTQFriendly:     rowBool(row, "lgbtq_friendly"),
		Latitude:          coords.Latitude,
		Longitude:         coords.Longitude,
		UpdatedAt:         rowTime(row, "updated_at"),
		VerifiedAt:        rowTime(row, "verified_at"),
		DistanceMeters:    rowDistance(row, "distance_m"),
		GenderRestriction: rowGender(row, "gender_restriction"),
	}
	return loc
}

// DecodeRows decodes every row in order.
func DecodeRows(rows []Row) []Location {
	locations := make([]Location, 0, len(rows))
	for _, row := range rows {
		locations = append(locations, DecodeRow(row))
	}
	return locations
}

func rowString(row Row, key string) string {
	switch v := row[key].(type) {
	case string:
		return v
	case []byte:
		return string(v)
	case nil:
		return ""
	case [16]byte:
		return uuid.UUID(v).String()
	case int32:
		return strconv.FormatInt(int64(v), 10)
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case fmt.Stringer:
		return v.String()
	default:
		return ""
	}
}

func rowInt(row Row, key string) *int {
	f, ok := asFloat(row[key])
	if !ok {
		return nil
	}
	n := int(math.Round(f))
	return &n
}

func rowBool(row Row, key string) *bool {
	b, ok := row[key].(bool)
	if !ok {
		return nil
	}
	return &b
}

func rowGender(row Row, key string) *Gender {
	s := strings.TrimSpace(rowString(row, key))
	if s == "" {
		return nil
	}
	g := Gender(s)
	return &g
}

// rowDistance accepts only non-negative finite store distances.
func rowDistance(row Row, key string) *float64 {
	f, ok := asFloat(row[key])
	if !ok || f < 0 {
		return nil
	}
	return &f
}

func rowTime(row Row, key string) *time.Time {
	switch v := row[key].(type) {
	case time.Time:
		return &v
	case string:
		t, err := time.Parse(time.RFC3339Nano, v)
		if err != nil {
			return nil
		}
		return &t
	default:
		return nil
	}
}

// rowHours accepts a decoded JSON object or its text form. Anything that
// does not decode is treated as no published hours.
func rowHours(row Row, key string) HoursSchedule {
	var raw []byte
	switch v := row[key].(type) {
	case nil:
		return nil
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return nil
		}
		raw = encoded
	}

	var schedule HoursSchedule
	if err := json.Unmarshal(raw, &schedule); err != nil {
		return nil
	}
	return schedule
}
