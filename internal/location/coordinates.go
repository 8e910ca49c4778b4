package location

import (
	"encoding/json"
	"math"
)

// Row is one raw record returned by a store. Its shape varies by backend:
// pgx yields native Go values, JSON backends yield float64 and string.
type Row map[string]any

// CoordinateShape identifies which row shape supplied a coordinate pair.
type CoordinateShape int

const (
	ShapeNone CoordinateShape = iota
	ShapeLatitudeLongitude
	ShapeLatLng
	ShapeGeometryObject
	ShapeGeometryText
)

func (s CoordinateShape) String() string {
	switch s {
	case ShapeLatitudeLongitude:
		return "latitude_longitude"
	case ShapeLatLng:
		return "lat_lng"
	case ShapeGeometryObject:
		return "geometry_object"
	case ShapeGeometryText:
		return "geometry_text"
	default:
		return "none"
	}
}

// Coordinates is a resolved (latitude, longitude) pair. Both are nil when
// no shape matched.
type Coordinates struct {
	Latitude  *float64
	Longitude *float64
	Shape     CoordinateShape
}

// geometryKeys are the row keys that may carry a GeoJSON point.
var geometryKeys = []string{"geom", "geometry"}

type coordinateResolver struct {
	shape   CoordinateShape
	resolve func(Row) (lat, lng float64, ok bool)
}

// coordinateResolvers is tried in order; the first match wins.
var coordinateResolvers = []coordinateResolver{
	{shape: ShapeLatitudeLongitude, resolve: fieldPair("latitude", "longitude")},
	{shape: ShapeLatLng, resolve: fieldPair("lat", "lng")},
	{shape: ShapeGeometryObject, resolve: geometryObject},
	{shape: ShapeGeometryText, resolve: geometryText},
}

// ExtractCoordinates normalizes the coordinate representations a store may
// return into one canonical pair. Malformed geometry never fails the row; it
// simply resolves to no coordinates.
func ExtractCoordinates(row Row) Coordinates {
	for _, r := range coordinateResolvers {
		if lat, lng, ok := r.resolve(row); ok {
			return Coordinates{Latitude: &lat, Longitude: &lng, Shape: r.shape}
		}
	}
	return Coordinates{Shape: ShapeNone}
}

func fieldPair(latKey, lngKey string) func(Row) (float64, float64, bool) {
	return func(row Row) (float64, float64, bool) {
		lat, ok := asFloat(row[latKey])
		if !ok {
			return 0, 0, false
		}
		lng, ok := asFloat(row[lngKey])
		if !ok {
			return 0, 0, false
		}
		return lat, lng, true
	}
}

// geometryObject reads a decoded GeoJSON object whose coordinates are in
// (longitude, latitude) order.
func geometryObject(row Row) (float64, float64, bool) {
	for _, key := range geometryKeys {
		obj, ok := row[key].(map[string]any)
		if !ok {
			continue
		}
		if lat, lng, ok := pointFromCoordinates(obj["coordinates"]); ok {
			return lat, lng, true
		}
	}
	return 0, 0, false
}

type geoJSONPoint struct {
	Coordinates []float64 `json:"coordinates"`
}

// geometryText reads a GeoJSON object serialized as text.
func geometryText(row Row) (float64, float64, bool) {
	for _, key := range geometryKeys {
		var raw []byte
		switch v := row[key].(type) {
		case string:
			raw = []byte(v)
		case []byte:
			raw = v
		default:
			continue
		}

		var point geoJSONPoint
		if err := json.Unmarshal(raw, &point); err != nil {
			continue
		}
		if len(point.Coordinates) < 2 || !finite(point.Coordinates[0]) || !finite(point.Coordinates[1]) {
			continue
		}
		return point.Coordinates[1], point.Coordinates[0], true
	}
	return 0, 0, false
}

func pointFromCoordinates(v any) (float64, float64, bool) {
	switch coords := v.(type) {
	case []any:
		if len(coords) < 2 {
			return 0, 0, false
		}
		lng, ok := asFloat(coords[0])
		if !ok {
			return 0, 0, false
		}
		lat, ok := asFloat(coords[1])
		if !ok {
			return 0, 0, false
		}
		return lat, lng, true
	case []float64:
		if len(coords) < 2 || !finite(coords[0]) || !finite(coords[1]) {
			return 0, 0, false
		}
		return coords[1], coords[0], true
	default:
		return 0, 0, false
	}
}

// asFloat accepts only numeric values; numeric strings do not count.
func asFloat(v any) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int16:
		f = float64(n)
	case int32:
		f = float64(n)
	case int64:
		f = float64(n)
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if !finite(f) {
		return 0, false
	}
	return f, true
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
