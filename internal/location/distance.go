package location

import "math"

const earthRadiusKm = 6371.0

// DistanceKm returns the great-circle distance between two points using the
// haversine formula.
func DistanceKm(lat1, lng1, lat2, lng2 float64) float64 {
	dLat := degreesToRadians(lat2 - lat1)
	dLng := degreesToRadians(lng2 - lng1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(degreesToRadians(lat1))*math.Cos(degreesToRadians(lat2))*
			math.Sin(dLng/2)*math.Sin(dLng/2)

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusKm * c
}

// AttachDistance returns a copy of loc with DistanceMeters set to the
// rounded distance from the origin, or nil when loc has no coordinates.
func AttachDistance(loc Location, originLat, originLng float64) Location {
	if !loc.HasCoordinates() {
		loc.DistanceMeters = nil
		return loc
	}

	meters := math.Round(DistanceKm(originLat, originLng, *loc.Latitude, *loc.Longitude) * 1000)
	loc.DistanceMeters = &meters
	return loc
}

func degreesToRadians(deg float64) float64 {
	return deg * math.Pi / 180.0
}
