// Package geo provides the great-circle math used to relate aircraft
// positions to the home point.
package geo

import "math"

const (
	// EarthRadiusKm is the mean Earth radius used for haversine distances.
	EarthRadiusKm = 6371.0

	kmPerDegreeLat = 111.32

	degToRad = math.Pi / 180.0
)

// Octants are the eight compass labels returned by CompassOctant, clockwise
// from north.
var Octants = [8]string{"N", "NE", "E", "SE", "S", "SW", "W", "NW"}

// DistanceKm returns the haversine great-circle distance in kilometers
// between two lat/lon points in decimal degrees.
func DistanceKm(lat1, lon1, lat2, lon2 float64) float64 {
	lat1Rad := lat1 * degToRad
	lon1Rad := lon1 * degToRad
	lat2Rad := lat2 * degToRad
	lon2Rad := lon2 * degToRad

	dlat := lat2Rad - lat1Rad
	dlon := lon2Rad - lon1Rad

	a := math.Pow(math.Sin(dlat/2), 2) + math.Cos(lat1Rad)*math.Cos(lat2Rad)*math.Pow(math.Sin(dlon/2), 2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return EarthRadiusKm * c
}

// BearingDeg returns the initial bearing in degrees from point 1 to point 2.
// 0 = due north, clockwise positive, always in [0, 360).
func BearingDeg(lat1, lon1, lat2, lon2 float64) float64 {
	lat1Rad := lat1 * degToRad
	lon1Rad := lon1 * degToRad
	lat2Rad := lat2 * degToRad
	lon2Rad := lon2 * degToRad

	y := math.Sin(lon2Rad-lon1Rad) * math.Cos(lat2Rad)
	x := math.Cos(lat1Rad)*math.Sin(lat2Rad) - math.Sin(lat1Rad)*math.Cos(lat2Rad)*math.Cos(lon2Rad-lon1Rad)
	bearing := math.Atan2(y, x) / degToRad

	// Normalize to [0, 360). Mod can return -0 for small negatives, so add a
	// full turn first.
	bearing = math.Mod(bearing+360.0, 360.0)
	if bearing == 360.0 {
		bearing = 0
	}
	return bearing
}

// CompassOctant buckets a bearing into the nearest of the eight compass
// octants. Boundaries sit at 22.5° + k·45°; a bearing exactly on a boundary
// rounds toward the higher octant index.
func CompassOctant(bearingDeg float64) string {
	b := math.Mod(bearingDeg, 360.0)
	if b < 0 {
		b += 360.0
	}
	idx := int((b+22.5)/45.0) % 8
	return Octants[idx]
}

// BoundingBox converts a center point plus radius into the (lamin, lomin,
// lamax, lomax) rectangle the state API expects. Longitude degrees shrink
// with latitude; near the poles the divisor is clamped so the box stays
// finite.
func BoundingBox(lat, lon, radiusKm float64) (lamin, lomin, lamax, lomax float64) {
	kmPerDegreeLon := kmPerDegreeLat * math.Cos(lat*degToRad)
	if kmPerDegreeLon < 1 {
		kmPerDegreeLon = 1
	}

	dlat := radiusKm / kmPerDegreeLat
	dlon := radiusKm / kmPerDegreeLon

	return lat - dlat, lon - dlon, lat + dlat, lon + dlon
}
