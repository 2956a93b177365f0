// Package geo provides great-circle distance math and the candidate
// selection filters used to compute alert recipient sets. Everything in
// this package is a pure computation over actor snapshots; nothing here
// mutates state.
package geo

import (
	"math"

	"bloodlink/internal/domain"
)

// earthRadiusKm is the mean spherical-earth radius used by the haversine
// approximation.
const earthRadiusKm = 6371.0

// Distance returns the great-circle distance in kilometers between two
// locations using the haversine formula.
func Distance(a, b domain.Location) float64 {
	dLat := toRadians(b.Latitude - a.Latitude)
	dLon := toRadians(b.Longitude - a.Longitude)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRadians(a.Latitude))*math.Cos(toRadians(b.Latitude))*
			math.Sin(dLon/2)*math.Sin(dLon/2)

	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return earthRadiusKm * c
}

// InRadius returns true if the point lies within radiusKm of center.
// The boundary is inclusive: a point exactly at the radius is in range.
func InRadius(center, point domain.Location, radiusKm float64) bool {
	return Distance(center, point) <= radiusKm
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}
