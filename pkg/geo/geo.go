// Package geo provides geographic primitives and distance calculations.
package geo

import (
	"math"

	"github.com/tidwall/geodesic"
)

// EarthRadius is the mean Earth radius in meters.
const EarthRadius = 6371000.0

// Location is a WGS-84 coordinate pair in decimal degrees.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// IsZero reports whether the location is the zero value.
func (l Location) IsZero() bool {
	return l.Latitude == 0 && l.Longitude == 0
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}

// HaversineDistance calculates the great-circle distance in meters between
// two points on a sphere of radius EarthRadius.
func HaversineDistance(lat1, lon1, lat2, lon2 float64) float64 {
	phi1 := toRadians(lat1)
	phi2 := toRadians(lat2)
	dPhi := toRadians(lat2 - lat1)
	dLambda := toRadians(lon2 - lon1)

	a := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return EarthRadius * c
}

// GeodesicDistance returns the shortest distance in meters between two
// points on the WGS-84 ellipsoid. It is accurate to nanometers everywhere,
// including nearly antipodal points.
func GeodesicDistance(lat1, lon1, lat2, lon2 float64) float64 {
	var s12 float64
	geodesic.WGS84.Inverse(lat1, lon1, lat2, lon2, &s12, nil, nil)
	return s12
}

// GeodesicKm is GeodesicDistance between two locations, in kilometers.
func GeodesicKm(from, to Location) float64 {
	return GeodesicDistance(from.Latitude, from.Longitude, to.Latitude, to.Longitude) / 1000
}

// Valid reports whether the latitude and longitude are within range.
func (l Location) Valid() bool {
	return l.Latitude >= -90 && l.Latitude <= 90 && l.Longitude >= -180 && l.Longitude <= 180
}
