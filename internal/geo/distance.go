package geo

import (
	"math"

	"github.com/oshokin/marker-alerts/internal/domain/marker"
)

// EarthRadiusMeters is the mean Earth radius used by the haversine formula.
const EarthRadiusMeters = 6_371_000.0

// DistanceMeters returns the great-circle distance between a and b.
func DistanceMeters(a, b marker.Coordinate) float64 {
	phi1 := toRadians(a.Latitude)
	phi2 := toRadians(b.Latitude)
	deltaPhi := toRadians(b.Latitude - a.Latitude)
	deltaLambda := toRadians(b.Longitude - a.Longitude)

	sinHalfPhi := math.Sin(deltaPhi / 2)
	sinHalfLambda := math.Sin(deltaLambda / 2)

	h := sinHalfPhi*sinHalfPhi + math.Cos(phi1)*math.Cos(phi2)*sinHalfLambda*sinHalfLambda

	return 2 * EarthRadiusMeters * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// Offset moves c by north and east meters on the local tangent plane.
// It is accurate to well under a meter for the short distances proximity checks use.
func Offset(c marker.Coordinate, northMeters, eastMeters float64) marker.Coordinate {
	dLat := northMeters / EarthRadiusMeters
	dLon := eastMeters / (EarthRadiusMeters * math.Cos(toRadians(c.Latitude)))

	return marker.Coordinate{
		Latitude:  c.Latitude + dLat*180/math.Pi,
		Longitude: c.Longitude + dLon*180/math.Pi,
	}
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}
