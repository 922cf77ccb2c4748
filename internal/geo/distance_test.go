package geo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/marker-alerts/internal/domain/marker"
)

// TestDistanceMeters_Self verifies the distance from a point to itself is exactly zero.
func TestDistanceMeters_Self(t *testing.T) {
	t.Parallel()

	for _, c := range []marker.Coordinate{
		{},
		{Latitude: 58, Longitude: 56},
		{Latitude: -33.8688, Longitude: 151.2093},
		{Latitude: 90, Longitude: 180},
	} {
		require.Zero(t, DistanceMeters(c, c), c.String())
	}
}

// TestDistanceMeters_Meridian checks one degree of latitude against R*pi/180.
func TestDistanceMeters_Meridian(t *testing.T) {
	t.Parallel()

	a := marker.Coordinate{Latitude: 58, Longitude: 56}
	b := marker.Coordinate{Latitude: 59, Longitude: 56}

	want := EarthRadiusMeters * math.Pi / 180 // ~111 195 m.

	require.InDelta(t, want, DistanceMeters(a, b), 0.01)
	require.InDelta(t, 111_195, DistanceMeters(a, b), 1)
}

// TestDistanceMeters_Symmetric verifies argument order does not matter.
func TestDistanceMeters_Symmetric(t *testing.T) {
	t.Parallel()

	a := marker.Coordinate{Latitude: 55.7558, Longitude: 37.6173}
	b := marker.Coordinate{Latitude: 59.9343, Longitude: 30.3351}

	require.InDelta(t, DistanceMeters(a, b), DistanceMeters(b, a), 1e-6)
	// Moscow to Saint Petersburg is roughly 634 km.
	require.InDelta(t, 634_000, DistanceMeters(a, b), 2_000)
}

// TestOffset_RoundTripsThroughDistance checks Offset against DistanceMeters.
func TestOffset_RoundTripsThroughDistance(t *testing.T) {
	t.Parallel()

	origin := marker.Coordinate{Latitude: 58, Longitude: 56}

	require.InDelta(t, 30, DistanceMeters(origin, Offset(origin, 30, 0)), 0.01)
	require.InDelta(t, 500, DistanceMeters(origin, Offset(origin, 0, 500)), 0.1)
	require.InDelta(t, 50, DistanceMeters(origin, Offset(origin, 30, 40)), 0.05)
}
