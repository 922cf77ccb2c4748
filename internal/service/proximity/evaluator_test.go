package proximity

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/marker-alerts/internal/domain/marker"
	"github.com/oshokin/marker-alerts/internal/geo"
)

// TestEvaluate_Classification checks near/far against the threshold, boundary included.
func TestEvaluate_Classification(t *testing.T) {
	t.Parallel()

	origin := marker.Coordinate{Latitude: 58, Longitude: 56}
	markers := []*marker.Marker{
		{ID: 1, Coordinate: origin},
		{ID: 2, Coordinate: geo.Offset(origin, 30, 0)},
		{ID: 3, Coordinate: geo.Offset(origin, 0, 500)},
		nil,
	}

	decisions := NewEvaluator().Evaluate(origin, markers, 0)
	require.Len(t, decisions, 3)

	require.Equal(t, int64(1), decisions[0].Marker.ID)
	require.True(t, decisions[0].IsNear)
	require.Zero(t, decisions[0].Distance)

	require.Equal(t, int64(2), decisions[1].Marker.ID)
	require.True(t, decisions[1].IsNear)
	require.InDelta(t, 30, decisions[1].Distance, 0.1)

	require.Equal(t, int64(3), decisions[2].Marker.ID)
	require.False(t, decisions[2].IsNear)
}

// TestEvaluate_ThresholdIsInclusive verifies distance == threshold counts as near.
func TestEvaluate_ThresholdIsInclusive(t *testing.T) {
	t.Parallel()

	origin := marker.Coordinate{Latitude: 58, Longitude: 56}
	target := geo.Offset(origin, 100, 0)
	exact := geo.DistanceMeters(origin, target)

	decisions := NewEvaluator().Evaluate(origin, []*marker.Marker{{ID: 1, Coordinate: target}}, exact)
	require.True(t, decisions[0].IsNear)

	decisions = NewEvaluator().Evaluate(origin, []*marker.Marker{{ID: 1, Coordinate: target}}, exact-0.001)
	require.False(t, decisions[0].IsNear)
}

// TestEvaluate_Empty returns no decisions for no markers.
func TestEvaluate_Empty(t *testing.T) {
	t.Parallel()

	require.Empty(t, NewEvaluator().Evaluate(marker.Coordinate{}, nil, 100))
}
