package proximity

import (
	"github.com/oshokin/marker-alerts/internal/domain/marker"
	"github.com/oshokin/marker-alerts/internal/geo"
)

// DefaultThresholdMeters is the distance at or below which a marker is near.
const DefaultThresholdMeters = 100.0

// Decision is the classification of one marker for one position.
type Decision struct {
	// Marker is the evaluated marker snapshot.
	Marker *marker.Marker
	// Distance is the great-circle distance in meters.
	Distance float64
	// IsNear is true when Distance <= threshold.
	IsNear bool
}

// Evaluator classifies markers. It holds no state between calls.
type Evaluator struct {
	// distance computes meters between two coordinates.
	distance func(a, b marker.Coordinate) float64
}

// NewEvaluator returns an evaluator using the haversine distance.
func NewEvaluator() *Evaluator {
	return &Evaluator{distance: geo.DistanceMeters}
}

// Evaluate classifies every marker against current. Decisions keep the input order.
// A non-positive threshold falls back to DefaultThresholdMeters.
func (e *Evaluator) Evaluate(current marker.Coordinate, markers []*marker.Marker, threshold float64) []Decision {
	if threshold <= 0 {
		threshold = DefaultThresholdMeters
	}

	decisions := make([]Decision, 0, len(markers))

	for _, m := range markers {
		if m == nil {
			continue
		}

		d := e.distance(current, m.Coordinate)
		decisions = append(decisions, Decision{
			Marker:   m,
			Distance: d,
			IsNear:   d <= threshold,
		})
	}

	return decisions
}
