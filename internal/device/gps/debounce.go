package gps

import (
	"time"

	"github.com/oshokin/marker-alerts/internal/domain/marker"
	"github.com/oshokin/marker-alerts/internal/geo"
)

// debouncer drops fixes that arrive too soon or moved too little.
// It is used by a single reader goroutine and is not safe for concurrent use.
type debouncer struct {
	// minInterval is the minimum delay between delivered fixes.
	minInterval time.Duration
	// minDistance is the minimum movement in meters between delivered fixes.
	minDistance float64
	// now is the clock.
	now func() time.Time

	// last is the last delivered position.
	last *marker.Coordinate
	// lastAt is when last was delivered.
	lastAt time.Time
}

func newDebouncer(cfg marker.TrackerConfig, now func() time.Time) *debouncer {
	return &debouncer{
		minInterval: cfg.MinTimeInterval,
		minDistance: cfg.MinDistanceInterval,
		now:         now,
	}
}

// allow reports whether c should be delivered and records it if so.
// The first fix always passes; later ones need both the interval and the distance.
func (d *debouncer) allow(c marker.Coordinate) bool {
	now := d.now()

	if d.last != nil {
		if now.Sub(d.lastAt) < d.minInterval {
			return false
		}

		if geo.DistanceMeters(*d.last, c) < d.minDistance {
			return false
		}
	}

	d.last = &c
	d.lastAt = now

	return true
}
