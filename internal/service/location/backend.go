package location

import (
	"context"

	"github.com/oshokin/marker-alerts/internal/domain/marker"
)

// Subscription is a live backend position watch.
type Subscription interface {
	// Cancel stops fix delivery. It must be safe to call more than once.
	Cancel()
}

// Backend is the platform positioning API the tracker drives.
type Backend interface {
	// RequestForegroundPermission asks for access while the app is in use.
	RequestForegroundPermission(ctx context.Context) (bool, error)
	// RequestBackgroundPermission asks for access while the app is not in use.
	RequestBackgroundPermission(ctx context.Context) (bool, error)
	// CurrentPosition performs a one-shot position fetch.
	CurrentPosition(ctx context.Context, accuracy marker.Accuracy) (marker.Coordinate, error)
	// WatchPosition delivers debounced fixes to onFix until the subscription is cancelled.
	WatchPosition(ctx context.Context, cfg marker.TrackerConfig, onFix func(marker.Coordinate)) (Subscription, error)
}
