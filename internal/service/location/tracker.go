package location

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/oshokin/marker-alerts/internal/domain/marker"
	"github.com/oshokin/marker-alerts/internal/logger"
	"github.com/oshokin/marker-alerts/internal/permission"
)

var (
	// ErrFetchFailed wraps backend failures of the one-shot position fetch.
	ErrFetchFailed = errors.New("location fetch failed")
	// errBackendRequired is returned when a tracker is built without a backend.
	errBackendRequired = errors.New("location backend must be provided")
)

// Tracker owns the live position of the user.
type Tracker struct {
	// backend is the platform positioning API.
	backend Backend
	// config controls accuracy and debounce of delivered fixes.
	config marker.TrackerConfig

	// mu protects granted and last.
	mu sync.Mutex
	// granted is set once foreground and background permissions were given.
	granted bool
	// last is the last known position, nil until the first fix.
	last *marker.Coordinate

	// subMu serialises start and stop so only one backend watch exists.
	subMu sync.Mutex
	// current is the active subscription handle, nil when not subscribed.
	current *Handle
}

// NewTracker creates a tracker over backend. Zero config fields take defaults.
func NewTracker(backend Backend, cfg marker.TrackerConfig) (*Tracker, error) {
	if backend == nil {
		return nil, errBackendRequired
	}

	return &Tracker{
		backend: backend,
		config:  cfg.WithDefaults(),
	}, nil
}

// Config returns the effective tracker configuration.
func (t *Tracker) Config() marker.TrackerConfig {
	return t.config
}

// RequestPermissions asks for foreground access, then background access.
// Either refusal yields a *permission.DeniedError naming the refused scope.
func (t *Tracker) RequestPermissions(ctx context.Context) error {
	granted, err := t.backend.RequestForegroundPermission(ctx)
	if err != nil {
		return fmt.Errorf("request foreground location permission: %w", err)
	}

	if !granted {
		return permission.Denied(permission.ScopeForeground)
	}

	granted, err = t.backend.RequestBackgroundPermission(ctx)
	if err != nil {
		return fmt.Errorf("request background location permission: %w", err)
	}

	if !granted {
		return permission.Denied(permission.ScopeBackground)
	}

	t.mu.Lock()
	t.granted = true
	t.mu.Unlock()

	return nil
}

// ObtainCurrentLocation returns the cached position or performs a one-shot fetch.
// Failures are logged and reported as nil.
func (t *Tracker) ObtainCurrentLocation(ctx context.Context) *marker.Coordinate {
	t.mu.Lock()
	granted, last := t.granted, t.last
	t.mu.Unlock()

	if !granted {
		logger.WarnKV(ctx, "Couldn't obtain current location", "error", permission.ErrNotGranted)
		return nil
	}

	if last != nil {
		position := *last
		return &position
	}

	position, err := t.backend.CurrentPosition(ctx, t.config.Accuracy)
	if err != nil {
		logger.WarnKV(ctx, "Couldn't obtain current location", "error", fmt.Errorf("%w: %w", ErrFetchFailed, err))
		return nil
	}

	t.remember(position)

	return &position
}

// LastKnown returns the cached position without touching the backend.
func (t *Tracker) LastKnown() (marker.Coordinate, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.last == nil {
		return marker.Coordinate{}, false
	}

	return *t.last, true
}

// StartLocationUpdates subscribes onLocation to position changes.
// Calling it while subscribed returns the existing handle without a second backend watch.
func (t *Tracker) StartLocationUpdates(ctx context.Context, onLocation func(marker.Coordinate)) (*Handle, error) {
	t.mu.Lock()
	granted := t.granted
	t.mu.Unlock()

	if !granted {
		return nil, fmt.Errorf("start location updates: %w", permission.ErrNotGranted)
	}

	t.subMu.Lock()
	defer t.subMu.Unlock()

	if t.current != nil {
		return t.current, nil
	}

	handle := &Handle{tracker: t}

	subscription, err := t.backend.WatchPosition(ctx, t.config, func(position marker.Coordinate) {
		if handle.stopped.Load() {
			return
		}

		t.remember(position)

		if onLocation != nil {
			onLocation(position)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("watch position: %w", err)
	}

	handle.subscription = subscription
	t.current = handle

	logger.InfoKV(ctx, "Location updates started",
		"accuracy", t.config.Accuracy.String(),
		"min_time_interval", t.config.MinTimeInterval.String(),
		"min_distance_interval", t.config.MinDistanceInterval,
	)

	return handle, nil
}

// StopLocationUpdates cancels the active subscription, if any.
// Notification state is not touched.
func (t *Tracker) StopLocationUpdates() {
	t.subMu.Lock()
	handle := t.current
	t.current = nil
	t.subMu.Unlock()

	if handle != nil {
		handle.cancel()
	}
}

// Subscribed reports whether a backend watch is active.
func (t *Tracker) Subscribed() bool {
	t.subMu.Lock()
	defer t.subMu.Unlock()

	return t.current != nil
}

// remember stores position as the last known one.
func (t *Tracker) remember(position marker.Coordinate) {
	t.mu.Lock()
	t.last = &position
	t.mu.Unlock()
}

// Handle is the cancellable subscription returned by StartLocationUpdates.
type Handle struct {
	// tracker owns the handle.
	tracker *Tracker
	// subscription is the backend watch.
	subscription Subscription
	// stopped drops fixes delivered after cancellation.
	stopped atomic.Bool
	// once guards the backend cancellation.
	once sync.Once
}

// Stop cancels the subscription. Repeated calls are no-ops.
func (h *Handle) Stop() {
	h.tracker.subMu.Lock()
	if h.tracker.current == h {
		h.tracker.current = nil
	}
	h.tracker.subMu.Unlock()

	h.cancel()
}

// cancel stops the backend watch exactly once.
func (h *Handle) cancel() {
	h.once.Do(func() {
		h.stopped.Store(true)

		if h.subscription != nil {
			h.subscription.Cancel()
		}
	})
}
