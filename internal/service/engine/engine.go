package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/oshokin/marker-alerts/internal/domain/marker"
	"github.com/oshokin/marker-alerts/internal/logger"
	"github.com/oshokin/marker-alerts/internal/metrics"
	"github.com/oshokin/marker-alerts/internal/permission"
	"github.com/oshokin/marker-alerts/internal/service/location"
	"github.com/oshokin/marker-alerts/internal/service/notification"
	"github.com/oshokin/marker-alerts/internal/service/proximity"
)

// MarkerStore yields the current marker list.
type MarkerStore interface {
	QueryMarkers(ctx context.Context) ([]*marker.Marker, error)
}

// MarkerDeleter is implemented by stores that can delete markers.
type MarkerDeleter interface {
	DeleteMarker(ctx context.Context, id int64) (bool, error)
}

// Status is the coarse engine state reported to listeners.
type Status int

// Engine statuses.
const (
	StatusStarting Status = iota
	StatusServing
	StatusDenied
	StatusStopped
)

// String implements fmt.Stringer.
func (s Status) String() string {
	switch s {
	case StatusStarting:
		return "starting"
	case StatusServing:
		return "serving"
	case StatusDenied:
		return "denied"
	case StatusStopped:
		return "stopped"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

const (
	// DefaultConcurrency bounds the per-tick fan-out of sink calls.
	DefaultConcurrency = 16
	// DefaultFetchTimeout bounds the initial one-shot position fetch.
	DefaultFetchTimeout = 30 * time.Second
)

var (
	// errMissingDependency is returned when a required collaborator is nil.
	errMissingDependency = errors.New("engine dependency must be provided")
	// errDeleteUnsupported is returned when the store cannot delete markers.
	errDeleteUnsupported = errors.New("marker store does not support deletion")
)

// Option configures an Engine.
type Option func(*Engine)

// WithThreshold sets the proximity threshold in meters.
func WithThreshold(meters float64) Option {
	return func(e *Engine) {
		if meters > 0 {
			e.threshold = meters
		}
	}
}

// WithConcurrency bounds how many markers react in parallel within one tick.
func WithConcurrency(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.concurrency = n
		}
	}
}

// WithFetchTimeout bounds the initial position fetch done by Start.
func WithFetchTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.fetchTimeout = d
		}
	}
}

// WithStatusListener registers fn to observe status changes.
func WithStatusListener(fn func(Status)) Option {
	return func(e *Engine) {
		if fn != nil {
			e.listeners = append(e.listeners, fn)
		}
	}
}

// Engine drives the notification lifecycle from position updates.
type Engine struct {
	// tracker owns the live position.
	tracker *location.Tracker
	// notifications owns the dedup state.
	notifications *notification.Manager
	// evaluator classifies markers.
	evaluator *proximity.Evaluator
	// store yields marker snapshots.
	store MarkerStore

	// threshold is the proximity threshold in meters.
	threshold float64
	// concurrency bounds the per-tick fan-out.
	concurrency int
	// fetchTimeout bounds the initial position fetch.
	fetchTimeout time.Duration
	// listeners observe status changes.
	listeners []func(Status)

	// tickMu guards stopping against concurrent tick dispatch.
	tickMu sync.Mutex
	// stopping rejects ticks dispatched after Stop began.
	stopping bool
	// ticks tracks in-flight location ticks.
	ticks sync.WaitGroup
}

// New creates an engine over its collaborators.
func New(
	tracker *location.Tracker,
	notifications *notification.Manager,
	store MarkerStore,
	opts ...Option,
) (*Engine, error) {
	if tracker == nil || notifications == nil || store == nil {
		return nil, errMissingDependency
	}

	e := &Engine{
		tracker:       tracker,
		notifications: notifications,
		evaluator:     proximity.NewEvaluator(),
		store:         store,
		threshold:     proximity.DefaultThresholdMeters,
		concurrency:   DefaultConcurrency,
		fetchTimeout:  DefaultFetchTimeout,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e, nil
}

// Threshold returns the proximity threshold in meters.
func (e *Engine) Threshold() float64 {
	return e.threshold
}

// Tracker returns the location tracker.
func (e *Engine) Tracker() *location.Tracker {
	return e.tracker
}

// Notifications returns the notification manager.
func (e *Engine) Notifications() *notification.Manager {
	return e.notifications
}

// RequestPermissions asks the tracker and the notification manager in parallel.
func (e *Engine) RequestPermissions(ctx context.Context) error {
	return permission.RequestAll(ctx, e.tracker, e.notifications)
}

// LookupMarkersNearby runs one evaluate-and-react cycle for current over markers.
// Near markers are shown, far markers removed; one marker's failure never blocks the rest.
func (e *Engine) LookupMarkersNearby(ctx context.Context, current marker.Coordinate, markers []*marker.Marker) {
	started := time.Now()

	decisions := e.evaluator.Evaluate(current, markers, e.threshold)

	var group errgroup.Group

	group.SetLimit(e.concurrency)

	for _, decision := range decisions {
		group.Go(func() error {
			if decision.IsNear {
				e.notifications.Show(ctx, decision.Marker)
			} else {
				e.notifications.Remove(ctx, decision.Marker.ID)
			}

			return nil
		})
	}

	//nolint:errcheck // Reactions never return errors; failures are logged per marker.
	_ = group.Wait()

	metrics.TicksTotal.Inc()
	metrics.MarkersEvaluatedTotal.Add(float64(len(decisions)))
	metrics.TickDurationMs.Observe(float64(time.Since(started).Milliseconds()))

	logger.DebugKV(ctx, "Markers evaluated",
		"position", current.String(),
		"markers", len(decisions),
		"took", time.Since(started).String(),
	)
}

// HandleLocation queries a fresh marker snapshot and evaluates it against current.
// A store failure is logged and the tick skipped.
func (e *Engine) HandleLocation(ctx context.Context, current marker.Coordinate) {
	markers, err := e.store.QueryMarkers(ctx)
	if err != nil {
		metrics.SkippedTicksTotal.Inc()
		logger.ErrorKV(ctx, "Couldn't query markers, skipping tick", "error", err)

		return
	}

	e.LookupMarkersNearby(ctx, current, markers)
	e.removeDeleted(ctx, markers)
}

// removeDeleted clears notifications of markers missing from the snapshot.
// Markers deleted by another process only surface this way.
func (e *Engine) removeDeleted(ctx context.Context, markers []*marker.Marker) {
	present := make(map[int64]struct{}, len(markers))
	for _, m := range markers {
		if m != nil {
			present[m.ID] = struct{}{}
		}
	}

	for _, record := range e.notifications.Active() {
		if _, ok := present[record.MarkerID]; ok {
			continue
		}

		logger.DebugKV(ctx, "Marker no longer stored, removing notification", "marker_id", record.MarkerID)
		e.RemoveNotification(ctx, record.MarkerID)
	}
}

// RemoveNotification clears the notification of a marker deleted elsewhere.
func (e *Engine) RemoveNotification(ctx context.Context, markerID int64) {
	e.notifications.Remove(ctx, markerID)
}

// DeleteMarker deletes a marker from the store and clears its notification.
func (e *Engine) DeleteMarker(ctx context.Context, markerID int64) (bool, error) {
	deleter, ok := e.store.(MarkerDeleter)
	if !ok {
		return false, errDeleteUnsupported
	}

	deleted, err := deleter.DeleteMarker(ctx, markerID)
	if err != nil {
		return false, fmt.Errorf("delete marker: %w", err)
	}

	e.RemoveNotification(ctx, markerID)

	return deleted, nil
}

// Start requests permissions, evaluates the current position once and
// subscribes to position updates. Every update is handled on its own goroutine,
// so ticks may overlap.
func (e *Engine) Start(ctx context.Context) error {
	e.notify(StatusStarting)

	if err := e.RequestPermissions(ctx); err != nil {
		if _, denied := permission.IsDenied(err); denied {
			e.notify(StatusDenied)
		} else {
			e.notify(StatusStopped)
		}

		return err
	}

	fetchCtx, cancel := context.WithTimeout(ctx, e.fetchTimeout)
	current := e.tracker.ObtainCurrentLocation(fetchCtx)

	cancel()

	if current != nil {
		e.HandleLocation(ctx, *current)
	}

	e.tickMu.Lock()
	e.stopping = false
	e.tickMu.Unlock()

	_, err := e.tracker.StartLocationUpdates(ctx, func(position marker.Coordinate) {
		e.tickMu.Lock()
		if e.stopping {
			e.tickMu.Unlock()
			return
		}

		e.ticks.Add(1)
		e.tickMu.Unlock()

		go func() {
			defer e.ticks.Done()
			e.HandleLocation(ctx, position)
		}()
	})
	if err != nil {
		return fmt.Errorf("start location updates: %w", err)
	}

	e.notify(StatusServing)

	return nil
}

// Stop cancels position updates and waits for in-flight ticks.
// Active notifications stay visible.
func (e *Engine) Stop() {
	e.tracker.StopLocationUpdates()

	e.tickMu.Lock()
	e.stopping = true
	e.tickMu.Unlock()

	e.ticks.Wait()
	e.notify(StatusStopped)
}

// notify reports status to every listener.
func (e *Engine) notify(status Status) {
	for _, fn := range e.listeners {
		fn(status)
	}
}
