package notification

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/oshokin/marker-alerts/internal/domain/marker"
	"github.com/oshokin/marker-alerts/internal/logger"
	"github.com/oshokin/marker-alerts/internal/metrics"
	"github.com/oshokin/marker-alerts/internal/permission"
)

// State is the lifecycle state of one marker's notification.
type State int

// Lifecycle states.
const (
	StateAbsent State = iota
	StatePending
	StateActive
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case StateAbsent:
		return "absent"
	case StatePending:
		return "pending"
	case StateActive:
		return "active"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

var (
	// ErrActionFailed wraps sink failures of show, dismiss and cancel.
	ErrActionFailed = errors.New("notification action failed")
	// errSinkRequired is returned when a manager is built without a sink.
	errSinkRequired = errors.New("notification sink must be provided")
	// errShowPanicked reports a sink that panicked while scheduling.
	errShowPanicked = errors.New("schedule panicked")
	// errActionPanicked reports a sink that panicked while dismissing or cancelling.
	errActionPanicked = errors.New("sink action panicked")
)

// Option configures a Manager.
type Option func(*Manager)

// WithClock overrides the clock used to stamp notification records.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// Manager turns proximity decisions into idempotent show and dismiss actions.
type Manager struct {
	// sink is the platform notification API.
	sink Sink
	// now stamps NotificationRecord.CreatedAt.
	now func() time.Time

	// mu protects every field below.
	mu sync.Mutex
	// granted is set once the notification permission was given.
	granted bool
	// pending holds markers whose show operation is in flight.
	pending map[int64]struct{}
	// active holds visible notifications by marker id.
	active map[int64]marker.NotificationRecord
	// removing holds active markers whose dismiss and cancel are in flight.
	removing map[int64]struct{}
}

// NewManager creates a manager over sink.
func NewManager(sink Sink, opts ...Option) (*Manager, error) {
	if sink == nil {
		return nil, errSinkRequired
	}

	m := &Manager{
		sink:     sink,
		now:      time.Now,
		pending:  make(map[int64]struct{}),
		active:   make(map[int64]marker.NotificationRecord),
		removing: make(map[int64]struct{}),
	}

	for _, opt := range opts {
		opt(m)
	}

	return m, nil
}

// RequestPermissions asks the sink for notification access.
// Until it succeeds the manager never leaves Absent for any marker.
func (m *Manager) RequestPermissions(ctx context.Context) error {
	granted, err := m.sink.RequestPermission(ctx)
	if err != nil {
		return fmt.Errorf("request notification permission: %w", err)
	}

	if !granted {
		return permission.Denied(permission.ScopeNotification)
	}

	m.mu.Lock()
	m.granted = true
	m.mu.Unlock()

	return nil
}

// Show displays the nearby notification for mk unless one is already pending or active.
// It reports whether this call moved the marker to Active. Sink failures are
// logged, never returned, and always release the pending guard.
func (m *Manager) Show(ctx context.Context, mk *marker.Marker) bool {
	if mk == nil {
		return false
	}

	ctx = logger.WithKV(ctx, "marker_id", mk.ID)

	if !m.acquire(mk.ID) {
		return false
	}

	// Runs on failure and on panic; the success path releases under the same lock as the insert.
	defer m.release(mk.ID)

	handle, err := m.schedule(ctx, NearbyContent(mk))
	if err != nil {
		metrics.NotificationShowFailuresTotal.Inc()
		logger.ErrorKV(ctx, "Couldn't show notification", "error", fmt.Errorf("%w: %w", ErrActionFailed, err))

		return false
	}

	record := marker.NotificationRecord{
		MarkerID:  mk.ID,
		Handle:    handle,
		CreatedAt: m.now(),
	}

	m.mu.Lock()
	m.active[mk.ID] = record
	delete(m.pending, mk.ID)
	m.mu.Unlock()

	metrics.NotificationsShownTotal.Inc()
	metrics.ActiveNotifications.Inc()
	logger.InfoKV(ctx, "Notification shown", "handle", handle, "marker", mk.DisplayName())

	return true
}

// Remove dismisses and cancels the active notification of markerID.
// Both actions are attempted even if the first fails; failures are logged and
// swallowed, and the record is always dropped afterwards. It reports whether a
// record was removed; repeated calls are no-ops.
func (m *Manager) Remove(ctx context.Context, markerID int64) bool {
	m.mu.Lock()

	record, ok := m.active[markerID]
	if !ok {
		m.mu.Unlock()
		return false
	}

	if _, busy := m.removing[markerID]; busy {
		m.mu.Unlock()
		return false
	}

	m.removing[markerID] = struct{}{}
	m.mu.Unlock()

	ctx = logger.WithKV(ctx, "marker_id", markerID)

	defer func() {
		m.mu.Lock()
		delete(m.active, markerID)
		delete(m.removing, markerID)
		m.mu.Unlock()

		metrics.NotificationsRemovedTotal.Inc()
		metrics.ActiveNotifications.Dec()
	}()

	if err := guarded(func() error { return m.sink.Dismiss(ctx, record.Handle) }); err != nil {
		metrics.NotificationActionFailuresTotal.WithLabelValues("dismiss").Inc()
		logger.DebugKV(ctx, "Dismiss failed, ignoring", "handle", record.Handle, "error", err)
	}

	if err := guarded(func() error { return m.sink.CancelScheduled(ctx, record.Handle) }); err != nil {
		metrics.NotificationActionFailuresTotal.WithLabelValues("cancel").Inc()
		logger.DebugKV(ctx, "Cancel failed, ignoring", "handle", record.Handle, "error", err)
	}

	logger.InfoKV(ctx, "Notification removed", "handle", record.Handle)

	return true
}

// State returns the lifecycle state of markerID.
func (m *Manager) State(markerID int64) State {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.active[markerID]; ok {
		return StateActive
	}

	if _, ok := m.pending[markerID]; ok {
		return StatePending
	}

	return StateAbsent
}

// Active returns the visible notifications ordered by marker id.
func (m *Manager) Active() []marker.NotificationRecord {
	m.mu.Lock()

	records := make([]marker.NotificationRecord, 0, len(m.active))
	for _, record := range m.active {
		records = append(records, record)
	}

	m.mu.Unlock()

	slices.SortFunc(records, func(a, b marker.NotificationRecord) int {
		switch {
		case a.MarkerID < b.MarkerID:
			return -1
		case a.MarkerID > b.MarkerID:
			return 1
		default:
			return 0
		}
	})

	return records
}

// acquire is the atomic check-and-set of the pending guard.
func (m *Manager) acquire(markerID int64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.granted {
		return false
	}

	if _, ok := m.pending[markerID]; ok {
		return false
	}

	if _, ok := m.active[markerID]; ok {
		return false
	}

	m.pending[markerID] = struct{}{}

	return true
}

// release drops the pending guard of markerID.
func (m *Manager) release(markerID int64) {
	m.mu.Lock()
	delete(m.pending, markerID)
	m.mu.Unlock()
}

// schedule calls the sink, converting a panic into an error.
func (m *Manager) schedule(ctx context.Context, content Content) (handle marker.NotificationHandle, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", errShowPanicked, r)
		}
	}()

	return m.sink.Schedule(ctx, content)
}

// guarded runs a sink action, converting a panic into an error.
func guarded(action func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", errActionPanicked, r)
		}
	}()

	return action()
}
