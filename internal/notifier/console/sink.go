package console

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/oshokin/marker-alerts/internal/domain/marker"
	"github.com/oshokin/marker-alerts/internal/logger"
	"github.com/oshokin/marker-alerts/internal/service/notification"
)

// DefaultRatePerSecond bounds how fast notifications are printed.
const DefaultRatePerSecond = 5

// ErrUnknownHandle is returned for handles this sink never issued or already forgot.
var ErrUnknownHandle = errors.New("unknown notification handle")

// Sink prints notifications to a writer.
type Sink struct {
	// out receives one line per event.
	out io.Writer
	// enabled is the answer to permission requests.
	enabled bool
	// limiter throttles Schedule.
	limiter *rate.Limiter
	// now stamps printed lines.
	now func() time.Time

	// mu guards out and live.
	mu sync.Mutex
	// live holds issued handles that are still visible or scheduled.
	live map[marker.NotificationHandle]*entry
}

// entry is the state of one issued notification.
type entry struct {
	// visible is true until dismissed.
	visible bool
	// scheduled is true until cancelled.
	scheduled bool
}

// Option configures a Sink.
type Option func(*Sink)

// WithEnabled sets whether permission requests are granted.
func WithEnabled(enabled bool) Option {
	return func(s *Sink) {
		s.enabled = enabled
	}
}

// WithRate limits Schedule to perSecond calls with an equal burst.
// Non-positive values disable throttling.
func WithRate(perSecond float64) Option {
	return func(s *Sink) {
		if perSecond <= 0 {
			s.limiter = rate.NewLimiter(rate.Inf, 0)

			return
		}

		s.limiter = rate.NewLimiter(rate.Limit(perSecond), max(1, int(perSecond)))
	}
}

// WithClock replaces the clock used to stamp lines.
func WithClock(now func() time.Time) Option {
	return func(s *Sink) {
		s.now = now
	}
}

// New creates an enabled sink writing to out, or stdout when out is nil.
func New(out io.Writer, opts ...Option) *Sink {
	if out == nil {
		out = os.Stdout
	}

	s := &Sink{
		out:     out,
		enabled: true,
		now:     time.Now,
		live:    make(map[marker.NotificationHandle]*entry),
	}

	WithRate(DefaultRatePerSecond)(s)

	for _, opt := range opts {
		opt(s)
	}

	return s
}

var _ notification.Sink = (*Sink)(nil)

// RequestPermission grants access when the sink is enabled.
func (s *Sink) RequestPermission(ctx context.Context) (bool, error) {
	if !s.enabled {
		logger.Warnf(ctx, "console notifications are disabled")
	}

	return s.enabled, nil
}

// Schedule prints content and returns a fresh handle.
func (s *Sink) Schedule(ctx context.Context, content notification.Content) (marker.NotificationHandle, error) {
	if !s.enabled {
		return "", errors.New("console notifications are disabled")
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("wait for notification slot: %w", err)
	}

	handle := marker.NotificationHandle(uuid.NewString())

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.printf("SHOW %s %s | %s", handle, content.Title, content.Body); err != nil {
		return "", err
	}

	s.live[handle] = &entry{visible: true, scheduled: true}

	logger.InfoKV(ctx, "notification shown", "handle", handle, "body", content.Body)

	return handle, nil
}

// Dismiss hides the notification behind handle.
func (s *Sink) Dismiss(ctx context.Context, handle marker.NotificationHandle) error {
	return s.update(ctx, handle, "DISMISS", func(e *entry) { e.visible = false })
}

// CancelScheduled drops any pending repeat of the notification behind handle.
func (s *Sink) CancelScheduled(ctx context.Context, handle marker.NotificationHandle) error {
	return s.update(ctx, handle, "CANCEL", func(e *entry) { e.scheduled = false })
}

// Live returns the number of handles still visible or scheduled.
func (s *Sink) Live() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.live)
}

func (s *Sink) update(ctx context.Context, handle marker.NotificationHandle, verb string, apply func(*entry)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.live[handle]
	if !ok {
		return fmt.Errorf("%s %q: %w", verb, handle, ErrUnknownHandle)
	}

	apply(e)

	if !e.visible && !e.scheduled {
		delete(s.live, handle)
	}

	logger.DebugKV(ctx, "notification updated", "handle", handle, "action", verb)

	return s.printf("%s %s", verb, handle)
}

// printf writes one stamped line. Callers hold mu.
func (s *Sink) printf(format string, args ...any) error {
	line := fmt.Sprintf(format, args...)

	if _, err := fmt.Fprintf(s.out, "%s %s\n", s.now().UTC().Format(time.RFC3339), line); err != nil {
		return fmt.Errorf("write notification: %w", err)
	}

	return nil
}
