package gps

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/oshokin/marker-alerts/internal/domain/marker"
	"github.com/oshokin/marker-alerts/internal/logger"
	"github.com/oshokin/marker-alerts/internal/service/location"
)

const (
	// reconnectMinDelay is the first delay before reopening a lost port.
	reconnectMinDelay = time.Second
	// reconnectMaxDelay caps the reconnect backoff.
	reconnectMaxDelay = 30 * time.Second
)

// ErrNoFix is returned when the receiver stream ends without an acceptable fix.
var ErrNoFix = errors.New("GPS stream ended without a fix")

// Backend reads fixes from a GPS receiver on a serial port.
type Backend struct {
	// path is the serial device path.
	path string
	// baudRate is the port speed.
	baudRate int
	// open opens the port.
	open Opener
	// now is the clock used for debouncing.
	now func() time.Time
	// logOptions adjust the logger of every receiver message.
	logOptions []zap.Option
}

// Option configures a Backend.
type Option func(*Backend)

// WithOpener replaces the serial opener, mainly for tests.
func WithOpener(open Opener) Option {
	return func(b *Backend) {
		b.open = open
	}
}

// WithClock replaces the clock used for debouncing.
func WithClock(now func() time.Time) Option {
	return func(b *Backend) {
		b.now = now
	}
}

// WithLogLevel sets the minimum level of receiver messages, e.g. to keep
// reconnect warnings of a flaky cable out of the daemon log.
func WithLogLevel(level zapcore.Level) Option {
	return func(b *Backend) {
		b.logOptions = append(b.logOptions, logger.WithLevel(level))
	}
}

// NewBackend creates a backend for the receiver at path.
func NewBackend(path string, baudRate int, opts ...Option) *Backend {
	b := &Backend{
		path:     path,
		baudRate: baudRate,
		open:     SerialOpener,
		now:      time.Now,
	}

	for _, opt := range opts {
		opt(b)
	}

	return b
}

var _ location.Backend = (*Backend)(nil)

// RequestForegroundPermission reports whether the device can be opened.
// A permission failure is a denial; any other failure is an error.
func (b *Backend) RequestForegroundPermission(ctx context.Context) (bool, error) {
	ctx = b.logContext(ctx)

	port, err := b.open(b.path, b.baudRate)
	if err != nil {
		if errors.Is(err, ErrPermission) {
			logger.WarnKV(ctx, "GPS device access denied", "error", err)

			return false, nil
		}

		return false, err
	}

	if err = port.Close(); err != nil {
		logger.DebugKV(ctx, "failed to close GPS port after access check", "error", err)
	}

	return true, nil
}

// RequestBackgroundPermission is always granted: a daemon has no foreground.
func (b *Backend) RequestBackgroundPermission(context.Context) (bool, error) {
	return true, nil
}

// CurrentPosition reads sentences until one satisfies accuracy or ctx is done.
func (b *Backend) CurrentPosition(ctx context.Context, accuracy marker.Accuracy) (marker.Coordinate, error) {
	port, err := b.open(b.path, b.baudRate)
	if err != nil {
		return marker.Coordinate{}, err
	}

	defer port.Close()

	// Closing the port unblocks a pending read.
	stop := context.AfterFunc(ctx, func() { _ = port.Close() })
	defer stop()

	var (
		result marker.Coordinate
		found  bool
	)

	err = readFixes(port, func(fix Fix) bool {
		if !acceptable(fix, accuracy) {
			return true
		}

		result, found = fix.Coordinate, true

		return false
	})

	switch {
	case found:
	case ctx.Err() != nil:
		return marker.Coordinate{}, ctx.Err()
	case err != nil:
		return marker.Coordinate{}, fmt.Errorf("read GPS fix: %w", err)
	default:
		return marker.Coordinate{}, ErrNoFix
	}

	return result, nil
}

// WatchPosition streams debounced fixes to onFix from a background reader.
// A lost port is reopened with exponential backoff until the watch is cancelled.
func (b *Backend) WatchPosition(
	ctx context.Context,
	cfg marker.TrackerConfig,
	onFix func(marker.Coordinate),
) (location.Subscription, error) {
	cfg = cfg.WithDefaults()

	port, err := b.open(b.path, b.baudRate)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.WithoutCancel(b.logContext(ctx)))

	w := &watch{
		cancel: cancel,
		done:   make(chan struct{}),
	}

	go b.watchLoop(ctx, w, port, newDebouncer(cfg, b.now), cfg.Accuracy, onFix)

	return w, nil
}

func (b *Backend) watchLoop(
	ctx context.Context,
	w *watch,
	port Porter,
	d *debouncer,
	accuracy marker.Accuracy,
	onFix func(marker.Coordinate),
) {
	defer close(w.done)

	delay := reconnectMinDelay

	for {
		current := port
		stop := context.AfterFunc(ctx, func() { _ = current.Close() })

		err := readFixes(current, func(fix Fix) bool {
			if ctx.Err() != nil {
				return false
			}

			if acceptable(fix, accuracy) && d.allow(fix.Coordinate) {
				onFix(fix.Coordinate)
			}

			return true
		})

		stop()
		_ = current.Close()

		if ctx.Err() != nil {
			return
		}

		logger.WarnKV(ctx, "GPS stream interrupted, reconnecting", "error", err, "delay", delay)

		for {
			select {
			case <-ctx.Done():
				return
			case <-time.After(delay):
			}

			delay = min(delay*2, reconnectMaxDelay)

			port, err = b.open(b.path, b.baudRate)
			if err == nil {
				delay = reconnectMinDelay

				break
			}

			logger.WarnKV(ctx, "failed to reopen GPS device", "error", err)
		}
	}
}

// logContext returns ctx whose logger tags the device and applies the level override.
func (b *Backend) logContext(ctx context.Context) context.Context {
	ctx = logger.WithFields(ctx, "path", b.path, "baud_rate", b.baudRate)
	if len(b.logOptions) == 0 {
		return ctx
	}

	return logger.ToContext(ctx, logger.FromContext(ctx).WithOptions(b.logOptions...))
}

// readFixes feeds every decoded fix to handle until it returns false or the stream ends.
// Undecodable lines are skipped.
func readFixes(port Porter, handle func(Fix) bool) error {
	scanner := bufio.NewScanner(port)

	for scanner.Scan() {
		fix, err := ParseSentence(scanner.Text())
		if err != nil {
			continue
		}

		if !handle(fix) {
			return nil
		}
	}

	return scanner.Err()
}

// acceptable maps accuracy tiers onto the worst HDOP each will take.
// Sentences without HDOP only satisfy the balanced tier and below.
func acceptable(fix Fix, accuracy marker.Accuracy) bool {
	var maxHDOP float64

	switch accuracy {
	case marker.AccuracyLowest, marker.AccuracyLow:
		return true
	case marker.AccuracyBalanced:
		if fix.HDOP == 0 {
			return true
		}

		maxHDOP = 10
	case marker.AccuracyHigh:
		maxHDOP = 5
	default:
		maxHDOP = 2
	}

	return fix.HDOP > 0 && fix.HDOP <= maxHDOP
}

// watch is the Subscription returned by WatchPosition.
type watch struct {
	// cancel stops the reader goroutine.
	cancel context.CancelFunc
	// done is closed when the reader goroutine exits.
	done chan struct{}
	// once guards cancel.
	once sync.Once
}

// Cancel stops the watch. It does not wait for the reader to exit,
// so it is safe to call from inside onFix.
func (w *watch) Cancel() {
	w.once.Do(w.cancel)
}

// Done is closed once the reader goroutine has exited.
func (w *watch) Done() <-chan struct{} {
	return w.done
}
