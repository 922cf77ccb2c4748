package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/oshokin/marker-alerts/internal/config"
	"github.com/oshokin/marker-alerts/internal/device/gps"
	"github.com/oshokin/marker-alerts/internal/domain/marker"
	"github.com/oshokin/marker-alerts/internal/logger"
	repository "github.com/oshokin/marker-alerts/internal/repository/marker"
	"github.com/oshokin/marker-alerts/internal/service/location"
	"github.com/oshokin/marker-alerts/internal/service/proximity"
)

// CheckOptions controls a one-shot proximity check.
type CheckOptions struct {
	// Options selects settings, database and device.
	Options
	// At replaces the GPS fix with a fixed position.
	At *marker.Coordinate
}

// errNoPosition is returned when the receiver produced no fix in time.
var errNoPosition = errors.New("no position available")

// Check evaluates every marker once against the current position and prints
// the decisions. It never shows notifications.
func Check(ctx context.Context, opts *CheckOptions, out io.Writer) error {
	ctx = logger.WithName(ctx, "marker-alerts-check")

	settings, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	applyOverrides(settings, &opts.Options)

	current, err := checkPosition(ctx, settings, opts.At)
	if err != nil {
		return err
	}

	store, err := repository.Open(ctx, settings.DatabaseFile)
	if err != nil {
		return fmt.Errorf("open marker store: %w", err)
	}

	defer func() {
		if closeErr := store.Close(); closeErr != nil {
			logger.ErrorKV(ctx, "Couldn't close marker store", "error", closeErr)
		}
	}()

	markers, err := store.QueryMarkers(ctx)
	if err != nil {
		return fmt.Errorf("query markers: %w", err)
	}

	decisions := proximity.NewEvaluator().Evaluate(current, markers, settings.ThresholdMeters)

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "position %s, threshold %.0f m\n", current, settings.ThresholdMeters)
	_, _ = fmt.Fprintln(w, "ID\tNAME\tDISTANCE_M\tNEAR")

	for _, decision := range decisions {
		_, _ = fmt.Fprintf(w, "%d\t%s\t%.1f\t%t\n",
			decision.Marker.ID,
			decision.Marker.DisplayName(),
			decision.Distance,
			decision.IsNear,
		)
	}

	return w.Flush()
}

// checkPosition returns at or a single GPS fix bounded by the settings timeout.
func checkPosition(ctx context.Context, settings *config.Config, at *marker.Coordinate) (marker.Coordinate, error) {
	if at != nil {
		if !at.Valid() {
			return marker.Coordinate{}, fmt.Errorf("position %s is out of range", at)
		}

		return *at, nil
	}

	backend := gps.NewBackend(settings.Device.Path, settings.Device.BaudRate, deviceOptions(settings)...)

	tracker, err := location.NewTracker(backend, settings.Tracker)
	if err != nil {
		return marker.Coordinate{}, err
	}

	if err = tracker.RequestPermissions(ctx); err != nil {
		return marker.Coordinate{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, settings.Timeout)
	defer cancel()

	current := tracker.ObtainCurrentLocation(ctx)
	if current == nil {
		return marker.Coordinate{}, errNoPosition
	}

	return *current, nil
}
