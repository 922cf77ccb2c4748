package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/marker-alerts/internal/domain/marker"
	"github.com/oshokin/marker-alerts/internal/service/engine"
)

var (
	// checkAt is an optional "lat,lon" replacing the GPS fix.
	checkAt string

	// checkCmd evaluates markers once.
	checkCmd = &cobra.Command{
		Use:   "check",
		Short: "Print the distance to every marker once.",
		Long: `Reads one position from the GPS receiver, or takes it from --at, and prints
the distance to every stored marker and whether it is within the threshold.
No notification is shown.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			options := &engine.CheckOptions{Options: *daemonOptions()}

			if checkAt != "" {
				at, err := parseCoordinate(checkAt)
				if err != nil {
					return err
				}

				options.At = &at
			}

			return engine.Check(ctx, options, cmd.OutOrStdout())
		},
	}
)

// parseCoordinate parses "lat,lon" in decimal degrees.
func parseCoordinate(s string) (marker.Coordinate, error) {
	lat, lon, found := strings.Cut(s, ",")
	if !found {
		return marker.Coordinate{}, fmt.Errorf("coordinate %q must be lat,lon", s)
	}

	latitude, err := strconv.ParseFloat(strings.TrimSpace(lat), 64)
	if err != nil {
		return marker.Coordinate{}, fmt.Errorf("parse latitude: %w", err)
	}

	longitude, err := strconv.ParseFloat(strings.TrimSpace(lon), 64)
	if err != nil {
		return marker.Coordinate{}, fmt.Errorf("parse longitude: %w", err)
	}

	coordinate := marker.Coordinate{Latitude: latitude, Longitude: longitude}
	if !coordinate.Valid() {
		return marker.Coordinate{}, fmt.Errorf("coordinate %s is out of range", coordinate)
	}

	return coordinate, nil
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	checkCmd.Flags().StringVar(&checkAt, "at", "", `use this "lat,lon" instead of the GPS receiver`)
}
