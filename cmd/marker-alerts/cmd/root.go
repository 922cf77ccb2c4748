package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/marker-alerts/internal/config"
	"github.com/oshokin/marker-alerts/internal/service/engine"
	"github.com/oshokin/marker-alerts/internal/version"
)

var (
	// configPath to the configuration YAML file.
	configPath string
	// databaseFile overrides the marker database from the settings.
	databaseFile string
	// devicePath overrides the GPS serial device from the settings.
	devicePath string
	// replace terminates a running daemon before starting.
	replace bool

	// rootCmd runs the proximity alert daemon.
	rootCmd = &cobra.Command{
		Use:   "marker-alerts",
		Short: "Show a notification when you get close to a saved map marker.",
		Long: `Runs the proximity alert daemon.

The daemon reads positions from an NMEA GPS receiver on a serial port and,
on every position update, measures the distance to every marker stored in the
SQLite database. A notification is shown once when a marker comes within the
configured threshold (100 m by default) and removed when you move away.

Settings are read from a YAML file; missing keys fall back to defaults.
Optional gRPC health and Prometheus metrics endpoints are started when their
addresses are configured.`,
		Args: cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			return engine.Run(ctx, daemonOptions())
		},
	}
)

// Execute runs the marker-alerts CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func daemonOptions() *engine.Options {
	return &engine.Options{
		ConfigPath:   configPath,
		DatabaseFile: databaseFile,
		DevicePath:   devicePath,
		Replace:      replace,
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&configPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	flags.StringVar(&databaseFile, "database", "", "path to the marker database (overrides settings)")
	flags.StringVar(&devicePath, "device", "", "GPS serial device (overrides settings)")

	rootCmd.Flags().BoolVar(&replace, "replace", false, "terminate a running daemon instead of refusing to start")

	rootCmd.AddCommand(checkCmd, markersCmd)
}
