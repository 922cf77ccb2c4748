package engine

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"github.com/oshokin/marker-alerts/internal/api/grpc/health"
	"github.com/oshokin/marker-alerts/internal/config"
	"github.com/oshokin/marker-alerts/internal/device/gps"
	"github.com/oshokin/marker-alerts/internal/logger"
	"github.com/oshokin/marker-alerts/internal/metrics"
	"github.com/oshokin/marker-alerts/internal/notifier/console"
	repository "github.com/oshokin/marker-alerts/internal/repository/marker"
	"github.com/oshokin/marker-alerts/internal/service/instance"
	"github.com/oshokin/marker-alerts/internal/service/location"
	"github.com/oshokin/marker-alerts/internal/service/notification"
	"github.com/oshokin/marker-alerts/internal/version"
)

// Options controls the marker-alerts daemon.
type Options struct {
	// ConfigPath specifies the path to settings YAML file.
	ConfigPath string
	// DatabaseFile overrides the marker database from the settings.
	DatabaseFile string
	// DevicePath overrides the GPS serial device from the settings.
	DevicePath string
	// Replace terminates a running daemon instead of refusing to start.
	Replace bool
}

// Run starts the daemon and blocks until ctx is canceled.
// Health and metrics endpoints run next to the engine when configured.
func Run(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "marker-alerts")

	settings, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	if level, ok := logger.ParseLogLevel(settings.LogLevel); ok {
		logger.SetLevel(level)
	}

	applyOverrides(settings, opts)

	guard, err := instance.NewGuard(instance.LockPath(settings.DatabaseFile))
	if err != nil {
		return err
	}

	if err = guard.Ensure(opts.Replace); err != nil {
		return err
	}

	defer func() {
		if releaseErr := guard.Release(); releaseErr != nil {
			logger.ErrorKV(ctx, "Couldn't release instance lock", "lock", guard.Path(), "error", releaseErr)
		}
	}()

	store, err := repository.Open(ctx, settings.DatabaseFile)
	if err != nil {
		return fmt.Errorf("open marker store: %w", err)
	}

	defer func() {
		if closeErr := store.Close(); closeErr != nil {
			logger.ErrorKV(ctx, "Couldn't close marker store", "error", closeErr)
		}
	}()

	output, closeOutput, err := openOutput(settings.Notifications.Output)
	if err != nil {
		return err
	}

	defer closeOutput()

	healthServer := health.NewServer()

	alerts, err := build(settings, store, output, healthServer)
	if err != nil {
		return err
	}

	logger.InfoKV(ctx, "Starting marker alerts",
		append(version.Fields(),
			"database_file", settings.DatabaseFile,
			"device", settings.Device.Path,
			"threshold_meters", settings.ThresholdMeters,
		)...)

	group, groupCtx := errgroup.WithContext(ctx)

	if settings.HealthAddress != "" {
		group.Go(func() error { return healthServer.Serve(groupCtx, settings.HealthAddress) })
	}

	if settings.MetricsAddress != "" {
		group.Go(func() error { return metrics.Serve(groupCtx, settings.MetricsAddress) })
	}

	group.Go(func() error {
		if err := alerts.Start(groupCtx); err != nil {
			return fmt.Errorf("start engine: %w", err)
		}

		<-groupCtx.Done()

		logger.Info(ctx, "Stopping marker alerts")
		alerts.Stop()

		return nil
	})

	return group.Wait()
}

// build wires the engine over the GPS receiver and the console sink.
func build(settings *config.Config, store MarkerStore, output io.Writer, healthServer *health.Server) (*Engine, error) {
	backend := gps.NewBackend(settings.Device.Path, settings.Device.BaudRate, deviceOptions(settings)...)

	tracker, err := location.NewTracker(backend, settings.Tracker)
	if err != nil {
		return nil, fmt.Errorf("create tracker: %w", err)
	}

	sink := console.New(output,
		console.WithEnabled(settings.Notifications.Enabled),
		console.WithRate(settings.Notifications.RatePerSecond),
	)

	manager, err := notification.NewManager(sink)
	if err != nil {
		return nil, fmt.Errorf("create notification manager: %w", err)
	}

	return New(tracker, manager, store,
		WithThreshold(settings.ThresholdMeters),
		WithFetchTimeout(settings.Timeout),
		WithStatusListener(func(status Status) {
			healthServer.SetServing(status == StatusServing)
		}),
	)
}

func applyOverrides(settings *config.Config, opts *Options) {
	if opts.DatabaseFile != "" {
		settings.DatabaseFile = opts.DatabaseFile
	}

	if opts.DevicePath != "" {
		settings.Device.Path = opts.DevicePath
	}
}

// openOutput resolves the notification output setting into a writer.
func openOutput(output string) (io.Writer, func(), error) {
	switch output {
	case "", config.OutputStdout:
		return os.Stdout, func() {}, nil
	case config.OutputStderr:
		return os.Stderr, func() {}, nil
	}

	file, err := os.OpenFile(filepath.Clean(output), os.O_CREATE|os.O_APPEND|os.O_WRONLY, config.DefaultFilePermissions)
	if err != nil {
		return nil, nil, fmt.Errorf("open notification output: %w", err)
	}

	return file, func() { _ = file.Close() }, nil
}

// deviceOptions applies the receiver log level when the settings override it.
func deviceOptions(settings *config.Config) []gps.Option {
	if settings.Device.LogLevel == "" {
		return nil
	}

	level, ok := logger.ParseLogLevel(settings.Device.LogLevel)
	if !ok {
		return nil
	}

	return []gps.Option{gps.WithLogLevel(level)}
}
