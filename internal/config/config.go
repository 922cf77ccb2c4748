package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/oshokin/marker-alerts/internal/domain/marker"
	"github.com/oshokin/marker-alerts/internal/logger"
)

// Config holds the settings of the marker alert daemon.
type Config struct {
	// DatabaseFile is the path to the SQLite marker database.
	DatabaseFile string `yaml:"database_file"`
	// ThresholdMeters is the distance at or below which a marker counts as near.
	ThresholdMeters float64 `yaml:"threshold_meters"`
	// Tracker configures position update delivery.
	Tracker marker.TrackerConfig `yaml:"tracker"`
	// Device describes the GPS receiver.
	Device Device `yaml:"device"`
	// Notifications configures the console notification sink.
	Notifications Notifications `yaml:"notifications"`
	// HealthAddress is the gRPC health listen address, empty to disable.
	HealthAddress string `yaml:"health_addr"`
	// MetricsAddress is the Prometheus listen address, empty to disable.
	MetricsAddress string `yaml:"metrics_addr"`
	// LogLevel is one of debug, info, warn, error, fatal.
	LogLevel string `yaml:"log_level"`
	// Timeout bounds one-shot operations such as the initial position fetch.
	Timeout time.Duration `yaml:"timeout"`
}

// Device describes the serial GPS receiver.
type Device struct {
	// Path is the serial device, e.g. /dev/ttyUSB0 or COM3.
	Path string `yaml:"path"`
	// BaudRate is the port speed.
	BaudRate int `yaml:"baud_rate"`
	// LogLevel overrides the daemon log level for receiver messages; empty inherits it.
	LogLevel string `yaml:"log_level,omitempty"`
}

// Notifications configures the console notification sink.
type Notifications struct {
	// Enabled answers notification permission requests.
	Enabled bool `yaml:"enabled"`
	// RatePerSecond throttles shown notifications, 0 for no limit.
	RatePerSecond float64 `yaml:"rate_per_second"`
	// Output is stdout, stderr or a file path to append to.
	Output string `yaml:"output"`
}

const (
	// DefaultConfigFilename is the default filename for daemon settings.
	DefaultConfigFilename = "marker-alerts.yaml"

	// DefaultDatabaseFilename is the default SQLite marker database.
	DefaultDatabaseFilename = "markers.db"

	// DefaultThresholdMeters is the default proximity threshold.
	DefaultThresholdMeters = 100.0

	// DefaultDevicePath is the usual USB GPS receiver on Linux.
	DefaultDevicePath = "/dev/ttyUSB0"

	// DefaultBaudRate is the NMEA 0183 standard rate.
	DefaultBaudRate = 4800

	// DefaultRatePerSecond is the default notification throttle.
	DefaultRatePerSecond = 5.0

	// OutputStdout and OutputStderr name the standard streams.
	OutputStdout = "stdout"
	OutputStderr = "stderr"

	// DefaultTimeout is the default duration for one-shot operations.
	DefaultTimeout = 30 * time.Second

	// DefaultFilePermissions is the default file permission for config files.
	DefaultFilePermissions = 0o600
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errNegativeThreshold is returned for a threshold below zero.
	errNegativeThreshold = errors.New("threshold must not be negative")
	// errNegativeRate is returned for a notification rate below zero.
	errNegativeRate = errors.New("notification rate must not be negative")
)

// Default returns settings with every field at its default.
func Default() *Config {
	return &Config{
		DatabaseFile:    DefaultDatabaseFilename,
		ThresholdMeters: DefaultThresholdMeters,
		Tracker:         marker.DefaultTrackerConfig(),
		Device: Device{
			Path:     DefaultDevicePath,
			BaudRate: DefaultBaudRate,
		},
		Notifications: Notifications{
			Enabled:       true,
			RatePerSecond: DefaultRatePerSecond,
			Output:        OutputStdout,
		},
		LogLevel: "info",
		Timeout:  DefaultTimeout,
	}
}

// Load reads configuration from the provided path over the defaults and validates it.
// A missing file at the default path yields the defaults.
func Load(path string) (*Config, error) {
	usingDefaultPath := path == ""
	if usingDefaultPath {
		path = DefaultConfigFilename
	}

	cfg := Default()

	contents, err := os.ReadFile(filepath.Clean(path))

	switch {
	case err == nil:
		if err = yaml.Unmarshal(contents, cfg); err != nil {
			return nil, fmt.Errorf("unmarshal settings: %w", err)
		}
	case usingDefaultPath && errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("read settings: %w", err)
	}

	if err = Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save writes settings to the provided path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	// Restrict permissions.
	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate checks the provided settings and fills zero fields with defaults.
func Validate(settings *Config) error {
	if settings == nil {
		return errConfigIsNotSet
	}

	if settings.ThresholdMeters < 0 {
		return errNegativeThreshold
	}

	if settings.ThresholdMeters == 0 {
		settings.ThresholdMeters = DefaultThresholdMeters
	}

	if settings.DatabaseFile == "" {
		settings.DatabaseFile = DefaultDatabaseFilename
	}

	settings.Tracker = settings.Tracker.WithDefaults()

	if settings.Device.Path == "" {
		settings.Device.Path = DefaultDevicePath
	}

	if settings.Device.BaudRate <= 0 {
		settings.Device.BaudRate = DefaultBaudRate
	}

	if settings.Notifications.RatePerSecond < 0 {
		return errNegativeRate
	}

	if settings.Notifications.Output == "" {
		settings.Notifications.Output = OutputStdout
	}

	for name, address := range map[string]string{
		"health":  settings.HealthAddress,
		"metrics": settings.MetricsAddress,
	} {
		if address == "" {
			continue
		}

		if _, _, err := net.SplitHostPort(address); err != nil {
			return fmt.Errorf("invalid %s address %q: %w", name, address, err)
		}
	}

	if _, ok := logger.ParseLogLevel(settings.LogLevel); !ok {
		return fmt.Errorf("invalid log level %q", settings.LogLevel)
	}

	if _, ok := logger.ParseLogLevel(settings.Device.LogLevel); !ok {
		return fmt.Errorf("invalid device log level %q", settings.Device.LogLevel)
	}

	// Set default timeout if not specified
	if settings.Timeout <= 0 {
		settings.Timeout = DefaultTimeout
	}

	return nil
}
