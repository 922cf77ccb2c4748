package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/marker-alerts/internal/domain/marker"
)

// TestValidate checks defaults and format validations for Config.
func TestValidate(t *testing.T) {
	t.Parallel()

	// Empty settings get every default.
	settings := new(Config)
	require.NoError(t, Validate(settings))
	require.InDelta(t, DefaultThresholdMeters, settings.ThresholdMeters, 0)
	require.Equal(t, DefaultDatabaseFilename, settings.DatabaseFile)
	require.Equal(t, DefaultBaudRate, settings.Device.BaudRate)
	require.Equal(t, marker.DefaultTrackerConfig(), settings.Tracker)
	require.Equal(t, DefaultTimeout, settings.Timeout)

	require.Error(t, Validate(&Config{ThresholdMeters: -1}))
	require.Error(t, Validate(&Config{HealthAddress: "no-port"}))
	require.Error(t, Validate(&Config{LogLevel: "loud"}))
	require.Error(t, Validate(&Config{Device: Device{LogLevel: "loud"}}))
	require.Error(t, Validate(&Config{Notifications: Notifications{RatePerSecond: -1}}))
	require.Error(t, Validate(nil))

	require.NoError(t, Validate(&Config{HealthAddress: ":50051", MetricsAddress: "127.0.0.1:9100"}))
	require.NoError(t, Validate(&Config{Device: Device{LogLevel: "error"}}))
}

// TestLoad_PartialFileKeepsDefaults ensures only listed keys override defaults.
func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "settings.yaml")
	contents := `
threshold_meters: 250
tracker:
  accuracy: highest
  min_time_interval: 10s
notifications:
  enabled: false
`
	require.NoError(t, os.WriteFile(path, []byte(contents), DefaultFilePermissions))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.InDelta(t, 250.0, loaded.ThresholdMeters, 0)
	require.Equal(t, marker.AccuracyHighest, loaded.Tracker.Accuracy)
	require.Equal(t, 10*time.Second, loaded.Tracker.MinTimeInterval)
	require.InDelta(t, marker.DefaultMinDistanceInterval, loaded.Tracker.MinDistanceInterval, 0)
	require.False(t, loaded.Notifications.Enabled)
	require.Equal(t, OutputStdout, loaded.Notifications.Output)
	require.Equal(t, DefaultDevicePath, loaded.Device.Path)
}

// TestLoad_Errors covers unreadable and malformed files.
func TestLoad_Errors(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	_, err := Load(filepath.Join(dir, "missing.yaml"))
	require.Error(t, err)

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("tracker:\n  accuracy: sloppy\n"), DefaultFilePermissions))

	_, err = Load(bad)
	require.Error(t, err)
}

// TestSaveLoadRoundtrip ensures settings are persisted and loaded back correctly.
func TestSaveLoadRoundtrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "settings.yaml")

	settings := Default()
	settings.DatabaseFile = "/var/lib/marker-alerts/markers.db"
	settings.HealthAddress = ":50051"
	settings.Device.Path = "COM3"

	require.NoError(t, Save(path, settings))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, settings, loaded)

	// File exists.
	_, err = os.Stat(path)
	require.NoError(t, err)
}
