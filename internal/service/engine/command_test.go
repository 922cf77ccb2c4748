package engine

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/marker-alerts/internal/config"
)

// TestRun_MissingSettings fails before touching the device.
func TestRun_MissingSettings(t *testing.T) {
	t.Parallel()

	err := Run(context.Background(), &Options{ConfigPath: filepath.Join(t.TempDir(), "absent.yaml")})
	require.ErrorContains(t, err, "load settings")
}

// TestApplyOverrides ensures flags win over the settings file.
func TestApplyOverrides(t *testing.T) {
	t.Parallel()

	settings := config.Default()
	applyOverrides(settings, &Options{DatabaseFile: "other.db", DevicePath: "COM7"})

	require.Equal(t, "other.db", settings.DatabaseFile)
	require.Equal(t, "COM7", settings.Device.Path)

	settings = config.Default()
	applyOverrides(settings, &Options{})
	require.Equal(t, config.DefaultDatabaseFilename, settings.DatabaseFile)
}

// TestDeviceOptions only overrides the receiver level when configured.
func TestDeviceOptions(t *testing.T) {
	t.Parallel()

	settings := config.Default()
	require.Empty(t, deviceOptions(settings))

	settings.Device.LogLevel = "error"
	require.Len(t, deviceOptions(settings), 1)

	settings.Device.LogLevel = "loud"
	require.Empty(t, deviceOptions(settings))
}

// TestOpenOutput resolves stream names and appends to files.
func TestOpenOutput(t *testing.T) {
	t.Parallel()

	out, closeOutput, err := openOutput(config.OutputStdout)
	require.NoError(t, err)
	require.Equal(t, os.Stdout, out)
	closeOutput()

	out, closeOutput, err = openOutput(config.OutputStderr)
	require.NoError(t, err)
	require.Equal(t, os.Stderr, out)
	closeOutput()

	path := filepath.Join(t.TempDir(), "notifications.log")

	out, closeOutput, err = openOutput(path)
	require.NoError(t, err)

	_, err = out.Write([]byte("SHOW\n"))
	require.NoError(t, err)
	closeOutput()

	contents, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "SHOW\n", string(contents))

	_, _, err = openOutput(filepath.Join(t.TempDir(), "missing", "dir", "out.log"))
	require.Error(t, err)
}
