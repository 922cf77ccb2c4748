package engine

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/marker-alerts/internal/config"
	"github.com/oshokin/marker-alerts/internal/geo"
	repository "github.com/oshokin/marker-alerts/internal/repository/marker"
)

// TestCheck_FixedPosition prints one decision per stored marker.
func TestCheck_FixedPosition(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "markers.db")

	store, err := repository.Open(ctx, dbPath)
	require.NoError(t, err)

	_, err = store.CreateMarker(ctx, origin)
	require.NoError(t, err)

	far, err := store.CreateMarker(ctx, geo.Offset(origin, 1000, 0))
	require.NoError(t, err)

	title := "Far away"
	_, err = store.UpdateMarker(ctx, far.ID, &title, nil)
	require.NoError(t, err)
	require.NoError(t, store.Close())

	settingsPath := filepath.Join(dir, "settings.yaml")
	require.NoError(t, os.WriteFile(settingsPath, []byte("threshold_meters: 100\n"), config.DefaultFilePermissions))

	at := geo.Offset(origin, 30, 0)

	var out bytes.Buffer

	err = Check(ctx, &CheckOptions{
		Options: Options{ConfigPath: settingsPath, DatabaseFile: dbPath},
		At:      &at,
	}, &out)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 4)
	require.Contains(t, lines[2], "Marker #1")
	require.True(t, strings.HasSuffix(lines[2], "true"))
	require.Contains(t, lines[3], "Far away")
	require.True(t, strings.HasSuffix(lines[3], "false"))
}
