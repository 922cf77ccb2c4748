package console

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/marker-alerts/internal/domain/marker"
	"github.com/oshokin/marker-alerts/internal/service/notification"
)

func fixedClock() time.Time {
	return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
}

func TestSink_Lifecycle(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer

	sink := New(&out, WithClock(fixedClock), WithRate(0))
	ctx := context.Background()

	granted, err := sink.RequestPermission(ctx)
	require.NoError(t, err)
	require.True(t, granted)

	title := "A"
	handle, err := sink.Schedule(ctx, notification.NearbyContent(&marker.Marker{ID: 1, Title: &title}))
	require.NoError(t, err)
	require.NotEmpty(t, handle)
	require.Equal(t, 1, sink.Live())

	require.NoError(t, sink.Dismiss(ctx, handle))
	require.Equal(t, 1, sink.Live())
	require.NoError(t, sink.CancelScheduled(ctx, handle))
	require.Zero(t, sink.Live())

	require.ErrorIs(t, sink.Dismiss(ctx, handle), ErrUnknownHandle)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Equal(t, []string{
		"2024-05-01T12:00:00Z SHOW " + string(handle) + " You're almost there! | Near you: 'A'",
		"2024-05-01T12:00:00Z DISMISS " + string(handle),
		"2024-05-01T12:00:00Z CANCEL " + string(handle),
	}, lines)
}

func TestSink_HandlesAreUnique(t *testing.T) {
	t.Parallel()

	sink := New(&bytes.Buffer{}, WithRate(0))

	first, err := sink.Schedule(context.Background(), notification.Content{Title: "t"})
	require.NoError(t, err)

	second, err := sink.Schedule(context.Background(), notification.Content{Title: "t"})
	require.NoError(t, err)

	require.NotEqual(t, first, second)
}

func TestSink_Disabled(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer

	sink := New(&out, WithEnabled(false))

	granted, err := sink.RequestPermission(context.Background())
	require.NoError(t, err)
	require.False(t, granted)

	_, err = sink.Schedule(context.Background(), notification.Content{Title: "t"})
	require.Error(t, err)
	require.Zero(t, out.Len())
}

func TestSink_ScheduleHonoursContext(t *testing.T) {
	t.Parallel()

	sink := New(&bytes.Buffer{}, WithRate(1))

	// The first call consumes the only token.
	_, err := sink.Schedule(context.Background(), notification.Content{Title: "t"})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err = sink.Schedule(ctx, notification.Content{Title: "t"})
	require.Error(t, err)
}
