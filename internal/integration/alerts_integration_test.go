package integration

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/test/bufconn"

	"github.com/oshokin/marker-alerts/internal/api/grpc/health"
	"github.com/oshokin/marker-alerts/internal/device/gps"
	"github.com/oshokin/marker-alerts/internal/domain/marker"
	"github.com/oshokin/marker-alerts/internal/geo"
	"github.com/oshokin/marker-alerts/internal/notifier/console"
	repository "github.com/oshokin/marker-alerts/internal/repository/marker"
	"github.com/oshokin/marker-alerts/internal/service/engine"
	"github.com/oshokin/marker-alerts/internal/service/location"
	"github.com/oshokin/marker-alerts/internal/service/notification"
)

// lockedBuffer is a bytes.Buffer safe for the sink writer and the test reader.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.buf.String()
}

// port adapts a reader into a gps.Porter.
type port struct {
	io.Reader
	closer func() error
}

func (p port) Close() error { return p.closer() }

// receiver scripts the serial device: every open before the last one replays
// initial, the last one is a live pipe the test writes to.
type receiver struct {
	mu      sync.Mutex
	initial string
	opens   int
	live    *io.PipeWriter
	liveAt  int
}

func (r *receiver) open(string, int) (gps.Porter, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.opens++

	if r.opens < r.liveAt {
		return port{Reader: strings.NewReader(r.initial), closer: func() error { return nil }}, nil
	}

	reader, writer := io.Pipe()
	r.live = writer

	return port{Reader: reader, closer: reader.Close}, nil
}

func (r *receiver) send(t *testing.T, c marker.Coordinate) {
	t.Helper()

	r.mu.Lock()
	live := r.live
	r.mu.Unlock()

	require.NotNil(t, live)

	_, err := live.Write([]byte(rmc(c) + "\r\n"))
	require.NoError(t, err)
}

// rmc renders c as a checksummed $GPRMC sentence.
func rmc(c marker.Coordinate) string {
	lat := int(c.Latitude)
	lon := int(c.Longitude)

	body := fmt.Sprintf("GPRMC,120000,A,%02d%09.6f,N,%03d%09.6f,E,0,0,010124,,",
		lat, (c.Latitude-float64(lat))*60, lon, (c.Longitude-float64(lon))*60)

	var sum byte
	for i := range len(body) {
		sum ^= body[i]
	}

	return fmt.Sprintf("$%s*%02X", body, sum)
}

// healthClient serves hs in memory and returns a client for it.
func healthClient(t *testing.T, hs *health.Server) healthpb.HealthClient {
	t.Helper()

	lis := bufconn.Listen(1 << 20)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		defer close(done)
		_ = hs.ServeListener(ctx, lis)
	}()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = conn.Close()
		cancel()
		<-done
	})

	return healthpb.NewHealthClient(conn)
}

func engineStatus(t *testing.T, client healthpb.HealthClient) healthpb.HealthCheckResponse_ServingStatus {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	resp, err := client.Check(ctx, &healthpb.HealthCheckRequest{Service: health.ServiceName})
	require.NoError(t, err)

	return resp.GetStatus()
}

// TestAlerts_EndToEnd drives SQLite markers, NMEA fixes and console notifications through the engine.
func TestAlerts_EndToEnd(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	home := marker.Coordinate{Latitude: 58, Longitude: 56}

	store, err := repository.Open(ctx, filepath.Join(t.TempDir(), "markers.db"))
	require.NoError(t, err)

	t.Cleanup(func() { _ = store.Close() })

	created, err := store.CreateMarker(ctx, home)
	require.NoError(t, err)

	title := "A"
	_, err = store.UpdateMarker(ctx, created.ID, &title, nil)
	require.NoError(t, err)

	// Opens: permission check, one-shot fetch, then the live watch.
	device := &receiver{initial: rmc(geo.Offset(home, 30, 0)) + "\r\n", liveAt: 3}
	backend := gps.NewBackend("/dev/ttyTEST", 0, gps.WithOpener(device.open))

	tracker, err := location.NewTracker(backend, marker.TrackerConfig{
		Accuracy:            marker.AccuracyBalanced,
		MinTimeInterval:     time.Nanosecond,
		MinDistanceInterval: 1,
	})
	require.NoError(t, err)

	var out lockedBuffer

	manager, err := notification.NewManager(console.New(&out, console.WithRate(0)))
	require.NoError(t, err)

	hs := health.NewServer()
	client := healthClient(t, hs)

	alerts, err := engine.New(tracker, manager, store,
		engine.WithStatusListener(func(s engine.Status) { hs.SetServing(s == engine.StatusServing) }))
	require.NoError(t, err)

	require.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, engineStatus(t, client))

	require.NoError(t, alerts.Start(ctx))
	require.Equal(t, healthpb.HealthCheckResponse_SERVING, engineStatus(t, client))

	// The one-shot fetch placed us 30 m from the marker.
	require.Equal(t, notification.StateActive, manager.State(created.ID))
	require.Contains(t, out.String(), "You're almost there! | Near you: 'A'")

	device.send(t, geo.Offset(home, 500, 0))
	require.Eventually(t, func() bool {
		return manager.State(created.ID) == notification.StateAbsent
	}, 5*time.Second, 10*time.Millisecond)

	device.send(t, geo.Offset(home, 10, 0))
	require.Eventually(t, func() bool {
		return manager.State(created.ID) == notification.StateActive
	}, 5*time.Second, 10*time.Millisecond)

	require.Equal(t, 2, strings.Count(out.String(), " SHOW "))

	alerts.Stop()
	require.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, engineStatus(t, client))

	// Stopping leaves the notification visible.
	require.Equal(t, notification.StateActive, manager.State(created.ID))
}
