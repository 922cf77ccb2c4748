package metrics

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestHandler_ExposesEngineMetrics checks that registered instruments are scraped.
func TestHandler_ExposesEngineMetrics(t *testing.T) {
	t.Parallel()

	TicksTotal.Inc()
	NotificationActionFailuresTotal.WithLabelValues("dismiss").Inc()

	recorder := httptest.NewRecorder()
	Handler().ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, recorder.Code)
	require.Contains(t, recorder.Body.String(), "marker_alerts_ticks_total")
	require.Contains(t, recorder.Body.String(), `marker_alerts_notification_action_failures_total{action="dismiss"}`)
}

// TestServeListener_StopsWithContext scrapes a live server and shuts it down.
func TestServeListener_StopsWithContext(t *testing.T) {
	t.Parallel()

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	served := make(chan error, 1)

	go func() { served <- ServeListener(ctx, lis) }()

	resp, err := http.Get("http://" + lis.Addr().String() + Path)
	require.NoError(t, err)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, resp.Body.Close())
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, string(body), "marker_alerts_ticks_total")

	cancel()
	require.NoError(t, <-served)
}
