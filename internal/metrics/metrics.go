package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

//nolint:gochecknoglobals // Prometheus instruments are process-wide by nature.
var (
	TicksTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "marker_alerts_ticks_total",
		Help: "Total location ticks evaluated",
	})
	SkippedTicksTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "marker_alerts_skipped_ticks_total",
		Help: "Total location ticks skipped because markers could not be queried",
	})
	MarkersEvaluatedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "marker_alerts_markers_evaluated_total",
		Help: "Total marker proximity evaluations",
	})
	NotificationsShownTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "marker_alerts_notifications_shown_total",
		Help: "Total notifications that reached the active state",
	})
	NotificationShowFailuresTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "marker_alerts_notification_show_failures_total",
		Help: "Total show operations that failed and released their guard",
	})
	NotificationsRemovedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "marker_alerts_notifications_removed_total",
		Help: "Total active notifications removed",
	})
	NotificationActionFailuresTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "marker_alerts_notification_action_failures_total",
		Help: "Total swallowed dismiss and cancel failures",
	}, []string{"action"})
	ActiveNotifications = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "marker_alerts_active_notifications",
		Help: "Notifications currently visible",
	})
	TickDurationMs = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "marker_alerts_tick_duration_ms",
		Help:    "Duration of one evaluate-and-react cycle in milliseconds",
		Buckets: []float64{1, 5, 10, 20, 50, 100, 200, 500, 1000, 5000},
	})
)

func init() { //nolint:gochecknoinits // Instruments must be registered once per process.
	prometheus.MustRegister(
		TicksTotal,
		SkippedTicksTotal,
		MarkersEvaluatedTotal,
		NotificationsShownTotal,
		NotificationShowFailuresTotal,
		NotificationsRemovedTotal,
		NotificationActionFailuresTotal,
		ActiveNotifications,
		TickDurationMs,
	)
}

// Handler serves the default registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}
