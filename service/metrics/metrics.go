package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Relay metrics
	FramesBroadcast = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cm_frames_broadcast_total",
			Help: "Total number of frames broadcast per source",
		},
		[]string{"source"},
	)

	FramesDropped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cm_frames_dropped_total",
			Help: "Total number of frames dropped on full subscriber queues per source",
		},
		[]string{"source"},
	)

	StreamSubscribers = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "cm_stream_subscribers",
			Help: "Current number of stream subscribers per source",
		},
		[]string{"source"},
	)

	// Puller metrics
	DevicePolls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cm_device_polls_total",
			Help: "Total number of device snapshot requests per source",
		},
		[]string{"source"},
	)

	DevicePollFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cm_device_poll_failures_total",
			Help: "Total number of failed device snapshot requests per source",
		},
		[]string{"source"},
	)

	PullersRunning = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "cm_pullers_running",
			Help: "Current number of running pullers",
		},
	)

	// Alert metrics
	AlertsDelivered = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cm_alerts_delivered_total",
			Help: "Total number of alert messages delivered to live connections",
		},
	)

	AlertsFailed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cm_alerts_failed_total",
			Help: "Total number of alert deliveries that hit a dead connection",
		},
	)

	AlertConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "cm_alert_connections",
			Help: "Current number of registered alert connections",
		},
	)

	// Audit metrics
	ViolationsReported = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cm_violations_reported_total",
			Help: "Total number of violation reports accepted",
		},
	)
)

func init() {
	// Register all metrics
	prometheus.MustRegister(FramesBroadcast)
	prometheus.MustRegister(FramesDropped)
	prometheus.MustRegister(StreamSubscribers)
	prometheus.MustRegister(DevicePolls)
	prometheus.MustRegister(DevicePollFailures)
	prometheus.MustRegister(PullersRunning)
	prometheus.MustRegister(AlertsDelivered)
	prometheus.MustRegister(AlertsFailed)
	prometheus.MustRegister(AlertConnections)
	prometheus.MustRegister(ViolationsReported)
}

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}
