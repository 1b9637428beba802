package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus instruments for the SDK. Instances are
// registered against the Registerer supplied by the caller, so multiple
// clients can coexist with separate registries.
type Metrics struct {
	// HTTP request metrics
	HTTPRequests        *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Stream lifecycle metrics
	StreamsCreated prometheus.Counter
	StreamsClosed  prometheus.Counter
	ActiveStreams  prometheus.Gauge
	StreamDuration prometheus.Histogram

	// Result delivery metrics
	ResultsReceived   prometheus.Counter
	MalformedFrames   prometheus.Counter
	WebSocketFailures prometheus.Counter

	// Keepalive metrics
	KeepalivesSent    prometheus.Counter
	KeepaliveFailures prometheus.Counter
}

// New creates and registers all SDK metrics on reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "overshoot_http_requests_total",
			Help: "Total number of HTTP API requests by method and outcome",
		}, []string{"method", "outcome"}),
		HTTPRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "overshoot_http_request_duration_seconds",
			Help:    "HTTP API request latency",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12), // 5ms to ~20s
		}, []string{"method"}),

		StreamsCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "overshoot_streams_created_total",
			Help: "Total number of streams created",
		}),
		StreamsClosed: factory.NewCounter(prometheus.CounterOpts{
			Name: "overshoot_streams_closed_total",
			Help: "Total number of streams closed",
		}),
		ActiveStreams: factory.NewGauge(prometheus.GaugeOpts{
			Name: "overshoot_active_streams",
			Help: "Current number of active streams",
		}),
		StreamDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "overshoot_stream_duration_seconds",
			Help:    "Lifetime of streams in seconds",
			Buckets: prometheus.ExponentialBuckets(1, 2, 14), // 1s to ~4.5 hours
		}),

		ResultsReceived: factory.NewCounter(prometheus.CounterOpts{
			Name: "overshoot_results_received_total",
			Help: "Total number of inference results delivered",
		}),
		MalformedFrames: factory.NewCounter(prometheus.CounterOpts{
			Name: "overshoot_malformed_frames_total",
			Help: "Total number of WebSocket frames dropped as malformed",
		}),
		WebSocketFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "overshoot_websocket_failures_total",
			Help: "Total number of WebSocket connection or protocol failures",
		}),

		KeepalivesSent: factory.NewCounter(prometheus.CounterOpts{
			Name: "overshoot_keepalives_sent_total",
			Help: "Total number of successful lease renewals",
		}),
		KeepaliveFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "overshoot_keepalive_failures_total",
			Help: "Total number of failed lease renewals",
		}),
	}
}
