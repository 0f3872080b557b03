package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	rpcCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "gifbox",
			Subsystem: "rpc",
			Name:      "calls_total",
			Help:      "RPC calls by method and outcome kind (ok for success).",
		},
		[]string{"method", "outcome"},
	)

	rpcDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "gifbox",
			Subsystem: "rpc",
			Name:      "duration_seconds",
			Help:      "Duration of RPC calls from decode to encoded response.",
			Buckets:   prometheus.ExponentialBuckets(0.002, 2, 12), // 2ms to ~4s
		},
		[]string{"method"},
	)

	providerRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "gifbox",
			Subsystem: "provider",
			Name:      "requests_total",
			Help:      "Outbound GIF provider searches by outcome.",
		},
		[]string{"outcome"},
	)

	providerDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "gifbox",
			Subsystem: "provider",
			Name:      "request_duration_seconds",
			Help:      "Latency of outbound GIF provider searches.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 10), // 10ms to ~5s
		},
	)

	wsConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "gifbox",
			Subsystem: "ws",
			Name:      "open_connections",
			Help:      "Currently open RPC WebSocket connections.",
		},
	)
)

func init() {
	Registry.MustRegister(
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
		rpcCalls,
		rpcDuration,
		providerRequests,
		providerDuration,
		wsConnections,
	)
}

// Handler exposes Registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

func RecordRPC(method, outcome string, d time.Duration) {
	if method == "" {
		method = "unknown"
	}
	rpcCalls.WithLabelValues(method, outcome).Inc()
	rpcDuration.WithLabelValues(method).Observe(d.Seconds())
}

func RecordProvider(outcome string, d time.Duration) {
	providerRequests.WithLabelValues(outcome).Inc()
	providerDuration.Observe(d.Seconds())
}

func WebSocketOpened() { wsConnections.Inc() }
func WebSocketClosed() { wsConnections.Dec() }
