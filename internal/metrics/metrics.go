package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "toastbox"

var (
	ActiveToasts = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "toasts_visible",
		Help:      "Number of toasts currently visible across all providers.",
	})
	QueuedToasts = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "toasts_queued",
		Help:      "Number of toasts waiting for a free slot.",
	})
	ToastsAdded = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "toasts_added_total",
		Help:      "Toasts accepted, by variant.",
	}, []string{"variant"})
	ToastsRemoved = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "toasts_removed_total",
		Help:      "Toasts removed, by reason.",
	}, []string{"reason"})
	ToastsRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "toasts_rejected_total",
		Help:      "Add requests that failed, by error class.",
	}, []string{"error"})
	ActiveProviders = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "providers_active",
		Help:      "Number of live toast providers.",
	})
	ConnectedClients = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "clients_connected",
		Help:      "Number of connected WebSocket clients.",
	})
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "HTTP requests, by method, route and status code.",
	}, []string{"method", "route", "code"})
	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency, by method and route.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route"})
)

// Handler serves the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.Handler()
}
