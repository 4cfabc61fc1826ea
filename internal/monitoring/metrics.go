package monitoring

import "github.com/prometheus/client_golang/prometheus"

var (
	HttpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"path"},
	)

	HttpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path"},
	)

	ActiveConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "active_connections",
			Help: "Number of active connections",
		},
	)

	FeedCacheRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feed_cache_requests_total",
			Help: "Home feed cache lookups by result",
		},
		[]string{"result"},
	)
)

// Register регистрирует метрики пакета и дополнительные коллекторы.
func Register(reg prometheus.Registerer, extra ...prometheus.Collector) {
	reg.MustRegister(HttpRequestsTotal, HttpRequestDuration, ActiveConnections, FeedCacheRequests)
	reg.MustRegister(extra...)
}
