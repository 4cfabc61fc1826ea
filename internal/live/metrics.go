package live

import "github.com/prometheus/client_golang/prometheus"

var subscribers = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Name: "live_subscribers",
		Help: "Number of connected live feed subscribers",
	},
)

// Collectors возвращает метрики пакета для регистрации.
func Collectors() []prometheus.Collector {
	return []prometheus.Collector{subscribers}
}
