package monitoring

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
)

// Middleware считает запросы и их длительность по шаблону маршрута chi,
// чтобы id и slug из пути не раздували число меток.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// increment number of active connections
		ActiveConnections.Inc()
		defer ActiveConnections.Dec()

		start := time.Now()
		next.ServeHTTP(w, r)

		path := routePattern(r)
		HttpRequestsTotal.WithLabelValues(path).Inc()
		HttpRequestDuration.WithLabelValues(path).Observe(time.Since(start).Seconds())
	})
}

func routePattern(r *http.Request) string {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil || len(rctx.RoutePatterns) == 0 {
		return "unmatched"
	}
	// Версии chi по-разному обрезают завершающий слэш, метка всегда без него
	pattern := strings.TrimSuffix(rctx.RoutePattern(), "/")
	if pattern == "" {
		return "/"
	}
	return pattern
}
