package middleware

import (
	"net/http"
	"strconv"

	"blog/internal/monitoring"

	"github.com/felixge/httpsnoop"
)

// Metrics records request count, duration and in-flight requests for one route.
// The route pattern is used as the label so post ids do not create new series.
func Metrics(route string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			monitoring.ActiveConnections.Inc()
			defer monitoring.ActiveConnections.Dec()

			m := httpsnoop.CaptureMetrics(next, w, r)

			monitoring.HttpRequestsTotal.WithLabelValues(route, strconv.Itoa(m.Code)).Inc()
			monitoring.HttpRequestDuration.WithLabelValues(route).Observe(m.Duration.Seconds())
		})
	}
}
