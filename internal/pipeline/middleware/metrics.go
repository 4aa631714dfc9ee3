package middleware

import (
	"net/http"

	"github.com/felixge/httpsnoop"

	"reqlog/internal/platform/telemetry"
)

// Metrics returns middleware that records HTTP request metrics.
// Place as the outermost middleware to capture the full request lifecycle.
func Metrics(m *telemetry.Metrics) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if m == nil {
				next.ServeHTTP(w, r)
				return
			}
			cm := httpsnoop.CaptureMetrics(next, w, r)
			m.RecordHTTPRequest(r.Context(), r.Method, r.URL.Path, cm.Code, cm.Duration.Seconds())
		})
	}
}
