package metrics

import (
	"net/http"
	"slices"
	"time"

	"github.com/go-chi/chi/v5/middleware"
)

// PrometheusMiddleware records request count, latency and in-flight gauge
// per route pattern. Requests to skipPaths, normally the scrape endpoint,
// pass through unrecorded.
func PrometheusMiddleware(registry Registry, skipPaths ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if slices.Contains(skipPaths, r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			registry.IncHTTPRequestsInFlight()
			defer registry.DecHTTPRequestsInFlight()

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			registry.RecordHTTPRequest(r.Method, GetRoutePath(r), FormatStatusCode(status), time.Since(start).Seconds())
		})
	}
}
