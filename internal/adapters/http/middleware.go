package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/priyaranjankumar/linkly/internal/pkg/logging"
)

const traceIDHeader = "X-Trace-Id"

// LoggingMiddleware puts a request-scoped logger tagged with the chi request
// ID and the trace ID into the request context. The trace ID is taken from
// the X-Trace-Id header when present and echoed back.
func LoggingMiddleware(baseLogger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			traceID := r.Header.Get(traceIDHeader)
			if traceID == "" {
				traceID = logging.NewTraceID()
			}
			w.Header().Set(traceIDHeader, traceID)

			requestLogger := logging.ForRequest(baseLogger, middleware.GetReqID(r.Context()), traceID)
			ctx := logging.WithTraceID(r.Context(), traceID)
			ctx = logging.WithLogger(ctx, requestLogger)

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			requestLogger.Log(ctx, requestLevel(r.URL.Path, status), "Request completed",
				"method", r.Method,
				"path", r.URL.Path,
				"status_code", status,
				"bytes", ww.BytesWritten(),
				"remote_addr", r.RemoteAddr,
				"duration_ms", float64(time.Since(start).Microseconds())/1e3,
			)
		})
	}
}

// requestLevel picks the completion log level. Probes log at debug.
func requestLevel(path string, status int) slog.Level {
	switch {
	case status >= http.StatusInternalServerError:
		return slog.LevelError
	case path == "/health" || path == "/ready":
		return slog.LevelDebug
	default:
		return slog.LevelInfo
	}
}
