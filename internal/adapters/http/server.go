package http

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	httpswagger "github.com/swaggo/http-swagger"

	"github.com/priyaranjankumar/linkly/config"
	"github.com/priyaranjankumar/linkly/internal/pkg/metrics"
)

// NewRouter mounts the management API under /api and the redirect route at
// the root. Fixed top-level paths win over /{shortCode}.
func NewRouter(handlers *Handlers, logger *slog.Logger, cfg *config.Config, metricsRegistry metrics.Registry) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(LoggingMiddleware(logger))
	r.Use(metrics.PrometheusMiddleware(metricsRegistry, cfg.Metrics.Path))
	r.Use(middleware.Recoverer)

	r.Get("/health", handlers.HandleHealth)
	r.Get("/ready", handlers.HandleReady)

	if cfg.Metrics.Enabled {
		r.Handle(cfg.Metrics.Path, metricsRegistry.GetHandler())
	}

	r.Get("/swagger/*", httpswagger.Handler(
		httpswagger.URL("/swagger/doc.json"),
	))
	r.Get("/redoc", handleRedoc)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", handlers.HandleAPIHealth)
		r.Post("/shorten", handlers.HandleShorten)

		r.Route("/links", func(r chi.Router) {
			r.Get("/", handlers.HandleList)
			r.Get("/lookup", handlers.HandleLookup)
			r.Patch("/{shortCode}/status", handlers.HandleUpdateStatus)
			r.Delete("/{shortCode}", handlers.HandleDelete)
		})
	})

	r.Get("/{shortCode}", handlers.HandleRedirect)
	r.Head("/{shortCode}", handlers.HandleRedirect)

	return r
}

const redocPage = `<!DOCTYPE html>
<html>
<head>
  <title>Linkly API</title>
  <meta charset="utf-8"/>
  <meta name="viewport" content="width=device-width, initial-scale=1">
</head>
<body style="margin:0">
  <redoc spec-url="/swagger/doc.json"></redoc>
  <script src="https://cdn.redoc.ly/redoc/latest/bundles/redoc.standalone.js"></script>
</body>
</html>`

func handleRedoc(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = io.WriteString(w, redocPage)
}
