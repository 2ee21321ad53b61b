package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/priyaranjankumar/linkly/config"
)

// PrometheusRegistry implements the Registry interface using Prometheus metrics
type PrometheusRegistry struct {
	registry *prometheus.Registry
	config   config.MetricsConfig

	// HTTP Metrics
	httpRequestsTotal    *prometheus.CounterVec
	httpRequestDuration  *prometheus.HistogramVec
	httpRequestsInFlight prometheus.Gauge

	// Business Metrics
	urlsCreatedTotal    prometheus.Counter
	urlsRedirectedTotal prometheus.Counter
	statusChangesTotal  *prometheus.CounterVec
	linksDeletedTotal   prometheus.Counter

	// Cache-aside Metrics
	cacheLookupsTotal    *prometheus.CounterVec
	cacheErrorsTotal     *prometheus.CounterVec
	visitIncrementsTotal *prometheus.CounterVec
}

// NewPrometheusRegistry creates a new Prometheus metrics registry
func NewPrometheusRegistry(cfg config.MetricsConfig) (Registry, error) {
	registry := prometheus.NewRegistry()

	counter := func(name, help string) prometheus.Counter {
		return prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      name,
			Help:      help,
		})
	}
	counterVec := func(name, help string, labels ...string) *prometheus.CounterVec {
		return prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      name,
			Help:      help,
		}, labels)
	}

	p := &PrometheusRegistry{
		registry: registry,
		config:   cfg,

		httpRequestsTotal: counterVec("http_requests_total", "Total number of HTTP requests",
			LabelMethod, LabelPath, LabelStatusCode),
		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{LabelMethod, LabelPath, LabelStatusCode},
		),
		httpRequestsInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "http_requests_in_flight",
			Help:      "Number of HTTP requests currently being processed",
		}),

		urlsCreatedTotal:    counter("urls_created_total", "Total number of URLs created"),
		urlsRedirectedTotal: counter("urls_redirected_total", "Total number of URL redirects"),
		statusChangesTotal:  counterVec("links_status_changes_total", "Total number of link status changes", LabelStatus),
		linksDeletedTotal:   counter("links_deleted_total", "Total number of links deleted"),

		cacheLookupsTotal:    counterVec("cache_lookups_total", "Cache lookups by outcome", LabelCacheStatus),
		cacheErrorsTotal:     counterVec("cache_errors_total", "Cache operations that failed open", LabelOperation),
		visitIncrementsTotal: counterVec("visit_increments_total", "Visit counter increments by outcome", LabelStatus),
	}

	metricsCollectors := []prometheus.Collector{
		p.httpRequestsTotal,
		p.httpRequestDuration,
		p.httpRequestsInFlight,
		p.urlsCreatedTotal,
		p.urlsRedirectedTotal,
		p.statusChangesTotal,
		p.linksDeletedTotal,
		p.cacheLookupsTotal,
		p.cacheErrorsTotal,
		p.visitIncrementsTotal,
	}

	for _, collector := range metricsCollectors {
		if err := registry.Register(collector); err != nil {
			return nil, err
		}
	}

	if cfg.CollectRuntime {
		registry.MustRegister(collectors.NewGoCollector())
		registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}

	return p, nil
}

// RecordHTTPRequest records an HTTP request with method, path, status code, and duration
func (p *PrometheusRegistry) RecordHTTPRequest(method, path, statusCode string, duration float64) {
	labels := prometheus.Labels{
		LabelMethod:     method,
		LabelPath:       path,
		LabelStatusCode: statusCode,
	}
	p.httpRequestsTotal.With(labels).Inc()
	p.httpRequestDuration.With(labels).Observe(duration)
}

func (p *PrometheusRegistry) IncHTTPRequestsInFlight() {
	p.httpRequestsInFlight.Inc()
}

func (p *PrometheusRegistry) DecHTTPRequestsInFlight() {
	p.httpRequestsInFlight.Dec()
}

func (p *PrometheusRegistry) IncURLsCreated() {
	p.urlsCreatedTotal.Inc()
}

func (p *PrometheusRegistry) IncURLsRedirected() {
	p.urlsRedirectedTotal.Inc()
}

func (p *PrometheusRegistry) IncStatusChanges(status string) {
	p.statusChangesTotal.WithLabelValues(status).Inc()
}

func (p *PrometheusRegistry) IncLinksDeleted() {
	p.linksDeletedTotal.Inc()
}

// IncCacheLookup counts a redirect-path cache lookup as hit, miss or unavailable
func (p *PrometheusRegistry) IncCacheLookup(cacheStatus string) {
	p.cacheLookupsTotal.WithLabelValues(cacheStatus).Inc()
}

func (p *PrometheusRegistry) IncCacheError(operation string) {
	p.cacheErrorsTotal.WithLabelValues(operation).Inc()
}

func (p *PrometheusRegistry) IncVisitIncrement(status string) {
	p.visitIncrementsTotal.WithLabelValues(status).Inc()
}

// GetRegistry returns the underlying Prometheus registry
func (p *PrometheusRegistry) GetRegistry() *prometheus.Registry {
	return p.registry
}

// GetHandler returns an HTTP handler for the metrics endpoint
func (p *PrometheusRegistry) GetHandler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}
