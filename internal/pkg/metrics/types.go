package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
)

// Registry defines the interface for metrics collection
type Registry interface {
	// HTTP Metrics
	RecordHTTPRequest(method, path, statusCode string, duration float64)
	IncHTTPRequestsInFlight()
	DecHTTPRequestsInFlight()

	// Business Metrics
	IncURLsCreated()
	IncURLsRedirected()
	IncStatusChanges(status string)
	IncLinksDeleted()

	// Cache-aside Metrics
	IncCacheLookup(cacheStatus string)
	IncCacheError(operation string)
	IncVisitIncrement(status string)

	// Prometheus-specific methods
	GetRegistry() *prometheus.Registry
	GetHandler() http.Handler
}

// NoOpRegistry provides a no-op implementation for when metrics are disabled
type NoOpRegistry struct{}

func NewNoOpRegistry() Registry {
	return &NoOpRegistry{}
}

func (n *NoOpRegistry) RecordHTTPRequest(method, path, statusCode string, duration float64) {}
func (n *NoOpRegistry) IncHTTPRequestsInFlight()                                            {}
func (n *NoOpRegistry) DecHTTPRequestsInFlight()                                            {}
func (n *NoOpRegistry) IncURLsCreated()                                                     {}
func (n *NoOpRegistry) IncURLsRedirected()                                                  {}
func (n *NoOpRegistry) IncStatusChanges(status string)                                      {}
func (n *NoOpRegistry) IncLinksDeleted()                                                    {}
func (n *NoOpRegistry) IncCacheLookup(cacheStatus string)                                   {}
func (n *NoOpRegistry) IncCacheError(operation string)                                      {}
func (n *NoOpRegistry) IncVisitIncrement(status string)                                     {}
func (n *NoOpRegistry) GetRegistry() *prometheus.Registry                                   { return nil }
func (n *NoOpRegistry) GetHandler() http.Handler                                            { return nil }

// Common label names as constants
const (
	LabelMethod       = "method"
	LabelPath         = "path"
	LabelStatusCode   = "status_code"
	LabelOperation    = "operation"
	LabelStatus       = "status"
	LabelCacheStatus  = "cache_status"
	LabelDatabaseType = "database_type"
)

// Cache lookup outcomes
const (
	CacheHit         = "hit"
	CacheMiss        = "miss"
	CacheUnavailable = "unavailable"
)

// Visit increment outcomes
const (
	VisitRecorded = "recorded"
	VisitFailed   = "failed"
	VisitDropped  = "dropped"
)
