package metrics

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
)

var staticRoutes = map[string]bool{
	"/":                 true,
	"/health":           true,
	"/ready":            true,
	"/metrics":          true,
	"/redoc":            true,
	"/api/health":       true,
	"/api/shorten":      true,
	"/api/links":        true,
	"/api/links/lookup": true,
}

// GetRoutePath labels a request with its chi route pattern, or with
// NormalizePath when no route matched.
func GetRoutePath(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return NormalizePath(r.URL.Path)
}

// NormalizePath collapses short codes and other dynamic segments so the
// path label stays bounded.
func NormalizePath(path string) string {
	if path == "" {
		return "/"
	}
	if staticRoutes[path] {
		return path
	}

	switch {
	case strings.HasPrefix(path, "/swagger"):
		return "/swagger/*"
	case strings.HasPrefix(path, "/api/links/") && strings.HasSuffix(path, "/status"):
		return "/api/links/{shortCode}/status"
	case strings.HasPrefix(path, "/api/links/"):
		return "/api/links/{shortCode}"
	case strings.HasPrefix(path, "/api/"):
		return "/api/*"
	case strings.Count(strings.Trim(path, "/"), "/") == 0:
		return "/{shortCode}"
	default:
		return "/*"
	}
}

func FormatStatusCode(statusCode int) string {
	return strconv.Itoa(statusCode)
}
