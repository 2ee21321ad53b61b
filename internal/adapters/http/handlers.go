package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/priyaranjankumar/linkly/internal/application"
	"github.com/priyaranjankumar/linkly/internal/domain"
	"github.com/priyaranjankumar/linkly/internal/pkg/logging"
)

type Handlers struct {
	resolver *application.Resolver
	service  *application.LinkService
	repo     domain.MappingRepository
	cache    domain.Cache
}

func NewHandlers(resolver *application.Resolver, service *application.LinkService, repo domain.MappingRepository, cache domain.Cache) *Handlers {
	return &Handlers{
		resolver: resolver,
		service:  service,
		repo:     repo,
		cache:    cache,
	}
}

// HandleHealth handles the liveness endpoint.
//
//	@Summary		Health check endpoint
//	@Description	Check if the service is running
//	@Tags			health
//	@Produce		plain
//	@Success		200	{string}	string	"OK"
//	@Router			/health [get]
func (h *Handlers) HandleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintf(w, "OK")
}

// HandleAPIHealth reports liveness as JSON for API clients.
//
//	@Summary	API health check
//	@Tags		health
//	@Produce	json
//	@Success	200	{object}	object{status=string}
//	@Router		/api/health [get]
func (h *Handlers) HandleAPIHealth(w http.ResponseWriter, _ *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// HandleReady handles the readiness check endpoint. The store must answer;
// a cache outage only degrades the report.
//
//	@Summary		Readiness check endpoint
//	@Description	Check database connectivity and report cache state
//	@Tags			health
//	@Produce		json
//	@Success		200	{object}	object{status=string,cache=string,timestamp=string}	"Service is ready"
//	@Failure		503	{object}	ErrorResponse										"Service is not ready"
//	@Router			/ready [get]
func (h *Handlers) HandleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	logger := logging.FromContext(r.Context())

	if err := h.repo.HealthCheck(ctx); err != nil {
		logger.Error("Readiness check failed", "error", err)
		respondWithError(w, http.StatusServiceUnavailable, "Service not ready: database unavailable")
		return
	}

	cacheState := "ok"
	if err := h.cache.Ping(ctx); err != nil {
		logger.Warn("Cache ping failed during readiness check", "error", err)
		cacheState = "degraded"
	}

	respondWithJSON(w, http.StatusOK, map[string]string{
		"status":    "ready",
		"cache":     cacheState,
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

// HandleShorten handles the URL shortening endpoint.
//
//	@Summary		Create a short URL
//	@Description	Create a shortened URL from an absolute http or https URL
//	@Tags			links
//	@Accept			json
//	@Produce		json
//	@Param			request	body		application.CreateURLRequest	true	"URL to shorten"
//	@Success		201		{object}	application.URLResponse			"Successfully created short URL"
//	@Failure		400		{object}	ValidationErrorResponse			"Invalid request or validation error"
//	@Failure		500		{object}	ErrorResponse					"Store failure"
//	@Router			/api/shorten [post]
func (h *Handlers) HandleShorten(w http.ResponseWriter, r *http.Request) {
	var req application.CreateURLRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logging.FromContext(r.Context()).Warn("Failed to decode request", "error", err)
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	response, err := h.service.CreateShortURL(r.Context(), req)
	if err != nil {
		h.handleError(w, r, err, "Failed to create short URL")
		return
	}

	respondWithJSON(w, http.StatusCreated, response)
}

// HandleList returns links newest first.
//
//	@Summary		List short URLs
//	@Description	List links ordered by creation time, newest first
//	@Tags			links
//	@Produce		json
//	@Param			skip	query		int	false	"Number of links to skip"	default(0)
//	@Param			limit	query		int	false	"Maximum number of links"	default(100)
//	@Success		200		{object}	application.ListResponse
//	@Failure		400		{object}	ErrorResponse
//	@Failure		500		{object}	ErrorResponse
//	@Router			/api/links [get]
func (h *Handlers) HandleList(w http.ResponseWriter, r *http.Request) {
	skip, err := queryInt(r, "skip")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "skip must be a non-negative integer")
		return
	}
	limit, err := queryInt(r, "limit")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "limit must be a non-negative integer")
		return
	}

	response, err := h.service.ListURLs(r.Context(), skip, limit)
	if err != nil {
		h.handleError(w, r, err, "Failed to list links")
		return
	}

	respondWithJSON(w, http.StatusOK, response)
}

// HandleLookup finds the newest link for an original URL.
//
//	@Summary	Find a short URL by original URL
//	@Tags		links
//	@Produce	json
//	@Param		url	query		string	true	"Original URL"
//	@Success	200	{object}	application.URLResponse
//	@Failure	400	{object}	ErrorResponse
//	@Failure	404	{object}	ErrorResponse
//	@Router		/api/links/lookup [get]
func (h *Handlers) HandleLookup(w http.ResponseWriter, r *http.Request) {
	response, err := h.service.GetByOriginalURL(r.Context(), r.URL.Query().Get("url"))
	if err != nil {
		h.handleError(w, r, err, "Failed to look up link")
		return
	}

	respondWithJSON(w, http.StatusOK, response)
}

// HandleUpdateStatus activates or deactivates a link.
//
//	@Summary	Update link status
//	@Tags		links
//	@Accept		json
//	@Produce	json
//	@Param		shortCode	path		string							true	"Short code"
//	@Param		request		body		application.UpdateStatusRequest	true	"New status"
//	@Success	200			{object}	application.URLResponse
//	@Failure	400			{object}	ValidationErrorResponse
//	@Failure	404			{object}	ErrorResponse
//	@Router		/api/links/{shortCode}/status [patch]
func (h *Handlers) HandleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	shortCode := chi.URLParam(r, "shortCode")

	var req application.UpdateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	status, err := h.service.ValidateStatusRequest(req)
	if err != nil {
		h.handleError(w, r, err, "Invalid status")
		return
	}

	response, err := h.service.UpdateStatus(r.Context(), shortCode, status)
	if err != nil {
		h.handleError(w, r, err, "Failed to update status")
		return
	}

	respondWithJSON(w, http.StatusOK, response)
}

// HandleDelete removes a link and its cache entry.
//
//	@Summary	Delete a short URL
//	@Tags		links
//	@Param		shortCode	path	string	true	"Short code"
//	@Success	204			"Deleted"
//	@Failure	404			{object}	ErrorResponse
//	@Router		/api/links/{shortCode} [delete]
func (h *Handlers) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteURL(r.Context(), chi.URLParam(r, "shortCode")); err != nil {
		h.handleError(w, r, err, "Failed to delete link")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandleRedirect handles the redirect endpoint. HEAD requests get the same
// answer without counting a visit.
//
//	@Summary		Redirect to original URL
//	@Description	Temporary redirect to the original URL of an active short code
//	@Tags			redirect
//	@Param			shortCode	path	string	true	"Short code"
//	@Success		307			"Redirect to original URL"
//	@Failure		404			{object}	ErrorResponse	"Short URL not found"
//	@Failure		410			{object}	ErrorResponse	"Short URL is inactive"
//	@Router			/{shortCode} [get]
func (h *Handlers) HandleRedirect(w http.ResponseWriter, r *http.Request) {
	shortCode := chi.URLParam(r, "shortCode")

	resolve := h.resolver.Resolve
	if r.Method == http.MethodHead {
		resolve = h.resolver.Preview
	}

	originalURL, err := resolve(r.Context(), shortCode)
	if err != nil {
		h.handleError(w, r, err, "Failed to resolve short URL")
		return
	}

	logging.FromContext(r.Context()).Info("Redirecting", "short_code", shortCode, "original_url", originalURL)
	http.Redirect(w, r, originalURL, http.StatusTemporaryRedirect)
}

// handleError maps the error taxonomy onto status codes. Store failures get
// a generic message.
func (h *Handlers) handleError(w http.ResponseWriter, r *http.Request, err error, message string) {
	logger := logging.FromContext(r.Context())

	var validationErrors validator.ValidationErrors
	var storeErr *domain.StoreError

	switch {
	case errors.As(err, &validationErrors):
		handleValidationError(w, validationErrors)
	case application.IsValidationError(err):
		respondWithError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		respondWithError(w, http.StatusNotFound, "Short URL not found")
	case errors.Is(err, domain.ErrInactiveLink):
		respondWithError(w, http.StatusGone, "Short URL is inactive")
	case errors.Is(err, context.DeadlineExceeded):
		logger.Error(message, "error", err)
		respondWithError(w, http.StatusGatewayTimeout, "Request timed out")
	case errors.As(err, &storeErr):
		logger.Error(message, "operation", storeErr.Op, "error", err)
		respondWithError(w, http.StatusInternalServerError, message)
	default:
		logger.Error(message, "error", err)
		respondWithError(w, http.StatusInternalServerError, message)
	}
}

func queryInt(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, fmt.Errorf("%s is negative", name)
	}
	return n, nil
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error     map[string]string `json:"error"`
	Timestamp string            `json:"timestamp" example:"2024-01-31T12:00:00Z"`
}

// ValidationErrorResponse represents a validation error response.
type ValidationErrorResponse struct {
	Details map[string]string `json:"details"`
	Error   string            `json:"error" example:"Validation failed"`
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]interface{}{
		"error": map[string]string{
			"message": message,
		},
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

func handleValidationError(w http.ResponseWriter, validationErrors validator.ValidationErrors) {
	errorMessages := make(map[string]string)
	for _, e := range validationErrors {
		field := getJSONFieldName(e)
		switch e.Tag() {
		case "required":
			errorMessages[field] = fmt.Sprintf("%s is required", field)
		case "url":
			errorMessages[field] = fmt.Sprintf("%s must be a valid URL", field)
		case "oneof":
			errorMessages[field] = fmt.Sprintf("%s must be one of: %s", field, e.Param())
		default:
			errorMessages[field] = fmt.Sprintf("%s is invalid", field)
		}
	}

	respondWithJSON(w, http.StatusBadRequest, map[string]interface{}{
		"error":   "Validation failed",
		"details": errorMessages,
	})
}

// getJSONFieldName extracts the JSON tag name from a validation error
func getJSONFieldName(e validator.FieldError) string {
	structType := getStructTypeFromError(e)
	if structType == nil {
		return e.Field()
	}

	field, found := structType.FieldByName(e.StructField())
	if !found {
		return e.Field()
	}

	jsonTag := field.Tag.Get("json")
	if jsonTag == "" {
		return e.Field()
	}

	if commaIndex := strings.Index(jsonTag, ","); commaIndex != -1 {
		jsonTag = jsonTag[:commaIndex]
	}

	return jsonTag
}

// getStructTypeFromError resolves the request struct from the namespace,
// e.g. "CreateURLRequest.URL".
func getStructTypeFromError(e validator.FieldError) reflect.Type {
	parts := strings.Split(e.StructNamespace(), ".")
	if len(parts) < 2 {
		return nil
	}

	return getTypeFromStructName(parts[0])
}

// getTypeFromStructName acts as a registry for known request types
func getTypeFromStructName(structName string) reflect.Type {
	switch structName {
	case "CreateURLRequest":
		return reflect.TypeOf(application.CreateURLRequest{})
	case "UpdateStatusRequest":
		return reflect.TypeOf(application.UpdateStatusRequest{})
	default:
		return nil
	}
}
