package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/priyaranjankumar/linkly/internal/domain"
	"github.com/priyaranjankumar/linkly/internal/pkg/base62"
	"github.com/priyaranjankumar/linkly/internal/pkg/logging"
	"github.com/priyaranjankumar/linkly/internal/pkg/metrics"
)

type ServiceConfig struct {
	BaseURL          string
	CacheTTL         time.Duration
	CacheTimeout     time.Duration
	StoreTimeout     time.Duration
	WarmOnCreate     bool
	DefaultListLimit int
	MaxListLimit     int
}

// LinkService runs the create, status and delete workflows. The store is
// always written first and the cache entry is invalidated afterwards.
type LinkService struct {
	repo     domain.MappingRepository
	cache    domain.Cache
	metrics  metrics.Registry
	validate *validator.Validate
	cfg      ServiceConfig
}

func NewLinkService(repo domain.MappingRepository, cache domain.Cache, registry metrics.Registry, cfg ServiceConfig) *LinkService {
	if cfg.DefaultListLimit <= 0 {
		cfg.DefaultListLimit = 100
	}
	if cfg.MaxListLimit < cfg.DefaultListLimit {
		cfg.MaxListLimit = cfg.DefaultListLimit
	}
	return &LinkService{
		repo:     repo,
		cache:    cache,
		metrics:  registry,
		validate: validator.New(),
		cfg:      cfg,
	}
}

type CreateURLRequest struct {
	URL string `json:"url" validate:"required,url"`
}

type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=Active Inactive"`
}

type URLResponse struct {
	ID          int64         `json:"id"`
	ShortCode   string        `json:"short_code"`
	OriginalURL string        `json:"original_url"`
	Status      domain.Status `json:"status"`
	VisitCount  int64         `json:"visit_count"`
	CreatedAt   time.Time     `json:"created_at"`
	ShortURL    string        `json:"short_url"`
}

type ListResponse struct {
	Links []*URLResponse `json:"links"`
}

func (s *LinkService) CreateShortURL(ctx context.Context, req CreateURLRequest) (*URLResponse, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, err
	}
	if err := domain.ValidateOriginalURL(req.URL); err != nil {
		return nil, err
	}

	storeCtx, cancel := withTimeout(ctx, s.cfg.StoreTimeout)
	defer cancel()

	mapping, err := s.repo.Create(storeCtx, req.URL, base62.Encode)
	if err != nil {
		logging.FromContext(ctx).Error("Failed to create mapping", "url", req.URL, "error", err)
		return nil, err
	}
	s.metrics.IncURLsCreated()

	if s.cfg.WarmOnCreate {
		if err := s.cache.Set(ctx, mapping.ShortCode, mapping.OriginalURL, s.cfg.CacheTTL); err != nil {
			s.metrics.IncCacheError("set")
			logging.FromContext(ctx).Warn("Cache warm failed", "short_code", mapping.ShortCode, "error", err)
		}
	}

	logging.FromContext(ctx).Info("Short URL created", "short_code", mapping.ShortCode, "id", mapping.ID)
	return s.toResponse(mapping), nil
}

func (s *LinkService) UpdateStatus(ctx context.Context, shortCode string, status domain.Status) (*URLResponse, error) {
	if _, err := domain.ParseStatus(string(status)); err != nil {
		return nil, err
	}

	storeCtx, cancel := withTimeout(ctx, s.cfg.StoreTimeout)
	defer cancel()

	mapping, err := s.repo.SetStatus(storeCtx, shortCode, status)
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, shortCode)
	s.metrics.IncStatusChanges(string(mapping.Status))

	logging.FromContext(ctx).Info("Status updated", "short_code", shortCode, "status", mapping.Status)
	return s.toResponse(mapping), nil
}

// DeleteURL removes the mapping and its cache entry. The cache entry is
// invalidated even when the store held no row.
func (s *LinkService) DeleteURL(ctx context.Context, shortCode string) error {
	storeCtx, cancel := withTimeout(ctx, s.cfg.StoreTimeout)
	defer cancel()

	removed, err := s.repo.Delete(storeCtx, shortCode)
	if err != nil {
		return err
	}

	s.invalidate(ctx, shortCode)

	if !removed {
		return domain.ErrNotFound
	}
	s.metrics.IncLinksDeleted()

	logging.FromContext(ctx).Info("Short URL deleted", "short_code", shortCode)
	return nil
}

func (s *LinkService) ListURLs(ctx context.Context, offset, limit int) (*ListResponse, error) {
	if offset < 0 {
		offset = 0
	}
	switch {
	case limit <= 0:
		limit = s.cfg.DefaultListLimit
	case limit > s.cfg.MaxListLimit:
		limit = s.cfg.MaxListLimit
	}

	storeCtx, cancel := withTimeout(ctx, s.cfg.StoreTimeout)
	defer cancel()

	mappings, err := s.repo.List(storeCtx, offset, limit)
	if err != nil {
		return nil, err
	}

	links := make([]*URLResponse, 0, len(mappings))
	for _, m := range mappings {
		links = append(links, s.toResponse(m))
	}
	return &ListResponse{Links: links}, nil
}

func (s *LinkService) GetByOriginalURL(ctx context.Context, originalURL string) (*URLResponse, error) {
	if err := domain.ValidateOriginalURL(originalURL); err != nil {
		return nil, err
	}

	storeCtx, cancel := withTimeout(ctx, s.cfg.StoreTimeout)
	defer cancel()

	mapping, err := s.repo.FindByOriginalURL(storeCtx, originalURL)
	if err != nil {
		return nil, err
	}
	return s.toResponse(mapping), nil
}

// invalidate deletes the cache entry, retrying once. It runs after the
// store write has committed, so it is detached from the caller's
// cancellation and bounded per attempt by the cache timeout. A failure
// after the retry is logged and left to TTL expiry.
func (s *LinkService) invalidate(ctx context.Context, shortCode string) {
	detached := context.WithoutCancel(ctx)

	var err error
	for attempt := 1; attempt <= 2; attempt++ {
		attemptCtx, cancel := withTimeout(detached, s.cfg.CacheTimeout)
		err = s.cache.Delete(attemptCtx, shortCode)
		cancel()
		if err == nil {
			return
		}
		s.metrics.IncCacheError("delete")
	}
	logging.FromContext(ctx).Warn("Cache invalidation failed", "short_code", shortCode, "error", err)
}

func (s *LinkService) toResponse(m *domain.Mapping) *URLResponse {
	return &URLResponse{
		ID:          m.ID,
		ShortCode:   m.ShortCode,
		OriginalURL: m.OriginalURL,
		Status:      m.Status,
		VisitCount:  m.VisitCount,
		CreatedAt:   m.CreatedAt,
		ShortURL:    ShortURL(s.cfg.BaseURL, m.ShortCode),
	}
}

// ShortURL joins the public base URL and a short code with exactly one slash.
func ShortURL(baseURL, shortCode string) string {
	return strings.TrimRight(baseURL, "/") + "/" + shortCode
}

// IsValidationError reports whether err was caused by bad caller input.
func IsValidationError(err error) bool {
	var validationErrs validator.ValidationErrors
	return errors.As(err, &validationErrs) ||
		errors.Is(err, domain.ErrInvalidURL) ||
		errors.Is(err, domain.ErrInvalidStatus)
}

// ValidateStatusRequest checks the body of a status change and returns the
// parsed status.
func (s *LinkService) ValidateStatusRequest(req UpdateStatusRequest) (domain.Status, error) {
	if err := s.validate.Struct(req); err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrInvalidStatus, err)
	}
	return domain.ParseStatus(req.Status)
}
