package domain

import "context"

// CodeFunc derives the short code for a freshly assigned id.
type CodeFunc func(id int64) (string, error)

// MappingRepository is the source of truth for mappings. Implementations
// never touch the cache.
type MappingRepository interface {
	// Create inserts a pending row, derives its code from the assigned id and
	// persists the code, all in one transaction.
	Create(ctx context.Context, originalURL string, code CodeFunc) (*Mapping, error)
	FindByShortCode(ctx context.Context, shortCode string) (*Mapping, error)
	FindByOriginalURL(ctx context.Context, originalURL string) (*Mapping, error)
	// List returns mappings newest first.
	List(ctx context.Context, offset, limit int) ([]*Mapping, error)
	SetStatus(ctx context.Context, shortCode string, status Status) (*Mapping, error)
	// IncrementVisits must be a single atomic update in the store.
	IncrementVisits(ctx context.Context, shortCode string) error
	Delete(ctx context.Context, shortCode string) (bool, error)
	Close() error
	HealthCheck(ctx context.Context) error
}
