package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/priyaranjankumar/linkly/internal/domain"
)

// MappingRepository keeps mappings in process memory. Every call takes the
// lock for its whole duration, which gives the same per-row atomicity the
// SQL stores provide. Returned mappings are copies.
type MappingRepository struct {
	byCode map[string]*domain.Mapping
	byID   map[int64]*domain.Mapping
	nextID int64
	now    func() time.Time
	mu     sync.RWMutex
}

func NewMappingRepository() *MappingRepository {
	return &MappingRepository{
		byCode: make(map[string]*domain.Mapping),
		byID:   make(map[int64]*domain.Mapping),
		nextID: 1,
		now:    time.Now,
	}
}

func (r *MappingRepository) Create(ctx context.Context, originalURL string, code domain.CodeFunc) (*domain.Mapping, error) {
	if err := ctx.Err(); err != nil {
		return nil, domain.NewStoreError("create mapping", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	id := r.nextID
	shortCode, err := code(id)
	if err != nil {
		return nil, fmt.Errorf("derive short code for id %d: %w", id, err)
	}
	if _, exists := r.byCode[shortCode]; exists {
		return nil, domain.NewStoreError("assign short code", fmt.Errorf("short code %q already assigned", shortCode))
	}

	mapping := &domain.Mapping{
		ID:          id,
		ShortCode:   shortCode,
		OriginalURL: originalURL,
		Status:      domain.StatusActive,
		CreatedAt:   r.now().UTC(),
	}
	r.nextID++
	r.byCode[shortCode] = mapping
	r.byID[id] = mapping

	return copyMapping(mapping), nil
}

func (r *MappingRepository) FindByShortCode(ctx context.Context, shortCode string) (*domain.Mapping, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	mapping, exists := r.byCode[shortCode]
	if !exists {
		return nil, domain.ErrNotFound
	}

	return copyMapping(mapping), nil
}

func (r *MappingRepository) FindByOriginalURL(ctx context.Context, originalURL string) (*domain.Mapping, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var newest *domain.Mapping
	for _, mapping := range r.byID {
		if mapping.OriginalURL == originalURL && (newest == nil || mapping.ID > newest.ID) {
			newest = mapping
		}
	}
	if newest == nil {
		return nil, domain.ErrNotFound
	}

	return copyMapping(newest), nil
}

func (r *MappingRepository) List(ctx context.Context, offset, limit int) ([]*domain.Mapping, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := make([]*domain.Mapping, 0, len(r.byID))
	for _, mapping := range r.byID {
		all = append(all, mapping)
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.After(all[j].CreatedAt)
		}
		return all[i].ID > all[j].ID
	})

	if offset >= len(all) || limit <= 0 {
		return []*domain.Mapping{}, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}

	page := make([]*domain.Mapping, 0, end-offset)
	for _, mapping := range all[offset:end] {
		page = append(page, copyMapping(mapping))
	}
	return page, nil
}

func (r *MappingRepository) SetStatus(ctx context.Context, shortCode string, status domain.Status) (*domain.Mapping, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	mapping, exists := r.byCode[shortCode]
	if !exists {
		return nil, domain.ErrNotFound
	}

	mapping.Status = status
	return copyMapping(mapping), nil
}

func (r *MappingRepository) IncrementVisits(ctx context.Context, shortCode string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	mapping, exists := r.byCode[shortCode]
	if !exists {
		return domain.ErrNotFound
	}

	mapping.VisitCount++
	return nil
}

func (r *MappingRepository) Delete(ctx context.Context, shortCode string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	mapping, exists := r.byCode[shortCode]
	if !exists {
		return false, nil
	}

	delete(r.byCode, shortCode)
	delete(r.byID, mapping.ID)
	return true, nil
}

func (r *MappingRepository) Close() error {
	return nil
}

func (r *MappingRepository) HealthCheck(ctx context.Context) error {
	return nil
}

func copyMapping(m *domain.Mapping) *domain.Mapping {
	c := *m
	return &c
}

var _ domain.MappingRepository = (*MappingRepository)(nil)
