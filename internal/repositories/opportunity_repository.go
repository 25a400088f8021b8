package repositories

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"partnerpipeline/internal/models"
)

// OpportunityRepository stores opportunities. Update must fail with
// models.ErrStaleStage when the record changed after the caller read it.
type OpportunityRepository interface {
	Store(ctx context.Context, o *models.Opportunity) error
	FindByID(ctx context.Context, id string) (*models.Opportunity, error)
	FindAll(ctx context.Context, filter models.OpportunityFilter) ([]*models.Opportunity, error)
	Update(ctx context.Context, o *models.Opportunity) error
}

// MemoryOpportunityRepository keeps opportunities in process memory. Records
// are copied on the way in and out so callers never share state with the store.
type MemoryOpportunityRepository struct {
	mu    sync.RWMutex
	items map[string]*models.Opportunity
}

func NewMemoryOpportunityRepository() *MemoryOpportunityRepository {
	return &MemoryOpportunityRepository{items: make(map[string]*models.Opportunity)}
}

func (r *MemoryOpportunityRepository) Store(ctx context.Context, o *models.Opportunity) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[o.ID]; ok {
		return fmt.Errorf("store opportunity %s: %w", o.ID, models.ErrAlreadyExists)
	}
	r.items[o.ID] = o.Clone()
	return nil
}

func (r *MemoryOpportunityRepository) FindByID(ctx context.Context, id string) (*models.Opportunity, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	o, ok := r.items[id]
	if !ok {
		return nil, fmt.Errorf("find opportunity %s: %w", id, models.ErrNotFound)
	}
	return o.Clone(), nil
}

// FindAll returns matching records, newest first.
func (r *MemoryOpportunityRepository) FindAll(ctx context.Context, filter models.OpportunityFilter) ([]*models.Opportunity, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	out := make([]*models.Opportunity, 0, len(r.items))
	for _, o := range r.items {
		if filter.Matches(o) {
			out = append(out, o.Clone())
		}
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedDate.Equal(out[j].CreatedDate) {
			return out[i].CreatedDate.After(out[j].CreatedDate)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// Update replaces the stored record when o carries the stored Version and
// bumps o.Version on success. A lower Version means o was built from a copy
// that another writer has since replaced.
func (r *MemoryOpportunityRepository) Update(ctx context.Context, o *models.Opportunity) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.items[o.ID]
	if !ok {
		return fmt.Errorf("update opportunity %s: %w", o.ID, models.ErrNotFound)
	}
	if stored.Version != o.Version {
		return fmt.Errorf("update opportunity %s at version %d: %w (stored version is %d)",
			o.ID, o.Version, models.ErrStaleStage, stored.Version)
	}
	o.Version++
	r.items[o.ID] = o.Clone()
	return nil
}
