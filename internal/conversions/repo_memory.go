package conversions

import (
	"context"
	"sort"
	"sync"
)

// MemoryRepo is an in-memory implementation of Repo.
type MemoryRepo struct {
	mu   sync.RWMutex
	data []Conversion
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{}
}

// Create appends a conversion to the history.
func (r *MemoryRepo) Create(ctx context.Context, conv Conversion) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.data = append(r.data, conv)
	return nil
}

// GetByID returns a conversion by ID.
func (r *MemoryRepo) GetByID(ctx context.Context, id string) (Conversion, error) {
	if err := ctx.Err(); err != nil {
		return Conversion{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for i := range r.data {
		if r.data[i].ID == id {
			return r.data[i], nil
		}
	}
	return Conversion{}, ErrNotFound
}

// List returns conversions newest first. limit is clamped by ClampLimit.
func (r *MemoryRepo) List(ctx context.Context, limit, offset int) ([]Conversion, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if offset < 0 {
		offset = 0
	}
	limit = ClampLimit(limit)

	r.mu.RLock()
	convs := make([]Conversion, len(r.data))
	copy(convs, r.data)
	r.mu.RUnlock()

	if len(convs) == 0 || offset >= len(convs) {
		return []Conversion{}, nil
	}

	sort.SliceStable(convs, func(i, j int) bool {
		return convs[i].CreatedAt.After(convs[j].CreatedAt)
	})

	end := min(offset+limit, len(convs))

	return convs[offset:end], nil
}

var _ Repo = (*MemoryRepo)(nil)
