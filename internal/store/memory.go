package store

import (
	"context"
	"sync"

	"github.com/i474232898/weather-lookup/internal/weather"
)

// MemoryRepository is a concurrency-safe in-memory Repository. Nothing
// survives a restart; it backs tests and the "memory" store driver.
type MemoryRepository struct {
	mu        sync.RWMutex
	favorites []weather.Location
	saves     int
}

// NewMemoryRepository creates a repository seeded with the given favorites.
func NewMemoryRepository(seed ...weather.Location) *MemoryRepository {
	return &MemoryRepository{favorites: cloneFavorites(seed)}
}

// Load returns a copy of the stored favorites.
func (r *MemoryRepository) Load(_ context.Context) ([]weather.Location, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return cloneFavorites(r.favorites), nil
}

// Save replaces the stored favorites.
func (r *MemoryRepository) Save(_ context.Context, favorites []weather.Location) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.favorites = cloneFavorites(favorites)
	r.saves++
	return nil
}

// Saves returns how many commits the repository has accepted.
func (r *MemoryRepository) Saves() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.saves
}

var _ Repository = (*MemoryRepository)(nil)
