package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/i474232898/weather-lookup/internal/weather"
)

var (
	// ErrNotFound is returned when no favorite matches an identity key.
	ErrNotFound = fmt.Errorf("favorite %w", weather.ErrNotFound)

	// ErrCommit wraps failures to write favorites to durable storage. The
	// in-memory change has already been applied when it is returned.
	ErrCommit = errors.New("commit favorites")
)

// Repository is the durable backing for the favorites list. Save replaces
// the whole stored collection.
type Repository interface {
	Load(ctx context.Context) ([]weather.Location, error)
	Save(ctx context.Context, favorites []weather.Location) error
}

// EventKind names a favorites mutation.
type EventKind string

const (
	EventInserted EventKind = "inserted"
	EventRemoved  EventKind = "removed"
	EventUpdated  EventKind = "updated"
	EventCleared  EventKind = "cleared"
)

// Event is delivered to subscribers after a mutation is applied.
type Event struct {
	Kind     EventKind
	Location weather.Location
}

// FavoriteStore keeps the favorites list in memory and commits every
// mutation to a Repository before returning. Writers are serialized.
type FavoriteStore struct {
	mu     sync.Mutex
	repo   Repository
	logger *slog.Logger
	items  []weather.Location // sorted by latitude, then longitude
	dirty  bool

	// Events are numbered under mu and delivered strictly in that order.
	seq       uint64
	delivered uint64
	turn      *sync.Cond

	subMu   sync.Mutex
	subs    map[int]func(Event)
	nextSub int
}

// NewFavoriteStore loads the persisted favorites from repo.
func NewFavoriteStore(ctx context.Context, repo Repository, logger *slog.Logger) (*FavoriteStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	loaded, err := repo.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load favorites: %w", err)
	}

	s := &FavoriteStore{
		repo:   repo,
		logger: logger,
		subs:   make(map[int]func(Event)),
		turn:   sync.NewCond(&sync.Mutex{}),
	}
	seen := make(map[string]bool, len(loaded))
	for _, loc := range loaded {
		if seen[loc.Key()] {
			logger.Warn("dropping duplicate persisted favorite", "key", loc.Key())
			continue
		}
		seen[loc.Key()] = true
		s.items = append(s.items, loc.Clone())
	}
	sortFavorites(s.items)
	return s, nil
}

// List returns the favorites ordered by latitude, then longitude.
func (s *FavoriteStore) List() []weather.Location {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneFavorites(s.items)
}

// Get returns the favorite with the given identity key.
func (s *FavoriteStore) Get(key string) (weather.Location, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexOf(key); i >= 0 {
		return s.items[i].Clone(), true
	}
	return weather.Location{}, false
}

// Insert adds loc unless a favorite with the same key exists, in which case
// it logs and does nothing.
func (s *FavoriteStore) Insert(ctx context.Context, loc weather.Location) error {
	s.mu.Lock()
	if s.indexOf(loc.Key()) >= 0 {
		s.mu.Unlock()
		s.logger.Info("location already exists in favorites", "key", loc.Key())
		return nil
	}
	s.items = append(s.items, loc.Clone())
	sortFavorites(s.items)
	err := s.commitLocked(ctx, "insert")
	s.unlockAndNotify(Event{Kind: EventInserted, Location: loc.Clone()})
	return err
}

// Remove deletes the favorite matching loc's key. Unknown keys are a no-op.
func (s *FavoriteStore) Remove(ctx context.Context, loc weather.Location) error {
	s.mu.Lock()
	i := s.indexOf(loc.Key())
	if i < 0 {
		s.mu.Unlock()
		return nil
	}
	removed := s.items[i]
	s.items = append(s.items[:i], s.items[i+1:]...)
	err := s.commitLocked(ctx, "remove")
	s.unlockAndNotify(Event{Kind: EventRemoved, Location: removed})
	return err
}

// UpdateSnapshot caches the latest conditions on the favorite with the given
// key. It returns ErrNotFound rather than creating a record.
func (s *FavoriteStore) UpdateSnapshot(ctx context.Context, key string, snap weather.Snapshot) error {
	s.mu.Lock()
	i := s.indexOf(key)
	if i < 0 {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	s.items[i].ApplySnapshot(snap)
	updated := s.items[i].Clone()
	err := s.commitLocked(ctx, "update snapshot")
	s.unlockAndNotify(Event{Kind: EventUpdated, Location: updated})
	return err
}

// Clear removes every favorite.
func (s *FavoriteStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	s.items = nil
	err := s.commitLocked(ctx, "clear")
	s.unlockAndNotify(Event{Kind: EventCleared})
	return err
}

// Flush re-commits the in-memory list if an earlier commit failed.
func (s *FavoriteStore) Flush(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.dirty {
		return nil
	}
	return s.commitLocked(ctx, "flush")
}

// Dirty reports whether the in-memory list has diverged from durable storage.
func (s *FavoriteStore) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirty
}

// Subscribe registers fn to be called after each mutation, in commit order.
// fn may read the store but must not mutate it synchronously. The returned
// function removes the subscription.
func (s *FavoriteStore) Subscribe(fn func(Event)) func() {
	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.subMu.Unlock()

	return func() {
		s.subMu.Lock()
		delete(s.subs, id)
		s.subMu.Unlock()
	}
}

// unlockAndNotify releases s.mu and delivers ev once every event committed
// before it has been delivered. Must be called with s.mu held.
func (s *FavoriteStore) unlockAndNotify(ev Event) {
	ticket := s.seq
	s.seq++
	s.mu.Unlock()

	s.turn.L.Lock()
	for s.delivered != ticket {
		s.turn.Wait()
	}
	s.turn.L.Unlock()

	s.notify(ev)

	s.turn.L.Lock()
	s.delivered++
	s.turn.Broadcast()
	s.turn.L.Unlock()
}

func (s *FavoriteStore) notify(ev Event) {
	s.subMu.Lock()
	fns := make([]func(Event), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subMu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}

// commitLocked must be called with s.mu held.
func (s *FavoriteStore) commitLocked(ctx context.Context, op string) error {
	if err := s.repo.Save(ctx, cloneFavorites(s.items)); err != nil {
		s.dirty = true
		s.logger.Error("failed to commit favorites", "op", op, "count", len(s.items), "error", err)
		return fmt.Errorf("%w: %s: %v", ErrCommit, op, err)
	}
	s.dirty = false
	return nil
}

func (s *FavoriteStore) indexOf(key string) int {
	for i, loc := range s.items {
		if loc.Key() == key {
			return i
		}
	}
	return -1
}

func sortFavorites(items []weather.Location) {
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Latitude != items[j].Latitude {
			return items[i].Latitude < items[j].Latitude
		}
		return items[i].Longitude < items[j].Longitude
	})
}

func cloneFavorites(items []weather.Location) []weather.Location {
	out := make([]weather.Location, len(items))
	for i, loc := range items {
		out[i] = loc.Clone()
	}
	return out
}

var _ weather.FavoriteStore = (*FavoriteStore)(nil)
