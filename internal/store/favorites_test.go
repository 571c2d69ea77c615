package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/i474232898/weather-lookup/internal/weather"
	"github.com/i474232898/weather-lookup/pkg/logger"
)

func location(name string, lat, lon float64) weather.Location {
	return weather.Location{
		Latitude:  lat,
		Longitude: lon,
		Name:      name,
		Address:   weather.Address{State: "S", Country: "C"},
	}
}

// flakyRepository fails Save while failing is set.
type flakyRepository struct {
	*MemoryRepository
	mu      sync.Mutex
	failing bool
}

func (r *flakyRepository) setFailing(v bool) {
	r.mu.Lock()
	r.failing = v
	r.mu.Unlock()
}

func (r *flakyRepository) Save(ctx context.Context, favorites []weather.Location) error {
	r.mu.Lock()
	failing := r.failing
	r.mu.Unlock()
	if failing {
		return errors.New("disk full")
	}
	return r.MemoryRepository.Save(ctx, favorites)
}

func newStore(t *testing.T, repo Repository) *FavoriteStore {
	t.Helper()
	s, err := NewFavoriteStore(context.Background(), repo, logger.Discard())
	require.NoError(t, err)
	return s
}

func keys(locs []weather.Location) []string {
	out := make([]string, 0, len(locs))
	for _, l := range locs {
		out = append(out, l.Key())
	}
	return out
}

func TestInsertIsIdempotent(t *testing.T) {
	repo := NewMemoryRepository()
	s := newStore(t, repo)
	ctx := context.Background()

	philly := location("Philadelphia", 39.95, -75.16)
	require.NoError(t, s.Insert(ctx, philly))
	require.NoError(t, s.Insert(ctx, philly))

	list := s.List()
	require.Len(t, list, 1)
	require.Equal(t, "39.95_-75.16", list[0].Key())
	require.Equal(t, 1, repo.Saves(), "duplicate insert must not commit")

	persisted, err := repo.Load(ctx)
	require.NoError(t, err)
	require.Len(t, persisted, 1)
}

func TestListSortedByLatitudeThenLongitude(t *testing.T) {
	s := newStore(t, NewMemoryRepository())
	ctx := context.Background()

	require.NoError(t, s.Insert(ctx, location("North", 60, 10)))
	require.NoError(t, s.Insert(ctx, location("South", -33.9, 18.4)))
	require.NoError(t, s.Insert(ctx, location("East", 10, 20)))
	require.NoError(t, s.Insert(ctx, location("West", 10, -20)))

	require.Equal(t, []string{"-33.9_18.4", "10_-20", "10_20", "60_10"}, keys(s.List()))
}

func TestLoadDedupesAndSorts(t *testing.T) {
	repo := NewMemoryRepository(
		location("B", 5, 5),
		location("A", 1, 1),
		location("B again", 5, 5),
	)
	s := newStore(t, repo)
	require.Equal(t, []string{"1_1", "5_5"}, keys(s.List()))
}

func TestRemove(t *testing.T) {
	repo := NewMemoryRepository()
	s := newStore(t, repo)
	ctx := context.Background()

	a := location("A", 1, 1)
	b := location("B", 2, 2)
	require.NoError(t, s.Insert(ctx, a))
	require.NoError(t, s.Insert(ctx, b))

	require.NoError(t, s.Remove(ctx, a))
	require.NotContains(t, keys(s.List()), a.Key())

	saves := repo.Saves()
	require.NoError(t, s.Remove(ctx, location("ghost", 9, 9)))
	require.Equal(t, saves, repo.Saves(), "removing an unknown key is a no-op")
	require.Equal(t, []string{b.Key()}, keys(s.List()))
}

func TestRemoveMatchesByKeyOnly(t *testing.T) {
	s := newStore(t, NewMemoryRepository())
	ctx := context.Background()

	require.NoError(t, s.Insert(ctx, location("Original name", 3, 4)))
	require.NoError(t, s.Remove(ctx, location("Different name", 3, 4)))
	require.Empty(t, s.List())
}

func TestUpdateSnapshot(t *testing.T) {
	repo := NewMemoryRepository()
	s := newStore(t, repo)
	ctx := context.Background()

	a := location("A", 1, 1)
	require.NoError(t, s.Insert(ctx, a))
	require.NoError(t, s.UpdateSnapshot(ctx, a.Key(), weather.Snapshot{TemperatureF: 71.5, PrecipitationProbability: 30, PrecipitationMM: 0.3}))

	got, ok := s.Get(a.Key())
	require.True(t, ok)
	require.Equal(t, 71.5, *got.CurrentTemperature)
	require.Equal(t, 30, *got.CurrentPrecipitationProbability)
	require.Equal(t, 0.3, *got.CurrentPrecipitationAmount)

	persisted, err := repo.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, 71.5, *persisted[0].CurrentTemperature)
}

func TestUpdateSnapshotUnknownKey(t *testing.T) {
	s := newStore(t, NewMemoryRepository())

	err := s.UpdateSnapshot(context.Background(), "1_1", weather.Snapshot{})
	require.ErrorIs(t, err, ErrNotFound)
	require.ErrorIs(t, err, weather.ErrNotFound)
	require.Empty(t, s.List())
}

func TestClear(t *testing.T) {
	repo := NewMemoryRepository()
	s := newStore(t, repo)
	ctx := context.Background()

	require.NoError(t, s.Insert(ctx, location("A", 1, 1)))
	require.NoError(t, s.Insert(ctx, location("B", 2, 2)))
	require.NoError(t, s.Clear(ctx))

	require.Empty(t, s.List())
	persisted, err := repo.Load(ctx)
	require.NoError(t, err)
	require.Empty(t, persisted)
}

func TestCommitFailureKeepsMemoryStateAndFlushes(t *testing.T) {
	repo := &flakyRepository{MemoryRepository: NewMemoryRepository()}
	s := newStore(t, repo)
	ctx := context.Background()

	repo.setFailing(true)
	a := location("A", 1, 1)
	err := s.Insert(ctx, a)
	require.ErrorIs(t, err, ErrCommit)
	require.True(t, s.Dirty())

	// The presentation keeps showing the in-memory list.
	require.Equal(t, []string{a.Key()}, keys(s.List()))
	persisted, _ := repo.Load(ctx)
	require.Empty(t, persisted)

	require.ErrorIs(t, s.Flush(ctx), ErrCommit)

	repo.setFailing(false)
	require.NoError(t, s.Flush(ctx))
	require.False(t, s.Dirty())

	persisted, _ = repo.Load(ctx)
	require.Equal(t, []string{a.Key()}, keys(persisted))

	saves := repo.Saves()
	require.NoError(t, s.Flush(ctx))
	require.Equal(t, saves, repo.Saves(), "flush is a no-op when clean")
}

func TestSubscribe(t *testing.T) {
	s := newStore(t, NewMemoryRepository())
	ctx := context.Background()

	var events []Event
	cancel := s.Subscribe(func(ev Event) {
		events = append(events, ev)
	})

	a := location("A", 1, 1)
	require.NoError(t, s.Insert(ctx, a))
	require.NoError(t, s.Insert(ctx, a))
	require.NoError(t, s.UpdateSnapshot(ctx, a.Key(), weather.Snapshot{TemperatureF: 50}))
	require.NoError(t, s.Remove(ctx, a))
	require.NoError(t, s.Clear(ctx))

	require.Len(t, events, 4)
	require.Equal(t, EventInserted, events[0].Kind)
	require.Equal(t, EventUpdated, events[1].Kind)
	require.Equal(t, 50.0, *events[1].Location.CurrentTemperature)
	require.Equal(t, EventRemoved, events[2].Kind)
	require.Equal(t, a.Key(), events[2].Location.Key())
	require.Equal(t, EventCleared, events[3].Kind)

	cancel()
	require.NoError(t, s.Insert(ctx, a))
	require.Len(t, events, 4)
}

func TestConcurrentInsertsKeepKeysUnique(t *testing.T) {
	s := newStore(t, NewMemoryRepository())
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = s.Insert(ctx, location("dup", float64(i%5), 0))
		}(i)
	}
	wg.Wait()

	require.Len(t, s.List(), 5)
}

func TestGetAndListReturnIsolatedCopies(t *testing.T) {
	s := newStore(t, NewMemoryRepository())
	ctx := context.Background()

	a := location("A", 1, 1)
	a.ApplySnapshot(weather.Snapshot{TemperatureF: 40, PrecipitationProbability: 10, PrecipitationMM: 0.5})
	require.NoError(t, s.Insert(ctx, a))

	// The caller's pointers are not retained.
	*a.CurrentTemperature = -100

	got, ok := s.Get(a.Key())
	require.True(t, ok)
	require.Equal(t, 40.0, *got.CurrentTemperature)

	*got.CurrentTemperature = 99
	*got.CurrentPrecipitationProbability = 99
	listed := s.List()
	*listed[0].CurrentPrecipitationAmount = 99

	again, _ := s.Get(a.Key())
	require.Equal(t, 40.0, *again.CurrentTemperature)
	require.Equal(t, 10, *again.CurrentPrecipitationProbability)
	require.Equal(t, 0.5, *again.CurrentPrecipitationAmount)
}

// commitOrderRepository records the key each commit adds, in commit order.
type commitOrderRepository struct {
	*MemoryRepository
	mu    sync.Mutex
	seen  map[string]bool
	order []string
}

func (r *commitOrderRepository) Save(ctx context.Context, favorites []weather.Location) error {
	r.mu.Lock()
	for _, loc := range favorites {
		if !r.seen[loc.Key()] {
			r.seen[loc.Key()] = true
			r.order = append(r.order, loc.Key())
		}
	}
	r.mu.Unlock()
	return r.MemoryRepository.Save(ctx, favorites)
}

func TestEventsDeliveredInCommitOrder(t *testing.T) {
	repo := &commitOrderRepository{MemoryRepository: NewMemoryRepository(), seen: map[string]bool{}}
	s := newStore(t, repo)
	ctx := context.Background()

	var mu sync.Mutex
	var delivered []string
	s.Subscribe(func(ev Event) {
		// Reading the store from a subscriber must not block writers forever.
		_ = s.List()
		mu.Lock()
		delivered = append(delivered, ev.Location.Key())
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if err := s.Insert(ctx, location(fmt.Sprintf("L%d", i), float64(i), 0)); err != nil {
				t.Error(err)
			}
		}(i)
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, delivered, 100)
	require.Equal(t, repo.order, delivered)
}
