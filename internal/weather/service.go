package weather

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// Service orchestrates geocoding, forecast lookups and the favorites store.
type Service struct {
	geocoder  Geocoder
	forecasts ForecastSource
	favorites FavoriteStore
	logger    *slog.Logger

	hours int
	now   func() time.Time
}

// Option customizes a Service.
type Option func(*Service)

// WithForecastHours sets the forecast window length (default 12).
func WithForecastHours(hours int) Option {
	return func(s *Service) {
		if hours > 0 {
			s.hours = hours
		}
	}
}

// WithClock overrides the wall clock used for alignment.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService creates a new Service.
func NewService(geocoder Geocoder, forecasts ForecastSource, favorites FavoriteStore, logger *slog.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		geocoder:  geocoder,
		forecasts: forecasts,
		favorites: favorites,
		logger:    logger,
		hours:     DefaultForecastHours,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Search geocodes a free-text query. A nil location with a nil error means
// the geocoder found no match.
func (s *Service) Search(ctx context.Context, query string) (*Location, error) {
	if s.geocoder == nil {
		return nil, errors.New("no geocoder configured")
	}
	loc, err := s.geocoder.Geocode(ctx, query)
	if err != nil {
		s.logger.Warn("geocode failed", "query", query, "error", err)
		return nil, err
	}
	if loc == nil {
		s.logger.Debug("geocode returned no match", "query", query)
		return nil, nil
	}
	s.logger.Debug("geocode matched", "query", query, "key", loc.Key())
	return loc, nil
}

// Forecast fetches the hourly series for loc and aligns it to the current hour.
func (s *Service) Forecast(ctx context.Context, loc Location) (Report, error) {
	return s.forecast(ctx, loc, s.hours)
}

// ForecastHours is Forecast with an explicit window length.
func (s *Service) ForecastHours(ctx context.Context, loc Location, hours int) (Report, error) {
	if hours <= 0 {
		hours = s.hours
	}
	return s.forecast(ctx, loc, hours)
}

func (s *Service) forecast(ctx context.Context, loc Location, hours int) (Report, error) {
	if s.forecasts == nil {
		return Report{}, errors.New("no forecast source configured")
	}
	series, err := s.forecasts.Forecast(ctx, loc)
	if err != nil {
		s.logger.Warn("forecast fetch failed", "key", loc.Key(), "error", err)
		return Report{}, err
	}

	// The series is not retained: each caller aligns and renders its own copy.
	return BuildReport(loc, series, s.now(), hours), nil
}

// BuildReport aligns series to now and assembles the current conditions
// and forecast window.
func BuildReport(loc Location, series Series, now time.Time, hours int) Report {
	report := Report{
		Location:  loc,
		Hours:     ForecastWindow(series, now, hours),
		Condition: ConditionUnknown,
		FetchedAt: now.UTC(),
	}
	if current, ok := CurrentConditions(series, now); ok {
		report.Current = &current
		report.Condition = Classify(current)
	}
	return report
}

// Favorites lists stored favorites.
func (s *Service) Favorites() []Location {
	return s.favorites.List()
}

// Favorite returns a single stored favorite.
func (s *Service) Favorite(key string) (Location, error) {
	loc, ok := s.favorites.Get(key)
	if !ok {
		return Location{}, fmt.Errorf("%w: favorite %s", ErrNotFound, key)
	}
	return loc, nil
}

// AddFavorite stores loc. Adding an existing favorite is a no-op.
func (s *Service) AddFavorite(ctx context.Context, loc Location) error {
	return s.favorites.Insert(ctx, loc)
}

// RemoveFavorite deletes the favorite with the given key; unknown keys are ignored.
func (s *Service) RemoveFavorite(ctx context.Context, key string) error {
	loc, ok := s.favorites.Get(key)
	if !ok {
		return nil
	}
	return s.favorites.Remove(ctx, loc)
}

// ClearFavorites removes every stored favorite.
func (s *Service) ClearFavorites(ctx context.Context) error {
	return s.favorites.Clear(ctx)
}

// RefreshFavorite re-fetches the forecast for a stored favorite and caches
// the current conditions on it. Commit failures are logged; the report is
// still returned.
func (s *Service) RefreshFavorite(ctx context.Context, key string) (Report, error) {
	loc, err := s.Favorite(key)
	if err != nil {
		return Report{}, err
	}

	report, err := s.Forecast(ctx, loc)
	if err != nil {
		return Report{}, err
	}
	if report.Current == nil {
		s.logger.Info("forecast could not be aligned; keeping cached snapshot", "key", key)
		return report, nil
	}

	if err := s.favorites.UpdateSnapshot(ctx, key, report.Current.Snapshot()); err != nil {
		s.logger.Error("failed to cache favorite snapshot", "key", key, "error", err)
	}
	if updated, ok := s.favorites.Get(key); ok {
		report.Location = updated
	} else {
		report.Location.ApplySnapshot(report.Current.Snapshot())
	}
	return report, nil
}
