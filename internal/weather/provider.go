package weather

import (
	"context"
)

// Geocoder resolves free-text place names (e.g. Nominatim).
type Geocoder interface {
	// Geocode returns the first matching candidate, or nil when nothing matched.
	Geocode(ctx context.Context, query string) (*Location, error)
}

// ForecastSource fetches hourly forecast series (e.g. Open-Meteo).
type ForecastSource interface {
	Forecast(ctx context.Context, loc Location) (Series, error)
}

// FavoriteStore is the contract the favorites store must satisfy.
type FavoriteStore interface {
	List() []Location
	Get(key string) (Location, bool)
	Insert(ctx context.Context, loc Location) error
	Remove(ctx context.Context, loc Location) error
	UpdateSnapshot(ctx context.Context, key string, snap Snapshot) error
	Clear(ctx context.Context) error
}
