package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/i474232898/weather-lookup/internal/weather"
)

const favoritesSchema = `
	CREATE TABLE IF NOT EXISTS favorite_locations (
		id TEXT PRIMARY KEY,
		latitude DOUBLE PRECISION NOT NULL,
		longitude DOUBLE PRECISION NOT NULL,
		name TEXT NOT NULL,
		display_name TEXT NOT NULL,
		city TEXT,
		county TEXT,
		state TEXT NOT NULL,
		country TEXT NOT NULL,
		country_code TEXT NOT NULL DEFAULT '',
		current_temperature DOUBLE PRECISION,
		current_precipitation_probability INTEGER,
		current_precipitation DOUBLE PRECISION
	)`

const insertFavorite = `
	INSERT INTO favorite_locations (
		id, latitude, longitude, name, display_name, city, county, state, country, country_code,
		current_temperature, current_precipitation_probability, current_precipitation
	)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

// PostgresRepository persists favorites in Postgres.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// EnsureSchema creates the favorites table if it does not exist.
func (r *PostgresRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, favoritesSchema); err != nil {
		return fmt.Errorf("create favorite_locations: %w", err)
	}
	return nil
}

// Load reads every stored favorite.
func (r *PostgresRepository) Load(ctx context.Context) ([]weather.Location, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT latitude, longitude, name, display_name, city, county, state, country, country_code,
			current_temperature, current_precipitation_probability, current_precipitation
		FROM favorite_locations
		ORDER BY latitude, longitude
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []weather.Location
	for rows.Next() {
		loc, err := scanFavorite(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, loc)
	}
	return out, rows.Err()
}

// Save replaces the stored favorites inside a single transaction.
func (r *PostgresRepository) Save(ctx context.Context, favorites []weather.Location) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, `DELETE FROM favorite_locations`); err != nil {
		return err
	}

	if len(favorites) > 0 {
		batch := &pgx.Batch{}
		for _, loc := range favorites {
			batch.Queue(insertFavorite, favoriteArgs(loc)...)
		}
		results := tx.SendBatch(ctx, batch)
		for range favorites {
			if _, err := results.Exec(); err != nil {
				results.Close()
				return err
			}
		}
		if err := results.Close(); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

// favoriteArgs returns the insertFavorite parameters: the identity key
// followed by the columns in the order scanFavorite reads them.
func favoriteArgs(loc weather.Location) []any {
	return []any{
		loc.Key(), loc.Latitude, loc.Longitude, loc.Name, loc.DisplayName,
		loc.Address.City, loc.Address.County, loc.Address.State, loc.Address.Country, loc.Address.CountryCode,
		loc.CurrentTemperature, loc.CurrentPrecipitationProbability, loc.CurrentPrecipitationAmount,
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFavorite(row rowScanner) (weather.Location, error) {
	var loc weather.Location
	if err := row.Scan(
		&loc.Latitude, &loc.Longitude, &loc.Name, &loc.DisplayName,
		&loc.Address.City, &loc.Address.County, &loc.Address.State, &loc.Address.Country, &loc.Address.CountryCode,
		&loc.CurrentTemperature, &loc.CurrentPrecipitationProbability, &loc.CurrentPrecipitationAmount,
	); err != nil {
		return weather.Location{}, err
	}
	return loc, nil
}

var _ Repository = (*PostgresRepository)(nil)
