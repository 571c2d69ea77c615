package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/weather-lookup/internal/store"
	"github.com/i474232898/weather-lookup/internal/weather"
	"github.com/i474232898/weather-lookup/pkg/logger"
)

var start = time.Date(2025, 4, 11, 0, 0, 0, 0, time.UTC)

type stubGeocoder struct {
	loc *weather.Location
	err error
}

func (s stubGeocoder) Geocode(_ context.Context, q string) (*weather.Location, error) {
	if q == "" {
		return nil, weather.ErrInvalidQuery
	}
	return s.loc, s.err
}

type stubForecasts struct {
	err error
}

func (s stubForecasts) Forecast(_ context.Context, _ weather.Location) (weather.Series, error) {
	if s.err != nil {
		return weather.Series{}, s.err
	}
	series := weather.Series{}
	for i := 0; i < 24; i++ {
		series.Times = append(series.Times, start.Add(time.Duration(i)*time.Hour))
		series.TemperatureF = append(series.TemperatureF, 60)
		series.PrecipitationProbability = append(series.PrecipitationProbability, 50)
		series.PrecipitationMM = append(series.PrecipitationMM, 0.5)
	}
	return series, nil
}

func philadelphia() weather.Location {
	return weather.Location{
		Latitude:  39.95,
		Longitude: -75.16,
		Name:      "Philadelphia",
		Address:   weather.Address{State: "PA", Country: "USA"},
	}
}

func newApp(t *testing.T, geocoder weather.Geocoder, forecasts weather.ForecastSource) (*fiber.App, *store.FavoriteStore) {
	t.Helper()
	app := fiber.New()

	favorites, err := store.NewFavoriteStore(context.Background(), store.NewMemoryRepository(), logger.Discard())
	require.NoError(t, err)

	svc := weather.NewService(geocoder, forecasts, favorites, logger.Discard(),
		weather.WithClock(func() time.Time { return start.Add(10 * time.Minute) }))
	RegisterRoutes(app, svc)
	return app, favorites
}

func do(t *testing.T, app *fiber.App, method, target string, body any) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestSearch(t *testing.T) {
	loc := philadelphia()
	app, _ := newApp(t, stubGeocoder{loc: &loc}, stubForecasts{})

	resp := do(t, app, http.MethodGet, "/api/v1/locations/search?q=Philadelphia", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got := decode[weather.Location](t, resp)
	require.Equal(t, loc.Key(), got.Key())

	// Missing q parameter should return 400.
	resp = do(t, app, http.MethodGet, "/api/v1/locations/search", nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSearchNoMatchAndUpstreamFailure(t *testing.T) {
	app, _ := newApp(t, stubGeocoder{}, stubForecasts{})
	resp := do(t, app, http.MethodGet, "/api/v1/locations/search?q=Atlantis", nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	app, _ = newApp(t, stubGeocoder{err: fmt.Errorf("%w: dial", weather.ErrNetwork)}, stubForecasts{})
	resp = do(t, app, http.MethodGet, "/api/v1/locations/search?q=Atlantis", nil)
	require.Equal(t, http.StatusBadGateway, resp.StatusCode)
}

func TestWeatherByCoordinates(t *testing.T) {
	app, _ := newApp(t, stubGeocoder{}, stubForecasts{})

	resp := do(t, app, http.MethodGet, "/api/v1/weather?lat=39.95&lon=-75.16&hours=6", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	report := decode[weather.Report](t, resp)
	require.Len(t, report.Hours, 6)
	require.NotNil(t, report.Current)
	require.Equal(t, weather.ConditionRain, report.Condition)

	resp = do(t, app, http.MethodGet, "/api/v1/weather?lat=39.95&lon=-75.16", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	report = decode[weather.Report](t, resp)
	require.Len(t, report.Hours, 12)
}

func TestWeatherValidation(t *testing.T) {
	app, _ := newApp(t, stubGeocoder{}, stubForecasts{})

	for _, target := range []string{
		"/api/v1/weather?lon=1",
		"/api/v1/weather?lat=abc&lon=1",
		"/api/v1/weather?lat=91&lon=1",
		"/api/v1/weather?lat=1&lon=1&hours=99",
	} {
		resp := do(t, app, http.MethodGet, target, nil)
		require.Equal(t, http.StatusBadRequest, resp.StatusCode, target)
	}
}

func TestFavoritesLifecycle(t *testing.T) {
	app, favorites := newApp(t, stubGeocoder{}, stubForecasts{})
	loc := philadelphia()

	resp := do(t, app, http.MethodPost, "/api/v1/favorites", loc)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decode[favoriteResponse](t, resp)
	require.True(t, created.Persisted)
	require.Equal(t, "Philadelphia, PA", created.Favorite.DisplayName)

	resp = do(t, app, http.MethodPost, "/api/v1/favorites", loc)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = do(t, app, http.MethodGet, "/api/v1/favorites", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	list := decode[[]weather.Location](t, resp)
	require.Len(t, list, 1)

	resp = do(t, app, http.MethodGet, "/api/v1/favorites/"+loc.Key()+"/weather", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	report := decode[weather.Report](t, resp)
	require.NotNil(t, report.Location.CurrentTemperature)
	require.Equal(t, 60.0, *report.Location.CurrentTemperature)

	stored, ok := favorites.Get(loc.Key())
	require.True(t, ok)
	require.Equal(t, 50, *stored.CurrentPrecipitationProbability)

	resp = do(t, app, http.MethodDelete, "/api/v1/favorites/"+loc.Key(), nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	require.Empty(t, favorites.List())

	// Removing again is a no-op.
	resp = do(t, app, http.MethodDelete, "/api/v1/favorites/"+loc.Key(), nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestFavoriteValidationAndMissing(t *testing.T) {
	app, _ := newApp(t, stubGeocoder{}, stubForecasts{})

	bad := philadelphia()
	bad.Address.State = ""
	resp := do(t, app, http.MethodPost, "/api/v1/favorites", bad)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = do(t, app, http.MethodGet, "/api/v1/favorites/1_2/weather", nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestClearFavorites(t *testing.T) {
	app, favorites := newApp(t, stubGeocoder{}, stubForecasts{})
	require.NoError(t, favorites.Insert(context.Background(), philadelphia()))

	resp := do(t, app, http.MethodDelete, "/api/v1/favorites", nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	require.Empty(t, favorites.List())
}

func TestFavoriteWeatherUpstreamFailure(t *testing.T) {
	app, favorites := newApp(t, stubGeocoder{}, stubForecasts{err: fmt.Errorf("%w: bad payload", weather.ErrDecode)})
	require.NoError(t, favorites.Insert(context.Background(), philadelphia()))

	resp := do(t, app, http.MethodGet, "/api/v1/favorites/"+philadelphia().Key()+"/weather", nil)
	require.Equal(t, http.StatusBadGateway, resp.StatusCode)
}
