package providers

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/sony/gobreaker"

	"github.com/i474232898/weather-lookup/internal/weather"
)

const (
	defaultOpenMeteoURL = "https://api.open-meteo.com/v1/forecast"

	// minForecastDays guarantees 12 forward hours regardless of the current hour.
	minForecastDays = 2

	hourlyVariables = "temperature_2m,precipitation_probability,precipitation"
)

// OpenMeteoProvider implements weather.ForecastSource for Open-Meteo.
type OpenMeteoProvider struct {
	name    string
	baseURL string
	days    int
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

// NewOpenMeteoProvider builds the forecast client. An empty baseURL selects
// the public endpoint; days below 2 are raised to 2.
func NewOpenMeteoProvider(client *http.Client, baseURL, userAgent string, days int) *OpenMeteoProvider {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = defaultOpenMeteoURL
	}
	if days < minForecastDays {
		days = minForecastDays
	}

	return &OpenMeteoProvider{
		name:    "openmeteo",
		baseURL: baseURL,
		days:    days,
		httpCfg: HTTPClientConfig{
			Client:    client,
			UserAgent: userAgent,
		},
		circuit: newBreaker("openmeteo"),
	}
}

// Forecast fetches the hourly temperature (°F), precipitation probability (%)
// and precipitation amount (mm) for loc.
func (p *OpenMeteoProvider) Forecast(ctx context.Context, loc weather.Location) (weather.Series, error) {
	values := url.Values{}
	values.Set("latitude", strconv.FormatFloat(loc.Latitude, 'f', -1, 64))
	values.Set("longitude", strconv.FormatFloat(loc.Longitude, 'f', -1, 64))
	values.Set("hourly", hourlyVariables)
	values.Set("temperature_unit", "fahrenheit")
	values.Set("forecast_days", strconv.Itoa(p.days))

	body, err := fetch(ctx, p.httpCfg, p.circuit, fmt.Sprintf("%s?%s", p.baseURL, values.Encode()))
	if err != nil {
		return weather.Series{}, fmt.Errorf("%s: %w", p.name, err)
	}

	series, err := weather.DecodeSeries(body)
	if err != nil {
		return weather.Series{}, fmt.Errorf("%s: %w", p.name, err)
	}
	return series, nil
}

var _ weather.ForecastSource = (*OpenMeteoProvider)(nil)
