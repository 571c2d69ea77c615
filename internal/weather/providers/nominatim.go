package providers

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/sony/gobreaker"

	"github.com/i474232898/weather-lookup/internal/weather"
)

const (
	defaultNominatimURL = "https://nominatim.openstreetmap.org/search"

	// DefaultUserAgent identifies the app to upstream services. Nominatim's
	// usage policy blocks clients without a descriptive agent.
	DefaultUserAgent = "weather-lookup/1.0 (+https://github.com/i474232898/weather-lookup)"
)

// NominatimGeocoder implements weather.Geocoder for OpenStreetMap Nominatim.
type NominatimGeocoder struct {
	name    string
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

// NewNominatimGeocoder builds the geocoding client. An empty userAgent falls
// back to DefaultUserAgent.
func NewNominatimGeocoder(client *http.Client, baseURL, userAgent string) *NominatimGeocoder {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = defaultNominatimURL
	}
	if strings.TrimSpace(userAgent) == "" {
		userAgent = DefaultUserAgent
	}

	return &NominatimGeocoder{
		name:    "nominatim",
		baseURL: baseURL,
		httpCfg: HTTPClientConfig{
			Client:    client,
			UserAgent: userAgent,
		},
		circuit: newBreaker("nominatim"),
	}
}

// Geocode searches for query and returns the first candidate, or nil when
// the search has no results.
func (g *NominatimGeocoder) Geocode(ctx context.Context, query string) (*weather.Location, error) {
	q := strings.TrimSpace(query)
	if q == "" {
		return nil, fmt.Errorf("%w: query is empty", weather.ErrInvalidQuery)
	}
	if !utf8.ValidString(q) {
		return nil, fmt.Errorf("%w: query is not valid UTF-8", weather.ErrInvalidQuery)
	}

	values := url.Values{}
	values.Set("q", q)
	values.Set("addressdetails", "1")
	values.Set("format", "json")

	body, err := fetch(ctx, g.httpCfg, g.circuit, fmt.Sprintf("%s?%s", g.baseURL, values.Encode()))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", g.name, err)
	}

	locs, err := weather.DecodeLocations(body)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", g.name, err)
	}
	if len(locs) == 0 {
		return nil, nil
	}
	return &locs[0], nil
}

var _ weather.Geocoder = (*NominatimGeocoder)(nil)
