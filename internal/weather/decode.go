package weather

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// HourLayout is the timestamp format of forecast samples. Values carry no
// zone suffix and are always interpreted as UTC.
const HourLayout = "2006-01-02T15:04"

var validate = validator.New()

// Validate checks the fields a usable location must carry.
func Validate(loc Location) error {
	if err := validate.Struct(loc); err != nil {
		return err
	}
	if math.IsNaN(loc.Latitude) || math.IsInf(loc.Latitude, 0) ||
		math.IsNaN(loc.Longitude) || math.IsInf(loc.Longitude, 0) {
		return fmt.Errorf("%w: coordinates must be finite", ErrMalformedLocation)
	}
	return nil
}

type rawLocation struct {
	Lat         json.RawMessage `json:"lat"`
	Lon         json.RawMessage `json:"lon"`
	Name        string          `json:"name"`
	DisplayName string          `json:"display_name"`
	Address     *rawAddress     `json:"address"`
}

type rawAddress struct {
	City        *string `json:"city"`
	County      *string `json:"county"`
	State       string  `json:"state"`
	Country     string  `json:"country"`
	CountryCode *string `json:"country_code"`
}

// DecodeLocations decodes a geocoder search response (a JSON array of
// candidates). Coordinates may be JSON numbers or numeric strings, and a
// missing country_code becomes the empty string.
func DecodeLocations(data []byte) ([]Location, error) {
	var raws []rawLocation
	if err := json.Unmarshal(data, &raws); err != nil {
		return nil, fmt.Errorf("%w: geocoding response: %v", ErrDecode, err)
	}

	locs := make([]Location, 0, len(raws))
	for i, raw := range raws {
		loc, err := raw.toLocation()
		if err != nil {
			return nil, fmt.Errorf("candidate %d: %w", i, err)
		}
		locs = append(locs, loc)
	}
	return locs, nil
}

func (r rawLocation) toLocation() (Location, error) {
	lat, err := parseCoordinate("lat", r.Lat)
	if err != nil {
		return Location{}, err
	}
	lon, err := parseCoordinate("lon", r.Lon)
	if err != nil {
		return Location{}, err
	}
	if r.Address == nil {
		return Location{}, fmt.Errorf("%w: missing address", ErrDecode)
	}

	loc := Location{
		Latitude:    lat,
		Longitude:   lon,
		Name:        r.Name,
		DisplayName: r.DisplayName,
		Address: Address{
			City:    r.Address.City,
			County:  r.Address.County,
			State:   r.Address.State,
			Country: r.Address.Country,
		},
	}
	if r.Address.CountryCode != nil {
		loc.Address.CountryCode = *r.Address.CountryCode
	}
	if loc.DisplayName == "" {
		loc.DisplayName = loc.Title()
	}

	if err := validate.Struct(loc); err != nil {
		return Location{}, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return loc, nil
}

// parseCoordinate accepts either a JSON number or a JSON string holding a number.
func parseCoordinate(field string, raw json.RawMessage) (float64, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return 0, fmt.Errorf("%w: missing %s", ErrDecode, field)
	}

	var v float64
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0, fmt.Errorf("%w: %s: %v", ErrDecode, field, err)
		}
		parsed, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %s %q is not a number", ErrMalformedLocation, field, s)
		}
		v = parsed
	} else if err := json.Unmarshal(raw, &v); err != nil {
		return 0, fmt.Errorf("%w: %s: %v", ErrDecode, field, err)
	}

	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: %s is not finite", ErrMalformedLocation, field)
	}
	return v, nil
}

type rawForecast struct {
	HourlyUnits map[string]string `json:"hourly_units"`
	Hourly      *struct {
		Time                     []*string  `json:"time"`
		Temperature              []*float64 `json:"temperature_2m"`
		PrecipitationProbability []*int     `json:"precipitation_probability"`
		Precipitation            []*float64 `json:"precipitation"`
	} `json:"hourly"`
}

// DecodeSeries decodes an hourly forecast response into a Series. Null
// samples and sequences of unequal length are rejected.
func DecodeSeries(data []byte) (Series, error) {
	var raw rawForecast
	if err := json.Unmarshal(data, &raw); err != nil {
		return Series{}, fmt.Errorf("%w: forecast response: %v", ErrDecode, err)
	}
	if raw.Hourly == nil {
		return Series{}, fmt.Errorf("%w: missing hourly block", ErrDecode)
	}

	h := raw.Hourly
	n := len(h.Time)
	if len(h.Temperature) != n || len(h.PrecipitationProbability) != n || len(h.Precipitation) != n {
		return Series{}, fmt.Errorf("%w: hourly sequences differ in length (time=%d temperature=%d probability=%d precipitation=%d)",
			ErrDecode, n, len(h.Temperature), len(h.PrecipitationProbability), len(h.Precipitation))
	}

	series := Series{
		Times:                    make([]time.Time, n),
		TemperatureF:             make([]float64, n),
		PrecipitationProbability: make([]int, n),
		PrecipitationMM:          make([]float64, n),
		Units:                    raw.HourlyUnits,
	}
	for i := 0; i < n; i++ {
		if h.Time[i] == nil || h.Temperature[i] == nil || h.PrecipitationProbability[i] == nil || h.Precipitation[i] == nil {
			return Series{}, fmt.Errorf("%w: null sample at index %d", ErrDecode, i)
		}
		ts, err := time.ParseInLocation(HourLayout, *h.Time[i], time.UTC)
		if err != nil {
			return Series{}, fmt.Errorf("%w: time at index %d: %v", ErrDecode, i, err)
		}
		series.Times[i] = ts
		series.TemperatureF[i] = *h.Temperature[i]
		series.PrecipitationProbability[i] = *h.PrecipitationProbability[i]
		series.PrecipitationMM[i] = *h.Precipitation[i]
	}
	return series, nil
}
