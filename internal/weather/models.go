package weather

import (
	"strconv"
	"time"
)

// Condition represents a normalized high-level weather condition.
type Condition string

const (
	ConditionUnknown Condition = "unknown"
	ConditionClear   Condition = "clear"
	ConditionCold    Condition = "cold"
	ConditionRain    Condition = "rain"
)

// Address is the structured address attached to a geocoded place.
type Address struct {
	City        *string `json:"city,omitempty" yaml:"city,omitempty"`
	County      *string `json:"county,omitempty" yaml:"county,omitempty"`
	State       string  `json:"state" yaml:"state" validate:"required"`
	Country     string  `json:"country" yaml:"country" validate:"required"`
	CountryCode string  `json:"countryCode" yaml:"countryCode"`
}

// Location represents a geocoded place. The cached snapshot fields are only
// populated on stored favorites.
type Location struct {
	Latitude    float64 `json:"latitude" yaml:"latitude"`
	Longitude   float64 `json:"longitude" yaml:"longitude"`
	Name        string  `json:"name" yaml:"name" validate:"required"`
	DisplayName string  `json:"displayName" yaml:"displayName"`
	Address     Address `json:"address" yaml:"address"`

	CurrentTemperature              *float64 `json:"currentTemperature,omitempty" yaml:"currentTemperature,omitempty"`
	CurrentPrecipitationProbability *int     `json:"currentPrecipitationProbability,omitempty" yaml:"currentPrecipitationProbability,omitempty"`
	CurrentPrecipitationAmount      *float64 `json:"currentPrecipitationAmount,omitempty" yaml:"currentPrecipitationAmount,omitempty"`
}

// Key returns the identity key "{lat}_{lon}" used for equality and
// favorite deduplication.
func (l Location) Key() string {
	return strconv.FormatFloat(l.Latitude, 'f', -1, 64) + "_" + strconv.FormatFloat(l.Longitude, 'f', -1, 64)
}

// Title returns the display name, deriving "{name}, {state}" when the
// geocoder did not supply one.
func (l Location) Title() string {
	if l.DisplayName != "" {
		return l.DisplayName
	}
	return l.Name + ", " + l.Address.State
}

// Clone returns a copy of l that shares no snapshot pointers with it.
func (l Location) Clone() Location {
	out := l
	if l.CurrentTemperature != nil {
		v := *l.CurrentTemperature
		out.CurrentTemperature = &v
	}
	if l.CurrentPrecipitationProbability != nil {
		v := *l.CurrentPrecipitationProbability
		out.CurrentPrecipitationProbability = &v
	}
	if l.CurrentPrecipitationAmount != nil {
		v := *l.CurrentPrecipitationAmount
		out.CurrentPrecipitationAmount = &v
	}
	if l.Address.City != nil {
		v := *l.Address.City
		out.Address.City = &v
	}
	if l.Address.County != nil {
		v := *l.Address.County
		out.Address.County = &v
	}
	return out
}

// ApplySnapshot copies the cached weather fields of s onto the location.
func (l *Location) ApplySnapshot(s Snapshot) {
	temp := s.TemperatureF
	prob := s.PrecipitationProbability
	amount := s.PrecipitationMM
	l.CurrentTemperature = &temp
	l.CurrentPrecipitationProbability = &prob
	l.CurrentPrecipitationAmount = &amount
}

// Snapshot is the last-known weather cached on a favorite.
type Snapshot struct {
	TemperatureF             float64
	PrecipitationProbability int
	PrecipitationMM          float64
}

// Series is a decoded hourly forecast. All four sequences share the same
// length and index i describes the same hour across them.
type Series struct {
	Times                    []time.Time       `json:"times"` // always UTC
	TemperatureF             []float64         `json:"temperatureF"`
	PrecipitationProbability []int             `json:"precipitationProbability"`
	PrecipitationMM          []float64         `json:"precipitationMm"`
	Units                    map[string]string `json:"units,omitempty"`
}

// Len returns the number of samples addressable across all sequences.
func (s Series) Len() int {
	n := len(s.Times)
	if len(s.TemperatureF) < n {
		n = len(s.TemperatureF)
	}
	if len(s.PrecipitationProbability) < n {
		n = len(s.PrecipitationProbability)
	}
	if len(s.PrecipitationMM) < n {
		n = len(s.PrecipitationMM)
	}
	return n
}

// At returns the sample at index i. The caller must check bounds with Len.
func (s Series) At(i int) Sample {
	return Sample{
		Time:                     s.Times[i],
		TemperatureF:             s.TemperatureF[i],
		PrecipitationProbability: s.PrecipitationProbability[i],
		PrecipitationMM:          s.PrecipitationMM[i],
	}
}

// Sample is a single hour of forecast data.
type Sample struct {
	Time                     time.Time `json:"time"`
	TemperatureF             float64   `json:"temperatureF"`
	PrecipitationProbability int       `json:"precipitationProbability"`
	PrecipitationMM          float64   `json:"precipitationMm"`
}

// Snapshot converts the sample into the cached favorite fields.
func (s Sample) Snapshot() Snapshot {
	return Snapshot{
		TemperatureF:             s.TemperatureF,
		PrecipitationProbability: s.PrecipitationProbability,
		PrecipitationMM:          s.PrecipitationMM,
	}
}

// Report is the aligned view of a forecast for one location.
type Report struct {
	Location  Location  `json:"location"`
	Current   *Sample   `json:"current,omitempty"`
	Hours     []Sample  `json:"hours"`
	Condition Condition `json:"condition"`
	FetchedAt time.Time `json:"fetchedAt"`
}
