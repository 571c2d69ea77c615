package weather

import "time"

// DefaultForecastHours is the length of the forecast window shown for a location.
const DefaultForecastHours = 12

// rainProbabilityThreshold and coldTemperatureF drive Classify.
const (
	rainProbabilityThreshold = 40
	coldTemperatureF         = 50.0
)

// CurrentHour truncates now to the start of its hour in UTC.
func CurrentHour(now time.Time) time.Time {
	return now.UTC().Truncate(time.Hour)
}

// FindCurrentHourIndex returns the index of the first sample at or after the
// current hour. It reports false when every sample is in the past.
func FindCurrentHourIndex(series Series, now time.Time) (int, bool) {
	hour := CurrentHour(now)
	for i, ts := range series.Times {
		if !ts.Before(hour) {
			return i, true
		}
	}
	return 0, false
}

// CurrentConditions returns the sample for the current hour.
func CurrentConditions(series Series, now time.Time) (Sample, bool) {
	idx, ok := FindCurrentHourIndex(series, now)
	if !ok || idx >= series.Len() {
		return Sample{}, false
	}
	return series.At(idx), true
}

// ForecastWindow returns up to hours samples starting at the current hour.
// The result is clipped to the available data and is empty when the series
// cannot be aligned.
func ForecastWindow(series Series, now time.Time, hours int) []Sample {
	out := []Sample{}
	if hours <= 0 {
		return out
	}
	start, ok := FindCurrentHourIndex(series, now)
	if !ok {
		return out
	}
	end := start + hours
	if n := series.Len(); end > n {
		end = n
	}
	for i := start; i < end; i++ {
		out = append(out, series.At(i))
	}
	return out
}

// Classify maps a sample to a coarse condition.
func Classify(s Sample) Condition {
	switch {
	case s.PrecipitationProbability >= rainProbabilityThreshold:
		return ConditionRain
	case s.TemperatureF < coldTemperatureF:
		return ConditionCold
	default:
		return ConditionClear
	}
}
