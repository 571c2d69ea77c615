package weather

import "errors"

var (
	// ErrInvalidQuery is returned for empty or unencodable search input.
	ErrInvalidQuery = errors.New("invalid query")
	// ErrNetwork covers transport failures, timeouts and unusable upstream statuses.
	ErrNetwork = errors.New("network error")
	// ErrDecode is returned when an upstream payload does not match the expected schema.
	ErrDecode = errors.New("decode error")
	// ErrMalformedLocation is returned when a coordinate cannot be parsed as a finite number.
	ErrMalformedLocation = errors.New("malformed location")
	// ErrNotFound is returned when a favorite lookup misses.
	ErrNotFound = errors.New("not found")
)
