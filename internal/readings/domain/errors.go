package readings

import "errors"

var (
	// ErrNotFound is returned when the collection is absent or holds no readings.
	ErrNotFound = errors.New("readings: not found")
	// ErrInvalidPath is returned when an update path cannot be applied.
	ErrInvalidPath = errors.New("readings: invalid update path")
	// ErrInvalidValue is returned when an update value does not match its path.
	ErrInvalidValue = errors.New("readings: invalid update value")
	// ErrInvalidReading is returned when a reading cannot be stored.
	ErrInvalidReading = errors.New("readings: invalid reading")
)
