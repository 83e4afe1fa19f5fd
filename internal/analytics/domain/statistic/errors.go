package statistic

import "errors"

var (
	// ErrEmptySeries is returned when a maximum is requested over no values.
	ErrEmptySeries = errors.New("statistic: empty series")
	// ErrInvalidGranularity is returned when granularity is unsupported.
	ErrInvalidGranularity = errors.New("statistic: invalid granularity")
	// ErrInvalidMode is returned when a ranking or series mode is unsupported.
	ErrInvalidMode = errors.New("statistic: invalid mode")
	// ErrInvalidYears is returned when a trend span is not a positive number of years.
	ErrInvalidYears = errors.New("statistic: invalid years")
	// ErrInvalidReference is returned when the reference instant is zero.
	ErrInvalidReference = errors.New("statistic: invalid reference instant")
)
