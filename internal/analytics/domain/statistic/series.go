package statistic

import "fmt"

// SeriesMode selects the period a spike series chart covers.
type SeriesMode string

const (
	// SeriesDay charts the reference day hour by hour.
	SeriesDay SeriesMode = "day"
	// SeriesWeek charts the reference week day by day.
	SeriesWeek SeriesMode = "week"
	// SeriesMonth charts the reference month day by day.
	SeriesMonth SeriesMode = "month"
)

// ParseSeriesMode validates a mode, defaulting to day.
func ParseSeriesMode(value string) (SeriesMode, error) {
	switch SeriesMode(value) {
	case "":
		return SeriesDay, nil
	case SeriesDay, SeriesWeek, SeriesMonth:
		return SeriesMode(value), nil
	default:
		return "", fmt.Errorf("%w: series mode %q", ErrInvalidMode, value)
	}
}

// Granularity maps the mode onto its seeded bucket granularity.
func (m SeriesMode) Granularity() Granularity {
	switch m {
	case SeriesWeek:
		return GranularityWeekday
	case SeriesMonth:
		return GranularityDayOfMonth
	default:
		return GranularityHourOfDay
	}
}
