package statistic

import (
	"fmt"
	"sort"
	"time"
)

// TrendPoint is the mean co2 of one calendar month.
type TrendPoint struct {
	Month string
	Mean  float64
}

// MonthlyTrend averages readings per "YYYY-MM" over the span of years ending at the
// reference year. Months without readings are left out rather than reported as zero,
// unlike the seeded hour, weekday and day-of-month buckets.
func (c Calendar) MonthlyTrend(samples []Sample, years int, ref time.Time) ([]TrendPoint, error) {
	if years <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidYears, years)
	}
	if ref.IsZero() {
		return nil, ErrInvalidReference
	}
	endYear := c.In(ref).Year()
	startYear := endYear - years + 1

	inSpan := make([]Sample, 0, len(samples))
	for _, s := range samples {
		year := c.In(s.At).Year()
		if year >= startYear && year <= endYear {
			inSpan = append(inSpan, s)
		}
	}

	set, err := c.Group(inSpan, GranularityMonth, ref)
	if err != nil {
		return nil, err
	}
	points := make([]TrendPoint, 0, set.Len())
	for _, b := range set.Buckets() {
		points = append(points, TrendPoint{Month: b.Label, Mean: b.Mean()})
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Month < points[j].Month })
	return points, nil
}
