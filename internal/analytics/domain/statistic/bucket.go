package statistic

import (
	"time"

	readings "co2-dashboard/internal/readings/domain"
)

// Granularity selects the calendar key readings are grouped under.
type Granularity string

const (
	// GranularityHourOfDay groups the reference day by hour, 24 seeded labels.
	GranularityHourOfDay Granularity = "hour_of_day"
	// GranularityWeekday groups the reference week by weekday, 7 seeded labels.
	GranularityWeekday Granularity = "weekday"
	// GranularityDayOfMonth groups the reference month by day, one seeded label per day.
	GranularityDayOfMonth Granularity = "day_of_month"
	// GranularityDay groups every reading by calendar date; labels appear as data does.
	GranularityDay Granularity = "day"
	// GranularityMonth groups every reading by calendar month; labels appear as data does.
	GranularityMonth Granularity = "month"
)

// IsValid reports whether the granularity is supported.
func (g Granularity) IsValid() bool {
	switch g {
	case GranularityHourOfDay, GranularityWeekday, GranularityDayOfMonth, GranularityDay, GranularityMonth:
		return true
	default:
		return false
	}
}

// Seeded reports whether every label of the period exists before any data is added.
func (g Granularity) Seeded() bool {
	switch g {
	case GranularityHourOfDay, GranularityWeekday, GranularityDayOfMonth:
		return true
	default:
		return false
	}
}

var weekdayLabels = [7]string{"Sun", "Mon", "Tues", "Wed", "Thu", "Fri", "Sat"}

// Bucket is one calendar label with the values that fell into it.
type Bucket struct {
	Label  string
	Values []float64
}

// Mean averages the bucket, 0 when empty.
func (b Bucket) Mean() float64 {
	return Mean(b.Values)
}

// BucketSet is an insertion-ordered mapping from label to bucket.
type BucketSet struct {
	buckets []Bucket
	index   map[string]int
}

// NewBucketSet constructs a set seeded with the given labels.
func NewBucketSet(labels ...string) *BucketSet {
	s := &BucketSet{index: make(map[string]int, len(labels))}
	for _, label := range labels {
		s.Seed(label)
	}
	return s
}

// Seed makes sure a label exists, keeping its position if it already does.
func (s *BucketSet) Seed(label string) {
	if _, ok := s.index[label]; ok {
		return
	}
	s.index[label] = len(s.buckets)
	s.buckets = append(s.buckets, Bucket{Label: label, Values: []float64{}})
}

// Add appends a value, creating the label at the end when it is new.
func (s *BucketSet) Add(label string, value float64) {
	s.Seed(label)
	i := s.index[label]
	s.buckets[i].Values = append(s.buckets[i].Values, value)
}

// AddExisting appends a value only to a label that is already present.
func (s *BucketSet) AddExisting(label string, value float64) bool {
	i, ok := s.index[label]
	if !ok {
		return false
	}
	s.buckets[i].Values = append(s.buckets[i].Values, value)
	return true
}

// Get returns the bucket for a label.
func (s *BucketSet) Get(label string) (Bucket, bool) {
	i, ok := s.index[label]
	if !ok {
		return Bucket{}, false
	}
	return s.buckets[i], true
}

// Len returns the number of labels.
func (s *BucketSet) Len() int { return len(s.buckets) }

// Buckets returns the buckets in label order.
func (s *BucketSet) Buckets() []Bucket {
	out := make([]Bucket, len(s.buckets))
	copy(out, s.buckets)
	return out
}

// Labels returns the labels in order.
func (s *BucketSet) Labels() []string {
	out := make([]string, 0, len(s.buckets))
	for _, b := range s.buckets {
		out = append(out, b.Label)
	}
	return out
}

// Means returns the mean of every bucket in label order.
func (s *BucketSet) Means() []float64 {
	out := make([]float64, 0, len(s.buckets))
	for _, b := range s.buckets {
		out = append(out, b.Mean())
	}
	return out
}

// HourLabel renders an hour of day as "12 AM" .. "11 PM".
func HourLabel(hour int) string {
	return time.Date(2000, time.January, 1, hour, 0, 0, 0, time.UTC).Format("3 PM")
}

// WeekdayLabel renders a weekday with its short dashboard label.
func WeekdayLabel(day time.Weekday) string {
	return weekdayLabels[day]
}

// DayOfMonthLabel renders a date as "Jan 2".
func DayOfMonthLabel(t time.Time) string {
	return t.Format("Jan 2")
}

// Labels returns the seeded labels of a granularity around the reference instant.
// Lazy granularities have none.
func (c Calendar) Labels(g Granularity, ref time.Time) ([]string, error) {
	if !g.IsValid() {
		return nil, ErrInvalidGranularity
	}
	if !g.Seeded() {
		return nil, nil
	}
	if ref.IsZero() {
		return nil, ErrInvalidReference
	}
	switch g {
	case GranularityHourOfDay:
		labels := make([]string, 0, 24)
		for hour := 0; hour < 24; hour++ {
			labels = append(labels, HourLabel(hour))
		}
		return labels, nil
	case GranularityWeekday:
		labels := make([]string, 0, 7)
		for i := 0; i < 7; i++ {
			labels = append(labels, WeekdayLabel(time.Weekday((int(c.FirstDayOfWeek)+i)%7)))
		}
		return labels, nil
	default:
		start := c.StartOfMonth(ref)
		days := c.DaysInMonth(ref)
		labels := make([]string, 0, days)
		for i := 0; i < days; i++ {
			labels = append(labels, DayOfMonthLabel(start.AddDate(0, 0, i)))
		}
		return labels, nil
	}
}

// Group buckets samples under a granularity relative to the reference instant.
func (c Calendar) Group(samples []Sample, g Granularity, ref time.Time) (*BucketSet, error) {
	labels, err := c.Labels(g, ref)
	if err != nil {
		return nil, err
	}
	set := NewBucketSet(labels...)
	for _, s := range samples {
		at := c.In(s.At)
		switch g {
		case GranularityHourOfDay:
			if c.SameDay(at, ref) {
				set.AddExisting(HourLabel(at.Hour()), s.CO2)
			}
		case GranularityWeekday:
			if c.SameWeek(at, ref) {
				set.AddExisting(WeekdayLabel(at.Weekday()), s.CO2)
			}
		case GranularityDayOfMonth:
			if c.SameMonth(at, ref) {
				set.AddExisting(DayOfMonthLabel(at), s.CO2)
			}
		case GranularityDay:
			set.Add(at.Format(DateLayout), s.CO2)
		case GranularityMonth:
			set.Add(at.Format(MonthLayout), s.CO2)
		}
	}
	return set, nil
}

// Bucket parses and groups raw readings; unparseable timestamps are dropped.
func (c Calendar) Bucket(rs []readings.Reading, g Granularity, ref time.Time) (*BucketSet, error) {
	return c.Group(c.Samples(rs), g, ref)
}
