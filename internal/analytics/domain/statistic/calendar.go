package statistic

import (
	"sort"
	"strings"
	"time"

	"github.com/relvacode/iso8601"

	readings "co2-dashboard/internal/readings/domain"
)

const (
	// TimestampLayout is the second-precision layout readings are stored with.
	TimestampLayout = "2006-01-02 15:04:05"
	// DateLayout keys a calendar day.
	DateLayout = "2006-01-02"
	// MonthLayout keys a calendar month.
	MonthLayout = "2006-01"
)

var naiveLayouts = []string{
	TimestampLayout,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	DateLayout,
}

// Calendar carries the rules every bucketing function runs under: the zone naive
// timestamps are read in and the day a week starts on.
type Calendar struct {
	Location       *time.Location
	FirstDayOfWeek time.Weekday
}

// NewCalendar constructs a calendar, defaulting to UTC.
func NewCalendar(loc *time.Location, firstDayOfWeek time.Weekday) Calendar {
	if loc == nil {
		loc = time.UTC
	}
	return Calendar{Location: loc, FirstDayOfWeek: firstDayOfWeek}
}

func (c Calendar) location() *time.Location {
	if c.Location == nil {
		return time.UTC
	}
	return c.Location
}

// In converts t to the calendar zone.
func (c Calendar) In(t time.Time) time.Time {
	return t.In(c.location())
}

// Parse reads a reading timestamp. Zone-less values are taken in the calendar zone,
// ISO-8601 values with an offset are converted into it.
func (c Calendar) Parse(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}
	loc := c.location()
	for _, layout := range naiveLayouts {
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			return t, true
		}
	}
	if t, err := iso8601.ParseString(value); err == nil {
		return t.In(loc), true
	}
	return time.Time{}, false
}

// Format renders t with the stored timestamp layout.
func (c Calendar) Format(t time.Time) string {
	return c.In(t).Format(TimestampLayout)
}

// StartOfDay truncates t to midnight in the calendar zone.
func (c Calendar) StartOfDay(t time.Time) time.Time {
	t = c.In(t)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// StartOfWeek returns midnight of the first day of t's week.
func (c Calendar) StartOfWeek(t time.Time) time.Time {
	day := c.StartOfDay(t)
	offset := (int(day.Weekday()) - int(c.FirstDayOfWeek) + 7) % 7
	return day.AddDate(0, 0, -offset)
}

// StartOfMonth returns midnight of the first day of t's month.
func (c Calendar) StartOfMonth(t time.Time) time.Time {
	t = c.In(t)
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}

// SameDay reports whether a and b share a calendar day.
func (c Calendar) SameDay(a, b time.Time) bool {
	return c.StartOfDay(a).Equal(c.StartOfDay(b))
}

// SameWeek reports whether a and b share a calendar week.
func (c Calendar) SameWeek(a, b time.Time) bool {
	return c.StartOfWeek(a).Equal(c.StartOfWeek(b))
}

// SameMonth reports whether a and b share a calendar month.
func (c Calendar) SameMonth(a, b time.Time) bool {
	return c.StartOfMonth(a).Equal(c.StartOfMonth(b))
}

// SameYear reports whether a and b share a calendar year.
func (c Calendar) SameYear(a, b time.Time) bool {
	return c.In(a).Year() == c.In(b).Year()
}

// DaysInMonth returns the number of days in t's month.
func (c Calendar) DaysInMonth(t time.Time) int {
	return c.StartOfMonth(t).AddDate(0, 1, -1).Day()
}

// MonthEarlier moves t back one calendar month, clamping the day to the end of the
// shorter month (Mar 31 becomes Feb 28 or 29).
func (c Calendar) MonthEarlier(t time.Time) time.Time {
	t = c.In(t)
	target := time.Date(t.Year(), t.Month()-1, 1, 0, 0, 0, 0, t.Location())
	day := t.Day()
	if last := c.DaysInMonth(target); day > last {
		day = last
	}
	return time.Date(target.Year(), target.Month(), day, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

// Sample is a reading with its parsed timestamp.
type Sample struct {
	readings.Reading
	At time.Time
}

// Samples parses every reading timestamp, silently dropping the unparseable ones.
// Input order is preserved.
func (c Calendar) Samples(rs []readings.Reading) []Sample {
	out := make([]Sample, 0, len(rs))
	for _, r := range rs {
		at, ok := c.Parse(r.Timestamp)
		if !ok {
			continue
		}
		out = append(out, Sample{Reading: r, At: at})
	}
	return out
}

// SortChronological orders samples by time, keeping input order for equal instants.
func SortChronological(samples []Sample) {
	sort.SliceStable(samples, func(i, j int) bool {
		return samples[i].At.Before(samples[j].At)
	})
}

// Values extracts the co2 values of samples.
func Values(samples []Sample) []float64 {
	out := make([]float64, 0, len(samples))
	for _, s := range samples {
		out = append(out, s.CO2)
	}
	return out
}
