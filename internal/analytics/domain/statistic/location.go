package statistic

import (
	"fmt"
	"sort"
	"time"

	readings "co2-dashboard/internal/readings/domain"
)

// LocationMode selects which readings feed a location ranking and how they are summarized.
type LocationMode string

const (
	// LocationCurrent averages readings inside the trailing window.
	LocationCurrent LocationMode = "current"
	// LocationAverage averages readings of the reference day.
	LocationAverage LocationMode = "avg"
	// LocationPeak takes the maximum of the reference month.
	LocationPeak LocationMode = "peak"
)

const (
	// DefaultCurrentWindow is the trailing span of the current mode.
	DefaultCurrentWindow = time.Hour
	// DefaultTopLocations is how many clusters survive ranking.
	DefaultTopLocations = 5
)

// ParseLocationMode validates a mode, defaulting to current.
func ParseLocationMode(value string) (LocationMode, error) {
	switch LocationMode(value) {
	case "":
		return LocationCurrent, nil
	case LocationCurrent, LocationAverage, LocationPeak:
		return LocationMode(value), nil
	default:
		return "", fmt.Errorf("%w: location mode %q", ErrInvalidMode, value)
	}
}

// LocationCluster is every selected reading sharing one exact coordinate pair.
type LocationCluster struct {
	Coordinate readings.Coordinate
	Values     []float64
	Value      float64
}

// LocationRanker groups readings by literal coordinates; no proximity merging is done.
type LocationRanker struct {
	Calendar      Calendar
	CurrentWindow time.Duration
	TopN          int
}

// NewLocationRanker constructs a ranker, falling back to the defaults for non-positive values.
func NewLocationRanker(cal Calendar, window time.Duration, topN int) LocationRanker {
	if window <= 0 {
		window = DefaultCurrentWindow
	}
	if topN <= 0 {
		topN = DefaultTopLocations
	}
	return LocationRanker{Calendar: cal, CurrentWindow: window, TopN: topN}
}

// Rank selects, groups and summarizes samples, returning the top clusters by value.
// Equal values keep the order in which their coordinates first appeared.
func (r LocationRanker) Rank(samples []Sample, mode LocationMode, ref time.Time) ([]LocationCluster, error) {
	if ref.IsZero() {
		return nil, ErrInvalidReference
	}
	window := r.CurrentWindow
	if window <= 0 {
		window = DefaultCurrentWindow
	}
	cutoff := ref.Add(-window)

	var selected func(at time.Time) bool
	switch mode {
	case LocationCurrent:
		selected = func(at time.Time) bool { return at.After(cutoff) }
	case LocationAverage:
		selected = func(at time.Time) bool { return r.Calendar.SameDay(at, ref) }
	case LocationPeak:
		selected = func(at time.Time) bool { return r.Calendar.SameMonth(at, ref) }
	default:
		return nil, fmt.Errorf("%w: location mode %q", ErrInvalidMode, mode)
	}

	index := make(map[readings.Coordinate]int)
	clusters := make([]LocationCluster, 0)
	for _, s := range samples {
		coord, ok := s.Reading.Coordinate()
		if !ok || !selected(s.At) {
			continue
		}
		i, ok := index[coord]
		if !ok {
			i = len(clusters)
			index[coord] = i
			clusters = append(clusters, LocationCluster{Coordinate: coord})
		}
		clusters[i].Values = append(clusters[i].Values, s.CO2)
	}

	for i := range clusters {
		if mode == LocationPeak {
			// Clusters are only created with at least one value.
			clusters[i].Value, _ = Max(clusters[i].Values)
			continue
		}
		clusters[i].Value = Mean(clusters[i].Values)
	}

	sort.SliceStable(clusters, func(i, j int) bool {
		return clusters[i].Value > clusters[j].Value
	})
	topN := r.TopN
	if topN <= 0 {
		topN = DefaultTopLocations
	}
	if len(clusters) > topN {
		clusters = clusters[:topN]
	}
	return clusters, nil
}
