package statistic

import "sort"

const (
	// DefaultSpikeThreshold is the ppm jump between consecutive readings that counts as a spike.
	DefaultSpikeThreshold = 50.0
	// DefaultTopSpikes is how many spikes are ranked.
	DefaultTopSpikes = 5
)

// SpikeEvent is a jump between two chronologically adjacent readings.
type SpikeEvent struct {
	From      Sample
	To        Sample
	Magnitude float64
}

// SpikeReport holds every spike in chronological order plus the ranked top spikes.
type SpikeReport struct {
	Events   []SpikeEvent
	Top      []SpikeEvent
	Critical *SpikeEvent
}

// SpikeDetector compares each reading with its immediate predecessor only. A slow
// rise made of small steps never trips it, however large the cumulative change.
type SpikeDetector struct {
	Threshold float64
	TopN      int
}

// NewSpikeDetector constructs a detector, falling back to the defaults for non-positive values.
func NewSpikeDetector(threshold float64, topN int) SpikeDetector {
	if threshold <= 0 {
		threshold = DefaultSpikeThreshold
	}
	if topN <= 0 {
		topN = DefaultTopSpikes
	}
	return SpikeDetector{Threshold: threshold, TopN: topN}
}

// Detect walks the samples in chronological order and ranks the spikes found.
// Ranking is magnitude descending, then earlier From, then earlier To.
func (d SpikeDetector) Detect(samples []Sample) SpikeReport {
	ordered := make([]Sample, len(samples))
	copy(ordered, samples)
	SortChronological(ordered)

	report := SpikeReport{Events: []SpikeEvent{}, Top: []SpikeEvent{}}
	for i := 1; i < len(ordered); i++ {
		prev, cur := ordered[i-1], ordered[i]
		delta := cur.CO2 - prev.CO2
		if delta > d.Threshold {
			report.Events = append(report.Events, SpikeEvent{From: prev, To: cur, Magnitude: delta})
		}
	}
	if len(report.Events) == 0 {
		return report
	}

	ranked := make([]SpikeEvent, len(report.Events))
	copy(ranked, report.Events)
	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.Magnitude != b.Magnitude {
			return a.Magnitude > b.Magnitude
		}
		if !a.From.At.Equal(b.From.At) {
			return a.From.At.Before(b.From.At)
		}
		return a.To.At.Before(b.To.At)
	})
	topN := d.TopN
	if topN <= 0 {
		topN = DefaultTopSpikes
	}
	if len(ranked) > topN {
		ranked = ranked[:topN]
	}
	report.Top = ranked
	critical := ranked[0]
	report.Critical = &critical
	return report
}
