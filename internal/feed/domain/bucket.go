package feed

import "math"

const (
	// FineSeconds is the width of a fine bucket.
	FineSeconds = 5
	// CoarseSeconds is the width of a coarse bucket.
	CoarseSeconds = 60

	// DefaultFineLimit keeps ten minutes of fine buckets.
	DefaultFineLimit = 120
	// DefaultCoarseLimit keeps three hours of coarse buckets.
	DefaultCoarseLimit = 180
	// MaxLimit is the largest accepted bucket or entry limit.
	MaxLimit = 2000
)

// Frame is the wire shape shared by log entries and buckets. Values carry one decimal.
type Frame struct {
	Epoch       int64   `json:"epoch"`
	Timestamp   string  `json:"timestamp"`
	Ambient     float64 `json:"ambient"`
	Filtered    float64 `json:"filtered"`
	Improvement float64 `json:"improvement"`
}

func newFrame(epoch int64, timestamp string, ambient, filtered, improvement float64) Frame {
	return Frame{
		Epoch:       epoch,
		Timestamp:   timestamp,
		Ambient:     round1(ambient),
		Filtered:    round1(filtered),
		Improvement: round1(improvement),
	}
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// Bucket accumulates consecutive entries sharing one aligned epoch.
type Bucket struct {
	Key            int64
	Epoch          int64
	Timestamp      string
	SumAmbient     float64
	SumFiltered    float64
	SumImprovement float64
	Count          int
}

func (b *Bucket) add(e LogEntry) {
	b.SumAmbient += e.Ambient
	b.SumFiltered += e.Filtered
	b.SumImprovement += e.ImprovementPercent
	b.Count++
	if e.Epoch >= b.Epoch {
		b.Epoch = e.Epoch
		b.Timestamp = e.Timestamp
	}
}

// Frame returns the bucket averages, labelled with the latest contributing entry.
func (b Bucket) Frame() Frame {
	n := float64(b.Count)
	if n == 0 {
		n = 1
	}
	return newFrame(b.Epoch, b.Timestamp, b.SumAmbient/n, b.SumFiltered/n, b.SumImprovement/n)
}

// BuildBuckets groups entries into 5 and 60 second buckets. A new bucket opens
// whenever the aligned epoch differs from the previous entry's, so out-of-order
// entries split rather than merge. Only the last fineLimit and coarseLimit buckets are kept.
func BuildBuckets(entries []LogEntry, fineLimit, coarseLimit int) (fine, coarse []Bucket) {
	fine = make([]Bucket, 0)
	coarse = make([]Bucket, 0)
	for _, e := range entries {
		if e.Epoch == 0 {
			continue
		}
		fine = appendTo(fine, e, FineSeconds)
		coarse = appendTo(coarse, e, CoarseSeconds)
	}
	return trim(fine, fineLimit), trim(coarse, coarseLimit)
}

func appendTo(buckets []Bucket, e LogEntry, width int64) []Bucket {
	key := (e.Epoch / width) * width
	if len(buckets) == 0 || buckets[len(buckets)-1].Key != key {
		buckets = append(buckets, Bucket{Key: key})
	}
	buckets[len(buckets)-1].add(e)
	return buckets
}

func trim(buckets []Bucket, limit int) []Bucket {
	if limit >= 0 && len(buckets) > limit {
		return buckets[len(buckets)-limit:]
	}
	return buckets
}

// Frames converts buckets to their wire form.
func Frames(buckets []Bucket) []Frame {
	out := make([]Frame, 0, len(buckets))
	for _, b := range buckets {
		out = append(out, b.Frame())
	}
	return out
}
