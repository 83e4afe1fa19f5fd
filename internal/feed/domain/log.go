package feed

import (
	"errors"
	"math"
	"sync"
)

const (
	// DefaultLogKeep is the history the buffer holds, about an hour at one entry per second.
	DefaultLogKeep = 3600
	// evictChunk entries are dropped at once when the buffer overflows.
	evictChunk = 60
)

var (
	// ErrZeroEpoch is returned for entries without a clock reading.
	ErrZeroEpoch = errors.New("feed: zero epoch")
	// ErrDuplicateEpoch is returned when the entry repeats the last logged second.
	ErrDuplicateEpoch = errors.New("feed: duplicate epoch")
	// ErrInvalidSample is returned for non-finite sensor values.
	ErrInvalidSample = errors.New("feed: invalid sample")
)

// LogEntry is one paired ambient/filtered measurement.
type LogEntry struct {
	Timestamp          string
	Epoch              int64
	Ambient            float64
	Filtered           float64
	ImprovementPercent float64
}

// NewLogEntry pairs two readings and derives the improvement percentage.
func NewLogEntry(timestamp string, epoch int64, ambient, filtered float64) (LogEntry, error) {
	if math.IsNaN(ambient) || math.IsInf(ambient, 0) || math.IsNaN(filtered) || math.IsInf(filtered, 0) {
		return LogEntry{}, ErrInvalidSample
	}
	return LogEntry{
		Timestamp:          timestamp,
		Epoch:              epoch,
		Ambient:            ambient,
		Filtered:           filtered,
		ImprovementPercent: Improvement(ambient, filtered),
	}, nil
}

// Improvement is the share of ambient co2 removed by the filter, 0 when ambient is not positive.
func Improvement(ambient, filtered float64) float64 {
	if ambient <= 0 {
		return 0
	}
	return (ambient - filtered) / ambient * 100
}

// Frame returns the wire form of the entry.
func (e LogEntry) Frame() Frame {
	return newFrame(e.Epoch, e.Timestamp, e.Ambient, e.Filtered, e.ImprovementPercent)
}

// LogBuffer is the bounded measurement history. It accepts at most one entry per
// epoch second and, once it holds more than keep+60 entries, drops the oldest 60.
type LogBuffer struct {
	mu        sync.RWMutex
	entries   []LogEntry
	keep      int
	lastEpoch int64
}

// NewLogBuffer constructs a buffer, defaulting keep to DefaultLogKeep.
func NewLogBuffer(keep int) *LogBuffer {
	if keep <= 0 {
		keep = DefaultLogKeep
	}
	return &LogBuffer{keep: keep, entries: make([]LogEntry, 0, keep+evictChunk)}
}

// Append logs an entry.
func (b *LogBuffer) Append(entry LogEntry) error {
	if entry.Epoch == 0 {
		return ErrZeroEpoch
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if entry.Epoch == b.lastEpoch {
		return ErrDuplicateEpoch
	}
	b.entries = append(b.entries, entry)
	b.lastEpoch = entry.Epoch
	if len(b.entries) > b.keep+evictChunk {
		b.entries = append(b.entries[:0:0], b.entries[evictChunk:]...)
	}
	return nil
}

// Len returns the number of held entries.
func (b *LogBuffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.entries)
}

// Latest returns the newest entry.
func (b *LogBuffer) Latest() (LogEntry, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if len(b.entries) == 0 {
		return LogEntry{}, false
	}
	return b.entries[len(b.entries)-1], true
}

// Recent returns up to limit newest entries, oldest first.
func (b *LogBuffer) Recent(limit int) []LogEntry {
	b.mu.RLock()
	defer b.mu.RUnlock()
	start := 0
	if limit > 0 && len(b.entries) > limit {
		start = len(b.entries) - limit
	}
	out := make([]LogEntry, len(b.entries)-start)
	copy(out, b.entries[start:])
	return out
}

// Snapshot returns every held entry, oldest first.
func (b *LogBuffer) Snapshot() []LogEntry {
	return b.Recent(0)
}
