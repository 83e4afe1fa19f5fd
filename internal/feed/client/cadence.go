package client

import "time"

const (
	// DefaultVisibleDelay is the poll interval while the display is visible.
	DefaultVisibleDelay = time.Second
	// DefaultHiddenDelay is the poll interval while the display is hidden.
	DefaultHiddenDelay = 3 * time.Second
	// DefaultCeiling caps the delay however many fetches failed.
	DefaultCeiling = 10 * time.Second
)

// Cadence decides how long to wait before the next fetch.
type Cadence struct {
	Visible time.Duration
	Hidden  time.Duration
	Ceiling time.Duration
}

// DefaultCadence returns the 1s/3s/10s cadence.
func DefaultCadence() Cadence {
	return Cadence{Visible: DefaultVisibleDelay, Hidden: DefaultHiddenDelay, Ceiling: DefaultCeiling}
}

// NextDelay is base × max(1, failures), capped at the ceiling. The growth is
// linear in the failure count.
func (c Cadence) NextDelay(visible bool, failures int) time.Duration {
	base := c.Hidden
	if visible {
		base = c.Visible
	}
	ceiling := c.Ceiling
	if ceiling <= 0 {
		ceiling = DefaultCeiling
	}
	factor := max(1, failures)
	if base <= 0 || int64(factor) > int64(ceiling/base) {
		return ceiling
	}
	return min(ceiling, base*time.Duration(factor))
}
