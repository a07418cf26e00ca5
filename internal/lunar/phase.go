// Package lunar maps calendar dates onto eight coarse moon phase buckets.
//
// The mapping is a fixed approximation: seconds since the Unix epoch are
// converted to days, folded into a 29.5 day cycle anchored at the epoch and
// split into eight equal buckets. It has no astronomical ground truth and
// will drift from real lunar ephemeris data.
package lunar

import (
	"math"
	"time"
)

const (
	// SynodicMonth is the cycle length, in days, used by PhaseIndexFor.
	SynodicMonth = 29.5

	// PhaseCount is the number of discrete phase buckets.
	PhaseCount = 8

	secondsPerDay = 24 * 60 * 60
)

// Phase is one of eight moon phase buckets. Arithmetic is modulo PhaseCount.
type Phase int

const (
	NewMoon Phase = iota
	WaxingCrescent
	FirstQuarter
	WaxingGibbous
	FullMoon
	WaningGibbous
	LastQuarter
	WaningCrescent
)

var phaseNames = [PhaseCount]string{
	"New Moon",
	"Waxing Crescent",
	"First Quarter",
	"Waxing Gibbous",
	"Full Moon",
	"Waning Gibbous",
	"Last Quarter",
	"Waning Crescent",
}

var phaseGlyphs = [PhaseCount]string{"🌑", "🌒", "🌓", "🌔", "🌕", "🌖", "🌗", "🌘"}

// Phases lists every phase in enumeration order.
func Phases() []Phase {
	out := make([]Phase, PhaseCount)
	for i := range out {
		out[i] = Phase(i)
	}
	return out
}

// FromIndex normalizes any integer onto the phase cycle.
func FromIndex(i int) Phase {
	i %= PhaseCount
	if i < 0 {
		i += PhaseCount
	}
	return Phase(i)
}

// Index returns the phase as an integer in [0,7].
func (p Phase) Index() int {
	return int(FromIndex(int(p)))
}

// Name returns the display name, e.g. "Full Moon".
func (p Phase) Name() string {
	return phaseNames[p.Index()]
}

// Glyph returns the moon emoji for the phase.
func (p Phase) Glyph() string {
	return phaseGlyphs[p.Index()]
}

// Next returns the following phase, wrapping from WaningCrescent to NewMoon.
func (p Phase) Next() Phase {
	return FromIndex(p.Index() + 1)
}

// String implements fmt.Stringer.
func (p Phase) String() string {
	return p.Name()
}

// ParseName resolves a display name back to its phase.
func ParseName(name string) (Phase, bool) {
	for i, n := range phaseNames {
		if n == name {
			return Phase(i), true
		}
	}
	return 0, false
}

// PhaseIndexFor returns the phase bucket index in [0,7] for t.
// Same instant in, same index out.
func PhaseIndexFor(t time.Time) int {
	days := (float64(t.Unix()) + float64(t.Nanosecond())/1e9) / secondsPerDay

	cycle := math.Mod(days, SynodicMonth)
	if cycle < 0 {
		cycle += SynodicMonth
	}

	idx := int(cycle / SynodicMonth * PhaseCount)
	if idx >= PhaseCount {
		idx = PhaseCount - 1
	}
	return idx
}

// PhaseFor is PhaseIndexFor returning a Phase.
func PhaseFor(t time.Time) Phase {
	return Phase(PhaseIndexFor(t))
}
