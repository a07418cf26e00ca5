// Package analytics summarizes a generated series by moon phase and produces
// heuristic forecasts. Every function is a pure computation over its input.
package analytics

import (
	"fmt"
	"math"

	"github.com/newthinker/lunar/internal/core"
	"github.com/newthinker/lunar/internal/lunar"
)

// Phase sets used by the report.
var (
	FullMoonPhases = []lunar.Phase{lunar.FullMoon}
	NewMoonPhases  = []lunar.Phase{lunar.NewMoon}
	QuarterPhases  = []lunar.Phase{lunar.FirstQuarter, lunar.LastQuarter}
)

func requireDays(series core.Series) error {
	if len(series) == 0 {
		return core.ErrPreconditionViolated
	}
	return nil
}

// MeanAndCountByPhase groups days by phase and returns one entry per phase
// that occurs, in enumeration order. Phases with no days are omitted.
func MeanAndCountByPhase(series core.Series) ([]PhaseStat, error) {
	if err := requireDays(series); err != nil {
		return nil, err
	}

	var sums [lunar.PhaseCount]float64
	var counts [lunar.PhaseCount]int
	for _, d := range series {
		p := lunar.FromIndex(d.PhaseIndex)
		sums[p] += d.PriceChangePercent
		counts[p]++
	}

	stats := make([]PhaseStat, 0, lunar.PhaseCount)
	for _, p := range lunar.Phases() {
		if counts[p] == 0 {
			continue
		}
		stats = append(stats, PhaseStat{
			Phase: p,
			Name:  p.Name(),
			Glyph: p.Glyph(),
			Mean:  sums[p] / float64(counts[p]),
			Count: counts[p],
		})
	}
	return stats, nil
}

// OverallMean is the mean daily change across the whole series.
func OverallMean(series core.Series) (float64, error) {
	if err := requireDays(series); err != nil {
		return 0, err
	}
	return mean(series.Changes()), nil
}

// OverallStdDev is the sample standard deviation (n-1) of daily changes.
// A single-day series has no observable dispersion and yields 0.
func OverallStdDev(series core.Series) (float64, error) {
	if err := requireDays(series); err != nil {
		return 0, err
	}
	return sampleStdDev(series.Changes()), nil
}

// PhaseEffect is the mean daily change over days whose phase is in phases.
// If no day matches, it returns an undefined Effect and core.ErrEmptyGroup.
func PhaseEffect(series core.Series, phases ...lunar.Phase) (Effect, error) {
	names := make([]string, len(phases))
	want := make(map[lunar.Phase]bool, len(phases))
	for i, p := range phases {
		names[i] = p.Name()
		want[lunar.FromIndex(int(p))] = true
	}

	if err := requireDays(series); err != nil {
		return Effect{Phases: names, Mean: math.NaN()}, err
	}

	var sum float64
	var count int
	for _, d := range series {
		if want[lunar.FromIndex(d.PhaseIndex)] {
			sum += d.PriceChangePercent
			count++
		}
	}

	if count == 0 {
		return Effect{Phases: names, Mean: math.NaN()},
			core.WrapError(core.ErrEmptyGroup, fmt.Errorf("phases %v", names))
	}

	return Effect{
		Phases:  names,
		Mean:    sum / float64(count),
		Count:   count,
		Defined: true,
	}, nil
}

// BestHistoricalPhase returns the phase with the highest mean change.
// Ties go to the phase that comes first in enumeration order.
func BestHistoricalPhase(series core.Series) (PhaseStat, error) {
	stats, err := MeanAndCountByPhase(series)
	if err != nil {
		return PhaseStat{}, err
	}

	best := stats[0]
	for _, s := range stats[1:] {
		if s.Mean > best.Mean {
			best = s
		}
	}
	return best, nil
}

// LatestMove compares the newest day to the one before it.
func LatestMove(series core.Series) (Move, error) {
	last, ok := series.Latest()
	if !ok {
		return Move{}, core.ErrPreconditionViolated
	}

	phase := lunar.FromIndex(last.PhaseIndex)
	m := Move{
		Date:  last.Date,
		Price: last.Price,
		Phase: phase.Name(),
		Glyph: phase.Glyph(),
	}

	if len(series) > 1 {
		prev := series[len(series)-2].Price
		m.PreviousPrice = prev
		m.Change = last.Price - prev
		m.ChangePercent = m.Change / prev * 100
		m.HasPrevious = true
	}
	return m, nil
}

// Run computes the full report for series. Phase effects with no matching
// days are reported as undefined rather than failing the run.
func Run(series core.Series) (*Report, error) {
	if err := requireDays(series); err != nil {
		return nil, err
	}

	byPhase, err := MeanAndCountByPhase(series)
	if err != nil {
		return nil, err
	}
	overallMean, err := OverallMean(series)
	if err != nil {
		return nil, err
	}
	stdDev, err := OverallStdDev(series)
	if err != nil {
		return nil, err
	}
	latest, err := LatestMove(series)
	if err != nil {
		return nil, err
	}

	// Empty groups are expected on short series; the Effect carries that.
	fullMoon, _ := PhaseEffect(series, FullMoonPhases...)
	newMoon, _ := PhaseEffect(series, NewMoonPhases...)
	quarter, _ := PhaseEffect(series, QuarterPhases...)

	best, err := BestHistoricalPhase(series)
	if err != nil {
		return nil, err
	}

	last, _ := series.Latest()

	return &Report{
		Days:           len(series),
		ByPhase:        byPhase,
		OverallMean:    overallMean,
		OverallStdDev:  stdDev,
		FullMoonEffect: fullMoon,
		NewMoonEffect:  newMoon,
		QuarterEffect:  quarter,
		Latest:         latest,
		BestPhase:      best,
		Outlook:        Outlook(lunar.FromIndex(last.PhaseIndex)),
	}, nil
}

func mean(values []float64) float64 {
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func sampleStdDev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}

	m := mean(values)
	var variance float64
	for _, v := range values {
		variance += (v - m) * (v - m)
	}
	return math.Sqrt(variance / float64(len(values)-1))
}
