package analytics

import (
	"encoding/json"
	"time"

	"github.com/newthinker/lunar/internal/lunar"
)

// PhaseStat summarizes the days that fell in one phase.
type PhaseStat struct {
	Phase lunar.Phase `json:"phase_index" yaml:"phase_index"`
	Name  string      `json:"name" yaml:"name"`
	Glyph string      `json:"glyph" yaml:"glyph"`
	Mean  float64     `json:"mean_change_percent" yaml:"mean_change_percent"`
	Count int         `json:"count" yaml:"count"`
}

// Effect is the mean daily change over a subset of phases.
// When Defined is false no day matched and Mean is NaN.
type Effect struct {
	Phases  []string `json:"phases" yaml:"phases"`
	Mean    float64  `json:"mean_change_percent" yaml:"mean_change_percent"`
	Count   int      `json:"count" yaml:"count"`
	Defined bool     `json:"defined" yaml:"defined"`
}

// MarshalJSON writes an undefined mean as null; encoding/json rejects NaN.
func (e Effect) MarshalJSON() ([]byte, error) {
	out := struct {
		Phases  []string `json:"phases"`
		Mean    *float64 `json:"mean_change_percent"`
		Count   int      `json:"count"`
		Defined bool     `json:"defined"`
	}{
		Phases:  e.Phases,
		Count:   e.Count,
		Defined: e.Defined,
	}
	if e.Defined {
		mean := e.Mean
		out.Mean = &mean
	}
	return json.Marshal(out)
}

// Move describes the newest day against the one before it.
type Move struct {
	Date          time.Time `json:"date" yaml:"date"`
	Price         float64   `json:"price" yaml:"price"`
	PreviousPrice float64   `json:"previous_price" yaml:"previous_price"`
	Change        float64   `json:"change" yaml:"change"`
	ChangePercent float64   `json:"change_percent" yaml:"change_percent"`
	HasPrevious   bool      `json:"has_previous" yaml:"has_previous"`
	Phase         string    `json:"phase" yaml:"phase"`
	Glyph         string    `json:"glyph" yaml:"glyph"`
}

// Report bundles every summary computed over one series.
type Report struct {
	Days           int         `json:"days" yaml:"days"`
	ByPhase        []PhaseStat `json:"by_phase" yaml:"by_phase"`
	OverallMean    float64     `json:"overall_mean" yaml:"overall_mean"`
	OverallStdDev  float64     `json:"overall_std_dev" yaml:"overall_std_dev"`
	FullMoonEffect Effect      `json:"full_moon_effect" yaml:"full_moon_effect"`
	NewMoonEffect  Effect      `json:"new_moon_effect" yaml:"new_moon_effect"`
	QuarterEffect  Effect      `json:"quarter_effect" yaml:"quarter_effect"`
	Latest         Move        `json:"latest" yaml:"latest"`
	BestPhase      PhaseStat   `json:"best_phase" yaml:"best_phase"`
	Outlook        string      `json:"outlook" yaml:"outlook"`
}

// Forecast is a speculative next-day figure. It is not derived from any date.
type Forecast struct {
	Price              float64 `json:"price" yaml:"price"`
	PriceChangePercent float64 `json:"price_change_percent" yaml:"price_change_percent"`
	PhaseIndex         int     `json:"phase_index" yaml:"phase_index"`
	PhaseName          string  `json:"phase_name" yaml:"phase_name"`
	Glyph              string  `json:"glyph" yaml:"glyph"`
}
