package core

import "time"

// DateLayout is the calendar date format used for display and export.
const DateLayout = "2006-01-02"

// MarketDay is one simulated trading day. Values are fixed at creation.
type MarketDay struct {
	Date               time.Time `json:"date" yaml:"date"`
	Price              float64   `json:"price" yaml:"price"`
	PhaseIndex         int       `json:"phase_index" yaml:"phase_index"`
	PriceChangePercent float64   `json:"price_change_percent" yaml:"price_change_percent"`
}

// Series is an ordered run of simulated days, oldest first.
type Series []MarketDay

// Len returns the number of days in the series.
func (s Series) Len() int {
	return len(s)
}

// Latest returns the newest day. ok is false for an empty series.
func (s Series) Latest() (day MarketDay, ok bool) {
	if len(s) == 0 {
		return MarketDay{}, false
	}
	return s[len(s)-1], true
}

// Changes returns the daily change percentages in series order.
func (s Series) Changes() []float64 {
	out := make([]float64, len(s))
	for i, d := range s {
		out[i] = d.PriceChangePercent
	}
	return out
}

// Prices returns the closing prices in series order.
func (s Series) Prices() []float64 {
	out := make([]float64, len(s))
	for i, d := range s {
		out[i] = d.Price
	}
	return out
}

// Tail returns the last n days, or the whole series when n is out of range.
// The returned slice shares no backing array with s.
func (s Series) Tail(n int) Series {
	if n <= 0 || n >= len(s) {
		n = len(s)
	}
	out := make(Series, n)
	copy(out, s[len(s)-n:])
	return out
}
