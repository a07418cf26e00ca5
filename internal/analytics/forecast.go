package analytics

import (
	"github.com/newthinker/lunar/internal/lunar"
	"github.com/newthinker/lunar/internal/random"
)

const (
	forecastSwing    = 3.0
	fullMoonForecast = 1.0
)

// Forecaster draws what-if next-day figures. Results are never cached.
type Forecaster struct {
	rng random.Source
}

// NewForecaster creates a Forecaster. A nil source falls back to random.Entropy.
func NewForecaster(src random.Source) *Forecaster {
	if src == nil {
		src = random.NewEntropy()
	}
	return &Forecaster{rng: src}
}

// ForecastNextDay draws a phase uniformly, draws a change in [-3, 3] with a
// +1.0 bump on a full moon, and applies it to latestPrice.
func (f *Forecaster) ForecastNextDay(latestPrice float64) Forecast {
	phase := lunar.FromIndex(f.rng.Intn(lunar.PhaseCount))

	change := f.rng.Uniform(-forecastSwing, forecastSwing)
	if phase == lunar.FullMoon {
		change += fullMoonForecast
	}

	return Forecast{
		Price:              latestPrice + change,
		PriceChangePercent: change,
		PhaseIndex:         phase.Index(),
		PhaseName:          phase.Name(),
		Glyph:              phase.Glyph(),
	}
}
