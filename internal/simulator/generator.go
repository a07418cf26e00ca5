// Package simulator produces synthetic daily price series whose moves are
// nudged by the moon phase of each day.
package simulator

import (
	"fmt"
	"math"
	"time"

	"github.com/newthinker/lunar/internal/core"
	"github.com/newthinker/lunar/internal/lunar"
	"github.com/newthinker/lunar/internal/random"
	"go.uber.org/zap"
)

// Range is a closed interval for a uniform draw.
type Range struct {
	Min float64
	Max float64
}

// Config controls series generation.
type Config struct {
	StartPrice   float64 // RunningBase before the first day
	FloorPrice   float64 // RunningBase never drops below this
	DailySwing   Range   // base increment, percentage points
	FullMoonBias Range   // added on full moon days
	NewMoonBias  Range   // subtracted on new moon days
}

// DefaultConfig returns the standard simulation parameters.
func DefaultConfig() Config {
	return Config{
		StartPrice:   145.0,
		FloorPrice:   100.0,
		DailySwing:   Range{Min: -4.0, Max: 4.0},
		FullMoonBias: Range{Min: 0.5, Max: 1.5},
		NewMoonBias:  Range{Min: 0.5, Max: 1.2},
	}
}

// Generator walks forward day by day from a running base price.
// A Generator holds no state between calls to Generate.
type Generator struct {
	cfg    Config
	rng    random.Source
	now    func() time.Time
	logger *zap.Logger
}

// New creates a Generator. A nil source falls back to random.Entropy.
func New(cfg Config, src random.Source, logger *zap.Logger) *Generator {
	if src == nil {
		src = random.NewEntropy()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Generator{
		cfg:    cfg,
		rng:    src,
		now:    time.Now,
		logger: logger,
	}
}

// WithClock returns a copy of g that reads the current time from now.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	cp := *g
	cp.now = now
	return &cp
}

// Config returns the generator's parameters.
func (g *Generator) Config() Config {
	return g.cfg
}

// Generate returns dayCount simulated days ending yesterday, oldest first.
func (g *Generator) Generate(dayCount int) (core.Series, error) {
	if dayCount <= 0 {
		return nil, core.WrapError(core.ErrInvalidArgument,
			fmt.Errorf("day count must be positive, got %d", dayCount))
	}

	today := g.now()
	base := g.cfg.StartPrice
	series := make(core.Series, 0, dayCount)

	for i := dayCount; i > 0; i-- {
		date := today.AddDate(0, 0, -i)
		phase := lunar.PhaseFor(date)

		var change float64
		base, change = g.step(base, phase)

		series = append(series, core.MarketDay{
			Date:               date,
			Price:              round2(base),
			PhaseIndex:         phase.Index(),
			PriceChangePercent: round2(change),
		})
	}

	last := series[len(series)-1]
	g.logger.Debug("series generated",
		zap.Int("days", dayCount),
		zap.Float64("start_price", g.cfg.StartPrice),
		zap.Float64("final_price", last.Price),
	)

	return series, nil
}

// step draws one day's move for phase and applies it to base.
// It returns the clamped base and the unrounded total change.
func (g *Generator) step(base float64, phase lunar.Phase) (float64, float64) {
	change := g.rng.Uniform(g.cfg.DailySwing.Min, g.cfg.DailySwing.Max)

	switch phase {
	case lunar.FullMoon:
		change += g.rng.Uniform(g.cfg.FullMoonBias.Min, g.cfg.FullMoonBias.Max)
	case lunar.NewMoon:
		change -= g.rng.Uniform(g.cfg.NewMoonBias.Min, g.cfg.NewMoonBias.Max)
	}

	base += change
	base = math.Max(base, g.cfg.FloorPrice)
	return base, change
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
