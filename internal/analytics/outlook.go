package analytics

import "github.com/newthinker/lunar/internal/lunar"

// Outlook returns the canned headline for the phase of the newest day.
func Outlook(p lunar.Phase) string {
	switch p {
	case lunar.FullMoon:
		return "High volume trading likely. Bullish sentiment expected."
	case lunar.NewMoon:
		return "Volatile trading expected. Consider defensive positions."
	default:
		return "Moderate market conditions. Watch for trends."
	}
}

// Tendency labels an effect as "bullish" or "bearish", or "no data" when
// the effect is undefined.
func Tendency(e Effect) string {
	if !e.Defined {
		return "no data"
	}
	if e.Mean > 0 {
		return "bullish"
	}
	return "bearish"
}
