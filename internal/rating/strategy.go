package rating

import (
	"fmt"

	"github.com/minjae-dev/stockpulse/internal/contracts"
)

// Fallback exit percentages used when no chart level is available.
const (
	DefaultProfitTargetPct = 8.0
	DefaultStopLossPct     = 5.0
)

// GenerateEntryExitStrategy derives entry and exit levels from moving
// averages, Bollinger bands and nearby support/resistance. Stop loss prefers
// the closest support below price, profit target the closest resistance
// above; both fall back to band-based levels.
func GenerateEntryExitStrategy(s Signals) (contracts.EntryStrategy, contracts.ExitStrategy) {
	entry := contracts.EntryStrategy{
		Price:  fmt.Sprintf("around %.2f (current price)", s.Price),
		Timing: "no strong timing signal; scale in gradually",
	}

	if s.MA20 != nil && *s.MA20 > 0 && *s.MA20 < s.Price {
		entry.Price = fmt.Sprintf("pullback toward %.2f (20-day moving average)", *s.MA20)
		entry.Timing = "wait for a retest of the 20-day moving average"
	} else if s.BollLower != nil && *s.BollLower > 0 {
		entry.Price = fmt.Sprintf("near %.2f (lower Bollinger band)", *s.BollLower)
		entry.Timing = "accumulate on weakness toward the lower band"
	}

	exit := contracts.ExitStrategy{
		TimeHorizon: timeHorizon(s),
	}

	if r, ok := closestAbove(s.Price, s.Resistances); ok {
		exit.ProfitTarget = fmt.Sprintf("%.2f (nearest resistance)", r)
	} else if s.BollUpper != nil && *s.BollUpper > s.Price {
		exit.ProfitTarget = fmt.Sprintf("%.2f (upper Bollinger band)", *s.BollUpper)
	} else {
		exit.ProfitTarget = fmt.Sprintf("%.2f (+%.0f%% from current price)", s.Price*(1+DefaultProfitTargetPct/100), DefaultProfitTargetPct)
	}

	if sup, ok := closestBelow(s.Price, s.Supports); ok {
		exit.StopLoss = fmt.Sprintf("%.2f (below nearest support)", sup*0.99)
	} else if s.BollLower != nil && *s.BollLower < s.Price && *s.BollLower > 0 {
		exit.StopLoss = fmt.Sprintf("%.2f (below lower Bollinger band)", *s.BollLower*0.99)
	} else {
		exit.StopLoss = fmt.Sprintf("%.2f (-%.0f%% from current price)", s.Price*(1-DefaultStopLossPct/100), DefaultStopLossPct)
	}

	return entry, exit
}

// timeHorizon stretches with trend strength: a confirmed trend gets room to
// run, a weak one gets a short leash.
func timeHorizon(s Signals) string {
	if s.ADX == nil {
		return "2-6 weeks"
	}
	switch {
	case *s.ADX > 40:
		return "1-3 months (strong trend)"
	case *s.ADX > 25:
		return "3-8 weeks (established trend)"
	default:
		return "1-3 weeks (weak trend, tight management)"
	}
}
