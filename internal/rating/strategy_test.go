package rating

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStrategyPrefersChartLevels(t *testing.T) {
	s := Signals{
		Price:       100,
		MA20:        f(97),
		Supports:    []float64{90, 96},
		Resistances: []float64{104, 112},
	}

	entry, exit := GenerateEntryExitStrategy(s)

	assert.Contains(t, entry.Price, "97.00")
	assert.Contains(t, entry.Timing, "20-day moving average")

	// Closest resistance above price wins over the percentage fallback.
	assert.Contains(t, exit.ProfitTarget, "104.00")
	// Stop sits just below the closest support.
	assert.Contains(t, exit.StopLoss, fmt.Sprintf("%.2f", 96*0.99))
}

func TestStrategyPercentageFallbacks(t *testing.T) {
	s := Signals{Price: 200}

	entry, exit := GenerateEntryExitStrategy(s)

	assert.Contains(t, entry.Price, "200.00")
	assert.Contains(t, exit.ProfitTarget, fmt.Sprintf("%.2f", 200*(1+DefaultProfitTargetPct/100)))
	assert.Contains(t, exit.StopLoss, fmt.Sprintf("%.2f", 200*(1-DefaultStopLossPct/100)))
}

func TestStrategyBollingerFallback(t *testing.T) {
	s := Signals{
		Price:     100,
		BollUpper: f(108),
		BollLower: f(94),
	}

	_, exit := GenerateEntryExitStrategy(s)

	assert.Contains(t, exit.ProfitTarget, "108.00")
	assert.Contains(t, exit.StopLoss, fmt.Sprintf("%.2f", 94*0.99))
}

func TestTimeHorizonTracksTrendStrength(t *testing.T) {
	_, strong := GenerateEntryExitStrategy(Signals{Price: 100, ADX: f(45)})
	_, weak := GenerateEntryExitStrategy(Signals{Price: 100, ADX: f(15)})
	_, unknown := GenerateEntryExitStrategy(Signals{Price: 100})

	assert.Contains(t, strong.TimeHorizon, "strong trend")
	assert.Contains(t, weak.TimeHorizon, "weak trend")
	assert.Equal(t, "2-6 weeks", unknown.TimeHorizon)
}
