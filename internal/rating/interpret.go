package rating

import (
	"fmt"
	"math"
)

// Assessment is the normalized interpretation of one raw signal.
type Assessment struct {
	Status      string `json:"status"`
	Strength    int    `json:"strength"` // 0 (no signal) .. 3 (strong)
	Description string `json:"description"`
}

// Signal statuses. Interpreters only ever return these.
const (
	StatusOverbought    = "overbought"
	StatusOversold      = "oversold"
	StatusBullish       = "bullish"
	StatusBearish       = "bearish"
	StatusNeutral       = "neutral"
	StatusUptrend       = "uptrend"
	StatusDowntrend     = "downtrend"
	StatusNearSupport   = "near_support"
	StatusNearResist    = "near_resistance"
	StatusAccumulation  = "accumulation"
	StatusDistribution  = "distribution"
	StatusHighOwnership = "high_ownership"
	StatusLowOwnership  = "low_ownership"
)

func neutral(desc string) Assessment {
	return Assessment{Status: StatusNeutral, Strength: 0, Description: desc}
}

// InterpretRSI maps an RSI value to an assessment.
// Thresholds: >70 overbought (2), >60 bullish (1), <30 oversold (2),
// <40 bearish (1), otherwise neutral (0).
func InterpretRSI(rsi float64) Assessment {
	switch {
	case rsi > 70:
		return Assessment{StatusOverbought, 2, fmt.Sprintf("RSI %.1f signals overbought conditions", rsi)}
	case rsi > 60:
		return Assessment{StatusBullish, 1, fmt.Sprintf("RSI %.1f shows bullish momentum", rsi)}
	case rsi < 30:
		return Assessment{StatusOversold, 2, fmt.Sprintf("RSI %.1f signals oversold conditions", rsi)}
	case rsi < 40:
		return Assessment{StatusBearish, 1, fmt.Sprintf("RSI %.1f shows bearish momentum", rsi)}
	default:
		return neutral(fmt.Sprintf("RSI %.1f is neutral", rsi))
	}
}

// InterpretMACD maps MACD line vs signal line to an assessment.
// Crossover with histogram above 0 counts as the stronger signal.
func InterpretMACD(macd, signal float64) Assessment {
	hist := macd - signal
	switch {
	case hist > 0 && macd > 0:
		return Assessment{StatusBullish, 2, fmt.Sprintf("MACD %.3f above signal in positive territory", macd)}
	case hist > 0:
		return Assessment{StatusBullish, 1, fmt.Sprintf("MACD %.3f crossed above signal line", macd)}
	case hist < 0 && macd < 0:
		return Assessment{StatusBearish, 2, fmt.Sprintf("MACD %.3f below signal in negative territory", macd)}
	case hist < 0:
		return Assessment{StatusBearish, 1, fmt.Sprintf("MACD %.3f crossed below signal line", macd)}
	default:
		return neutral("MACD flat against signal line")
	}
}

// InterpretMovingAverages maps price vs MA20/MA50/MA200 to a trend
// assessment. Price above all three is a strong uptrend (3); each missing
// average drops one strength level.
func InterpretMovingAverages(price, ma20, ma50, ma200 float64) Assessment {
	above := 0
	below := 0
	for _, ma := range []float64{ma20, ma50, ma200} {
		if ma <= 0 {
			continue
		}
		if price > ma {
			above++
		} else {
			below++
		}
	}

	switch {
	case above == 3:
		return Assessment{StatusUptrend, 3, "Price above MA20, MA50 and MA200"}
	case above == 2:
		return Assessment{StatusUptrend, 2, "Price above two of three moving averages"}
	case below == 3:
		return Assessment{StatusDowntrend, 3, "Price below MA20, MA50 and MA200"}
	case below == 2:
		return Assessment{StatusDowntrend, 2, "Price below two of three moving averages"}
	case above == 1 && below <= 1:
		return Assessment{StatusUptrend, 1, "Price above its short-term moving average"}
	default:
		return neutral("Price is mixed against its moving averages")
	}
}

// InterpretBollinger maps price vs Bollinger bands.
// Above the upper band is overbought (2); below the lower band oversold (2);
// within 2% of a band is a mild signal (1).
func InterpretBollinger(price, upper, middle, lower float64) Assessment {
	if upper <= lower {
		return neutral("Bollinger bands unavailable")
	}

	switch {
	case price > upper:
		return Assessment{StatusOverbought, 2, fmt.Sprintf("Price %.2f above upper band %.2f", price, upper)}
	case price < lower:
		return Assessment{StatusOversold, 2, fmt.Sprintf("Price %.2f below lower band %.2f", price, lower)}
	case price > upper*0.98:
		return Assessment{StatusBearish, 1, "Price pressing against the upper band"}
	case price < lower*1.02:
		return Assessment{StatusBullish, 1, "Price probing the lower band"}
	default:
		return neutral("Price inside the Bollinger bands")
	}
}

// InterpretADX maps trend strength and direction.
// ADX > 40 is a strong trend (3), > 25 a trend (2), > 20 emerging (1);
// direction comes from +DI vs -DI.
func InterpretADX(adx, plusDI, minusDI float64) Assessment {
	var strength int
	switch {
	case adx > 40:
		strength = 3
	case adx > 25:
		strength = 2
	case adx > 20:
		strength = 1
	default:
		return neutral(fmt.Sprintf("ADX %.1f shows no meaningful trend", adx))
	}

	if plusDI >= minusDI {
		return Assessment{StatusUptrend, strength, fmt.Sprintf("ADX %.1f confirms an uptrend (+DI %.1f over -DI %.1f)", adx, plusDI, minusDI)}
	}
	return Assessment{StatusDowntrend, strength, fmt.Sprintf("ADX %.1f confirms a downtrend (-DI %.1f over +DI %.1f)", adx, minusDI, plusDI)}
}

// InterpretStochastic maps %K/%D oscillator values.
// %K > 80 overbought (2), < 20 oversold (2), %K crossing %D is mild (1).
func InterpretStochastic(k, d float64) Assessment {
	switch {
	case k > 80:
		return Assessment{StatusOverbought, 2, fmt.Sprintf("Stochastic %%K %.1f in overbought territory", k)}
	case k < 20:
		return Assessment{StatusOversold, 2, fmt.Sprintf("Stochastic %%K %.1f in oversold territory", k)}
	case k > d:
		return Assessment{StatusBullish, 1, "Stochastic %K above %D"}
	case k < d:
		return Assessment{StatusBearish, 1, "Stochastic %K below %D"}
	default:
		return neutral("Stochastic flat")
	}
}

// InterpretCCI maps the Commodity Channel Index.
// Beyond +/-200 is extreme (2); beyond +/-100 a directional signal (1).
func InterpretCCI(cci float64) Assessment {
	switch {
	case cci > 200:
		return Assessment{StatusOverbought, 2, fmt.Sprintf("CCI %.0f at an overbought extreme", cci)}
	case cci > 100:
		return Assessment{StatusBullish, 1, fmt.Sprintf("CCI %.0f above +100", cci)}
	case cci < -200:
		return Assessment{StatusOversold, 2, fmt.Sprintf("CCI %.0f at an oversold extreme", cci)}
	case cci < -100:
		return Assessment{StatusBearish, 1, fmt.Sprintf("CCI %.0f below -100", cci)}
	default:
		return neutral(fmt.Sprintf("CCI %.0f in the neutral band", cci))
	}
}

// InterpretSupportResistance flags price within 3% of the nearest level.
func InterpretSupportResistance(price float64, supports, resistances []float64) Assessment {
	const proximity = 0.03

	if s, ok := closestBelow(price, supports); ok {
		if (price-s)/price <= proximity {
			return Assessment{StatusNearSupport, 1, fmt.Sprintf("Price %.2f sitting on support at %.2f", price, s)}
		}
	}
	if r, ok := closestAbove(price, resistances); ok {
		if (r-price)/price <= proximity {
			return Assessment{StatusNearResist, 1, fmt.Sprintf("Price %.2f pressing resistance at %.2f", price, r)}
		}
	}
	return neutral("Price clear of nearby support and resistance")
}

// InterpretInsiderActivity maps net insider transactions (buys minus sells).
func InterpretInsiderActivity(netBuys int) Assessment {
	switch {
	case netBuys >= 3:
		return Assessment{StatusAccumulation, 2, fmt.Sprintf("Insiders net buyers (%+d transactions)", netBuys)}
	case netBuys > 0:
		return Assessment{StatusAccumulation, 1, fmt.Sprintf("Mild insider buying (%+d transactions)", netBuys)}
	case netBuys <= -3:
		return Assessment{StatusDistribution, 2, fmt.Sprintf("Insiders net sellers (%+d transactions)", netBuys)}
	case netBuys < 0:
		return Assessment{StatusDistribution, 1, fmt.Sprintf("Mild insider selling (%+d transactions)", netBuys)}
	default:
		return neutral("No notable insider activity")
	}
}

// InterpretInstitutionalHoldings maps institutional ownership percentage.
// >70% high (2), >40% moderate (1), otherwise low (0).
func InterpretInstitutionalHoldings(pct float64) Assessment {
	switch {
	case pct > 70:
		return Assessment{StatusHighOwnership, 2, fmt.Sprintf("Institutions hold %.1f%% of the float", pct)}
	case pct > 40:
		return Assessment{StatusHighOwnership, 1, fmt.Sprintf("Moderate institutional ownership at %.1f%%", pct)}
	case pct > 0:
		return Assessment{StatusLowOwnership, 0, fmt.Sprintf("Low institutional ownership at %.1f%%", pct)}
	default:
		return neutral("Institutional ownership unknown")
	}
}

func closestBelow(price float64, levels []float64) (float64, bool) {
	best := math.Inf(-1)
	found := false
	for _, l := range levels {
		if l < price && l > best {
			best = l
			found = true
		}
	}
	return best, found
}

func closestAbove(price float64, levels []float64) (float64, bool) {
	best := math.Inf(1)
	found := false
	for _, l := range levels {
		if l > price && l < best {
			best = l
			found = true
		}
	}
	return best, found
}
