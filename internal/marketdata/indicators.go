package marketdata

import "math"

// IndicatorSet holds the computed technical indicators for one symbol.
// A nil field means the series was too short to compute it.
type IndicatorSet struct {
	RSI         *float64
	MACD        *float64
	MACDSignal  *float64
	MA20        *float64
	MA50        *float64
	MA200       *float64
	BollUpper   *float64
	BollMiddle  *float64
	BollLower   *float64
	ADX         *float64
	PlusDI      *float64
	MinusDI     *float64
	StochasticK *float64
	StochasticD *float64
	CCI         *float64
	Supports    []float64
	Resistances []float64
}

// ComputeIndicators derives the full indicator set from a chronological
// (oldest-first) daily candle series.
func ComputeIndicators(candles []Candle) IndicatorSet {
	var set IndicatorSet
	if len(candles) == 0 {
		return set
	}

	closes := make([]float64, len(candles))
	for i, c := range candles {
		closes[i] = c.Close
	}

	if v, ok := rsi(closes, 14); ok {
		set.RSI = &v
	}
	if macd, signal, ok := macdLine(closes); ok {
		set.MACD = &macd
		set.MACDSignal = &signal
	}
	if v, ok := sma(closes, 20); ok {
		set.MA20 = &v
	}
	if v, ok := sma(closes, 50); ok {
		set.MA50 = &v
	}
	if v, ok := sma(closes, 200); ok {
		set.MA200 = &v
	}
	if upper, middle, lower, ok := bollinger(closes, 20, 2.0); ok {
		set.BollUpper = &upper
		set.BollMiddle = &middle
		set.BollLower = &lower
	}
	if adx, plus, minus, ok := adxDI(candles, 14); ok {
		set.ADX = &adx
		set.PlusDI = &plus
		set.MinusDI = &minus
	}
	if k, d, ok := stochastic(candles, 14, 3); ok {
		set.StochasticK = &k
		set.StochasticD = &d
	}
	if v, ok := cci(candles, 20); ok {
		set.CCI = &v
	}

	set.Supports, set.Resistances = supportResistance(candles, 5)

	return set
}

// sma returns the simple moving average of the last period closes.
func sma(closes []float64, period int) (float64, bool) {
	if len(closes) < period {
		return 0, false
	}
	var sum float64
	for _, c := range closes[len(closes)-period:] {
		sum += c
	}
	return sum / float64(period), true
}

// ema returns the exponential moving average over the whole series, seeded
// with an SMA of the first period values.
func ema(closes []float64, period int) (float64, bool) {
	if len(closes) < period {
		return 0, false
	}

	var sum float64
	for _, c := range closes[:period] {
		sum += c
	}
	value := sum / float64(period)

	multiplier := 2.0 / (float64(period) + 1.0)
	for _, c := range closes[period:] {
		value = c*multiplier + value*(1-multiplier)
	}

	return value, true
}

// rsi is the Wilder Relative Strength Index over the last period changes.
func rsi(closes []float64, period int) (float64, bool) {
	if len(closes) < period+1 {
		return 0, false
	}

	recent := closes[len(closes)-period-1:]
	var gains, losses float64
	for i := 1; i < len(recent); i++ {
		change := recent[i] - recent[i-1]
		if change > 0 {
			gains += change
		} else {
			losses += -change
		}
	}

	if losses == 0 {
		return 100, true
	}

	rs := (gains / float64(period)) / (losses / float64(period))
	return 100 - (100 / (1 + rs)), true
}

// macdLine returns MACD (EMA12-EMA26) and its 9-period signal line.
func macdLine(closes []float64) (float64, float64, bool) {
	if len(closes) < 26+9 {
		return 0, 0, false
	}

	// Build the MACD series for the last 9 points to derive the signal.
	histLen := 9
	macdSeries := make([]float64, 0, histLen)
	for i := len(closes) - histLen + 1; i <= len(closes); i++ {
		window := closes[:i]
		if len(window) < 26 {
			continue
		}
		e12, _ := ema(window, 12)
		e26, _ := ema(window, 26)
		macdSeries = append(macdSeries, e12-e26)
	}

	if len(macdSeries) == 0 {
		return 0, 0, false
	}

	macd := macdSeries[len(macdSeries)-1]

	var sum float64
	for _, m := range macdSeries {
		sum += m
	}
	signal := sum / float64(len(macdSeries))

	return macd, signal, true
}

// bollinger returns upper/middle/lower bands (middle = SMA, width = k sigma).
func bollinger(closes []float64, period int, k float64) (float64, float64, float64, bool) {
	middle, ok := sma(closes, period)
	if !ok {
		return 0, 0, 0, false
	}

	var variance float64
	for _, c := range closes[len(closes)-period:] {
		variance += (c - middle) * (c - middle)
	}
	sigma := math.Sqrt(variance / float64(period))

	return middle + k*sigma, middle, middle - k*sigma, true
}

// adxDI returns the Average Directional Index with +DI/-DI (Wilder smoothing
// approximated by simple averages over the lookback).
func adxDI(candles []Candle, period int) (float64, float64, float64, bool) {
	if len(candles) < period+1 {
		return 0, 0, 0, false
	}

	recent := candles[len(candles)-period-1:]
	var trSum, plusDM, minusDM float64
	var dxSum float64
	var dxCount int

	for i := 1; i < len(recent); i++ {
		cur, prev := recent[i], recent[i-1]

		tr := math.Max(cur.High-cur.Low,
			math.Max(math.Abs(cur.High-prev.Close), math.Abs(cur.Low-prev.Close)))
		trSum += tr

		upMove := cur.High - prev.High
		downMove := prev.Low - cur.Low
		if upMove > downMove && upMove > 0 {
			plusDM += upMove
		}
		if downMove > upMove && downMove > 0 {
			minusDM += downMove
		}

		if trSum > 0 {
			p := 100 * plusDM / trSum
			m := 100 * minusDM / trSum
			if p+m > 0 {
				dxSum += 100 * math.Abs(p-m) / (p + m)
				dxCount++
			}
		}
	}

	if trSum == 0 || dxCount == 0 {
		return 0, 0, 0, false
	}

	plusDI := 100 * plusDM / trSum
	minusDI := 100 * minusDM / trSum
	adx := dxSum / float64(dxCount)

	return adx, plusDI, minusDI, true
}

// stochastic returns %K over kPeriod and %D as a dPeriod average of %K.
func stochastic(candles []Candle, kPeriod, dPeriod int) (float64, float64, bool) {
	if len(candles) < kPeriod+dPeriod {
		return 0, 0, false
	}

	kAt := func(end int) (float64, bool) {
		window := candles[end-kPeriod : end]
		lowest, highest := window[0].Low, window[0].High
		for _, c := range window[1:] {
			lowest = math.Min(lowest, c.Low)
			highest = math.Max(highest, c.High)
		}
		if highest == lowest {
			return 50, true
		}
		return 100 * (candles[end-1].Close - lowest) / (highest - lowest), true
	}

	k, _ := kAt(len(candles))

	var dSum float64
	for i := 0; i < dPeriod; i++ {
		v, ok := kAt(len(candles) - i)
		if !ok {
			return 0, 0, false
		}
		dSum += v
	}

	return k, dSum / float64(dPeriod), true
}

// cci is the Commodity Channel Index over the last period typical prices.
func cci(candles []Candle, period int) (float64, bool) {
	if len(candles) < period {
		return 0, false
	}

	recent := candles[len(candles)-period:]
	typical := make([]float64, period)
	var sum float64
	for i, c := range recent {
		typical[i] = (c.High + c.Low + c.Close) / 3
		sum += typical[i]
	}
	mean := sum / float64(period)

	var dev float64
	for _, t := range typical {
		dev += math.Abs(t - mean)
	}
	meanDev := dev / float64(period)
	if meanDev == 0 {
		return 0, true
	}

	return (typical[period-1] - mean) / (0.015 * meanDev), true
}

// supportResistance finds local pivot lows (supports) and pivot highs
// (resistances) using a symmetric lookback window.
func supportResistance(candles []Candle, window int) ([]float64, []float64) {
	var supports, resistances []float64

	for i := window; i < len(candles)-window; i++ {
		isLow, isHigh := true, true
		for j := i - window; j <= i+window; j++ {
			if candles[j].Low < candles[i].Low {
				isLow = false
			}
			if candles[j].High > candles[i].High {
				isHigh = false
			}
		}
		if isLow {
			supports = append(supports, candles[i].Low)
		}
		if isHigh {
			resistances = append(resistances, candles[i].High)
		}
	}

	return dedupeLevels(supports), dedupeLevels(resistances)
}

// dedupeLevels merges levels within 1% of each other.
func dedupeLevels(levels []float64) []float64 {
	var out []float64
	for _, l := range levels {
		merged := false
		for i, existing := range out {
			if math.Abs(l-existing)/existing < 0.01 {
				out[i] = (l + existing) / 2
				merged = true
				break
			}
		}
		if !merged {
			out = append(out, l)
		}
	}
	return out
}
