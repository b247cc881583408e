package marketdata

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// flatCandles returns n identical candles at the given price.
func flatCandles(n int, price float64) []Candle {
	candles := make([]Candle, n)
	for i := range candles {
		candles[i] = Candle{Open: price, High: price, Low: price, Close: price, Volume: 1000}
	}
	return candles
}

// trendCandles returns n candles climbing by step per day.
func trendCandles(n int, start, step float64) []Candle {
	candles := make([]Candle, n)
	price := start
	for i := range candles {
		candles[i] = Candle{
			Open:   price,
			High:   price + math.Abs(step),
			Low:    price - math.Abs(step),
			Close:  price + step/2,
			Volume: 1000,
		}
		price += step
	}
	return candles
}

func TestSMA(t *testing.T) {
	closes := []float64{1, 2, 3, 4, 5}

	v, ok := sma(closes, 5)
	require.True(t, ok)
	assert.InDelta(t, 3.0, v, 1e-9)

	v, ok = sma(closes, 2)
	require.True(t, ok)
	assert.InDelta(t, 4.5, v, 1e-9)

	_, ok = sma(closes, 6)
	assert.False(t, ok)
}

func TestRSIBounds(t *testing.T) {
	up := make([]float64, 20)
	for i := range up {
		up[i] = 100 + float64(i)
	}
	v, ok := rsi(up, 14)
	require.True(t, ok)
	assert.InDelta(t, 100.0, v, 1e-9) // all gains, no losses

	down := make([]float64, 20)
	for i := range down {
		down[i] = 100 - float64(i)
	}
	v, ok = rsi(down, 14)
	require.True(t, ok)
	assert.InDelta(t, 0.0, v, 1e-9)

	_, ok = rsi([]float64{1, 2, 3}, 14)
	assert.False(t, ok)
}

func TestBollingerFlatSeries(t *testing.T) {
	closes := make([]float64, 30)
	for i := range closes {
		closes[i] = 50
	}

	upper, middle, lower, ok := bollinger(closes, 20, 2.0)
	require.True(t, ok)
	assert.InDelta(t, 50.0, middle, 1e-9)
	assert.InDelta(t, 50.0, upper, 1e-9)
	assert.InDelta(t, 50.0, lower, 1e-9)
}

func TestBollingerBandOrdering(t *testing.T) {
	closes := []float64{48, 52, 49, 51, 50, 47, 53, 50, 49, 51, 48, 52, 50, 49, 51, 50, 48, 52, 49, 51}

	upper, middle, lower, ok := bollinger(closes, 20, 2.0)
	require.True(t, ok)
	assert.Greater(t, upper, middle)
	assert.Less(t, lower, middle)
}

func TestComputeIndicatorsShortSeries(t *testing.T) {
	set := ComputeIndicators(flatCandles(5, 100))

	assert.Nil(t, set.RSI)
	assert.Nil(t, set.MA20)
	assert.Nil(t, set.MACD)
	assert.Empty(t, set.Supports)
}

func TestComputeIndicatorsFullSeries(t *testing.T) {
	set := ComputeIndicators(trendCandles(250, 100, 0.5))

	require.NotNil(t, set.RSI)
	require.NotNil(t, set.MA20)
	require.NotNil(t, set.MA50)
	require.NotNil(t, set.MA200)
	require.NotNil(t, set.MACD)
	require.NotNil(t, set.BollUpper)
	require.NotNil(t, set.ADX)
	require.NotNil(t, set.StochasticK)
	require.NotNil(t, set.CCI)

	// A steady uptrend reads bullish: short MA above long, RSI elevated.
	assert.Greater(t, *set.MA20, *set.MA200)
	assert.Greater(t, *set.RSI, 50.0)
	assert.Greater(t, *set.PlusDI, *set.MinusDI)
}

func TestMACDSignalUsesNinePoints(t *testing.T) {
	closes := make([]float64, 60)
	for i := range closes {
		closes[i] = 100 + float64(i)*0.5 + math.Sin(float64(i))*2
	}

	macd, signal, ok := macdLine(closes)
	require.True(t, ok)

	// The signal line averages the MACD of the last nine windows ending at
	// the final close.
	var series []float64
	for i := len(closes) - 8; i <= len(closes); i++ {
		e12, _ := ema(closes[:i], 12)
		e26, _ := ema(closes[:i], 26)
		series = append(series, e12-e26)
	}
	require.Len(t, series, 9)

	var sum float64
	for _, m := range series {
		sum += m
	}

	assert.InDelta(t, series[8], macd, 1e-9)
	assert.InDelta(t, sum/9, signal, 1e-9)
}

func TestMACDShortSeries(t *testing.T) {
	_, _, ok := macdLine(make([]float64, 30))
	assert.False(t, ok)
}

func TestSupportResistancePivots(t *testing.T) {
	// Build a series with a clear valley and peak.
	candles := flatCandles(30, 100)
	for i := 8; i <= 12; i++ {
		dip := 100 - float64(5-absInt(i-10))
		candles[i] = Candle{Open: dip, High: dip + 0.5, Low: dip - 0.5, Close: dip, Volume: 1000}
	}
	for i := 18; i <= 22; i++ {
		peak := 100 + float64(5-absInt(i-20))
		candles[i] = Candle{Open: peak, High: peak + 0.5, Low: peak - 0.5, Close: peak, Volume: 1000}
	}

	supports, resistances := supportResistance(candles, 5)

	require.NotEmpty(t, supports)
	require.NotEmpty(t, resistances)

	// The valley shows up among the supports, the peak among resistances.
	// Flat stretches also qualify as pivots, so check extremes, not order.
	minSupport := supports[0]
	for _, s := range supports[1:] {
		minSupport = math.Min(minSupport, s)
	}
	maxResistance := resistances[0]
	for _, r := range resistances[1:] {
		maxResistance = math.Max(maxResistance, r)
	}
	assert.Less(t, minSupport, 100.0)
	assert.Greater(t, maxResistance, 100.0)
}

func TestDedupeLevelsMergesNearby(t *testing.T) {
	out := dedupeLevels([]float64{100, 100.5, 120})
	assert.Len(t, out, 2)
	assert.InDelta(t, 100.25, out[0], 1e-9)
	assert.InDelta(t, 120.0, out[1], 1e-9)
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
