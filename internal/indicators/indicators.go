// Package indicators derives the technical metrics the trading decisions use
// from a window of chart candles.
package indicators

import (
	"math"

	"github.com/monthviewsales/solanatracker-trade-bot/internal/models"
)

const (
	emaShortPeriod  = 5
	emaMediumPeriod = 20
	rsiPeriod       = 14
	bbPeriod        = 14
	bbStdDev        = 2
)

// Compute returns the indicator snapshot of the last candle in the window, or
// nil when the window is too short to produce every metric.
func Compute(candles []models.Candle) *models.IndicatorSnapshot {
	if len(candles) < models.MinIndicatorCandles {
		return nil
	}

	closes := make([]float64, len(candles))
	for i, c := range candles {
		closes[i] = c.Close
	}

	emaShort := EMA(closes, emaShortPeriod)
	emaMedium := EMA(closes, emaMediumPeriod)
	rsi := RSI(closes, rsiPeriod)
	bb, ok := Bollinger(closes, bbPeriod, bbStdDev)
	if len(emaShort) == 0 || len(emaMedium) == 0 || math.IsNaN(rsi) || !ok {
		return nil
	}

	return &models.IndicatorSnapshot{
		Price:      closes[len(closes)-1],
		RSI:        rsi,
		EMAShort:   emaShort[len(emaShort)-1],
		EMAMedium:  emaMedium[len(emaMedium)-1],
		BB:         bb,
		TrendBias:  rising(emaMedium),
		WindowSize: len(candles),
	}
}

// EMA returns the exponential moving average series of values, seeded with
// the simple average of the first period values. The result has
// len(values)-period+1 entries, or none when values is shorter than period.
func EMA(values []float64, period int) []float64 {
	if period <= 0 || len(values) < period {
		return nil
	}

	k := 2 / float64(period+1)
	out := make([]float64, 0, len(values)-period+1)

	seed := 0.0
	for _, v := range values[:period] {
		seed += v
	}
	prev := seed / float64(period)
	out = append(out, prev)

	for _, v := range values[period:] {
		prev = v*k + prev*(1-k)
		out = append(out, prev)
	}
	return out
}

// RSI returns Wilder's relative strength index of the last value. It is NaN
// when there are not enough values for one full period of changes.
func RSI(values []float64, period int) float64 {
	if period <= 0 || len(values) < period+1 {
		return math.NaN()
	}

	var gain, loss float64
	for i := 1; i <= period; i++ {
		change := values[i] - values[i-1]
		if change > 0 {
			gain += change
		} else {
			loss -= change
		}
	}
	avgGain := gain / float64(period)
	avgLoss := loss / float64(period)

	for i := period + 1; i < len(values); i++ {
		change := values[i] - values[i-1]
		g, l := 0.0, 0.0
		if change > 0 {
			g = change
		} else {
			l = -change
		}
		avgGain = (avgGain*float64(period-1) + g) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + l) / float64(period)
	}

	switch {
	case avgLoss == 0 && avgGain == 0:
		return 50
	case avgLoss == 0:
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}

// Bollinger returns the bands over the last period values using the
// population standard deviation.
func Bollinger(values []float64, period int, width float64) (models.BollingerBands, bool) {
	if period <= 0 || len(values) < period {
		return models.BollingerBands{}, false
	}

	window := values[len(values)-period:]
	mean := 0.0
	for _, v := range window {
		mean += v
	}
	mean /= float64(period)

	variance := 0.0
	for _, v := range window {
		d := v - mean
		variance += d * d
	}
	sd := math.Sqrt(variance / float64(period))

	return models.BollingerBands{
		Upper:  mean + width*sd,
		Middle: mean,
		Lower:  mean - width*sd,
	}, true
}

// rising reports whether the last value of the series is above the one before it.
func rising(series []float64) bool {
	if len(series) < 2 {
		return false
	}
	return series[len(series)-1] > series[len(series)-2]
}
