package features

import (
	"math"

	"SignalForge/internal/domain/models"
	"SignalForge/pkg/util"
)

// ComputeLogReturns computes log returns r_t = ln(C_t / C_{t-1}).
// It returns a slice of length len(candles)-1, or nil if insufficient data.
func ComputeLogReturns(candles []models.Candle) []float64 {
	if len(candles) < 2 {
		return nil
	}
	out := make([]float64, 0, len(candles)-1)
	for i := 1; i < len(candles); i++ {
		prev := candles[i-1].Close
		cur := candles[i].Close
		if prev <= 0 || cur <= 0 {
			out = append(out, 0)
			continue
		}
		out = append(out, math.Log(cur/prev))
	}
	return out
}

// RealizedVolatility computes annualized realized volatility over the last
// window returns using the provided number of bars per year.
func RealizedVolatility(logReturns []float64, window int, barsPerYear float64) float64 {
	if window <= 1 || len(logReturns) < window {
		return 0
	}
	_, std := meanStd(logReturns[len(logReturns)-window:])
	return std * math.Sqrt(barsPerYear)
}

// BarsPerYearForTF returns the number of bars per year for a timeframe.
// Unparseable timeframes count as one-minute bars.
func BarsPerYearForTF(tf string) float64 {
	minutes, err := util.TimeframeMinutes(tf)
	if err != nil {
		minutes = 1
	}
	return 365 * 24 * 60 / float64(minutes)
}

// RollingMeanStd returns the rolling mean and sample standard deviation of xs
// over window values. Entries before the first full window are NaN.
func RollingMeanStd(xs []float64, window int) (means, stds []float64) {
	means = make([]float64, len(xs))
	stds = make([]float64, len(xs))
	for i := range xs {
		if window < 2 || i+1 < window {
			means[i], stds[i] = math.NaN(), math.NaN()
			continue
		}
		means[i], stds[i] = meanStd(xs[i+1-window : i+1])
	}
	return means, stds
}

func meanStd(xs []float64) (float64, float64) {
	n := float64(len(xs))
	if n < 2 {
		return 0, 0
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	mean := sum / n
	ss := 0.0
	for _, x := range xs {
		ss += (x - mean) * (x - mean)
	}
	return mean, math.Sqrt(ss / (n - 1))
}
