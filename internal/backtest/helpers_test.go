package backtest

import (
	"errors"
	"math"
	"time"

	"SignalForge/internal/domain/models"
)

var t0 = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

func flatCandles(n int, price float64) []models.Candle {
	out := make([]models.Candle, n)
	for i := range out {
		out[i] = models.Candle{
			Time:   t0.Add(time.Duration(i) * 15 * time.Minute),
			Open:   price,
			High:   price * 1.001,
			Low:    price * 0.999,
			Close:  price,
			Volume: 1000,
		}
	}
	return out
}

func wavyCandles(n int) []models.Candle {
	out := make([]models.Candle, n)
	for i := range out {
		c := 100 + 5*math.Sin(float64(i)/7)
		out[i] = models.Candle{
			Time:   t0.Add(time.Duration(i) * 15 * time.Minute),
			Open:   c,
			High:   c * 1.01,
			Low:    c * 0.99,
			Close:  c,
			Volume: 1000 + float64(i%13)*10,
		}
	}
	return out
}

// scriptedDetector returns fixed signals per index and can fail or panic.
type scriptedDetector struct {
	signals map[int][]models.Signal
	fail    map[int]bool
	panicAt map[int]bool
}

func (d scriptedDetector) Detect(_ models.Candle, _ models.Indicators, idx int, _ models.SignalConfig, _ models.RegimeAt) ([]models.Signal, error) {
	if d.panicAt[idx] {
		panic("corrupt indicator series")
	}
	if d.fail[idx] {
		return nil, errors.New("detector unavailable")
	}
	return d.signals[idx], nil
}

// patternDetector emits a deterministic pseudo-random signal set per candle.
type patternDetector struct{}

func (patternDetector) Detect(_ models.Candle, _ models.Indicators, idx int, _ models.SignalConfig, _ models.RegimeAt) ([]models.Signal, error) {
	n := idx % 6
	out := make([]models.Signal, 0, n)
	for j := 0; j < n; j++ {
		out = append(out, models.Signal{
			Type:     models.AllSignalTypes[(idx+j*3)%len(models.AllSignalTypes)],
			Strength: float64((idx*31 + j*17) % 100),
		})
	}
	return out, nil
}

func baseConfig() models.BacktestConfig {
	return models.BacktestConfig{
		Coin:                "BTCUSDT",
		RequiredSignals:     2,
		MaxSignals:          3,
		MinCombinedStrength: 80,
		TargetGainPct:       2,
		TimeWindow:          "4h",
		Timeframe:           "15m",
		Direction:           models.DirectionLong,
		MinOccurrences:      1,
	}
}

func abcSignals() []models.Signal {
	return []models.Signal{
		{Type: models.SignalRSI, Strength: 40},
		{Type: models.SignalMACD, Strength: 50},
		{Type: models.SignalVolumeSpike, Strength: 60},
	}
}
