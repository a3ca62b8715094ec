package features

import (
	"context"
	"math"
	"testing"
	"time"

	"SignalForge/internal/domain/models"
)

func wavy(n int) []models.Candle {
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]models.Candle, n)
	for i := range out {
		c := 100 + 5*math.Sin(float64(i)/6)
		out[i] = models.Candle{
			Time:   t0.Add(time.Duration(i) * time.Hour),
			Open:   c - 0.2,
			High:   c + 1,
			Low:    c - 1,
			Close:  c,
			Volume: 1000 + float64(i%11)*25,
		}
	}
	return out
}

func TestComputeLogReturns(t *testing.T) {
	if r := ComputeLogReturns(wavy(1)); r != nil {
		t.Fatalf("expected nil for a single candle, got %v", r)
	}
	candles := []models.Candle{{Close: 100}, {Close: 110}, {Close: 0}, {Close: 50}}
	r := ComputeLogReturns(candles)
	if len(r) != 3 {
		t.Fatalf("expected 3 returns, got %d", len(r))
	}
	if math.Abs(r[0]-math.Log(1.1)) > 1e-12 {
		t.Fatalf("unexpected first return %v", r[0])
	}
	if r[1] != 0 || r[2] != 0 {
		t.Fatalf("non-positive prices must yield 0, got %v", r)
	}
}

func TestRealizedVolatility(t *testing.T) {
	if v := RealizedVolatility([]float64{0.1}, 5, 100); v != 0 {
		t.Fatalf("short input must be 0, got %v", v)
	}
	flat := []float64{0.5, 0.5, 0.5, 0.5}
	if v := RealizedVolatility(flat, 4, 365); v != 0 {
		t.Fatalf("constant returns have no volatility, got %v", v)
	}
	// sample std of {1,-1,1,-1} is sqrt(4/3)
	v := RealizedVolatility([]float64{5, 1, -1, 1, -1}, 4, 4)
	if math.Abs(v-math.Sqrt(4.0/3.0)*2) > 1e-9 {
		t.Fatalf("unexpected volatility %v", v)
	}
}

func TestBarsPerYearForTF(t *testing.T) {
	cases := map[string]float64{
		"1m":  525600,
		"15m": 35040,
		"1h":  8760,
		"1d":  365,
		"bad": 525600,
	}
	for tf, want := range cases {
		if got := BarsPerYearForTF(tf); got != want {
			t.Fatalf("%s: expected %v, got %v", tf, want, got)
		}
	}
}

func TestRollingMeanStd(t *testing.T) {
	means, stds := RollingMeanStd([]float64{1, 2, 3, 4}, 3)
	if !math.IsNaN(means[0]) || !math.IsNaN(stds[1]) {
		t.Fatalf("warm-up entries must be NaN: %v %v", means, stds)
	}
	if means[2] != 2 || means[3] != 3 {
		t.Fatalf("unexpected means %v", means)
	}
	if stds[2] != 1 || stds[3] != 1 {
		t.Fatalf("unexpected stds %v", stds)
	}
}

func TestTalibProviderComputesAlignedSeries(t *testing.T) {
	p := NewTalibProvider(nil)
	candles := wavy(200)
	ind, err := p.Compute(context.Background(), candles, models.DefaultSignalConfig())
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	names := []string{
		IndRSI, IndStochK, IndStochD, IndWillR, IndCCI, IndMACD, IndMACDSignal, IndMACDHist,
		IndEMAFast, IndEMASlow, IndSMATrend, IndADX, IndBBUpper, IndBBMiddle, IndBBLower,
		IndVolumeSMA, IndOBV, IndOBVSMA, IndATR, IndMomentum, IndRangeLow, IndRangeHigh,
	}
	for _, name := range names {
		if len(ind[name]) != len(candles) {
			t.Fatalf("%s: expected %d values, got %d", name, len(candles), len(ind[name]))
		}
	}
	if !math.IsNaN(ind[IndRSI][0]) {
		t.Fatalf("rsi warm-up must be NaN, got %v", ind[IndRSI][0])
	}
	last := len(candles) - 1
	if v := ind[IndRSI][last]; v < 0 || v > 100 {
		t.Fatalf("rsi out of range: %v", v)
	}
	sum := 0.0
	for i := last - 19; i <= last; i++ {
		sum += candles[i].Close
	}
	if math.Abs(ind[IndBBMiddle][last]-sum/20) > 1e-9 {
		t.Fatalf("bollinger middle must equal the 20-period mean, got %v want %v", ind[IndBBMiddle][last], sum/20)
	}
	if ind[IndBBUpper][last] <= ind[IndBBLower][last] {
		t.Fatalf("bands inverted")
	}
	if ind[IndRangeLow][last] > candles[last].Low || ind[IndRangeHigh][last] < candles[last].High {
		t.Fatalf("range must contain the current candle")
	}
}

func TestTalibProviderEmptyInput(t *testing.T) {
	p := NewTalibProvider(nil)
	ind, err := p.Compute(context.Background(), nil, models.DefaultSignalConfig())
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	for name, s := range ind {
		if len(s) != 0 {
			t.Fatalf("%s: expected empty series, got %d values", name, len(s))
		}
	}
}

func TestTalibProviderCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewTalibProvider(nil).Compute(ctx, wavy(10), models.DefaultSignalConfig()); err == nil {
		t.Fatalf("expected context error")
	}
}

func TestGuardedRecoversPanics(t *testing.T) {
	out, err := guarded(func() [][]float64 {
		var s []float64
		return [][]float64{{s[3]}}
	})
	if err == nil || out != nil {
		t.Fatalf("expected recovered panic, got %v %v", out, err)
	}
}
