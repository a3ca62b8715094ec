package analytics

import (
	"context"
	"math"
	"testing"
	"time"

	"SignalForge/internal/domain/models"
	"SignalForge/internal/services/features"
)

var t0 = time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

func types(signals []models.Signal) map[models.SignalType]models.Signal {
	out := make(map[models.SignalType]models.Signal, len(signals))
	for _, s := range signals {
		out[s.Type] = s
	}
	return out
}

func TestRuleDetectorOversoldAndCrosses(t *testing.T) {
	nan := math.NaN()
	ind := models.Indicators{
		features.IndRSI:        {35, 20},
		features.IndMACD:       {-1, -0.5},
		features.IndMACDSignal: {-0.8, -0.7},
		features.IndEMAFast:    {99, 101},
		features.IndEMASlow:    {100, 100},
		features.IndADX:        {nan, 30},
		features.IndWillR:      {-50, nan},
	}
	candle := models.Candle{Time: t0, Open: 100, High: 101, Low: 99, Close: 100.5, Volume: 10}
	cfg := models.DefaultSignalConfig()

	got, err := NewRuleDetector().Detect(candle, ind, 1, cfg, models.RegimeAt{})
	if err != nil {
		t.Fatalf("detect: %v", err)
	}
	byType := types(got)

	rsi, ok := byType[models.SignalRSI]
	if !ok || !rsi.IsEvent {
		t.Fatalf("expected rsi cross event, got %+v", got)
	}
	// 50 + (30-20)/30*50
	if math.Abs(rsi.Strength-66.6666666667) > 1e-6 {
		t.Fatalf("unexpected rsi strength %v", rsi.Strength)
	}
	if m := byType[models.SignalMACD]; m.Strength != 70 || !m.IsEvent {
		t.Fatalf("expected bullish macd cross below zero, got %+v", m)
	}
	if e := byType[models.SignalEMACross]; e.Strength != 65 || !e.IsEvent {
		t.Fatalf("expected golden cross, got %+v", e)
	}
	if a := byType[models.SignalADX]; a.Strength != 45 || a.IsEvent {
		t.Fatalf("expected adx state 45, got %+v", a)
	}
	if _, ok := byType[models.SignalWilliamsR]; ok {
		t.Fatalf("NaN indicator must stay silent")
	}
	if _, ok := byType[models.SignalBollinger]; ok {
		t.Fatalf("missing indicator must stay silent")
	}
	for _, s := range got {
		if s.CandleIndex != 1 || s.Timestamp != t0.UnixMilli() {
			t.Fatalf("signal not stamped: %+v", s)
		}
	}
}

func TestRuleDetectorCandleRules(t *testing.T) {
	ind := models.Indicators{
		features.IndVolumeSMA: {100, 100},
		features.IndATR:       {1, 1},
		features.IndRangeLow:  {99.8, 95},
		features.IndMomentum:  {0, 2},
		features.IndSMATrend:  {0, 100},
	}
	candle := models.Candle{Time: t0, Open: 99.9, High: 102, Low: 99.7, Close: 102, Volume: 300}
	got, err := NewRuleDetector().Detect(candle, ind, 1, models.DefaultSignalConfig(), models.RegimeAt{})
	if err != nil {
		t.Fatalf("detect: %v", err)
	}
	byType := types(got)

	// ratio 3, mult 2 -> 50 + 1*20
	if v := byType[models.SignalVolumeSpike]; v.Strength != 70 || !v.IsEvent {
		t.Fatalf("unexpected volume spike %+v", v)
	}
	// range 2.3 > 1.5 atr and close > open
	if b, ok := byType[models.SignalVolatilityBreakout]; !ok || math.Abs(b.Strength-82) > 1e-9 {
		t.Fatalf("unexpected breakout %+v", b)
	}
	// prior range low 99.8, low 99.7 within tolerance, close above
	if _, ok := byType[models.SignalSupportResistance]; !ok {
		t.Fatalf("expected support bounce, got %+v", got)
	}
	// 2 / 100 -> 2% -> 40 + 20
	if m := byType[models.SignalMomentum]; math.Abs(m.Strength-60) > 1e-9 {
		t.Fatalf("unexpected momentum %+v", m)
	}
	// 2% above sma -> 40 + 20
	if s := byType[models.SignalSMATrend]; math.Abs(s.Strength-60) > 1e-9 || s.IsEvent {
		t.Fatalf("unexpected sma trend %+v", s)
	}
}

func TestRuleDetectorRespectsEnabled(t *testing.T) {
	ind := models.Indicators{
		features.IndRSI:       {10},
		features.IndVolumeSMA: {1},
	}
	cfg := models.DefaultSignalConfig()
	cfg.Enabled = []models.SignalType{models.SignalVolumeSpike}
	got, err := NewRuleDetector().Detect(models.Candle{Time: t0, Close: 1, High: 1, Low: 1, Volume: 10}, ind, 0, cfg, models.RegimeAt{})
	if err != nil {
		t.Fatalf("detect: %v", err)
	}
	if len(got) != 1 || got[0].Type != models.SignalVolumeSpike {
		t.Fatalf("expected only volume spike, got %+v", got)
	}
	if got[0].Strength != 100 {
		t.Fatalf("strength must be clamped to 100, got %v", got[0].Strength)
	}
}

func TestRuleDetectorOnComputedIndicators(t *testing.T) {
	candles := make([]models.Candle, 300)
	for i := range candles {
		c := 100 + 8*math.Sin(float64(i)/9)
		candles[i] = models.Candle{
			Time: t0.Add(time.Duration(i) * time.Hour), Open: c - 0.3, High: c + 1.2, Low: c - 1.2, Close: c,
			Volume: 1000 + float64((i*37)%400),
		}
	}
	cfg := models.DefaultSignalConfig()
	ind, err := features.NewTalibProvider(nil).Compute(context.Background(), candles, cfg)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	d := NewRuleDetector()
	total := 0
	for i := range candles {
		got, err := d.Detect(candles[i], ind, i, cfg, models.RegimeAt{})
		if err != nil {
			t.Fatalf("detect %d: %v", i, err)
		}
		for _, s := range got {
			if s.Strength < 0 || s.Strength > 100 || !s.Type.Valid() {
				t.Fatalf("invalid signal %+v", s)
			}
		}
		total += len(got)
	}
	if total == 0 {
		t.Fatalf("expected signals over an oscillating series")
	}
}

func TestLocalRegimeClassifier(t *testing.T) {
	up := make([]models.Candle, 80)
	price := 100.0
	for i := range up {
		price *= 1.001
		up[i] = models.Candle{Close: price}
	}
	c := NewLocalRegimeClassifier(WithRegimeWindow(20))
	hist, err := c.Classify(context.Background(), "BTCUSDT", up)
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if len(hist) != len(up) {
		t.Fatalf("expected %d entries, got %d", len(up), len(hist))
	}
	if hist[19].Regime != models.RegimeUnknown || hist[19].Confidence != 0 {
		t.Fatalf("warm-up must be unknown, got %+v", hist[19])
	}
	if hist[20].Regime != models.RegimeUptrend || hist[79].Confidence != 1 {
		t.Fatalf("steady gains must be an uptrend, got %+v %+v", hist[20], hist[79])
	}

	flat := make([]models.Candle, 30)
	for i := range flat {
		flat[i] = models.Candle{Close: 50}
	}
	hist, _ = c.Classify(context.Background(), "X", flat)
	if hist[25].Regime != models.RegimeRanging {
		t.Fatalf("flat prices must be ranging, got %+v", hist[25])
	}
}

func TestLocalRegimeLabelThresholds(t *testing.T) {
	c := NewLocalRegimeClassifier(WithRegimeWindow(25))
	// t = mean/std*5
	if r := c.label(-0.01, 0.01); r.Regime != models.RegimeDowntrend || r.Confidence != 1 {
		t.Fatalf("t=-5 must be a confident downtrend, got %+v", r)
	}
	if r := c.label(0.003, 0.01); r.Regime != models.RegimeRanging || math.Abs(r.Confidence-0.25) > 1e-9 {
		t.Fatalf("t=1.5 must be ranging at 0.25, got %+v", r)
	}
	if r := c.label(0.006, 0.01); r.Regime != models.RegimeUptrend || math.Abs(r.Confidence-0.75) > 1e-9 {
		t.Fatalf("t=3 must be an uptrend at 0.75, got %+v", r)
	}
}
