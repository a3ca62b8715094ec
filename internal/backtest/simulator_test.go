package backtest

import (
	"errors"
	"math"
	"testing"

	"SignalForge/internal/domain/models"
)

func approxEq(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func longParams() SimParams {
	return SimParams{TargetGainPct: 2, WindowCandles: 16, Direction: models.DirectionLong}
}

func TestResolveSimParams(t *testing.T) {
	p, err := ResolveSimParams(baseConfig())
	if err != nil || p.WindowCandles != 16 {
		t.Fatalf("got %+v, %v", p, err)
	}
	cfg := baseConfig()
	cfg.Timeframe = "15x"
	if _, err := ResolveSimParams(cfg); !errors.Is(err, ErrInvalidTimeframe) {
		t.Fatalf("expected ErrInvalidTimeframe, got %v", err)
	}
}

func TestSimulateLongHit(t *testing.T) {
	candles := flatCandles(100, 100)
	candles[61].Low = 98.5
	candles[62].High = 103
	candles[62].Low = 97

	m := NewOutcomeSimulator().Simulate(models.SignalCombination{CandleIndex: 60}, candles, longParams())
	if !m.TargetHit || !m.Successful {
		t.Fatalf("expected successful hit: %+v", m)
	}
	if !approxEq(m.PriceMove, 2-RoundTripCostPct) {
		t.Fatalf("fill must be at target net of costs, got %f", m.PriceMove)
	}
	if m.TimeToPeak == nil || *m.TimeToPeak != 2*15*60*1000 {
		t.Fatalf("unexpected time to peak %v", m.TimeToPeak)
	}
	if !approxEq(m.MaxDrawdown, -3) {
		t.Fatalf("drawdown must include the hit candle, got %f", m.MaxDrawdown)
	}
	if m.EntryPrice != 100 {
		t.Fatalf("entry price must be the entry close")
	}
}

func TestSimulateShortHit(t *testing.T) {
	candles := flatCandles(100, 100)
	candles[63].Low = 97.5
	candles[61].High = 101

	p := longParams()
	p.Direction = models.DirectionShort
	m := NewOutcomeSimulator().Simulate(models.SignalCombination{CandleIndex: 60}, candles, p)
	if !m.TargetHit || !m.Successful {
		t.Fatalf("expected short hit: %+v", m)
	}
	if !approxEq(m.MaxDrawdown, -1) {
		t.Fatalf("short drawdown from highs, got %f", m.MaxDrawdown)
	}
}

func TestSimulateTimeout(t *testing.T) {
	candles := flatCandles(100, 100)
	candles[76].Close = 101

	m := NewOutcomeSimulator().Simulate(models.SignalCombination{CandleIndex: 60}, candles, longParams())
	if m.TargetHit || m.Successful || m.TimeToPeak != nil {
		t.Fatalf("expected timeout: %+v", m)
	}
	if !approxEq(m.PriceMove, 1-RoundTripCostPct) {
		t.Fatalf("timeout uses the last window close, got %f", m.PriceMove)
	}
	if m.MaxDrawdown > 0 {
		t.Fatalf("drawdown must never be positive")
	}
}

func TestSimulateHitEatenByCosts(t *testing.T) {
	candles := flatCandles(100, 100)
	candles[61].High = 100.3
	p := SimParams{TargetGainPct: 0.2, WindowCandles: 4, Direction: models.DirectionLong}

	m := NewOutcomeSimulator().Simulate(models.SignalCombination{CandleIndex: 60}, candles, p)
	if !m.TargetHit {
		t.Fatalf("target should be hit")
	}
	if m.Successful || m.PriceMove > 0 {
		t.Fatalf("a hit that loses after costs is not successful: %+v", m)
	}
}

func TestSimulateNoForwardCandles(t *testing.T) {
	candles := flatCandles(61, 100)
	m := NewOutcomeSimulator().Simulate(models.SignalCombination{CandleIndex: 60}, candles, longParams())
	if m.TargetHit || m.TimeToPeak != nil || !approxEq(m.PriceMove, -RoundTripCostPct) {
		t.Fatalf("unexpected outcome without forward candles: %+v", m)
	}
}

func TestSimulateOutcomeConsistency(t *testing.T) {
	candles := wavyCandles(400)
	sim := NewOutcomeSimulator()
	for _, dir := range []models.Direction{models.DirectionLong, models.DirectionShort} {
		p := SimParams{TargetGainPct: 1.5, WindowCandles: 8, Direction: dir}
		for i := 0; i < len(candles); i++ {
			m := sim.Simulate(models.SignalCombination{CandleIndex: i}, candles, p)
			if m.Successful && m.PriceMove <= 0 {
				t.Fatalf("successful match with non-positive move at %d", i)
			}
			if m.TimeToPeak != nil && !m.TargetHit {
				t.Fatalf("time to peak without hit at %d", i)
			}
			if m.TimeToPeak != nil && *m.TimeToPeak > int64(p.WindowCandles)*15*60*1000 {
				t.Fatalf("hit after window end at %d", i)
			}
			if m.MaxDrawdown > 0 {
				t.Fatalf("positive drawdown at %d", i)
			}
		}
	}
}
