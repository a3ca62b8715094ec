package backtest

import (
	"fmt"
	"math"

	"SignalForge/internal/domain/models"
	"SignalForge/pkg/util"
)

// ErrInvalidTimeframe aborts a run whose window or timeframe cannot be parsed.
var ErrInvalidTimeframe = util.ErrInvalidTimeframe

// Round-trip cost in percent: two 0.10% fees plus 0.05% slippage.
const (
	FeePct           = 0.10
	SlippagePct      = 0.05
	RoundTripCostPct = 2*FeePct + SlippagePct
)

// SimParams are the resolved inputs of a forward walk.
type SimParams struct {
	TargetGainPct float64
	WindowCandles int
	Direction     models.Direction
}

// ResolveSimParams converts the run config into simulation parameters.
func ResolveSimParams(cfg models.BacktestConfig) (SimParams, error) {
	n, err := util.WindowCandles(cfg.TimeWindow, cfg.Timeframe)
	if err != nil {
		return SimParams{}, fmt.Errorf("resolve window: %w", err)
	}
	dir := cfg.Direction
	if dir != models.DirectionShort {
		dir = models.DirectionLong
	}
	return SimParams{TargetGainPct: math.Abs(cfg.TargetGainPct), WindowCandles: n, Direction: dir}, nil
}

// OutcomeSimulator attaches forward trade outcomes to combinations.
type OutcomeSimulator struct {
	costPct float64
}

func NewOutcomeSimulator() *OutcomeSimulator {
	return &OutcomeSimulator{costPct: RoundTripCostPct}
}

// Simulate walks forward from the entry close for at most WindowCandles
// candles. A hit fills at exactly the target; otherwise the last close in the
// window decides the move. The returned move is net of costs.
func (s *OutcomeSimulator) Simulate(combo models.SignalCombination, candles []models.Candle, p SimParams) models.Match {
	m := models.Match{SignalCombination: combo}
	idx := combo.CandleIndex
	if idx < 0 || idx >= len(candles) {
		m.PriceMove = -s.costPct
		return m
	}
	entry := candles[idx]
	m.EntryPrice = entry.Close
	m.EntryTime = entry.Time.UnixMilli()
	if entry.Close <= 0 {
		m.PriceMove = -s.costPct
		return m
	}

	end := idx + p.WindowCandles
	if end > len(candles)-1 {
		end = len(candles) - 1
	}

	short := p.Direction == models.DirectionShort
	var move, drawdown float64
	for j := idx + 1; j <= end; j++ {
		c := candles[j]
		favorable := pct(c.High, entry.Close)
		adverse := pct(c.Low, entry.Close)
		if short {
			favorable = -pct(c.Low, entry.Close)
			adverse = -pct(c.High, entry.Close)
		}
		if adverse < drawdown {
			drawdown = adverse
		}
		if favorable >= p.TargetGainPct {
			m.TargetHit = true
			move = p.TargetGainPct
			ttp := c.Time.Sub(entry.Time).Milliseconds()
			m.TimeToPeak = &ttp
			break
		}
	}
	if !m.TargetHit && end > idx {
		move = pct(candles[end].Close, entry.Close)
		if short {
			move = -move
		}
	}

	m.MaxDrawdown = drawdown
	m.PriceMove = move - s.costPct
	m.Successful = m.TargetHit && m.PriceMove > 0
	return m
}

func pct(price, entry float64) float64 {
	return (price - entry) / entry * 100
}
