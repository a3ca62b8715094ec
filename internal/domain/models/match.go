package models

import (
	"sort"
	"strconv"
	"strings"
)

// SignalCombination is one subset of the signals active on a candle.
// Positions are the detection-order indices of the members on that candle.
type SignalCombination struct {
	CandleIndex      int      `json:"candle_index"`
	Signals          []Signal `json:"signals"`
	Positions        []int    `json:"positions"`
	CombinedStrength float64  `json:"combined_strength"`
}

// Key identifies the combination within one generation pass.
func (c SignalCombination) Key() string {
	var b strings.Builder
	b.WriteString(strconv.Itoa(c.CandleIndex))
	b.WriteByte(':')
	for i, p := range c.Positions {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Itoa(p))
	}
	return b.String()
}

// Types returns the sorted member types.
func (c SignalCombination) Types() []SignalType {
	out := make([]SignalType, len(c.Signals))
	for i, s := range c.Signals {
		out[i] = s.Type
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// TypesKey joins the sorted member types with "+".
func (c SignalCombination) TypesKey() string {
	types := c.Types()
	parts := make([]string, len(types))
	for i, t := range types {
		parts[i] = string(t)
	}
	return strings.Join(parts, "+")
}

// Match is a combination with its simulated forward outcome.
type Match struct {
	SignalCombination
	Coin             string  `json:"coin"`
	EntryPrice       float64 `json:"entry_price"`
	EntryTime        int64   `json:"entry_time"`
	Successful       bool    `json:"successful"`
	TargetHit        bool    `json:"target_hit"`
	PriceMove        float64 `json:"price_move"`
	TimeToPeak       *int64  `json:"time_to_peak"`
	MaxDrawdown      float64 `json:"max_drawdown"`
	MarketRegime     Regime  `json:"market_regime"`
	RegimeConfidence float64 `json:"regime_confidence"`
}
