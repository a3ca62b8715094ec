package models

import "strings"

type Regime string

const (
	RegimeUptrend   Regime = "uptrend"
	RegimeDowntrend Regime = "downtrend"
	RegimeRanging   Regime = "ranging"
	RegimeUnknown   Regime = "unknown"
	// RegimeAll labels matches of runs that are not regime-aware.
	RegimeAll Regime = "all"
)

// ParseRegime maps free-form labels onto the known regimes; anything else is unknown.
func ParseRegime(s string) Regime {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "uptrend", "up", "bull", "bullish":
		return RegimeUptrend
	case "downtrend", "down", "bear", "bearish":
		return RegimeDowntrend
	case "ranging", "range", "sideways", "quiet":
		return RegimeRanging
	case "all":
		return RegimeAll
	default:
		return RegimeUnknown
	}
}

// RegimeAt is the regime classification of one candle.
type RegimeAt struct {
	Regime     Regime  `json:"regime"`
	Confidence float64 `json:"confidence"`
}

// RegimeHistory is indexed by candle position.
type RegimeHistory []RegimeAt

// At returns the entry for candle i or {unknown, 0} when missing.
func (h RegimeHistory) At(i int) RegimeAt {
	if i < 0 || i >= len(h) || h[i].Regime == "" {
		return RegimeAt{Regime: RegimeUnknown}
	}
	return h[i]
}

// MarketContext describes conditions used for signal quality alignment.
type MarketContext struct {
	Trend       string  `json:"trend,omitempty"` // bullish, bearish, neutral
	Volatility  float64 `json:"volatility,omitempty"`
	VolumeRatio float64 `json:"volume_ratio,omitempty"`
}

// TradeRecord is a completed trade used to update learning state.
type TradeRecord struct {
	Regime  Regime       `json:"regime"`
	Signals []SignalType `json:"signals,omitempty"`
	PnL     *float64     `json:"pnl,omitempty"`
}
