package models

// Requests for the HTTP endpoints. Defaults and validation are applied by
// pkg/http ReadAndValidateRequest.

type BacktestRequest struct {
	Coin                string       `json:"coin" validate:"required"`
	Timeframe           string       `json:"timeframe" default:"15m" validate:"required,timeframe"`
	From                string       `json:"from"`
	To                  string       `json:"to"`
	Limit               int          `json:"limit" default:"2000" validate:"gte=0,lte=100000"`
	Candles             []Candle     `json:"candles,omitempty"`
	RequiredSignals     int          `json:"required_signals" default:"2" validate:"gte=1,lte=12"`
	MaxSignals          int          `json:"max_signals" default:"4" validate:"gte=1,lte=12,gtefield=RequiredSignals"`
	MinCombinedStrength float64      `json:"min_combined_strength" default:"100" validate:"gte=0"`
	TargetGainPct       float64      `json:"target_gain_pct" default:"2" validate:"gt=0,lte=100"`
	TimeWindow          string       `json:"time_window" default:"4h" validate:"required,timeframe"`
	Direction           Direction    `json:"direction" default:"long" validate:"oneof=long short"`
	IsRegimeAware       bool         `json:"is_regime_aware"`
	MinOccurrences      int          `json:"min_occurrences" default:"3" validate:"gte=1"`
	Signals             SignalConfig `json:"signals"`
}

// Config converts the request into a run config.
func (r BacktestRequest) Config() BacktestConfig {
	return BacktestConfig{
		Coin:                r.Coin,
		RequiredSignals:     r.RequiredSignals,
		MaxSignals:          r.MaxSignals,
		MinCombinedStrength: r.MinCombinedStrength,
		TargetGainPct:       r.TargetGainPct,
		TimeWindow:          r.TimeWindow,
		Timeframe:           r.Timeframe,
		Direction:           r.Direction,
		IsRegimeAware:       r.IsRegimeAware,
		MinOccurrences:      r.MinOccurrences,
		Signals:             r.Signals,
	}
}

type ScoreSignal struct {
	Type     string  `json:"type" validate:"required"`
	Strength float64 `json:"strength"`
	IsEvent  bool    `json:"is_event"`
}

type ScoreRequest struct {
	Signals    []ScoreSignal  `json:"signals" validate:"required,min=1,dive"`
	Regime     string         `json:"regime" default:"unknown"`
	Confidence float64        `json:"confidence" default:"0.5"`
	Context    *MarketContext `json:"context,omitempty"`
}

// OutcomeRequest reports a realized outcome; strengths feed the quality history.
type OutcomeRequest struct {
	Signals    []ScoreSignal `json:"signals" validate:"required,min=1,dive"`
	Regime     string        `json:"regime" default:"unknown"`
	Successful bool          `json:"successful"`
}

type RunRequest struct {
	ID string `param:"id" validate:"required"`
}
