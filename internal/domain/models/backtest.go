package models

import "time"

type Direction string

const (
	DirectionLong  Direction = "long"
	DirectionShort Direction = "short"
)

// BacktestConfig drives one backtest run.
type BacktestConfig struct {
	Coin                string       `json:"coin"`
	RequiredSignals     int          `json:"required_signals"`
	MaxSignals          int          `json:"max_signals"`
	MinCombinedStrength float64      `json:"min_combined_strength"`
	TargetGainPct       float64      `json:"target_gain_pct"`
	TimeWindow          string       `json:"time_window"`
	Timeframe           string       `json:"timeframe"`
	Direction           Direction    `json:"direction"`
	IsRegimeAware       bool         `json:"is_regime_aware"`
	MinOccurrences      int          `json:"min_occurrences"`
	Signals             SignalConfig `json:"signals"`
}

// BacktestInput holds the materialized inputs of a run.
type BacktestInput struct {
	Candles    []Candle
	Indicators Indicators
	Regimes    RegimeHistory
}

// BacktestSummary counts what a run did. It carries no wall-clock values so
// repeated runs over the same input produce identical summaries.
type BacktestSummary struct {
	CandlesEvaluated  int     `json:"candles_evaluated"`
	CandlesSkipped    int     `json:"candles_skipped"`
	SignalsDetected   int     `json:"signals_detected"`
	SubsetsConsidered int64   `json:"subsets_considered"`
	SubsetsPruned     int64   `json:"subsets_pruned"`
	CombinationsKept  int     `json:"combinations_kept"`
	DuplicatesDropped int     `json:"duplicates_dropped"`
	TotalMatches      int     `json:"total_matches"`
	SuccessfulMatches int     `json:"successful_matches"`
	SuccessRate       float64 `json:"success_rate"`
	AvgPriceMove      float64 `json:"avg_price_move"`
	WindowCandles     int     `json:"window_candles"`
	Chunks            int     `json:"chunks"`
}

type BacktestResult struct {
	RunID        string             `json:"run_id"`
	Matches      []Match            `json:"matches"`
	Summary      BacktestSummary    `json:"summary"`
	SignalCounts map[SignalType]int `json:"signal_counts"`
	Strategies   *AggregateResult   `json:"strategies,omitempty"`
}

type RunState string

const (
	RunQueued    RunState = "queued"
	RunRunning   RunState = "running"
	RunCompleted RunState = "completed"
	RunFailed    RunState = "failed"
)

// RunStatus tracks an asynchronous backtest.
type RunStatus struct {
	RunID     string          `json:"run_id"`
	State     RunState        `json:"state"`
	Phase     string          `json:"phase,omitempty"`
	Error     string          `json:"error,omitempty"`
	Result    *BacktestResult `json:"result,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}
