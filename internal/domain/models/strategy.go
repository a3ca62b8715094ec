package models

// Percentiles of time-to-peak in milliseconds.
type Percentiles struct {
	P50 int64 `json:"p50"`
	P75 int64 `json:"p75"`
	P80 int64 `json:"p80"`
	P85 int64 `json:"p85"`
	P95 int64 `json:"p95"`
}

// Strategy aggregates matches sharing coin, signal types and regime.
type Strategy struct {
	Coin               string       `json:"coin"`
	Signals            []SignalType `json:"signals"`
	Key                string       `json:"key"`
	Regime             Regime       `json:"regime"`
	Occurrences        int          `json:"occurrences"`
	Successes          int          `json:"successes"`
	SuccessRate        float64      `json:"success_rate"`
	AvgPriceMove       float64      `json:"avg_price_move"`
	GrossProfit        float64      `json:"gross_profit"`
	GrossLoss          float64      `json:"gross_loss"`
	AvgProfit          float64      `json:"avg_profit"`
	AvgLoss            float64      `json:"avg_loss"`
	ProfitFactor       float64      `json:"profit_factor"`
	MedianDrawdown     *float64     `json:"median_drawdown"`
	TimeToPeak         *Percentiles `json:"time_to_peak"`
	ProfitabilityScore float64      `json:"profitability_score"`
	AvgStrength        float64      `json:"avg_combined_strength"`
	CompositeStrength  float64      `json:"composite_strength"`
}

// AggregateResult is the ranked output of one aggregation pass.
type AggregateResult struct {
	ProcessedCombinations   []Strategy `json:"processed_combinations"`
	TotalCombinationsTested int        `json:"total_combinations_tested"`
}
