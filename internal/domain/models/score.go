package models

// Recommendation actions.
const (
	ActionDiversify            = "diversify"
	ActionWaitForClarity       = "wait_for_clarity"
	ActionFilterSignals        = "filter_signals"
	ActionNeedConfirmation     = "need_confirmation"
	ActionComplementarySignals = "complementary_signals"
)

type Recommendation struct {
	Action string  `json:"action"`
	Reason string  `json:"reason"`
	Value  float64 `json:"value"`
}

// SignalContribution is the per-signal part of a score.
type SignalContribution struct {
	Type             SignalType `json:"type"`
	Strength         float64    `json:"strength"`
	ImportanceWeight float64    `json:"importance_weight"`
	QualityWeight    float64    `json:"quality_weight"`
	Weighted         float64    `json:"weighted"`
	Quality          float64    `json:"quality"`
}

// ScoreBreakdown exposes every intermediate value of a score.
// CorrelationBonus is reported but not applied to the total.
type ScoreBreakdown struct {
	Base                float64              `json:"base"`
	CorrelationPenalty  float64              `json:"correlation_penalty"`
	CorrelationBonus    float64              `json:"correlation_bonus"`
	CorrelationAdjusted float64              `json:"correlation_adjusted"`
	ContextBonus        float64              `json:"context_bonus"`
	RegimeAdjusted      float64              `json:"regime_adjusted"`
	AvgQuality          float64              `json:"avg_quality"`
	QualityMultiplier   float64              `json:"quality_multiplier"`
	QualityAdjusted     float64              `json:"quality_adjusted"`
	SynergyBonus        float64              `json:"synergy_bonus"`
	DiversityBonus      float64              `json:"diversity_bonus"`
	SynergyAdjusted     float64              `json:"synergy_adjusted"`
	LearningAdjustment  float64              `json:"learning_adjustment"`
	Signals             []SignalContribution `json:"signals"`
}

type ScoreResult struct {
	TotalStrength   float64          `json:"total_strength"`
	Breakdown       ScoreBreakdown   `json:"breakdown"`
	QualityScore    float64          `json:"quality_score"`
	Recommendations []Recommendation `json:"recommendations"`
	Warnings        []string         `json:"warnings,omitempty"`
}
