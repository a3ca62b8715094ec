package scoring

import (
	"fmt"
	"math"
	"sort"

	"SignalForge/internal/domain/models"
	"SignalForge/pkg/logger"
)

// StrengthAggregator combines the scoring models into one composite strength.
// Each instance owns its diagnostics collector; the tracker may be shared.
type StrengthAggregator struct {
	log          *logger.Logger
	tracker      *PerformanceTracker
	corr         *CorrelationModel
	regime       *RegimeContextModel
	weights      *SignalWeightModel
	quality      *QualityScorer
	minSamples   int
	learningRate float64
}

type Option func(*StrengthAggregator)

// WithLearning sets the sample threshold and rate of the learning adjustment.
func WithLearning(minSamples int, rate float64) Option {
	return func(a *StrengthAggregator) {
		if minSamples > 0 {
			a.minSamples = minSamples
		}
		if rate >= 0 {
			a.learningRate = rate
		}
	}
}

// WithCollector replaces the per-instance diagnostics collector.
func WithCollector(c *logger.Collector) Option {
	return func(a *StrengthAggregator) {
		if c != nil {
			a.log.SetCollector(c)
		}
	}
}

func NewStrengthAggregator(tracker *PerformanceTracker, log *logger.Logger, opts ...Option) *StrengthAggregator {
	if log == nil {
		log = logger.Nop()
	}
	if tracker == nil {
		tracker = NewPerformanceTracker(0)
	}
	l := log.With(logger.String("component", "strength_aggregator"))
	l.SetCollector(logger.NewCollector(nil))

	a := &StrengthAggregator{
		log:          l,
		tracker:      tracker,
		minSamples:   defaultMinSamples,
		learningRate: defaultLearningRate,
	}
	for _, opt := range opts {
		opt(a)
	}
	a.corr = NewCorrelationModel(a.log)
	a.regime = NewRegimeContextModel(tracker)
	a.weights = NewSignalWeightModel(a.regime)
	a.quality = NewQualityScorer(tracker)
	return a
}

func (a *StrengthAggregator) Tracker() *PerformanceTracker { return a.tracker }
func (a *StrengthAggregator) Correlation() *CorrelationModel { return a.corr }
func (a *StrengthAggregator) Regime() *RegimeContextModel { return a.regime }
func (a *StrengthAggregator) Weights() *SignalWeightModel { return a.weights }

// Diagnostics returns the deduplicated diagnostics seen by this instance.
func (a *StrengthAggregator) Diagnostics() []logger.AggregatedLogEntry {
	return a.log.Collector().Snapshot()
}

// Reset clears the diagnostics collector and the learning state.
func (a *StrengthAggregator) Reset() {
	a.log.Collector().Reset()
	a.tracker.Reset()
}

// RecordOutcome feeds an observed outcome into the learning state.
func (a *StrengthAggregator) RecordOutcome(signals []models.Signal, regime models.Regime, success bool) {
	a.tracker.RecordOutcome(signals, regime, success)
}

// Score never fails: a failing step is replaced by 0 for additive terms and
// 0.5 for quality. The correlation bonus is reported but not applied.
func (a *StrengthAggregator) Score(signals []models.Signal, regime models.Regime, confidence float64, ctx *models.MarketContext) models.ScoreResult {
	res := models.ScoreResult{Recommendations: []models.Recommendation{}}
	if len(signals) == 0 {
		res.Breakdown.Signals = []models.SignalContribution{}
		return res
	}
	res.Warnings = a.validate(signals, confidence)

	b := &res.Breakdown
	b.Signals = make([]models.SignalContribution, len(signals))
	for i, s := range signals {
		b.Signals[i] = models.SignalContribution{Type: s.Type, Strength: s.Strength}
	}

	// 1. weighted strengths
	b.Base = a.guard("weighted_strength", 0, func() float64 {
		var sum float64
		for i, s := range signals {
			w := a.weights.WeightedStrength(s, regime, confidence)
			b.Signals[i].ImportanceWeight = a.weights.ImportanceWeight(s.Type)
			b.Signals[i].QualityWeight = a.weights.QualityWeight(s.Strength)
			b.Signals[i].Weighted = w
			sum += w
		}
		return sum
	})

	// 2. correlation
	b.CorrelationPenalty = a.guard("correlation_penalty", 0, func() float64 { return a.corr.Penalty(signals) })
	b.CorrelationBonus = a.guard("correlation_bonus", 0, func() float64 { return a.corr.Bonus(signals) })
	b.CorrelationAdjusted = b.Base * (1 - b.CorrelationPenalty)

	// 3. regime context
	b.ContextBonus = a.guard("context_bonus", 0, func() float64 { return a.regime.ContextBonus(signals, regime, confidence) })
	b.RegimeAdjusted = b.CorrelationAdjusted * (1 + b.ContextBonus)

	// 4. quality
	b.AvgQuality = a.guard("quality", neutralRate, func() float64 {
		var sum float64
		for i, s := range signals {
			q := a.quality.Score(s, ctx)
			b.Signals[i].Quality = q
			sum += q
		}
		return sum / float64(len(signals))
	})
	b.QualityMultiplier = 0.5 + b.AvgQuality*0.5
	b.QualityAdjusted = b.RegimeAdjusted * b.QualityMultiplier

	// 5. synergy and diversity
	b.SynergyBonus = a.guard("synergy_bonus", 0, func() float64 { return a.weights.SynergyBonus(signals) })
	b.DiversityBonus = a.guard("diversity_bonus", 0, func() float64 { return a.weights.DiversityBonus(signals) })
	b.SynergyAdjusted = b.QualityAdjusted * (1 + b.SynergyBonus) * (1 + b.DiversityBonus)

	// 6. learning
	b.LearningAdjustment = a.guard("learning_adjustment", 0, func() float64 { return a.learningAdjustment(signals, regime) })
	res.TotalStrength = b.SynergyAdjusted * (1 + b.LearningAdjustment)
	res.QualityScore = b.AvgQuality

	// 7. recommendations
	res.Recommendations = a.recommend(b, confidence, res.TotalStrength)
	return res
}

func (a *StrengthAggregator) guard(step string, fallback float64, fn func() float64) (v float64) {
	defer func() {
		if r := recover(); r != nil {
			a.log.Error("scoring step failed",
				logger.String("step", step),
				logger.String("panic", fmt.Sprint(r)),
			)
			v = fallback
		}
	}()
	return fn()
}

func (a *StrengthAggregator) validate(signals []models.Signal, confidence float64) []string {
	var warnings []string
	for i, s := range signals {
		if s.Strength < 0 || s.Strength > 100 || math.IsNaN(s.Strength) {
			warnings = append(warnings, fmt.Sprintf("signal %d (%s): strength %.2f outside [0,100]", i, s.Type, s.Strength))
		}
		if s.Type == "" {
			warnings = append(warnings, fmt.Sprintf("signal %d: missing type", i))
		} else if !s.Type.Valid() {
			warnings = append(warnings, fmt.Sprintf("signal %d: unknown type %q", i, s.Type))
		}
	}
	if confidence < 0 || confidence > 1 || math.IsNaN(confidence) {
		warnings = append(warnings, fmt.Sprintf("regime confidence %.2f outside [0,1]", confidence))
	}
	for _, w := range warnings {
		a.log.Diagnostic("score input warning", logger.String("warning", w))
	}
	return warnings
}

// learningAdjustment sums (rate-0.5)×learningRate for every signal type and
// for the regime that has enough samples.
func (a *StrengthAggregator) learningAdjustment(signals []models.Signal, regime models.Regime) float64 {
	types := make([]models.SignalType, 0, len(signals))
	for t := range typeSet(signals) {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })

	var adj float64
	for _, t := range types {
		if rate, n := a.tracker.TypeRate(t); n >= a.minSamples {
			adj += (rate - neutralRate) * a.learningRate
		}
	}
	if rate, n := a.tracker.RegimeRate(regime); n >= a.minSamples {
		adj += (rate - neutralRate) * a.learningRate
	}
	return adj
}

func (a *StrengthAggregator) recommend(b *models.ScoreBreakdown, confidence, total float64) []models.Recommendation {
	recs := []models.Recommendation{}
	if b.CorrelationPenalty > recommendPenalty {
		recs = append(recs, models.Recommendation{
			Action: models.ActionDiversify,
			Reason: "signals are highly correlated",
			Value:  b.CorrelationPenalty,
		})
	}
	if confidence < recommendConfidence {
		recs = append(recs, models.Recommendation{
			Action: models.ActionWaitForClarity,
			Reason: "regime confidence is low",
			Value:  confidence,
		})
	}
	low := 0
	for _, s := range b.Signals {
		if s.Quality < recommendQuality {
			low++
		}
	}
	if low > 0 {
		recs = append(recs, models.Recommendation{
			Action: models.ActionFilterSignals,
			Reason: fmt.Sprintf("%d signal(s) below quality %.1f", low, recommendQuality),
			Value:  float64(low),
		})
	}
	if total < recommendTotalStrength {
		recs = append(recs, models.Recommendation{
			Action: models.ActionNeedConfirmation,
			Reason: "total strength below confirmation level",
			Value:  total,
		})
	}
	if b.CorrelationBonus >= recommendBonus {
		recs = append(recs, models.Recommendation{
			Action: models.ActionComplementarySignals,
			Reason: "negatively correlated signals complement each other",
			Value:  b.CorrelationBonus,
		})
	}
	return recs
}
