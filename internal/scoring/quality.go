package scoring

import (
	"math"
	"strings"

	"SignalForge/internal/domain/models"
)

type signalFamily int

const (
	familyReversion signalFamily = iota
	familyTrend
	familyFlow
)

var families = map[models.SignalType]signalFamily{
	models.SignalRSI:                familyReversion,
	models.SignalStochastic:         familyReversion,
	models.SignalWilliamsR:          familyReversion,
	models.SignalCCI:                familyReversion,
	models.SignalBollinger:          familyReversion,
	models.SignalSupportResistance:  familyReversion,
	models.SignalMACD:               familyTrend,
	models.SignalEMACross:           familyTrend,
	models.SignalSMATrend:           familyTrend,
	models.SignalADX:                familyTrend,
	models.SignalMomentum:           familyTrend,
	models.SignalOBV:                familyTrend,
	models.SignalVolumeSpike:        familyFlow,
	models.SignalVolatilityBreakout: familyFlow,
}

const (
	qualityStrengthWeight    = 0.30
	qualityConsistencyWeight = 0.20
	qualityAlignmentWeight   = 0.25
	qualityRecentWeight      = 0.25
)

// QualityScorer rates a single signal in [0,1] from its strength history,
// its consistency, the market context and the recent success of its type.
type QualityScorer struct {
	tracker *PerformanceTracker
}

func NewQualityScorer(tracker *PerformanceTracker) *QualityScorer {
	if tracker == nil {
		tracker = NewPerformanceTracker(0)
	}
	return &QualityScorer{tracker: tracker}
}

func (q *QualityScorer) Score(s models.Signal, ctx *models.MarketContext) float64 {
	history := q.tracker.StrengthHistory(s.Type)
	recent, n := q.tracker.RecentRate(s.Type)
	if n == 0 {
		recent = neutralRate
	}
	score := qualityStrengthWeight*strengthRatio(s.Strength, history) +
		qualityConsistencyWeight*consistency(history) +
		qualityAlignmentWeight*alignment(s.Type, ctx) +
		qualityRecentWeight*recent
	return clamp(score, 0, 1)
}

// strengthRatio compares strength to the historical mean, capped at 2x and
// scaled into [0,1].
func strengthRatio(strength float64, history []float64) float64 {
	mean, _ := meanStd(history)
	if len(history) == 0 || mean <= 0 {
		return neutralRate
	}
	return clamp(math.Min(strength/mean, 2)/2, 0, 1)
}

func consistency(history []float64) float64 {
	if len(history) < 2 {
		return neutralRate
	}
	mean, std := meanStd(history)
	if mean <= 0 {
		return neutralRate
	}
	return clamp(1-std/mean, 0, 1)
}

func alignment(t models.SignalType, ctx *models.MarketContext) float64 {
	if ctx == nil {
		return neutralRate
	}
	fam, ok := families[t]
	if !ok {
		return neutralRate
	}
	trend := strings.ToLower(ctx.Trend)
	switch fam {
	case familyTrend:
		switch trend {
		case "bullish":
			return 1.0
		case "bearish":
			return 0.2
		case "neutral":
			return 0.5
		}
	case familyReversion:
		switch trend {
		case "neutral":
			return 0.8
		case "bullish":
			return 0.6
		case "bearish":
			return 0.4
		}
	case familyFlow:
		if ctx.VolumeRatio > 0 {
			if ctx.VolumeRatio >= 1.5 {
				return 0.9
			}
			return 0.4
		}
	}
	return neutralRate
}

func meanStd(xs []float64) (float64, float64) {
	if len(xs) == 0 {
		return 0, 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	mean := sum / float64(len(xs))
	var ss float64
	for _, x := range xs {
		ss += (x - mean) * (x - mean)
	}
	return mean, math.Sqrt(ss / float64(len(xs)))
}
