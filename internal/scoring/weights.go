package scoring

import (
	"math"

	"SignalForge/internal/domain/models"
)

// SignalWeightModel turns raw strengths into weighted strengths.
type SignalWeightModel struct {
	regime *RegimeContextModel
}

func NewSignalWeightModel(regime *RegimeContextModel) *SignalWeightModel {
	if regime == nil {
		regime = NewRegimeContextModel(nil)
	}
	return &SignalWeightModel{regime: regime}
}

// ImportanceWeight is the static weight of a type, 1.0 when unknown.
func (m *SignalWeightModel) ImportanceWeight(t models.SignalType) float64 {
	if w, ok := importanceWeights[t]; ok {
		return w
	}
	return 1.0
}

// QualityWeight maps raw strength onto a multiplier ladder.
func (m *SignalWeightModel) QualityWeight(strength float64) float64 {
	switch {
	case strength >= 80:
		return 1.3
	case strength >= 60:
		return 1.15
	case strength >= 40:
		return 1.0
	case strength >= 20:
		return 0.8
	default:
		return 0.6
	}
}

// WeightedStrength is floored at 0.
func (m *SignalWeightModel) WeightedStrength(s models.Signal, regime models.Regime, confidence float64) float64 {
	w := m.regime.RegimeAdjustedWeight(s.Type, regime, confidence, m.ImportanceWeight(s.Type))
	return math.Max(0, s.Strength*w*m.QualityWeight(s.Strength))
}

// SynergyBonus adds a fixed amount per complementary pair present.
func (m *SignalWeightModel) SynergyBonus(signals []models.Signal) float64 {
	present := typeSet(signals)
	var bonus float64
	for _, p := range synergyPairs {
		_, okA := present[p.a]
		_, okB := present[p.b]
		if okA && okB {
			bonus += synergyPerPair
		}
	}
	return math.Min(bonus, maxSynergyBonus)
}

// DiversityBonus adds a fixed amount per unique type.
func (m *SignalWeightModel) DiversityBonus(signals []models.Signal) float64 {
	return math.Min(float64(len(typeSet(signals)))*diversityPerType, maxDiversityBonus)
}

func typeSet(signals []models.Signal) map[models.SignalType]struct{} {
	set := make(map[models.SignalType]struct{}, len(signals))
	for _, s := range signals {
		if s.Type != "" {
			set[s.Type] = struct{}{}
		}
	}
	return set
}
