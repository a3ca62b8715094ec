package scoring

import (
	"strings"

	"SignalForge/internal/domain/models"
)

var lowerSignalNames = func() map[string]string {
	m := make(map[string]string, len(signalTypeMapping)*2)
	for t, name := range signalTypeMapping {
		m[string(t)] = name
		m[strings.ToLower(name)] = name
	}
	return m
}()

// RegimeContextModel scales signal weights by how well a signal type works
// in a regime and by recent regime performance.
type RegimeContextModel struct {
	tracker *PerformanceTracker
}

func NewRegimeContextModel(tracker *PerformanceTracker) *RegimeContextModel {
	if tracker == nil {
		tracker = NewPerformanceTracker(0)
	}
	return &RegimeContextModel{tracker: tracker}
}

// Effectiveness returns the table multiplier for a signal type in a regime.
// Type and regime match case-insensitively; unmapped values give 1.0.
func (m *RegimeContextModel) Effectiveness(signalType models.SignalType, regime models.Regime) float64 {
	name, ok := lowerSignalNames[strings.ToLower(strings.TrimSpace(string(signalType)))]
	if !ok {
		return 1.0
	}
	table, ok := regimeWeights[models.Regime(strings.ToLower(string(regime)))]
	if !ok {
		return 1.0
	}
	if w, ok := table[name]; ok {
		return w
	}
	return 1.0
}

// ConfidenceMultiplier bands regime confidence.
func (m *RegimeContextModel) ConfidenceMultiplier(confidence float64) float64 {
	switch {
	case confidence >= 0.8:
		return 1.2
	case confidence >= 0.6:
		return 1.1
	case confidence >= 0.4:
		return 1.0
	default:
		return 0.9
	}
}

// ContextBonus is the scaled average effectiveness above 1.0, never negative.
func (m *RegimeContextModel) ContextBonus(signals []models.Signal, regime models.Regime, confidence float64) float64 {
	if len(signals) == 0 {
		return 0
	}
	var sum float64
	for _, s := range signals {
		sum += m.Effectiveness(s.Type, regime)
	}
	avg := sum / float64(len(signals))
	bonus := (avg - 1.0) * contextBonusScale * m.ConfidenceMultiplier(confidence)
	if bonus < 0 {
		return 0
	}
	return bonus
}

// PerformanceMultiplier reflects the tracked success rate of the regime.
func (m *RegimeContextModel) PerformanceMultiplier(regime models.Regime) float64 {
	rate, _ := m.tracker.RegimeRate(regime)
	switch {
	case rate > 0.6:
		return 1.1
	case rate < 0.4:
		return 0.9
	default:
		return 1.0
	}
}

// RegimeAdjustedWeight = base × effectiveness × confidence multiplier × performance multiplier.
func (m *RegimeContextModel) RegimeAdjustedWeight(signalType models.SignalType, regime models.Regime, confidence, baseWeight float64) float64 {
	return baseWeight *
		m.Effectiveness(signalType, regime) *
		m.ConfidenceMultiplier(confidence) *
		m.PerformanceMultiplier(regime)
}

// UpdateFromTrades feeds prior trades into the shared tracker.
func (m *RegimeContextModel) UpdateFromTrades(trades []models.TradeRecord) int {
	return m.tracker.UpdateFromTrades(trades)
}
