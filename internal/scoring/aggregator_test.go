package scoring

import (
	"reflect"
	"testing"

	"SignalForge/internal/domain/models"
	"SignalForge/pkg/logger"
)

func actions(recs []models.Recommendation) []string {
	out := make([]string, len(recs))
	for i, r := range recs {
		out[i] = r.Action
	}
	return out
}

func TestScoreEmpty(t *testing.T) {
	a := NewStrengthAggregator(nil, nil)
	res := a.Score(nil, models.RegimeUptrend, 0.9, nil)
	if res.TotalStrength != 0 || res.QualityScore != 0 || len(res.Recommendations) != 0 {
		t.Fatalf("expected zero result, got %+v", res)
	}
}

func TestScoreSingleSignalSteps(t *testing.T) {
	a := NewStrengthAggregator(nil, nil)
	res := a.Score([]models.Signal{sig(models.SignalRSI, 50)}, models.RegimeUnknown, 0.5, nil)

	b := res.Breakdown
	approx(t, "base", b.Base, 60)
	approx(t, "correlation adjusted", b.CorrelationAdjusted, 60)
	approx(t, "regime adjusted", b.RegimeAdjusted, 60)
	approx(t, "avg quality", b.AvgQuality, 0.5)
	approx(t, "quality adjusted", b.QualityAdjusted, 45)
	approx(t, "diversity", b.DiversityBonus, 0.05)
	approx(t, "total", res.TotalStrength, 47.25)

	want := []string{models.ActionWaitForClarity, models.ActionNeedConfirmation}
	if got := actions(res.Recommendations); !reflect.DeepEqual(got, want) {
		t.Fatalf("recommendations: got %v want %v", got, want)
	}
}

func TestScoreBonusIsReportOnly(t *testing.T) {
	a := NewStrengthAggregator(nil, nil)
	signals := []models.Signal{sig(models.SignalBollinger, 70), sig(models.SignalADX, 80), sig(models.SignalRSI, 60)}
	res := a.Score(signals, models.RegimeUnknown, 0.9, nil)

	b := res.Breakdown
	approx(t, "bonus", b.CorrelationBonus, 0.224)
	approx(t, "correlation adjusted ignores bonus", b.CorrelationAdjusted, b.Base*(1-b.CorrelationPenalty))
	approx(t, "total", res.TotalStrength, b.QualityAdjusted*(1+b.SynergyBonus)*(1+b.DiversityBonus)*(1+b.LearningAdjustment))

	found := false
	for _, r := range res.Recommendations {
		if r.Action == models.ActionComplementarySignals {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected complementary_signals recommendation, got %v", actions(res.Recommendations))
	}
}

func TestScoreDeterministic(t *testing.T) {
	tracker := NewPerformanceTracker(0)
	for i := 0; i < 20; i++ {
		tracker.RecordOutcome([]models.Signal{sig(models.SignalMACD, float64(40+i)), sig(models.SignalRSI, 55)}, models.RegimeUptrend, i%3 != 0)
	}
	a := NewStrengthAggregator(tracker, nil)
	signals := []models.Signal{sig(models.SignalMACD, 72), sig(models.SignalRSI, 35), sig(models.SignalVolumeSpike, 88)}
	ctx := &models.MarketContext{Trend: "bullish", VolumeRatio: 2}

	first := a.Score(signals, models.RegimeUptrend, 0.75, ctx)
	for i := 0; i < 5; i++ {
		if next := a.Score(signals, models.RegimeUptrend, 0.75, ctx); !reflect.DeepEqual(first, next) {
			t.Fatalf("score is not deterministic:\n%+v\n%+v", first, next)
		}
	}
}

func TestLearningAdjustment(t *testing.T) {
	tracker := NewPerformanceTracker(0)
	a := NewStrengthAggregator(tracker, nil, WithLearning(10, 0.1))
	signals := []models.Signal{sig(models.SignalRSI, 50)}

	for i := 0; i < 9; i++ {
		a.RecordOutcome(signals, models.RegimeUptrend, true)
	}
	res := a.Score(signals, models.RegimeUptrend, 0.5, nil)
	approx(t, "below min samples", res.Breakdown.LearningAdjustment, 0)

	for i := 0; i < 3; i++ {
		a.RecordOutcome(signals, models.RegimeUptrend, false)
	}
	res = a.Score(signals, models.RegimeUptrend, 0.5, nil)
	approx(t, "learning", res.Breakdown.LearningAdjustment, 0.05)
}

func TestInvalidInputsWarnButCompute(t *testing.T) {
	log := logger.Nop()
	c := logger.NewCollector(nil)
	a := NewStrengthAggregator(nil, log, WithCollector(c))

	res := a.Score([]models.Signal{sig(models.SignalRSI, 150), sig("laser", 50)}, models.RegimeUnknown, 1.4, nil)
	if len(res.Warnings) != 3 {
		t.Fatalf("expected 3 warnings, got %v", res.Warnings)
	}
	if res.TotalStrength <= 0 {
		t.Fatalf("computation should proceed with literal values, got %f", res.TotalStrength)
	}
	if len(a.Diagnostics()) != 3 {
		t.Fatalf("expected 3 collected diagnostics, got %d", len(a.Diagnostics()))
	}

	a.Score([]models.Signal{sig(models.SignalRSI, 150), sig("laser", 50)}, models.RegimeUnknown, 1.4, nil)
	if len(a.Diagnostics()) != 3 {
		t.Fatalf("repeated warnings must be deduplicated")
	}
	a.Reset()
	if len(a.Diagnostics()) != 0 {
		t.Fatalf("reset should clear diagnostics")
	}
}

func TestGuardSubstitutesFallback(t *testing.T) {
	a := NewStrengthAggregator(nil, nil)
	v := a.guard("boom", 0.5, func() float64 {
		var m map[string]float64
		m["x"] = 1
		return 1
	})
	approx(t, "fallback", v, 0.5)
	if len(a.Diagnostics()) != 1 {
		t.Fatalf("expected failure to be collected")
	}
}

func TestInstancesDoNotShareDiagnostics(t *testing.T) {
	a := NewStrengthAggregator(nil, nil)
	b := NewStrengthAggregator(nil, nil)
	a.Correlation().Correlation(models.SignalMACD, models.SignalVolumeSpike)
	if len(a.Diagnostics()) != 1 || len(b.Diagnostics()) != 0 {
		t.Fatalf("diagnostics leaked between instances")
	}
}
