package scoring

import (
	"math/rand"
	"testing"

	"SignalForge/internal/domain/models"
	"SignalForge/pkg/logger"
)

func TestCorrelationSymmetric(t *testing.T) {
	m := NewCorrelationModel(nil)
	for _, a := range models.AllSignalTypes {
		for _, b := range models.AllSignalTypes {
			if m.Correlation(a, b) != m.Correlation(b, a) {
				t.Fatalf("asymmetric correlation for %s/%s", a, b)
			}
			c := m.Correlation(a, b)
			if c < -1 || c > 1 {
				t.Fatalf("correlation out of range for %s/%s: %f", a, b, c)
			}
		}
		if m.Correlation(a, a) != 0 {
			t.Fatalf("identical types must have zero correlation: %s", a)
		}
	}
}

func TestCorrelationPairsUnique(t *testing.T) {
	seen := map[typePair]bool{}
	for _, p := range correlationPairs {
		if seen[typePair{p.a, p.b}] || seen[typePair{p.b, p.a}] {
			t.Fatalf("duplicate correlation pair %s/%s", p.a, p.b)
		}
		if p.a == p.b {
			t.Fatalf("self pair %s", p.a)
		}
		seen[typePair{p.a, p.b}] = true
	}
}

func TestMissingExpectedPairLoggedOnce(t *testing.T) {
	log := logger.Nop()
	c := logger.NewCollector(nil)
	log.SetCollector(c)
	m := NewCorrelationModel(log)

	m.Correlation(models.SignalRSI, models.SignalVolumeSpike)
	m.Correlation(models.SignalVolumeSpike, models.SignalRSI)
	m.Correlation(models.SignalRSI, models.SignalVolumeSpike)
	m.Correlation(models.SignalRSI, models.SignalOBV)

	entries := c.Snapshot()
	if len(entries) != 1 {
		t.Fatalf("expected one deduplicated diagnostic, got %d", len(entries))
	}
	if entries[0].Count != 3 {
		t.Fatalf("expected count 3, got %d", entries[0].Count)
	}
}

func TestPenaltyAndBonus(t *testing.T) {
	m := NewCorrelationModel(nil)

	approx(t, "single", m.Penalty([]models.Signal{sig(models.SignalRSI, 50)}), 0)
	approx(t, "pair", m.Penalty([]models.Signal{sig(models.SignalRSI, 50), sig(models.SignalStochastic, 60)}), 0.085)
	approx(t, "triple", m.Penalty([]models.Signal{
		sig(models.SignalRSI, 50), sig(models.SignalStochastic, 60), sig(models.SignalWilliamsR, 70),
	}), (0.85+0.82+0.90)/3*0.1)
	approx(t, "weak pair", m.Penalty([]models.Signal{sig(models.SignalRSI, 50), sig(models.SignalMACD, 60)}), 0)

	approx(t, "bonus", m.Bonus([]models.Signal{sig(models.SignalBollinger, 50), sig(models.SignalADX, 60)}), 0.12)
	approx(t, "bonus triple", m.Bonus([]models.Signal{
		sig(models.SignalBollinger, 50), sig(models.SignalADX, 60), sig(models.SignalRSI, 40),
	}), 0.224)
}

func TestPenaltyBonusBounds(t *testing.T) {
	m := NewCorrelationModel(nil)
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 500; i++ {
		n := rng.Intn(10)
		signals := make([]models.Signal, n)
		for j := range signals {
			signals[j] = sig(models.AllSignalTypes[rng.Intn(len(models.AllSignalTypes))], rng.Float64()*100)
		}
		if p := m.Penalty(signals); p < 0 || p > 0.25 {
			t.Fatalf("penalty out of bounds: %f", p)
		}
		if b := m.Bonus(signals); b < 0 || b > 0.30 {
			t.Fatalf("bonus out of bounds: %f", b)
		}
		if d := m.DiversityScore(signals); d < 0 || d > 1 {
			t.Fatalf("diversity out of bounds: %f", d)
		}
	}
}

func TestUntypedSignalsSkipped(t *testing.T) {
	m := NewCorrelationModel(nil)
	signals := []models.Signal{sig("", 90), sig(models.SignalRSI, 50), sig(models.SignalStochastic, 60)}
	approx(t, "penalty", m.Penalty(signals), 0.085)
	approx(t, "diversity", m.DiversityScore(signals), 1-0.085)
}

func TestDiversityScoreDuplicates(t *testing.T) {
	m := NewCorrelationModel(nil)
	approx(t, "dupes", m.DiversityScore([]models.Signal{sig(models.SignalRSI, 50), sig(models.SignalRSI, 60)}), 0.5)
}

func TestFilterCorrelated(t *testing.T) {
	m := NewCorrelationModel(nil)
	got := m.FilterCorrelated([]models.Signal{
		sig(models.SignalRSI, 50),
		sig(models.SignalStochastic, 70),
		sig(models.SignalMACD, 60),
		sig(models.SignalRSI, 40),
		sig("", 99),
	}, 0.7)
	if len(got) != 2 {
		t.Fatalf("expected 2 accepted signals, got %+v", got)
	}
	if got[0].Type != models.SignalStochastic || got[1].Type != models.SignalMACD {
		t.Fatalf("unexpected order %+v", got)
	}
}

func TestFilterCorrelatedKeepsInputOrder(t *testing.T) {
	m := NewCorrelationModel(nil)
	got := m.FilterCorrelated([]models.Signal{
		sig(models.SignalMACD, 60),
		sig(models.SignalStochastic, 70),
	}, 0.7)
	if len(got) != 2 || got[0].Type != models.SignalMACD || got[1].Type != models.SignalStochastic {
		t.Fatalf("kept signals must follow input order, got %+v", got)
	}
}
