package backtest

import (
	"math/rand"
	"reflect"
	"testing"

	"SignalForge/internal/domain/models"
)

func TestCombinationsScenario(t *testing.T) {
	combos, considered, _ := Combinations(60, abcSignals(), 2, 3, 80)
	if considered != 4 {
		t.Fatalf("expected 4 subsets considered, got %d", considered)
	}
	want := []struct {
		positions []int
		strength  float64
	}{
		{[]int{0, 1}, 90},
		{[]int{0, 2}, 100},
		{[]int{1, 2}, 110},
		{[]int{0, 1, 2}, 150},
	}
	if len(combos) != len(want) {
		t.Fatalf("expected %d combinations, got %d", len(want), len(combos))
	}
	for i, w := range want {
		if !reflect.DeepEqual(combos[i].Positions, w.positions) || combos[i].CombinedStrength != w.strength {
			t.Fatalf("combination %d: got %v/%v want %v/%v", i, combos[i].Positions, combos[i].CombinedStrength, w.positions, w.strength)
		}
		if combos[i].CandleIndex != 60 {
			t.Fatalf("candle index not carried")
		}
	}
	if combos[0].Signals[0].Type != models.SignalRSI || combos[0].Signals[1].Type != models.SignalMACD {
		t.Fatalf("members must keep detection order: %+v", combos[0].Signals)
	}
}

func TestCombinationsPrunedStillCounted(t *testing.T) {
	signals := []models.Signal{
		{Type: models.SignalRSI, Strength: 10},
		{Type: models.SignalMACD, Strength: 20},
		{Type: models.SignalADX, Strength: 15},
		{Type: models.SignalOBV, Strength: 5},
	}
	combos, considered, pruned := Combinations(0, signals, 2, 4, 1000)
	if len(combos) != 0 {
		t.Fatalf("nothing should qualify")
	}
	if considered != 6+4+1 {
		t.Fatalf("expected 11 considered, got %d", considered)
	}
	if pruned != considered {
		t.Fatalf("every subset should be pruned, got %d of %d", pruned, considered)
	}
}

func binom(n, k int) int64 {
	return binomial(n, k)
}

func TestCombinationsMatchBruteForce(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for iter := 0; iter < 400; iter++ {
		n := rng.Intn(10)
		signals := make([]models.Signal, n)
		for i := range signals {
			signals[i] = models.Signal{Type: models.AllSignalTypes[rng.Intn(len(models.AllSignalTypes))], Strength: float64(rng.Intn(101))}
		}
		required := 1 + rng.Intn(4)
		max := required + rng.Intn(4)
		minStrength := float64(rng.Intn(300))

		got, considered, _ := Combinations(7, signals, required, max, minStrength)

		var wantConsidered int64
		hi := max
		if hi > n {
			hi = n
		}
		for r := required; r <= hi; r++ {
			wantConsidered += binom(n, r)
		}
		if considered != wantConsidered {
			t.Fatalf("n=%d [%d,%d]: considered %d want %d", n, required, max, considered, wantConsidered)
		}

		var want [][]int
		for r := required; r <= hi; r++ {
			for mask := 0; mask < 1<<n; mask++ {
				var pos []int
				var sum float64
				for i := 0; i < n; i++ {
					if mask&(1<<i) != 0 {
						pos = append(pos, i)
						sum += signals[i].Strength
					}
				}
				if len(pos) == r && sum >= minStrength {
					want = append(want, pos)
				}
			}
		}
		gotSet := make(map[string]bool, len(got))
		for _, c := range got {
			if gotSet[c.Key()] {
				t.Fatalf("duplicate combination %s", c.Key())
			}
			gotSet[c.Key()] = true
		}
		if len(gotSet) != len(want) {
			t.Fatalf("n=%d: got %d combinations, brute force %d", n, len(gotSet), len(want))
		}
		for _, pos := range want {
			c := models.SignalCombination{CandleIndex: 7, Positions: pos}
			if !gotSet[c.Key()] {
				t.Fatalf("missing combination %v", pos)
			}
		}
	}
}

func TestCombinationsBounds(t *testing.T) {
	if c, n, _ := Combinations(0, abcSignals(), 4, 5, 0); c != nil || n != 0 {
		t.Fatalf("required above active count should yield nothing")
	}
	if c, _, _ := Combinations(0, nil, 1, 3, 0); c != nil {
		t.Fatalf("no signals should yield nothing")
	}
}

func TestEnumerateRangeSkipsFailures(t *testing.T) {
	candles := flatCandles(60, 100)
	candles[57].Close = 0
	det := scriptedDetector{
		signals: map[int][]models.Signal{52: abcSignals(), 58: {{Type: "mystery", Strength: 90}, {Type: models.SignalRSI, Strength: 90}}},
		fail:    map[int]bool{55: true},
		panicAt: map[int]bool{56: true},
	}
	e := NewCombinationEnumerator(det, nil)
	res := e.EnumerateRange(models.BacktestInput{Candles: candles}, baseConfig(), 50, 60)

	if res.Stats.CandlesSkipped != 3 || res.Stats.CandlesEvaluated != 7 {
		t.Fatalf("unexpected stats %+v", res.Stats)
	}
	if len(res.Combinations) != 4 {
		t.Fatalf("expected 4 combinations from candle 52, got %d", len(res.Combinations))
	}
	if res.Stats.SignalCounts[models.SignalRSI] != 2 {
		t.Fatalf("unknown types must be dropped before counting: %+v", res.Stats.SignalCounts)
	}
	if res.Combinations[0].Signals[0].Timestamp != candles[52].Time.UnixMilli() {
		t.Fatalf("timestamp should default to candle time")
	}
}
