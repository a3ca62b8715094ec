package backtest

import (
	"math"
	"sort"

	"SignalForge/internal/domain/models"
)

const (
	minRealisticLoss = 0.5
	maxProfitFactor  = 20.0
)

var timeToPeakPercentiles = []float64{50, 75, 80, 85, 95}

// Scorer rates a signal set; implemented by scoring.StrengthAggregator.
type Scorer interface {
	Score(signals []models.Signal, regime models.Regime, confidence float64, ctx *models.MarketContext) models.ScoreResult
}

// StatisticalAggregator groups matches into per-regime strategies and ranks them.
type StatisticalAggregator struct {
	scorer Scorer
}

// NewStatisticalAggregator accepts a nil scorer; composite strength is then 0.
func NewStatisticalAggregator(scorer Scorer) *StatisticalAggregator {
	return &StatisticalAggregator{scorer: scorer}
}

type groupKey struct {
	coin  string
	types string
}

// Aggregate groups by (coin, sorted types), splits by regime and keeps the
// regime groups with at least minOccurrences matches.
func (a *StatisticalAggregator) Aggregate(matches []models.Match, minOccurrences int) models.AggregateResult {
	if minOccurrences < 1 {
		minOccurrences = 1
	}
	groups := make(map[groupKey]map[models.Regime][]models.Match)
	for _, m := range matches {
		k := groupKey{coin: m.Coin, types: m.TypesKey()}
		byRegime, ok := groups[k]
		if !ok {
			byRegime = make(map[models.Regime][]models.Match)
			groups[k] = byRegime
		}
		regime := m.MarketRegime
		if regime == "" {
			regime = models.RegimeUnknown
		}
		byRegime[regime] = append(byRegime[regime], m)
	}

	res := models.AggregateResult{
		ProcessedCombinations:   []models.Strategy{},
		TotalCombinationsTested: len(groups),
	}
	for k, byRegime := range groups {
		for regime, ms := range byRegime {
			if len(ms) < minOccurrences {
				continue
			}
			res.ProcessedCombinations = append(res.ProcessedCombinations, a.strategy(k, regime, ms))
		}
	}

	sort.SliceStable(res.ProcessedCombinations, func(i, j int) bool {
		x, y := res.ProcessedCombinations[i], res.ProcessedCombinations[j]
		if x.ProfitabilityScore != y.ProfitabilityScore {
			return x.ProfitabilityScore > y.ProfitabilityScore
		}
		if x.Key != y.Key {
			return x.Key < y.Key
		}
		return x.Regime < y.Regime
	})
	return res
}

func (a *StatisticalAggregator) strategy(k groupKey, regime models.Regime, ms []models.Match) models.Strategy {
	st := models.Strategy{
		Coin:        k.coin,
		Signals:     ms[0].Types(),
		Key:         k.coin + ":" + k.types,
		Regime:      regime,
		Occurrences: len(ms),
	}

	var moveSum, strengthSum float64
	var wins, losses int
	drawdowns := make([]float64, 0, len(ms))
	var peaks []int64
	for _, m := range ms {
		if m.Successful {
			st.Successes++
		}
		moveSum += m.PriceMove
		strengthSum += m.CombinedStrength
		switch {
		case m.PriceMove > 0:
			st.GrossProfit += m.PriceMove
			wins++
		case m.PriceMove < 0:
			st.GrossLoss += m.PriceMove
			losses++
		}
		drawdowns = append(drawdowns, math.Abs(m.MaxDrawdown))
		if m.TimeToPeak != nil {
			peaks = append(peaks, *m.TimeToPeak)
		}
	}
	st.GrossLoss = math.Abs(st.GrossLoss)

	n := float64(len(ms))
	st.SuccessRate = float64(st.Successes) / n * 100
	st.AvgPriceMove = moveSum / n
	st.AvgStrength = strengthSum / n
	if wins > 0 {
		st.AvgProfit = st.GrossProfit / float64(wins)
	}
	if losses > 0 {
		st.AvgLoss = st.GrossLoss / float64(losses)
	}
	st.ProfitFactor = ProfitFactor(st.GrossProfit, st.GrossLoss)
	st.MedianDrawdown = Median(drawdowns)
	st.TimeToPeak = TimeToPeakPercentiles(peaks)
	st.ProfitabilityScore = ProfitabilityScore(st.SuccessRate, st.AvgPriceMove, st.ProfitFactor)

	if a.scorer != nil {
		st.CompositeStrength = a.scorer.Score(representativeSignals(ms), regime, meanConfidence(ms), nil).TotalStrength
	}
	return st
}

// ProfitFactor divides gross profit by gross loss, substituting a minimum
// loss of 0.5 when there is none, capped at 20.
func ProfitFactor(grossProfit, grossLoss float64) float64 {
	if grossProfit <= 0 {
		return 0
	}
	if grossLoss <= 0 {
		grossLoss = minRealisticLoss
	}
	return math.Min(grossProfit/grossLoss, maxProfitFactor)
}

// ProfitabilityScore = sr×0.4 + min(avg×10,100)×0.3 + min(pf×10,100)×0.3.
func ProfitabilityScore(successRate, avgMove, profitFactor float64) float64 {
	return successRate*0.4 + math.Min(avgMove*10, 100)*0.3 + math.Min(profitFactor*10, 100)*0.3
}

// Median returns nil for empty input and averages the middle pair for even counts.
func Median(values []float64) *float64 {
	if len(values) == 0 {
		return nil
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	m := sorted[mid]
	if len(sorted)%2 == 0 {
		m = (sorted[mid-1] + sorted[mid]) / 2
	}
	return &m
}

// Percentile indexes ascending-sorted values at ceil(p/100·n)−1, clamped.
func Percentile(sorted []int64, p float64) int64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(math.Ceil(p/100*float64(len(sorted)))) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

// TimeToPeakPercentiles returns nil when no match hit its target.
func TimeToPeakPercentiles(values []int64) *models.Percentiles {
	if len(values) == 0 {
		return nil
	}
	sorted := append([]int64(nil), values...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	p := make([]int64, len(timeToPeakPercentiles))
	for i, q := range timeToPeakPercentiles {
		p[i] = Percentile(sorted, q)
	}
	return &models.Percentiles{P50: p[0], P75: p[1], P80: p[2], P85: p[3], P95: p[4]}
}

// representativeSignals averages member strengths per type across matches.
func representativeSignals(ms []models.Match) []models.Signal {
	types := ms[0].Types()
	sums := make(map[models.SignalType]float64, len(types))
	counts := make(map[models.SignalType]int, len(types))
	for _, m := range ms {
		for _, s := range m.Signals {
			sums[s.Type] += s.Strength
			counts[s.Type]++
		}
	}
	out := make([]models.Signal, 0, len(types))
	for i, t := range types {
		if i > 0 && types[i-1] == t {
			continue
		}
		out = append(out, models.Signal{Type: t, Strength: sums[t] / float64(counts[t])})
	}
	return out
}

func meanConfidence(ms []models.Match) float64 {
	var sum float64
	for _, m := range ms {
		sum += m.RegimeConfidence
	}
	return sum / float64(len(ms))
}
