package scoring

import (
	"math"
	"sort"

	"SignalForge/internal/domain/models"
	"SignalForge/pkg/logger"
)

var correlationIndex = func() map[typePair]float64 {
	m := make(map[typePair]float64, len(correlationPairs))
	for _, p := range correlationPairs {
		m[typePair{p.a, p.b}] = p.corr
	}
	return m
}()

var expectedIndex = func() map[typePair]struct{} {
	m := make(map[typePair]struct{}, len(expectedPairs)*2)
	for _, p := range expectedPairs {
		m[p] = struct{}{}
		m[typePair{p.b, p.a}] = struct{}{}
	}
	return m
}()

// CorrelationModel looks up pairwise signal-type correlations and derives
// penalties, bonuses and diversity from them.
type CorrelationModel struct {
	log *logger.Logger
}

func NewCorrelationModel(log *logger.Logger) *CorrelationModel {
	if log == nil {
		log = logger.Nop()
	}
	return &CorrelationModel{log: log}
}

// Correlation returns the coefficient for a and b in either order, 0 for
// identical or unknown pairs.
func (m *CorrelationModel) Correlation(a, b models.SignalType) float64 {
	if a == b || a == "" || b == "" {
		return 0
	}
	if c, ok := correlationIndex[typePair{a, b}]; ok {
		return c
	}
	if c, ok := correlationIndex[typePair{b, a}]; ok {
		return c
	}
	if _, ok := expectedIndex[typePair{a, b}]; ok {
		x, y := a, b
		if y < x {
			x, y = y, x
		}
		m.log.Diagnostic("missing expected correlation",
			logger.String("type_a", string(x)),
			logger.String("type_b", string(y)),
		)
	}
	return 0
}

func (m *CorrelationModel) eachPair(signals []models.Signal, fn func(c float64)) {
	for i := 0; i < len(signals); i++ {
		if signals[i].Type == "" {
			continue
		}
		for j := i + 1; j < len(signals); j++ {
			if signals[j].Type == "" {
				continue
			}
			fn(m.Correlation(signals[i].Type, signals[j].Type))
		}
	}
}

// Penalty averages |corr| over strongly correlated pairs, scaled and capped.
func (m *CorrelationModel) Penalty(signals []models.Signal) float64 {
	if len(signals) < 2 {
		return 0
	}
	var sum float64
	var n int
	m.eachPair(signals, func(c float64) {
		if math.Abs(c) >= correlationThreshold {
			sum += math.Abs(c)
			n++
		}
	})
	if n == 0 {
		return 0
	}
	return math.Min((sum/float64(n))*penaltyScale, maxCorrelationPenalty)
}

// Bonus rewards negatively correlated pairs.
func (m *CorrelationModel) Bonus(signals []models.Signal) float64 {
	if len(signals) < 2 {
		return 0
	}
	var sum float64
	m.eachPair(signals, func(c float64) {
		if c < negativeCorrThreshold {
			sum += math.Abs(c) * bonusScale
		}
	})
	return math.Min(sum, maxCorrelationBonus)
}

// DiversityScore is the unique-type ratio adjusted by penalty and bonus, in [0,1].
func (m *CorrelationModel) DiversityScore(signals []models.Signal) float64 {
	unique := make(map[models.SignalType]struct{}, len(signals))
	typed := 0
	for _, s := range signals {
		if s.Type == "" {
			continue
		}
		typed++
		unique[s.Type] = struct{}{}
	}
	if typed == 0 {
		return 0
	}
	ratio := float64(len(unique)) / float64(typed)
	return clamp(ratio-m.Penalty(signals)+m.Bonus(signals), 0, 1)
}

// FilterCorrelated greedily keeps the strongest signals whose type is unused
// and whose |corr| with every kept signal is below maxCorrelation. Kept
// signals are returned in input order. Untyped signals are dropped.
func (m *CorrelationModel) FilterCorrelated(signals []models.Signal, maxCorrelation float64) []models.Signal {
	order := make([]int, 0, len(signals))
	for i, s := range signals {
		if s.Type == "" {
			m.log.Diagnostic("signal without type skipped", logger.Int("candle_index", s.CandleIndex))
			continue
		}
		order = append(order, i)
	}
	sort.SliceStable(order, func(i, j int) bool { return signals[order[i]].Strength > signals[order[j]].Strength })

	kept := make([]int, 0, len(order))
	used := make(map[models.SignalType]struct{}, len(order))
	for _, idx := range order {
		s := signals[idx]
		if _, ok := used[s.Type]; ok {
			continue
		}
		ok := true
		for _, k := range kept {
			if math.Abs(m.Correlation(s.Type, signals[k].Type)) >= maxCorrelation {
				ok = false
				break
			}
		}
		if !ok {
			continue
		}
		used[s.Type] = struct{}{}
		kept = append(kept, idx)
	}

	sort.Ints(kept)
	out := make([]models.Signal, len(kept))
	for i, idx := range kept {
		out[i] = signals[idx]
	}
	return out
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
