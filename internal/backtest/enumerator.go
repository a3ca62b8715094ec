package backtest

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"SignalForge/internal/domain/models"
	"SignalForge/internal/domain/service"
	"SignalForge/pkg/logger"
)

// DefaultWarmUp skips the first candles where indicators are still settling.
const DefaultWarmUp = 50

var errMalformedCandle = errors.New("malformed candle")

// ChunkStats counts the work done over one index range.
type ChunkStats struct {
	CandlesEvaluated  int
	CandlesSkipped    int
	SignalsDetected   int
	SubsetsConsidered int64
	SubsetsPruned     int64
	CombinationsKept  int
	SignalCounts      map[models.SignalType]int
}

func (s *ChunkStats) merge(o ChunkStats) {
	s.CandlesEvaluated += o.CandlesEvaluated
	s.CandlesSkipped += o.CandlesSkipped
	s.SignalsDetected += o.SignalsDetected
	s.SubsetsConsidered += o.SubsetsConsidered
	s.SubsetsPruned += o.SubsetsPruned
	s.CombinationsKept += o.CombinationsKept
	if s.SignalCounts == nil {
		s.SignalCounts = make(map[models.SignalType]int, len(o.SignalCounts))
	}
	for k, v := range o.SignalCounts {
		s.SignalCounts[k] += v
	}
}

type ChunkResult struct {
	Combinations []models.SignalCombination
	Stats        ChunkStats
}

// CombinationEnumerator produces the qualifying signal subsets of every candle.
type CombinationEnumerator struct {
	detector service.SignalDetector
	log      *logger.Logger
}

func NewCombinationEnumerator(detector service.SignalDetector, log *logger.Logger) *CombinationEnumerator {
	if log == nil {
		log = logger.Nop()
	}
	return &CombinationEnumerator{detector: detector, log: log}
}

// EnumerateRange walks candles [from, to) in order. A candle whose detection
// fails is logged, counted and skipped.
func (e *CombinationEnumerator) EnumerateRange(input models.BacktestInput, cfg models.BacktestConfig, from, to int) ChunkResult {
	res := ChunkResult{Stats: ChunkStats{SignalCounts: make(map[models.SignalType]int)}}
	if from < 0 {
		from = 0
	}
	if to > len(input.Candles) {
		to = len(input.Candles)
	}
	for i := from; i < to; i++ {
		signals, err := e.detect(input, cfg, i)
		if err != nil {
			res.Stats.CandlesSkipped++
			e.log.Warn("candle skipped",
				logger.Int("candle_index", i),
				logger.Error(err),
			)
			continue
		}
		res.Stats.CandlesEvaluated++
		res.Stats.SignalsDetected += len(signals)
		for _, s := range signals {
			res.Stats.SignalCounts[s.Type]++
		}

		combos, considered, pruned := Combinations(i, signals, cfg.RequiredSignals, cfg.MaxSignals, cfg.MinCombinedStrength)
		res.Stats.SubsetsConsidered += considered
		res.Stats.SubsetsPruned += pruned
		res.Stats.CombinationsKept += len(combos)
		res.Combinations = append(res.Combinations, combos...)
	}
	return res
}

func (e *CombinationEnumerator) detect(input models.BacktestInput, cfg models.BacktestConfig, i int) (signals []models.Signal, err error) {
	defer func() {
		if r := recover(); r != nil {
			signals, err = nil, fmt.Errorf("detector panic: %v", r)
		}
	}()

	c := input.Candles[i]
	if c.Close <= 0 || math.IsNaN(c.Close) || math.IsInf(c.Close, 0) || c.High < c.Low {
		return nil, fmt.Errorf("%w at index %d", errMalformedCandle, i)
	}

	raw, err := e.detector.Detect(c, input.Indicators, i, cfg.Signals, input.Regimes.At(i))
	if err != nil {
		return nil, fmt.Errorf("detect: %w", err)
	}

	signals = make([]models.Signal, 0, len(raw))
	for _, s := range raw {
		t, perr := models.ParseSignalType(string(s.Type))
		if perr != nil {
			e.log.Diagnostic("unknown signal type dropped", logger.String("type", string(s.Type)))
			continue
		}
		s.Type = t
		s.CandleIndex = i
		if s.Timestamp == 0 {
			s.Timestamp = c.Time.UnixMilli()
		}
		signals = append(signals, s)
	}
	return signals, nil
}

// Combinations returns every subset of signals with size in
// [required, min(len, max)] whose summed strength reaches minStrength.
// Members keep detection order and the result is ordered by size, then by
// member positions. considered always equals the sum of C(n, r) over the
// size range; pruned counts the subsets skipped without being visited.
func Combinations(candleIndex int, signals []models.Signal, required, max int, minStrength float64) ([]models.SignalCombination, int64, int64) {
	n := len(signals)
	if required < 1 {
		required = 1
	}
	if max > n {
		max = n
	}
	if n == 0 || required > max {
		return nil, 0, 0
	}

	// strength-descending view; ties keep detection order
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return signals[order[a]].Strength > signals[order[b]].Strength
	})
	strengths := make([]float64, n)
	for i, idx := range order {
		strengths[i] = signals[idx].Strength
	}

	var out []models.SignalCombination
	var considered, pruned int64
	for r := required; r <= max; r++ {
		var kept []models.SignalCombination
		c, p := walkSubsets(strengths, r, minStrength, func(pos []int) {
			members := make([]int, r)
			for i, sp := range pos {
				members[i] = order[sp]
			}
			sort.Ints(members)

			combo := models.SignalCombination{
				CandleIndex: candleIndex,
				Signals:     make([]models.Signal, r),
				Positions:   members,
			}
			for i, m := range members {
				combo.Signals[i] = signals[m]
				combo.CombinedStrength += signals[m].Strength
			}
			if combo.CombinedStrength >= minStrength {
				kept = append(kept, combo)
			}
		})
		considered += c
		pruned += p
		sort.Slice(kept, func(a, b int) bool { return lessInts(kept[a].Positions, kept[b].Positions) })
		out = append(out, kept...)
	}
	return out, considered, pruned
}

// walkSubsets visits the r-subsets of strength-descending values without
// recursion. A branch is cut as soon as its best reachable sum falls below
// minStrength; since values are descending, every later sibling is cut too
// and the skipped subsets are counted with C(n-p, r-k).
func walkSubsets(strengths []float64, r int, minStrength float64, visit func(pos []int)) (considered, pruned int64) {
	n := len(strengths)
	pos := make([]int, r)
	sums := make([]float64, r+1)
	k, next := 0, 0

	for {
		if k == r {
			visit(pos)
			considered++
			k--
			next = pos[k] + 1
			continue
		}
		rem := r - k
		if next > n-rem {
			if k == 0 {
				return considered, pruned
			}
			k--
			next = pos[k] + 1
			continue
		}

		p := next
		sum := sums[k] + strengths[p]
		best := sum
		for j := p + 1; j < p+rem; j++ {
			best += strengths[j]
		}
		if best < minStrength {
			skipped := binomial(n-p, rem)
			considered += skipped
			pruned += skipped
			if k == 0 {
				return considered, pruned
			}
			k--
			next = pos[k] + 1
			continue
		}

		pos[k] = p
		sums[k+1] = sum
		k++
		next = p + 1
	}
}

func binomial(n, k int) int64 {
	if k < 0 || k > n {
		return 0
	}
	if k > n-k {
		k = n - k
	}
	result := int64(1)
	for i := 1; i <= k; i++ {
		result = result * int64(n-k+i) / int64(i)
	}
	return result
}

func lessInts(a, b []int) bool {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return len(a) < len(b)
}
