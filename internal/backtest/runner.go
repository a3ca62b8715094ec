package backtest

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"SignalForge/internal/domain/models"
	"SignalForge/internal/domain/repository"
	"SignalForge/internal/domain/service"
	"SignalForge/pkg/logger"
	"SignalForge/pkg/workerpool"
)

const (
	DefaultChunkSize = 500
	DefaultWorkers   = 4
)

// Runner executes the backtest pipeline over materialized inputs.
type Runner struct {
	enumerator *CombinationEnumerator
	simulator  *OutcomeSimulator
	stats      *StatisticalAggregator
	log        *logger.Logger
	metrics    repository.Metrics
	hook       PhaseHook
	chunkSize  int
	workers    int
	warmUp     int
}

type RunnerOption func(*Runner)

func WithChunkSize(n int) RunnerOption {
	return func(r *Runner) {
		if n > 0 {
			r.chunkSize = n
		}
	}
}

func WithWorkers(n int) RunnerOption {
	return func(r *Runner) {
		if n > 0 {
			r.workers = n
		}
	}
}

func WithWarmUp(n int) RunnerOption {
	return func(r *Runner) {
		if n >= 0 {
			r.warmUp = n
		}
	}
}

func WithMetrics(m repository.Metrics) RunnerOption {
	return func(r *Runner) { r.metrics = m }
}

func WithPhaseHook(h PhaseHook) RunnerOption {
	return func(r *Runner) { r.hook = h }
}

// WithScorer enables composite strength on ranked strategies.
func WithScorer(s Scorer) RunnerOption {
	return func(r *Runner) { r.stats = NewStatisticalAggregator(s) }
}

func NewRunner(detector service.SignalDetector, log *logger.Logger, opts ...RunnerOption) *Runner {
	if log == nil {
		log = logger.Nop()
	}
	r := &Runner{
		enumerator: NewCombinationEnumerator(detector, log),
		simulator:  NewOutcomeSimulator(),
		stats:      NewStatisticalAggregator(nil),
		log:        log,
		chunkSize:  DefaultChunkSize,
		workers:    DefaultWorkers,
		warmUp:     DefaultWarmUp,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run enumerates, simulates and ranks. Chunks are processed in parallel and
// merged in chunk order, so the result does not depend on the worker count.
// An unparsable window or timeframe aborts the run with ErrInvalidTimeframe.
func (r *Runner) Run(ctx context.Context, runID string, input models.BacktestInput, cfg models.BacktestConfig) (*models.BacktestResult, error) {
	if runID == "" {
		runID = uuid.NewString()
	}
	start := time.Now()
	run := NewRun(runID, r.hook)
	log := r.log.With(logger.String("run_id", runID), logger.String("coin", cfg.Coin))

	res, err := r.run(ctx, run, input, cfg, log)
	if err != nil {
		r.record("failed", start)
		log.Error("backtest failed", logger.String("phase", run.Phase().String()), logger.Error(err))
		return nil, err
	}
	r.record("completed", start)
	log.Info("backtest completed",
		logger.Int("matches", res.Summary.TotalMatches),
		logger.Int("candles_skipped", res.Summary.CandlesSkipped),
		logger.Duration("duration_ms", time.Since(start)),
	)
	return res, nil
}

func (r *Runner) run(ctx context.Context, run *Run, input models.BacktestInput, cfg models.BacktestConfig, log *logger.Logger) (*models.BacktestResult, error) {
	params, err := ResolveSimParams(cfg)
	if err != nil {
		return nil, err
	}

	if err := run.Advance(PhaseEnumerating); err != nil {
		return nil, err
	}
	chunks := workerpool.Split(r.warmUp, len(input.Candles), r.chunkSize)
	parts, err := workerpool.Map(ctx, r.workers, chunks, func(_ context.Context, c workerpool.Chunk) ChunkResult {
		return r.enumerator.EnumerateRange(input, cfg, c.Start, c.End)
	})
	if err != nil {
		return nil, fmt.Errorf("enumerate: %w", err)
	}

	combos, stats, dropped := mergeChunks(parts)
	if dropped > 0 {
		log.Diagnostic("duplicate combinations dropped", logger.Int("count", dropped))
	}

	if err := run.Advance(PhaseSimulating); err != nil {
		return nil, err
	}
	matches := make([]models.Match, 0, len(combos))
	for _, c := range combos {
		m := r.simulator.Simulate(c, input.Candles, params)
		m.Coin = cfg.Coin
		at := input.Regimes.At(c.CandleIndex)
		m.MarketRegime = models.RegimeAll
		m.RegimeConfidence = at.Confidence
		if cfg.IsRegimeAware {
			m.MarketRegime = at.Regime
		}
		matches = append(matches, m)
	}

	if err := run.Advance(PhaseAggregating); err != nil {
		return nil, err
	}
	ranked := r.stats.Aggregate(matches, cfg.MinOccurrences)

	if err := run.Advance(PhaseRanked); err != nil {
		return nil, err
	}

	res := &models.BacktestResult{
		RunID:        run.ID,
		Matches:      matches,
		Summary:      summarize(stats, matches, dropped, params.WindowCandles, len(chunks)),
		SignalCounts: stats.SignalCounts,
		Strategies:   &ranked,
	}
	if r.metrics != nil {
		r.metrics.RecordCandles(stats.CandlesEvaluated, stats.CandlesSkipped)
		r.metrics.RecordSubsets(stats.SubsetsConsidered, stats.CombinationsKept)
		r.metrics.RecordMatches(res.Summary.SuccessfulMatches, res.Summary.TotalMatches-res.Summary.SuccessfulMatches)
		r.metrics.RecordStrategies(len(ranked.ProcessedCombinations))
	}
	return res, nil
}

// mergeChunks concatenates chunk results in chunk order and drops repeated keys.
func mergeChunks(parts []ChunkResult) ([]models.SignalCombination, ChunkStats, int) {
	stats := ChunkStats{SignalCounts: make(map[models.SignalType]int)}
	total := 0
	for _, p := range parts {
		total += len(p.Combinations)
	}
	out := make([]models.SignalCombination, 0, total)
	seen := make(map[string]struct{}, total)
	dropped := 0
	for _, p := range parts {
		stats.merge(p.Stats)
		for _, c := range p.Combinations {
			k := c.Key()
			if _, dup := seen[k]; dup {
				dropped++
				continue
			}
			seen[k] = struct{}{}
			out = append(out, c)
		}
	}
	return out, stats, dropped
}

func summarize(stats ChunkStats, matches []models.Match, dropped, window, chunks int) models.BacktestSummary {
	s := models.BacktestSummary{
		CandlesEvaluated:  stats.CandlesEvaluated,
		CandlesSkipped:    stats.CandlesSkipped,
		SignalsDetected:   stats.SignalsDetected,
		SubsetsConsidered: stats.SubsetsConsidered,
		SubsetsPruned:     stats.SubsetsPruned,
		CombinationsKept:  stats.CombinationsKept,
		DuplicatesDropped: dropped,
		TotalMatches:      len(matches),
		WindowCandles:     window,
		Chunks:            chunks,
	}
	var moveSum float64
	for _, m := range matches {
		if m.Successful {
			s.SuccessfulMatches++
		}
		moveSum += m.PriceMove
	}
	if len(matches) > 0 {
		s.SuccessRate = float64(s.SuccessfulMatches) / float64(len(matches)) * 100
		s.AvgPriceMove = moveSum / float64(len(matches))
	}
	return s
}

func (r *Runner) record(status string, start time.Time) {
	if r.metrics != nil {
		r.metrics.RecordRun(status, time.Since(start).Seconds())
	}
}
