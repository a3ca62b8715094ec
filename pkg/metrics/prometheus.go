package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	runs             *prometheus.CounterVec
	runDuration      prometheus.Histogram
	candlesEvaluated prometheus.Counter
	candlesSkipped   prometheus.Counter
	subsets          prometheus.Counter
	combinations     prometheus.Counter
	matches          *prometheus.CounterVec
	strategies       prometheus.Gauge
	scoreDuration    prometheus.Histogram
	errorsTotal      *prometheus.CounterVec
}

// New creates a recorder registered on reg. A nil reg uses the default registry.
func New(reg prometheus.Registerer) *Recorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Recorder{
		runs: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "signalforge_runs_total",
				Help: "Backtest runs by final status",
			},
			[]string{"status"},
		),
		runDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "signalforge_run_duration_seconds",
			Help:    "Duration of backtest runs in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}),
		candlesEvaluated: f.NewCounter(prometheus.CounterOpts{
			Name: "signalforge_candles_evaluated_total",
			Help: "Candles whose signals were enumerated",
		}),
		candlesSkipped: f.NewCounter(prometheus.CounterOpts{
			Name: "signalforge_candles_skipped_total",
			Help: "Candles skipped after a detector failure or malformed data",
		}),
		subsets: f.NewCounter(prometheus.CounterOpts{
			Name: "signalforge_subsets_considered_total",
			Help: "Signal subsets considered, including pruned ones",
		}),
		combinations: f.NewCounter(prometheus.CounterOpts{
			Name: "signalforge_combinations_kept_total",
			Help: "Signal combinations that reached the minimum strength",
		}),
		matches: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "signalforge_matches_total",
				Help: "Simulated matches by outcome",
			},
			[]string{"outcome"},
		),
		strategies: f.NewGauge(prometheus.GaugeOpts{
			Name: "signalforge_strategies_ranked",
			Help: "Strategies ranked by the last run",
		}),
		scoreDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "signalforge_score_duration_seconds",
			Help:    "Duration of strength scoring calls",
			Buckets: prometheus.ExponentialBuckets(0.00005, 2, 12),
		}),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "signalforge_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
	}
}

func (r *Recorder) RecordRun(status string, seconds float64) {
	r.runs.WithLabelValues(status).Inc()
	r.runDuration.Observe(seconds)
}

func (r *Recorder) RecordCandles(evaluated, skipped int) {
	r.candlesEvaluated.Add(float64(evaluated))
	r.candlesSkipped.Add(float64(skipped))
}

func (r *Recorder) RecordSubsets(considered int64, kept int) {
	r.subsets.Add(float64(considered))
	r.combinations.Add(float64(kept))
}

func (r *Recorder) RecordMatches(successful, failed int) {
	r.matches.WithLabelValues("success").Add(float64(successful))
	r.matches.WithLabelValues("failure").Add(float64(failed))
}

func (r *Recorder) RecordStrategies(n int) {
	r.strategies.Set(float64(n))
}

func (r *Recorder) RecordScore(seconds float64) {
	r.scoreDuration.Observe(seconds)
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}
