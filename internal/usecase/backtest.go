package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"SignalForge/internal/backtest"
	"SignalForge/internal/domain/models"
	domrepo "SignalForge/internal/domain/repository"
	domsvc "SignalForge/internal/domain/service"
	"SignalForge/internal/scoring"
	svcmetrics "SignalForge/internal/service/metrics"
	"SignalForge/internal/services/analytics"
	"SignalForge/pkg/cache"
	"SignalForge/pkg/logger"
	"SignalForge/pkg/queue"
	"SignalForge/pkg/util"
)

var (
	ErrNoCandles      = errors.New("no candles available")
	ErrRunNotFound    = errors.New("run not found")
	ErrQueueDisabled  = errors.New("job queue not configured")
	errStatusNotSaved = errors.New("run status not saved")
)

const (
	resultKeyPrefix = "result"
	runKeyPrefix    = "run"
	defaultTTL      = 30 * time.Minute
)

// BacktestUseCase loads inputs, runs the pipeline and hands results to the
// optional stores. Only the indicator provider, regime classifier and a
// detector are required.
type BacktestUseCase struct {
	log        *logger.Logger
	candles    domrepo.CandleStore
	indicators domsvc.IndicatorProvider
	regimes    domsvc.RegimeClassifier
	detector   domsvc.SignalDetector
	series     domsvc.SeriesDetector
	cache      cache.Service
	store      domrepo.StrategyStore
	publisher  domrepo.ResultPublisher
	queue      queue.Queue
	tracker    *scoring.PerformanceTracker
	metrics    domrepo.Metrics
	runnerOpts []backtest.RunnerOption
	scoreOpts  []scoring.Option
	diagPub    logger.Publisher
	diagTopic  string
	resultTTL  time.Duration
}

type BacktestOption func(*BacktestUseCase)

func WithCandleStore(s domrepo.CandleStore) BacktestOption {
	return func(u *BacktestUseCase) { u.candles = s }
}

// WithSeriesDetector makes runs detect signals through sd in one call. The
// local detector stays as fallback when sd fails.
func WithSeriesDetector(sd domsvc.SeriesDetector) BacktestOption {
	return func(u *BacktestUseCase) { u.series = sd }
}

func WithResultCache(c cache.Service, ttl time.Duration) BacktestOption {
	return func(u *BacktestUseCase) {
		u.cache = c
		if ttl > 0 {
			u.resultTTL = ttl
		}
	}
}

func WithStrategyStore(s domrepo.StrategyStore) BacktestOption {
	return func(u *BacktestUseCase) { u.store = s }
}

func WithResultPublisher(p domrepo.ResultPublisher) BacktestOption {
	return func(u *BacktestUseCase) { u.publisher = p }
}

func WithJobQueue(q queue.Queue) BacktestOption {
	return func(u *BacktestUseCase) { u.queue = q }
}

// WithTracker shares learning state with the score endpoint.
func WithTracker(t *scoring.PerformanceTracker) BacktestOption {
	return func(u *BacktestUseCase) {
		if t != nil {
			u.tracker = t
		}
	}
}

func WithBacktestMetrics(m domrepo.Metrics) BacktestOption {
	return func(u *BacktestUseCase) { u.metrics = m }
}

func WithRunnerOptions(opts ...backtest.RunnerOption) BacktestOption {
	return func(u *BacktestUseCase) { u.runnerOpts = append(u.runnerOpts, opts...) }
}

func WithScoringOptions(opts ...scoring.Option) BacktestOption {
	return func(u *BacktestUseCase) { u.scoreOpts = append(u.scoreOpts, opts...) }
}

// WithDiagnostics publishes each run's deduplicated diagnostics to topic.
func WithDiagnostics(p logger.Publisher, topic string) BacktestOption {
	return func(u *BacktestUseCase) {
		u.diagPub = p
		u.diagTopic = topic
	}
}

func NewBacktestUseCase(
	indicators domsvc.IndicatorProvider,
	regimes domsvc.RegimeClassifier,
	detector domsvc.SignalDetector,
	log *logger.Logger,
	opts ...BacktestOption,
) *BacktestUseCase {
	if log == nil {
		log = logger.Nop()
	}
	u := &BacktestUseCase{
		log:        log.With(logger.String("component", "backtest_usecase")),
		indicators: indicators,
		regimes:    regimes,
		detector:   detector,
		tracker:    scoring.NewPerformanceTracker(0),
		resultTTL:  defaultTTL,
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

func (u *BacktestUseCase) Tracker() *scoring.PerformanceTracker { return u.tracker }

// Run executes a backtest synchronously. Its status stays queryable like
// that of a queued run.
func (u *BacktestUseCase) Run(ctx context.Context, req models.BacktestRequest) (*models.BacktestResult, error) {
	runID := uuid.NewString()
	res, err := u.execute(ctx, runID, req)
	u.finish(ctx, runID, res, err)
	return res, err
}

// Submit queues a backtest and returns its initial status.
func (u *BacktestUseCase) Submit(ctx context.Context, req models.BacktestRequest) (*models.RunStatus, error) {
	if u.queue == nil {
		return nil, ErrQueueDisabled
	}
	now := time.Now().UTC()
	status := &models.RunStatus{RunID: uuid.NewString(), State: models.RunQueued, CreatedAt: now, UpdatedAt: now}
	if err := u.saveStatus(ctx, status); err != nil {
		return nil, err
	}
	if err := u.queue.Enqueue(ctx, BacktestJobType, backtestPayload{RunID: status.RunID, Request: req}); err != nil {
		return nil, fmt.Errorf("enqueue backtest: %w", err)
	}
	u.log.Info("backtest queued", logger.String("run_id", status.RunID), logger.String("coin", req.Coin))
	return status, nil
}

// Status returns the last recorded state of an asynchronous run.
func (u *BacktestUseCase) Status(ctx context.Context, runID string) (*models.RunStatus, error) {
	if u.cache == nil {
		return nil, ErrRunNotFound
	}
	var st models.RunStatus
	if err := u.cache.Get(ctx, cache.GenerateKey(runKeyPrefix, runID), &st); err != nil {
		if errors.Is(err, cache.ErrCacheMiss) {
			return nil, ErrRunNotFound
		}
		return nil, fmt.Errorf("load run status: %w", err)
	}
	return &st, nil
}

func (u *BacktestUseCase) saveStatus(ctx context.Context, st *models.RunStatus) error {
	if u.cache == nil {
		return errStatusNotSaved
	}
	if err := u.cache.Set(ctx, cache.GenerateKey(runKeyPrefix, st.RunID), st, u.resultTTL); err != nil {
		return fmt.Errorf("save run status: %w", err)
	}
	return nil
}

// updateStatus is best effort; a lost update only delays what pollers see.
func (u *BacktestUseCase) updateStatus(ctx context.Context, runID string, fn func(*models.RunStatus)) {
	if u.cache == nil {
		return
	}
	st, err := u.Status(ctx, runID)
	if err != nil {
		now := time.Now().UTC()
		st = &models.RunStatus{RunID: runID, CreatedAt: now}
	}
	fn(st)
	st.UpdatedAt = time.Now().UTC()
	if err := u.saveStatus(ctx, st); err != nil {
		u.log.Warn("run status update failed", logger.String("run_id", runID), logger.Error(err))
	}
}

func (u *BacktestUseCase) finish(ctx context.Context, runID string, res *models.BacktestResult, err error) {
	u.updateStatus(ctx, runID, func(st *models.RunStatus) {
		if err != nil {
			st.State = models.RunFailed
			st.Error = err.Error()
			return
		}
		st.State = models.RunCompleted
		st.Error = ""
		st.Result = res
	})
}

func (u *BacktestUseCase) execute(ctx context.Context, runID string, req models.BacktestRequest) (*models.BacktestResult, error) {
	log := u.log.With(logger.String("run_id", runID), logger.String("coin", req.Coin))
	collector := logger.NewCollector(&logger.CollectionConfig{Topic: u.diagTopic, Publisher: u.diagPub})
	log.SetCollector(collector)
	defer u.flushDiagnostics(collector, log)

	cacheKey, cached := u.cachedResult(ctx, req, log)
	if cached != nil {
		cached.RunID = runID
		return cached, nil
	}

	input, err := u.loadInput(ctx, req, log)
	if err != nil {
		u.recordError("input")
		return nil, err
	}
	cfg := req.Config()

	detector, err := u.resolveDetector(ctx, input, cfg.Signals, log)
	if err != nil {
		u.recordError("detector")
		return nil, err
	}

	// Composite strength never reads the shared tracker: identical requests
	// rank identically regardless of what earlier runs learned.
	scoreOpts := append(append([]scoring.Option{}, u.scoreOpts...), scoring.WithCollector(collector))
	agg := scoring.NewStrengthAggregator(scoring.NewPerformanceTracker(u.tracker.Window()), log, scoreOpts...)
	opts := append([]backtest.RunnerOption{}, u.runnerOpts...)
	opts = append(opts,
		backtest.WithScorer(agg),
		backtest.WithPhaseHook(func(id string, p backtest.Phase) {
			u.updateStatus(ctx, id, func(st *models.RunStatus) {
				st.State = models.RunRunning
				st.Phase = p.String()
			})
		}),
	)
	if u.metrics != nil {
		opts = append(opts, backtest.WithMetrics(u.metrics))
	}

	res, err := backtest.NewRunner(detector, log, opts...).Run(ctx, runID, input, cfg)
	if err != nil {
		if errors.Is(err, util.ErrInvalidTimeframe) {
			u.recordError("timeframe")
		}
		return nil, err
	}

	u.learn(res.Matches, input.Regimes)
	u.persist(ctx, res, log)
	if u.cache != nil && cacheKey != "" {
		if err := u.cache.Set(ctx, cacheKey, res, u.resultTTL); err != nil {
			log.Warn("result cache write failed", logger.Error(err))
		}
	}
	return res, nil
}

func (u *BacktestUseCase) cachedResult(ctx context.Context, req models.BacktestRequest, log *logger.Logger) (string, *models.BacktestResult) {
	if u.cache == nil {
		return "", nil
	}
	hash, err := cache.HashValue(req)
	if err != nil {
		log.Warn("request hash failed", logger.Error(err))
		return "", nil
	}
	key := cache.GenerateKey(resultKeyPrefix, hash)
	var res models.BacktestResult
	if err := u.cache.Get(ctx, key, &res); err != nil {
		if !errors.Is(err, cache.ErrCacheMiss) {
			log.Warn("result cache read failed", logger.Error(err))
		}
		return key, nil
	}
	log.Debug("backtest served from cache", logger.String("key", key))
	return key, &res
}

func (u *BacktestUseCase) loadInput(ctx context.Context, req models.BacktestRequest, log *logger.Logger) (models.BacktestInput, error) {
	candles, err := u.loadCandles(ctx, req)
	if err != nil {
		return models.BacktestInput{}, err
	}
	if len(candles) == 0 {
		return models.BacktestInput{}, ErrNoCandles
	}

	ind, err := u.indicators.Compute(ctx, candles, req.Signals)
	if err != nil {
		return models.BacktestInput{}, fmt.Errorf("compute indicators: %w", err)
	}

	var regimes models.RegimeHistory
	if u.regimes != nil {
		regimes, err = u.regimes.Classify(ctx, req.Coin, candles)
		if err != nil {
			if ctx.Err() != nil {
				return models.BacktestInput{}, ctx.Err()
			}
			log.Diagnostic("regime classification failed", logger.Error(err))
			svcmetrics.AnalyticsFallbacks.WithLabelValues("regime_classifier").Inc()
			regimes = nil
		}
	}
	return models.BacktestInput{Candles: candles, Indicators: ind, Regimes: regimes}, nil
}

func (u *BacktestUseCase) loadCandles(ctx context.Context, req models.BacktestRequest) ([]models.Candle, error) {
	if len(req.Candles) > 0 {
		return req.Candles, nil
	}
	if u.candles == nil {
		return nil, ErrNoCandles
	}
	tf := domrepo.NormalizeTimeframe(req.Timeframe)
	from, okFrom := util.ParseTime(req.From)
	to, okTo := util.ParseTime(req.To)
	if okFrom {
		if !okTo {
			to = time.Now().UTC()
		}
		from, to = util.AlignFromTo(from, to, string(tf))
		candles, err := u.candles.GetCandles(ctx, req.Coin, from, to, tf)
		if err != nil {
			return nil, fmt.Errorf("load candles: %w", err)
		}
		return candles, nil
	}
	candles, err := u.candles.GetLatestNCandles(ctx, req.Coin, req.Limit, tf)
	if err != nil {
		return nil, fmt.Errorf("load latest candles: %w", err)
	}
	return candles, nil
}

func (u *BacktestUseCase) resolveDetector(ctx context.Context, input models.BacktestInput, cfg models.SignalConfig, log *logger.Logger) (domsvc.SignalDetector, error) {
	if u.series == nil {
		return u.detector, nil
	}
	pre, err := analytics.Precompute(ctx, u.series, input, cfg)
	if err == nil {
		return pre, nil
	}
	if ctx.Err() != nil || u.detector == nil {
		return nil, fmt.Errorf("detect signals: %w", err)
	}
	log.Diagnostic("remote signal detection failed, using local rules", logger.Error(err))
	svcmetrics.AnalyticsFallbacks.WithLabelValues("signal_detector").Inc()
	return u.detector, nil
}

// learn feeds simulated outcomes into the shared tracker under the regime
// the candle was classified with. Only the score endpoint reads it.
func (u *BacktestUseCase) learn(matches []models.Match, regimes models.RegimeHistory) {
	for _, m := range matches {
		u.tracker.RecordOutcome(m.Signals, regimes.At(m.CandleIndex).Regime, m.Successful)
	}
}

func (u *BacktestUseCase) persist(ctx context.Context, res *models.BacktestResult, log *logger.Logger) {
	if res.Strategies == nil || len(res.Strategies.ProcessedCombinations) == 0 {
		return
	}
	ranked := res.Strategies.ProcessedCombinations
	if u.store != nil {
		if err := u.store.SaveStrategies(ctx, res.RunID, ranked); err != nil {
			u.recordError("store")
			log.Error("save strategies failed", logger.Error(err))
		}
	}
	if u.publisher != nil {
		if err := u.publisher.PublishStrategies(ctx, res.RunID, ranked); err != nil {
			u.recordError("publish")
			log.Error("publish strategies failed", logger.Error(err))
		}
	}
}

func (u *BacktestUseCase) flushDiagnostics(c *logger.Collector, log *logger.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.Flush(ctx); err != nil {
		log.Warn("diagnostics flush failed", logger.Error(err))
	}
}

func (u *BacktestUseCase) recordError(kind string) {
	if u.metrics != nil {
		u.metrics.RecordError(kind)
	}
}
