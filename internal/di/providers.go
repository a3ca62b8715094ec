package di

import (
	"context"
	"fmt"
	"time"

	"SignalForge/internal/backtest"
	"SignalForge/internal/domain/repository"
	domsvc "SignalForge/internal/domain/service"
	"SignalForge/internal/handler/api"
	internalrepo "SignalForge/internal/repository"
	"SignalForge/internal/scoring"
	svcmetrics "SignalForge/internal/service/metrics"
	"SignalForge/internal/service/ratelimit"
	"SignalForge/internal/services/analytics"
	"SignalForge/internal/services/features"
	"SignalForge/internal/usecase"
	"SignalForge/pkg/cache"
	pkgch "SignalForge/pkg/clickhouse"
	"SignalForge/pkg/config"
	xhttp "SignalForge/pkg/http"
	pkgkafka "SignalForge/pkg/kafka"
	"SignalForge/pkg/logger"
	"SignalForge/pkg/metrics"
	"SignalForge/pkg/queue"
	"SignalForge/pkg/server"
)

const schemaTimeout = 10 * time.Second

// ProvideLogger creates the process logger from the log section.
func ProvideLogger(cfg *config.Config) (*logger.Logger, error) {
	l, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l.With(logger.String("env", cfg.Environment)), nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	svcmetrics.Register()
	return metrics.New(nil)
}

// ProvideClickHouseClient creates a ClickHouse client, or nil when disabled.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if !cfg.ClickHouse.Enabled {
		return nil, nil
	}
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}
	return client, nil
}

// ProvideCandleStore reads historical candles from ClickHouse.
func ProvideCandleStore(ch *pkgch.Client, l *logger.Logger) repository.CandleStore {
	if ch == nil {
		return nil
	}
	return internalrepo.NewCHCandleStore(ch, l)
}

// ProvideStrategyStore creates the strategy table and returns the store.
func ProvideStrategyStore(ch *pkgch.Client, l *logger.Logger) (repository.StrategyStore, error) {
	if ch == nil {
		return nil, nil
	}
	store := internalrepo.NewCHStrategyStore(ch, l)
	ctx, cancel := context.WithTimeout(context.Background(), schemaTimeout)
	defer cancel()
	if err := store.Init(ctx); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return store, nil
}

// ProvideKafkaProducer creates a Kafka producer, or nil when disabled.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
		pkgkafka.WithBatchBytes(cfg.Kafka.Producer.BatchBytes),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideResultPublisher publishes ranked strategies keyed by coin.
func ProvideResultPublisher(producer *pkgkafka.Producer, cfg *config.Config) repository.ResultPublisher {
	if producer == nil {
		return nil
	}
	return internalrepo.NewKafkaStrategyPublisher(producer, cfg.Kafka.StrategyTopic)
}

// ProvideRedisCache connects to Redis, or returns nil when disabled.
func ProvideRedisCache(cfg *config.Config) (*cache.RedisCache, error) {
	if !cfg.Redis.Enabled {
		return nil, nil
	}
	rc, err := cache.NewRedisCache(
		cache.WithRedisAddr(cfg.Redis.Addr),
		cache.WithRedisPassword(cfg.Redis.Password),
		cache.WithRedisDB(cfg.Redis.DB),
	)
	if err != nil {
		return nil, fmt.Errorf("redis cache: %w", err)
	}
	return rc, nil
}

// ProvideCache layers an in-process cache over Redis when available.
func ProvideCache(cfg *config.Config, rc *cache.RedisCache) cache.Service {
	if rc == nil {
		return cache.NewMemoryCache(
			cache.WithMemoryMaxSize(cfg.Cache.MemoryMaxSize),
			cache.WithMemoryDefaultTTL(cfg.Cache.DefaultTTL),
		)
	}
	return cache.NewLayeredCache(rc, cache.WithLayeredMemorySize(cfg.Cache.MemoryMaxSize))
}

// ProvideQueue returns the Redis queue when Redis is enabled and an
// in-process queue otherwise.
func ProvideQueue(cfg *config.Config, l *logger.Logger, rc *cache.RedisCache) queue.Queue {
	qc := &queue.QueueConfig{
		Workers:    cfg.Queue.Workers,
		RetryLimit: cfg.Queue.MaxRetries,
		RetryDelay: cfg.Queue.RetryDelay,
	}
	ql := l.With(logger.String("queue", cfg.Queue.Name))
	if rc == nil {
		return queue.NewMemoryQueue(ql, qc)
	}
	return queue.NewRedisQueue(ql, qc, rc.Client(), queue.WithKeyPrefix("signalforge:queue:"+cfg.Queue.Name))
}

// ProvideIndicatorProvider computes indicators remotely with a local
// go-talib fallback, or locally only.
func ProvideIndicatorProvider(cfg *config.Config, l *logger.Logger) domsvc.IndicatorProvider {
	local := features.NewTalibProvider(l)
	if !remoteAnalytics(cfg) {
		return local
	}
	return analytics.NewFallbackIndicatorProvider(analytics.NewHTTPIndicatorProvider(cfg, l), local, l)
}

// ProvideRegimeClassifier mirrors ProvideIndicatorProvider for regimes.
func ProvideRegimeClassifier(cfg *config.Config, l *logger.Logger) domsvc.RegimeClassifier {
	local := analytics.NewLocalRegimeClassifier()
	if !remoteAnalytics(cfg) {
		return local
	}
	return analytics.NewFallbackRegimeClassifier(analytics.NewHTTPRegimeClassifier(cfg), local, l)
}

// ProvideSignalDetector returns the local rule detector. In remote mode it
// backs up the series detector.
func ProvideSignalDetector() domsvc.SignalDetector {
	return analytics.NewRuleDetector()
}

// ProvideSeriesDetector returns the analytics service detector, or nil in
// local mode.
func ProvideSeriesDetector(cfg *config.Config) domsvc.SeriesDetector {
	if !remoteAnalytics(cfg) {
		return nil
	}
	return analytics.NewHTTPSeriesDetector(cfg)
}

func remoteAnalytics(cfg *config.Config) bool {
	return cfg.Analytics.Mode == "remote" && cfg.Analytics.ServiceURL != ""
}

// ProvideTracker creates the performance tracker shared by scoring and
// backtest learning.
func ProvideTracker(cfg *config.Config) *scoring.PerformanceTracker {
	return scoring.NewPerformanceTracker(cfg.Scoring.HistoryWindow)
}

// ProvideBacktestUseCase wires the backtest pipeline with whatever optional
// infrastructure is enabled.
func ProvideBacktestUseCase(
	cfg *config.Config,
	l *logger.Logger,
	indicators domsvc.IndicatorProvider,
	regimes domsvc.RegimeClassifier,
	detector domsvc.SignalDetector,
	series domsvc.SeriesDetector,
	candles repository.CandleStore,
	store repository.StrategyStore,
	publisher repository.ResultPublisher,
	producer *pkgkafka.Producer,
	c cache.Service,
	q queue.Queue,
	tracker *scoring.PerformanceTracker,
	m repository.Metrics,
) *usecase.BacktestUseCase {
	opts := []usecase.BacktestOption{
		usecase.WithResultCache(c, cfg.Backtest.ResultTTL),
		usecase.WithJobQueue(q),
		usecase.WithTracker(tracker),
		usecase.WithBacktestMetrics(m),
		usecase.WithRunnerOptions(
			backtest.WithChunkSize(cfg.Backtest.ChunkSize),
			backtest.WithWorkers(cfg.Backtest.Workers),
			backtest.WithWarmUp(cfg.Backtest.WarmUp),
		),
		usecase.WithScoringOptions(scoring.WithLearning(cfg.Scoring.MinLearningSamples, cfg.Scoring.LearningRate)),
	}
	if candles != nil {
		opts = append(opts, usecase.WithCandleStore(candles))
	}
	if series != nil {
		opts = append(opts, usecase.WithSeriesDetector(series))
	}
	if store != nil {
		opts = append(opts, usecase.WithStrategyStore(store))
	}
	if publisher != nil {
		opts = append(opts, usecase.WithResultPublisher(publisher))
	}
	if producer != nil {
		opts = append(opts, usecase.WithDiagnostics(producer, cfg.Kafka.DiagnosticsTopic))
	}
	return usecase.NewBacktestUseCase(indicators, regimes, detector, l, opts...)
}

// ProvideBacktestJob registers the async backtest job on the queue.
func ProvideBacktestJob(uc *usecase.BacktestUseCase, q queue.Queue, l *logger.Logger) *usecase.BacktestJob {
	job := usecase.NewBacktestJob(uc, l)
	q.RegisterJob(job)
	return job
}

// ProvideScoreUseCase scores signal sets against the shared tracker.
func ProvideScoreUseCase(cfg *config.Config, tracker *scoring.PerformanceTracker, m repository.Metrics, l *logger.Logger) *usecase.ScoreUseCase {
	agg := scoring.NewStrengthAggregator(tracker, l,
		scoring.WithLearning(cfg.Scoring.MinLearningSamples, cfg.Scoring.LearningRate))
	return usecase.NewScoreUseCase(agg, m, l)
}

// ProvideRateLimiter limits expensive backtest endpoints per client.
func ProvideRateLimiter(cfg *config.Config) *ratelimit.Limiter {
	return ratelimit.New(cfg.RateLimit.RPS, cfg.RateLimit.Burst)
}

// ProvideHandlers builds the API route groups.
func ProvideHandlers(
	l *logger.Logger,
	backtests *usecase.BacktestUseCase,
	scores *usecase.ScoreUseCase,
	limiter *ratelimit.Limiter,
	_ *usecase.BacktestJob,
) []xhttp.Handler {
	return []xhttp.Handler{
		api.NewBacktestHandler(l, backtests, limiter),
		api.NewScoreHandler(l, scores),
	}
}

// ProvideHTTPServer creates the Echo server from the server section.
// Enabled ClickHouse and Redis clients back /readyz.
func ProvideHTTPServer(cfg *config.Config, l *logger.Logger, handlers []xhttp.Handler, ch *pkgch.Client, rc *cache.RedisCache) *xhttp.Server {
	metricsPath := ""
	if cfg.Metrics.Enabled {
		metricsPath = cfg.Metrics.Path
	}
	opts := []xhttp.ServerOption{
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithBodyLimit(cfg.Server.BodyLimit),
		xhttp.WithMetricsPath(metricsPath),
	}
	if ch != nil {
		opts = append(opts, xhttp.WithReadinessCheck("clickhouse", ch.Health))
	}
	if rc != nil {
		opts = append(opts, xhttp.WithReadinessCheck("redis", rc.Ping))
	}
	return xhttp.NewServer(l, handlers, opts...)
}

// ProvideApp creates the application server. Clients are closed in reverse
// order: cache, producer, ClickHouse.
func ProvideApp(
	cfg *config.Config,
	l *logger.Logger,
	srv *xhttp.Server,
	q queue.Queue,
	ch *pkgch.Client,
	producer *pkgkafka.Producer,
	c cache.Service,
) *server.App {
	opts := []server.Option{
		server.WithQueue(q),
		server.WithShutdownTimeout(cfg.Server.ShutdownTimeout + 5*time.Second),
	}
	if ch != nil {
		opts = append(opts, server.WithCloser("clickhouse", ch))
	}
	if producer != nil {
		opts = append(opts, server.WithCloser("kafka", producer))
	}
	opts = append(opts, server.WithCloser("cache", c))
	return server.New(l, srv, opts...)
}
