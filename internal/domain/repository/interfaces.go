package repository

import (
	"context"
	"time"

	"SignalForge/internal/domain/models"
)

// CandleStore provides read-only access to historical candles.
type CandleStore interface {
	GetCandles(ctx context.Context, symbol string, from, to time.Time, tf Timeframe) ([]models.Candle, error)
	GetLatestNCandles(ctx context.Context, symbol string, n int, tf Timeframe) ([]models.Candle, error)
}

// StrategyStore persists ranked strategies of a run.
type StrategyStore interface {
	Init(ctx context.Context) error
	SaveStrategies(ctx context.Context, runID string, strategies []models.Strategy) error
	Close() error
}

// ResultPublisher announces ranked strategies to downstream consumers.
type ResultPublisher interface {
	PublishStrategies(ctx context.Context, runID string, strategies []models.Strategy) error
	Close() error
}

// Metrics records pipeline counters.
type Metrics interface {
	RecordRun(status string, seconds float64)
	RecordCandles(evaluated, skipped int)
	RecordSubsets(considered int64, kept int)
	RecordMatches(successful, failed int)
	RecordStrategies(n int)
	RecordScore(seconds float64)
	RecordError(kind string)
}
