package service

import (
	"context"

	"SignalForge/internal/domain/models"
)

// IndicatorProvider computes indicator series aligned with candles. A failed
// indicator yields an empty series and must not abort the others.
type IndicatorProvider interface {
	Compute(ctx context.Context, candles []models.Candle, cfg models.SignalConfig) (models.Indicators, error)
}

// SignalDetector returns the signals active on candle idx. It must not
// mutate indicators.
type SignalDetector interface {
	Detect(candle models.Candle, indicators models.Indicators, idx int, cfg models.SignalConfig, regime models.RegimeAt) ([]models.Signal, error)
}

// SeriesDetector detects signals for every candle in one call. Result i
// belongs to candle i.
type SeriesDetector interface {
	DetectSeries(ctx context.Context, candles []models.Candle, indicators models.Indicators, cfg models.SignalConfig, regimes models.RegimeHistory) ([][]models.Signal, error)
}

// RegimeClassifier labels every candle with a regime.
type RegimeClassifier interface {
	Classify(ctx context.Context, symbol string, candles []models.Candle) (models.RegimeHistory, error)
}
