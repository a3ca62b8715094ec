package analytics

import (
	"context"

	"SignalForge/internal/domain/models"
	domsvc "SignalForge/internal/domain/service"
	svcmetrics "SignalForge/internal/service/metrics"
	"SignalForge/pkg/logger"
)

// FallbackIndicatorProvider computes indicators with primary and retries
// with fallback when primary fails. Cancellation is never retried.
type FallbackIndicatorProvider struct {
	primary  domsvc.IndicatorProvider
	fallback domsvc.IndicatorProvider
	log      *logger.Logger
}

func NewFallbackIndicatorProvider(primary, fallback domsvc.IndicatorProvider, log *logger.Logger) *FallbackIndicatorProvider {
	if log == nil {
		log = logger.Nop()
	}
	return &FallbackIndicatorProvider{primary: primary, fallback: fallback, log: log}
}

func (p *FallbackIndicatorProvider) Compute(ctx context.Context, candles []models.Candle, cfg models.SignalConfig) (models.Indicators, error) {
	ind, err := p.primary.Compute(ctx, candles, cfg)
	if err == nil || p.fallback == nil || ctx.Err() != nil {
		return ind, err
	}
	p.log.Warn("remote indicators failed, computing locally", logger.Error(err))
	svcmetrics.AnalyticsFallbacks.WithLabelValues("indicator_provider").Inc()
	return p.fallback.Compute(ctx, candles, cfg)
}

// FallbackRegimeClassifier mirrors FallbackIndicatorProvider for regimes.
type FallbackRegimeClassifier struct {
	primary  domsvc.RegimeClassifier
	fallback domsvc.RegimeClassifier
	log      *logger.Logger
}

func NewFallbackRegimeClassifier(primary, fallback domsvc.RegimeClassifier, log *logger.Logger) *FallbackRegimeClassifier {
	if log == nil {
		log = logger.Nop()
	}
	return &FallbackRegimeClassifier{primary: primary, fallback: fallback, log: log}
}

func (c *FallbackRegimeClassifier) Classify(ctx context.Context, symbol string, candles []models.Candle) (models.RegimeHistory, error) {
	hist, err := c.primary.Classify(ctx, symbol, candles)
	if err == nil || c.fallback == nil || ctx.Err() != nil {
		return hist, err
	}
	c.log.Warn("remote regime classification failed, classifying locally",
		logger.String("symbol", symbol), logger.Error(err))
	svcmetrics.AnalyticsFallbacks.WithLabelValues("regime_classifier").Inc()
	return c.fallback.Classify(ctx, symbol, candles)
}

var (
	_ domsvc.IndicatorProvider = (*FallbackIndicatorProvider)(nil)
	_ domsvc.RegimeClassifier  = (*FallbackRegimeClassifier)(nil)
)
