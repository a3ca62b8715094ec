package analytics

import (
	"context"
	"math"

	"SignalForge/internal/domain/models"
	domsvc "SignalForge/internal/domain/service"
	"SignalForge/internal/services/features"
)

const (
	defaultRegimeWindow = 50
	trendTStat          = 2.0
)

// LocalRegimeClassifier labels candles from the t-statistic of the mean log
// return over a trailing window. |t| above 2 is a trend, anything else is
// ranging. Candles without a full window are unknown.
type LocalRegimeClassifier struct {
	window int
}

type RegimeOption func(*LocalRegimeClassifier)

func WithRegimeWindow(n int) RegimeOption {
	return func(c *LocalRegimeClassifier) {
		if n >= 2 {
			c.window = n
		}
	}
}

func NewLocalRegimeClassifier(opts ...RegimeOption) *LocalRegimeClassifier {
	c := &LocalRegimeClassifier{window: defaultRegimeWindow}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *LocalRegimeClassifier) Classify(ctx context.Context, _ string, candles []models.Candle) (models.RegimeHistory, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	hist := make(models.RegimeHistory, len(candles))
	returns := features.ComputeLogReturns(candles)
	means, stds := features.RollingMeanStd(returns, c.window)

	for i := range candles {
		// return i-1 ends at candle i
		if i < c.window {
			hist[i] = models.RegimeAt{Regime: models.RegimeUnknown}
			continue
		}
		hist[i] = c.label(means[i-1], stds[i-1])
	}
	return hist, nil
}

func (c *LocalRegimeClassifier) label(mean, std float64) models.RegimeAt {
	if math.IsNaN(mean) || math.IsNaN(std) {
		return models.RegimeAt{Regime: models.RegimeUnknown}
	}
	if std < 1e-12 {
		switch {
		case mean > 0:
			return models.RegimeAt{Regime: models.RegimeUptrend, Confidence: 1}
		case mean < 0:
			return models.RegimeAt{Regime: models.RegimeDowntrend, Confidence: 1}
		default:
			return models.RegimeAt{Regime: models.RegimeRanging, Confidence: 1}
		}
	}
	t := mean / std * math.Sqrt(float64(c.window))
	switch {
	case t > trendTStat:
		return models.RegimeAt{Regime: models.RegimeUptrend, Confidence: math.Min(t/(2*trendTStat), 1)}
	case t < -trendTStat:
		return models.RegimeAt{Regime: models.RegimeDowntrend, Confidence: math.Min(-t/(2*trendTStat), 1)}
	default:
		return models.RegimeAt{Regime: models.RegimeRanging, Confidence: 1 - math.Abs(t)/trendTStat}
	}
}

var _ domsvc.RegimeClassifier = (*LocalRegimeClassifier)(nil)
