package analytics

import (
	"context"
	"fmt"
	"math"

	"SignalForge/internal/domain/models"
	domsvc "SignalForge/internal/domain/service"
	"SignalForge/pkg/config"
	"SignalForge/pkg/logger"
)

const retryAttempts = 3

type indicatorsRequest struct {
	Candles []models.Candle     `json:"candles"`
	Config  models.SignalConfig `json:"config"`
}

// wireSeries carries NaN warm-up values as null.
type wireSeries []*float64

type indicatorsResponse struct {
	Indicators map[string]wireSeries `json:"indicators"`
}

func toWire(ind models.Indicators) map[string]wireSeries {
	out := make(map[string]wireSeries, len(ind))
	for name, series := range ind {
		ws := make(wireSeries, len(series))
		for i, v := range series {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				continue
			}
			v := v
			ws[i] = &v
		}
		out[name] = ws
	}
	return out
}

func fromWire(ws wireSeries) []float64 {
	out := make([]float64, len(ws))
	for i, v := range ws {
		if v == nil {
			out[i] = math.NaN()
			continue
		}
		out[i] = *v
	}
	return out
}

// HTTPIndicatorProvider computes indicators on the analytics service.
type HTTPIndicatorProvider struct {
	base *HTTPServiceBase
	log  *logger.Logger
}

func NewHTTPIndicatorProvider(cfg *config.Config, log *logger.Logger) *HTTPIndicatorProvider {
	if log == nil {
		log = logger.Nop()
	}
	return &HTTPIndicatorProvider{base: NewHTTPServiceBase(cfg), log: log}
}

// Compute returns the service's series. A series whose length does not match
// the candles is replaced by an empty one.
func (p *HTTPIndicatorProvider) Compute(ctx context.Context, candles []models.Candle, cfg models.SignalConfig) (models.Indicators, error) {
	var resp indicatorsResponse
	if err := p.base.PostJSONWithRetry(ctx, "/indicators/compute", indicatorsRequest{Candles: candles, Config: cfg}, &resp, retryAttempts); err != nil {
		return nil, fmt.Errorf("compute indicators: %w", err)
	}
	ind := make(models.Indicators, len(resp.Indicators))
	for name, series := range resp.Indicators {
		if len(series) != len(candles) {
			p.log.Diagnostic("indicator length mismatch",
				logger.String("indicator", name),
				logger.Int("got", len(series)),
				logger.Int("want", len(candles)),
			)
			ind[name] = []float64{}
			continue
		}
		ind[name] = fromWire(series)
	}
	return ind, nil
}

type detectRequest struct {
	Candles    []models.Candle       `json:"candles"`
	Indicators map[string]wireSeries `json:"indicators"`
	Config     models.SignalConfig   `json:"config"`
	Regimes    models.RegimeHistory  `json:"regimes,omitempty"`
}

type detectResponse struct {
	Signals [][]models.Signal `json:"signals"`
}

// HTTPSeriesDetector detects signals for a whole candle series in one call.
type HTTPSeriesDetector struct {
	base *HTTPServiceBase
}

func NewHTTPSeriesDetector(cfg *config.Config) *HTTPSeriesDetector {
	return &HTTPSeriesDetector{base: NewHTTPServiceBase(cfg)}
}

func (d *HTTPSeriesDetector) DetectSeries(ctx context.Context, candles []models.Candle, ind models.Indicators, cfg models.SignalConfig, regimes models.RegimeHistory) ([][]models.Signal, error) {
	var resp detectResponse
	req := detectRequest{Candles: candles, Indicators: toWire(ind), Config: cfg, Regimes: regimes}
	if err := d.base.PostJSONWithRetry(ctx, "/signals/detect", req, &resp, retryAttempts); err != nil {
		return nil, fmt.Errorf("detect signals: %w", err)
	}
	if len(resp.Signals) > len(candles) {
		resp.Signals = resp.Signals[:len(candles)]
	}
	return resp.Signals, nil
}

// PrecomputedDetector serves per-candle signals out of a series detected up front.
type PrecomputedDetector struct {
	signals [][]models.Signal
}

func NewPrecomputedDetector(signals [][]models.Signal) *PrecomputedDetector {
	return &PrecomputedDetector{signals: signals}
}

// Precompute runs sd once over the whole input and wraps the result.
func Precompute(ctx context.Context, sd domsvc.SeriesDetector, input models.BacktestInput, cfg models.SignalConfig) (*PrecomputedDetector, error) {
	signals, err := sd.DetectSeries(ctx, input.Candles, input.Indicators, cfg, input.Regimes)
	if err != nil {
		return nil, err
	}
	return NewPrecomputedDetector(signals), nil
}

func (d *PrecomputedDetector) Detect(_ models.Candle, _ models.Indicators, idx int, _ models.SignalConfig, _ models.RegimeAt) ([]models.Signal, error) {
	if idx < 0 || idx >= len(d.signals) {
		return nil, fmt.Errorf("no precomputed signals for candle %d", idx)
	}
	return d.signals[idx], nil
}

type regimeRequest struct {
	Symbol  string          `json:"symbol"`
	Candles []models.Candle `json:"candles"`
}

type regimeEntry struct {
	Regime     string  `json:"regime"`
	Confidence float64 `json:"confidence"`
}

type regimeResponse struct {
	Regimes []regimeEntry `json:"regimes"`
}

// HTTPRegimeClassifier labels candles with the analytics service's regime model.
type HTTPRegimeClassifier struct {
	base *HTTPServiceBase
}

func NewHTTPRegimeClassifier(cfg *config.Config) *HTTPRegimeClassifier {
	return &HTTPRegimeClassifier{base: NewHTTPServiceBase(cfg)}
}

// Classify maps free-form labels onto the known regimes. Candles the service
// did not label are unknown with zero confidence.
func (c *HTTPRegimeClassifier) Classify(ctx context.Context, symbol string, candles []models.Candle) (models.RegimeHistory, error) {
	var rr regimeResponse
	if err := c.base.PostJSONWithRetry(ctx, "/regime/history", regimeRequest{Symbol: symbol, Candles: candles}, &rr, retryAttempts); err != nil {
		return nil, fmt.Errorf("post regime: %w", err)
	}
	hist := make(models.RegimeHistory, len(candles))
	for i := range hist {
		if i >= len(rr.Regimes) {
			hist[i] = models.RegimeAt{Regime: models.RegimeUnknown}
			continue
		}
		hist[i] = models.RegimeAt{
			Regime:     models.ParseRegime(rr.Regimes[i].Regime),
			Confidence: rr.Regimes[i].Confidence,
		}
	}
	return hist, nil
}

var (
	_ domsvc.IndicatorProvider = (*HTTPIndicatorProvider)(nil)
	_ domsvc.SeriesDetector    = (*HTTPSeriesDetector)(nil)
	_ domsvc.SignalDetector    = (*PrecomputedDetector)(nil)
	_ domsvc.RegimeClassifier  = (*HTTPRegimeClassifier)(nil)
)
