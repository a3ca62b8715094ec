package features

import (
	"context"
	"fmt"
	"math"

	"SignalForge/internal/domain/models"
	domsvc "SignalForge/internal/domain/service"
	"SignalForge/pkg/logger"

	"github.com/markcheno/go-talib"
)

// Indicator names produced by TalibProvider and read by the rule detector.
const (
	IndRSI        = "rsi"
	IndStochK     = "stoch_k"
	IndStochD     = "stoch_d"
	IndWillR      = "willr"
	IndCCI        = "cci"
	IndMACD       = "macd"
	IndMACDSignal = "macd_signal"
	IndMACDHist   = "macd_hist"
	IndEMAFast    = "ema_fast"
	IndEMASlow    = "ema_slow"
	IndSMATrend   = "sma_trend"
	IndADX        = "adx"
	IndBBUpper    = "bb_upper"
	IndBBMiddle   = "bb_middle"
	IndBBLower    = "bb_lower"
	IndVolumeSMA  = "volume_sma"
	IndOBV        = "obv"
	IndOBVSMA     = "obv_sma"
	IndATR        = "atr"
	IndMomentum   = "momentum"
	IndRangeLow   = "range_low"
	IndRangeHigh  = "range_high"
)

const (
	macdSignalPeriod = 9
	stochSlowPeriod  = 3
)

// TalibProvider computes indicators in-process with go-talib.
type TalibProvider struct {
	log *logger.Logger
}

func NewTalibProvider(log *logger.Logger) *TalibProvider {
	if log == nil {
		log = logger.Nop()
	}
	return &TalibProvider{log: log}
}

type ohlcv struct {
	open, high, low, close, volume []float64
}

func split(candles []models.Candle) ohlcv {
	s := ohlcv{
		open:   make([]float64, len(candles)),
		high:   make([]float64, len(candles)),
		low:    make([]float64, len(candles)),
		close:  make([]float64, len(candles)),
		volume: make([]float64, len(candles)),
	}
	for i, c := range candles {
		s.open[i] = c.Open
		s.high[i] = c.High
		s.low[i] = c.Low
		s.close[i] = c.Close
		s.volume[i] = c.Volume
	}
	return s
}

// Compute returns every indicator aligned with candles. Values inside an
// indicator's lookback are NaN; an indicator that fails is left empty.
func (p *TalibProvider) Compute(ctx context.Context, candles []models.Candle, cfg models.SignalConfig) (models.Indicators, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s := split(candles)
	n := len(candles)
	ind := make(models.Indicators, 24)

	p.series(ind, n, cfg.RSIPeriod, func() [][]float64 {
		return [][]float64{talib.Rsi(s.close, cfg.RSIPeriod)}
	}, IndRSI)
	p.series(ind, n, cfg.StochPeriod+2*(stochSlowPeriod-1)-1, func() [][]float64 {
		k, d := talib.Stoch(s.high, s.low, s.close, cfg.StochPeriod, stochSlowPeriod, talib.SMA, stochSlowPeriod, talib.SMA)
		return [][]float64{k, d}
	}, IndStochK, IndStochD)
	p.series(ind, n, cfg.WillRPeriod-1, func() [][]float64 {
		return [][]float64{talib.WillR(s.high, s.low, s.close, cfg.WillRPeriod)}
	}, IndWillR)
	p.series(ind, n, cfg.CCIPeriod-1, func() [][]float64 {
		return [][]float64{talib.Cci(s.high, s.low, s.close, cfg.CCIPeriod)}
	}, IndCCI)
	p.series(ind, n, cfg.SlowEMA+macdSignalPeriod-2, func() [][]float64 {
		m, sig, hist := talib.Macd(s.close, cfg.FastEMA, cfg.SlowEMA, macdSignalPeriod)
		return [][]float64{m, sig, hist}
	}, IndMACD, IndMACDSignal, IndMACDHist)
	p.series(ind, n, cfg.FastEMA-1, func() [][]float64 {
		return [][]float64{talib.Ema(s.close, cfg.FastEMA)}
	}, IndEMAFast)
	p.series(ind, n, cfg.SlowEMA-1, func() [][]float64 {
		return [][]float64{talib.Ema(s.close, cfg.SlowEMA)}
	}, IndEMASlow)
	p.series(ind, n, cfg.TrendSMA-1, func() [][]float64 {
		return [][]float64{talib.Sma(s.close, cfg.TrendSMA)}
	}, IndSMATrend)
	p.series(ind, n, 2*cfg.ADXPeriod-1, func() [][]float64 {
		return [][]float64{talib.Adx(s.high, s.low, s.close, cfg.ADXPeriod)}
	}, IndADX)
	p.series(ind, n, cfg.BollingerPeriod-1, func() [][]float64 {
		up, mid, low := talib.BBands(s.close, cfg.BollingerPeriod, cfg.BollingerStdDev, cfg.BollingerStdDev, talib.SMA)
		return [][]float64{up, mid, low}
	}, IndBBUpper, IndBBMiddle, IndBBLower)
	p.series(ind, n, cfg.VolumePeriod-1, func() [][]float64 {
		return [][]float64{talib.Sma(s.volume, cfg.VolumePeriod)}
	}, IndVolumeSMA)
	p.series(ind, n, cfg.VolumePeriod-1, func() [][]float64 {
		obv := talib.Obv(s.close, s.volume)
		return [][]float64{obv, talib.Sma(obv, cfg.VolumePeriod)}
	}, IndOBV, IndOBVSMA)
	p.series(ind, n, cfg.ATRPeriod, func() [][]float64 {
		return [][]float64{talib.Atr(s.high, s.low, s.close, cfg.ATRPeriod)}
	}, IndATR)
	p.series(ind, n, cfg.MomentumPeriod, func() [][]float64 {
		return [][]float64{talib.Mom(s.close, cfg.MomentumPeriod)}
	}, IndMomentum)
	p.series(ind, n, cfg.RangePeriod-1, func() [][]float64 {
		return [][]float64{talib.Min(s.low, cfg.RangePeriod), talib.Max(s.high, cfg.RangePeriod)}
	}, IndRangeLow, IndRangeHigh)

	return ind, nil
}

// series runs fn under a recover guard and stores its outputs under names.
// Outputs with the wrong length are dropped.
func (p *TalibProvider) series(ind models.Indicators, n, lookback int, fn func() [][]float64, names ...string) {
	out, err := guarded(fn)
	if err == nil && len(out) != len(names) {
		err = fmt.Errorf("expected %d outputs, got %d", len(names), len(out))
	}
	for i, name := range names {
		if err != nil || len(out[i]) != n {
			if err == nil {
				err = fmt.Errorf("length %d, want %d", len(out[i]), n)
			}
			ind[name] = []float64{}
			continue
		}
		ind[name] = maskLookback(out[i], lookback)
	}
	if err != nil && n > 0 {
		p.log.Diagnostic("indicator failed",
			logger.String("indicator", names[0]),
			logger.Int("candles", n),
			logger.Error(err),
		)
	}
}

func guarded(fn func() [][]float64) (out [][]float64, err error) {
	defer func() {
		if r := recover(); r != nil {
			out, err = nil, fmt.Errorf("panic: %v", r)
		}
	}()
	return fn(), nil
}

// maskLookback replaces the warm-up prefix with NaN so callers can tell
// "not yet defined" from a real zero.
func maskLookback(s []float64, lookback int) []float64 {
	if lookback < 0 {
		lookback = 0
	}
	for i := 0; i < lookback && i < len(s); i++ {
		s[i] = math.NaN()
	}
	return s
}

var _ domsvc.IndicatorProvider = (*TalibProvider)(nil)
