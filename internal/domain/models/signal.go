package models

import (
	"fmt"
	"strings"

	"github.com/creasty/defaults"
)

// SignalType is the closed set of detector outputs known to the scorer.
type SignalType string

const (
	SignalRSI                SignalType = "rsi"
	SignalStochastic         SignalType = "stochastic"
	SignalWilliamsR          SignalType = "williams_r"
	SignalCCI                SignalType = "cci"
	SignalMACD               SignalType = "macd"
	SignalEMACross           SignalType = "ema_cross"
	SignalSMATrend           SignalType = "sma_trend"
	SignalADX                SignalType = "adx"
	SignalBollinger          SignalType = "bollinger"
	SignalVolumeSpike        SignalType = "volume_spike"
	SignalOBV                SignalType = "obv"
	SignalVolatilityBreakout SignalType = "volatility_breakout"
	SignalSupportResistance  SignalType = "support_resistance"
	SignalMomentum           SignalType = "momentum"
)

// AllSignalTypes lists every SignalType in a stable order.
var AllSignalTypes = []SignalType{
	SignalRSI, SignalStochastic, SignalWilliamsR, SignalCCI,
	SignalMACD, SignalEMACross, SignalSMATrend, SignalADX,
	SignalBollinger, SignalVolumeSpike, SignalOBV,
	SignalVolatilityBreakout, SignalSupportResistance, SignalMomentum,
}

var signalTypeSet = func() map[SignalType]struct{} {
	m := make(map[SignalType]struct{}, len(AllSignalTypes))
	for _, t := range AllSignalTypes {
		m[t] = struct{}{}
	}
	return m
}()

// ParseSignalType normalizes s and reports an error for unknown types.
func ParseSignalType(s string) (SignalType, error) {
	t := SignalType(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := signalTypeSet[t]; !ok {
		return "", fmt.Errorf("unknown signal type %q", s)
	}
	return t, nil
}

// Valid reports whether t is a member of the closed set.
func (t SignalType) Valid() bool {
	_, ok := signalTypeSet[t]
	return ok
}

// Signal is one detector output for one candle.
type Signal struct {
	Type        SignalType `json:"type"`
	Strength    float64    `json:"strength"`
	IsEvent     bool       `json:"is_event"`
	CandleIndex int        `json:"candle_index"`
	Timestamp   int64      `json:"timestamp"`
}

// SignalConfig enables detectors and carries their thresholds.
// An empty Enabled list enables every type.
type SignalConfig struct {
	Enabled []SignalType `json:"enabled,omitempty"`

	RSIPeriod       int     `json:"rsi_period" default:"14" validate:"gte=2,lte=200"`
	RSIOversold     float64 `json:"rsi_oversold" default:"30" validate:"gte=0,lte=100"`
	StochPeriod     int     `json:"stoch_period" default:"14" validate:"gte=2,lte=200"`
	StochOversold   float64 `json:"stoch_oversold" default:"20" validate:"gte=0,lte=100"`
	WillRPeriod     int     `json:"willr_period" default:"14" validate:"gte=2,lte=200"`
	CCIPeriod       int     `json:"cci_period" default:"20" validate:"gte=2,lte=200"`
	FastEMA         int     `json:"fast_ema" default:"12" validate:"gte=2,lte=200"`
	SlowEMA         int     `json:"slow_ema" default:"26" validate:"gte=2,lte=400"`
	TrendSMA        int     `json:"trend_sma" default:"50" validate:"gte=2,lte=400"`
	ADXPeriod       int     `json:"adx_period" default:"14" validate:"gte=2,lte=200"`
	ADXThreshold    float64 `json:"adx_threshold" default:"25" validate:"gte=0,lte=100"`
	BollingerPeriod int     `json:"bollinger_period" default:"20" validate:"gte=2,lte=200"`
	BollingerStdDev float64 `json:"bollinger_stddev" default:"2" validate:"gt=0,lte=5"`
	VolumePeriod    int     `json:"volume_period" default:"20" validate:"gte=2,lte=200"`
	VolumeSpikeMult float64 `json:"volume_spike_mult" default:"2" validate:"gt=1"`
	ATRPeriod       int     `json:"atr_period" default:"14" validate:"gte=2,lte=200"`
	RangePeriod     int     `json:"range_period" default:"20" validate:"gte=2,lte=400"`
	MomentumPeriod  int     `json:"momentum_period" default:"10" validate:"gte=1,lte=200"`
}

// DefaultSignalConfig returns a config with every detector enabled and the
// default periods and thresholds.
func DefaultSignalConfig() SignalConfig {
	var c SignalConfig
	_ = defaults.Set(&c)
	return c
}

// IsEnabled reports whether detector t should run.
func (c SignalConfig) IsEnabled(t SignalType) bool {
	if len(c.Enabled) == 0 {
		return true
	}
	for _, e := range c.Enabled {
		if e == t {
			return true
		}
	}
	return false
}
