package analytics

import (
	"fmt"
	"math"

	"SignalForge/internal/domain/models"
	domsvc "SignalForge/internal/domain/service"
	"SignalForge/internal/services/features"
)

const (
	willROversold    = -80.0
	cciOversold      = -100.0
	breakoutATRMult  = 1.5
	supportTolerance = 1.005
	momentumMinPct   = 1.0
)

// RuleDetector derives long-side signals from indicator series computed by
// features.TalibProvider. Rules whose inputs are missing or NaN stay silent.
type RuleDetector struct {
	rules []rule
}

type rule struct {
	typ   models.SignalType
	check func(in ruleInput) (strength float64, event bool, ok bool)
}

type ruleInput struct {
	candle models.Candle
	ind    models.Indicators
	idx    int
	cfg    models.SignalConfig
}

// at returns indicator name at idx+offset when it is a finite number.
func (in ruleInput) at(name string, offset int) (float64, bool) {
	v, ok := in.ind.At(name, in.idx+offset)
	if !ok || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

func NewRuleDetector() *RuleDetector {
	return &RuleDetector{rules: []rule{
		{models.SignalRSI, rsiRule},
		{models.SignalStochastic, stochRule},
		{models.SignalWilliamsR, willRRule},
		{models.SignalCCI, cciRule},
		{models.SignalMACD, macdRule},
		{models.SignalEMACross, emaCrossRule},
		{models.SignalSMATrend, smaTrendRule},
		{models.SignalADX, adxRule},
		{models.SignalBollinger, bollingerRule},
		{models.SignalVolumeSpike, volumeSpikeRule},
		{models.SignalOBV, obvRule},
		{models.SignalVolatilityBreakout, breakoutRule},
		{models.SignalSupportResistance, supportRule},
		{models.SignalMomentum, momentumRule},
	}}
}

func (d *RuleDetector) Detect(candle models.Candle, ind models.Indicators, idx int, cfg models.SignalConfig, _ models.RegimeAt) ([]models.Signal, error) {
	if idx < 0 {
		return nil, fmt.Errorf("candle index %d out of range", idx)
	}
	in := ruleInput{candle: candle, ind: ind, idx: idx, cfg: cfg}
	var out []models.Signal
	for _, r := range d.rules {
		if !cfg.IsEnabled(r.typ) {
			continue
		}
		strength, event, ok := r.check(in)
		if !ok {
			continue
		}
		out = append(out, models.Signal{
			Type:        r.typ,
			Strength:    clampStrength(strength),
			IsEvent:     event,
			CandleIndex: idx,
			Timestamp:   candle.Time.UnixMilli(),
		})
	}
	return out, nil
}

// oversold scores how far v sits below limit, relative to depth.
func oversold(v, limit, depth float64) float64 {
	return 50 + (limit-v)/depth*50
}

func rsiRule(in ruleInput) (float64, bool, bool) {
	v, ok := in.at(features.IndRSI, 0)
	os := in.cfg.RSIOversold
	if !ok || os <= 0 || v >= os {
		return 0, false, false
	}
	prev, pok := in.at(features.IndRSI, -1)
	return oversold(v, os, os), pok && prev >= os, true
}

func stochRule(in ruleInput) (float64, bool, bool) {
	k, ok := in.at(features.IndStochK, 0)
	os := in.cfg.StochOversold
	if !ok || os <= 0 || k >= os {
		return 0, false, false
	}
	prev, pok := in.at(features.IndStochK, -1)
	return oversold(k, os, os), pok && prev >= os, true
}

func willRRule(in ruleInput) (float64, bool, bool) {
	v, ok := in.at(features.IndWillR, 0)
	if !ok || v >= willROversold {
		return 0, false, false
	}
	prev, pok := in.at(features.IndWillR, -1)
	return oversold(v, willROversold, 20), pok && prev >= willROversold, true
}

func cciRule(in ruleInput) (float64, bool, bool) {
	v, ok := in.at(features.IndCCI, 0)
	if !ok || v >= cciOversold {
		return 0, false, false
	}
	prev, pok := in.at(features.IndCCI, -1)
	return oversold(v, cciOversold, 100), pok && prev >= cciOversold, true
}

func macdRule(in ruleInput) (float64, bool, bool) {
	m, ok1 := in.at(features.IndMACD, 0)
	s, ok2 := in.at(features.IndMACDSignal, 0)
	pm, ok3 := in.at(features.IndMACD, -1)
	ps, ok4 := in.at(features.IndMACDSignal, -1)
	if !(ok1 && ok2 && ok3 && ok4) || !(pm <= ps && m > s) {
		return 0, false, false
	}
	if m < 0 {
		return 70, true, true
	}
	return 60, true, true
}

func emaCrossRule(in ruleInput) (float64, bool, bool) {
	f, ok1 := in.at(features.IndEMAFast, 0)
	s, ok2 := in.at(features.IndEMASlow, 0)
	if !(ok1 && ok2) || f <= s {
		return 0, false, false
	}
	pf, ok3 := in.at(features.IndEMAFast, -1)
	ps, ok4 := in.at(features.IndEMASlow, -1)
	if ok3 && ok4 && pf <= ps {
		return 65, true, true
	}
	return 35, false, true
}

func smaTrendRule(in ruleInput) (float64, bool, bool) {
	sma, ok := in.at(features.IndSMATrend, 0)
	if !ok || sma <= 0 || in.candle.Close <= sma {
		return 0, false, false
	}
	pct := (in.candle.Close - sma) / sma * 100
	return 40 + pct*10, false, true
}

func adxRule(in ruleInput) (float64, bool, bool) {
	v, ok := in.at(features.IndADX, 0)
	if !ok || v <= in.cfg.ADXThreshold {
		return 0, false, false
	}
	return v * 1.5, false, true
}

func bollingerRule(in ruleInput) (float64, bool, bool) {
	upper, ok1 := in.at(features.IndBBUpper, 0)
	lower, ok2 := in.at(features.IndBBLower, 0)
	width := upper - lower
	if !(ok1 && ok2) || width <= 0 || in.candle.Close > lower {
		return 0, false, false
	}
	return 60 + (lower-in.candle.Close)/width*100, false, true
}

func volumeSpikeRule(in ruleInput) (float64, bool, bool) {
	avg, ok := in.at(features.IndVolumeSMA, 0)
	mult := in.cfg.VolumeSpikeMult
	if !ok || avg <= 0 || in.candle.Volume <= mult*avg {
		return 0, false, false
	}
	ratio := in.candle.Volume / avg
	return 50 + (ratio-mult)*20, true, true
}

func obvRule(in ruleInput) (float64, bool, bool) {
	obv, ok1 := in.at(features.IndOBV, 0)
	avg, ok2 := in.at(features.IndOBVSMA, 0)
	prev, ok3 := in.at(features.IndOBV, -1)
	if !(ok1 && ok2 && ok3) || obv <= prev || obv <= avg {
		return 0, false, false
	}
	return 45, false, true
}

func breakoutRule(in ruleInput) (float64, bool, bool) {
	atr, ok := in.at(features.IndATR, 0)
	c := in.candle
	rng := c.High - c.Low
	if !ok || atr <= 0 || rng <= breakoutATRMult*atr || c.Close <= c.Open {
		return 0, false, false
	}
	return 50 + (rng/atr-breakoutATRMult)*40, true, true
}

// supportRule uses the prior candle's range low so the current bar can test it.
func supportRule(in ruleInput) (float64, bool, bool) {
	support, ok := in.at(features.IndRangeLow, -1)
	c := in.candle
	if !ok || support <= 0 || c.Low > support*supportTolerance || c.Close <= support {
		return 0, false, false
	}
	return 55, true, true
}

func momentumRule(in ruleInput) (float64, bool, bool) {
	mom, ok := in.at(features.IndMomentum, 0)
	base := in.candle.Close - mom
	if !ok || base <= 0 {
		return 0, false, false
	}
	pct := mom / base * 100
	if pct <= momentumMinPct {
		return 0, false, false
	}
	return 40 + pct*10, false, true
}

func clampStrength(v float64) float64 {
	switch {
	case math.IsNaN(v) || v < 0:
		return 0
	case v > 100:
		return 100
	default:
		return v
	}
}

var _ domsvc.SignalDetector = (*RuleDetector)(nil)
