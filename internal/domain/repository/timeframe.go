package repository

import "SignalForge/pkg/util"

// Timeframe represents candle resolution buckets, e.g. "1m", "15m", "4h".
type Timeframe string

const (
	TF1m  Timeframe = "1m"
	TF5m  Timeframe = "5m"
	TF15m Timeframe = "15m"
	TF1h  Timeframe = "1h"
	TF4h  Timeframe = "4h"
	TF1d  Timeframe = "1d"
)

// IsValidTimeframe returns true if tf parses to a positive minute count.
func IsValidTimeframe(tf Timeframe) bool {
	_, err := util.TimeframeMinutes(string(tf))
	return err == nil
}

// DefaultTimeframe returns the default timeframe.
func DefaultTimeframe() Timeframe { return TF15m }

// NormalizeTimeframe converts raw string to a valid timeframe (or default).
func NormalizeTimeframe(s string) Timeframe {
	if s == "" {
		return DefaultTimeframe()
	}
	tf := Timeframe(s)
	if IsValidTimeframe(tf) {
		return tf
	}
	return DefaultTimeframe()
}

// Minutes returns the bucket width; invalid values fall back to the default.
func (tf Timeframe) Minutes() int {
	m, err := util.TimeframeMinutes(string(tf))
	if err != nil {
		m, _ = util.TimeframeMinutes(string(DefaultTimeframe()))
	}
	return m
}
