package util

import (
	"strconv"
	"time"
)

// ParseTime tries RFC3339, RFC3339Nano, and unix seconds. Returns (t, true) if any worked.
func ParseTime(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, true
	}
	if ts, err := strconv.ParseInt(s, 10, 64); err == nil && ts > 0 {
		return time.Unix(ts, 0).UTC(), true
	}
	return time.Time{}, false
}

// AlignFromTo rounds the time range down to candle boundaries of tf.
// Unknown timeframes fall back to one minute.
func AlignFromTo(from, to time.Time, tf string) (time.Time, time.Time) {
	step := time.Minute
	if minutes, err := TimeframeMinutes(tf); err == nil {
		step = time.Duration(minutes) * time.Minute
	}
	return from.Truncate(step), to.Truncate(step)
}
