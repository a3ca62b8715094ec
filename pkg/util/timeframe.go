package util

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidTimeframe is returned for strings that are not <positive int><unit>.
var ErrInvalidTimeframe = errors.New("invalid timeframe")

var minutesPerUnit = map[byte]int{
	'm': 1,
	'h': 60,
	'd': 60 * 24,
	'w': 60 * 24 * 7,
}

// TimeframeMinutes converts strings like "15m", "4h", "1d" to minutes.
func TimeframeMinutes(s string) (int, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if len(s) < 2 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTimeframe, s)
	}
	mult, ok := minutesPerUnit[s[len(s)-1]]
	if !ok {
		return 0, fmt.Errorf("%w: unknown unit in %q", ErrInvalidTimeframe, s)
	}
	n, err := strconv.Atoi(s[:len(s)-1])
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%w: bad count in %q", ErrInvalidTimeframe, s)
	}
	return n * mult, nil
}

// WindowCandles returns how many candles of timeframe fit in window (at least 1).
func WindowCandles(window, timeframe string) (int, error) {
	wm, err := TimeframeMinutes(window)
	if err != nil {
		return 0, fmt.Errorf("time window: %w", err)
	}
	tm, err := TimeframeMinutes(timeframe)
	if err != nil {
		return 0, fmt.Errorf("timeframe: %w", err)
	}
	n := wm / tm
	if n < 1 {
		n = 1
	}
	return n, nil
}
