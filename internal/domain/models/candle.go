package models

import "time"

// Candle is one OHLCV bar. Candle slices are index-stable for a whole run:
// combination identity depends on the position of a candle in its slice.
type Candle struct {
	Time   time.Time `json:"time"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// Indicators maps an indicator name to a series aligned with the candles.
// A failed indicator is present with an empty series.
type Indicators map[string][]float64

// At returns the value of name at index i and whether it exists.
func (ind Indicators) At(name string, i int) (float64, bool) {
	s := ind[name]
	if i < 0 || i >= len(s) {
		return 0, false
	}
	return s[i], true
}
