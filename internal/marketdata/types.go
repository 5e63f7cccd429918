// Package marketdata fetches quotes and historical bars from an external
// HTTP source, computes technical indicators over them, and caches results
// with a per-operation TTL.
package marketdata

import "time"

// Quote is the latest trade snapshot for a symbol.
type Quote struct {
	Timestamp     time.Time `json:"timestamp"`
	Symbol        string    `json:"symbol"`
	Price         float64   `json:"price"`
	PreviousClose float64   `json:"previous_close"`
	Open          float64   `json:"open"`
	High          float64   `json:"high"`
	Low           float64   `json:"low"`
	Volume        int64     `json:"volume"`
	Change        float64   `json:"change"`
	ChangePercent float64   `json:"change_percent"`
}

// Bar is one historical OHLCV sample at a given interval.
type Bar struct {
	Timestamp time.Time `json:"timestamp"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    int64     `json:"volume"`
}

// Range is a supported historical lookback window.
type Range string

const (
	Range1d  Range = "1d"
	Range5d  Range = "5d"
	Range1mo Range = "1mo"
	Range3mo Range = "3mo"
	Range6mo Range = "6mo"
	Range1y  Range = "1y"
	Range2y  Range = "2y"
	Range5y  Range = "5y"
)

var validRanges = map[Range]bool{
	Range1d: true, Range5d: true, Range1mo: true, Range3mo: true,
	Range6mo: true, Range1y: true, Range2y: true, Range5y: true,
}

// IsValid reports whether r is a supported historical range.
func (r Range) IsValid() bool { return validRanges[r] }

// Interval is a supported bar interval.
type Interval string

const (
	Interval1m  Interval = "1m"
	Interval5m  Interval = "5m"
	Interval15m Interval = "15m"
	Interval30m Interval = "30m"
	Interval1h  Interval = "1h"
	Interval1d  Interval = "1d"
)

var validIntervals = map[Interval]bool{
	Interval1m: true, Interval5m: true, Interval15m: true,
	Interval30m: true, Interval1h: true, Interval1d: true,
}

// IsValid reports whether i is a supported bar interval.
func (i Interval) IsValid() bool { return validIntervals[i] }

// IndicatorKind selects which technical indicator to compute.
type IndicatorKind string

const (
	IndicatorSMA IndicatorKind = "sma"
	IndicatorEMA IndicatorKind = "ema"
	IndicatorRSI IndicatorKind = "rsi"
)

// rangeOrder lists ranges from smallest to largest, used to pick the
// smallest standard bucket covering a requested span.
var rangeOrder = []Range{Range1d, Range5d, Range1mo, Range3mo, Range6mo, Range1y, Range2y, Range5y}

var rangeDuration = map[Range]time.Duration{
	Range1d:  24 * time.Hour,
	Range5d:  5 * 24 * time.Hour,
	Range1mo: 31 * 24 * time.Hour,
	Range3mo: 93 * 24 * time.Hour,
	Range6mo: 186 * 24 * time.Hour,
	Range1y:  366 * 24 * time.Hour,
	Range2y:  2 * 366 * 24 * time.Hour,
	Range5y:  5 * 366 * 24 * time.Hour,
}

// SmallestRangeCovering returns the smallest standard Range whose duration
// is at least span, or the largest supported Range if span exceeds all of
// them.
func SmallestRangeCovering(span time.Duration) Range {
	for _, r := range rangeOrder {
		if rangeDuration[r] >= span {
			return r
		}
	}
	return Range5y
}
