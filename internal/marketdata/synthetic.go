package marketdata

import (
	"hash/fnv"
	"math"
	"time"
)

// syntheticBasePrice derives a deterministic base price from a symbol so
// that repeated calls (and repeated backtest runs) for the same symbol in
// development mode are reproducible.
func syntheticBasePrice(symbol string) float64 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(symbol))
	return 50 + float64(h.Sum32()%20000)/100
}

// syntheticQuote builds a deterministic quote used only when the provider
// is running in development mode and the upstream fetch failed.
func syntheticQuote(symbol string) Quote {
	base := syntheticBasePrice(symbol)
	prevClose := base * 0.995
	return Quote{
		Symbol:        symbol,
		Price:         base,
		PreviousClose: prevClose,
		Open:          prevClose,
		High:          base * 1.01,
		Low:           base * 0.99,
		Volume:        1_000_000,
		Timestamp:     time.Now(),
		Change:        base - prevClose,
		ChangePercent: (base - prevClose) / prevClose * 100,
	}
}

// syntheticBars builds a deterministic, mildly oscillating bar series used
// only when the provider is running in development mode and the upstream
// fetch failed.
func syntheticBars(symbol string, count int, interval time.Duration) []Bar {
	base := syntheticBasePrice(symbol)
	bars := make([]Bar, count)
	now := time.Now()

	price := base
	for i := 0; i < count; i++ {
		drift := math.Sin(float64(i)/5) * base * 0.02
		price = base + drift
		open := price * 0.999
		high := price * 1.005
		low := price * 0.995
		bars[i] = Bar{
			Timestamp: now.Add(-time.Duration(count-i) * interval),
			Open:      open,
			High:      high,
			Low:       low,
			Close:     price,
			Volume:    500_000 + int64(i*1000),
		}
	}
	return bars
}
