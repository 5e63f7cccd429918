package marketdata

import (
	"fmt"

	"github.com/markcheno/go-talib"
)

// SMA computes the simple moving average of closes. Entries before index
// period-1, where no full window exists, are 0; when there are fewer than
// period closes, every entry is 0.
func SMA(closes []float64, period int) []float64 {
	if period <= 0 || len(closes) < period {
		return make([]float64, len(closes))
	}
	out := talib.Sma(closes, period)
	for i := 0; i < period-1 && i < len(out); i++ {
		out[i] = 0
	}
	return out
}

// EMA computes the exponential moving average of closes, seeded with the
// SMA at index period-1, per the spec's recurrence
// ema[i] = (close[i]-ema[i-1])*k + ema[i-1], k = 2/(period+1).
func EMA(closes []float64, period int) []float64 {
	out := make([]float64, len(closes))
	if period <= 0 || len(closes) < period {
		return out
	}

	sma := SMA(closes, period)
	out[period-1] = sma[period-1]

	k := 2.0 / (float64(period) + 1)
	for i := period; i < len(closes); i++ {
		out[i] = (closes[i]-out[i-1])*k + out[i-1]
	}
	return out
}

// RSI computes the Wilder-smoothed relative strength index of closes,
// defined from index period onward. Hand-rolled rather than delegated to
// go-talib so the exact recurrence in the spec stays auditable against a
// fixture to within 1e-6.
func RSI(closes []float64, period int) []float64 {
	out := make([]float64, len(closes))
	if period <= 0 || len(closes) <= period {
		return out
	}

	var sumGain, sumLoss float64
	for i := 1; i <= period; i++ {
		delta := closes[i] - closes[i-1]
		if delta > 0 {
			sumGain += delta
		} else {
			sumLoss += -delta
		}
	}
	avgGain := sumGain / float64(period)
	avgLoss := sumLoss / float64(period)
	out[period] = rsiFromAverages(avgGain, avgLoss)

	for i := period + 1; i < len(closes); i++ {
		delta := closes[i] - closes[i-1]
		gain, loss := 0.0, 0.0
		if delta > 0 {
			gain = delta
		} else {
			loss = -delta
		}
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
		out[i] = rsiFromAverages(avgGain, avgLoss)
	}

	return out
}

func rsiFromAverages(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		if avgGain == 0 {
			return 50
		}
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}

// Indicator dispatches to SMA/EMA/RSI by kind, returning an error for an
// unrecognized kind.
func Indicator(closes []float64, kind IndicatorKind, period int) ([]float64, error) {
	switch kind {
	case IndicatorSMA:
		return SMA(closes, period), nil
	case IndicatorEMA:
		return EMA(closes, period), nil
	case IndicatorRSI:
		return RSI(closes, period), nil
	default:
		return nil, fmt.Errorf("unknown indicator kind: %q", kind)
	}
}
