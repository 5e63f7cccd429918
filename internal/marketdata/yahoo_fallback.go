package marketdata

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/wnjoon/go-yfinance/pkg/models"
	"github.com/wnjoon/go-yfinance/pkg/ticker"
)

// FallbackProvider wraps a primary Provider and, on a primary quote or
// historical fetch failure, retries via go-yfinance directly against Yahoo — for
// symbols or ranges the primary upstream's chart endpoint rejects.
type FallbackProvider struct {
	primary Provider
	log     zerolog.Logger
}

// NewFallbackProvider wraps primary with a go-yfinance secondary path.
func NewFallbackProvider(primary Provider, log zerolog.Logger) *FallbackProvider {
	return &FallbackProvider{
		primary: primary,
		log:     log.With().Str("component", "marketdata_fallback").Logger(),
	}
}

func (f *FallbackProvider) GetQuote(ctx context.Context, symbol string) (Quote, error) {
	quote, err := f.primary.GetQuote(ctx, symbol)
	if err == nil {
		return quote, nil
	}

	f.log.Warn().Err(err).Str("symbol", symbol).Msg("primary quote fetch failed, trying go-yfinance fallback")
	t, tErr := ticker.New(symbol)
	if tErr != nil {
		return Quote{}, fmt.Errorf("fallback ticker create failed after primary error %v: %w", err, tErr)
	}
	defer t.Close()

	yq, qErr := t.Quote()
	if qErr != nil || yq == nil {
		return Quote{}, fmt.Errorf("fallback quote failed after primary error %v: %w", err, qErr)
	}
	price := yq.RegularMarketPrice
	if price <= 0 {
		price = yq.PreMarketPrice
	}
	if price <= 0 {
		price = yq.PostMarketPrice
	}

	var prevClose float64
	if info, iErr := t.Info(); iErr == nil && info != nil {
		prevClose = info.RegularMarketPreviousClose
	}

	change := price - prevClose
	changePercent := 0.0
	if prevClose != 0 {
		changePercent = change / prevClose * 100
	}
	return Quote{
		Symbol:        symbol,
		Price:         price,
		PreviousClose: prevClose,
		Timestamp:     time.Now(),
		Change:        change,
		ChangePercent: changePercent,
	}, nil
}

// GetHistorical tries the primary provider first, falling back to
// go-yfinance's ticker.History when the primary errors.
func (f *FallbackProvider) GetHistorical(ctx context.Context, symbol string, rng Range, interval Interval) ([]Bar, error) {
	bars, err := f.primary.GetHistorical(ctx, symbol, rng, interval)
	if err == nil {
		return bars, nil
	}

	f.log.Warn().Err(err).Str("symbol", symbol).Msg("primary historical fetch failed, trying go-yfinance fallback")
	t, tErr := ticker.New(symbol)
	if tErr != nil {
		return nil, fmt.Errorf("fallback ticker create failed after primary error %v: %w", err, tErr)
	}
	defer t.Close()

	params := models.HistoryParams{
		Period:     yfinancePeriod(rng),
		Interval:   yfinanceInterval(interval),
		AutoAdjust: true,
	}
	ybars, hErr := t.History(params)
	if hErr != nil {
		return nil, fmt.Errorf("fallback history failed after primary error %v: %w", err, hErr)
	}

	out := make([]Bar, 0, len(ybars))
	for _, b := range ybars {
		out = append(out, Bar{
			Timestamp: b.Date,
			Open:      b.Open,
			High:      b.High,
			Low:       b.Low,
			Close:     b.Close,
			Volume:    int64(b.Volume),
		})
	}
	return out, nil
}

func (f *FallbackProvider) GetMultipleQuotes(ctx context.Context, symbols []string) map[string]Quote {
	results := f.primary.GetMultipleQuotes(ctx, symbols)
	for _, symbol := range symbols {
		if _, ok := results[symbol]; ok {
			continue
		}
		if q, err := f.GetQuote(ctx, symbol); err == nil {
			results[symbol] = q
		}
	}
	return results
}

func yfinancePeriod(rng Range) string {
	switch rng {
	case Range1d:
		return "1d"
	case Range5d:
		return "5d"
	case Range1mo:
		return "1mo"
	case Range3mo:
		return "3mo"
	case Range6mo:
		return "6mo"
	case Range1y:
		return "1y"
	case Range2y:
		return "2y"
	case Range5y:
		return "5y"
	default:
		return "1mo"
	}
}

func yfinanceInterval(interval Interval) string {
	switch interval {
	case Interval1m:
		return "1m"
	case Interval5m:
		return "5m"
	case Interval15m:
		return "15m"
	case Interval30m:
		return "30m"
	case Interval1h:
		return "1h"
	default:
		return "1d"
	}
}
