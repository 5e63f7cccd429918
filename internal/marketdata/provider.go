package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tconn93/Day-trader/internal/apperr"
)

// Provider is the contract the Live Execution Engine and Backtest Engine
// consume for quotes, historical bars, and indicators.
type Provider interface {
	GetQuote(ctx context.Context, symbol string) (Quote, error)
	GetHistorical(ctx context.Context, symbol string, rng Range, interval Interval) ([]Bar, error)
	GetMultipleQuotes(ctx context.Context, symbols []string) map[string]Quote
}

// Config controls HTTPProvider construction.
type Config struct {
	BaseURL     string
	Timeout     time.Duration
	QuoteTTL    time.Duration
	HistoryTTL  time.Duration
	DevMode     bool
	MaxRetries  int
}

// HTTPProvider fetches quotes and bars from an upstream HTTP source shaped
// like `{base}/{symbol}?interval=&range=`, caches results with a
// per-operation TTL, and optionally degrades to deterministic synthetic
// data when running in development mode.
type HTTPProvider struct {
	client *http.Client
	cache  *ttlCache
	log    zerolog.Logger
	cfg    Config
}

// NewHTTPProvider constructs an HTTPProvider.
func NewHTTPProvider(cfg Config, log zerolog.Logger) *HTTPProvider {
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
	return &HTTPProvider{
		client: &http.Client{Timeout: cfg.Timeout},
		cache:  newTTLCache(),
		log:    log.With().Str("component", "marketdata").Logger(),
		cfg:    cfg,
	}
}

// chartResponse mirrors the upstream contract:
// {chart:{result:[{meta:{...}, timestamp:[...], indicators:{quote:[{...}]}}]}}.
type chartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Symbol             string  `json:"symbol"`
				RegularMarketPrice float64 `json:"regularMarketPrice"`
				ChartPreviousClose float64 `json:"chartPreviousClose"`
				RegularMarketTime  int64   `json:"regularMarketTime"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*int64   `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
	} `json:"chart"`
}

// GetQuote fetches the latest quote for symbol, using the 60s quote cache.
func (p *HTTPProvider) GetQuote(ctx context.Context, symbol string) (Quote, error) {
	key := fingerprint("quote", symbol)
	if cached, ok := p.cache.get(key); ok {
		return cached.(Quote), nil
	}

	resp, err := p.fetchChart(ctx, symbol, Range1d, Interval1d)
	if err != nil {
		if p.cfg.DevMode {
			p.log.Warn().Err(err).Str("symbol", symbol).Msg("upstream unavailable, using synthetic quote")
			q := syntheticQuote(symbol)
			p.cache.set(key, q, p.quoteTTL())
			return q, nil
		}
		return Quote{}, apperr.Wrap(apperr.CodeUpstreamUnavailable, "fetch quote", err)
	}

	quote, err := quoteFromChart(symbol, resp)
	if err != nil {
		return Quote{}, apperr.Wrap(apperr.CodeUpstreamUnavailable, "parse quote", err)
	}

	p.cache.set(key, quote, p.quoteTTL())
	return quote, nil
}

// GetHistorical fetches bars for symbol over rng at interval, using the 1h
// historical cache. Null-close bars are dropped and the result is ordered
// ascending by timestamp.
func (p *HTTPProvider) GetHistorical(ctx context.Context, symbol string, rng Range, interval Interval) ([]Bar, error) {
	if !rng.IsValid() {
		return nil, apperr.New(apperr.CodeValidation, fmt.Sprintf("unsupported range: %q", rng))
	}
	if !interval.IsValid() {
		return nil, apperr.New(apperr.CodeValidation, fmt.Sprintf("unsupported interval: %q", interval))
	}

	key := fingerprint("historical", symbol, string(rng), string(interval))
	if cached, ok := p.cache.get(key); ok {
		return cached.([]Bar), nil
	}

	resp, err := p.fetchChart(ctx, symbol, rng, interval)
	if err != nil {
		if p.cfg.DevMode {
			p.log.Warn().Err(err).Str("symbol", symbol).Msg("upstream unavailable, using synthetic bars")
			bars := syntheticBars(symbol, syntheticBarCount(rng, interval), intervalDuration(interval))
			p.cache.set(key, bars, p.historyTTL())
			return bars, nil
		}
		return nil, apperr.Wrap(apperr.CodeUpstreamUnavailable, "fetch historical", err)
	}

	bars, err := barsFromChart(resp)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeUpstreamUnavailable, "parse historical", err)
	}

	p.cache.set(key, bars, p.historyTTL())
	return bars, nil
}

// GetMultipleQuotes fans out GetQuote calls concurrently; partial failures
// simply omit the symbol from the result map.
func (p *HTTPProvider) GetMultipleQuotes(ctx context.Context, symbols []string) map[string]Quote {
	results := make(map[string]Quote, len(symbols))
	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, symbol := range symbols {
		symbol := symbol
		wg.Add(1)
		go func() {
			defer wg.Done()
			quote, err := p.GetQuote(ctx, symbol)
			if err != nil {
				p.log.Warn().Err(err).Str("symbol", symbol).Msg("quote fetch failed, omitting from batch")
				return
			}
			mu.Lock()
			results[symbol] = quote
			mu.Unlock()
		}()
	}

	wg.Wait()
	return results
}

func (p *HTTPProvider) quoteTTL() time.Duration {
	if p.cfg.QuoteTTL > 0 {
		return p.cfg.QuoteTTL
	}
	return 60 * time.Second
}

func (p *HTTPProvider) historyTTL() time.Duration {
	if p.cfg.HistoryTTL > 0 {
		return p.cfg.HistoryTTL
	}
	return time.Hour
}

// fetchChart performs the upstream HTTP call, making up to MaxRetries
// attempts and waiting attempt² × 200ms before each retry.
func (p *HTTPProvider) fetchChart(ctx context.Context, symbol string, rng Range, interval Interval) (*chartResponse, error) {
	url := fmt.Sprintf("%s/%s?interval=%s&range=%s", p.cfg.BaseURL, symbol, interval, rng)

	var lastErr error
	for attempt := 0; attempt < p.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(attempt*attempt) * 200 * time.Millisecond
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}

		resp, err := p.client.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = err
			continue
		}

		if resp.StatusCode != http.StatusOK {
			lastErr = fmt.Errorf("upstream returned status %d", resp.StatusCode)
			continue
		}

		var parsed chartResponse
		if err := json.Unmarshal(body, &parsed); err != nil {
			lastErr = err
			continue
		}

		return &parsed, nil
	}

	return nil, fmt.Errorf("upstream fetch failed after %d attempts: %w", p.cfg.MaxRetries, lastErr)
}

func quoteFromChart(symbol string, resp *chartResponse) (Quote, error) {
	if len(resp.Chart.Result) == 0 {
		return Quote{}, fmt.Errorf("no result in chart response")
	}
	meta := resp.Chart.Result[0].Meta

	price := meta.RegularMarketPrice
	prevClose := meta.ChartPreviousClose

	var open, high, low float64
	var volume int64
	quotes := resp.Chart.Result[0].Indicators.Quote
	if len(quotes) > 0 {
		q := quotes[0]
		if n := len(q.Close); n > 0 {
			if q.Open[n-1] != nil {
				open = *q.Open[n-1]
			}
			if q.High[n-1] != nil {
				high = *q.High[n-1]
			}
			if q.Low[n-1] != nil {
				low = *q.Low[n-1]
			}
			if q.Volume[n-1] != nil {
				volume = *q.Volume[n-1]
			}
		}
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
		Open:          open,
		High:          high,
		Low:           low,
		Volume:        volume,
		Timestamp:     time.Unix(meta.RegularMarketTime, 0),
		Change:        change,
		ChangePercent: changePercent,
	}, nil
}

func barsFromChart(resp *chartResponse) ([]Bar, error) {
	if len(resp.Chart.Result) == 0 {
		return nil, fmt.Errorf("no result in chart response")
	}
	result := resp.Chart.Result[0]
	if len(result.Indicators.Quote) == 0 {
		return nil, fmt.Errorf("no quote series in chart response")
	}
	q := result.Indicators.Quote[0]

	bars := make([]Bar, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		if i >= len(q.Close) || q.Close[i] == nil {
			continue // null-close bars are dropped
		}
		bar := Bar{Timestamp: time.Unix(ts, 0), Close: *q.Close[i]}
		if i < len(q.Open) && q.Open[i] != nil {
			bar.Open = *q.Open[i]
		}
		if i < len(q.High) && q.High[i] != nil {
			bar.High = *q.High[i]
		}
		if i < len(q.Low) && q.Low[i] != nil {
			bar.Low = *q.Low[i]
		}
		if i < len(q.Volume) && q.Volume[i] != nil {
			bar.Volume = *q.Volume[i]
		}
		bars = append(bars, bar)
	}
	sort.SliceStable(bars, func(i, j int) bool { return bars[i].Timestamp.Before(bars[j].Timestamp) })
	return bars, nil
}

func intervalDuration(interval Interval) time.Duration {
	switch interval {
	case Interval1m:
		return time.Minute
	case Interval5m:
		return 5 * time.Minute
	case Interval15m:
		return 15 * time.Minute
	case Interval30m:
		return 30 * time.Minute
	case Interval1h:
		return time.Hour
	default:
		return 24 * time.Hour
	}
}

func syntheticBarCount(rng Range, interval Interval) int {
	span := rangeDuration[rng]
	count := int(span / intervalDuration(interval))
	if count < 1 {
		count = 1
	}
	if count > 5000 {
		count = 5000
	}
	return count
}
