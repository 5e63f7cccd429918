package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/tconn93/Day-trader/internal/apperr"
	"github.com/tconn93/Day-trader/internal/domain"
	"github.com/tconn93/Day-trader/internal/ledger"
	"github.com/tconn93/Day-trader/internal/marketdata"
	"github.com/tconn93/Day-trader/internal/rules"
)

// riskFreeDaily is the per-step risk-free rate subtracted before computing
// the Sharpe ratio, expressed as an annual 2% spread over 252 trading days.
const riskFreeDaily = 0.02 / 252

// BacktestRequest describes one historical replay to run.
type BacktestRequest struct {
	AlgorithmID    int64
	UserID         int64
	Symbol         string
	StartDate      time.Time
	EndDate        time.Time
	InitialCapital float64
	Interval       marketdata.Interval
}

// equityPoint is one sample of the backtest's equity curve.
type equityPoint struct {
	Timestamp    time.Time `json:"timestamp"`
	Balance      float64   `json:"balance"`
	PositionVal  float64   `json:"position_value"`
	TotalValue   float64   `json:"total_value"`
}

// simTrade is one recorded simulated fill in the backtest ledger.
type simTrade struct {
	Timestamp time.Time `json:"timestamp"`
	Side      string    `json:"side"`
	Quantity  int64     `json:"quantity"`
	Price     float64   `json:"price"`
	PL        *float64  `json:"pl,omitempty"`
	Reason    string    `json:"reason,omitempty"`
}

// simPosition is the in-memory ledger mirror's at-most-one-open-position
// state for the symbol under replay.
type simPosition struct {
	quantity     int64
	averagePrice float64
}

// resultsBlob is the opaque JSON persisted in backtests.results_json. The
// metrics columns on the Backtest row duplicate a subset of Metrics for
// querying; avg_win/avg_loss/profit_factor have no dedicated column and
// live only here.
type resultsBlob struct {
	Trades      []simTrade      `json:"trades"`
	EquityCurve []equityPoint   `json:"equity_curve"`
	Metrics     backtestMetrics `json:"metrics"`
}

// BacktestEngine replays the Rule Evaluator/Action Executor over historical
// bars against an in-memory ledger mirror, independent of the live
// Bookkeeper and its SQLite-backed ledger.
type BacktestEngine struct {
	store    *ledger.Store
	provider marketdata.Provider
}

// NewBacktestEngine constructs a BacktestEngine.
func NewBacktestEngine(store *ledger.Store, provider marketdata.Provider) *BacktestEngine {
	return &BacktestEngine{store: store, provider: provider}
}

// Run validates req, replays the algorithm's rules over the bars covering
// [StartDate, EndDate], and persists the resulting Backtest record.
func (e *BacktestEngine) Run(ctx context.Context, req BacktestRequest) (*domain.Backtest, error) {
	if !req.StartDate.Before(req.EndDate) {
		return nil, apperr.New(apperr.CodeValidation, "start_date must be before end_date")
	}
	if req.EndDate.After(time.Now()) {
		return nil, apperr.New(apperr.CodeValidation, "end_date must not be in the future")
	}

	algoRules, err := e.store.Rules.ListByAlgorithmOrdered(ctx, req.AlgorithmID)
	if err != nil {
		return nil, err
	}
	if len(algoRules) == 0 {
		return nil, apperr.ErrNoRules
	}

	interval := req.Interval
	if interval == "" {
		interval = marketdata.Interval1d
	}
	rng := marketdata.SmallestRangeCovering(req.EndDate.Sub(req.StartDate))

	bars, err := e.provider.GetHistorical(ctx, req.Symbol, rng, interval)
	if err != nil {
		return nil, err
	}
	bars = filterBarsInRange(bars, req.StartDate, req.EndDate)
	if len(bars) == 0 {
		return nil, apperr.New(apperr.CodeUpstreamUnavailable, "no bars in requested date range")
	}

	balance := req.InitialCapital
	var position *simPosition
	var trades []simTrade
	var equityCurve []equityPoint
	closes := make([]float64, 0, len(bars))

	for i, bar := range bars {
		closes = append(closes, bar.Close)

		positionValue := 0.0
		if position != nil {
			positionValue = float64(position.quantity) * bar.Close
		}
		equityCurve = append(equityCurve, equityPoint{
			Timestamp:   bar.Timestamp,
			Balance:     balance,
			PositionVal: positionValue,
			TotalValue:  balance + positionValue,
		})

		indicators := rollingIndicators(closes)

		change, changePercent := 0.0, 0.0
		if i > 0 {
			change = bar.Close - bars[i-1].Close
			if bars[i-1].Close != 0 {
				changePercent = change / bars[i-1].Close * 100
			}
		}

		marketCtx := rules.MarketContext{
			Symbol:        req.Symbol,
			Price:         bar.Close,
			Open:          bar.Open,
			High:          bar.High,
			Low:           bar.Low,
			Volume:        float64(bar.Volume),
			Change:        change,
			ChangePercent: changePercent,
			Balance:       balance,
			Indicators:    indicators,
		}
		if position != nil {
			unrealizedPL := (bar.Close - position.averagePrice) * float64(position.quantity)
			unrealizedPLPercent := 0.0
			if position.averagePrice != 0 {
				unrealizedPLPercent = unrealizedPL / (position.averagePrice * float64(position.quantity)) * 100
			}
			marketCtx.Position = &rules.PositionContext{
				Quantity:            position.quantity,
				AveragePrice:        position.averagePrice,
				UnrealizedPL:        unrealizedPL,
				UnrealizedPLPercent: unrealizedPLPercent,
			}
		}

		for _, rule := range algoRules {
			if !rules.Evaluate(rule, marketCtx) {
				continue
			}
			intent, err := rules.Execute(rule.Action, marketCtx)
			if err != nil || intent.Quantity <= 0 {
				continue
			}

			if intent.Side.IsBuy() {
				if position != nil {
					continue // at most one open position per symbol
				}
				cost := float64(intent.Quantity) * bar.Close
				if cost > balance {
					continue
				}
				balance -= cost
				position = &simPosition{quantity: intent.Quantity, averagePrice: bar.Close}
				trades = append(trades, simTrade{Timestamp: bar.Timestamp, Side: "buy", Quantity: intent.Quantity, Price: bar.Close})
				marketCtx.Position = &rules.PositionContext{Quantity: position.quantity, AveragePrice: position.averagePrice}
			} else {
				if position == nil {
					continue
				}
				pl := closeSimPosition(&balance, position, bar.Close, "")
				trades = append(trades, simTrade{Timestamp: bar.Timestamp, Side: "sell", Quantity: position.quantity, Price: bar.Close, PL: &pl})
				position = nil
				marketCtx.Position = nil
			}
		}
	}

	if position != nil {
		last := bars[len(bars)-1]
		pl := closeSimPosition(&balance, position, last.Close, "End of backtest period")
		trades = append(trades, simTrade{Timestamp: last.Timestamp, Side: "sell", Quantity: position.quantity, Price: last.Close, PL: &pl, Reason: "End of backtest period"})
	}

	metrics := computeMetrics(req.InitialCapital, balance, trades, equityCurve)

	blob, err := json.Marshal(resultsBlob{Trades: trades, EquityCurve: equityCurve, Metrics: metrics})
	if err != nil {
		return nil, fmt.Errorf("marshal backtest results: %w", err)
	}

	return e.store.Backtests.Create(ctx, domain.Backtest{
		AlgorithmID:        req.AlgorithmID,
		UserID:             req.UserID,
		Symbol:             req.Symbol,
		StartDate:          req.StartDate,
		EndDate:            req.EndDate,
		InitialCapital:     req.InitialCapital,
		FinalCapital:       balance,
		TotalReturn:        metrics.TotalReturn,
		TotalReturnPercent: metrics.TotalReturnPercent,
		TotalTrades:        metrics.TotalTrades,
		WinningTrades:      metrics.WinningTrades,
		LosingTrades:       metrics.LosingTrades,
		WinRate:            metrics.WinRate,
		MaxDrawdown:        metrics.MaxDrawdown,
		SharpeRatio:        metrics.SharpeRatio,
		ResultsJSON:        string(blob),
	})
}

// closeSimPosition realizes P/L for the open position at exitPrice,
// crediting proceeds to balance, and returns the realized P/L.
func closeSimPosition(balance *float64, position *simPosition, exitPrice float64, _reason string) float64 {
	proceeds := float64(position.quantity) * exitPrice
	pl := proceeds - float64(position.quantity)*position.averagePrice
	*balance += proceeds
	return pl
}

func filterBarsInRange(bars []marketdata.Bar, start, end time.Time) []marketdata.Bar {
	out := make([]marketdata.Bar, 0, len(bars))
	for _, b := range bars {
		if !b.Timestamp.Before(start) && !b.Timestamp.After(end) {
			out = append(out, b)
		}
	}
	return out
}

// rollingIndicators computes sma_20/sma_50/rsi over closes[max(0,n-51):n],
// including each only once its minimum window is available.
func rollingIndicators(closes []float64) map[string]float64 {
	lo := 0
	if len(closes) > 51 {
		lo = len(closes) - 51
	}
	window := closes[lo:]

	out := make(map[string]float64)
	if len(window) >= 20 {
		sma := marketdata.SMA(window, 20)
		out["sma_20"] = sma[len(sma)-1]
	}
	if len(window) >= 50 {
		sma := marketdata.SMA(window, 50)
		out["sma_50"] = sma[len(sma)-1]
	}
	if len(window) >= 15 {
		rsi := marketdata.RSI(window, 14)
		out["rsi"] = rsi[len(rsi)-1]
	}
	return out
}

type backtestMetrics struct {
	TotalReturn        float64 `json:"total_return"`
	TotalReturnPercent float64 `json:"total_return_percent"`
	TotalTrades        int     `json:"total_trades"`
	WinningTrades      int     `json:"winning_trades"`
	LosingTrades       int     `json:"losing_trades"`
	WinRate            float64 `json:"win_rate"`
	AvgWin             float64 `json:"avg_win"`
	AvgLoss            float64 `json:"avg_loss"`
	ProfitFactor       float64 `json:"profit_factor"`
	MaxDrawdown        float64 `json:"max_drawdown"`
	SharpeRatio        float64 `json:"sharpe_ratio"`
}

func computeMetrics(initialCapital, finalBalance float64, trades []simTrade, equityCurve []equityPoint) backtestMetrics {
	m := backtestMetrics{
		TotalReturn: finalBalance - initialCapital,
	}
	if initialCapital != 0 {
		m.TotalReturnPercent = m.TotalReturn / initialCapital * 100
	}

	var winSum, lossSum float64
	for _, t := range trades {
		if t.Side != "sell" || t.PL == nil {
			continue
		}
		m.TotalTrades++
		switch {
		case *t.PL > 0:
			m.WinningTrades++
			winSum += *t.PL
		case *t.PL < 0:
			m.LosingTrades++
			lossSum += -*t.PL
		}
	}
	if m.TotalTrades > 0 {
		m.WinRate = float64(m.WinningTrades) / float64(m.TotalTrades) * 100
	}
	if m.WinningTrades > 0 {
		m.AvgWin = winSum / float64(m.WinningTrades)
	}
	if m.LosingTrades > 0 {
		m.AvgLoss = lossSum / float64(m.LosingTrades)
	}
	if m.AvgLoss != 0 {
		m.ProfitFactor = m.AvgWin / m.AvgLoss
	}

	m.MaxDrawdown = maxDrawdown(equityCurve)
	m.SharpeRatio = sharpeRatio(equityCurve)
	return m
}

func maxDrawdown(equityCurve []equityPoint) float64 {
	if len(equityCurve) == 0 {
		return 0
	}
	peak := equityCurve[0].TotalValue
	maxDD := 0.0
	for _, p := range equityCurve {
		if p.TotalValue > peak {
			peak = p.TotalValue
		}
		if peak > 0 {
			dd := (peak - p.TotalValue) / peak
			if dd > maxDD {
				maxDD = dd
			}
		}
	}
	return maxDD * 100
}

// sharpeRatio computes the annualized Sharpe ratio of per-step simple
// returns of total_value, using gonum/stat for mean and standard
// deviation. Returns 0 for fewer than 2 points or zero variance.
func sharpeRatio(equityCurve []equityPoint) float64 {
	if len(equityCurve) < 3 {
		return 0
	}
	returns := make([]float64, 0, len(equityCurve)-1)
	for i := 1; i < len(equityCurve); i++ {
		prev := equityCurve[i-1].TotalValue
		if prev == 0 {
			continue
		}
		returns = append(returns, (equityCurve[i].TotalValue-prev)/prev)
	}
	if len(returns) < 2 {
		return 0
	}

	mean := stat.Mean(returns, nil)
	stdev := stat.StdDev(returns, nil)
	if stdev == 0 {
		return 0
	}

	return (mean - riskFreeDaily) / stdev * math.Sqrt(252)
}
