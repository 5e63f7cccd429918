package engine

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tconn93/Day-trader/internal/apperr"
	"github.com/tconn93/Day-trader/internal/domain"
	"github.com/tconn93/Day-trader/internal/ledger"
	"github.com/tconn93/Day-trader/internal/marketdata"
)

func barsAt(closes []float64, start time.Time) []marketdata.Bar {
	bars := make([]marketdata.Bar, len(closes))
	for i, c := range closes {
		bars[i] = marketdata.Bar{
			Timestamp: start.Add(time.Duration(i) * 24 * time.Hour),
			Open:      c, High: c, Low: c, Close: c, Volume: 100,
		}
	}
	return bars
}

func newBacktestAlgo(t *testing.T, store *ledger.Store, userID int64) int64 {
	algo, err := store.Algorithms.Create(context.Background(), userID, "backtest-algo", "")
	require.NoError(t, err)
	_, err = store.Rules.Create(context.Background(), algo.ID, domain.Rule{
		RuleType: domain.RuleTypeEntry, ConditionField: "change", ConditionOperator: domain.OpGreaterThan,
		ConditionValue: "0", Action: "buy:10",
	})
	require.NoError(t, err)
	_, err = store.Rules.Create(context.Background(), algo.ID, domain.Rule{
		RuleType: domain.RuleTypeExit, ConditionField: "change", ConditionOperator: domain.OpLessThan,
		ConditionValue: "0", Action: "sell:all",
	})
	require.NoError(t, err)
	return algo.ID
}

func TestBacktestEngine_Run_SimulatesTradesAndMetrics(t *testing.T) {
	store := newTestStore(t)
	userID := seedTestUser(t, store, "f@example.com")
	algoID := newBacktestAlgo(t, store, userID)

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := barsAt([]float64{100, 110, 90, 130, 140}, start)
	provider := &fakeProvider{bars: map[string][]marketdata.Bar{"AAPL": bars}}

	e := NewBacktestEngine(store, provider)
	result, err := e.Run(context.Background(), BacktestRequest{
		AlgorithmID:    algoID,
		UserID:         userID,
		Symbol:         "AAPL",
		StartDate:      start,
		EndDate:        start.Add(4 * 24 * time.Hour),
		InitialCapital: 10000,
	})
	require.NoError(t, err)

	assert.Equal(t, 9900.0, result.FinalCapital)
	assert.Equal(t, -100.0, result.TotalReturn)
	assert.InDelta(t, -1.0, result.TotalReturnPercent, 1e-9)
	assert.Equal(t, 2, result.TotalTrades)
	assert.Equal(t, 1, result.WinningTrades)
	assert.Equal(t, 1, result.LosingTrades)
	assert.InDelta(t, 50.0, result.WinRate, 1e-9)

	var blob resultsBlob
	require.NoError(t, json.Unmarshal([]byte(result.ResultsJSON), &blob))
	require.Len(t, blob.Trades, 4)
	assert.Equal(t, "buy", blob.Trades[0].Side)
	assert.Equal(t, 110.0, blob.Trades[0].Price)
	assert.Equal(t, "sell", blob.Trades[1].Side)
	require.NotNil(t, blob.Trades[1].PL)
	assert.InDelta(t, -200.0, *blob.Trades[1].PL, 1e-9)
	assert.Equal(t, "buy", blob.Trades[2].Side)
	assert.Equal(t, "sell", blob.Trades[3].Side)
	assert.Equal(t, "End of backtest period", blob.Trades[3].Reason)
	require.NotNil(t, blob.Trades[3].PL)
	assert.InDelta(t, 100.0, *blob.Trades[3].PL, 1e-9)
	assert.InDelta(t, 100.0, blob.Metrics.AvgWin, 1e-9)
	assert.InDelta(t, 200.0, blob.Metrics.AvgLoss, 1e-9)
	assert.InDelta(t, 0.5, blob.Metrics.ProfitFactor, 1e-9)
}

func TestBacktestEngine_Run_RejectsInvertedDateRange(t *testing.T) {
	store := newTestStore(t)
	userID := seedTestUser(t, store, "g@example.com")
	algoID := newBacktestAlgo(t, store, userID)

	provider := &fakeProvider{}
	e := NewBacktestEngine(store, provider)

	start := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	_, err := e.Run(context.Background(), BacktestRequest{
		AlgorithmID: algoID, UserID: userID, Symbol: "AAPL",
		StartDate: start, EndDate: start.Add(-24 * time.Hour), InitialCapital: 1000,
	})
	var appErr *apperr.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperr.CodeValidation, appErr.Code)
}

func TestBacktestEngine_Run_NoRulesErrors(t *testing.T) {
	store := newTestStore(t)
	userID := seedTestUser(t, store, "h@example.com")
	algo, err := store.Algorithms.Create(context.Background(), userID, "empty", "")
	require.NoError(t, err)

	provider := &fakeProvider{bars: map[string][]marketdata.Bar{"AAPL": barsAt([]float64{100, 101}, time.Now().Add(-48*time.Hour))}}
	e := NewBacktestEngine(store, provider)

	_, err = e.Run(context.Background(), BacktestRequest{
		AlgorithmID: algo.ID, UserID: userID, Symbol: "AAPL",
		StartDate: time.Now().Add(-48 * time.Hour), EndDate: time.Now().Add(-24 * time.Hour), InitialCapital: 1000,
	})
	assert.ErrorIs(t, err, apperr.ErrNoRules)
}

func TestFilterBarsInRange(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := barsAt([]float64{1, 2, 3, 4, 5}, start)
	filtered := filterBarsInRange(bars, start.Add(24*time.Hour), start.Add(3*24*time.Hour))
	require.Len(t, filtered, 3)
	assert.Equal(t, 2.0, filtered[0].Close)
	assert.Equal(t, 4.0, filtered[2].Close)
}

func TestRollingIndicators_WindowCaps(t *testing.T) {
	closes := make([]float64, 60)
	for i := range closes {
		closes[i] = float64(i + 1)
	}
	out := rollingIndicators(closes)
	assert.Contains(t, out, "sma_20")
	assert.Contains(t, out, "sma_50")
	assert.Contains(t, out, "rsi")
}

func TestRollingIndicators_InsufficientHistory(t *testing.T) {
	out := rollingIndicators([]float64{1, 2, 3})
	assert.NotContains(t, out, "sma_20")
	assert.NotContains(t, out, "rsi")
}
