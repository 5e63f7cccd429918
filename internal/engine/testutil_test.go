package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tconn93/Day-trader/internal/database"
	"github.com/tconn93/Day-trader/internal/ledger"
	"github.com/tconn93/Day-trader/internal/marketdata"
)

func newTestStore(t *testing.T) *ledger.Store {
	ledgerDB, err := database.New(database.Config{Path: ":memory:", Profile: database.ProfileLedger, Name: "test-ledger"})
	require.NoError(t, err)
	_, err = ledgerDB.Conn().Exec(`
		CREATE TABLE paper_accounts (
			id INTEGER PRIMARY KEY AUTOINCREMENT, user_id INTEGER NOT NULL UNIQUE,
			balance NUMERIC(15,2) NOT NULL, initial_balance NUMERIC(15,2) NOT NULL,
			total_value NUMERIC(15,2) NOT NULL, updated_at TEXT NOT NULL DEFAULT (datetime('now'))
		);
		CREATE TABLE positions (
			id INTEGER PRIMARY KEY AUTOINCREMENT, account_id INTEGER NOT NULL, symbol TEXT NOT NULL,
			quantity INTEGER NOT NULL, average_price NUMERIC(10,2) NOT NULL,
			current_price NUMERIC(10,2) NOT NULL DEFAULT 0, last_updated TEXT NOT NULL DEFAULT (datetime('now')),
			UNIQUE (account_id, symbol)
		);
		CREATE TABLE orders (
			id INTEGER PRIMARY KEY AUTOINCREMENT, account_id INTEGER NOT NULL, algorithm_id INTEGER,
			symbol TEXT NOT NULL, side TEXT NOT NULL, type TEXT NOT NULL DEFAULT 'market',
			status TEXT NOT NULL DEFAULT 'pending', quantity INTEGER NOT NULL, price NUMERIC(10,2) NOT NULL,
			created_at TEXT NOT NULL DEFAULT (datetime('now')), filled_at TEXT
		);
		CREATE TABLE transactions (
			id INTEGER PRIMARY KEY AUTOINCREMENT, account_id INTEGER NOT NULL, order_id INTEGER,
			type TEXT NOT NULL, amount NUMERIC(15,2) NOT NULL, balance_after NUMERIC(15,2) NOT NULL,
			symbol TEXT, quantity INTEGER, price NUMERIC(10,2), description TEXT NOT NULL DEFAULT '',
			created_at TEXT NOT NULL DEFAULT (datetime('now'))
		);
	`)
	require.NoError(t, err)

	coreDB, err := database.New(database.Config{Path: ":memory:", Profile: database.ProfileStandard, Name: "test-core"})
	require.NoError(t, err)
	_, err = coreDB.Conn().Exec(`
		CREATE TABLE users (
			id INTEGER PRIMARY KEY AUTOINCREMENT, email TEXT NOT NULL UNIQUE,
			display_name TEXT NOT NULL DEFAULT '', created_at TEXT NOT NULL DEFAULT (datetime('now'))
		);
		CREATE TABLE trading_algorithms (
			id INTEGER PRIMARY KEY AUTOINCREMENT, user_id INTEGER NOT NULL, name TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '', is_active INTEGER NOT NULL DEFAULT 0,
			created_at TEXT NOT NULL DEFAULT (datetime('now')), updated_at TEXT NOT NULL DEFAULT (datetime('now'))
		);
		CREATE TABLE algorithm_rules (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			algorithm_id INTEGER NOT NULL REFERENCES trading_algorithms(id) ON DELETE CASCADE,
			rule_type TEXT NOT NULL, condition_field TEXT NOT NULL, condition_operator TEXT NOT NULL,
			condition_value TEXT NOT NULL, action TEXT NOT NULL, order_index INTEGER NOT NULL DEFAULT 0
		);
		CREATE TABLE backtests (
			id INTEGER PRIMARY KEY AUTOINCREMENT, algorithm_id INTEGER NOT NULL, user_id INTEGER NOT NULL,
			symbol TEXT NOT NULL, start_date TEXT NOT NULL, end_date TEXT NOT NULL,
			initial_capital NUMERIC(15,2) NOT NULL, final_capital NUMERIC(15,2) NOT NULL,
			total_return NUMERIC(15,2) NOT NULL, total_return_percent NUMERIC(10,4) NOT NULL,
			total_trades INTEGER NOT NULL DEFAULT 0, winning_trades INTEGER NOT NULL DEFAULT 0,
			losing_trades INTEGER NOT NULL DEFAULT 0, win_rate NUMERIC(10,4) NOT NULL DEFAULT 0,
			max_drawdown NUMERIC(10,4) NOT NULL DEFAULT 0, sharpe_ratio NUMERIC(10,4) NOT NULL DEFAULT 0,
			results_json TEXT NOT NULL, created_at TEXT NOT NULL DEFAULT (datetime('now'))
		);
	`)
	require.NoError(t, err)

	return ledger.NewStore(ledgerDB, coreDB)
}

func seedTestUser(t *testing.T, store *ledger.Store, email string) int64 {
	res, err := store.CoreDB.Conn().Exec("INSERT INTO users (email) VALUES (?)", email)
	require.NoError(t, err)
	id, err := res.LastInsertId()
	require.NoError(t, err)
	return id
}

// fakeProvider is a deterministic marketdata.Provider stand-in for engine
// tests, avoiding any network dependency.
type fakeProvider struct {
	quotes map[string]marketdata.Quote
	bars   map[string][]marketdata.Bar
}

func (f *fakeProvider) GetQuote(_ context.Context, symbol string) (marketdata.Quote, error) {
	q, ok := f.quotes[symbol]
	if !ok {
		return marketdata.Quote{}, context.DeadlineExceeded
	}
	return q, nil
}

func (f *fakeProvider) GetHistorical(_ context.Context, symbol string, _ marketdata.Range, _ marketdata.Interval) ([]marketdata.Bar, error) {
	return f.bars[symbol], nil
}

func (f *fakeProvider) GetMultipleQuotes(_ context.Context, symbols []string) map[string]marketdata.Quote {
	out := make(map[string]marketdata.Quote)
	for _, s := range symbols {
		if q, ok := f.quotes[s]; ok {
			out[s] = q
		}
	}
	return out
}

// syntheticTrendingBars builds n daily bars with a linear close-price
// trend, for backtest engine tests that need enough history to exercise
// indicator windows without hitting the network.
func syntheticTrendingBars(n int, start, step float64) []marketdata.Bar {
	bars := make([]marketdata.Bar, n)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		close := start + step*float64(i)
		bars[i] = marketdata.Bar{
			Timestamp: base.Add(time.Duration(i) * 24 * time.Hour),
			Open:      close,
			High:      close * 1.01,
			Low:       close * 0.99,
			Close:     close,
			Volume:    1000,
		}
	}
	return bars
}
