package ledger

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/tconn93/Day-trader/internal/apperr"
	"github.com/tconn93/Day-trader/internal/domain"
)

// BacktestRepository persists completed backtest runs in the core database.
// Rows are write-once: the backtest engine inserts one row per completed
// run and nothing ever updates or deletes one.
type BacktestRepository struct {
	db *sql.DB
}

// NewBacktestRepository constructs a BacktestRepository against the core
// database.
func NewBacktestRepository(db *sql.DB) *BacktestRepository {
	return &BacktestRepository{db: db}
}

const backtestColumns = `id, algorithm_id, user_id, symbol, start_date, end_date, initial_capital, final_capital,
	total_return, total_return_percent, total_trades, winning_trades, losing_trades, win_rate, max_drawdown,
	sharpe_ratio, results_json, created_at`

func scanBacktest(row interface{ Scan(...interface{}) error }) (*domain.Backtest, error) {
	var b domain.Backtest
	var startDate, endDate, createdAt string
	var initial, final float64
	if err := row.Scan(&b.ID, &b.AlgorithmID, &b.UserID, &b.Symbol, &startDate, &endDate, &initial, &final,
		&b.TotalReturn, &b.TotalReturnPercent, &b.TotalTrades, &b.WinningTrades, &b.LosingTrades, &b.WinRate,
		&b.MaxDrawdown, &b.SharpeRatio, &b.ResultsJSON, &createdAt); err != nil {
		return nil, err
	}
	b.InitialCapital = initial
	b.FinalCapital = final
	b.InitialCapitalCents = cents(initial)
	b.FinalCapitalCents = cents(final)
	b.StartDate = parseTimestamp(startDate)
	b.EndDate = parseTimestamp(endDate)
	b.CreatedAt = parseTimestamp(createdAt)
	return &b, nil
}

// Create inserts a completed backtest run. This is the only write this
// repository exposes.
func (r *BacktestRepository) Create(ctx context.Context, b domain.Backtest) (*domain.Backtest, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO backtests (algorithm_id, user_id, symbol, start_date, end_date, initial_capital, final_capital,
			total_return, total_return_percent, total_trades, winning_trades, losing_trades, win_rate, max_drawdown,
			sharpe_ratio, results_json)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.AlgorithmID, b.UserID, b.Symbol, b.StartDate.Format("2006-01-02"), b.EndDate.Format("2006-01-02"),
		b.InitialCapital, b.FinalCapital, b.TotalReturn, b.TotalReturnPercent, b.TotalTrades, b.WinningTrades,
		b.LosingTrades, b.WinRate, b.MaxDrawdown, b.SharpeRatio, b.ResultsJSON)
	if err != nil {
		return nil, fmt.Errorf("create backtest: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("create backtest: %w", err)
	}
	return r.GetByID(ctx, id)
}

// GetByID returns a single backtest record, or apperr.ErrNotFound.
func (r *BacktestRepository) GetByID(ctx context.Context, id int64) (*domain.Backtest, error) {
	row := r.db.QueryRowContext(ctx, fmt.Sprintf("SELECT %s FROM backtests WHERE id = ?", backtestColumns), id)
	b, err := scanBacktest(row)
	if err == sql.ErrNoRows {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get backtest: %w", err)
	}
	return b, nil
}

// ListByAlgorithm returns every backtest run for algorithmID, most recent
// first.
func (r *BacktestRepository) ListByAlgorithm(ctx context.Context, algorithmID int64) ([]domain.Backtest, error) {
	rows, err := r.db.QueryContext(ctx,
		fmt.Sprintf("SELECT %s FROM backtests WHERE algorithm_id = ? ORDER BY created_at DESC", backtestColumns),
		algorithmID)
	if err != nil {
		return nil, fmt.Errorf("list backtests: %w", err)
	}
	defer rows.Close()

	var out []domain.Backtest
	for rows.Next() {
		b, err := scanBacktest(rows)
		if err != nil {
			return nil, fmt.Errorf("scan backtest: %w", err)
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}
