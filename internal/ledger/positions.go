package ledger

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/tconn93/Day-trader/internal/domain"
	"github.com/tconn93/Day-trader/internal/money"
)

// PositionRepository persists long holdings, composite-keyed on
// (account_id, symbol).
type PositionRepository struct {
	db *sql.DB
}

// NewPositionRepository constructs a PositionRepository against the
// ledger database.
func NewPositionRepository(db *sql.DB) *PositionRepository {
	return &PositionRepository{db: db}
}

const positionColumns = "id, account_id, symbol, quantity, average_price, current_price, last_updated"

func scanPosition(row interface{ Scan(...interface{}) error }) (*domain.Position, error) {
	var p domain.Position
	var avgPrice, currentPrice float64
	var updatedAt string
	if err := row.Scan(&p.ID, &p.AccountID, &p.Symbol, &p.Quantity, &avgPrice, &currentPrice, &updatedAt); err != nil {
		return nil, err
	}
	p.AveragePriceCents = cents(avgPrice)
	p.CurrentPriceCents = cents(currentPrice)
	p.AveragePrice = avgPrice
	p.CurrentPrice = currentPrice
	p.LastUpdated = parseTimestamp(updatedAt)
	applyDerived(&p)
	return &p, nil
}

func applyDerived(p *domain.Position) {
	mv := money.Cents(p.CurrentPriceCents).MulQty(p.Quantity)
	cost := money.Cents(p.AveragePriceCents).MulQty(p.Quantity)
	p.MarketValue = mv.ToFloat()
	p.UnrealizedPL = (mv - cost).ToFloat()
	if cost != 0 {
		p.UnrealizedPLPercent = float64(mv-cost) / float64(cost) * 100
	}
}

// GetBySymbol returns the position for (accountID, symbol), or nil if the
// account holds none.
func (r *PositionRepository) GetBySymbol(ctx context.Context, q querier, accountID int64, symbol string) (*domain.Position, error) {
	row := q.QueryRowContext(ctx,
		fmt.Sprintf("SELECT %s FROM positions WHERE account_id = ? AND symbol = ?", positionColumns),
		accountID, symbol)
	p, err := scanPosition(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get position: %w", err)
	}
	return p, nil
}

// ListByAccount returns all positions held by accountID.
func (r *PositionRepository) ListByAccount(ctx context.Context, q querier, accountID int64) ([]domain.Position, error) {
	rows, err := q.QueryContext(ctx, fmt.Sprintf("SELECT %s FROM positions WHERE account_id = ? ORDER BY symbol", positionColumns), accountID)
	if err != nil {
		return nil, fmt.Errorf("list positions: %w", err)
	}
	defer rows.Close()

	var out []domain.Position
	for rows.Next() {
		p, err := scanPosition(rows)
		if err != nil {
			return nil, fmt.Errorf("scan position: %w", err)
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

// ApplyBuyLot upserts a position, computing the new weighted-average cost
// per the invariant average = (q1*p1 + q2*p2)/(q1+q2). If no position
// exists, it is created with (qty, price) as the initial lot.
func (r *PositionRepository) ApplyBuyLot(ctx context.Context, q querier, accountID int64, symbol string, qty int64, price money.Cents) error {
	existing, err := r.GetBySymbol(ctx, q, accountID, symbol)
	if err != nil {
		return err
	}

	if existing == nil {
		_, err := q.ExecContext(ctx,
			"INSERT INTO positions (account_id, symbol, quantity, average_price, current_price) VALUES (?, ?, ?, ?, ?)",
			accountID, symbol, qty, price.ToFloat(), price.ToFloat())
		if err != nil {
			return fmt.Errorf("insert position: %w", err)
		}
		return nil
	}

	newAvg := money.WeightedAveragePrice(existing.Quantity, money.Cents(existing.AveragePriceCents), qty, price)
	newQty := existing.Quantity + qty
	_, err = q.ExecContext(ctx,
		"UPDATE positions SET quantity = ?, average_price = ?, last_updated = datetime('now') WHERE id = ?",
		newQty, newAvg.ToFloat(), existing.ID)
	if err != nil {
		return fmt.Errorf("update position: %w", err)
	}
	return nil
}

// ApplySellLot sets a position's quantity to remainingQty, leaving
// average_price untouched, and deletes the row if remainingQty is exactly
// zero.
func (r *PositionRepository) ApplySellLot(ctx context.Context, q querier, positionID int64, remainingQty int64) error {
	if remainingQty == 0 {
		_, err := q.ExecContext(ctx, "DELETE FROM positions WHERE id = ?", positionID)
		if err != nil {
			return fmt.Errorf("delete position: %w", err)
		}
		return nil
	}
	_, err := q.ExecContext(ctx,
		"UPDATE positions SET quantity = ?, last_updated = datetime('now') WHERE id = ?",
		remainingQty, positionID)
	if err != nil {
		return fmt.Errorf("update position: %w", err)
	}
	return nil
}

// UpdateCurrentPrice sets a position's mark price, used by
// recompute_market_values.
func (r *PositionRepository) UpdateCurrentPrice(ctx context.Context, q querier, positionID int64, price money.Cents) error {
	_, err := q.ExecContext(ctx,
		"UPDATE positions SET current_price = ?, last_updated = datetime('now') WHERE id = ?",
		price.ToFloat(), positionID)
	if err != nil {
		return fmt.Errorf("update current price: %w", err)
	}
	return nil
}

// DeleteAllForAccount removes every position row for accountID, used by
// Bookkeeper.Reset.
func (r *PositionRepository) DeleteAllForAccount(ctx context.Context, q querier, accountID int64) error {
	_, err := q.ExecContext(ctx, "DELETE FROM positions WHERE account_id = ?", accountID)
	if err != nil {
		return fmt.Errorf("delete positions: %w", err)
	}
	return nil
}
