package ledger

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/tconn93/Day-trader/internal/domain"
)

// OrderRepository persists orders. In this paper model every order is
// created and filled in the same Bookkeeper transaction, so CreateFilled always
// writes status=filled with filled_at set.
type OrderRepository struct {
	db *sql.DB
}

// NewOrderRepository constructs an OrderRepository against the ledger
// database.
func NewOrderRepository(db *sql.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

const orderColumns = "id, account_id, algorithm_id, symbol, side, type, status, quantity, price, created_at, filled_at"

func scanOrder(row interface{ Scan(...interface{}) error }) (*domain.Order, error) {
	var o domain.Order
	var algoID sql.NullInt64
	var price float64
	var createdAt string
	var filledAt sql.NullString
	if err := row.Scan(&o.ID, &o.AccountID, &algoID, &o.Symbol, &o.Side, &o.Type, &o.Status, &o.Quantity, &price, &createdAt, &filledAt); err != nil {
		return nil, err
	}
	if algoID.Valid {
		o.AlgorithmID = &algoID.Int64
	}
	o.PriceCents = cents(price)
	o.Price = price
	o.CreatedAt = parseTimestamp(createdAt)
	if filledAt.Valid {
		t := parseTimestamp(filledAt.String)
		o.FilledAt = &t
	}
	return &o, nil
}

// CreateFilled inserts a new order already in the filled state, as the
// paper model has no pending-order queue.
func (r *OrderRepository) CreateFilled(ctx context.Context, q querier, accountID int64, algorithmID *int64, symbol string, side domain.OrderSide, qty int64, price float64) (int64, error) {
	res, err := q.ExecContext(ctx,
		`INSERT INTO orders (account_id, algorithm_id, symbol, side, type, status, quantity, price, filled_at)
		 VALUES (?, ?, ?, ?, 'market', 'filled', ?, ?, datetime('now'))`,
		accountID, algorithmID, symbol, side, qty, price)
	if err != nil {
		return 0, fmt.Errorf("create order: %w", err)
	}
	return res.LastInsertId()
}

// ListByAccount returns up to limit orders for accountID, most recent first.
func (r *OrderRepository) ListByAccount(ctx context.Context, q querier, accountID int64, limit int) ([]domain.Order, error) {
	rows, err := q.QueryContext(ctx,
		fmt.Sprintf("SELECT %s FROM orders WHERE account_id = ? ORDER BY created_at DESC LIMIT ?", orderColumns),
		accountID, limit)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	var out []domain.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		out = append(out, *o)
	}
	return out, rows.Err()
}
