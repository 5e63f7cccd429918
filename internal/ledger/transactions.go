package ledger

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/tconn93/Day-trader/internal/domain"
)

// TransactionRepository persists the append-only journal. Rows are never
// updated or deleted except by Bookkeeper.Reset clearing an account's
// entire history.
type TransactionRepository struct {
	db *sql.DB
}

// NewTransactionRepository constructs a TransactionRepository against the
// ledger database.
func NewTransactionRepository(db *sql.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

const transactionColumns = "id, account_id, order_id, type, amount, balance_after, symbol, quantity, price, description, created_at"

func scanTransaction(row interface{ Scan(...interface{}) error }) (*domain.Transaction, error) {
	var t domain.Transaction
	var orderID sql.NullInt64
	var amount, balanceAfter float64
	var symbol sql.NullString
	var quantity sql.NullInt64
	var price sql.NullFloat64
	var createdAt string
	if err := row.Scan(&t.ID, &t.AccountID, &orderID, &t.Type, &amount, &balanceAfter, &symbol, &quantity, &price, &t.Description, &createdAt); err != nil {
		return nil, err
	}
	if orderID.Valid {
		t.OrderID = &orderID.Int64
	}
	if symbol.Valid {
		t.Symbol = &symbol.String
	}
	if quantity.Valid {
		t.Quantity = &quantity.Int64
	}
	if price.Valid {
		t.Price = &price.Float64
	}
	t.AmountCents = cents(amount)
	t.BalanceAfterCents = cents(balanceAfter)
	t.Amount = amount
	t.BalanceAfter = balanceAfter
	t.CreatedAt = parseTimestamp(createdAt)
	return &t, nil
}

// Append inserts a new journal entry. Called once per fill, after the
// order and balance/position effects have been applied in the same
// transaction.
func (r *TransactionRepository) Append(ctx context.Context, q querier, accountID int64, orderID int64, txType domain.TransactionType, amount float64, balanceAfter float64, symbol string, qty int64, price float64, description string) error {
	_, err := q.ExecContext(ctx,
		`INSERT INTO transactions (account_id, order_id, type, amount, balance_after, symbol, quantity, price, description)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		accountID, orderID, txType, amount, balanceAfter, symbol, qty, price, description)
	if err != nil {
		return fmt.Errorf("append transaction: %w", err)
	}
	return nil
}

// ListByAccount returns up to limit transactions for accountID, most
// recent first.
func (r *TransactionRepository) ListByAccount(ctx context.Context, q querier, accountID int64, limit int) ([]domain.Transaction, error) {
	rows, err := q.QueryContext(ctx,
		fmt.Sprintf("SELECT %s FROM transactions WHERE account_id = ? ORDER BY created_at DESC LIMIT ?", transactionColumns),
		accountID, limit)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var out []domain.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

// DeleteAllForAccount removes every transaction row for accountID, used by
// Bookkeeper.Reset.
func (r *TransactionRepository) DeleteAllForAccount(ctx context.Context, q querier, accountID int64) error {
	_, err := q.ExecContext(ctx, "DELETE FROM transactions WHERE account_id = ?", accountID)
	if err != nil {
		return fmt.Errorf("delete transactions: %w", err)
	}
	return nil
}
