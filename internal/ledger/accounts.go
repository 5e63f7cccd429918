package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/tconn93/Day-trader/internal/domain"
)

// AccountRepository persists the one-per-user virtual cash account.
type AccountRepository struct {
	db *sql.DB
}

// NewAccountRepository constructs an AccountRepository against the ledger
// database.
func NewAccountRepository(db *sql.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

const accountColumns = "id, user_id, balance, initial_balance, total_value, updated_at"

func scanAccount(row interface{ Scan(...interface{}) error }) (*domain.Account, error) {
	var a domain.Account
	var balance, initial, total float64
	var updatedAt string
	if err := row.Scan(&a.ID, &a.UserID, &balance, &initial, &total, &updatedAt); err != nil {
		return nil, err
	}
	a.BalanceCents = cents(balance)
	a.InitialCents = cents(initial)
	a.TotalValueCents = cents(total)
	a.Balance = balance
	a.InitialBalance = initial
	a.TotalValue = total
	a.UpdatedAt = parseTimestamp(updatedAt)
	return &a, nil
}

// GetByUserID returns the account for userID, or nil if none has been
// created yet.
func (r *AccountRepository) GetByUserID(ctx context.Context, q querier, userID int64) (*domain.Account, error) {
	row := q.QueryRowContext(ctx, fmt.Sprintf("SELECT %s FROM paper_accounts WHERE user_id = ?", accountColumns), userID)
	account, err := scanAccount(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get account: %w", err)
	}
	return account, nil
}

// GetByID returns the account with the given primary key, or nil if it
// does not exist. Used by the Bookkeeper, which operates on account IDs
// rather than user IDs.
func (r *AccountRepository) GetByID(ctx context.Context, q querier, accountID int64) (*domain.Account, error) {
	row := q.QueryRowContext(ctx, fmt.Sprintf("SELECT %s FROM paper_accounts WHERE id = ?", accountColumns), accountID)
	account, err := scanAccount(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get account: %w", err)
	}
	return account, nil
}

// GetOrCreate lazily creates an account with the default initial balance
// on first access, per the spec's account-lifecycle rule.
func (r *AccountRepository) GetOrCreate(ctx context.Context, userID int64) (*domain.Account, error) {
	account, err := r.GetByUserID(ctx, r.db, userID)
	if err != nil {
		return nil, err
	}
	if account != nil {
		return account, nil
	}

	initial := domain.DefaultInitialBalanceCents
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO paper_accounts (user_id, balance, initial_balance, total_value) VALUES (?, ?, ?, ?)",
		userID, floatOf(initial), floatOf(initial), floatOf(initial))
	if err != nil {
		return nil, fmt.Errorf("create account: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("create account: %w", err)
	}

	return &domain.Account{
		ID:              id,
		UserID:          userID,
		BalanceCents:    initial,
		InitialCents:    initial,
		TotalValueCents: initial,
		Balance:         floatOf(initial),
		InitialBalance:  floatOf(initial),
		TotalValue:      floatOf(initial),
		UpdatedAt:       time.Now(),
	}, nil
}

// UpdateBalance sets the account's balance (used by the Bookkeeper inside
// a fill transaction).
func (r *AccountRepository) UpdateBalance(ctx context.Context, q querier, accountID int64, balance int64) error {
	_, err := q.ExecContext(ctx,
		"UPDATE paper_accounts SET balance = ?, updated_at = datetime('now') WHERE id = ?",
		floatOf(balance), accountID)
	if err != nil {
		return fmt.Errorf("update account balance: %w", err)
	}
	return nil
}

// UpdateTotalValue sets the account's derived total_value.
func (r *AccountRepository) UpdateTotalValue(ctx context.Context, q querier, accountID int64, totalValue int64) error {
	_, err := q.ExecContext(ctx,
		"UPDATE paper_accounts SET total_value = ?, updated_at = datetime('now') WHERE id = ?",
		floatOf(totalValue), accountID)
	if err != nil {
		return fmt.Errorf("update account total value: %w", err)
	}
	return nil
}

// ResetBalance sets balance and total_value back to initial_balance,
// used by Bookkeeper.Reset.
func (r *AccountRepository) ResetBalance(ctx context.Context, q querier, accountID int64, initial int64) error {
	_, err := q.ExecContext(ctx,
		"UPDATE paper_accounts SET balance = ?, total_value = ?, updated_at = datetime('now') WHERE id = ?",
		floatOf(initial), floatOf(initial), accountID)
	if err != nil {
		return fmt.Errorf("reset account: %w", err)
	}
	return nil
}
