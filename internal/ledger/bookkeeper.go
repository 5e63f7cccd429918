package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/tconn93/Day-trader/internal/apperr"
	"github.com/tconn93/Day-trader/internal/database"
	"github.com/tconn93/Day-trader/internal/domain"
	"github.com/tconn93/Day-trader/internal/money"
)

// Bookkeeper transactionally applies fills to the ledger: debit/credit
// cash, upsert a position with weighted-average cost, record the order as
// filled, and append a transaction carrying the post-fill balance. Both
// apply_buy and apply_sell run inside a single database.WithTransaction
// call so that a failure anywhere rolls back all four effects together —
// the source this was translated from issued those four writes outside
// any enclosing transaction, which is a correctness bug under concurrent
// fills; this redesign fixes it.
type Bookkeeper struct {
	ledgerDB     *database.DB
	accounts     *AccountRepository
	positions    *PositionRepository
	orders       *OrderRepository
	transactions *TransactionRepository

	// accountLocks serializes concurrent fills against the same account
	// (see the concurrency model: per-account serialization, no
	// cross-account contention).
	locksMu     sync.Mutex
	accountLocks map[int64]*sync.Mutex
}

// NewBookkeeper constructs a Bookkeeper over the ledger database.
func NewBookkeeper(ledgerDB *database.DB) *Bookkeeper {
	conn := ledgerDB.Conn()
	return &Bookkeeper{
		ledgerDB:     ledgerDB,
		accounts:     NewAccountRepository(conn),
		positions:    NewPositionRepository(conn),
		orders:       NewOrderRepository(conn),
		transactions: NewTransactionRepository(conn),
		accountLocks: make(map[int64]*sync.Mutex),
	}
}

func (b *Bookkeeper) lockFor(accountID int64) *sync.Mutex {
	b.locksMu.Lock()
	defer b.locksMu.Unlock()
	l, ok := b.accountLocks[accountID]
	if !ok {
		l = &sync.Mutex{}
		b.accountLocks[accountID] = l
	}
	return l
}

// FillResult reports the outcome of apply_buy/apply_sell.
type FillResult struct {
	OrderID      int64
	BalanceAfter money.Cents
}

// ApplyBuy executes a buy fill: creates a filled Order, debits the cash
// balance, upserts the Position with the new weighted-average cost, and
// appends a Transaction — all inside one ledger transaction. Returns
// apperr.ErrInsufficientFunds with no side effects if balance < qty*price.
func (b *Bookkeeper) ApplyBuy(ctx context.Context, accountID int64, symbol string, qty int64, price money.Cents, algorithmID *int64) (*FillResult, error) {
	if qty <= 0 {
		return nil, apperr.New(apperr.CodeValidation, "quantity must be positive")
	}

	lock := b.lockFor(accountID)
	lock.Lock()
	defer lock.Unlock()

	var result *FillResult
	err := database.WithTransaction(b.ledgerDB.Conn(), func(tx *sql.Tx) error {
		account, err := b.accounts.GetByID(ctx, tx, accountID)
		if err != nil {
			return err
		}
		if account == nil {
			return apperr.Wrap(apperr.CodeNotFound, "account not found", fmt.Errorf("account %d", accountID))
		}

		cost := price.MulQty(qty)
		if money.Cents(account.BalanceCents).Sub(cost).IsNegative() {
			return apperr.ErrInsufficientFunds
		}

		orderID, err := b.orders.CreateFilled(ctx, tx, accountID, algorithmID, symbol, domain.OrderSideBuy, qty, price.ToFloat())
		if err != nil {
			return err
		}

		newBalance := money.Cents(account.BalanceCents).Sub(cost)
		if err := b.accounts.UpdateBalance(ctx, tx, accountID, int64(newBalance)); err != nil {
			return err
		}

		if err := b.positions.ApplyBuyLot(ctx, tx, accountID, symbol, qty, price); err != nil {
			return err
		}

		if err := b.transactions.Append(ctx, tx, accountID, orderID, domain.TransactionTypeBuy,
			cost.Negate().ToFloat(), newBalance.ToFloat(), symbol, qty, price.ToFloat(),
			fmt.Sprintf("Buy %d %s @ %s", qty, symbol, price)); err != nil {
			return err
		}

		result = &FillResult{OrderID: orderID, BalanceAfter: newBalance}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ApplySell executes a sell fill: creates a filled Order, credits the cash
// balance, reduces (or deletes) the Position, and appends a Transaction —
// all inside one ledger transaction. average_price is left unchanged, per
// the spec's resolution of the weighted-average-on-sell open question (see
// DESIGN.md). Returns apperr.ErrInsufficientShares with no side effects if
// no position exists or quantity < qty.
func (b *Bookkeeper) ApplySell(ctx context.Context, accountID int64, symbol string, qty int64, price money.Cents, algorithmID *int64) (*FillResult, error) {
	if qty <= 0 {
		return nil, apperr.New(apperr.CodeValidation, "quantity must be positive")
	}

	lock := b.lockFor(accountID)
	lock.Lock()
	defer lock.Unlock()

	var result *FillResult
	err := database.WithTransaction(b.ledgerDB.Conn(), func(tx *sql.Tx) error {
		account, err := b.accounts.GetByID(ctx, tx, accountID)
		if err != nil {
			return err
		}
		if account == nil {
			return apperr.Wrap(apperr.CodeNotFound, "account not found", fmt.Errorf("account %d", accountID))
		}

		position, err := b.positions.GetBySymbol(ctx, tx, accountID, symbol)
		if err != nil {
			return err
		}
		if position == nil || position.Quantity < qty {
			return apperr.ErrInsufficientShares
		}

		orderID, err := b.orders.CreateFilled(ctx, tx, accountID, algorithmID, symbol, domain.OrderSideSell, qty, price.ToFloat())
		if err != nil {
			return err
		}

		proceeds := price.MulQty(qty)
		newBalance := money.Cents(account.BalanceCents).Add(proceeds)
		if err := b.accounts.UpdateBalance(ctx, tx, accountID, int64(newBalance)); err != nil {
			return err
		}

		if err := b.positions.ApplySellLot(ctx, tx, position.ID, position.Quantity-qty); err != nil {
			return err
		}

		if err := b.transactions.Append(ctx, tx, accountID, orderID, domain.TransactionTypeSell,
			proceeds.ToFloat(), newBalance.ToFloat(), symbol, qty, price.ToFloat(),
			fmt.Sprintf("Sell %d %s @ %s", qty, symbol, price)); err != nil {
			return err
		}

		result = &FillResult{OrderID: orderID, BalanceAfter: newBalance}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// RecomputeMarketValues updates current_price/market_value/unrealized_pl
// for every position given the latest prices, and recomputes the
// account's derived total_value = balance + sum(market_value). Read-only
// with respect to cash and quantity.
func (b *Bookkeeper) RecomputeMarketValues(ctx context.Context, accountID int64, prices map[string]money.Cents) error {
	conn := b.ledgerDB.Conn()

	account, err := b.accounts.GetByID(ctx, conn, accountID)
	if err != nil {
		return err
	}
	if account == nil {
		return apperr.Wrap(apperr.CodeNotFound, "account not found", fmt.Errorf("account %d", accountID))
	}

	positions, err := b.positions.ListByAccount(ctx, conn, accountID)
	if err != nil {
		return err
	}

	var totalMarketValue money.Cents
	for _, p := range positions {
		price, ok := prices[p.Symbol]
		if !ok {
			price = money.Cents(p.CurrentPriceCents)
		}
		if err := b.positions.UpdateCurrentPrice(ctx, conn, p.ID, price); err != nil {
			return err
		}
		totalMarketValue = totalMarketValue.Add(price.MulQty(p.Quantity))
	}

	total := money.Cents(account.BalanceCents).Add(totalMarketValue)
	return b.accounts.UpdateTotalValue(ctx, conn, accountID, int64(total))
}

// Reset atomically deletes all Positions and Transactions for the account
// and restores balance = total_value = initial_balance.
func (b *Bookkeeper) Reset(ctx context.Context, accountID int64) error {
	lock := b.lockFor(accountID)
	lock.Lock()
	defer lock.Unlock()

	return database.WithTransaction(b.ledgerDB.Conn(), func(tx *sql.Tx) error {
		account, err := b.accounts.GetByID(ctx, tx, accountID)
		if err != nil {
			return err
		}
		if account == nil {
			return apperr.Wrap(apperr.CodeNotFound, "account not found", fmt.Errorf("account %d", accountID))
		}

		if err := b.positions.DeleteAllForAccount(ctx, tx, accountID); err != nil {
			return err
		}
		if err := b.transactions.DeleteAllForAccount(ctx, tx, accountID); err != nil {
			return err
		}
		return b.accounts.ResetBalance(ctx, tx, accountID, account.InitialCents)
	})
}
