// Package domain holds the core entities shared across the ledger, the
// rule engine, and the backtest engine.
package domain

import (
	"fmt"
	"strings"
	"time"
)

// OrderSide identifies which direction an order moves a position.
type OrderSide string

const (
	OrderSideBuy  OrderSide = "buy"
	OrderSideSell OrderSide = "sell"
)

// IsValid reports whether s is a recognized order side.
func (s OrderSide) IsValid() bool {
	return s == OrderSideBuy || s == OrderSideSell
}

// IsBuy reports whether s is a buy.
func (s OrderSide) IsBuy() bool { return s == OrderSideBuy }

// IsSell reports whether s is a sell.
func (s OrderSide) IsSell() bool { return s == OrderSideSell }

// OrderSideFromString parses a case-insensitive order side.
func OrderSideFromString(value string) (OrderSide, error) {
	side := OrderSide(strings.ToLower(strings.TrimSpace(value)))
	if !side.IsValid() {
		return "", fmt.Errorf("invalid order side: %q", value)
	}
	return side, nil
}

// OrderType identifies the order's execution style. Only market orders are
// honored by the engines; limit orders may be recorded but never fill.
type OrderType string

const (
	OrderTypeMarket OrderType = "market"
	OrderTypeLimit  OrderType = "limit"
)

// IsValid reports whether t is a recognized order type.
func (t OrderType) IsValid() bool {
	return t == OrderTypeMarket || t == OrderTypeLimit
}

// OrderStatus tracks an order through its (trivial, paper-model) lifecycle.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusFilled    OrderStatus = "filled"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// TransactionType classifies a ledger journal entry.
type TransactionType string

const (
	TransactionTypeBuy        TransactionType = "buy"
	TransactionTypeSell       TransactionType = "sell"
	TransactionTypeDeposit    TransactionType = "deposit"
	TransactionTypeWithdrawal TransactionType = "withdrawal"
)

// RuleType classifies the intent of an algorithm rule.
type RuleType string

const (
	RuleTypeEntry      RuleType = "entry"
	RuleTypeExit       RuleType = "exit"
	RuleTypeStopLoss   RuleType = "stop_loss"
	RuleTypeTakeProfit RuleType = "take_profit"
	RuleTypeCondition  RuleType = "condition"
)

// IsValid reports whether t is a recognized rule type.
func (t RuleType) IsValid() bool {
	switch t {
	case RuleTypeEntry, RuleTypeExit, RuleTypeStopLoss, RuleTypeTakeProfit, RuleTypeCondition:
		return true
	}
	return false
}

// ConditionOperator is the comparison applied between a rule's resolved
// field value and its condition value.
type ConditionOperator string

const (
	OpGreaterThan        ConditionOperator = ">"
	OpLessThan           ConditionOperator = "<"
	OpGreaterThanOrEqual ConditionOperator = ">="
	OpLessThanOrEqual    ConditionOperator = "<="
	OpEqual              ConditionOperator = "=="
	OpNotEqual           ConditionOperator = "!="
)

// IsValid reports whether op is a recognized condition operator.
func (op ConditionOperator) IsValid() bool {
	switch op {
	case OpGreaterThan, OpLessThan, OpGreaterThanOrEqual, OpLessThanOrEqual, OpEqual, OpNotEqual:
		return true
	}
	return false
}

// ConditionOperatorFromString parses a condition operator literal.
func ConditionOperatorFromString(value string) (ConditionOperator, error) {
	op := ConditionOperator(strings.TrimSpace(value))
	if !op.IsValid() {
		return "", fmt.Errorf("invalid condition operator: %q", value)
	}
	return op, nil
}

// User owns all downstream entities. Registration and credential handling
// live outside the core engine and are not modeled here.
type User struct {
	CreatedAt   time.Time `json:"created_at"`
	Email       string    `json:"email"`
	DisplayName string    `json:"display_name"`
	ID          int64     `json:"id"`
}

// Account is the one-per-user virtual cash account. Balance and
// InitialBalance are stored in cents; TotalValue is derived and never
// persisted independently of a recompute.
type Account struct {
	UpdatedAt      time.Time `json:"updated_at"`
	ID             int64     `json:"id"`
	UserID         int64     `json:"user_id"`
	BalanceCents   int64     `json:"-"`
	InitialCents   int64     `json:"-"`
	TotalValueCents int64    `json:"-"`
	Balance        float64   `json:"balance"`
	InitialBalance float64   `json:"initial_balance"`
	TotalValue     float64   `json:"total_value"`
}

// DefaultInitialBalanceCents is the balance assigned to an account the
// first time it is lazily created.
const DefaultInitialBalanceCents int64 = 100_000_00

// Position is a long holding of a symbol in an account, composite-keyed on
// (AccountID, Symbol). A quantity of zero means the row does not exist.
type Position struct {
	LastUpdated         time.Time `json:"last_updated"`
	Symbol              string    `json:"symbol"`
	ID                  int64     `json:"id"`
	AccountID           int64     `json:"account_id"`
	Quantity            int64     `json:"quantity"`
	AveragePriceCents   int64     `json:"-"`
	CurrentPriceCents   int64     `json:"-"`
	AveragePrice        float64   `json:"average_price"`
	CurrentPrice        float64   `json:"current_price"`
	MarketValue         float64   `json:"market_value"`
	UnrealizedPL        float64   `json:"unrealized_pl"`
	UnrealizedPLPercent float64   `json:"unrealized_pl_percent"`
}

// Order is a (paper) market order. FilledAt is non-nil iff Status is filled.
type Order struct {
	FilledAt    *time.Time  `json:"filled_at,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
	Symbol      string      `json:"symbol"`
	Side        OrderSide   `json:"side"`
	Type        OrderType   `json:"type"`
	Status      OrderStatus `json:"status"`
	AlgorithmID *int64      `json:"algorithm_id,omitempty"`
	ID          int64       `json:"id"`
	AccountID   int64       `json:"account_id"`
	Quantity    int64       `json:"quantity"`
	PriceCents  int64       `json:"-"`
	Price       float64     `json:"price"`
}

// Transaction is an append-only journal entry recorded after every fill.
type Transaction struct {
	CreatedAt        time.Time       `json:"created_at"`
	Description      string          `json:"description"`
	Symbol           *string         `json:"symbol,omitempty"`
	Type             TransactionType `json:"type"`
	OrderID          *int64          `json:"order_id,omitempty"`
	Quantity         *int64          `json:"quantity,omitempty"`
	ID               int64           `json:"id"`
	AccountID        int64           `json:"account_id"`
	AmountCents      int64           `json:"-"`
	BalanceAfterCents int64          `json:"-"`
	PriceCents       *int64          `json:"-"`
	Amount           float64         `json:"amount"`
	BalanceAfter     float64         `json:"balance_after"`
	Price            *float64        `json:"price,omitempty"`
}

// Algorithm is a named, user-owned collection of rules.
type Algorithm struct {
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	ID          int64     `json:"id"`
	UserID      int64     `json:"user_id"`
	IsActive    bool      `json:"is_active"`
}

// Rule belongs to an Algorithm and is cascade-deleted with it.
type Rule struct {
	RuleType         RuleType          `json:"rule_type"`
	ConditionField   string            `json:"condition_field"`
	ConditionOperator ConditionOperator `json:"condition_operator"`
	ConditionValue   string            `json:"condition_value"`
	Action           string            `json:"action"`
	ID               int64             `json:"id"`
	AlgorithmID      int64             `json:"algorithm_id"`
	OrderIndex       int               `json:"order_index"`
}

// Validate checks structural validity of a Rule independent of any market
// context.
func (r Rule) Validate() error {
	if !r.RuleType.IsValid() {
		return fmt.Errorf("invalid rule_type: %q", r.RuleType)
	}
	if strings.TrimSpace(r.ConditionField) == "" {
		return fmt.Errorf("condition_field is required")
	}
	if !r.ConditionOperator.IsValid() {
		return fmt.Errorf("invalid condition_operator: %q", r.ConditionOperator)
	}
	if strings.TrimSpace(r.Action) == "" {
		return fmt.Errorf("action is required")
	}
	return nil
}

// Backtest is an immutable, write-once record of a completed historical
// replay, including an opaque JSON blob of per-trade and equity-curve data.
type Backtest struct {
	StartDate           time.Time `json:"start_date"`
	EndDate              time.Time `json:"end_date"`
	CreatedAt            time.Time `json:"created_at"`
	Symbol               string    `json:"symbol"`
	ResultsJSON          string    `json:"-"`
	ID                   int64     `json:"id"`
	AlgorithmID          int64     `json:"algorithm_id"`
	UserID               int64     `json:"user_id"`
	TotalTrades          int       `json:"total_trades"`
	WinningTrades        int       `json:"winning_trades"`
	LosingTrades         int       `json:"losing_trades"`
	InitialCapitalCents  int64     `json:"-"`
	FinalCapitalCents    int64     `json:"-"`
	InitialCapital       float64   `json:"initial_capital"`
	FinalCapital         float64   `json:"final_capital"`
	TotalReturn          float64   `json:"total_return"`
	TotalReturnPercent   float64   `json:"total_return_percent"`
	WinRate              float64   `json:"win_rate"`
	MaxDrawdown          float64   `json:"max_drawdown"`
	SharpeRatio          float64   `json:"sharpe_ratio"`
}
