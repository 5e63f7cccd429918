// Package rules implements the pure Rule Evaluator and Action Executor
// shared by the live execution engine and the backtest engine.
package rules

// PositionContext is the optional position sub-record a MarketContext
// carries when the account already holds the symbol being evaluated.
type PositionContext struct {
	Quantity            int64
	AveragePrice        float64
	UnrealizedPL        float64
	UnrealizedPLPercent float64
}

// MarketContext is the snapshot a Rule is evaluated against: the current
// quote for a symbol, its computed indicators, the account's balance, and
// (if held) the position in that symbol.
type MarketContext struct {
	Position       *PositionContext
	Indicators     map[string]float64
	Symbol         string
	Price          float64
	Open           float64
	High           float64
	Low            float64
	Volume         float64
	Change         float64
	ChangePercent  float64
	Balance        float64
}

// Field resolves condition_field against the context. Bare names look up
// the quote/balance attributes and indicators; a "position."-prefixed name
// looks up the position sub-record and reports ok=false when no position
// exists, which callers must treat as "rule does not fire" rather than 0.
func (c MarketContext) Field(name string) (value float64, ok bool) {
	switch name {
	case "price":
		return c.Price, true
	case "open":
		return c.Open, true
	case "high":
		return c.High, true
	case "low":
		return c.Low, true
	case "volume":
		return c.Volume, true
	case "change":
		return c.Change, true
	case "change_percent":
		return c.ChangePercent, true
	case "balance":
		return c.Balance, true
	case "position.quantity":
		if c.Position == nil {
			return 0, false
		}
		return float64(c.Position.Quantity), true
	case "position.unrealizedPL":
		if c.Position == nil {
			return 0, false
		}
		return c.Position.UnrealizedPL, true
	case "position.unrealizedPLPercent":
		if c.Position == nil {
			return 0, false
		}
		return c.Position.UnrealizedPLPercent, true
	}
	if v, found := c.Indicators[name]; found {
		return v, true
	}
	return 0, false
}
