package rules

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/tconn93/Day-trader/internal/domain"
)

// Intent is the order an Action Executor wants placed: a non-zero Quantity
// on Side, or the zero value to mean "no-op". Callers must check
// Quantity > 0 before submitting to the Bookkeeper.
type Intent struct {
	Side     domain.OrderSide
	Quantity int64
}

// Execute parses action as "<verb>:<qualifier>" and computes the resulting
// Intent against ctx. An action without a colon, a verb other than buy or
// sell, or a qualifier that is not a number, a percentage, max (buy) or all
// (sell) returns an error. A buy at a non-positive price, or a sell with no
// held position, returns the zero Intent without an error.
func Execute(action string, ctx MarketContext) (Intent, error) {
	verb, qualifier, ok := strings.Cut(action, ":")
	if !ok {
		return Intent{}, fmt.Errorf("malformed action %q: expected <verb>:<qualifier>", action)
	}
	qualifier = strings.TrimSpace(qualifier)

	switch strings.ToLower(strings.TrimSpace(verb)) {
	case "buy":
		return executeBuy(qualifier, ctx)
	case "sell":
		return executeSell(qualifier, ctx)
	default:
		return Intent{}, fmt.Errorf("unknown action verb %q", verb)
	}
}

func executeBuy(qualifier string, ctx MarketContext) (Intent, error) {
	if ctx.Price <= 0 {
		return Intent{}, nil
	}

	switch {
	case qualifier == "max":
		qty := int64(math.Floor(ctx.Balance / ctx.Price))
		return Intent{Side: domain.OrderSideBuy, Quantity: qty}, nil

	case strings.HasSuffix(qualifier, "%"):
		pct, err := strconv.ParseFloat(strings.TrimSuffix(qualifier, "%"), 64)
		if err != nil {
			return Intent{}, fmt.Errorf("malformed buy percent qualifier %q: %w", qualifier, err)
		}
		qty := int64(math.Floor((ctx.Balance * pct / 100) / ctx.Price))
		return Intent{Side: domain.OrderSideBuy, Quantity: qty}, nil

	default:
		n, err := strconv.ParseFloat(qualifier, 64)
		if err != nil {
			return Intent{}, fmt.Errorf("malformed buy quantity qualifier %q: %w", qualifier, err)
		}
		return Intent{Side: domain.OrderSideBuy, Quantity: int64(math.Floor(n))}, nil
	}
}

func executeSell(qualifier string, ctx MarketContext) (Intent, error) {
	if ctx.Position == nil || ctx.Position.Quantity <= 0 {
		return Intent{}, nil
	}

	switch {
	case qualifier == "all":
		return Intent{Side: domain.OrderSideSell, Quantity: ctx.Position.Quantity}, nil

	case strings.HasSuffix(qualifier, "%"):
		pct, err := strconv.ParseFloat(strings.TrimSuffix(qualifier, "%"), 64)
		if err != nil {
			return Intent{}, fmt.Errorf("malformed sell percent qualifier %q: %w", qualifier, err)
		}
		qty := int64(math.Floor(float64(ctx.Position.Quantity) * pct / 100))
		return Intent{Side: domain.OrderSideSell, Quantity: qty}, nil

	default:
		n, err := strconv.ParseFloat(qualifier, 64)
		if err != nil {
			return Intent{}, fmt.Errorf("malformed sell quantity qualifier %q: %w", qualifier, err)
		}
		qty := int64(math.Floor(n))
		if qty > ctx.Position.Quantity {
			qty = ctx.Position.Quantity
		}
		return Intent{Side: domain.OrderSideSell, Quantity: qty}, nil
	}
}
