package rules

import (
	"strconv"
	"strings"

	"github.com/tconn93/Day-trader/internal/domain"
)

// Evaluate resolves rule.ConditionField against ctx, resolves
// rule.ConditionValue as a literal decimal or another field, and applies
// rule.ConditionOperator. It returns false, rather than erroring, for every
// case the spec treats as "does not fire": a position.-prefixed field with
// no held position, or either side unresolved.
func Evaluate(rule domain.Rule, ctx MarketContext) bool {
	fieldValue, ok := ctx.Field(rule.ConditionField)
	if !ok {
		return false
	}

	conditionValue, ok := resolveConditionValue(rule.ConditionValue, ctx)
	if !ok {
		return false
	}

	return applyOperator(rule.ConditionOperator, fieldValue, conditionValue)
}

// resolveConditionValue parses value as a finite decimal literal; if that
// fails, it is treated as another field name, defaulting to 0 if that
// field is altogether unresolved (per the spec's "missing ⇒ 0" rule for
// condition_value specifically, as opposed to condition_field).
func resolveConditionValue(value string, ctx MarketContext) (float64, bool) {
	if f, err := strconv.ParseFloat(strings.TrimSpace(value), 64); err == nil {
		return f, true
	}
	if f, ok := ctx.Field(value); ok {
		return f, true
	}
	return 0, true
}

// applyOperator preserves exact bit-equality for == and != on floats, a
// known hazard carried over deliberately rather than papered over with an
// epsilon.
func applyOperator(op domain.ConditionOperator, lhs, rhs float64) bool {
	switch op {
	case domain.OpGreaterThan:
		return lhs > rhs
	case domain.OpLessThan:
		return lhs < rhs
	case domain.OpGreaterThanOrEqual:
		return lhs >= rhs
	case domain.OpLessThanOrEqual:
		return lhs <= rhs
	case domain.OpEqual:
		return lhs == rhs
	case domain.OpNotEqual:
		return lhs != rhs
	}
	return false
}
