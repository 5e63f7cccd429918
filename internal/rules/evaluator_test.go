package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tconn93/Day-trader/internal/domain"
)

func TestEvaluate_SimpleNumericComparison(t *testing.T) {
	ctx := MarketContext{Price: 150}
	rule := domain.Rule{ConditionField: "price", ConditionOperator: domain.OpGreaterThan, ConditionValue: "100"}
	assert.True(t, Evaluate(rule, ctx))

	rule.ConditionValue = "200"
	assert.False(t, Evaluate(rule, ctx))
}

func TestEvaluate_ConditionValueAsFieldName(t *testing.T) {
	ctx := MarketContext{Price: 150, Indicators: map[string]float64{"sma_20": 140}}
	rule := domain.Rule{ConditionField: "price", ConditionOperator: domain.OpGreaterThan, ConditionValue: "sma_20"}
	assert.True(t, Evaluate(rule, ctx))
}

func TestEvaluate_ConditionValueMissingFieldDefaultsZero(t *testing.T) {
	ctx := MarketContext{Price: 1}
	rule := domain.Rule{ConditionField: "price", ConditionOperator: domain.OpGreaterThan, ConditionValue: "nonexistent_field"}
	assert.True(t, Evaluate(rule, ctx))
}

func TestEvaluate_PositionFieldNoPositionNeverFires(t *testing.T) {
	ctx := MarketContext{Price: 150}
	rule := domain.Rule{ConditionField: "position.quantity", ConditionOperator: domain.OpGreaterThan, ConditionValue: "0"}
	assert.False(t, Evaluate(rule, ctx))
}

func TestEvaluate_PositionFieldWithPosition(t *testing.T) {
	ctx := MarketContext{Price: 150, Position: &PositionContext{Quantity: 10, UnrealizedPLPercent: 5.5}}
	rule := domain.Rule{ConditionField: "position.unrealizedPLPercent", ConditionOperator: domain.OpGreaterThanOrEqual, ConditionValue: "5"}
	assert.True(t, Evaluate(rule, ctx))
}

func TestEvaluate_IndicatorField(t *testing.T) {
	ctx := MarketContext{Price: 150, Indicators: map[string]float64{"rsi": 72.3}}
	rule := domain.Rule{ConditionField: "rsi", ConditionOperator: domain.OpGreaterThan, ConditionValue: "70"}
	assert.True(t, Evaluate(rule, ctx))
}

func TestEvaluate_UnknownConditionFieldNeverFires(t *testing.T) {
	ctx := MarketContext{Price: 150}
	rule := domain.Rule{ConditionField: "not_a_real_field", ConditionOperator: domain.OpGreaterThan, ConditionValue: "0"}
	assert.False(t, Evaluate(rule, ctx))
}

func TestEvaluate_EqualityIsExactBitComparison(t *testing.T) {
	ctx := MarketContext{Price: 0.1 + 0.2}
	rule := domain.Rule{ConditionField: "price", ConditionOperator: domain.OpEqual, ConditionValue: "0.3"}
	assert.False(t, Evaluate(rule, ctx), "0.1+0.2 != 0.3 under exact float equality")
}

func TestEvaluate_AllOperators(t *testing.T) {
	ctx := MarketContext{Price: 100}
	cases := []struct {
		op   domain.ConditionOperator
		val  string
		want bool
	}{
		{domain.OpGreaterThan, "99", true},
		{domain.OpGreaterThan, "100", false},
		{domain.OpLessThan, "101", true},
		{domain.OpLessThan, "100", false},
		{domain.OpGreaterThanOrEqual, "100", true},
		{domain.OpLessThanOrEqual, "100", true},
		{domain.OpEqual, "100", true},
		{domain.OpNotEqual, "100", false},
		{domain.OpNotEqual, "99", true},
	}
	for _, c := range cases {
		rule := domain.Rule{ConditionField: "price", ConditionOperator: c.op, ConditionValue: c.val}
		assert.Equal(t, c.want, Evaluate(rule, ctx), "op=%s val=%s", c.op, c.val)
	}
}
