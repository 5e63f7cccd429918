package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tconn93/Day-trader/internal/domain"
)

func TestExecute_BuyInteger(t *testing.T) {
	ctx := MarketContext{Price: 100, Balance: 10000}
	intent, err := Execute("buy:10", ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderSideBuy, intent.Side)
	assert.Equal(t, int64(10), intent.Quantity)
}

func TestExecute_BuyPercent(t *testing.T) {
	ctx := MarketContext{Price: 100, Balance: 10000}
	intent, err := Execute("buy:50%", ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(50), intent.Quantity) // (10000*0.5)/100 = 50
}

func TestExecute_BuyMax(t *testing.T) {
	ctx := MarketContext{Price: 150, Balance: 1000}
	intent, err := Execute("buy:max", ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(6), intent.Quantity) // floor(1000/150) = 6
}

func TestExecute_BuyZeroIsNoOp(t *testing.T) {
	ctx := MarketContext{Price: 1000, Balance: 500}
	intent, err := Execute("buy:max", ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), intent.Quantity)
}

func TestExecute_SellAll(t *testing.T) {
	ctx := MarketContext{Price: 100, Position: &PositionContext{Quantity: 25}}
	intent, err := Execute("sell:all", ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderSideSell, intent.Side)
	assert.Equal(t, int64(25), intent.Quantity)
}

func TestExecute_SellPercent(t *testing.T) {
	ctx := MarketContext{Price: 100, Position: &PositionContext{Quantity: 20}}
	intent, err := Execute("sell:25%", ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(5), intent.Quantity)
}

func TestExecute_SellInteger_CappedAtPositionQuantity(t *testing.T) {
	ctx := MarketContext{Price: 100, Position: &PositionContext{Quantity: 3}}
	intent, err := Execute("sell:10", ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), intent.Quantity, "selling more than held caps at position quantity")
}

func TestExecute_SellWithNoPositionIsNoOp(t *testing.T) {
	ctx := MarketContext{Price: 100}
	intent, err := Execute("sell:all", ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), intent.Quantity)
}

func TestExecute_MalformedAction(t *testing.T) {
	_, err := Execute("buyonly", MarketContext{})
	require.Error(t, err)
}

func TestExecute_UnknownVerb(t *testing.T) {
	_, err := Execute("hold:all", MarketContext{Price: 100})
	require.Error(t, err)
}

func TestExecute_BuyWithZeroPriceIsNoOp(t *testing.T) {
	ctx := MarketContext{Price: 0, Balance: 10000}
	intent, err := Execute("buy:max", ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), intent.Quantity)
}
