package engine

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tconn93/Day-trader/internal/apperr"
	"github.com/tconn93/Day-trader/internal/domain"
	"github.com/tconn93/Day-trader/internal/marketdata"
	"github.com/tconn93/Day-trader/internal/scheduler"
)

func discardLogger() zerolog.Logger {
	return zerolog.New(nil).Level(zerolog.Disabled)
}

func buyAllRule() domain.Rule {
	return domain.Rule{
		RuleType:          domain.RuleTypeEntry,
		ConditionField:    "price",
		ConditionOperator: domain.OpGreaterThan,
		ConditionValue:    "0",
		Action:            "buy:max",
	}
}

func TestLiveEngine_Start_NotActive(t *testing.T) {
	store := newTestStore(t)
	userID := seedTestUser(t, store, "a@example.com")
	algo, err := store.Algorithms.Create(context.Background(), userID, "algo", "")
	require.NoError(t, err)
	_, err = store.Rules.Create(context.Background(), algo.ID, buyAllRule())
	require.NoError(t, err)

	e := New(store, &fakeProvider{}, scheduler.New(discardLogger()), 0, discardLogger())
	err = e.Start(context.Background(), algo.ID, userID, []string{"AAPL"})
	assert.ErrorIs(t, err, apperr.ErrNotActive)
}

func TestLiveEngine_Start_NoRules(t *testing.T) {
	store := newTestStore(t)
	userID := seedTestUser(t, store, "b@example.com")
	algo, err := store.Algorithms.Create(context.Background(), userID, "algo", "")
	require.NoError(t, err)
	_, err = store.Algorithms.Toggle(context.Background(), userID, algo.ID)
	require.NoError(t, err)

	e := New(store, &fakeProvider{}, scheduler.New(discardLogger()), 0, discardLogger())
	err = e.Start(context.Background(), algo.ID, userID, []string{"AAPL"})
	assert.ErrorIs(t, err, apperr.ErrNoRules)
}

func TestLiveEngine_Start_AlreadyRunning(t *testing.T) {
	store := newTestStore(t)
	userID := seedTestUser(t, store, "c@example.com")
	algo, err := store.Algorithms.Create(context.Background(), userID, "algo", "")
	require.NoError(t, err)
	_, err = store.Algorithms.Toggle(context.Background(), userID, algo.ID)
	require.NoError(t, err)
	_, err = store.Rules.Create(context.Background(), algo.ID, buyAllRule())
	require.NoError(t, err)

	provider := &fakeProvider{quotes: map[string]marketdata.Quote{
		"AAPL": {Symbol: "AAPL", Price: 100},
	}}
	sched := scheduler.New(discardLogger())
	defer sched.Stop()
	e := New(store, provider, sched, time.Hour, discardLogger())

	require.NoError(t, e.Start(context.Background(), algo.ID, userID, []string{"AAPL"}))
	err = e.Start(context.Background(), algo.ID, userID, []string{"AAPL"})
	assert.ErrorIs(t, err, apperr.ErrAlreadyRunning)
}

func TestLiveEngine_Start_FiresRuleAndTracksRunning(t *testing.T) {
	store := newTestStore(t)
	userID := seedTestUser(t, store, "d@example.com")
	algo, err := store.Algorithms.Create(context.Background(), userID, "algo", "")
	require.NoError(t, err)
	_, err = store.Algorithms.Toggle(context.Background(), userID, algo.ID)
	require.NoError(t, err)
	_, err = store.Rules.Create(context.Background(), algo.ID, buyAllRule())
	require.NoError(t, err)

	provider := &fakeProvider{quotes: map[string]marketdata.Quote{
		"AAPL": {Symbol: "AAPL", Price: 100},
	}}
	sched := scheduler.New(discardLogger())
	defer sched.Stop()
	e := New(store, provider, sched, time.Hour, discardLogger())

	require.NoError(t, e.Start(context.Background(), algo.ID, userID, []string{"AAPL"}))
	assert.Contains(t, e.Running(), algo.ID)

	account, err := store.Accounts.GetOrCreate(context.Background(), userID)
	require.NoError(t, err)
	position, err := store.Positions.GetBySymbol(context.Background(), store.LedgerDB.Conn(), account.ID, "AAPL")
	require.NoError(t, err)
	require.NotNil(t, position)
	assert.Equal(t, int64(1000), position.Quantity) // balance 100000 / price 100

	e.Stop(algo.ID)
	assert.NotContains(t, e.Running(), algo.ID)
}

func TestLiveEngine_EvaluateOnce_LaterRuleSeesEarlierFill(t *testing.T) {
	store := newTestStore(t)
	userID := seedTestUser(t, store, "e@example.com")
	algo, err := store.Algorithms.Create(context.Background(), userID, "algo", "")
	require.NoError(t, err)
	_, err = store.Algorithms.Toggle(context.Background(), userID, algo.ID)
	require.NoError(t, err)

	// Rule 1 buys as many shares as the balance allows; rule 2 fires only
	// if a position already exists (quantity field requires the buy from
	// rule 1 to have landed first).
	_, err = store.Rules.Create(context.Background(), algo.ID, domain.Rule{
		RuleType: domain.RuleTypeEntry, ConditionField: "price", ConditionOperator: domain.OpGreaterThan,
		ConditionValue: "0", Action: "buy:max",
	})
	require.NoError(t, err)
	_, err = store.Rules.Create(context.Background(), algo.ID, domain.Rule{
		RuleType: domain.RuleTypeExit, ConditionField: "position.quantity", ConditionOperator: domain.OpGreaterThan,
		ConditionValue: "0", Action: "sell:50%",
	})
	require.NoError(t, err)

	provider := &fakeProvider{quotes: map[string]marketdata.Quote{
		"AAPL": {Symbol: "AAPL", Price: 100},
	}}
	sched := scheduler.New(discardLogger())
	defer sched.Stop()
	e := New(store, provider, sched, time.Hour, discardLogger())

	require.NoError(t, e.Start(context.Background(), algo.ID, userID, []string{"AAPL"}))

	account, err := store.Accounts.GetOrCreate(context.Background(), userID)
	require.NoError(t, err)
	position, err := store.Positions.GetBySymbol(context.Background(), store.LedgerDB.Conn(), account.ID, "AAPL")
	require.NoError(t, err)
	require.NotNil(t, position)
	// bought 1000, then sold 50% of 1000 = 500, leaving 500
	assert.Equal(t, int64(500), position.Quantity)
}
