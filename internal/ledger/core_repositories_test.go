package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tconn93/Day-trader/internal/apperr"
	"github.com/tconn93/Day-trader/internal/database"
	"github.com/tconn93/Day-trader/internal/domain"
)

func setupTestCoreDB(t *testing.T) *database.DB {
	db, err := database.New(database.Config{
		Path:    ":memory:",
		Profile: database.ProfileStandard,
		Name:    "test-core",
	})
	require.NoError(t, err)

	_, err = db.Conn().Exec(`
		CREATE TABLE users (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			email TEXT NOT NULL UNIQUE,
			display_name TEXT NOT NULL DEFAULT '',
			created_at TEXT NOT NULL DEFAULT (datetime('now'))
		);
		CREATE TABLE trading_algorithms (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id INTEGER NOT NULL,
			name TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			is_active INTEGER NOT NULL DEFAULT 0,
			created_at TEXT NOT NULL DEFAULT (datetime('now')),
			updated_at TEXT NOT NULL DEFAULT (datetime('now'))
		);
		CREATE TABLE algorithm_rules (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			algorithm_id INTEGER NOT NULL REFERENCES trading_algorithms(id) ON DELETE CASCADE,
			rule_type TEXT NOT NULL,
			condition_field TEXT NOT NULL,
			condition_operator TEXT NOT NULL,
			condition_value TEXT NOT NULL,
			action TEXT NOT NULL,
			order_index INTEGER NOT NULL DEFAULT 0
		);
		CREATE TABLE backtests (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			algorithm_id INTEGER NOT NULL,
			user_id INTEGER NOT NULL,
			symbol TEXT NOT NULL,
			start_date TEXT NOT NULL,
			end_date TEXT NOT NULL,
			initial_capital NUMERIC(15,2) NOT NULL,
			final_capital NUMERIC(15,2) NOT NULL,
			total_return NUMERIC(15,2) NOT NULL,
			total_return_percent NUMERIC(10,4) NOT NULL,
			total_trades INTEGER NOT NULL DEFAULT 0,
			winning_trades INTEGER NOT NULL DEFAULT 0,
			losing_trades INTEGER NOT NULL DEFAULT 0,
			win_rate NUMERIC(10,4) NOT NULL DEFAULT 0,
			max_drawdown NUMERIC(10,4) NOT NULL DEFAULT 0,
			sharpe_ratio NUMERIC(10,4) NOT NULL DEFAULT 0,
			results_json TEXT NOT NULL,
			created_at TEXT NOT NULL DEFAULT (datetime('now'))
		);
	`)
	require.NoError(t, err)

	_, err = db.Conn().Exec("PRAGMA foreign_keys = ON")
	require.NoError(t, err)

	return db
}

func seedUser(t *testing.T, db *database.DB, email string) int64 {
	res, err := db.Conn().Exec("INSERT INTO users (email) VALUES (?)", email)
	require.NoError(t, err)
	id, err := res.LastInsertId()
	require.NoError(t, err)
	return id
}

func TestAlgorithmRepository_CreateGetListUpdateDeleteToggle(t *testing.T) {
	db := setupTestCoreDB(t)
	defer db.Close()
	ctx := context.Background()

	userID := seedUser(t, db, "a@example.com")
	repo := NewAlgorithmRepository(db.Conn())

	algo, err := repo.Create(ctx, userID, "Momentum", "buy breakouts")
	require.NoError(t, err)
	assert.Equal(t, "Momentum", algo.Name)
	assert.False(t, algo.IsActive)

	fetched, err := repo.GetByID(ctx, userID, algo.ID)
	require.NoError(t, err)
	assert.Equal(t, algo.ID, fetched.ID)

	list, err := repo.ListByUser(ctx, userID)
	require.NoError(t, err)
	require.Len(t, list, 1)

	err = repo.Update(ctx, userID, algo.ID, "Momentum v2", "updated")
	require.NoError(t, err)
	fetched, err = repo.GetByID(ctx, userID, algo.ID)
	require.NoError(t, err)
	assert.Equal(t, "Momentum v2", fetched.Name)

	active, err := repo.Toggle(ctx, userID, algo.ID)
	require.NoError(t, err)
	assert.True(t, active)
	active, err = repo.Toggle(ctx, userID, algo.ID)
	require.NoError(t, err)
	assert.False(t, active)

	err = repo.Delete(ctx, userID, algo.ID)
	require.NoError(t, err)
	_, err = repo.GetByID(ctx, userID, algo.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestAlgorithmRepository_GetByID_WrongUser(t *testing.T) {
	db := setupTestCoreDB(t)
	defer db.Close()
	ctx := context.Background()

	owner := seedUser(t, db, "owner@example.com")
	other := seedUser(t, db, "other@example.com")
	repo := NewAlgorithmRepository(db.Conn())

	algo, err := repo.Create(ctx, owner, "Momentum", "")
	require.NoError(t, err)

	_, err = repo.GetByID(ctx, other, algo.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestAlgorithmRepository_DeleteCascadesRules(t *testing.T) {
	db := setupTestCoreDB(t)
	defer db.Close()
	ctx := context.Background()

	userID := seedUser(t, db, "a@example.com")
	algos := NewAlgorithmRepository(db.Conn())
	rules := NewRuleRepository(db.Conn())

	algo, err := algos.Create(ctx, userID, "Momentum", "")
	require.NoError(t, err)

	_, err = rules.Create(ctx, algo.ID, domain.Rule{
		RuleType:          domain.RuleTypeEntry,
		ConditionField:    "price",
		ConditionOperator: domain.OpGreaterThan,
		ConditionValue:    "100",
		Action:            "buy:10",
	})
	require.NoError(t, err)

	err = algos.Delete(ctx, userID, algo.ID)
	require.NoError(t, err)

	remaining, err := rules.ListByAlgorithmOrdered(ctx, algo.ID)
	require.NoError(t, err)
	assert.Empty(t, remaining, "deleting an algorithm must cascade-delete its rules")
}

func TestRuleRepository_OrderingAndCRUD(t *testing.T) {
	db := setupTestCoreDB(t)
	defer db.Close()
	ctx := context.Background()

	userID := seedUser(t, db, "a@example.com")
	algos := NewAlgorithmRepository(db.Conn())
	repo := NewRuleRepository(db.Conn())

	algo, err := algos.Create(ctx, userID, "Momentum", "")
	require.NoError(t, err)

	r1, err := repo.Create(ctx, algo.ID, domain.Rule{
		RuleType:          domain.RuleTypeEntry,
		ConditionField:    "price",
		ConditionOperator: domain.OpGreaterThan,
		ConditionValue:    "100",
		Action:            "buy:10",
	})
	require.NoError(t, err)
	assert.Equal(t, 0, r1.OrderIndex)

	r2, err := repo.Create(ctx, algo.ID, domain.Rule{
		RuleType:          domain.RuleTypeExit,
		ConditionField:    "rsi",
		ConditionOperator: domain.OpLessThan,
		ConditionValue:    "30",
		Action:            "sell:all",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, r2.OrderIndex)

	ordered, err := repo.ListByAlgorithmOrdered(ctx, algo.ID)
	require.NoError(t, err)
	require.Len(t, ordered, 2)
	assert.Equal(t, r1.ID, ordered[0].ID)
	assert.Equal(t, r2.ID, ordered[1].ID)

	err = repo.Update(ctx, algo.ID, r1.ID, domain.Rule{
		RuleType:          domain.RuleTypeEntry,
		ConditionField:    "price",
		ConditionOperator: domain.OpGreaterThan,
		ConditionValue:    "150",
		Action:            "buy:20",
	})
	require.NoError(t, err)

	ordered, err = repo.ListByAlgorithmOrdered(ctx, algo.ID)
	require.NoError(t, err)
	assert.Equal(t, "150", ordered[0].ConditionValue)

	err = repo.Delete(ctx, algo.ID, r1.ID)
	require.NoError(t, err)
	ordered, err = repo.ListByAlgorithmOrdered(ctx, algo.ID)
	require.NoError(t, err)
	require.Len(t, ordered, 1)
	assert.Equal(t, r2.ID, ordered[0].ID)
}

func TestRuleRepository_CreateRejectsInvalidRule(t *testing.T) {
	db := setupTestCoreDB(t)
	defer db.Close()
	ctx := context.Background()

	userID := seedUser(t, db, "a@example.com")
	algos := NewAlgorithmRepository(db.Conn())
	repo := NewRuleRepository(db.Conn())

	algo, err := algos.Create(ctx, userID, "Momentum", "")
	require.NoError(t, err)

	_, err = repo.Create(ctx, algo.ID, domain.Rule{
		RuleType:       domain.RuleTypeEntry,
		ConditionField: "",
		Action:         "buy:10",
	})
	require.Error(t, err)
	assert.Equal(t, apperr.CodeValidation, apperr.CodeOf(err))
}

func TestBacktestRepository_CreateGetList(t *testing.T) {
	db := setupTestCoreDB(t)
	defer db.Close()
	ctx := context.Background()

	userID := seedUser(t, db, "a@example.com")
	algos := NewAlgorithmRepository(db.Conn())
	repo := NewBacktestRepository(db.Conn())

	algo, err := algos.Create(ctx, userID, "Momentum", "")
	require.NoError(t, err)

	bt, err := repo.Create(ctx, domain.Backtest{
		AlgorithmID:    algo.ID,
		UserID:         userID,
		Symbol:         "AAPL",
		StartDate:      time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:        time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		InitialCapital: 100000,
		FinalCapital:   112000,
		TotalReturn:    12000,
		TotalTrades:    20,
		WinningTrades:  12,
		LosingTrades:   8,
		WinRate:        0.6,
		MaxDrawdown:    0.08,
		SharpeRatio:    1.4,
		ResultsJSON:    `{"trades":[]}`,
	})
	require.NoError(t, err)
	assert.NotZero(t, bt.ID)

	fetched, err := repo.GetByID(ctx, bt.ID)
	require.NoError(t, err)
	assert.Equal(t, "AAPL", fetched.Symbol)
	assert.Equal(t, 20, fetched.TotalTrades)

	list, err := repo.ListByAlgorithm(ctx, algo.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
}

func TestBacktestRepository_GetByID_NotFound(t *testing.T) {
	db := setupTestCoreDB(t)
	defer db.Close()

	repo := NewBacktestRepository(db.Conn())
	_, err := repo.GetByID(context.Background(), 999)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}
