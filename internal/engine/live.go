// Package engine implements the Live Execution Engine and the Backtest
// Engine, both built from the same Rule Evaluator/Action Executor pair
// over the Ledger Store.
package engine

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tconn93/Day-trader/internal/apperr"
	"github.com/tconn93/Day-trader/internal/domain"
	"github.com/tconn93/Day-trader/internal/ledger"
	"github.com/tconn93/Day-trader/internal/marketdata"
	"github.com/tconn93/Day-trader/internal/money"
	"github.com/tconn93/Day-trader/internal/rules"
	"github.com/tconn93/Day-trader/internal/scheduler"
)

// DefaultTickPeriod is the recurring-task period used when none is
// configured.
const DefaultTickPeriod = 60 * time.Second

// DefaultSymbols is the fallback symbol set used when start() is called
// with no symbols.
var DefaultSymbols = []string{"AAPL"}

// runState tracks a currently-running algorithm for Running()/last_check.
type runState struct {
	userID    int64
	symbols   []string
	lastCheck time.Time
}

// LiveEngine runs one recurring evaluate_once per started algorithm.
type LiveEngine struct {
	store     *ledger.Store
	provider  marketdata.Provider
	scheduler *scheduler.Scheduler
	log       zerolog.Logger
	period    time.Duration

	mu      sync.Mutex
	running map[int64]*runState
}

// New constructs a LiveEngine. period, if zero, defaults to
// DefaultTickPeriod.
func New(store *ledger.Store, provider marketdata.Provider, sched *scheduler.Scheduler, period time.Duration, log zerolog.Logger) *LiveEngine {
	if period <= 0 {
		period = DefaultTickPeriod
	}
	return &LiveEngine{
		store:     store,
		provider:  provider,
		scheduler: sched,
		log:       log.With().Str("component", "live_engine").Logger(),
		period:    period,
		running:   make(map[int64]*runState),
	}
}

// Start validates algorithmID for userID (exists, active, has rules),
// registers its recurring task, and performs one immediate evaluate_once.
func (e *LiveEngine) Start(ctx context.Context, algorithmID, userID int64, symbols []string) error {
	e.mu.Lock()
	if _, ok := e.running[algorithmID]; ok {
		e.mu.Unlock()
		return apperr.ErrAlreadyRunning
	}
	e.mu.Unlock()

	algo, err := e.store.Algorithms.GetByID(ctx, userID, algorithmID)
	if err != nil {
		return err
	}
	if !algo.IsActive {
		return apperr.ErrNotActive
	}

	algoRules, err := e.store.Rules.ListByAlgorithmOrdered(ctx, algorithmID)
	if err != nil {
		return err
	}
	if len(algoRules) == 0 {
		return apperr.ErrNoRules
	}

	if len(symbols) == 0 {
		symbols = DefaultSymbols
	}

	e.mu.Lock()
	e.running[algorithmID] = &runState{userID: userID, symbols: symbols}
	e.mu.Unlock()

	e.scheduler.Every(algorithmID, e.period, func() {
		e.evaluateOnce(context.Background(), algorithmID)
	})

	e.evaluateOnce(ctx, algorithmID)
	return nil
}

// Stop cancels algorithmID's recurring task and clears its state.
// Idempotent.
func (e *LiveEngine) Stop(algorithmID int64) {
	e.scheduler.Cancel(algorithmID)
	e.mu.Lock()
	delete(e.running, algorithmID)
	e.mu.Unlock()
}

// Running returns the set of currently registered algorithm ids.
func (e *LiveEngine) Running() []int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	ids := make([]int64, 0, len(e.running))
	for id := range e.running {
		ids = append(ids, id)
	}
	return ids
}

// evaluateOnce fetches quotes for the algorithm's configured symbols in
// parallel, evaluates its rules in order against each, and submits any
// firing intents to the Bookkeeper. Errors are logged and swallowed; a
// panic is caught so a single bad tick cannot end the schedule.
func (e *LiveEngine) evaluateOnce(ctx context.Context, algorithmID int64) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Error().Interface("panic", r).Int64("algorithm_id", algorithmID).Msg("recovered panic in evaluate_once")
		}
	}()

	e.mu.Lock()
	state, ok := e.running[algorithmID]
	e.mu.Unlock()
	if !ok {
		return
	}

	algoRules, err := e.store.Rules.ListByAlgorithmOrdered(ctx, algorithmID)
	if err != nil {
		e.log.Error().Err(err).Int64("algorithm_id", algorithmID).Msg("failed to load rules")
		return
	}

	quotes := e.provider.GetMultipleQuotes(ctx, state.symbols)

	account, err := e.store.Accounts.GetOrCreate(ctx, state.userID)
	if err != nil {
		e.log.Error().Err(err).Int64("user_id", state.userID).Msg("failed to load account")
		return
	}

	for symbol, quote := range quotes {
		indicators := e.computeIndicators(ctx, symbol)
		if err := e.evaluateSymbol(ctx, algorithmID, account.ID, symbol, quote, algoRules, indicators); err != nil {
			e.log.Warn().Err(err).Str("symbol", symbol).Int64("algorithm_id", algorithmID).Msg("evaluate_once step failed, continuing")
		}
	}

	e.mu.Lock()
	if s, ok := e.running[algorithmID]; ok {
		s.lastCheck = time.Now()
	}
	e.mu.Unlock()
}

// computeIndicators fetches enough recent daily bars to compute sma_20,
// sma_50, and rsi and returns whichever have sufficient history; a
// historical-fetch failure yields an empty map rather than an error, since
// indicator unavailability just means those condition_fields resolve to
// "not found" for this tick.
func (e *LiveEngine) computeIndicators(ctx context.Context, symbol string) map[string]float64 {
	bars, err := e.provider.GetHistorical(ctx, symbol, marketdata.Range3mo, marketdata.Interval1d)
	if err != nil || len(bars) == 0 {
		return nil
	}

	closes := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
	}

	out := make(map[string]float64)
	if len(closes) >= 20 {
		sma := marketdata.SMA(closes, 20)
		out["sma_20"] = sma[len(sma)-1]
	}
	if len(closes) >= 50 {
		sma := marketdata.SMA(closes, 50)
		out["sma_50"] = sma[len(sma)-1]
	}
	if len(closes) >= 15 {
		rsi := marketdata.RSI(closes, 14)
		out["rsi"] = rsi[len(rsi)-1]
	}
	return out
}

func (e *LiveEngine) evaluateSymbol(ctx context.Context, algorithmID, accountID int64, symbol string, quote marketdata.Quote, algoRules []domain.Rule, indicators map[string]float64) error {
	for _, rule := range algoRules {
		position, err := e.store.Positions.GetBySymbol(ctx, e.store.LedgerDB.Conn(), accountID, symbol)
		if err != nil {
			return err
		}
		account, err := e.store.Accounts.GetByID(ctx, e.store.LedgerDB.Conn(), accountID)
		if err != nil {
			return err
		}

		marketCtx := buildMarketContext(quote, position, account.Balance, indicators)

		if !rules.Evaluate(rule, marketCtx) {
			continue
		}

		intent, err := rules.Execute(rule.Action, marketCtx)
		if err != nil {
			e.log.Warn().Err(err).Int64("rule_id", rule.ID).Msg("action executor failed")
			continue
		}
		if intent.Quantity <= 0 {
			continue
		}

		idempotencyKey := uuid.New().String()
		algoID := algorithmID
		price := money.FromFloat(quote.Price)

		var fillErr error
		if intent.Side.IsBuy() {
			_, fillErr = e.store.Bookkeeper.ApplyBuy(ctx, accountID, symbol, intent.Quantity, price, &algoID)
		} else {
			_, fillErr = e.store.Bookkeeper.ApplySell(ctx, accountID, symbol, intent.Quantity, price, &algoID)
		}
		if fillErr != nil {
			e.log.Warn().Err(fillErr).Str("idempotency_key", idempotencyKey).Int64("rule_id", rule.ID).Msg("fill rejected")
			continue
		}
		e.log.Info().Str("idempotency_key", idempotencyKey).Int64("rule_id", rule.ID).Str("side", string(intent.Side)).Int64("quantity", intent.Quantity).Msg("rule fired, fill applied")
	}
	return nil
}

// buildMarketContext assembles a rules.MarketContext from a quote, the
// held position (nil if none), balance, and precomputed indicators.
func buildMarketContext(quote marketdata.Quote, position *domain.Position, balance float64, indicators map[string]float64) rules.MarketContext {
	ctx := rules.MarketContext{
		Symbol:        quote.Symbol,
		Price:         quote.Price,
		Open:          quote.Open,
		High:          quote.High,
		Low:           quote.Low,
		Volume:        float64(quote.Volume),
		Change:        quote.Change,
		ChangePercent: quote.ChangePercent,
		Balance:       balance,
		Indicators:    indicators,
	}
	if position != nil {
		ctx.Position = &rules.PositionContext{
			Quantity:            position.Quantity,
			AveragePrice:        position.AveragePrice,
			UnrealizedPL:        position.UnrealizedPL,
			UnrealizedPLPercent: position.UnrealizedPLPercent,
		}
	}
	return ctx
}
