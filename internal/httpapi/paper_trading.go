package httpapi

import (
	"net/http"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/tconn93/Day-trader/internal/apperr"
	"github.com/tconn93/Day-trader/internal/domain"
	"github.com/tconn93/Day-trader/internal/engine"
	"github.com/tconn93/Day-trader/internal/ledger"
	"github.com/tconn93/Day-trader/internal/marketdata"
	"github.com/tconn93/Day-trader/internal/money"
)

// PaperTradingHandlers serves the account/position/order/transaction/manual
// order/start-stop routes of §6.
type PaperTradingHandlers struct {
	store    *ledger.Store
	provider marketdata.Provider
	live     *engine.LiveEngine
	log      zerolog.Logger
}

// NewPaperTradingHandlers constructs a PaperTradingHandlers.
func NewPaperTradingHandlers(store *ledger.Store, provider marketdata.Provider, live *engine.LiveEngine, log zerolog.Logger) *PaperTradingHandlers {
	return &PaperTradingHandlers{store: store, provider: provider, live: live, log: log.With().Str("handler", "paper_trading").Logger()}
}

func limitParam(r *http.Request, def int) int {
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return def
}

// HandleGetAccount handles GET /paper-trading/account.
func (h *PaperTradingHandlers) HandleGetAccount(w http.ResponseWriter, r *http.Request) {
	account, err := h.store.Accounts.GetOrCreate(r.Context(), UserID(r))
	if err != nil {
		respondErr(h.log, w, err)
		return
	}
	respondJSON(w, http.StatusOK, account)
}

// HandleGetPositions handles GET /paper-trading/positions.
func (h *PaperTradingHandlers) HandleGetPositions(w http.ResponseWriter, r *http.Request) {
	account, err := h.store.Accounts.GetOrCreate(r.Context(), UserID(r))
	if err != nil {
		respondErr(h.log, w, err)
		return
	}
	positions, err := h.refreshAndListPositions(r, account)
	if err != nil {
		respondErr(h.log, w, err)
		return
	}
	respondJSON(w, http.StatusOK, positions)
}

// refreshAndListPositions marks positions to the latest quote before
// returning them, so market_value/unrealized_pl reflect current prices.
func (h *PaperTradingHandlers) refreshAndListPositions(r *http.Request, account *domain.Account) ([]domain.Position, error) {
	positions, err := h.store.Positions.ListByAccount(r.Context(), h.store.LedgerDB.Conn(), account.ID)
	if err != nil {
		return nil, err
	}
	if len(positions) == 0 {
		return positions, nil
	}

	symbols := make([]string, len(positions))
	for i, p := range positions {
		symbols[i] = p.Symbol
	}
	quotes := h.provider.GetMultipleQuotes(r.Context(), symbols)
	prices := make(map[string]money.Cents, len(quotes))
	for symbol, q := range quotes {
		prices[symbol] = money.FromFloat(q.Price)
	}
	if err := h.store.Bookkeeper.RecomputeMarketValues(r.Context(), account.ID, prices); err != nil {
		return nil, err
	}
	return h.store.Positions.ListByAccount(r.Context(), h.store.LedgerDB.Conn(), account.ID)
}

// HandleGetOrders handles GET /paper-trading/orders.
func (h *PaperTradingHandlers) HandleGetOrders(w http.ResponseWriter, r *http.Request) {
	account, err := h.store.Accounts.GetOrCreate(r.Context(), UserID(r))
	if err != nil {
		respondErr(h.log, w, err)
		return
	}
	orders, err := h.store.Orders.ListByAccount(r.Context(), h.store.LedgerDB.Conn(), account.ID, limitParam(r, 50))
	if err != nil {
		respondErr(h.log, w, err)
		return
	}
	respondJSON(w, http.StatusOK, orders)
}

// HandleGetTransactions handles GET /paper-trading/transactions.
func (h *PaperTradingHandlers) HandleGetTransactions(w http.ResponseWriter, r *http.Request) {
	account, err := h.store.Accounts.GetOrCreate(r.Context(), UserID(r))
	if err != nil {
		respondErr(h.log, w, err)
		return
	}
	txs, err := h.store.Transactions.ListByAccount(r.Context(), h.store.LedgerDB.Conn(), account.ID, limitParam(r, 50))
	if err != nil {
		respondErr(h.log, w, err)
		return
	}
	respondJSON(w, http.StatusOK, txs)
}

type portfolioResponse struct {
	Account   *domain.Account    `json:"account"`
	Positions []domain.Position  `json:"positions"`
}

// HandleGetPortfolio handles GET /paper-trading/portfolio.
func (h *PaperTradingHandlers) HandleGetPortfolio(w http.ResponseWriter, r *http.Request) {
	account, err := h.store.Accounts.GetOrCreate(r.Context(), UserID(r))
	if err != nil {
		respondErr(h.log, w, err)
		return
	}
	positions, err := h.refreshAndListPositions(r, account)
	if err != nil {
		respondErr(h.log, w, err)
		return
	}
	account, err = h.store.Accounts.GetOrCreate(r.Context(), UserID(r))
	if err != nil {
		respondErr(h.log, w, err)
		return
	}
	respondJSON(w, http.StatusOK, portfolioResponse{Account: account, Positions: positions})
}

// HandlePlaceOrder handles POST /paper-trading/orders. It calls the
// Bookkeeper's apply_buy/apply_sell directly — the same code path the Live
// Execution Engine uses for rule-triggered fills — rather than a second,
// parallel order-placement implementation.
func (h *PaperTradingHandlers) HandlePlaceOrder(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Symbol   string `json:"symbol"`
		Side     string `json:"side"`
		Quantity int64  `json:"quantity"`
		Type     string `json:"type"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid body")
		return
	}
	side, err := domain.OrderSideFromString(req.Side)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Quantity <= 0 {
		respondError(w, http.StatusBadRequest, "quantity must be positive")
		return
	}

	account, err := h.store.Accounts.GetOrCreate(r.Context(), UserID(r))
	if err != nil {
		respondErr(h.log, w, err)
		return
	}
	quote, err := h.provider.GetQuote(r.Context(), req.Symbol)
	if err != nil {
		respondErr(h.log, w, apperr.Wrap(apperr.CodeUpstreamUnavailable, "quote fetch failed", err))
		return
	}
	price := money.FromFloat(quote.Price)

	var result *ledger.FillResult
	if side.IsBuy() {
		result, err = h.store.Bookkeeper.ApplyBuy(r.Context(), account.ID, req.Symbol, req.Quantity, price, nil)
	} else {
		result, err = h.store.Bookkeeper.ApplySell(r.Context(), account.ID, req.Symbol, req.Quantity, price, nil)
	}
	if err != nil {
		respondErr(h.log, w, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"order_id":      result.OrderID,
		"balance_after": result.BalanceAfter.ToFloat(),
	})
}

// HandleResetAccount handles POST /paper-trading/account/reset.
func (h *PaperTradingHandlers) HandleResetAccount(w http.ResponseWriter, r *http.Request) {
	account, err := h.store.Accounts.GetOrCreate(r.Context(), UserID(r))
	if err != nil {
		respondErr(h.log, w, err)
		return
	}
	if err := h.store.Bookkeeper.Reset(r.Context(), account.ID); err != nil {
		respondErr(h.log, w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// HandleStartAlgorithm handles POST /paper-trading/algorithms/:id/start.
func (h *PaperTradingHandlers) HandleStartAlgorithm(w http.ResponseWriter, r *http.Request) {
	algoID, ok := algorithmIDParam(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid id")
		return
	}
	var req struct {
		Symbols []string `json:"symbols"`
	}
	_ = decodeJSON(r, &req)
	if err := h.live.Start(r.Context(), algoID, UserID(r), req.Symbols); err != nil {
		respondErr(h.log, w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// HandleStopAlgorithm handles POST /paper-trading/algorithms/:id/stop.
func (h *PaperTradingHandlers) HandleStopAlgorithm(w http.ResponseWriter, r *http.Request) {
	algoID, ok := algorithmIDParam(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid id")
		return
	}
	h.live.Stop(algoID)
	respondJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// HandleRunningAlgorithms handles GET /paper-trading/algorithms/running.
func (h *PaperTradingHandlers) HandleRunningAlgorithms(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string][]int64{"running": h.live.Running()})
}
