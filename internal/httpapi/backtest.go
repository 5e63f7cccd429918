package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/tconn93/Day-trader/internal/engine"
	"github.com/tconn93/Day-trader/internal/ledger"
	"github.com/tconn93/Day-trader/internal/marketdata"
)

// BacktestHandlers serves the backtest routes of §6.
type BacktestHandlers struct {
	store *ledger.Store
	run   *engine.BacktestEngine
	log   zerolog.Logger
}

// NewBacktestHandlers constructs a BacktestHandlers.
func NewBacktestHandlers(store *ledger.Store, run *engine.BacktestEngine, log zerolog.Logger) *BacktestHandlers {
	return &BacktestHandlers{store: store, run: run, log: log.With().Str("handler", "backtest").Logger()}
}

// HandleRun handles POST /backtest/run.
func (h *BacktestHandlers) HandleRun(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AlgorithmID    int64   `json:"algorithmId"`
		Symbol         string  `json:"symbol"`
		StartDate      string  `json:"startDate"`
		EndDate        string  `json:"endDate"`
		InitialCapital float64 `json:"initialCapital"`
		Interval       string  `json:"interval"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid body")
		return
	}
	start, err := time.Parse(time.RFC3339, req.StartDate)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid startDate")
		return
	}
	end, err := time.Parse(time.RFC3339, req.EndDate)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid endDate")
		return
	}
	if req.InitialCapital <= 0 {
		req.InitialCapital = 100_000
	}
	interval := marketdata.Interval(req.Interval)
	if interval == "" {
		interval = marketdata.Interval1d
	}

	result, err := h.run.Run(r.Context(), engine.BacktestRequest{
		AlgorithmID:    req.AlgorithmID,
		UserID:         UserID(r),
		Symbol:         req.Symbol,
		StartDate:      start,
		EndDate:        end,
		InitialCapital: req.InitialCapital,
		Interval:       interval,
	})
	if err != nil {
		respondErr(h.log, w, err)
		return
	}
	respondJSON(w, http.StatusCreated, result)
}

// HandleGet handles GET /backtest/:id.
func (h *BacktestHandlers) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid id")
		return
	}
	bt, err := h.store.Backtests.GetByID(r.Context(), id)
	if err != nil {
		respondErr(h.log, w, err)
		return
	}
	respondJSON(w, http.StatusOK, bt)
}

// HandleListByAlgorithm handles GET /backtest/algorithm/:algorithmId.
func (h *BacktestHandlers) HandleListByAlgorithm(w http.ResponseWriter, r *http.Request) {
	algoID, err := strconv.ParseInt(chi.URLParam(r, "algorithmId"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid algorithmId")
		return
	}
	backtests, err := h.store.Backtests.ListByAlgorithm(r.Context(), algoID)
	if err != nil {
		respondErr(h.log, w, err)
		return
	}
	respondJSON(w, http.StatusOK, backtests)
}
