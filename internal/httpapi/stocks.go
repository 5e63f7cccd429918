package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/tconn93/Day-trader/internal/marketdata"
)

// StockHandlers serves the quote/history routes of §6, proxying the
// Market Data Provider directly.
type StockHandlers struct {
	provider marketdata.Provider
	log      zerolog.Logger
}

// NewStockHandlers constructs a StockHandlers.
func NewStockHandlers(provider marketdata.Provider, log zerolog.Logger) *StockHandlers {
	return &StockHandlers{provider: provider, log: log.With().Str("handler", "stocks").Logger()}
}

// HandleQuote handles GET /stocks/quote/:symbol.
func (h *StockHandlers) HandleQuote(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")
	quote, err := h.provider.GetQuote(r.Context(), symbol)
	if err != nil {
		respondErr(h.log, w, err)
		return
	}
	respondJSON(w, http.StatusOK, quote)
}

// HandleMultipleQuotes handles POST /stocks/quotes.
func (h *StockHandlers) HandleMultipleQuotes(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Symbols []string `json:"symbols"`
	}
	if err := decodeJSON(r, &req); err != nil || len(req.Symbols) == 0 {
		respondError(w, http.StatusBadRequest, "symbols is required")
		return
	}
	respondJSON(w, http.StatusOK, h.provider.GetMultipleQuotes(r.Context(), req.Symbols))
}

// HandleHistory handles GET /stocks/history/:symbol?range=&interval=.
func (h *StockHandlers) HandleHistory(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")
	rng := marketdata.Range(r.URL.Query().Get("range"))
	if rng == "" {
		rng = marketdata.Range1mo
	}
	interval := marketdata.Interval(r.URL.Query().Get("interval"))
	if interval == "" {
		interval = marketdata.Interval1d
	}
	bars, err := h.provider.GetHistorical(r.Context(), symbol, rng, interval)
	if err != nil {
		respondErr(h.log, w, err)
		return
	}
	respondJSON(w, http.StatusOK, bars)
}
