package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/tconn93/Day-trader/internal/engine"
	"github.com/tconn93/Day-trader/internal/ledger"
	"github.com/tconn93/Day-trader/internal/marketdata"
	"github.com/tconn93/Day-trader/internal/reliability"
)

// Deps bundles everything the router needs to construct its handler groups.
type Deps struct {
	Store        *ledger.Store
	Provider     marketdata.Provider
	Live         *engine.LiveEngine
	Backtest     *engine.BacktestEngine
	LedgerHealth *reliability.DatabaseHealthService
	CoreHealth   *reliability.DatabaseHealthService
	JWTSecret    string
	Log          zerolog.Logger
}

// NewRouter builds the full chi router for the service: liveness check
// outside auth, every other route behind RequireAuth, mirroring the
// teacher's setupMiddleware/setupRoutes split.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(d.Log))
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	system := NewSystemHandlers(d.Live, d.LedgerHealth, d.CoreHealth, d.Log)
	r.Get("/system/health", system.HandleHealth)

	algorithms := NewAlgorithmHandlers(d.Store, d.Log)
	paperTrading := NewPaperTradingHandlers(d.Store, d.Provider, d.Live, d.Log)
	stocks := NewStockHandlers(d.Provider, d.Log)
	backtest := NewBacktestHandlers(d.Store, d.Backtest, d.Log)

	r.Group(func(r chi.Router) {
		r.Use(RequireAuth(d.JWTSecret))

		r.Get("/system/status", system.HandleStatus)

		r.Route("/algorithms", func(r chi.Router) {
			r.Get("/", algorithms.HandleList)
			r.Post("/", algorithms.HandleCreate)
			r.Get("/{id}", algorithms.HandleGet)
			r.Put("/{id}", algorithms.HandleUpdate)
			r.Delete("/{id}", algorithms.HandleDelete)
			r.Patch("/{id}/toggle", algorithms.HandleToggle)
			r.Post("/{id}/rules", algorithms.HandleCreateRule)
			r.Put("/{aid}/rules/{rid}", algorithms.HandleUpdateRule)
			r.Delete("/{aid}/rules/{rid}", algorithms.HandleDeleteRule)
		})

		r.Route("/paper-trading", func(r chi.Router) {
			r.Get("/account", paperTrading.HandleGetAccount)
			r.Get("/positions", paperTrading.HandleGetPositions)
			r.Get("/orders", paperTrading.HandleGetOrders)
			r.Get("/transactions", paperTrading.HandleGetTransactions)
			r.Get("/portfolio", paperTrading.HandleGetPortfolio)
			r.Post("/orders", paperTrading.HandlePlaceOrder)
			r.Post("/account/reset", paperTrading.HandleResetAccount)
			r.Post("/algorithms/{id}/start", paperTrading.HandleStartAlgorithm)
			r.Post("/algorithms/{id}/stop", paperTrading.HandleStopAlgorithm)
			r.Get("/algorithms/running", paperTrading.HandleRunningAlgorithms)
		})

		r.Route("/stocks", func(r chi.Router) {
			r.Get("/quote/{symbol}", stocks.HandleQuote)
			r.Post("/quotes", stocks.HandleMultipleQuotes)
			r.Get("/history/{symbol}", stocks.HandleHistory)
		})

		r.Route("/backtest", func(r chi.Router) {
			r.Post("/run", backtest.HandleRun)
			r.Get("/{id}", backtest.HandleGet)
			r.Get("/algorithm/{algorithmId}", backtest.HandleListByAlgorithm)
		})
	})

	return r
}

func requestLogger(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			log.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Int("bytes", ww.BytesWritten()).
				Dur("duration_ms", time.Since(start)).
				Str("request_id", middleware.GetReqID(r.Context())).
				Msg("HTTP request")
		})
	}
}
