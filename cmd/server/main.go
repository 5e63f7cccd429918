package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tconn93/Day-trader/internal/config"
	"github.com/tconn93/Day-trader/internal/database"
	"github.com/tconn93/Day-trader/internal/engine"
	"github.com/tconn93/Day-trader/internal/httpapi"
	"github.com/tconn93/Day-trader/internal/ledger"
	"github.com/tconn93/Day-trader/internal/marketdata"
	"github.com/tconn93/Day-trader/internal/reliability"
	"github.com/tconn93/Day-trader/internal/scheduler"
	"github.com/tconn93/Day-trader/internal/server"
	"github.com/tconn93/Day-trader/pkg/logger"
)

func main() {
	log := logger.New(logger.Config{Level: "info", Pretty: true})
	log.Info().Msg("Starting Day-trader")

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	ledgerDB, err := database.New(database.Config{
		Path:    cfg.DataDir + "/ledger.db",
		Profile: database.ProfileLedger,
		Name:    "ledger",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize ledger database")
	}
	defer ledgerDB.Close()

	coreDB, err := database.New(database.Config{
		Path:    cfg.DataDir + "/core.db",
		Profile: database.ProfileStandard,
		Name:    "core",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize core database")
	}
	defer coreDB.Close()

	for _, db := range []*database.DB{ledgerDB, coreDB} {
		if err := db.Migrate(); err != nil {
			log.Fatal().Err(err).Str("database", db.Name()).Msg("Failed to apply schema")
		}
	}

	store := ledger.NewStore(ledgerDB, coreDB)

	primary := marketdata.NewHTTPProvider(marketdata.Config{
		BaseURL:    cfg.UpstreamMarketURL,
		Timeout:    cfg.QuoteTimeout,
		QuoteTTL:   cfg.QuoteTTL,
		HistoryTTL: cfg.HistoricalTTL,
		DevMode:    cfg.DevMode,
	}, log)
	provider := marketdata.NewFallbackProvider(primary, log)

	sched := scheduler.New(log)
	defer sched.Stop()

	liveEngine := engine.New(store, provider, sched, cfg.TickInterval, log)
	backtestEngine := engine.NewBacktestEngine(store, provider)

	ledgerHealth := reliability.NewDatabaseHealthService(ledgerDB, "ledger", cfg.DataDir+"/ledger.db", log)
	coreHealth := reliability.NewDatabaseHealthService(coreDB, "core", cfg.DataDir+"/core.db", log)

	srv := server.New(cfg.Port, httpapi.Deps{
		Store:        store,
		Provider:     provider,
		Live:         liveEngine,
		Backtest:     backtestEngine,
		LedgerHealth: ledgerHealth,
		CoreHealth:   coreHealth,
		JWTSecret:    cfg.JWTSecret,
		Log:          log,
	})

	go func() {
		if err := srv.Start(); err != nil {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()
	log.Info().Int("port", cfg.Port).Msg("Server started successfully")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	log.Info().Msg("Server stopped")
}
