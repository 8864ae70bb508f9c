package main

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/parpool/parpool/internal/admin"
	"github.com/parpool/parpool/internal/config"
	"github.com/parpool/parpool/internal/engine"
	"github.com/parpool/parpool/internal/ledger"
	"github.com/parpool/parpool/internal/logger"
	"github.com/parpool/parpool/internal/registry"
	"github.com/parpool/parpool/internal/state"
	"github.com/parpool/parpool/internal/types"
	"github.com/parpool/parpool/internal/web"
)

// main is the entry point for the parpool service.
func main() {
	// --- 1. Initialization Phase ---
	if err := godotenv.Load(); err != nil {
		log.Warn().Msg("Warning: .env file not found. Relying on OS environment variables.")
	}

	if err := config.LoadConfig(); err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logger.Initialize(os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FILE"))
	log.Info().Msg("parpool basket pool engine starting...")

	// Initialize Database Connection (receipts and snapshots)
	var persistReceipt func(types.OperationReceipt) error
	if config.PersistenceEnabled {
		dbCfg := state.DBConfig{
			Host: os.Getenv("DB_HOST"), Port: mustAtoi(os.Getenv("DB_PORT"), 5432),
			User: os.Getenv("DB_USER"), Password: os.Getenv("DB_PASSWORD"),
			DBName: os.Getenv("DB_NAME"), SSLMode: os.Getenv("DB_SSLMODE"),
		}
		if err := state.InitDB(dbCfg); err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize database")
		}
		defer state.CloseDB()
		if err := state.EnsureSchema(); err != nil {
			log.Fatal().Err(err).Msg("Failed to ensure database schema")
		}
		persistReceipt = state.SaveOperationReceipt
	} else {
		log.Warn().Msg("POOL_DB=off: receipts and snapshots will not be persisted")
	}

	// --- 2. Ledger Initialization (with Safety Switch) ---
	if config.PoolMode != "sim" {
		log.Fatal().Msg("POOL_MODE is not set to 'sim'. Halting: no other ledger backing is implemented. Set POOL_MODE=sim to run against in-memory ledgers.")
	}

	tokens := ledger.NewMemoryTokenLedger()
	shares := ledger.NewMemoryShareLedger()
	gate := ledger.NewStaticPermissionGate(config.AdminAccounts...)
	events := ledger.NewRingSink(512)
	sink := ledger.MultiSink{ledger.LogSink{}, events}

	// Seed every admin account with each sim asset so operations have funds
	// to move.
	for _, simAsset := range config.DefaultSimAssets {
		for _, account := range config.AdminAccounts {
			tokens.SetBalance(simAsset.ID, account, simAsset.SeedBalance)
		}
	}

	// --- 3. Create Engine with Dependency Injection ---
	assetRegistry := registry.New()
	poolEngine, err := engine.New(engine.Config{
		Registry: assetRegistry,
		Tokens:   tokens,
		Shares:   shares,
		Events:   sink,
		FeeRate:  config.DefaultFeeRate,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create pool engine")
	}

	adminController, err := admin.NewController(poolEngine, gate)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create admin controller")
	}

	// Register the sim basket and perform the mandatory initial deposit from
	// the first admin account.
	operator := config.AdminAccounts[0]
	for _, simAsset := range config.DefaultSimAssets {
		if err := adminController.Register(operator, simAsset.ID, simAsset.LowBound, simAsset.HighBound); err != nil {
			log.Fatal().Err(err).Str("asset", string(simAsset.ID)).Msg("Failed to register sim asset")
		}
		if err := adminController.SetAccepting(operator, simAsset.ID, true); err != nil {
			log.Fatal().Err(err).Str("asset", string(simAsset.ID)).Msg("Failed to enable sim asset")
		}
	}
	if _, err := poolEngine.Initialize(operator, config.DefaultSimAssets[0].ID, config.SimInitialDeposit); err != nil {
		log.Fatal().Err(err).Msg("Failed to perform initial deposit")
	}
	log.Info().Str("operator", operator).Msg("Pool initialized in sim mode")

	// --- 4. Start Web Server ---
	webServer, err := web.NewWebServer(web.Config{
		Port:           config.WebPort,
		Engine:         poolEngine,
		Admin:          adminController,
		Events:         events,
		PersistReceipt: persistReceipt,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create web server")
	}
	go func() {
		log.Info().Str("port", config.WebPort).Str("url", "http://localhost:"+config.WebPort).Msg("Starting parpool web API")
		if err := webServer.Start(); err != nil {
			log.Error().Err(err).Msg("Web server failed to start")
		}
	}()

	// --- 5. Snapshot Loop ---
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh
		log.Info().Str("signal", sig.String()).Msg("Shutdown signal received")
		cancel()
	}()

	runSnapshotLoop(ctx, poolEngine, config.SnapshotInterval, config.PersistenceEnabled)
	log.Info().Msg("parpool stopped")
}

// runSnapshotLoop persists a full pool snapshot on every tick until the
// context is cancelled.
func runSnapshotLoop(ctx context.Context, poolEngine *engine.Engine, interval time.Duration, persist bool) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			snapshot, err := poolEngine.Snapshot()
			if err != nil {
				log.Error().Err(err).Msg("Failed to snapshot pool")
				continue
			}
			log.Info().
				Str("aggregate", snapshot.AggregateSize.String()).
				Str("shareSupply", snapshot.ShareSupply.String()).
				Msg("Pool snapshot taken")
			if persist {
				if _, err := state.SavePoolSnapshot(*snapshot); err != nil {
					log.Error().Err(err).Msg("Failed to persist pool snapshot")
				}
			}
		}
	}
}

// Helper to convert string to int with a default value
func mustAtoi(s string, defaultValue int) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return defaultValue
	}
	return i
}
