package main

import (
	"context"
	"os"
	"strconv"

	sdkmath "cosmossdk.io/math"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/corridor-network/psm/internal/config"
	"github.com/corridor-network/psm/internal/engine"
	"github.com/corridor-network/psm/internal/ledger"
	"github.com/corridor-network/psm/internal/logger"
	"github.com/corridor-network/psm/internal/pool"
	"github.com/corridor-network/psm/internal/state"
	"github.com/corridor-network/psm/internal/strategy"
	"github.com/corridor-network/psm/internal/types"
	"github.com/corridor-network/psm/internal/vault"
	"github.com/corridor-network/psm/internal/web"
)

// Ledger account names used by the simulation wiring.
const (
	strategyAccount = "psm_strategy"
	poolAccount     = "psm_pool"
	vaultAccount    = "commodity_vault"
)

// main is the entry point for the pool strategy manager.
func main() {
	// --- 1. Initialization Phase ---
	if err := godotenv.Load(); err != nil {
		log.Warn().Msg("Warning: .env file not found. Relying on OS environment variables.")
	}

	if err := config.LoadConfig(); err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logger.Initialize(os.Getenv("LOG_LEVEL"))
	log.Info().Msg("Pool Strategy Manager starting...")

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

	// Load strategy parameters, seeding defaults on first run.
	params, err := state.LoadActiveStrategyParameters(engine.DefaultConfigName)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to load active strategy parameters, using defaults and saving.")
		defaultParams := config.DefaultStrategyParameters
		if _, err := state.SaveStrategyParameters(defaultParams, engine.DefaultConfigName, engine.DefaultConfigVersion, true); err != nil {
			log.Fatal().Err(err).Msg("Failed to save initial default strategy parameters.")
		}
		params = &defaultParams
	}
	log.Info().Msg("Strategy parameters loaded successfully.")

	// Restore the lifecycle flags so the breach latch survives restarts.
	flags, err := state.LoadLifecycleFlags()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load lifecycle flags")
	}

	// --- 2. Collaborator Wiring (with Safety Switch) ---
	if config.Mode != "simulation" {
		log.Fatal().Msg("PSM_MODE is not set to 'simulation'. The live pool and vault adapters are not wired yet; halting to prevent accidental execution.")
	}
	log.Info().Msg("Initializing in SIMULATION mode with in-memory collaborators.")

	book := ledger.New()

	ids := types.Identities{
		Want:       types.TokenID(envOr("WANT_TOKEN", "uusdc")),
		Long:       types.TokenID(envOr("LONG_TOKEN", "ulong")),
		Short:      types.TokenID(envOr("SHORT_TOKEN", "ushort")),
		Governance: config.GovernanceAddr,
		Controller: config.ControllerAddr,
		Successor:  config.SuccessorAddr,
		GateToken:  types.TokenID(config.GateToken),
	}

	corridor := types.PriceCorridor{
		Floor:             sdkmath.NewInt(envOrInt("CORRIDOR_FLOOR", 1_000_000)),
		Cap:               sdkmath.NewInt(envOrInt("CORRIDOR_CAP", 2_000_000)),
		Spot:              sdkmath.NewInt(envOrInt("CORRIDOR_SPOT", 1_500_000)),
		CollateralPerUnit: sdkmath.NewInt(envOrInt("COLLATERAL_PER_UNIT", 1_000_000)),
	}
	unitScale := sdkmath.NewInt(envOrInt("UNIT_SCALE", 1_000_000))

	memVault, err := vault.NewMemoryVault(book, vaultAccount, strategyAccount, ids, corridor, unitScale)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize in-memory vault")
	}
	controller := vault.NewMemoryController(map[types.TokenID]string{
		ids.Want: config.ControllerAddr,
	})

	swapFee := sdkmath.LegacyNewDecWithPrec(3, 3) // 0.3%
	memPool := pool.NewMemoryPool(book, poolAccount, strategyAccount, swapFee)

	// Seed the strategy's ledger account so the first deposit binds the pool.
	seed := sdkmath.NewInt(envOrInt("SEED_COLLATERAL", 1_000_000_000))
	book.Mint(strategyAccount, ids.Want, seed)

	strat, err := strategy.New(strategy.Config{
		Params:        *params,
		Identities:    ids,
		UnitScale:     unitScale,
		Pool:          memPool,
		Vault:         memVault,
		Controller:    controller,
		Tokens:        book.Account(strategyAccount),
		FlagStore:     state.FlagStore{},
		InitialFlags:  flags,
		GateThreshold: sdkmath.NewInt(config.GateThreshold),
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create strategy instance")
	}

	if err := strat.Deposit(); err != nil {
		log.Fatal().Err(err).Msg("Initial deposit failed")
	}

	// --- 3. Web Server ---
	webServer := web.NewWebServer(config.WebPort, strat, memVault, engine.DefaultConfigName)
	go func() {
		log.Info().Str("port", config.WebPort).Msg("Starting status web server")
		if err := webServer.Start(); err != nil {
			log.Error().Err(err).Msg("Web server failed to start")
		}
	}()

	// --- 4. Engine Loop ---
	eng, err := engine.NewEngine(engine.Config{
		Strategy:   strat,
		Vault:      memVault,
		Params:     params,
		ConfigName: engine.DefaultConfigName,
		Persist:    true,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create engine instance")
	}

	log.Info().Str("interval", config.CycleInterval.String()).Msg("Starting engine main loop")
	eng.RunLoop(context.Background(), config.CycleInterval)
}

// Helper to convert string to int with a default value.
func mustAtoi(s string, defaultValue int) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return defaultValue
	}
	return i
}

func envOr(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func envOrInt(key string, defaultValue int64) int64 {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.ParseInt(v, 10, 64); err == nil {
			return i
		}
	}
	return defaultValue
}
