package config

import (
	"errors"
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
)

// AppConfig holds all application configuration loaded from environment variables.
// These are populated at startup by the LoadConfig function.
var (
	// Mode selects how the engine is wired: "simulation" runs against the
	// in-memory pool and vault, "live" is reserved for an on-chain adapter.
	Mode string

	// GovernanceAddr is the account allowed to mutate strategy settings.
	GovernanceAddr string
	// ControllerAddr is the account allowed to withdraw and sweep dust.
	ControllerAddr string
	// SuccessorAddr receives all holdings on a full withdrawal. May be empty
	// until governance assigns one.
	SuccessorAddr string

	// GateToken is the token a swap caller must hold to use the strategy's
	// swap surface. Empty disables gating.
	GateToken string
	// GateThreshold is the minimum GateToken balance required.
	GateThreshold int64

	// CycleInterval is how often the engine re-reads the corridor and
	// rebalances.
	CycleInterval time.Duration

	// WebPort is the port for the status/metrics HTTP server.
	WebPort string
)

// LoadConfig loads configuration from environment variables and sets the global config vars.
// All environment variables are required unless noted otherwise.
func LoadConfig() error {
	log.Info().Msg("Loading application configuration from environment variables...")

	var err error

	Mode, err = getEnv("PSM_MODE")
	if err != nil {
		return err
	}
	if Mode != "simulation" && Mode != "live" {
		return errors.New("PSM_MODE must be 'simulation' or 'live', got: " + Mode)
	}

	GovernanceAddr, err = getEnv("GOVERNANCE_ADDR")
	if err != nil {
		return err
	}

	ControllerAddr, err = getEnv("CONTROLLER_ADDR")
	if err != nil {
		return err
	}

	// Successor is optional until a migration is planned.
	SuccessorAddr = os.Getenv("SUCCESSOR_ADDR")

	GateToken = os.Getenv("GATE_TOKEN")
	if GateToken != "" {
		GateThreshold, err = getEnvAsInt64("GATE_THRESHOLD")
		if err != nil {
			return err
		}
	}

	intervalSecs, err := getEnvAsInt64("CYCLE_INTERVAL_SECONDS")
	if err != nil {
		return err
	}
	if intervalSecs <= 0 {
		return errors.New("CYCLE_INTERVAL_SECONDS must be positive")
	}
	CycleInterval = time.Duration(intervalSecs) * time.Second

	WebPort, err = getEnv("WEB_PORT")
	if err != nil {
		return err
	}

	log.Debug().
		Str("Mode", Mode).
		Str("Governance", GovernanceAddr).
		Str("Controller", ControllerAddr).
		Dur("CycleInterval", CycleInterval).
		Msg("Configuration loaded successfully.")

	return nil
}

// getEnv retrieves a string environment variable. Returns error if not set.
func getEnv(key string) (string, error) {
	if value, exists := os.LookupEnv(key); exists {
		return value, nil
	}
	return "", errors.New("environment variable " + key + " is required but not set")
}

// getEnvAsInt64 retrieves an environment variable as an int64. Returns error if not set or invalid.
func getEnvAsInt64(key string) (int64, error) {
	valueStr, err := getEnv(key)
	if err != nil {
		return 0, err
	}
	value, err := strconv.ParseInt(valueStr, 10, 64)
	if err != nil {
		return 0, errors.New("environment variable " + key + " must be a valid int64, got: " + valueStr)
	}
	return value, nil
}
