// ./internal/state/db.go
package state

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/rs/zerolog/log"
)

// DB is a global database connection pool.
var DB *sql.DB

// DBConfig holds database connection parameters.
type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string // "disable", "require", "verify-full", etc.
}

// InitDB initializes the database connection pool.
func InitDB(cfg DBConfig) error {
	psqlInfo := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode)

	var err error
	DB, err = sql.Open("postgres", psqlInfo)
	if err != nil {
		return fmt.Errorf("failed to open database connection: %w", err)
	}

	DB.SetMaxOpenConns(25)
	DB.SetMaxIdleConns(25)
	DB.SetConnMaxLifetime(5 * time.Minute)

	if err = DB.Ping(); err != nil {
		DB.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	log.Info().Msg("Successfully connected to the PostgreSQL database")
	return nil
}

// CloseDB closes the database connection pool.
func CloseDB() {
	if DB != nil {
		log.Info().Msg("Closing database connection...")
		if err := DB.Close(); err != nil {
			log.Error().Err(err).Msg("Error closing database connection")
		}
	}
}

// TestDBConnection tests if the database connection is healthy.
func TestDBConnection() error {
	if DB == nil {
		return fmt.Errorf("database connection is nil")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := DB.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	return nil
}

// EnsureSchema applies the necessary DDL to create tables if they don't exist.
func EnsureSchema() error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}

	schemaSQL := `
		CREATE TABLE IF NOT EXISTS strategy_parameters (
			params_id SERIAL PRIMARY KEY,
			version INTEGER NOT NULL DEFAULT 1,
			config_name VARCHAR(255) NOT NULL DEFAULT 'default',
			is_active BOOLEAN NOT NULL DEFAULT FALSE,
			activated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			standard_multiplier BIGINT NOT NULL,
			dampened_multiplier BIGINT NOT NULL,
			boundary_band_divisor BIGINT NOT NULL,
			min_bindable_units BIGINT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_strategy_parameters_active
			ON strategy_parameters (config_name, is_active);

		CREATE TABLE IF NOT EXISTS rebalance_snapshots (
			snapshot_id BIGSERIAL PRIMARY KEY,
			cycle_number INTEGER NOT NULL,
			snapshot_timestamp TIMESTAMPTZ NOT NULL,
			params_id BIGINT,
			corridor JSONB NOT NULL,
			balances JSONB NOT NULL,
			weights JSONB NOT NULL,
			dampened BOOLEAN NOT NULL,
			lifecycle_state VARCHAR(32) NOT NULL,
			valuation_want NUMERIC(78, 0) NOT NULL,
			applied BOOLEAN NOT NULL,
			note TEXT NOT NULL DEFAULT ''
		);
		CREATE INDEX IF NOT EXISTS idx_rebalance_snapshots_cycle
			ON rebalance_snapshots (cycle_number);

		CREATE TABLE IF NOT EXISTS lifecycle_flags (
			id INTEGER PRIMARY KEY DEFAULT 1,
			breach_handled BOOLEAN NOT NULL DEFAULT FALSE,
			breaker BOOLEAN NOT NULL DEFAULT FALSE,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			CONSTRAINT lifecycle_flags_single_row CHECK (id = 1)
		);
		INSERT INTO lifecycle_flags (id) VALUES (1) ON CONFLICT (id) DO NOTHING;
	`
	if _, err := DB.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to ensure schema: %w", err)
	}

	if err := ensureCycleCounterTable(); err != nil {
		return err
	}

	log.Info().Msg("Database schema ensured")
	return nil
}
