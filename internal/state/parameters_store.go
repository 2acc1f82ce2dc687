// ./internal/state/parameters_store.go
package state

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/corridor-network/psm/internal/types"
)

// SaveStrategyParameters saves a new version of strategy parameters.
func SaveStrategyParameters(params types.StrategyParameters, configName string, version int, makeActive bool) (int64, error) {
	if DB == nil {
		return 0, fmt.Errorf("database not initialized")
	}
	if err := params.Validate(); err != nil {
		return 0, fmt.Errorf("refusing to persist invalid parameters: %w", err)
	}

	tx, err := DB.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		} else if err != nil {
			tx.Rollback()
		}
	}()

	if makeActive {
		stmtDeactivate := `UPDATE strategy_parameters SET is_active = FALSE WHERE config_name = $1 AND is_active = TRUE;`
		_, err = tx.Exec(stmtDeactivate, configName)
		if err != nil {
			return 0, fmt.Errorf("failed to deactivate existing active parameters for %s: %w", configName, err)
		}
	}

	stmt := `
        INSERT INTO strategy_parameters (
            version, config_name, is_active, activated_at, created_at,
            standard_multiplier, dampened_multiplier, boundary_band_divisor, min_bindable_units
        ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
        RETURNING params_id;`

	var paramsID int64
	currentTime := time.Now()
	err = tx.QueryRow(
		stmt,
		version, configName, makeActive, currentTime, currentTime,
		params.StandardMultiplier, params.DampenedMultiplier, params.BoundaryBandDivisor, params.MinBindableUnits,
	).Scan(&paramsID)
	if err != nil {
		return 0, fmt.Errorf("failed to insert strategy parameters: %w", err)
	}

	err = tx.Commit()
	if err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.Info().
		Int("version", version).
		Str("config", configName).
		Int64("params_id", paramsID).
		Bool("active", makeActive).
		Msg("Saved strategy parameters")
	return paramsID, nil
}

// LoadActiveStrategyParameters loads the currently active strategy parameters.
func LoadActiveStrategyParameters(configName string) (*types.StrategyParameters, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}

	query := `
        SELECT standard_multiplier, dampened_multiplier, boundary_band_divisor, min_bindable_units
        FROM strategy_parameters
        WHERE config_name = $1 AND is_active = TRUE
        ORDER BY activated_at DESC
        LIMIT 1;`

	p := &types.StrategyParameters{}
	row := DB.QueryRow(query, configName)
	err := row.Scan(&p.StandardMultiplier, &p.DampenedMultiplier, &p.BoundaryBandDivisor, &p.MinBindableUnits)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("no active strategy parameters found for config '%s'", configName)
		}
		return nil, fmt.Errorf("failed to scan active strategy parameters for config '%s': %w", configName, err)
	}
	log.Info().Str("config", configName).Msg("Loaded active strategy parameters")
	return p, nil
}

// GetActiveStrategyParametersID returns the params_id of the active row, so
// snapshots can record which parameter version produced them.
func GetActiveStrategyParametersID(configName string) (*int64, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}

	var paramsID int64
	err := DB.QueryRow(`
        SELECT params_id
        FROM strategy_parameters
        WHERE config_name = $1 AND is_active = TRUE
        ORDER BY activated_at DESC
        LIMIT 1;`, configName).Scan(&paramsID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query active parameters id for config '%s': %w", configName, err)
	}
	return &paramsID, nil
}
