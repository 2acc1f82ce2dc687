/*

This file manages the persistent global cycle counter. The counter is stored
in the database so cycle numbering stays continuous across restarts.

*/

package state

import (
	"fmt"

	"github.com/rs/zerolog/log"
)

// ensureCycleCounterTable creates the cycle_counter table if it doesn't exist.
func ensureCycleCounterTable() error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}

	createTableSQL := `
		CREATE TABLE IF NOT EXISTS cycle_counter (
			id INTEGER PRIMARY KEY DEFAULT 1,
			current_cycle INTEGER NOT NULL DEFAULT 0,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			CONSTRAINT single_row_check CHECK (id = 1)
		);

		INSERT INTO cycle_counter (id, current_cycle)
		VALUES (1, 0)
		ON CONFLICT (id) DO NOTHING;
	`
	if _, err := DB.Exec(createTableSQL); err != nil {
		return fmt.Errorf("failed to create cycle_counter table: %w", err)
	}
	return nil
}

// GetCurrentCycleNumber retrieves the current cycle number.
func GetCurrentCycleNumber() (int, error) {
	if DB == nil {
		return 0, fmt.Errorf("database not initialized")
	}

	var currentCycle int
	err := DB.QueryRow(`SELECT current_cycle FROM cycle_counter WHERE id = 1;`).Scan(&currentCycle)
	if err != nil {
		return 0, fmt.Errorf("failed to read cycle counter: %w", err)
	}
	return currentCycle, nil
}

// IncrementCycleNumber atomically bumps and returns the cycle counter.
func IncrementCycleNumber() (int, error) {
	if DB == nil {
		return 0, fmt.Errorf("database not initialized")
	}

	var newCycle int
	err := DB.QueryRow(`
		UPDATE cycle_counter
		SET current_cycle = current_cycle + 1, updated_at = CURRENT_TIMESTAMP
		WHERE id = 1
		RETURNING current_cycle;
	`).Scan(&newCycle)
	if err != nil {
		return 0, fmt.Errorf("failed to increment cycle counter: %w", err)
	}

	log.Debug().Int("cycle", newCycle).Msg("Cycle counter incremented")
	return newCycle, nil
}
