/*

This file persists the lifecycle flags: the breach latch and the breaker.
They are the only durable state the strategy owns, so they live in a
single-row table and are reloaded on startup.

*/

package state

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/corridor-network/psm/internal/types"
)

// FlagStore satisfies the strategy's flag persistence port against the
// global database connection.
type FlagStore struct{}

// SaveFlags writes the flags through to the database.
func (FlagStore) SaveFlags(flags types.LifecycleFlags) error {
	return SaveLifecycleFlags(flags)
}

// SaveLifecycleFlags persists the lifecycle flags.
func SaveLifecycleFlags(flags types.LifecycleFlags) error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}

	_, err := DB.Exec(`
		UPDATE lifecycle_flags
		SET breach_handled = $1, breaker = $2, updated_at = CURRENT_TIMESTAMP
		WHERE id = 1;
	`, flags.BreachHandled, flags.Breaker)
	if err != nil {
		return fmt.Errorf("failed to save lifecycle flags: %w", err)
	}

	log.Debug().
		Bool("breach_handled", flags.BreachHandled).
		Bool("breaker", flags.Breaker).
		Msg("Lifecycle flags persisted")
	return nil
}

// LoadLifecycleFlags reads the persisted lifecycle flags.
func LoadLifecycleFlags() (types.LifecycleFlags, error) {
	if DB == nil {
		return types.LifecycleFlags{}, fmt.Errorf("database not initialized")
	}

	var flags types.LifecycleFlags
	err := DB.QueryRow(`SELECT breach_handled, breaker FROM lifecycle_flags WHERE id = 1;`).
		Scan(&flags.BreachHandled, &flags.Breaker)
	if err != nil {
		return types.LifecycleFlags{}, fmt.Errorf("failed to load lifecycle flags: %w", err)
	}
	return flags, nil
}
