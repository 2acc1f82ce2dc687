/*

This file contains the default strategy parameters.

These values mirror the reference deployment and are used when no active
parameter set is found in the database during initialization.

*/

package config

import (
	"github.com/corridor-network/psm/internal/types"
)

// DefaultStrategyParameters provides a baseline parameter set for the weight
// engine and the deposit allocator.
var DefaultStrategyParameters = types.StrategyParameters{
	StandardMultiplier: 50,
	// Rationale: the pool caps total denormalized weight at 50 weight units.
	// Scaling the three raw shares by 50 saturates that cap, which keeps the
	// weight ratios at maximum resolution.

	DampenedMultiplier: 47,
	// Rationale: near a corridor bound one value share collapses toward zero
	// and the raw ratios become numerically unstable. Scaling by 47 and
	// adding one full weight unit per token floors every weight at 1/50 of
	// the total while keeping the sum at most 50 units.

	BoundaryBandDivisor: 100,
	// Rationale: the dampened branch engages within range/100 of either
	// bound, i.e. a 1% band at each corridor edge.

	MinBindableUnits: 1_000_000,
	// Rationale: binding a near-zero balance produces useless spot prices
	// and risks rejection by the pool's minimum-balance rule. Deposits that
	// would not lift the projected position balances past 10^6 base units
	// are skipped instead.
}
