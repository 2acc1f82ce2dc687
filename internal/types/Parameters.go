/*

This file contains the tunable strategy parameters. The multiplier, band and
threshold values are empirically chosen in the reference deployment with no
published derivation; they are kept configurable so a domain expert can
adjust them per commodity, and versioned sets can be stored in the database.

*/

package types

// StrategyParameters holds the tunable constants of the weight engine and
// the deposit allocator. Different sets can exist for different commodities.
type StrategyParameters struct {
	// StandardMultiplier scales raw weight shares when spot sits safely
	// inside the corridor. The reference value is 50, putting the total
	// denormalized weight at the pool's maximum.
	StandardMultiplier int64 `json:"standard_multiplier"`

	// DampenedMultiplier scales raw weight shares when spot is near a
	// corridor bound, where the raw value-share ratios turn numerically
	// unstable. The reference value is 47; one full weight unit is added on
	// top of each scaled share as a floor.
	DampenedMultiplier int64 `json:"dampened_multiplier"`

	// BoundaryBandDivisor sets the dampening band as range/divisor. The
	// reference value is 100, i.e. a 1% band at each corridor edge.
	BoundaryBandDivisor int64 `json:"boundary_band_divisor"`

	// MinBindableUnits is the minimum projected position-token balance
	// (pool plus strategy, post-mint) below which a deposit is skipped as a
	// no-op rather than risking a near-zero-balance binding. The reference
	// value is 10^6 base units.
	MinBindableUnits int64 `json:"min_bindable_units"`
}

// Validate checks the parameter set for values that would break the weight
// arithmetic outright.
func (p StrategyParameters) Validate() error {
	if p.StandardMultiplier <= 0 || p.DampenedMultiplier <= 0 {
		return ErrConfiguration
	}
	if p.BoundaryBandDivisor <= 0 {
		return ErrConfiguration
	}
	if p.MinBindableUnits < 0 {
		return ErrConfiguration
	}
	return nil
}
