/*

This file contains the price corridor type supplied by the valuation oracle.
The corridor bounds the payoff range for the long/short position pair.

*/

package types

import (
	"errors"
	"fmt"

	sdkmath "cosmossdk.io/math"
)

var (
	ErrNilCorridorField = errors.New("corridor field is nil")
	ErrNegativePrice    = errors.New("corridor prices cannot be negative")
	ErrZeroRange        = errors.New("corridor range must be positive")
)

// PriceCorridor is the [floor, cap] band plus the oracle spot price, all
// sharing one fixed-point unit scale. CollateralPerUnit is the conversion
// rate between the collateral token and one minted long/short pair.
type PriceCorridor struct {
	Floor             sdkmath.Int `json:"floor"`
	Cap               sdkmath.Int `json:"cap"`
	Spot              sdkmath.Int `json:"spot"`
	CollateralPerUnit sdkmath.Int `json:"collateral_per_unit"`
}

// Validate enforces the corridor invariants: all fields present and
// non-negative, and floor strictly below cap. A zero range is a fatal
// configuration error, never expected post-deployment.
func (c PriceCorridor) Validate() error {
	for name, v := range map[string]sdkmath.Int{
		"floor": c.Floor, "cap": c.Cap, "spot": c.Spot, "collateral_per_unit": c.CollateralPerUnit,
	} {
		if v.IsNil() {
			return fmt.Errorf("%w: %s", ErrNilCorridorField, name)
		}
		if v.IsNegative() {
			return fmt.Errorf("%w: %s is %s", ErrNegativePrice, name, v.String())
		}
	}
	if !c.Cap.GT(c.Floor) {
		return fmt.Errorf("%w: floor=%s cap=%s", ErrZeroRange, c.Floor.String(), c.Cap.String())
	}
	return nil
}

// Range returns cap - floor.
func (c PriceCorridor) Range() sdkmath.Int {
	return c.Cap.Sub(c.Floor)
}

// ClampedSpot returns the spot price clamped into [floor, cap]. During
// settlement the oracle may report a spot pinned outside the corridor.
func (c PriceCorridor) ClampedSpot() sdkmath.Int {
	if c.Spot.LT(c.Floor) {
		return c.Floor
	}
	if c.Spot.GT(c.Cap) {
		return c.Cap
	}
	return c.Spot
}

// Equal reports whether two corridors carry identical values.
func (c PriceCorridor) Equal(o PriceCorridor) bool {
	return c.Floor.Equal(o.Floor) && c.Cap.Equal(o.Cap) &&
		c.Spot.Equal(o.Spot) && c.CollateralPerUnit.Equal(o.CollateralPerUnit)
}
