/*

This file contains the weight engine: a pure function mapping the three
token balances and the price corridor onto three denormalized pool weights.

All arithmetic is big-integer fixed point with truncating division. The
truncation systematically rounds value shares down, which favors the pool
side over the depositor; the reference deployment relies on that bias and it
is preserved here deliberately.

*/

package weights

import (
	"errors"
	"fmt"

	sdkmath "cosmossdk.io/math"

	"github.com/corridor-network/psm/internal/types"
)

// WeightUnit is one full denormalized weight unit (10^18).
var WeightUnit = sdkmath.NewInt(1_000_000_000_000_000_000)

var (
	ErrNilBalance    = errors.New("balance is nil")
	ErrZeroValue     = errors.New("total value share is zero")
	ErrBadParameters = errors.New("strategy parameters are invalid")
)

// ComputeWeights converts the combined {short, long, collateral} balances
// and the price corridor into denormalized pool weights.
//
// Let v = (spot - floor) / range be the fractional position of spot inside
// the corridor. The value shares are
//
//	dc = xc*xs*v + xc*xl*(1-v)
//	dl = C*xl*xs*v
//	ds = C*xl*xs*(1-v)
//
// and each raw weight is its share of the total, scaled to WeightUnit. To
// keep divisions truncating and late, v is never materialized: every term is
// multiplied out against (spot - floor) or (cap - spot) and divided by the
// range once.
func ComputeWeights(balances types.Balances, corridor types.PriceCorridor, params types.StrategyParameters) (types.Weights, error) {
	if err := params.Validate(); err != nil {
		return types.Weights{}, errors.Join(ErrBadParameters, err)
	}
	if err := corridor.Validate(); err != nil {
		return types.Weights{}, errors.Join(types.ErrConfiguration, err)
	}
	if err := validateBalances(balances); err != nil {
		return types.Weights{}, err
	}

	spot := corridor.ClampedSpot()
	rng := corridor.Range()
	up := spot.Sub(corridor.Floor) // range * v
	down := corridor.Cap.Sub(spot) // range * (1 - v)

	xs, xl, xc := balances.Short, balances.Long, balances.Collateral
	c := corridor.CollateralPerUnit

	// Collateral's share scales with the quantity of whichever position
	// token it would net against, weighted by the price position.
	dc := xc.Mul(xs).Mul(up).Add(xc.Mul(xl).Mul(down)).Quo(rng)
	dl := c.Mul(xl).Mul(xs).Mul(up).Quo(rng)
	ds := c.Mul(xl).Mul(xs).Mul(down).Quo(rng)

	total := dc.Add(dl).Add(ds)
	if total.IsZero() {
		return types.Weights{}, fmt.Errorf("%w: %+v", errors.Join(types.ErrZeroAmount, ErrZeroValue), balances)
	}

	raw := types.Weights{
		Short:      ds.Mul(WeightUnit).Quo(total),
		Long:       dl.Mul(WeightUnit).Quo(total),
		Collateral: dc.Mul(WeightUnit).Quo(total),
	}

	if InBoundaryBand(corridor, params) {
		// Near the corridor edges one position token's price approaches
		// zero and the raw ratios destabilize; a flatter multiplier plus a
		// one-unit floor keeps every weight inside the pool's bounds.
		m := sdkmath.NewInt(params.DampenedMultiplier)
		return types.Weights{
			Short:      raw.Short.Mul(m).Add(WeightUnit),
			Long:       raw.Long.Mul(m).Add(WeightUnit),
			Collateral: raw.Collateral.Mul(m).Add(WeightUnit),
		}, nil
	}

	m := sdkmath.NewInt(params.StandardMultiplier)
	return types.Weights{
		Short:      raw.Short.Mul(m),
		Long:       raw.Long.Mul(m),
		Collateral: raw.Collateral.Mul(m),
	}, nil
}

// InBoundaryBand reports whether spot sits within range/BoundaryBandDivisor
// of the corridor floor or cap, i.e. whether the dampened branch applies.
func InBoundaryBand(corridor types.PriceCorridor, params types.StrategyParameters) bool {
	spot := corridor.ClampedSpot()
	band := corridor.Range().Quo(sdkmath.NewInt(params.BoundaryBandDivisor))
	return corridor.Floor.Add(band).GTE(spot) || corridor.Cap.Sub(band).LTE(spot)
}

func validateBalances(b types.Balances) error {
	for name, v := range map[string]sdkmath.Int{"short": b.Short, "long": b.Long, "collateral": b.Collateral} {
		if v.IsNil() {
			return fmt.Errorf("%w: %s", ErrNilBalance, name)
		}
		if v.IsNegative() {
			return fmt.Errorf("%w: %s balance is negative", types.ErrZeroAmount, name)
		}
	}
	return nil
}
