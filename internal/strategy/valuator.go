/*

This file contains the valuator: the strategy's total reported value in
collateral-token terms. Two pricing regimes apply depending on whether the
collateral token is currently bound to the pool.

*/

package strategy

import (
	"errors"

	sdkmath "cosmossdk.io/math"

	"github.com/corridor-network/psm/internal/types"
)

// BalanceOf reports the strategy's total value in collateral base units:
// its own collateral, its position holdings priced per the active regime,
// and the pool's holdings when collateral is bound. Truncation rounds the
// report down.
func (s *Strategy) BalanceOf() (sdkmath.Int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	held, err := s.ownBalances()
	if err != nil {
		return sdkmath.Int{}, err
	}

	priceShort, priceLong, err := s.unitPricesLocked()
	if err != nil {
		return sdkmath.Int{}, err
	}

	total := sdkmath.LegacyNewDecFromInt(held.Collateral).
		Add(priceShort.MulInt(held.Short)).
		Add(priceLong.MulInt(held.Long))

	poolValue, err := s.poolValueLocked()
	if err != nil {
		return sdkmath.Int{}, err
	}

	return total.Add(poolValue).TruncateInt(), nil
}

// unitPricesLocked returns the collateral price of one short and one long
// base unit. Bound regime: the pool's live spot prices. Unbound regime: a
// linear interpolation across the corridor.
func (s *Strategy) unitPricesLocked() (short, long sdkmath.LegacyDec, err error) {
	if s.pool.IsBound(s.ids.Want) {
		short, err = s.pool.GetSpotPrice(s.ids.Want, s.ids.Short)
		if err != nil {
			return sdkmath.LegacyDec{}, sdkmath.LegacyDec{}, err
		}
		long, err = s.pool.GetSpotPrice(s.ids.Want, s.ids.Long)
		if err != nil {
			return sdkmath.LegacyDec{}, sdkmath.LegacyDec{}, err
		}
		return short, long, nil
	}

	corridor, err := s.vault.Corridor()
	if err != nil {
		return sdkmath.LegacyDec{}, sdkmath.LegacyDec{}, errors.Join(ErrVaultQuery, err)
	}
	if err := corridor.Validate(); err != nil {
		return sdkmath.LegacyDec{}, sdkmath.LegacyDec{}, errors.Join(types.ErrConfiguration, err)
	}

	spot := corridor.ClampedSpot()
	rng := corridor.Range()
	base := sdkmath.LegacyNewDecFromInt(corridor.CollateralPerUnit).
		QuoInt(s.unit)

	short = base.MulInt(spot.Sub(corridor.Floor)).QuoInt(rng)
	long = base.MulInt(corridor.Cap.Sub(spot)).QuoInt(rng)
	return short, long, nil
}

// poolValueLocked values the pool's holdings in collateral terms: its
// collateral balance plus its position holdings at fee-free spot prices.
// Zero when collateral is not bound.
func (s *Strategy) poolValueLocked() (sdkmath.LegacyDec, error) {
	if !s.pool.IsBound(s.ids.Want) {
		return sdkmath.LegacyZeroDec(), nil
	}

	collateral, err := s.pool.GetBalance(s.ids.Want)
	if err != nil {
		return sdkmath.LegacyDec{}, err
	}
	shortBal, err := s.pool.GetBalance(s.ids.Short)
	if err != nil {
		return sdkmath.LegacyDec{}, err
	}
	longBal, err := s.pool.GetBalance(s.ids.Long)
	if err != nil {
		return sdkmath.LegacyDec{}, err
	}

	priceShort, err := s.pool.GetSpotPriceSansFee(s.ids.Want, s.ids.Short)
	if err != nil {
		return sdkmath.LegacyDec{}, err
	}
	priceLong, err := s.pool.GetSpotPriceSansFee(s.ids.Want, s.ids.Long)
	if err != nil {
		return sdkmath.LegacyDec{}, err
	}

	return sdkmath.LegacyNewDecFromInt(collateral).
		Add(priceShort.MulInt(shortBal)).
		Add(priceLong.MulInt(longBal)), nil
}
