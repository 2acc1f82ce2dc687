/*

This file contains the swap passthrough. The strategy forwards swaps to the
pool after the gating-token check; any swap that moves collateral in or out
shifts the pool's value distribution, so a weight recompute and rebind cycle
follows it.

*/

package strategy

import (
	"errors"
	"fmt"

	sdkmath "cosmossdk.io/math"

	"github.com/corridor-network/psm/internal/types"
)

// Swap forwards a swap to the pool on behalf of caller. The caller must
// hold at least the configured minimum balance of the gating token.
func (s *Strategy) Swap(caller string, tokenIn types.TokenID, amountIn sdkmath.Int, tokenOut types.TokenID, minOut sdkmath.Int, maxPrice sdkmath.LegacyDec) (sdkmath.Int, sdkmath.LegacyDec, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.flags.Breaker {
		return sdkmath.Int{}, sdkmath.LegacyDec{}, errors.Join(types.ErrWrongState, ErrBreaker)
	}
	if amountIn.IsNil() || !amountIn.IsPositive() {
		return sdkmath.Int{}, sdkmath.LegacyDec{}, types.ErrZeroAmount
	}

	if s.gateThreshold.IsPositive() {
		gateBalance, err := s.tokens.HolderBalance(caller, s.ids.GateToken)
		if err != nil {
			return sdkmath.Int{}, sdkmath.LegacyDec{}, err
		}
		if gateBalance.LT(s.gateThreshold) {
			return sdkmath.Int{}, sdkmath.LegacyDec{}, fmt.Errorf("%w: caller holds %s of gating token, need %s",
				types.ErrUnauthorized, gateBalance, s.gateThreshold)
		}
	}

	out, spotAfter, err := s.pool.SwapExactAmountIn(caller, tokenIn, amountIn, tokenOut, minOut, maxPrice)
	if err != nil {
		return sdkmath.Int{}, sdkmath.LegacyDec{}, err
	}

	if tokenIn == s.ids.Want || tokenOut == s.ids.Want {
		if _, err := s.rebalanceLocked(); err != nil {
			return sdkmath.Int{}, sdkmath.LegacyDec{}, err
		}
	}

	s.log.Debug().
		Str("caller", caller).
		Str("tokenIn", tokenIn.String()).
		Str("tokenOut", tokenOut.String()).
		Str("amountIn", amountIn.String()).
		Str("amountOut", out.String()).
		Msg("Swap forwarded")
	return out, spotAfter, nil
}
