package pool

import (
	sdkmath "cosmossdk.io/math"

	"github.com/corridor-network/psm/internal/types"
)

// Pool defines the interface to the external weighted pool holding the three
// tokens. The pool enforces per-token weight bounds and an upper bound on
// the sum of bound tokens' denormalized weights at every call boundary,
// which is why the rebind scheduler orders its updates.
type Pool interface {
	// Bind adds a token to the pool with an initial balance and
	// denormalized weight. The balance is pulled from the controller.
	Bind(token types.TokenID, balance, denorm sdkmath.Int) error

	// Rebind updates the balance and weight of an already bound token.
	Rebind(token types.TokenID, balance, denorm sdkmath.Int) error

	// Unbind removes a token, returning its full balance to the controller.
	Unbind(token types.TokenID) error

	// SwapExactAmountIn swaps amountIn of tokenIn for tokenOut on behalf of
	// caller, honoring the caller's minimum output and maximum price.
	SwapExactAmountIn(caller string, tokenIn types.TokenID, amountIn sdkmath.Int, tokenOut types.TokenID, minOut sdkmath.Int, maxPrice sdkmath.LegacyDec) (out sdkmath.Int, spotAfter sdkmath.LegacyDec, err error)

	// GetSpotPrice returns the fee-adjusted price of tokenOut in tokenIn
	// units. GetSpotPriceSansFee omits the swap fee markup.
	GetSpotPrice(tokenIn, tokenOut types.TokenID) (sdkmath.LegacyDec, error)
	GetSpotPriceSansFee(tokenIn, tokenOut types.TokenID) (sdkmath.LegacyDec, error)

	// CalcOutGivenIn and CalcInGivenOut quote a swap without executing it.
	CalcOutGivenIn(tokenIn types.TokenID, amountIn sdkmath.Int, tokenOut types.TokenID) (sdkmath.Int, error)
	CalcInGivenOut(tokenIn types.TokenID, amountOut sdkmath.Int, tokenOut types.TokenID) (sdkmath.Int, error)

	GetDenormalizedWeight(token types.TokenID) (sdkmath.Int, error)
	GetBalance(token types.TokenID) (sdkmath.Int, error)
	IsBound(token types.TokenID) bool

	SetSwapFee(fee sdkmath.LegacyDec) error
	SetController(controller string) error
	SetPublicSwap(public bool) error
}
