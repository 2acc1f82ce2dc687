package vault

import (
	sdkmath "cosmossdk.io/math"

	"github.com/corridor-network/psm/internal/types"
)

// Vault defines the interface to the external commodity vault: the valuation
// oracle's price corridor, the settlement status, and the mint/redeem
// operations for the long/short position pair. This abstracts the specific
// deployment so the strategy can run against a live instance, a simulation,
// or a test double.
type Vault interface {
	// PriceFloor, PriceCap and PriceSpot return the corridor magnitudes;
	// CollateralPerUnit returns the collateral cost of one position pair.
	PriceFloor() (sdkmath.Int, error)
	PriceCap() (sdkmath.Int, error)
	PriceSpot() (sdkmath.Int, error)
	CollateralPerUnit() (sdkmath.Int, error)

	// Corridor fetches the four magnitudes in one call.
	Corridor() (types.PriceCorridor, error)

	// IsSettled reports whether the commodity has reached its terminal state.
	IsSettled() (bool, error)

	// MintFromCollateralAmount converts amount of the caller's collateral
	// into matched long/short position pairs.
	MintFromCollateralAmount(amount sdkmath.Int) error

	// RedeemPositions burns amount of matched long/short pairs and returns
	// the corresponding collateral.
	RedeemPositions(amount sdkmath.Int) error

	// SettlePositions finalizes the commodity at the current oracle price.
	SettlePositions() error
}

// Controller routes payouts: Vaults returns the receiving address for a
// given token's proceeds.
type Controller interface {
	Vaults(token types.TokenID) (string, error)
}
