package strategy

import (
	sdkmath "cosmossdk.io/math"

	"github.com/corridor-network/psm/internal/types"
)

// Tokens is the strategy's window onto the host ledger's token balances:
// its own holdings, other holders' balances (for the swap access gate), and
// outbound transfers for payouts.
type Tokens interface {
	BalanceOf(token types.TokenID) (sdkmath.Int, error)
	HolderBalance(holder string, token types.TokenID) (sdkmath.Int, error)
	Transfer(to string, token types.TokenID, amount sdkmath.Int) error
}

// FlagStore persists the lifecycle flags so the breach latch survives
// restarts. A nil store disables persistence (tests, dry runs).
type FlagStore interface {
	SaveFlags(flags types.LifecycleFlags) error
}
