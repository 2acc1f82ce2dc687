/*

This file contains the token identity types and the configured address set
for the strategy. Identities are configuration, not algorithmic state; they
are mutated only through governance-gated setters.

*/

package types

// TokenID is a host-ledger handle for a token (an address on most ledgers).
type TokenID string

func (t TokenID) String() string {
	return string(t)
}

// Identities holds every address the strategy is configured with.
type Identities struct {
	Want  TokenID `json:"want"`  // collateral token
	Long  TokenID `json:"long"`  // long position token
	Short TokenID `json:"short"` // short position token

	Governance string `json:"governance"`
	Controller string `json:"controller"`
	Successor  string `json:"successor,omitempty"` // receiver for WithdrawAll

	GateToken TokenID `json:"gate_token"` // swap access gating token
}

// ProtectedAsset reports whether token is one of the three assets the
// strategy manages. Protected assets may never be swept as dust.
func (ids Identities) ProtectedAsset(token TokenID) bool {
	return token == ids.Want || token == ids.Long || token == ids.Short
}
