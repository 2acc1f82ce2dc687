/*

This file contains the lifecycle flags and the derived lifecycle state.
The flags are the only durable state the strategy owns; everything else is
read fresh from the pool and vault on every call.

*/

package types

// LifecycleFlags persist across calls and restarts.
type LifecycleFlags struct {
	// BreachHandled is a one-shot latch: once true, breach handling cannot
	// run again until a commodity migration explicitly resets it.
	BreachHandled bool `json:"breach_handled"`
	// Breaker is a manual kill-switch blocking deposit/withdraw/swap. It is
	// orthogonal to the settlement state.
	Breaker bool `json:"breaker"`
}

// LifecycleState is derived from the vault's settlement status and the
// BreachHandled latch.
type LifecycleState string

const (
	StateActive           LifecycleState = "active"
	StateSettledUnhandled LifecycleState = "settled_unhandled"
	StateSettledHandled   LifecycleState = "settled_handled"
)

// DeriveState combines the vault settlement report with the latch.
func DeriveState(settled bool, flags LifecycleFlags) LifecycleState {
	if !settled {
		return StateActive
	}
	if flags.BreachHandled {
		return StateSettledHandled
	}
	return StateSettledUnhandled
}
