/*

This file contains the rebalance snapshot recorded after every engine cycle.
Snapshots are persisted for auditability and surfaced through the web API.

*/

package types

import "time"

// RebalanceSnapshot captures the inputs and outcome of one rebalancing cycle.
type RebalanceSnapshot struct {
	CycleNumber int       `json:"cycle_number"`
	Timestamp   time.Time `json:"timestamp"`
	ParamsID    *int64    `json:"params_id,omitempty"`

	Corridor PriceCorridor  `json:"corridor"`
	Balances Balances       `json:"balances"` // combined strategy+pool holdings
	Weights  Weights        `json:"weights"`
	Dampened bool           `json:"dampened"` // boundary-dampening branch taken
	State    LifecycleState `json:"state"`

	// ValuationWant is the strategy's total reported value in collateral
	// base units, stringified to survive JSON round trips losslessly.
	ValuationWant string `json:"valuation_want"`

	// Applied is false when the cycle was a deliberate no-op (corridor
	// unchanged, lifecycle gate closed, or below the bindable threshold).
	Applied bool   `json:"applied"`
	Note    string `json:"note,omitempty"`
}
