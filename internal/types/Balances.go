/*

This file contains the balance and weight triples shared by the weight
engine, the rebind scheduler and the strategy. The triple order is always
{short, long, collateral}.

*/

package types

import (
	sdkmath "cosmossdk.io/math"
)

// Balances is a short/long/collateral token balance triple. Depending on
// context it holds the strategy's own balances, the pool's balances, or the
// union of both (the basis for weight computation when minting/binding).
type Balances struct {
	Short      sdkmath.Int `json:"short"`
	Long       sdkmath.Int `json:"long"`
	Collateral sdkmath.Int `json:"collateral"`
}

// ZeroBalances returns a triple of zero amounts.
func ZeroBalances() Balances {
	return Balances{Short: sdkmath.ZeroInt(), Long: sdkmath.ZeroInt(), Collateral: sdkmath.ZeroInt()}
}

// Add returns the element-wise sum of two triples.
func (b Balances) Add(o Balances) Balances {
	return Balances{
		Short:      b.Short.Add(o.Short),
		Long:       b.Long.Add(o.Long),
		Collateral: b.Collateral.Add(o.Collateral),
	}
}

// AllZero reports whether every balance in the triple is zero.
func (b Balances) AllZero() bool {
	return b.Short.IsZero() && b.Long.IsZero() && b.Collateral.IsZero()
}

// Weights is a denormalized pool weight triple in the same order as
// Balances. One full weight unit is 10^18.
type Weights struct {
	Short      sdkmath.Int `json:"short"`
	Long       sdkmath.Int `json:"long"`
	Collateral sdkmath.Int `json:"collateral"`
}

// ZeroWeights returns a triple of zero weights.
func ZeroWeights() Weights {
	return Weights{Short: sdkmath.ZeroInt(), Long: sdkmath.ZeroInt(), Collateral: sdkmath.ZeroInt()}
}

// Total returns the sum of the three denormalized weights.
func (w Weights) Total() sdkmath.Int {
	return w.Short.Add(w.Long).Add(w.Collateral)
}
