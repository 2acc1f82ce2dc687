/*

This file contains the sentinel errors shared across the strategy. Every
operation detects problems via precondition checks and aborts the whole call;
there is no partial application and no internal retry.

*/

package types

import "errors"

var (
	// ErrUnauthorized is returned when the caller is not the designated
	// controller or governance address for the operation.
	ErrUnauthorized = errors.New("caller is not authorized")

	// ErrWrongState is returned when an operation is invoked in the wrong
	// lifecycle state, e.g. breach handling called twice in one epoch.
	ErrWrongState = errors.New("operation not permitted in current lifecycle state")

	// ErrInvariant is returned on attempts that would violate a protected
	// invariant, e.g. sweeping a managed asset as dust.
	ErrInvariant = errors.New("invariant violation")

	// ErrSlippage is returned when a swap's output falls below the caller's
	// minimum or its resulting price exceeds the caller's maximum.
	ErrSlippage = errors.New("slippage limit exceeded")

	// ErrZeroAmount is returned for zero or negative amount inputs.
	ErrZeroAmount = errors.New("amount must be positive")

	// ErrConfiguration is returned for invalid configuration, e.g. a missing
	// successor strategy on full withdrawal or a zero price range.
	ErrConfiguration = errors.New("invalid configuration")
)
