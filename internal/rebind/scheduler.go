/*

This file contains the rebind scheduler: it orders the three single-token
weight updates so the pool's running total-weight bound is never violated
mid-sequence. Weight decreases must land before increases, otherwise an
increase applied against the old total can transiently push the sum past the
pool's maximum and the whole operation bounces.

*/

package rebind

import (
	"fmt"

	sdkmath "cosmossdk.io/math"
	"github.com/rs/zerolog"

	"github.com/corridor-network/psm/internal/logger"
	"github.com/corridor-network/psm/internal/pool"
	"github.com/corridor-network/psm/internal/types"
)

type update struct {
	token   types.TokenID
	balance sdkmath.Int
	weight  sdkmath.Int
	delta   sdkmath.Int
}

// Apply issues the three weight updates in non-decreasing delta order.
// A rejection from the pool aborts the whole operation; no retries and no
// partial application are attempted here; the host call's atomicity is
// expected to roll back anything already applied.
func Apply(p pool.Pool, current, next types.Weights, balances types.Balances, ids types.Identities) error {
	log := logger.GetForComponent("rebind_scheduler")

	// Canonical order {short, long, collateral}; the sort below is stable,
	// so equal deltas keep this relative order.
	updates := [3]update{
		{token: ids.Short, balance: balances.Short, weight: next.Short, delta: next.Short.Sub(current.Short)},
		{token: ids.Long, balance: balances.Long, weight: next.Long, delta: next.Long.Sub(current.Long)},
		{token: ids.Want, balance: balances.Collateral, weight: next.Collateral, delta: next.Collateral.Sub(current.Collateral)},
	}

	sortByDelta(&updates)

	for _, u := range updates {
		logUpdate(log, u)
		if err := p.Rebind(u.token, u.balance, u.weight); err != nil {
			return fmt.Errorf("rebind %s aborted: %w", u.token, err)
		}
	}
	return nil
}

// BindAll performs the very first binding of the three tokens, in canonical
// order. No delta ordering is needed when the pool holds none of them yet.
func BindAll(p pool.Pool, balances types.Balances, weights types.Weights, ids types.Identities) error {
	log := logger.GetForComponent("rebind_scheduler")

	updates := [3]update{
		{token: ids.Short, balance: balances.Short, weight: weights.Short},
		{token: ids.Long, balance: balances.Long, weight: weights.Long},
		{token: ids.Want, balance: balances.Collateral, weight: weights.Collateral},
	}
	for _, u := range updates {
		log.Debug().Str("token", u.token.String()).
			Str("balance", u.balance.String()).
			Str("weight", u.weight.String()).
			Msg("Binding token")
		if err := p.Bind(u.token, u.balance, u.weight); err != nil {
			return fmt.Errorf("bind %s aborted: %w", u.token, err)
		}
	}
	return nil
}

// sortByDelta is a fixed three-element sorting network: three pairwise
// compare-and-swap steps, swapping only on strict inequality so ties
// preserve the original relative order.
func sortByDelta(u *[3]update) {
	if u[1].delta.LT(u[0].delta) {
		u[0], u[1] = u[1], u[0]
	}
	if u[2].delta.LT(u[1].delta) {
		u[1], u[2] = u[2], u[1]
	}
	if u[1].delta.LT(u[0].delta) {
		u[0], u[1] = u[1], u[0]
	}
}

func logUpdate(log zerolog.Logger, u update) {
	log.Debug().Str("token", u.token.String()).
		Str("balance", u.balance.String()).
		Str("weight", u.weight.String()).
		Str("delta", u.delta.String()).
		Msg("Rebinding token")
}
