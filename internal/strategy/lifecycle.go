/*

This file contains the lifecycle state machine: the one-shot breach handler,
the commodity migration that resets it, and the withdraw family. The
BreachHandled latch is set and persisted before any external call so a
re-entrant callback cannot run breach handling twice.

*/

package strategy

import (
	"errors"
	"fmt"

	sdkmath "cosmossdk.io/math"

	"github.com/corridor-network/psm/internal/types"
	"github.com/corridor-network/psm/internal/vault"
)

// HandleBreach runs the one-shot breach sequence: unbind every token from
// the pool, then redeem the smaller of the strategy's long/short holdings.
// The larger side is left behind as residual dust. Requires a settled vault
// and an unhandled latch.
func (s *Strategy) HandleBreach() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.flags.Breaker {
		return errors.Join(types.ErrWrongState, ErrBreaker)
	}
	settled, err := s.vault.IsSettled()
	if err != nil {
		return errors.Join(ErrVaultQuery, err)
	}
	if !settled {
		return fmt.Errorf("%w: vault is not settled", types.ErrWrongState)
	}
	return s.handleBreachLocked()
}

func (s *Strategy) handleBreachLocked() error {
	if s.flags.BreachHandled {
		return fmt.Errorf("%w: breach already handled this commodity epoch", types.ErrWrongState)
	}

	// Latch before any external call; a failed persist leaves nothing done.
	s.flags.BreachHandled = true
	if err := s.persistFlags(); err != nil {
		s.flags.BreachHandled = false
		return err
	}

	if err := s.unbindAllLocked(); err != nil {
		return err
	}
	if err := s.redeemMatchedLocked(); err != nil {
		return err
	}

	s.log.Info().Msg("Breach handled: pool unbound, matched positions redeemed")
	return nil
}

// UpdateCommodityAfterBreach migrates the strategy onto a new commodity
// instance: new vault, new position tokens, latch cleared, and the deposit
// allocator re-run so the pool is rebuilt under the new corridor. Requires
// governance and a settled vault (handled or not).
func (s *Strategy) UpdateCommodityAfterBreach(caller string, newVault vault.Vault, newLong, newShort types.TokenID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if caller != s.ids.Governance {
		return fmt.Errorf("%w: commodity migration requires governance", types.ErrUnauthorized)
	}
	if newVault == nil || newLong == "" || newShort == "" {
		return fmt.Errorf("%w: migration target is incomplete", types.ErrConfiguration)
	}
	settled, err := s.vault.IsSettled()
	if err != nil {
		return errors.Join(ErrVaultQuery, err)
	}
	if !settled {
		return fmt.Errorf("%w: cannot migrate an active commodity", types.ErrWrongState)
	}

	if !s.flags.BreachHandled {
		combined, err := s.combinedBalances()
		if err != nil {
			return err
		}
		if combined.Long.IsPositive() || combined.Short.IsPositive() {
			if err := s.handleBreachLocked(); err != nil {
				return err
			}
		}
	}

	s.vault = newVault
	s.ids.Long = newLong
	s.ids.Short = newShort
	s.flags.BreachHandled = false
	if err := s.persistFlags(); err != nil {
		return err
	}

	s.log.Info().
		Str("long", newLong.String()).
		Str("short", newShort.String()).
		Msg("Commodity migrated, rebuilding pool under new corridor")

	return s.depositLocked()
}

// Withdraw pays out amount of collateral to the controller's receiving
// address. Against a settled vault it first runs breach handling if still
// pending; against an active vault it performs a full unbind/redeem/payout
// cycle and re-runs the deposit allocator.
func (s *Strategy) Withdraw(caller string, amount sdkmath.Int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if caller != s.ids.Controller {
		return fmt.Errorf("%w: withdraw requires the controller", types.ErrUnauthorized)
	}
	if s.flags.Breaker {
		return errors.Join(types.ErrWrongState, ErrBreaker)
	}
	if amount.IsNil() || !amount.IsPositive() {
		return types.ErrZeroAmount
	}

	receiver, err := s.controller.Vaults(s.ids.Want)
	if err != nil {
		return errors.Join(ErrPayoutRoute, err)
	}

	settled, err := s.vault.IsSettled()
	if err != nil {
		return errors.Join(ErrVaultQuery, err)
	}

	if settled {
		if !s.flags.BreachHandled {
			if err := s.handleBreachLocked(); err != nil {
				return err
			}
		}
		return s.tokens.Transfer(receiver, s.ids.Want, amount)
	}

	if err := s.unbindAllLocked(); err != nil {
		return err
	}
	if err := s.redeemMatchedLocked(); err != nil {
		return err
	}
	if err := s.tokens.Transfer(receiver, s.ids.Want, amount); err != nil {
		return err
	}
	return s.depositLocked()
}

// WithdrawDust sweeps the strategy's full balance of an unrelated token to
// the collateral payout address. The three managed assets are protected.
func (s *Strategy) WithdrawDust(caller string, token types.TokenID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if caller != s.ids.Controller {
		return fmt.Errorf("%w: dust sweep requires the controller", types.ErrUnauthorized)
	}
	if s.ids.ProtectedAsset(token) {
		return fmt.Errorf("%w: %s is a protected asset", types.ErrInvariant, token)
	}

	balance, err := s.tokens.BalanceOf(token)
	if err != nil {
		return err
	}
	if balance.IsZero() {
		return nil
	}

	receiver, err := s.controller.Vaults(s.ids.Want)
	if err != nil {
		return errors.Join(ErrPayoutRoute, err)
	}
	return s.tokens.Transfer(receiver, token, balance)
}

// WithdrawAll unbinds everything, redeems matched pairs, and hands all
// collateral plus any residual long/short dust to the configured successor
// strategy.
func (s *Strategy) WithdrawAll(caller string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if caller != s.ids.Controller {
		return fmt.Errorf("%w: full withdrawal requires the controller", types.ErrUnauthorized)
	}
	if s.ids.Successor == "" {
		return fmt.Errorf("%w: no successor strategy configured", types.ErrConfiguration)
	}

	if err := s.unbindAllLocked(); err != nil {
		return err
	}
	if err := s.redeemMatchedLocked(); err != nil {
		return err
	}

	held, err := s.ownBalances()
	if err != nil {
		return err
	}
	for token, balance := range map[types.TokenID]sdkmath.Int{
		s.ids.Want:  held.Collateral,
		s.ids.Long:  held.Long,
		s.ids.Short: held.Short,
	} {
		if balance.IsZero() {
			continue
		}
		if err := s.tokens.Transfer(s.ids.Successor, token, balance); err != nil {
			return err
		}
	}

	s.log.Info().Str("successor", s.ids.Successor).Msg("Full withdrawal to successor complete")
	return nil
}

// unbindAllLocked removes every bound token from the pool, returning their
// balances to the strategy.
func (s *Strategy) unbindAllLocked() error {
	for _, t := range []types.TokenID{s.ids.Short, s.ids.Long, s.ids.Want} {
		if !s.pool.IsBound(t) {
			continue
		}
		if err := s.pool.Unbind(t); err != nil {
			return err
		}
	}
	return nil
}

// redeemMatchedLocked redeems the smaller of the strategy's long/short
// holdings; the unmatched remainder stays as dust.
func (s *Strategy) redeemMatchedLocked() error {
	held, err := s.ownBalances()
	if err != nil {
		return err
	}
	matched := held.Long
	if held.Short.LT(matched) {
		matched = held.Short
	}
	if !matched.IsPositive() {
		return nil
	}
	if err := s.vault.RedeemPositions(matched); err != nil {
		return errors.Join(ErrRedeemFailed, err)
	}
	return nil
}
