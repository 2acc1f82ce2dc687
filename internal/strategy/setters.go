/*

This file contains the governance-gated configuration surface. Simple
authorization-checked mutators, no algorithmic content.

*/

package strategy

import (
	"fmt"

	sdkmath "cosmossdk.io/math"

	"github.com/corridor-network/psm/internal/types"
)

func (s *Strategy) requireGovernance(caller string) error {
	if caller != s.ids.Governance {
		return fmt.Errorf("%w: requires governance", types.ErrUnauthorized)
	}
	return nil
}

// SetGovernance hands governance to a new address.
func (s *Strategy) SetGovernance(caller, governance string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireGovernance(caller); err != nil {
		return err
	}
	if governance == "" {
		return fmt.Errorf("%w: governance cannot be empty", types.ErrInvariant)
	}
	s.ids.Governance = governance
	s.log.Info().Str("governance", governance).Msg("Governance updated")
	return nil
}

// SetController updates the controller address.
func (s *Strategy) SetController(caller, controller string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireGovernance(caller); err != nil {
		return err
	}
	if controller == "" {
		return fmt.Errorf("%w: controller cannot be empty", types.ErrInvariant)
	}
	s.ids.Controller = controller
	s.log.Info().Str("controller", controller).Msg("Controller updated")
	return nil
}

// SetSuccessor designates the receiving strategy for WithdrawAll.
func (s *Strategy) SetSuccessor(caller, successor string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireGovernance(caller); err != nil {
		return err
	}
	s.ids.Successor = successor
	s.log.Info().Str("successor", successor).Msg("Successor strategy updated")
	return nil
}

// SetBreaker flips the manual kill-switch.
func (s *Strategy) SetBreaker(caller string, engaged bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireGovernance(caller); err != nil {
		return err
	}
	s.flags.Breaker = engaged
	if err := s.persistFlags(); err != nil {
		return err
	}
	s.log.Warn().Bool("breaker", engaged).Msg("Breaker updated")
	return nil
}

// SetGate updates the swap access gating token and its minimum balance.
func (s *Strategy) SetGate(caller string, token types.TokenID, threshold sdkmath.Int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireGovernance(caller); err != nil {
		return err
	}
	if threshold.IsNil() || threshold.IsNegative() {
		return fmt.Errorf("%w: gate threshold cannot be negative", types.ErrConfiguration)
	}
	s.ids.GateToken = token
	s.gateThreshold = threshold
	s.log.Info().Str("gateToken", token.String()).Str("threshold", threshold.String()).Msg("Swap gate updated")
	return nil
}

// SetPoolSwapFee forwards a swap fee update to the pool.
func (s *Strategy) SetPoolSwapFee(caller string, fee sdkmath.LegacyDec) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireGovernance(caller); err != nil {
		return err
	}
	return s.pool.SetSwapFee(fee)
}

// SetPoolController forwards a pool controller update.
func (s *Strategy) SetPoolController(caller, controller string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireGovernance(caller); err != nil {
		return err
	}
	return s.pool.SetController(controller)
}

// SetPoolPublicSwap toggles public swapping on the pool.
func (s *Strategy) SetPoolPublicSwap(caller string, public bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireGovernance(caller); err != nil {
		return err
	}
	return s.pool.SetPublicSwap(public)
}
