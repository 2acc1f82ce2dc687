/*

This file contains the strategy core: construction, the deposit allocator
and the weight-recompute/rebind cycle. Lifecycle transitions live in
lifecycle.go, valuation in valuator.go, swap forwarding in swap.go and the
governance surface in setters.go.

Every public operation takes the strategy mutex and runs to completion;
there is no internal concurrency and no partial application. Durable flags
are updated before external calls that could re-enter.

*/

package strategy

import (
	"errors"
	"fmt"
	"sync"

	sdkmath "cosmossdk.io/math"
	"github.com/rs/zerolog"

	"github.com/corridor-network/psm/internal/logger"
	"github.com/corridor-network/psm/internal/pool"
	"github.com/corridor-network/psm/internal/rebind"
	"github.com/corridor-network/psm/internal/types"
	"github.com/corridor-network/psm/internal/vault"
	"github.com/corridor-network/psm/internal/weights"
)

var (
	ErrBreaker      = errors.New("breaker is engaged")
	ErrPartialBind  = errors.New("pool is partially bound")
	ErrVaultQuery   = errors.New("vault query failed")
	ErrPayoutRoute  = errors.New("payout route lookup failed")
	ErrMintFailed   = errors.New("position mint failed")
	ErrRedeemFailed = errors.New("position redemption failed")
)

// Strategy manages the three-asset pool backing one commodity instance.
type Strategy struct {
	mu  sync.Mutex
	log zerolog.Logger

	params types.StrategyParameters
	ids    types.Identities
	unit   sdkmath.Int // fixed-point scale of CollateralPerUnit

	pool       pool.Pool
	vault      vault.Vault
	controller vault.Controller
	tokens     Tokens

	flags     types.LifecycleFlags
	flagStore FlagStore

	gateThreshold sdkmath.Int
}

// Config holds everything needed to construct a Strategy.
type Config struct {
	Params     types.StrategyParameters
	Identities types.Identities
	UnitScale  sdkmath.Int // fixed-point scale of the corridor magnitudes

	Pool       pool.Pool
	Vault      vault.Vault
	Controller vault.Controller
	Tokens     Tokens

	// FlagStore may be nil; the latch then lives in memory only.
	FlagStore FlagStore
	// InitialFlags restores persisted lifecycle flags on restart.
	InitialFlags types.LifecycleFlags

	GateThreshold sdkmath.Int
}

// New creates a Strategy after validating its dependencies.
func New(cfg Config) (*Strategy, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("strategy configuration validation failed: %w", err)
	}

	s := &Strategy{
		log:           logger.GetForComponent("strategy"),
		params:        cfg.Params,
		ids:           cfg.Identities,
		unit:          cfg.UnitScale,
		pool:          cfg.Pool,
		vault:         cfg.Vault,
		controller:    cfg.Controller,
		tokens:        cfg.Tokens,
		flags:         cfg.InitialFlags,
		flagStore:     cfg.FlagStore,
		gateThreshold: cfg.GateThreshold,
	}

	s.log.Info().
		Str("want", s.ids.Want.String()).
		Str("long", s.ids.Long.String()).
		Str("short", s.ids.Short.String()).
		Bool("breachHandled", s.flags.BreachHandled).
		Bool("breaker", s.flags.Breaker).
		Msg("Strategy instance created")

	return s, nil
}

func validateConfig(cfg Config) error {
	if cfg.Pool == nil {
		return fmt.Errorf("%w: pool cannot be nil", types.ErrConfiguration)
	}
	if cfg.Vault == nil {
		return fmt.Errorf("%w: vault cannot be nil", types.ErrConfiguration)
	}
	if cfg.Controller == nil {
		return fmt.Errorf("%w: controller cannot be nil", types.ErrConfiguration)
	}
	if cfg.Tokens == nil {
		return fmt.Errorf("%w: token port cannot be nil", types.ErrConfiguration)
	}
	if cfg.Identities.Want == "" || cfg.Identities.Long == "" || cfg.Identities.Short == "" {
		return fmt.Errorf("%w: token identities cannot be empty", types.ErrConfiguration)
	}
	if cfg.Identities.Governance == "" || cfg.Identities.Controller == "" {
		return fmt.Errorf("%w: governance and controller addresses are required", types.ErrConfiguration)
	}
	if cfg.UnitScale.IsNil() || !cfg.UnitScale.IsPositive() {
		return fmt.Errorf("%w: unit scale must be positive", types.ErrConfiguration)
	}
	if cfg.GateThreshold.IsNil() || cfg.GateThreshold.IsNegative() {
		return fmt.Errorf("%w: gate threshold cannot be negative", types.ErrConfiguration)
	}
	if err := cfg.Params.Validate(); err != nil {
		return err
	}
	return nil
}

// Deposit converts half the strategy's collateral into minted position
// pairs, then recomputes and applies pool weights. If the projected
// long/short balance after minting would stay below the bindable threshold,
// the whole deposit is an explicit no-op: no mint, no bind, no rebind.
func (s *Strategy) Deposit() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.flags.Breaker {
		return errors.Join(types.ErrWrongState, ErrBreaker)
	}
	settled, err := s.vault.IsSettled()
	if err != nil {
		return errors.Join(ErrVaultQuery, err)
	}
	if settled {
		return fmt.Errorf("%w: cannot mint against a settled commodity", types.ErrWrongState)
	}
	return s.depositLocked()
}

func (s *Strategy) depositLocked() error {
	balance, err := s.tokens.BalanceOf(s.ids.Want)
	if err != nil {
		return err
	}
	if balance.IsZero() {
		s.log.Debug().Msg("No collateral to deposit")
		return nil
	}

	// Half is reserved for minting; the rest stays as pool-side collateral.
	wantToVault := balance.QuoRaw(2)
	corridor, err := s.vault.Corridor()
	if err != nil {
		return errors.Join(ErrVaultQuery, err)
	}
	if err := corridor.Validate(); err != nil {
		return errors.Join(types.ErrConfiguration, err)
	}
	expectedMint := wantToVault.Mul(s.unit).Quo(corridor.CollateralPerUnit)

	held, err := s.ownBalances()
	if err != nil {
		return err
	}
	bound, err := s.poolBalances()
	if err != nil {
		return err
	}

	minBindable := sdkmath.NewInt(s.params.MinBindableUnits)
	projectedLong := held.Long.Add(bound.Long).Add(expectedMint)
	projectedShort := held.Short.Add(bound.Short).Add(expectedMint)
	if projectedLong.LT(minBindable) || projectedShort.LT(minBindable) {
		s.log.Info().
			Str("projectedLong", projectedLong.String()).
			Str("projectedShort", projectedShort.String()).
			Str("minBindable", minBindable.String()).
			Msg("Deposit skipped: projected position balance below bindable threshold")
		return nil
	}

	if wantToVault.IsPositive() {
		if err := s.vault.MintFromCollateralAmount(wantToVault); err != nil {
			return errors.Join(ErrMintFailed, err)
		}
	}

	_, err = s.rebalanceLocked()
	return err
}

// Rebalance recomputes weights from the live corridor and combined balances
// and applies them to the pool. It is the entry point for oracle-driven
// price updates.
func (s *Strategy) Rebalance() (types.Weights, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rebalanceLocked()
}

func (s *Strategy) rebalanceLocked() (types.Weights, error) {
	corridor, err := s.vault.Corridor()
	if err != nil {
		return types.Weights{}, errors.Join(ErrVaultQuery, err)
	}

	combined, err := s.combinedBalances()
	if err != nil {
		return types.Weights{}, err
	}

	next, err := weights.ComputeWeights(combined, corridor, s.params)
	if err != nil {
		return types.Weights{}, err
	}

	boundCount := 0
	for _, t := range []types.TokenID{s.ids.Short, s.ids.Long, s.ids.Want} {
		if s.pool.IsBound(t) {
			boundCount++
		}
	}

	switch boundCount {
	case 3:
		current, err := s.currentWeights()
		if err != nil {
			return types.Weights{}, err
		}
		if err := rebind.Apply(s.pool, current, next, combined, s.ids); err != nil {
			return types.Weights{}, err
		}
	case 0:
		if err := rebind.BindAll(s.pool, combined, next, s.ids); err != nil {
			return types.Weights{}, err
		}
	default:
		return types.Weights{}, fmt.Errorf("%w: %d of 3 tokens bound", errors.Join(types.ErrInvariant, ErrPartialBind), boundCount)
	}

	s.log.Info().
		Str("short", next.Short.String()).
		Str("long", next.Long.String()).
		Str("collateral", next.Collateral.String()).
		Bool("dampened", weights.InBoundaryBand(corridor, s.params)).
		Msg("Pool weights applied")
	return next, nil
}

// ownBalances reads the strategy's own holdings of the three tokens.
func (s *Strategy) ownBalances() (types.Balances, error) {
	short, err := s.tokens.BalanceOf(s.ids.Short)
	if err != nil {
		return types.Balances{}, err
	}
	long, err := s.tokens.BalanceOf(s.ids.Long)
	if err != nil {
		return types.Balances{}, err
	}
	collateral, err := s.tokens.BalanceOf(s.ids.Want)
	if err != nil {
		return types.Balances{}, err
	}
	return types.Balances{Short: short, Long: long, Collateral: collateral}, nil
}

// poolBalances reads the pool's holdings, zero for unbound tokens.
func (s *Strategy) poolBalances() (types.Balances, error) {
	out := types.ZeroBalances()
	read := func(t types.TokenID) (sdkmath.Int, error) {
		if !s.pool.IsBound(t) {
			return sdkmath.ZeroInt(), nil
		}
		return s.pool.GetBalance(t)
	}
	var err error
	if out.Short, err = read(s.ids.Short); err != nil {
		return types.Balances{}, err
	}
	if out.Long, err = read(s.ids.Long); err != nil {
		return types.Balances{}, err
	}
	if out.Collateral, err = read(s.ids.Want); err != nil {
		return types.Balances{}, err
	}
	return out, nil
}

// combinedBalances is the union of strategy and pool holdings, the basis for
// weight computation and for the balances handed to bind/rebind.
func (s *Strategy) combinedBalances() (types.Balances, error) {
	held, err := s.ownBalances()
	if err != nil {
		return types.Balances{}, err
	}
	bound, err := s.poolBalances()
	if err != nil {
		return types.Balances{}, err
	}
	return held.Add(bound), nil
}

func (s *Strategy) currentWeights() (types.Weights, error) {
	short, err := s.pool.GetDenormalizedWeight(s.ids.Short)
	if err != nil {
		return types.Weights{}, err
	}
	long, err := s.pool.GetDenormalizedWeight(s.ids.Long)
	if err != nil {
		return types.Weights{}, err
	}
	collateral, err := s.pool.GetDenormalizedWeight(s.ids.Want)
	if err != nil {
		return types.Weights{}, err
	}
	return types.Weights{Short: short, Long: long, Collateral: collateral}, nil
}

// persistFlags writes the lifecycle flags through the store, if configured.
func (s *Strategy) persistFlags() error {
	if s.flagStore == nil {
		return nil
	}
	return s.flagStore.SaveFlags(s.flags)
}

// Balances returns the union of strategy and pool holdings.
func (s *Strategy) Balances() (types.Balances, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.combinedBalances()
}

// Flags returns a copy of the current lifecycle flags.
func (s *Strategy) Flags() types.LifecycleFlags {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flags
}

// State derives the lifecycle state from the vault and the latch.
func (s *Strategy) State() (types.LifecycleState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	settled, err := s.vault.IsSettled()
	if err != nil {
		return "", errors.Join(ErrVaultQuery, err)
	}
	return types.DeriveState(settled, s.flags), nil
}

// Identities returns the configured address set.
func (s *Strategy) Identities() types.Identities {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ids
}
