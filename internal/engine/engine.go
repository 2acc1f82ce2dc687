// Package engine drives the periodic rebalancing cycle: it watches the
// vault's price corridor, asks the strategy to recompute pool weights when
// the corridor moves, and records a snapshot of every cycle.
package engine

import (
	"context"
	"fmt"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/corridor-network/psm/internal/logger"
	"github.com/corridor-network/psm/internal/metrics"
	"github.com/corridor-network/psm/internal/state"
	"github.com/corridor-network/psm/internal/strategy"
	"github.com/corridor-network/psm/internal/types"
	"github.com/corridor-network/psm/internal/utils"
	"github.com/corridor-network/psm/internal/vault"
	"github.com/corridor-network/psm/internal/weights"
)

const (
	DefaultConfigName    = "default_psm_strategy"
	DefaultConfigVersion = 1
)

// Engine owns the cycle loop. It is not safe for concurrent RunCycle calls;
// the loop is the only caller.
type Engine struct {
	logger   zerolog.Logger
	strategy *strategy.Strategy
	vault    vault.Vault
	params   *types.StrategyParameters

	configName string
	persist    bool

	cycleCount   int
	lastCorridor *types.PriceCorridor
}

// Config holds the configuration for creating a new Engine instance.
type Config struct {
	Strategy *strategy.Strategy
	Vault    vault.Vault
	Params   *types.StrategyParameters

	ConfigName string
	// Persist enables snapshot and cycle-counter writes through the state
	// package. Disabled in tests and database-less runs.
	Persist bool
}

// NewEngine creates a new Engine instance with dependency injection.
func NewEngine(cfg Config) (*Engine, error) {
	if err := validateEngineConfig(cfg); err != nil {
		return nil, fmt.Errorf("engine configuration validation failed: %w", err)
	}

	e := &Engine{
		logger:     logger.GetForComponent("engine"),
		strategy:   cfg.Strategy,
		vault:      cfg.Vault,
		params:     cfg.Params,
		configName: cfg.ConfigName,
		persist:    cfg.Persist,
	}

	e.logger.Info().
		Str("configName", e.configName).
		Bool("persist", e.persist).
		Msg("Engine instance created")

	return e, nil
}

func validateEngineConfig(cfg Config) error {
	if cfg.Strategy == nil {
		return fmt.Errorf("strategy cannot be nil")
	}
	if cfg.Vault == nil {
		return fmt.Errorf("vault cannot be nil")
	}
	if cfg.Params == nil {
		return fmt.Errorf("strategy parameters cannot be nil")
	}
	if cfg.ConfigName == "" {
		return fmt.Errorf("config name cannot be empty")
	}
	return nil
}

// RunLoop starts the main cycle loop with the specified interval.
func (e *Engine) RunLoop(ctx context.Context, interval time.Duration) {
	e.logger.Info().
		Dur("interval", interval).
		Msg("Starting engine main loop")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	e.RunCycle()

	for {
		select {
		case <-ctx.Done():
			e.logger.Info().Msg("Engine loop stopped due to context cancellation")
			return
		case <-ticker.C:
			e.RunCycle()
		}
	}
}

// RunCycle executes one complete rebalancing cycle.
func (e *Engine) RunCycle() {
	cycleStartTime := time.Now()
	e.cycleCount++

	cycleID := uuid.New().String()
	cycleLogger := e.logger.With().Str("cycle_id", cycleID).Logger()
	cycleLogger.Info().Msg("--- Starting rebalance cycle ---")

	corridor, err := e.vault.Corridor()
	if err != nil {
		cycleLogger.Error().Err(err).Msg("Cycle aborted: failed to read corridor from vault")
		metrics.ErrorsTotal.WithLabelValues("vault").Inc()
		metrics.CyclesTotal.WithLabelValues("failed").Inc()
		return
	}
	e.observeCorridor(corridor)

	snapshot := types.RebalanceSnapshot{
		CycleNumber: e.nextCycleNumber(cycleLogger),
		Timestamp:   cycleStartTime,
		ParamsID:    e.activeParamsID(cycleLogger),
		Corridor:    corridor,
		Balances:    types.ZeroBalances(),
		Weights:     types.ZeroWeights(),
	}

	lifecycleState, err := e.strategy.State()
	if err != nil {
		cycleLogger.Error().Err(err).Msg("Cycle aborted: failed to derive lifecycle state")
		metrics.ErrorsTotal.WithLabelValues("strategy").Inc()
		metrics.CyclesTotal.WithLabelValues("failed").Inc()
		return
	}
	snapshot.State = lifecycleState
	e.observeState(lifecycleState)

	if lifecycleState != types.StateActive {
		cycleLogger.Info().
			Str("state", string(lifecycleState)).
			Msg("Lifecycle gate closed; skipping rebalance")
		snapshot.Note = "lifecycle gate closed"
		e.finishCycle(snapshot, "skipped", cycleStartTime, cycleLogger)
		return
	}

	if e.lastCorridor != nil && e.lastCorridor.Equal(corridor) {
		cycleLogger.Info().Msg("Corridor unchanged since last cycle; skipping rebalance")
		snapshot.Note = "corridor unchanged"
		e.finishCycle(snapshot, "skipped", cycleStartTime, cycleLogger)
		return
	}

	applied, err := e.strategy.Rebalance()
	if err != nil {
		cycleLogger.Error().Err(err).Msg("Cycle failed: rebalance rejected")
		metrics.ErrorsTotal.WithLabelValues("strategy").Inc()
		snapshot.Note = err.Error()
		e.finishCycle(snapshot, "failed", cycleStartTime, cycleLogger)
		return
	}
	e.lastCorridor = &corridor

	snapshot.Weights = applied
	snapshot.Dampened = weights.InBoundaryBand(corridor, *e.params)
	snapshot.Applied = true
	metrics.RebindsTotal.Add(3)
	e.observeWeights(applied)

	e.finishCycle(snapshot, "applied", cycleStartTime, cycleLogger)
}

// finishCycle records valuation and persists the snapshot regardless of the
// cycle outcome, so gaps in the history are visible.
func (e *Engine) finishCycle(snapshot types.RebalanceSnapshot, outcome string, start time.Time, cycleLogger zerolog.Logger) {
	if balances, err := e.strategy.Balances(); err == nil {
		snapshot.Balances = balances
	} else {
		cycleLogger.Warn().Err(err).Msg("Failed to read combined balances for snapshot")
	}

	valuation, err := e.strategy.BalanceOf()
	if err != nil {
		cycleLogger.Warn().Err(err).Msg("Failed to value strategy holdings for snapshot")
		metrics.ErrorsTotal.WithLabelValues("valuator").Inc()
		snapshot.ValuationWant = "0"
	} else {
		snapshot.ValuationWant = valuation.String()
		if f, convErr := utils.SDKIntToFloat64(valuation, 0); convErr == nil {
			metrics.StrategyValuation.Set(f)
		}
	}

	e.saveSnapshot(snapshot, cycleLogger)
	metrics.CyclesTotal.WithLabelValues(outcome).Inc()

	cycleLogger.Info().
		Str("outcome", outcome).
		Dur("duration", time.Since(start)).
		Msg("--- Rebalance cycle complete ---")
}

func (e *Engine) nextCycleNumber(cycleLogger zerolog.Logger) int {
	if !e.persist {
		return e.cycleCount
	}
	n, err := state.IncrementCycleNumber()
	if err != nil {
		cycleLogger.Warn().Err(err).Msg("Failed to increment persistent cycle counter; using in-memory count")
		return e.cycleCount
	}
	return n
}

func (e *Engine) activeParamsID(cycleLogger zerolog.Logger) *int64 {
	if !e.persist {
		return nil
	}
	id, err := state.GetActiveStrategyParametersID(e.configName)
	if err != nil {
		cycleLogger.Warn().Err(err).Msg("Failed to resolve active parameters id")
		return nil
	}
	return id
}

// saveSnapshot is best-effort: persistence failures never abort the loop.
func (e *Engine) saveSnapshot(snapshot types.RebalanceSnapshot, cycleLogger zerolog.Logger) {
	if !e.persist {
		return
	}
	if _, err := state.SaveRebalanceSnapshot(snapshot); err != nil {
		cycleLogger.Error().Err(err).Msg("Failed to persist rebalance snapshot")
		metrics.ErrorsTotal.WithLabelValues("state").Inc()
	}
}

func (e *Engine) observeCorridor(corridor types.PriceCorridor) {
	if f, err := utils.SDKIntToFloat64(corridor.Spot, 0); err == nil {
		metrics.CorridorSpot.Set(f)
	}
}

// observeWeights reports weights scaled down to weight units (10^18 = 1).
func (e *Engine) observeWeights(w types.Weights) {
	ids := e.strategy.Identities()
	report := func(token types.TokenID, weight sdkmath.Int) {
		if f, err := utils.SDKIntToFloat64(weight, 18); err == nil {
			metrics.TokenWeight.WithLabelValues(string(token)).Set(f)
		}
	}
	report(ids.Short, w.Short)
	report(ids.Long, w.Long)
	report(ids.Want, w.Collateral)
}

func (e *Engine) observeState(s types.LifecycleState) {
	for _, candidate := range []types.LifecycleState{
		types.StateActive, types.StateSettledUnhandled, types.StateSettledHandled,
	} {
		v := 0.0
		if candidate == s {
			v = 1.0
		}
		metrics.LifecycleState.WithLabelValues(string(candidate)).Set(v)
	}
}
