// Package metrics exposes the engine's operational counters and gauges for
// Prometheus scraping via the web server's /metrics endpoint.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// CyclesTotal counts rebalance cycles by outcome.
var CyclesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "psm",
		Subsystem: "engine",
		Name:      "cycles_total",
		Help:      "Rebalance cycles run, partitioned by outcome",
	},
	[]string{"outcome"}, // applied, skipped, failed
)

// RebindsTotal counts individual pool weight updates issued.
var RebindsTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: "psm",
		Subsystem: "engine",
		Name:      "rebinds_total",
		Help:      "Pool rebind operations issued",
	},
)

// TokenWeight reports the last computed denormalized weight per token,
// scaled down to weight units.
var TokenWeight = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: "psm",
		Subsystem: "pool",
		Name:      "token_weight",
		Help:      "Last computed denormalized weight per token, in weight units",
	},
	[]string{"token"},
)

// StrategyValuation reports the strategy's total value in collateral base units.
var StrategyValuation = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: "psm",
		Subsystem: "strategy",
		Name:      "valuation_collateral_units",
		Help:      "Total strategy value in collateral base units",
	},
)

// LifecycleState reports the derived lifecycle state as a one-hot gauge.
var LifecycleState = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: "psm",
		Subsystem: "strategy",
		Name:      "lifecycle_state",
		Help:      "Derived lifecycle state (1 for the current state, 0 otherwise)",
	},
	[]string{"state"},
)

// CorridorSpot reports the last observed spot price from the vault, scaled
// to price units.
var CorridorSpot = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: "psm",
		Subsystem: "corridor",
		Name:      "spot_price",
		Help:      "Last observed corridor spot price",
	},
)

// ErrorsTotal counts engine errors by component.
var ErrorsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "psm",
		Subsystem: "engine",
		Name:      "errors_total",
		Help:      "Errors encountered, partitioned by component",
	},
	[]string{"component"},
)
