// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the engine.
type Metrics struct {
	// Tick metrics
	TicksTotal          prometheus.Counter
	TickErrors          prometheus.Counter
	TickDuration        prometheus.Histogram
	StrategiesEvaluated prometheus.Counter
	StrategyEvalErrors  *prometheus.CounterVec

	// Execution metrics
	ExecutionsAppended *prometheus.CounterVec
	StrategiesUpdated  prometheus.Counter
	AutoDeactivations  prometheus.Counter

	// Store metrics
	StoreLoadErrors prometheus.Counter
	StoreSaveErrors prometheus.Counter

	// Feed metrics
	CurrentRiskScore *prometheus.GaugeVec
	FeedStaleReads   *prometheus.CounterVec
	FeedErrors       *prometheus.CounterVec

	// Health metrics
	LastSuccessfulTick prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "cycle_strategy_engine"
	}

	return &Metrics{
		TicksTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "ticks_total",
			Help:      "Total number of evaluation ticks started",
		}),
		TickErrors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "tick_errors_total",
			Help:      "Total number of ticks that failed before completion",
		}),
		TickDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "tick_duration_seconds",
			Help:      "Duration of evaluation ticks",
			Buckets:   prometheus.DefBuckets,
		}),
		StrategiesEvaluated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "strategies_evaluated_total",
			Help:      "Total number of per-strategy evaluations",
		}),
		StrategyEvalErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "strategy_eval_errors_total",
			Help:      "Total number of per-strategy evaluation faults (isolated)",
		}, []string{"kind"}),
		ExecutionsAppended: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "executions_appended_total",
			Help:      "Total number of executions appended",
		}, []string{"kind", "mode"}),
		StrategiesUpdated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "strategies_updated_total",
			Help:      "Total number of strategies mutated by a tick",
		}),
		AutoDeactivations: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "auto_deactivations_total",
			Help:      "Total number of strategies deactivated on cap exhaustion",
		}),
		StoreLoadErrors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "load_errors_total",
			Help:      "Total number of strategy store load failures",
		}),
		StoreSaveErrors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "save_errors_total",
			Help:      "Total number of strategy store save failures",
		}),
		CurrentRiskScore: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "current_risk_score",
			Help:      "Last risk score seen per asset",
		}, []string{"asset"}),
		FeedStaleReads: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "stale_reads_total",
			Help:      "Ticks that reused the last known snapshot for an asset",
		}, []string{"asset"}),
		FeedErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "errors_total",
			Help:      "Feed read failures per asset",
		}, []string{"asset"}),
		LastSuccessfulTick: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "last_successful_tick_timestamp_seconds",
			Help:      "Unix timestamp of the last fully completed tick",
		}),
	}
}

// Handler returns the HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
