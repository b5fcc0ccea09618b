// Package engine evaluates all stored strategies against the external
// risk score on a fixed period. A tick reads the strategy set once,
// runs the frequency pass over fixed strategies and the level-crossing
// pass over scaled strategies, and writes the set back once. Evaluation
// is pure over the loaded snapshot; the store and the feed are the only
// collaborators.
package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"cycle-strategy-engine/internal/domain"
	"cycle-strategy-engine/internal/observability"
	"cycle-strategy-engine/internal/riskfeed"
	"cycle-strategy-engine/internal/storage"
)

// DefaultTickInterval is much smaller than the shortest supported
// frequency (daily), so a due fixed strategy fires within a minute.
const DefaultTickInterval = time.Minute

// Engine drives periodic strategy evaluation.
type Engine struct {
	store        storage.StrategyStore
	feed         riskfeed.Feed
	tickInterval time.Duration
	logger       *logrus.Logger
	metrics      *observability.Metrics
	now          func() time.Time

	// mu serializes ticks: the nearest-level matching and the cap walk
	// assume a non-reentrant pass over each strategy's execution list.
	mu sync.Mutex

	// lastKnown caches the latest snapshot per asset so a stale or
	// unavailable feed never fails a tick.
	lastKnown map[string]domain.RiskSnapshot
}

// Options contains configuration for creating an Engine.
type Options struct {
	Store        storage.StrategyStore
	Feed         riskfeed.Feed
	TickInterval time.Duration          // default: DefaultTickInterval
	Logger       *logrus.Logger         // default: logrus standard logger
	Metrics      *observability.Metrics // optional
	Now          func() time.Time       // default: time.Now
}

// New creates a new Engine.
func New(opts Options) *Engine {
	tickInterval := opts.TickInterval
	if tickInterval <= 0 {
		tickInterval = DefaultTickInterval
	}

	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	now := opts.Now
	if now == nil {
		now = time.Now
	}

	return &Engine{
		store:        opts.Store,
		feed:         opts.Feed,
		tickInterval: tickInterval,
		logger:       logger,
		metrics:      opts.Metrics,
		now:          now,
		lastKnown:    make(map[string]domain.RiskSnapshot),
	}
}

// Run evaluates once immediately, then on every tick until the context is
// cancelled.
func (e *Engine) Run(ctx context.Context) error {
	e.logger.WithField("interval", e.tickInterval).Info("starting execution engine")

	if err := e.Tick(ctx); err != nil {
		e.logger.WithError(err).Warn("initial tick failed")
	}

	ticker := time.NewTicker(e.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			e.logger.Info("execution engine stopped")
			return nil
		case <-ticker.C:
			if err := e.Tick(ctx); err != nil {
				e.logger.WithError(err).Warn("tick failed")
			}
		}
	}
}

// Tick performs one full evaluation pass. A failed store write discards
// all in-memory mutations; the next tick starts over from a fresh load.
func (e *Engine) Tick(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	start := e.now()
	if e.metrics != nil {
		e.metrics.TicksTotal.Inc()
		defer func() {
			e.metrics.TickDuration.Observe(e.now().Sub(start).Seconds())
		}()
	}

	strategies, err := e.store.LoadAll(ctx)
	if err != nil {
		if e.metrics != nil {
			e.metrics.StoreLoadErrors.Inc()
			e.metrics.TickErrors.Inc()
		}
		return fmt.Errorf("load strategies: %w", err)
	}

	snapshots := e.collectSnapshots(ctx, strategies)

	var updated int
	for _, s := range strategies {
		snap, ok := snapshots[s.AssetID]
		if !ok {
			continue
		}
		if e.metrics != nil {
			e.metrics.StrategiesEvaluated.Inc()
		}
		if e.evaluateStrategy(s, snap, start) {
			updated++
		}
	}

	if updated > 0 {
		if err := e.store.SaveAll(ctx, strategies); err != nil {
			if e.metrics != nil {
				e.metrics.StoreSaveErrors.Inc()
				e.metrics.TickErrors.Inc()
			}
			return fmt.Errorf("save strategies: %w", err)
		}
		if e.metrics != nil {
			e.metrics.StrategiesUpdated.Add(float64(updated))
		}
	}

	if e.metrics != nil {
		e.metrics.LastSuccessfulTick.SetToCurrentTime()
	}
	if updated > 0 {
		e.logger.WithFields(logrus.Fields{
			"strategies": len(strategies),
			"updated":    updated,
		}).Info("tick completed")
	}
	return nil
}

// collectSnapshots reads the feed once per distinct asset, falling back to
// the last known snapshot when the feed cannot answer. Assets with no
// snapshot at all are skipped for this tick.
func (e *Engine) collectSnapshots(ctx context.Context, strategies []*domain.Strategy) map[string]domain.RiskSnapshot {
	snapshots := make(map[string]domain.RiskSnapshot)

	for _, s := range strategies {
		if _, seen := snapshots[s.AssetID]; seen {
			continue
		}

		snap, err := e.feed.Current(ctx, s.AssetID)
		if err != nil {
			if e.metrics != nil {
				e.metrics.FeedErrors.WithLabelValues(s.AssetID).Inc()
			}
			cached, ok := e.lastKnown[s.AssetID]
			if !ok {
				e.logger.WithField("asset", s.AssetID).WithError(err).
					Warn("no risk snapshot available, skipping asset")
				continue
			}
			if e.metrics != nil {
				e.metrics.FeedStaleReads.WithLabelValues(s.AssetID).Inc()
			}
			snap = cached
		} else {
			e.lastKnown[s.AssetID] = snap
		}

		if e.metrics != nil {
			e.metrics.CurrentRiskScore.WithLabelValues(s.AssetID).Set(snap.Score)
		}
		snapshots[s.AssetID] = snap
	}

	return snapshots
}

// evaluateStrategy runs both passes plus the lifecycle rules over a clone
// of the strategy and copies the result back only on success, so a fault
// in one strategy is a no-op for that strategy and invisible to the rest
// of the batch.
func (e *Engine) evaluateStrategy(s *domain.Strategy, snap domain.RiskSnapshot, now time.Time) bool {
	clone := s.Clone()

	changed, ok := func() (changed, ok bool) {
		defer func() {
			if r := recover(); r != nil {
				e.logger.WithFields(logrus.Fields{
					"strategy": s.ID,
					"panic":    r,
				}).Error("strategy evaluation fault, skipping")
				if e.metrics != nil {
					e.metrics.StrategyEvalErrors.WithLabelValues(string(s.Kind)).Inc()
				}
				changed, ok = false, false
			}
		}()
		changed = EvaluateTick(clone, snap, now)
		return changed, true
	}()

	if !ok || !changed {
		return false
	}

	if e.metrics != nil {
		appended := len(clone.Executions) - len(s.Executions)
		if appended > 0 {
			e.metrics.ExecutionsAppended.
				WithLabelValues(string(s.Kind), string(s.Mode)).
				Add(float64(appended))
		}
		if s.Active && !clone.Active {
			e.metrics.AutoDeactivations.Inc()
		}
	}

	*s = *clone
	return true
}

// EvaluateTick applies one tick's worth of evaluation to a single
// strategy: frequency pass, level-crossing pass, then cap auto-deactivation.
// Pure over its arguments apart from mutating s; exported for the
// simulator and tests.
func EvaluateTick(s *domain.Strategy, snap domain.RiskSnapshot, now time.Time) bool {
	changed := evaluateFixed(s, snap, now)
	if evaluateScaled(s, snap, now) {
		changed = true
	}
	if ApplyAutoDeactivate(s) {
		changed = true
	}
	return changed
}
