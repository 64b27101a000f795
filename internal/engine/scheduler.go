package engine

import (
	"context"
	"time"

	"github.com/tiercache/tiercache/internal/strategy"
	"github.com/tiercache/tiercache/pkg/types"
)

// run is the background scheduler: strategy adaptation, the demotion and
// expiry sweep, and durable-tier persistence each run on their own ticker.
// A slow tick is abandoned and retried at the next interval; nothing here
// blocks a foreground Get or Set for longer than one mutex hold.
func (e *Engine) run() {
	defer e.wg.Done()

	adapt := e.clock.NewTicker(tickInterval(e.cfg.Strategy.AdaptationInterval, time.Minute))
	sweep := e.clock.NewTicker(tickInterval(e.cfg.Engine.SweepInterval, time.Minute))
	persist := e.clock.NewTicker(tickInterval(e.cfg.Storage.PersistInterval, time.Minute))
	defer adapt.Stop()
	defer sweep.Stop()
	defer persist.Stop()

	for {
		select {
		case <-e.stopCh:
			return
		case <-adapt.Chan():
			e.adaptTick()
		case <-sweep.Chan():
			e.sweepTick()
		case <-persist.Chan():
			e.persistTiers(context.Background())
		}
	}
}

// adaptTick samples system metrics and lets the controller re-evaluate the
// strategy. Sampling happens outside the engine lock so a slow probe cannot
// stall foreground operations; a failed sample reuses the last snapshot
// marked stale, which the controller treats as "do not switch".
func (e *Engine) adaptTick() {
	now := e.clock.Now()

	snapshot := e.sampleMetrics()

	e.mu.Lock()
	defer e.mu.Unlock()

	e.lastMetrics = snapshot

	cond := strategy.Conditions{
		Metrics:     snapshot,
		HitRate:     e.tracker.HitRate(),
		Utilization: e.utilizationLocked(),
	}

	previous, changed := e.controller.AdaptIfNeeded(cond, now)
	if !changed {
		return
	}

	active := e.controller.Current()
	if err := e.applyStrategyLocked(active, now); err != nil {
		e.controller.Revert(previous)
		e.failedAdaptations++
		e.logger.Warn("strategy switch failed, reverted",
			"from", previous.String(), "to", active.String(), "error", err)
		return
	}

	e.adaptations++
	e.collector.RecordAdaptation(active.String(), strategy.Names())
	e.logger.Info("strategy adapted",
		"from", previous.String(), "to", active.String(),
		"memory_usage", snapshot.MemoryUsage, "hit_rate", cond.HitRate)
}

// applyStrategyLocked applies a strategy switch to live state: tier
// capacities scale by the size multiplier and every live entry's TTL is
// rescaled by the TTL multiplier.
func (e *Engine) applyStrategyLocked(active strategy.Strategy, now time.Time) error {
	factor := active.SizeMultiplier()
	for t := types.TierFast; t <= types.TierCold; t++ {
		e.stores[t].Resize(factor, now)
	}

	for t := types.TierFast; t <= types.TierCold; t++ {
		for _, entry := range e.stores[t].Snapshot() {
			entry.TTL = strategy.RescaleTTL(entry.TTL, active)
			entry.ExpiresAt = entry.CreatedAt.Add(entry.TTL)
		}
	}
	return nil
}

// sweepTick merges the periodic maintenance passes: expired entries are
// removed, cold entries demoted, idle access patterns dropped, and the tier
// gauges refreshed.
func (e *Engine) sweepTick() {
	now := e.clock.Now()

	e.mu.Lock()
	defer e.mu.Unlock()

	expired := 0
	for t := types.TierFast; t <= types.TierCold; t++ {
		expired += len(e.stores[t].SweepExpired(now))
	}
	if expired > 0 {
		e.collector.RecordExpiration(expired)
	}

	// Demotion walks the faster tiers only; cold entries have nowhere
	// slower to go. All candidates are collected before any move is applied
	// so an entry demoted out of the fast tier cannot show up in the warm
	// snapshot and fall a second tier in the same sweep.
	var moves []types.TierMove
	for t := types.TierFast; t < types.TierCold; t++ {
		for _, entry := range e.stores[t].Snapshot() {
			if move, ok := e.mover.maybeDemote(entry, now); ok {
				moves = append(moves, move)
			}
		}
	}
	for _, move := range moves {
		e.applyMoveLocked(move, now)
	}

	if removed := e.tracker.SweepIdle(now, e.cfg.Patterns.IdleTimeout); removed > 0 {
		e.logger.Debug("dropped idle access patterns", "count", removed)
	}

	for t := types.TierFast; t <= types.TierCold; t++ {
		e.collector.SetTierUsage(t, e.stores[t].Len(), e.stores[t].Capacity())
	}
	e.collector.SetTrackedKeys(e.tracker.Len())
}

// sampleMetrics pulls a snapshot from the metrics source within the
// configured timeout. Without a source, or on failure, the last known
// snapshot is reused and marked stale.
func (e *Engine) sampleMetrics() types.MetricsSnapshot {
	e.mu.Lock()
	last := e.lastMetrics
	e.mu.Unlock()

	if e.source == nil {
		last.Stale = true
		return last
	}

	timeout := e.cfg.Strategy.MetricsTimeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	snapshot, err := e.source.Sample(ctx)
	if err != nil {
		e.logger.Warn("metrics sample failed, reusing last snapshot", "error", err)
		last.Stale = true
		return last
	}
	snapshot.Stale = false
	return snapshot
}

func tickInterval(d, fallback time.Duration) time.Duration {
	if d <= 0 {
		return fallback
	}
	return d
}

// utilizationLocked is the fill ratio across all tiers.
func (e *Engine) utilizationLocked() float64 {
	size, capacity := 0, 0
	for t := types.TierFast; t <= types.TierCold; t++ {
		size += e.stores[t].Len()
		capacity += e.stores[t].Capacity()
	}
	if capacity == 0 {
		return 0
	}
	return float64(size) / float64(capacity)
}
