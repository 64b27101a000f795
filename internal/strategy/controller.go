package strategy

import (
	"sync"
	"time"

	"github.com/tiercache/tiercache/pkg/types"
)

// Conditions bundles the cache-side inputs to strategy scoring alongside
// the system metrics snapshot.
type Conditions struct {
	Metrics     types.MetricsSnapshot
	HitRate     float64
	Utilization float64
}

// Controller owns the active strategy and re-evaluates it at most once per
// adaptation interval. The scoring step is pure; applying a switch (tier
// resize, TTL recompute) belongs to the engine, which reverts via Revert on
// failure.
type Controller struct {
	mu             sync.RWMutex
	current        Strategy
	lastAdaptation time.Time
	interval       time.Duration
}

// NewController creates a controller starting in the Balanced strategy.
func NewController(interval time.Duration) *Controller {
	if interval <= 0 {
		interval = 60 * time.Second
	}
	return &Controller{
		current:  Balanced,
		interval: interval,
	}
}

// Current returns the active strategy.
func (c *Controller) Current() Strategy {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current
}

// AdaptIfNeeded re-scores all strategies against the given conditions and
// switches to the best one. It returns the previous strategy and true when
// a switch happened. Calls inside the rate-limit window, and calls with a
// stale metrics snapshot, never switch.
func (c *Controller) AdaptIfNeeded(cond Conditions, now time.Time) (previous Strategy, changed bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.lastAdaptation.IsZero() && now.Sub(c.lastAdaptation) < c.interval {
		return c.current, false
	}
	if cond.Metrics.Stale {
		// No fresh system data: keep the current strategy rather than
		// adapting on outdated conditions.
		return c.current, false
	}

	c.lastAdaptation = now
	best := Score(cond)
	if best == c.current {
		return c.current, false
	}

	previous = c.current
	c.current = best
	return previous, true
}

// Revert restores the previous strategy after a failed switch. The
// rate-limit timestamp is left alone so a failing adaptation does not spin.
func (c *Controller) Revert(previous Strategy) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = previous
}

// Score evaluates every strategy against the conditions and returns the
// argmax. Ties resolve in favor of Balanced (it is scored first and only a
// strictly greater score displaces it).
func Score(cond Conditions) Strategy {
	best := Balanced
	bestScore := scoreOne(Balanced, cond)
	for _, s := range All[1:] {
		if score := scoreOne(s, cond); score > bestScore {
			best = s
			bestScore = score
		}
	}
	return best
}

func scoreOne(s Strategy, cond Conditions) float64 {
	m := cond.Metrics
	switch s {
	case Memory:
		score := 0.3
		if m.MemoryUsage > 0.8 {
			score = 0.9
		}
		if cond.Utilization > 0.9 && score < 0.7 {
			score = 0.7
		}
		return score

	case Battery:
		if m.BatteryLevel != nil && *m.BatteryLevel < 0.3 {
			return 0.9
		}
		return 0.2

	case Performance:
		score := 0.5
		if cond.HitRate < 0.7 {
			score = 0.8
		}
		// A loaded CPU makes aggressive caching counterproductive; the
		// penalty drops performance below balanced so it cannot win.
		if m.CPUUsage > 0.8 {
			score -= 0.3
		}
		return score

	case Network:
		if m.NetworkLatency > time.Second {
			return 0.85
		}
		return 0.25

	case Balanced:
		return 0.55

	default:
		return 0
	}
}
