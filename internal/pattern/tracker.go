package pattern

import (
	"math"
	"sync"
	"time"
)

// Trend describes the direction of a key's access rate over its most
// recent intervals.
type Trend string

const (
	TrendIncreasing Trend = "increasing"
	TrendStable     Trend = "stable"
	TrendDecreasing Trend = "decreasing"
)

// Pattern is the recorded access history for a single key. It has an
// independent lifecycle from the cache entry: it survives eviction so that
// re-admission can reuse history, and is only dropped by Clear or the idle
// sweep.
type Pattern struct {
	AccessCount   int64
	HitCount      int64
	MissCount     int64
	FirstAccessAt time.Time
	LastAccessAt  time.Time

	// samples is a bounded ring of recent access timestamps.
	samples []time.Time
	head    int
	filled  bool
}

// Frequency returns accesses per minute since the first access. For
// histories shorter than one second the raw count is returned to avoid a
// divide-by-near-zero blowup.
func (p *Pattern) Frequency(now time.Time) float64 {
	minutes := now.Sub(p.FirstAccessAt).Minutes()
	if minutes < 1.0/60.0 {
		return float64(p.AccessCount)
	}
	return float64(p.AccessCount) / minutes
}

// Recency decays linearly from 1 at the last access to 0 after one hour.
func (p *Pattern) Recency(now time.Time) float64 {
	seconds := now.Sub(p.LastAccessAt).Seconds()
	if seconds <= 0 {
		return 1
	}
	return math.Max(0, 1-seconds/3600)
}

// Regularity is 1 minus the normalized standard deviation of inter-access
// intervals: 1 for perfectly periodic access, approaching 0 for bursty
// access. Fewer than three samples yield 0.
func (p *Pattern) Regularity() float64 {
	intervals := p.intervals()
	if len(intervals) < 2 {
		return 0
	}

	var sum float64
	for _, iv := range intervals {
		sum += iv.Seconds()
	}
	mean := sum / float64(len(intervals))
	if mean <= 0 {
		return 0
	}

	var variance float64
	for _, iv := range intervals {
		d := iv.Seconds() - mean
		variance += d * d
	}
	variance /= float64(len(intervals))
	stddev := math.Sqrt(variance)

	return math.Max(0, 1-stddev/mean)
}

// Trend classifies the last three inter-access intervals: shrinking
// intervals mean the key is heating up, growing intervals mean it is
// cooling down.
func (p *Pattern) Trend() Trend {
	intervals := p.intervals()
	if len(intervals) < 3 {
		return TrendStable
	}

	recent := intervals[len(intervals)-3:]
	first := recent[0].Seconds()
	last := recent[2].Seconds()
	if first <= 0 {
		return TrendStable
	}

	switch {
	case last < first*0.8:
		return TrendIncreasing
	case last > first*1.2:
		return TrendDecreasing
	default:
		return TrendStable
	}
}

// Samples returns the retained access timestamps in chronological order.
func (p *Pattern) Samples() []time.Time {
	return p.ordered()
}

func (p *Pattern) record(ts time.Time, capacity int) {
	if len(p.samples) < capacity {
		p.samples = append(p.samples, ts)
		return
	}
	// Ring is full: overwrite the oldest sample.
	p.samples[p.head] = ts
	p.head = (p.head + 1) % capacity
	p.filled = true
}

func (p *Pattern) ordered() []time.Time {
	if !p.filled {
		out := make([]time.Time, len(p.samples))
		copy(out, p.samples)
		return out
	}
	out := make([]time.Time, 0, len(p.samples))
	out = append(out, p.samples[p.head:]...)
	out = append(out, p.samples[:p.head]...)
	return out
}

func (p *Pattern) intervals() []time.Duration {
	samples := p.ordered()
	if len(samples) < 2 {
		return nil
	}
	out := make([]time.Duration, 0, len(samples)-1)
	for i := 1; i < len(samples); i++ {
		out = append(out, samples[i].Sub(samples[i-1]))
	}
	return out
}

// Tracker records per-key access history and derives frequency, recency,
// regularity, and trend. The caller (the cache engine) is the sole mutator.
type Tracker struct {
	mu         sync.RWMutex
	patterns   map[string]*Pattern
	maxSamples int
}

// NewTracker creates a tracker retaining up to maxSamples timestamps per key.
func NewTracker(maxSamples int) *Tracker {
	if maxSamples <= 0 {
		maxSamples = 100
	}
	return &Tracker{
		patterns:   make(map[string]*Pattern),
		maxSamples: maxSamples,
	}
}

// Record appends an access observation for key at the given timestamp.
func (t *Tracker) Record(key string, wasHit bool, ts time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	p, ok := t.patterns[key]
	if !ok {
		p = &Pattern{FirstAccessAt: ts}
		t.patterns[key] = p
	}

	p.AccessCount++
	if wasHit {
		p.HitCount++
	} else {
		p.MissCount++
	}
	p.LastAccessAt = ts
	p.record(ts, t.maxSamples)
}

// Get returns the pattern for key, or nil when the key was never accessed.
func (t *Tracker) Get(key string) *Pattern {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.patterns[key]
}

// Forget drops the pattern for a single key.
func (t *Tracker) Forget(key string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.patterns, key)
}

// Len returns the number of tracked keys.
func (t *Tracker) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.patterns)
}

// HitRate returns the observed hit rate across all tracked keys.
func (t *Tracker) HitRate() float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var hits, total int64
	for _, p := range t.patterns {
		hits += p.HitCount
		total += p.AccessCount
	}
	if total == 0 {
		return 0
	}
	return float64(hits) / float64(total)
}

// SweepIdle drops patterns whose last access is older than idleTimeout.
// Without this sweep the tracker grows without bound as keys churn.
func (t *Tracker) SweepIdle(now time.Time, idleTimeout time.Duration) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	removed := 0
	for key, p := range t.patterns {
		if now.Sub(p.LastAccessAt) > idleTimeout {
			delete(t.patterns, key)
			removed++
		}
	}
	return removed
}

// Clear drops all tracked patterns.
func (t *Tracker) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.patterns = make(map[string]*Pattern)
}
