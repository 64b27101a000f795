package metrics

import (
	"context"
	"runtime"
	"sync"
	"time"

	"github.com/tiercache/tiercache/pkg/errors"
	"github.com/tiercache/tiercache/pkg/types"
)

// RuntimeSampler is a MetricsSource backed by the Go runtime. Memory
// pressure is the heap allocation relative to a configured budget; CPU
// pressure is approximated by the GC's CPU fraction, which rises under
// allocation-heavy load. Network latency is an exponentially weighted
// average fed by ReportLatency, typically from backend persist calls.
// Battery level is reported only when a platform probe is installed.
type RuntimeSampler struct {
	mu           sync.RWMutex
	memoryBudget uint64
	latencyEWMA  time.Duration
	batteryProbe func() *float64
}

const latencySmoothing = 0.2

// NewRuntimeSampler creates a sampler with memoryBudget bytes considered
// full memory pressure. A zero budget disables memory pressure reporting.
func NewRuntimeSampler(memoryBudget uint64) *RuntimeSampler {
	return &RuntimeSampler{memoryBudget: memoryBudget}
}

// SetBatteryProbe installs a platform-specific battery level probe. The
// probe returns nil on machines without a battery.
func (s *RuntimeSampler) SetBatteryProbe(probe func() *float64) {
	s.mu.Lock()
	s.batteryProbe = probe
	s.mu.Unlock()
}

// ReportLatency folds an observed backend round-trip into the latency
// average.
func (s *RuntimeSampler) ReportLatency(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.latencyEWMA == 0 {
		s.latencyEWMA = d
		return
	}
	s.latencyEWMA = time.Duration(float64(s.latencyEWMA)*(1-latencySmoothing) + float64(d)*latencySmoothing)
}

// Sample collects a point-in-time snapshot of system conditions.
func (s *RuntimeSampler) Sample(ctx context.Context) (types.MetricsSnapshot, error) {
	select {
	case <-ctx.Done():
		return types.MetricsSnapshot{Stale: true}, errors.Wrap(ctx.Err(), errors.ErrCodeMetricsTimeout, "metrics sampling cancelled").
			WithComponent("metrics")
	default:
	}

	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	s.mu.RLock()
	budget := s.memoryBudget
	latency := s.latencyEWMA
	probe := s.batteryProbe
	s.mu.RUnlock()

	snapshot := types.MetricsSnapshot{
		NetworkLatency: latency,
		SampledAt:      time.Now(),
	}
	if budget > 0 {
		snapshot.MemoryUsage = clamp01(float64(memStats.HeapAlloc) / float64(budget))
	}
	snapshot.CPUUsage = clamp01(memStats.GCCPUFraction * 10)
	if probe != nil {
		snapshot.BatteryLevel = probe()
	}
	return snapshot, nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
