package strategy

import (
	"testing"
	"time"

	"github.com/tiercache/tiercache/pkg/types"
)

func floatPtr(v float64) *float64 { return &v }

func TestStrategyNames(t *testing.T) {
	want := map[Strategy]string{
		Performance: "performance",
		Memory:      "memory",
		Balanced:    "balanced",
		Network:     "network",
		Battery:     "battery",
	}
	for s, name := range want {
		if s.String() != name {
			t.Errorf("String() = %q, want %q", s.String(), name)
		}
	}
}

func TestMultipliers(t *testing.T) {
	if Memory.TTLMultiplier() != 0.7 {
		t.Errorf("memory ttl multiplier = %f, want 0.7", Memory.TTLMultiplier())
	}
	if Balanced.TTLMultiplier() != 1.0 || Balanced.SizeMultiplier() != 1.0 {
		t.Error("balanced must be the identity strategy")
	}
	if Memory.SizeMultiplier() >= 1.0 {
		t.Error("memory strategy must shrink tiers")
	}
	if Performance.SizeMultiplier() <= 1.0 {
		t.Error("performance strategy must grow tiers")
	}
}

func TestScoreSelectsMemoryUnderPressure(t *testing.T) {
	cond := Conditions{
		Metrics: types.MetricsSnapshot{MemoryUsage: 0.95},
		HitRate: 0.9,
	}
	if got := Score(cond); got != Memory {
		t.Errorf("score = %s, want memory", got)
	}
}

func TestScoreSelectsBatteryWhenLow(t *testing.T) {
	cond := Conditions{
		Metrics: types.MetricsSnapshot{BatteryLevel: floatPtr(0.15)},
		HitRate: 0.9,
	}
	if got := Score(cond); got != Battery {
		t.Errorf("score = %s, want battery", got)
	}
}

func TestScoreSelectsPerformanceOnLowHitRate(t *testing.T) {
	cond := Conditions{
		Metrics: types.MetricsSnapshot{MemoryUsage: 0.4, CPUUsage: 0.3},
		HitRate: 0.5,
	}
	if got := Score(cond); got != Performance {
		t.Errorf("score = %s, want performance", got)
	}
}

func TestScoreSelectsNetworkOnHighLatency(t *testing.T) {
	cond := Conditions{
		Metrics: types.MetricsSnapshot{NetworkLatency: 1500 * time.Millisecond},
		HitRate: 0.9,
	}
	if got := Score(cond); got != Network {
		t.Errorf("score = %s, want network", got)
	}
}

func TestScoreDefaultsToBalanced(t *testing.T) {
	// Healthy system: nothing should displace balanced.
	cond := Conditions{
		Metrics: types.MetricsSnapshot{MemoryUsage: 0.4, CPUUsage: 0.4, NetworkLatency: 20 * time.Millisecond},
		HitRate: 0.9,
	}
	if got := Score(cond); got != Balanced {
		t.Errorf("score = %s, want balanced", got)
	}
}

func TestHighCPUDampensPerformance(t *testing.T) {
	cond := Conditions{
		Metrics: types.MetricsSnapshot{CPUUsage: 0.95},
		HitRate: 0.5, // would otherwise pick performance
	}
	if got := Score(cond); got != Balanced {
		t.Errorf("score = %s, want balanced when the CPU is loaded", got)
	}
}

func TestControllerRateLimit(t *testing.T) {
	c := NewController(60 * time.Second)
	now := time.Now()
	pressured := Conditions{Metrics: types.MetricsSnapshot{MemoryUsage: 0.95}, HitRate: 0.9}

	if _, changed := c.AdaptIfNeeded(pressured, now); !changed {
		t.Fatal("first adaptation should switch to memory")
	}
	if c.Current() != Memory {
		t.Fatalf("current = %s, want memory", c.Current())
	}

	// Pressure subsides, but the window has not elapsed.
	relaxed := Conditions{Metrics: types.MetricsSnapshot{MemoryUsage: 0.2}, HitRate: 0.9}
	if _, changed := c.AdaptIfNeeded(relaxed, now.Add(10*time.Second)); changed {
		t.Error("adaptation inside the rate-limit window must not switch")
	}

	if _, changed := c.AdaptIfNeeded(relaxed, now.Add(61*time.Second)); !changed {
		t.Error("adaptation after the window must switch back")
	}
	if c.Current() != Balanced {
		t.Errorf("current = %s, want balanced", c.Current())
	}
}

func TestControllerSkipsStaleMetrics(t *testing.T) {
	c := NewController(time.Second)
	cond := Conditions{Metrics: types.MetricsSnapshot{MemoryUsage: 0.95, Stale: true}}

	if _, changed := c.AdaptIfNeeded(cond, time.Now()); changed {
		t.Error("stale metrics must not trigger a strategy change")
	}
}

func TestControllerRevert(t *testing.T) {
	c := NewController(time.Second)
	now := time.Now()
	pressured := Conditions{Metrics: types.MetricsSnapshot{MemoryUsage: 0.95}}

	prev, changed := c.AdaptIfNeeded(pressured, now)
	if !changed {
		t.Fatal("expected switch")
	}
	c.Revert(prev)
	if c.Current() != prev {
		t.Errorf("current = %s, want reverted %s", c.Current(), prev)
	}
}

func TestComputeTTLBounds(t *testing.T) {
	// Stack every shrinking bias; result must still respect MinTTL.
	m := types.MetricsSnapshot{MemoryUsage: 0.9, CPUUsage: 0.9, BatteryLevel: floatPtr(0.1)}
	ttl := ComputeTTL(time.Minute, types.CategorySessionData, Battery, m)
	if ttl < MinTTL {
		t.Errorf("ttl = %v, below MinTTL", ttl)
	}

	// Stack every growing bias; result must still respect MaxTTL.
	m = types.MetricsSnapshot{CPUUsage: 0.1, NetworkLatency: 2 * time.Second}
	ttl = ComputeTTL(48*time.Hour, types.CategoryConfig, Performance, m)
	if ttl > MaxTTL {
		t.Errorf("ttl = %v, above MaxTTL", ttl)
	}
}

func TestComputeTTLCategoryBias(t *testing.T) {
	m := types.MetricsSnapshot{CPUUsage: 0.5}
	base := time.Hour

	general := ComputeTTL(base, types.CategoryGeneral, Balanced, m)
	session := ComputeTTL(base, types.CategorySessionData, Balanced, m)
	config := ComputeTTL(base, types.CategoryConfig, Balanced, m)

	if general != base {
		t.Errorf("general ttl = %v, want base %v", general, base)
	}
	if session != time.Duration(float64(base)*0.7) {
		t.Errorf("session ttl = %v, want 0.7x base", session)
	}
	if config != 2*base {
		t.Errorf("config ttl = %v, want 2x base", config)
	}
}

func TestComputeTTLSystemBiases(t *testing.T) {
	base := time.Hour

	idle := ComputeTTL(base, types.CategoryGeneral, Balanced, types.MetricsSnapshot{CPUUsage: 0.1})
	if idle != time.Duration(float64(base)*1.2) {
		t.Errorf("idle-cpu ttl = %v, want 1.2x base", idle)
	}

	loaded := ComputeTTL(base, types.CategoryGeneral, Balanced, types.MetricsSnapshot{CPUUsage: 0.9})
	if loaded != time.Duration(float64(base)*0.8) {
		t.Errorf("loaded-cpu ttl = %v, want 0.8x base", loaded)
	}

	pressured := ComputeTTL(base, types.CategoryGeneral, Balanced, types.MetricsSnapshot{CPUUsage: 0.5, MemoryUsage: 0.9})
	if pressured != time.Duration(float64(base)*0.6) {
		t.Errorf("memory-pressure ttl = %v, want 0.6x base", pressured)
	}

	slow := ComputeTTL(base, types.CategoryGeneral, Balanced, types.MetricsSnapshot{CPUUsage: 0.5, NetworkLatency: 1500 * time.Millisecond})
	if slow != time.Duration(float64(base)*1.5) {
		t.Errorf("slow-network ttl = %v, want 1.5x base", slow)
	}
}

func TestRescaleTTL(t *testing.T) {
	rescaled := RescaleTTL(time.Hour, Memory)
	if rescaled != time.Duration(float64(time.Hour)*0.7) {
		t.Errorf("rescaled = %v, want 0.7x", rescaled)
	}
	if RescaleTTL(time.Second, Battery) != MinTTL {
		t.Error("rescale must clamp to MinTTL")
	}
}
