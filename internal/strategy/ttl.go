package strategy

import (
	"time"

	"github.com/tiercache/tiercache/pkg/types"
)

// TTL bounds. Every computed TTL is clamped into this window regardless of
// how the multiplicative biases stack up.
const (
	MinTTL = 30 * time.Second
	MaxTTL = 24 * time.Hour
)

// ComputeTTL derives an adaptive TTL from the base TTL, the data category,
// the active strategy, and current system conditions. All factors are
// multiplicative and order-independent; the clamp is applied once at the
// end.
func ComputeTTL(base time.Duration, category types.Category, s Strategy, m types.MetricsSnapshot) time.Duration {
	ttl := float64(base) * s.TTLMultiplier()

	switch category {
	case types.CategoryUserData, types.CategorySessionData:
		ttl *= 0.7
	case types.CategoryConfig:
		ttl *= 2.0
	}

	if m.CPUUsage > 0.8 {
		ttl *= 0.8
	} else if m.CPUUsage < 0.3 {
		ttl *= 1.2
	}

	if m.MemoryUsage > 0.8 {
		ttl *= 0.6
	}

	if m.NetworkLatency > time.Second {
		ttl *= 1.5
	}

	if m.BatteryLevel != nil && *m.BatteryLevel < 0.2 {
		ttl *= 0.5
	}

	return clampTTL(time.Duration(ttl))
}

// RescaleTTL applies a strategy switch to an existing entry's TTL.
func RescaleTTL(current time.Duration, s Strategy) time.Duration {
	return clampTTL(time.Duration(float64(current) * s.TTLMultiplier()))
}

func clampTTL(ttl time.Duration) time.Duration {
	if ttl < MinTTL {
		return MinTTL
	}
	if ttl > MaxTTL {
		return MaxTTL
	}
	return ttl
}
