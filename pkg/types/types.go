package types

import (
	"time"
)

// Tier identifies one storage layer in the cache hierarchy. Lookups probe
// tiers in ascending order; promotion moves entries toward TierFast.
type Tier int

const (
	TierFast Tier = iota
	TierWarm
	TierCold
)

// NumTiers is the number of tiers in the hierarchy.
const NumTiers = 3

// String returns the tier name used in configuration, stats, and metrics labels.
func (t Tier) String() string {
	switch t {
	case TierFast:
		return "fast"
	case TierWarm:
		return "warm"
	case TierCold:
		return "cold"
	default:
		return "unknown"
	}
}

// Faster returns the next-faster tier and false when already at TierFast.
func (t Tier) Faster() (Tier, bool) {
	if t <= TierFast {
		return t, false
	}
	return t - 1, true
}

// Slower returns the next-slower tier and false when already at TierCold.
func (t Tier) Slower() (Tier, bool) {
	if t >= TierCold {
		return t, false
	}
	return t + 1, true
}

// Category is a coarse classification of cached data, derived from the key
// prefix. It biases TTL computation: volatile user/session data expires
// sooner, configuration data lives longer.
type Category string

const (
	CategoryUserData    Category = "user-data"
	CategorySessionData Category = "session-data"
	CategoryConfig      Category = "configuration"
	CategoryTemporary   Category = "temporary"
	CategoryAPIResponse Category = "api-response"
	CategoryGeneral     Category = "general"
)

// Entry is a single cached value. Exactly one tier owns an entry at a time;
// promotion and demotion move entries, they never copy.
type Entry struct {
	Key          string        `json:"key"`
	Value        []byte        `json:"value"`
	Size         int64         `json:"size"`
	CreatedAt    time.Time     `json:"created_at"`
	LastAccessAt time.Time     `json:"last_access_at"`
	TTL          time.Duration `json:"ttl"`
	ExpiresAt    time.Time     `json:"expires_at"`
	AccessCount  int64         `json:"access_count"`
	Priority     int           `json:"priority"`
	Tier         Tier          `json:"tier"`
	Category     Category      `json:"category"`
	Compressed   bool          `json:"compressed"`
}

// Expired reports whether the entry is logically absent at the given time.
// Physical removal may lag behind; callers must treat an expired entry as a miss.
func (e *Entry) Expired(now time.Time) bool {
	return !now.Before(e.ExpiresAt)
}

// MetricsSnapshot is a best-effort sample of system conditions. Memory, CPU
// and battery are normalized to [0,1]; latency is the raw probe duration.
// BatteryLevel is nil on hosts without a battery.
type MetricsSnapshot struct {
	MemoryUsage    float64       `json:"memory_usage"`
	CPUUsage       float64       `json:"cpu_usage"`
	NetworkLatency time.Duration `json:"network_latency"`
	BatteryLevel   *float64      `json:"battery_level,omitempty"`
	SampledAt      time.Time     `json:"sampled_at"`
	Stale          bool          `json:"stale"`
}

// CacheStats represents per-tier cache performance statistics.
type CacheStats struct {
	Hits        uint64  `json:"hits"`
	Misses      uint64  `json:"misses"`
	Evictions   uint64  `json:"evictions"`
	Expired     uint64  `json:"expired"`
	Entries     int     `json:"entries"`
	Capacity    int     `json:"capacity"`
	BytesUsed   int64   `json:"bytes_used"`
	HitRate     float64 `json:"hit_rate"`
	Utilization float64 `json:"utilization"`
}

// Statistics is the engine-wide view returned by CacheEngine.Statistics.
type Statistics struct {
	Size              int                   `json:"size"`
	Capacity          int                   `json:"capacity"`
	Hits              uint64                `json:"hits"`
	Misses            uint64                `json:"misses"`
	HitRate           float64               `json:"hit_rate"`
	Utilization       float64               `json:"utilization"`
	CurrentStrategy   string                `json:"current_strategy"`
	TierStats         map[string]CacheStats `json:"tier_stats"`
	Promotions        uint64                `json:"promotions"`
	Demotions         uint64                `json:"demotions"`
	Adaptations       uint64                `json:"adaptations"`
	FailedAdaptations uint64                `json:"failed_adaptations"`
	TrackedPatterns   int                   `json:"tracked_patterns"`
}

// TierMove records a promotion or demotion decision.
type TierMove struct {
	Key  string `json:"key"`
	From Tier   `json:"from"`
	To   Tier   `json:"to"`
}

// SnapshotSchema tags the persisted-state layout so loaders can validate
// forward/backward compatibility.
const SnapshotSchema = "tiercache/v1"

// PersistedEntry is the durable form of an Entry as written by tier backends.
type PersistedEntry struct {
	Key        string        `json:"key"`
	Value      []byte        `json:"value"`
	CreatedAt  time.Time     `json:"created_at"`
	TTL        time.Duration `json:"ttl"`
	ExpiresAt  time.Time     `json:"expires_at"`
	Category   Category      `json:"category"`
	Compressed bool          `json:"compressed"`
	Checksum   string        `json:"checksum"`
}

// Snapshot is the versioned persisted-state layout for durable tiers.
type Snapshot struct {
	Schema  string                    `json:"schema"`
	SavedAt time.Time                 `json:"saved_at"`
	Entries map[string]PersistedEntry `json:"entries"`
}
