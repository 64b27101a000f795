// Package scoring ranks cache entries for eviction. The scorer is a pure
// function of the entry, its access pattern, and the active strategy; it
// holds no state and takes no locks.
package scoring

import (
	"math"
	"sort"
	"time"

	"github.com/tiercache/tiercache/internal/pattern"
	"github.com/tiercache/tiercache/internal/strategy"
	"github.com/tiercache/tiercache/pkg/types"
)

// Term weights. The base weights sum to 1.0; the memory strategy raises the
// size weight so bulky entries are penalized harder under pressure.
const (
	weightFrequency  = 0.30
	weightRecency    = 0.25
	weightSize       = 0.20
	weightSizeMemory = 0.30
	weightPriority   = 0.15
	weightAge        = 0.10

	// Normalization caps: frequency saturates at 10 accesses/min, size at
	// 100 KiB, age at 24 hours.
	frequencyCap = 10.0
	sizeCap      = 100 * 1024
	ageCap       = 24 * time.Hour
)

// Score computes the keep score for an entry in [0,1]; lower scores are
// evicted first. Infrequent, stale, large, low-priority, old entries score
// lowest. pat may be nil for entries with no recorded history.
func Score(e *types.Entry, pat *pattern.Pattern, s strategy.Strategy, now time.Time) float64 {
	var frequency, recency float64
	if pat != nil {
		frequency = pat.Frequency(now)
		recency = pat.Recency(now)
	} else {
		// No history: fall back to the entry's own access bookkeeping.
		recency = math.Max(0, 1-now.Sub(e.LastAccessAt).Seconds()/3600)
	}

	sizeWeight := weightSize
	if s == strategy.Memory {
		sizeWeight = weightSizeMemory
	}

	penalty := (1-math.Min(1, frequency/frequencyCap))*weightFrequency +
		(1-recency)*weightRecency +
		math.Min(1, float64(e.Size)/sizeCap)*sizeWeight +
		(1-float64(e.Priority)/10)*weightPriority +
		math.Min(1, float64(now.Sub(e.CreatedAt))/float64(ageCap))*weightAge

	return math.Max(0, math.Min(1, 1-penalty))
}

// Candidate pairs a key with its keep score during batch eviction.
type Candidate struct {
	Key   string
	Score float64
}

// Rank scores an immutable snapshot of candidates and returns them ordered
// worst-first. Snapshotting before scoring avoids iterator invalidation when
// the strategy changes mid-eviction.
func Rank(entries []*types.Entry, patterns func(key string) *pattern.Pattern, s strategy.Strategy, now time.Time) []Candidate {
	ranked := make([]Candidate, 0, len(entries))
	for _, e := range entries {
		ranked = append(ranked, Candidate{
			Key:   e.Key,
			Score: Score(e, patterns(e.Key), s, now),
		})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score < ranked[j].Score
		}
		return ranked[i].Key < ranked[j].Key
	})
	return ranked
}
