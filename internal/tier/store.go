// Package tier implements a single bounded storage layer of the cache. A
// store owns its entries exclusively: it never calls into other tiers, and
// the engine moves entries between stores explicitly.
package tier

import (
	"sync"
	"time"

	"github.com/tiercache/tiercache/internal/scoring"
	"github.com/tiercache/tiercache/pkg/types"
)

// RankFunc orders eviction candidates worst-first. The engine binds the
// tracker and the active strategy into this closure so the store itself
// stays free of policy state.
type RankFunc func(entries []*types.Entry, now time.Time) []scoring.Candidate

// Store is a bounded key->entry map with batched, score-driven eviction and
// lazy expiry. Capacity is an entry count; strategy changes resize it within
// [minCapacity, maxCapacity].
type Store struct {
	mu          sync.RWMutex
	tier        types.Tier
	entries     map[string]*types.Entry
	capacity    int
	baseCap     int
	minCapacity int
	maxCapacity int
	rank        RankFunc

	stats types.CacheStats
}

// NewStore creates a tier store with the given capacity bounds.
func NewStore(tier types.Tier, capacity, minCapacity, maxCapacity int, rank RankFunc) *Store {
	return &Store{
		tier:        tier,
		entries:     make(map[string]*types.Entry),
		capacity:    capacity,
		baseCap:     capacity,
		minCapacity: minCapacity,
		maxCapacity: maxCapacity,
		rank:        rank,
		stats:       types.CacheStats{Capacity: capacity},
	}
}

// Tier returns which tier this store serves.
func (s *Store) Tier() types.Tier {
	return s.tier
}

// Get returns the live entry for key. Expired entries are removed on touch
// and counted as this tier's miss; a key the tier never held is not counted,
// since the engine probes every tier on each lookup and overall misses are
// its bookkeeping. The caller updates access bookkeeping on the returned
// entry.
func (s *Store) Get(key string, now time.Time) (*types.Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		return nil, false
	}

	if e.Expired(now) {
		delete(s.entries, key)
		s.stats.Expired++
		s.stats.Misses++
		s.updateHitRate()
		return nil, false
	}

	s.stats.Hits++
	s.updateHitRate()
	return e, true
}

// Peek returns the entry without touching stats or expiry. Used by sweeps
// and the promotion engine.
func (s *Store) Peek(key string) (*types.Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[key]
	return e, ok
}

// Put inserts or replaces the entry for key, evicting the worst-scoring
// entries first when the store is full. The returned slice lists evicted
// keys, worst first. Eviction is batched: at least 10% of capacity is
// cleared so scoring cost amortizes over subsequent inserts.
func (s *Store) Put(key string, e *types.Entry, now time.Time) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	e.Tier = s.tier
	if _, exists := s.entries[key]; exists {
		s.entries[key] = e
		return nil
	}

	var evicted []string
	if len(s.entries) >= s.capacity {
		evicted = s.evictLocked(len(s.entries)-s.capacity+1, now)
	}

	s.entries[key] = e
	return evicted
}

// Remove deletes the entry for key, reporting whether it was present.
func (s *Store) Remove(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[key]; !ok {
		return false
	}
	delete(s.entries, key)
	return true
}

// Take removes and returns the entry for key. Used for promotion and
// demotion, which move entries between tiers rather than copying them.
func (s *Store) Take(key string) (*types.Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		return nil, false
	}
	delete(s.entries, key)
	return e, true
}

// Len returns the number of physically present entries, expired included.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Capacity returns the current capacity.
func (s *Store) Capacity() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.capacity
}

// Snapshot returns a copy of the live entry pointers. Eviction and sweeps
// score this immutable snapshot instead of iterating the map so concurrent
// strategy changes cannot invalidate the iteration.
func (s *Store) Snapshot() []*types.Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*types.Entry, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, e)
	}
	return out
}

// SweepExpired removes every entry past its expiry and returns the keys.
func (s *Store) SweepExpired(now time.Time) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var expired []string
	for key, e := range s.entries {
		if e.Expired(now) {
			expired = append(expired, key)
		}
	}
	for _, key := range expired {
		delete(s.entries, key)
		s.stats.Expired++
	}
	return expired
}

// Resize scales the base capacity by factor, clamped to the configured
// bounds, and evicts down to the new capacity if shrinking.
func (s *Store) Resize(factor float64, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	capacity := int(float64(s.baseCap) * factor)
	if capacity < s.minCapacity {
		capacity = s.minCapacity
	}
	if capacity > s.maxCapacity {
		capacity = s.maxCapacity
	}

	s.capacity = capacity
	s.stats.Capacity = capacity
	if over := len(s.entries) - capacity; over > 0 {
		s.evictLocked(over, now)
	}
}

// Clear removes every entry and resets counters.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = make(map[string]*types.Entry)
	s.stats = types.CacheStats{Capacity: s.capacity}
}

// Stats returns a copy of the store's statistics.
func (s *Store) Stats() types.CacheStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := s.stats
	stats.Entries = len(s.entries)
	var bytes int64
	for _, e := range s.entries {
		bytes += e.Size
	}
	stats.BytesUsed = bytes
	if s.capacity > 0 {
		stats.Utilization = float64(len(s.entries)) / float64(s.capacity)
	}
	return stats
}

// evictLocked frees at least needed slots, batching up to 10% of capacity.
// Expired entries go first; the remainder is chosen by keep score.
func (s *Store) evictLocked(needed int, now time.Time) []string {
	batch := s.capacity / 10
	if batch < needed {
		batch = needed
	}
	if batch < 1 {
		batch = 1
	}

	var evicted []string

	// Expired entries are free wins before any scoring happens.
	for key, e := range s.entries {
		if len(evicted) >= batch {
			break
		}
		if e.Expired(now) {
			delete(s.entries, key)
			s.stats.Expired++
			evicted = append(evicted, key)
		}
	}
	if len(evicted) >= needed {
		return evicted
	}

	snapshot := make([]*types.Entry, 0, len(s.entries))
	for _, e := range s.entries {
		snapshot = append(snapshot, e)
	}
	for _, candidate := range s.rank(snapshot, now) {
		if len(evicted) >= batch {
			break
		}
		delete(s.entries, candidate.Key)
		s.stats.Evictions++
		evicted = append(evicted, candidate.Key)
	}

	return evicted
}

func (s *Store) updateHitRate() {
	total := s.stats.Hits + s.stats.Misses
	if total > 0 {
		s.stats.HitRate = float64(s.stats.Hits) / float64(total)
	}
}
