package tier

import (
	"fmt"
	"testing"
	"time"

	"github.com/tiercache/tiercache/internal/pattern"
	"github.com/tiercache/tiercache/internal/scoring"
	"github.com/tiercache/tiercache/internal/strategy"
	"github.com/tiercache/tiercache/pkg/types"
)

func newTestStore(capacity int, tracker *pattern.Tracker) *Store {
	rank := func(entries []*types.Entry, now time.Time) []scoring.Candidate {
		return scoring.Rank(entries, tracker.Get, strategy.Balanced, now)
	}
	return NewStore(types.TierFast, capacity, 1, capacity*10, rank)
}

func newEntry(key string, ttl time.Duration, now time.Time) *types.Entry {
	return &types.Entry{
		Key:          key,
		Value:        []byte("v"),
		Size:         1,
		CreatedAt:    now,
		LastAccessAt: now,
		TTL:          ttl,
		ExpiresAt:    now.Add(ttl),
		Priority:     5,
	}
}

func TestPutGet(t *testing.T) {
	now := time.Now()
	s := newTestStore(10, pattern.NewTracker(100))

	evicted := s.Put("a", newEntry("a", time.Minute, now), now)
	if len(evicted) != 0 {
		t.Errorf("unexpected eviction on insert into empty store: %v", evicted)
	}

	e, ok := s.Get("a", now)
	if !ok || string(e.Value) != "v" {
		t.Fatal("expected hit for stored key")
	}
	if e.Tier != types.TierFast {
		t.Errorf("entry tier = %v, want fast", e.Tier)
	}

	if _, ok := s.Get("missing", now); ok {
		t.Error("expected miss for unknown key")
	}

	// Probes for keys this tier never held do not count against it; the
	// engine probes all tiers per lookup and owns the overall miss count.
	stats := s.Stats()
	if stats.Hits != 1 || stats.Misses != 0 {
		t.Errorf("hits/misses = %d/%d, want 1/0", stats.Hits, stats.Misses)
	}
}

func TestLazyExpiry(t *testing.T) {
	now := time.Now()
	s := newTestStore(10, pattern.NewTracker(100))

	s.Put("a", newEntry("a", 100*time.Millisecond, now), now)

	// Before expiry: hit. At/after expiry: logically absent and removed.
	if _, ok := s.Get("a", now.Add(50*time.Millisecond)); !ok {
		t.Fatal("entry must be live before expiry")
	}
	if _, ok := s.Get("a", now.Add(150*time.Millisecond)); ok {
		t.Fatal("entry must be absent after expiry, even unswept")
	}
	if s.Len() != 0 {
		t.Error("expired entry must be removed on touch")
	}
	stats := s.Stats()
	if stats.Expired != 1 {
		t.Error("expiry must be counted")
	}
	// An expired touch is a miss this tier owns: it held the entry and
	// failed to serve it.
	if stats.Misses != 1 {
		t.Errorf("misses = %d, want 1 for the expired touch", stats.Misses)
	}
}

func TestCapacityInvariant(t *testing.T) {
	now := time.Now()
	s := newTestStore(100, pattern.NewTracker(100))

	for i := 0; i < 250; i++ {
		key := fmt.Sprintf("k%03d", i)
		s.Put(key, newEntry(key, time.Hour, now), now)
		if s.Len() > s.Capacity() {
			t.Fatalf("size %d exceeds capacity %d after insert %d", s.Len(), s.Capacity(), i)
		}
	}
}

func TestBatchedEvictionEvictsWorstTenPercent(t *testing.T) {
	base := time.Now()
	tracker := pattern.NewTracker(100)
	s := newTestStore(100, tracker)

	// Keys k000..k099; later keys are more recent, so k000..k009 rank worst.
	for i := 0; i < 100; i++ {
		key := fmt.Sprintf("k%03d", i)
		ts := base.Add(time.Duration(i) * time.Minute)
		tracker.Record(key, true, ts)
		e := newEntry(key, 24*time.Hour, ts)
		s.Put(key, e, ts)
	}

	insertAt := base.Add(200 * time.Minute)
	evicted := s.Put("new", newEntry("new", 24*time.Hour, insertAt), insertAt)

	if len(evicted) != 10 {
		t.Fatalf("evicted %d entries, want batch of 10", len(evicted))
	}
	want := map[string]bool{}
	for i := 0; i < 10; i++ {
		want[fmt.Sprintf("k%03d", i)] = true
	}
	for _, key := range evicted {
		if !want[key] {
			t.Errorf("evicted %s, which is not among the 10 lowest-recency keys", key)
		}
	}
	if s.Len() != 91 {
		t.Errorf("len = %d, want 91 after batch eviction plus insert", s.Len())
	}
}

func TestSequentialFillLandsAtCapacity(t *testing.T) {
	now := time.Now()
	s := newTestStore(100, pattern.NewTracker(100))

	for i := 0; i < 110; i++ {
		key := fmt.Sprintf("k%03d", i)
		s.Put(key, newEntry(key, time.Hour, now.Add(time.Duration(i)*time.Second)), now.Add(time.Duration(i)*time.Second))
	}
	if s.Len() != 100 {
		t.Errorf("len = %d, want exactly 100 after 110 sequential inserts", s.Len())
	}
}

func TestEvictionPrefersExpired(t *testing.T) {
	now := time.Now()
	s := newTestStore(10, pattern.NewTracker(100))

	// Fill with nine long-lived entries and one already-expired entry.
	for i := 0; i < 9; i++ {
		key := fmt.Sprintf("live%d", i)
		s.Put(key, newEntry(key, time.Hour, now), now)
	}
	s.Put("dead", newEntry("dead", time.Millisecond, now), now)

	later := now.Add(time.Second)
	evicted := s.Put("new", newEntry("new", time.Hour, later), later)

	found := false
	for _, key := range evicted {
		if key == "dead" {
			found = true
		}
	}
	if !found {
		t.Errorf("expired entry must be evicted first, evicted: %v", evicted)
	}
}

func TestReplaceDoesNotEvict(t *testing.T) {
	now := time.Now()
	s := newTestStore(1, pattern.NewTracker(100))

	s.Put("a", newEntry("a", time.Hour, now), now)
	evicted := s.Put("a", newEntry("a", time.Hour, now), now)
	if len(evicted) != 0 {
		t.Errorf("replacing an existing key must not evict, got %v", evicted)
	}
	if s.Len() != 1 {
		t.Errorf("len = %d, want 1", s.Len())
	}
}

func TestTakeMovesOwnership(t *testing.T) {
	now := time.Now()
	s := newTestStore(10, pattern.NewTracker(100))
	s.Put("a", newEntry("a", time.Hour, now), now)

	e, ok := s.Take("a")
	if !ok || e.Key != "a" {
		t.Fatal("take must return the stored entry")
	}
	if s.Len() != 0 {
		t.Error("take must remove the entry from the store")
	}
	if _, ok := s.Take("a"); ok {
		t.Error("second take must fail")
	}
}

func TestSweepExpired(t *testing.T) {
	now := time.Now()
	s := newTestStore(10, pattern.NewTracker(100))

	s.Put("short", newEntry("short", time.Millisecond, now), now)
	s.Put("long", newEntry("long", time.Hour, now), now)

	expired := s.SweepExpired(now.Add(time.Second))
	if len(expired) != 1 || expired[0] != "short" {
		t.Errorf("swept %v, want [short]", expired)
	}
	if s.Len() != 1 {
		t.Errorf("len = %d, want 1", s.Len())
	}
}

func TestResize(t *testing.T) {
	now := time.Now()
	s := newTestStore(100, pattern.NewTracker(100))
	for i := 0; i < 100; i++ {
		key := fmt.Sprintf("k%03d", i)
		s.Put(key, newEntry(key, time.Hour, now), now)
	}

	// Shrink to 60%: capacity 60, entries evicted down to fit.
	s.Resize(0.6, now)
	if s.Capacity() != 60 {
		t.Errorf("capacity = %d, want 60", s.Capacity())
	}
	if s.Len() > 60 {
		t.Errorf("len = %d, exceeds resized capacity", s.Len())
	}

	// Growth is bounded by maxCapacity.
	s.Resize(100, now)
	if s.Capacity() != 1000 {
		t.Errorf("capacity = %d, want clamped to max 1000", s.Capacity())
	}

	// Shrink is bounded by minCapacity.
	s.Resize(0.000001, now)
	if s.Capacity() != 1 {
		t.Errorf("capacity = %d, want clamped to min 1", s.Capacity())
	}
}

func TestClearResetsStats(t *testing.T) {
	now := time.Now()
	s := newTestStore(10, pattern.NewTracker(100))

	s.Put("a", newEntry("a", time.Hour, now), now)
	s.Get("a", now)
	s.Get("b", now)

	s.Clear()
	if s.Len() != 0 {
		t.Error("clear must empty the store")
	}
	stats := s.Stats()
	if stats.Hits != 0 || stats.Misses != 0 || stats.Evictions != 0 {
		t.Error("clear must reset counters")
	}

	// Idempotent.
	s.Clear()
	if s.Len() != 0 {
		t.Error("second clear must leave the store empty")
	}
}
