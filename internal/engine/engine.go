package engine

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/tiercache/tiercache/internal/config"
	"github.com/tiercache/tiercache/internal/metrics"
	"github.com/tiercache/tiercache/internal/pattern"
	"github.com/tiercache/tiercache/internal/scoring"
	"github.com/tiercache/tiercache/internal/storage"
	"github.com/tiercache/tiercache/internal/strategy"
	"github.com/tiercache/tiercache/internal/tier"
	"github.com/tiercache/tiercache/pkg/errors"
	"github.com/tiercache/tiercache/pkg/types"
)

// Engine is the cache orchestrator: it owns the tier stores, the pattern
// tracker, and the strategy state, and is their sole mutator. Every instance
// is independent; there is no shared global state.
type Engine struct {
	mu sync.Mutex

	cfg        *config.Configuration
	clock      types.Clock
	logger     *slog.Logger
	stores     [types.NumTiers]*tier.Store
	backends   map[types.Tier]types.TierBackend
	tracker    *pattern.Tracker
	predictor  types.Predictor
	controller *strategy.Controller
	mover      *mover
	codec      types.Codec
	source     types.MetricsSource
	collector  *metrics.Collector

	// lastMetrics is the most recent system snapshot; reused (marked stale)
	// when the source fails to deliver a fresh one in time.
	lastMetrics types.MetricsSnapshot

	hits              uint64
	misses            uint64
	promotions        uint64
	demotions         uint64
	adaptations       uint64
	failedAdaptations uint64

	started bool
	closed  bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// Options supplies the engine's pluggable collaborators. Every field is
// optional; zero values select the built-in defaults.
type Options struct {
	Clock     types.Clock
	Codec     types.Codec
	Metrics   types.MetricsSource
	Collector *metrics.Collector
	Predictor types.Predictor
	Backends  map[types.Tier]types.TierBackend
	Logger    *slog.Logger
}

// SetOptions customizes a single Set call. A positive TTL bypasses the
// adaptive calculator entirely; Priority outside 1..10 and an empty
// Category are derived from the key and its history.
type SetOptions struct {
	TTL      time.Duration
	Priority int
	Category types.Category
}

// New builds an engine from a validated configuration. Configuration
// validation failures are the only fatal errors in the system.
func New(cfg *config.Configuration, opts Options) (*Engine, error) {
	if cfg == nil {
		cfg = config.NewDefault()
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeConfigValidation, "invalid configuration").
			WithComponent("engine")
	}

	e := &Engine{
		cfg:        cfg,
		clock:      opts.Clock,
		logger:     opts.Logger,
		backends:   opts.Backends,
		tracker:    pattern.NewTracker(cfg.Patterns.MaxSamples),
		controller: strategy.NewController(cfg.Strategy.AdaptationInterval),
		codec:      opts.Codec,
		source:     opts.Metrics,
		collector:  opts.Collector,
		stopCh:     make(chan struct{}),
	}
	if e.clock == nil {
		e.clock = realClock{}
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	if e.collector == nil {
		collector, err := metrics.NewCollector(cfg.Monitoring.Metrics.Namespace)
		if err != nil {
			return nil, err
		}
		e.collector = collector
	}
	e.predictor = opts.Predictor
	if e.predictor == nil {
		e.predictor = pattern.NewHeuristicPredictor(e.tracker)
	}
	e.mover = &mover{
		promoteThreshold: int64(cfg.Promotion.PromoteThreshold),
		demoteThreshold:  int64(cfg.Promotion.DemoteThreshold),
		predictor:        e.predictor,
	}

	rank := func(entries []*types.Entry, now time.Time) []scoring.Candidate {
		return scoring.Rank(entries, e.tracker.Get, e.controller.Current(), now)
	}
	tierCfgs := map[types.Tier]config.TierConfig{
		types.TierFast: cfg.Tiers.Fast,
		types.TierWarm: cfg.Tiers.Warm,
		types.TierCold: cfg.Tiers.Cold,
	}
	for t, tc := range tierCfgs {
		e.stores[t] = tier.NewStore(t, tc.Capacity, tc.MinCapacity, tc.MaxCapacity, rank)
	}

	e.collector.SetStrategy(e.controller.Current().String(), strategy.Names())
	return e, nil
}

// Start restores durable tiers from their backends and launches the
// background scheduler. It may be called once.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return errors.New(errors.ErrCodeEngineClosed, "engine is closed").WithComponent("engine")
	}
	if e.started {
		e.mu.Unlock()
		return errors.New(errors.ErrCodeAlreadyStarted, "engine already started").WithComponent("engine")
	}
	e.started = true
	e.mu.Unlock()

	e.restoreTiers(ctx)

	e.wg.Add(1)
	go e.run()
	return nil
}

// Close stops background work, persists durable tiers one last time, and
// releases the backends. Idempotent.
func (e *Engine) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	started := e.started
	e.mu.Unlock()

	if started {
		close(e.stopCh)
		e.wg.Wait()
	}

	e.persistTiers(context.Background())
	for t, backend := range e.backends {
		if err := backend.Close(); err != nil {
			e.logger.Warn("backend close failed", "tier", t.String(), "error", err)
		}
	}
	return nil
}

// Get returns the value for key, probing tiers fast to cold and stopping at
// the first live hit. A hit below the fast tier may promote the entry one
// tier up. Internal failures degrade to a miss; Get never returns an error.
func (e *Engine) Get(key string) ([]byte, bool) {
	now := e.clock.Now()

	e.mu.Lock()
	defer e.mu.Unlock()
	defer func() { e.collector.ObserveOperation("get", e.clock.Now().Sub(now)) }()

	if e.closed {
		return nil, false
	}

	for t := types.TierFast; t <= types.TierCold; t++ {
		entry, ok := e.stores[t].Get(key, now)
		if !ok {
			continue
		}

		value, err := e.decodeValue(entry)
		if err != nil {
			// The stored bytes are unrecoverable; drop the entry and report
			// a miss rather than surface the failure.
			e.logger.Warn("failed to decompress cached value, dropping entry",
				"key", key, "tier", t.String(), "error", err)
			e.stores[t].Remove(key)
			break
		}

		entry.AccessCount++
		entry.LastAccessAt = now
		e.tracker.Record(key, true, now)
		e.predictor.RecordAccess(key, now)
		e.hits++
		e.collector.RecordHit(t)

		if move, ok := e.mover.maybePromote(entry); ok {
			e.applyMoveLocked(move, now)
		}
		return value, true
	}

	e.tracker.Record(key, false, now)
	e.misses++
	e.collector.RecordMiss()
	return nil, false
}

// Set stores value under key in the fast tier, evicting as needed. It
// reports success and never returns an error; only an empty key or a closed
// engine fails.
func (e *Engine) Set(key string, value []byte, opts SetOptions) bool {
	if key == "" {
		return false
	}
	now := e.clock.Now()

	e.mu.Lock()
	defer e.mu.Unlock()
	defer func() { e.collector.ObserveOperation("set", e.clock.Now().Sub(now)) }()

	if e.closed {
		return false
	}

	active := e.controller.Current()
	category := opts.Category
	if category == "" {
		category = deriveCategory(key)
	}

	ttl := opts.TTL
	if ttl <= 0 {
		ttl = strategy.ComputeTTL(e.cfg.Engine.DefaultTTL, category, active, e.lastMetrics)
	}

	stored, compressed := e.encodeValue(value, active)

	priority := opts.Priority
	if priority < 1 || priority > 10 {
		priority = derivePriority(int64(len(stored)), category, e.tracker.Get(key), now)
	}

	entry := &types.Entry{
		Key:          key,
		Value:        stored,
		Size:         int64(len(stored)),
		CreatedAt:    now,
		LastAccessAt: now,
		TTL:          ttl,
		ExpiresAt:    now.Add(ttl),
		AccessCount:  1,
		Priority:     priority,
		Category:     category,
		Compressed:   compressed,
	}

	// A key lives in exactly one tier; writes land in the fast tier, so any
	// copy on a slower tier is removed first.
	for t := types.TierWarm; t <= types.TierCold; t++ {
		e.stores[t].Remove(key)
	}

	evicted := e.stores[types.TierFast].Put(key, entry, now)
	if n := len(evicted); n > 0 {
		e.collector.RecordEviction(types.TierFast, n)
	}

	e.tracker.Record(key, true, now)
	e.predictor.RecordAccess(key, now)
	return true
}

// Delete removes key from every tier and drops its access history.
// Idempotent; reports whether anything was removed.
func (e *Engine) Delete(key string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	removed := false
	for t := types.TierFast; t <= types.TierCold; t++ {
		if e.stores[t].Remove(key) {
			removed = true
		}
	}
	e.tracker.Forget(key)
	return removed
}

// Clear empties every tier, drops all access history, and resets counters.
// Idempotent.
func (e *Engine) Clear() {
	e.mu.Lock()
	defer e.mu.Unlock()

	for t := types.TierFast; t <= types.TierCold; t++ {
		e.stores[t].Clear()
	}
	e.tracker.Clear()
	e.hits = 0
	e.misses = 0
	e.promotions = 0
	e.demotions = 0
	e.adaptations = 0
	e.failedAdaptations = 0
}

// Statistics returns an engine-wide snapshot of sizes, rates, and counters.
func (e *Engine) Statistics() types.Statistics {
	e.mu.Lock()
	defer e.mu.Unlock()

	stats := types.Statistics{
		Hits:              e.hits,
		Misses:            e.misses,
		CurrentStrategy:   e.controller.Current().String(),
		TierStats:         make(map[string]types.CacheStats, types.NumTiers),
		Promotions:        e.promotions,
		Demotions:         e.demotions,
		Adaptations:       e.adaptations,
		FailedAdaptations: e.failedAdaptations,
		TrackedPatterns:   e.tracker.Len(),
	}

	for t := types.TierFast; t <= types.TierCold; t++ {
		ts := e.stores[t].Stats()
		stats.TierStats[t.String()] = ts
		stats.Size += ts.Entries
		stats.Capacity += ts.Capacity
	}
	if total := stats.Hits + stats.Misses; total > 0 {
		stats.HitRate = float64(stats.Hits) / float64(total)
	}
	if stats.Capacity > 0 {
		stats.Utilization = float64(stats.Size) / float64(stats.Capacity)
	}
	return stats
}

// MetricsHandler exposes the Prometheus registry for HTTP wrappers.
func (e *Engine) MetricsHandler() *metrics.Collector {
	return e.collector
}

// applyMoveLocked moves an entry between tiers. The source and target
// stores are both owned by the engine, so the move is atomic under e.mu.
func (e *Engine) applyMoveLocked(move types.TierMove, now time.Time) {
	entry, ok := e.stores[move.From].Take(move.Key)
	if !ok {
		return
	}

	evicted := e.stores[move.To].Put(move.Key, entry, now)
	if n := len(evicted); n > 0 {
		e.collector.RecordEviction(move.To, n)
	}

	if move.To < move.From {
		e.promotions++
		e.collector.RecordPromotion()
	} else {
		e.demotions++
		e.collector.RecordDemotion()
	}
}

// encodeValue compresses the value when the codec is configured, the value
// clears the size threshold, and the active strategy trades CPU for space.
func (e *Engine) encodeValue(value []byte, active strategy.Strategy) ([]byte, bool) {
	if e.codec == nil || !e.cfg.Compression.Enabled {
		return value, false
	}
	if int64(len(value)) < e.cfg.Compression.MinSize {
		return value, false
	}
	if active != strategy.Memory && active != strategy.Battery {
		return value, false
	}
	return e.codec.Compress(value)
}

func (e *Engine) decodeValue(entry *types.Entry) ([]byte, error) {
	if !entry.Compressed {
		return entry.Value, nil
	}
	if e.codec == nil {
		return nil, errors.New(errors.ErrCodeCodecFailure, "compressed entry but no codec configured").
			WithComponent("engine")
	}
	return e.codec.Decompress(entry.Value)
}

// restoreTiers loads the warm and cold stores from their backends. A failing
// backend degrades its tier to memory-only operation.
func (e *Engine) restoreTiers(ctx context.Context) {
	now := e.clock.Now()
	for t, backend := range e.backends {
		loadCtx, cancel := context.WithTimeout(ctx, e.cfg.Storage.BackendTimeout)
		persisted, err := backend.Load(loadCtx)
		cancel()
		if err != nil {
			e.logger.Warn("tier backend load failed, tier starts empty",
				"tier", t.String(), "error", err)
			continue
		}

		e.mu.Lock()
		restored := 0
		for key, pe := range persisted {
			if !now.Before(pe.ExpiresAt) {
				continue
			}
			entry := &types.Entry{
				Key:          key,
				Value:        pe.Value,
				Size:         int64(len(pe.Value)),
				CreatedAt:    pe.CreatedAt,
				LastAccessAt: pe.CreatedAt,
				TTL:          pe.TTL,
				ExpiresAt:    pe.ExpiresAt,
				Priority:     derivePriority(int64(len(pe.Value)), pe.Category, nil, now),
				Category:     pe.Category,
				Compressed:   pe.Compressed,
			}
			e.stores[t].Put(key, entry, now)
			restored++
		}
		e.mu.Unlock()
		e.logger.Info("tier restored from backend", "tier", t.String(), "entries", restored)
	}
}

// persistTiers snapshots the durable tiers to their backends.
func (e *Engine) persistTiers(ctx context.Context) {
	now := e.clock.Now()
	for t, backend := range e.backends {
		e.mu.Lock()
		snapshot := e.stores[t].Snapshot()
		out := make(map[string]types.PersistedEntry, len(snapshot))
		for _, entry := range snapshot {
			if entry.Expired(now) {
				continue
			}
			out[entry.Key] = types.PersistedEntry{
				Key:        entry.Key,
				Value:      entry.Value,
				CreatedAt:  entry.CreatedAt,
				TTL:        entry.TTL,
				ExpiresAt:  entry.ExpiresAt,
				Category:   entry.Category,
				Compressed: entry.Compressed,
				Checksum:   storage.Checksum(entry.Value),
			}
		}
		e.mu.Unlock()

		persistCtx, cancel := context.WithTimeout(ctx, e.cfg.Storage.BackendTimeout)
		err := backend.Persist(persistCtx, out)
		cancel()
		if err != nil {
			e.logger.Warn("tier backend persist failed", "tier", t.String(), "error", err)
		}
	}
}
