package types

import (
	"context"
	"time"
)

// TierBackend is the durable storage consumed by the warm and cold tiers.
// The fast tier has no backend. Load is called once at startup, Persist on
// the persistence tick and on shutdown. Implementations must respect the
// context deadline; the engine degrades a tier to memory-only when its
// backend is unavailable.
type TierBackend interface {
	Load(ctx context.Context) (map[string]PersistedEntry, error)
	Persist(ctx context.Context, entries map[string]PersistedEntry) error
	Close() error
}

// Codec compresses values before they are stored. Compress returns the
// compressed bytes and true, or the input untouched and false when
// compression is not worthwhile. A codec failure never fails the cache call;
// the engine falls back to the uncompressed value.
type Codec interface {
	Compress(data []byte) ([]byte, bool)
	Decompress(data []byte) ([]byte, error)
	Name() string
}

// MetricsSource supplies system-condition samples, pulled once per
// adaptation tick. Sample must return within the context deadline or the
// engine reuses the last known snapshot marked stale.
type MetricsSource interface {
	Sample(ctx context.Context) (MetricsSnapshot, error)
}

// Predictor estimates the probability that a key is accessed again soon.
// The default implementation is a frequency/recency heuristic; a trained
// model can be substituted without touching the engine.
type Predictor interface {
	RecordAccess(key string, at time.Time)
	PredictReuse(key string, now time.Time) float64
}

// Clock abstracts wall-clock reads and tickers so background scheduling can
// be stepped deterministically in tests.
type Clock interface {
	Now() time.Time
	NewTicker(d time.Duration) Ticker
}

// Ticker is the subset of time.Ticker the scheduler relies on.
type Ticker interface {
	Chan() <-chan time.Time
	Stop()
}
