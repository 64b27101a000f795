/*
Package types defines the shared data model and the external interface
boundary of the tiercache engine.

The engine consumes four kinds of collaborators through narrow interfaces:

	TierBackend    durable storage for the warm and cold tiers
	Codec          optional value compression
	MetricsSource  periodic system-condition samples
	Predictor      reuse-probability estimation

Everything behind these interfaces is replaceable: the built-in backends
(disk, Redis, S3), the zstd codec, and the runtime metrics sampler are
default implementations, not requirements.

Data model:

	Entry           a cached value owned by exactly one tier
	MetricsSnapshot normalized memory/CPU/battery plus network latency
	CacheStats      per-tier counters
	Statistics      the engine-wide view (size, hit rate, active strategy)
	Snapshot        the versioned persisted-state layout (schema tiercache/v1)

The Clock and Ticker interfaces exist so the engine's background activities
(adaptation, demotion sweep, expiry sweep) can be driven by a fake clock in
tests instead of wall-clock timers.
*/
package types
