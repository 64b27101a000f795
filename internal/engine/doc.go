/*
Package engine implements the cache orchestrator that ties the tier stores,
access-pattern tracker, eviction scorer, strategy controller, and TTL
calculator into one public surface.

The engine is the sole mutator of all cache state. Foreground operations
(Get, Set, Delete, Clear) and the background ticks (strategy adaptation,
demotion/expiry sweep, persistence) serialize behind a single mutex, so no
caller ever observes a half-applied eviction or tier move. Every other
component is a pure function of the state the engine hands it.

Get and Set never return errors: backend failures degrade the affected tier
to memory-only operation, codec failures fall back to uncompressed values,
and a missing metrics snapshot just skips strategy changes.
*/
package engine
