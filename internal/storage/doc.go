/*
Package storage provides the durable TierBackend implementations consumed
by the warm and cold tiers.

All backends share one snapshot format: a JSON-encoded types.Snapshot
carrying the tiercache/v1 schema tag and per-entry sha256 checksums. The
schema tag is validated on load so an incompatible snapshot fails loudly
instead of silently feeding garbage into the cache; checksum-mismatched
entries are skipped individually.

Three implementations are provided:

  - DiskBackend: a local file written via temp-file-plus-rename, suited to
    the warm tier on a single host.
  - RedisBackend: the snapshot stored under one Redis key, for warm tiers
    shared across process restarts.
  - S3Backend: the snapshot stored as one S3 object, for the cold/archival
    tier.

A tier whose backend fails degrades to memory-only operation; backend
errors never propagate to cache callers.
*/
package storage
