package storage

import (
	"context"
	"log/slog"

	"github.com/go-redis/redis/v8"

	"github.com/tiercache/tiercache/pkg/errors"
	"github.com/tiercache/tiercache/pkg/types"
)

const defaultRedisKeyspace = "tiercache:snapshot"

// RedisBackend persists a tier snapshot as a single Redis string value
// under a configurable keyspace. The snapshot format is identical to the
// disk backend's, so tiers can switch backends without migration.
type RedisBackend struct {
	client   *redis.Client
	keyspace string
	logger   *slog.Logger
}

// RedisOptions configures a RedisBackend.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	Keyspace string
}

// NewRedisBackend connects to Redis and verifies the connection.
func NewRedisBackend(ctx context.Context, opts RedisOptions, logger *slog.Logger) (*RedisBackend, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrap(err, errors.ErrCodeBackendUnavailable, "redis ping failed").
			WithComponent("storage").WithDetail("addr", opts.Addr)
	}

	keyspace := opts.Keyspace
	if keyspace == "" {
		keyspace = defaultRedisKeyspace
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &RedisBackend{client: client, keyspace: keyspace, logger: logger}, nil
}

// Load fetches and decodes the snapshot, skipping checksum-mismatched entries.
func (r *RedisBackend) Load(ctx context.Context) (map[string]types.PersistedEntry, error) {
	data, err := r.client.Get(ctx, r.keyspace).Bytes()
	if err == redis.Nil {
		return map[string]types.PersistedEntry{}, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeBackendLoad, "failed to fetch snapshot from redis").
			WithComponent("storage").WithOperation("load")
	}

	snapshot, err := decodeSnapshot(data)
	if err != nil {
		return nil, err
	}

	entries := make(map[string]types.PersistedEntry, len(snapshot.Entries))
	for key, entry := range snapshot.Entries {
		if Checksum(entry.Value) != entry.Checksum {
			r.logger.Warn("dropping snapshot entry with checksum mismatch", "key", key)
			continue
		}
		entries[key] = entry
	}
	return entries, nil
}

// Persist encodes and stores the snapshot. The value has no Redis TTL; the
// engine owns entry expiry.
func (r *RedisBackend) Persist(ctx context.Context, entries map[string]types.PersistedEntry) error {
	data, err := encodeSnapshot(entries)
	if err != nil {
		return err
	}
	if err := r.client.Set(ctx, r.keyspace, data, 0).Err(); err != nil {
		return errors.Wrap(err, errors.ErrCodeBackendPersist, "failed to store snapshot in redis").
			WithComponent("storage").WithOperation("persist")
	}
	return nil
}

// Close releases the Redis connection.
func (r *RedisBackend) Close() error {
	return r.client.Close()
}
