package storage

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/tiercache/tiercache/pkg/errors"
	"github.com/tiercache/tiercache/pkg/types"
)

const snapshotFile = "snapshot.json"

// DiskBackend persists a tier snapshot as a single JSON file with per-entry
// sha256 checksums. Writes go through a temp file and an atomic rename so a
// crash mid-persist never corrupts the last good snapshot.
type DiskBackend struct {
	directory string
	logger    *slog.Logger
}

// NewDiskBackend creates a disk backend rooted at directory.
func NewDiskBackend(directory string, logger *slog.Logger) (*DiskBackend, error) {
	if err := os.MkdirAll(directory, 0750); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeBackendUnavailable, "failed to create snapshot directory").
			WithComponent("storage").WithDetail("directory", directory)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &DiskBackend{directory: directory, logger: logger}, nil
}

// Load reads the snapshot, validating the schema tag and each entry's
// checksum. Corrupted entries are skipped, not fatal: a partial cache is
// better than none.
func (d *DiskBackend) Load(ctx context.Context) (map[string]types.PersistedEntry, error) {
	path := filepath.Join(d.directory, snapshotFile)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]types.PersistedEntry{}, nil // fresh start
		}
		return nil, errors.Wrap(err, errors.ErrCodeBackendLoad, "failed to read snapshot").
			WithComponent("storage").WithOperation("load")
	}

	snapshot, err := decodeSnapshot(data)
	if err != nil {
		return nil, err
	}

	entries := make(map[string]types.PersistedEntry, len(snapshot.Entries))
	for key, entry := range snapshot.Entries {
		if Checksum(entry.Value) != entry.Checksum {
			d.logger.Warn("dropping snapshot entry with checksum mismatch", "key", key)
			continue
		}
		entries[key] = entry
	}
	return entries, nil
}

// Persist writes the snapshot atomically.
func (d *DiskBackend) Persist(ctx context.Context, entries map[string]types.PersistedEntry) error {
	data, err := encodeSnapshot(entries)
	if err != nil {
		return err
	}

	path := filepath.Join(d.directory, snapshotFile)
	tmpPath := path + ".tmp"

	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return errors.Wrap(err, errors.ErrCodeBackendPersist, "failed to write snapshot").
			WithComponent("storage").WithOperation("persist")
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return errors.Wrap(err, errors.ErrCodeBackendPersist, "failed to replace snapshot").
			WithComponent("storage").WithOperation("persist")
	}
	return nil
}

// Close is a no-op for the disk backend.
func (d *DiskBackend) Close() error {
	return nil
}

// Checksum returns the hex sha256 digest used to validate persisted values.
func Checksum(data []byte) string {
	return fmt.Sprintf("%x", sha256.Sum256(data))
}

func encodeSnapshot(entries map[string]types.PersistedEntry) ([]byte, error) {
	snapshot := types.Snapshot{
		Schema:  types.SnapshotSchema,
		SavedAt: time.Now(),
		Entries: entries,
	}
	data, err := json.Marshal(snapshot)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeBackendPersist, "failed to encode snapshot").
			WithComponent("storage")
	}
	return data, nil
}

func decodeSnapshot(data []byte) (*types.Snapshot, error) {
	var snapshot types.Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeBackendLoad, "failed to decode snapshot").
			WithComponent("storage")
	}
	if snapshot.Schema != types.SnapshotSchema {
		return nil, errors.Newf(errors.ErrCodeSchemaMismatch, "unsupported snapshot schema %q (want %q)",
			snapshot.Schema, types.SnapshotSchema).WithComponent("storage")
	}
	if snapshot.Entries == nil {
		snapshot.Entries = map[string]types.PersistedEntry{}
	}
	return &snapshot, nil
}
