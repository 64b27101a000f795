package storage

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tiercache/tiercache/pkg/errors"
	"github.com/tiercache/tiercache/pkg/types"
)

func sampleEntries() map[string]types.PersistedEntry {
	now := time.Now().Truncate(time.Second)
	value := []byte("cached value")
	return map[string]types.PersistedEntry{
		"user:1": {
			Key:       "user:1",
			Value:     value,
			CreatedAt: now,
			TTL:       time.Minute,
			ExpiresAt: now.Add(time.Minute),
			Category:  types.CategoryUserData,
			Checksum:  Checksum(value),
		},
	}
}

func TestDiskPersistLoad(t *testing.T) {
	backend, err := NewDiskBackend(t.TempDir(), nil)
	require.NoError(t, err)

	entries := sampleEntries()
	require.NoError(t, backend.Persist(context.Background(), entries))

	loaded, err := backend.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, entries["user:1"].Value, loaded["user:1"].Value)
	assert.Equal(t, types.CategoryUserData, loaded["user:1"].Category)
}

func TestDiskLoadFreshDirectory(t *testing.T) {
	backend, err := NewDiskBackend(t.TempDir(), nil)
	require.NoError(t, err)

	loaded, err := backend.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, loaded)
}

func TestDiskLoadRejectsUnknownSchema(t *testing.T) {
	dir := t.TempDir()
	backend, err := NewDiskBackend(dir, nil)
	require.NoError(t, err)

	snapshot := types.Snapshot{Schema: "tiercache/v99", Entries: map[string]types.PersistedEntry{}}
	data, err := json.Marshal(snapshot)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, snapshotFile), data, 0600))

	_, err = backend.Load(context.Background())
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeSchemaMismatch, errors.CodeOf(err))
}

func TestDiskLoadSkipsCorruptedEntries(t *testing.T) {
	dir := t.TempDir()
	backend, err := NewDiskBackend(dir, nil)
	require.NoError(t, err)

	entries := sampleEntries()
	corrupted := entries["user:1"]
	corrupted.Key = "corrupt"
	corrupted.Checksum = "deadbeef"
	entries["corrupt"] = corrupted
	require.NoError(t, backend.Persist(context.Background(), entries))

	loaded, err := backend.Load(context.Background())
	require.NoError(t, err)
	assert.Contains(t, loaded, "user:1")
	assert.NotContains(t, loaded, "corrupt", "checksum mismatch must drop the entry")
}

func TestDiskPersistIsAtomic(t *testing.T) {
	dir := t.TempDir()
	backend, err := NewDiskBackend(dir, nil)
	require.NoError(t, err)

	require.NoError(t, backend.Persist(context.Background(), sampleEntries()))
	require.NoError(t, backend.Persist(context.Background(), map[string]types.PersistedEntry{}))

	// No temp file left behind after a successful rename.
	_, err = os.Stat(filepath.Join(dir, snapshotFile+".tmp"))
	assert.True(t, os.IsNotExist(err))

	loaded, err := backend.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, loaded)
}

func TestChecksumStable(t *testing.T) {
	a := Checksum([]byte("payload"))
	b := Checksum([]byte("payload"))
	c := Checksum([]byte("different"))
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}
