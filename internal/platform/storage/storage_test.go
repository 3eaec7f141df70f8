package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// backends under test share one behavioral contract, so the suite runs
// against both.
func openBackends(t *testing.T) map[string]Storage {
	t.Helper()

	fileStore, err := NewFileStorage(t.TempDir(), 0)
	require.NoError(t, err)

	sqliteStore, err := NewSQLiteStorage(filepath.Join(t.TempDir(), "storage.db"), 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqliteStore.Close() })

	return map[string]Storage{
		"file":   fileStore,
		"sqlite": sqliteStore,
	}
}

func TestStorageRoundTrip(t *testing.T) {
	ctx := context.Background()

	for name, s := range openBackends(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, s.SetItem(ctx, "tasks", []byte(`[{"id":"x"}]`)))

			got, err := s.GetItem(ctx, "tasks")
			require.NoError(t, err)
			assert.Equal(t, []byte(`[{"id":"x"}]`), got)

			// Overwrite replaces the whole value.
			require.NoError(t, s.SetItem(ctx, "tasks", []byte(`[]`)))
			got, err = s.GetItem(ctx, "tasks")
			require.NoError(t, err)
			assert.Equal(t, []byte(`[]`), got)
		})
	}
}

func TestStorageMissingKey(t *testing.T) {
	ctx := context.Background()

	for name, s := range openBackends(t) {
		t.Run(name, func(t *testing.T) {
			_, err := s.GetItem(ctx, "nope")
			assert.ErrorIs(t, err, ErrKeyNotFound)
		})
	}
}

func TestStorageRemoveItem(t *testing.T) {
	ctx := context.Background()

	for name, s := range openBackends(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, s.SetItem(ctx, "k", []byte("v")))
			require.NoError(t, s.RemoveItem(ctx, "k"))

			_, err := s.GetItem(ctx, "k")
			assert.ErrorIs(t, err, ErrKeyNotFound)

			// Removing an absent key is not an error.
			assert.NoError(t, s.RemoveItem(ctx, "k"))
		})
	}
}

func TestStorageQuota(t *testing.T) {
	ctx := context.Background()

	fileStore, err := NewFileStorage(t.TempDir(), 8)
	require.NoError(t, err)

	sqliteStore, err := NewSQLiteStorage(filepath.Join(t.TempDir(), "q.db"), 8)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqliteStore.Close() })

	for name, s := range map[string]Storage{"file": fileStore, "sqlite": sqliteStore} {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, s.SetItem(ctx, "small", []byte("12345678")))

			err := s.SetItem(ctx, "big", []byte("123456789"))
			assert.ErrorIs(t, err, ErrQuotaExceeded)

			// The oversized write must not land.
			_, err = s.GetItem(ctx, "big")
			assert.ErrorIs(t, err, ErrKeyNotFound)
		})
	}
}

func TestFileStorageKeyEscaping(t *testing.T) {
	ctx := context.Background()

	dir := t.TempDir()
	s, err := NewFileStorage(dir, 0)
	require.NoError(t, err)

	// A key with separators must stay inside the base directory.
	require.NoError(t, s.SetItem(ctx, "../escape/attempt", []byte("v")))

	got, err := s.GetItem(ctx, "../escape/attempt")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)

	entries, err := filepath.Glob(filepath.Join(dir, "*"))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestSQLiteStoragePersistsAcrossOpens(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "persist.db")

	s, err := NewSQLiteStorage(dbPath, 0)
	require.NoError(t, err)
	require.NoError(t, s.SetItem(ctx, "tasks", []byte(`["a"]`)))
	require.NoError(t, s.Close())

	reopened, err := NewSQLiteStorage(dbPath, 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = reopened.Close() })

	got, err := reopened.GetItem(ctx, "tasks")
	require.NoError(t, err)
	assert.Equal(t, []byte(`["a"]`), got)
}
