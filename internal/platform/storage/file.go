package storage

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
)

// FileStorage stores each key as a single file under a base directory.
// Writes go through a temp file plus rename so readers never observe a
// half-written value.
type FileStorage struct {
	dir      string
	maxBytes int64
}

var _ Storage = (*FileStorage)(nil)

// NewFileStorage creates a file-backed storage rooted at dir, creating the
// directory if needed. maxBytes caps the size of a single value; zero means
// no quota.
func NewFileStorage(dir string, maxBytes int64) (*FileStorage, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: create dir %s: %w", ErrUnavailable, dir, err)
	}
	return &FileStorage{dir: dir, maxBytes: maxBytes}, nil
}

// path maps a key to a file path. Keys are escaped so arbitrary key strings
// cannot traverse outside the base directory.
func (f *FileStorage) path(key string) string {
	return filepath.Join(f.dir, url.PathEscape(key)+".json")
}

// GetItem returns the value stored under key.
func (f *FileStorage) GetItem(ctx context.Context, key string) ([]byte, error) {
	data, err := os.ReadFile(f.path(key))
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", ErrKeyNotFound, key)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", ErrUnavailable, key, err)
	}
	return data, nil
}

// SetItem stores value under key, enforcing the byte quota if configured.
func (f *FileStorage) SetItem(ctx context.Context, key string, value []byte) error {
	if f.maxBytes > 0 && int64(len(value)) > f.maxBytes {
		return fmt.Errorf("%w: %d bytes exceeds quota of %d", ErrQuotaExceeded, len(value), f.maxBytes)
	}

	target := f.path(key)
	tmp, err := os.CreateTemp(f.dir, ".write-*")
	if err != nil {
		return fmt.Errorf("%w: temp file for %s: %w", ErrUnavailable, key, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(value); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("%w: write %s: %w", ErrUnavailable, key, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: close %s: %w", ErrUnavailable, key, err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: rename %s: %w", ErrUnavailable, key, err)
	}
	return nil
}

// RemoveItem deletes the value under key. Absent keys are ignored.
func (f *FileStorage) RemoveItem(ctx context.Context, key string) error {
	err := os.Remove(f.path(key))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("%w: remove %s: %w", ErrUnavailable, key, err)
	}
	return nil
}

// Close is a no-op for file storage.
func (f *FileStorage) Close() error { return nil }
