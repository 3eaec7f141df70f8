// Package storage provides the key-value backends used by the durable task
// store. A Storage holds opaque byte payloads addressed by string keys in a
// flat keyspace: whole values are written and read atomically, and removal
// of absent keys is not an error.
package storage

import (
	"context"
	"errors"
)

// Common storage errors.
var (
	// ErrKeyNotFound is returned by GetItem when no value exists for the key.
	ErrKeyNotFound = errors.New("storage key not found")

	// ErrQuotaExceeded is returned by SetItem when the value would exceed
	// the configured byte quota.
	ErrQuotaExceeded = errors.New("storage quota exceeded")

	// ErrUnavailable is returned when the backing medium cannot be used at
	// all (unwritable directory, closed database, ...).
	ErrUnavailable = errors.New("storage unavailable")
)

// Storage is a flat key-value byte store.
type Storage interface {
	// GetItem returns the value stored under key.
	// Returns ErrKeyNotFound if the key has no value.
	GetItem(ctx context.Context, key string) ([]byte, error)

	// SetItem stores value under key, replacing any previous value.
	SetItem(ctx context.Context, key string, value []byte) error

	// RemoveItem deletes the value under key. Removing an absent key is
	// not an error.
	RemoveItem(ctx context.Context, key string) error

	// Close releases any resources held by the storage.
	Close() error
}
