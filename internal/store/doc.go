// Package store defines interfaces for task persistence operations.
// These interfaces abstract the underlying storage mechanism from the
// application's core logic: the service layer depends only on TaskStore
// (plus the optional Flushable capability), leaving business rules
// independent of whether tasks live in memory, a file, or SQLite.
//
// The package also defines the storage-health Notification types that
// durable implementations raise as a side channel instead of errors.
package store
