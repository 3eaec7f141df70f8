package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"  validate:"required"`
	Storage StorageConfig `mapstructure:"storage" validate:"required"`
	Events  EventsConfig  `mapstructure:"events"`
	Runtime RuntimeConfig `mapstructure:"runtime" validate:"required"`
}

// ServerConfig contains all HTTP server related settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port"      validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// StorageConfig selects and tunes the durable storage backend.
type StorageConfig struct {
	// Backend picks the key-value backend: "file", "sqlite", or "memory"
	// (memory keeps nothing across restarts and is intended for tests).
	Backend string `mapstructure:"backend" validate:"required,oneof=file sqlite memory"`

	// Path is the data directory (file backend) or database file (sqlite
	// backend). Unused for memory.
	Path string `mapstructure:"path"`

	// Key is the storage key holding the task snapshot.
	Key string `mapstructure:"key" validate:"required"`

	// MaxBytes caps a single stored value; zero disables the quota.
	MaxBytes int64 `mapstructure:"max_bytes" validate:"gte=0"`

	// CoalesceWindowMS batches rapid writes; zero uses the default,
	// negative writes synchronously.
	CoalesceWindowMS int `mapstructure:"coalesce_window_ms"`
}

// CoalesceWindow returns the write-coalescing window as a duration.
func (c StorageConfig) CoalesceWindow() time.Duration {
	return time.Duration(c.CoalesceWindowMS) * time.Millisecond
}

// EventsConfig tunes the event bus.
type EventsConfig struct {
	// FlushDelayMS is the batch auto-flush delay; zero uses the default.
	FlushDelayMS int `mapstructure:"flush_delay_ms" validate:"gte=0"`

	// MaxBatchSize flushes the batch early once reached; zero uses the
	// default.
	MaxBatchSize int `mapstructure:"max_batch_size" validate:"gte=0"`

	// Immediate disables batching entirely.
	Immediate bool `mapstructure:"immediate"`
}

// FlushDelay returns the batch flush delay as a duration.
func (c EventsConfig) FlushDelay() time.Duration {
	return time.Duration(c.FlushDelayMS) * time.Millisecond
}

// RuntimeConfig selects the composition environment.
type RuntimeConfig struct {
	// Environment is "test", "development", or "production". It decides
	// the repository wiring and the timestamp/batching behavior.
	Environment string `mapstructure:"environment" validate:"required,oneof=test development production"`
}
