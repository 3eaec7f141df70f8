// Package localstore implements the durable TaskStore: a snapshot of the
// whole task set is kept under one storage key as a JSON array, fronted by
// an in-memory working set. Writes are coalesced, corrupted payloads are
// discarded wholesale, and an unusable backend degrades silently to the
// in-memory working set with side-channel notifications.
package localstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/taskman-api/internal/domain"
	"github.com/phrazzld/taskman-api/internal/platform/memory"
	"github.com/phrazzld/taskman-api/internal/platform/storage"
	"github.com/phrazzld/taskman-api/internal/store"
)

// DefaultKey is the storage key holding the serialized task snapshot.
const DefaultKey = "task-manager-tasks"

// DefaultCoalesceWindow is how long rapid mutations are batched before a
// single serialize-and-write.
const DefaultCoalesceWindow = 50 * time.Millisecond

// probeKey is written and removed at construction to detect whether the
// backend is usable.
const probeKey = "task-manager-probe"

// Options configures a durable TaskStore.
type Options struct {
	// Key is the storage key for the snapshot. Defaults to DefaultKey.
	Key string

	// CoalesceWindow is the write-coalescing delay. Defaults to
	// DefaultCoalesceWindow. Negative disables coalescing (every mutation
	// writes synchronously).
	CoalesceWindow time.Duration

	// Notify receives storage-health notifications. May be nil.
	Notify store.NotifyFunc

	// Logger is the structured logger. May be nil.
	Logger *slog.Logger
}

// TaskStore is the durable store.TaskStore implementation.
//
// All state is guarded by one mutex, so the in-memory working set and the
// snapshot write are serialized: the "last full snapshot wins" policy of
// the persisted format cannot lose a mutation to a stale cache read.
type TaskStore struct {
	mu      sync.Mutex
	backend storage.Storage
	key     string
	window  time.Duration
	logger  *slog.Logger
	notify  store.NotifyFunc

	working *memory.TaskStore // in-memory working set (cache and fallback)
	loaded  bool              // working set hydrated from storage

	available        bool
	fallbackNotified bool // fallback-activated fires once per session
	dirty            bool
	timer            *time.Timer
}

// Interface compliance, including the flush capability.
var (
	_ store.TaskStore = (*TaskStore)(nil)
	_ store.Flushable = (*TaskStore)(nil)
)

// New creates a durable TaskStore over the given backend. The backend's
// usability is probed immediately; an unusable backend is not an error,
// the store silently starts in fallback mode and raises a notification.
func New(backend storage.Storage, opts Options) (*TaskStore, error) {
	if backend == nil {
		return nil, errors.New("localstore: backend cannot be nil")
	}

	key := opts.Key
	if key == "" {
		key = DefaultKey
	}
	window := opts.CoalesceWindow
	if window == 0 {
		window = DefaultCoalesceWindow
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &TaskStore{
		backend: backend,
		key:     key,
		window:  window,
		logger:  logger.With(slog.String("component", "localstore")),
		notify:  opts.Notify,
		working: memory.NewTaskStore(),
	}

	s.available = s.probe(context.Background())
	if !s.available {
		s.logger.Warn("storage backend unavailable at construction")
		s.raise(store.NotificationUnavailable, "availability probe failed")
	}

	return s, nil
}

// probe attempts a trivial write+delete to detect backend usability.
func (s *TaskStore) probe(ctx context.Context) bool {
	if err := s.backend.SetItem(ctx, probeKey, []byte("1")); err != nil {
		return false
	}
	if err := s.backend.RemoveItem(ctx, probeKey); err != nil {
		return false
	}
	return true
}

// raise sends a notification if a sink is registered.
func (s *TaskStore) raise(t store.NotificationType, details string) {
	if s.notify == nil {
		return
	}
	s.notify(store.NewNotification(t, details))
}

// Save upserts a task and schedules a coalesced snapshot write.
func (s *TaskStore) Save(ctx context.Context, task *domain.Task) (*domain.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureLoaded(ctx); err != nil {
		return nil, err
	}

	saved, err := s.working.Save(ctx, task)
	if err != nil {
		return nil, err
	}

	s.scheduleWrite(ctx)
	return saved, nil
}

// GetByID retrieves a task by ID.
func (s *TaskStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureLoaded(ctx); err != nil {
		return nil, err
	}
	return s.working.GetByID(ctx, id)
}

// List returns all tasks ordered by CreatedAt ascending.
func (s *TaskStore) List(ctx context.Context) ([]*domain.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureLoaded(ctx); err != nil {
		return nil, err
	}
	return s.working.List(ctx)
}

// Delete removes a task and schedules a coalesced snapshot write.
// Returns store.ErrTaskNotFound if the task does not exist.
func (s *TaskStore) Delete(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureLoaded(ctx); err != nil {
		return err
	}

	if err := s.working.Delete(ctx, id); err != nil {
		return err
	}

	s.scheduleWrite(ctx)
	return nil
}

// Clear removes all tasks. Clearing is treated as critical: the snapshot
// write happens immediately, bypassing coalescing.
func (s *TaskStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureLoaded(ctx); err != nil {
		return err
	}

	if err := s.working.Clear(ctx); err != nil {
		return err
	}

	s.dirty = true
	s.flushLocked(ctx)
	return nil
}

// Flush forces any pending coalesced write to execute now.
func (s *TaskStore) Flush(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.flushLocked(ctx)
	return nil
}

// RefreshAvailability re-probes the backend. On a transition from
// unavailable to available the working set is invalidated (the next
// operation reloads from storage) and a storage-restored notification
// fires. Returns the current availability.
func (s *TaskStore) RefreshAvailability(ctx context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	was := s.available
	s.available = s.probe(ctx)

	if !was && s.available {
		s.logger.Info("storage backend restored")
		s.loaded = false
		s.dirty = false
		s.fallbackNotified = false
		s.raise(store.NotificationStorageRestored, "availability probe succeeded")
	}

	return s.available
}

// Available reports whether the backend was usable at the last probe.
func (s *TaskStore) Available() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.available
}

// ensureLoaded hydrates the working set from the persisted snapshot once.
// Corrupted payloads are discarded wholesale: the storage key is removed
// and the store continues with an empty set (fail-safe-empty).
// Callers must hold s.mu.
func (s *TaskStore) ensureLoaded(ctx context.Context) error {
	if s.loaded {
		return nil
	}

	if !s.available {
		// Fallback mode: start from whatever the working set holds.
		s.loaded = true
		return nil
	}

	data, err := s.backend.GetItem(ctx, s.key)
	if errors.Is(err, storage.ErrKeyNotFound) {
		s.working.ReplaceAll(nil)
		s.loaded = true
		return nil
	}
	if err != nil {
		s.logger.Warn("failed to read snapshot, falling back to memory",
			slog.String("error", err.Error()))
		s.markUnavailable("snapshot read failed")
		s.loaded = true
		return nil
	}

	tasks, err := decodeSnapshot(data)
	if err != nil {
		s.logger.Warn("discarding corrupted snapshot",
			slog.String("error", err.Error()))
		if rmErr := s.backend.RemoveItem(ctx, s.key); rmErr != nil {
			s.logger.Error("failed to remove corrupted snapshot",
				slog.String("error", rmErr.Error()))
		}
		s.raise(store.NotificationCorruptedDataCleared, err.Error())
		tasks = nil
	}

	s.working.ReplaceAll(tasks)
	s.loaded = true
	return nil
}

// scheduleWrite marks the snapshot dirty and arms the coalescing timer.
// In fallback mode the mutation stays in memory and the first redirect of
// the session raises a fallback-activated notification.
// Callers must hold s.mu.
func (s *TaskStore) scheduleWrite(ctx context.Context) {
	s.dirty = true

	if !s.available {
		if !s.fallbackNotified {
			s.fallbackNotified = true
			s.logger.Warn("redirecting mutations to in-memory fallback")
			s.raise(store.NotificationFallbackActivated, "storage backend unusable")
		}
		return
	}

	if s.window < 0 {
		s.flushLocked(ctx)
		return
	}

	if s.timer == nil {
		s.timer = time.AfterFunc(s.window, func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			s.timer = nil
			s.flushLocked(context.Background())
		})
	}
}

// flushLocked serializes the working set and writes it as one snapshot.
// Write failures never propagate to the caller: quota exhaustion and
// transient failures raise notifications, and the working set keeps the
// attempted mutation either way.
// Callers must hold s.mu.
func (s *TaskStore) flushLocked(ctx context.Context) {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	if !s.dirty || !s.available {
		return
	}

	snapshot := s.working.Snapshot()
	data, err := json.Marshal(snapshot)
	if err != nil {
		// Tasks are plain structs; this cannot realistically happen.
		s.logger.Error("failed to marshal snapshot", slog.String("error", err.Error()))
		return
	}

	if err := s.backend.SetItem(ctx, s.key, data); err != nil {
		if errors.Is(err, storage.ErrQuotaExceeded) {
			s.logger.Warn("snapshot write exceeded quota",
				slog.Int("bytes", len(data)))
			s.raise(store.NotificationQuotaExceeded,
				fmt.Sprintf("snapshot of %d bytes rejected", len(data)))
			// The working set keeps the mutation; it may be lost on reload.
			s.dirty = false
			return
		}

		s.logger.Warn("snapshot write failed",
			slog.String("error", err.Error()))
		s.raise(store.NotificationTemporaryFailure, err.Error())
		s.markUnavailable("snapshot write failed")
		return
	}

	s.dirty = false
	s.logger.Debug("snapshot written",
		slog.Int("tasks", len(snapshot)),
		slog.Int("bytes", len(data)))
}

// markUnavailable flips to fallback mode and raises the once-per-session
// fallback notification. Callers must hold s.mu.
func (s *TaskStore) markUnavailable(reason string) {
	s.available = false
	if !s.fallbackNotified {
		s.fallbackNotified = true
		s.raise(store.NotificationFallbackActivated, reason)
	}
}

// decodeSnapshot parses and validates a persisted snapshot. Any parse or
// validation failure marks the whole payload corrupt; there is no partial
// repair.
func decodeSnapshot(data []byte) ([]*domain.Task, error) {
	var tasks []*domain.Task
	if err := json.Unmarshal(data, &tasks); err != nil {
		return nil, fmt.Errorf("snapshot is not a task array: %w", err)
	}

	seen := make(map[uuid.UUID]bool, len(tasks))
	for i, t := range tasks {
		if t == nil {
			return nil, fmt.Errorf("snapshot entry %d is null", i)
		}
		if err := t.Validate(); err != nil {
			return nil, fmt.Errorf("snapshot entry %d invalid: %w", i, err)
		}
		if seen[t.ID] {
			return nil, fmt.Errorf("snapshot entry %d has duplicate id %s", i, t.ID)
		}
		seen[t.ID] = true
	}

	return tasks, nil
}
