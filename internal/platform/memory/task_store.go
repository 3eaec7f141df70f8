// Package memory provides a process-local TaskStore implementation used in
// tests and as the fallback target for the durable store. Nothing survives
// a restart.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/taskman-api/internal/domain"
	"github.com/phrazzld/taskman-api/internal/store"
)

// TaskStore is an in-memory implementation of store.TaskStore.
// It keeps tasks in insertion order so that List can sort stably by
// CreatedAt with ties broken by insertion.
type TaskStore struct {
	mu    sync.RWMutex
	tasks []*domain.Task
	index map[uuid.UUID]int
}

// Statically verify interface compliance.
var _ store.TaskStore = (*TaskStore)(nil)

// NewTaskStore creates an empty in-memory task store.
func NewTaskStore() *TaskStore {
	return &TaskStore{
		index: make(map[uuid.UUID]int),
	}
}

// Save upserts a task by ID, stamping UpdatedAt, and returns a copy of the
// stored value.
func (s *TaskStore) Save(ctx context.Context, task *domain.Task) (*domain.Task, error) {
	if task == nil {
		return nil, store.NewStoreError("save", "task cannot be nil", store.ErrInvalidEntity)
	}

	stored := task.Clone()
	stored.UpdatedAt = time.Now().UTC()
	if stored.UpdatedAt.Before(stored.CreatedAt) {
		stored.UpdatedAt = stored.CreatedAt
	}

	if err := stored.Validate(); err != nil {
		return nil, store.NewStoreError("save", "task failed validation",
			fmt.Errorf("%w: %w", store.ErrInvalidEntity, err))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if i, ok := s.index[stored.ID]; ok {
		s.tasks[i] = stored
	} else {
		s.index[stored.ID] = len(s.tasks)
		s.tasks = append(s.tasks, stored)
	}

	return stored.Clone(), nil
}

// GetByID retrieves a task by ID.
// Returns store.ErrTaskNotFound if the task does not exist.
func (s *TaskStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i, ok := s.index[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", store.ErrTaskNotFound, id)
	}
	return s.tasks[i].Clone(), nil
}

// List returns all tasks ordered by CreatedAt ascending, insertion order
// preserved for equal timestamps.
func (s *TaskStore) List(ctx context.Context) ([]*domain.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.Task, len(s.tasks))
	for i, t := range s.tasks {
		out[i] = t.Clone()
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// Delete removes a task by ID.
// Returns store.ErrTaskNotFound if the task does not exist.
func (s *TaskStore) Delete(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.index[id]
	if !ok {
		return fmt.Errorf("%w: %s", store.ErrTaskNotFound, id)
	}

	s.tasks = append(s.tasks[:i], s.tasks[i+1:]...)
	delete(s.index, id)
	for j := i; j < len(s.tasks); j++ {
		s.index[s.tasks[j].ID] = j
	}
	return nil
}

// Clear removes all tasks unconditionally.
func (s *TaskStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tasks = nil
	s.index = make(map[uuid.UUID]int)
	return nil
}

// Len reports the number of stored tasks.
func (s *TaskStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tasks)
}

// ReplaceAll swaps the entire contents of the store in one step. The
// durable store uses this when hydrating its fallback from a snapshot.
func (s *TaskStore) ReplaceAll(tasks []*domain.Task) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tasks = make([]*domain.Task, 0, len(tasks))
	s.index = make(map[uuid.UUID]int, len(tasks))
	for _, t := range tasks {
		clone := t.Clone()
		s.index[clone.ID] = len(s.tasks)
		s.tasks = append(s.tasks, clone)
	}
}

// Snapshot returns the current contents in insertion order without the
// CreatedAt sort. Used for serialization.
func (s *TaskStore) Snapshot() []*domain.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.Task, len(s.tasks))
	for i, t := range s.tasks {
		out[i] = t.Clone()
	}
	return out
}
