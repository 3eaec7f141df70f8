package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/taskman-api/internal/domain"
	"github.com/phrazzld/taskman-api/internal/events"
	"github.com/phrazzld/taskman-api/internal/store"
)

// EventPublisher is the slice of the event bus the service needs. Declared
// here so the service depends on behavior, not on the bus type.
type EventPublisher interface {
	// Publish queues an event for batched delivery.
	Publish(ctx context.Context, name string, payload any)

	// PublishImmediate bypasses batching and waits for handlers to settle.
	PublishImmediate(ctx context.Context, name string, payload any) error

	// Flush dispatches any batched events now.
	Flush(ctx context.Context)
}

// TaskService owns all task business rules: validation, timestamp policy,
// and domain event emission. The store underneath holds none.
type TaskService interface {
	// CreateTask validates the description, persists a new task, and emits
	// a TASK.MANAGER.CREATE event.
	CreateTask(ctx context.Context, description string) (*domain.Task, error)

	// UpdateTask applies a partial update to an existing task. ID and
	// CreatedAt are always carried over from the existing record. Emits a
	// TASK.MANAGER.UPDATE event carrying both new and previous snapshots.
	UpdateTask(ctx context.Context, id uuid.UUID, updates domain.TaskUpdate) (*domain.Task, error)

	// ToggleTaskCompletion flips the task's completed flag.
	ToggleTaskCompletion(ctx context.Context, id uuid.UUID) (*domain.Task, error)

	// DeleteTask removes a task and emits a TASK.MANAGER.DELETE event
	// carrying the deleted snapshot.
	DeleteTask(ctx context.Context, id uuid.UUID) error

	// GetAllTasks returns all tasks ordered by CreatedAt ascending.
	GetAllTasks(ctx context.Context) ([]*domain.Task, error)

	// GetTaskByID returns a single task. Returns an error wrapping
	// store.ErrTaskNotFound when no task has the id.
	GetTaskByID(ctx context.Context, id uuid.UUID) (*domain.Task, error)

	// GetTasksByFilter returns the tasks matching the filter.
	// Returns an error wrapping domain.ErrInvalidFilter for unrecognized
	// filter values.
	GetTasksByFilter(ctx context.Context, filter domain.TaskFilter) ([]*domain.Task, error)

	// ClearAllTasks empties the store and emits a TASK.MANAGER.CLEAR event
	// immediately, never batched.
	ClearAllTasks(ctx context.Context) error

	// Flush forces any pending coalesced store write and any pending
	// batched events to execute now.
	Flush(ctx context.Context) error
}

// Options tunes service behavior.
type Options struct {
	// DeterministicTimestamps disables the monotonic-timestamp guard so
	// tasks carry raw clock readings. Injected explicitly (typically in
	// tests) instead of sniffing the environment.
	DeterministicTimestamps bool
}

// taskServiceImpl implements the TaskService interface.
type taskServiceImpl struct {
	taskStore store.TaskStore
	publisher EventPublisher
	logger    *slog.Logger
	opts      Options

	// lastCreated backs the monotonic-timestamp guard: tasks created
	// within the same clock millisecond still get strictly increasing
	// CreatedAt values.
	tsMu        sync.Mutex
	lastCreated time.Time
}

// NewTaskService creates a new TaskService.
// It returns an error if any of the required dependencies are nil.
func NewTaskService(
	taskStore store.TaskStore,
	publisher EventPublisher,
	logger *slog.Logger,
	opts Options,
) (TaskService, error) {
	if taskStore == nil {
		return nil, domain.NewValidationError("taskStore", "cannot be nil", domain.ErrValidation)
	}
	if publisher == nil {
		return nil, domain.NewValidationError("publisher", "cannot be nil", domain.ErrValidation)
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &taskServiceImpl{
		taskStore: taskStore,
		publisher: publisher,
		logger:    logger.With(slog.String("component", "task_service")),
		opts:      opts,
	}, nil
}

// nextCreationTime returns the timestamp for a new task. With the guard
// active, creation times are strictly increasing even within one
// millisecond of wall-clock time.
func (s *taskServiceImpl) nextCreationTime() time.Time {
	now := time.Now().UTC()
	if s.opts.DeterministicTimestamps {
		return now
	}

	s.tsMu.Lock()
	defer s.tsMu.Unlock()
	if !now.After(s.lastCreated) {
		now = s.lastCreated.Add(time.Millisecond)
	}
	s.lastCreated = now
	return now
}

// CreateTask implements TaskService.CreateTask.
func (s *taskServiceImpl) CreateTask(ctx context.Context, description string) (*domain.Task, error) {
	task, err := domain.NewTaskAt(description, s.nextCreationTime())
	if err != nil {
		s.logger.Debug("task creation rejected",
			slog.String("error", err.Error()))
		return nil, NewTaskServiceError("create_task",
			fmt.Sprintf("invalid description %q", description), err)
	}

	saved, err := s.taskStore.Save(ctx, task)
	if err != nil {
		s.logger.Error("failed to persist new task",
			slog.String("error", err.Error()),
			slog.String("task_id", task.ID.String()))
		return nil, NewTaskServiceError("create_task", "failed to save task", err)
	}

	s.logger.Debug("task created",
		slog.String("task_id", saved.ID.String()))
	s.publisher.Publish(ctx, events.TaskCreated, events.CreatedPayload{
		TaskID: saved.ID,
		Task:   saved,
	})

	return saved, nil
}

// UpdateTask implements TaskService.UpdateTask.
func (s *taskServiceImpl) UpdateTask(
	ctx context.Context,
	id uuid.UUID,
	updates domain.TaskUpdate,
) (*domain.Task, error) {
	existing, err := s.taskStore.GetByID(ctx, id)
	if err != nil {
		if store.IsNotFoundError(err) {
			return nil, NewTaskServiceError("update_task",
				fmt.Sprintf("task with id %s not found", id), err)
		}
		return nil, NewTaskServiceError("update_task", "failed to load task", err)
	}

	previous := existing.Clone()

	updated := existing.Clone()
	if err := updated.ApplyUpdate(updates); err != nil {
		s.logger.Debug("task update rejected",
			slog.String("error", err.Error()),
			slog.String("task_id", id.String()))
		return nil, NewTaskServiceError("update_task",
			fmt.Sprintf("invalid update for task %s", id), err)
	}
	updated.UpdatedAt = time.Now().UTC()

	saved, err := s.taskStore.Save(ctx, updated)
	if err != nil {
		s.logger.Error("failed to persist task update",
			slog.String("error", err.Error()),
			slog.String("task_id", id.String()))
		return nil, NewTaskServiceError("update_task", "failed to save task", err)
	}

	s.logger.Debug("task updated",
		slog.String("task_id", saved.ID.String()))
	s.publisher.Publish(ctx, events.TaskUpdated, events.UpdatedPayload{
		TaskID:       saved.ID,
		Task:         saved,
		PreviousTask: previous,
	})

	return saved, nil
}

// ToggleTaskCompletion implements TaskService.ToggleTaskCompletion.
func (s *taskServiceImpl) ToggleTaskCompletion(
	ctx context.Context,
	id uuid.UUID,
) (*domain.Task, error) {
	existing, err := s.taskStore.GetByID(ctx, id)
	if err != nil {
		if store.IsNotFoundError(err) {
			return nil, NewTaskServiceError("toggle_task",
				fmt.Sprintf("task with id %s not found", id), err)
		}
		return nil, NewTaskServiceError("toggle_task", "failed to load task", err)
	}

	toggled := !existing.Completed
	return s.UpdateTask(ctx, id, domain.TaskUpdate{Completed: &toggled})
}

// DeleteTask implements TaskService.DeleteTask.
func (s *taskServiceImpl) DeleteTask(ctx context.Context, id uuid.UUID) error {
	existing, err := s.taskStore.GetByID(ctx, id)
	if err != nil {
		if store.IsNotFoundError(err) {
			return NewTaskServiceError("delete_task",
				fmt.Sprintf("task with id %s not found", id), err)
		}
		return NewTaskServiceError("delete_task", "failed to load task", err)
	}

	if err := s.taskStore.Delete(ctx, id); err != nil {
		if store.IsNotFoundError(err) {
			return NewTaskServiceError("delete_task",
				fmt.Sprintf("task with id %s not found", id), err)
		}
		return NewTaskServiceError("delete_task", "failed to delete task", err)
	}

	s.logger.Debug("task deleted",
		slog.String("task_id", id.String()))
	s.publisher.Publish(ctx, events.TaskDeleted, events.DeletedPayload{
		TaskID:      id,
		DeletedTask: existing,
	})

	return nil
}

// GetAllTasks implements TaskService.GetAllTasks.
func (s *taskServiceImpl) GetAllTasks(ctx context.Context) ([]*domain.Task, error) {
	tasks, err := s.taskStore.List(ctx)
	if err != nil {
		return nil, NewTaskServiceError("get_all_tasks", "failed to list tasks", err)
	}
	return tasks, nil
}

// GetTaskByID implements TaskService.GetTaskByID.
func (s *taskServiceImpl) GetTaskByID(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	task, err := s.taskStore.GetByID(ctx, id)
	if err != nil {
		return nil, NewTaskServiceError("get_task_by_id",
			fmt.Sprintf("task with id %s not found", id), err)
	}
	return task, nil
}

// GetTasksByFilter implements TaskService.GetTasksByFilter.
func (s *taskServiceImpl) GetTasksByFilter(
	ctx context.Context,
	filter domain.TaskFilter,
) ([]*domain.Task, error) {
	if !filter.Valid() {
		return nil, NewTaskServiceError("get_tasks_by_filter",
			fmt.Sprintf("unrecognized filter %q", filter), domain.ErrInvalidFilter)
	}

	tasks, err := s.GetAllTasks(ctx)
	if err != nil {
		return nil, err
	}

	if filter == domain.FilterAll {
		return tasks, nil
	}

	filtered := make([]*domain.Task, 0, len(tasks))
	for _, t := range tasks {
		if filter.Matches(t) {
			filtered = append(filtered, t)
		}
	}
	return filtered, nil
}

// ClearAllTasks implements TaskService.ClearAllTasks. The CLEAR event is
// treated as critical and never batched.
func (s *taskServiceImpl) ClearAllTasks(ctx context.Context) error {
	if err := s.taskStore.Clear(ctx); err != nil {
		return NewTaskServiceError("clear_all_tasks", "failed to clear tasks", err)
	}

	s.logger.Info("all tasks cleared")
	if err := s.publisher.PublishImmediate(ctx, events.TasksCleared, events.ClearedPayload{
		Timestamp: time.Now().UTC(),
	}); err != nil {
		// Handler failures are already logged by the bus; clearing itself
		// succeeded.
		s.logger.Warn("clear event handler failed",
			slog.String("error", err.Error()))
	}

	return nil
}

// Flush implements TaskService.Flush.
func (s *taskServiceImpl) Flush(ctx context.Context) error {
	if err := store.FlushIfSupported(ctx, s.taskStore); err != nil {
		return NewTaskServiceError("flush", "failed to flush store", err)
	}
	s.publisher.Flush(ctx)
	return nil
}
