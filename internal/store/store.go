package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/phrazzld/taskman-api/internal/domain"
)

// TaskStore defines the interface for task data persistence.
//
// Implementations hold no business rules: validation, timestamp policy, and
// event emission all live in the service layer. The one exception is that
// Save stamps UpdatedAt so the createdAt <= updatedAt invariant holds even
// for callers that bypass the service.
type TaskStore interface {
	// Save upserts a task by its ID and returns the stored value.
	// UpdatedAt is set to the current time on every save.
	Save(ctx context.Context, task *domain.Task) (*domain.Task, error)

	// GetByID retrieves a task by its unique ID.
	// Returns ErrTaskNotFound if the task does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error)

	// List returns all tasks ordered by CreatedAt ascending. Tasks with
	// equal CreatedAt keep their insertion order.
	List(ctx context.Context) ([]*domain.Task, error)

	// Delete removes a task from the store by its ID.
	// Returns ErrTaskNotFound if the task does not exist.
	Delete(ctx context.Context, id uuid.UUID) error

	// Clear removes all tasks unconditionally.
	Clear(ctx context.Context) error
}

// Flushable is an optional capability for stores that coalesce or defer
// writes. Callers that need durability before a critical follow-up action
// check for this interface explicitly instead of duck-typing.
type Flushable interface {
	// Flush forces any pending deferred write to execute now.
	Flush(ctx context.Context) error
}

// FlushIfSupported flushes the store if it implements Flushable and is a
// no-op otherwise.
func FlushIfSupported(ctx context.Context, s TaskStore) error {
	if f, ok := s.(Flushable); ok {
		return f.Flush(ctx)
	}
	return nil
}
