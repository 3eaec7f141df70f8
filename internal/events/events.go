package events

import (
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/taskman-api/internal/domain"
	"github.com/phrazzld/taskman-api/internal/store"
)

// Event names follow the SCOPE.DOMAIN.ACTION convention.
const (
	// Domain events emitted by the task service after successful mutations.
	TaskCreated  = "TASK.MANAGER.CREATE"
	TaskUpdated  = "TASK.MANAGER.UPDATE"
	TaskDeleted  = "TASK.MANAGER.DELETE"
	TasksCleared = "TASK.MANAGER.CLEAR"

	// UI-facing events consumed by the composition root.
	UITaskCreate = "UI.TASK.CREATE"
	UITaskUpdate = "UI.TASK.UPDATE"
	UITaskToggle = "UI.TASK.TOGGLE"
	UITaskDelete = "UI.TASK.DELETE"
	UITaskClear  = "UI.TASK.CLEAR"

	// Storage-health notifications bridged from the durable store.
	StorageNotify = "STORAGE.TASKS.NOTIFY"
)

// Event is a named payload travelling on the bus.
type Event struct {
	Name        string
	Payload     any
	PublishedAt time.Time
}

// CreatedPayload accompanies TaskCreated.
type CreatedPayload struct {
	TaskID uuid.UUID    `json:"taskId"`
	Task   *domain.Task `json:"task"`
}

// UpdatedPayload accompanies TaskUpdated and carries both the new and the
// previous snapshot.
type UpdatedPayload struct {
	TaskID       uuid.UUID    `json:"taskId"`
	Task         *domain.Task `json:"task"`
	PreviousTask *domain.Task `json:"previousTask"`
}

// DeletedPayload accompanies TaskDeleted.
type DeletedPayload struct {
	TaskID      uuid.UUID    `json:"taskId"`
	DeletedTask *domain.Task `json:"deletedTask"`
}

// ClearedPayload accompanies TasksCleared.
type ClearedPayload struct {
	Timestamp time.Time `json:"timestamp"`
}

// UICreatePayload accompanies UITaskCreate.
type UICreatePayload struct {
	Description string `json:"description"`
}

// UIUpdatePayload accompanies UITaskUpdate.
type UIUpdatePayload struct {
	ID      uuid.UUID         `json:"id"`
	Updates domain.TaskUpdate `json:"updates"`
}

// UITogglePayload accompanies UITaskToggle.
type UITogglePayload struct {
	ID uuid.UUID `json:"id"`
}

// UIDeletePayload accompanies UITaskDelete.
type UIDeletePayload struct {
	ID uuid.UUID `json:"id"`
}

// StorageNotifyPayload accompanies StorageNotify.
type StorageNotifyPayload struct {
	Notification store.Notification `json:"notification"`
}
