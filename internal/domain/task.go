package domain

import (
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// MaxDescriptionLength is the maximum number of characters (runes) allowed
// in a task description after trimming.
const MaxDescriptionLength = 500

// Task-specific validation errors
var (
	// ErrTaskIDEmpty is returned when a task ID is empty or nil.
	ErrTaskIDEmpty = errors.New("task ID cannot be empty")

	// ErrDescriptionEmpty is returned when a task description is empty or
	// whitespace-only after trimming.
	ErrDescriptionEmpty = errors.New("task description cannot be empty")

	// ErrDescriptionTooLong is returned when a task description exceeds
	// MaxDescriptionLength characters after trimming.
	ErrDescriptionTooLong = errors.New("task description exceeds maximum length")

	// ErrTimestampsEmpty is returned when a task is missing its creation or
	// update timestamp.
	ErrTimestampsEmpty = errors.New("task timestamps cannot be zero")

	// ErrTimestampOrder is returned when a task's UpdatedAt precedes its
	// CreatedAt.
	ErrTimestampOrder = errors.New("task UpdatedAt cannot precede CreatedAt")
)

// Task represents a single to-do item. The ID and CreatedAt fields are
// assigned at creation and never change afterwards; every successful
// mutation refreshes UpdatedAt.
type Task struct {
	ID          uuid.UUID `json:"id"`
	Description string    `json:"description"`
	Completed   bool      `json:"completed"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// NewTask creates a new Task with the given description.
// It generates a new UUID for the task ID, trims the description, and sets
// the creation/update timestamps to the current time.
// Returns an error if validation fails.
func NewTask(description string) (*Task, error) {
	return NewTaskAt(description, time.Now().UTC())
}

// NewTaskAt creates a new Task with the given description and an explicit
// creation timestamp. Callers that need controlled timestamps (monotonic
// guards, deterministic tests) use this directly.
func NewTaskAt(description string, now time.Time) (*Task, error) {
	task := &Task{
		ID:          uuid.New(),
		Description: strings.TrimSpace(description),
		Completed:   false,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := task.Validate(); err != nil {
		return nil, err
	}

	return task, nil
}

// Validate checks if the Task has valid data.
// Returns an error if any field fails validation.
func (t *Task) Validate() error {
	if t.ID == uuid.Nil {
		return ErrTaskIDEmpty
	}

	if err := ValidateDescription(t.Description); err != nil {
		return err
	}

	if t.CreatedAt.IsZero() || t.UpdatedAt.IsZero() {
		return ErrTimestampsEmpty
	}

	if t.UpdatedAt.Before(t.CreatedAt) {
		return ErrTimestampOrder
	}

	return nil
}

// ValidateDescription checks a description against the length and
// non-blank rules. The value is trimmed before checking.
func ValidateDescription(description string) error {
	trimmed := strings.TrimSpace(description)
	if trimmed == "" {
		return ErrDescriptionEmpty
	}
	if utf8.RuneCountInString(trimmed) > MaxDescriptionLength {
		return ErrDescriptionTooLong
	}
	return nil
}

// TaskUpdate is a partial update payload for a task. Nil fields are left
// unchanged. ID and CreatedAt are never updatable; they are always carried
// over from the existing record.
type TaskUpdate struct {
	Description *string `json:"description,omitempty"`
	Completed   *bool   `json:"completed,omitempty"`
}

// IsZero reports whether the update changes nothing.
func (u TaskUpdate) IsZero() bool {
	return u.Description == nil && u.Completed == nil
}

// ApplyUpdate applies the partial update to the task, trimming and
// validating the description if present. ID and CreatedAt are untouched.
// The caller is responsible for stamping UpdatedAt after a successful apply.
// On validation failure the task is left unmodified.
func (t *Task) ApplyUpdate(u TaskUpdate) error {
	if u.Description != nil {
		trimmed := strings.TrimSpace(*u.Description)
		if err := ValidateDescription(trimmed); err != nil {
			return err
		}
		t.Description = trimmed
	}

	if u.Completed != nil {
		t.Completed = *u.Completed
	}

	return nil
}

// Clone returns a copy of the task. Tasks are small value-like records, so
// a shallow copy is a full copy.
func (t *Task) Clone() *Task {
	clone := *t
	return &clone
}
