package domain

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestNewTask(t *testing.T) {
	t.Parallel() // Enable parallel execution
	// Test valid task creation
	task, err := NewTask("Buy groceries")

	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if task.ID == uuid.Nil {
		t.Error("Expected non-nil UUID, got nil UUID")
	}

	if task.Description != "Buy groceries" {
		t.Errorf("Expected description %q, got %q", "Buy groceries", task.Description)
	}

	if task.Completed {
		t.Error("Expected new task to be incomplete")
	}

	if task.CreatedAt.IsZero() {
		t.Error("Expected non-zero CreatedAt time")
	}

	if !task.UpdatedAt.Equal(task.CreatedAt) {
		t.Errorf("Expected UpdatedAt %v to equal CreatedAt %v", task.UpdatedAt, task.CreatedAt)
	}

	// Test empty description
	_, err = NewTask("")
	if err != ErrDescriptionEmpty {
		t.Errorf("Expected error %v, got %v", ErrDescriptionEmpty, err)
	}

	// Test whitespace-only description
	_, err = NewTask("   \t\n  ")
	if err != ErrDescriptionEmpty {
		t.Errorf("Expected error %v, got %v", ErrDescriptionEmpty, err)
	}

	// Test over-length description
	_, err = NewTask(strings.Repeat("x", MaxDescriptionLength+1))
	if err != ErrDescriptionTooLong {
		t.Errorf("Expected error %v, got %v", ErrDescriptionTooLong, err)
	}

	// Exactly at the limit is fine
	_, err = NewTask(strings.Repeat("x", MaxDescriptionLength))
	if err != nil {
		t.Errorf("Expected no error at max length, got %v", err)
	}
}

func TestNewTaskTrimsDescription(t *testing.T) {
	t.Parallel()
	task, err := NewTask("  walk the dog  ")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if task.Description != "walk the dog" {
		t.Errorf("Expected trimmed description, got %q", task.Description)
	}
}

func TestTaskValidate(t *testing.T) {
	t.Parallel()
	now := time.Now().UTC()
	validTask := Task{
		ID:          uuid.New(),
		Description: "Test task",
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	// Test valid task
	if err := validTask.Validate(); err != nil {
		t.Errorf("Expected no error, got %v", err)
	}

	// Test invalid ID
	invalidTask := validTask
	invalidTask.ID = uuid.Nil
	if err := invalidTask.Validate(); err != ErrTaskIDEmpty {
		t.Errorf("Expected error %v, got %v", ErrTaskIDEmpty, err)
	}

	// Test empty description
	invalidTask = validTask
	invalidTask.Description = ""
	if err := invalidTask.Validate(); err != ErrDescriptionEmpty {
		t.Errorf("Expected error %v, got %v", ErrDescriptionEmpty, err)
	}

	// Test zero timestamps
	invalidTask = validTask
	invalidTask.CreatedAt = time.Time{}
	if err := invalidTask.Validate(); err != ErrTimestampsEmpty {
		t.Errorf("Expected error %v, got %v", ErrTimestampsEmpty, err)
	}

	// Test UpdatedAt before CreatedAt
	invalidTask = validTask
	invalidTask.UpdatedAt = now.Add(-time.Minute)
	if err := invalidTask.Validate(); err != ErrTimestampOrder {
		t.Errorf("Expected error %v, got %v", ErrTimestampOrder, err)
	}
}

func TestApplyUpdate(t *testing.T) {
	t.Parallel()
	task, err := NewTask("original")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	originalID := task.ID
	originalCreatedAt := task.CreatedAt

	// Update description only
	desc := "  changed  "
	if err := task.ApplyUpdate(TaskUpdate{Description: &desc}); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if task.Description != "changed" {
		t.Errorf("Expected description %q, got %q", "changed", task.Description)
	}
	if task.Completed {
		t.Error("Expected Completed to be unchanged")
	}

	// Update completed only
	completed := true
	if err := task.ApplyUpdate(TaskUpdate{Completed: &completed}); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if !task.Completed {
		t.Error("Expected Completed to be true")
	}

	// Invalid description leaves the task unmodified
	blank := "   "
	if err := task.ApplyUpdate(TaskUpdate{Description: &blank}); err != ErrDescriptionEmpty {
		t.Errorf("Expected error %v, got %v", ErrDescriptionEmpty, err)
	}
	if task.Description != "changed" {
		t.Errorf("Expected description to remain %q, got %q", "changed", task.Description)
	}

	// ID and CreatedAt are never touched
	if task.ID != originalID {
		t.Error("Expected ID to be immutable")
	}
	if !task.CreatedAt.Equal(originalCreatedAt) {
		t.Error("Expected CreatedAt to be immutable")
	}
}

func TestTaskClone(t *testing.T) {
	t.Parallel()
	task, err := NewTask("clone me")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	clone := task.Clone()
	if clone == task {
		t.Error("Expected a distinct pointer")
	}
	if *clone != *task {
		t.Errorf("Expected identical values, got %+v vs %+v", clone, task)
	}

	clone.Description = "mutated"
	if task.Description != "clone me" {
		t.Error("Expected mutation of clone to not affect original")
	}
}
