// Package service provides the application-level task service: it owns
// validation, timestamp policy, and domain event emission on top of a
// store.TaskStore.
package service

import "fmt"

// TaskServiceError is a custom error type for task service errors. It
// wraps the underlying sentinel (domain validation errors,
// store.ErrTaskNotFound, ...) so callers can use errors.Is to classify
// failures, while the message embeds the offending id or description.
type TaskServiceError struct {
	Operation string
	Message   string
	Err       error
}

// Error implements the error interface for TaskServiceError.
func (e *TaskServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("task service %s failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("task service %s failed: %s", e.Operation, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *TaskServiceError) Unwrap() error {
	return e.Err
}

// NewTaskServiceError creates a new TaskServiceError.
func NewTaskServiceError(operation, message string, err error) *TaskServiceError {
	return &TaskServiceError{
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}
