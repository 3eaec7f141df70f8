package domain

import "errors"

// TaskFilter selects a subset of tasks by completion state. It is a
// query-time projection and is never persisted with a task.
type TaskFilter string

// Recognized filter values
const (
	FilterAll       TaskFilter = "all"
	FilterActive    TaskFilter = "active"
	FilterCompleted TaskFilter = "completed"
)

// ErrInvalidFilter is returned when a filter value is not one of the
// recognized values.
var ErrInvalidFilter = errors.New("invalid task filter")

// ParseFilter converts a raw string into a TaskFilter.
// Returns ErrInvalidFilter if the value is not recognized.
func ParseFilter(s string) (TaskFilter, error) {
	f := TaskFilter(s)
	if !f.Valid() {
		return "", ErrInvalidFilter
	}
	return f, nil
}

// Valid reports whether the filter is one of the recognized values.
func (f TaskFilter) Valid() bool {
	switch f {
	case FilterAll, FilterActive, FilterCompleted:
		return true
	}
	return false
}

// Matches reports whether the task passes the filter.
func (f TaskFilter) Matches(t *Task) bool {
	switch f {
	case FilterActive:
		return !t.Completed
	case FilterCompleted:
		return t.Completed
	default:
		return true
	}
}
