package scheduler

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes scheduler errors.
type ErrorCode string

const (
	// ErrCodeUnknownTask indicates Run was asked for a name that was never registered.
	// This is a programming error in the caller.
	ErrCodeUnknownTask ErrorCode = "UNKNOWN_TASK"

	// ErrCodeDuplicateTask indicates Register was called twice for the same name.
	ErrCodeDuplicateTask ErrorCode = "DUPLICATE_TASK"
)

// TaskError reports a misuse of the scheduler for a specific task name.
type TaskError struct {
	Code ErrorCode
	Name string
}

// Error implements the error interface.
func (e *TaskError) Error() string {
	switch e.Code {
	case ErrCodeUnknownTask:
		return fmt.Sprintf("%s: no task registered as %q", e.Code, e.Name)
	case ErrCodeDuplicateTask:
		return fmt.Sprintf("%s: task %q is already registered", e.Code, e.Name)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Name)
}

// IsUnknownTask returns true if the error reports an unregistered task name.
// Uses errors.As to handle wrapped errors.
func IsUnknownTask(err error) bool {
	var te *TaskError
	if errors.As(err, &te) {
		return te.Code == ErrCodeUnknownTask
	}
	return false
}

func newUnknownTaskError(name string) *TaskError {
	return &TaskError{Code: ErrCodeUnknownTask, Name: name}
}
