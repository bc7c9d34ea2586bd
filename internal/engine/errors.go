package engine

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes engine errors.
type ErrorCode string

const (
	// ErrCodeProducerFailure indicates the run producer returned an error.
	// The previous snapshot stays current.
	ErrCodeProducerFailure ErrorCode = "PRODUCER_FAILURE"

	// ErrCodeUnknownRun indicates a run mutation named an id that is not in
	// the current snapshot.
	ErrCodeUnknownRun ErrorCode = "UNKNOWN_RUN"
)

// EngineError represents an error detected while updating or mutating the view.
type EngineError struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// UpdateID identifies the pass that failed, if any.
	UpdateID string

	// Err is the underlying cause.
	Err error
}

// Error implements the error interface.
func (e *EngineError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.UpdateID != "" {
		msg += fmt.Sprintf(" (update=%s)", e.UpdateID)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *EngineError) Unwrap() error {
	return e.Err
}

// IsProducerFailure returns true if the error is a run producer failure.
// Uses errors.As to handle wrapped errors.
func IsProducerFailure(err error) bool {
	var ee *EngineError
	if errors.As(err, &ee) {
		return ee.Code == ErrCodeProducerFailure
	}
	return false
}

// IsUnknownRun returns true if the error names a run that is not present.
func IsUnknownRun(err error) bool {
	var ee *EngineError
	if errors.As(err, &ee) {
		return ee.Code == ErrCodeUnknownRun
	}
	return false
}

// NewProducerError creates an EngineError for a failed produce call.
func NewProducerError(updateID string, err error) *EngineError {
	return &EngineError{
		Code:     ErrCodeProducerFailure,
		Message:  "run producer failed",
		UpdateID: updateID,
		Err:      err,
	}
}

// NewUnknownRunError creates an EngineError for a missing run id.
func NewUnknownRunError(id string) *EngineError {
	return &EngineError{
		Code:    ErrCodeUnknownRun,
		Message: fmt.Sprintf("no run %q in the current snapshot", id),
	}
}
