package service

import (
	"errors"
	"fmt"
)

// Sentinel errors for expected conditions callers may branch on.
var (
	// ErrOrderNotRegenerable indicates a regeneration request for an order
	// that is not parked in quality check.
	ErrOrderNotRegenerable = errors.New("order is not awaiting customer review")

	// ErrVersionNotReviewable indicates a review decision for a version
	// whose review state is already settled.
	ErrVersionNotReviewable = errors.New("version is not awaiting admin review")

	// ErrMissingBacklink indicates an integration request without the
	// anchor/URL pair it exists to integrate.
	ErrMissingBacklink = errors.New("backlink target and anchor are required")
)

// PipelineServiceError wraps unexpected failures with the operation that
// produced them.
type PipelineServiceError struct {
	Operation string
	Message   string
	Err       error
}

// Error implements the error interface.
func (e *PipelineServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("pipeline %s failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("pipeline %s failed: %s", e.Operation, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *PipelineServiceError) Unwrap() error {
	return e.Err
}

func newServiceError(operation, message string, err error) *PipelineServiceError {
	return &PipelineServiceError{Operation: operation, Message: message, Err: err}
}
