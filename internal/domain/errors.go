package domain

import (
	"errors"
	"fmt"
)

// InvalidTransitionError is returned when an entity is asked to move
// between states the transition table does not allow.
type InvalidTransitionError struct {
	Entity string // The entity type (e.g., "order", "article_version")
	Field  string // The status field involved (e.g., "status", "review_status")
	From   string
	To     string
}

// Error implements the error interface for InvalidTransitionError.
func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf(
		"invalid %s transition on %s: %q -> %q",
		e.Field,
		e.Entity,
		e.From,
		e.To,
	)
}

// IsInvalidTransition reports whether the error is an InvalidTransitionError.
func IsInvalidTransition(err error) bool {
	var target *InvalidTransitionError
	return errors.As(err, &target)
}
