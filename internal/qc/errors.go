package qc

import (
	"errors"
	"fmt"

	"github.com/Inferno2211/blog-gen-sub002/internal/domain"
)

// Common errors returned by the qc package
var (
	ErrNilGenerator      = errors.New("generator cannot be nil")
	ErrNilQualityChecker = errors.New("quality checker cannot be nil")
	ErrNilArticleStore   = errors.New("article store cannot be nil")
	ErrNilVersionStore   = errors.New("version store cannot be nil")
	ErrEmptyArticleID    = errors.New("article ID cannot be empty")
)

// ExhaustedError is returned when every quality-control attempt failed.
// Nothing was persisted; the article has been flagged for admins.
type ExhaustedError struct {
	Attempts    int
	LastVerdict *domain.QCVerdict
	LastIssues  []string
}

// Error implements the error interface for ExhaustedError.
func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("quality control failed after %d attempt(s)", e.Attempts)
}

// IsExhausted reports whether the error means QC ran out of attempts.
func IsExhausted(err error) bool {
	var target *ExhaustedError
	return errors.As(err, &target)
}
