package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/Inferno2211/blog-gen-sub002/internal/domain"
)

// VersionStore defines the interface for article version persistence.
// Versions are append-only: they are created by the QC loop on a passing
// attempt and later mutated only in their review/scheduling fields.
type VersionStore interface {
	// Create saves a new article version to the store.
	// Returns ErrVersionNumberExists if the (article, version_num) pair
	// is already taken.
	Create(ctx context.Context, version *domain.ArticleVersion) error

	// GetByID retrieves a version by its unique ID.
	// Returns ErrVersionNotFound if the version does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.ArticleVersion, error)

	// Update saves changes to an existing version's mutable fields
	// (review status, scheduling fields). Content is never rewritten.
	// Returns ErrVersionNotFound if the version does not exist.
	Update(ctx context.Context, version *domain.ArticleVersion) error

	// NextVersionNum allocates the next version number for an article.
	// Numbers are monotonic per article; callers burn one per generation
	// attempt, so persisted versions may show gaps.
	NextVersionNum(ctx context.Context, articleID uuid.UUID) (int, error)

	// WithTx returns a new VersionStore instance that uses the provided
	// transaction. The transaction is created and managed by the caller.
	WithTx(tx *sql.Tx) VersionStore
}
