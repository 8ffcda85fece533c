package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/Inferno2211/blog-gen-sub002/internal/domain"
)

// ArticleStore defines the interface for article data persistence.
type ArticleStore interface {
	// Create saves a new article to the store.
	// Returns validation errors from the domain Article if data is invalid.
	Create(ctx context.Context, article *domain.Article) error

	// GetByID retrieves an article by its unique ID.
	// Returns ErrArticleNotFound if the article does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Article, error)

	// Update saves changes to an existing article.
	// Returns ErrArticleNotFound if the article does not exist.
	Update(ctx context.Context, article *domain.Article) error

	// FindExpiredHolds retrieves sold-out articles whose hold expired
	// before the given time. Returns an empty slice if none match.
	FindExpiredHolds(ctx context.Context, before time.Time) ([]*domain.Article, error)

	// GetDomain retrieves the publishing domain an article belongs to.
	// Returns ErrDomainNotFound if it does not exist.
	GetDomain(ctx context.Context, id uuid.UUID) (*domain.Domain, error)

	// WithTx returns a new ArticleStore instance that uses the provided
	// transaction. The transaction is created and managed by the caller.
	WithTx(tx *sql.Tx) ArticleStore
}
