package postgres

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/Inferno2211/blog-gen-sub002/internal/domain"
	"github.com/Inferno2211/blog-gen-sub002/internal/platform/logger"
	"github.com/Inferno2211/blog-gen-sub002/internal/store"
)

// psql builds queries with PostgreSQL-style $N placeholders.
var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// PostgresArticleStore implements the store.ArticleStore interface
// using a PostgreSQL database as the storage backend.
type PostgresArticleStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresArticleStore creates a new PostgreSQL implementation of the
// ArticleStore interface. It accepts a database connection or transaction
// that should be initialized and managed by the caller.
func NewPostgresArticleStore(db store.DBTX, logger *slog.Logger) *PostgresArticleStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresArticleStore{
		db:     db,
		logger: logger.With(slog.String("component", "article_store")),
	}
}

var _ store.ArticleStore = (*PostgresArticleStore)(nil)

const articleColumns = `id, domain_id, slug, availability, selected_version_id,
		previous_version_id, published, flagged, sold_out_until, created_at, updated_at`

// Create implements store.ArticleStore.Create.
func (s *PostgresArticleStore) Create(ctx context.Context, article *domain.Article) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := article.Validate(); err != nil {
		log.Warn("article validation failed during create",
			slog.String("error", err.Error()),
			slog.String("article_id", article.ID.String()))
		return err
	}

	query := `
		INSERT INTO articles (` + articleColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := s.db.ExecContext(ctx, query,
		article.ID,
		article.DomainID,
		article.Slug,
		article.Availability,
		article.SelectedVersionID,
		article.PreviousVersionID,
		article.Published,
		article.Flagged,
		article.SoldOutUntil,
		article.CreatedAt,
		article.UpdatedAt,
	)
	if err != nil {
		log.Error("failed to create article",
			slog.String("error", err.Error()),
			slog.String("article_id", article.ID.String()))
		return MapError(err)
	}
	return nil
}

// GetByID implements store.ArticleStore.GetByID.
// Returns store.ErrArticleNotFound if the article does not exist.
func (s *PostgresArticleStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Article, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT ` + articleColumns + `
		FROM articles
		WHERE id = $1
	`
	article, err := scanArticle(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrArticleNotFound
		}
		log.Error("failed to get article by ID",
			slog.String("error", err.Error()),
			slog.String("article_id", id.String()))
		return nil, MapError(err)
	}
	return article, nil
}

// Update implements store.ArticleStore.Update.
// Returns store.ErrArticleNotFound if the article does not exist.
func (s *PostgresArticleStore) Update(ctx context.Context, article *domain.Article) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := article.Validate(); err != nil {
		return err
	}
	article.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE articles
		SET availability = $1, selected_version_id = $2, previous_version_id = $3,
			published = $4, flagged = $5, sold_out_until = $6, updated_at = $7
		WHERE id = $8
	`
	result, err := s.db.ExecContext(ctx, query,
		article.Availability,
		article.SelectedVersionID,
		article.PreviousVersionID,
		article.Published,
		article.Flagged,
		article.SoldOutUntil,
		article.UpdatedAt,
		article.ID,
	)
	if err != nil {
		log.Error("failed to update article",
			slog.String("error", err.Error()),
			slog.String("article_id", article.ID.String()))
		return MapError(err)
	}
	return checkRowsAffected(result, store.ErrArticleNotFound)
}

// FindExpiredHolds implements store.ArticleStore.FindExpiredHolds.
func (s *PostgresArticleStore) FindExpiredHolds(ctx context.Context, before time.Time) ([]*domain.Article, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query, args, err := psql.
		Select("id", "domain_id", "slug", "availability", "selected_version_id",
			"previous_version_id", "published", "flagged", "sold_out_until",
			"created_at", "updated_at").
		From("articles").
		Where(sq.Eq{"availability": domain.ArticleSoldOut}).
		Where(sq.NotEq{"sold_out_until": nil}).
		Where(sq.Lt{"sold_out_until": before}).
		OrderBy("sold_out_until ASC").
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to query expired holds", slog.String("error", err.Error()))
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	var articles []*domain.Article
	for rows.Next() {
		article, err := scanArticle(rows)
		if err != nil {
			return nil, MapError(err)
		}
		articles = append(articles, article)
	}
	return articles, rows.Err()
}

// GetDomain implements store.ArticleStore.GetDomain.
// Returns store.ErrDomainNotFound if the domain does not exist.
func (s *PostgresArticleStore) GetDomain(ctx context.Context, id uuid.UUID) (*domain.Domain, error) {
	query := `
		SELECT id, name, base_url, created_at
		FROM domains
		WHERE id = $1
	`
	var d domain.Domain
	err := s.db.QueryRowContext(ctx, query, id).Scan(&d.ID, &d.Name, &d.BaseURL, &d.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrDomainNotFound
		}
		return nil, MapError(err)
	}
	return &d, nil
}

// WithTx implements store.ArticleStore.WithTx.
func (s *PostgresArticleStore) WithTx(tx *sql.Tx) store.ArticleStore {
	return &PostgresArticleStore{db: tx, logger: s.logger}
}

// scanner abstracts *sql.Row and *sql.Rows for the shared scan helpers.
type scanner interface {
	Scan(dest ...any) error
}

func scanArticle(row scanner) (*domain.Article, error) {
	var article domain.Article
	var availability string

	err := row.Scan(
		&article.ID,
		&article.DomainID,
		&article.Slug,
		&availability,
		&article.SelectedVersionID,
		&article.PreviousVersionID,
		&article.Published,
		&article.Flagged,
		&article.SoldOutUntil,
		&article.CreatedAt,
		&article.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	article.Availability = domain.ArticleAvailability(availability)
	return &article, nil
}
