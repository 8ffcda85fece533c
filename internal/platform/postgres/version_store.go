package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Inferno2211/blog-gen-sub002/internal/domain"
	"github.com/Inferno2211/blog-gen-sub002/internal/platform/logger"
	"github.com/Inferno2211/blog-gen-sub002/internal/store"
)

// PostgresVersionStore implements the store.VersionStore interface
// using a PostgreSQL database as the storage backend.
type PostgresVersionStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresVersionStore creates a new PostgreSQL implementation of the
// VersionStore interface. It accepts a database connection or transaction
// that should be initialized and managed by the caller.
func NewPostgresVersionStore(db store.DBTX, logger *slog.Logger) *PostgresVersionStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresVersionStore{
		db:     db,
		logger: logger.With(slog.String("component", "version_store")),
	}
}

var _ store.VersionStore = (*PostgresVersionStore)(nil)

const versionColumns = `id, article_id, version_num, content, qc_attempts, qc_verdict,
		backlink_url, backlink_anchor, integration_type, base_version_id,
		regeneration_count, review_status, scheduled_at, schedule_status, job_token,
		created_at, updated_at`

// Create implements store.VersionStore.Create.
// Returns store.ErrVersionNumberExists if the (article, version_num) pair
// is already taken.
func (s *PostgresVersionStore) Create(ctx context.Context, version *domain.ArticleVersion) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := version.Validate(); err != nil {
		log.Warn("version validation failed during create",
			slog.String("error", err.Error()),
			slog.String("version_id", version.ID.String()))
		return err
	}

	verdict, err := marshalVerdict(version.QCVerdict)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO article_versions (` + versionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	`
	_, err = s.db.ExecContext(ctx, query,
		version.ID,
		version.ArticleID,
		version.VersionNum,
		version.Content,
		version.QCAttempts,
		verdict,
		version.BacklinkURL,
		version.BacklinkAnchor,
		version.Integration,
		version.BaseVersionID,
		version.RegenCount,
		version.ReviewStatus,
		version.ScheduledAt,
		version.ScheduleStatus,
		version.JobToken,
		version.CreatedAt,
		version.UpdatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return fmt.Errorf("%w: article %s version %d",
				store.ErrVersionNumberExists, version.ArticleID, version.VersionNum)
		}
		log.Error("failed to create article version",
			slog.String("error", err.Error()),
			slog.String("version_id", version.ID.String()))
		return MapError(err)
	}

	log.Debug("article version created",
		slog.String("version_id", version.ID.String()),
		slog.Int("version_num", version.VersionNum))
	return nil
}

// GetByID implements store.VersionStore.GetByID.
// Returns store.ErrVersionNotFound if the version does not exist.
func (s *PostgresVersionStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.ArticleVersion, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT ` + versionColumns + `
		FROM article_versions
		WHERE id = $1
	`
	version, err := scanVersion(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrVersionNotFound
		}
		log.Error("failed to get article version by ID",
			slog.String("error", err.Error()),
			slog.String("version_id", id.String()))
		return nil, MapError(err)
	}
	return version, nil
}

// Update implements store.VersionStore.Update. Only the mutable review
// and scheduling fields are written; content is append-only.
func (s *PostgresVersionStore) Update(ctx context.Context, version *domain.ArticleVersion) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	version.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE article_versions
		SET review_status = $1, scheduled_at = $2, schedule_status = $3,
			job_token = $4, updated_at = $5
		WHERE id = $6
	`
	result, err := s.db.ExecContext(ctx, query,
		version.ReviewStatus,
		version.ScheduledAt,
		version.ScheduleStatus,
		version.JobToken,
		version.UpdatedAt,
		version.ID,
	)
	if err != nil {
		log.Error("failed to update article version",
			slog.String("error", err.Error()),
			slog.String("version_id", version.ID.String()))
		return MapError(err)
	}
	return checkRowsAffected(result, store.ErrVersionNotFound)
}

// NextVersionNum implements store.VersionStore.NextVersionNum. Allocation
// goes through a counter row so numbers stay monotonic per article even
// when an attempt burns a number without persisting a version.
func (s *PostgresVersionStore) NextVersionNum(ctx context.Context, articleID uuid.UUID) (int, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		INSERT INTO article_version_counters (article_id, next_num)
		VALUES ($1, 1)
		ON CONFLICT (article_id)
		DO UPDATE SET next_num = article_version_counters.next_num + 1
		RETURNING next_num
	`
	var num int
	if err := s.db.QueryRowContext(ctx, query, articleID).Scan(&num); err != nil {
		log.Error("failed to allocate version number",
			slog.String("error", err.Error()),
			slog.String("article_id", articleID.String()))
		return 0, MapError(err)
	}
	return num, nil
}

// WithTx implements store.VersionStore.WithTx.
func (s *PostgresVersionStore) WithTx(tx *sql.Tx) store.VersionStore {
	return &PostgresVersionStore{db: tx, logger: s.logger}
}

func marshalVerdict(verdict *domain.QCVerdict) ([]byte, error) {
	if verdict == nil {
		return nil, nil
	}
	data, err := json.Marshal(verdict)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal qc verdict: %w", err)
	}
	return data, nil
}

func scanVersion(row scanner) (*domain.ArticleVersion, error) {
	var version domain.ArticleVersion
	var verdict []byte
	var reviewStatus, scheduleStatus, integration string

	err := row.Scan(
		&version.ID,
		&version.ArticleID,
		&version.VersionNum,
		&version.Content,
		&version.QCAttempts,
		&verdict,
		&version.BacklinkURL,
		&version.BacklinkAnchor,
		&integration,
		&version.BaseVersionID,
		&version.RegenCount,
		&reviewStatus,
		&version.ScheduledAt,
		&scheduleStatus,
		&version.JobToken,
		&version.CreatedAt,
		&version.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(verdict) > 0 {
		version.QCVerdict = &domain.QCVerdict{}
		if err := json.Unmarshal(verdict, version.QCVerdict); err != nil {
			return nil, fmt.Errorf("failed to unmarshal qc verdict: %w", err)
		}
	}
	version.Integration = domain.IntegrationType(integration)
	version.ReviewStatus = domain.ReviewStatus(reviewStatus)
	version.ScheduleStatus = domain.ScheduleStatus(scheduleStatus)
	return &version, nil
}
