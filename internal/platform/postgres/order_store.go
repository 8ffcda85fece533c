package postgres

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Inferno2211/blog-gen-sub002/internal/domain"
	"github.com/Inferno2211/blog-gen-sub002/internal/platform/logger"
	"github.com/Inferno2211/blog-gen-sub002/internal/store"
)

// PostgresOrderStore implements the store.OrderStore interface
// using a PostgreSQL database as the storage backend.
type PostgresOrderStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresOrderStore creates a new PostgreSQL implementation of the
// OrderStore interface. It accepts a database connection or transaction
// that should be initialized and managed by the caller.
func NewPostgresOrderStore(db store.DBTX, logger *slog.Logger) *PostgresOrderStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresOrderStore{
		db:     db,
		logger: logger.With(slog.String("component", "order_store")),
	}
}

var _ store.OrderStore = (*PostgresOrderStore)(nil)

const orderColumns = `id, article_id, version_id, type, status, customer_email,
		backlink_url, backlink_anchor, scheduled_at, schedule_status, created_at, updated_at`

// Create implements store.OrderStore.Create.
// Returns store.ErrInvalidEntity if the article does not exist.
func (s *PostgresOrderStore) Create(ctx context.Context, order *domain.Order) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := order.Validate(); err != nil {
		log.Warn("order validation failed during create",
			slog.String("error", err.Error()),
			slog.String("order_id", order.ID.String()))
		return err
	}

	query := `
		INSERT INTO orders (` + orderColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err := s.db.ExecContext(ctx, query,
		order.ID,
		order.ArticleID,
		order.VersionID,
		order.Type,
		order.Status,
		order.CustomerEmail,
		order.Backlink.TargetURL,
		order.Backlink.AnchorText,
		order.ScheduledAt,
		order.ScheduleStatus,
		order.CreatedAt,
		order.UpdatedAt,
	)
	if err != nil {
		log.Error("failed to create order",
			slog.String("error", err.Error()),
			slog.String("order_id", order.ID.String()))
		return MapError(err)
	}

	log.Info("order created",
		slog.String("order_id", order.ID.String()),
		slog.String("article_id", order.ArticleID.String()))
	return nil
}

// GetByID implements store.OrderStore.GetByID.
// Returns store.ErrOrderNotFound if the order does not exist.
func (s *PostgresOrderStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT ` + orderColumns + `
		FROM orders
		WHERE id = $1
	`
	order, err := scanOrder(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrOrderNotFound
		}
		log.Error("failed to get order by ID",
			slog.String("error", err.Error()),
			slog.String("order_id", id.String()))
		return nil, MapError(err)
	}
	return order, nil
}

// Update implements store.OrderStore.Update.
// Returns store.ErrOrderNotFound if the order does not exist.
func (s *PostgresOrderStore) Update(ctx context.Context, order *domain.Order) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := order.Validate(); err != nil {
		return err
	}
	order.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE orders
		SET version_id = $1, status = $2, scheduled_at = $3,
			schedule_status = $4, updated_at = $5
		WHERE id = $6
	`
	result, err := s.db.ExecContext(ctx, query,
		order.VersionID,
		order.Status,
		order.ScheduledAt,
		order.ScheduleStatus,
		order.UpdatedAt,
		order.ID,
	)
	if err != nil {
		log.Error("failed to update order",
			slog.String("error", err.Error()),
			slog.String("order_id", order.ID.String()))
		return MapError(err)
	}
	return checkRowsAffected(result, store.ErrOrderNotFound)
}

// WithTx implements store.OrderStore.WithTx.
func (s *PostgresOrderStore) WithTx(tx *sql.Tx) store.OrderStore {
	return &PostgresOrderStore{db: tx, logger: s.logger}
}

func scanOrder(row scanner) (*domain.Order, error) {
	var order domain.Order
	var orderType, status, scheduleStatus string

	err := row.Scan(
		&order.ID,
		&order.ArticleID,
		&order.VersionID,
		&orderType,
		&status,
		&order.CustomerEmail,
		&order.Backlink.TargetURL,
		&order.Backlink.AnchorText,
		&order.ScheduledAt,
		&scheduleStatus,
		&order.CreatedAt,
		&order.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	order.Type = domain.OrderType(orderType)
	order.Status = domain.OrderStatus(status)
	order.ScheduleStatus = domain.ScheduleStatus(scheduleStatus)
	return &order, nil
}
