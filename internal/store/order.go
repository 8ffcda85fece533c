package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/Inferno2211/blog-gen-sub002/internal/domain"
)

// OrderStore defines the interface for order data persistence.
type OrderStore interface {
	// Create saves a new order to the store.
	// Returns validation errors from the domain Order if data is invalid.
	Create(ctx context.Context, order *domain.Order) error

	// GetByID retrieves an order by its unique ID.
	// Returns ErrOrderNotFound if the order does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Order, error)

	// Update saves changes to an existing order.
	// Returns ErrOrderNotFound if the order does not exist.
	Update(ctx context.Context, order *domain.Order) error

	// WithTx returns a new OrderStore instance that uses the provided
	// transaction. The transaction is created and managed by the caller.
	WithTx(tx *sql.Tx) OrderStore
}
