package store

import (
	"context"
	"database/sql"
)

// DBTX is the subset of database/sql that the stores execute against.
// Both *sql.DB and *sql.Tx satisfy it, which is what lets WithTx swap a
// store onto an open transaction: publish finalization and schedule
// bookkeeping run several store writes atomically that way.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	PrepareContext(ctx context.Context, query string) (*sql.Stmt, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}
