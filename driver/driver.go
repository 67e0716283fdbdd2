// Package driver defines the database engine contract dbkit executes
// statements through, and a database/sql implementation of it for MySQL,
// PostgreSQL, SQLite and SQL Server.
package driver

import (
	"context"
	"errors"
)

var (
	// ErrNoTransaction is returned by Commit and Rollback outside a transaction.
	ErrNoTransaction = errors.New("no transaction in progress")

	// ErrTransactionActive is returned by Begin when a transaction is already open.
	ErrTransactionActive = errors.New("transaction already in progress")
)

// Row is one result row keyed by column name.
type Row map[string]any

// Result reports the outcome of a write.
type Result struct {
	LastInsertID int64
	RowsAffected int64
}

// Engine executes SQL against a database. Transactions are stateful: after
// Begin every statement runs inside the transaction until Commit or
// Rollback.
type Engine interface {
	Name() string
	Execute(ctx context.Context, query string, args ...any) (Result, error)
	Query(ctx context.Context, query string, args ...any) ([]Row, error)
	LastInsertID() int64
	RowCount() int64
	EscapeString(value string) string
	Begin(ctx context.Context) error
	// Commit runs extra statements inside the transaction before committing.
	Commit(ctx context.Context, extra ...string) error
	Rollback(ctx context.Context) error
	Close() error
}
