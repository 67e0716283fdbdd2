package driver

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DB is an Engine backed by database/sql.
type DB struct {
	name        string
	db          *sql.DB
	placeholder Placeholder
	escape      func(string) string
	logger      *slog.Logger

	mu       sync.Mutex
	tx       *sql.Tx
	txID     string
	lastID   int64
	rowCount int64
}

// Option configures a DB.
type Option func(*DB)

// WithLogger sets the statement logger.
func WithLogger(logger *slog.Logger) Option {
	return func(d *DB) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithPlaceholder sets the bind parameter style statements are rebound to.
func WithPlaceholder(p Placeholder) Option {
	return func(d *DB) { d.placeholder = p }
}

// WithEscaper sets the string literal escaper.
func WithEscaper(fn func(string) string) Option {
	return func(d *DB) { d.escape = fn }
}

// New wraps an open *sql.DB.
func New(name string, db *sql.DB, opts ...Option) *DB {
	d := &DB{
		name:   name,
		db:     db,
		escape: EscapeStandard,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Name returns the engine name.
func (d *DB) Name() string { return d.name }

// DB returns the underlying pool.
func (d *DB) DB() *sql.DB { return d.db }

type conn interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (d *DB) conn() (conn, string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.tx != nil {
		return d.tx, d.txID
	}
	return d.db, ""
}

// Execute runs a statement that returns no rows.
func (d *DB) Execute(ctx context.Context, query string, args ...any) (Result, error) {
	query = Rebind(d.placeholder, query)
	c, txID := d.conn()

	start := time.Now()
	res, err := c.ExecContext(ctx, query, args...)
	d.logStatement(ctx, query, args, txID, start, err)
	if err != nil {
		return Result{}, err
	}

	var r Result
	if id, err := res.LastInsertId(); err == nil {
		r.LastInsertID = id
	}
	if n, err := res.RowsAffected(); err == nil {
		r.RowsAffected = n
	}

	d.mu.Lock()
	d.lastID = r.LastInsertID
	d.rowCount = r.RowsAffected
	d.mu.Unlock()
	return r, nil
}

// Query runs a statement and returns its rows. []byte column values are
// returned as strings.
func (d *DB) Query(ctx context.Context, query string, args ...any) ([]Row, error) {
	query = Rebind(d.placeholder, query)
	c, txID := d.conn()

	start := time.Now()
	rows, err := c.QueryContext(ctx, query, args...)
	d.logStatement(ctx, query, args, txID, start, err)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	out := []Row{}
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make(Row, len(cols))
		for i, col := range cols {
			if b, ok := values[i].([]byte); ok {
				row[col] = string(b)
			} else {
				row[col] = values[i]
			}
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	d.mu.Lock()
	d.rowCount = int64(len(out))
	d.mu.Unlock()
	return out, nil
}

// LastInsertID returns the id generated by the last Execute.
func (d *DB) LastInsertID() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lastID
}

// RowCount returns the rows affected or returned by the last statement.
func (d *DB) RowCount() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.rowCount
}

// EscapeString quotes value as a string literal for this engine.
func (d *DB) EscapeString(value string) string {
	return d.escape(value)
}

// Begin opens a transaction. Transactions do not nest.
func (d *DB) Begin(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.tx != nil {
		return ErrTransactionActive
	}
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	d.tx = tx
	d.txID = uuid.NewString()
	d.logger.DebugContext(ctx, "transaction started", "engine", d.name, "tx", d.txID)
	return nil
}

// Commit runs extra statements inside the transaction and commits it. A
// failing extra statement rolls the transaction back.
func (d *DB) Commit(ctx context.Context, extra ...string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.tx == nil {
		return ErrNoTransaction
	}
	tx, txID := d.tx, d.txID
	d.tx, d.txID = nil, ""

	for _, stmt := range extra {
		stmt = Rebind(d.placeholder, stmt)
		start := time.Now()
		_, err := tx.ExecContext(ctx, stmt)
		d.logStatement(ctx, stmt, nil, txID, start, err)
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("commit: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	d.logger.DebugContext(ctx, "transaction committed", "engine", d.name, "tx", txID)
	return nil
}

// Rollback aborts the open transaction.
func (d *DB) Rollback(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.tx == nil {
		return ErrNoTransaction
	}
	tx, txID := d.tx, d.txID
	d.tx, d.txID = nil, ""
	if err := tx.Rollback(); err != nil {
		return fmt.Errorf("rollback: %w", err)
	}
	d.logger.DebugContext(ctx, "transaction rolled back", "engine", d.name, "tx", txID)
	return nil
}

// Close closes the pool.
func (d *DB) Close() error {
	return d.db.Close()
}

func (d *DB) logStatement(ctx context.Context, query string, args []any, txID string, start time.Time, err error) {
	attrs := []any{
		"engine", d.name,
		"sql", query,
		"args", len(args),
		"duration", time.Since(start),
	}
	if txID != "" {
		attrs = append(attrs, "tx", txID)
	}
	if err != nil {
		d.logger.ErrorContext(ctx, "statement failed", append(attrs, "error", err)...)
		return
	}
	d.logger.DebugContext(ctx, "statement", attrs...)
}
