package dbkit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"sync/atomic"
	"time"

	"github.com/zoobzio/dbkit/cache"
	"github.com/zoobzio/dbkit/driver"
	"github.com/zoobzio/dbkit/internal/render"
)

// Connection pairs a Grammar with the engine statements run on.
type Connection struct {
	grammar Grammar
	engine  driver.Engine
	prefix  string
	cache   cache.Cache
	ttl     time.Duration
	catalog *Catalog
	logger  *slog.Logger

	// inTx counts open transactions. Reads skip the cache while it is
	// non-zero.
	inTx atomic.Int32
}

// Option configures a Connection.
type Option func(*Connection)

// WithEngine sets the engine statements execute on.
func WithEngine(engine driver.Engine) Option {
	return func(c *Connection) { c.engine = engine }
}

// WithPrefix sets the table prefix applied to every table reference.
func WithPrefix(prefix string) Option {
	return func(c *Connection) { c.prefix = prefix }
}

// WithCache caches the rows of cacheable reads for ttl.
func WithCache(store cache.Cache, ttl time.Duration) Option {
	return func(c *Connection) {
		c.cache = store
		c.ttl = ttl
	}
}

// WithCatalog validates table and column names against a catalog.
func WithCatalog(catalog *Catalog) Option {
	return func(c *Connection) { c.catalog = catalog }
}

// WithLogger sets the logger. A nil logger is ignored.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Connection) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New creates a Connection for grammar.
func New(grammar Grammar, opts ...Option) *Connection {
	c := &Connection{
		grammar: grammar,
		logger:  slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Grammar returns the connection's grammar.
func (c *Connection) Grammar() Grammar { return c.grammar }

// Engine returns the connection's engine, which may be nil.
func (c *Connection) Engine() driver.Engine { return c.engine }

// Prefix returns the table prefix.
func (c *Connection) Prefix() string { return c.prefix }

// TableName returns the prefixed form of table.
func (c *Connection) TableName(table string) string {
	return render.PrefixTable(c.prefix, table)
}

// Select runs a read statement, consulting the cache when one is
// configured and the statement is cacheable.
func (c *Connection) Select(ctx context.Context, sql string, args ...any) ([]driver.Row, error) {
	if c.engine == nil {
		return nil, ErrNoEngine
	}
	useCache := c.cache != nil && c.inTx.Load() == 0 && Cacheable(sql)
	var key string
	if useCache {
		key = cache.Key(sql, args)
		if v, ok := c.cache.Get(key); ok {
			c.logger.DebugContext(ctx, "cache hit", "sql", sql)
			return copyRows(v.([]driver.Row)), nil
		}
	}

	rows, err := c.engine.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", c.grammar.Name(), err)
	}
	if useCache {
		c.cache.Set(key, copyRows(rows), c.ttl)
	}
	return rows, nil
}

// copyRows copies the slice and each row map so callers cannot change
// what the cache holds.
func copyRows(rows []driver.Row) []driver.Row {
	if rows == nil {
		return nil
	}
	out := make([]driver.Row, len(rows))
	for i, row := range rows {
		out[i] = maps.Clone(row)
	}
	return out
}

// Statement runs a write statement. Any configured cache is cleared since
// cached reads may be stale afterwards.
func (c *Connection) Statement(ctx context.Context, sql string, args ...any) (driver.Result, error) {
	if c.engine == nil {
		return driver.Result{}, ErrNoEngine
	}
	res, err := c.engine.Execute(ctx, sql, args...)
	if err != nil {
		return driver.Result{}, fmt.Errorf("%s: %w", c.grammar.Name(), err)
	}
	if !Cacheable(sql) {
		c.clearCache()
	}
	return res, nil
}

// Transaction runs fn inside a transaction. The transaction is rolled back
// when fn returns an error or panics and committed otherwise.
func (c *Connection) Transaction(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if c.engine == nil {
		return ErrNoEngine
	}
	if err := c.engine.Begin(ctx); err != nil {
		return err
	}
	c.inTx.Add(1)
	defer c.inTx.Add(-1)
	defer func() {
		if p := recover(); p != nil {
			_ = c.engine.Rollback(ctx)
			c.clearCache()
			panic(p)
		}
	}()

	if err := fn(ctx); err != nil {
		rbErr := c.engine.Rollback(ctx)
		c.clearCache()
		if rbErr != nil {
			return errors.Join(err, rbErr)
		}
		return err
	}
	return c.engine.Commit(ctx)
}

func (c *Connection) clearCache() {
	if c.cache != nil {
		c.cache.Clear()
	}
}

// Table starts a query against table.
func (c *Connection) Table(table string) *Builder {
	return c.Query().From(table)
}

// Query starts a query with no table, for sub-selects and raw sources.
func (c *Connection) Query() *Builder {
	return &Builder{conn: c, query: newQuery(c.prefix)}
}
