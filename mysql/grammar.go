// Package mysql provides the MySQL query grammar, schema grammar and live
// schema reader for dbkit.
package mysql

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/zoobzio/dbkit/internal/render"
	"github.com/zoobzio/dbkit/internal/types"
)

// noLimit is the largest LIMIT MySQL accepts, used for OFFSET without LIMIT.
const noLimit = "18446744073709551615"

// Grammar compiles queries for MySQL and MariaDB.
type Grammar struct {
	*render.Compiler
}

// Option configures a Grammar, Information reader or Schema manager.
type Option func(*options)

type options struct {
	codec  types.Codec
	prefix string
	logger *slog.Logger
}

func newOptions(opts []Option) options {
	o := options{logger: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithCodec sets the codec used for composite insert and update values.
func WithCodec(codec types.Codec) Option {
	return func(o *options) { o.codec = codec }
}

// WithPrefix sets the table prefix used by schema operations.
func WithPrefix(prefix string) Option {
	return func(o *options) { o.prefix = prefix }
}

// WithLogger sets the logger used by schema operations.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// New creates a MySQL grammar.
func New(opts ...Option) *Grammar {
	o := newOptions(opts)
	return &Grammar{Compiler: render.NewCompiler(dialect{}, o.codec)}
}

type dialect struct{}

func (dialect) Name() string { return "mysql" }

// Capabilities returns the statement features supported by MySQL.
func (dialect) Capabilities() render.Capabilities {
	return render.Capabilities{
		Upsert:           true,
		Replace:          true,
		UpdateJoin:       true,
		DeleteJoin:       true,
		UpdateOrderLimit: true,
		RowLocking:       render.RowLockingBasic,
	}
}

func (dialect) BoolLiteral(v bool) string {
	if v {
		return "1"
	}
	return "0"
}

func (dialect) CompileLimit(q *types.Query) string {
	if q.Limit != nil && q.LimitPair {
		offset := 0
		if q.Offset != nil && *q.Offset > 0 {
			offset = *q.Offset
		}
		return fmt.Sprintf(" LIMIT %d,%d", offset, *q.Limit)
	}
	var sql string
	if q.Limit != nil {
		sql = fmt.Sprintf(" LIMIT %d", *q.Limit)
	}
	if q.Offset != nil {
		if q.Limit == nil {
			sql = " LIMIT " + noLimit
		}
		sql += fmt.Sprintf(" OFFSET %d", *q.Offset)
	}
	return sql
}

func (dialect) CompileLock(mode types.LockMode) string {
	if mode == types.LockShared {
		return " LOCK IN SHARE MODE"
	}
	return " FOR UPDATE"
}

func (dialect) CompileUpsert(_, _, update []string) (string, error) {
	sets := make([]string, len(update))
	for i, col := range update {
		sets[i] = col + " = VALUES(" + col + ")"
	}
	return " ON DUPLICATE KEY UPDATE " + strings.Join(sets, ", "), nil
}

func (dialect) CompileTruncate(table string) string {
	return "TRUNCATE TABLE " + table
}
