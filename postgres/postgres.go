// Package postgres provides the PostgreSQL query grammar for dbkit.
package postgres

import (
	"fmt"
	"strings"

	"github.com/zoobzio/dbkit/internal/render"
	"github.com/zoobzio/dbkit/internal/types"
)

// Grammar compiles queries for PostgreSQL. Statements keep ? placeholders;
// the driver rebinds them to $n.
type Grammar struct {
	*render.Compiler
}

// Option configures a Grammar.
type Option func(*options)

type options struct {
	codec types.Codec
}

// WithCodec sets the codec used for composite insert and update values.
func WithCodec(codec types.Codec) Option {
	return func(o *options) { o.codec = codec }
}

// New creates a PostgreSQL grammar.
func New(opts ...Option) *Grammar {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return &Grammar{Compiler: render.NewCompiler(dialect{}, o.codec)}
}

type dialect struct{}

func (dialect) Name() string { return "postgres" }

// Capabilities returns the statement features supported by PostgreSQL.
func (dialect) Capabilities() render.Capabilities {
	return render.Capabilities{
		Upsert:     true,
		RowLocking: render.RowLockingBasic,
	}
}

func (dialect) BoolLiteral(v bool) string {
	if v {
		return "TRUE"
	}
	return "FALSE"
}

func (dialect) CompileLimit(q *types.Query) string {
	var sql string
	if q.Limit != nil {
		sql = fmt.Sprintf(" LIMIT %d", *q.Limit)
	}
	if q.Offset != nil && *q.Offset > 0 {
		sql += fmt.Sprintf(" OFFSET %d", *q.Offset)
	}
	return sql
}

func (dialect) CompileLock(mode types.LockMode) string {
	if mode == types.LockShared {
		return " FOR SHARE"
	}
	return " FOR UPDATE"
}

func (dialect) CompileUpsert(_, uniqueBy, update []string) (string, error) {
	if len(uniqueBy) == 0 {
		return "", render.NewUnsupportedFeatureError("postgres", "insert or update without a conflict target",
			"call UniqueBy with the unique columns")
	}
	sets := make([]string, len(update))
	for i, col := range update {
		sets[i] = col + " = EXCLUDED." + col
	}
	return " ON CONFLICT (" + strings.Join(uniqueBy, ", ") + ") DO UPDATE SET " + strings.Join(sets, ", "), nil
}

func (dialect) CompileTruncate(table string) string {
	return "TRUNCATE TABLE " + table
}
