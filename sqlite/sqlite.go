// Package sqlite provides the SQLite query grammar for dbkit.
package sqlite

import (
	"fmt"
	"strings"

	"github.com/zoobzio/dbkit/internal/render"
	"github.com/zoobzio/dbkit/internal/types"
)

// Grammar compiles queries for SQLite.
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

// New creates a SQLite grammar.
func New(opts ...Option) *Grammar {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return &Grammar{Compiler: render.NewCompiler(dialect{}, o.codec)}
}

type dialect struct{}

func (dialect) Name() string { return "sqlite" }

// Capabilities returns the statement features supported by SQLite.
func (dialect) Capabilities() render.Capabilities {
	return render.Capabilities{
		Upsert:     true,
		Replace:    true,
		RowLocking: render.RowLockingNone,
	}
}

func (dialect) BoolLiteral(v bool) string {
	if v {
		return "1"
	}
	return "0"
}

func (dialect) CompileLimit(q *types.Query) string {
	var sql string
	if q.Limit != nil {
		sql = fmt.Sprintf(" LIMIT %d", *q.Limit)
	}
	if q.Offset != nil && *q.Offset > 0 {
		if q.Limit == nil {
			sql = " LIMIT -1"
		}
		sql += fmt.Sprintf(" OFFSET %d", *q.Offset)
	}
	return sql
}

// CompileLock is never reached: RowLockingNone rejects locks first.
func (dialect) CompileLock(types.LockMode) string { return "" }

func (dialect) CompileUpsert(_, uniqueBy, update []string) (string, error) {
	if len(uniqueBy) == 0 {
		return "", render.NewUnsupportedFeatureError("sqlite", "insert or update without a conflict target",
			"call UniqueBy with the unique columns")
	}
	sets := make([]string, len(update))
	for i, col := range update {
		sets[i] = col + " = excluded." + col
	}
	return " ON CONFLICT (" + strings.Join(uniqueBy, ", ") + ") DO UPDATE SET " + strings.Join(sets, ", "), nil
}

func (dialect) CompileTruncate(table string) string {
	return "DELETE FROM " + table
}
