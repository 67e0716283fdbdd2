// Package mssql provides the SQL Server query grammar for dbkit.
package mssql

import (
	"fmt"

	"github.com/zoobzio/dbkit/internal/render"
	"github.com/zoobzio/dbkit/internal/types"
)

// Grammar compiles queries for SQL Server. Statements keep ? placeholders;
// the driver rebinds them to @pN.
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

// New creates a SQL Server grammar.
func New(opts ...Option) *Grammar {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return &Grammar{Compiler: render.NewCompiler(dialect{}, o.codec)}
}

type dialect struct{}

func (dialect) Name() string { return "mssql" }

// Capabilities returns the statement features supported by SQL Server.
func (dialect) Capabilities() render.Capabilities {
	return render.Capabilities{
		RowLocking: render.RowLockingNone,
	}
}

func (dialect) BoolLiteral(v bool) string {
	if v {
		return "1"
	}
	return "0"
}

// CompileLimit renders OFFSET/FETCH, which requires an ORDER BY.
func (dialect) CompileLimit(q *types.Query) string {
	if q.Limit == nil && q.Offset == nil {
		return ""
	}
	var sql string
	if len(q.Orders) == 0 {
		sql = " ORDER BY (SELECT NULL)"
	}
	offset := 0
	if q.Offset != nil && *q.Offset > 0 {
		offset = *q.Offset
	}
	sql += fmt.Sprintf(" OFFSET %d ROWS", offset)
	if q.Limit != nil {
		sql += fmt.Sprintf(" FETCH NEXT %d ROWS ONLY", *q.Limit)
	}
	return sql
}

// CompileLock is never reached: RowLockingNone rejects locks first.
func (dialect) CompileLock(types.LockMode) string { return "" }

func (dialect) CompileUpsert(_, _, _ []string) (string, error) {
	return "", render.NewUnsupportedFeatureError("mssql", "insert or update",
		"use a MERGE statement through Connection.Statement")
}

func (dialect) CompileTruncate(table string) string {
	return "TRUNCATE TABLE " + table
}
