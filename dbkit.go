// Package dbkit builds and runs SQL through a dialect grammar. A Connection
// pairs a Grammar with an optional driver.Engine; Builders obtained from it
// accumulate a structured query whose bound values stay aligned with the
// placeholders of the compiled statement.
package dbkit

import (
	"errors"
	"regexp"

	"github.com/zoobzio/dbkit/internal/render"
	"github.com/zoobzio/dbkit/internal/types"
)

// Public aliases for the query model shared with the grammars.
type (
	Query        = types.Query
	Statement    = types.Statement
	InsertRow    = types.InsertRow
	Assignment   = types.Assignment
	Expression   = types.Expression
	Codec        = types.Codec
	JSONCodec    = types.JSONCodec
	Bindings     = types.Bindings
	Bucket       = types.Bucket
	Capabilities = render.Capabilities

	// UnsupportedFeatureError reports a statement feature the dialect cannot compile.
	UnsupportedFeatureError = render.UnsupportedFeatureError
)

var (
	// ErrNoEngine is returned when a statement is executed on a Connection without an engine.
	ErrNoEngine = errors.New("connection has no engine")

	ErrUnknownBucket   = types.ErrUnknownBucket
	ErrInvalidSubquery = types.ErrInvalidSubquery
	ErrNoCodec         = types.ErrNoCodec
)

// Raw creates an Expression that is emitted verbatim and never bound.
func Raw(sql string) Expression {
	return types.Raw(sql)
}

// Assign creates a SET pair for UpdateAssign.
func Assign(column string, value any) Assignment {
	return Assignment{Column: column, Value: value}
}

// RawAssign creates a verbatim SET fragment for UpdateAssign.
func RawAssign(sql string) Assignment {
	return Assignment{Raw: sql}
}

var writeStatement = regexp.MustCompile(`(?i)^\s*(insert|delete|update|replace|drop|create)`)

// Cacheable reports whether sql is a read whose result may be cached.
func Cacheable(sql string) bool {
	return !writeStatement.MatchString(sql)
}
