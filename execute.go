package dbkit

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/zoobzio/dbkit/driver"
	"github.com/zoobzio/dbkit/internal/render"
	"github.com/zoobzio/dbkit/internal/types"
)

const aggregateAlias = "aggregate"

// Get runs the query and returns every row.
func (b *Builder) Get(ctx context.Context) ([]driver.Row, error) {
	if b.err != nil {
		return nil, b.err
	}
	if b.query.Empty {
		return []driver.Row{}, nil
	}
	stmt, err := b.ToSQL()
	if err != nil {
		return nil, err
	}
	return b.conn.Select(ctx, stmt.SQL, stmt.Args...)
}

// First returns the first row, or nil when there is none.
func (b *Builder) First(ctx context.Context) (driver.Row, error) {
	rows, err := b.Clone().Limit(1).Get(ctx)
	if err != nil || len(rows) == 0 {
		return nil, err
	}
	return rows[0], nil
}

// Find returns the row whose id column equals id, or nil.
func (b *Builder) Find(ctx context.Context, id any) (driver.Row, error) {
	return b.Clone().Where("id", "=", id).First(ctx)
}

// Value returns one column of the first row, or nil.
func (b *Builder) Value(ctx context.Context, column string) (any, error) {
	row, err := b.Clone().Select(column).First(ctx)
	if err != nil || row == nil {
		return nil, err
	}
	return row[resultKey(column)], nil
}

// Pluck returns one column of every row.
func (b *Builder) Pluck(ctx context.Context, column string) ([]any, error) {
	rows, err := b.Clone().Select(column).Get(ctx)
	if err != nil {
		return nil, err
	}
	key := resultKey(column)
	out := make([]any, len(rows))
	for i, row := range rows {
		out[i] = row[key]
	}
	return out, nil
}

// Exists reports whether the query matches any row.
func (b *Builder) Exists(ctx context.Context) (bool, error) {
	rows, err := b.Clone().Select("1").Limit(1).Get(ctx)
	if err != nil {
		return false, err
	}
	return len(rows) > 0, nil
}

// Count returns COUNT(column), or COUNT(*) when no column is given.
func (b *Builder) Count(ctx context.Context, column ...string) (int64, error) {
	col := "*"
	if len(column) > 0 {
		col = column[0]
	}
	v, err := b.aggregate(ctx, "COUNT", col)
	if err != nil {
		return 0, err
	}
	return toInt64(v)
}

// Sum returns SUM(column).
func (b *Builder) Sum(ctx context.Context, column string) (float64, error) {
	v, err := b.aggregate(ctx, "SUM", column)
	if err != nil {
		return 0, err
	}
	return toFloat64(v)
}

// Avg returns AVG(column).
func (b *Builder) Avg(ctx context.Context, column string) (float64, error) {
	v, err := b.aggregate(ctx, "AVG", column)
	if err != nil {
		return 0, err
	}
	return toFloat64(v)
}

// Max returns MAX(column) as reported by the engine.
func (b *Builder) Max(ctx context.Context, column string) (any, error) {
	return b.aggregate(ctx, "MAX", column)
}

// Min returns MIN(column) as reported by the engine.
func (b *Builder) Min(ctx context.Context, column string) (any, error) {
	return b.aggregate(ctx, "MIN", column)
}

// AggregateSQL compiles the statement an aggregate would run.
func (b *Builder) AggregateSQL(fn, column string) (*Statement, error) {
	if b.err != nil {
		return nil, b.err
	}
	q, err := b.aggregateQuery(fn, column)
	if err != nil {
		return nil, err
	}
	return b.conn.grammar.CompileSelect(q)
}

func (b *Builder) aggregate(ctx context.Context, fn, column string) (any, error) {
	if b.err != nil {
		return nil, b.err
	}
	if b.query.Empty {
		return nil, nil
	}
	stmt, err := b.AggregateSQL(fn, column)
	if err != nil {
		return nil, err
	}
	rows, err := b.conn.Select(ctx, stmt.SQL, stmt.Args...)
	if err != nil || len(rows) == 0 {
		return nil, err
	}
	return rows[0][aggregateAlias], nil
}

// aggregateQuery replaces the select list with fn(column). Grouped, unioned
// or distinct queries are wrapped so the aggregate covers their rows.
func (b *Builder) aggregateQuery(fn, column string) (*types.Query, error) {
	expr := fn + "(" + column + ")"
	q := b.query.Clone()

	if len(q.Groups) > 0 || len(q.Unions) > 0 || q.Distinct {
		args, err := q.Bindings.Flatten()
		if err != nil {
			return nil, err
		}
		outer := newQuery("")
		outer.Selects = []types.SelectItem{{Expr: fn + "(*)", Alias: aggregateAlias}}
		if fn != "COUNT" {
			outer.Selects[0].Expr = expr
		}
		outer.From = []types.FromItem{{Sub: q, Alias: "aggregate_table"}}
		if err := outer.Bindings.Replace(types.BucketSelect, args); err != nil {
			return nil, err
		}
		return outer, nil
	}

	q.Selects = []types.SelectItem{{Expr: expr, Alias: aggregateAlias}}
	q.Orders = nil
	q.Limit, q.Offset, q.LimitPair = nil, nil, false
	if err := q.Bindings.Replace(types.BucketSelect, b.fromArgs); err != nil {
		return nil, err
	}
	if err := q.Bindings.Replace(types.BucketOrder, nil); err != nil {
		return nil, err
	}
	return q, nil
}

// Insert inserts rows given as column maps. Columns are taken in lexical
// order; rows with a different column set become separate statements.
func (b *Builder) Insert(ctx context.Context, rows ...map[string]any) (driver.Result, error) {
	if b.err != nil {
		return driver.Result{}, b.err
	}
	if b.query.Empty || len(rows) == 0 {
		return driver.Result{}, nil
	}
	stmt, err := b.ToInsertSQL(rows...)
	if err != nil {
		return driver.Result{}, err
	}
	return b.exec(ctx, stmt)
}

// InsertValues inserts rows of values aligned with columns.
func (b *Builder) InsertValues(ctx context.Context, columns []string, rows ...[]any) (driver.Result, error) {
	if b.err != nil {
		return driver.Result{}, b.err
	}
	if b.query.Empty || len(rows) == 0 {
		return driver.Result{}, nil
	}
	if err := b.validateColumns(columns); err != nil {
		return driver.Result{}, err
	}
	insertRows := make([]types.InsertRow, len(rows))
	for i, row := range rows {
		insertRows[i] = types.InsertRow{Columns: columns, Values: row}
	}
	stmt, err := b.conn.grammar.CompileInsert(b.query, insertRows)
	if err != nil {
		return driver.Result{}, err
	}
	return b.exec(ctx, stmt)
}

// InsertGetID inserts one row and returns the generated id.
func (b *Builder) InsertGetID(ctx context.Context, row map[string]any) (int64, error) {
	res, err := b.Insert(ctx, row)
	if err != nil {
		return 0, err
	}
	return res.LastInsertID, nil
}

// InsertOrUpdate inserts rows, updating the update columns (every column
// when none are named) of rows that collide on a unique key.
func (b *Builder) InsertOrUpdate(ctx context.Context, rows []map[string]any, update ...string) (driver.Result, error) {
	if b.err != nil {
		return driver.Result{}, b.err
	}
	if b.query.Empty || len(rows) == 0 {
		return driver.Result{}, nil
	}
	insertRows, err := b.mapRows(rows)
	if err != nil {
		return driver.Result{}, err
	}
	stmt, err := b.conn.grammar.CompileInsertOrUpdate(b.query, insertRows, update)
	if err != nil {
		return driver.Result{}, err
	}
	return b.exec(ctx, stmt)
}

// Replace runs REPLACE INTO for rows.
func (b *Builder) Replace(ctx context.Context, rows ...map[string]any) (driver.Result, error) {
	if b.err != nil {
		return driver.Result{}, b.err
	}
	if b.query.Empty || len(rows) == 0 {
		return driver.Result{}, nil
	}
	insertRows, err := b.mapRows(rows)
	if err != nil {
		return driver.Result{}, err
	}
	stmt, err := b.conn.grammar.CompileReplace(b.query, insertRows)
	if err != nil {
		return driver.Result{}, err
	}
	return b.exec(ctx, stmt)
}

// Update sets values on matching rows and returns the affected count.
func (b *Builder) Update(ctx context.Context, values map[string]any) (int64, error) {
	if b.err != nil {
		return 0, b.err
	}
	assignments, err := b.mapAssignments(values)
	if err != nil {
		return 0, err
	}
	return b.UpdateAssign(ctx, assignments...)
}

// UpdateAssign runs an UPDATE with ordered assignments.
func (b *Builder) UpdateAssign(ctx context.Context, assignments ...Assignment) (int64, error) {
	if b.err != nil {
		return 0, b.err
	}
	if b.query.Empty {
		return 0, nil
	}
	stmt, err := b.conn.grammar.CompileUpdate(b.query, assignments)
	if err != nil {
		return 0, err
	}
	res, err := b.exec(ctx, stmt)
	return res.RowsAffected, err
}

// Increment adds amount to column, also setting any extra values.
func (b *Builder) Increment(ctx context.Context, column string, amount int64, extra ...map[string]any) (int64, error) {
	return b.step(ctx, column, "+", amount, extra)
}

// Decrement subtracts amount from column, also setting any extra values.
func (b *Builder) Decrement(ctx context.Context, column string, amount int64, extra ...map[string]any) (int64, error) {
	return b.step(ctx, column, "-", amount, extra)
}

func (b *Builder) step(ctx context.Context, column, op string, amount int64, extra []map[string]any) (int64, error) {
	if b.err != nil {
		return 0, b.err
	}
	assignments := []Assignment{RawAssign(column + " = " + column + " " + op + " " + strconv.FormatInt(amount, 10))}
	for _, values := range extra {
		more, err := b.mapAssignments(values)
		if err != nil {
			return 0, err
		}
		assignments = append(assignments, more...)
	}
	return b.UpdateAssign(ctx, assignments...)
}

// Delete removes matching rows and returns the affected count.
func (b *Builder) Delete(ctx context.Context) (int64, error) {
	if b.err != nil {
		return 0, b.err
	}
	if b.query.Empty {
		return 0, nil
	}
	stmt, err := b.ToDeleteSQL()
	if err != nil {
		return 0, err
	}
	res, err := b.exec(ctx, stmt)
	return res.RowsAffected, err
}

// Truncate empties the table.
func (b *Builder) Truncate(ctx context.Context) error {
	if b.err != nil {
		return b.err
	}
	if b.query.Empty {
		return nil
	}
	_, err := b.exec(ctx, b.conn.grammar.CompileTruncate(b.query))
	return err
}

func (b *Builder) exec(ctx context.Context, stmt *Statement) (driver.Result, error) {
	return b.conn.Statement(ctx, stmt.SQL, stmt.Args...)
}

// resultKey is the row key a selected column comes back under.
func resultKey(column string) string {
	if _, alias := render.SplitAlias(column); alias != "" {
		return alias
	}
	if i := strings.LastIndex(column, "."); i >= 0 {
		return column[i+1:]
	}
	return column
}

var errNotNumeric = errors.New("aggregate is not numeric")

func toInt64(v any) (int64, error) {
	switch x := v.(type) {
	case nil:
		return 0, nil
	case int64:
		return x, nil
	case int:
		return int64(x), nil
	case int32:
		return int64(x), nil
	case uint64:
		return int64(x), nil
	case float64:
		return int64(x), nil
	case string:
		return strconv.ParseInt(x, 10, 64)
	case []byte:
		return strconv.ParseInt(string(x), 10, 64)
	}
	return 0, fmt.Errorf("%w: %T", errNotNumeric, v)
}

func toFloat64(v any) (float64, error) {
	switch x := v.(type) {
	case nil:
		return 0, nil
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	case int64:
		return float64(x), nil
	case int:
		return float64(x), nil
	case uint64:
		return float64(x), nil
	case string:
		return strconv.ParseFloat(x, 64)
	case []byte:
		return strconv.ParseFloat(string(x), 64)
	}
	return 0, fmt.Errorf("%w: %T", errNotNumeric, v)
}
