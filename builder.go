package dbkit

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/zoobzio/dbkit/internal/render"
	"github.com/zoobzio/dbkit/internal/types"
)

// Builder provides a fluent API for constructing queries. The first error
// raised by a chained call is kept and every later call is a no-op.
type Builder struct {
	conn  *Connection
	query *types.Query
	err   error

	// select bucket contents kept apart so sub-select and from-subquery
	// bindings stay ordered the way they appear in SQL.
	selectArgs []any
	fromArgs   []any
}

func newQuery(prefix string) *types.Query {
	return types.NewQuery(prefix)
}

// Build returns the structured query.
func (b *Builder) Build() (*Query, error) {
	if b.err != nil {
		return nil, b.err
	}
	return b.query, nil
}

// MustBuild returns the structured query or panics.
func (b *Builder) MustBuild() *Query {
	q, err := b.Build()
	if err != nil {
		panic(err)
	}
	return q
}

// Err returns the first error raised while building.
func (b *Builder) Err() error {
	return b.err
}

// Bindings returns the query's binding store.
func (b *Builder) Bindings() *Bindings {
	return b.query.Bindings
}

// Clone returns an independent copy of the builder.
func (b *Builder) Clone() *Builder {
	return &Builder{
		conn:       b.conn,
		query:      b.query.Clone(),
		err:        b.err,
		selectArgs: append([]any(nil), b.selectArgs...),
		fromArgs:   append([]any(nil), b.fromArgs...),
	}
}

func (b *Builder) fail(err error) *Builder {
	if b.err == nil {
		b.err = err
	}
	return b
}

func (b *Builder) bind(bucket types.Bucket, value any) {
	if err := b.query.Bindings.Add(bucket, value); err != nil {
		b.fail(err)
	}
}

// bindOne registers value as a single binding even when it is a slice.
func (b *Builder) bindOne(bucket types.Bucket, value any) {
	b.bind(bucket, []any{value})
}

func (b *Builder) syncSelectBindings() {
	args := append(append([]any(nil), b.selectArgs...), b.fromArgs...)
	if err := b.query.Bindings.Replace(types.BucketSelect, args); err != nil {
		b.fail(err)
	}
}

func (b *Builder) validateTable(table string) {
	if b.conn.catalog == nil {
		return
	}
	if err := b.conn.catalog.ValidateTable(table); err != nil {
		b.fail(err)
	}
}

// From sets the table the query reads from and writes to.
func (b *Builder) From(table string) *Builder {
	if b.err != nil {
		return b
	}
	b.validateTable(table)
	b.query.Table = table
	b.query.From = []types.FromItem{{Table: table}}
	b.fromArgs = nil
	b.syncSelectBindings()
	return b
}

// FromSub reads from a sub-select. sub is a *Builder, raw SQL string or
// Expression.
func (b *Builder) FromSub(sub any, alias string) *Builder {
	if b.err != nil {
		return b
	}
	q, args, err := subquery(sub)
	if err != nil {
		return b.fail(err)
	}
	b.query.From = []types.FromItem{{Sub: q, Alias: alias}}
	b.fromArgs = args
	b.syncSelectBindings()
	return b
}

// Select replaces the select list.
func (b *Builder) Select(columns ...string) *Builder {
	if b.err != nil {
		return b
	}
	b.query.Selects = nil
	b.selectArgs = nil
	b.syncSelectBindings()
	return b.AddSelect(columns...)
}

// AddSelect appends to the select list.
func (b *Builder) AddSelect(columns ...string) *Builder {
	if b.err != nil {
		return b
	}
	for _, col := range columns {
		b.query.Selects = append(b.query.Selects, types.SelectItem{Expr: col})
	}
	return b
}

// SelectAs appends "expr AS alias" to the select list.
func (b *Builder) SelectAs(expr, alias string) *Builder {
	if b.err != nil {
		return b
	}
	b.query.Selects = append(b.query.Selects, types.SelectItem{Expr: expr, Alias: alias})
	return b
}

// SelectRaw appends a raw select expression with its bindings.
func (b *Builder) SelectRaw(sql string, bindings ...any) *Builder {
	if b.err != nil {
		return b
	}
	b.query.Selects = append(b.query.Selects, types.SelectItem{Expr: sql})
	b.selectArgs = append(b.selectArgs, bindings...)
	b.syncSelectBindings()
	return b
}

// SelectSub appends "(sub) AS alias" to the select list.
func (b *Builder) SelectSub(sub any, alias string) *Builder {
	if b.err != nil {
		return b
	}
	q, args, err := subquery(sub)
	if err != nil {
		return b.fail(err)
	}
	b.query.Selects = append(b.query.Selects, types.SelectItem{Sub: q, Alias: alias})
	b.selectArgs = append(b.selectArgs, args...)
	b.syncSelectBindings()
	return b
}

// Distinct makes the query return distinct rows.
func (b *Builder) Distinct() *Builder {
	if b.err != nil {
		return b
	}
	b.query.Distinct = true
	return b
}

// Join adds an inner join. args is (second) or (operator, second).
func (b *Builder) Join(table, first string, args ...string) *Builder {
	return b.join("inner", table, first, args)
}

// LeftJoin adds a left join.
func (b *Builder) LeftJoin(table, first string, args ...string) *Builder {
	return b.join("left", table, first, args)
}

// RightJoin adds a right join.
func (b *Builder) RightJoin(table, first string, args ...string) *Builder {
	return b.join("right", table, first, args)
}

// CrossJoin adds a cross join.
func (b *Builder) CrossJoin(table string) *Builder {
	if b.err != nil {
		return b
	}
	b.validateTable(table)
	b.query.Joins = append(b.query.Joins, types.Join{Type: "cross", Table: table})
	return b
}

func (b *Builder) join(joinType, table, first string, args []string) *Builder {
	if b.err != nil {
		return b
	}
	op, second, err := columnComparison(args)
	if err != nil {
		return b.fail(fmt.Errorf("join %s: %w", table, err))
	}
	b.validateTable(table)
	b.query.Joins = append(b.query.Joins, types.Join{
		Type:  joinType,
		Table: table,
		On:    first + " " + op + " " + second,
	})
	return b
}

// JoinWhere adds an inner join comparing a column with a bound value.
func (b *Builder) JoinWhere(table, first, op string, value any) *Builder {
	return b.joinWhere("inner", table, first, op, value)
}

// LeftJoinWhere adds a left join comparing a column with a bound value.
func (b *Builder) LeftJoinWhere(table, first, op string, value any) *Builder {
	return b.joinWhere("left", table, first, op, value)
}

func (b *Builder) joinWhere(joinType, table, first, op string, value any) *Builder {
	if b.err != nil {
		return b
	}
	if !types.IsOperator(op) {
		return b.fail(fmt.Errorf("join %s: invalid operator %q", table, op))
	}
	b.validateTable(table)
	v := types.ValueOf(value)
	b.query.Joins = append(b.query.Joins, types.Join{
		Type:  joinType,
		Table: table,
		On:    first + " " + op + " " + render.Parameter(v),
	})
	b.bindOne(types.BucketJoin, value)
	return b
}

// JoinRaw adds a join with a raw on-expression and its bindings.
func (b *Builder) JoinRaw(joinType, table, on string, bindings ...any) *Builder {
	if b.err != nil {
		return b
	}
	b.validateTable(table)
	b.query.Joins = append(b.query.Joins, types.Join{Type: joinType, Table: table, On: on})
	for _, v := range bindings {
		b.bind(types.BucketJoin, v)
	}
	return b
}

// GroupBy appends grouping columns.
func (b *Builder) GroupBy(columns ...string) *Builder {
	if b.err != nil {
		return b
	}
	b.query.Groups = append(b.query.Groups, columns...)
	return b
}

// OrderBy appends to the order list. Items are columns, each optionally
// followed by "asc" or "desc": OrderBy("created_at", "desc", "id").
func (b *Builder) OrderBy(items ...string) *Builder {
	if b.err != nil {
		return b
	}
	b.query.Orders = append(b.query.Orders, items...)
	return b
}

// OrderByDesc orders by column descending.
func (b *Builder) OrderByDesc(column string) *Builder {
	return b.OrderBy(column, "desc")
}

// OrderByRaw appends a raw order expression with its bindings.
func (b *Builder) OrderByRaw(sql string, bindings ...any) *Builder {
	if b.err != nil {
		return b
	}
	b.query.Orders = append(b.query.Orders, sql)
	for _, v := range bindings {
		b.bind(types.BucketOrder, v)
	}
	return b
}

// Union appends a UNION with another select.
func (b *Builder) Union(sub any) *Builder {
	return b.union(sub, false)
}

// UnionAll appends a UNION ALL with another select.
func (b *Builder) UnionAll(sub any) *Builder {
	return b.union(sub, true)
}

func (b *Builder) union(sub any, all bool) *Builder {
	if b.err != nil {
		return b
	}
	q, args, err := subquery(sub)
	if err != nil {
		return b.fail(err)
	}
	b.query.Unions = append(b.query.Unions, types.Union{Query: q, All: all})
	b.bind(types.BucketUnion, args)
	return b
}

// Limit sets the row limit. A negative n clears it.
func (b *Builder) Limit(n int) *Builder {
	if b.err != nil {
		return b
	}
	b.query.LimitPair = false
	if n < 0 {
		b.query.Limit = nil
		return b
	}
	b.query.Limit = &n
	return b
}

// LimitString accepts "count" or "offset,count". A negative offset is
// clamped to zero.
func (b *Builder) LimitString(spec string) *Builder {
	if b.err != nil {
		return b
	}
	parts := strings.Split(spec, ",")
	if len(parts) > 2 {
		return b.fail(fmt.Errorf("invalid limit %q", spec))
	}
	nums := make([]int, len(parts))
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return b.fail(fmt.Errorf("invalid limit %q: %w", spec, err))
		}
		nums[i] = n
	}
	if len(nums) == 1 {
		return b.Limit(nums[0])
	}
	offset, count := max(nums[0], 0), nums[1]
	b.query.Offset = &offset
	b.query.Limit = &count
	b.query.LimitPair = true
	return b
}

// Offset sets the number of rows to skip. Negative values become zero.
func (b *Builder) Offset(n int) *Builder {
	if b.err != nil {
		return b
	}
	n = max(n, 0)
	b.query.Offset = &n
	return b
}

// Take is an alias of Limit.
func (b *Builder) Take(n int) *Builder { return b.Limit(n) }

// Skip is an alias of Offset.
func (b *Builder) Skip(n int) *Builder { return b.Offset(n) }

// ForPage limits the query to one page of perPage rows, counting from 1.
func (b *Builder) ForPage(page, perPage int) *Builder {
	return b.Offset((page - 1) * perPage).Limit(perPage)
}

// LockForUpdate adds an exclusive row lock.
func (b *Builder) LockForUpdate() *Builder {
	if b.err != nil {
		return b
	}
	b.query.Lock = types.LockForUpdate
	return b
}

// SharedLock adds a shared row lock.
func (b *Builder) SharedLock() *Builder {
	if b.err != nil {
		return b
	}
	b.query.Lock = types.LockShared
	return b
}

// UniqueBy sets the conflict target used by InsertOrUpdate on dialects
// that need one.
func (b *Builder) UniqueBy(columns ...string) *Builder {
	if b.err != nil {
		return b
	}
	b.query.UniqueBy = columns
	return b
}

// Nothing marks the query as empty. Chained calls are still accepted but
// executing it never reaches the engine.
func (b *Builder) Nothing() *Builder {
	b.query.Empty = true
	return b
}

// AddBinding registers value in the named bucket.
func (b *Builder) AddBinding(value any, bucket string) *Builder {
	if b.err != nil {
		return b
	}
	bk, err := types.ParseBucket(bucket)
	if err != nil {
		return b.fail(err)
	}
	if bk == types.BucketSelect {
		b.selectArgs = append(b.selectArgs, value)
		b.syncSelectBindings()
		return b
	}
	b.bind(bk, value)
	return b
}

// ToSQL compiles the query as a SELECT.
func (b *Builder) ToSQL() (*Statement, error) {
	if b.err != nil {
		return nil, b.err
	}
	return b.conn.grammar.CompileSelect(b.query)
}

// MustToSQL compiles the query as a SELECT or panics.
func (b *Builder) MustToSQL() *Statement {
	stmt, err := b.ToSQL()
	if err != nil {
		panic(err)
	}
	return stmt
}

// ToInsertSQL compiles an INSERT of rows without executing it.
func (b *Builder) ToInsertSQL(rows ...map[string]any) (*Statement, error) {
	if b.err != nil {
		return nil, b.err
	}
	insertRows, err := b.mapRows(rows)
	if err != nil {
		return nil, err
	}
	return b.conn.grammar.CompileInsert(b.query, insertRows)
}

// ToUpdateSQL compiles an UPDATE setting values without executing it.
func (b *Builder) ToUpdateSQL(values map[string]any) (*Statement, error) {
	if b.err != nil {
		return nil, b.err
	}
	assignments, err := b.mapAssignments(values)
	if err != nil {
		return nil, err
	}
	return b.conn.grammar.CompileUpdate(b.query, assignments)
}

// ToDeleteSQL compiles a DELETE without executing it.
func (b *Builder) ToDeleteSQL() (*Statement, error) {
	if b.err != nil {
		return nil, b.err
	}
	return b.conn.grammar.CompileDelete(b.query)
}

func (b *Builder) mapRows(rows []map[string]any) ([]types.InsertRow, error) {
	out := make([]types.InsertRow, len(rows))
	for i, row := range rows {
		cols := render.SortedKeys(row)
		if err := b.validateColumns(cols); err != nil {
			return nil, err
		}
		values := make([]any, len(cols))
		for j, col := range cols {
			values[j] = row[col]
		}
		out[i] = types.InsertRow{Columns: cols, Values: values}
	}
	return out, nil
}

func (b *Builder) mapAssignments(values map[string]any) ([]types.Assignment, error) {
	cols := render.SortedKeys(values)
	if err := b.validateColumns(cols); err != nil {
		return nil, err
	}
	out := make([]types.Assignment, len(cols))
	for i, col := range cols {
		out[i] = types.Assignment{Column: col, Value: values[col]}
	}
	return out, nil
}

func (b *Builder) validateColumns(columns []string) error {
	if b.conn.catalog == nil {
		return nil
	}
	for _, col := range columns {
		if err := b.conn.catalog.ValidateColumn(b.query.Table, col); err != nil {
			return err
		}
	}
	return nil
}

// columnComparison reads (second) or (operator, second).
func columnComparison(args []string) (op, second string, err error) {
	switch len(args) {
	case 1:
		return "=", args[0], nil
	case 2:
		if !types.IsOperator(args[0]) {
			return "=", args[0], nil
		}
		return args[0], args[1], nil
	}
	return "", "", fmt.Errorf("expected (second) or (operator, second), got %d arguments", len(args))
}

// subquery resolves a sub-select argument into a query and its bindings.
// A builder is copied so later calls on it cannot change the parent.
func subquery(sub any) (*types.Query, []any, error) {
	switch s := sub.(type) {
	case *Builder:
		if s == nil {
			return nil, nil, ErrInvalidSubquery
		}
		if s.err != nil {
			return nil, nil, s.err
		}
		args, err := s.query.Bindings.Flatten()
		if err != nil {
			return nil, nil, err
		}
		return s.query.Clone(), args, nil
	case string:
		return &types.Query{Raw: s, Bindings: types.NewBindings()}, nil, nil
	case Expression:
		return &types.Query{Raw: s.SQL, Bindings: types.NewBindings()}, nil, nil
	}
	return nil, nil, fmt.Errorf("%w: got %T", ErrInvalidSubquery, sub)
}
