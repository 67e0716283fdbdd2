package dbkit

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/zoobzio/dbkit/internal/render"
	"github.com/zoobzio/dbkit/internal/types"
)

// Where adds an and-connected condition. args is (value) or
// (operator, value). When the first of two args is not a known operator it
// is taken as the value and the operator is "=". A nil value produces
// IS NULL, or IS NOT NULL for any operator other than "=".
func (b *Builder) Where(column string, args ...any) *Builder {
	return b.where(types.And, column, args)
}

// OrWhere adds an or-connected condition.
func (b *Builder) OrWhere(column string, args ...any) *Builder {
	return b.where(types.Or, column, args)
}

func (b *Builder) where(boolean, column string, args []any) *Builder {
	if b.err != nil {
		return b
	}
	op, value, err := operatorValue(column, args)
	if err != nil {
		return b.fail(err)
	}

	switch strings.ToLower(op) {
	case "in", "not in":
		return b.whereIn(boolean, column, spread([]any{value}), strings.EqualFold(op, "not in"))
	case "between", "not between":
		bounds := spread([]any{value})
		if len(bounds) != 2 {
			return b.fail(fmt.Errorf("where %s %s: need two bounds, got %d", column, op, len(bounds)))
		}
		return b.whereBetween(boolean, column, bounds[0], bounds[1], strings.EqualFold(op, "not between"))
	}

	if value == nil {
		return b.whereNull(boolean, column, nullNegated(op))
	}
	b.query.Wheres = append(b.query.Wheres, types.WhereNode{
		Kind:     types.WhereBasic,
		Boolean:  boolean,
		Column:   column,
		Operator: op,
		Value:    types.ValueOf(value),
	})
	b.bindOne(types.BucketWhere, value)
	return b
}

// WhereMap adds a nested group of equality conditions, one per key in
// lexical key order.
func (b *Builder) WhereMap(conditions map[string]any) *Builder {
	if b.err != nil || len(conditions) == 0 {
		return b
	}
	return b.WhereNested(func(q *Builder) {
		for _, col := range render.SortedKeys(conditions) {
			q.Where(col, conditions[col])
		}
	})
}

// OrWhereMap is the or-connected WhereMap: the group is joined with or,
// its conditions with and.
func (b *Builder) OrWhereMap(conditions map[string]any) *Builder {
	if b.err != nil || len(conditions) == 0 {
		return b
	}
	return b.OrWhereNested(func(q *Builder) {
		for _, col := range render.SortedKeys(conditions) {
			q.Where(col, conditions[col])
		}
	})
}

// WhereColumn compares two columns. args is (second) or (operator, second).
func (b *Builder) WhereColumn(first string, args ...string) *Builder {
	return b.whereColumn(types.And, first, args)
}

// OrWhereColumn is the or-connected WhereColumn.
func (b *Builder) OrWhereColumn(first string, args ...string) *Builder {
	return b.whereColumn(types.Or, first, args)
}

func (b *Builder) whereColumn(boolean, first string, args []string) *Builder {
	if b.err != nil {
		return b
	}
	op, second, err := columnComparison(args)
	if err != nil {
		return b.fail(fmt.Errorf("where column %s: %w", first, err))
	}
	b.query.Wheres = append(b.query.Wheres, types.WhereNode{
		Kind:     types.WhereColumn,
		Boolean:  boolean,
		Column:   first,
		Operator: op,
		Second:   second,
	})
	return b
}

// WhereNull adds "column IS NULL".
func (b *Builder) WhereNull(column string) *Builder {
	return b.whereNull(types.And, column, false)
}

// OrWhereNull adds "or column IS NULL".
func (b *Builder) OrWhereNull(column string) *Builder {
	return b.whereNull(types.Or, column, false)
}

// WhereNotNull adds "column IS NOT NULL".
func (b *Builder) WhereNotNull(column string) *Builder {
	return b.whereNull(types.And, column, true)
}

// OrWhereNotNull adds "or column IS NOT NULL".
func (b *Builder) OrWhereNotNull(column string) *Builder {
	return b.whereNull(types.Or, column, true)
}

func (b *Builder) whereNull(boolean, column string, not bool) *Builder {
	if b.err != nil {
		return b
	}
	b.query.Wheres = append(b.query.Wheres, types.WhereNode{
		Kind:    types.WhereNull,
		Boolean: boolean,
		Column:  column,
		Negated: not,
	})
	return b
}

// WhereIn adds "column IN (...)". A single slice argument is spread; a
// single *Builder argument becomes a sub-select. An empty list compiles to
// a condition that is always false.
func (b *Builder) WhereIn(column string, values ...any) *Builder {
	return b.whereIn(types.And, column, values, false)
}

// OrWhereIn is the or-connected WhereIn.
func (b *Builder) OrWhereIn(column string, values ...any) *Builder {
	return b.whereIn(types.Or, column, values, false)
}

// WhereNotIn adds "column NOT IN (...)". An empty list is always true.
func (b *Builder) WhereNotIn(column string, values ...any) *Builder {
	return b.whereIn(types.And, column, values, true)
}

// OrWhereNotIn is the or-connected WhereNotIn.
func (b *Builder) OrWhereNotIn(column string, values ...any) *Builder {
	return b.whereIn(types.Or, column, values, true)
}

func (b *Builder) whereIn(boolean, column string, values []any, not bool) *Builder {
	if b.err != nil {
		return b
	}
	if len(values) == 1 {
		if sub, ok := values[0].(*Builder); ok {
			return b.whereInSub(boolean, column, sub, not)
		}
	}
	values = spread(values)
	node := types.WhereNode{
		Kind:    types.WhereIn,
		Boolean: boolean,
		Column:  column,
		Negated: not,
		Values:  make([]types.Value, len(values)),
	}
	for i, v := range values {
		node.Values[i] = types.ValueOf(v)
		b.bindOne(types.BucketWhere, v)
	}
	b.query.Wheres = append(b.query.Wheres, node)
	return b
}

// WhereInSub adds "column IN (sub)". sub is a *Builder, raw SQL string or
// Expression.
func (b *Builder) WhereInSub(column string, sub any) *Builder {
	return b.whereInSub(types.And, column, sub, false)
}

// WhereNotInSub adds "column NOT IN (sub)".
func (b *Builder) WhereNotInSub(column string, sub any) *Builder {
	return b.whereInSub(types.And, column, sub, true)
}

func (b *Builder) whereInSub(boolean, column string, sub any, not bool) *Builder {
	if b.err != nil {
		return b
	}
	q, args, err := subquery(sub)
	if err != nil {
		return b.fail(err)
	}
	b.query.Wheres = append(b.query.Wheres, types.WhereNode{
		Kind:    types.WhereInSub,
		Boolean: boolean,
		Column:  column,
		Negated: not,
		Query:   q,
	})
	b.bind(types.BucketWhere, args)
	return b
}

// WhereBetween adds "column BETWEEN ? AND ?".
func (b *Builder) WhereBetween(column string, low, high any) *Builder {
	return b.whereBetween(types.And, column, low, high, false)
}

// OrWhereBetween is the or-connected WhereBetween.
func (b *Builder) OrWhereBetween(column string, low, high any) *Builder {
	return b.whereBetween(types.Or, column, low, high, false)
}

// WhereNotBetween adds "column NOT BETWEEN ? AND ?".
func (b *Builder) WhereNotBetween(column string, low, high any) *Builder {
	return b.whereBetween(types.And, column, low, high, true)
}

func (b *Builder) whereBetween(boolean, column string, low, high any, not bool) *Builder {
	if b.err != nil {
		return b
	}
	b.query.Wheres = append(b.query.Wheres, types.WhereNode{
		Kind:    types.WhereBetween,
		Boolean: boolean,
		Column:  column,
		Negated: not,
		Values:  []types.Value{types.ValueOf(low), types.ValueOf(high)},
	})
	b.bindOne(types.BucketWhere, low)
	b.bindOne(types.BucketWhere, high)
	return b
}

// WhereRaw adds a raw condition. Slice bindings are spread one level.
func (b *Builder) WhereRaw(sql string, bindings ...any) *Builder {
	return b.whereRaw(types.And, sql, bindings)
}

// OrWhereRaw is the or-connected WhereRaw.
func (b *Builder) OrWhereRaw(sql string, bindings ...any) *Builder {
	return b.whereRaw(types.Or, sql, bindings)
}

func (b *Builder) whereRaw(boolean, sql string, bindings []any) *Builder {
	if b.err != nil {
		return b
	}
	b.query.Wheres = append(b.query.Wheres, types.WhereNode{Kind: types.WhereRaw, Boolean: boolean, SQL: sql})
	for _, v := range bindings {
		b.bind(types.BucketWhere, v)
	}
	return b
}

// WhereNested adds a parenthesized group built by fn. An empty group adds
// nothing.
func (b *Builder) WhereNested(fn func(q *Builder)) *Builder {
	return b.whereNested(types.And, fn)
}

// OrWhereNested is the or-connected WhereNested.
func (b *Builder) OrWhereNested(fn func(q *Builder)) *Builder {
	return b.whereNested(types.Or, fn)
}

func (b *Builder) whereNested(boolean string, fn func(q *Builder)) *Builder {
	if b.err != nil {
		return b
	}
	nested := &Builder{conn: b.conn, query: newQuery(b.query.Prefix)}
	nested.query.Table = b.query.Table
	fn(nested)
	if nested.err != nil {
		return b.fail(nested.err)
	}
	if len(nested.query.Wheres) == 0 {
		return b
	}
	b.query.Wheres = append(b.query.Wheres, types.WhereNode{Kind: types.WhereNested, Boolean: boolean, Query: nested.query.Clone()})
	args, err := nested.query.Bindings.Flatten(types.BucketWhere)
	if err != nil {
		return b.fail(err)
	}
	b.bind(types.BucketWhere, args)
	return b
}

// WhereExists adds "EXISTS (sub)".
func (b *Builder) WhereExists(sub any) *Builder {
	return b.whereExists(types.And, sub, false)
}

// OrWhereExists is the or-connected WhereExists.
func (b *Builder) OrWhereExists(sub any) *Builder {
	return b.whereExists(types.Or, sub, false)
}

// WhereNotExists adds "NOT EXISTS (sub)".
func (b *Builder) WhereNotExists(sub any) *Builder {
	return b.whereExists(types.And, sub, true)
}

func (b *Builder) whereExists(boolean string, sub any, not bool) *Builder {
	if b.err != nil {
		return b
	}
	q, args, err := subquery(sub)
	if err != nil {
		return b.fail(err)
	}
	b.query.Wheres = append(b.query.Wheres, types.WhereNode{Kind: types.WhereExists, Boolean: boolean, Negated: not, Query: q})
	b.bind(types.BucketWhere, args)
	return b
}

// Having adds an and-connected having condition with the same argument
// rules as Where.
func (b *Builder) Having(column string, args ...any) *Builder {
	return b.having(types.And, column, args)
}

// OrHaving is the or-connected Having.
func (b *Builder) OrHaving(column string, args ...any) *Builder {
	return b.having(types.Or, column, args)
}

func (b *Builder) having(boolean, column string, args []any) *Builder {
	if b.err != nil {
		return b
	}
	op, value, err := operatorValue(column, args)
	if err != nil {
		return b.fail(err)
	}
	if value == nil {
		b.query.Havings = append(b.query.Havings, types.WhereNode{
			Kind: types.WhereNull, Boolean: boolean, Column: column, Negated: nullNegated(op),
		})
		return b
	}
	b.query.Havings = append(b.query.Havings, types.WhereNode{
		Kind:     types.WhereBasic,
		Boolean:  boolean,
		Column:   column,
		Operator: op,
		Value:    types.ValueOf(value),
	})
	b.bindOne(types.BucketHaving, value)
	return b
}

// HavingRaw adds a raw having condition.
func (b *Builder) HavingRaw(sql string, bindings ...any) *Builder {
	return b.havingRaw(types.And, sql, bindings)
}

// OrHavingRaw is the or-connected HavingRaw.
func (b *Builder) OrHavingRaw(sql string, bindings ...any) *Builder {
	return b.havingRaw(types.Or, sql, bindings)
}

func (b *Builder) havingRaw(boolean, sql string, bindings []any) *Builder {
	if b.err != nil {
		return b
	}
	b.query.Havings = append(b.query.Havings, types.WhereNode{Kind: types.WhereRaw, Boolean: boolean, SQL: sql})
	for _, v := range bindings {
		b.bind(types.BucketHaving, v)
	}
	return b
}

// HavingBetween adds "column BETWEEN ? AND ?" to the having clause.
func (b *Builder) HavingBetween(column string, low, high any) *Builder {
	if b.err != nil {
		return b
	}
	b.query.Havings = append(b.query.Havings, types.WhereNode{
		Kind:    types.WhereBetween,
		Boolean: types.And,
		Column:  column,
		Values:  []types.Value{types.ValueOf(low), types.ValueOf(high)},
	})
	b.bindOne(types.BucketHaving, low)
	b.bindOne(types.BucketHaving, high)
	return b
}

func operatorValue(column string, args []any) (string, any, error) {
	switch len(args) {
	case 0:
		return "", nil, fmt.Errorf("where %s: missing value", column)
	case 1:
		return "=", args[0], nil
	case 2:
		if op, ok := args[0].(string); ok && types.IsOperator(op) {
			return op, args[1], nil
		}
		return "=", args[0], nil
	}
	return "", nil, fmt.Errorf("where %s: expected (value) or (operator, value), got %d arguments", column, len(args))
}

// nullNegated reports whether a comparison against nil means IS NOT NULL.
// Only "=" and "is" keep the plain IS NULL form.
func nullNegated(op string) bool {
	op = strings.ToLower(strings.TrimSpace(op))
	return op != "=" && op != "is"
}

// spread expands slice elements of values one level.
func spread(values []any) []any {
	out := make([]any, 0, len(values))
	for _, v := range values {
		if _, ok := v.([]byte); ok || v == nil {
			out = append(out, v)
			continue
		}
		rv := reflect.ValueOf(v)
		if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
			out = append(out, v)
			continue
		}
		for i := 0; i < rv.Len(); i++ {
			out = append(out, rv.Index(i).Interface())
		}
	}
	return out
}
