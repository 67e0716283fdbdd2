// Package render compiles structured queries into SQL text. The Compiler
// holds everything dialects share; each dialect package supplies the
// clauses that differ through the Dialect interface.
package render

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/zoobzio/dbkit/internal/types"
)

// Dialect supplies the dialect-specific fragments of a statement.
type Dialect interface {
	Name() string
	Capabilities() Capabilities
	BoolLiteral(v bool) string
	// CompileLimit returns the limit/offset clause with a leading space, or "".
	CompileLimit(q *types.Query) string
	// CompileLock returns the locking clause with a leading space.
	CompileLock(mode types.LockMode) string
	// CompileUpsert returns the conflict clause appended to an INSERT.
	CompileUpsert(columns, uniqueBy, update []string) (string, error)
	CompileTruncate(table string) string
}

// Compiler turns a types.Query into a types.Statement.
type Compiler struct {
	dialect Dialect
	codec   types.Codec
}

// NewCompiler creates a compiler for dialect. A nil codec makes composite
// insert values an error.
func NewCompiler(dialect Dialect, codec types.Codec) *Compiler {
	return &Compiler{dialect: dialect, codec: codec}
}

// Name returns the dialect name.
func (c *Compiler) Name() string { return c.dialect.Name() }

// Capabilities returns the dialect's capabilities.
func (c *Compiler) Capabilities() Capabilities { return c.dialect.Capabilities() }

// Codec returns the configured codec, which may be nil.
func (c *Compiler) Codec() types.Codec { return c.codec }

var leadingBoolean = regexp.MustCompile(`(?i)^(and|or) `)

// CompileSelect compiles q as a SELECT statement.
func (c *Compiler) CompileSelect(q *types.Query) (*types.Statement, error) {
	sql, err := c.compileSelect(q)
	if err != nil {
		return nil, err
	}
	args, err := q.Bindings.Flatten()
	if err != nil {
		return nil, err
	}
	return &types.Statement{SQL: sql, Args: args}, nil
}

func (c *Compiler) compileSelect(q *types.Query) (string, error) {
	if q.Raw != "" {
		return q.Raw, nil
	}
	var sql strings.Builder

	sql.WriteString("SELECT ")
	if q.Distinct {
		sql.WriteString("DISTINCT ")
	}
	columns, err := c.compileColumns(q)
	if err != nil {
		return "", err
	}
	sql.WriteString(columns)

	from, err := c.compileFrom(q)
	if err != nil {
		return "", err
	}
	if from != "" {
		sql.WriteString(" FROM ")
		sql.WriteString(from)
	}

	sql.WriteString(c.compileJoins(q))

	if err := c.writeConditions(&sql, " WHERE ", q.Wheres); err != nil {
		return "", err
	}
	if len(q.Groups) > 0 {
		sql.WriteString(" GROUP BY ")
		sql.WriteString(strings.Join(q.Groups, ","))
	}
	if err := c.writeConditions(&sql, " HAVING ", q.Havings); err != nil {
		return "", err
	}
	if len(q.Orders) > 0 {
		sql.WriteString(" ORDER BY ")
		sql.WriteString(CompileOrders(q.Orders))
	}
	sql.WriteString(c.dialect.CompileLimit(q))

	if q.Lock != types.LockNone {
		if c.dialect.Capabilities().RowLocking == RowLockingNone {
			return "", NewUnsupportedFeatureError(c.dialect.Name(), "row locking")
		}
		sql.WriteString(c.dialect.CompileLock(q.Lock))
	}

	if len(q.Unions) == 0 {
		return sql.String(), nil
	}

	out := "(" + sql.String() + ")"
	for _, u := range q.Unions {
		keyword := " UNION "
		if u.All {
			keyword = " UNION ALL "
		}
		sub := u.SQL
		if u.Query != nil {
			if sub, err = c.compileSelect(u.Query); err != nil {
				return "", err
			}
		}
		out += keyword + "(" + sub + ")"
	}
	return out, nil
}

func (c *Compiler) compileColumns(q *types.Query) (string, error) {
	if len(q.Selects) == 0 {
		return "*", nil
	}
	parts := make([]string, 0, len(q.Selects))
	for _, item := range q.Selects {
		switch {
		case item.Sub != nil:
			sub, err := c.compileSelect(item.Sub)
			if err != nil {
				return "", err
			}
			parts = append(parts, "("+sub+") AS "+item.Alias)
		case item.Alias != "":
			parts = append(parts, item.Expr+" AS "+item.Alias)
		default:
			parts = append(parts, item.Expr)
		}
	}
	return strings.Join(parts, ", "), nil
}

func (c *Compiler) compileFrom(q *types.Query) (string, error) {
	parts := make([]string, 0, len(q.From))
	for _, item := range q.From {
		switch {
		case item.Sub != nil:
			sub, err := c.compileSelect(item.Sub)
			if err != nil {
				return "", err
			}
			parts = append(parts, "("+sub+") "+item.Alias)
		case item.Alias != "":
			parts = append(parts, PrefixTable(q.Prefix, item.Table)+" "+item.Alias)
		default:
			parts = append(parts, PrefixTable(q.Prefix, item.Table))
		}
	}
	return strings.Join(parts, ", "), nil
}

func (c *Compiler) compileJoins(q *types.Query) string {
	var sql strings.Builder
	for _, j := range q.Joins {
		sql.WriteString(" ")
		sql.WriteString(strings.ToUpper(j.Type))
		sql.WriteString(" JOIN ")
		sql.WriteString(PrefixTable(q.Prefix, j.Table))
		if j.On != "" {
			sql.WriteString(" ON ")
			sql.WriteString(j.On)
		}
	}
	return sql.String()
}

func (c *Compiler) writeConditions(sql *strings.Builder, keyword string, nodes []types.WhereNode) error {
	if len(nodes) == 0 {
		return nil
	}
	body, err := c.CompileConditions(nodes)
	if err != nil {
		return err
	}
	sql.WriteString(keyword)
	sql.WriteString(body)
	return nil
}

// CompileConditions joins condition nodes with their connectors and strips
// the leading one.
func (c *Compiler) CompileConditions(nodes []types.WhereNode) (string, error) {
	parts := make([]string, 0, len(nodes))
	for _, n := range nodes {
		body, err := c.compileCondition(n)
		if err != nil {
			return "", err
		}
		boolean := n.Boolean
		if boolean == "" {
			boolean = types.And
		}
		parts = append(parts, boolean+" "+body)
	}
	return leadingBoolean.ReplaceAllString(strings.Join(parts, " "), ""), nil
}

func (c *Compiler) compileCondition(n types.WhereNode) (string, error) {
	switch n.Kind {
	case types.WhereBasic:
		return n.Column + " " + n.Operator + " " + Parameter(n.Value), nil

	case types.WhereColumn:
		return n.Column + " " + n.Operator + " " + n.Second, nil

	case types.WhereNull:
		if n.Negated {
			return n.Column + " IS NOT NULL", nil
		}
		return n.Column + " IS NULL", nil

	case types.WhereIn:
		if len(n.Values) == 0 {
			if n.Negated {
				return "1 = 1", nil
			}
			return "0 = 1", nil
		}
		op := " IN "
		if n.Negated {
			op = " NOT IN "
		}
		return n.Column + op + "(" + Parameterize(n.Values) + ")", nil

	case types.WhereInSub:
		sub, err := c.compileSelect(n.Query)
		if err != nil {
			return "", err
		}
		op := " IN "
		if n.Negated {
			op = " NOT IN "
		}
		return n.Column + op + "(" + sub + ")", nil

	case types.WhereBetween:
		if len(n.Values) != 2 {
			return "", fmt.Errorf("between on %s needs exactly two values, got %d", n.Column, len(n.Values))
		}
		op := " BETWEEN "
		if n.Negated {
			op = " NOT BETWEEN "
		}
		return n.Column + op + Parameter(n.Values[0]) + " AND " + Parameter(n.Values[1]), nil

	case types.WhereRaw:
		return n.SQL, nil

	case types.WhereNested:
		body, err := c.CompileConditions(n.Query.Wheres)
		if err != nil {
			return "", err
		}
		return "(" + body + ")", nil

	case types.WhereExists:
		sub, err := c.compileSelect(n.Query)
		if err != nil {
			return "", err
		}
		if n.Negated {
			return "NOT EXISTS (" + sub + ")", nil
		}
		return "EXISTS (" + sub + ")", nil
	}
	return "", fmt.Errorf("unknown condition kind %d", n.Kind)
}

// Parameter renders v as a placeholder, or verbatim for an Expression.
func Parameter(v types.Value) string {
	if e, ok := v.(types.Expression); ok {
		return e.SQL
	}
	return "?"
}

// Parameterize renders a comma separated placeholder list.
func Parameterize(values []types.Value) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = Parameter(v)
	}
	return strings.Join(parts, ", ")
}

// CompileOrders renders the flat order list. A column followed by asc or
// desc takes that direction.
func CompileOrders(orders []string) string {
	terms := make([]string, 0, len(orders))
	for i := 0; i < len(orders); i++ {
		term := orders[i]
		if i+1 < len(orders) && isDirection(orders[i+1]) {
			term += " " + strings.ToUpper(orders[i+1])
			i++
		}
		terms = append(terms, term)
	}
	return strings.Join(terms, ",")
}

func isDirection(s string) bool {
	switch strings.ToLower(s) {
	case "asc", "desc":
		return true
	}
	return false
}

// PrefixTable applies prefix to a table reference. "name as alias" keeps
// the alias unprefixed and "schema.name" prefixes only the name.
func PrefixTable(prefix, table string) string {
	if prefix == "" {
		return table
	}
	name, alias := SplitAlias(table)
	if i := strings.LastIndex(name, "."); i >= 0 {
		name = name[:i+1] + prefix + name[i+1:]
	} else {
		name = prefix + name
	}
	if alias != "" {
		return name + " AS " + alias
	}
	return name
}

// SplitAlias splits "name as alias" case-insensitively.
func SplitAlias(table string) (name, alias string) {
	if i := strings.Index(strings.ToLower(table), " as "); i >= 0 {
		return strings.TrimSpace(table[:i]), strings.TrimSpace(table[i+4:])
	}
	return strings.TrimSpace(table), ""
}

// CompileInsert compiles rows into one INSERT. Rows whose column set
// differs from the first row are compiled separately and appended as
// further statements separated by ";".
func (c *Compiler) CompileInsert(q *types.Query, rows []types.InsertRow) (*types.Statement, error) {
	if len(rows) == 0 {
		return nil, errors.New("insert requires at least one row")
	}
	columns := rows[0].Columns
	var batch, rest []types.InsertRow
	for i, row := range rows {
		if len(row.Values) != len(row.Columns) {
			return nil, fmt.Errorf("insert row %d has %d values for %d columns", i, len(row.Values), len(row.Columns))
		}
		if sameColumns(row.Columns, columns) {
			batch = append(batch, row)
		} else {
			rest = append(rest, row)
		}
	}

	values, args, err := c.compileInsertRows(columns, batch)
	if err != nil {
		return nil, err
	}
	sql := "INSERT INTO " + PrefixTable(q.Prefix, q.Table) + " (" + strings.Join(columns, ", ") + ") VALUES " + values

	if len(rest) > 0 {
		more, err := c.CompileInsert(q, rest)
		if err != nil {
			return nil, err
		}
		sql += ";" + more.SQL
		args = append(args, more.Args...)
	}
	return &types.Statement{SQL: sql, Args: args}, nil
}

// CompileInsertOrUpdate compiles an insert that updates the listed columns
// when a unique key collides. An empty update list updates every column.
func (c *Compiler) CompileInsertOrUpdate(q *types.Query, rows []types.InsertRow, update []string) (*types.Statement, error) {
	if !c.dialect.Capabilities().Upsert {
		return nil, NewUnsupportedFeatureError(c.dialect.Name(), "insert or update")
	}
	if len(rows) == 0 {
		return nil, errors.New("insert requires at least one row")
	}
	columns := rows[0].Columns
	values, args, err := c.compileInsertRows(columns, alignRows(columns, rows))
	if err != nil {
		return nil, err
	}
	if len(update) == 0 {
		update = columns
	}
	suffix, err := c.dialect.CompileUpsert(columns, q.UniqueBy, update)
	if err != nil {
		return nil, err
	}
	sql := "INSERT INTO " + PrefixTable(q.Prefix, q.Table) + " (" + strings.Join(columns, ", ") + ") VALUES " + values + suffix
	return &types.Statement{SQL: sql, Args: args}, nil
}

// CompileReplace compiles a REPLACE INTO using the first row's columns.
func (c *Compiler) CompileReplace(q *types.Query, rows []types.InsertRow) (*types.Statement, error) {
	if !c.dialect.Capabilities().Replace {
		return nil, NewUnsupportedFeatureError(c.dialect.Name(), "REPLACE INTO", "use InsertOrUpdate instead")
	}
	if len(rows) == 0 {
		return nil, errors.New("replace requires at least one row")
	}
	columns := rows[0].Columns
	values, args, err := c.compileInsertRows(columns, alignRows(columns, rows))
	if err != nil {
		return nil, err
	}
	sql := "REPLACE INTO " + PrefixTable(q.Prefix, q.Table) + " (" + strings.Join(columns, ", ") + ") VALUES " + values
	return &types.Statement{SQL: sql, Args: args}, nil
}

func (c *Compiler) compileInsertRows(columns []string, rows []types.InsertRow) (string, []any, error) {
	groups := make([]string, 0, len(rows))
	var args []any
	for _, row := range rows {
		parts := make([]string, len(columns))
		for i, v := range row.Values {
			sql, arg, bound, err := c.insertValue(v)
			if err != nil {
				return "", nil, fmt.Errorf("column %s: %w", columns[i], err)
			}
			parts[i] = sql
			if bound {
				args = append(args, arg)
			}
		}
		groups = append(groups, "("+strings.Join(parts, ", ")+")")
	}
	return strings.Join(groups, ","), args, nil
}

func (c *Compiler) insertValue(v any) (sql string, arg any, bound bool, err error) {
	v = types.Unwrap(v)
	switch x := v.(type) {
	case nil:
		return "NULL", nil, false, nil
	case types.Expression:
		return x.SQL, nil, false, nil
	case *types.Expression:
		return x.SQL, nil, false, nil
	case bool:
		return c.dialect.BoolLiteral(x), nil, false, nil
	case string, []byte:
		return "?", x, true, nil
	case int:
		return strconv.Itoa(x), nil, false, nil
	case int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return fmt.Sprint(x), nil, false, nil
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32), nil, false, nil
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), nil, false, nil
	}
	if types.IsComposite(v) {
		if c.codec == nil {
			return "", nil, false, types.ErrNoCodec
		}
		encoded, err := c.codec.Encode(v)
		if err != nil {
			return "", nil, false, err
		}
		return "?", encoded, true, nil
	}
	return "?", v, true, nil
}

// CompileUpdate compiles an UPDATE. SET values are bound after the join
// bindings and before the where bindings.
func (c *Compiler) CompileUpdate(q *types.Query, assignments []types.Assignment) (*types.Statement, error) {
	if len(assignments) == 0 {
		return nil, errors.New("update requires at least one assignment")
	}
	caps := c.dialect.Capabilities()
	if len(q.Joins) > 0 && !caps.UpdateJoin {
		return nil, NewUnsupportedFeatureError(c.dialect.Name(), "UPDATE with JOIN")
	}

	bindings := q.Bindings.Clone()
	sets := make([]string, 0, len(assignments))
	for _, a := range assignments {
		if a.Raw != "" {
			sets = append(sets, a.Raw)
			continue
		}
		value := types.Unwrap(a.Value)
		switch x := value.(type) {
		case types.Expression:
			sets = append(sets, a.Column+" = "+x.SQL)
			continue
		case *types.Expression:
			sets = append(sets, a.Column+" = "+x.SQL)
			continue
		case bool:
			sets = append(sets, a.Column+" = "+c.dialect.BoolLiteral(x))
			continue
		}
		if types.IsComposite(value) && c.codec != nil {
			encoded, err := c.codec.Encode(value)
			if err != nil {
				return nil, fmt.Errorf("column %s: %w", a.Column, err)
			}
			value = encoded
		}
		sets = append(sets, a.Column+" = ?")
		if err := bindings.Add(types.BucketJoin, []any{value}); err != nil {
			return nil, err
		}
	}

	var sql strings.Builder
	sql.WriteString("UPDATE ")
	sql.WriteString(PrefixTable(q.Prefix, q.Table))
	sql.WriteString(c.compileJoins(q))
	sql.WriteString(" SET ")
	sql.WriteString(strings.Join(sets, ", "))
	if err := c.writeConditions(&sql, " WHERE ", q.Wheres); err != nil {
		return nil, err
	}
	if err := c.writeOrderLimit(&sql, q); err != nil {
		return nil, err
	}

	args, err := bindings.Flatten(types.BucketJoin, types.BucketWhere, types.BucketOrder)
	if err != nil {
		return nil, err
	}
	return &types.Statement{SQL: sql.String(), Args: args}, nil
}

// CompileDelete compiles a DELETE. With joins the statement names the
// table alias to delete from.
func (c *Compiler) CompileDelete(q *types.Query) (*types.Statement, error) {
	var sql strings.Builder
	table := PrefixTable(q.Prefix, q.Table)

	if len(q.Joins) > 0 {
		if !c.dialect.Capabilities().DeleteJoin {
			return nil, NewUnsupportedFeatureError(c.dialect.Name(), "DELETE with JOIN")
		}
		name, alias := SplitAlias(table)
		if alias == "" {
			alias = name
		}
		sql.WriteString("DELETE " + alias + " FROM " + table)
		sql.WriteString(c.compileJoins(q))
	} else {
		sql.WriteString("DELETE FROM " + table)
	}

	if err := c.writeConditions(&sql, " WHERE ", q.Wheres); err != nil {
		return nil, err
	}
	if err := c.writeOrderLimit(&sql, q); err != nil {
		return nil, err
	}

	args, err := q.Bindings.Flatten(types.BucketJoin, types.BucketWhere, types.BucketOrder)
	if err != nil {
		return nil, err
	}
	return &types.Statement{SQL: sql.String(), Args: args}, nil
}

func (c *Compiler) writeOrderLimit(sql *strings.Builder, q *types.Query) error {
	if len(q.Orders) == 0 && q.Limit == nil && q.Offset == nil {
		return nil
	}
	if !c.dialect.Capabilities().UpdateOrderLimit {
		return NewUnsupportedFeatureError(c.dialect.Name(), "ORDER BY or LIMIT on UPDATE and DELETE")
	}
	if len(q.Orders) > 0 {
		sql.WriteString(" ORDER BY ")
		sql.WriteString(CompileOrders(q.Orders))
	}
	if q.Limit != nil {
		sql.WriteString(" LIMIT " + strconv.Itoa(*q.Limit))
	}
	return nil
}

// CompileTruncate compiles the dialect's table truncation statement.
func (c *Compiler) CompileTruncate(q *types.Query) *types.Statement {
	return &types.Statement{SQL: c.dialect.CompileTruncate(PrefixTable(q.Prefix, q.Table))}
}

func sameColumns(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// alignRows reorders every row to columns. Missing values become nil.
func alignRows(columns []string, rows []types.InsertRow) []types.InsertRow {
	out := make([]types.InsertRow, len(rows))
	for i, row := range rows {
		if sameColumns(row.Columns, columns) {
			out[i] = row
			continue
		}
		lookup := make(map[string]any, len(row.Columns))
		for j, col := range row.Columns {
			if j < len(row.Values) {
				lookup[col] = row.Values[j]
			}
		}
		values := make([]any, len(columns))
		for j, col := range columns {
			values[j] = lookup[col]
		}
		out[i] = types.InsertRow{Columns: columns, Values: values}
	}
	return out
}

// SortedKeys returns the keys of m in lexical order.
func SortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
