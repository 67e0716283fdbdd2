package mysql

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"github.com/zoobzio/dbkit"
	"github.com/zoobzio/dbkit/driver"
	"github.com/zoobzio/dbkit/schema"
)

// Information reflects live MySQL tables into schema.Table values.
type Information struct {
	meta    *dbkit.Connection
	grammar *SchemaGrammar
	prefix  string
	logger  *slog.Logger
}

// NewInformation creates a reader over engine. WithPrefix scopes the
// reader to prefixed tables; reflected names have the prefix removed.
func NewInformation(engine driver.Engine, opts ...Option) *Information {
	o := newOptions(opts)
	return &Information{
		meta:    dbkit.New(New(), dbkit.WithEngine(engine), dbkit.WithLogger(o.logger)),
		grammar: NewSchemaGrammar(o.prefix),
		prefix:  o.prefix,
		logger:  o.logger,
	}
}

// Grammar returns the schema grammar used for plans.
func (i *Information) Grammar() *SchemaGrammar { return i.grammar }

// TableList returns the tables in the current database that carry the
// prefix, with the prefix removed.
func (i *Information) TableList(ctx context.Context) ([]string, error) {
	rows, err := i.meta.Select(ctx, "SHOW TABLES")
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	names := make([]string, 0, len(rows))
	for _, row := range rows {
		for _, v := range row {
			name := text(v)
			if !strings.HasPrefix(name, i.prefix) {
				continue
			}
			names = append(names, strings.TrimPrefix(name, i.prefix))
		}
	}
	sort.Strings(names)
	return names, nil
}

// ColumnList returns the live columns of table in ordinal order. A missing
// table yields nil.
func (i *Information) ColumnList(ctx context.Context, table string) ([]*schema.Column, error) {
	rows, err := i.meta.Select(ctx, "SHOW FULL COLUMNS FROM "+i.grammar.TableName(table))
	if err != nil {
		if driver.IsMySQLError(err, driver.ErrNoSuchTable) {
			return nil, nil
		}
		return nil, fmt.Errorf("list columns of %s: %w", table, err)
	}
	columns := make([]*schema.Column, 0, len(rows))
	var previous string
	for _, row := range rows {
		col, err := FormatColumn(row)
		if err != nil {
			return nil, err
		}
		col.After(previous)
		previous = col.Name()
		columns = append(columns, col)
	}
	return columns, nil
}

// Column returns one live column, or nil when the table or column is
// missing.
func (i *Information) Column(ctx context.Context, table, name string) (*schema.Column, error) {
	columns, err := i.ColumnList(ctx, table)
	if err != nil {
		return nil, err
	}
	for _, col := range columns {
		if col.Name() == name {
			return col, nil
		}
	}
	return nil, nil
}

// Table reflects a live table with its columns, keys, indexes, foreign keys
// and options. A missing table yields nil and no error.
func (i *Information) Table(ctx context.Context, name string) (*schema.Table, error) {
	full := i.prefix + name
	status, err := i.meta.Table("information_schema.TABLES").
		Select("ENGINE", "TABLE_COLLATION", "AUTO_INCREMENT", "TABLE_COMMENT").
		WhereRaw("TABLE_SCHEMA = DATABASE()").
		Where("TABLE_NAME", full).
		First(ctx)
	if err != nil {
		return nil, fmt.Errorf("reflect %s: %w", name, err)
	}
	if status == nil {
		i.logger.DebugContext(ctx, "table not found", "table", full)
		return nil, nil
	}

	t := schema.NewTable(name)
	if engine := text(status["ENGINE"]); engine != "" {
		t.Engine = engine
	}
	if collation := text(status["TABLE_COLLATION"]); collation != "" {
		t.Collation = collation
		t.Charset = charsetOf(collation)
	}
	t.Comment = text(status["TABLE_COMMENT"])
	t.AutoIncrement = integer(status["AUTO_INCREMENT"])

	columns, err := i.ColumnList(ctx, name)
	if err != nil {
		return nil, err
	}
	if columns == nil {
		return nil, nil
	}
	for _, col := range columns {
		if col.CharsetName() == t.Charset {
			col.Charset("").Collation("")
		}
		t.AddColumn(col)
	}

	if err := i.reflectIndexes(ctx, t); err != nil {
		return nil, err
	}
	if err := i.reflectForeignKeys(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

type indexPart struct {
	seq    int64
	column string
}

func (i *Information) reflectIndexes(ctx context.Context, t *schema.Table) error {
	rows, err := i.meta.Select(ctx, "SHOW INDEX FROM "+i.grammar.TableName(t.Name))
	if err != nil {
		return fmt.Errorf("reflect indexes of %s: %w", t.Name, err)
	}

	parts := make(map[string][]indexPart)
	var names []string
	unique := make(map[string]bool)
	desc := make(map[string]bool)
	for _, row := range rows {
		key := text(row["Key_name"])
		if _, seen := parts[key]; !seen {
			names = append(names, key)
		}
		parts[key] = append(parts[key], indexPart{seq: integer(row["Seq_in_index"]), column: text(row["Column_name"])})
		unique[key] = integer(row["Non_unique"]) == 0
		if text(row["Collation"]) == "D" {
			desc[key] = true
		}
	}

	for _, key := range names {
		p := parts[key]
		sort.Slice(p, func(a, b int) bool { return p[a].seq < p[b].seq })
		columns := make([]string, len(p))
		for n, part := range p {
			columns[n] = part.column
		}
		if key == "PRIMARY" {
			t.Primary(columns...)
			continue
		}
		idx := t.Index(key, columns...)
		idx.Unique = unique[key]
		if desc[key] {
			idx.Order = "desc"
		}
	}
	return nil
}

func (i *Information) reflectForeignKeys(ctx context.Context, t *schema.Table) error {
	rows, err := i.meta.Table("information_schema.KEY_COLUMN_USAGE as k").
		JoinRaw("inner", "information_schema.REFERENTIAL_CONSTRAINTS as r",
			"r.CONSTRAINT_SCHEMA = k.CONSTRAINT_SCHEMA and r.CONSTRAINT_NAME = k.CONSTRAINT_NAME").
		Select("k.CONSTRAINT_NAME", "k.COLUMN_NAME", "k.REFERENCED_TABLE_NAME", "k.REFERENCED_COLUMN_NAME",
			"r.DELETE_RULE", "r.UPDATE_RULE").
		WhereRaw("k.TABLE_SCHEMA = DATABASE()").
		Where("k.TABLE_NAME", i.prefix+t.Name).
		WhereNotNull("k.REFERENCED_TABLE_NAME").
		OrderBy("k.CONSTRAINT_NAME").
		Get(ctx)
	if err != nil {
		return fmt.Errorf("reflect foreign keys of %s: %w", t.Name, err)
	}
	for _, row := range rows {
		fk := t.Foreign(
			text(row["CONSTRAINT_NAME"]),
			text(row["COLUMN_NAME"]),
			strings.TrimPrefix(text(row["REFERENCED_TABLE_NAME"]), i.prefix),
			text(row["REFERENCED_COLUMN_NAME"]),
		)
		fk.OnDelete = referentialAction(text(row["DELETE_RULE"]))
		fk.OnUpdate = referentialAction(text(row["UPDATE_RULE"]))
	}
	return nil
}

// TableCreateSQL returns the server's CREATE TABLE statement for table, or
// "" when it does not exist.
func (i *Information) TableCreateSQL(ctx context.Context, table string) (string, error) {
	rows, err := i.meta.Select(ctx, "SHOW CREATE TABLE "+i.grammar.TableName(table))
	if err != nil {
		if driver.IsMySQLError(err, driver.ErrNoSuchTable) {
			return "", nil
		}
		return "", fmt.Errorf("show create %s: %w", table, err)
	}
	if len(rows) == 0 {
		return "", nil
	}
	return text(rows[0]["Create Table"]), nil
}

// Plan returns the DDL that brings the live table in line with target:
// CREATE TABLE when it is missing, ALTER TABLE for a column difference and
// "" when nothing differs.
func (i *Information) Plan(ctx context.Context, target *schema.Table) (string, error) {
	live, err := i.Table(ctx, target.Name)
	if err != nil {
		return "", err
	}
	if live == nil {
		return i.grammar.CompileTableCreate(target), nil
	}
	changes := schema.Diff(live, target)
	if changes.Empty() {
		return "", nil
	}
	i.logger.DebugContext(ctx, "table differs", "table", target.Name,
		"add", len(changes.Add), "update", len(changes.Update), "drop", len(changes.Drop))
	return i.grammar.CompileTableUpdate(target, changes), nil
}

// UpdateTable runs the plan for target and returns the executed DDL.
func (i *Information) UpdateTable(ctx context.Context, target *schema.Table) (string, error) {
	sql, err := i.Plan(ctx, target)
	if err != nil || sql == "" {
		return "", err
	}
	if _, err := i.meta.Statement(ctx, sql); err != nil {
		return "", fmt.Errorf("update %s: %w", target.Name, err)
	}
	i.logger.InfoContext(ctx, "table updated", "table", target.Name)
	return sql, nil
}

// FormatColumn converts a SHOW FULL COLUMNS row into a Column.
func FormatColumn(row driver.Row) (*schema.Column, error) {
	name := text(row["Field"])
	col, err := schema.ParseColumnType(name, text(row["Type"]))
	if err != nil {
		return nil, err
	}
	if strings.EqualFold(text(row["Null"]), "YES") {
		col.Nullable()
	}
	key := strings.ToUpper(text(row["Key"]))
	col.MarkKey(key == "PRI", key == "UNI")

	extra := strings.ToLower(text(row["Extra"]))
	if strings.Contains(extra, "auto_increment") {
		col.AutoIncrement()
	}
	if def, ok := row["Default"]; ok && def != nil {
		value := text(def)
		if strings.Contains(extra, "default_generated") || strings.HasPrefix(strings.ToUpper(value), "CURRENT_TIMESTAMP") {
			col.Default(dbkit.Raw(normalizeTimestamp(value)))
		} else {
			col.Default(value)
		}
	}
	if collation := text(row["Collation"]); collation != "" {
		col.Charset(charsetOf(collation)).Collation(collation)
	}
	return col.Comment(text(row["Comment"])), nil
}

// normalizeTimestamp rewrites MariaDB's current_timestamp() to the
// CURRENT_TIMESTAMP form MySQL reports.
func normalizeTimestamp(value string) string {
	upper := strings.ToUpper(value)
	if upper == "CURRENT_TIMESTAMP()" {
		return "CURRENT_TIMESTAMP"
	}
	if strings.HasPrefix(upper, "CURRENT_TIMESTAMP(") {
		return upper
	}
	return value
}

func charsetOf(collation string) string {
	if i := strings.Index(collation, "_"); i > 0 {
		return collation[:i]
	}
	return collation
}

func referentialAction(rule string) string {
	switch strings.ToUpper(rule) {
	case "", "RESTRICT", "NO ACTION":
		return ""
	default:
		return strings.ToLower(rule)
	}
}

func text(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case []byte:
		return string(x)
	default:
		return fmt.Sprint(x)
	}
}

func integer(v any) int64 {
	switch x := v.(type) {
	case int64:
		return x
	case int:
		return int64(x)
	case uint64:
		return int64(x)
	case nil:
		return 0
	default:
		n, _ := strconv.ParseInt(text(x), 10, 64)
		return n
	}
}
