package mysql

import (
	"strconv"
	"strings"

	"github.com/zoobzio/dbkit/schema"
)

// SchemaGrammar compiles table definitions into MySQL DDL.
type SchemaGrammar struct {
	prefix string
}

// NewSchemaGrammar creates a schema grammar that prefixes table names.
func NewSchemaGrammar(prefix string) *SchemaGrammar {
	return &SchemaGrammar{prefix: prefix}
}

// Prefix returns the table prefix.
func (g *SchemaGrammar) Prefix() string { return g.prefix }

// Wrap quotes an identifier with backticks. Dotted names are quoted per
// segment.
func Wrap(name string) string {
	parts := strings.Split(name, ".")
	for i, p := range parts {
		parts[i] = "`" + strings.ReplaceAll(p, "`", "``") + "`"
	}
	return strings.Join(parts, ".")
}

// WrapText quotes s as a string literal.
func WrapText(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// TableName returns the quoted, prefixed table name.
func (g *SchemaGrammar) TableName(name string) string {
	if i := strings.LastIndex(name, "."); i >= 0 {
		return Wrap(name[:i+1] + g.prefix + name[i+1:])
	}
	return Wrap(g.prefix + name)
}

// CompileTableCreate compiles a CREATE TABLE IF NOT EXISTS statement.
func (g *SchemaGrammar) CompileTableCreate(t *schema.Table) string {
	defs := make([]string, 0, len(t.ColumnNames())+4)
	for _, col := range t.Columns() {
		defs = append(defs, g.CompileColumnSQL(t, col))
	}
	if len(t.PrimaryKey) > 0 {
		defs = append(defs, "PRIMARY KEY ("+wrapList(t.PrimaryKey, "")+")")
	}
	for _, c := range t.Checks() {
		defs = append(defs, compileCheck(c))
	}
	for _, idx := range t.Indexes() {
		defs = append(defs, compileIndex(idx))
	}
	for _, fk := range t.ForeignKeys() {
		defs = append(defs, g.compileForeign(fk))
	}

	var sql strings.Builder
	sql.WriteString("CREATE TABLE IF NOT EXISTS ")
	sql.WriteString(g.TableName(t.Name))
	sql.WriteString(" (")
	sql.WriteString(strings.Join(defs, ", "))
	sql.WriteString(") ENGINE=")
	sql.WriteString(orDefault(t.Engine, schema.DefaultEngine))
	if t.AutoIncrement > 1 {
		sql.WriteString(" AUTO_INCREMENT=" + strconv.FormatInt(t.AutoIncrement, 10))
	}
	sql.WriteString(" DEFAULT CHARSET=")
	sql.WriteString(orDefault(t.Charset, schema.DefaultCharset))
	if t.Collation != "" {
		sql.WriteString(" COLLATE=" + t.Collation)
	}
	if t.Comment != "" {
		sql.WriteString(" COMMENT=" + WrapText(t.Comment))
	}
	sql.WriteString(";")
	return sql.String()
}

// CompileColumnSQL compiles one column definition. The character set
// clause is only emitted for character columns whose charset differs from
// the table's.
func (g *SchemaGrammar) CompileColumnSQL(t *schema.Table, col *schema.Column) string {
	r := col.Resolve()

	var sql strings.Builder
	sql.WriteString(Wrap(col.Name()))
	sql.WriteString(" ")
	sql.WriteString(FormatColumnType(col))
	if col.IsNullable() {
		sql.WriteString(" NULL")
	} else {
		sql.WriteString(" NOT NULL")
	}
	if col.IsAutoIncrement() {
		sql.WriteString(" AUTO_INCREMENT")
	}
	if r.HasDefault {
		sql.WriteString(" DEFAULT ")
		if schema.IsRawDefault(r.Default) {
			sql.WriteString(schema.DefaultText(r.Default))
		} else {
			sql.WriteString(WrapText(schema.DefaultText(r.Default)))
		}
	}
	if c := col.CommentText(); c != "" {
		sql.WriteString(" COMMENT " + WrapText(c))
	}
	if cs := col.CharsetName(); cs != "" && cs != t.Charset && schema.IsCharacter(r.Type) {
		sql.WriteString(" CHARACTER SET " + cs)
		if co := col.CollationName(); co != "" {
			sql.WriteString(" COLLATE " + co)
		}
	}
	return sql.String()
}

// FormatColumnType resolves a column's semantic type to its MySQL type.
func FormatColumnType(col *schema.Column) string {
	r := col.Resolve()
	name := strings.ToUpper(r.Type)

	var sql string
	switch r.Type {
	case schema.Enum, schema.Set:
		quoted := make([]string, len(col.Options()))
		for i, v := range col.Options() {
			quoted[i] = WrapText(v)
		}
		return name + "(" + strings.Join(quoted, ",") + ")"
	case schema.Decimal:
		sql = name
		switch len(r.Length) {
		case 0:
		case 1:
			sql += "(" + strconv.Itoa(r.Length[0]) + ")"
		default:
			sql += "(" + strconv.Itoa(r.Length[0]) + "," + strconv.Itoa(r.Length[1]) + ")"
		}
	default:
		sql = name
		if schema.HasLength(r.Type) && len(r.Length) > 0 {
			sql += "(" + strconv.Itoa(r.Length[0]) + ")"
		}
	}
	if r.Unsigned && schema.IsNumeric(r.Type) {
		sql += " UNSIGNED"
	}
	return sql
}

// CompileTableUpdate compiles one ALTER TABLE for changes, ordering drops
// before updates before additions. With no changes every column of t is
// re-asserted.
func (g *SchemaGrammar) CompileTableUpdate(t *schema.Table, changes schema.Changes) string {
	if changes.Empty() {
		changes.Update = t.Columns()
	}
	clauses := make([]string, 0, len(changes.Drop)+len(changes.Update)+len(changes.Add))
	for _, col := range changes.Drop {
		clauses = append(clauses, g.CompileColumnDrop(col))
	}
	for _, col := range changes.Update {
		clauses = append(clauses, g.CompileColumnUpdate(t, col))
	}
	for _, col := range changes.Add {
		clauses = append(clauses, g.CompileColumnCreate(t, col))
	}
	return "ALTER TABLE " + g.TableName(t.Name) + " " + strings.Join(clauses, ", ") + ";"
}

// CompileColumnCreate compiles an ADD COLUMN clause.
func (g *SchemaGrammar) CompileColumnCreate(t *schema.Table, col *schema.Column) string {
	return "ADD COLUMN " + g.CompileColumnSQL(t, col) + after(col)
}

// CompileColumnUpdate compiles a CHANGE COLUMN clause from the column's
// old name when it was renamed.
func (g *SchemaGrammar) CompileColumnUpdate(t *schema.Table, col *schema.Column) string {
	from := col.OldName()
	if from == "" {
		from = col.Name()
	}
	return "CHANGE COLUMN " + Wrap(from) + " " + g.CompileColumnSQL(t, col) + after(col)
}

// CompileColumnDrop compiles a DROP COLUMN clause.
func (g *SchemaGrammar) CompileColumnDrop(col *schema.Column) string {
	return "DROP COLUMN " + Wrap(col.Name())
}

// CompileTableDrop compiles a DROP TABLE statement.
func (g *SchemaGrammar) CompileTableDrop(name string, ifExists bool) string {
	if ifExists {
		return "DROP TABLE IF EXISTS " + g.TableName(name) + ";"
	}
	return "DROP TABLE " + g.TableName(name) + ";"
}

// CompileTableRename compiles a RENAME TABLE statement.
func (g *SchemaGrammar) CompileTableRename(from, to string) string {
	return "RENAME TABLE " + g.TableName(from) + " TO " + g.TableName(to) + ";"
}

// CompileIndexCreate compiles an ALTER TABLE adding idx.
func (g *SchemaGrammar) CompileIndexCreate(t *schema.Table, idx *schema.Index) string {
	return "ALTER TABLE " + g.TableName(t.Name) + " ADD " + compileIndex(idx) + ";"
}

// CompileIndexDrop compiles an ALTER TABLE dropping the named index.
func (g *SchemaGrammar) CompileIndexDrop(t *schema.Table, name string) string {
	return "ALTER TABLE " + g.TableName(t.Name) + " DROP INDEX " + Wrap(name) + ";"
}

// CompileForeignCreate compiles an ALTER TABLE adding fk.
func (g *SchemaGrammar) CompileForeignCreate(t *schema.Table, fk *schema.ForeignKey) string {
	return "ALTER TABLE " + g.TableName(t.Name) + " ADD " + g.compileForeign(fk) + ";"
}

// CompileForeignDrop compiles an ALTER TABLE dropping the named foreign key.
func (g *SchemaGrammar) CompileForeignDrop(t *schema.Table, name string) string {
	return "ALTER TABLE " + g.TableName(t.Name) + " DROP FOREIGN KEY " + Wrap(name) + ";"
}

func compileIndex(idx *schema.Index) string {
	kind := "KEY "
	if idx.Unique {
		kind = "UNIQUE KEY "
	}
	return kind + Wrap(idx.Name) + " (" + wrapList(idx.Columns, idx.Order) + ")"
}

func compileCheck(c *schema.Check) string {
	return "CONSTRAINT " + Wrap(c.Name) + " CHECK (" + c.Expr + ")"
}

func (g *SchemaGrammar) compileForeign(fk *schema.ForeignKey) string {
	sql := "CONSTRAINT " + Wrap(fk.Name) + " FOREIGN KEY (" + Wrap(fk.Column) + ") REFERENCES " +
		g.TableName(fk.RefTable) + " (" + Wrap(fk.RefColumn) + ")"
	if fk.OnDelete != "" {
		sql += " ON DELETE " + strings.ToUpper(fk.OnDelete)
	}
	if fk.OnUpdate != "" {
		sql += " ON UPDATE " + strings.ToUpper(fk.OnUpdate)
	}
	return sql
}

func wrapList(columns []string, order string) string {
	parts := make([]string, len(columns))
	for i, col := range columns {
		parts[i] = Wrap(col)
		if order != "" {
			parts[i] += " " + strings.ToUpper(order)
		}
	}
	return strings.Join(parts, ", ")
}

func after(col *schema.Column) string {
	if col.AfterColumn() == "" {
		return ""
	}
	return " AFTER " + Wrap(col.AfterColumn())
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
