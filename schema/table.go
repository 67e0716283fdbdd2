package schema

import "strings"

// Default table options.
const (
	DefaultEngine  = "InnoDB"
	DefaultCharset = "utf8mb4"
)

// Index is a secondary index. Order is "ASC", "DESC" or "".
type Index struct {
	Name    string
	Columns []string
	Order   string
	Unique  bool
}

// ForeignKey references a column of another table.
type ForeignKey struct {
	Name      string
	Column    string
	RefTable  string
	RefColumn string
	OnDelete  string
	OnUpdate  string
}

// Check is a named CHECK constraint.
type Check struct {
	Name string
	Expr string
}

// Table describes a table. Columns, indexes, foreign keys and checks keep
// declaration order and are keyed by name.
type Table struct {
	Name          string
	Engine        string
	Charset       string
	Collation     string
	Comment       string
	PrimaryKey    []string
	AutoIncrement int64

	columns     ordered[*Column]
	indexes     ordered[*Index]
	foreignKeys ordered[*ForeignKey]
	checks      ordered[*Check]
}

// NewTable creates an InnoDB utf8mb4 table.
func NewTable(name string) *Table {
	return &Table{Name: name, Engine: DefaultEngine, Charset: DefaultCharset}
}

// AddColumn appends col, replacing any column of the same name in place.
// Renaming col afterwards moves its entry to the new name.
func (t *Table) AddColumn(col *Column) *Column {
	col.table = t
	t.columns.set(col.Name(), col)
	return col
}

// Column returns the named column or nil.
func (t *Table) Column(name string) *Column {
	col, _ := t.columns.get(name)
	return col
}

// HasColumn reports whether the table has the named column.
func (t *Table) HasColumn(name string) bool { return t.columns.has(name) }

// Columns returns the columns in declaration order.
func (t *Table) Columns() []*Column { return t.columns.values() }

// ColumnNames returns the column names in declaration order.
func (t *Table) ColumnNames() []string { return t.columns.names() }

// DropColumn removes the named column.
func (t *Table) DropColumn(name string) bool { return t.columns.remove(name) }

// RenameColumn renames a column in place, recording its old name.
func (t *Table) RenameColumn(from, to string) *Column {
	col := t.Column(from)
	if col == nil {
		return nil
	}
	return col.Rename(to)
}

// rekeyColumn moves col from its old key to its new one. Primary key
// entries follow the rename.
func (t *Table) rekeyColumn(col *Column, from, to string) {
	if current, ok := t.columns.get(from); !ok || current != col || from == to {
		return
	}
	t.columns.rekey(from, to)
	for i, pk := range t.PrimaryKey {
		if pk == from {
			t.PrimaryKey[i] = to
		}
	}
}

func (t *Table) add(name, typ string, length ...int) *Column {
	return t.AddColumn(NewColumn(name, typ, length...))
}

func lengthOr(length []int, def ...int) []int {
	if len(length) > 0 {
		return length
	}
	return def
}

// Bool adds a boolean column.
func (t *Table) Bool(name string) *Column { return t.add(name, Bool) }

// TinyInt adds a TINYINT column. Its length is always 1.
func (t *Table) TinyInt(name string) *Column { return t.add(name, TinyInt, 1) }

// SmallInt adds a SMALLINT column.
func (t *Table) SmallInt(name string, length ...int) *Column {
	return t.add(name, SmallInt, lengthOr(length, 6)...)
}

// Int adds an INT column.
func (t *Table) Int(name string, length ...int) *Column {
	return t.add(name, Int, lengthOr(length, 11)...)
}

// Uint adds an unsigned INT column.
func (t *Table) Uint(name string, length ...int) *Column {
	return t.add(name, Uint, lengthOr(length, 10)...)
}

// BigInt adds a BIGINT column.
func (t *Table) BigInt(name string, length ...int) *Column {
	return t.add(name, BigInt, lengthOr(length, 20)...)
}

// Float adds a FLOAT column.
func (t *Table) Float(name string, length ...int) *Column { return t.add(name, Float, length...) }

// Double adds a DOUBLE column.
func (t *Table) Double(name string, length ...int) *Column { return t.add(name, Double, length...) }

// Decimal adds a DECIMAL(precision,scale) column.
func (t *Table) Decimal(name string, precision, scale int) *Column {
	return t.add(name, Decimal, precision, scale)
}

// Varchar adds a VARCHAR column, 255 long unless given.
func (t *Table) Varchar(name string, length ...int) *Column {
	return t.add(name, String, lengthOr(length, 255)...)
}

// Char adds a CHAR column.
func (t *Table) Char(name string, length int) *Column { return t.add(name, Char, length) }

// Text adds a TEXT column.
func (t *Table) Text(name string) *Column { return t.add(name, Text) }

// MediumText adds a MEDIUMTEXT column.
func (t *Table) MediumText(name string) *Column { return t.add(name, MediumText) }

// LongText adds a LONGTEXT column.
func (t *Table) LongText(name string) *Column { return t.add(name, LongText) }

// JSON adds a JSON column.
func (t *Table) JSON(name string) *Column { return t.add(name, JSON) }

// Blob adds a BLOB column.
func (t *Table) Blob(name string) *Column { return t.add(name, Blob) }

// Date adds a DATE column.
func (t *Table) Date(name string) *Column { return t.add(name, Date) }

// DateTime adds a DATETIME column.
func (t *Table) DateTime(name string) *Column { return t.add(name, DateTime) }

// Time adds a TIME column.
func (t *Table) Time(name string) *Column { return t.add(name, Time) }

// Timestamp adds a Unix time column stored as INT(10) UNSIGNED.
func (t *Table) Timestamp(name string) *Column { return t.add(name, Timestamp) }

// Year adds a YEAR column.
func (t *Table) Year(name string) *Column { return t.add(name, Year) }

// Enum adds an ENUM column.
func (t *Table) Enum(name string, values ...string) *Column {
	return t.add(name, Enum).Values(values...)
}

// Set adds a SET column.
func (t *Table) Set(name string, values ...string) *Column {
	return t.add(name, Set).Values(values...)
}

// Increments adds an unsigned auto increment INT primary key.
func (t *Table) Increments(name string) *Column {
	t.PrimaryKey = []string{name}
	return t.add(name, Int, 10).Unsigned().AutoIncrement()
}

// BigIncrements adds an unsigned auto increment BIGINT primary key.
func (t *Table) BigIncrements(name string) *Column {
	t.PrimaryKey = []string{name}
	return t.add(name, BigInt, 20).Unsigned().AutoIncrement()
}

// Timestamps adds created_at and updated_at timestamp columns.
func (t *Table) Timestamps() {
	t.Timestamp("created_at")
	t.Timestamp("updated_at")
}

// Primary sets the primary key columns.
func (t *Table) Primary(columns ...string) *Table {
	t.PrimaryKey = columns
	return t
}

// Index adds a secondary index.
func (t *Table) Index(name string, columns ...string) *Index {
	idx := &Index{Name: name, Columns: columns}
	t.indexes.set(name, idx)
	return idx
}

// Unique adds a unique index.
func (t *Table) Unique(name string, columns ...string) *Index {
	idx := t.Index(name, columns...)
	idx.Unique = true
	return idx
}

// Indexes returns the indexes in declaration order.
func (t *Table) Indexes() []*Index { return t.indexes.values() }

// DropIndex removes the named index.
func (t *Table) DropIndex(name string) bool { return t.indexes.remove(name) }

// Foreign adds a foreign key from column to refTable.refColumn.
func (t *Table) Foreign(name, column, refTable, refColumn string) *ForeignKey {
	fk := &ForeignKey{Name: name, Column: column, RefTable: refTable, RefColumn: refColumn}
	t.foreignKeys.set(name, fk)
	return fk
}

// ForeignKeys returns the foreign keys in declaration order.
func (t *Table) ForeignKeys() []*ForeignKey { return t.foreignKeys.values() }

// DropForeign removes the named foreign key.
func (t *Table) DropForeign(name string) bool { return t.foreignKeys.remove(name) }

// Check adds a CHECK constraint.
func (t *Table) Check(name, expr string) *Check {
	c := &Check{Name: name, Expr: expr}
	t.checks.set(name, c)
	return c
}

// Checks returns the checks in declaration order.
func (t *Table) Checks() []*Check { return t.checks.values() }

// IsPrimary reports whether column is part of the primary key.
func (t *Table) IsPrimary(column string) bool {
	for _, pk := range t.PrimaryKey {
		if strings.EqualFold(pk, column) {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of t.
func (t *Table) Clone() *Table {
	out := &Table{
		Name:          t.Name,
		Engine:        t.Engine,
		Charset:       t.Charset,
		Collation:     t.Collation,
		Comment:       t.Comment,
		PrimaryKey:    append([]string(nil), t.PrimaryKey...),
		AutoIncrement: t.AutoIncrement,
	}
	for _, col := range t.Columns() {
		out.AddColumn(col.Clone())
	}
	for _, idx := range t.Indexes() {
		cp := *idx
		cp.Columns = append([]string(nil), idx.Columns...)
		out.indexes.set(cp.Name, &cp)
	}
	for _, fk := range t.ForeignKeys() {
		cp := *fk
		out.foreignKeys.set(cp.Name, &cp)
	}
	for _, c := range t.Checks() {
		cp := *c
		out.checks.set(cp.Name, &cp)
	}
	return out
}
