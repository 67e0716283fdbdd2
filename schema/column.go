package schema

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/zoobzio/dbkit/internal/types"
)

// Column is one column of a Table. Setters return the column so
// declarations chain.
type Column struct {
	name          string
	oldName       string
	after         string
	typ           string
	length        []int
	values        []string
	unsigned      bool
	nullable      bool
	autoIncrement bool
	def           any
	hasDefault    bool
	comment       string
	charset       string
	collation     string
	primary       bool
	unique        bool

	table *Table
}

// NewColumn creates a NOT NULL column of type typ.
func NewColumn(name, typ string, length ...int) *Column {
	return &Column{name: name, typ: strings.ToLower(typ), length: length}
}

// Name returns the column name.
func (c *Column) Name() string { return c.name }

// OldName returns the name the column held before its first rename, or "".
func (c *Column) OldName() string { return c.oldName }

// Rename changes the column name. The first rename records the previous
// name so a diff emits CHANGE COLUMN instead of a drop and add. A column
// that belongs to a table is rekeyed there too.
func (c *Column) Rename(name string) *Column {
	from := c.name
	if name != from && c.oldName == "" {
		c.oldName = from
	}
	c.name = name
	if c.table != nil {
		c.table.rekeyColumn(c, from, name)
	}
	return c
}

// TypeName returns the semantic type tag.
func (c *Column) TypeName() string { return c.typ }

// Type sets the semantic type tag and optionally its length.
func (c *Column) Type(typ string, length ...int) *Column {
	c.typ = strings.ToLower(typ)
	if len(length) > 0 {
		c.length = length
	}
	return c
}

// Lengths returns the declared length, or length and scale.
func (c *Column) Lengths() []int { return append([]int(nil), c.length...) }

// Length sets the length, or length and scale for decimal types.
func (c *Column) Length(n ...int) *Column {
	c.length = n
	return c
}

// Options returns the enum or set members.
func (c *Column) Options() []string { return append([]string(nil), c.values...) }

// Values sets the enum or set members.
func (c *Column) Values(values ...string) *Column {
	c.values = values
	return c
}

// IsUnsigned reports the declared unsigned flag.
func (c *Column) IsUnsigned() bool { return c.unsigned }

// Unsigned marks a numeric column unsigned.
func (c *Column) Unsigned() *Column {
	c.unsigned = true
	return c
}

// IsNullable reports whether the column accepts NULL.
func (c *Column) IsNullable() bool { return c.nullable }

// Nullable allows NULL.
func (c *Column) Nullable() *Column {
	c.nullable = true
	return c
}

// NotNull disallows NULL.
func (c *Column) NotNull() *Column {
	c.nullable = false
	return c
}

// IsAutoIncrement reports the auto increment flag.
func (c *Column) IsAutoIncrement() bool { return c.autoIncrement }

// AutoIncrement marks the column AUTO_INCREMENT.
func (c *Column) AutoIncrement() *Column {
	c.autoIncrement = true
	return c
}

// DefaultValue returns the default and whether one is set.
func (c *Column) DefaultValue() (any, bool) { return c.def, c.hasDefault }

// Default sets the default value. Use dbkit.Raw for SQL expressions such as
// CURRENT_TIMESTAMP.
func (c *Column) Default(v any) *Column {
	c.def = v
	c.hasDefault = true
	return c
}

// DropDefault removes the default value.
func (c *Column) DropDefault() *Column {
	c.def = nil
	c.hasDefault = false
	return c
}

// CommentText returns the column comment.
func (c *Column) CommentText() string { return c.comment }

// Comment sets the column comment.
func (c *Column) Comment(comment string) *Column {
	c.comment = comment
	return c
}

// CharsetName returns the column character set, "" when inherited.
func (c *Column) CharsetName() string { return c.charset }

// Charset overrides the table character set.
func (c *Column) Charset(charset string) *Column {
	c.charset = charset
	return c
}

// CollationName returns the column collation, "" when inherited.
func (c *Column) CollationName() string { return c.collation }

// Collation overrides the table collation.
func (c *Column) Collation(collation string) *Column {
	c.collation = collation
	return c
}

// AfterColumn returns the column this one is positioned after, or "".
func (c *Column) AfterColumn() string { return c.after }

// After positions the column after another when it is added or changed.
func (c *Column) After(column string) *Column {
	c.after = column
	return c
}

// IsPrimary reports whether reflection found the column in the primary key.
func (c *Column) IsPrimary() bool { return c.primary }

// IsUnique reports whether reflection found a unique key on the column.
func (c *Column) IsUnique() bool { return c.unique }

// MarkKey records the key flags reported by reflection.
func (c *Column) MarkKey(primary, unique bool) *Column {
	c.primary, c.unique = primary, unique
	return c
}

// Clone returns a copy of c.
func (c *Column) Clone() *Column {
	out := *c
	out.table = nil
	out.length = c.Lengths()
	out.values = c.Options()
	return &out
}

// Resolved is the storage form of a column: aliases replaced by their base
// type and forced attributes applied.
type Resolved struct {
	Type       string
	Length     []int
	Unsigned   bool
	Default    any
	HasDefault bool
}

// Resolve applies the type mapping. bool is stored as TINYINT(1) UNSIGNED
// and timestamp as INT(10) UNSIGNED defaulting to 0.
func (c *Column) Resolve() Resolved {
	r := Resolved{
		Type:       BaseType(c.typ),
		Length:     c.Lengths(),
		Unsigned:   c.unsigned,
		Default:    c.def,
		HasDefault: c.hasDefault,
	}
	switch c.typ {
	case Bool:
		r.Length, r.Unsigned = []int{1}, true
	case Timestamp:
		r.Length, r.Unsigned = []int{10}, true
		r.Default, r.HasDefault = 0, true
	case Uint:
		r.Unsigned = true
	}
	if r.Type == TinyInt {
		r.Length = []int{1}
	}
	if !IsNumeric(r.Type) {
		r.Unsigned = false
	}
	return r
}

// DefaultText renders a default value in the unquoted form reflection
// reports it in.
func DefaultText(v any) string {
	switch x := v.(type) {
	case nil:
		return "NULL"
	case bool:
		if x {
			return "1"
		}
		return "0"
	case types.Expression:
		return x.SQL
	case *types.Expression:
		if x != nil {
			return x.SQL
		}
		return "NULL"
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	}
	return fmt.Sprint(v)
}

// IsRawDefault reports whether a default is emitted without quoting.
func IsRawDefault(v any) bool {
	switch v.(type) {
	case nil, bool, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return true
	}
	return types.IsExpression(v)
}
