package schema

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/zoobzio/dbkit/internal/types"
	"gopkg.in/yaml.v3"
)

// Definitions is the YAML document shape: a list of tables.
type Definitions struct {
	Tables []TableSpec `yaml:"tables"`
}

// TableSpec is the YAML form of a Table.
type TableSpec struct {
	Name          string           `yaml:"name"`
	Engine        string           `yaml:"engine,omitempty"`
	Charset       string           `yaml:"charset,omitempty"`
	Collation     string           `yaml:"collation,omitempty"`
	Comment       string           `yaml:"comment,omitempty"`
	PrimaryKey    []string         `yaml:"primary_key,omitempty"`
	AutoIncrement int64            `yaml:"auto_increment,omitempty"`
	Timestamps    bool             `yaml:"timestamps,omitempty"`
	Columns       []ColumnSpec     `yaml:"columns"`
	Indexes       []IndexSpec      `yaml:"indexes,omitempty"`
	ForeignKeys   []ForeignKeySpec `yaml:"foreign_keys,omitempty"`
	Checks        []CheckSpec      `yaml:"checks,omitempty"`
}

// ColumnSpec is the YAML form of a Column. RenameFrom names the live
// column this one replaces.
type ColumnSpec struct {
	Name          string    `yaml:"name"`
	Type          string    `yaml:"type"`
	Length        []int     `yaml:"length,omitempty"`
	Values        []string  `yaml:"values,omitempty"`
	Unsigned      bool      `yaml:"unsigned,omitempty"`
	Nullable      bool      `yaml:"nullable,omitempty"`
	AutoIncrement bool      `yaml:"auto_increment,omitempty"`
	Default       yaml.Node `yaml:"default,omitempty"`
	DefaultRaw    string    `yaml:"default_raw,omitempty"`
	Comment       string    `yaml:"comment,omitempty"`
	Charset       string    `yaml:"charset,omitempty"`
	Collation     string    `yaml:"collation,omitempty"`
	After         string    `yaml:"after,omitempty"`
	RenameFrom    string    `yaml:"rename_from,omitempty"`
}

// IndexSpec is the YAML form of an Index.
type IndexSpec struct {
	Name    string   `yaml:"name"`
	Columns []string `yaml:"columns"`
	Order   string   `yaml:"order,omitempty"`
	Unique  bool     `yaml:"unique,omitempty"`
}

// ForeignKeySpec is the YAML form of a ForeignKey.
type ForeignKeySpec struct {
	Name      string `yaml:"name"`
	Column    string `yaml:"column"`
	RefTable  string `yaml:"ref_table"`
	RefColumn string `yaml:"ref_column"`
	OnDelete  string `yaml:"on_delete,omitempty"`
	OnUpdate  string `yaml:"on_update,omitempty"`
}

// CheckSpec is the YAML form of a Check.
type CheckSpec struct {
	Name string `yaml:"name"`
	Expr string `yaml:"expr"`
}

// LoadYAML decodes table definitions. Unknown keys are rejected.
func LoadYAML(r io.Reader) ([]*Table, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var defs Definitions
	if err := dec.Decode(&defs); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("decode table definitions: %w", err)
	}
	tables := make([]*Table, 0, len(defs.Tables))
	for _, spec := range defs.Tables {
		t, err := spec.Table()
		if err != nil {
			return nil, err
		}
		tables = append(tables, t)
	}
	return tables, nil
}

// LoadYAMLFile decodes table definitions from path.
func LoadYAMLFile(path string) ([]*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return LoadYAML(f)
}

// Table converts the spec to a Table.
func (s TableSpec) Table() (*Table, error) {
	if s.Name == "" {
		return nil, errors.New("table definition without a name")
	}
	t := NewTable(s.Name)
	if s.Engine != "" {
		t.Engine = s.Engine
	}
	if s.Charset != "" {
		t.Charset = s.Charset
	}
	t.Collation = s.Collation
	t.Comment = s.Comment
	t.PrimaryKey = s.PrimaryKey
	t.AutoIncrement = s.AutoIncrement

	for _, cs := range s.Columns {
		col, err := cs.Column()
		if err != nil {
			return nil, fmt.Errorf("table %s: %w", s.Name, err)
		}
		t.AddColumn(col)
	}
	if s.Timestamps {
		t.Timestamps()
	}
	for _, is := range s.Indexes {
		idx := t.Index(is.Name, is.Columns...)
		idx.Order = is.Order
		idx.Unique = is.Unique
	}
	for _, fs := range s.ForeignKeys {
		fk := t.Foreign(fs.Name, fs.Column, fs.RefTable, fs.RefColumn)
		fk.OnDelete = fs.OnDelete
		fk.OnUpdate = fs.OnUpdate
	}
	for _, cs := range s.Checks {
		t.Check(cs.Name, cs.Expr)
	}
	return t, nil
}

// Column converts the spec to a Column.
func (s ColumnSpec) Column() (*Column, error) {
	if s.Name == "" {
		return nil, errors.New("column definition without a name")
	}
	if !IsKnownType(s.Type) {
		return nil, fmt.Errorf("column %s: unknown type %q", s.Name, s.Type)
	}
	name := s.Name
	if s.RenameFrom != "" {
		name = s.RenameFrom
	}
	col := NewColumn(name, s.Type, s.Length...).Rename(s.Name)
	if len(s.Values) > 0 {
		col.Values(s.Values...)
	}
	if s.Unsigned {
		col.Unsigned()
	}
	if s.Nullable {
		col.Nullable()
	}
	if s.AutoIncrement {
		col.AutoIncrement()
	}
	switch {
	case s.DefaultRaw != "":
		col.Default(types.Raw(s.DefaultRaw))
	case s.Default.Kind != 0:
		var v any
		if s.Default.ShortTag() != "!!null" {
			if err := s.Default.Decode(&v); err != nil {
				return nil, fmt.Errorf("column %s: default: %w", s.Name, err)
			}
		}
		col.Default(v)
	}
	return col.Comment(s.Comment).Charset(s.Charset).Collation(s.Collation).After(s.After), nil
}
