package dbkit

import (
	"fmt"
	"sort"
	"strings"

	"github.com/zoobzio/dbkit/internal/render"
	"github.com/zoobzio/dbml"
)

// Catalog holds the table and column names of a DBML project. A Connection
// configured with one rejects unknown tables and insert or update columns.
type Catalog struct {
	project *dbml.Project
	tables  map[string]map[string]struct{}
}

// NewCatalog indexes a DBML project.
func NewCatalog(project *dbml.Project) (*Catalog, error) {
	if project == nil {
		return nil, fmt.Errorf("project cannot be nil")
	}
	c := &Catalog{
		project: project,
		tables:  make(map[string]map[string]struct{}),
	}
	for _, table := range project.Tables {
		cols := make(map[string]struct{})
		for _, col := range table.Columns {
			cols[col.Name] = struct{}{}
		}
		c.tables[table.Name] = cols
	}
	return c, nil
}

// Project returns the indexed project.
func (c *Catalog) Project() *dbml.Project { return c.project }

// Tables returns the table names in lexical order.
func (c *Catalog) Tables() []string {
	names := make([]string, 0, len(c.tables))
	for name := range c.tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ValidateTable checks a table reference. Aliases and schema qualifiers are
// ignored.
func (c *Catalog) ValidateTable(table string) error {
	name := bareTable(table)
	if _, ok := c.tables[name]; !ok {
		return fmt.Errorf("table '%s' not found in catalog", name)
	}
	return nil
}

// ValidateColumn checks that column is a plain identifier belonging to
// table.
func (c *Catalog) ValidateColumn(table, column string) error {
	if !isValidSQLIdentifier(column) {
		return fmt.Errorf("invalid column identifier '%s'", column)
	}
	name := bareTable(table)
	cols, ok := c.tables[name]
	if !ok {
		return fmt.Errorf("table '%s' not found in catalog", name)
	}
	if _, ok := cols[column]; !ok {
		return fmt.Errorf("column '%s' not found in table '%s'", column, name)
	}
	return nil
}

func bareTable(table string) string {
	name, _ := render.SplitAlias(table)
	if i := strings.LastIndex(name, "."); i >= 0 {
		name = name[i+1:]
	}
	return name
}

// isValidSQLIdentifier reports whether s is a letter or underscore followed
// by letters, digits or underscores.
func isValidSQLIdentifier(s string) bool {
	if s == "" {
		return false
	}
	first := s[0]
	if !((first >= 'a' && first <= 'z') || (first >= 'A' && first <= 'Z') || first == '_') {
		return false
	}
	for i := 1; i < len(s); i++ {
		ch := s[i]
		if !((ch >= 'a' && ch <= 'z') ||
			(ch >= 'A' && ch <= 'Z') ||
			(ch >= '0' && ch <= '9') ||
			ch == '_') {
			return false
		}
	}
	return true
}
