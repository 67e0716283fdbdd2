package schema

import (
	"fmt"
	"strings"

	"github.com/zoobzio/dbml"
)

// ToDBML exports tables as a DBML project, which dbkit.NewCatalog accepts.
func ToDBML(name string, tables ...*Table) *dbml.Project {
	project := dbml.NewProject(name)
	for _, t := range tables {
		table := dbml.NewTable(t.Name)
		for _, col := range t.Columns() {
			table.AddColumn(dbml.NewColumn(col.Name(), DBMLType(col)))
		}
		project.AddTable(table)
	}
	return project
}

// DBMLType renders the resolved column type in DBML notation, such as
// "varchar(255)" or "decimal(8,2)".
func DBMLType(col *Column) string {
	r := col.Resolve()
	if len(r.Length) == 0 || !(HasLength(r.Type) || r.Type == Decimal) {
		return r.Type
	}
	parts := make([]string, len(r.Length))
	for i, n := range r.Length {
		parts[i] = fmt.Sprint(n)
	}
	return r.Type + "(" + strings.Join(parts, ",") + ")"
}
