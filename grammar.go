package dbkit

// Grammar compiles structured queries into dialect SQL. The mysql,
// postgres, sqlite and mssql packages provide implementations.
type Grammar interface {
	Name() string
	Capabilities() Capabilities
	CompileSelect(q *Query) (*Statement, error)
	CompileInsert(q *Query, rows []InsertRow) (*Statement, error)
	CompileInsertOrUpdate(q *Query, rows []InsertRow, update []string) (*Statement, error)
	CompileReplace(q *Query, rows []InsertRow) (*Statement, error)
	CompileUpdate(q *Query, assignments []Assignment) (*Statement, error)
	CompileDelete(q *Query) (*Statement, error)
	CompileTruncate(q *Query) *Statement
}
