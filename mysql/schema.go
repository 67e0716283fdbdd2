package mysql

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/zoobzio/dbkit"
	"github.com/zoobzio/dbkit/driver"
	"github.com/zoobzio/dbkit/schema"
)

// Schema creates, updates and drops tables on a MySQL engine.
type Schema struct {
	conn    *dbkit.Connection
	grammar *SchemaGrammar
	info    *Information
	logger  *slog.Logger
}

// NewSchema creates a schema manager over engine.
func NewSchema(engine driver.Engine, opts ...Option) *Schema {
	o := newOptions(opts)
	return &Schema{
		conn:    dbkit.New(New(), dbkit.WithEngine(engine), dbkit.WithLogger(o.logger)),
		grammar: NewSchemaGrammar(o.prefix),
		info:    NewInformation(engine, opts...),
		logger:  o.logger,
	}
}

// Grammar returns the schema grammar.
func (s *Schema) Grammar() *SchemaGrammar { return s.grammar }

// Information returns the live schema reader.
func (s *Schema) Information() *Information { return s.info }

// Compile returns the CREATE TABLE statement for t.
func (s *Schema) Compile(t *schema.Table) string {
	return s.grammar.CompileTableCreate(t)
}

// Create creates t if it does not exist.
func (s *Schema) Create(ctx context.Context, t *schema.Table) error {
	return s.run(ctx, t.Name, s.grammar.CompileTableCreate(t))
}

// Plan returns the DDL Update would run for t.
func (s *Schema) Plan(ctx context.Context, t *schema.Table) (string, error) {
	return s.info.Plan(ctx, t)
}

// Update creates t or alters the live table to match it and returns the
// executed DDL, "" when nothing changed.
func (s *Schema) Update(ctx context.Context, t *schema.Table) (string, error) {
	return s.info.UpdateTable(ctx, t)
}

// Migrate updates every table in order and returns the executed DDL.
func (s *Schema) Migrate(ctx context.Context, tables ...*schema.Table) ([]string, error) {
	var applied []string
	for _, t := range tables {
		sql, err := s.Update(ctx, t)
		if err != nil {
			return applied, err
		}
		if sql != "" {
			applied = append(applied, sql)
		}
	}
	return applied, nil
}

// Drop drops the named table.
func (s *Schema) Drop(ctx context.Context, name string) error {
	return s.run(ctx, name, s.grammar.CompileTableDrop(name, false))
}

// DropIfExists drops the named table when it exists.
func (s *Schema) DropIfExists(ctx context.Context, name string) error {
	return s.run(ctx, name, s.grammar.CompileTableDrop(name, true))
}

// Rename renames a table.
func (s *Schema) Rename(ctx context.Context, from, to string) error {
	return s.run(ctx, from, s.grammar.CompileTableRename(from, to))
}

func (s *Schema) run(ctx context.Context, table, sql string) error {
	if _, err := s.conn.Statement(ctx, sql); err != nil {
		return fmt.Errorf("table %s: %w", table, err)
	}
	s.logger.DebugContext(ctx, "schema statement", "table", table, "sql", sql)
	return nil
}
