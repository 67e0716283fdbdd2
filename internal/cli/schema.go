package cli

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/zoobzio/dbkit/config"
	"github.com/zoobzio/dbkit/mysql"
	"github.com/zoobzio/dbkit/schema"
)

// TableChange is the planned DDL for one table.
type TableChange struct {
	Table string `json:"table"`
	SQL   string `json:"sql"`
}

// ColumnInfo is one reflected column.
type ColumnInfo struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Nullable bool   `json:"nullable"`
	Default  string `json:"default,omitempty"`
	Key      string `json:"key,omitempty"`
	Comment  string `json:"comment,omitempty"`
}

// withSchema opens the configured MySQL engine and hands fn a Schema bound
// to the configured prefix.
func (o *RootOptions) withSchema(ctx context.Context, fn func(*config.Config, *mysql.Schema) error) error {
	cfg, engine, err := o.connect(ctx)
	if err != nil {
		return err
	}
	defer engine.Close()

	if cfg.Driver != config.MySQL && cfg.Driver != config.MariaDB {
		return NewExitError(ExitCommandError, fmt.Sprintf("schema commands need a mysql or mariadb driver, got %q", cfg.Driver))
	}
	return fn(cfg, mysql.NewSchema(engine, mysql.WithPrefix(cfg.Prefix), mysql.WithLogger(o.logger)))
}

func newTablesCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "tables",
		Short: "List tables under the configured prefix",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withSchema(cmd.Context(), func(_ *config.Config, s *mysql.Schema) error {
				tables, err := s.Information().TableList(cmd.Context())
				if err != nil {
					return err
				}
				if tables == nil {
					tables = []string{}
				}
				return opts.output(cmd).Success(tables)
			})
		},
	}
}

func newColumnsCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "columns <table>",
		Short: "Describe the columns of a table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withSchema(cmd.Context(), func(_ *config.Config, s *mysql.Schema) error {
				cols, err := s.Information().ColumnList(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if len(cols) == 0 {
					return NewExitError(ExitFailure, fmt.Sprintf("table %q does not exist", args[0]))
				}
				infos := make([]ColumnInfo, 0, len(cols))
				for _, c := range cols {
					infos = append(infos, columnInfo(c))
				}

				out := opts.output(cmd)
				if out.JSON() {
					return out.Success(infos)
				}
				w := tabwriter.NewWriter(out.Writer, 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "NAME\tTYPE\tNULL\tDEFAULT\tKEY\tCOMMENT")
				for _, c := range infos {
					null := "NO"
					if c.Nullable {
						null = "YES"
					}
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n", c.Name, c.Type, null, c.Default, c.Key, c.Comment)
				}
				return w.Flush()
			})
		},
	}
}

func columnInfo(c *schema.Column) ColumnInfo {
	info := ColumnInfo{
		Name:     c.Name(),
		Type:     strings.ToLower(mysql.FormatColumnType(c)),
		Nullable: c.IsNullable(),
		Comment:  c.CommentText(),
	}
	if v, ok := c.DefaultValue(); ok {
		info.Default = schema.DefaultText(v)
	}
	switch {
	case c.IsPrimary():
		info.Key = "PRI"
	case c.IsUnique():
		info.Key = "UNI"
	}
	return info
}

func newShowCreateCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show-create <table>",
		Short: "Print the server's CREATE TABLE statement",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withSchema(cmd.Context(), func(_ *config.Config, s *mysql.Schema) error {
				sql, err := s.Information().TableCreateSQL(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if sql == "" {
					return NewExitError(ExitFailure, fmt.Sprintf("table %q does not exist", args[0]))
				}
				return opts.output(cmd).Success(sql)
			})
		},
	}
}

// definitions loads the YAML table file named by args, or the configured
// schema file.
func definitions(cfg *config.Config, args []string) ([]*schema.Table, error) {
	path := cfg.Schema
	if len(args) > 0 {
		path = args[0]
	}
	tables, err := schema.LoadYAMLFile(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "load definitions", err)
	}
	return tables, nil
}

func newPlanCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "plan [file]",
		Short: "Show the DDL that would bring the database in line with the definitions",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withSchema(cmd.Context(), func(cfg *config.Config, s *mysql.Schema) error {
				tables, err := definitions(cfg, args)
				if err != nil {
					return err
				}
				changes := []TableChange{}
				for _, t := range tables {
					sql, err := s.Plan(cmd.Context(), t)
					if err != nil {
						return err
					}
					if sql != "" {
						changes = append(changes, TableChange{Table: t.Name, SQL: sql})
					}
				}
				return printChanges(opts.output(cmd), changes)
			})
		},
	}
}

func newApplyCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "apply [file]",
		Short: "Create or alter tables to match the definitions",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withSchema(cmd.Context(), func(cfg *config.Config, s *mysql.Schema) error {
				tables, err := definitions(cfg, args)
				if err != nil {
					return err
				}
				changes := []TableChange{}
				for _, t := range tables {
					sql, err := s.Update(cmd.Context(), t)
					if err != nil {
						return err
					}
					if sql != "" {
						opts.logger.InfoContext(cmd.Context(), "table updated", "table", t.Name)
						changes = append(changes, TableChange{Table: t.Name, SQL: sql})
					}
				}
				return printChanges(opts.output(cmd), changes)
			})
		},
	}
}

func newCompileCommand(opts *RootOptions) *cobra.Command {
	var prefix string
	cmd := &cobra.Command{
		Use:   "compile <file>",
		Short: "Print CREATE TABLE statements for the definitions without connecting",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tables, err := schema.LoadYAMLFile(args[0])
			if err != nil {
				return WrapExitError(ExitCommandError, "load definitions", err)
			}
			g := mysql.NewSchemaGrammar(prefix)
			changes := make([]TableChange, 0, len(tables))
			for _, t := range tables {
				changes = append(changes, TableChange{Table: t.Name, SQL: g.CompileTableCreate(t)})
			}
			return printChanges(opts.output(cmd), changes)
		},
	}
	cmd.Flags().StringVar(&prefix, "prefix", "", "table name prefix")
	return cmd
}

func printChanges(out *Output, changes []TableChange) error {
	if out.JSON() {
		return out.Success(changes)
	}
	if len(changes) == 0 {
		fmt.Fprintln(out.Writer, "nothing to do")
		return nil
	}
	for _, c := range changes {
		out.Statement(c.SQL)
	}
	return nil
}

