package cli

import (
	"fmt"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/zoobzio/dbkit"
	"github.com/zoobzio/dbkit/driver"
)

func newSQLCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sql <statement>",
		Short: "Run a statement through the configured connection",
		Long: `Run a statement through the configured connection. Reads print their
rows; writes print the affected row count and last insert id.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, engine, err := opts.connect(ctx)
			if err != nil {
				return err
			}
			defer engine.Close()

			grammar, err := cfg.Grammar()
			if err != nil {
				return WrapExitError(ExitCommandError, "grammar", err)
			}
			conn := dbkit.New(grammar, cfg.ConnectionOptions(engine, opts.logger)...)
			out := opts.output(cmd)

			statement := args[0]
			if dbkit.Cacheable(statement) {
				rows, err := conn.Select(ctx, statement)
				if err != nil {
					return err
				}
				if rows == nil {
					rows = []driver.Row{}
				}
				if out.JSON() {
					return out.Success(rows)
				}
				return printRows(out, rows)
			}

			res, err := conn.Statement(ctx, statement)
			if err != nil {
				return err
			}
			if out.JSON() {
				return out.Success(res)
			}
			return out.Success(fmt.Sprintf("%d rows affected, last insert id %d", res.RowsAffected, res.LastInsertID))
		},
	}
}

// printRows writes rows as a table with sorted column headers.
func printRows(out *Output, rows []driver.Row) error {
	if len(rows) == 0 {
		fmt.Fprintln(out.Writer, "(0 rows)")
		return nil
	}
	var columns []string
	for key := range rows[0] {
		columns = append(columns, key)
	}
	slices.Sort(columns)

	w := tabwriter.NewWriter(out.Writer, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, strings.Join(columns, "\t"))
	for _, row := range rows {
		cells := make([]string, len(columns))
		for i, c := range columns {
			if v := row[c]; v == nil {
				cells[i] = "NULL"
			} else {
				cells[i] = fmt.Sprint(v)
			}
		}
		fmt.Fprintln(w, strings.Join(cells, "\t"))
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(out.Writer, "(%d rows)\n", len(rows))
	return nil
}
