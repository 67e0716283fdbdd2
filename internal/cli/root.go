// Package cli implements the dbkit command line.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"

	"github.com/zoobzio/dbkit/config"
	"github.com/zoobzio/dbkit/driver"
)

// ValidFormats lists the accepted --format values.
var ValidFormats = []string{"text", "json"}

// OpenFunc opens the engine described by a configuration.
type OpenFunc func(ctx context.Context, cfg *config.Config, logger *slog.Logger) (driver.Engine, error)

// RootOptions holds the global flags and shared dependencies.
type RootOptions struct {
	ConfigPath string
	Verbose    bool
	Format     string

	// Open defaults to config.Open.
	Open OpenFunc

	logger *slog.Logger
}

// NewRootCommand creates the dbkit command tree.
func NewRootCommand() *cobra.Command {
	return NewRootCommandWith(&RootOptions{})
}

// NewRootCommandWith creates the command tree around opts.
func NewRootCommandWith(opts *RootOptions) *cobra.Command {
	if opts.Open == nil {
		opts.Open = func(ctx context.Context, cfg *config.Config, logger *slog.Logger) (driver.Engine, error) {
			return config.Open(ctx, cfg, logger)
		}
	}

	cmd := &cobra.Command{
		Use:   "dbkit",
		Short: "Inspect and migrate database schemas",
		Long: `dbkit reflects live MySQL tables, diffs them against YAML table
definitions and runs ad hoc SQL through the configured connection.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			level := slog.LevelInfo
			if opts.Verbose {
				level = slog.LevelDebug
			}
			opts.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "config file (default ./dbkit.yaml)")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "log executed statements")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(newTablesCommand(opts))
	cmd.AddCommand(newColumnsCommand(opts))
	cmd.AddCommand(newShowCreateCommand(opts))
	cmd.AddCommand(newPlanCommand(opts))
	cmd.AddCommand(newApplyCommand(opts))
	cmd.AddCommand(newCompileCommand(opts))
	cmd.AddCommand(newSQLCommand(opts))
	return cmd
}

func (o *RootOptions) output(cmd *cobra.Command) *Output {
	return &Output{Format: o.Format, Writer: cmd.OutOrStdout()}
}

func (o *RootOptions) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(o.ConfigPath)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "load config", err)
	}
	return cfg, nil
}

// connect loads the configuration and opens its engine. The caller closes
// the engine.
func (o *RootOptions) connect(ctx context.Context) (*config.Config, driver.Engine, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, nil, err
	}
	engine, err := o.Open(ctx, cfg, o.logger)
	if err != nil {
		return nil, nil, WrapExitError(ExitCommandError, "connect", err)
	}
	o.logger.DebugContext(ctx, "connected", "driver", cfg.Driver, "database", cfg.Database)
	return cfg, engine, nil
}
