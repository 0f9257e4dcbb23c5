package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/relpath/internal/compiler"
	"github.com/roach88/relpath/internal/store"
)

// IntrospectOptions holds flags for the introspect command.
type IntrospectOptions struct {
	*RootOptions
	Database string // SQLite database file
	Output   string // optional YAML output file
}

// NewIntrospectCommand creates the introspect command.
func NewIntrospectCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &IntrospectOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "introspect --db <file>",
		Short: "Derive model definitions from a SQLite database",
		Long: `Read the tables of a SQLite database and print one model per table.

Columns become fields and foreign keys become relationships in both
directions. Columns with no usable kind (floating point, binary or
untyped) are skipped with a warning. The database is opened read-only.

The YAML output is a schema file compile, resolve and plan accept.

Examples:
  relpath introspect --db library.db
  relpath introspect --db library.db --output models/library.yaml`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIntrospect(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "SQLite database file (required)")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "write models as YAML to this file")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runIntrospect(opts *IntrospectOptions, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
	logger := opts.Logger(formatter.GetErrWriter())

	if _, err := os.Stat(opts.Database); err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeNotFound,
			fmt.Sprintf("database not found: %s", opts.Database), nil)
	}

	st, err := store.Open(opts.Database)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeDatabase, err.Error(), nil)
	}
	defer st.Close()

	result, err := st.Introspect(cmd.Context())
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeDatabase, err.Error(), nil)
	}

	for _, skipped := range result.Skipped {
		logger.Warn("column skipped",
			"table", skipped.Table,
			"column", skipped.Column,
			"type", skipped.Type,
			"reason", skipped.Reason)
	}
	logger.Debug("introspected database", "path", opts.Database, "models", len(result.Models))

	data, err := compiler.EncodeYAML(result.Models)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, err.Error(), nil)
	}

	if opts.Output != "" {
		if err := os.WriteFile(opts.Output, data, 0o644); err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeWriteFailed, err.Error(), nil)
		}
	}

	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	if opts.Output != "" {
		fmt.Fprintf(formatter.Writer, "✓ Introspected %d model(s), %d column(s) skipped\n", len(result.Models), len(result.Skipped))
		fmt.Fprintf(formatter.Writer, "Wrote models to %s\n", opts.Output)
		return nil
	}

	_, err = formatter.Writer.Write(data)
	return err
}
