package cli

import (
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose   bool
	Format    string // "json" | "text"
	Config    string // optional YAML config file
	Schema    string // schema directory or file
	CacheSize int    // resolver cache entries
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// EnvPrefix prefixes the environment variables that back global flags,
// e.g. RELPATH_SCHEMA.
const EnvPrefix = "RELPATH"

var envKeyReplacer = strings.NewReplacer("-", "_")

// NewRootCommand creates the root command for the relpath CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "relpath",
		Short: "relpath - relationship path resolution",
		Long: `Resolve dotted query paths across model relationships.

relpath loads model definitions (CUE or YAML), resolves paths such as
books.publisher.name against them and compiles query conditions into a
canonical plan.

Global flags can also be set with RELPATH_* environment variables or a
--config file; flags win over both.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.applyConfig(cmd); err != nil {
				return err
			}
			// Validate format flag
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.Config, "config", "", "config file (YAML)")
	cmd.PersistentFlags().StringVarP(&opts.Schema, "schema", "s", "", "schema directory or file (.cue, .yaml)")
	cmd.PersistentFlags().IntVar(&opts.CacheSize, "cache-size", 0, "resolver cache entries (0 = default)")

	// Add subcommands
	cmd.AddCommand(NewCompileCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewResolveCommand(opts))
	cmd.AddCommand(NewPlanCommand(opts))
	cmd.AddCommand(NewIntrospectCommand(opts))

	return cmd
}

// applyConfig fills options from the config file and environment. A flag
// set on the command line always wins.
func (o *RootOptions) applyConfig(cmd *cobra.Command) error {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(envKeyReplacer)
	v.AutomaticEnv()

	configFile := o.Config
	if configFile == "" {
		configFile = v.GetString("config")
	}
	if configFile != "" {
		v.SetConfigFile(configFile)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("reading config %s: %w", configFile, err)
		}
	}

	for _, name := range []string{"verbose", "format", "schema", "cache-size"} {
		if err := v.BindPFlag(name, cmd.Flags().Lookup(name)); err != nil {
			return fmt.Errorf("binding flag %s: %w", name, err)
		}
	}

	o.Verbose = v.GetBool("verbose")
	o.Format = v.GetString("format")
	o.Schema = v.GetString("schema")
	o.CacheSize = v.GetInt("cache-size")
	return nil
}

// Logger returns the structured logger commands pass to the schema
// registry and the resolver. Debug records are only emitted in verbose
// mode.
func (o *RootOptions) Logger(w io.Writer) *slog.Logger {
	level := slog.LevelInfo
	if o.Verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}
