package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/relpath/internal/compiler"
	"github.com/roach88/relpath/internal/schema"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Output string // output file path
}

// CompilationResult holds the compiled model definitions.
type CompilationResult struct {
	Models []schema.ModelDef       `json:"models"`
	Cycles []compiler.CycleWarning `json:"cycles"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile [schema]",
		Short: "Compile CUE or YAML models into a registry",
		Long: `Compile CUE and YAML model definitions and register them.

The compiler parses every schema file, validates the models as a whole
(kinds, keys, parents, relationship targets and through chains) and
registers them the way resolve and plan do. Relationship cycles are
reported for information.

The schema defaults to --schema when no argument is given.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true, // Don't print usage on errors - we handle our own error output
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, schemaArg(opts.RootOptions, args), cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file path (.json, .yaml)")

	return cmd
}

// schemaArg returns the positional schema path, falling back to --schema.
func schemaArg(opts *RootOptions, args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return opts.Schema
}

func runCompile(opts *CompileOptions, schemaPath string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}

	// Use shared loader with collect-all mode
	loadResult, loadErrors := LoadModels(schemaPath, LoadModeCollectAll)

	// Handle load errors (schema not found, no files, etc.)
	if loadResult == nil && len(loadErrors) > 0 {
		var loadErr *LoadError
		if errors.As(loadErrors[0], &loadErr) {
			return outputCompileError(formatter, loadErr.Code, loadErr.Message, nil)
		}
		return outputCompileError(formatter, ErrCodeGeneric, loadErrors[0].Error(), nil)
	}

	formatter.VerboseLog("Found %d schema file(s) in %s", loadResult.FileCount(), schemaPath)
	for _, def := range loadResult.Models {
		formatter.VerboseLog("Compiling model: %s", def.Name)
	}

	// Handle compilation errors
	if len(loadErrors) > 0 {
		return outputCompileErrors(formatter, loadErrors)
	}

	if verrs := compiler.Validate(loadResult.Models); len(verrs) > 0 {
		return outputValidationErrors(formatter, verrs)
	}

	logger := opts.Logger(formatter.GetErrWriter())
	if _, err := schema.Build(loadResult.Models, schema.WithLogger(logger)); err != nil {
		return outputCompileError(formatter, ErrCodeSchemaInvalid, err.Error(), nil)
	}

	result := &CompilationResult{
		Models: loadResult.Models,
		Cycles: compiler.AnalyzeCycles(loadResult.Models),
	}

	// Write to file if --output specified
	if opts.Output != "" {
		if err := writeModelsToFile(result, opts.Output); err != nil {
			return outputCompileError(formatter, ErrCodeWriteFailed, fmt.Sprintf("writing output file: %v", err), nil)
		}
	}

	return outputCompileSuccess(formatter, result, loadResult.FileCount(), opts.Output)
}

// outputCompileSuccess outputs successful compilation results.
func outputCompileSuccess(formatter *OutputFormatter, result *CompilationResult, fileCount int, outputFile string) error {
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	// Human-readable text output
	fmt.Fprintf(formatter.Writer, "✓ Compiled %d model(s) from %d file(s)\n\n",
		len(result.Models), fileCount)

	fmt.Fprintln(formatter.Writer, "Models:")
	for _, def := range result.Models {
		name := def.Name
		if def.Parent != "" {
			name += " < " + def.Parent
		}
		fmt.Fprintf(formatter.Writer, "  %s: %d field(s), %d relationship(s)\n",
			name, len(def.Fields), len(def.Relationships))
	}
	fmt.Fprintln(formatter.Writer)

	if len(result.Cycles) > 0 {
		fmt.Fprintln(formatter.Writer, "Cycles:")
		for _, cycle := range result.Cycles {
			fmt.Fprintf(formatter.Writer, "  %s\n", cycle.Message)
		}
		fmt.Fprintln(formatter.Writer)
	}

	if outputFile != "" {
		fmt.Fprintf(formatter.Writer, "Wrote models to %s\n", outputFile)
	}

	return nil
}

// outputCompileError outputs a single compilation error.
func outputCompileError(formatter *OutputFormatter, code, message string, details any) error {
	// Compilation errors are command-level errors (exit code 2)
	return formatter.Fail(ExitCommandError, code, message, details)
}

// outputCompileErrors outputs multiple compilation errors.
func outputCompileErrors(formatter *OutputFormatter, errs []error) error {
	if formatter.Format == "json" {
		cliErrors := make([]CLIError, len(errs))
		for i, err := range errs {
			code, message := parseCompileError(err)
			cliErrors[i] = CLIError{
				Code:    code,
				Message: message,
			}
		}

		response := CLIResponse{
			Status: "error",
			Error:  &cliErrors[0],
			Data:   cliErrors, // Include all errors in data
		}

		encoder := json.NewEncoder(formatter.Writer)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(response); err != nil {
			return err
		}

		// Compilation errors are command-level errors (exit code 2)
		return NewExitError(ExitCommandError, fmt.Sprintf("compilation failed with %d error(s)", len(errs)))
	}

	// Text format
	fmt.Fprintln(formatter.Writer, "✗ Compilation failed")
	fmt.Fprintln(formatter.Writer)

	for _, err := range errs {
		code, message := parseCompileError(err)
		if pos := errorPosition(err); pos != "" {
			fmt.Fprintln(formatter.Writer, pos)
		}
		fmt.Fprintf(formatter.Writer, "  %s: %s\n\n", code, message)
	}

	// Compilation errors are command-level errors (exit code 2)
	return NewExitError(ExitCommandError, fmt.Sprintf("compilation failed with %d error(s)", len(errs)))
}

// errorPosition renders the source position of a compile or load error.
func errorPosition(err error) string {
	var compileErr *compiler.CompileError
	if errors.As(err, &compileErr) {
		return compileErr.Position()
	}
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		switch {
		case loadErr.Pos.IsValid():
			return fmt.Sprintf("%s:%d:%d", loadErr.Pos.Filename(), loadErr.Pos.Line(), loadErr.Pos.Column())
		case loadErr.File != "" && loadErr.Line > 0:
			return fmt.Sprintf("%s:%d", loadErr.File, loadErr.Line)
		}
	}
	return ""
}

// parseCompileError extracts error code and message from an error.
func parseCompileError(err error) (string, string) {
	var compileErr *compiler.CompileError
	if errors.As(err, &compileErr) {
		code := MapFieldToErrorCode(compileErr.Field)
		return code, compileErr.Message
	}
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		return loadErr.Code, loadErr.Message
	}
	return ErrCodeGeneric, err.Error()
}

// writeModelsToFile writes the compiled models as YAML (for .yaml/.yml
// files, readable by compile again) or as indented JSON.
func writeModelsToFile(result *CompilationResult, filename string) error {
	var (
		data []byte
		err  error
	)
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".yaml", ".yml":
		data, err = compiler.EncodeYAML(result.Models)
	default:
		data, err = json.MarshalIndent(result, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("encoding models: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("writing file: %w", err)
	}

	return nil
}
