package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/relpath/internal/query"
	"github.com/roach88/relpath/internal/queryir"
	"github.com/roach88/relpath/internal/schema"
)

// ResolveResult describes a resolved path.
type ResolveResult struct {
	Path          string        `json:"path"`
	Root          string        `json:"root"`
	Source        string        `json:"source"`
	Target        string        `json:"target"`
	Repository    string        `json:"repository"`
	Relationships []string      `json:"relationships"`
	Property      *PropertyInfo `json:"property,omitempty"`
	Fingerprint   string        `json:"fingerprint"`
}

// PropertyInfo describes the field a terminal path ends at.
type PropertyInfo struct {
	Name     string `json:"name"`
	Model    string `json:"model"`
	Kind     string `json:"kind"`
	Key      bool   `json:"key,omitempty"`
	Required bool   `json:"required,omitempty"`
	Lazy     bool   `json:"lazy,omitempty"`
}

// NewResolveCommand creates the resolve command.
func NewResolveCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resolve <model> <path>",
		Short: "Resolve a dotted path against the schema",
		Long: `Resolve a dotted path such as books.publisher.name starting at a model.

Each segment names a relationship or a field of the model reached so
far; relationships win when both exist. The output shows the source and
target models, the repository the path reads from, the relationships
traversed and the field it ends at.

Examples:
  relpath resolve --schema ./models Author books.publisher.name
  relpath resolve --schema ./models Book author --format json`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResolve(rootOpts, args[0], args[1], cmd)
		},
	}

	return cmd
}

func runResolve(opts *RootOptions, modelName, dotted string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	env, err := openSchema(opts, formatter)
	if err != nil {
		return err
	}

	root, err := env.root(modelName)
	if err != nil {
		return formatter.FailWith(ExitFailure, err)
	}

	p, err := env.resolver.Walk(root, dotted)
	if err != nil {
		return formatter.FailWith(ExitFailure, err)
	}

	result, err := describePath(p)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, err.Error(), nil)
	}

	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	rels := "(none)"
	if len(result.Relationships) > 0 {
		rels = strings.Join(result.Relationships, " → ")
	}
	property := "(none)"
	if result.Property != nil {
		property = fmt.Sprintf("%s.%s (%s)", result.Property.Model, result.Property.Name, result.Property.Kind)
	}

	w := formatter.Writer
	fmt.Fprintf(w, "Path:          %s\n", result.Path)
	fmt.Fprintf(w, "Source:        %s\n", result.Source)
	fmt.Fprintf(w, "Target:        %s\n", result.Target)
	fmt.Fprintf(w, "Repository:    %s\n", result.Repository)
	fmt.Fprintf(w, "Relationships: %s\n", rels)
	fmt.Fprintf(w, "Property:      %s\n", property)
	fmt.Fprintf(w, "Fingerprint:   %s\n", result.Fingerprint)
	return nil
}

func describePath(p *query.Path) (*ResolveResult, error) {
	fingerprint, err := queryir.PathFingerprint(p)
	if err != nil {
		return nil, err
	}

	rels := p.Relationships()
	names := make([]string, len(rels))
	for i, rel := range rels {
		names[i] = rel.String()
	}

	result := &ResolveResult{
		Path:          p.String(),
		Root:          p.Root().Name(),
		Source:        p.SourceModel().Name(),
		Target:        p.TargetModel().Name(),
		Repository:    p.RepositoryName(),
		Relationships: names,
		Fingerprint:   fingerprint,
	}
	if f := p.Property(); f != nil {
		result.Property = &PropertyInfo{
			Name:     f.Name(),
			Model:    f.Model().Name(),
			Kind:     string(f.Kind()),
			Key:      f.IsKey(),
			Required: f.IsRequired(),
			Lazy:     f.IsLazy(),
		}
	}
	return result, nil
}

// schemaEnv is a loaded registry plus the resolver commands walk paths
// with.
type schemaEnv struct {
	registry *schema.Registry
	resolver *query.Resolver
}

// openSchema loads opts.Schema into a registry. Failures are already
// reported through formatter; the returned error is the ExitError.
func openSchema(opts *RootOptions, formatter *OutputFormatter) (*schemaEnv, error) {
	logger := opts.Logger(formatter.GetErrWriter())

	reg, verrs, err := LoadRegistry(opts.Schema, logger)
	if err != nil {
		code, message := parseCompileError(err)
		return nil, formatter.Fail(ExitCommandError, code, message, nil)
	}
	if len(verrs) > 0 {
		return nil, outputValidationErrors(formatter, verrs)
	}

	resolver, err := query.NewResolver(opts.CacheSize, query.WithResolverLogger(logger))
	if err != nil {
		return nil, formatter.Fail(ExitCommandError, ErrCodeGeneric, err.Error(), nil)
	}

	formatter.VerboseLog("Loaded %d model(s) from %s", len(reg.Models()), opts.Schema)
	return &schemaEnv{registry: reg, resolver: resolver}, nil
}

func (e *schemaEnv) root(modelName string) (*query.Path, error) {
	m, ok := e.registry.Model(modelName)
	if !ok {
		return nil, fmt.Errorf("model %q: %w", modelName, schema.ErrUnknownModel)
	}
	return query.NewEmptyPath(e.registry, m), nil
}
