package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/relpath/internal/ir"
	"github.com/roach88/relpath/internal/query"
	"github.com/roach88/relpath/internal/queryir"
)

// PlanOptions holds flags for the plan command.
type PlanOptions struct {
	*RootOptions
	Order  []string // order entries: path[.asc|.desc]
	Eval   string   // JSON file of records to filter
	Strict bool     // fail on portability warnings
}

// PlanResult is a compiled query with its analysis.
type PlanResult struct {
	Query       ir.Object        `json:"query"`
	Fingerprint string           `json:"fingerprint"`
	Portable    bool             `json:"portable"`
	Warnings    []string         `json:"warnings"`
	Evaluated   int              `json:"evaluated,omitempty"`
	Matches     []queryir.Record `json:"matches,omitempty"`
}

// NewPlanCommand creates the plan command.
func NewPlanCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PlanOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "plan <model> [path[.op]=value]...",
		Short: "Compile conditions on a model into a query plan",
		Long: `Compile conditions and an order on a model into a query plan.

Each condition is path=value or path.op=value, where op is one of
ne, gt, gte, lt, lte, like, regexp or not. Without an op the comparison
is eql for scalar values and in for JSON arrays; eql and in cannot be
named explicitly. Values are JSON literals; anything else is a string.

The plan lists the relationship paths the query joins through, the
compiled comparisons, the order and a content fingerprint. Portability
warnings flag comparisons whose meaning depends on the storage adapter.

With --eval, the plan is also run against a JSON array of records.

Examples:
  relpath plan --schema ./models Author name="Frank Herbert"
  relpath plan --schema ./models Author books.pages.gt=300 --order books.title
  relpath plan --schema ./models Author 'books.title=["Dune","Emma"]' --order name.desc
  relpath plan --schema ./models Author books.title.like=%Dune% --eval authors.json`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlan(opts, args[0], args[1:], cmd)
		},
	}

	cmd.Flags().StringArrayVar(&opts.Order, "order", nil, "order by path, optionally suffixed .asc or .desc (repeatable)")
	cmd.Flags().StringVar(&opts.Eval, "eval", "", "JSON file with an array of records to filter")
	cmd.Flags().BoolVar(&opts.Strict, "strict", false, "exit with failure when the plan is not portable")

	return cmd
}

func runPlan(opts *PlanOptions, modelName string, conditionArgs []string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	env, err := openSchema(opts.RootOptions, formatter)
	if err != nil {
		return err
	}

	root, err := env.root(modelName)
	if err != nil {
		return formatter.FailWith(ExitFailure, err)
	}

	conditions := make([]queryir.Condition, 0, len(conditionArgs))
	for _, arg := range conditionArgs {
		cond, err := env.condition(root, arg)
		if err != nil {
			return formatter.FailWith(ExitFailure, err)
		}
		conditions = append(conditions, cond)
	}

	order := make([]query.Operator, 0, len(opts.Order))
	for _, arg := range opts.Order {
		op, err := env.orderBy(root, arg)
		if err != nil {
			return formatter.FailWith(ExitFailure, err)
		}
		order = append(order, op)
	}

	q, err := queryir.Compile(root, conditions, order)
	if err != nil {
		return formatter.FailWith(ExitFailure, err)
	}

	fingerprint, err := q.Fingerprint()
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, err.Error(), nil)
	}

	validation := queryir.Validate(q)
	result := &PlanResult{
		Query:       q.Object(),
		Fingerprint: fingerprint,
		Portable:    validation.IsPortable,
		Warnings:    validation.Warnings,
	}
	for _, w := range validation.Warnings {
		formatter.VerboseLog("Portability warning: %s", w)
	}

	if opts.Strict && !validation.IsPortable {
		return formatter.Fail(ExitFailure, ErrCodeNotPortable,
			fmt.Sprintf("plan is not portable: %d warning(s)", len(validation.Warnings)), validation.Warnings)
	}

	if opts.Eval != "" {
		records, err := readRecords(opts.Eval)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeLoadFailed, err.Error(), nil)
		}
		matches, err := queryir.Filter(q, records)
		if err != nil {
			return formatter.Fail(ExitFailure, ErrCodeInvalidQuery, err.Error(), nil)
		}
		result.Evaluated = len(records)
		result.Matches = matches
	}

	if formatter.Format == "json" {
		return formatter.Success(result)
	}
	return outputPlanText(formatter, q, result, opts.Eval != "")
}

// argError is a malformed command-line condition or order entry.
type argError struct {
	arg    string
	reason string
}

func (e *argError) Error() string {
	return fmt.Sprintf("%q: %s", e.arg, e.reason)
}

// condition parses path=value or path.op=value.
func (e *schemaEnv) condition(root *query.Path, arg string) (queryir.Condition, error) {
	lhs, literal, ok := strings.Cut(arg, "=")
	if !ok || strings.TrimSpace(lhs) == "" {
		return queryir.Condition{}, &argError{arg: arg, reason: "expected path=value or path.op=value"}
	}

	value, err := ir.Parse(literal)
	if err != nil {
		return queryir.Condition{}, &argError{arg: arg, reason: err.Error()}
	}

	p, slug, err := e.subject(root, lhs)
	if err != nil {
		return queryir.Condition{}, err
	}
	if slug == "" {
		return queryir.Where(p, value), nil
	}

	op, err := p.Op(slug)
	if err != nil {
		return queryir.Condition{}, err
	}
	return queryir.With(op, value), nil
}

// orderBy parses path, path.asc or path.desc.
func (e *schemaEnv) orderBy(root *query.Path, arg string) (query.Operator, error) {
	p, slug, err := e.subject(root, arg)
	if err != nil {
		return query.Operator{}, err
	}
	switch slug {
	case "", query.Asc:
		return p.Asc(), nil
	case query.Desc:
		return p.Desc(), nil
	default:
		return query.Operator{}, &argError{arg: arg, reason: "order direction must be asc or desc"}
	}
}

// subject resolves lhs as a path. When that fails and the last segment is
// an operator slug, the slug is split off and the rest resolved instead,
// so a field literally named like an operator still wins.
func (e *schemaEnv) subject(root *query.Path, lhs string) (*query.Path, query.Slug, error) {
	p, err := e.resolver.Walk(root, lhs)
	if err == nil {
		return p, "", nil
	}

	idx := strings.LastIndex(lhs, ".")
	if idx < 0 {
		return nil, "", err
	}
	slug, slugErr := query.ParseSlug(lhs[idx+1:])
	if slugErr != nil {
		return nil, "", err
	}

	p, err = e.resolver.Walk(root, lhs[:idx])
	if err != nil {
		return nil, "", err
	}
	return p, slug, nil
}

// readRecords decodes a JSON array of records. Numbers stay json.Number
// so integers survive exactly and floats are rejected on comparison.
func readRecords(path string) ([]queryir.Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading records: %w", err)
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var records []queryir.Record
	if err := dec.Decode(&records); err != nil {
		return nil, fmt.Errorf("decoding records from %s: %w", path, err)
	}
	return records, nil
}

func outputPlanText(formatter *OutputFormatter, q *queryir.Query, result *PlanResult, evaluated bool) error {
	w := formatter.Writer

	fmt.Fprintf(w, "Plan for %s (repository %s)\n\n", q.Model.Name(), q.Repository)

	if len(q.Links) > 0 {
		fmt.Fprintln(w, "Links:")
		for _, link := range q.Links {
			fmt.Fprintf(w, "  %s\n", link)
		}
		fmt.Fprintln(w)
	}

	if len(q.Conditions) > 0 {
		fmt.Fprintln(w, "Conditions:")
		for _, c := range q.Conditions {
			fmt.Fprintf(w, "  %s %s %s\n", c.Path, c.Slug, ir.Format(c.Value))
		}
		fmt.Fprintln(w)
	}

	if len(q.Order) > 0 {
		fmt.Fprintln(w, "Order:")
		for _, o := range q.Order {
			fmt.Fprintf(w, "  %s %s\n", o.Path, o.Direction)
		}
		fmt.Fprintln(w)
	}

	if len(result.Warnings) > 0 {
		fmt.Fprintln(w, "Warnings:")
		for _, warning := range result.Warnings {
			fmt.Fprintf(w, "  %s\n", warning)
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "Fingerprint: %s\n", result.Fingerprint)

	if evaluated {
		fmt.Fprintf(w, "\nMatched %d of %d record(s)\n", len(result.Matches), result.Evaluated)
		for _, rec := range result.Matches {
			data, err := json.Marshal(rec)
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "  %s\n", data)
		}
	}

	return nil
}
