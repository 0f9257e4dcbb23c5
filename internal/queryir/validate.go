package queryir

import (
	"fmt"

	"github.com/dlclark/regexp2"

	"github.com/roach88/relpath/internal/ir"
	"github.com/roach88/relpath/internal/query"
	"github.com/roach88/relpath/internal/schema"
)

// ValidationResult contains the portability analysis of a compiled query.
//
// A query is portable when every storage adapter can run it with the same
// results. Non-portable queries still compile and still evaluate in
// memory; the warnings tell the caller where adapters may disagree.
type ValidationResult struct {
	// IsPortable is true when Warnings is empty.
	IsPortable bool

	// Warnings lists the non-portable parts of the query, in condition
	// order followed by order entries.
	Warnings []string
}

// Validate checks a compiled query for comparisons whose meaning depends
// on the storage adapter.
//
// Rules:
//  1. Nulls only compare with eql, ne or not
//  2. Ordered comparisons (gt, gte, lt, lte) need an ordered field kind
//     and a scalar value
//  3. like and regexp need a textual field and a string pattern; regexp
//     patterns must compile
//  4. in with an empty list matches nothing
//  5. Values must match the field kind
//  6. Ordering by a relationship sorts by its target's key
//
// Validate is a pure function with no side effects.
func Validate(q *Query) ValidationResult {
	v := &validator{
		warnings: []string{},
	}
	if q == nil {
		v.addWarning("nil query - nothing to validate")
	} else {
		for _, c := range q.Conditions {
			v.validateComparison(c)
		}
		for _, o := range q.Order {
			v.validateOrder(o)
		}
	}

	return ValidationResult{
		IsPortable: len(v.warnings) == 0,
		Warnings:   v.warnings,
	}
}

// validator accumulates warnings during traversal.
type validator struct {
	warnings []string
}

// addWarning appends a warning message.
func (v *validator) addWarning(format string, args ...any) {
	v.warnings = append(v.warnings, fmt.Sprintf(format, args...))
}

func (v *validator) validateComparison(c Comparison) {
	kind := c.Field.Kind()

	// Rule 1
	if ir.IsNull(c.Value) {
		switch c.Slug {
		case query.Eql, query.Ne, query.Not:
		default:
			v.addWarning("Field '%s' compared to NULL with '%s' - only eql, ne and not have a defined meaning", c.Path, c.Slug)
		}
		return
	}

	switch c.Slug {
	case query.Gt, query.Gte, query.Lt, query.Lte:
		// Rule 2
		if !kind.IsOrdered() {
			v.addWarning("Field '%s' of kind %s used with ordered comparison '%s'", c.Path, kind, c.Slug)
		}
		if ir.IsEnumerable(c.Value) {
			v.addWarning("Field '%s' compared with '%s' against a list", c.Path, c.Slug)
			return
		}
	case query.Like, query.Regexp:
		// Rule 3
		if !kind.IsTextual() {
			v.addWarning("Field '%s' of kind %s used with pattern match '%s'", c.Path, kind, c.Slug)
		}
		pattern, ok := c.Value.(ir.String)
		if !ok {
			v.addWarning("Field '%s' matched with '%s' against non-string pattern %s", c.Path, c.Slug, ir.Format(c.Value))
			return
		}
		if c.Slug == query.Regexp {
			if _, err := regexp2.Compile(string(pattern), regexp2.None); err != nil {
				v.addWarning("Field '%s' matched against invalid regexp %q: %v", c.Path, string(pattern), err)
			}
		}
		return
	case query.In:
		// Rule 4
		if list, ok := c.Value.(ir.Array); ok && len(list) == 0 {
			v.addWarning("Field '%s' compared with 'in' against an empty list - matches nothing", c.Path)
			return
		}
	}

	// Rule 5
	v.validateKind(c.Path, kind, c.Value)
}

func (v *validator) validateKind(p *query.Path, kind schema.Kind, value ir.Value) {
	if list, ok := value.(ir.Array); ok {
		for _, item := range list {
			v.validateKind(p, kind, item)
		}
		return
	}
	if ir.IsNull(value) || kindAccepts(kind, value) {
		return
	}
	v.addWarning("Field '%s' of kind %s compared to %s", p, kind, ir.Format(value))
}

// kindAccepts reports whether value is a plausible literal for kind.
// Times are compared as strings.
func kindAccepts(kind schema.Kind, value ir.Value) bool {
	switch value.(type) {
	case ir.String:
		return kind.IsTextual()
	case ir.Int:
		return kind.IsNumeric()
	case ir.Bool:
		return kind == schema.KindBool
	default:
		return false
	}
}

func (v *validator) validateOrder(o Order) {
	// Rule 6
	if o.Expanded {
		v.addWarning("Ordering by relationship '%s' sorts by key field '%s'", o.Link, o.Field.Name())
	}
	if o.Field.IsLazy() {
		v.addWarning("Ordering by lazy field '%s' loads it for every row", o.Path)
	}
}
