package compiler

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/relpath/internal/ir"
	"github.com/roach88/relpath/internal/schema"
)

// CompileModel parses a CUE value into a ModelDef.
// Uses CUE SDK's Go API directly (not CLI subprocess).
//
// The CUE value should be the model struct itself, e.g.:
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`model: Author: { fields: { name: string } }`)
//	def, err := CompileModel(v.LookupPath(cue.ParsePath("model.Author")))
//
// Fields are either a kind (`name: string` or `name: "text"`) or a struct
// with a kind and options. Relationships are either a target model name
// or a struct.
func CompileModel(v cue.Value) (*schema.ModelDef, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	def := &schema.ModelDef{}

	// Model name from struct label (the path selector)
	labels := v.Path().Selectors()
	if len(labels) > 0 {
		def.Name = labels[len(labels)-1].String()
	}

	var err error
	if def.Repository, err = optionalString(v, "repository"); err != nil {
		return nil, err
	}
	if def.Storage, err = optionalString(v, "storage"); err != nil {
		return nil, err
	}
	if def.Parent, err = optionalString(v, "parent"); err != nil {
		return nil, err
	}

	if def.Fields, err = parseFields(v); err != nil {
		return nil, err
	}
	if def.Relationships, err = parseRelationships(v); err != nil {
		return nil, err
	}

	return def, nil
}

// parseFields extracts field definitions in declaration order.
func parseFields(v cue.Value) ([]schema.FieldDef, error) {
	var fields []schema.FieldDef

	fieldsVal := v.LookupPath(cue.ParsePath("fields"))
	if !fieldsVal.Exists() {
		return fields, nil
	}

	iter, err := fieldsVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	for iter.Next() {
		field, err := parseField(iter.Label(), iter.Value())
		if err != nil {
			return nil, err
		}
		fields = append(fields, field)
	}

	return fields, nil
}

func parseField(name string, v cue.Value) (schema.FieldDef, error) {
	field := schema.FieldDef{Name: name}

	if v.IncompleteKind() != cue.StructKind {
		kind, err := extractKindName(v)
		if err != nil {
			return field, err
		}
		field.Kind = kind
		return field, nil
	}

	kindVal := v.LookupPath(cue.ParsePath("kind"))
	if !kindVal.Exists() {
		return field, &CompileError{
			Field:   "fields." + name + ".kind",
			Message: "field kind is required",
			Pos:     v.Pos(),
		}
	}
	kind, err := extractKindName(kindVal)
	if err != nil {
		return field, err
	}
	field.Kind = kind

	if field.Key, err = optionalBool(v, "key"); err != nil {
		return field, err
	}
	if field.Required, err = optionalBool(v, "required"); err != nil {
		return field, err
	}
	if field.Lazy, err = optionalBool(v, "lazy"); err != nil {
		return field, err
	}
	if field.LazyContexts, err = optionalStrings(v, "lazy_contexts"); err != nil {
		return field, err
	}
	if field.Repository, err = optionalString(v, "repository"); err != nil {
		return field, err
	}

	lengthVal := v.LookupPath(cue.ParsePath("length"))
	if lengthVal.Exists() {
		n, err := lengthVal.Int64()
		if err != nil {
			return field, formatCUEError(err)
		}
		field.Length = int(n)
	}

	defaultVal := v.LookupPath(cue.ParsePath("default"))
	if defaultVal.Exists() {
		if field.Default, err = extractValue(defaultVal); err != nil {
			return field, err
		}
	}

	optionsVal := v.LookupPath(cue.ParsePath("options"))
	if optionsVal.Exists() {
		iter, err := optionsVal.Fields()
		if err != nil {
			return field, formatCUEError(err)
		}
		field.Options = make(map[string]string)
		for iter.Next() {
			s, err := iter.Value().String()
			if err != nil {
				return field, formatCUEError(err)
			}
			field.Options[iter.Label()] = s
		}
	}

	return field, nil
}

// parseRelationships extracts relationship definitions in declaration
// order.
func parseRelationships(v cue.Value) ([]schema.RelationshipDef, error) {
	var rels []schema.RelationshipDef

	relsVal := v.LookupPath(cue.ParsePath("relationships"))
	if !relsVal.Exists() {
		return rels, nil
	}

	iter, err := relsVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	for iter.Next() {
		name := iter.Label()
		relVal := iter.Value()
		rel := schema.RelationshipDef{Name: name}

		// Shorthand: books: "Book"
		if target, err := relVal.String(); err == nil {
			rel.Target = target
			rels = append(rels, rel)
			continue
		}
		if relVal.IncompleteKind() != cue.StructKind {
			return nil, &CompileError{
				Field:   "relationships." + name,
				Message: "must be a target model name or a struct",
				Pos:     relVal.Pos(),
			}
		}

		if rel.Target, err = optionalString(relVal, "target"); err != nil {
			return nil, err
		}
		if rel.Cardinality, err = optionalString(relVal, "cardinality"); err != nil {
			return nil, err
		}
		if rel.TargetRepository, err = optionalString(relVal, "target_repository"); err != nil {
			return nil, err
		}
		if rel.Repository, err = optionalString(relVal, "repository"); err != nil {
			return nil, err
		}
		if rel.Through, err = optionalStrings(relVal, "through"); err != nil {
			return nil, err
		}
		if rel.Target == "" && len(rel.Through) == 0 {
			return nil, &CompileError{
				Field:   "relationships." + name,
				Message: "relationship needs a target or a through chain",
				Pos:     relVal.Pos(),
			}
		}

		rels = append(rels, rel)
	}

	return rels, nil
}

// extractKindName converts a CUE kind (or a kind name string) to a field
// kind name. Floats are forbidden.
func extractKindName(v cue.Value) (string, error) {
	if v.IsConcrete() && v.Kind() == cue.StringKind {
		return v.String()
	}
	switch v.IncompleteKind() {
	case cue.StringKind:
		return string(schema.KindString), nil
	case cue.IntKind:
		return string(schema.KindInt), nil
	case cue.BoolKind:
		return string(schema.KindBool), nil
	case cue.FloatKind, cue.NumberKind:
		return "", &CompileError{
			Field:   "kind",
			Message: "float kinds are forbidden - use int instead",
			Pos:     v.Pos(),
		}
	default:
		return "", &CompileError{
			Field:   "kind",
			Message: fmt.Sprintf("unsupported field kind: %v", v.IncompleteKind()),
			Pos:     v.Pos(),
		}
	}
}

// extractValue converts a concrete CUE value into an ir.Value.
func extractValue(v cue.Value) (ir.Value, error) {
	switch v.Kind() {
	case cue.NullKind:
		return ir.Null{}, nil
	case cue.StringKind:
		s, err := v.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return ir.String(s), nil
	case cue.IntKind:
		n, err := v.Int64()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return ir.Int(n), nil
	case cue.BoolKind:
		b, err := v.Bool()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return ir.Bool(b), nil
	case cue.FloatKind:
		return nil, &CompileError{
			Field:   "default",
			Message: "float values are forbidden - use int instead",
			Pos:     v.Pos(),
		}
	default:
		return nil, &CompileError{
			Field:   "default",
			Message: fmt.Sprintf("default must be a concrete scalar, got %v", v.IncompleteKind()),
			Pos:     v.Pos(),
		}
	}
}

func optionalString(v cue.Value, name string) (string, error) {
	val := v.LookupPath(cue.ParsePath(name))
	if !val.Exists() {
		return "", nil
	}
	s, err := val.String()
	if err != nil {
		return "", formatCUEError(err)
	}
	return s, nil
}

func optionalBool(v cue.Value, name string) (bool, error) {
	val := v.LookupPath(cue.ParsePath(name))
	if !val.Exists() {
		return false, nil
	}
	b, err := val.Bool()
	if err != nil {
		return false, formatCUEError(err)
	}
	return b, nil
}

func optionalStrings(v cue.Value, name string) ([]string, error) {
	val := v.LookupPath(cue.ParsePath(name))
	if !val.Exists() {
		return nil, nil
	}
	iter, err := val.List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	var out []string
	for iter.Next() {
		s, err := iter.Value().String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		out = append(out, s)
	}
	return out, nil
}

// CompileError represents a compilation error with source position.
// CUE errors carry Pos; YAML errors carry File, Line and Column.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
	File    string
	Line    int
	Column  int
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.File, e.Line, e.Column, e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Position renders the error location as file:line:column, or "" when
// unknown.
func (e *CompileError) Position() string {
	switch {
	case e.Pos.IsValid():
		return fmt.Sprintf("%s:%d:%d", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column())
	case e.Line > 0:
		return fmt.Sprintf("%s:%d:%d", e.File, e.Line, e.Column)
	default:
		return ""
	}
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	// CUE errors may contain multiple errors
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	// Return first error with position info
	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
