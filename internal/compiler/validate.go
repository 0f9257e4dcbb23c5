package compiler

import (
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/relpath/internal/ir"
	"github.com/roach88/relpath/internal/schema"
)

// Validation error codes (E120-E139)
const (
	ErrInvalidFieldKind      = "E120" // unknown or deprecated kind
	ErrFloatKindForbidden    = "E121" // float kinds not allowed
	ErrDuplicateMember       = "E122" // duplicate field/relationship name
	ErrUnknownTarget         = "E123" // relationship target not defined
	ErrUnknownParent         = "E124" // parent model not defined
	ErrInvalidCardinality    = "E125" // unknown cardinality
	ErrUnresolvableThrough   = "E126" // through chain does not resolve
	ErrMissingKey            = "E127" // model has no key field
	ErrInvalidModelName      = "E128" // empty or duplicate model name
	ErrParentCycle           = "E129" // model inherits from itself
	ErrInvalidDefault        = "E130" // default does not fit the field kind
	ErrInvalidLength         = "E131" // negative length
	ErrLengthOnNonString     = "E132" // length on a non-string kind
	ErrRelationshipNoTarget  = "E133" // neither target nor through
	ErrThroughTargetMismatch = "E134" // target disagrees with through chain
)

// ValidationError represents a schema validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Line    int    `json:"line,omitempty"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("[%s] line %d: %s: %s", e.Code, e.Line, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validate checks compiled model definitions as a whole: names, kinds,
// parents and relationship targets across every model.
// Returns all errors found (does not fail-fast).
func Validate(defs []schema.ModelDef) []ValidationError {
	v := newDefValidator(defs)

	for i, def := range defs {
		v.validateModel(i, def)
	}

	return v.errs
}

type defValidator struct {
	defs   []schema.ModelDef
	byName map[string]*schema.ModelDef
	errs   []ValidationError
}

func newDefValidator(defs []schema.ModelDef) *defValidator {
	v := &defValidator{
		defs:   defs,
		byName: make(map[string]*schema.ModelDef, len(defs)),
	}
	for i, def := range defs {
		name := schema.NormalizeName(def.Name)
		if name == "" {
			continue
		}
		if _, dup := v.byName[name]; dup {
			// Reported by validateModel.
			continue
		}
		v.byName[name] = &defs[i]
	}
	return v
}

func (v *defValidator) add(field, code, format string, args ...any) {
	v.errs = append(v.errs, ValidationError{
		Field:   field,
		Message: fmt.Sprintf(format, args...),
		Code:    code,
	})
}

func (v *defValidator) validateModel(i int, def schema.ModelDef) {
	prefix := def.Name
	name := schema.NormalizeName(def.Name)

	// E128: names
	if name == "" {
		v.add(fmt.Sprintf("model[%d].name", i), ErrInvalidModelName, "model name is required")
		return
	}
	if v.byName[name] != &v.defs[i] {
		v.add(prefix, ErrInvalidModelName, "duplicate model name: %q", def.Name)
		return
	}

	// E124/E129: parent
	if def.Parent != "" {
		if _, ok := v.byName[schema.NormalizeName(def.Parent)]; !ok {
			v.add(prefix+".parent", ErrUnknownParent, "parent model %q is not defined", def.Parent)
		} else if v.inheritsFromSelf(def) {
			v.add(prefix+".parent", ErrParentCycle, "model %s inherits from itself", def.Name)
		}
	}

	members := make(map[string]bool)
	memberKey := func(repo, member string) string {
		return repo + "\x00" + schema.NormalizeName(member)
	}

	for _, fd := range def.Fields {
		field := prefix + ".fields." + fd.Name
		key := memberKey(fd.Repository, fd.Name)
		if members[key] {
			v.add(field, ErrDuplicateMember, "duplicate member name: %q", fd.Name)
		}
		members[key] = true
		v.validateField(field, fd)
	}

	for _, rd := range def.Relationships {
		field := prefix + ".relationships." + rd.Name
		key := memberKey(rd.Repository, rd.Name)
		if members[key] {
			v.add(field, ErrDuplicateMember, "duplicate member name: %q", rd.Name)
		}
		members[key] = true
		v.validateRelationship(field, def, rd)
	}

	// E127: every model needs a key, possibly inherited.
	if !v.hasKey(def) {
		v.add(prefix+".fields", ErrMissingKey, "model %s has no key field", def.Name)
	}
}

func (v *defValidator) validateField(field string, fd schema.FieldDef) {
	if isFloatKind(fd.Kind) {
		v.add(field+".kind", ErrFloatKindForbidden, "float kind forbidden for field %q, use int instead", fd.Name)
		return
	}

	kind, err := schema.ParseKind(fd.Kind)
	if err != nil {
		var deprecated *schema.DeprecatedKindError
		if errors.As(err, &deprecated) {
			v.add(field+".kind", ErrInvalidFieldKind, "%v", err)
		} else {
			v.add(field+".kind", ErrInvalidFieldKind, "invalid kind %q for field %q", fd.Kind, fd.Name)
		}
		return
	}

	if fd.Length < 0 {
		v.add(field+".length", ErrInvalidLength, "length must not be negative, got %d", fd.Length)
	} else if fd.Length > 0 && kind != schema.KindString {
		v.add(field+".length", ErrLengthOnNonString, "length only applies to string fields, %q is %s", fd.Name, kind)
	}

	if fd.Default != nil && !defaultFits(kind, fd.Default) {
		v.add(field+".default", ErrInvalidDefault, "default %s does not fit kind %s", ir.Format(fd.Default), kind)
	}
}

func (v *defValidator) validateRelationship(field string, def schema.ModelDef, rd schema.RelationshipDef) {
	if _, err := schema.ParseCardinality(rd.Cardinality); err != nil {
		v.add(field+".cardinality", ErrInvalidCardinality, "%v", err)
	}

	if rd.Target == "" && len(rd.Through) == 0 {
		v.add(field, ErrRelationshipNoTarget, "relationship needs a target or a through chain")
		return
	}

	var target *schema.ModelDef
	if rd.Target != "" {
		t, ok := v.byName[schema.NormalizeName(rd.Target)]
		if !ok {
			v.add(field+".target", ErrUnknownTarget, "target model %q is not defined", rd.Target)
			return
		}
		target = t
	}

	if len(rd.Through) == 0 {
		return
	}
	reached, ok := v.resolveThrough(&def, rd.Through, 0)
	if !ok {
		v.add(field+".through", ErrUnresolvableThrough, "through chain %q does not resolve from %s", strings.Join(rd.Through, "."), def.Name)
		return
	}
	if target != nil && target != reached && !v.descendsFrom(target, reached) {
		v.add(field+".target", ErrThroughTargetMismatch, "target %s is not reached by through chain (ends at %s)", rd.Target, reached.Name)
	}
}

// resolveThrough follows relationship names from source and returns the
// model the chain ends at.
func (v *defValidator) resolveThrough(source *schema.ModelDef, through []string, depth int) (*schema.ModelDef, bool) {
	if depth > len(v.defs) {
		return nil, false
	}
	current := source
	for _, name := range through {
		rd, ok := v.findRelationship(current, name)
		if !ok {
			return nil, false
		}
		if rd.Target != "" {
			next, ok := v.byName[schema.NormalizeName(rd.Target)]
			if !ok {
				return nil, false
			}
			current = next
			continue
		}
		next, ok := v.resolveThrough(current, rd.Through, depth+1)
		if !ok {
			return nil, false
		}
		current = next
	}
	return current, true
}

// findRelationship looks name up on def and its ancestors.
func (v *defValidator) findRelationship(def *schema.ModelDef, name string) (schema.RelationshipDef, bool) {
	want := schema.NormalizeName(name)
	for _, m := range v.lineage(def) {
		for _, rd := range m.Relationships {
			if schema.NormalizeName(rd.Name) == want {
				return rd, true
			}
		}
	}
	return schema.RelationshipDef{}, false
}

func (v *defValidator) hasKey(def schema.ModelDef) bool {
	for _, m := range v.lineage(&def) {
		for _, fd := range m.Fields {
			if fd.Key {
				return true
			}
		}
	}
	return false
}

// lineage returns def followed by its known ancestors, stopping at the
// first repeat.
func (v *defValidator) lineage(def *schema.ModelDef) []*schema.ModelDef {
	chain := []*schema.ModelDef{def}
	seen := map[string]bool{schema.NormalizeName(def.Name): true}
	current := def
	for current.Parent != "" {
		name := schema.NormalizeName(current.Parent)
		parent, ok := v.byName[name]
		if !ok || seen[name] {
			break
		}
		seen[name] = true
		chain = append(chain, parent)
		current = parent
	}
	return chain
}

func (v *defValidator) inheritsFromSelf(def schema.ModelDef) bool {
	self := schema.NormalizeName(def.Name)
	seen := make(map[string]bool)
	current := def.Parent
	for current != "" {
		name := schema.NormalizeName(current)
		if name == self {
			return true
		}
		if seen[name] {
			return false
		}
		seen[name] = true
		parent, ok := v.byName[name]
		if !ok {
			return false
		}
		current = parent.Parent
	}
	return false
}

func (v *defValidator) descendsFrom(def, ancestor *schema.ModelDef) bool {
	for _, m := range v.lineage(def)[1:] {
		if m == ancestor {
			return true
		}
	}
	return false
}

// isFloatKind checks if a kind name represents a float type.
func isFloatKind(kind string) bool {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "float", "float32", "float64", "number", "double", "decimal":
		return true
	default:
		return false
	}
}

// defaultFits reports whether a default value can be stored in a field of
// the given kind. Null fits every kind.
func defaultFits(kind schema.Kind, v ir.Value) bool {
	switch v.(type) {
	case ir.Null:
		return true
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
