package schema

import (
	"fmt"
	"slices"

	"github.com/roach88/relpath/internal/ir"
)

// DefaultLazyContext is the context lazy fields join when none is named.
const DefaultLazyContext = "default"

// FieldSpec declares a field.
type FieldSpec struct {
	Name         string
	Kind         Kind
	Key          bool
	Required     bool
	Lazy         bool
	LazyContexts []string
	Length       int
	Default      ir.Value
	Options      map[string]string
}

// Field is a named, typed attribute of a model mapped to a column.
// Fields are immutable once created.
type Field struct {
	name         string
	model        *Model
	kind         Kind
	key          bool
	required     bool
	lazy         bool
	lazyContexts []string
	length       int
	def          ir.Value
	options      map[string]string
}

// NewField creates a field owned by model.
func NewField(model *Model, spec FieldSpec) (*Field, error) {
	if model == nil {
		return nil, fmt.Errorf("field %q: %w", spec.Name, ErrNilModel)
	}
	name := NormalizeName(spec.Name)
	if name == "" {
		return nil, fmt.Errorf("field on %s: %w", model, ErrEmptyName)
	}
	kind, err := ParseKind(string(spec.Kind))
	if err != nil {
		return nil, fmt.Errorf("field %s.%s: %w", model, name, err)
	}

	f := &Field{
		name:     name,
		model:    model,
		kind:     kind,
		key:      spec.Key,
		required: spec.Required || spec.Key,
		lazy:     spec.Lazy,
		length:   spec.Length,
		def:      spec.Default,
		options:  make(map[string]string, len(spec.Options)),
	}
	if f.lazy {
		f.lazyContexts = slices.Clone(spec.LazyContexts)
		if len(f.lazyContexts) == 0 {
			f.lazyContexts = []string{DefaultLazyContext}
		}
	}
	for k, v := range spec.Options {
		f.options[k] = v
	}
	return f, nil
}

// Name returns the field name.
func (f *Field) Name() string { return f.name }

// Model returns the model that declares the field.
func (f *Field) Model() *Model { return f.model }

// Kind returns the storage type.
func (f *Field) Kind() Kind { return f.kind }

// IsKey reports whether the field is part of the model's key.
func (f *Field) IsKey() bool { return f.key }

// IsRequired reports whether the field must be present. Keys are always
// required.
func (f *Field) IsRequired() bool { return f.required }

// IsLazy reports whether the field is loaded on first access.
func (f *Field) IsLazy() bool { return f.lazy }

// LazyContexts returns the lazy-load contexts the field belongs to.
func (f *Field) LazyContexts() []string { return slices.Clone(f.lazyContexts) }

// Length returns the declared maximum length, or zero.
func (f *Field) Length() int { return f.length }

// Default returns the declared default value, or nil.
func (f *Field) Default() ir.Value { return f.def }

// Option returns a free-form option.
func (f *Field) Option(name string) (string, bool) {
	v, ok := f.options[name]
	return v, ok
}

// Attribute looks up a field attribute by name. It is the field half of
// dynamic member resolution: a terminal path forwards unknown members
// here.
func (f *Field) Attribute(name string) (any, bool) {
	switch NormalizeName(name) {
	case "name":
		return f.name, true
	case "model":
		return f.model, true
	case "kind":
		return f.kind, true
	case "key":
		return f.key, true
	case "required":
		return f.required, true
	case "lazy":
		return f.lazy, true
	case "length":
		return f.length, true
	case "default":
		return f.def, f.def != nil
	}
	v, ok := f.options[name]
	return v, ok
}

// Equal reports whether f and other describe the same field of the same
// model.
func (f *Field) Equal(other *Field) bool {
	if f == nil || other == nil {
		return f == other
	}
	return f == other || (f.name == other.name && f.model == other.model)
}

func (f *Field) String() string {
	return f.model.String() + "." + f.name
}
