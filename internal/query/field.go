package query

import "github.com/roach88/relpath/internal/schema"

// FieldPath is the FieldLike view of a terminal path. Field questions are
// answered by the field the path lands on; the path itself stays
// reachable through Path.
type FieldPath struct {
	path *Path
}

// Path returns the wrapped path.
func (f FieldPath) Path() *Path { return f.path }

// Property returns the wrapped path's field.
func (f FieldPath) Property() *schema.Field { return f.path.property }

func (f FieldPath) Name() string                      { return f.path.property.Name() }
func (f FieldPath) Model() *schema.Model              { return f.path.property.Model() }
func (f FieldPath) Kind() schema.Kind                 { return f.path.property.Kind() }
func (f FieldPath) IsKey() bool                       { return f.path.property.IsKey() }
func (f FieldPath) IsRequired() bool                  { return f.path.property.IsRequired() }
func (f FieldPath) IsLazy() bool                      { return f.path.property.IsLazy() }
func (f FieldPath) Attribute(name string) (any, bool) { return f.path.property.Attribute(name) }

// String renders the whole path, not just the field name.
func (f FieldPath) String() string { return f.path.String() }
