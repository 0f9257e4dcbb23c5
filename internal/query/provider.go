package query

import "github.com/roach88/relpath/internal/schema"

// Provider supplies the schema a path resolves against. *schema.Registry
// implements it; tests substitute small fixed schemas.
type Provider interface {
	// Relationships returns the relationships visible on m in repository.
	Relationships(m *schema.Model, repository string) *schema.RelationshipSet
	// Properties returns the fields visible on m in repository.
	Properties(m *schema.Model, repository string) *schema.PropertySet
}

// Subject is anything an Operator can be built over: a *Path, a
// FieldPath or a bare *schema.Field.
type Subject interface {
	Model() *schema.Model
	String() string
}

// FieldLike is the capability set shared by a bare field and a terminal
// path. Query compilation asks these questions without caring which of
// the two it holds.
type FieldLike interface {
	Subject
	Name() string
	Kind() schema.Kind
	IsKey() bool
	IsRequired() bool
	IsLazy() bool
	Attribute(name string) (any, bool)
}

var (
	_ Subject   = (*Path)(nil)
	_ FieldLike = FieldPath{}
	_ FieldLike = (*schema.Field)(nil)
)

// AsField returns the FieldLike view of s: the field itself, or the
// field a terminal path lands on. ok is false for relational paths.
func AsField(s Subject) (FieldLike, bool) {
	switch v := s.(type) {
	case *Path:
		return v.AsField()
	case FieldPath:
		return v, v.path != nil
	case *schema.Field:
		return v, v != nil
	case FieldLike:
		return v, true
	default:
		return nil, false
	}
}

// IsKind reports whether s is a field, or a path landing on a field, of
// the given kind.
func IsKind(s Subject, kind schema.Kind) bool {
	f, ok := AsField(s)
	return ok && f.Kind() == kind
}

// Field returns the underlying field descriptor of s, if it has one.
func Field(s Subject) (*schema.Field, bool) {
	switch v := s.(type) {
	case *Path:
		return v.property, v.property != nil
	case FieldPath:
		return v.Property(), v.path != nil
	case *schema.Field:
		return v, v != nil
	default:
		return nil, false
	}
}
