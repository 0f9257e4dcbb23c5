package query

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/relpath/internal/schema"
)

// Path starts at a root model, traverses zero or more relationships and
// optionally lands on a field of the last target model.
//
// Source, target and repository are computed once at construction. A
// Path is never modified after it is returned; every extension builds a
// new one.
type Path struct {
	provider      Provider
	root          *schema.Model
	relationships []*schema.Relationship
	property      *schema.Field

	source     *schema.Model
	target     *schema.Model
	repository string
	key        string
}

// FromRelationships builds a path over relationships, which must form an
// unbroken chain. Composite relationships are flattened into their
// links. When fieldName is not empty the path lands on that field of the
// final target model.
//
// An empty chain is rejected; root-model references start from
// NewEmptyPath.
func FromRelationships(provider Provider, relationships []*schema.Relationship, fieldName string) (*Path, error) {
	if provider == nil {
		return nil, &InvalidPathError{Reason: "nil schema provider"}
	}
	for i, rel := range relationships {
		if rel == nil {
			return nil, &InvalidPathError{Reason: fmt.Sprintf("nil relationship at position %d", i)}
		}
	}
	flat := schema.Flatten(relationships)
	if len(flat) == 0 {
		return nil, &InvalidPathError{Reason: "relationship chain is empty", Err: errMissingRelationships}
	}
	for i, rel := range flat {
		if i > 0 && !reaches(flat[i-1].TargetModel(), rel) {
			return nil, &InvalidPathError{
				Reason: fmt.Sprintf("%s does not start at %s", rel, flat[i-1].TargetModel()),
			}
		}
	}

	p := newPath(provider, flat[0].SourceModel(), flat, nil)
	if fieldName == "" {
		return p, nil
	}
	f, ok := p.targetProperties().Get(fieldName)
	if !ok {
		return nil, &UnknownFieldError{Field: fieldName, Model: p.target, Repository: p.repository}
	}
	return newPath(provider, p.root, flat, f), nil
}

// NewEmptyPath returns the path rooted directly on model, with no
// relationships. Its source and target are both model and its repository
// is model's own repository.
func NewEmptyPath(provider Provider, model *schema.Model) *Path {
	return newPath(provider, model, nil, nil)
}

func newPath(provider Provider, root *schema.Model, relationships []*schema.Relationship, property *schema.Field) *Path {
	p := &Path{
		provider:      provider,
		root:          root,
		relationships: relationships,
		property:      property,
		source:        root,
		target:        root,
		repository:    root.RepositoryName(),
	}
	if n := len(relationships); n > 0 {
		last := relationships[n-1]
		p.source = relationships[0].SourceModel()
		p.target = last.TargetModel()
		p.repository = last.RelativeTargetRepositoryName()
	}
	p.key = p.buildKey()
	return p
}

// reaches reports whether rel can be traversed from model: declared on
// it, or inherited from one of its ancestors.
func reaches(model *schema.Model, rel *schema.Relationship) bool {
	src := rel.SourceModel()
	return model == src || model.IsDescendantOf(src)
}

// Relationships returns the traversed relationships in order.
func (p *Path) Relationships() []*schema.Relationship {
	return slices.Clone(p.relationships)
}

// Property returns the field the path lands on, or nil for a relational
// path.
func (p *Path) Property() *schema.Field { return p.property }

// IsTerminal reports whether the path lands on a field.
func (p *Path) IsTerminal() bool { return p.property != nil }

// IsEmpty reports whether the path traverses no relationships.
func (p *Path) IsEmpty() bool { return len(p.relationships) == 0 }

// Root returns the model the path was started from.
func (p *Path) Root() *schema.Model { return p.root }

// SourceModel returns the model at the head of the chain.
func (p *Path) SourceModel() *schema.Model { return p.source }

// TargetModel returns the model at the tail of the chain.
func (p *Path) TargetModel() *schema.Model { return p.target }

// Model is an alias for TargetModel.
func (p *Path) Model() *schema.Model { return p.target }

// RepositoryName returns the repository the target model is resolved in.
func (p *Path) RepositoryName() string { return p.repository }

// Provider returns the schema the path resolves against.
func (p *Path) Provider() Provider { return p.provider }

// Len returns the number of traversed relationships.
func (p *Path) Len() int { return len(p.relationships) }

// Key identifies the path by the source model of its chain, relationship
// names and field name. An empty path is keyed by its root. Equal paths
// have equal keys.
func (p *Path) Key() string { return p.key }

func (p *Path) buildKey() string {
	var b strings.Builder
	b.WriteString(p.source.Name())
	for _, rel := range p.relationships {
		b.WriteByte('.')
		b.WriteString(rel.Name())
	}
	if p.property != nil {
		b.WriteByte('#')
		b.WriteString(p.property.Name())
	}
	return b.String()
}

// String renders the path as a dotted traversal, e.g.
// "Author.books.publisher.name".
func (p *Path) String() string {
	if p == nil {
		return "<nil path>"
	}
	var b strings.Builder
	b.WriteString(p.root.String())
	for _, rel := range p.relationships {
		b.WriteByte('.')
		b.WriteString(rel.Name())
	}
	if p.property != nil {
		b.WriteByte('.')
		b.WriteString(p.property.Name())
	}
	return b.String()
}

// Equal reports whether p and other traverse the same relationships and
// land on the same field. The root model only matters for empty paths,
// which have no chain to compare: empty paths over two different models
// are never equal.
func (p *Path) Equal(other *Path) bool {
	if p == nil || other == nil {
		return p == other
	}
	if p == other {
		return true
	}
	if !p.property.Equal(other.property) || p.IsEmpty() != other.IsEmpty() {
		return false
	}
	if p.IsEmpty() {
		return p.root == other.root
	}
	return slices.EqualFunc(p.relationships, other.relationships, (*schema.Relationship).Equal)
}

// Canonical returns the relational part of p: the same relationships
// without a field. A relational path is returned as is.
func (p *Path) Canonical() *Path {
	if p.property == nil {
		return p
	}
	if len(p.relationships) == 0 {
		return NewEmptyPath(p.provider, p.source)
	}
	return newPath(p.provider, p.root, p.relationships, nil)
}

// AsField returns the FieldLike view of a terminal path. ok is false for
// a relational path.
func (p *Path) AsField() (FieldPath, bool) {
	if p.property == nil {
		return FieldPath{}, false
	}
	return FieldPath{path: p}, true
}

func (p *Path) targetRelationships() *schema.RelationshipSet {
	return p.provider.Relationships(p.target, p.repository)
}

func (p *Path) targetProperties() *schema.PropertySet {
	return p.provider.Properties(p.target, p.repository)
}
