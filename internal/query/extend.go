package query

import (
	"fmt"

	"github.com/roach88/relpath/internal/schema"
)

// Extend returns a new path reaching one step further. subject may be a
// *schema.Relationship, a *schema.Field, a FieldLike view or a name.
//
// Extension always works on the relationship chain: extending a terminal
// path by a relationship drops its field, and extending it by a field
// replaces the field.
func (p *Path) Extend(subject any) (*Path, error) {
	switch s := subject.(type) {
	case *schema.Relationship:
		return p.ExtendRelationship(s)
	case *schema.Field:
		return p.ExtendField(s)
	case FieldPath:
		return p.ExtendField(s.Property())
	case string:
		return p.ExtendName(s)
	default:
		return nil, &InvalidPathError{Reason: fmt.Sprintf("cannot extend %s by %T", p, subject)}
	}
}

// ExtendRelationship appends rel to the chain. rel must be the
// relationship the target model knows by that name. No check is made for
// rel already appearing earlier in the chain, so self-referential
// traversals such as parent.parent are allowed.
func (p *Path) ExtendRelationship(rel *schema.Relationship) (*Path, error) {
	if rel == nil {
		return nil, &InvalidPathError{Reason: "nil relationship"}
	}
	rels := p.targetRelationships()
	if known, ok := rels.Get(rel.Name()); ok {
		if !known.Equal(rel) {
			return nil, &AmbiguousTraversalError{
				Relationship: rel,
				Model:        p.target,
				Candidates:   []*schema.Relationship{known},
			}
		}
		return p.appendRelationship(rel), nil
	}

	var candidates []*schema.Relationship
	for _, r := range rels.All() {
		if r.TargetModel() == rel.TargetModel() {
			candidates = append(candidates, r)
		}
	}
	if len(candidates) > 0 {
		return nil, &AmbiguousTraversalError{Relationship: rel, Model: p.target, Candidates: candidates}
	}
	return nil, &UnresolvedPathMemberError{Name: rel.Name(), Model: p.target}
}

func (p *Path) appendRelationship(rel *schema.Relationship) *Path {
	links := schema.Flatten([]*schema.Relationship{rel})
	chain := make([]*schema.Relationship, 0, len(p.relationships)+len(links))
	chain = append(chain, p.relationships...)
	chain = append(chain, links...)
	return newPath(p.provider, p.root, chain, nil)
}

// ExtendField returns the terminal path landing on f. f must be visible
// on the target model, which includes fields declared on subclasses of
// its base model.
func (p *Path) ExtendField(f *schema.Field) (*Path, error) {
	if f == nil {
		return nil, &InvalidPathError{Reason: "nil field"}
	}
	known, ok := p.targetProperties().Get(f.Name())
	if !ok || !known.Equal(f) {
		return nil, &UnknownFieldError{Field: f.Name(), Model: p.target, Repository: p.repository}
	}
	return newPath(p.provider, p.root, p.relationships, known), nil
}

// ExtendName resolves name against the target model, as a relationship
// first and as a field second.
func (p *Path) ExtendName(name string) (*Path, error) {
	name = schema.NormalizeName(name)
	if name == "" {
		return nil, &InvalidPathError{Reason: fmt.Sprintf("empty member name after %s", p)}
	}
	if rel, ok := p.targetRelationships().Get(name); ok {
		return p.appendRelationship(rel), nil
	}
	if f, ok := p.targetProperties().Get(name); ok {
		return newPath(p.provider, p.root, p.relationships, f), nil
	}
	return nil, &UnresolvedPathMemberError{Name: name, Model: p.target}
}

// Member is the result of resolving a name on a path. Exactly one of
// Path and Attribute is meaningful: Path when the name extended a
// relational path, Attribute when a terminal path forwarded the name to
// its field.
type Member struct {
	Path      *Path
	Attribute any
}

// IsPath reports whether the member is a longer path.
func (m Member) IsPath() bool { return m.Path != nil }

// Resolve looks name up the way a dotted traversal does. A terminal path
// forwards the name to its field; a relational path is extended by it.
func (p *Path) Resolve(name string) (Member, error) {
	if p.property != nil {
		if v, ok := p.property.Attribute(name); ok {
			return Member{Attribute: v}, nil
		}
		return Member{}, &UnresolvedPathMemberError{Name: name, Model: p.target}
	}
	next, err := p.ExtendName(name)
	if err != nil {
		return Member{}, err
	}
	return Member{Path: next}, nil
}
