package query

import (
	"errors"
	"fmt"

	"github.com/roach88/relpath/internal/schema"
)

// Slug names an operator kind.
type Slug string

// Comparison slugs.
const (
	Eql    Slug = "eql"
	Ne     Slug = "ne"
	Gt     Slug = "gt"
	Gte    Slug = "gte"
	Lt     Slug = "lt"
	Lte    Slug = "lte"
	In     Slug = "in"
	Regexp Slug = "regexp"
	Like   Slug = "like"
	Not    Slug = "not"
)

// Ordering slugs.
const (
	Asc  Slug = "asc"
	Desc Slug = "desc"
)

// ErrUnknownOperator is returned by ParseSlug and Path.Op for a slug
// outside the vocabulary.
var ErrUnknownOperator = errors.New("unknown operator")

var slugs = []Slug{Eql, Ne, Gt, Gte, Lt, Lte, In, Regexp, Like, Not, Asc, Desc}

// Slugs returns the full operator vocabulary.
func Slugs() []Slug {
	out := make([]Slug, len(slugs))
	copy(out, slugs)
	return out
}

// ParseSlug validates s against the vocabulary.
func ParseSlug(s string) (Slug, error) {
	slug := Slug(schema.NormalizeName(s))
	for _, known := range slugs {
		if slug == known {
			return slug, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownOperator, s)
}

// IsOrder reports whether s is asc or desc.
func (s Slug) IsOrder() bool { return s == Asc || s == Desc }

// IsImplicit reports whether s may only be chosen by the query compiler,
// never requested explicitly.
func (s Slug) IsImplicit() bool { return s == Eql || s == In }

// IsOrdered reports whether s compares by ordering rather than identity.
func (s Slug) IsOrdered() bool {
	switch s {
	case Gt, Gte, Lt, Lte:
		return true
	default:
		return false
	}
}

// Operator pairs a subject with a slug. It is built by the path's
// operator methods or by the query compiler, and never fails to build:
// whether the pair makes sense for a given value is checked when the
// query is compiled.
type Operator struct {
	subject Subject
	slug    Slug
}

// NewOperator builds an operator. Any slug is accepted, including the
// implicit ones; only the Path API refuses those.
func NewOperator(subject Subject, slug Slug) Operator {
	return Operator{subject: subject, slug: slug}
}

// Subject returns the operator's subject.
func (o Operator) Subject() Subject { return o.subject }

// Slug returns the operator's kind.
func (o Operator) Slug() Slug { return o.slug }

// Equal reports whether o and other have the same slug and equal
// subjects.
func (o Operator) Equal(other Operator) bool {
	return o.slug == other.slug && SubjectsEqual(o.subject, other.subject)
}

func (o Operator) String() string {
	if o.subject == nil {
		return "<nil>." + string(o.slug)
	}
	return o.subject.String() + "." + string(o.slug)
}

// SubjectsEqual compares two operator subjects structurally. A FieldPath
// compares as the path it wraps.
func SubjectsEqual(a, b Subject) bool {
	if fp, ok := a.(FieldPath); ok {
		a = fp.path
	}
	if fp, ok := b.(FieldPath); ok {
		b = fp.path
	}
	switch av := a.(type) {
	case *Path:
		bv, ok := b.(*Path)
		return ok && av.Equal(bv)
	case *schema.Field:
		bv, ok := b.(*schema.Field)
		return ok && av.Equal(bv)
	case nil:
		return b == nil
	default:
		return a == b
	}
}

// Eql always fails: equality is chosen implicitly from the compared
// value's shape.
func (p *Path) Eql() (Operator, error) {
	return Operator{}, &DeprecatedOperatorError{Slug: Eql}
}

// In always fails: inclusion is chosen implicitly from the compared
// value's shape.
func (p *Path) In() (Operator, error) {
	return Operator{}, &DeprecatedOperatorError{Slug: In}
}

func (p *Path) Ne() Operator     { return NewOperator(p, Ne) }
func (p *Path) Gt() Operator     { return NewOperator(p, Gt) }
func (p *Path) Gte() Operator    { return NewOperator(p, Gte) }
func (p *Path) Lt() Operator     { return NewOperator(p, Lt) }
func (p *Path) Lte() Operator    { return NewOperator(p, Lte) }
func (p *Path) Regexp() Operator { return NewOperator(p, Regexp) }
func (p *Path) Like() Operator   { return NewOperator(p, Like) }
func (p *Path) Not() Operator    { return NewOperator(p, Not) }

// Asc orders by p ascending.
func (p *Path) Asc() Operator { return NewOperator(p, Asc) }

// Desc orders by p descending.
func (p *Path) Desc() Operator { return NewOperator(p, Desc) }

// Op builds the operator for slug. The implicit slugs fail exactly like
// Eql and In.
func (p *Path) Op(slug Slug) (Operator, error) {
	if slug.IsImplicit() {
		return Operator{}, &DeprecatedOperatorError{Slug: slug}
	}
	for _, known := range slugs {
		if slug == known {
			return NewOperator(p, slug), nil
		}
	}
	return Operator{}, fmt.Errorf("%w: %q", ErrUnknownOperator, string(slug))
}
