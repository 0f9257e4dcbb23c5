package queryir

import (
	"github.com/roach88/relpath/internal/ir"
	"github.com/roach88/relpath/internal/query"
	"github.com/roach88/relpath/internal/schema"
)

// Condition is a filter as the caller states it, before compilation.
//
// A Condition is either implicit (built with Where: a subject and a value,
// operator chosen by Compile) or explicit (built with With: an operator
// and a value).
type Condition struct {
	Subject  query.Subject   // Path, FieldPath or *schema.Field
	Operator *query.Operator // nil for implicit conditions
	Value    ir.Value
}

// Where builds an implicit condition. Compile compares with eql, or with
// in when value is an array.
func Where(subject query.Subject, value ir.Value) Condition {
	return Condition{Subject: subject, Value: value}
}

// With builds an explicit condition from an operator such as
// path.Gt().
func With(op query.Operator, value ir.Value) Condition {
	return Condition{Subject: op.Subject(), Operator: &op, Value: value}
}

// Comparison is a compiled condition.
//
// Semantics:
//
//	<Path> <Slug> <Value>
//
// Example:
//
//	Comparison{
//	  Path:  Author.books.title,
//	  Link:  Author.books,
//	  Field: Book.title,
//	  Slug:  query.Like,
//	  Value: ir.String("%Dune%"),
//	}
//
// Null values are kept as ir.Null, never as a nil interface.
type Comparison struct {
	Path  *query.Path   // terminal path to the compared field
	Link  *query.Path   // Path.Canonical()
	Field *schema.Field // Path.Property()
	Slug  query.Slug
	Value ir.Value
}

// Order is a compiled sort directive.
//
// Ordering by a relational path sorts by the key fields of its target
// model; each key field becomes one Order with Expanded set.
type Order struct {
	Path      *query.Path // terminal path to the sort field
	Link      *query.Path
	Field     *schema.Field
	Direction query.Slug // query.Asc or query.Desc
	Expanded  bool
}

// Query is the compiled form of a set of conditions and an order.
//
// Conditions are conjunctive. Links holds the distinct non-empty canonical
// paths referenced by conditions and order entries, in first-seen order.
type Query struct {
	Model      *schema.Model
	Repository string
	Links      []*query.Path
	Conditions []Comparison
	Order      []Order
}

// ConditionsFor returns the comparisons whose canonical path equals link.
// Pass an empty path to get the comparisons on the query's own model.
func (q *Query) ConditionsFor(link *query.Path) []Comparison {
	var out []Comparison
	for _, c := range q.Conditions {
		if c.Link.Equal(link) {
			out = append(out, c)
		}
	}
	return out
}

// Object renders q as an ir.Object: the form fingerprints and golden
// files are computed from.
func (q *Query) Object() ir.Object {
	links := make(ir.Array, len(q.Links))
	for i, link := range q.Links {
		links[i] = ir.String(link.String())
	}

	conditions := make(ir.Array, len(q.Conditions))
	for i, c := range q.Conditions {
		value := c.Value
		if value == nil {
			value = ir.Null{}
		}
		conditions[i] = ir.Object{
			"path":  ir.String(c.Path.String()),
			"op":    ir.String(string(c.Slug)),
			"value": value,
		}
	}

	order := make(ir.Array, len(q.Order))
	for i, o := range q.Order {
		order[i] = ir.Object{
			"path":      ir.String(o.Path.String()),
			"direction": ir.String(string(o.Direction)),
		}
	}

	return ir.Object{
		"model":      ir.String(q.Model.Name()),
		"repository": ir.String(q.Repository),
		"links":      links,
		"conditions": conditions,
		"order":      order,
	}
}

// Fingerprint returns the content-addressed identity of q.
func (q *Query) Fingerprint() (string, error) {
	return ir.Fingerprint(ir.DomainQuery, q.Object())
}

// PathFingerprint returns the content-addressed identity of p, built from
// its root model, repository, relationship names and field.
func PathFingerprint(p *query.Path) (string, error) {
	rels := p.Relationships()
	names := make(ir.Array, len(rels))
	for i, rel := range rels {
		names[i] = ir.String(rel.Name())
	}
	obj := ir.Object{
		"root":          ir.String(p.Root().Name()),
		"repository":    ir.String(p.RepositoryName()),
		"relationships": names,
	}
	if f := p.Property(); f != nil {
		obj["property"] = ir.String(f.Name())
	}
	return ir.Fingerprint(ir.DomainPath, obj)
}
