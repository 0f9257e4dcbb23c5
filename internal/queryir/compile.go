package queryir

import (
	"errors"
	"fmt"

	"github.com/roach88/relpath/internal/ir"
	"github.com/roach88/relpath/internal/query"
	"github.com/roach88/relpath/internal/schema"
)

// ErrInvalidQuery is wrapped by every CompileError.
var ErrInvalidQuery = errors.New("invalid query")

// CompileError reports a condition or order entry that cannot be
// compiled. Index is the position of the offending entry in its list.
type CompileError struct {
	Clause  string // "condition" or "order"
	Index   int
	Subject string
	Err     error
}

func (e *CompileError) Error() string {
	if e.Subject == "" {
		return fmt.Sprintf("%s %d: %v", e.Clause, e.Index, e.Err)
	}
	return fmt.Sprintf("%s %d (%s): %v", e.Clause, e.Index, e.Subject, e.Err)
}

func (e *CompileError) Is(target error) bool { return target == ErrInvalidQuery }

func (e *CompileError) Unwrap() error { return e.Err }

// Compile compiles conditions and order against root, the empty path of
// the model being queried (a terminal empty path is accepted and
// canonicalized). Every subject must be a path started at that model or
// a field visible on it.
//
// Compile fails on the first condition or order entry it cannot compile.
func Compile(root *query.Path, conditions []Condition, order []query.Operator) (*Query, error) {
	if root == nil {
		return nil, &CompileError{Clause: "root", Err: query.ErrInvalidPath}
	}
	root = root.Canonical()
	if !root.IsEmpty() {
		return nil, &CompileError{Clause: "root", Subject: root.String(), Err: errors.New("query root must be a model, not a traversal")}
	}

	c := &compiler{
		root:  root,
		query: &Query{Model: root.TargetModel(), Repository: root.RepositoryName()},
		seen:  make(map[string]bool),
	}
	for i, cond := range conditions {
		if err := c.condition(cond); err != nil {
			return nil, &CompileError{Clause: "condition", Index: i, Subject: subjectString(cond.Subject), Err: err}
		}
	}
	for i, op := range order {
		if err := c.order(op); err != nil {
			return nil, &CompileError{Clause: "order", Index: i, Subject: subjectString(op.Subject()), Err: err}
		}
	}
	return c.query, nil
}

type compiler struct {
	root  *query.Path
	query *Query
	seen  map[string]bool
}

func (c *compiler) condition(cond Condition) error {
	p, err := c.subjectPath(cond.Subject)
	if err != nil {
		return err
	}
	if !p.IsTerminal() {
		return fmt.Errorf("condition subject %s does not land on a field", p)
	}

	value := cond.Value
	if value == nil {
		value = ir.Null{}
	}

	var slug query.Slug
	switch {
	case cond.Operator == nil:
		slug = implicitSlug(value)
	case cond.Operator.Slug().IsImplicit():
		return &query.DeprecatedOperatorError{Slug: cond.Operator.Slug()}
	case cond.Operator.Slug().IsOrder():
		return fmt.Errorf("%s is an ordering, not a comparison", cond.Operator.Slug())
	default:
		slug = cond.Operator.Slug()
	}

	link := p.Canonical()
	c.addLink(link)
	c.query.Conditions = append(c.query.Conditions, Comparison{
		Path:  p,
		Link:  link,
		Field: p.Property(),
		Slug:  slug,
		Value: value,
	})
	return nil
}

// implicitSlug picks the comparison a bare value asks for.
func implicitSlug(v ir.Value) query.Slug {
	if ir.IsEnumerable(v) {
		return query.In
	}
	return query.Eql
}

func (c *compiler) order(op query.Operator) error {
	if !op.Slug().IsOrder() {
		return fmt.Errorf("%s is a comparison, not an ordering", op.Slug())
	}
	p, err := c.subjectPath(op.Subject())
	if err != nil {
		return err
	}

	if p.IsTerminal() {
		link := p.Canonical()
		c.addLink(link)
		c.query.Order = append(c.query.Order, Order{
			Path:      p,
			Link:      link,
			Field:     p.Property(),
			Direction: op.Slug(),
		})
		return nil
	}

	keys := schema.Keys(p.Provider().Properties(p.TargetModel(), p.RepositoryName()))
	if len(keys) == 0 {
		return fmt.Errorf("cannot order by %s: %s has no key", p, p.TargetModel())
	}
	c.addLink(p)
	for _, key := range keys {
		kp, err := p.ExtendField(key)
		if err != nil {
			return err
		}
		c.query.Order = append(c.query.Order, Order{
			Path:      kp,
			Link:      p,
			Field:     key,
			Direction: op.Slug(),
			Expanded:  true,
		})
	}
	return nil
}

// subjectPath turns a condition or order subject into a path rooted at
// the queried model.
func (c *compiler) subjectPath(s query.Subject) (*query.Path, error) {
	switch v := s.(type) {
	case *query.Path:
		return c.rooted(v)
	case query.FieldPath:
		return c.rooted(v.Path())
	case *schema.Field:
		if v == nil {
			return nil, errMissingSubject
		}
		return c.root.ExtendField(v)
	case nil:
		return nil, errMissingSubject
	default:
		return nil, fmt.Errorf("unsupported subject %T", s)
	}
}

var errMissingSubject = errors.New("missing subject")

func (c *compiler) rooted(p *query.Path) (*query.Path, error) {
	if p == nil {
		return nil, errMissingSubject
	}
	model := c.root.Root()
	if p.IsEmpty() {
		if p.Root() != model {
			return nil, fmt.Errorf("%s does not start at %s", p, c.root)
		}
		return p, nil
	}
	if src := p.SourceModel(); model != src && !model.IsDescendantOf(src) {
		return nil, fmt.Errorf("%s does not start at %s", p, c.root)
	}
	return p, nil
}

func (c *compiler) addLink(link *query.Path) {
	if link.IsEmpty() || c.seen[link.Key()] {
		return
	}
	c.seen[link.Key()] = true
	c.query.Links = append(c.query.Links, link)
}

func subjectString(s query.Subject) string {
	if s == nil {
		return ""
	}
	return s.String()
}
