package queryir

import (
	"fmt"
	"slices"
	"strings"

	"github.com/dlclark/regexp2"

	"github.com/roach88/relpath/internal/ir"
	"github.com/roach88/relpath/internal/query"
)

// Record is an in-memory row: field names map to scalar values and
// relationship names map to a Record (to-one) or a []Record (to-many).
// Values decoded from JSON (map[string]any, []any, json.Number) are
// accepted as well.
type Record map[string]any

// Match reports whether rec satisfies every condition of q.
//
// A condition on a path that fans out through a to-many relationship
// holds when any reachable record satisfies it; for not and ne it holds
// when none of them has the excluded value. A relationship that is
// missing or nil reaches no records.
func Match(q *Query, rec Record) (bool, error) {
	m := newMatcher()
	return m.match(q, rec)
}

// Filter returns the records of recs that match q, sorted by q's order.
// recs is not modified.
func Filter(q *Query, recs []Record) ([]Record, error) {
	m := newMatcher()
	var out []Record
	for i, rec := range recs {
		ok, err := m.match(q, rec)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		if ok {
			out = append(out, rec)
		}
	}
	if err := Sort(q, out); err != nil {
		return nil, err
	}
	return out, nil
}

// Sort orders recs in place by q's order entries. Nulls sort first in
// ascending order. The sort is stable. Sorting through a to-many
// relationship uses the first reachable record.
func Sort(q *Query, recs []Record) error {
	var sortErr error
	slices.SortStableFunc(recs, func(a, b Record) int {
		for _, o := range q.Order {
			av, err := firstValue(o.Path, a)
			if err != nil {
				sortErr = err
				return 0
			}
			bv, err := firstValue(o.Path, b)
			if err != nil {
				sortErr = err
				return 0
			}
			cmp := compareForSort(av, bv)
			if o.Direction == query.Desc {
				cmp = -cmp
			}
			if cmp != 0 {
				return cmp
			}
		}
		return 0
	})
	return sortErr
}

type matcher struct {
	patterns map[string]*regexp2.Regexp
}

func newMatcher() *matcher {
	return &matcher{patterns: make(map[string]*regexp2.Regexp)}
}

func (m *matcher) match(q *Query, rec Record) (bool, error) {
	for _, c := range q.Conditions {
		ok, err := m.matchComparison(c, rec)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

func (m *matcher) matchComparison(c Comparison, rec Record) (bool, error) {
	values, err := reachableValues(c.Path, rec)
	if err != nil {
		return false, err
	}

	negated := c.Slug == query.Ne || c.Slug == query.Not
	for _, v := range values {
		ok, err := m.compare(c.Slug, v, c.Value)
		if err != nil {
			return false, err
		}
		if negated && !ok {
			return false, nil
		}
		if !negated && ok {
			return true, nil
		}
	}
	return negated, nil
}

func (m *matcher) compare(slug query.Slug, actual, expected ir.Value) (bool, error) {
	switch slug {
	case query.Eql:
		return ir.Equal(actual, expected), nil
	case query.Ne:
		return !ir.Equal(actual, expected), nil
	case query.In:
		return contains(expected, actual), nil
	case query.Not:
		if ir.IsEnumerable(expected) {
			return !contains(expected, actual), nil
		}
		return !ir.Equal(actual, expected), nil
	case query.Gt, query.Gte, query.Lt, query.Lte:
		cmp, ok := ir.Compare(actual, expected)
		if !ok {
			return false, nil
		}
		switch slug {
		case query.Gt:
			return cmp > 0, nil
		case query.Gte:
			return cmp >= 0, nil
		case query.Lt:
			return cmp < 0, nil
		default:
			return cmp <= 0, nil
		}
	case query.Like, query.Regexp:
		s, ok := actual.(ir.String)
		pattern, isString := expected.(ir.String)
		if !ok || !isString {
			return false, nil
		}
		re, err := m.pattern(slug, string(pattern))
		if err != nil {
			return false, err
		}
		return re.MatchString(string(s))
	default:
		return false, fmt.Errorf("cannot evaluate operator %q", string(slug))
	}
}

// pattern compiles and caches a like or regexp pattern. like patterns
// use % for any run of characters and _ for a single character, and must
// match the whole value.
func (m *matcher) pattern(slug query.Slug, pattern string) (*regexp2.Regexp, error) {
	key := string(slug) + "\x00" + pattern
	if re, ok := m.patterns[key]; ok {
		return re, nil
	}

	expr := pattern
	if slug == query.Like {
		expr = likeToRegexp(pattern)
	}
	re, err := regexp2.Compile(expr, regexp2.None)
	if err != nil {
		return nil, fmt.Errorf("compile %s pattern %q: %w", slug, pattern, err)
	}
	m.patterns[key] = re
	return re, nil
}

func likeToRegexp(pattern string) string {
	var b strings.Builder
	b.WriteString(`\A`)
	for _, r := range pattern {
		switch r {
		case '%':
			b.WriteString(`.*`)
		case '_':
			b.WriteString(`.`)
		default:
			b.WriteString(regexp2.Escape(string(r)))
		}
	}
	b.WriteString(`\z`)
	return b.String()
}

func contains(list, v ir.Value) bool {
	items, ok := list.(ir.Array)
	if !ok {
		return false
	}
	for _, item := range items {
		if ir.Equal(item, v) {
			return true
		}
	}
	return false
}

// reachableValues follows p's relationships from rec and returns the
// field value of every record reached.
func reachableValues(p *query.Path, rec Record) ([]ir.Value, error) {
	records := []Record{rec}
	for _, rel := range p.Relationships() {
		var next []Record
		for _, r := range records {
			next = append(next, related(r[rel.Name()])...)
		}
		records = next
	}

	name := p.Property().Name()
	values := make([]ir.Value, 0, len(records))
	for _, r := range records {
		v, err := ir.FromAny(r[name])
		if err != nil {
			return nil, fmt.Errorf("%s: %w", p, err)
		}
		values = append(values, v)
	}
	return values, nil
}

func firstValue(p *query.Path, rec Record) (ir.Value, error) {
	values, err := reachableValues(p, rec)
	if err != nil || len(values) == 0 {
		return ir.Null{}, err
	}
	return values[0], nil
}

// related normalizes a relationship value into records.
func related(v any) []Record {
	switch val := v.(type) {
	case Record:
		return []Record{val}
	case map[string]any:
		return []Record{val}
	case []Record:
		return val
	case []map[string]any:
		out := make([]Record, len(val))
		for i, item := range val {
			out[i] = item
		}
		return out
	case []any:
		var out []Record
		for _, item := range val {
			out = append(out, related(item)...)
		}
		return out
	default:
		return nil
	}
}

func compareForSort(a, b ir.Value) int {
	aNull, bNull := ir.IsNull(a), ir.IsNull(b)
	switch {
	case aNull && bNull:
		return 0
	case aNull:
		return -1
	case bNull:
		return 1
	}
	if ab, ok := a.(ir.Bool); ok {
		if bb, ok := b.(ir.Bool); ok {
			switch {
			case ab == bb:
				return 0
			case !bool(ab):
				return -1
			default:
				return 1
			}
		}
	}
	if cmp, ok := ir.Compare(a, b); ok {
		return cmp
	}
	return strings.Compare(ir.Format(a), ir.Format(b))
}
