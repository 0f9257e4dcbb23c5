package schema

import "slices"

// Named is anything a Set can index by name.
type Named interface {
	*Field | *Relationship
	Name() string
}

// Set is an immutable, ordered, name-indexed collection.
type Set[T Named] struct {
	items  []T
	byName map[string]T
}

// PropertySet is the set of fields visible on a model in one repository.
type PropertySet = Set[*Field]

// RelationshipSet is the set of relationships declared on a model in one
// repository.
type RelationshipSet = Set[*Relationship]

// NewSet builds a set. A later item replaces an earlier one of the same
// name in place; registries reject duplicates before they get here.
func NewSet[T Named](items ...T) *Set[T] {
	s := &Set[T]{byName: make(map[string]T, len(items))}
	for _, item := range items {
		s.put(item)
	}
	return s
}

// NewPropertySet builds a PropertySet.
func NewPropertySet(fields ...*Field) *PropertySet {
	return NewSet(fields...)
}

// NewRelationshipSet builds a RelationshipSet.
func NewRelationshipSet(relationships ...*Relationship) *RelationshipSet {
	return NewSet(relationships...)
}

func (s *Set[T]) put(item T) {
	name := item.Name()
	if _, exists := s.byName[name]; exists {
		for i, existing := range s.items {
			if existing.Name() == name {
				s.items[i] = item
			}
		}
	} else {
		s.items = append(s.items, item)
	}
	s.byName[name] = item
}

// with returns a copy of s with item added.
func (s *Set[T]) with(item T) *Set[T] {
	out := s.clone()
	out.put(item)
	return out
}

func (s *Set[T]) clone() *Set[T] {
	if s == nil {
		return NewSet[T]()
	}
	out := &Set[T]{
		items:  slices.Clone(s.items),
		byName: make(map[string]T, len(s.byName)),
	}
	for k, v := range s.byName {
		out.byName[k] = v
	}
	return out
}

// Get looks an item up by name.
func (s *Set[T]) Get(name string) (T, bool) {
	var zero T
	if s == nil {
		return zero, false
	}
	item, ok := s.byName[NormalizeName(name)]
	return item, ok
}

// Named reports whether the set holds an item called name.
func (s *Set[T]) Named(name string) bool {
	_, ok := s.Get(name)
	return ok
}

// All returns the items in declaration order.
func (s *Set[T]) All() []T {
	if s == nil {
		return nil
	}
	return slices.Clone(s.items)
}

// Names returns the item names in declaration order.
func (s *Set[T]) Names() []string {
	if s == nil {
		return nil
	}
	names := make([]string, len(s.items))
	for i, item := range s.items {
		names[i] = item.Name()
	}
	return names
}

// Len returns the number of items.
func (s *Set[T]) Len() int {
	if s == nil {
		return 0
	}
	return len(s.items)
}

// LazyContext returns the lazy fields of set that load together under
// context.
func LazyContext(set *PropertySet, context string) []*Field {
	var out []*Field
	for _, f := range set.All() {
		if slices.Contains(f.lazyContexts, context) {
			out = append(out, f)
		}
	}
	return out
}

// Keys returns the key fields of set in declaration order.
func Keys(set *PropertySet) []*Field {
	var out []*Field
	for _, f := range set.All() {
		if f.IsKey() {
			out = append(out, f)
		}
	}
	return out
}
