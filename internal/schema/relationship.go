package schema

import (
	"fmt"
	"slices"
)

// Cardinality describes how many targets a relationship reaches.
type Cardinality string

const (
	OneToOne   Cardinality = "one_to_one"
	OneToMany  Cardinality = "one_to_many"
	ManyToOne  Cardinality = "many_to_one"
	ManyToMany Cardinality = "many_to_many"
)

// ParseCardinality validates a cardinality name. Empty means ManyToOne.
func ParseCardinality(s string) (Cardinality, error) {
	switch c := Cardinality(NormalizeName(s)); c {
	case "":
		return ManyToOne, nil
	case OneToOne, OneToMany, ManyToOne, ManyToMany:
		return c, nil
	default:
		return "", fmt.Errorf("unknown cardinality %q", s)
	}
}

// IsCollection reports whether the relationship reaches many targets.
func (c Cardinality) IsCollection() bool {
	return c == OneToMany || c == ManyToMany
}

// RelationshipSpec declares a relationship from a source model.
type RelationshipSpec struct {
	Name             string
	Target           *Model
	TargetRepository string
	Cardinality      Cardinality
	// Through makes the relationship composite. The links must form a
	// chain from the source model to Target.
	Through []*Relationship
}

// Relationship is a named, directed association between two models.
type Relationship struct {
	name             string
	source           *Model
	target           *Model
	targetRepository string
	cardinality      Cardinality
	links            []*Relationship
}

// NewRelationship creates a relationship from source.
func NewRelationship(source *Model, spec RelationshipSpec) (*Relationship, error) {
	name := NormalizeName(spec.Name)
	if source == nil || spec.Target == nil {
		return nil, fmt.Errorf("relationship %q: %w", name, ErrNilModel)
	}
	if name == "" {
		return nil, fmt.Errorf("relationship on %s: %w", source, ErrEmptyName)
	}
	cardinality := spec.Cardinality
	if cardinality == "" {
		cardinality = ManyToOne
	}

	r := &Relationship{
		name:             name,
		source:           source,
		target:           spec.Target,
		targetRepository: NormalizeName(spec.TargetRepository),
		cardinality:      cardinality,
		links:            slices.Clone(spec.Through),
	}
	if err := r.checkLinks(); err != nil {
		return nil, err
	}
	return r, nil
}

// checkLinks verifies that a composite relationship's links chain from
// source to target.
func (r *Relationship) checkLinks() error {
	if len(r.links) == 0 {
		return nil
	}
	current := r.source
	for i, link := range r.links {
		if link == nil {
			return &BrokenChainError{Relationship: r.String(), Index: i}
		}
		if link.source != current {
			return &BrokenChainError{Relationship: r.String(), Index: i, Want: current, Got: link.source}
		}
		current = link.target
	}
	if current != r.target {
		return &BrokenChainError{Relationship: r.String(), Index: len(r.links), Want: r.target, Got: current}
	}
	return nil
}

// Name returns the relationship name.
func (r *Relationship) Name() string { return r.name }

// SourceModel returns the model the relationship is declared on.
func (r *Relationship) SourceModel() *Model { return r.source }

// TargetModel returns the model the relationship reaches.
func (r *Relationship) TargetModel() *Model { return r.target }

// Cardinality returns the relationship cardinality.
func (r *Relationship) Cardinality() Cardinality { return r.cardinality }

// TargetRepositoryName returns the explicitly configured target
// repository, or "".
func (r *Relationship) TargetRepositoryName() string { return r.targetRepository }

// RelativeTargetRepositoryName returns the repository the target model is
// read from: the configured target repository, otherwise the source
// model's repository.
func (r *Relationship) RelativeTargetRepositoryName() string {
	if r.targetRepository != "" {
		return r.targetRepository
	}
	return r.source.RepositoryName()
}

// Links returns the sub-relationships of a composite relationship.
func (r *Relationship) Links() []*Relationship { return slices.Clone(r.links) }

// IsComposite reports whether the relationship is composed of links.
func (r *Relationship) IsComposite() bool { return len(r.links) > 0 }

// Equal reports whether r and other describe the same association.
func (r *Relationship) Equal(other *Relationship) bool {
	if r == nil || other == nil {
		return r == other
	}
	return r == other || (r.name == other.name && r.source == other.source && r.target == other.target)
}

func (r *Relationship) String() string {
	return r.source.String() + "." + r.name
}

// Flatten expands composite relationships into their links, recursively,
// preserving order.
func Flatten(relationships []*Relationship) []*Relationship {
	out := make([]*Relationship, 0, len(relationships))
	for _, r := range relationships {
		if r.IsComposite() {
			out = append(out, Flatten(r.links)...)
			continue
		}
		out = append(out, r)
	}
	return out
}
