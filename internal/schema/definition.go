package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/roach88/relpath/internal/ir"
)

// ModelDef is a declarative model description, as produced by the CUE and
// YAML compilers or by database introspection.
type ModelDef struct {
	Name          string            `json:"name" yaml:"-"`
	Repository    string            `json:"repository,omitempty" yaml:"repository,omitempty"`
	Storage       string            `json:"storage,omitempty" yaml:"storage,omitempty"`
	Parent        string            `json:"parent,omitempty" yaml:"parent,omitempty"`
	Fields        []FieldDef        `json:"fields" yaml:"-"`
	Relationships []RelationshipDef `json:"relationships,omitempty" yaml:"-"`
}

// FieldDef is a declarative field description.
type FieldDef struct {
	Name         string            `json:"name" yaml:"-"`
	Kind         string            `json:"kind" yaml:"kind"`
	Key          bool              `json:"key,omitempty" yaml:"key,omitempty"`
	Required     bool              `json:"required,omitempty" yaml:"required,omitempty"`
	Lazy         bool              `json:"lazy,omitempty" yaml:"lazy,omitempty"`
	LazyContexts []string          `json:"lazy_contexts,omitempty" yaml:"lazy_contexts,omitempty"`
	Length       int               `json:"length,omitempty" yaml:"length,omitempty"`
	Default      ir.Value          `json:"default,omitempty" yaml:"-"`
	Repository   string            `json:"repository,omitempty" yaml:"repository,omitempty"`
	Options      map[string]string `json:"options,omitempty" yaml:"options,omitempty"`
}

// UnmarshalJSON decodes a field written by the compile command. The
// default is decoded as an ir.Value, so integers stay exact.
func (fd *FieldDef) UnmarshalJSON(data []byte) error {
	type plain FieldDef
	aux := struct {
		*plain
		Default json.RawMessage `json:"default,omitempty"`
	}{plain: (*plain)(fd)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if len(aux.Default) == 0 {
		fd.Default = nil
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(aux.Default))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return fmt.Errorf("field %s default: %w", fd.Name, err)
	}
	v, err := ir.FromAny(raw)
	if err != nil {
		return fmt.Errorf("field %s default: %w", fd.Name, err)
	}
	fd.Default = v
	return nil
}

// RelationshipDef is a declarative relationship description. Through
// names a chain of relationships, each resolved on the target of the
// previous one, starting at the declaring model.
type RelationshipDef struct {
	Name             string   `json:"name" yaml:"-"`
	Target           string   `json:"target,omitempty" yaml:"target,omitempty"`
	Cardinality      string   `json:"cardinality,omitempty" yaml:"cardinality,omitempty"`
	TargetRepository string   `json:"target_repository,omitempty" yaml:"target_repository,omitempty"`
	Repository       string   `json:"repository,omitempty" yaml:"repository,omitempty"`
	Through          []string `json:"through,omitempty" yaml:"through,omitempty"`
}

// Build registers defs into a new registry. Models may appear in any
// order; parents and relationship targets are resolved by name, and
// composite relationships are resolved once their links exist.
func Build(defs []ModelDef, opts ...Option) (*Registry, error) {
	reg := NewRegistry(opts...)
	models, err := buildModels(reg, defs)
	if err != nil {
		return nil, err
	}

	for _, def := range defs {
		m := models[NormalizeName(def.Name)]
		for _, fd := range def.Fields {
			kind, err := ParseKind(fd.Kind)
			if err != nil {
				return nil, fmt.Errorf("%s.%s: %w", def.Name, fd.Name, err)
			}
			_, err = reg.AddField(m, fd.Repository, FieldSpec{
				Name:         fd.Name,
				Kind:         kind,
				Key:          fd.Key,
				Required:     fd.Required,
				Lazy:         fd.Lazy,
				LazyContexts: fd.LazyContexts,
				Length:       fd.Length,
				Default:      fd.Default,
				Options:      fd.Options,
			})
			if err != nil {
				return nil, err
			}
		}
	}

	type pending struct {
		source *Model
		def    RelationshipDef
	}
	var composites []pending
	for _, def := range defs {
		m := models[NormalizeName(def.Name)]
		for _, rd := range def.Relationships {
			if len(rd.Through) > 0 {
				composites = append(composites, pending{source: m, def: rd})
				continue
			}
			if err := addRelationship(reg, models, m, rd, nil); err != nil {
				return nil, err
			}
		}
	}

	// Composite relationships may go through other composites, so resolve
	// until a pass makes no progress.
	for len(composites) > 0 {
		var next []pending
		for _, p := range composites {
			links, ok := resolveThrough(reg, p.source, p.def)
			if !ok {
				next = append(next, p)
				continue
			}
			if err := addRelationship(reg, models, p.source, p.def, links); err != nil {
				return nil, err
			}
		}
		if len(next) == len(composites) {
			names := make([]string, len(next))
			for i, p := range next {
				names[i] = fmt.Sprintf("%s.%s through %s", p.source, p.def.Name, strings.Join(p.def.Through, "."))
			}
			return nil, fmt.Errorf("unresolvable composite relationships: %s", strings.Join(names, ", "))
		}
		composites = next
	}

	return reg, nil
}

// buildModels registers every model, parents before children.
func buildModels(reg *Registry, defs []ModelDef) (map[string]*Model, error) {
	models := make(map[string]*Model, len(defs))
	remaining := defs
	for len(remaining) > 0 {
		var next []ModelDef
		for _, def := range remaining {
			var opts []ModelOption
			if def.Parent != "" {
				parent, ok := models[NormalizeName(def.Parent)]
				if !ok {
					next = append(next, def)
					continue
				}
				opts = append(opts, WithParent(parent))
			}
			if def.Storage != "" {
				opts = append(opts, WithStorageName(def.Storage))
			}
			opts = append(opts, WithRepository(def.Repository))

			m := NewModel(def.Name, opts...)
			if err := reg.AddModel(m); err != nil {
				return nil, err
			}
			models[m.Name()] = m
		}
		if len(next) == len(remaining) {
			return nil, fmt.Errorf("parent %q of %s: %w", next[0].Parent, next[0].Name, ErrUnknownModel)
		}
		remaining = next
	}
	return models, nil
}

func resolveThrough(reg *Registry, source *Model, def RelationshipDef) ([]*Relationship, bool) {
	current := source
	links := make([]*Relationship, 0, len(def.Through))
	for _, name := range def.Through {
		link, ok := reg.Relationships(current, def.Repository).Get(name)
		if !ok {
			return nil, false
		}
		links = append(links, link)
		current = link.TargetModel()
	}
	return links, true
}

func addRelationship(reg *Registry, models map[string]*Model, source *Model, def RelationshipDef, links []*Relationship) error {
	cardinality, err := ParseCardinality(def.Cardinality)
	if err != nil {
		return fmt.Errorf("%s.%s: %w", source, def.Name, err)
	}

	var target *Model
	switch {
	case def.Target != "":
		t, ok := models[NormalizeName(def.Target)]
		if !ok {
			return fmt.Errorf("target %q of %s.%s: %w", def.Target, source, def.Name, ErrUnknownModel)
		}
		target = t
	case len(links) > 0:
		target = links[len(links)-1].TargetModel()
	default:
		return fmt.Errorf("%s.%s: relationship has no target", source, def.Name)
	}

	_, err = reg.AddRelationship(source, def.Repository, RelationshipSpec{
		Name:             def.Name,
		Target:           target,
		TargetRepository: def.TargetRepository,
		Cardinality:      cardinality,
		Through:          links,
	})
	return err
}
