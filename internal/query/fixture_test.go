package query

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/relpath/internal/schema"
)

// library builds the schema most tests run against:
//
//	Author -books-> Book -publisher-> Publisher -address-> Address -city-> City
//
// plus a self-referential Author.mentor, a composite Author.publishers,
// a Novel subclass of Book and a Publisher.backlist reaching Book in the
// archive repository, where Book has an extra field.
func library(t *testing.T) *schema.Registry {
	t.Helper()

	reg, err := schema.Build([]schema.ModelDef{
		{
			Name: "Author",
			Fields: []schema.FieldDef{
				{Name: "id", Kind: "serial", Key: true},
				{Name: "name", Kind: "string", Required: true},
				{Name: "bio", Kind: "text", Lazy: true},
			},
			Relationships: []schema.RelationshipDef{
				{Name: "books", Target: "Book", Cardinality: "one_to_many"},
				{Name: "mentor", Target: "Author"},
				{Name: "publishers", Cardinality: "many_to_many", Through: []string{"books", "publisher"}},
			},
		},
		{
			Name: "Book",
			Fields: []schema.FieldDef{
				{Name: "id", Kind: "serial", Key: true},
				{Name: "title", Kind: "string", Length: 200},
				{Name: "pages", Kind: "int"},
				{Name: "available", Kind: "bool"},
				{Name: "archived_on", Kind: "time", Repository: "archive"},
			},
			Relationships: []schema.RelationshipDef{
				{Name: "author", Target: "Author"},
				{Name: "publisher", Target: "Publisher"},
			},
		},
		{
			Name:   "Novel",
			Parent: "Book",
			Fields: []schema.FieldDef{{Name: "genre", Kind: "string"}},
		},
		{
			Name:   "Publisher",
			Fields: []schema.FieldDef{{Name: "id", Kind: "serial", Key: true}, {Name: "name", Kind: "string"}},
			Relationships: []schema.RelationshipDef{
				{Name: "address", Target: "Address", Cardinality: "one_to_one"},
				{Name: "backlist", Target: "Book", Cardinality: "one_to_many", TargetRepository: "archive"},
			},
		},
		{
			Name:          "Address",
			Fields:        []schema.FieldDef{{Name: "id", Kind: "serial", Key: true}, {Name: "street", Kind: "string"}},
			Relationships: []schema.RelationshipDef{{Name: "city", Target: "City"}},
		},
		{
			Name:   "City",
			Fields: []schema.FieldDef{{Name: "id", Kind: "serial", Key: true}, {Name: "name", Kind: "string"}},
		},
	})
	require.NoError(t, err)
	return reg
}

func model(t *testing.T, reg *schema.Registry, name string) *schema.Model {
	t.Helper()
	m, ok := reg.Model(name)
	require.True(t, ok, "model %s", name)
	return m
}

func relationship(t *testing.T, reg *schema.Registry, modelName, name string) *schema.Relationship {
	t.Helper()
	m := model(t, reg, modelName)
	rel, ok := reg.Relationships(m, "").Get(name)
	require.True(t, ok, "relationship %s.%s", modelName, name)
	return rel
}

func field(t *testing.T, reg *schema.Registry, modelName, name string) *schema.Field {
	t.Helper()
	m := model(t, reg, modelName)
	f, ok := reg.Properties(m, "").Get(name)
	require.True(t, ok, "field %s.%s", modelName, name)
	return f
}

// stubProvider serves fixed sets and, unlike a registry, allows a field
// and a relationship to share a name. It has no ID, so resolvers do not
// cache paths built on it.
type stubProvider struct {
	relationships map[*schema.Model]*schema.RelationshipSet
	properties    map[*schema.Model]*schema.PropertySet
}

func (s stubProvider) Relationships(m *schema.Model, _ string) *schema.RelationshipSet {
	return s.relationships[m]
}

func (s stubProvider) Properties(m *schema.Model, _ string) *schema.PropertySet {
	return s.properties[m]
}
