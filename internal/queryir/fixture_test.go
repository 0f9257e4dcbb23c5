package queryir

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/relpath/internal/query"
	"github.com/roach88/relpath/internal/schema"
)

type library struct {
	reg    *schema.Registry
	author *schema.Model
	root   *query.Path
}

func newLibrary(t *testing.T) *library {
	t.Helper()

	reg, err := schema.Build([]schema.ModelDef{
		{
			Name: "Author",
			Fields: []schema.FieldDef{
				{Name: "id", Kind: "serial", Key: true},
				{Name: "name", Kind: "string"},
				{Name: "bio", Kind: "text", Lazy: true},
			},
			Relationships: []schema.RelationshipDef{
				{Name: "books", Target: "Book", Cardinality: "one_to_many"},
			},
		},
		{
			Name: "Book",
			Fields: []schema.FieldDef{
				{Name: "id", Kind: "serial", Key: true},
				{Name: "title", Kind: "string"},
				{Name: "pages", Kind: "int"},
				{Name: "available", Kind: "bool"},
			},
			Relationships: []schema.RelationshipDef{{Name: "publisher", Target: "Publisher"}},
		},
		{
			Name:   "Publisher",
			Fields: []schema.FieldDef{{Name: "id", Kind: "serial", Key: true}, {Name: "name", Kind: "string"}},
		},
	})
	require.NoError(t, err)

	author, ok := reg.Model("Author")
	require.True(t, ok)
	return &library{reg: reg, author: author, root: query.NewEmptyPath(reg, author)}
}

func (l *library) path(t *testing.T, dotted string) *query.Path {
	t.Helper()
	p, err := query.Walk(l.root, dotted)
	require.NoError(t, err)
	return p
}

func (l *library) compile(t *testing.T, conditions []Condition, order ...query.Operator) *Query {
	t.Helper()
	q, err := Compile(l.root, conditions, order)
	require.NoError(t, err)
	return q
}

func authors() []Record {
	return []Record{
		{
			"id":   1,
			"name": "Frank Herbert",
			"books": []Record{
				{"id": 10, "title": "Dune", "pages": 412, "available": true, "publisher": Record{"id": 1, "name": "Chilton Books"}},
				{"id": 11, "title": "Children of Dune", "pages": 444, "available": false, "publisher": Record{"id": 2, "name": "Putnam"}},
			},
		},
		{
			"id":   2,
			"name": "Ursula K. Le Guin",
			"books": []any{
				map[string]any{"id": 20, "title": "The Dispossessed", "pages": 387, "publisher": map[string]any{"id": 3, "name": "Harper & Row"}},
			},
		},
		{"id": 3},
	}
}

func names(recs []Record) []any {
	out := make([]any, len(recs))
	for i, r := range recs {
		out[i] = r["name"]
	}
	return out
}
