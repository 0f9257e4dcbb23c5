package queryir

import (
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/relpath/internal/ir"
	"github.com/roach88/relpath/internal/query"
	"github.com/roach88/relpath/internal/schema"
)

func TestCompile_ImplicitOperators(t *testing.T) {
	lib := newLibrary(t)
	title := lib.path(t, "books.title")

	q := lib.compile(t, []Condition{
		Where(title, ir.String("Dune")),
		Where(title, ir.Array{ir.String("Dune"), ir.String("Emma")}),
		Where(lib.path(t, "name"), nil),
	})

	require.Len(t, q.Conditions, 3)
	assert.Equal(t, query.Eql, q.Conditions[0].Slug)
	assert.Equal(t, query.In, q.Conditions[1].Slug)
	assert.Equal(t, query.Eql, q.Conditions[2].Slug)
	assert.Equal(t, ir.Null{}, q.Conditions[2].Value)
}

func TestCompile_RejectsExplicitImplicitOperators(t *testing.T) {
	lib := newLibrary(t)
	title := lib.path(t, "books.title")

	for _, slug := range []query.Slug{query.Eql, query.In} {
		_, err := Compile(lib.root, []Condition{With(query.NewOperator(title, slug), ir.String("Dune"))}, nil)
		assert.ErrorIs(t, err, query.ErrDeprecatedOperator, string(slug))
		assert.ErrorIs(t, err, ErrInvalidQuery)
	}
}

func TestCompile_Links(t *testing.T) {
	lib := newLibrary(t)
	title := lib.path(t, "books.title")
	pages := lib.path(t, "books.pages")
	publisher := lib.path(t, "books.publisher.name")

	q := lib.compile(t, []Condition{
		Where(lib.path(t, "name"), ir.String("Frank Herbert")),
		Where(title, ir.String("Dune")),
		With(publisher.Like(), ir.String("%Books")),
		With(pages.Gt(), ir.Int(300)),
	})

	require.Len(t, q.Links, 2)
	assert.Equal(t, "Author.books", q.Links[0].String())
	assert.Equal(t, "Author.books.publisher", q.Links[1].String())

	onBooks := q.ConditionsFor(q.Links[0])
	require.Len(t, onBooks, 2)
	assert.Equal(t, "title", onBooks[0].Field.Name())
	assert.Equal(t, "pages", onBooks[1].Field.Name())

	onRoot := q.ConditionsFor(lib.root)
	require.Len(t, onRoot, 1)
	assert.Equal(t, "name", onRoot[0].Field.Name())
	assert.True(t, onRoot[0].Link.IsEmpty())

	assert.Same(t, lib.author, q.Model)
	assert.Equal(t, "default", q.Repository)
}

func TestCompile_Subjects(t *testing.T) {
	lib := newLibrary(t)
	nameField, ok := lib.reg.Properties(lib.author, "").Get("name")
	require.True(t, ok)

	view, ok := lib.path(t, "books.title").AsField()
	require.True(t, ok)

	q := lib.compile(t, []Condition{
		Where(nameField, ir.String("Frank Herbert")),
		Where(view, ir.String("Dune")),
	})
	assert.Equal(t, "Author.name", q.Conditions[0].Path.String())
	assert.Equal(t, "Author.books.title", q.Conditions[1].Path.String())
}

func TestCompile_Errors(t *testing.T) {
	lib := newLibrary(t)
	books := lib.path(t, "books")
	title := lib.path(t, "books.title")
	book, _ := lib.reg.Model("Book")
	foreign, err := query.ParsePath(lib.reg, book, "title")
	require.NoError(t, err)

	tests := []struct {
		name       string
		root       *query.Path
		conditions []Condition
		order      []query.Operator
	}{
		{"relational condition", lib.root, []Condition{Where(books, ir.Int(1))}, nil},
		{"foreign root", lib.root, []Condition{Where(foreign, ir.String("Dune"))}, nil},
		{"missing subject", lib.root, []Condition{{Value: ir.Int(1)}}, nil},
		{"ordering as condition", lib.root, []Condition{With(title.Asc(), ir.Int(1))}, nil},
		{"comparison as order", lib.root, nil, []query.Operator{title.Gt()}},
		{"traversal root", books, nil, nil},
		{"nil root", nil, nil, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compile(tt.root, tt.conditions, tt.order)
			assert.ErrorIs(t, err, ErrInvalidQuery)
		})
	}
}

func TestCompile_InheritedChain(t *testing.T) {
	reg, err := schema.Build([]schema.ModelDef{
		{
			Name:          "Book",
			Fields:        []schema.FieldDef{{Name: "id", Kind: "serial", Key: true}, {Name: "title", Kind: "string"}},
			Relationships: []schema.RelationshipDef{{Name: "publisher", Target: "Publisher"}},
		},
		{Name: "Novel", Parent: "Book", Fields: []schema.FieldDef{{Name: "genre", Kind: "string"}}},
		{
			Name:   "Publisher",
			Fields: []schema.FieldDef{{Name: "id", Kind: "serial", Key: true}, {Name: "name", Kind: "string"}},
		},
	})
	require.NoError(t, err)
	book, _ := reg.Model("Book")
	novel, _ := reg.Model("Novel")
	publisher, ok := reg.Relationships(book, "").Get("publisher")
	require.True(t, ok)

	declared, err := query.FromRelationships(reg, []*schema.Relationship{publisher}, "name")
	require.NoError(t, err)
	root := query.NewEmptyPath(reg, novel)
	walked, err := query.Walk(root, "publisher.name")
	require.NoError(t, err)

	q, err := Compile(root, []Condition{
		With(declared.Like(), ir.String("%Books")),
		Where(walked, ir.String("Chilton Books")),
	}, nil)
	require.NoError(t, err)

	require.Len(t, q.Links, 1, "both subjects share one link")
	assert.Len(t, q.ConditionsFor(q.Links[0]), 2)
	assert.Same(t, novel, q.Model)

	ownField, err := query.ParsePath(reg, novel, "genre")
	require.NoError(t, err)
	_, err = Compile(query.NewEmptyPath(reg, book), []Condition{Where(ownField, ir.String("space opera"))}, nil)
	assert.ErrorIs(t, err, ErrInvalidQuery, "a subclass path does not start at its base model")
}

func TestCompile_OrderByRelationship(t *testing.T) {
	lib := newLibrary(t)

	q := lib.compile(t, nil, lib.path(t, "books.publisher").Desc())

	require.Len(t, q.Order, 1)
	assert.True(t, q.Order[0].Expanded)
	assert.Equal(t, "Author.books.publisher.id", q.Order[0].Path.String())
	assert.Equal(t, query.Desc, q.Order[0].Direction)
	require.Len(t, q.Links, 1)
	assert.Equal(t, "Author.books.publisher", q.Links[0].String())
}

func TestCompile_Golden(t *testing.T) {
	lib := newLibrary(t)
	name := lib.path(t, "name")
	title := lib.path(t, "books.title")

	q := lib.compile(t, []Condition{
		Where(name, ir.String("Frank Herbert")),
		Where(title, ir.Array{ir.String("Dune"), ir.String("Children of Dune")}),
		With(lib.path(t, "books.pages").Gt(), ir.Int(300)),
		With(lib.path(t, "books.publisher.name").Like(), ir.String("%Putnam%")),
	}, title.Asc(), name.Desc())

	data, err := ir.MarshalCanonical(q.Object())
	require.NoError(t, err)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "author_query", data)
}

func TestFingerprint(t *testing.T) {
	lib := newLibrary(t)
	build := func(value string) *Query {
		return lib.compile(t, []Condition{Where(lib.path(t, "books.title"), ir.String(value))})
	}

	a, err := build("Dune").Fingerprint()
	require.NoError(t, err)
	b, err := build("Dune").Fingerprint()
	require.NoError(t, err)
	c, err := build("Emma").Fingerprint()
	require.NoError(t, err)

	assert.Len(t, a, 64)
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}

func TestPathFingerprint(t *testing.T) {
	lib := newLibrary(t)

	a, err := PathFingerprint(lib.path(t, "books.title"))
	require.NoError(t, err)
	b, err := PathFingerprint(lib.path(t, "books.title"))
	require.NoError(t, err)
	c, err := PathFingerprint(lib.path(t, "books"))
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}
