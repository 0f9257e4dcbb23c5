package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/relpath/internal/ir"
	"github.com/roach88/relpath/internal/query"
	"github.com/roach88/relpath/internal/schema"
)

func TestIntrospect(t *testing.T) {
	s := createTestStore(t, librarySQL)

	result, err := s.Introspect(context.Background())
	require.NoError(t, err)

	want := []schema.ModelDef{
		{
			Name:    "Author",
			Storage: "authors",
			Fields: []schema.FieldDef{
				{Name: "id", Kind: "serial", Key: true},
				{Name: "name", Kind: "string", Required: true, Length: 120},
				{Name: "bio", Kind: "text"},
				{Name: "mentor_id", Kind: "int"},
			},
			Relationships: []schema.RelationshipDef{
				{Name: "mentor", Target: "Author", Cardinality: "many_to_one"},
				{Name: "authors", Target: "Author", Cardinality: "one_to_many"},
				{Name: "books", Target: "Book", Cardinality: "one_to_many"},
			},
		},
		{
			Name:    "BookTag",
			Storage: "book_tags",
			Fields: []schema.FieldDef{
				{Name: "book_id", Kind: "int", Key: true},
				{Name: "tag", Kind: "text", Key: true},
			},
			Relationships: []schema.RelationshipDef{
				{Name: "book", Target: "Book", Cardinality: "many_to_one"},
			},
		},
		{
			Name:    "Book",
			Storage: "books",
			Fields: []schema.FieldDef{
				{Name: "id", Kind: "serial", Key: true},
				{Name: "title", Kind: "string", Required: true, Length: 200},
				{Name: "pages", Kind: "int", Default: ir.Int(0)},
				{Name: "available", Kind: "bool", Default: ir.Bool(true)},
				{Name: "published_on", Kind: "time"},
				{Name: "added_at", Kind: "time"},
				{Name: "author_id", Kind: "int", Required: true},
				{Name: "publisher_id", Kind: "int"},
			},
			Relationships: []schema.RelationshipDef{
				{Name: "book_tags", Target: "BookTag", Cardinality: "one_to_many"},
				{Name: "author", Target: "Author", Cardinality: "many_to_one"},
				{Name: "publisher", Target: "Publisher", Cardinality: "many_to_one"},
			},
		},
		{
			Name:    "Publisher",
			Storage: "publishers",
			Fields: []schema.FieldDef{
				{Name: "id", Kind: "serial", Key: true},
				{Name: "name", Kind: "string", Required: true, Length: 80, Default: ir.String("unknown")},
			},
			Relationships: []schema.RelationshipDef{
				{Name: "books", Target: "Book", Cardinality: "one_to_many"},
			},
		},
	}
	assert.Equal(t, want, result.Models)

	assert.Equal(t, []SkippedColumn{
		{Table: "books", Column: "rating", Type: "REAL", Reason: "floating point columns are not supported"},
		{Table: "books", Column: "cover", Type: "BLOB", Reason: "binary columns have no field kind"},
	}, result.Skipped)
}

func TestIntrospectedModelsResolvePaths(t *testing.T) {
	s := createTestStore(t, librarySQL)

	result, err := s.Introspect(context.Background())
	require.NoError(t, err)

	reg, err := schema.Build(result.Models)
	require.NoError(t, err)

	author, ok := reg.Model("Author")
	require.True(t, ok)

	p, err := query.ParsePath(reg, author, "books.publisher.name")
	require.NoError(t, err)
	assert.Equal(t, "Author.books.publisher.name", p.String())
	assert.True(t, p.IsTerminal())
}

func TestIntrospectEmptyDatabase(t *testing.T) {
	s := createTestStore(t, "CREATE TABLE IF NOT EXISTS placeholder (id INTEGER PRIMARY KEY); DROP TABLE placeholder;")

	result, err := s.Introspect(context.Background())
	require.NoError(t, err)
	assert.Empty(t, result.Models)
	assert.Empty(t, result.Skipped)
}

func TestIntrospectNameCollisions(t *testing.T) {
	s := createTestStore(t, `
		CREATE TABLE people (id INTEGER PRIMARY KEY);
		CREATE TABLE reviews (
			id        INTEGER PRIMARY KEY,
			people    INTEGER REFERENCES people(id),
			editor_id INTEGER REFERENCES people(id),
			writer_id INTEGER REFERENCES people(id)
		);
	`)

	result, err := s.Introspect(context.Background())
	require.NoError(t, err)
	require.Len(t, result.Models, 2)

	var names []string
	for _, rd := range result.Models[0].Relationships {
		names = append(names, rd.Name)
	}
	assert.Equal(t, []string{"reviews", "reviews_people_2", "reviews_writer"}, names)

	names = nil
	for _, rd := range result.Models[1].Relationships {
		names = append(names, rd.Name)
	}
	// The "people" column keeps its name, so its relationship is suffixed.
	assert.Equal(t, []string{"editor", "people_2", "writer"}, names)
}

func TestKindForColumn(t *testing.T) {
	tests := []struct {
		declType string
		kind     schema.Kind
		length   int
		skipped  bool
	}{
		{"INTEGER", schema.KindInt, 0, false},
		{"bigint", schema.KindInt, 0, false},
		{"VARCHAR(32)", schema.KindString, 32, false},
		{"character varying", schema.KindString, 0, false},
		{"TEXT", schema.KindText, 0, false},
		{"BOOLEAN", schema.KindBool, 0, false},
		{"TIMESTAMP", schema.KindTime, 0, false},
		{"NUMERIC(10,2)", "", 0, true},
		{"DOUBLE PRECISION", "", 0, true},
		{"", "", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.declType, func(t *testing.T) {
			kind, length, reason := kindForColumn(tt.declType)
			assert.Equal(t, tt.kind, kind)
			assert.Equal(t, tt.length, length)
			assert.Equal(t, tt.skipped, reason != "")
		})
	}
}

func TestModelName(t *testing.T) {
	tests := map[string]string{
		"books":        "Book",
		"book_reviews": "BookReview",
		"categories":   "Category",
		"addresses":    "Address",
		"status":       "Status",
		"person":       "Person",
	}
	for table, want := range tests {
		assert.Equal(t, want, modelName(table), table)
	}
}

func TestDefaultValue(t *testing.T) {
	assert.Equal(t, ir.Null{}, defaultValue(schema.KindInt, "NULL"))
	assert.Equal(t, ir.Int(-3), defaultValue(schema.KindInt, "-3"))
	assert.Equal(t, ir.Bool(false), defaultValue(schema.KindBool, "FALSE"))
	assert.Equal(t, ir.String("it's"), defaultValue(schema.KindText, "'it''s'"))
	assert.Nil(t, defaultValue(schema.KindTime, "CURRENT_TIMESTAMP"))
	assert.Nil(t, defaultValue(schema.KindInt, "'7'"))
}
