package compiler

import (
	"os"
	"path/filepath"
	"testing"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/stretchr/testify/require"

	"github.com/roach88/relpath/internal/ir"
	"github.com/roach88/relpath/internal/schema"
)

// libraryDefs is what both testdata/library.cue and testdata/library.yaml
// compile to.
func libraryDefs() []schema.ModelDef {
	return []schema.ModelDef{
		{
			Name: "Author",
			Fields: []schema.FieldDef{
				{Name: "id", Kind: "serial", Key: true},
				{Name: "name", Kind: "string", Required: true, Length: 120},
				{Name: "bio", Kind: "text", Lazy: true, LazyContexts: []string{"details"}},
			},
			Relationships: []schema.RelationshipDef{
				{Name: "books", Target: "Book", Cardinality: "one_to_many"},
				{Name: "mentor", Target: "Author"},
				{Name: "publishers", Through: []string{"books", "publisher"}, Cardinality: "many_to_many"},
			},
		},
		{
			Name:    "Book",
			Storage: "books",
			Fields: []schema.FieldDef{
				{Name: "id", Kind: "serial", Key: true},
				{Name: "title", Kind: "string", Length: 200},
				{Name: "pages", Kind: "int"},
				{Name: "available", Kind: "bool", Default: ir.Bool(true)},
			},
			Relationships: []schema.RelationshipDef{
				{Name: "author", Target: "Author"},
				{Name: "publisher", Target: "Publisher"},
			},
		},
		{
			Name:   "Novel",
			Parent: "Book",
			Fields: []schema.FieldDef{
				{Name: "genre", Kind: "string"},
			},
		},
		{
			Name: "Publisher",
			Fields: []schema.FieldDef{
				{Name: "id", Kind: "serial", Key: true},
				{Name: "name", Kind: "string"},
			},
		},
	}
}

// compileCUE compiles every model in a CUE source string.
func compileCUE(t *testing.T, src string) ([]schema.ModelDef, error) {
	t.Helper()

	ctx := cuecontext.New()
	v := ctx.CompileString(src)
	require.NoError(t, v.Err())

	iter, err := v.LookupPath(cue.ParsePath("model")).Fields()
	require.NoError(t, err)

	var defs []schema.ModelDef
	for iter.Next() {
		def, err := CompileModel(iter.Value())
		if err != nil {
			return nil, err
		}
		defs = append(defs, *def)
	}
	return defs, nil
}

func readTestdata(t *testing.T, name string) []byte {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", name))
	require.NoError(t, err)
	return data
}
