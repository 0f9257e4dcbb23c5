package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/relpath/internal/schema"
)

func TestAnalyzeCyclesEmpty(t *testing.T) {
	assert.Empty(t, AnalyzeCycles(nil))
}

func TestAnalyzeCyclesDAG(t *testing.T) {
	defs := []schema.ModelDef{
		{Name: "Book", Relationships: []schema.RelationshipDef{{Name: "publisher", Target: "Publisher"}}},
		{Name: "Publisher", Relationships: []schema.RelationshipDef{{Name: "city", Target: "City"}}},
		{Name: "City"},
	}
	assert.Empty(t, AnalyzeCycles(defs))
}

func TestAnalyzeCyclesLibrary(t *testing.T) {
	warnings := AnalyzeCycles(libraryDefs())
	require.Len(t, warnings, 1)

	// Author.mentor loops inside the Author/Book component, so the
	// component is reported once as a multi-model cycle.
	w := warnings[0]
	assert.Equal(t, []string{"Author", "Book", "Author"}, w.Path)
	assert.Equal(t, "Relationship cycle: Author → Book → Author", w.Message)
	assert.Equal(t, "info", w.Level)
}

func TestAnalyzeCyclesSelfReference(t *testing.T) {
	defs := []schema.ModelDef{
		{Name: "Employee", Relationships: []schema.RelationshipDef{{Name: "manager", Target: "Employee"}}},
	}

	warnings := AnalyzeCycles(defs)
	require.Len(t, warnings, 1)
	assert.Equal(t, []string{"Employee", "Employee"}, warnings[0].Path)
	assert.Contains(t, warnings[0].Message, "Self-referencing model")
}

func TestAnalyzeCyclesIgnoresComposites(t *testing.T) {
	defs := []schema.ModelDef{
		{Name: "Author", Relationships: []schema.RelationshipDef{
			{Name: "books", Target: "Book"},
			{Name: "self", Through: []string{"books", "author"}, Target: "Author"},
		}},
		{Name: "Book"},
	}
	assert.Empty(t, AnalyzeCycles(defs))
}

func TestAnalyzeCyclesDeterministic(t *testing.T) {
	defs := []schema.ModelDef{
		{Name: "C", Relationships: []schema.RelationshipDef{{Name: "a", Target: "A"}}},
		{Name: "B", Relationships: []schema.RelationshipDef{{Name: "c", Target: "C"}}},
		{Name: "A", Relationships: []schema.RelationshipDef{{Name: "b", Target: "B"}}},
		{Name: "Y", Relationships: []schema.RelationshipDef{{Name: "x", Target: "X"}}},
		{Name: "X", Relationships: []schema.RelationshipDef{{Name: "y", Target: "Y"}}},
	}

	for i := 0; i < 5; i++ {
		warnings := AnalyzeCycles(defs)
		require.Len(t, warnings, 2)
		assert.Equal(t, []string{"A", "B", "C", "A"}, warnings[0].Path)
		assert.Equal(t, []string{"X", "Y", "X"}, warnings[1].Path)
	}
}
