package query

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/relpath/internal/schema"
)

func TestWalk(t *testing.T) {
	reg := library(t)
	author := model(t, reg, "Author")

	tests := []struct {
		dotted   string
		want     string
		terminal bool
		target   string
	}{
		{"", "Author", false, "Author"},
		{"name", "Author.name", true, "Author"},
		{"books", "Author.books", false, "Book"},
		{"books.publisher.address.city", "Author.books.publisher.address.city", false, "City"},
		{"books.publisher.address.city.name", "Author.books.publisher.address.city.name", true, "City"},
		{" books . title ", "Author.books.title", true, "Book"},
	}

	for _, tt := range tests {
		t.Run(tt.dotted, func(t *testing.T) {
			p, err := ParsePath(reg, author, tt.dotted)
			require.NoError(t, err)
			assert.Equal(t, tt.want, p.String())
			assert.Equal(t, tt.terminal, p.IsTerminal())
			assert.Equal(t, tt.target, p.TargetModel().Name())
		})
	}
}

func TestWalk_Errors(t *testing.T) {
	reg := library(t)
	author := model(t, reg, "Author")

	tests := []struct {
		dotted string
		want   error
	}{
		{"books..title", ErrInvalidPath},
		{"books.", ErrInvalidPath},
		{"books.nonexistent", ErrUnresolvedMember},
		{"books.title.publisher", ErrUnresolvedMember},
		{"books.title.kind", ErrUnresolvedMember},
	}

	for _, tt := range tests {
		t.Run(tt.dotted, func(t *testing.T) {
			_, err := ParsePath(reg, author, tt.dotted)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	_, err := ParsePath(reg, nil, "books")
	assert.ErrorIs(t, err, ErrInvalidPath)
}

func TestWalk_ValidatesEachSegmentAgainstCurrentTarget(t *testing.T) {
	reg := library(t)

	// "street" belongs to Address, not to Publisher
	_, err := ParsePath(reg, model(t, reg, "Author"), "books.publisher.street")
	var unresolved *UnresolvedPathMemberError
	require.ErrorAs(t, err, &unresolved)
	assert.Same(t, model(t, reg, "Publisher"), unresolved.Model)
}

func TestResolver_CachesExtensions(t *testing.T) {
	reg := library(t)
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))

	r, err := NewResolver(0, WithResolverLogger(logger))
	require.NoError(t, err)
	root := NewEmptyPath(reg, model(t, reg, "Author"))

	first, err := r.Walk(root, "books.publisher.name")
	require.NoError(t, err)
	assert.Equal(t, 3, r.Len())

	second, err := r.Walk(root, "books.publisher.name")
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, 3, r.Len())
	assert.Contains(t, logs.String(), "path cache miss")

	uncached, err := Walk(root, "books.publisher.name")
	require.NoError(t, err)
	assert.True(t, uncached.Equal(first))
	assert.NotSame(t, uncached, first)

	r.Purge()
	assert.Zero(t, r.Len())
}

func TestResolver_DoesNotCacheFailures(t *testing.T) {
	reg := library(t)
	r, err := NewResolver(8)
	require.NoError(t, err)
	root := NewEmptyPath(reg, model(t, reg, "Author"))

	_, err = r.Extend(root, "nonexistent")
	assert.ErrorIs(t, err, ErrUnresolvedMember)
	assert.Zero(t, r.Len())

	_, err = r.Walk(root, "books.title.kind")
	assert.ErrorIs(t, err, ErrUnresolvedMember)
}

func TestResolver_ScopesByRegistry(t *testing.T) {
	first := library(t)
	second := library(t)
	r, err := NewResolver(8)
	require.NoError(t, err)

	a, err := r.Extend(NewEmptyPath(first, model(t, first, "Author")), "books")
	require.NoError(t, err)
	b, err := r.Extend(NewEmptyPath(second, model(t, second, "Author")), "books")
	require.NoError(t, err)

	assert.NotSame(t, a, b)
	assert.Same(t, second, b.Provider())
	assert.Equal(t, 2, r.Len())
}

func TestResolver_KeepsRootOfInheritedChain(t *testing.T) {
	reg := library(t)
	r, err := NewResolver(8)
	require.NoError(t, err)

	viaBook, err := r.Walk(NewEmptyPath(reg, model(t, reg, "Book")), "publisher.name")
	require.NoError(t, err)
	viaNovel, err := r.Walk(NewEmptyPath(reg, model(t, reg, "Novel")), "publisher.name")
	require.NoError(t, err)

	assert.True(t, viaBook.Equal(viaNovel))
	assert.Same(t, model(t, reg, "Novel"), viaNovel.Root())
	assert.Equal(t, "Novel.publisher.name", viaNovel.String())
}

func TestResolver_BypassesUnscopedProviders(t *testing.T) {
	widget := schema.NewModel("Widget")
	name, err := schema.NewField(widget, schema.FieldSpec{Name: "name", Kind: schema.KindString})
	require.NoError(t, err)
	provider := stubProvider{properties: map[*schema.Model]*schema.PropertySet{widget: schema.NewPropertySet(name)}}

	r, err := NewResolver(8)
	require.NoError(t, err)

	p, err := r.Extend(NewEmptyPath(provider, widget), "name")
	require.NoError(t, err)
	assert.True(t, p.IsTerminal())
	assert.Zero(t, r.Len())
}
