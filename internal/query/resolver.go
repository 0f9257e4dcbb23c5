package query

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/roach88/relpath/internal/schema"
)

// DefaultCacheSize is the number of resolved paths a Resolver keeps when
// no size is given.
const DefaultCacheSize = 1024

// identified is implemented by providers that can scope cached paths,
// such as *schema.Registry.
type identified interface {
	ID() uuid.UUID
}

type cacheKey struct {
	scope      uuid.UUID
	root       string
	repository string
	path       string
	name       string
}

// Resolver memoizes name extension. Paths are immutable, so a cached path
// is handed to every caller that asks for it. Providers without an ID are
// resolved without the cache. Failed lookups are not cached.
//
// A Resolver is safe for concurrent use.
type Resolver struct {
	cache  *lru.Cache[cacheKey, *Path]
	logger *slog.Logger
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithResolverLogger logs cache misses at Debug.
func WithResolverLogger(logger *slog.Logger) ResolverOption {
	return func(r *Resolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewResolver returns a Resolver holding up to size paths. A size of zero
// or less selects DefaultCacheSize.
func NewResolver(size int, opts ...ResolverOption) (*Resolver, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	cache, err := lru.New[cacheKey, *Path](size)
	if err != nil {
		return nil, fmt.Errorf("create path cache: %w", err)
	}
	r := &Resolver{
		cache:  cache,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Extend is Path.ExtendName with memoization.
func (r *Resolver) Extend(p *Path, name string) (*Path, error) {
	scoped, ok := p.provider.(identified)
	if !ok {
		return p.ExtendName(name)
	}
	name = schema.NormalizeName(name)
	key := cacheKey{scope: scoped.ID(), root: p.root.Name(), repository: p.repository, path: p.key, name: name}
	if cached, hit := r.cache.Get(key); hit {
		return cached, nil
	}

	next, err := p.ExtendName(name)
	if err != nil {
		return nil, err
	}
	r.cache.Add(key, next)
	r.logger.Debug("path cache miss",
		"path", p.key,
		"member", name,
		"result", next.key)
	return next, nil
}

// Walk is the package-level Walk with each relational step memoized.
// Steps past a terminal path are resolved uncached.
func (r *Resolver) Walk(root *Path, dotted string) (*Path, error) {
	segments, err := splitPath(dotted)
	if err != nil {
		return nil, err
	}
	return walkSegments(root, segments, func(p *Path, name string) (*Path, error) {
		if p.IsTerminal() {
			return step(p, name)
		}
		return r.Extend(p, name)
	})
}

// Len returns the number of cached paths.
func (r *Resolver) Len() int { return r.cache.Len() }

// Purge empties the cache. Call it after registering schema that could
// change how a cached name resolves.
func (r *Resolver) Purge() { r.cache.Purge() }
