package schema

import (
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// Registry is the process-local schema provider. It is safe for
// concurrent use: registration takes the write lock and publishes fresh
// immutable sets, so any goroutine that observes a model also observes
// every field and relationship registered on it before that read.
type Registry struct {
	id     uuid.UUID
	logger *slog.Logger

	mu            sync.RWMutex
	models        []*Model
	byName        map[string]*Model
	children      map[*Model][]*Model
	properties    map[*Model]map[string]*PropertySet
	relationships map[*Model]map[string]*RelationshipSet
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger registration events are written to.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		id:            uuid.New(),
		logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
		byName:        make(map[string]*Model),
		children:      make(map[*Model][]*Model),
		properties:    make(map[*Model]map[string]*PropertySet),
		relationships: make(map[*Model]map[string]*RelationshipSet),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ID identifies this registry instance. Caches that outlive a single
// registry key their entries by it.
func (r *Registry) ID() uuid.UUID { return r.id }

// AddModel registers a model. Its parent, if any, must already be
// registered.
func (r *Registry) AddModel(m *Model) error {
	if m == nil {
		return ErrNilModel
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byName[m.name]; exists {
		return &DuplicateNameError{Name: m.name, Existing: "model"}
	}
	if m.parent != nil && r.byName[m.parent.name] != m.parent {
		return fmt.Errorf("parent %s of %s: %w", m.parent, m, ErrUnknownModel)
	}

	r.models = append(r.models, m)
	r.byName[m.name] = m
	r.properties[m] = make(map[string]*PropertySet)
	r.relationships[m] = make(map[string]*RelationshipSet)
	if m.parent != nil {
		r.children[m.parent] = append(r.children[m.parent], m)
	}

	r.logger.Debug("registered model", "model", m.name, "repository", m.repository)
	return nil
}

// Model looks a model up by name.
func (r *Registry) Model(name string) (*Model, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.byName[NormalizeName(name)]
	return m, ok
}

// Models returns every registered model in registration order.
func (r *Registry) Models() []*Model {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.models)
}

// Repositories returns the repositories model has members in, sorted.
// The default repository is always included.
func (r *Registry) Repositories(m *Model) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := map[string]bool{DefaultRepository: true}
	for repo := range r.properties[m] {
		seen[repo] = true
	}
	for repo := range r.relationships[m] {
		seen[repo] = true
	}
	out := make([]string, 0, len(seen))
	for repo := range seen {
		out = append(out, repo)
	}
	sort.Strings(out)
	return out
}

// AddField declares a field on m in repository. An empty repository means
// the model's own repository. Fields declared in the default repository
// are copied into every other repository of m that lacks the name.
func (r *Registry) AddField(m *Model, repository string, spec FieldSpec) (*Field, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	repo, err := r.repositoryFor(m, repository)
	if err != nil {
		return nil, err
	}
	f, err := NewField(m, spec)
	if err != nil {
		return nil, err
	}
	if err := r.checkFree(m, repo, f.name); err != nil {
		return nil, err
	}

	r.properties[m][repo] = r.ownProperties(m, repo).with(f)
	if repo == DefaultRepository {
		for other, set := range r.properties[m] {
			if other == repo || set.Named(f.name) || r.ownRelationships(m, other).Named(f.name) {
				continue
			}
			r.properties[m][other] = set.with(f)
		}
	}

	r.logger.Debug("registered field", "model", m.name, "field", f.name, "kind", f.kind, "repository", repo)
	return f, nil
}

// AddRelationship declares a relationship on source in repository, with
// the same repository rules as AddField.
func (r *Registry) AddRelationship(source *Model, repository string, spec RelationshipSpec) (*Relationship, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	repo, err := r.repositoryFor(source, repository)
	if err != nil {
		return nil, err
	}
	if spec.Target != nil && r.byName[spec.Target.name] != spec.Target {
		return nil, fmt.Errorf("target %s of %s.%s: %w", spec.Target, source, spec.Name, ErrUnknownModel)
	}
	rel, err := NewRelationship(source, spec)
	if err != nil {
		return nil, err
	}
	if err := r.checkFree(source, repo, rel.name); err != nil {
		return nil, err
	}

	r.relationships[source][repo] = r.ownRelationships(source, repo).with(rel)
	if repo == DefaultRepository {
		for other, set := range r.relationships[source] {
			if other == repo || set.Named(rel.name) || r.ownProperties(source, other).Named(rel.name) {
				continue
			}
			r.relationships[source][other] = set.with(rel)
		}
	}

	r.logger.Debug("registered relationship",
		"model", source.name,
		"relationship", rel.name,
		"target", rel.target.name,
		"composite", rel.IsComposite(),
		"repository", repo)
	return rel, nil
}

// Properties returns the fields reachable on m in repository: those of
// m's base model and of every descendant of it. The result is an
// immutable snapshot.
func (r *Registry) Properties(m *Model, repository string) *PropertySet {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if m == nil {
		return NewPropertySet()
	}
	repo := r.normalizeRepository(m, repository)
	family := r.family(m.BaseModel())
	if len(family) == 1 {
		return r.ownProperties(family[0], repo)
	}

	var fields []*Field
	for _, member := range family {
		fields = append(fields, r.ownProperties(member, repo).items...)
	}
	return NewPropertySet(fields...)
}

// Relationships returns the relationships declared on m or inherited from
// its ancestors in repository. The result is an immutable snapshot.
func (r *Registry) Relationships(m *Model, repository string) *RelationshipSet {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if m == nil {
		return NewRelationshipSet()
	}
	repo := r.normalizeRepository(m, repository)
	if m.parent == nil {
		return r.ownRelationships(m, repo)
	}

	var chain []*Model
	for cur := m; cur != nil; cur = cur.parent {
		chain = append([]*Model{cur}, chain...)
	}
	var rels []*Relationship
	for _, member := range chain {
		rels = append(rels, r.ownRelationships(member, repo).items...)
	}
	return NewRelationshipSet(rels...)
}

// repositoryFor validates m and resolves the repository a declaration
// lands in. Callers hold the write lock.
func (r *Registry) repositoryFor(m *Model, repository string) (string, error) {
	if m == nil {
		return "", ErrNilModel
	}
	if r.byName[m.name] != m {
		return "", fmt.Errorf("%s: %w", m, ErrUnknownModel)
	}
	return r.normalizeRepository(m, repository), nil
}

func (r *Registry) normalizeRepository(m *Model, repository string) string {
	if repo := NormalizeName(repository); repo != "" {
		return repo
	}
	return m.RepositoryName()
}

// checkFree rejects a name already used by a field or relationship of m
// in repo.
func (r *Registry) checkFree(m *Model, repo, name string) error {
	if r.ownProperties(m, repo).Named(name) {
		return &DuplicateNameError{Model: m.name, Name: name, Repository: repo, Existing: "field"}
	}
	if r.ownRelationships(m, repo).Named(name) {
		return &DuplicateNameError{Model: m.name, Name: name, Repository: repo, Existing: "relationship"}
	}
	return nil
}

// ownProperties returns the fields declared directly on m in repo. A
// repository that has never been written to sees the default
// repository's set, which is what seeding it with a copy would produce.
func (r *Registry) ownProperties(m *Model, repo string) *PropertySet {
	sets := r.properties[m]
	if set, ok := sets[repo]; ok {
		return set
	}
	if set, ok := sets[DefaultRepository]; ok {
		return set
	}
	return NewPropertySet()
}

func (r *Registry) ownRelationships(m *Model, repo string) *RelationshipSet {
	sets := r.relationships[m]
	if set, ok := sets[repo]; ok {
		return set
	}
	if set, ok := sets[DefaultRepository]; ok {
		return set
	}
	return NewRelationshipSet()
}

// family returns base followed by all of its descendants, depth first in
// registration order.
func (r *Registry) family(base *Model) []*Model {
	out := []*Model{base}
	for _, child := range r.children[base] {
		out = append(out, r.family(child)...)
	}
	return out
}
