package schema

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// DefaultRepository is the repository every model belongs to unless told
// otherwise.
const DefaultRepository = "default"

// Model describes an entity type. Models are compared by identity.
type Model struct {
	name        string
	storageName string
	repository  string
	parent      *Model
}

// ModelOption configures a Model.
type ModelOption func(*Model)

// WithStorageName sets the table the model is stored in.
func WithStorageName(name string) ModelOption {
	return func(m *Model) { m.storageName = name }
}

// WithRepository sets the repository the model is read from by default.
func WithRepository(name string) ModelOption {
	return func(m *Model) {
		if name != "" {
			m.repository = NormalizeName(name)
		}
	}
}

// WithParent makes the model a subclass of parent (single-table
// inheritance). Properties declared on a subclass are reachable from
// paths targeting the base model.
func WithParent(parent *Model) ModelOption {
	return func(m *Model) { m.parent = parent }
}

// NewModel creates a model. The storage name defaults to the lowercased
// model name.
func NewModel(name string, opts ...ModelOption) *Model {
	m := &Model{
		name:       NormalizeName(name),
		repository: DefaultRepository,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.storageName == "" {
		m.storageName = strings.ToLower(m.name)
	}
	return m
}

// Name returns the model name.
func (m *Model) Name() string { return m.name }

// StorageName returns the table name.
func (m *Model) StorageName() string { return m.storageName }

// RepositoryName returns the model's current repository.
func (m *Model) RepositoryName() string { return m.repository }

// DefaultRepositoryName returns the repository whose property set seeds
// every other repository.
func (m *Model) DefaultRepositoryName() string { return DefaultRepository }

// Parent returns the model this one inherits from, or nil.
func (m *Model) Parent() *Model { return m.parent }

// BaseModel returns the root of the model's inheritance chain.
func (m *Model) BaseModel() *Model {
	base := m
	for base.parent != nil {
		base = base.parent
	}
	return base
}

// IsDescendantOf reports whether m inherits, directly or not, from other.
func (m *Model) IsDescendantOf(other *Model) bool {
	for p := m.parent; p != nil; p = p.parent {
		if p == other {
			return true
		}
	}
	return false
}

func (m *Model) String() string {
	if m == nil {
		return "<nil model>"
	}
	return m.name
}

// NormalizeName trims and NFC-normalizes a schema name.
func NormalizeName(name string) string {
	return norm.NFC.String(strings.TrimSpace(name))
}
