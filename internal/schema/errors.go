package schema

import (
	"errors"
	"fmt"
)

var (
	// ErrNilModel is returned when a field or relationship has no model.
	ErrNilModel = errors.New("nil model")
	// ErrEmptyName is returned for blank names.
	ErrEmptyName = errors.New("empty name")
	// ErrUnknownModel is returned when a registry lookup misses.
	ErrUnknownModel = errors.New("unknown model")
)

// DuplicateNameError is returned when a name is registered twice on the
// same model in the same repository. Fields and relationships share one
// namespace per model.
type DuplicateNameError struct {
	Model      string
	Name       string
	Repository string
	Existing   string // "field", "relationship" or "model"
}

func (e *DuplicateNameError) Error() string {
	if e.Existing == "model" {
		return fmt.Sprintf("model %q is already registered", e.Name)
	}
	return fmt.Sprintf("%s already has a %s named %q in repository %q", e.Model, e.Existing, e.Name, e.Repository)
}

// BrokenChainError is returned when a composite relationship's links do
// not connect its source to its target.
type BrokenChainError struct {
	Relationship string
	Index        int
	Want         *Model
	Got          *Model
}

func (e *BrokenChainError) Error() string {
	if e.Want == nil {
		return fmt.Sprintf("relationship %s: link %d is nil", e.Relationship, e.Index)
	}
	return fmt.Sprintf("relationship %s: link %d expected model %s, got %s", e.Relationship, e.Index, e.Want, e.Got)
}
