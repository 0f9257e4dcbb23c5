package query

import (
	"errors"
	"fmt"

	"github.com/roach88/relpath/internal/schema"
)

// Sentinels matched by the typed errors below through errors.Is.
var (
	ErrInvalidPath          = errors.New("invalid path")
	ErrUnknownField         = errors.New("unknown field")
	ErrUnresolvedMember     = errors.New("unresolved path member")
	ErrDeprecatedOperator   = errors.New("deprecated operator")
	ErrAmbiguousTraversal   = errors.New("ambiguous traversal")
	errMissingRelationships = errors.New("no relationships")
)

// InvalidPathError is returned when a relationship chain cannot form a
// path.
type InvalidPathError struct {
	Reason string
	Err    error
}

func (e *InvalidPathError) Error() string {
	return "invalid path: " + e.Reason
}

func (e *InvalidPathError) Is(target error) bool { return target == ErrInvalidPath }

func (e *InvalidPathError) Unwrap() error { return e.Err }

// UnknownFieldError is returned when a field does not exist on the
// target model in the path's repository.
type UnknownFieldError struct {
	Field      string
	Model      *schema.Model
	Repository string
}

func (e *UnknownFieldError) Error() string {
	return fmt.Sprintf("unknown field %q in %s (repository %q)", e.Field, e.Model, e.Repository)
}

func (e *UnknownFieldError) Is(target error) bool { return target == ErrUnknownField }

// UnresolvedPathMemberError is returned when a name is neither a
// relationship nor a field of the current target model.
type UnresolvedPathMemberError struct {
	Name  string
	Model *schema.Model
}

func (e *UnresolvedPathMemberError) Error() string {
	return fmt.Sprintf("undefined field or relationship %q on %s", e.Name, e.Model)
}

func (e *UnresolvedPathMemberError) Is(target error) bool { return target == ErrUnresolvedMember }

// DeprecatedOperatorError is returned whenever the eql or in slug is
// requested explicitly.
type DeprecatedOperatorError struct {
	Slug Slug
}

func (e *DeprecatedOperatorError) Error() string {
	return fmt.Sprintf("explicit use of %q operator is deprecated", string(e.Slug))
}

func (e *DeprecatedOperatorError) Is(target error) bool { return target == ErrDeprecatedOperator }

// AmbiguousTraversalError is returned when a relationship handed to
// Extend is not the relationship the target model knows by that name, or
// when the target model reaches the same model through a differently
// named relationship.
type AmbiguousTraversalError struct {
	Relationship *schema.Relationship
	Model        *schema.Model
	Candidates   []*schema.Relationship
}

func (e *AmbiguousTraversalError) Error() string {
	return fmt.Sprintf("cannot traverse %s from %s: %d candidate relationship(s) reach %s",
		e.Relationship, e.Model, len(e.Candidates), e.Relationship.TargetModel())
}

func (e *AmbiguousTraversalError) Is(target error) bool { return target == ErrAmbiguousTraversal }
