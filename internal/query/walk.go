package query

import (
	"fmt"
	"strings"

	"github.com/roach88/relpath/internal/schema"
)

// Walk resolves a dotted traversal such as "books.publisher.name" one
// segment at a time, starting at root. Each segment is checked against
// the target model reached so far.
func Walk(root *Path, dotted string) (*Path, error) {
	segments, err := splitPath(dotted)
	if err != nil {
		return nil, err
	}
	return walkSegments(root, segments, step)
}

// ParsePath resolves dotted starting at model.
func ParsePath(provider Provider, model *schema.Model, dotted string) (*Path, error) {
	if model == nil {
		return nil, &InvalidPathError{Reason: "nil root model"}
	}
	return Walk(NewEmptyPath(provider, model), dotted)
}

func step(p *Path, name string) (*Path, error) {
	member, err := p.Resolve(name)
	if err != nil {
		return nil, err
	}
	if !member.IsPath() {
		// A field attribute cannot be traversed further.
		return nil, &UnresolvedPathMemberError{Name: name, Model: p.TargetModel()}
	}
	return member.Path, nil
}

func walkSegments(root *Path, segments []string, next func(*Path, string) (*Path, error)) (*Path, error) {
	p := root
	for _, seg := range segments {
		var err error
		if p, err = next(p, seg); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func splitPath(dotted string) ([]string, error) {
	if strings.TrimSpace(dotted) == "" {
		return nil, nil
	}
	parts := strings.Split(dotted, ".")
	for i, part := range parts {
		parts[i] = schema.NormalizeName(part)
		if parts[i] == "" {
			return nil, &InvalidPathError{Reason: fmt.Sprintf("empty segment %d in %q", i, dotted)}
		}
	}
	return parts, nil
}
