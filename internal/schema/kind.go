package schema

import (
	"fmt"
	"strings"
)

// Kind is the storage type of a field.
type Kind string

// Supported field kinds. There is no float kind: comparison values are
// integers, strings and booleans only.
const (
	KindString Kind = "string"
	KindText   Kind = "text"
	KindInt    Kind = "int"
	KindSerial Kind = "serial"
	KindBool   Kind = "bool"
	KindTime   Kind = "time"
)

// deprecatedKinds maps legacy spellings to their replacement.
var deprecatedKinds = map[string]Kind{
	"boolean": KindBool,
	"integer": KindInt,
}

// ParseKind converts a kind name into a Kind.
func ParseKind(s string) (Kind, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	switch Kind(name) {
	case KindString, KindText, KindInt, KindSerial, KindBool, KindTime:
		return Kind(name), nil
	}
	if replacement, ok := deprecatedKinds[name]; ok {
		return "", &DeprecatedKindError{Kind: name, Replacement: replacement}
	}
	return "", &UnsupportedKindError{Kind: name}
}

// IsNumeric reports whether values of k are integers.
func (k Kind) IsNumeric() bool {
	return k == KindInt || k == KindSerial
}

// IsTextual reports whether values of k are strings.
func (k Kind) IsTextual() bool {
	return k == KindString || k == KindText || k == KindTime
}

// IsOrdered reports whether values of k can be compared with <, >.
func (k Kind) IsOrdered() bool {
	return k.IsNumeric() || k.IsTextual()
}

// DeprecatedKindError is returned for legacy kind names.
type DeprecatedKindError struct {
	Kind        string
	Replacement Kind
}

func (e *DeprecatedKindError) Error() string {
	return fmt.Sprintf("%s is deprecated, use %s instead", e.Kind, e.Replacement)
}

// UnsupportedKindError is returned for kinds the schema cannot hold.
type UnsupportedKindError struct {
	Kind string
}

func (e *UnsupportedKindError) Error() string {
	return fmt.Sprintf("%q is not a supported kind", e.Kind)
}
