package schema

import (
	"fmt"

	"github.com/aretw0/orichalcum/pkg/value"
)

// Kind constrains the value a field may hold.
type Kind string

const (
	// KindUnset is the kind of a field written without annotation. It accepts
	// any value but, unlike KindAny, marks the field as strictly required.
	KindUnset  Kind = ""
	KindAny    Kind = "any"
	KindNull   Kind = "null"
	KindBool   Kind = "bool"
	KindNumber Kind = "number"
	KindText   Kind = "text"
	KindList   Kind = "list"
	KindMap    Kind = "map"
)

// ParseKind converts a kind name to a Kind.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(s); k {
	case KindAny, KindNull, KindBool, KindNumber, KindText, KindList, KindMap:
		return k, nil
	case "string":
		return KindText, nil
	case "int", "float":
		return KindNumber, nil
	default:
		return KindUnset, fmt.Errorf("unsupported kind: %s", s)
	}
}

// Accepts reports whether v satisfies the kind.
func (k Kind) Accepts(v value.Value) bool {
	switch k {
	case KindUnset, KindAny:
		return true
	case KindNull:
		return v.Kind() == value.KindNull
	case KindBool:
		return v.Kind() == value.KindBool
	case KindNumber:
		return v.Kind() == value.KindNumber
	case KindText:
		return v.Kind() == value.KindText
	case KindList:
		return v.Kind() == value.KindList
	case KindMap:
		return v.Kind() == value.KindMap
	}
	return false
}

func (k Kind) String() string {
	if k == KindUnset {
		return "any"
	}
	return string(k)
}

// Field is one named slot of a Signature.
type Field struct {
	Name        string `json:"name"`
	Kind        Kind   `json:"kind,omitempty"`
	Optional    bool   `json:"optional,omitempty"`
	Description string `json:"description,omitempty"`
}

// Lenient reports whether a missing value for this field is only worth a
// warning: the field is optional or explicitly typed as any.
func (f Field) Lenient() bool {
	return f.Optional || f.Kind == KindAny
}

func (f Field) String() string {
	s := f.Name
	if f.Optional {
		s += "?"
	}
	if f.Kind != KindUnset {
		s += ": " + string(f.Kind)
	}
	return s
}
