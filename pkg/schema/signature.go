package schema

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"unicode"
)

const arrow = "->"

// Signature is the structural contract of a task: ordered inputs read from
// shared state and ordered outputs written to it.
type Signature struct {
	Inputs  []Field
	Outputs []Field
}

// Parse reads the compact form "a, b: text, c? -> d, e".
func Parse(text string) (Signature, error) {
	if strings.Count(text, arrow) != 1 {
		return Signature{}, &FormatError{Input: text, Reason: "expected exactly one '->'"}
	}
	left, right, _ := strings.Cut(text, arrow)

	inputs, err := parseSide(text, left)
	if err != nil {
		return Signature{}, err
	}
	outputs, err := parseSide(text, right)
	if err != nil {
		return Signature{}, err
	}
	return Signature{Inputs: inputs, Outputs: outputs}, nil
}

// MustParse is Parse for signatures known to be valid. It panics otherwise.
func MustParse(text string) Signature {
	sig, err := Parse(text)
	if err != nil {
		panic(err)
	}
	return sig
}

func parseSide(text, side string) ([]Field, error) {
	side = strings.TrimSpace(side)
	if side == "" {
		return nil, nil
	}

	parts := strings.Split(side, ",")
	fields := make([]Field, 0, len(parts))
	seen := make(map[string]bool, len(parts))
	for _, part := range parts {
		f, err := parseField(text, part)
		if err != nil {
			return nil, err
		}
		if seen[f.Name] {
			return nil, &FormatError{Input: text, Reason: "duplicate field " + f.Name}
		}
		seen[f.Name] = true
		fields = append(fields, f)
	}
	return fields, nil
}

func parseField(text, part string) (Field, error) {
	name, kindText, typed := strings.Cut(part, ":")
	name = strings.TrimSpace(name)

	var f Field
	if strings.HasSuffix(name, "?") {
		f.Optional = true
		name = strings.TrimSpace(strings.TrimSuffix(name, "?"))
	}
	if name == "" {
		return Field{}, &FormatError{Input: text, Reason: "empty field name"}
	}
	if strings.IndexFunc(name, invalidNameRune) >= 0 {
		return Field{}, &FormatError{Input: text, Reason: "invalid field name " + name}
	}
	f.Name = name

	if typed {
		k, err := ParseKind(strings.TrimSpace(kindText))
		if err != nil {
			return Field{}, &FormatError{Input: text, Reason: err.Error()}
		}
		f.Kind = k
	}
	return f, nil
}

func invalidNameRune(r rune) bool {
	return !(unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '.' || r == '-')
}

// String renders the signature back into its text form.
func (s Signature) String() string {
	return joinFields(s.Inputs) + " -> " + joinFields(s.Outputs)
}

func joinFields(fields []Field) string {
	parts := make([]string, len(fields))
	for i, f := range fields {
		parts[i] = f.String()
	}
	return strings.Join(parts, ", ")
}

func (s Signature) InputNames() []string  { return names(s.Inputs) }
func (s Signature) OutputNames() []string { return names(s.Outputs) }

func names(fields []Field) []string {
	out := make([]string, len(fields))
	for i, f := range fields {
		out[i] = f.Name
	}
	return out
}

// Clone returns a deep copy.
func (s Signature) Clone() Signature {
	return Signature{
		Inputs:  append([]Field(nil), s.Inputs...),
		Outputs: append([]Field(nil), s.Outputs...),
	}
}

// StructuralHash identifies the shape of the contract: input names, a
// separator, then output names, in declaration order. Kinds and descriptions
// do not contribute.
func (s Signature) StructuralHash() string {
	h := sha256.New()
	for _, f := range s.Inputs {
		h.Write([]byte(f.Name))
		h.Write([]byte{0x1f})
	}
	h.Write([]byte{0x00})
	for _, f := range s.Outputs {
		h.Write([]byte(f.Name))
		h.Write([]byte{0x1f})
	}
	return hex.EncodeToString(h.Sum(nil))
}
