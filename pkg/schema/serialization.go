package schema

import (
	"encoding/json"
	"fmt"
)

// MarshalText serializes the signature in its compact text form, so that it
// reads naturally in YAML and JSON documents.
func (s Signature) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses the compact text form.
func (s *Signature) UnmarshalText(data []byte) error {
	if s == nil {
		return fmt.Errorf("schema: UnmarshalText on nil pointer")
	}
	parsed, err := Parse(string(data))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Description is the JSON shape used by the HTTP and CLI surfaces to show a
// parsed signature.
type Description struct {
	Text    string  `json:"text"`
	Inputs  []Field `json:"inputs"`
	Outputs []Field `json:"outputs"`
	Hash    string  `json:"hash"`
}

// Describe expands a signature for display.
func Describe(s Signature) Description {
	d := Description{
		Text:    s.String(),
		Inputs:  s.Inputs,
		Outputs: s.Outputs,
		Hash:    s.StructuralHash(),
	}
	if d.Inputs == nil {
		d.Inputs = []Field{}
	}
	if d.Outputs == nil {
		d.Outputs = []Field{}
	}
	return d
}

func (d Description) MarshalIndent() ([]byte, error) {
	return json.MarshalIndent(d, "", "  ")
}
