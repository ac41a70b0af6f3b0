package schema

import "github.com/aretw0/orichalcum/pkg/value"

// Lookup is the read side of shared state.
type Lookup interface {
	Get(key string) (value.Value, bool)
}

// Check verifies that every required field is present in src and that every
// present field matches its kind. Returns an *AggregateError listing all
// failures found.
func Check(fields []Field, src Lookup) error {
	var errs []error
	for _, f := range fields {
		v, ok := src.Get(f.Name)
		if !ok {
			if f.Optional {
				continue
			}
			errs = append(errs, &ValidationError{Key: f.Name, Reason: "required"})
			continue
		}
		if !f.Kind.Accepts(v) {
			errs = append(errs, &ValidationError{
				Key:    f.Name,
				Reason: "expected " + f.Kind.String(),
				Kind:   v.Kind().String(),
			})
		}
	}

	if len(errs) > 0 {
		return &AggregateError{Errors: errs}
	}
	return nil
}

// Missing returns the fields absent from src, optional ones included.
func Missing(fields []Field, src Lookup) []Field {
	var out []Field
	for _, f := range fields {
		if _, ok := src.Get(f.Name); !ok {
			out = append(out, f)
		}
	}
	return out
}
