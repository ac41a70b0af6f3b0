package schema

import (
	"errors"
	"fmt"
	"strings"
)

// FormatError reports malformed contract text or builder misuse.
type FormatError struct {
	Input  string // Offending text, may be empty for builder misuse
	Reason string
}

func (e *FormatError) Error() string {
	if e.Input == "" {
		return "format error: " + e.Reason
	}
	return fmt.Sprintf("format error in %q: %s", e.Input, e.Reason)
}

// ValidationError represents a single field check failure.
type ValidationError struct {
	Key    string // Field name
	Reason string // Human-readable reason for failure
	Kind   string // Kind of the offending value, empty when absent
}

func (e *ValidationError) Error() string {
	if e.Kind == "" {
		return fmt.Sprintf("field %q: %s", e.Key, e.Reason)
	}
	return fmt.Sprintf("field %q: %s (got %s)", e.Key, e.Reason, e.Kind)
}

// AggregateError represents multiple failures.
type AggregateError struct {
	Errors []error
}

func (e *AggregateError) Error() string {
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d validation errors:\n", len(e.Errors))
	for i, err := range e.Errors {
		fmt.Fprintf(&sb, "  %d. %s\n", i+1, err.Error())
	}
	return sb.String()
}

func (e *AggregateError) Unwrap() []error { return e.Errors }

// ValidationErrors returns all errors if err is an AggregateError.
// Otherwise returns nil.
func ValidationErrors(err error) []error {
	var aggr *AggregateError
	if errors.As(err, &aggr) {
		return aggr.Errors
	}
	return nil
}
