package schema

import (
	"errors"
	"fmt"
	"io"
)

// Severity grades a ValidationIssue.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Availability tells how often a missing field is produced upstream.
type Availability string

const (
	// Never: no path reaching the node produces the field.
	Never Availability = "never"
	// Sometimes: at least one path produces it, but not all of them.
	Sometimes Availability = "sometimes"
)

// IssueCode classifies a ValidationIssue.
type IssueCode string

const (
	MissingInput    IssueCode = "missing_input"
	MissingOutput   IssueCode = "missing_output"
	UnroutedAction  IssueCode = "unrouted_action"
	UndeclaredRoute IssueCode = "undeclared_route"
	KindMismatch    IssueCode = "kind_mismatch"
)

// ValidationIssue is a single finding about a node's contract.
type ValidationIssue struct {
	Code         IssueCode    `json:"code"`
	Node         string       `json:"node"`
	TaskID       string       `json:"task_id,omitempty"`
	Field        string       `json:"field,omitempty"`
	Severity     Severity     `json:"severity"`
	Availability Availability `json:"availability,omitempty"`
	Message      string       `json:"message"`
}

func (i ValidationIssue) Error() string {
	return fmt.Sprintf("[%s] %s", i.Severity, i.Message)
}

// MissingInputIssue builds the finding for a required input that is absent.
func MissingInputIssue(node, taskID string, f Field, avail Availability) ValidationIssue {
	sev := SeverityError
	if f.Lenient() {
		sev = SeverityWarning
	}
	msg := fmt.Sprintf("node %q requires input %q which is missing from the shared state", node, f.Name)
	if avail == Sometimes {
		msg += " on some paths"
	}
	return ValidationIssue{
		Code:         MissingInput,
		Node:         node,
		TaskID:       taskID,
		Field:        f.Name,
		Severity:     sev,
		Availability: avail,
		Message:      msg,
	}
}

// MissingOutputIssue builds the finding for a declared output that was not
// written.
func MissingOutputIssue(node, taskID string, f Field) ValidationIssue {
	sev := SeverityError
	if f.Optional {
		sev = SeverityWarning
	}
	return ValidationIssue{
		Code:     MissingOutput,
		Node:     node,
		TaskID:   taskID,
		Field:    f.Name,
		Severity: sev,
		Message:  fmt.Sprintf("node %q did not write declared output %q", node, f.Name),
	}
}

// KindMismatchIssue builds the finding for a field whose value has the wrong
// kind. got is the kind of the value found.
func KindMismatchIssue(node, taskID string, f Field, got string) ValidationIssue {
	return ValidationIssue{
		Code:     KindMismatch,
		Node:     node,
		TaskID:   taskID,
		Field:    f.Name,
		Severity: SeverityError,
		Message:  fmt.Sprintf("node %q field %q expects %s, got %s", node, f.Name, f.Kind, got),
	}
}

// ValidationResult is the ordered outcome of one validation pass.
type ValidationResult struct {
	Issues []ValidationIssue `json:"issues"`
}

// OK reports whether no error-severity issue was found.
func (r ValidationResult) OK() bool {
	for _, i := range r.Issues {
		if i.Severity == SeverityError {
			return false
		}
	}
	return true
}

func (r ValidationResult) HasWarnings() bool {
	return len(r.Warnings()) > 0
}

func (r ValidationResult) Errors() []ValidationIssue {
	return r.filter(SeverityError)
}

func (r ValidationResult) Warnings() []ValidationIssue {
	return r.filter(SeverityWarning)
}

func (r ValidationResult) filter(sev Severity) []ValidationIssue {
	var out []ValidationIssue
	for _, i := range r.Issues {
		if i.Severity == sev {
			out = append(out, i)
		}
	}
	return out
}

// Err escalates the error-severity issues into an *AggregateError. Returns nil
// when the result is OK.
func (r ValidationResult) Err() error {
	errs := r.Errors()
	if len(errs) == 0 {
		return nil
	}
	out := make([]error, len(errs))
	for i, issue := range errs {
		out[i] = issue
	}
	return &AggregateError{Errors: out}
}

// IsIssue reports whether err carries a ValidationIssue.
func IsIssue(err error) bool {
	var issue ValidationIssue
	return errors.As(err, &issue)
}

// WriteSummary prints a plain, line-oriented report.
func (r ValidationResult) WriteSummary(w io.Writer) error {
	if len(r.Issues) == 0 {
		_, err := fmt.Fprintln(w, "validation passed: no issues found")
		return err
	}
	status := "passed"
	if !r.OK() {
		status = "failed"
	}
	if _, err := fmt.Fprintf(w, "validation %s: %d error(s), %d warning(s)\n",
		status, len(r.Errors()), len(r.Warnings())); err != nil {
		return err
	}
	for _, i := range r.Issues {
		if _, err := fmt.Fprintf(w, "- %s\n", i.Error()); err != nil {
			return err
		}
	}
	return nil
}
