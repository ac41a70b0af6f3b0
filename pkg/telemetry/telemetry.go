// Package telemetry records structured events emitted while sealed tasks run.
//
// The engine depends only on the Sink interface. MemorySink is the reference
// implementation used in tests and by the HTTP trace endpoint; other sinks
// (Redis, Prometheus) live in adapter packages.
package telemetry

import (
	"context"
	"errors"
	"time"

	"github.com/aretw0/orichalcum/pkg/schema"
	"github.com/aretw0/orichalcum/pkg/value"
)

// Event is one execution of a sealed task.
type Event struct {
	RunID           string            `json:"run_id"`
	TaskID          string            `json:"task_id"`
	SignatureHash   string            `json:"signature_hash"`
	InstructionHash string            `json:"instruction_hash"`
	Model           string            `json:"model,omitempty"`
	Input           value.Value       `json:"input"`
	Output          value.Value       `json:"output"`
	Start           time.Time         `json:"start"`
	End             time.Time         `json:"end"`
	Metadata        map[string]string `json:"metadata,omitempty"`
}

// Duration is End minus Start.
func (e Event) Duration() time.Duration {
	return e.End.Sub(e.Start)
}

// Sink receives events.
type Sink interface {
	Record(ctx context.Context, e Event) error
	Flush(ctx context.Context) error
}

// IssueRecorder is implemented by sinks that also collect contract
// violations observed at run time.
type IssueRecorder interface {
	RecordIssue(ctx context.Context, issue schema.ValidationIssue) error
}

// Nop discards everything.
type Nop struct{}

func (Nop) Record(context.Context, Event) error { return nil }
func (Nop) Flush(context.Context) error         { return nil }

// Multi fans out to several sinks. Every sink is called even if an earlier
// one fails; the failures are joined.
func Multi(sinks ...Sink) Sink {
	flat := make(multi, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			flat = append(flat, s)
		}
	}
	return flat
}

type multi []Sink

func (m multi) Record(ctx context.Context, e Event) error {
	var errs []error
	for _, s := range m {
		if err := s.Record(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m multi) Flush(ctx context.Context) error {
	var errs []error
	for _, s := range m {
		if err := s.Flush(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m multi) RecordIssue(ctx context.Context, issue schema.ValidationIssue) error {
	var errs []error
	for _, s := range m {
		if r, ok := s.(IssueRecorder); ok {
			if err := r.RecordIssue(ctx, issue); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}
