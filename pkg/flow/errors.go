package flow

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrAsyncInSyncFlow is returned when a sync flow reaches an async step.
	ErrAsyncInSyncFlow = errors.New("flow: async step in sync flow")
	// ErrMaxSteps is returned when a flow exceeds its step bound.
	ErrMaxSteps = errors.New("flow: step limit reached")
	// ErrUnmatchedAction is returned under UnmatchedFail when a label has no successor.
	ErrUnmatchedAction = errors.New("flow: no successor for action")
	// ErrNotList is returned when a batch prepare step does not yield a list.
	ErrNotList = errors.New("flow: batch prepare must return a list")
	// ErrNoStart is returned when a flow has no start step.
	ErrNoStart = errors.New("flow: no start step")

	ErrEmptyInstruction = errors.New("flow: empty instruction")
	ErrAlreadySealed    = errors.New("flow: executable is already sealed")
)

// Phase names the lifecycle step where a failure happened.
type Phase string

const (
	PhasePrep  Phase = "prep"
	PhaseExec  Phase = "exec"
	PhasePost  Phase = "post"
	PhaseRoute Phase = "route"
)

// StepError is a failure inside one step of a run.
type StepError struct {
	Node  string
	Phase Phase
	Err   error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %q failed in %s: %v", e.Node, e.Phase, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

// SealError is a construction-time failure of Seal.
type SealError struct {
	TaskID string
	Reason string
	Err    error
}

func (e *SealError) Error() string {
	msg := fmt.Sprintf("seal %q: %s", e.TaskID, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *SealError) Unwrap() error { return e.Err }

// RuntimeFieldError reports declared fields that break the contract while a
// sealed task runs with enforced checks: absent inputs, outputs the task did
// not write, or values of the wrong kind.
type RuntimeFieldError struct {
	TaskID string
	Stage  string // "input" or "output"
	Fields []string
}

func (e *RuntimeFieldError) Error() string {
	return fmt.Sprintf("task %q: %s contract violated by fields: %s", e.TaskID, e.Stage, strings.Join(e.Fields, ", "))
}
