package flow

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/aretw0/orichalcum/pkg/registry"
	"github.com/aretw0/orichalcum/pkg/schema"
	"github.com/aretw0/orichalcum/pkg/telemetry"
	"github.com/aretw0/orichalcum/pkg/value"
)

// DefaultModel is recorded for sealed tasks that do not name a model.
const DefaultModel = "native"

// SealConfig describes the contract of a task.
type SealConfig struct {
	TaskID      string
	Instruction string
	// Signature in text form, e.g. "question -> answer".
	Signature string
	Model     string
}

// Sealed is an immutable, uniquely identified task wrapping an Executable.
// Routing goes through the wrapped executable's successor table.
type Sealed struct {
	inner           Executable
	taskID          string
	instruction     string
	model           string
	sig             schema.Signature
	signatureHash   string
	instructionHash string
}

// Seal validates cfg, claims the task id in reg and wraps inner.
// Every failure is a *SealError.
func Seal(reg *registry.Registry, inner Executable, cfg SealConfig) (*Sealed, error) {
	fail := func(reason string, err error) (*Sealed, error) {
		return nil, &SealError{TaskID: cfg.TaskID, Reason: reason, Err: err}
	}

	if reg == nil {
		return fail("no registry", nil)
	}
	if inner == nil {
		return fail("no executable", nil)
	}
	if _, ok := inner.(*Sealed); ok {
		return fail("cannot seal twice", ErrAlreadySealed)
	}
	if cfg.TaskID == "" {
		return fail("invalid task id", registry.ErrEmptyTaskID)
	}
	if strings.TrimSpace(cfg.Instruction) == "" {
		return fail("invalid instruction", ErrEmptyInstruction)
	}
	sig, err := schema.Parse(cfg.Signature)
	if err != nil {
		return fail("invalid signature", err)
	}

	s := &Sealed{
		inner:           inner,
		taskID:          cfg.TaskID,
		instruction:     cfg.Instruction,
		model:           cfg.Model,
		sig:             sig,
		signatureHash:   sig.StructuralHash(),
		instructionHash: InstructionHash(cfg.Instruction),
	}
	if s.model == "" {
		s.model = DefaultModel
	}

	err = reg.Claim(registry.Record{
		TaskID:          s.taskID,
		SignatureHash:   s.signatureHash,
		InstructionHash: s.instructionHash,
		Model:           s.model,
	})
	if err != nil {
		reason := "cannot claim task id"
		if errors.Is(err, registry.ErrDuplicateTask) {
			reason = "duplicate task id"
		}
		return fail(reason, err)
	}
	return s, nil
}

// InstructionHash is the hex SHA-256 of an instruction.
func InstructionHash(instruction string) string {
	sum := sha256.Sum256([]byte(instruction))
	return hex.EncodeToString(sum[:])
}

func (s *Sealed) Name() string                { return s.taskID }
func (s *Sealed) Mode() Mode                  { return s.inner.Mode() }
func (s *Sealed) TaskID() string              { return s.taskID }
func (s *Sealed) Instruction() string         { return s.instruction }
func (s *Sealed) Model() string               { return s.model }
func (s *Sealed) Signature() schema.Signature { return s.sig.Clone() }
func (s *Sealed) SignatureHash() string       { return s.signatureHash }
func (s *Sealed) InstructionHash() string     { return s.instructionHash }
func (s *Sealed) Inner() Executable           { return s.inner }

func (s *Sealed) Successors() []Edge { return s.inner.Successors() }

func (s *Sealed) Successor(action Action) (Executable, bool) {
	return s.inner.Successor(action)
}

// Run executes the task on its own.
func (s *Sealed) Run(ctx context.Context, shared State) (Action, error) {
	return s.run(ctx, defaultEnv(), shared, nil)
}

func (s *Sealed) run(ctx context.Context, e *env, shared State, inherited Params) (Action, error) {
	var before map[string]value.Value
	if e.checks != ChecksOff {
		if err := s.checkInputs(ctx, e, shared); err != nil {
			return NoAction, err
		}
		before = s.outputSnapshot(shared)
	}

	start := time.Now()
	var (
		input, output value.Value
		action        Action
		err           error
	)
	if n, ok := s.inner.(*Node); ok {
		input, output, action, err = n.phases(ctx, e, shared, inherited)
	} else {
		input = pick(shared, s.sig.InputNames())
		action, err = s.inner.run(ctx, e, shared, inherited)
		output = pick(shared, s.sig.OutputNames())
	}
	if err != nil {
		return NoAction, err
	}
	end := time.Now()

	if e.checks != ChecksOff {
		if err := s.checkOutputs(ctx, e, written{shared: shared, before: before}); err != nil {
			return NoAction, err
		}
	}

	ev := telemetry.Event{
		RunID:           e.runID,
		TaskID:          s.taskID,
		SignatureHash:   s.signatureHash,
		InstructionHash: s.instructionHash,
		Model:           s.model,
		Input:           input,
		Output:          output,
		Start:           start,
		End:             end,
		Metadata:        map[string]string{"action": string(action)},
	}
	if e.flow != "" {
		ev.Metadata["flow"] = e.flow
	}
	if rerr := e.sink.Record(ctx, ev); rerr != nil {
		e.logger.Warn("telemetry record failed", "task", s.taskID, "run_id", e.runID, "error", rerr)
	}
	return action, nil
}

func (s *Sealed) checkInputs(ctx context.Context, e *env, shared State) error {
	issues := s.contractIssues(s.sig.Inputs, shared, func(f schema.Field) schema.ValidationIssue {
		issue := schema.MissingInputIssue(s.taskID, s.taskID, f, "")
		issue.Severity = schema.SeverityError
		return issue
	})
	return s.violation(ctx, e, "input", issues)
}

func (s *Sealed) checkOutputs(ctx context.Context, e *env, src schema.Lookup) error {
	issues := s.contractIssues(s.sig.Outputs, src, func(f schema.Field) schema.ValidationIssue {
		return schema.MissingOutputIssue(s.taskID, s.taskID, f)
	})
	return s.violation(ctx, e, "output", issues)
}

// contractIssues turns the failures of schema.Check into issues. missing
// builds the finding for a required field that is absent.
func (s *Sealed) contractIssues(fields []schema.Field, src schema.Lookup, missing func(schema.Field) schema.ValidationIssue) []schema.ValidationIssue {
	byName := make(map[string]schema.Field, len(fields))
	for _, f := range fields {
		byName[f.Name] = f
	}
	var issues []schema.ValidationIssue
	for _, err := range schema.ValidationErrors(schema.Check(fields, src)) {
		var verr *schema.ValidationError
		if !errors.As(err, &verr) {
			continue
		}
		f := byName[verr.Key]
		if verr.Kind == "" {
			issues = append(issues, missing(f))
			continue
		}
		issues = append(issues, schema.KindMismatchIssue(s.taskID, s.taskID, f, verr.Kind))
	}
	return issues
}

// outputSnapshot keeps the output values present before the task runs.
func (s *Sealed) outputSnapshot(shared State) map[string]value.Value {
	out := make(map[string]value.Value, len(s.sig.Outputs))
	for _, f := range s.sig.Outputs {
		if v, ok := shared.Get(f.Name); ok {
			out[f.Name] = v
		}
	}
	return out
}

// written shows only the keys the task wrote: absent before it ran, or
// holding a different value since.
type written struct {
	shared State
	before map[string]value.Value
}

func (w written) Get(key string) (value.Value, bool) {
	v, ok := w.shared.Get(key)
	if !ok {
		return value.Null(), false
	}
	if old, had := w.before[key]; had && old.Equal(v) {
		return value.Null(), false
	}
	return v, true
}

func (s *Sealed) violation(ctx context.Context, e *env, stage string, issues []schema.ValidationIssue) error {
	if len(issues) == 0 {
		return nil
	}
	fields := make([]string, len(issues))
	rec, _ := e.sink.(telemetry.IssueRecorder)
	for i, issue := range issues {
		fields[i] = issue.Field
		e.logger.Warn("contract violation", "task", s.taskID, "stage", stage, "field", issue.Field, "run_id", e.runID)
		if rec != nil {
			if err := rec.RecordIssue(ctx, issue); err != nil {
				e.logger.Warn("issue record failed", "task", s.taskID, "error", err)
			}
		}
	}
	if e.checks == ChecksEnforce {
		return &RuntimeFieldError{TaskID: s.taskID, Stage: stage, Fields: fields}
	}
	return nil
}
