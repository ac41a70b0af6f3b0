package flow

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"time"

	"github.com/google/uuid"

	"github.com/aretw0/orichalcum/pkg/telemetry"
)

// UnmatchedPolicy decides what happens when a step returns a label, other
// than "default", that matches no successor.
type UnmatchedPolicy uint8

const (
	// UnmatchedTerminate ends the run normally.
	UnmatchedTerminate UnmatchedPolicy = iota
	// UnmatchedWarn logs a warning and ends the run normally.
	UnmatchedWarn
	// UnmatchedFail aborts the run with ErrUnmatchedAction.
	UnmatchedFail
)

// ParseUnmatchedPolicy maps terminate, warn and fail to a policy.
func ParseUnmatchedPolicy(s string) (UnmatchedPolicy, error) {
	switch s {
	case "", "terminate":
		return UnmatchedTerminate, nil
	case "warn":
		return UnmatchedWarn, nil
	case "fail":
		return UnmatchedFail, nil
	}
	return UnmatchedTerminate, fmt.Errorf("unknown unmatched-label policy %q", s)
}

// CheckMode controls run-time signature checks on sealed tasks.
type CheckMode uint8

const (
	ChecksOff CheckMode = iota
	// ChecksReport records violations as issues and keeps running.
	ChecksReport
	// ChecksEnforce aborts with a RuntimeFieldError.
	ChecksEnforce
)

// ParseCheckMode maps off, report and enforce to a mode.
func ParseCheckMode(s string) (CheckMode, error) {
	switch s {
	case "", "off":
		return ChecksOff, nil
	case "report":
		return ChecksReport, nil
	case "enforce":
		return ChecksEnforce, nil
	}
	return ChecksOff, fmt.Errorf("unknown check mode %q", s)
}

type flowConfig struct {
	logger    *slog.Logger
	sink      telemetry.Sink
	hooks     Hooks
	checks    *CheckMode
	maxSteps  int
	unmatched UnmatchedPolicy
}

// Option configures a Flow.
type Option func(*Flow)

// WithFlowName sets the flow name used in logs and events.
func WithFlowName(name string) Option {
	return func(f *Flow) { f.name = name }
}

// WithFlowParams sets parameters passed down to every step.
func WithFlowParams(p Params) Option {
	return func(f *Flow) { f.params = p.Clone() }
}

// WithLogger sets the logger for the run.
func WithLogger(l *slog.Logger) Option {
	return func(f *Flow) { f.cfg.logger = l }
}

// WithTelemetry sets the sink receiving sealed-task events.
func WithTelemetry(s telemetry.Sink) Option {
	return func(f *Flow) { f.cfg.sink = s }
}

// WithHooks installs lifecycle callbacks. Repeated calls combine.
func WithHooks(h Hooks) Option {
	return func(f *Flow) { f.cfg.hooks = CombineHooks(f.cfg.hooks, h) }
}

// WithMaxSteps bounds the number of steps of one traversal. Zero means
// unbounded.
func WithMaxSteps(n int) Option {
	return func(f *Flow) { f.cfg.maxSteps = n }
}

// WithUnmatchedLabel sets the unmatched-label policy.
func WithUnmatchedLabel(p UnmatchedPolicy) Option {
	return func(f *Flow) { f.cfg.unmatched = p }
}

// WithContractChecks enables run-time signature checks.
func WithContractChecks(m CheckMode) Option {
	return func(f *Flow) { f.cfg.checks = &m }
}

// Flow drives a graph of Executables from a start step until a label
// resolves to no successor. A flow is itself an Executable and may be
// nested in another flow.
type Flow struct {
	links
	name   string
	start  Executable
	mode   Mode
	params Params
	cfg    flowConfig
}

// New creates a synchronous flow. It fails at run time on async steps.
func New(start Executable, opts ...Option) *Flow {
	return newFlow(start, ModeSync, "flow", opts)
}

// NewAsync creates a flow that accepts both sync and async steps.
func NewAsync(start Executable, opts ...Option) *Flow {
	return newFlow(start, ModeAsync, "async-flow", opts)
}

func newFlow(start Executable, mode Mode, prefix string, opts []Option) *Flow {
	f := &Flow{start: start, mode: mode}
	for _, opt := range opts {
		opt(f)
	}
	if f.name == "" {
		f.name = autoName(prefix)
	}
	return f
}

func (f *Flow) Name() string      { return f.name }
func (f *Flow) Mode() Mode        { return f.mode }
func (f *Flow) Start() Executable { return f.start }

func (f *Flow) Params() Params     { return f.params.Clone() }
func (f *Flow) SetParams(p Params) { f.params = p.Clone() }

// Next registers the successor for DefaultAction when the flow is a step.
func (f *Flow) Next(target Executable) *Flow {
	return f.On(DefaultAction, target)
}

// On registers a successor for when the flow is a step of another flow.
func (f *Flow) On(action Action, target Executable) *Flow {
	f.set(action, target)
	return f
}

// Outcome summarizes a completed traversal.
type Outcome struct {
	// Action is the label returned by the last step.
	Action Action
	// Steps counts the steps run at this level. Nested flows count as one.
	Steps int
	// Path lists the names of the steps run, in order.
	Path []string
}

// Run traverses the flow against shared and returns the last label.
func (f *Flow) Run(ctx context.Context, shared State) (Action, error) {
	out, err := f.Execute(ctx, shared)
	return out.Action, err
}

// Execute traverses the flow against shared and reports the outcome. On
// failure the outcome covers the steps completed so far and shared holds
// the writes of every finalize that ran.
func (f *Flow) Execute(ctx context.Context, shared State) (Outcome, error) {
	e := defaultEnv()
	e.runID = uuid.NewString()
	e = f.scope(e)

	out, err := f.traverse(ctx, e, shared, f.params)

	if ferr := e.sink.Flush(ctx); ferr != nil {
		e.logger.Warn("telemetry flush failed", "flow", f.name, "run_id", e.runID, "error", ferr)
	}
	return out, err
}

func (f *Flow) run(ctx context.Context, parent *env, shared State, inherited Params) (Action, error) {
	e := f.scope(parent)
	out, err := f.traverse(ctx, e, shared, f.params.with(inherited))

	// A sink set on a nested flow is not reached by the outer flush.
	if f.cfg.sink != nil && !sameSink(f.cfg.sink, parent.sink) {
		if ferr := f.cfg.sink.Flush(ctx); ferr != nil {
			e.logger.Warn("telemetry flush failed", "flow", f.name, "run_id", e.runID, "error", ferr)
		}
	}
	return out.Action, err
}

// sameSink compares sinks without panicking on uncomparable dynamic types.
func sameSink(a, b telemetry.Sink) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	return ta == tb && ta.Comparable() && a == b
}

// scope derives the environment for this flow from its parent's. Settings
// made explicitly on the flow win over inherited ones.
func (f *Flow) scope(parent *env) *env {
	e := *parent
	e.flow = f.name
	if f.cfg.logger != nil {
		e.logger = f.cfg.logger
	}
	if f.cfg.sink != nil {
		e.sink = f.cfg.sink
	}
	if !f.cfg.hooks.empty() {
		e.hooks = CombineHooks(parent.hooks, f.cfg.hooks)
	}
	if f.cfg.checks != nil {
		e.checks = *f.cfg.checks
	}
	return &e
}

func (f *Flow) traverse(ctx context.Context, e *env, shared State, params Params) (out Outcome, err error) {
	begin := time.Now()
	e.hooks.flowStart(ctx, &FlowEvent{Timestamp: begin, RunID: e.runID, Flow: f.name})
	defer func() {
		e.hooks.flowEnd(ctx, &FlowEvent{
			Timestamp: time.Now(),
			RunID:     e.runID,
			Flow:      f.name,
			Steps:     out.Steps,
			Action:    out.Action,
			Duration:  time.Since(begin),
			Err:       err,
		})
	}()

	if f.start == nil {
		return out, ErrNoStart
	}

	current := f.start
	for current != nil {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		if f.cfg.maxSteps > 0 && out.Steps >= f.cfg.maxSteps {
			return out, fmt.Errorf("%w: %s stopped after %d steps", ErrMaxSteps, f.name, out.Steps)
		}
		if f.mode == ModeSync && current.Mode() == ModeAsync {
			return out, &StepError{Node: current.Name(), Phase: PhaseRoute, Err: ErrAsyncInSyncFlow}
		}

		ev := &StepEvent{
			Timestamp: time.Now(),
			RunID:     e.runID,
			Flow:      f.name,
			Node:      current.Name(),
			Step:      out.Steps + 1,
		}
		e.hooks.stepStart(ctx, ev)
		e.logger.Debug("step started", "flow", f.name, "node", ev.Node, "step", ev.Step)

		action, err := current.run(ctx, e, shared, params)

		ev.Action, ev.Err, ev.Duration = action, err, time.Since(ev.Timestamp)
		e.hooks.stepEnd(ctx, ev)

		out.Steps++
		out.Path = append(out.Path, current.Name())
		if err != nil {
			return out, err
		}
		out.Action = action
		e.logger.Debug("step finished", "flow", f.name, "node", ev.Node, "step", ev.Step, "action", string(action))

		if action == NoAction {
			break
		}
		next, ok := current.Successor(action)
		if !ok {
			if err := f.unmatched(e, current, action); err != nil {
				return out, err
			}
			break
		}
		current = next
	}
	return out, nil
}

func (f *Flow) unmatched(e *env, step Executable, action Action) error {
	if action == DefaultAction {
		return nil
	}
	switch f.cfg.unmatched {
	case UnmatchedWarn:
		e.logger.Warn("no successor for action, ending run", "flow", f.name, "node", step.Name(), "action", string(action))
	case UnmatchedFail:
		return &StepError{Node: step.Name(), Phase: PhaseRoute, Err: fmt.Errorf("%w %q", ErrUnmatchedAction, action)}
	}
	return nil
}
