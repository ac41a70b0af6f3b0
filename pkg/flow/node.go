package flow

import (
	"context"
	"log/slog"

	"github.com/aretw0/orichalcum/internal/logging"
	"github.com/aretw0/orichalcum/pkg/value"
)

// Node is a single unit of work: prepare, execute, finalize, plus a
// successor table. A node may be the successor of many nodes.
type Node struct {
	links
	name    string
	logic   AsyncLogic
	mode    Mode
	params  Params
	actions []Action
	logger  *slog.Logger
}

// NodeOption configures a Node.
type NodeOption func(*Node)

// WithName sets the name used in logs, telemetry and validation reports.
func WithName(name string) NodeOption {
	return func(n *Node) { n.name = name }
}

// WithParams sets the node's own parameters. Parameters inherited from an
// enclosing flow take precedence.
func WithParams(p Params) NodeOption {
	return func(n *Node) { n.params = p.Clone() }
}

// WithActions declares the labels the node's finalize step can return, so
// that the validator can cross-check them against the successor table.
func WithActions(actions ...Action) NodeOption {
	return func(n *Node) { n.actions = append([]Action(nil), actions...) }
}

// WithNodeLogger sets the logger used while wiring the node.
func WithNodeLogger(l *slog.Logger) NodeOption {
	return func(n *Node) { n.logger = l }
}

// NewNode creates a synchronous node.
func NewNode(logic Logic, opts ...NodeOption) *Node {
	return newNode(Lift(logic), ModeSync, "node", opts)
}

// NewAsyncNode creates a node whose Exec may suspend.
func NewAsyncNode(logic AsyncLogic, opts ...NodeOption) *Node {
	return newNode(logic, ModeAsync, "async-node", opts)
}

func newNode(logic AsyncLogic, mode Mode, prefix string, opts []NodeOption) *Node {
	n := &Node{logic: logic, mode: mode, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(n)
	}
	if n.name == "" {
		n.name = autoName(prefix)
	}
	return n
}

func (n *Node) Name() string { return n.name }
func (n *Node) Mode() Mode   { return n.mode }

// Params returns a copy of the node's own parameters.
func (n *Node) Params() Params { return n.params.Clone() }

// SetParams replaces the node's own parameters.
func (n *Node) SetParams(p Params) { n.params = p.Clone() }

// Actions returns the declared labels, nil when undeclared.
func (n *Node) Actions() []Action { return append([]Action(nil), n.actions...) }

// Next registers the successor for DefaultAction.
func (n *Node) Next(target Executable) *Node {
	return n.On(DefaultAction, target)
}

// On registers the successor for action. Overwriting an existing entry logs
// a warning.
func (n *Node) On(action Action, target Executable) *Node {
	if n.set(action, target) {
		n.logger.Warn("overwriting successor", "node", n.name, "action", string(action))
	}
	return n
}

// Run executes the node once on its own. Successors are not followed.
func (n *Node) Run(ctx context.Context, shared State) (Action, error) {
	e := defaultEnv()
	if len(n.order) > 0 {
		e.logger.Debug("node run outside a flow, successors ignored", "node", n.name)
	}
	return n.run(ctx, e, shared, nil)
}

func (n *Node) run(ctx context.Context, e *env, shared State, inherited Params) (Action, error) {
	_, _, action, err := n.phases(ctx, e, shared, inherited)
	return action, err
}

// phases runs the lifecycle and also hands back the prepared and executed
// values so that sealed wrappers can record them.
func (n *Node) phases(ctx context.Context, e *env, shared State, inherited Params) (value.Value, value.Value, Action, error) {
	params := n.params.with(inherited)

	prepared, err := n.logic.Prep(params, shared.ReadOnly())
	if err != nil {
		return value.Null(), value.Null(), NoAction, &StepError{Node: n.name, Phase: PhasePrep, Err: err}
	}

	executed, err := n.exec(ctx, prepared)
	if err != nil {
		return prepared, value.Null(), NoAction, &StepError{Node: n.name, Phase: PhaseExec, Err: err}
	}

	action, err := n.logic.Post(shared, prepared, executed)
	if err != nil {
		return prepared, executed, NoAction, &StepError{Node: n.name, Phase: PhasePost, Err: err}
	}
	e.logger.Debug("node finished", "node", n.name, "action", string(action))
	return prepared, executed, action, nil
}

type execResult struct {
	v   value.Value
	err error
}

func (n *Node) exec(ctx context.Context, prepared value.Value) (value.Value, error) {
	if n.mode == ModeSync {
		return n.logic.Exec(ctx, prepared)
	}

	// Async exec runs off the driver goroutine so that cancellation is
	// observed even when the logic ignores ctx.
	done := make(chan execResult, 1)
	go func() {
		v, err := n.logic.Exec(ctx, prepared)
		done <- execResult{v: v, err: err}
	}()
	select {
	case r := <-done:
		return r.v, r.err
	case <-ctx.Done():
		return value.Null(), ctx.Err()
	}
}
