package flow

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/aretw0/orichalcum/internal/logging"
	"github.com/aretw0/orichalcum/pkg/schema"
	"github.com/aretw0/orichalcum/pkg/telemetry"
)

// Mode is the concurrency contract of an Executable.
type Mode uint8

const (
	// ModeSync steps block the caller and never suspend.
	ModeSync Mode = iota
	// ModeAsync steps may suspend inside Exec and need an async flow.
	ModeAsync
)

func (m Mode) String() string {
	if m == ModeAsync {
		return "async"
	}
	return "sync"
}

// Edge is one entry of a successor table.
type Edge struct {
	Action Action
	Target Executable
}

// Executable is anything a flow can run as a step: nodes, flows, batch flows
// and sealed tasks. The set is closed.
type Executable interface {
	Name() string
	Mode() Mode
	// Successor resolves an action against the successor table.
	Successor(action Action) (Executable, bool)
	// Successors lists the table in insertion order.
	Successors() []Edge
	// Run executes the step on its own, without following successors for
	// nodes. Flows traverse their graph.
	Run(ctx context.Context, shared State) (Action, error)

	run(ctx context.Context, e *env, shared State, inherited Params) (Action, error)
}

// links is the successor table shared by every Executable.
type links struct {
	order []Action
	next  map[Action]Executable
}

// set stores target under action and reports whether a previous entry was
// replaced.
func (l *links) set(action Action, target Executable) bool {
	if target == nil {
		panic(fmt.Sprintf("flow: nil successor for action %q", action))
	}
	if l.next == nil {
		l.next = make(map[Action]Executable)
	}
	_, replaced := l.next[action]
	if !replaced {
		l.order = append(l.order, action)
	}
	l.next[action] = target
	return replaced
}

func (l *links) Successor(action Action) (Executable, bool) {
	e, ok := l.next[action]
	return e, ok
}

func (l *links) Successors() []Edge {
	out := make([]Edge, 0, len(l.order))
	for _, a := range l.order {
		out = append(out, Edge{Action: a, Target: l.next[a]})
	}
	return out
}

// Link adds an edge from one executable to another. Sealed tasks route
// through the executable they wrap.
func Link(from Executable, action Action, to Executable) error {
	if from == nil || to == nil {
		return &schema.FormatError{Reason: fmt.Sprintf("cannot link nil executable under %q", action)}
	}
	switch f := from.(type) {
	case *Node:
		f.On(action, to)
	case *Flow:
		f.On(action, to)
	case *BatchFlow:
		f.On(action, to)
	case *Sealed:
		return Link(f.inner, action, to)
	default:
		return &schema.FormatError{Reason: fmt.Sprintf("cannot link from %T", from)}
	}
	return nil
}

var seq atomic.Uint64

func autoName(prefix string) string {
	return fmt.Sprintf("%s#%d", prefix, seq.Add(1))
}

// env carries the ambient collaborators of one run.
type env struct {
	runID  string
	flow   string
	logger *slog.Logger
	sink   telemetry.Sink
	hooks  Hooks
	checks CheckMode
}

func defaultEnv() *env {
	return &env{
		logger: logging.NewNop(),
		sink:   telemetry.Nop{},
	}
}
