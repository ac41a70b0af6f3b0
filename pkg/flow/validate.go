package flow

import (
	"fmt"

	"github.com/aretw0/orichalcum/pkg/schema"
)

// Validate checks, for every sealed task reachable from start, that each
// input field is guaranteed present on every path reaching it, given the
// keys present in the initial state.
//
// A field counts as guaranteed at a node when it is an initial key or an
// output of some task on every path from start to that node. Nodes reached
// through several paths get the intersection of their predecessors'
// guarantees; cycles are resolved by iterating to a fixpoint. Nested flows
// are analyzed with the guarantees of the step that enters them.
//
// Validation is advisory; call Err on the result to treat errors as fatal.
func Validate(start Executable, initialKeys ...string) schema.ValidationResult {
	a := &analyzer{
		seen:   make(map[issueKey]bool),
		active: make(map[*Flow]bool),
	}
	if start != nil {
		init := setOf(initialKeys...)
		a.analyze(start, init, init, true)
	}
	return schema.ValidationResult{Issues: a.issues}
}

// Validate checks the flow's own graph. See the package-level Validate.
func (f *Flow) Validate(initialKeys ...string) schema.ValidationResult {
	return Validate(f.start, initialKeys...)
}

// keySet is a set of field names. The top set contains every name; it is
// the starting point of the must-analysis for nodes not yet visited.
type keySet struct {
	top  bool
	keys map[string]struct{}
}

func topSet() keySet { return keySet{top: true} }

func setOf(keys ...string) keySet {
	s := keySet{keys: make(map[string]struct{}, len(keys))}
	for _, k := range keys {
		s.keys[k] = struct{}{}
	}
	return s
}

func (s keySet) has(k string) bool {
	if s.top {
		return true
	}
	_, ok := s.keys[k]
	return ok
}

func (s keySet) with(names ...string) keySet {
	if s.top {
		return s
	}
	out := setOf(names...)
	for k := range s.keys {
		out.keys[k] = struct{}{}
	}
	return out
}

func (s keySet) union(o keySet) keySet {
	if s.top || o.top {
		return topSet()
	}
	out := setOf()
	for k := range s.keys {
		out.keys[k] = struct{}{}
	}
	for k := range o.keys {
		out.keys[k] = struct{}{}
	}
	return out
}

func (s keySet) intersect(o keySet) keySet {
	switch {
	case s.top:
		return o
	case o.top:
		return s
	}
	out := setOf()
	for k := range s.keys {
		if _, ok := o.keys[k]; ok {
			out.keys[k] = struct{}{}
		}
	}
	return out
}

func (s keySet) equal(o keySet) bool {
	if s.top || o.top {
		return s.top == o.top
	}
	if len(s.keys) != len(o.keys) {
		return false
	}
	for k := range s.keys {
		if _, ok := o.keys[k]; !ok {
			return false
		}
	}
	return true
}

// graph is the part of a flow reachable from its start, in depth-first
// order, with the predecessors of each step.
type graph struct {
	order []Executable
	preds map[Executable][]Executable
}

func collect(start Executable) graph {
	g := graph{preds: make(map[Executable][]Executable)}
	visited := make(map[Executable]bool)
	var visit func(Executable)
	visit = func(n Executable) {
		if visited[n] {
			return
		}
		visited[n] = true
		g.order = append(g.order, n)
		for _, edge := range n.Successors() {
			g.preds[edge.Target] = append(g.preds[edge.Target], n)
			visit(edge.Target)
		}
	}
	visit(start)
	return g
}

type issueKey struct {
	code  schema.IssueCode
	node  string
	field string
}

type analyzer struct {
	issues []schema.ValidationIssue
	seen   map[issueKey]bool
	active map[*Flow]bool
}

func (a *analyzer) report(issue schema.ValidationIssue) {
	k := issueKey{code: issue.Code, node: issue.Node, field: issue.Field}
	if a.seen[k] {
		return
	}
	a.seen[k] = true
	a.issues = append(a.issues, issue)
}

// analyze runs the must (guaranteed) and may (possibly present) analyses
// over the graph reachable from start and returns both sets at the exits.
func (a *analyzer) analyze(start Executable, must, may keySet, report bool) (keySet, keySet) {
	g := collect(start)
	inMust := make(map[Executable]keySet, len(g.order))
	inMay := make(map[Executable]keySet, len(g.order))
	outMust := make(map[Executable]keySet, len(g.order))
	outMay := make(map[Executable]keySet, len(g.order))

	for changed := true; changed; {
		changed = false
		for _, n := range g.order {
			m, y := topSet(), setOf()
			if n == start {
				m, y = must, may
			}
			for _, p := range g.preds[n] {
				if om, ok := outMust[p]; ok {
					m = m.intersect(om)
				}
				if oy, ok := outMay[p]; ok {
					y = y.union(oy)
				}
			}
			inMust[n], inMay[n] = m, y

			om, oy := a.transfer(n, m, y, false)
			prevM, seenM := outMust[n]
			prevY := outMay[n]
			if !seenM || !prevM.equal(om) || !prevY.equal(oy) {
				changed = true
			}
			outMust[n], outMay[n] = om, oy
		}
	}

	if report {
		for _, n := range g.order {
			a.transfer(n, inMust[n], inMay[n], true)
			a.checkRoutes(n)
		}
	}

	exitMust, exitMay := topSet(), setOf()
	exits := 0
	for _, n := range g.order {
		if isExit(n) {
			exits++
			exitMust = exitMust.intersect(outMust[n])
			exitMay = exitMay.union(outMay[n])
		}
	}
	if exits == 0 {
		return must, may
	}
	return exitMust, exitMay
}

// transfer computes what is available after n given what is available
// before it. With report set, it also records missing inputs.
func (a *analyzer) transfer(n Executable, must, may keySet, report bool) (keySet, keySet) {
	switch x := n.(type) {
	case *Sealed:
		if report {
			for _, f := range x.sig.Inputs {
				if must.has(f.Name) {
					continue
				}
				avail := schema.Never
				if may.has(f.Name) {
					avail = schema.Sometimes
				}
				a.report(schema.MissingInputIssue(x.Name(), x.taskID, f, avail))
			}
		}
		innerMust, innerMay := a.transfer(x.inner, must, may, report)
		outs := x.sig.OutputNames()
		return innerMust.with(outs...), innerMay.with(outs...)
	case *Flow:
		return a.nested(x, must, may, report)
	case *BatchFlow:
		return a.nested(x.inner, must, may, report)
	default:
		return must, may
	}
}

func (a *analyzer) nested(f *Flow, must, may keySet, report bool) (keySet, keySet) {
	if f == nil || f.start == nil || a.active[f] {
		return must, may
	}
	a.active[f] = true
	defer delete(a.active, f)
	return a.analyze(f.start, must, may, report)
}

// declaredActions returns the labels a step declares it can return, nil
// when undeclared.
func declaredActions(n Executable) []Action {
	switch x := n.(type) {
	case *Node:
		return x.actions
	case *Sealed:
		return declaredActions(x.inner)
	}
	return nil
}

// isExit reports whether a run may end after n: n has no successors, it
// declares no labels (so it may return one its table does not route), or it
// declares a label that has no successor.
func isExit(n Executable) bool {
	if len(n.Successors()) == 0 {
		return true
	}
	declared := declaredActions(n)
	if declared == nil {
		return true
	}
	for _, action := range declared {
		if _, ok := n.Successor(action); !ok {
			return true
		}
	}
	return false
}

func (a *analyzer) checkRoutes(n Executable) {
	declared := declaredActions(n)
	if declared == nil {
		return
	}
	emits := make(map[Action]bool, len(declared))
	taskID := ""
	if s, ok := n.(*Sealed); ok {
		taskID = s.taskID
	}
	for _, action := range declared {
		emits[action] = true
		if action == NoAction || action == DefaultAction {
			continue
		}
		if _, ok := n.Successor(action); !ok {
			a.report(schema.ValidationIssue{
				Code:     schema.UnroutedAction,
				Node:     n.Name(),
				TaskID:   taskID,
				Field:    string(action),
				Severity: schema.SeverityWarning,
				Message:  fmt.Sprintf("node %q can return %q but has no successor for it", n.Name(), action),
			})
		}
	}
	for _, edge := range n.Successors() {
		if !emits[edge.Action] {
			a.report(schema.ValidationIssue{
				Code:     schema.UndeclaredRoute,
				Node:     n.Name(),
				TaskID:   taskID,
				Field:    string(edge.Action),
				Severity: schema.SeverityWarning,
				Message:  fmt.Sprintf("node %q routes %q to %q but never returns it", n.Name(), edge.Action, edge.Target.Name()),
			})
		}
	}
}
