package dsl

import (
	"errors"
	"fmt"
	"sort"

	"github.com/aretw0/orichalcum/pkg/flow"
	"github.com/aretw0/orichalcum/pkg/schema"
)

// Builder manages the graph construction.
type Builder struct {
	nodes map[string]flow.Executable
	order []string
	edges []edge
	errs  []error
}

type edge struct {
	from   string
	action flow.Action
	to     string
}

// New creates a new graph builder.
func New() *Builder {
	return &Builder{
		nodes: make(map[string]flow.Executable),
	}
}

// Add registers exec under id. Registering an id twice is reported by Build.
func (b *Builder) Add(id string, exec flow.Executable) *NodeBuilder {
	switch {
	case id == "":
		b.fail("empty node id")
	case exec == nil:
		b.fail(fmt.Sprintf("node %q has no executable", id))
	default:
		if _, dup := b.nodes[id]; dup {
			b.fail(fmt.Sprintf("duplicate node id %q", id))
			break
		}
		b.nodes[id] = exec
		b.order = append(b.order, id)
	}
	return &NodeBuilder{id: id, builder: b}
}

// Link declares that action on from leads to to.
func (b *Builder) Link(from string, action flow.Action, to string) *Builder {
	b.edges = append(b.edges, edge{from: from, action: action, to: to})
	return b
}

// Next links from to to under the default action.
func (b *Builder) Next(from, to string) *Builder {
	return b.Link(from, flow.DefaultAction, to)
}

// Get returns the executable registered under id.
func (b *Builder) Get(id string) (flow.Executable, bool) {
	exec, ok := b.nodes[id]
	return exec, ok
}

// IDs lists registered ids in registration order.
func (b *Builder) IDs() []string {
	return append([]string(nil), b.order...)
}

// Build resolves the graph into a synchronous flow starting at start.
func (b *Builder) Build(start string, opts ...flow.Option) (*flow.Flow, error) {
	entry, err := b.resolve(start)
	if err != nil {
		return nil, err
	}
	return flow.New(entry, opts...), nil
}

// BuildAsync resolves the graph into an asynchronous flow.
func (b *Builder) BuildAsync(start string, opts ...flow.Option) (*flow.Flow, error) {
	entry, err := b.resolve(start)
	if err != nil {
		return nil, err
	}
	return flow.NewAsync(entry, opts...), nil
}

func (b *Builder) resolve(start string) (flow.Executable, error) {
	errs := append([]error(nil), b.errs...)

	entry, ok := b.nodes[start]
	if !ok {
		errs = append(errs, &schema.FormatError{Input: start, Reason: fmt.Sprintf("unknown start node %q", start)})
	}

	var missing []string
	for _, e := range b.edges {
		for _, id := range []string{e.from, e.to} {
			if _, ok := b.nodes[id]; !ok {
				missing = append(missing, id)
			}
		}
	}
	sort.Strings(missing)
	for i, id := range missing {
		if i > 0 && missing[i-1] == id {
			continue
		}
		errs = append(errs, &schema.FormatError{Input: id, Reason: fmt.Sprintf("edge references unknown node %q", id)})
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	for _, e := range b.edges {
		if err := flow.Link(b.nodes[e.from], e.action, b.nodes[e.to]); err != nil {
			return nil, fmt.Errorf("link %s -[%s]-> %s: %w", e.from, e.action, e.to, err)
		}
	}
	return entry, nil
}

func (b *Builder) fail(reason string) {
	b.errs = append(b.errs, &schema.FormatError{Reason: reason})
}

// NodeBuilder declares the outgoing edges of one node.
type NodeBuilder struct {
	id      string
	builder *Builder
}

// On routes action to the node registered under to.
func (n *NodeBuilder) On(action flow.Action, to string) *NodeBuilder {
	n.builder.Link(n.id, action, to)
	return n
}

// Go routes the default action to to.
func (n *NodeBuilder) Go(to string) *NodeBuilder {
	return n.On(flow.DefaultAction, to)
}
