// Package validator checks contract graph files without running them.
package validator

import (
	"errors"
	"fmt"
	"sort"

	"github.com/aretw0/orichalcum/internal/dto"
	"github.com/aretw0/orichalcum/pkg/dsl"
	"github.com/aretw0/orichalcum/pkg/flow"
	"github.com/aretw0/orichalcum/pkg/registry"
	"github.com/aretw0/orichalcum/pkg/schema"
)

// Report is the outcome of checking one graph.
type Report struct {
	Graph  string
	Result schema.ValidationResult
	// Unreachable lists node ids no path from start visits, sorted.
	Unreachable []string
}

// OK reports whether the graph has no errors. With strict, warnings and
// unreachable nodes fail too.
func (r Report) OK(strict bool) bool {
	if !r.Result.OK() {
		return false
	}
	if strict {
		return !r.Result.HasWarnings() && len(r.Unreachable) == 0
	}
	return true
}

// Summary is the wire form of a Report, shared by the HTTP and MCP
// surfaces.
type Summary struct {
	Graph       string                   `json:"graph"`
	OK          bool                     `json:"ok"`
	Issues      []schema.ValidationIssue `json:"issues"`
	Unreachable []string                 `json:"unreachable"`
}

// Summary flattens r, judging it with strict. Lists are never nil.
func (r Report) Summary(strict bool) Summary {
	out := Summary{
		Graph:       r.Graph,
		OK:          r.OK(strict),
		Issues:      r.Result.Issues,
		Unreachable: r.Unreachable,
	}
	if out.Issues == nil {
		out.Issues = []schema.ValidationIssue{}
	}
	if out.Unreachable == nil {
		out.Unreachable = []string{}
	}
	return out
}

// ValidateFile loads and checks a graph file.
func ValidateFile(path string) (*Report, error) {
	g, err := dto.Load(path)
	if err != nil {
		return nil, err
	}
	return ValidateGraph(g)
}

// ValidateGraph seals placeholder tasks for every node, wires them and runs
// the dataflow analysis. Structural problems (bad signatures, duplicate
// task ids, dangling edges) are returned as an error.
func ValidateGraph(g *dto.GraphFile) (*Report, error) {
	start, err := Build(g, registry.New())
	if err != nil {
		return nil, err
	}
	return &Report{
		Graph:       g.Name,
		Result:      flow.Validate(start, g.Initial...),
		Unreachable: unreachable(g),
	}, nil
}

// Build turns the declarations of g into sealed placeholder tasks claimed
// in reg, and returns the start task.
func Build(g *dto.GraphFile, reg *registry.Registry) (flow.Executable, error) {
	if g.Start == "" {
		return nil, &schema.FormatError{Reason: "graph has no start node"}
	}

	b := dsl.New()
	var errs []error
	for _, n := range g.Nodes {
		opts := []flow.NodeOption{flow.WithName(n.ID)}
		if len(n.Actions) > 0 {
			actions := make([]flow.Action, len(n.Actions))
			for i, a := range n.Actions {
				actions[i] = flow.Action(a)
			}
			opts = append(opts, flow.WithActions(actions...))
		}
		placeholder := flow.NewNode(flow.Funcs{}, opts...)

		task, err := flow.Seal(reg, placeholder, flow.SealConfig{
			TaskID:      n.Task(),
			Instruction: n.Instruction,
			Signature:   n.Signature,
			Model:       n.Model,
		})
		if err != nil {
			errs = append(errs, fmt.Errorf("node %q: %w", n.ID, err))
			continue
		}
		nb := b.Add(n.ID, task)
		for _, label := range sortedKeys(n.Next) {
			nb.On(flow.Action(label), n.Next[label])
		}
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	f, err := b.Build(g.Start)
	if err != nil {
		return nil, err
	}
	return f.Start(), nil
}

func unreachable(g *dto.GraphFile) []string {
	byID := make(map[string]dto.NodeSpec, len(g.Nodes))
	for _, n := range g.Nodes {
		byID[n.ID] = n
	}

	visited := map[string]bool{}
	queue := []string{g.Start}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if visited[id] {
			continue
		}
		visited[id] = true
		for _, target := range byID[id].Next {
			if !visited[target] {
				queue = append(queue, target)
			}
		}
	}

	var out []string
	for id := range byID {
		if !visited[id] {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
