package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/orichalcum/pkg/flow"
)

// Overlay contains run data to visualize on the graph.
type Overlay struct {
	// Visited holds step names, as in flow.Outcome.Path.
	Visited []string
	Current string
}

// Mermaid produces a Mermaid flowchart of the graph reachable from start.
// Shapes:
// - Start: ((Circle))
// - Sealed task: ([Stadium]) with its signature
// - Nested flow or batch flow: [[Subroutine]]
// - Default: [Rectangle]
func Mermaid(start flow.Executable, overlay *Overlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")
	if start == nil {
		return sb.String()
	}

	ids := newIDs()
	order := walk(start)

	for _, n := range order {
		id := ids.of(n)
		opener, closer := "[", "]"
		label := n.Name()

		switch x := n.(type) {
		case *flow.Sealed:
			opener, closer = "([", "])"
			label = fmt.Sprintf("%s <br/> %s", x.TaskID(), x.Signature().String())
		case *flow.Flow, *flow.BatchFlow:
			opener, closer = "[[", "]]"
		}
		if n == start {
			opener, closer = "((", "))"
		}
		fmt.Fprintf(&sb, "    %s%s\"%s\"%s\n", id, opener, escape(label), closer)

		for _, edge := range n.Successors() {
			to := ids.of(edge.Target)
			if edge.Action == flow.DefaultAction {
				fmt.Fprintf(&sb, "    %s --> %s\n", id, to)
				continue
			}
			fmt.Fprintf(&sb, "    %s -- \"%s\" --> %s\n", id, escape(string(edge.Action)), to)
		}
	}

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Force black text (color:#000) for high-contrast on light backgrounds
		sb.WriteString("    classDef visited fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")

		byName := make(map[string]string, len(order))
		for _, n := range order {
			if _, ok := byName[n.Name()]; !ok {
				byName[n.Name()] = ids.of(n)
			}
		}
		styled := make(map[string]bool)
		for _, name := range overlay.Visited {
			id, ok := byName[name]
			if ok && !styled[id] {
				styled[id] = true
				fmt.Fprintf(&sb, "    class %s visited;\n", id)
			}
		}
		if id, ok := byName[overlay.Current]; ok {
			fmt.Fprintf(&sb, "    class %s current;\n", id)
		}
	}

	return sb.String()
}

// walk lists executables reachable from start in depth-first order.
func walk(start flow.Executable) []flow.Executable {
	seen := map[flow.Executable]bool{}
	var order []flow.Executable
	var visit func(flow.Executable)
	visit = func(n flow.Executable) {
		if n == nil || seen[n] {
			return
		}
		seen[n] = true
		order = append(order, n)
		for _, e := range n.Successors() {
			visit(e.Target)
		}
	}
	visit(start)
	return order
}

// idTable hands out stable Mermaid identifiers, one per executable.
type idTable struct {
	byExec map[flow.Executable]string
	taken  map[string]bool
}

func newIDs() *idTable {
	return &idTable{byExec: map[flow.Executable]string{}, taken: map[string]bool{}}
}

func (m *idTable) of(n flow.Executable) string {
	if id, ok := m.byExec[n]; ok {
		return id
	}
	base := sanitizeMermaidID(n.Name())
	id := base
	for i := 2; m.taken[id]; i++ {
		id = fmt.Sprintf("%s_%d", base, i)
	}
	m.taken[id] = true
	m.byExec[n] = id
	return id
}

func sanitizeMermaidID(id string) string {
	s := strings.Map(func(r rune) rune {
		switch r {
		case '.', '-', '/', '\\', '#', ' ', ':':
			return '_'
		}
		return r
	}, id)
	if s == "" {
		return "node"
	}
	return s
}

func escape(s string) string {
	return strings.ReplaceAll(s, "\"", "'")
}
