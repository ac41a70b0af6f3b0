package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/aretw0/orichalcum/internal/config"
	"github.com/aretw0/orichalcum/internal/dto"
	"github.com/aretw0/orichalcum/pkg/dsl"
	"github.com/aretw0/orichalcum/pkg/flow"
	"github.com/aretw0/orichalcum/pkg/llm"
	"github.com/aretw0/orichalcum/pkg/registry"
	"github.com/aretw0/orichalcum/pkg/semantic"
	"github.com/aretw0/orichalcum/pkg/value"
)

// BuildSemantic turns every node of g into a semantic task answered by
// provider, and wires them into an async flow. Sampling settings come from
// settings; a node's own model wins over settings.Model.
func BuildSemantic(g *dto.GraphFile, provider llm.Provider, settings config.LLM, reg *registry.Registry, logger *slog.Logger, opts ...flow.Option) (*flow.Flow, error) {
	b := dsl.New()
	var errs []error
	for _, n := range g.Nodes {
		model := n.Model
		if model == "" {
			model = settings.Model
		}
		task, err := semantic.New(provider).
			TaskID(n.Task()).
			Instruction(n.Instruction).
			Signature(n.Signature).
			Model(model).
			Temperature(settings.Temperature).
			WithLogger(logger).
			Seal(reg)
		if err != nil {
			errs = append(errs, fmt.Errorf("node %q: %w", n.ID, err))
			continue
		}
		nb := b.Add(n.ID, task)
		labels := make([]string, 0, len(n.Next))
		for label := range n.Next {
			labels = append(labels, label)
		}
		sort.Strings(labels)
		for _, label := range labels {
			nb.On(flow.Action(label), n.Next[label])
		}
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	if g.Name != "" {
		opts = append([]flow.Option{flow.WithFlowName(g.Name)}, opts...)
	}
	return b.BuildAsync(g.Start, opts...)
}

// ParseInputs reads key=value pairs. Values that parse as JSON keep their
// type; anything else is text.
func ParseInputs(pairs []string) (flow.State, error) {
	state := flow.NewState()
	for _, p := range pairs {
		key, raw, ok := strings.Cut(p, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid input %q, want key=value", p)
		}
		v, err := value.ParseJSON([]byte(raw))
		if err != nil {
			v = value.Text(raw)
		}
		state.Set(key, v)
	}
	return state, nil
}

// RunSemantic validates f against the given inputs, then runs it.
// Validation errors abort before any model call.
func RunSemantic(ctx context.Context, f *flow.Flow, shared flow.State) (flow.Outcome, error) {
	res := f.Validate(shared.Keys()...)
	if err := res.Err(); err != nil {
		return flow.Outcome{}, fmt.Errorf("graph is not runnable: %w", err)
	}
	return f.Execute(ctx, shared)
}
