package orichalcum_test

import (
	"context"
	"fmt"
	"log"

	"github.com/aretw0/orichalcum/pkg/flow"
	"github.com/aretw0/orichalcum/pkg/registry"
	"github.com/aretw0/orichalcum/pkg/value"
)

// Example shows two steps routed by the default label.
func Example() {
	start := flow.NewNode(flow.Funcs{
		PostFn: func(shared flow.State, _, _ value.Value) (flow.Action, error) {
			shared.Set("name", value.Text("Orichalcum"))
			return flow.DefaultAction, nil
		},
	}, flow.WithName("start"))

	greet := flow.NewNode(flow.Funcs{
		PrepFn: func(_ flow.Params, shared flow.Reader) (value.Value, error) {
			name, _ := shared.Get("name")
			return name, nil
		},
		PostFn: func(_ flow.State, prepared, _ value.Value) (flow.Action, error) {
			name, _ := prepared.AsText()
			fmt.Println("hello,", name)
			return flow.NoAction, nil
		},
	}, flow.WithName("greet"))
	start.Next(greet)

	shared := flow.NewState()
	out, err := flow.New(start).Execute(context.Background(), shared)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Println("steps:", out.Steps)
	fmt.Println("state:", shared.Snapshot())
	// Output:
	// hello, Orichalcum
	// steps: 2
	// state: {name: "Orichalcum"}
}

// squares sums the squares of the "items" list.
type squares struct{}

func (squares) Prep(_ flow.Params, shared flow.Reader) (value.Value, error) {
	items, _ := shared.Get("items")
	return items, nil
}

func (squares) Exec(_ context.Context, item value.Value) (value.Value, error) {
	n, _ := item.AsNumber()
	return value.Number(n * n), nil
}

func (squares) Post(shared flow.State, _, executed value.Value) (flow.Action, error) {
	results, _ := executed.AsList()
	sum := 0.0
	for _, r := range results {
		n, _ := r.AsNumber()
		sum += n
	}
	shared.Set("sum", value.Number(sum))
	return flow.NoAction, nil
}

// Example_parallelBatch runs the per-item step with at most two
// items in flight.
func Example_parallelBatch() {
	node, err := flow.NewParallelBatchNode(squares{}, 2)
	if err != nil {
		log.Fatal(err)
	}

	shared := flow.NewState()
	shared.Set("items", value.List(value.Int(1), value.Int(2), value.Int(3)))
	if _, err := flow.NewAsync(node).Run(context.Background(), shared); err != nil {
		log.Fatal(err)
	}

	sum, _ := shared.Get("sum")
	fmt.Println(value.Map(map[string]value.Value{"sum": sum}))
	// Output: {sum: 14}
}

// Example_validate checks a graph before running it.
func Example_validate() {
	reg := registry.New()
	noop := func() *flow.Node { return flow.NewNode(flow.Funcs{}) }

	ask, _ := flow.Seal(reg, noop(), flow.SealConfig{
		TaskID:      "ask",
		Instruction: "Ask a question.",
		Signature:   "-> question",
	})
	answer, _ := flow.Seal(reg, noop(), flow.SealConfig{
		TaskID:      "answer",
		Instruction: "Answer it.",
		Signature:   "question, context -> answer",
	})
	_ = flow.Link(ask, flow.DefaultAction, answer)

	res := flow.Validate(ask)
	for _, issue := range res.Issues {
		fmt.Println(issue.Severity, issue.Node, issue.Field)
	}

	_, err := flow.Seal(reg, noop(), flow.SealConfig{
		TaskID:      "ask",
		Instruction: "Again.",
		Signature:   "->",
	})
	fmt.Println(err != nil)
	// Output:
	// error answer context
	// true
}
