/*
Package orichalcum is a small graph workflow engine. A workflow is a graph of
steps; each step prepares an input from shared state, executes on it and
finalizes by writing state back and returning a label that picks the next
step.

# Concept

Every step runs three phases:

  - Prep reads parameters and shared state.
  - Exec does the work and sees only what Prep returned. It is the only
    phase that may block on I/O, and the only one that runs concurrently in
    parallel batches.
  - Post writes shared state and returns an action label.

Flows are steps too, so a flow can be embedded in another flow. Sealed tasks
add a typed signature ("question -> answer") and a unique task id, which
lets the validator prove before a run that every required input is produced
upstream on every path.

# Packages

  - pkg/flow: nodes, flows, batches, sealing and the dataflow validator.
  - pkg/schema: signatures, fields and validation issues.
  - pkg/value: the dynamic value held in shared state.
  - pkg/registry: task id ownership and optimization records.
  - pkg/telemetry: execution events and sinks.
  - pkg/semantic, pkg/llm: steps answered by a language model.
  - pkg/dsl: graphs built from string ids.
  - pkg/observability: Prometheus metrics and log hooks.
  - pkg/adapters: Redis telemetry, OpenAI completions and the HTTP API.

# Usage

	greet := flow.NewNode(flow.Funcs{
		PostFn: func(shared flow.State, _, _ value.Value) (flow.Action, error) {
			shared.Set("name", value.Text("Orichalcum"))
			return flow.DefaultAction, nil
		},
	})
	greet.Next(nextStep)

	out, err := flow.New(greet).Execute(ctx, flow.NewState())
*/
package orichalcum
