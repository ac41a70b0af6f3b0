/*
Package flow is the execution engine: nodes, flows, batches, sealed tasks
and the static contract validator.

A node runs three steps. Prep reads parameters and a read-only view of the
shared state, Exec transforms the prepared value without touching state, and
Post writes results back and returns an Action. The Action is looked up in
the node's successor table to pick the next step; an empty Action or one
with no successor ends the run.

	greet := flow.NewNode(flow.Funcs{
		PostFn: func(s flow.State, _, _ value.Value) (flow.Action, error) {
			s.Set("name", value.Text("Orichalcum"))
			return flow.DefaultAction, nil
		},
	})
	greet.Next(flow.NewNode(flow.Funcs{}))
	_, err := flow.New(greet).Run(ctx, flow.NewState())

Flows are Executables too, so they nest. A sync flow (New) rejects async
steps with ErrAsyncInSyncFlow; an async flow (NewAsync) runs both, letting
async Exec calls suspend while Prep and Post stay on the driver goroutine.
Shared state is only written by Post, one step at a time, so it needs no
locking.

Seal attaches a signature and a task id, claimed in an explicit
registry.Registry, to any Executable. Sealed tasks emit telemetry events and
can be checked at run time (WithContractChecks) and statically (Validate).
*/
package flow
