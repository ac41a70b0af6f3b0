package flow

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/orichalcum/pkg/value"
)

func TestFlow_TwoSteps(t *testing.T) {
	var seen value.Value
	start := setNode("start", "name", value.Text("Orichalcum"), DefaultAction)
	reader := NewNode(Funcs{
		PrepFn: func(_ Params, shared Reader) (value.Value, error) {
			v, _ := shared.Get("name")
			return v, nil
		},
		PostFn: func(_ State, prepared, _ value.Value) (Action, error) {
			seen = prepared
			return NoAction, nil
		},
	}, WithName("reader"))
	start.Next(reader)

	state := NewState()
	out, err := New(start).Execute(context.Background(), state)
	require.NoError(t, err)

	assert.Equal(t, 2, out.Steps)
	assert.Equal(t, []string{"start", "reader"}, out.Path)
	assert.Equal(t, NoAction, out.Action)
	assert.True(t, seen.Equal(value.Text("Orichalcum")))
	assert.Equal(t, State{"name": value.Text("Orichalcum")}, state)
}

func TestFlow_UnmatchedLabelTerminates(t *testing.T) {
	first := setNode("first", "a", value.Int(1), "approve")
	never := setNode("never", "b", value.Int(2), NoAction)
	first.On("reject", never)

	state := NewState()
	out, err := New(first).Execute(context.Background(), state)
	require.NoError(t, err)

	assert.Equal(t, 1, out.Steps)
	assert.Equal(t, Action("approve"), out.Action)
	assert.Equal(t, State{"a": value.Int(1)}, state, "state is unchanged after the last finalize")
}

func TestFlow_UnmatchedPolicies(t *testing.T) {
	t.Run("warn", func(t *testing.T) {
		logger, buf := bufferLogger()
		_, err := New(returnNode("n", "typo"), WithLogger(logger), WithUnmatchedLabel(UnmatchedWarn)).
			Run(context.Background(), NewState())
		require.NoError(t, err)
		assert.Contains(t, buf.String(), "no successor for action")
		assert.Contains(t, buf.String(), "action=typo")
	})

	t.Run("fail", func(t *testing.T) {
		_, err := New(returnNode("n", "typo"), WithUnmatchedLabel(UnmatchedFail)).
			Run(context.Background(), NewState())
		require.ErrorIs(t, err, ErrUnmatchedAction)

		var stepErr *StepError
		require.ErrorAs(t, err, &stepErr)
		assert.Equal(t, PhaseRoute, stepErr.Phase)
	})

	t.Run("default label never fails", func(t *testing.T) {
		_, err := New(returnNode("n", DefaultAction), WithUnmatchedLabel(UnmatchedFail)).
			Run(context.Background(), NewState())
		assert.NoError(t, err)
	})
}

func TestFlow_StepErrorStopsRun(t *testing.T) {
	boom := errors.New("boom")
	first := setNode("first", "kept", value.Bool(true), DefaultAction)
	failing := NewNode(Funcs{
		ExecFn: func(value.Value) (value.Value, error) { return value.Null(), boom },
	}, WithName("failing"))
	after := setNode("after", "never", value.Bool(true), NoAction)
	first.Next(failing)
	failing.Next(after)

	state := NewState()
	out, err := New(first).Execute(context.Background(), state)
	require.ErrorIs(t, err, boom)

	var stepErr *StepError
	require.ErrorAs(t, err, &stepErr)
	assert.Equal(t, "failing", stepErr.Node)
	assert.Equal(t, PhaseExec, stepErr.Phase)
	assert.Equal(t, 2, out.Steps)
	assert.Equal(t, State{"kept": value.Bool(true)}, state, "no rollback of completed finalize steps")
}

func TestFlow_PhasesWrapErrors(t *testing.T) {
	for _, phase := range []Phase{PhasePrep, PhasePost} {
		t.Run(string(phase), func(t *testing.T) {
			fail := func() error { return errors.New(string(phase)) }
			logic := Funcs{}
			if phase == PhasePrep {
				logic.PrepFn = func(Params, Reader) (value.Value, error) { return value.Null(), fail() }
			} else {
				logic.PostFn = func(State, value.Value, value.Value) (Action, error) { return NoAction, fail() }
			}
			_, err := New(NewNode(logic)).Run(context.Background(), NewState())
			var stepErr *StepError
			require.ErrorAs(t, err, &stepErr)
			assert.Equal(t, phase, stepErr.Phase)
		})
	}
}

func TestFlow_CycleWithExit(t *testing.T) {
	loop := NewNode(Funcs{
		PostFn: func(s State, _, _ value.Value) (Action, error) {
			n, _ := s["count"].AsInt()
			s.Set("count", value.Int(n+1))
			if n+1 >= 3 {
				return NoAction, nil
			}
			return "again", nil
		},
	}, WithName("loop"))
	loop.On("again", loop)

	state := State{"count": value.Int(0)}
	out, err := New(loop).Execute(context.Background(), state)
	require.NoError(t, err)
	assert.Equal(t, 3, out.Steps)
	assert.True(t, state["count"].Equal(value.Int(3)))
}

func TestFlow_MaxSteps(t *testing.T) {
	spin := returnNode("spin", DefaultAction)
	spin.Next(spin)

	out, err := New(spin, WithMaxSteps(5)).Execute(context.Background(), NewState())
	require.ErrorIs(t, err, ErrMaxSteps)
	assert.Equal(t, 5, out.Steps)
}

func TestFlow_AsyncStepInSyncFlow(t *testing.T) {
	async := NewAsyncNode(AsyncFuncs{}, WithName("remote"))
	start := returnNode("start", DefaultAction)
	start.Next(async)

	out, err := New(start).Execute(context.Background(), NewState())
	require.ErrorIs(t, err, ErrAsyncInSyncFlow)
	assert.Equal(t, 1, out.Steps)

	var stepErr *StepError
	require.ErrorAs(t, err, &stepErr)
	assert.Equal(t, "remote", stepErr.Node)
}

func TestAsyncFlow_MixedSteps(t *testing.T) {
	fetch := NewAsyncNode(AsyncFuncs{
		ExecFn: func(ctx context.Context, _ value.Value) (value.Value, error) {
			select {
			case <-time.After(5 * time.Millisecond):
				return value.Text("fetched"), nil
			case <-ctx.Done():
				return value.Null(), ctx.Err()
			}
		},
		PostFn: func(s State, _, executed value.Value) (Action, error) {
			s.Set("body", executed)
			return DefaultAction, nil
		},
	}, WithName("fetch"))
	fetch.Next(setNode("done", "ok", value.Bool(true), NoAction))

	state := NewState()
	out, err := NewAsync(fetch).Execute(context.Background(), state)
	require.NoError(t, err)
	assert.Equal(t, 2, out.Steps)
	assert.True(t, state["body"].Equal(value.Text("fetched")))
	assert.Equal(t, ModeAsync, NewAsync(fetch).Mode())
}

func TestAsyncFlow_Cancellation(t *testing.T) {
	started := make(chan struct{})
	stuck := NewAsyncNode(AsyncFuncs{
		ExecFn: func(context.Context, value.Value) (value.Value, error) {
			close(started)
			select {} // ignores ctx on purpose
		},
	})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-started
		cancel()
	}()

	_, err := NewAsync(stuck).Run(ctx, NewState())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFlow_CanceledBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	out, err := New(returnNode("n", NoAction)).Execute(ctx, NewState())
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, out.Steps)
}

func TestFlow_Nested(t *testing.T) {
	inner := setNode("inner-a", "inner", value.Bool(true), DefaultAction)
	inner.Next(returnNode("inner-b", "finished"))
	sub := New(inner, WithFlowName("sub"))

	outer := returnNode("outer", DefaultAction)
	outer.Next(sub)
	sub.On("finished", setNode("after", "after", value.Bool(true), NoAction))

	state := NewState()
	out, err := New(outer).Execute(context.Background(), state)
	require.NoError(t, err)
	assert.Equal(t, []string{"outer", "sub", "after"}, out.Path)
	assert.Equal(t, 3, out.Steps)
	assert.True(t, state.Has("inner"))
	assert.True(t, state.Has("after"))
}

func TestFlow_ParamsPropagate(t *testing.T) {
	var got value.Value
	capture := NewNode(Funcs{
		PrepFn: func(p Params, _ Reader) (value.Value, error) {
			return value.Map(p), nil
		},
		PostFn: func(_ State, prepared, _ value.Value) (Action, error) {
			got = prepared
			return NoAction, nil
		},
	}, WithParams(Params{"own": value.Int(1), "shared": value.Text("node")}))

	f := New(capture, WithFlowParams(Params{"shared": value.Text("flow")}))
	_, err := f.Run(context.Background(), NewState())
	require.NoError(t, err)

	own, _ := got.Field("own")
	shared, _ := got.Field("shared")
	assert.True(t, own.Equal(value.Int(1)))
	assert.True(t, shared.Equal(value.Text("flow")), "flow parameters override node parameters")
}

func TestNode_PrepGetsReadOnlyView(t *testing.T) {
	node := NewNode(Funcs{
		PrepFn: func(_ Params, shared Reader) (value.Value, error) {
			if _, ok := shared.(State); ok {
				return value.Null(), errors.New("prep received a writable state")
			}
			return value.Int(shared.Len()), nil
		},
	})
	_, err := node.Run(context.Background(), State{"x": value.Null()})
	assert.NoError(t, err)
}

func TestNode_OverwriteWarns(t *testing.T) {
	logger, buf := bufferLogger()
	n := returnNode("n", NoAction)
	n.logger = logger

	n.Next(returnNode("a", NoAction))
	n.Next(returnNode("b", NoAction))

	assert.Contains(t, buf.String(), "overwriting successor")
	require.Len(t, n.Successors(), 1)
	assert.Equal(t, "b", n.Successors()[0].Target.Name())
}

func TestNode_RunIgnoresSuccessors(t *testing.T) {
	n := setNode("solo", "x", value.Int(1), DefaultAction)
	n.Next(setNode("next", "y", value.Int(2), NoAction))

	state := NewState()
	action, err := n.Run(context.Background(), state)
	require.NoError(t, err)
	assert.Equal(t, DefaultAction, action)
	assert.False(t, state.Has("y"))
}

func TestFlow_Hooks(t *testing.T) {
	var starts, ends int
	var runIDs []string
	var flowEnd *FlowEvent
	hooks := Hooks{
		OnStepStart: func(_ context.Context, ev *StepEvent) {
			starts++
			runIDs = append(runIDs, ev.RunID)
		},
		OnStepEnd: func(_ context.Context, ev *StepEvent) { ends++ },
		OnFlowEnd: func(_ context.Context, ev *FlowEvent) { flowEnd = ev },
	}

	a := returnNode("a", DefaultAction)
	a.Next(returnNode("b", NoAction))
	_, err := New(a, WithHooks(hooks), WithFlowName("hooked")).Run(context.Background(), NewState())
	require.NoError(t, err)

	assert.Equal(t, 2, starts)
	assert.Equal(t, 2, ends)
	require.Len(t, runIDs, 2)
	assert.NotEmpty(t, runIDs[0])
	assert.Equal(t, runIDs[0], runIDs[1])
	require.NotNil(t, flowEnd)
	assert.Equal(t, "hooked", flowEnd.Flow)
	assert.Equal(t, 2, flowEnd.Steps)
}

func TestFlow_NoStart(t *testing.T) {
	_, err := New(nil).Run(context.Background(), NewState())
	assert.ErrorIs(t, err, ErrNoStart)
}

func TestLink(t *testing.T) {
	a, b := returnNode("a", DefaultAction), returnNode("b", NoAction)
	require.NoError(t, Link(a, DefaultAction, b))
	next, ok := a.Successor(DefaultAction)
	require.True(t, ok)
	assert.Same(t, b, next)

	assert.Error(t, Link(nil, DefaultAction, b))
}

func TestParsePolicies(t *testing.T) {
	p, err := ParseUnmatchedPolicy("warn")
	require.NoError(t, err)
	assert.Equal(t, UnmatchedWarn, p)
	_, err = ParseUnmatchedPolicy("explode")
	assert.Error(t, err)

	m, err := ParseCheckMode("enforce")
	require.NoError(t, err)
	assert.Equal(t, ChecksEnforce, m)
	_, err = ParseCheckMode("sometimes")
	assert.Error(t, err)
}
