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

func flaky(failures int) (*int, Funcs) {
	calls := 0
	return &calls, Funcs{
		ExecFn: func(value.Value) (value.Value, error) {
			calls++
			if calls <= failures {
				return value.Null(), errors.New("transient")
			}
			return value.Text("ok"), nil
		},
		PostFn: func(s State, _, executed value.Value) (Action, error) {
			s.Set("result", executed)
			return NoAction, nil
		},
	}
}

func TestRetry(t *testing.T) {
	calls, logic := flaky(2)
	state := NewState()
	_, err := NewNode(Retry(logic, 3, 0)).Run(context.Background(), state)
	require.NoError(t, err)
	assert.Equal(t, 3, *calls)
	assert.True(t, state["result"].Equal(value.Text("ok")))
}

func TestRetry_GivesUp(t *testing.T) {
	calls, logic := flaky(5)
	_, err := NewNode(Retry(logic, 2, time.Millisecond)).Run(context.Background(), NewState())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 2 attempts: transient")
	assert.Equal(t, 2, *calls)
}

func TestAsyncRetry_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	logic := AsyncFuncs{
		ExecFn: func(context.Context, value.Value) (value.Value, error) {
			calls++
			cancel()
			return value.Null(), errors.New("transient")
		},
	}
	_, err := NewAsyncNode(AsyncRetry(logic, 5, time.Hour)).Run(ctx, NewState())
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestTimeout(t *testing.T) {
	logic := AsyncFuncs{
		ExecFn: func(ctx context.Context, _ value.Value) (value.Value, error) {
			<-ctx.Done()
			return value.Null(), ctx.Err()
		},
	}
	_, err := NewAsync(NewAsyncNode(Timeout(logic, 5*time.Millisecond))).Run(context.Background(), NewState())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestLift_RefusesCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Lift(Funcs{}).Exec(ctx, value.Null())
	assert.ErrorIs(t, err, context.Canceled)
}
