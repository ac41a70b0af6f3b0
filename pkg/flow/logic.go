package flow

import (
	"context"

	"github.com/aretw0/orichalcum/pkg/value"
)

// Logic is the body of a synchronous node.
//
// Prep reads params and shared state and returns the input of Exec. Exec is
// pure: it sees only the prepared value. Post is the only step that may
// write shared state; the Action it returns selects the successor.
type Logic interface {
	Prep(params Params, shared Reader) (value.Value, error)
	Exec(prepared value.Value) (value.Value, error)
	Post(shared State, prepared, executed value.Value) (Action, error)
}

// AsyncLogic is the body of an asynchronous node. Only Exec may block on
// I/O; it must honor ctx.
type AsyncLogic interface {
	Prep(params Params, shared Reader) (value.Value, error)
	Exec(ctx context.Context, prepared value.Value) (value.Value, error)
	Post(shared State, prepared, executed value.Value) (Action, error)
}

// Funcs adapts plain functions to Logic. Nil functions fall back to:
// Prep returns Null, Exec returns Null, Post returns NoAction.
type Funcs struct {
	PrepFn func(params Params, shared Reader) (value.Value, error)
	ExecFn func(prepared value.Value) (value.Value, error)
	PostFn func(shared State, prepared, executed value.Value) (Action, error)
}

func (f Funcs) Prep(params Params, shared Reader) (value.Value, error) {
	if f.PrepFn == nil {
		return value.Null(), nil
	}
	return f.PrepFn(params, shared)
}

func (f Funcs) Exec(prepared value.Value) (value.Value, error) {
	if f.ExecFn == nil {
		return value.Null(), nil
	}
	return f.ExecFn(prepared)
}

func (f Funcs) Post(shared State, prepared, executed value.Value) (Action, error) {
	if f.PostFn == nil {
		return NoAction, nil
	}
	return f.PostFn(shared, prepared, executed)
}

// AsyncFuncs adapts plain functions to AsyncLogic, with the same defaults as
// Funcs.
type AsyncFuncs struct {
	PrepFn func(params Params, shared Reader) (value.Value, error)
	ExecFn func(ctx context.Context, prepared value.Value) (value.Value, error)
	PostFn func(shared State, prepared, executed value.Value) (Action, error)
}

func (f AsyncFuncs) Prep(params Params, shared Reader) (value.Value, error) {
	if f.PrepFn == nil {
		return value.Null(), nil
	}
	return f.PrepFn(params, shared)
}

func (f AsyncFuncs) Exec(ctx context.Context, prepared value.Value) (value.Value, error) {
	if f.ExecFn == nil {
		return value.Null(), nil
	}
	return f.ExecFn(ctx, prepared)
}

func (f AsyncFuncs) Post(shared State, prepared, executed value.Value) (Action, error) {
	if f.PostFn == nil {
		return NoAction, nil
	}
	return f.PostFn(shared, prepared, executed)
}

// Lift turns synchronous logic into AsyncLogic so it can run in the async or
// parallel regimes. Exec refuses to start once ctx is done.
func Lift(logic Logic) AsyncLogic {
	return lifted{logic}
}

type lifted struct{ Logic }

func (l lifted) Exec(ctx context.Context, prepared value.Value) (value.Value, error) {
	if err := ctx.Err(); err != nil {
		return value.Null(), err
	}
	return l.Logic.Exec(prepared)
}
