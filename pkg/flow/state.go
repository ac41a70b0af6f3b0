package flow

import (
	"sort"

	"github.com/aretw0/orichalcum/pkg/value"
)

// Action is the label a finalize step returns to pick the next step.
type Action string

const (
	// NoAction ends the traversal.
	NoAction Action = ""
	// DefaultAction is the label conventionally used for a single successor.
	DefaultAction Action = "default"
)

// Params are the read-only parameters a step receives for one run.
type Params map[string]value.Value

func (p Params) Get(key string) (value.Value, bool) {
	v, ok := p[key]
	return v, ok
}

// Clone returns a shallow copy; values are immutable so this is a full copy.
func (p Params) Clone() Params {
	out := make(Params, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// with returns p overlaid by over. Neither input is modified.
func (p Params) with(over Params) Params {
	if len(over) == 0 {
		return p
	}
	if len(p) == 0 {
		return over
	}
	out := p.Clone()
	for k, v := range over {
		out[k] = v
	}
	return out
}

// Reader is the read-only view of shared state handed to prepare steps.
type Reader interface {
	Get(key string) (value.Value, bool)
	Has(key string) bool
	Keys() []string
	Len() int
}

// State is the shared store threaded through a flow run. The caller creates
// it, finalize steps mutate it, and its final contents are the run's result.
type State map[string]value.Value

func NewState() State { return State{} }

func (s State) Get(key string) (value.Value, bool) {
	v, ok := s[key]
	return v, ok
}

func (s State) Has(key string) bool {
	_, ok := s[key]
	return ok
}

// Keys returns the keys in sorted order.
func (s State) Keys() []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (s State) Len() int { return len(s) }

func (s State) Set(key string, v value.Value) { s[key] = v }

func (s State) Delete(key string) { delete(s, key) }

// Clone copies the state.
func (s State) Clone() State {
	out := make(State, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// Snapshot returns the state as a Map value.
func (s State) Snapshot() value.Value {
	return value.Map(s)
}

// ReadOnly wraps s so that it cannot be asserted back to State.
func (s State) ReadOnly() Reader {
	return readOnly{s: s}
}

type readOnly struct{ s State }

func (r readOnly) Get(key string) (value.Value, bool) { return r.s.Get(key) }
func (r readOnly) Has(key string) bool                { return r.s.Has(key) }
func (r readOnly) Keys() []string                     { return r.s.Keys() }
func (r readOnly) Len() int                           { return r.s.Len() }

// pick gathers the named keys present in the state into a Map value.
func pick(r Reader, names []string) value.Value {
	out := make(map[string]value.Value, len(names))
	for _, n := range names {
		if v, ok := r.Get(n); ok {
			out[n] = v
		}
	}
	return value.Map(out)
}
