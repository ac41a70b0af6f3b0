package flow

import (
	"context"
	"time"
)

// FlowEvent describes the start or end of a flow traversal.
type FlowEvent struct {
	Timestamp time.Time
	RunID     string
	Flow      string
	Steps     int           // set on end
	Action    Action        // set on end
	Duration  time.Duration // set on end
	Err       error         // set on end
}

// StepEvent describes one step of a traversal.
type StepEvent struct {
	Timestamp time.Time
	RunID     string
	Flow      string
	Node      string
	Step      int
	Action    Action        // set on end
	Duration  time.Duration // set on end
	Err       error         // set on end
}

// Hooks defines callbacks for engine observability. Nil callbacks are
// skipped. Callbacks run on the driver goroutine and must not touch shared
// state.
type Hooks struct {
	OnFlowStart func(context.Context, *FlowEvent)
	OnFlowEnd   func(context.Context, *FlowEvent)
	OnStepStart func(context.Context, *StepEvent)
	OnStepEnd   func(context.Context, *StepEvent)
}

func (h Hooks) empty() bool {
	return h.OnFlowStart == nil && h.OnFlowEnd == nil && h.OnStepStart == nil && h.OnStepEnd == nil
}

// CombineHooks calls each set of hooks in order.
func CombineHooks(all ...Hooks) Hooks {
	var out Hooks
	for _, h := range all {
		h := h
		out.OnFlowStart = chainFlow(out.OnFlowStart, h.OnFlowStart)
		out.OnFlowEnd = chainFlow(out.OnFlowEnd, h.OnFlowEnd)
		out.OnStepStart = chainStep(out.OnStepStart, h.OnStepStart)
		out.OnStepEnd = chainStep(out.OnStepEnd, h.OnStepEnd)
	}
	return out
}

func chainFlow(a, b func(context.Context, *FlowEvent)) func(context.Context, *FlowEvent) {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	}
	return func(ctx context.Context, ev *FlowEvent) {
		a(ctx, ev)
		b(ctx, ev)
	}
}

func chainStep(a, b func(context.Context, *StepEvent)) func(context.Context, *StepEvent) {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	}
	return func(ctx context.Context, ev *StepEvent) {
		a(ctx, ev)
		b(ctx, ev)
	}
}

func (h Hooks) flowStart(ctx context.Context, ev *FlowEvent) {
	if h.OnFlowStart != nil {
		h.OnFlowStart(ctx, ev)
	}
}

func (h Hooks) flowEnd(ctx context.Context, ev *FlowEvent) {
	if h.OnFlowEnd != nil {
		h.OnFlowEnd(ctx, ev)
	}
}

func (h Hooks) stepStart(ctx context.Context, ev *StepEvent) {
	if h.OnStepStart != nil {
		h.OnStepStart(ctx, ev)
	}
}

func (h Hooks) stepEnd(ctx context.Context, ev *StepEvent) {
	if h.OnStepEnd != nil {
		h.OnStepEnd(ctx, ev)
	}
}
