package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/orichalcum/pkg/flow"
)

// LogHooks writes one debug line per step and one info line per flow run.
func LogHooks(logger *slog.Logger) flow.Hooks {
	return flow.Hooks{
		OnFlowStart: func(ctx context.Context, e *flow.FlowEvent) {
			logger.DebugContext(ctx, "flow_start", "run_id", e.RunID, "flow", e.Flow)
		},
		OnFlowEnd: func(ctx context.Context, e *flow.FlowEvent) {
			attrs := []any{
				"run_id", e.RunID,
				"flow", e.Flow,
				"steps", e.Steps,
				"action", string(e.Action),
				"duration", e.Duration,
			}
			if e.Err != nil {
				logger.ErrorContext(ctx, "flow_end", append(attrs, "error", e.Err)...)
				return
			}
			logger.InfoContext(ctx, "flow_end", attrs...)
		},
		OnStepEnd: func(ctx context.Context, e *flow.StepEvent) {
			logger.DebugContext(ctx, "step_end",
				"run_id", e.RunID,
				"node", e.Node,
				"step", e.Step,
				"action", string(e.Action),
				"duration", e.Duration,
			)
		},
	}
}
