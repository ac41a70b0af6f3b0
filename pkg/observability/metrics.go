package observability

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/aretw0/orichalcum/pkg/flow"
	"github.com/aretw0/orichalcum/pkg/schema"
	"github.com/aretw0/orichalcum/pkg/telemetry"
)

const namespace = "orichalcum"

// Metrics holds the engine collectors.
type Metrics struct {
	flowRuns     *prometheus.CounterVec
	flowDuration *prometheus.HistogramVec
	steps        *prometheus.CounterVec
	stepDuration *prometheus.HistogramVec
	tasks        *prometheus.CounterVec
	taskDuration *prometheus.HistogramVec
	issues       *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		flowRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "flow_runs_total",
			Help:      "Total number of flow runs by outcome.",
		}, []string{"flow", "result"}),
		flowDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "flow_duration_seconds",
			Help:      "Duration of flow runs.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"flow"}),
		steps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "steps_total",
			Help:      "Total number of executed steps.",
		}, []string{"flow", "node", "action"}),
		stepDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "step_duration_seconds",
			Help:      "Duration of single steps.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"node"}),
		tasks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "task_executions_total",
			Help:      "Total number of sealed task executions.",
		}, []string{"task", "model"}),
		taskDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "task_duration_seconds",
			Help:      "Duration of sealed task executions.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"task"}),
		issues: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "contract_issues_total",
			Help:      "Total number of contract issues seen at runtime.",
		}, []string{"task", "code", "severity"}),
	}

	for _, c := range []prometheus.Collector{
		m.flowRuns, m.flowDuration, m.steps, m.stepDuration, m.tasks, m.taskDuration, m.issues,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Hooks counts flow runs and steps.
func (m *Metrics) Hooks() flow.Hooks {
	return flow.Hooks{
		OnFlowEnd: func(_ context.Context, e *flow.FlowEvent) {
			result := "ok"
			if e.Err != nil {
				result = "error"
			}
			m.flowRuns.WithLabelValues(e.Flow, result).Inc()
			m.flowDuration.WithLabelValues(e.Flow).Observe(e.Duration.Seconds())
		},
		OnStepEnd: func(_ context.Context, e *flow.StepEvent) {
			action := string(e.Action)
			if e.Err != nil {
				action = "error"
			}
			m.steps.WithLabelValues(e.Flow, e.Node, action).Inc()
			m.stepDuration.WithLabelValues(e.Node).Observe(e.Duration.Seconds())
		},
	}
}

func (m *Metrics) Record(_ context.Context, e telemetry.Event) error {
	m.tasks.WithLabelValues(e.TaskID, e.Model).Inc()
	m.taskDuration.WithLabelValues(e.TaskID).Observe(e.Duration().Seconds())
	return nil
}

func (m *Metrics) RecordIssue(_ context.Context, issue schema.ValidationIssue) error {
	m.issues.WithLabelValues(issue.TaskID, string(issue.Code), string(issue.Severity)).Inc()
	return nil
}

// Flush is a no-op. Collectors are read on scrape.
func (m *Metrics) Flush(context.Context) error { return nil }
