/*
Package observability exports engine activity as Prometheus metrics and
structured log lines.

Metrics plugs into a flow twice: its Hooks count flows and steps, and as a
telemetry.Sink it counts sealed task executions and contract issues.

	m, _ := observability.NewMetrics(prometheus.DefaultRegisterer)
	f := flow.New(start, flow.WithHooks(m.Hooks()), flow.WithTelemetry(m))
*/
package observability
