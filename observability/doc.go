// Package observability connects the stream stages to OpenTelemetry and
// holds the service health model.
//
// Export (optional; without it the otel globals are no-ops):
//
//	providers, err := observability.Init(ctx, observability.DefaultConfig("flowdemo"))
//	defer providers.Shutdown(ctx)
//
// Stream metrics are a pipeline.Observer:
//
//	metrics, err := observability.NewStreamMetrics(observability.Meter("flowdemo"))
//	paced, err := pipeline.Paced(windows, time.Second, 0, exec, pipeline.WithObserver(metrics))
//
// Health aggregates component.Health results:
//
//	health := observability.NewServiceHealth("flowdemo", version.GetVersionInfo().Version)
//	for _, h := range registry.HealthAll(ctx) {
//	    health.AddComponent(h)
//	}
package observability
