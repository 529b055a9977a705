// Package telemetry groups the observability packages used by carepath.
//
// # Components
//
//   - logging: structured logging with PHI redaction
//   - metrics: Prometheus metrics for evaluations and library reloads
//   - tracing: OpenTelemetry spans around condition evaluation
//   - health: liveness, readiness and version endpoints
//
// # Usage
//
//	logger, err := logging.New(cfg.Telemetry.Logging, os.Stderr)
//	if err != nil {
//		return err
//	}
//
//	collector := metrics.NewCollector(cfg.Telemetry.Metrics, nil)
//
//	tracer, err := tracing.New(ctx, cfg.Telemetry.Tracing, version)
//	if err != nil {
//		return err
//	}
//	defer tracer.Shutdown(ctx)
//
//	r := runner.New(registry, evaluator, logger).
//		WithMetrics(collector).
//		WithTracer(tracer)
//
// Each component is driven by its section of config.TelemetryConfig and can
// be disabled independently.
package telemetry
