// Package tracing exports an OpenTelemetry span for every condition
// evaluation.
//
// Spans are exported over OTLP/gRPC to a collector. When tracing is
// disabled a no-op tracer is used and spans cost almost nothing.
//
// # Spans
//
//   - carepath.evaluate: one condition evaluation. Attributes carry the
//     library, condition, node kind, simulation time, outcome and, on
//     failure, the stable error code.
//   - carepath.evaluate_library: parent span when every condition of a
//     library is evaluated in one call.
//
// # Sampling
//
// Three strategies are supported, each wrapped in ParentBased so child
// spans follow their parent's decision:
//   - always: sample every evaluation
//   - never: sample nothing
//   - ratio: sample a fraction of traces by trace ID
//
// # Usage
//
//	tracer, err := tracing.New(ctx, cfg.Telemetry.Tracing, version)
//	if err != nil {
//	    return err
//	}
//	defer tracer.Shutdown(context.Background())
//
//	r := runner.New(registry, evaluator, logger).WithTracer(tracer)
package tracing
