package runner

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"mercator-hq/carepath/pkg/audit"
	"mercator-hq/carepath/pkg/logic/ast"
	"mercator-hq/carepath/pkg/logic/engine"
	"mercator-hq/carepath/pkg/logic/snapshot"
	"mercator-hq/carepath/pkg/logic/source"
	"mercator-hq/carepath/pkg/telemetry/logging"
	"mercator-hq/carepath/pkg/telemetry/metrics"
	"mercator-hq/carepath/pkg/telemetry/tracing"
)

// Request identifies a condition and the patient state to evaluate it
// against.
type Request struct {
	Library   string
	Condition string

	// PatientID labels audit records and log entries.
	PatientID string

	// Time is the simulation instant.
	Time    time.Time
	History snapshot.History
	Patient snapshot.Patient
}

// Result is the outcome of one evaluation.
type Result struct {
	Library   string
	Condition string
	Kind      ast.Kind

	// Matched is false whenever Err is set.
	Matched bool
	Err     error

	Duration time.Duration

	// RecordID is the audit record ID, or empty when auditing is disabled
	// or the write failed.
	RecordID string
}

// Runner evaluates library conditions and reports each evaluation.
// It is safe for concurrent use.
type Runner struct {
	registry  *source.Registry
	evaluator *engine.Evaluator
	metrics   *metrics.Collector
	recorder  *audit.Recorder
	tracer    *tracing.Tracer
	logger    *slog.Logger
}

// New creates a runner over a registry of libraries.
func New(registry *source.Registry, evaluator *engine.Evaluator, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		registry:  registry,
		evaluator: evaluator,
		logger:    logger.With("component", "runner"),
	}
}

// WithMetrics reports evaluations to collector.
func (r *Runner) WithMetrics(collector *metrics.Collector) *Runner {
	r.metrics = collector
	return r
}

// WithRecorder writes an audit record for every evaluation.
func (r *Runner) WithRecorder(recorder *audit.Recorder) *Runner {
	r.recorder = recorder
	return r
}

// WithTracer starts a span for every evaluation.
func (r *Runner) WithTracer(tracer *tracing.Tracer) *Runner {
	r.tracer = tracer
	return r
}

// Evaluate evaluates the requested condition. A library or condition that is
// not registered is returned as a *source.RegistryError in Result.Err and is
// neither measured nor audited.
func (r *Runner) Evaluate(ctx context.Context, req Request) Result {
	ctx = logging.WithPatientID(ctx, req.PatientID)
	ctx = logging.WithCondition(ctx, req.Library, req.Condition)
	logger := logging.FromContext(ctx, r.logger)

	res := Result{Library: req.Library, Condition: req.Condition}

	node, err := r.registry.Condition(req.Library, req.Condition)
	if err != nil {
		logger.Warn("condition lookup failed", "error", err)
		res.Err = err
		return res
	}

	return r.evaluate(ctx, logger, req, node, res)
}

// EvaluateLibrary evaluates every condition of req.Library in declaration
// order. req.Condition is ignored.
func (r *Runner) EvaluateLibrary(ctx context.Context, req Request) ([]Result, error) {
	lib, ok := r.registry.Get(req.Library)
	if !ok {
		return nil, &source.RegistryError{
			Library:   req.Library,
			Operation: "lookup",
			Message:   "library not found",
		}
	}

	ctx = logging.WithPatientID(ctx, req.PatientID)
	names := lib.Names()
	if r.tracer != nil {
		var span trace.Span
		ctx, span = r.tracer.Start(ctx, tracing.SpanEvaluateLibrary,
			trace.WithAttributes(tracing.ConditionAttributes(req.Library, "", req.Time)...))
		defer span.End()
	}
	results := make([]Result, 0, len(names))
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		node, _ := lib.Get(name)
		one := req
		one.Condition = name
		cctx := logging.WithCondition(ctx, req.Library, name)
		results = append(results, r.evaluate(cctx, logging.FromContext(cctx, r.logger), one, node,
			Result{Library: req.Library, Condition: name}))
	}
	return results, nil
}

func (r *Runner) evaluate(ctx context.Context, logger *slog.Logger, req Request, node ast.Node, res Result) Result {
	res.Kind = node.Kind()

	var span trace.Span
	if r.tracer != nil {
		ctx, span = r.tracer.Start(ctx, tracing.SpanEvaluate,
			trace.WithAttributes(tracing.ConditionAttributes(req.Library, req.Condition, req.Time)...))
		defer span.End()
	}

	start := time.Now()
	matched, err := r.evaluator.Evaluate(node, engine.Context{Time: req.Time, History: req.History}, req.Patient)
	res.Duration = time.Since(start)
	res.Matched = matched
	res.Err = err

	code := engine.ErrorCode(err)
	outcome := metrics.OutcomeOf(matched, err)
	if r.metrics != nil {
		r.metrics.RecordEvaluation(req.Library+"/"+req.Condition, res.Kind, outcome, code, res.Duration)
	}
	if span != nil {
		tracing.SetEvaluationResult(span, string(res.Kind), matched, string(outcome), code)
		tracing.SetStatus(span, err)
	}

	if err != nil {
		logger.Warn("condition evaluation failed", "kind", res.Kind, "error_code", code, "error", err)
	} else {
		logger.Debug("condition evaluated", "kind", res.Kind, "matched", matched, "duration", res.Duration)
	}

	if r.recorder != nil {
		res.RecordID = r.record(ctx, logger, req, res, code)
		if span != nil && res.RecordID != "" {
			span.SetAttributes(attribute.String(tracing.AttrRecordID, res.RecordID))
		}
	}
	return res
}

func (r *Runner) record(ctx context.Context, logger *slog.Logger, req Request, res Result, code string) string {
	rec := &audit.Record{
		PatientID:      req.PatientID,
		Library:        req.Library,
		LibraryVersion: r.registry.Version(),
		Condition:      req.Condition,
		Kind:           string(res.Kind),
		SimTime:        req.Time,
		Matched:        res.Matched,
		ErrorKind:      code,
		Duration:       res.Duration,
	}
	if res.Err != nil {
		rec.Error = res.Err.Error()
	}

	if err := r.recorder.Record(ctx, rec); err != nil {
		logger.Error("failed to store audit record", "error", err)
		if r.metrics != nil {
			r.metrics.RecordAuditFailure()
		}
		return ""
	}
	return rec.ID
}
