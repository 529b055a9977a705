package tracing

import (
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Span names.
const (
	SpanEvaluate        = "carepath.evaluate"
	SpanEvaluateLibrary = "carepath.evaluate_library"
)

// Attribute keys.
const (
	AttrLibrary   = "carepath.library"
	AttrCondition = "carepath.condition"
	AttrKind      = "carepath.kind"
	AttrSimTime   = "carepath.sim_time"
	AttrMatched   = "carepath.matched"
	AttrOutcome   = "carepath.outcome"
	AttrErrorCode = "carepath.error_code"
	AttrRecordID  = "carepath.audit.record_id"
	AttrCount     = "carepath.conditions"
)

// ConditionAttributes identifies an evaluation request.
func ConditionAttributes(library, condition string, simTime time.Time) []attribute.KeyValue {
	attrs := []attribute.KeyValue{attribute.String(AttrLibrary, library)}
	if condition != "" {
		attrs = append(attrs, attribute.String(AttrCondition, condition))
	}
	if !simTime.IsZero() {
		attrs = append(attrs, attribute.String(AttrSimTime, simTime.UTC().Format(time.RFC3339)))
	}
	return attrs
}

// SetEvaluationResult records the outcome of an evaluation on span. errCode
// is omitted when empty.
func SetEvaluationResult(span trace.Span, kind string, matched bool, outcome, errCode string) {
	attrs := []attribute.KeyValue{
		attribute.String(AttrKind, kind),
		attribute.Bool(AttrMatched, matched),
		attribute.String(AttrOutcome, outcome),
	}
	if errCode != "" {
		attrs = append(attrs, attribute.String(AttrErrorCode, errCode))
	}
	span.SetAttributes(attrs...)
}
