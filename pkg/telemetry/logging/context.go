package logging

import (
	"context"
	"log/slog"
)

// Context keys for evaluation log fields.
type contextKey string

const (
	// PatientIDKey is the context key for patient identifiers.
	PatientIDKey contextKey = "patient_id"

	// LibraryKey is the context key for library names.
	LibraryKey contextKey = "library"

	// ConditionKey is the context key for condition names.
	ConditionKey contextKey = "condition"
)

// WithPatientID adds a patient identifier to the context.
func WithPatientID(ctx context.Context, patientID string) context.Context {
	return context.WithValue(ctx, PatientIDKey, patientID)
}

// GetPatientID retrieves the patient identifier from the context.
func GetPatientID(ctx context.Context) string {
	if id, ok := ctx.Value(PatientIDKey).(string); ok {
		return id
	}
	return ""
}

// WithCondition adds the library and condition being evaluated to the context.
func WithCondition(ctx context.Context, library, condition string) context.Context {
	ctx = context.WithValue(ctx, LibraryKey, library)
	return context.WithValue(ctx, ConditionKey, condition)
}

// GetCondition retrieves the library and condition names from the context.
func GetCondition(ctx context.Context) (library, condition string) {
	library, _ = ctx.Value(LibraryKey).(string)
	condition, _ = ctx.Value(ConditionKey).(string)
	return library, condition
}

// extractContextFields returns the evaluation fields set on ctx as
// alternating keys and values.
func extractContextFields(ctx context.Context) []any {
	var fields []any

	if id := GetPatientID(ctx); id != "" {
		fields = append(fields, string(PatientIDKey), id)
	}

	library, condition := GetCondition(ctx)
	if library != "" {
		fields = append(fields, string(LibraryKey), library)
	}
	if condition != "" {
		fields = append(fields, string(ConditionKey), condition)
	}

	return fields
}

// FromContext returns logger with the evaluation fields set on ctx.
// A nil logger means slog.Default().
func FromContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = slog.Default()
	}
	fields := extractContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(fields...)
}
