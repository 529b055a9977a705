package engine

import (
	"errors"
	"fmt"
	"strings"

	"mercator-hq/carepath/pkg/logic/ast"
)

// Common sentinel errors
var (
	// ErrMissingRequiredObservation indicates a directly named observation
	// type has no recorded values for the patient.
	ErrMissingRequiredObservation = errors.New("missing required observation")

	// ErrUnknownCondition indicates a node the evaluator cannot dispatch,
	// such as a nil child of a combinator.
	ErrUnknownCondition = errors.New("unknown condition")

	// ErrInvalidOperator indicates an operator or SES level that does not
	// apply to the condition it appears in. The parser and validator reject
	// such conditions, so only trees built in code can produce it.
	ErrInvalidOperator = errors.New("invalid operator")

	// ErrNilPatient indicates evaluation was requested without a patient.
	ErrNilPatient = errors.New("patient snapshot is nil")

	// ErrInvalidConfig indicates invalid evaluator configuration.
	ErrInvalidConfig = errors.New("invalid engine configuration")
)

// MissingObservationError reports a mandatory observation lookup that found
// no records. It matches ErrMissingRequiredObservation with errors.Is.
type MissingObservationError struct {
	// Type is the observation type that has no records.
	Type string

	// Attribute is the attribute the type was read from, if any.
	Attribute string
}

// Error returns the error message.
func (e *MissingObservationError) Error() string {
	if e.Attribute != "" {
		return fmt.Sprintf("%s: no %q observations recorded (type read from attribute %q)",
			ErrMissingRequiredObservation, e.Type, e.Attribute)
	}
	return fmt.Sprintf("%s: no %q observations recorded", ErrMissingRequiredObservation, e.Type)
}

// Is reports whether target is ErrMissingRequiredObservation.
func (e *MissingObservationError) Is(target error) bool {
	return target == ErrMissingRequiredObservation
}

// OperatorError indicates an operator that the condition kind does not
// support. It reports a malformed tree, not missing patient data.
type OperatorError struct {
	Kind     ast.Kind
	Operator ast.Operator
}

// Error returns the error message.
func (e *OperatorError) Error() string {
	return fmt.Sprintf("%s %q for %s condition", ErrInvalidOperator, e.Operator, e.Kind)
}

// Is reports whether target is ErrInvalidOperator.
func (e *OperatorError) Is(target error) bool {
	return target == ErrInvalidOperator
}

// ConditionError locates an evaluation failure in the condition tree.
// Every error returned by Evaluator.Evaluate is a *ConditionError.
type ConditionError struct {
	// Kind is the kind of the node that failed.
	Kind ast.Kind

	// Path is the path of the failing node from the root, e.g. "and[1].observation".
	Path string

	// Location is the source location of the failing node, if known.
	Location ast.Location

	// Cause is the underlying error.
	Cause error

	// trail records (parent, index) pairs from the failing node up to the
	// root while the error propagates.
	trail []step
}

type step struct {
	parent ast.Node
	index  int
}

// Error returns the error message.
func (e *ConditionError) Error() string {
	var sb strings.Builder
	sb.WriteString("condition ")
	sb.WriteString(e.Path)
	if e.Location.IsValid() {
		sb.WriteString(" (")
		sb.WriteString(e.Location.String())
		sb.WriteString(")")
	}
	sb.WriteString(": ")
	sb.WriteString(e.Cause.Error())
	return sb.String()
}

// Unwrap returns the underlying cause.
func (e *ConditionError) Unwrap() error {
	return e.Cause
}

// childError records that the i-th child of parent failed with err.
func childError(parent ast.Node, i int, child ast.Node, err error) error {
	ce, ok := err.(*ConditionError)
	if !ok {
		ce = newConditionError(child, err)
	}
	ce.trail = append(ce.trail, step{parent: parent, index: i})
	return ce
}

// rootError completes the path of an error that reached the root.
func rootError(root ast.Node, err error) *ConditionError {
	ce, ok := err.(*ConditionError)
	if !ok {
		ce = newConditionError(root, err)
	}

	path := string(root.Kind())
	for i := len(ce.trail) - 1; i >= 0; i-- {
		s := ce.trail[i]
		path = ast.ChildPath(path, s.parent, s.index, ast.Children(s.parent)[s.index])
	}
	ce.Path = path
	ce.trail = nil
	return ce
}

func newConditionError(n ast.Node, err error) *ConditionError {
	ce := &ConditionError{Kind: "nil", Cause: err}
	if n != nil {
		ce.Kind = n.Kind()
		ce.Location = n.Pos()
	}
	return ce
}

// Error codes returned by ErrorCode.
const (
	CodeMissingObservation = "missing_observation"
	CodeUnknownCondition   = "unknown_condition"
	CodeInvalidOperator    = "invalid_operator"
	CodeNilPatient         = "nil_patient"
	CodeInvalidConfig      = "invalid_config"
	CodeOther              = "other"
)

// ErrorCode classifies an evaluation error into a stable code suitable for
// metric labels and audit records. It returns "" for a nil error.
func ErrorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrMissingRequiredObservation):
		return CodeMissingObservation
	case errors.Is(err, ErrUnknownCondition):
		return CodeUnknownCondition
	case errors.Is(err, ErrInvalidOperator):
		return CodeInvalidOperator
	case errors.Is(err, ErrNilPatient):
		return CodeNilPatient
	case errors.Is(err, ErrInvalidConfig):
		return CodeInvalidConfig
	default:
		return CodeOther
	}
}
