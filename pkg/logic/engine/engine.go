package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"mercator-hq/carepath/pkg/logic/ast"
	"mercator-hq/carepath/pkg/logic/snapshot"
)

// Context is the simulation context a condition is evaluated in.
type Context struct {
	// Time is the current simulation instant.
	Time time.Time

	// History is the patient's state history. It is owned by the caller and
	// is only queried for the duration of a single evaluation.
	History snapshot.History
}

// Evaluator evaluates condition trees against patient snapshots.
//
// An Evaluator holds only immutable configuration and is safe for concurrent
// use by multiple goroutines evaluating different patients.
type Evaluator struct {
	config Config
	logger *slog.Logger
}

// NewEvaluator creates a new condition evaluator.
func NewEvaluator(config *Config, logger *slog.Logger) (*Evaluator, error) {
	if config == nil {
		config = DefaultConfig()
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Evaluator{
		config: *config,
		logger: logger.With("component", "logic.engine"),
	}, nil
}

// Config returns a copy of the evaluator configuration.
func (e *Evaluator) Config() Config {
	return e.config
}

// Evaluate evaluates a condition tree for a patient at evalCtx.Time.
//
// A nil node always holds. Any error is a *ConditionError locating the
// failing node; a missing mandatory observation matches
// ErrMissingRequiredObservation with errors.Is.
func (e *Evaluator) Evaluate(node ast.Node, evalCtx Context, patient snapshot.Patient) (bool, error) {
	if node == nil {
		return true, nil // No condition means always match
	}
	if patient == nil {
		return false, rootError(node, ErrNilPatient)
	}

	matched, err := e.eval(node, &evalCtx, patient)
	if err != nil {
		ce := rootError(node, err)
		e.logger.Debug("condition evaluation failed",
			"kind", node.Kind(),
			"path", ce.Path,
			"error", ce.Cause,
		)
		return false, ce
	}

	if e.logger.Enabled(context.Background(), slog.LevelDebug) {
		e.logger.Debug("condition evaluated",
			"kind", node.Kind(),
			"time", evalCtx.Time,
			"matched", matched,
		)
	}

	return matched, nil
}

// eval dispatches a node to its evaluator.
func (e *Evaluator) eval(node ast.Node, evalCtx *Context, patient snapshot.Patient) (bool, error) {
	switch n := node.(type) {
	case *ast.True:
		return true, nil

	case *ast.False:
		return false, nil

	case *ast.GenderIs:
		return e.matchGender(n, patient)

	case *ast.Age:
		return e.matchAge(n, evalCtx, patient)

	case *ast.DateBefore:
		return evalCtx.Time.Before(startOfYear(n.Year, evalCtx.Time)), nil

	case *ast.DateAfter:
		return !evalCtx.Time.Before(startOfYear(n.Year, evalCtx.Time)), nil

	case *ast.AttributeEqual:
		return e.matchAttributeEqual(n, patient)

	case *ast.AttributeNil:
		_, ok := patient.Attribute(n.Name)
		return !ok, nil

	case *ast.AttributeNotNil:
		_, ok := patient.Attribute(n.Name)
		return ok, nil

	case *ast.AttributeCompare:
		return e.matchAttributeCompare(n, patient)

	case *ast.SymptomCompare:
		return e.matchSymptom(n, patient)

	case *ast.PriorState:
		return evalCtx.History != nil && evalCtx.History.Contains(n.State), nil

	case *ast.Observation:
		return e.matchObservation(n, patient)

	case *ast.ConditionActive:
		return e.matchConditionActive(n, patient)

	case *ast.ConditionDiagnosed:
		return e.matchConditionDiagnosed(n, patient)

	case *ast.CarePlanActive:
		return e.matchCarePlanActive(n, patient)

	case *ast.SESCategory:
		return e.matchSESCategory(n, patient)

	case *ast.RaceExists:
		_, ok := patient.Race()
		return ok, nil

	case *ast.RaceIs:
		race, ok := patient.Race()
		return ok && race == n.Race, nil

	case *ast.And:
		return e.matchAnd(n, evalCtx, patient)

	case *ast.Or:
		return e.matchOr(n, evalCtx, patient)

	case *ast.Not:
		return e.matchNot(n, evalCtx, patient)

	case *ast.AtLeast:
		count, err := e.countMatches(n, n.Children, evalCtx, patient)
		if err != nil {
			return false, err
		}
		return count >= n.Minimum, nil

	case *ast.AtMost:
		count, err := e.countMatches(n, n.Children, evalCtx, patient)
		if err != nil {
			return false, err
		}
		return count <= n.Maximum, nil

	case nil:
		return false, fmt.Errorf("%w: nil node", ErrUnknownCondition)

	default:
		return false, fmt.Errorf("%w: %T", ErrUnknownCondition, node)
	}
}
