package engine

import (
	"mercator-hq/carepath/pkg/logic/ast"
	"mercator-hq/carepath/pkg/logic/snapshot"
)

// matchGender checks the patient's gender.
func (e *Evaluator) matchGender(n *ast.GenderIs, patient snapshot.Patient) (bool, error) {
	return patient.Gender() == string(n.Gender), nil
}

// matchAge compares the patient's age at the simulation time. A patient
// without a birth instant, or not yet born, never matches.
func (e *Evaluator) matchAge(n *ast.Age, evalCtx *Context, patient snapshot.Patient) (bool, error) {
	birth, ok := patient.BirthTime()
	if !ok || evalCtx.Time.Before(birth) {
		return false, nil
	}

	unit := n.Unit
	if unit == "" {
		unit = ast.UnitYears
	}

	age, err := elapsed(birth, evalCtx.Time, unit)
	if err != nil {
		return false, err
	}

	return compareNumbers(n.Kind(), n.Operator, float64(age), n.Quantity)
}

// matchAttributeEqual checks an attribute for an exact string value.
func (e *Evaluator) matchAttributeEqual(n *ast.AttributeEqual, patient snapshot.Patient) (bool, error) {
	value, ok := patient.Attribute(n.Name)
	if !ok {
		return false, nil
	}

	s, ok := attributeString(value)
	return ok && s == n.Value, nil
}

// matchAttributeCompare compares a numeric attribute. Unset and non-numeric
// attributes never match.
func (e *Evaluator) matchAttributeCompare(n *ast.AttributeCompare, patient snapshot.Patient) (bool, error) {
	value, ok := patient.Attribute(n.Name)
	if !ok {
		return false, nil
	}

	num, ok := toFloat64(value)
	if !ok {
		return false, nil
	}

	return compareNumbers(n.Kind(), n.Operator, num, n.Threshold)
}

// matchSymptom compares the effective symptom severity. A symptom no cause
// has recorded has severity zero.
func (e *Evaluator) matchSymptom(n *ast.SymptomCompare, patient snapshot.Patient) (bool, error) {
	value, ok := patient.SymptomValue(n.Symptom)
	if !ok {
		value = 0
	}
	return compareNumbers(n.Kind(), n.Operator, value, n.Threshold)
}

// matchObservation compares the most recent observation of a type.
func (e *Evaluator) matchObservation(n *ast.Observation, patient snapshot.Patient) (bool, error) {
	obsType := n.Type
	if n.Indirect() {
		value, ok := patient.Attribute(n.Attribute)
		if !ok {
			// The referenced test was never performed; the condition does not apply.
			return false, nil
		}
		obsType, ok = attributeString(value)
		if !ok {
			return false, nil
		}
	}

	observations := patient.Observations(obsType)
	if len(observations) == 0 {
		return false, &MissingObservationError{Type: obsType, Attribute: n.Attribute}
	}

	latest := observations[len(observations)-1]
	return compareValues(n.Kind(), n.Operator, latest.Value, n.Value)
}

// matchConditionActive checks whether a condition is currently active.
func (e *Evaluator) matchConditionActive(n *ast.ConditionActive, patient snapshot.Patient) (bool, error) {
	code, ok := resolveCode(n.Code, n.Attribute, patient)
	if !ok {
		return false, nil
	}
	return patient.HasActiveCondition(code), nil
}

// matchConditionDiagnosed checks whether a condition has an open diagnosis.
func (e *Evaluator) matchConditionDiagnosed(n *ast.ConditionDiagnosed, patient snapshot.Patient) (bool, error) {
	code, ok := resolveCode(n.Code, n.Attribute, patient)
	if !ok {
		return false, nil
	}
	record, ok := patient.DiagnosedCondition(code)
	return ok && record.Active(), nil
}

// matchCarePlanActive checks whether a care plan is in progress.
func (e *Evaluator) matchCarePlanActive(n *ast.CarePlanActive, patient snapshot.Patient) (bool, error) {
	code, ok := resolveCode(n.Code, n.Attribute, patient)
	if !ok {
		return false, nil
	}
	return patient.HasActiveCarePlan(code), nil
}

// matchSESCategory checks whether the patient's socioeconomic score falls in
// the category's range. A level outside Low, Middle and High is a malformed
// tree and yields an OperatorError.
func (e *Evaluator) matchSESCategory(n *ast.SESCategory, patient snapshot.Patient) (bool, error) {
	r, ok := e.config.SES.Range(n.Level)
	if !ok {
		return false, &OperatorError{Kind: n.Kind(), Operator: ast.Operator(n.Level)}
	}

	ses, ok := patient.Socioeconomic()
	if !ok {
		return false, nil
	}

	score := e.config.SES.Score(ses)
	if score < r.Min {
		return false, nil
	}
	if n.Level == ast.SESHigh {
		return score <= r.Max, nil
	}
	return score < r.Max, nil
}

// resolveCode returns the code a condition refers to, reading it from an
// attribute when one is named. An unset attribute resolves to nothing.
func resolveCode(code, attribute string, patient snapshot.Patient) (string, bool) {
	if attribute == "" {
		return code, code != ""
	}
	value, ok := patient.Attribute(attribute)
	if !ok {
		return "", false
	}
	return attributeString(value)
}
