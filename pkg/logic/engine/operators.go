package engine

import (
	"fmt"
	"strconv"

	"mercator-hq/carepath/pkg/logic/ast"
)

// compareNumbers applies a comparison operator to two numbers.
func compareNumbers(kind ast.Kind, op ast.Operator, actual, expected float64) (bool, error) {
	switch op {
	case ast.OperatorLessThan:
		return actual < expected, nil
	case ast.OperatorLessEqual:
		return actual <= expected, nil
	case ast.OperatorEqual:
		return actual == expected, nil
	case ast.OperatorGreaterEqual:
		return actual >= expected, nil
	case ast.OperatorGreaterThan:
		return actual > expected, nil
	case ast.OperatorNotEqual:
		return actual != expected, nil
	default:
		return false, &OperatorError{Kind: kind, Operator: op}
	}
}

// compareValues applies an operator to dynamically typed values.
//
// Presence operators test actual for nil. Numbers compare numerically.
// Other values support only equality, on their string forms; ordering them
// never matches.
func compareValues(kind ast.Kind, op ast.Operator, actual, expected any) (bool, error) {
	switch op {
	case ast.OperatorIsNil:
		return actual == nil, nil
	case ast.OperatorIsNotNil:
		return actual != nil, nil
	}

	if !op.IsComparison() {
		return false, &OperatorError{Kind: kind, Operator: op}
	}

	if actual == nil || expected == nil {
		return false, nil
	}

	actualNum, actualOK := toFloat64(actual)
	expectedNum, expectedOK := toFloat64(expected)
	if actualOK && expectedOK {
		return compareNumbers(kind, op, actualNum, expectedNum)
	}

	switch op {
	case ast.OperatorEqual:
		return fmt.Sprint(actual) == fmt.Sprint(expected), nil
	case ast.OperatorNotEqual:
		return fmt.Sprint(actual) != fmt.Sprint(expected), nil
	default:
		return false, nil
	}
}

// toFloat64 converts a numeric value to float64. Strings are not parsed.
func toFloat64(v any) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case float32:
		return float64(val), true
	case int:
		return float64(val), true
	case int8:
		return float64(val), true
	case int16:
		return float64(val), true
	case int32:
		return float64(val), true
	case int64:
		return float64(val), true
	case uint:
		return float64(val), true
	case uint8:
		return float64(val), true
	case uint16:
		return float64(val), true
	case uint32:
		return float64(val), true
	case uint64:
		return float64(val), true
	default:
		return 0, false
	}
}

// attributeString returns the string form of a string or boolean attribute.
// Numbers have no string form here: they never equal a string value.
func attributeString(v any) (string, bool) {
	switch val := v.(type) {
	case string:
		return val, true
	case bool:
		return strconv.FormatBool(val), true
	case fmt.Stringer:
		return val.String(), true
	default:
		return "", false
	}
}
