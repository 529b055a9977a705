package parser

import (
	"sort"
	"strings"
)

// Condition type names as they appear in module descriptions.
const (
	typeTrue               = "True"
	typeFalse              = "False"
	typeGender             = "Gender"
	typeAge                = "Age"
	typeDate               = "Date"
	typeAttribute          = "Attribute"
	typeSymptom            = "Symptom"
	typePriorState         = "PriorState"
	typeObservation        = "Observation"
	typeActiveCondition    = "Active Condition"
	typeDiagnosedCondition = "Diagnosed Condition"
	typeActiveCarePlan     = "Active CarePlan"
	typeSES                = "Socioeconomic Status"
	typeRace               = "Race"
	typeAnd                = "And"
	typeOr                 = "Or"
	typeNot                = "Not"
	typeAtLeast            = "At Least"
	typeAtMost             = "At Most"
)

// conditionTypes maps normalized condition_type values to their canonical
// names.
var conditionTypes = map[string]string{}

func init() {
	for _, name := range []string{
		typeTrue, typeFalse, typeGender, typeAge, typeDate, typeAttribute,
		typeSymptom, typePriorState, typeObservation, typeActiveCondition,
		typeDiagnosedCondition, typeActiveCarePlan, typeSES, typeRace,
		typeAnd, typeOr, typeNot, typeAtLeast, typeAtMost,
	} {
		conditionTypes[normalizeType(name)] = name
	}
	conditionTypes["sescategory"] = typeSES
	conditionTypes["ses"] = typeSES
}

// normalizeType folds case and drops spaces, underscores and hyphens, so
// "Active Condition", "active_condition" and "ActiveCondition" are equal.
func normalizeType(s string) string {
	var sb strings.Builder
	sb.Grow(len(s))
	for _, r := range strings.ToLower(s) {
		switch r {
		case ' ', '\t', '_', '-':
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

// lookupType returns the canonical name of a condition type.
func lookupType(s string) (string, bool) {
	name, ok := conditionTypes[normalizeType(s)]
	return name, ok
}

// typeNames returns every canonical condition type name, sorted.
func typeNames() []string {
	seen := make(map[string]bool)
	var names []string
	for _, name := range conditionTypes {
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}
