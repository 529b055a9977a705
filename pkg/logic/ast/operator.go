package ast

import "strings"

// Operator represents a comparison operator in a condition.
type Operator string

const (
	OperatorLessThan     Operator = "<"
	OperatorLessEqual    Operator = "<="
	OperatorEqual        Operator = "=="
	OperatorGreaterEqual Operator = ">="
	OperatorGreaterThan  Operator = ">"
	OperatorNotEqual     Operator = "!="
	OperatorIsNil        Operator = "is nil"     // Observation presence only
	OperatorIsNotNil     Operator = "is not nil" // Observation presence only
)

// ParseOperator converts the textual form of an operator into an Operator.
// Surrounding whitespace is ignored and the nil checks are case-insensitive.
func ParseOperator(s string) (Operator, bool) {
	s = strings.TrimSpace(s)
	switch Operator(strings.ToLower(s)) {
	case OperatorLessThan, OperatorLessEqual, OperatorEqual,
		OperatorGreaterEqual, OperatorGreaterThan, OperatorNotEqual,
		OperatorIsNil, OperatorIsNotNil:
		return Operator(strings.ToLower(s)), true
	}
	return "", false
}

// IsComparison returns true for the six ordering/equality operators.
func (o Operator) IsComparison() bool {
	switch o {
	case OperatorLessThan, OperatorLessEqual, OperatorEqual,
		OperatorGreaterEqual, OperatorGreaterThan, OperatorNotEqual:
		return true
	}
	return false
}

// IsPresence returns true for "is nil" and "is not nil".
func (o Operator) IsPresence() bool {
	return o == OperatorIsNil || o == OperatorIsNotNil
}

// TimeUnit is the unit an Age threshold is expressed in.
type TimeUnit string

const (
	UnitYears   TimeUnit = "years"
	UnitMonths  TimeUnit = "months"
	UnitWeeks   TimeUnit = "weeks"
	UnitDays    TimeUnit = "days"
	UnitHours   TimeUnit = "hours"
	UnitMinutes TimeUnit = "minutes"
	UnitSeconds TimeUnit = "seconds"
)

// ParseTimeUnit accepts singular or plural unit names in any case.
// An empty string yields UnitYears.
func ParseTimeUnit(s string) (TimeUnit, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return UnitYears, true
	}
	if !strings.HasSuffix(s, "s") {
		s += "s"
	}
	switch TimeUnit(s) {
	case UnitYears, UnitMonths, UnitWeeks, UnitDays, UnitHours, UnitMinutes, UnitSeconds:
		return TimeUnit(s), true
	}
	return "", false
}

// Gender is the administrative gender a Gender condition tests for.
type Gender string

const (
	GenderMale   Gender = "M"
	GenderFemale Gender = "F"
)

// SESLevel is a socioeconomic status category.
type SESLevel string

const (
	SESLow    SESLevel = "Low"
	SESMiddle SESLevel = "Middle"
	SESHigh   SESLevel = "High"
)

// ParseSESLevel matches a category name case-insensitively.
func ParseSESLevel(s string) (SESLevel, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low":
		return SESLow, true
	case "middle":
		return SESMiddle, true
	case "high":
		return SESHigh, true
	}
	return "", false
}
